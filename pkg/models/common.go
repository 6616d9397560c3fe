package models

import "github.com/google/uuid"

// NewUUID generates a new UUID string
func NewUUID() string {
	return uuid.New().String()
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
