package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/AnarQorp/qnet-scheduler/pkg/models"
)

var (
	// ErrInvalidInput indicates the input failed validation
	ErrInvalidInput = errors.New("invalid input")

	// Node and pool ids must be alphanumeric with hyphens/underscores, 1-100 chars
	identifierRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{0,99}$`)
)

// SanitizeString removes potentially dangerous characters and trims whitespace
func SanitizeString(input string) string {
	// Trim whitespace
	input = strings.TrimSpace(input)

	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters except newline and tab
	var builder strings.Builder
	for _, r := range input {
		if !unicode.IsControl(r) || r == '\n' || r == '\t' {
			builder.WriteRune(r)
		}
	}

	return builder.String()
}

// ValidateNodeID checks if a node identifier is well-formed
func ValidateNodeID(nodeID string) error {
	nodeID = SanitizeString(nodeID)

	if nodeID == "" {
		return errors.New("node id cannot be empty")
	}

	if len(nodeID) > 100 {
		return errors.New("node id must not exceed 100 characters")
	}

	if !identifierRegex.MatchString(nodeID) {
		return errors.New("node id must start with alphanumeric and contain only letters, numbers, hyphens, and underscores")
	}

	return nil
}

// ValidateNodePool checks pool bounds and node list consistency
func ValidateNodePool(pool *models.NodePool) error {
	if pool == nil {
		return errors.New("node pool cannot be nil")
	}

	if SanitizeString(pool.Name) == "" {
		return errors.New("node pool name cannot be empty")
	}

	if pool.MinSize < 0 {
		return errors.New("minimum pool size cannot be negative")
	}

	if pool.MaxSize < pool.MinSize {
		return errors.New("maximum pool size must be greater than or equal to minimum pool size")
	}

	if pool.MaxSize > 1000 {
		return errors.New("maximum pool size cannot exceed 1000")
	}

	if !pool.SizeInvariantHolds() {
		return fmt.Errorf("current pool size %d outside bounds [%d, %d]", pool.CurrentSize, pool.MinSize, pool.MaxSize)
	}

	if len(pool.Nodes) != pool.CurrentSize {
		return fmt.Errorf("pool lists %d nodes but currentSize is %d", len(pool.Nodes), pool.CurrentSize)
	}

	for _, nodeID := range pool.Nodes {
		if err := ValidateNodeID(nodeID); err != nil {
			return fmt.Errorf("pool node %q: %w", nodeID, err)
		}
	}

	return nil
}

// ValidateScalingPolicy checks a policy and every trigger it owns
func ValidateScalingPolicy(policy *models.ScalingPolicy) error {
	if policy == nil {
		return errors.New("scaling policy cannot be nil")
	}

	if SanitizeString(policy.Name) == "" {
		return errors.New("scaling policy name cannot be empty")
	}

	if len(policy.Triggers) == 0 {
		return errors.New("scaling policy must define at least one trigger")
	}

	if policy.Cooldown < 0 {
		return errors.New("policy cooldown cannot be negative")
	}

	seen := make(map[string]bool, len(policy.Triggers))
	for i := range policy.Triggers {
		trigger := &policy.Triggers[i]
		if trigger.ID == "" {
			trigger.ID = models.NewUUID()
		}
		if seen[trigger.ID] {
			return fmt.Errorf("duplicate trigger id %q", trigger.ID)
		}
		seen[trigger.ID] = true

		if err := validateTrigger(trigger); err != nil {
			return fmt.Errorf("trigger %q: %w", trigger.ID, err)
		}
	}

	return nil
}

func validateTrigger(trigger *models.ScalingTrigger) error {
	switch trigger.Metric {
	case models.MetricCPUUtilization, models.MetricMemoryUtilization, models.MetricCompositeLoad,
		models.MetricResponseTime, models.MetricQueueDepth, models.MetricErrorRate:
	default:
		return fmt.Errorf("unknown metric %q", trigger.Metric)
	}

	switch trigger.Comparison {
	case models.CompareGreater, models.CompareGreaterEqual, models.CompareLess, models.CompareLessEqual:
	default:
		return fmt.Errorf("unknown comparison %q", trigger.Comparison)
	}

	switch trigger.Action {
	case models.ActionAddNode, models.ActionRemoveNode, models.ActionUpgradeNode,
		models.ActionDowngradeNode, models.ActionRedistributeLoad:
	default:
		return fmt.Errorf("unknown action %q", trigger.Action)
	}

	if trigger.Duration < 0 {
		return errors.New("sustained duration cannot be negative")
	}

	return nil
}
