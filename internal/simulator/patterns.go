package simulator

import (
	"math"
	"time"
)

// Pattern shapes the simulated utilization over time. It maps a base
// utilization value to the one the fleet should report right now.
type Pattern interface {
	Apply(base float64) float64
	Name() string
}

func ParsePattern(name string) Pattern {
	switch name {
	case "daily":
		return &DailyPattern{}
	case "weekly":
		return &WeeklyPattern{}
	case "sine":
		return &SineWavePattern{}
	default:
		return &SteadyPattern{}
	}
}

// SteadyPattern - constant utilization
type SteadyPattern struct{}

func (p *SteadyPattern) Apply(base float64) float64 {
	return base
}

func (p *SteadyPattern) Name() string {
	return "steady"
}

// DailyPattern - business-hours traffic cycle
type DailyPattern struct{}

func (p *DailyPattern) Apply(base float64) float64 {
	hour := time.Now().Hour()

	var modifier float64
	switch {
	case hour >= 9 && hour <= 11:
		modifier = 1.4
	case hour >= 14 && hour <= 16:
		modifier = 1.3
	case hour >= 17 && hour <= 20:
		modifier = 1.1
	case hour >= 0 && hour <= 6:
		modifier = 0.6
	default:
		modifier = 1.0
	}

	return clampUtilization(base * modifier)
}

func (p *DailyPattern) Name() string {
	return "daily"
}

// WeeklyPattern - daily cycle on weekdays, reduced load on weekends
type WeeklyPattern struct{}

func (p *WeeklyPattern) Apply(base float64) float64 {
	now := time.Now()

	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return clampUtilization(base * 0.5)
	}
	return (&DailyPattern{}).Apply(base)
}

func (p *WeeklyPattern) Name() string {
	return "weekly"
}

// SineWavePattern - smooth oscillation around the base
type SineWavePattern struct {
	Period    time.Duration
	Amplitude float64
}

func (p *SineWavePattern) Apply(base float64) float64 {
	period := p.Period
	if period == 0 {
		period = 10 * time.Minute
	}
	amplitude := p.Amplitude
	if amplitude == 0 {
		amplitude = 20
	}

	phase := float64(time.Now().UnixNano()) / float64(period.Nanoseconds()) * 2 * math.Pi
	return clampUtilization(base + math.Sin(phase)*amplitude)
}

func (p *SineWavePattern) Name() string {
	return "sine"
}

func clampUtilization(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
