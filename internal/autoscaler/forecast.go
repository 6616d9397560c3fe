package autoscaler

import (
	"fmt"
	"math"
	"time"

	"github.com/AnarQorp/qnet-scheduler/internal/logger"
	"github.com/AnarQorp/qnet-scheduler/pkg/models"
)

// Fixed horizons regenerated on the scheduler's forecast ticker.
var forecastHorizons = []int{7, 30, 90}

// GetCapacityForecast returns the cached forecast for a horizon,
// regenerating it lazily once stale.
func (m *Manager) GetCapacityForecast(horizonDays int) *models.CapacityForecast {
	if horizonDays <= 0 {
		horizonDays = 7
	}

	now := time.Now()
	m.mu.RLock()
	cached, exists := m.forecasts[horizonDays]
	m.mu.RUnlock()

	if exists && !cached.Stale(m.cfg.ForecastTTL, now) {
		return cached
	}
	return m.GenerateCapacityForecast(horizonDays)
}

// RefreshForecasts regenerates every stale fixed-horizon forecast. Driven
// by the scheduler's 5-minute ticker.
func (m *Manager) RefreshForecasts() {
	now := time.Now()
	for _, horizon := range forecastHorizons {
		m.mu.RLock()
		cached, exists := m.forecasts[horizon]
		m.mu.RUnlock()

		if !exists || cached.Stale(m.cfg.ForecastTTL, now) {
			m.GenerateCapacityForecast(horizon)
		}
	}
}

// GenerateCapacityForecast projects required fleet size per day over the
// horizon: linear growth on the current load plus weekly seasonality and a
// small noise term.
func (m *Manager) GenerateCapacityForecast(horizonDays int) *models.CapacityForecast {
	distribution := m.fleet.GetLoadDistribution()

	m.mu.Lock()
	defer m.mu.Unlock()

	fleetSize := m.totalFleetSizeLocked()
	if fleetSize == 0 {
		fleetSize = 1
	}

	// Base load in node-capacity units: how many fully busy nodes the
	// current fleet utilization amounts to.
	baseLoad := float64(fleetSize) * distribution.AverageLoad / 100
	if baseLoad < 0.5 {
		baseLoad = 0.5
	}

	defaultConfig := m.defaultNodeConfigLocked()
	now := time.Now()

	forecast := &models.CapacityForecast{
		HorizonDays: horizonDays,
		GeneratedAt: now,
		Points:      make([]models.ForecastPoint, 0, horizonDays),
	}

	for day := 1; day <= horizonDays; day++ {
		seasonality := math.Sin(2*math.Pi*float64(day)/7) * baseLoad * 0.1
		noise := (m.rng.Float64() - 0.5) * baseLoad * 0.05
		predictedLoad := baseLoad + baseLoad*m.cfg.GrowthRatePerDay*float64(day) + seasonality + noise
		if predictedLoad < 0 {
			predictedLoad = 0
		}

		requiredNodes := int(math.Ceil(predictedLoad / m.cfg.TargetUtilization))
		if requiredNodes < 1 {
			requiredNodes = 1
		}

		// Confidence decays linearly from ~0.9 on day one to ~0.5 at the
		// horizon edge.
		progress := float64(day-1) / math.Max(1, float64(horizonDays-1))
		confidence := 0.9 - 0.4*progress

		forecast.Points = append(forecast.Points, models.ForecastPoint{
			Day:           day,
			Date:          now.AddDate(0, 0, day),
			PredictedLoad: predictedLoad,
			RequiredNodes: requiredNodes,
			RequiredResources: models.ResourceEstimate{
				CPUCores: requiredNodes * defaultConfig.CPUCores,
				MemoryGB: requiredNodes * defaultConfig.MemoryGB,
			},
			Confidence: confidence,
		})
	}

	forecast.Recommendations = forecastRecommendations(forecast, fleetSize)
	m.forecasts[horizonDays] = forecast

	logger.Debugf("Capacity forecast generated: %d days, peak %d nodes (fleet %d)",
		horizonDays, forecast.PeakRequiredNodes(), fleetSize)
	return forecast
}

func (m *Manager) totalFleetSizeLocked() int {
	total := 0
	for _, pool := range m.pools {
		total += pool.CurrentSize
	}
	return total
}

func (m *Manager) defaultNodeConfigLocked() models.NodeConfiguration {
	for _, pool := range m.pools {
		if pool.DefaultConfig.CPUCores > 0 {
			return pool.DefaultConfig
		}
	}
	return models.NodeConfiguration{CPUCores: 4, MemoryGB: 16}
}

func forecastRecommendations(forecast *models.CapacityForecast, fleetSize int) []string {
	peak := forecast.PeakRequiredNodes()

	switch {
	case peak > fleetSize:
		return []string{
			fmt.Sprintf("fleet must grow from %d to %d nodes within %d days", fleetSize, peak, forecast.HorizonDays),
			"raise pool maximum sizes ahead of the projected demand",
		}
	case peak < fleetSize:
		return []string{
			fmt.Sprintf("projected demand of %d nodes is below the current fleet of %d", peak, fleetSize),
			"consider lowering pool minimum sizes to release idle capacity",
		}
	}
	return []string{"current fleet size matches projected demand"}
}
