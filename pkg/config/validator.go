package config

import (
	"errors"
	"fmt"
)

func (c *Config) Validate() error {
	var errs []error

	// App validation
	if c.App.Name == "" {
		errs = append(errs, errors.New("app.name is required"))
	}

	validModes := map[string]bool{"development": true, "production": true, "test": true}
	if !validModes[c.App.Mode] {
		errs = append(errs, fmt.Errorf("app.mode must be one of: development, production, test"))
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.App.LogLevel] {
		errs = append(errs, fmt.Errorf("app.log_level must be one of: debug, info, warn, error"))
	}

	// Database validation, only when the sink is enabled
	if c.Database.Enabled {
		if c.Database.Host == "" {
			errs = append(errs, errors.New("database.host is required"))
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, errors.New("database.port must be between 1 and 65535"))
		}
		if c.Database.Name == "" {
			errs = append(errs, errors.New("database.name is required"))
		}
		if c.Database.MaxConnections <= 0 {
			errs = append(errs, errors.New("database.max_connections must be positive"))
		}
	}

	// Balancer validation
	validStrategies := map[string]bool{
		"round-robin": true, "least-connections": true, "least-response-time": true,
		"resource-based": true, "predictive": true,
	}
	if !validStrategies[c.Balancer.Strategy] {
		errs = append(errs, fmt.Errorf("balancer.strategy %q is not a known strategy", c.Balancer.Strategy))
	}
	if c.Balancer.DecisionLogSize <= 0 {
		errs = append(errs, errors.New("balancer.decision_log_size must be positive"))
	}
	if c.Balancer.OverloadThreshold <= c.Balancer.UnderutilizedThreshold {
		errs = append(errs, errors.New("balancer.overload_threshold must be greater than underutilized_threshold"))
	}
	if c.Balancer.OverloadThreshold <= 0 || c.Balancer.OverloadThreshold > 100 {
		errs = append(errs, errors.New("balancer.overload_threshold must be between 0 and 100"))
	}
	if c.Balancer.UnderutilizedThreshold < 0 || c.Balancer.UnderutilizedThreshold >= 100 {
		errs = append(errs, errors.New("balancer.underutilized_threshold must be between 0 and 100"))
	}

	// Autoscaler validation
	if c.Autoscaler.TargetUtilization <= 0 || c.Autoscaler.TargetUtilization > 1 {
		errs = append(errs, errors.New("autoscaler.target_utilization must be between 0 and 1"))
	}
	if c.Autoscaler.ActionLogSize <= 0 {
		errs = append(errs, errors.New("autoscaler.action_log_size must be positive"))
	}

	// Optimizer validation
	if c.Optimizer.ProfileWindow <= 0 {
		errs = append(errs, errors.New("optimizer.profile_window must be positive"))
	}
	if c.Optimizer.MetricWindow <= 0 {
		errs = append(errs, errors.New("optimizer.metric_window must be positive"))
	}

	// Scheduler validation
	if c.Scheduler.TriggerInterval <= 0 {
		errs = append(errs, errors.New("scheduler.trigger_interval must be positive"))
	}
	if c.Scheduler.JitterEnabled && c.Scheduler.JitterInterval <= 0 {
		errs = append(errs, errors.New("scheduler.jitter_interval must be positive when jitter is enabled"))
	}

	// Collector validation
	if c.Collector.Enabled {
		if c.Collector.Endpoint == "" {
			errs = append(errs, errors.New("collector.endpoint is required when collector is enabled"))
		}
		if c.Collector.Interval <= 0 {
			errs = append(errs, errors.New("collector.interval must be positive when collector is enabled"))
		}
	}

	// API validation
	if c.API.Port <= 0 || c.API.Port > 65535 {
		errs = append(errs, errors.New("api.port must be between 1 and 65535"))
	}
	if c.App.Mode == "production" && c.API.JWTSecret == "change-me-in-production" {
		errs = append(errs, errors.New("api.jwt_secret must be changed in production"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}

	return nil
}
