package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file settings
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/qnet-scheduler")
	}

	// Environment variable settings
	v.SetEnvPrefix("QNET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "qnet-scheduler")
	v.SetDefault("app.mode", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.shutdown_timeout", "15s")

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "qnet_scheduler")
	v.SetDefault("database.user", "admin")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.ssl_mode", "disable")

	// Balancer defaults
	v.SetDefault("balancer.strategy", "resource-based")
	v.SetDefault("balancer.decision_log_size", 1000)
	v.SetDefault("balancer.overload_threshold", 80.0)
	v.SetDefault("balancer.underutilized_threshold", 20.0)
	v.SetDefault("balancer.cpu_weight", 0.3)
	v.SetDefault("balancer.memory_weight", 0.3)
	v.SetDefault("balancer.response_time_weight", 0.2)
	v.SetDefault("balancer.throughput_weight", 0.2)

	// Autoscaler defaults
	v.SetDefault("autoscaler.target_utilization", 0.70)
	v.SetDefault("autoscaler.growth_rate_per_day", 0.02)
	v.SetDefault("autoscaler.forecast_ttl", "1h")
	v.SetDefault("autoscaler.action_log_size", 500)
	v.SetDefault("autoscaler.utilization_history", 100)

	// Optimizer defaults
	v.SetDefault("optimizer.metric_window", "24h")
	v.SetDefault("optimizer.profile_window", 100)
	v.SetDefault("optimizer.prediction_ttl", "1h")
	v.SetDefault("optimizer.pattern_scan_size", 200)
	v.SetDefault("optimizer.min_training_samples", 100)

	// Scheduler defaults
	v.SetDefault("scheduler.jitter_interval", "5s")
	v.SetDefault("scheduler.prediction_interval", "60s")
	v.SetDefault("scheduler.trigger_interval", "30s")
	v.SetDefault("scheduler.forecast_interval", "5m")
	v.SetDefault("scheduler.training_interval", "5m")
	v.SetDefault("scheduler.adaptive_interval", "1m")
	v.SetDefault("scheduler.pattern_interval", "2m")
	v.SetDefault("scheduler.jitter_enabled", true)
	v.SetDefault("scheduler.jitter_pattern", "daily")

	// Collector defaults
	v.SetDefault("collector.enabled", false)
	v.SetDefault("collector.interval", "10s")
	v.SetDefault("collector.timeout", "5s")
	v.SetDefault("collector.retry_attempts", 3)
	v.SetDefault("collector.retry_delay", "1s")
	v.SetDefault("collector.max_failures", 5)

	// API defaults
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_timeout", "15s")
	v.SetDefault("api.write_timeout", "15s")
	v.SetDefault("api.rate_limit", 100)
	v.SetDefault("api.jwt_secret", "change-me-in-production")
	v.SetDefault("api.jwt_duration", "24h")
	v.SetDefault("api.jwt_issuer", "qnet-scheduler")

	// WebSocket defaults
	v.SetDefault("websocket.max_connections", 1000)
	v.SetDefault("websocket.ping_interval", "30s")

	// Prometheus defaults
	v.SetDefault("prometheus.enabled", true)
	v.SetDefault("prometheus.port", 9090)

	// Events defaults
	v.SetDefault("events.buffer_size", 100)
}
