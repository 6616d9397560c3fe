package config

import (
	"fmt"
	"time"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Balancer   BalancerConfig   `mapstructure:"balancer"`
	Autoscaler AutoscalerConfig `mapstructure:"autoscaler"`
	Optimizer  OptimizerConfig  `mapstructure:"optimizer"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Collector  CollectorConfig  `mapstructure:"collector"`
	API        APIConfig        `mapstructure:"api"`
	WebSocket  WebSocketConfig  `mapstructure:"websocket"`
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Events     EventsConfig     `mapstructure:"events"`
}

type AppConfig struct {
	Name            string        `mapstructure:"name"`
	Mode            string        `mapstructure:"mode"`
	LogLevel        string        `mapstructure:"log_level"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	MaxConnections  int           `mapstructure:"max_connections"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

func (d DatabaseConfig) DSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, sslMode,
	)
}

type BalancerConfig struct {
	Strategy               string  `mapstructure:"strategy"`
	DecisionLogSize        int     `mapstructure:"decision_log_size"`
	OverloadThreshold      float64 `mapstructure:"overload_threshold"`
	UnderutilizedThreshold float64 `mapstructure:"underutilized_threshold"`
	CPUWeight              float64 `mapstructure:"cpu_weight"`
	MemoryWeight           float64 `mapstructure:"memory_weight"`
	ResponseTimeWeight     float64 `mapstructure:"response_time_weight"`
	ThroughputWeight       float64 `mapstructure:"throughput_weight"`
}

type AutoscalerConfig struct {
	TargetUtilization  float64       `mapstructure:"target_utilization"`
	GrowthRatePerDay   float64       `mapstructure:"growth_rate_per_day"`
	ForecastTTL        time.Duration `mapstructure:"forecast_ttl"`
	ActionLogSize      int           `mapstructure:"action_log_size"`
	UtilizationHistory int           `mapstructure:"utilization_history"`
}

type OptimizerConfig struct {
	MetricWindow       time.Duration `mapstructure:"metric_window"`
	ProfileWindow      int           `mapstructure:"profile_window"`
	PredictionTTL      time.Duration `mapstructure:"prediction_ttl"`
	PatternScanSize    int           `mapstructure:"pattern_scan_size"`
	MinTrainingSamples int           `mapstructure:"min_training_samples"`
}

type SchedulerConfig struct {
	JitterInterval     time.Duration `mapstructure:"jitter_interval"`
	PredictionInterval time.Duration `mapstructure:"prediction_interval"`
	TriggerInterval    time.Duration `mapstructure:"trigger_interval"`
	ForecastInterval   time.Duration `mapstructure:"forecast_interval"`
	TrainingInterval   time.Duration `mapstructure:"training_interval"`
	AdaptiveInterval   time.Duration `mapstructure:"adaptive_interval"`
	PatternInterval    time.Duration `mapstructure:"pattern_interval"`
	JitterEnabled      bool          `mapstructure:"jitter_enabled"`
	JitterPattern      string        `mapstructure:"jitter_pattern"`
}

type CollectorConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Endpoint      string        `mapstructure:"endpoint"`
	Interval      time.Duration `mapstructure:"interval"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	MaxFailures   int           `mapstructure:"max_failures"`
}

type APIConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	RateLimit    int           `mapstructure:"rate_limit"`
	JWTSecret    string        `mapstructure:"jwt_secret"`
	JWTDuration  time.Duration `mapstructure:"jwt_duration"`
	JWTIssuer    string        `mapstructure:"jwt_issuer"`
	CORS         CORSConfig    `mapstructure:"cors"`
}

type WebSocketConfig struct {
	MaxConnections  int           `mapstructure:"max_connections"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	PongTimeout     time.Duration `mapstructure:"pong_timeout"`
	MaxMessageSize  int64         `mapstructure:"max_message_size"`
	ReadBufferSize  int           `mapstructure:"read_buffer_size"`
	WriteBufferSize int           `mapstructure:"write_buffer_size"`
	BroadcastBuffer int           `mapstructure:"broadcast_buffer"`
	ClientBuffer    int           `mapstructure:"client_buffer"`
}

type PrometheusConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type EventsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}
