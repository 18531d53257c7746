package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTPAddr        string
	DBPath          string // empty means in-memory store
	HookWorkers     int
	HookQueueSize   int
	TickInterval    time.Duration
	PollInterval    time.Duration
	ShutdownTimeout time.Duration
	LogLevel        string
}

// New loads configuration from defaults overridden by TIMETRACK_* environment
// variables (e.g. TIMETRACK_HTTP_ADDR, TIMETRACK_DB_PATH).
func New() Config {
	v := viper.New()
	v.SetEnvPrefix("timetrack")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http_addr", ":8080")
	v.SetDefault("db_path", "")
	v.SetDefault("hook_workers", 2)
	v.SetDefault("hook_queue_size", 100)
	v.SetDefault("tick_interval", time.Second)
	v.SetDefault("poll_interval", 2*time.Second)
	v.SetDefault("shutdown_timeout", 10*time.Second)
	v.SetDefault("log_level", "info")

	return Config{
		HTTPAddr:        v.GetString("http_addr"),
		DBPath:          v.GetString("db_path"),
		HookWorkers:     v.GetInt("hook_workers"),
		HookQueueSize:   v.GetInt("hook_queue_size"),
		TickInterval:    v.GetDuration("tick_interval"),
		PollInterval:    v.GetDuration("poll_interval"),
		ShutdownTimeout: v.GetDuration("shutdown_timeout"),
		LogLevel:        v.GetString("log_level"),
	}
}
