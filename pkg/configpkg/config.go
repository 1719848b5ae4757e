// Package configpkg provides parsing functionality for environment variables.
package configpkg

import (
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
//
// The values are read by viper from a config file or environment variables.
type Config struct {
	DBDriver      string `mapstructure:"DB_DRIVER"`
	DBSource      string `mapstructure:"DB_SOURCE"`
	ServerAddress string `mapstructure:"SERVER_ADDRESS"`
	Environment   string `mapstructure:"GO_ENV"`

	// LockBackend selects the lock coordination backend: "redis" or "memory".
	LockBackend         string        `mapstructure:"LOCK_BACKEND"`
	RedisAddress        string        `mapstructure:"REDIS_ADDRESS"`
	LockAcquireTimeout  time.Duration `mapstructure:"LOCK_ACQUIRE_TIMEOUT"`
	LockLeaseTime       time.Duration `mapstructure:"LOCK_LEASE_TIME"`
	LockRetryInterval   time.Duration `mapstructure:"LOCK_RETRY_INTERVAL"`

	BreakerWindowSize  int           `mapstructure:"BREAKER_WINDOW_SIZE"`
	BreakerMinCalls    int           `mapstructure:"BREAKER_MIN_CALLS"`
	BreakerThreshold   float64       `mapstructure:"BREAKER_FAILURE_THRESHOLD"`
	BreakerOpenTimeout time.Duration `mapstructure:"BREAKER_OPEN_TIMEOUT"`
	BreakerHalfOpenMax int           `mapstructure:"BREAKER_HALF_OPEN_MAX"`

	EventCoreWorkers int `mapstructure:"EVENT_CORE_WORKERS"`
	EventMaxWorkers  int `mapstructure:"EVENT_MAX_WORKERS"`
	EventQueueSize   int `mapstructure:"EVENT_QUEUE_SIZE"`

	// AMQPSource enables the RabbitMQ event relay when non-empty.
	AMQPSource string `mapstructure:"AMQP_SOURCE"`
}

// Load reads configuration from file or environment variables.
func Load(path string) (Config, error) {
	var c Config

	viper.AddConfigPath(path)
	viper.SetConfigName("app")
	viper.SetConfigType("env")

	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if err != nil {
		return c, err
	}

	err = viper.Unmarshal(&c)
	if err != nil {
		return c, err
	}

	return c, nil
}
