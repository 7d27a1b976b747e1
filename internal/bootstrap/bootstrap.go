// Package bootstrap holds the start-up steps every binary repeats: loading
// the env file, connecting to postgres and redis, and exposing metrics.
package bootstrap

import (
	"os"
	"strings"

	"github.com/healthythako/booking-service/internal/config"
	"github.com/healthythako/booking-service/internal/queue"
	"github.com/healthythako/booking-service/pkg/logger"
	"github.com/healthythako/booking-service/pkg/pg"
	"github.com/healthythako/booking-service/pkg/prom"
	"github.com/healthythako/booking-service/pkg/redis"
	"github.com/pkg/errors"
)

// ArgValue returns the value of a --name=value argument, or "".
func ArgValue(args []string, name string) string {
	prefix := "--" + name + "="
	for _, v := range args {
		if strings.HasPrefix(v, prefix) {
			return strings.TrimPrefix(v, prefix)
		}
	}
	return ""
}

// ConfigureLogger tags every log entry with the binary's name. Anything
// but the dev environment logs JSON.
func ConfigureLogger(c *config.Config, service string) {
	err := logger.Configure(logger.Options{
		Service:    c.AppName + "-" + service,
		Production: c.AppEnv != "dev",
		Level:      c.LogLevel,
	})
	if err != nil {
		logger.Warn("keeping default logger", "error", err)
	}
}

// EnvPath returns the --env file when it exists. A missing file is logged
// and the process falls back to the plain environment.
func EnvPath(args []string) string {
	p := ArgValue(args, "env")
	if p == "" {
		return ""
	}
	if _, err := os.Stat(p); err != nil {
		logger.Error("failed to open the passed env file", "path", p, "error", err)
		return ""
	}
	return p
}

func OpenDB(c *config.Config) (*pg.DB, error) {
	db, err := pg.CreateReadWrite(c.PostgresReadConfig(), c.PostgresWriteConfig(), c.AppEnv == "dev")
	if err != nil {
		return nil, errors.Wrap(err, "failed connecting to pg")
	}
	return db, nil
}

func OpenRedis(c *config.Config, name string) (redis.RedisAdapter, error) {
	adapter, err := redis.NewRedisAdapter(name, c.RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{c.RedisAddr},
		ClientName: c.AppName + "-" + name,
		DB:         c.RedisDatabase,
		Username:   c.RedisUsername,
		Password:   c.RedisPassword,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed connecting to redis")
	}
	return adapter, nil
}

func QueueConfig(c *config.Config) queue.QueueConfig {
	return queue.QueueConfig{
		Name:              c.QueueName,
		ConsumerGroup:     c.QueueConsumerGroup,
		ConsumerName:      c.QueueConsumerName,
		MaxRetries:        c.QueueMaxRetries,
		VisibilityTimeout: c.QueueVisibilityTimeout,
		PollInterval:      c.QueuePollInterval,
		BatchSize:         c.QueueBatchSize,
		MaxLen:            c.QueueMaxLen,
		EnableDLQ:         c.QueueEnableDLQ,
	}
}

// StartMetrics registers the prometheus collectors and serves them in the
// background. Metrics stay disabled when APP_DEBUG is off.
func StartMetrics(c *config.Config) error {
	if !c.AppDebug {
		return nil
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	if err = prom.Create(hostname, c.AppEnv, c.PromNamespace); err != nil {
		return errors.Wrap(err, "failed to create prometheus metrics")
	}
	go prom.ListenAndServer(c.AppDebugMetricsAddr, c.AppDebugMetricsURI)
	return nil
}
