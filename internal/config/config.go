// Package config は環境変数からサーバの設定を読み込みます。
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/amakane-hakari/ttlmap/internal/badge"
)

// Config はサーバの設定です。
type Config struct {
	HTTPAddr string
	RESPAddr string

	KVTTL            time.Duration
	KVSweepInterval  time.Duration
	KVKeepAliveOnGet bool

	BadgeTTL           time.Duration
	BadgeSweepInterval time.Duration
	PublicHost         string
	ObservatoryURL     string
	FetchTimeout       time.Duration

	MetricsNamespace string
	ShutdownTimeout  time.Duration
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("config: %s: must not be negative: %s", key, v)
	}
	return d, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: %s: %w", key, err)
	}
	return b, nil
}

// Load は環境変数から Config を読み込みます。不正な値があればエラーを返します。
func Load() (*Config, error) {
	c := &Config{
		HTTPAddr:         envOr("TTLMAP_HTTP_ADDR", ":8080"),
		RESPAddr:         os.Getenv("TTLMAP_RESP_ADDR"),
		PublicHost:       os.Getenv("PUBLIC_HOST"),
		ObservatoryURL:   envOr("TTLMAP_OBSERVATORY_URL", badge.DefaultObservatoryEndpoint),
		MetricsNamespace: envOr("TTLMAP_METRICS_NAMESPACE", "ttlmap"),
	}

	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"TTLMAP_KV_TTL", 10 * time.Minute, &c.KVTTL},
		{"TTLMAP_KV_SWEEP_INTERVAL", time.Minute, &c.KVSweepInterval},
		{"TTLMAP_BADGE_TTL", 24 * time.Hour, &c.BadgeTTL},
		{"TTLMAP_BADGE_SWEEP_INTERVAL", time.Minute, &c.BadgeSweepInterval},
		{"TTLMAP_FETCH_TIMEOUT", 10 * time.Second, &c.FetchTimeout},
		{"TTLMAP_SHUTDOWN_TIMEOUT", 5 * time.Second, &c.ShutdownTimeout},
	}
	for _, d := range durations {
		v, err := parseDurationEnv(d.key, d.def)
		if err != nil {
			return nil, err
		}
		*d.dst = v
	}

	keepAlive, err := parseBoolEnv("TTLMAP_KV_KEEPALIVE_ON_GET", true)
	if err != nil {
		return nil, err
	}
	c.KVKeepAliveOnGet = keepAlive

	return c, nil
}
