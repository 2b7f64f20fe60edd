// Package config は負荷試験の設定をフラグと LT_ 環境変数から読み込みます。
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config は負荷試験の設定です。
type Config struct {
	BaseURL    string
	Keys       int
	ReadRatio  float64
	BadgeRatio float64
	Rate       int
	Duration   time.Duration
	ValueSize  int
	Output     string
	Timeout    time.Duration
	Name       string
	DisablePUT bool
}

// defaults は環境変数で上書きされた既定値を返します。フラグの既定値として使います。
func defaults() (Config, error) {
	c := Config{
		BaseURL:    "http://localhost:8080",
		Keys:       5000,
		ReadRatio:  0.8,
		Rate:       100,
		Duration:   30 * time.Second,
		ValueSize:  128,
		Output:     "vegeta_results.bin",
		Timeout:    5 * time.Second,
		Name:       "mixed",
		DisablePUT: false,
	}
	var errs []error
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			i, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = i
		}
	}
	ratio := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("LT_BASE_URL", &c.BaseURL)
	num("LT_KEYS", &c.Keys)
	ratio("LT_READ_RATIO", &c.ReadRatio)
	ratio("LT_BADGE_RATIO", &c.BadgeRatio)
	num("LT_RATE", &c.Rate)
	dur("LT_DURATION", &c.Duration)
	num("LT_VALUE_SIZE", &c.ValueSize)
	str("LT_OUTPUT", &c.Output)
	dur("LT_TIMEOUT", &c.Timeout)
	str("LT_NAME", &c.Name)
	if v := os.Getenv("LT_DISABLE_PUT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("LT_DISABLE_PUT: %w", err))
		} else {
			c.DisablePUT = b
		}
	}
	return c, errors.Join(errs...)
}

// Load は環境変数を既定値としてフラグ args を解釈します。
func Load(args []string) (*Config, error) {
	c, err := defaults()
	if err != nil {
		return nil, err
	}

	fs := flag.NewFlagSet("loadtest", flag.ContinueOnError)
	fs.StringVar(&c.BaseURL, "base-url", c.BaseURL, "Base URL of the ttlmap server")
	fs.IntVar(&c.Keys, "keys", c.Keys, "Number of distinct keys")
	fs.Float64Var(&c.ReadRatio, "read-ratio", c.ReadRatio, "Ratio of GET among key-value requests")
	fs.Float64Var(&c.BadgeRatio, "badge-ratio", c.BadgeRatio, "Ratio of GET /badges among all requests")
	fs.IntVar(&c.Rate, "rate", c.Rate, "Requests per second")
	fs.DurationVar(&c.Duration, "duration", c.Duration, "Duration of the load test")
	fs.IntVar(&c.ValueSize, "value-size", c.ValueSize, "Size of each value")
	fs.StringVar(&c.Output, "output", c.Output, "Output file for vegeta results")
	fs.DurationVar(&c.Timeout, "timeout", c.Timeout, "Request timeout")
	fs.StringVar(&c.Name, "name", c.Name, "Name of the load test")
	fs.BoolVar(&c.DisablePUT, "disable-put", c.DisablePUT, "Disable PUT requests")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	switch {
	case c.Rate <= 0:
		return fmt.Errorf("rate must be positive: %d", c.Rate)
	case c.Keys <= 0:
		return fmt.Errorf("keys must be positive: %d", c.Keys)
	case c.ValueSize < 0:
		return fmt.Errorf("value-size must not be negative: %d", c.ValueSize)
	case c.ReadRatio < 0 || c.ReadRatio > 1:
		return fmt.Errorf("read-ratio must be within [0,1]: %v", c.ReadRatio)
	case c.BadgeRatio < 0 || c.BadgeRatio > 1:
		return fmt.Errorf("badge-ratio must be within [0,1]: %v", c.BadgeRatio)
	}
	return nil
}
