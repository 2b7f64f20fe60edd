package expiremap

import (
	"errors"
	"fmt"
	"time"

	"github.com/amakane-hakari/ttlmap/internal/metrics"
)

const (
	// DefaultTTL は最後に触れてからエントリが失効するまでの既定の時間です。
	DefaultTTL = 10 * time.Minute
	// DefaultSweepInterval は既定のスイープ間隔です。
	DefaultSweepInterval = time.Minute
)

var (
	// ErrNegativeTTL は TTL が負の値のときに返されます。
	ErrNegativeTTL = errors.New("expiremap: ttl must not be negative")
	// ErrInvalidSweepInterval は TTL が有効なのにスイープ間隔が正でないときに返されます。
	ErrInvalidSweepInterval = errors.New("expiremap: sweep interval must be positive when ttl is enabled")
)

type logLike interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config はマップの設定を表します。
type Config struct {
	Name           string        // ログ用の名前
	TTL            time.Duration // 0 で時間による失効とスイープを無効化
	SweepInterval  time.Duration
	KeepAliveOnGet bool
	Logger         logLike
	Metrics        metrics.Interface
	Clock          func() time.Time
}

// Option はマップのオプションを設定する関数です。
type Option func(*Config)

func defaultConfig() Config {
	return Config{
		Name:           "expiremap",
		TTL:            DefaultTTL,
		SweepInterval:  DefaultSweepInterval,
		KeepAliveOnGet: true,
		Metrics:        metrics.Noop{},
		Clock:          time.Now,
	}
}

func (c *Config) validate() error {
	if c.TTL < 0 {
		return fmt.Errorf("%w: %s", ErrNegativeTTL, c.TTL)
	}
	if c.TTL > 0 && c.SweepInterval <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidSweepInterval, c.SweepInterval)
	}
	return nil
}

// WithTTL は TTL を設定します。0 で失効を無効化します。
func WithTTL(d time.Duration) Option {
	return func(c *Config) { c.TTL = d }
}

// WithSweepInterval はバックグラウンドスイープの間隔を設定します。
func WithSweepInterval(d time.Duration) Option {
	return func(c *Config) { c.SweepInterval = d }
}

// WithKeepAliveOnGet は Get がエントリを「触れた」ものとして扱うかを設定します。
func WithKeepAliveOnGet(b bool) Option {
	return func(c *Config) { c.KeepAliveOnGet = b }
}

// WithName はログに出すマップ名を設定します。
func WithName(name string) Option {
	return func(c *Config) { c.Name = name }
}

// WithLogger はロガーを設定します。
func WithLogger(l logLike) Option {
	return func(c *Config) { c.Logger = l }
}

// WithMetrics はメトリクスを設定します。nil は無視されます。
func WithMetrics(m metrics.Interface) Option {
	return func(c *Config) {
		if m != nil {
			c.Metrics = m
		}
	}
}

// WithClock は現在時刻の取得関数を差し替えます。
func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		if now != nil {
			c.Clock = now
		}
	}
}
