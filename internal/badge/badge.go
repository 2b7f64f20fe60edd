// Package badge は外部 API から取得したバッジ画像を一定時間キャッシュして返します。
package badge

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/amakane-hakari/ttlmap/internal/expiremap"
	"github.com/amakane-hakari/ttlmap/internal/metrics"
)

// DisabledImage は取得に失敗したバッジの画像の代わりに入る値です。
const DisabledImage = "--"

// FetchFunc はバッジ画像 (data URI など) を取得する関数です。
type FetchFunc func(ctx context.Context) (string, error)

// Definition は一つのバッジの定義です。
type Definition struct {
	Name  string
	URL   string // バッジのリンク先
	Fetch FetchFunc
}

// Badge はキャッシュされるバッジです。
type Badge struct {
	Enabled bool   `json:"-"`
	URL     string `json:"url"`
	Image   string `json:"image"`
}

type logLike interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config はサービスの設定を表します。
type Config struct {
	TTL           time.Duration
	SweepInterval time.Duration
	FetchTimeout  time.Duration
	Logger        logLike
	Metrics       metrics.Interface
	MapOptions    []expiremap.Option
}

// Option はサービスのオプションを設定する関数です。
type Option func(*Config)

// WithTTL はバッジをキャッシュする時間を設定します。
func WithTTL(d time.Duration) Option {
	return func(c *Config) { c.TTL = d }
}

// WithSweepInterval はキャッシュのスイープ間隔を設定します。
func WithSweepInterval(d time.Duration) Option {
	return func(c *Config) { c.SweepInterval = d }
}

// WithFetchTimeout は一回の取得のタイムアウトを設定します。
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Config) { c.FetchTimeout = d }
}

// WithLogger はロガーを設定します。
func WithLogger(l logLike) Option {
	return func(c *Config) { c.Logger = l }
}

// WithMetrics はキャッシュのメトリクスを設定します。
func WithMetrics(m metrics.Interface) Option {
	return func(c *Config) { c.Metrics = m }
}

// WithMapOptions は内部のキャッシュマップに追加のオプションを渡します。
func WithMapOptions(opts ...expiremap.Option) Option {
	return func(c *Config) { c.MapOptions = append(c.MapOptions, opts...) }
}

// Service はバッジの定義とそのキャッシュを保持します。
type Service struct {
	cfg   Config
	defs  []Definition
	cache *expiremap.Map[string, Badge]
	group singleflight.Group
}

// NewService は新しい Service を作成します。
//
// キャッシュは Get で寿命を延ばさないので、バッジは TTL ごとに取り直されます。
func NewService(defs []Definition, opts ...Option) (*Service, error) {
	cfg := Config{
		TTL:           24 * time.Hour,
		SweepInterval: expiremap.DefaultSweepInterval,
		FetchTimeout:  10 * time.Second,
	}
	for _, o := range opts {
		o(&cfg)
	}

	mapOpts := []expiremap.Option{
		expiremap.WithName("badge"),
		expiremap.WithTTL(cfg.TTL),
		expiremap.WithSweepInterval(cfg.SweepInterval),
		expiremap.WithKeepAliveOnGet(false),
		expiremap.WithMetrics(cfg.Metrics),
	}
	if cfg.Logger != nil {
		mapOpts = append(mapOpts, expiremap.WithLogger(cfg.Logger))
	}
	cache, err := expiremap.New[string, Badge](append(mapOpts, cfg.MapOptions...)...)
	if err != nil {
		return nil, err
	}

	return &Service{
		cfg:   cfg,
		defs:  defs,
		cache: cache,
	}, nil
}

// List は有効なバッジを定義順に返します。キャッシュにないものはその場で取得します。
func (s *Service) List(ctx context.Context) []Badge {
	out := make([]Badge, 0, len(s.defs))
	for _, d := range s.defs {
		b, ok := s.cache.Get(d.Name)
		if !ok {
			b = s.load(ctx, d)
		}
		if b.Enabled {
			out = append(out, b)
		}
	}
	return out
}

// Cached は現在キャッシュされているバッジ名を新しい順に返します。
func (s *Service) Cached() []string {
	return s.cache.Keys()
}

// Close はキャッシュを破棄します。
func (s *Service) Close() {
	s.cache.Destroy()
}

func (s *Service) load(ctx context.Context, d Definition) Badge {
	v, _, _ := s.group.Do(d.Name, func() (any, error) {
		if b, ok := s.cache.Get(d.Name); ok {
			return b, nil
		}

		// 呼び出し元のキャンセルで失敗をキャッシュしないよう切り離す
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.FetchTimeout)
		defer cancel()

		if s.cfg.Logger != nil {
			s.cfg.Logger.Info("badge.fetch", "name", d.Name, "url", d.URL)
		}
		img, err := d.Fetch(fctx)
		if err != nil {
			if s.cfg.Logger != nil {
				s.cfg.Logger.Error("badge.fetch.error", "name", d.Name, "err", err)
			}
			b := Badge{Enabled: false, URL: d.URL, Image: DisabledImage}
			s.cache.Set(d.Name, b)
			return b, nil
		}

		b := Badge{Enabled: true, URL: d.URL, Image: img}
		s.cache.Set(d.Name, b)
		return b, nil
	})
	return v.(Badge)
}
