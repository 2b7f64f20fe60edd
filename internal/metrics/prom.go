package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Prom は Prometheus を使ったメトリクス実装です。
type Prom struct {
	setNew      prometheus.Counter
	setUpdate   prometheus.Counter
	getHit      prometheus.Counter
	getMiss     prometheus.Counter
	deleted     prometheus.Counter
	expired     prometheus.Counter
	sweepPanics prometheus.Counter
	size        prometheus.Gauge
}

// NewProm は Prometheus を使ったメトリクス実装を初期化し reg に登録します。
//
// cache ラベルでキャッシュを区別するため、同じ reg に複数のキャッシュを登録できます。
// 同じ namespace/cache の組み合わせを二度登録すると panic します。
func NewProm(reg prometheus.Registerer, namespace, cache string) *Prom {
	labels := prometheus.Labels{"cache": cache}
	makeC := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
	}
	makeG := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
	}

	p := &Prom{
		setNew:      makeC("set_new_total", "Number of new keys set"),
		setUpdate:   makeC("set_update_total", "Number of keys updated"),
		getHit:      makeC("get_hit_total", "Number of cache hits"),
		getMiss:     makeC("get_miss_total", "Number of cache misses"),
		deleted:     makeC("deleted_total", "Number of explicitly deleted keys"),
		expired:     makeC("expired_total", "Number of entries removed after their TTL elapsed"),
		sweepPanics: makeC("sweep_panics_total", "Number of recovered panics during a sweep"),
		size:        makeG("entries", "Current number of entries"),
	}

	reg.MustRegister(
		p.setNew, p.setUpdate, p.getHit, p.getMiss, p.deleted, p.expired, p.sweepPanics, p.size,
	)
	return p
}

// IncSetNew は新しいキーが追加されたことをカウントします。
func (p *Prom) IncSetNew() { p.setNew.Inc() }

// IncSetUpdate は既存のキーが更新されたことをカウントします。
func (p *Prom) IncSetUpdate() { p.setUpdate.Inc() }

// IncGetHit はキャッシュヒットをカウントします。
func (p *Prom) IncGetHit() { p.getHit.Inc() }

// IncGetMiss はキャッシュミスをカウントします。
func (p *Prom) IncGetMiss() { p.getMiss.Inc() }

// IncDelete は明示的な削除をカウントします。
func (p *Prom) IncDelete() { p.deleted.Inc() }

// AddExpired は TTL 切れで取り除かれたエントリ数を加算します。
func (p *Prom) AddExpired(n int) {
	if n > 0 {
		p.expired.Add(float64(n))
	}
}

// SetSize は現在のエントリ数を設定します。
func (p *Prom) SetSize(n int) {
	if n >= 0 {
		p.size.Set(float64(n))
	}
}

// IncSweepPanic はスイープ中に回復した panic をカウントします。
func (p *Prom) IncSweepPanic() { p.sweepPanics.Inc() }
