// Package expiremap は最近使われた順序と TTL による失効を組み合わせたプロセス内のキャッシュマップを提供します。
//
// エントリはハッシュマップと侵入型の双方向リストの両方に置かれ、Get/Set/Delete は O(1) です。
// リストは head から tail に向かって最後に触れた時刻の新しい順に並ぶため、
// バックグラウンドスイープは tail から走査して最初の失効していないエントリで止まれます。
package expiremap

import (
	"iter"
	"sync"
	"sync/atomic"
)

// Map は TTL 付きで最近使われた順に並ぶキャッシュマップです。
//
// すべての操作とスイープは一つのミューテックスで直列化されます。
// 使い終わったら Destroy を呼んでスイープ用のゴルーチンを止めてください。
type Map[K comparable, V any] struct {
	mu   sync.Mutex
	cfg  Config
	idx  map[K]*node[K, V]
	head *node[K, V]
	tail *node[K, V]

	onExpire func(K, V)
	// スイープ用ゴルーチンが onExpire を呼んでいる間 true
	inExpireCallback atomic.Bool

	stopCh    chan struct{}
	wg        sync.WaitGroup
	destroyed bool
}

// New は新しい Map を作成し、TTL が有効ならスイープを開始します。
func New[K comparable, V any](opts ...Option) (*Map[K, V], error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	m := &Map[K, V]{
		cfg: cfg,
		idx: make(map[K]*node[K, V]),
	}

	if cfg.TTL > 0 {
		m.stopCh = make(chan struct{})
		m.wg.Add(1)
		go m.sweepLoop(m.stopCh)
	}

	if cfg.Logger != nil {
		cfg.Logger.Debug("expiremap.new", "name", cfg.Name, "ttl", cfg.TTL.String(),
			"sweep_interval", cfg.SweepInterval.String(), "keep_alive_on_get", cfg.KeepAliveOnGet)
	}
	return m, nil
}

// WithOnExpire はスイープで取り除かれたエントリごとに呼ばれる関数を設定します。
// fn はロックの外で、古いものから順に呼ばれます。fn の中から Destroy を含むマップの操作を呼べます。
func (m *Map[K, V]) WithOnExpire(fn func(key K, value V)) *Map[K, V] {
	m.mu.Lock()
	m.onExpire = fn
	m.mu.Unlock()
	return m
}

// Get はキーに対応する値を取得します。
//
// KeepAliveOnGet が有効なら、エントリの時刻を更新して先頭へ移動します。
func (m *Map[K, V]) Get(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.idx[key]
	if !ok {
		m.cfg.Metrics.IncGetMiss()
		var zero V
		return zero, false
	}

	now := m.cfg.Clock().UnixNano()
	if m.expired(n, now) {
		// 遅延削除
		m.removeLocked(n)
		m.cfg.Metrics.IncGetMiss()
		m.cfg.Metrics.AddExpired(1)
		m.cfg.Metrics.SetSize(len(m.idx))
		if m.cfg.Logger != nil {
			m.cfg.Logger.Debug("expiremap.ttl.expired", "name", m.cfg.Name, "key", key)
		}
		var zero V
		return zero, false
	}

	if m.cfg.KeepAliveOnGet {
		n.touchedAt = now
		m.moveToFront(n)
	}
	m.cfg.Metrics.IncGetHit()
	return n.val, true
}

// Set はキーと値をセットし、エントリを先頭へ移動します。
func (m *Map[K, V]) Set(key K, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.cfg.Clock().UnixNano()
	if n, ok := m.idx[key]; ok {
		n.val = value
		n.touchedAt = now
		m.moveToFront(n)
		m.cfg.Metrics.IncSetUpdate()
		if m.cfg.Logger != nil {
			m.cfg.Logger.Debug("expiremap.update", "name", m.cfg.Name, "key", key)
		}
		return
	}

	n := &node[K, V]{key: key, val: value, touchedAt: now}
	m.idx[key] = n
	m.pushFront(n)
	m.cfg.Metrics.IncSetNew()
	m.cfg.Metrics.SetSize(len(m.idx))
	if m.cfg.Logger != nil {
		m.cfg.Logger.Debug("expiremap.set", "name", m.cfg.Name, "key", key)
	}
}

// Delete はキーに対応するエントリを削除し、失効していないエントリを削除したかを返します。
// 存在しなければ何もしません。失効済みでまだスイープされていないエントリは取り除きますが false を返します。
func (m *Map[K, V]) Delete(key K) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.idx[key]
	if !ok {
		return false
	}
	live := !m.expired(n, m.cfg.Clock().UnixNano())
	m.removeLocked(n)
	if live {
		m.cfg.Metrics.IncDelete()
	} else {
		m.cfg.Metrics.AddExpired(1)
	}
	m.cfg.Metrics.SetSize(len(m.idx))
	return live
}

// Has はキーが存在し失効していないかを返します。時刻も順序も更新しません。
func (m *Map[K, V]) Has(key K) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.idx[key]
	return ok && !m.expired(n, m.cfg.Clock().UnixNano())
}

// Len はエントリ数を返します。
func (m *Map[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.idx)
}

// Keys は最近触れた順にキーを返します。
func (m *Map[K, V]) Keys() []K {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]K, 0, len(m.idx))
	for n := m.head; n != nil; n = n.next {
		keys = append(keys, n.key)
	}
	return keys
}

type pair[K comparable, V any] struct {
	key K
	val V
}

func (m *Map[K, V]) snapshot() []pair[K, V] {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]pair[K, V], 0, len(m.idx))
	for n := m.head; n != nil; n = n.next {
		out = append(out, pair[K, V]{key: n.key, val: n.val})
	}
	return out
}

// ForEach は head から tail の順 (最近触れた順) に fn を呼びます。
//
// 走査は呼び出し時点のスナップショットに対して行われます。
// fn の中からマップを操作しても構いませんが、その変更は進行中の走査には反映されません。
// 走査は時刻も順序も更新しません。
func (m *Map[K, V]) ForEach(fn func(value V, key K, m *Map[K, V])) {
	for _, p := range m.snapshot() {
		fn(p.val, p.key, m)
	}
}

// All は最近触れた順にキーと値を返すイテレータです。ForEach と同じくスナップショットを走査します。
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, p := range m.snapshot() {
			if !yield(p.key, p.val) {
				return
			}
		}
	}
}

// Transform は最近触れた順に fn を適用した結果をスライスで返します。
func Transform[K comparable, V any, U any](m *Map[K, V], fn func(value V, key K, m *Map[K, V]) U) []U {
	snap := m.snapshot()
	out := make([]U, 0, len(snap))
	for _, p := range snap {
		out = append(out, fn(p.val, p.key, m))
	}
	return out
}

// Destroy はスイープを止め、すべてのエントリを解放します。
//
// 何度呼んでも安全です。Destroy 後のマップはスイープのない空のマップとして振る舞いますが、
// 使い続けることは想定していません。
func (m *Map[K, V]) Destroy() {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return
	}
	m.destroyed = true
	stop := m.stopCh
	m.stopCh = nil
	m.idx = make(map[K]*node[K, V])
	m.head = nil
	m.tail = nil
	m.cfg.Metrics.SetSize(0)
	m.mu.Unlock()

	// スイープはロックを取るので、ロックの外で待つ。
	// onExpire の中から呼ばれたときは自分自身を待つことになるので待たない。ループは次の select で抜ける
	if stop != nil {
		close(stop)
		if !m.inExpireCallback.Load() {
			m.wg.Wait()
		}
	}
	if m.cfg.Logger != nil {
		m.cfg.Logger.Debug("expiremap.destroy", "name", m.cfg.Name)
	}
}

// Destroyed は Destroy 済みかどうかを返します。
func (m *Map[K, V]) Destroyed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.destroyed
}

func (m *Map[K, V]) removeLocked(n *node[K, V]) {
	m.unlink(n)
	delete(m.idx, n.key)
}

func (m *Map[K, V]) expired(n *node[K, V], now int64) bool {
	return m.cfg.TTL > 0 && now-n.touchedAt > int64(m.cfg.TTL)
}
