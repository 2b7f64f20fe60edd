package expiremap

import (
	"fmt"
	"runtime/debug"
	"time"
)

func (m *Map[K, V]) sweepLoop(stop <-chan struct{}) {
	defer m.wg.Done()
	t := time.NewTicker(m.cfg.SweepInterval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			m.safeSweep()
			select {
			case <-stop:
				return
			default:
			}
		case <-stop:
			return
		}
	}
}

// safeSweep は panic を回復してログに残し、ティッカーを止めないようにします。
func (m *Map[K, V]) safeSweep() {
	defer func() {
		if rec := recover(); rec != nil {
			m.cfg.Metrics.IncSweepPanic()
			if m.cfg.Logger != nil {
				m.cfg.Logger.Error("expiremap.sweep.panic", "name", m.cfg.Name,
					"panic", fmt.Sprint(rec), "stack", string(debug.Stack()))
			}
		}
	}()
	m.sweep(true)
}

// Sweep は tail から失効したエントリを取り除き、取り除いた数を返します。
//
// リストは最後に触れた時刻の順に並んでいるため、最初の失効していないエントリで止まります。
// 通常はバックグラウンドで定期的に呼ばれますが、明示的に呼ぶこともできます。
func (m *Map[K, V]) Sweep() int {
	return m.sweep(false)
}

func (m *Map[K, V]) sweep(fromLoop bool) int {
	evicted, onExpire, size := m.expireFromTail()
	if len(evicted) == 0 {
		return 0
	}

	m.cfg.Metrics.AddExpired(len(evicted))
	m.cfg.Metrics.SetSize(size)
	if m.cfg.Logger != nil {
		m.cfg.Logger.Info("expiremap.sweep", "name", m.cfg.Name, "removed", len(evicted), "remaining", size)
	}
	if onExpire != nil {
		if fromLoop {
			m.inExpireCallback.Store(true)
			defer m.inExpireCallback.Store(false)
		}
		for _, p := range evicted {
			onExpire(p.key, p.val)
		}
	}
	return len(evicted)
}

func (m *Map[K, V]) expireFromTail() (evicted []pair[K, V], onExpire func(K, V), size int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg.TTL <= 0 {
		return nil, nil, len(m.idx)
	}
	now := m.cfg.Clock().UnixNano()
	n := m.tail
	for n != nil && m.expired(n, now) {
		prev := n.prev
		m.removeLocked(n)
		evicted = append(evicted, pair[K, V]{key: n.key, val: n.val})
		n = prev
	}
	return evicted, m.onExpire, len(m.idx)
}
