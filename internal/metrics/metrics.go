package metrics

import (
	"sync/atomic"
)

// Interface はキャッシュのメトリクス更新用抽象
type Interface interface {
	IncSetNew()
	IncSetUpdate()
	IncGetHit()
	IncGetMiss()
	IncDelete()
	AddExpired(n int)
	SetSize(n int)
	IncSweepPanic()
}

// Noop は何もしないメトリクス実装
type Noop struct{}

// IncSetNew は何もしないメトリクス実装
func (Noop) IncSetNew() {}

// IncSetUpdate は何もしないメトリクス実装
func (Noop) IncSetUpdate() {}

// IncGetHit は何もしないメトリクス実装
func (Noop) IncGetHit() {}

// IncGetMiss は何もしないメトリクス実装
func (Noop) IncGetMiss() {}

// IncDelete は何もしないメトリクス実装
func (Noop) IncDelete() {}

// AddExpired は何もしないメトリクス実装
func (Noop) AddExpired(_ int) {}

// SetSize は何もしないメトリクス実装
func (Noop) SetSize(_ int) {}

// IncSweepPanic は何もしないメトリクス実装
func (Noop) IncSweepPanic() {}

// Simple はアトミックカウンタによるシンプルなメトリクス実装です。
type Simple struct {
	SetNew      atomic.Uint64
	SetUpdate   atomic.Uint64
	GetHit      atomic.Uint64
	GetMiss     atomic.Uint64
	Deleted     atomic.Uint64
	Expired     atomic.Uint64
	Size        atomic.Uint64
	SweepPanics atomic.Uint64
}

// NewSimple は新しい Simple メトリクスを作成します。
func NewSimple() *Simple { return &Simple{} }

// IncSetNew は新しいキーが追加されたことをカウントします。
func (m *Simple) IncSetNew() { m.SetNew.Add(1) }

// IncSetUpdate は既存のキーが更新されたことをカウントします。
func (m *Simple) IncSetUpdate() { m.SetUpdate.Add(1) }

// IncGetHit はキャッシュヒットをカウントします。
func (m *Simple) IncGetHit() { m.GetHit.Add(1) }

// IncGetMiss はキャッシュミスをカウントします。
func (m *Simple) IncGetMiss() { m.GetMiss.Add(1) }

// IncDelete は明示的な削除をカウントします。
func (m *Simple) IncDelete() { m.Deleted.Add(1) }

// AddExpired は TTL 切れで取り除かれたエントリ数を加算します。
func (m *Simple) AddExpired(n int) {
	if n > 0 {
		m.Expired.Add(uint64(n))
	}
}

// SetSize は現在のエントリ数を設定します。
func (m *Simple) SetSize(n int) {
	if n >= 0 {
		m.Size.Store(uint64(n))
	}
}

// IncSweepPanic はスイープ中に回復した panic をカウントします。
func (m *Simple) IncSweepPanic() { m.SweepPanics.Add(1) }
