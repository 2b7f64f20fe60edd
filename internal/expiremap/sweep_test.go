package expiremap

import (
	"bytes"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	ilog "github.com/amakane-hakari/ttlmap/internal/log"
	"github.com/amakane-hakari/ttlmap/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap_BackgroundSweep(t *testing.T) {
	m, err := New[string, string](WithTTL(30*time.Millisecond), WithSweepInterval(10*time.Millisecond))
	require.NoError(t, err)
	defer m.Destroy()

	m.Set("k", "v")
	_, ok := m.Get("k")
	require.True(t, ok, "should exist before expiry")

	require.Eventually(t, func() bool {
		return m.Len() == 0
	}, time.Second, 5*time.Millisecond, "expected swept key")
}

func TestMap_TouchedEntrySurvivesSweep(t *testing.T) {
	m, err := New[string, string](WithTTL(150*time.Millisecond), WithSweepInterval(10*time.Millisecond))
	require.NoError(t, err)
	defer m.Destroy()

	m.Set("keep", "v")
	m.Set("drop", "v")

	deadline := time.Now().Add(400 * time.Millisecond)
	for time.Now().Before(deadline) {
		_, ok := m.Get("keep")
		require.True(t, ok, "touched entry must survive")
		time.Sleep(10 * time.Millisecond)
	}

	assert.Equal(t, []string{"keep"}, m.Keys())
}

func TestMap_SweepSurvivesPanic(t *testing.T) {
	var buf syncBuffer
	simple := metrics.NewSimple()
	m, err := New[string, int](
		WithTTL(10*time.Millisecond),
		WithSweepInterval(5*time.Millisecond),
		WithLogger(ilog.NewWithLevel("debug", &buf)),
		WithMetrics(simple),
	)
	require.NoError(t, err)
	defer m.Destroy()

	var calls atomic.Int32
	var expired sync.Map
	m.WithOnExpire(func(k string, _ int) {
		if calls.Add(1) == 1 {
			panic("boom")
		}
		expired.Store(k, true)
	})

	m.Set("first", 1)
	require.Eventually(t, func() bool {
		return simple.SweepPanics.Load() == 1
	}, time.Second, 5*time.Millisecond)

	// panic の後もティッカーは動き続ける
	m.Set("second", 2)
	require.Eventually(t, func() bool {
		_, ok := expired.Load("second")
		return ok
	}, time.Second, 5*time.Millisecond)

	assert.Contains(t, buf.String(), "expiremap.sweep.panic")
	assert.Contains(t, buf.String(), "boom")
}

func TestMap_DestroyStopsSweep(t *testing.T) {
	clk := newFakeClock()
	m, err := New[string, int](WithClock(clk.Now), WithTTL(time.Millisecond), WithSweepInterval(time.Millisecond))
	require.NoError(t, err)

	m.Destroy()

	// Destroy 後はバックグラウンドで失効しない
	m.Set("a", 1)
	clk.Advance(time.Hour)
	time.Sleep(20 * time.Millisecond)

	m.mu.Lock()
	_, ok := m.idx["a"]
	m.mu.Unlock()
	assert.True(t, ok)
}

func TestMap_DestroyFromOnExpireReturns(t *testing.T) {
	m, err := New[string, int](WithTTL(5*time.Millisecond), WithSweepInterval(5*time.Millisecond))
	require.NoError(t, err)

	done := make(chan struct{})
	var once sync.Once
	m.WithOnExpire(func(string, int) {
		m.Destroy()
		once.Do(func() { close(done) })
	})
	m.Set("a", 1)
	m.Set("b", 2)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Destroy inside onExpire did not return")
	}
	assert.True(t, m.Destroyed())

	// スイープ用ゴルーチンも終了する
	exited := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(exited)
	}()
	select {
	case <-exited:
	case <-time.After(2 * time.Second):
		t.Fatal("sweep goroutine did not exit")
	}
	assert.False(t, m.inExpireCallback.Load())
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
