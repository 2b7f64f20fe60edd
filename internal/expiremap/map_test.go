package expiremap

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// newTestMap はバックグラウンドスイープが実質動かない設定でマップを作り、テスト終了時に破棄します。
func newTestMap[K comparable, V any](t *testing.T, clk *fakeClock, opts ...Option) *Map[K, V] {
	t.Helper()
	base := []Option{WithClock(clk.Now), WithSweepInterval(time.Hour)}
	m, err := New[K, V](append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(m.Destroy)
	return m
}

// assertRecencyOrder はリンクの整合性と、head から tail に向かって時刻が増えないことを確認します。
func assertRecencyOrder[K comparable, V any](t *testing.T, m *Map[K, V]) {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	var prev *node[K, V]
	for n := m.head; n != nil; n = n.next {
		require.True(t, prev == n.prev, "broken prev link at %v", n.key)
		if prev != nil {
			require.LessOrEqual(t, n.touchedAt, prev.touchedAt, "out of order at %v", n.key)
		}
		require.True(t, n == m.idx[n.key], "index mismatch at %v", n.key)
		prev = n
		count++
	}
	require.True(t, prev == m.tail, "tail mismatch")
	require.Equal(t, len(m.idx), count)
}

func TestMap_ScenarioKeepAliveOnGet(t *testing.T) {
	clk := newFakeClock()
	m := newTestMap[string, int](t, clk, WithTTL(1000*time.Millisecond), WithSweepInterval(100*time.Millisecond))

	m.Set("a", 1)

	clk.Advance(500 * time.Millisecond)
	v, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	// 更新から 900ms: まだ生きている
	clk.Advance(900 * time.Millisecond)
	assert.Zero(t, m.Sweep())
	assert.Equal(t, 1, m.Len())

	// 更新から 1100ms: 失効
	clk.Advance(200 * time.Millisecond)
	assert.Equal(t, 1, m.Sweep())
	assert.Zero(t, m.Len())

	_, ok = m.Get("a")
	assert.False(t, ok)
}

func TestMap_ScenarioSetRelocates(t *testing.T) {
	m := newTestMap[string, int](t, newFakeClock())

	m.Set("x", 1)
	m.Set("y", 2)
	m.Set("x", 3)

	got := Transform(m, func(v int, k string, _ *Map[string, int]) string {
		return fmt.Sprintf("%s:%d", k, v)
	})
	assert.Equal(t, []string{"x:3", "y:2"}, got)
}

func TestMap_ScenarioPassiveGet(t *testing.T) {
	clk := newFakeClock()
	m := newTestMap[string, int](t, clk, WithTTL(500*time.Millisecond), WithKeepAliveOnGet(false))

	m.Set("a", 1)
	m.Set("b", 2)

	clk.Advance(400 * time.Millisecond)
	v, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	// 受動的な読み取りでは位置が変わらない
	assert.Equal(t, []string{"b", "a"}, m.Keys())

	clk.Advance(200 * time.Millisecond)
	m.Sweep()
	_, ok = m.Get("a")
	assert.False(t, ok)
}

func TestMap_PassiveGetNeverTouches(t *testing.T) {
	clk := newFakeClock()
	m := newTestMap[string, int](t, clk, WithTTL(time.Second), WithKeepAliveOnGet(false))

	m.Set("a", 1)
	m.mu.Lock()
	before := m.idx["a"].touchedAt
	m.mu.Unlock()

	for i := 0; i < 5; i++ {
		clk.Advance(100 * time.Millisecond)
		_, ok := m.Get("a")
		require.True(t, ok)
	}

	m.mu.Lock()
	assert.Equal(t, before, m.idx["a"].touchedAt)
	m.mu.Unlock()
}

func TestMap_GetMissingHasNoSideEffects(t *testing.T) {
	m := newTestMap[string, int](t, newFakeClock())
	m.Set("a", 1)
	m.Set("b", 2)

	v, ok := m.Get("zzz")

	assert.False(t, ok)
	assert.Zero(t, v)
	assert.Equal(t, []string{"b", "a"}, m.Keys())
	assert.Equal(t, 2, m.Len())
}

func TestMap_GetRelocatesToHead(t *testing.T) {
	clk := newFakeClock()
	m := newTestMap[string, int](t, clk)
	for i, k := range []string{"a", "b", "c"} {
		m.Set(k, i)
		clk.Advance(time.Millisecond)
	}
	assert.Equal(t, []string{"c", "b", "a"}, m.Keys())

	// 中間のノード
	m.Get("b")
	assert.Equal(t, []string{"b", "c", "a"}, m.Keys())
	assertRecencyOrder(t, m)

	// 末尾のノード
	m.Get("a")
	assert.Equal(t, []string{"a", "b", "c"}, m.Keys())
	assertRecencyOrder(t, m)

	// 先頭のノード
	m.Get("a")
	assert.Equal(t, []string{"a", "b", "c"}, m.Keys())
	assertRecencyOrder(t, m)
}

func TestMap_Delete(t *testing.T) {
	m := newTestMap[string, int](t, newFakeClock())
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("c", 3)

	m.Delete("b")
	assert.Equal(t, []string{"c", "a"}, m.Keys())
	assertRecencyOrder(t, m)

	m.Delete("c")
	m.Delete("a")
	assert.Zero(t, m.Len())
	assertRecencyOrder(t, m)

	assert.NotPanics(t, func() { m.Delete("missing") })
}

func TestMap_DeleteReportsRemoval(t *testing.T) {
	clk := newFakeClock()
	m := newTestMap[string, int](t, clk, WithTTL(time.Second))

	m.Set("a", 1)
	assert.True(t, m.Delete("a"))
	assert.False(t, m.Delete("a"))
	assert.False(t, m.Delete("missing"))

	// 失効済みでスイープ前のエントリは取り除くが、削除したことにはしない
	m.Set("b", 2)
	clk.Advance(2 * time.Second)
	assert.False(t, m.Delete("b"))
	assert.Zero(t, m.Len())
}

func TestMap_RecencyOrderHolds(t *testing.T) {
	clk := newFakeClock()
	m := newTestMap[int, int](t, clk, WithTTL(0))
	rnd := rand.New(rand.NewSource(7))

	for i := 0; i < 2000; i++ {
		clk.Advance(time.Duration(rnd.Intn(3)) * time.Millisecond)
		k := rnd.Intn(50)
		switch rnd.Intn(3) {
		case 0:
			m.Set(k, i)
		case 1:
			m.Get(k)
		case 2:
			m.Delete(k)
		}
		if i%100 == 0 {
			assertRecencyOrder(t, m)
		}
	}
	assertRecencyOrder(t, m)
}

func TestMap_SweepStopsAtFirstLiveEntry(t *testing.T) {
	clk := newFakeClock()
	m := newTestMap[string, int](t, clk, WithTTL(time.Second))

	m.Set("old1", 1)
	m.Set("old2", 2)
	clk.Advance(2 * time.Second)
	m.Set("live", 3)
	m.Set("head", 4)

	// 先頭のエントリを古く見せかける。スイープは "live" で止まるので "head" は残るはず
	m.mu.Lock()
	m.head.touchedAt = 0
	m.mu.Unlock()

	assert.Equal(t, 2, m.Sweep())
	assert.Equal(t, []string{"head", "live"}, m.Keys())
}

func TestMap_LazyExpiryOnGet(t *testing.T) {
	clk := newFakeClock()
	m := newTestMap[string, int](t, clk, WithTTL(time.Second))

	m.Set("a", 1)
	clk.Advance(1500 * time.Millisecond)

	// スイープ前でも失効したエントリは返さない
	_, ok := m.Get("a")
	assert.False(t, ok)
	assert.Zero(t, m.Len())
}

func TestMap_HasIsPassive(t *testing.T) {
	clk := newFakeClock()
	m := newTestMap[string, int](t, clk, WithTTL(time.Second))

	m.Set("a", 1)
	clk.Advance(time.Millisecond)
	m.Set("b", 2)

	assert.True(t, m.Has("a"))
	assert.False(t, m.Has("missing"))
	assert.Equal(t, []string{"b", "a"}, m.Keys())

	clk.Advance(2 * time.Second)
	assert.False(t, m.Has("a"))
	assert.Equal(t, 2, m.Len(), "Has does not remove expired entries")
}

func TestMap_TTLDisabled(t *testing.T) {
	clk := newFakeClock()
	m := newTestMap[string, int](t, clk, WithTTL(0), WithSweepInterval(0))

	assert.Nil(t, m.stopCh, "no sweep goroutine when ttl is disabled")

	m.Set("a", 1)
	clk.Advance(365 * 24 * time.Hour)

	assert.Zero(t, m.Sweep())
	v, ok := m.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestMap_ValidateConfig(t *testing.T) {
	_, err := New[string, int](WithTTL(-time.Second))
	assert.ErrorIs(t, err, ErrNegativeTTL)

	_, err = New[string, int](WithTTL(time.Second), WithSweepInterval(0))
	assert.ErrorIs(t, err, ErrInvalidSweepInterval)

	_, err = New[string, int](WithTTL(time.Second), WithSweepInterval(-time.Second))
	assert.ErrorIs(t, err, ErrInvalidSweepInterval)
	assert.Contains(t, err.Error(), "-1s")
}

func TestMap_Defaults(t *testing.T) {
	m, err := New[string, int]()
	require.NoError(t, err)
	defer m.Destroy()

	assert.Equal(t, DefaultTTL, m.cfg.TTL)
	assert.Equal(t, DefaultSweepInterval, m.cfg.SweepInterval)
	assert.True(t, m.cfg.KeepAliveOnGet)
	assert.NotNil(t, m.stopCh)
}

func TestMap_ForEach(t *testing.T) {
	m := newTestMap[string, int](t, newFakeClock())
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("c", 3)

	var keys []string
	var vals []int
	m.ForEach(func(v int, k string, ref *Map[string, int]) {
		assert.True(t, m == ref)
		keys = append(keys, k)
		vals = append(vals, v)
	})
	assert.Equal(t, []string{"c", "b", "a"}, keys)
	assert.Equal(t, []int{3, 2, 1}, vals)

	// 再利用できる
	count := 0
	m.ForEach(func(int, string, *Map[string, int]) { count++ })
	assert.Equal(t, 3, count)
}

func TestMap_ForEachVisitorMayCallBack(t *testing.T) {
	m := newTestMap[string, int](t, newFakeClock())
	m.Set("a", 1)
	m.Set("b", 2)

	visited := 0
	m.ForEach(func(_ int, k string, ref *Map[string, int]) {
		visited++
		ref.Delete(k)
	})

	assert.Equal(t, 2, visited)
	assert.Zero(t, m.Len())
}

func TestMap_All(t *testing.T) {
	m := newTestMap[string, int](t, newFakeClock())
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("c", 3)

	var keys []string
	for k := range m.All() {
		keys = append(keys, k)
		if k == "b" {
			break
		}
	}
	assert.Equal(t, []string{"c", "b"}, keys)
}

func TestMap_Destroy(t *testing.T) {
	m, err := New[string, int](WithTTL(time.Second), WithSweepInterval(time.Millisecond))
	require.NoError(t, err)

	m.Set("a", 1)
	m.Set("b", 2)

	assert.NotPanics(t, m.Destroy)
	assert.NotPanics(t, m.Destroy)

	assert.True(t, m.Destroyed())
	assert.Zero(t, m.Len())
	assert.Empty(t, m.Keys())
	assert.Nil(t, m.stopCh)
	assert.Nil(t, m.head)
	assert.Nil(t, m.tail)
}

func TestMap_DestroyWithoutSweep(t *testing.T) {
	m, err := New[string, int](WithTTL(0))
	require.NoError(t, err)

	m.Set("a", 1)
	m.Destroy()
	m.Destroy()

	assert.Zero(t, m.Len())
}

func TestMap_OnExpireOrder(t *testing.T) {
	clk := newFakeClock()
	m := newTestMap[string, int](t, clk, WithTTL(time.Second))

	var got []string
	m.WithOnExpire(func(k string, v int) {
		got = append(got, fmt.Sprintf("%s:%d", k, v))
	})

	m.Set("a", 1)
	clk.Advance(time.Millisecond)
	m.Set("b", 2)
	clk.Advance(time.Millisecond)
	m.Set("c", 3)

	clk.Advance(2 * time.Second)
	require.Equal(t, 3, m.Sweep())
	assert.Equal(t, []string{"a:1", "b:2", "c:3"}, got)
}

func TestMap_ConcurrentAccess(t *testing.T) {
	m, err := New[string, int](WithTTL(5*time.Millisecond), WithSweepInterval(time.Millisecond))
	require.NoError(t, err)
	defer m.Destroy()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				k := fmt.Sprintf("k%d", (g*31+i)%40)
				m.Set(k, i)
				m.Get(k)
				if i%7 == 0 {
					m.Delete(k)
				}
				if i%50 == 0 {
					m.ForEach(func(int, string, *Map[string, int]) {})
				}
			}
		}(g)
	}
	wg.Wait()

	assertRecencyOrder(t, m)
}
