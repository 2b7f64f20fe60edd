package scenario

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	vegeta "github.com/tsenart/vegeta/v12/lib"
)

// Params は Generator の生成パラメータです。
type Params struct {
	BaseURL    string
	Keys       int
	ReadRatio  float64
	BadgeRatio float64
	ValueSize  int
	ReadOnly   bool
	Seed       int64 // 0 なら現在時刻
}

// Generator は 負荷試験のターゲットを生成する構造体です。
type Generator struct {
	p Params

	rnd *rand.Rand
	mu  sync.Mutex
	buf []byte
}

// NewGenerator は 指定されたパラメータに基づいて新しい Generator を作成します。
func NewGenerator(p Params) *Generator {
	seed := p.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if p.Keys <= 0 {
		p.Keys = 1
	}
	p.ReadRatio = clamp(p.ReadRatio, 0, 1)
	p.BadgeRatio = clamp(p.BadgeRatio, 0, 1)
	return &Generator{
		p:   p,
		rnd: rand.New(rand.NewSource(seed)),
		buf: make([]byte, p.ValueSize),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Targeter は vegeta.Targeter インターフェースを実装し、負荷試験のターゲットを生成します。
func (g *Generator) Targeter() vegeta.Targeter {
	return func(t *vegeta.Target) error {
		g.mu.Lock()
		defer g.mu.Unlock()

		if g.p.BadgeRatio > 0 && g.rnd.Float64() < g.p.BadgeRatio {
			t.Method = "GET"
			t.URL = g.p.BaseURL + "/badges"
			t.Body = nil
			t.Header = nil
			return nil
		}

		key := fmt.Sprintf("k%06d", g.rnd.Intn(g.p.Keys))
		t.URL = fmt.Sprintf("%s/kvs/%s", g.p.BaseURL, key)

		if g.p.ReadOnly || g.rnd.Float64() < g.p.ReadRatio {
			t.Method = "GET"
			t.Body = nil
			t.Header = nil
			return nil
		}

		fillRandomLetters(g.rnd, g.buf)
		b, err := json.Marshal(map[string]string{"value": string(g.buf)})
		if err != nil {
			return err
		}
		t.Method = "PUT"
		t.Body = b
		if t.Header == nil {
			t.Header = make(map[string][]string, 1)
		}
		t.Header["Content-Type"] = []string{"application/json"}
		return nil
	}
}

func fillRandomLetters(r *rand.Rand, buf []byte) {
	const letters = "abcdefghijklmnopqrstuvwxyz0123456789"
	for i := range buf {
		buf[i] = letters[r.Intn(len(letters))]
	}
}
