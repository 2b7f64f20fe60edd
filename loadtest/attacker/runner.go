package attacker

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	vegeta "github.com/tsenart/vegeta/v12/lib"
)

// EndpointSummary はエンドポイントごとのリクエスト数と失敗数です。
type EndpointSummary struct {
	Requests uint64 `json:"requests"`
	Failures uint64 `json:"failures"`
}

// ResultSummary は 負荷試験の結果概要を表します。
type ResultSummary struct {
	Requests    uint64                     `json:"requests"`
	Rate        float64                    `json:"rate_req_per_sec"`
	Success     float64                    `json:"success_ratio"`
	Throughput  float64                    `json:"throughput_bytes_per_sec"`
	Latencies   vegeta.LatencyMetrics      `json:"latencies"`
	StatusCodes map[string]int             `json:"status_codes"`
	Endpoints   map[string]EndpointSummary `json:"endpoints"`
	Errors      []string                   `json:"errors"`
	Duration    time.Duration              `json:"duration"`
}

// Runner は 負荷試験を実行するための構造体です。
type Runner struct {
	Rate     int
	Duration time.Duration
	Timeout  time.Duration
	Name     string
	Output   string
}

// Run は 指定されたターゲッターを使用して負荷試験を実行し、結果の概要を返します。
func (r *Runner) Run(targeter vegeta.Targeter) (*ResultSummary, error) {
	rate := vegeta.Rate{Freq: r.Rate, Per: time.Second}
	att := vegeta.NewAttacker(vegeta.Timeout(r.Timeout))

	f, err := os.Create(r.Output)
	if err != nil {
		return nil, fmt.Errorf("create results: %w", err)
	}
	defer f.Close()

	summary, err := Summarize(att.Attack(targeter, rate, r.Duration, r.Name), f)
	if err != nil {
		return nil, err
	}

	reqJSON, _ := json.MarshalIndent(summary, "", " ")
	fmt.Printf("\n=== Summary(JSON) ===\n%s\n", string(reqJSON))

	return summary, nil
}

// Summarize は results を w にエンコードしながら集計します。w が nil なら保存しません。
func Summarize(results <-chan *vegeta.Result, w io.Writer) (*ResultSummary, error) {
	var enc vegeta.Encoder
	if w != nil {
		enc = vegeta.NewEncoder(w)
	}

	var metrics vegeta.Metrics
	endpoints := make(map[string]EndpointSummary)
	for res := range results {
		metrics.Add(res)

		ep := endpoint(res.Method, res.URL)
		s := endpoints[ep]
		s.Requests++
		if res.Error != "" || res.Code >= 500 || res.Code == 0 {
			s.Failures++
		}
		endpoints[ep] = s

		if enc != nil {
			if err := enc.Encode(res); err != nil {
				return nil, fmt.Errorf("encode: %w", err)
			}
		}
	}
	metrics.Close()

	return &ResultSummary{
		Requests:    metrics.Requests,
		Rate:        metrics.Rate,
		Success:     metrics.Success,
		Throughput:  metrics.Throughput,
		Latencies:   metrics.Latencies,
		StatusCodes: metrics.StatusCodes,
		Endpoints:   endpoints,
		Errors:      metrics.Errors,
		Duration:    metrics.Duration,
	}, nil
}

// endpoint は "/kvs/k000001" のようなパスを "GET /kvs" のようにまとめます。
func endpoint(method, rawURL string) string {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		path = u.Path
	}
	path = strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		path = path[:i]
	}
	return method + " /" + path
}
