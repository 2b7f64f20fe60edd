package badge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// DefaultObservatoryEndpoint は MDN HTTP Observatory の解析 API です。
const DefaultObservatoryEndpoint = "https://observatory-api.mdn.mozilla.net/api/v2/analyze"

const observatoryReportURL = "https://developer.mozilla.org/en-US/observatory/analyze"

// ErrNoHistory は Observatory の応答に採点履歴が無いときに返されます。
var ErrNoHistory = errors.New("observatory: empty history")

type observatoryResponse struct {
	History []struct {
		Grade string  `json:"grade"`
		Score float64 `json:"score"`
	} `json:"history"`
}

// ObservatoryDefinition は host の Observatory 評価をバッジにする定義を返します。
func ObservatoryDefinition(host, endpoint string, client *http.Client) Definition {
	if endpoint == "" {
		endpoint = DefaultObservatoryEndpoint
	}
	if client == nil {
		client = http.DefaultClient
	}
	q := url.Values{"host": {host}}.Encode()

	return Definition{
		Name: "observatory",
		URL:  observatoryReportURL + "?" + q,
		Fetch: func(ctx context.Context) (string, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q, nil)
			if err != nil {
				return "", err
			}
			req.Header.Set("Accept", "application/json")

			resp, err := client.Do(req)
			if err != nil {
				return "", fmt.Errorf("observatory request: %w", err)
			}
			defer func() {
				_ = resp.Body.Close()
			}()
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return "", fmt.Errorf("observatory status: %d", resp.StatusCode)
			}

			var body observatoryResponse
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				return "", fmt.Errorf("observatory decode: %w", err)
			}
			if len(body.History) == 0 {
				return "", ErrNoHistory
			}
			last := body.History[len(body.History)-1]

			svg, err := Render(Format{
				Label:   "Observatory",
				Message: last.Grade,
				Color:   scoreColor(last.Score),
			})
			if err != nil {
				return "", err
			}
			return DataURI(svg), nil
		},
	}
}

func scoreColor(score float64) string {
	switch {
	case score >= 85:
		return "brightgreen"
	case score >= 65:
		return "yellow"
	default:
		return "red"
	}
}

// DataURI は SVG を base64 の data URI にします。
func DataURI(svg []byte) string {
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString(svg)
}
