package http

import (
	"encoding/json"
	"errors"
	"net/http"
)

const maxBodySize = 1 << 20 // 1MB

// DecodeJSON はリクエストボディのJSONを dst にデコードします。
//
// ボディが maxBodySize を超える場合は 413、未知のフィールドや複数の JSON 値は 400 になります。
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return InvalidJSON("empty body")
	}
	body := http.MaxBytesReader(w, r.Body, maxBodySize)
	defer func() {
		_ = body.Close()
	}()

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var se *json.SyntaxError
		var ute *json.UnmarshalTypeError
		var mbe *http.MaxBytesError
		switch {
		case errors.As(err, &mbe):
			return PayloadTooLarge(mbe.Limit)
		case errors.As(err, &se):
			return InvalidJSON("malformed JSON")
		case errors.As(err, &ute):
			return InvalidJSON("type mismatch in JSON")
		default:
			return InvalidJSON("invalid JSON")
		}
	}
	// 余分なトークンがないか確認(多重JSON防止)
	if dec.More() {
		return InvalidJSON("multiple JSON values")
	}
	return nil
}
