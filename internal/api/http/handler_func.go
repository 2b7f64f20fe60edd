package http

import "net/http"

// HandlerFunc はエラーを返す HTTP ハンドラです。返されたエラーは AppError のエンベロープで書き出されます。
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// ServeHTTP は h を呼び、エラーがあれば AppError に変換して書き出します。
// 5xx には突き合わせ用にリクエスト ID を meta として付けます。
func (h HandlerFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	err := h(w, r)
	if err == nil {
		return
	}
	app := FromStdError(err)
	if app.Status >= http.StatusInternalServerError && app.Meta == nil {
		if id := GetRequestID(r.Context()); id != "" {
			cp := *app
			cp.Meta = map[string]string{"request_id": id}
			app = &cp
		}
	}
	writeError(w, app)
}
