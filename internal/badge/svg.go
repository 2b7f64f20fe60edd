package badge

import (
	"bytes"
	"encoding/xml"
	"strings"
	"text/template"
	"unicode/utf8"
)

// Format はフラットスタイルのバッジの内容です。
type Format struct {
	Label   string
	Message string
	Color   string // 名前付きの色か #rrggbb
}

var namedColors = map[string]string{
	"brightgreen": "#4c1",
	"green":       "#97ca00",
	"yellow":      "#dfb317",
	"orange":      "#fe7d37",
	"red":         "#e05d44",
	"blue":        "#007ec6",
	"lightgrey":   "#9f9f9f",
}

const (
	charWidth = 7
	padding   = 10
)

var badgeTmpl = template.Must(template.New("badge").Funcs(template.FuncMap{
	"esc": xmlEscape,
}).Parse(`<svg xmlns="http://www.w3.org/2000/svg" width="{{.Width}}" height="20" role="img" aria-label="{{esc .Label}}: {{esc .Message}}">` +
	`<title>{{esc .Label}}: {{esc .Message}}</title>` +
	`<g shape-rendering="crispEdges">` +
	`<rect width="{{.LabelWidth}}" height="20" fill="#555"/>` +
	`<rect x="{{.LabelWidth}}" width="{{.MessageWidth}}" height="20" fill="{{.Color}}"/>` +
	`</g>` +
	`<g fill="#fff" text-anchor="middle" font-family="Verdana,Geneva,DejaVu Sans,sans-serif" font-size="11">` +
	`<text x="{{.LabelX}}" y="14">{{esc .Label}}</text>` +
	`<text x="{{.MessageX}}" y="14">{{esc .Message}}</text>` +
	`</g></svg>`))

type badgeView struct {
	Label, Message, Color    string
	Width                    int
	LabelWidth, MessageWidth int
	LabelX, MessageX         int
}

// Render は Format をフラットスタイルの SVG にします。
func Render(f Format) ([]byte, error) {
	lw := textWidth(f.Label)
	mw := textWidth(f.Message)
	v := badgeView{
		Label:        f.Label,
		Message:      f.Message,
		Color:        resolveColor(f.Color),
		Width:        lw + mw,
		LabelWidth:   lw,
		MessageWidth: mw,
		LabelX:       lw / 2,
		MessageX:     lw + mw/2,
	}
	var buf bytes.Buffer
	if err := badgeTmpl.Execute(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func textWidth(s string) int {
	return utf8.RuneCountInString(s)*charWidth + padding
}

func resolveColor(c string) string {
	if hex, ok := namedColors[c]; ok {
		return hex
	}
	if strings.HasPrefix(c, "#") {
		return xmlEscape(c)
	}
	return namedColors["lightgrey"]
}

func xmlEscape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
