package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type Slog struct {
	l *slog.Logger
}

// New は LOG_LEVEL 環境変数のレベルでロガーを作成します。
func New() *Slog {
	return NewWithLevel(os.Getenv("LOG_LEVEL"), os.Stdout)
}

// NewWithLevel は指定したレベル名 (debug/info/warn/error) で w に出力するロガーを作成します。
func NewWithLevel(level string, w io.Writer) *Slog {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(level)})
	return &Slog{l: slog.New(h)}
}

// Discard は何も出力しないロガーを返します。
func Discard() *Slog {
	return NewWithLevel("error", io.Discard)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (s *Slog) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s *Slog) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s *Slog) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s *Slog) Error(msg string, args ...any) { s.l.Error(msg, args...) }
