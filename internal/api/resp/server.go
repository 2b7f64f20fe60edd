// Package resp は Redis プロトコル (RESP) でキャッシュマップを公開するサーバです。
package resp

import (
	"strings"
	"sync/atomic"

	"github.com/tidwall/match"
	"github.com/tidwall/redcon"

	"github.com/amakane-hakari/ttlmap/internal/expiremap"
)

type logLike interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Server は RESP サーバです。
type Server struct {
	addr   string
	m      *expiremap.Map[string, string]
	logger logLike
	srv    *redcon.Server
	conns  atomic.Int64
}

// NewServer は addr で待ち受ける新しい Server を作成します。
func NewServer(addr string, m *expiremap.Map[string, string], logger logLike) *Server {
	s := &Server{addr: addr, m: m, logger: logger}
	s.srv = redcon.NewServer(addr, s.handle, s.accept, s.closed)
	return s
}

// ListenAndServe は接続の受け付けを開始します。Close されるまで戻りません。
func (s *Server) ListenAndServe() error {
	if s.logger != nil {
		s.logger.Info("resp.listen", "addr", s.addr)
	}
	return s.srv.ListenAndServe()
}

// ListenServeAndSignal は待ち受けを開始したら signal に nil を、失敗したらエラーを送ります。
func (s *Server) ListenServeAndSignal(signal chan error) error {
	return s.srv.ListenServeAndSignal(signal)
}

// Close はサーバを停止します。
func (s *Server) Close() error {
	return s.srv.Close()
}

// Connections は現在の接続数を返します。
func (s *Server) Connections() int64 {
	return s.conns.Load()
}

func (s *Server) accept(conn redcon.Conn) bool {
	s.conns.Add(1)
	if s.logger != nil {
		s.logger.Debug("resp.accept", "remote", conn.RemoteAddr())
	}
	return true
}

func (s *Server) closed(conn redcon.Conn, err error) {
	s.conns.Add(-1)
	if s.logger != nil {
		s.logger.Debug("resp.closed", "remote", conn.RemoteAddr(), "err", err)
	}
}

func (s *Server) handle(conn redcon.Conn, cmd redcon.Command) {
	name := strings.ToUpper(string(cmd.Args[0]))
	switch name {
	case "PING":
		s.ping(conn, cmd)
	case "GET":
		s.get(conn, cmd)
	case "SET":
		s.set(conn, cmd)
	case "DEL":
		s.del(conn, cmd)
	case "EXISTS":
		s.exists(conn, cmd)
	case "KEYS":
		s.keys(conn, cmd)
	case "DBSIZE":
		conn.WriteInt(s.m.Len())
	case "QUIT":
		conn.WriteString("OK")
		_ = conn.Close()
	default:
		conn.WriteError("ERR unknown command '" + string(cmd.Args[0]) + "'")
	}
}

func wrongArity(conn redcon.Conn, cmd redcon.Command) {
	conn.WriteError("ERR wrong number of arguments for '" + strings.ToLower(string(cmd.Args[0])) + "' command")
}

func (s *Server) ping(conn redcon.Conn, cmd redcon.Command) {
	switch len(cmd.Args) {
	case 1:
		conn.WriteString("PONG")
	case 2:
		conn.WriteBulk(cmd.Args[1])
	default:
		wrongArity(conn, cmd)
	}
}

func (s *Server) get(conn redcon.Conn, cmd redcon.Command) {
	if len(cmd.Args) != 2 {
		wrongArity(conn, cmd)
		return
	}
	v, ok := s.m.Get(string(cmd.Args[1]))
	if !ok {
		conn.WriteNull()
		return
	}
	conn.WriteBulkString(v)
}

// set は有効期限のオプション (EX/PX など) を受け付けません。失効はマップ全体の TTL に従います。
func (s *Server) set(conn redcon.Conn, cmd redcon.Command) {
	if len(cmd.Args) != 3 {
		wrongArity(conn, cmd)
		return
	}
	s.m.Set(string(cmd.Args[1]), string(cmd.Args[2]))
	conn.WriteString("OK")
}

func (s *Server) del(conn redcon.Conn, cmd redcon.Command) {
	if len(cmd.Args) < 2 {
		wrongArity(conn, cmd)
		return
	}
	removed := 0
	for _, k := range cmd.Args[1:] {
		if s.m.Delete(string(k)) {
			removed++
		}
	}
	conn.WriteInt(removed)
}

func (s *Server) exists(conn redcon.Conn, cmd redcon.Command) {
	if len(cmd.Args) < 2 {
		wrongArity(conn, cmd)
		return
	}
	n := 0
	for _, k := range cmd.Args[1:] {
		if s.m.Has(string(k)) {
			n++
		}
	}
	conn.WriteInt(n)
}

// keys は最近触れた順にパターンに一致するキーを返します。
func (s *Server) keys(conn redcon.Conn, cmd redcon.Command) {
	if len(cmd.Args) != 2 {
		wrongArity(conn, cmd)
		return
	}
	pattern := string(cmd.Args[1])
	var matched []string
	for _, k := range s.m.Keys() {
		if match.Match(k, pattern) {
			matched = append(matched, k)
		}
	}
	conn.WriteArray(len(matched))
	for _, k := range matched {
		conn.WriteBulkString(k)
	}
}
