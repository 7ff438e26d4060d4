package singleinstance

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	residentHost  = "127.0.0.1"
	pingRequest   = "PING\n"
	pongResponse  = "PONG\n"
	openPrefix    = "OPEN "
	okResponse    = "OK\n"
	errorResponse = "ERROR\n"
)

// tcpServer implements Server over TCP loopback.
type tcpServer struct {
	port     int
	log      zerolog.Logger
	lis      net.Listener
	incoming chan *tcpConn
	once     sync.Once
}

func newTcpServer(port int, log zerolog.Logger) *tcpServer {
	return &tcpServer{port: port, log: log, incoming: make(chan *tcpConn, 8)}
}

// Start binds the configured port. If occupied, fail.
func (s *tcpServer) Start(ctx context.Context) error {
	if s.lis != nil {
		return nil
	}
	addr := fmt.Sprintf("%s:%d", residentHost, s.port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		s.log.Warn().Err(err).Str("addr", addr).Msg("failed to bind")
		return err
	}
	s.lis = lis
	s.port = lis.Addr().(*net.TCPAddr).Port
	s.log.Info().Str("addr", lis.Addr().String()).Msg("listening")
	go s.acceptLoop(ctx, lis)
	return nil
}

// Port returns the bound port (0 if not started).
func (s *tcpServer) Port() int {
	if s.lis == nil {
		return 0
	}
	return s.port
}

func (s *tcpServer) acceptLoop(ctx context.Context, lis net.Listener) {
	for {
		c, err := lis.Accept()
		if err != nil {
			return
		}
		remote := c.RemoteAddr().String()
		_ = c.SetDeadline(time.Now().Add(3 * time.Second))
		br := bufio.NewReader(c)
		line, _ := br.ReadString('\n')
		bw := bufio.NewWriter(c)

		switch {
		case line == pingRequest:
			s.log.Debug().Str("remote", remote).Msg("PING -> PONG")
			_, _ = bw.WriteString(pongResponse)
			_ = bw.Flush()
			_ = c.Close()
			continue
		case strings.HasPrefix(line, openPrefix):
		default:
			s.log.Warn().Str("remote", remote).Msg("malformed request")
			_, _ = bw.WriteString(errorResponse + "malformed request")
			_ = bw.Flush()
			_ = c.Close()
			continue
		}

		_ = c.SetDeadline(time.Time{})
		path := strings.TrimSuffix(strings.TrimPrefix(line, openPrefix), "\n")
		path = strings.TrimSuffix(path, "\r")
		s.log.Info().Str("remote", remote).Msg("open request")
		select {
		case s.incoming <- &tcpConn{c: c, r: Request{Path: path}, w: bw}:
		case <-ctx.Done():
			_ = c.Close()
			return
		}
	}
}

func (s *tcpServer) Next(ctx context.Context) (Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case tc := <-s.incoming:
		return tc, nil
	}
}

func (s *tcpServer) Close() error {
	s.once.Do(func() {
		if s.lis != nil {
			_ = s.lis.Close()
		}
	})
	return nil
}

type tcpConn struct {
	c net.Conn
	r Request
	w *bufio.Writer
}

func (tc *tcpConn) Request() Request { return tc.r }

func (tc *tcpConn) RespondSuccess() error {
	if _, err := tc.w.WriteString(okResponse); err != nil {
		return err
	}
	return tc.w.Flush()
}

func (tc *tcpConn) RespondError(msg string) error {
	if _, err := tc.w.WriteString(errorResponse + msg); err != nil {
		return err
	}
	return tc.w.Flush()
}

func (tc *tcpConn) Close() error { return tc.c.Close() }
