package announce

import (
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
)

// LogSink records every announcement in the structured log.
type LogSink struct{ Log zerolog.Logger }

func (s LogSink) Show(n Node) {
	s.Log.Info().Str("announce_id", n.ID).Msg(n.Message)
}

func (LogSink) Remove(string) {}

// WriterSink prints each announcement as a status line, for terminals and
// screen readers that follow console output.
type WriterSink struct {
	mu     sync.Mutex
	W      io.Writer
	Prefix string
}

func (s *WriterSink) Show(n Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.W, "%s%s\n", s.Prefix, n.Message)
}

func (*WriterSink) Remove(string) {}

// FuncSink adapts a pair of callbacks.
type FuncSink struct {
	OnShow   func(Node)
	OnRemove func(id string)
}

func (s FuncSink) Show(n Node) {
	if s.OnShow != nil {
		s.OnShow(n)
	}
}

func (s FuncSink) Remove(id string) {
	if s.OnRemove != nil {
		s.OnRemove(id)
	}
}
