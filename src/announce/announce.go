// Package announce delivers transient status messages to assistive
// technology. Every call creates a fresh node with its own ID so that two
// identical messages in a row are both picked up.
package announce

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"caption-assist/src/logutil"
)

const DefaultDelay = time.Second

// Node is one live-region entry.
type Node struct {
	ID      string
	Message string
	Created time.Time
}

// Sink renders nodes. Remove is called once the node's lifetime expires.
type Sink interface {
	Show(n Node)
	Remove(id string)
}

type timer interface{ Stop() bool }

type Notifier struct {
	delay time.Duration
	log   zerolog.Logger

	// afterFunc and now are replaced in tests.
	afterFunc func(time.Duration, func()) timer
	now       func() time.Time

	mu     sync.Mutex
	sinks  []Sink
	live   map[string]Node
	timers map[string]timer
}

func New(delay time.Duration, log zerolog.Logger) *Notifier {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Notifier{
		delay:     delay,
		log:       log.With().Str("component", "announce").Logger(),
		afterFunc: func(d time.Duration, f func()) timer { return time.AfterFunc(d, f) },
		now:       time.Now,
		live:      make(map[string]Node),
		timers:    make(map[string]timer),
	}
}

func (n *Notifier) AddSink(s Sink) {
	n.mu.Lock()
	n.sinks = append(n.sinks, s)
	n.mu.Unlock()
}

// Announce creates a node for message, shows it on every sink and schedules
// its removal. Empty messages are dropped.
func (n *Notifier) Announce(message string) {
	if message == "" {
		return
	}
	node := Node{ID: uuid.NewString(), Message: message, Created: n.now()}

	n.mu.Lock()
	n.live[node.ID] = node
	sinks := append([]Sink(nil), n.sinks...)
	n.timers[node.ID] = n.afterFunc(n.delay, func() { n.expire(node.ID) })
	n.mu.Unlock()

	n.log.Debug().Str("id", node.ID).Str("message", logutil.Sanitize(message)).Msg("announce")
	for _, s := range sinks {
		s.Show(node)
	}
}

func (n *Notifier) expire(id string) {
	n.mu.Lock()
	_, ok := n.live[id]
	delete(n.live, id)
	delete(n.timers, id)
	sinks := append([]Sink(nil), n.sinks...)
	n.mu.Unlock()

	if !ok {
		return
	}
	for _, s := range sinks {
		s.Remove(id)
	}
}

// Live returns the nodes that have not expired yet, oldest first.
func (n *Notifier) Live() []Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Node, 0, len(n.live))
	for _, node := range n.live {
		out = append(out, node)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Created.Before(out[j].Created) })
	return out
}

// Close removes every live node immediately.
func (n *Notifier) Close() {
	n.mu.Lock()
	ids := make([]string, 0, len(n.live))
	for id, t := range n.timers {
		t.Stop()
		ids = append(ids, id)
	}
	n.mu.Unlock()

	for _, id := range ids {
		n.expire(id)
	}
}
