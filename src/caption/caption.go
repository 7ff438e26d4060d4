// Package caption owns the caption request lifecycle:
// Idle -> InFlight -> Succeeded or Failed.
package caption

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"caption-assist/src/captionapi"
	"caption-assist/src/imageinput"
	"caption-assist/src/logutil"
)

// User-facing messages. They are shown and announced verbatim.
const (
	MsgMissingImage   = "Please select an image first"
	MsgGenerating     = "Generating caption. Please wait."
	MsgRequestFailure = "Failed to generate caption. Make sure the backend server is running."
	msgCaptionPrefix  = "Caption generated: "
)

type State int

const (
	Idle State = iota
	InFlight
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case InFlight:
		return "in-flight"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return "idle"
}

// Options are the user toggles. They outlive requests.
type Options struct {
	Detailed  bool
	AutoSpeak bool
}

// Result is a successful caption. Alternatives is never nil.
type Result struct {
	Primary      string
	Alternatives []string
}

// Snapshot is a read-only copy of the controller state. Result is non-nil
// only when State is Succeeded; Error is non-empty only when State is Failed.
type Snapshot struct {
	State     State
	Error     string
	Result    *Result
	RequestID string
}

// Request is one issued caption attempt. The Detailed flag is captured when
// the request is created.
type Request struct {
	ID       string
	Image    imageinput.Image
	Detailed bool

	gen    uint64
	ctx    context.Context
	cancel context.CancelFunc
}

// Context is cancelled when the request is superseded or times out.
func (r *Request) Context() context.Context { return r.ctx }

// API converts the request into the backend call.
func (r *Request) API() captionapi.Request {
	return captionapi.Request{
		FileName:  r.Image.Name,
		MediaType: r.Image.MediaType,
		Image:     r.Image.Data,
		Detailed:  r.Detailed,
	}
}

type Announcer interface {
	Announce(message string)
}

type Speaker interface {
	Speak(text string)
}

type Config struct {
	Announcer Announcer
	Speaker   Speaker
	// Options is read at call time so toggles apply to the next action.
	Options  func() Options
	Deadline time.Duration
	Log      zerolog.Logger
}

// Controller is not safe for concurrent use; the event loop owns it.
type Controller struct {
	announcer Announcer
	speaker   Speaker
	options   func() Options
	deadline  time.Duration
	log       zerolog.Logger

	state    State
	err      string
	result   *Result
	gen      uint64
	inflight *Request
}

func New(cfg Config) *Controller {
	opts := cfg.Options
	if opts == nil {
		opts = func() Options { return Options{AutoSpeak: true} }
	}
	return &Controller{
		announcer: cfg.Announcer,
		speaker:   cfg.Speaker,
		options:   opts,
		deadline:  cfg.Deadline,
		log:       cfg.Log.With().Str("component", "caption").Logger(),
	}
}

// Generate starts a request for img. It returns nil when there is nothing to
// send: no image (the state becomes Failed) or a request already in flight.
func (c *Controller) Generate(parent context.Context, img *imageinput.Image) *Request {
	if c.state == InFlight {
		c.log.Debug().Msg("generate ignored, request in flight")
		return nil
	}
	if img == nil {
		c.fail(MsgMissingImage)
		return nil
	}

	opts := c.options()
	c.gen++
	if parent == nil {
		parent = context.Background()
	}
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if c.deadline > 0 {
		ctx, cancel = context.WithTimeout(parent, c.deadline)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}
	req := &Request{
		ID:       uuid.NewString(),
		Image:    *img,
		Detailed: opts.Detailed,
		gen:      c.gen,
		ctx:      ctx,
		cancel:   cancel,
	}

	c.state = InFlight
	c.err = ""
	c.result = nil
	c.inflight = req
	c.log.Info().
		Str("request_id", req.ID).
		Str("image", logutil.Sanitize(img.Name)).
		Bool("detailed", req.Detailed).
		Msg("caption requested")
	c.announce(MsgGenerating)
	return req
}

// Complete applies the outcome of req. Results for superseded requests are
// dropped.
func (c *Controller) Complete(req *Request, res captionapi.Result, err error) {
	if req == nil {
		return
	}
	req.cancel()
	if req.gen != c.gen || c.state != InFlight {
		c.log.Debug().Str("request_id", req.ID).Msg("discarding superseded result")
		return
	}
	c.inflight = nil

	if err != nil {
		c.log.Warn().Err(err).Str("request_id", req.ID).Msg("caption request failed")
		c.fail(MsgRequestFailure)
		return
	}

	alts := res.Alternatives
	if alts == nil {
		alts = []string{}
	}
	c.state = Succeeded
	c.err = ""
	c.result = &Result{Primary: res.Caption, Alternatives: alts}
	c.log.Info().
		Str("request_id", req.ID).
		Str("caption", logutil.Sanitize(res.Caption)).
		Int("alternatives", len(alts)).
		Msg("caption generated")

	c.announce(msgCaptionPrefix + res.Caption)
	if c.options().AutoSpeak && c.speaker != nil {
		c.speaker.Speak(res.Caption)
	}
}

// Reset returns to Idle and clears result and error. An in-flight request is
// cancelled and its result will be discarded.
func (c *Controller) Reset() {
	if c.inflight != nil {
		c.log.Debug().Str("request_id", c.inflight.ID).Msg("cancelling superseded request")
		c.inflight.cancel()
		c.inflight = nil
	}
	c.gen++
	c.state = Idle
	c.err = ""
	c.result = nil
}

func (c *Controller) Snapshot() Snapshot {
	s := Snapshot{State: c.state, Error: c.err}
	if c.result != nil {
		r := *c.result
		r.Alternatives = append([]string{}, c.result.Alternatives...)
		s.Result = &r
	}
	if c.inflight != nil {
		s.RequestID = c.inflight.ID
	}
	return s
}

func (c *Controller) InFlight() bool { return c.state == InFlight }

// Caption returns the primary caption, or "" when there is none.
func (c *Controller) Caption() string {
	if c.result == nil {
		return ""
	}
	return c.result.Primary
}

func (c *Controller) fail(msg string) {
	c.state = Failed
	c.err = msg
	c.result = nil
	c.announce(msg)
}

func (c *Controller) announce(msg string) {
	if c.announcer != nil {
		c.announcer.Announce(msg)
	}
}
