package worker

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"caption-assist/src/captionapi"
)

// Captioner performs one backend call.
type Captioner interface {
	Caption(ctx context.Context, req captionapi.Request) (captionapi.Result, error)
}

// ResultCallback is invoked on completion from a worker goroutine. The event
// loop passes a closure that posts back into the loop.
type ResultCallback func(res captionapi.Result, err error)

// Pool is a fixed-size caption worker pool with a 1-slot input queue (strict
// back-pressure).
type Pool struct {
	captioner Captioner
	log       zerolog.Logger
	jobs      chan job
	wg        sync.WaitGroup
	closeOnce sync.Once
}

type job struct {
	ctx context.Context
	req captionapi.Request
	cb  ResultCallback
}

// New creates a worker pool. Size defaults to 1 when size<=0.
func New(captioner Captioner, size int, log zerolog.Logger) *Pool {
	if size <= 0 {
		size = 1
	}
	p := &Pool{
		captioner: captioner,
		log:       log.With().Str("component", "worker").Logger(),
		jobs:      make(chan job, 1),
	}
	p.start(size)
	return p
}

func (p *Pool) start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.jobs {
				p.log.Debug().Str("file", j.req.FileName).Int("bytes", len(j.req.Image)).Msg("caption job started")
				res, err := p.run(j)
				p.log.Debug().Err(err).Msg("caption job finished")
				j.cb(res, err)
			}
		}()
	}
}

// run honours ctx even if it was cancelled while the job sat in the queue.
func (p *Pool) run(j job) (captionapi.Result, error) {
	if err := j.ctx.Err(); err != nil {
		return captionapi.Result{}, err
	}
	return p.captioner.Caption(j.ctx, j.req)
}

// Submit enqueues a job if the single-slot queue is free. Returns false if
// dropped.
func (p *Pool) Submit(ctx context.Context, req captionapi.Request, cb ResultCallback) bool {
	select {
	case p.jobs <- job{ctx: ctx, req: req, cb: cb}:
		return true
	default:
		return false
	}
}

// Close stops the pool after draining current work.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.jobs)
		p.wg.Wait()
	})
}
