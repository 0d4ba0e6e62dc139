// Package stream consumes the scanner's progress stream: one subscription at
// a time, guarded by a watchdog that fires when the stream goes silent.
//
// A Consumer is not safe for concurrent use. All of its methods, and the
// Deliver callback, run on the owner's dispatch goroutine; the reader
// goroutine and the watchdog only hand work back through Post.
package stream

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/L1nMay/portscanner-console/internal/clock"
	"github.com/L1nMay/portscanner-console/internal/logger"
	"github.com/L1nMay/portscanner-console/internal/metrics"
	"github.com/L1nMay/portscanner-console/internal/model"
)

const DefaultWatchdog = 20 * time.Second

// ErrClosedByServer is reported when the server ends the stream.
var ErrClosedByServer = errors.New("progress stream closed by server")

// Opener attaches to the server's progress stream.
type Opener interface {
	OpenStream(ctx context.Context) (io.ReadCloser, error)
}

type SignalKind int

const (
	SignalProgress SignalKind = iota
	SignalTerminal
	SignalStalled
	SignalFailed
)

func (k SignalKind) String() string {
	switch k {
	case SignalProgress:
		return "progress"
	case SignalTerminal:
		return "terminal"
	case SignalStalled:
		return "stalled"
	case SignalFailed:
		return "failed"
	}
	return "unknown"
}

// Signal is what the consumer reports to its owner. Event is set for
// progress and terminal signals, Err for failures.
type Signal struct {
	Kind  SignalKind
	Event model.ProgressEvent
	Err   error
}

type Config struct {
	Opener  Opener
	Clock   clock.Clock
	Timeout time.Duration
	// Post schedules fn on the owner's dispatch goroutine.
	Post func(fn func())
	// Deliver receives signals on the owner's dispatch goroutine.
	Deliver func(Signal)
	Metrics *metrics.Collector
}

type Consumer struct {
	cfg Config

	gen      uint64
	kickSeq  uint64
	open     bool
	cancel   context.CancelFunc
	watchdog clock.Timer
}

func NewConsumer(cfg Config) *Consumer {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultWatchdog
	}
	return &Consumer{cfg: cfg}
}

// Open closes any current subscription, then subscribes and arms the watchdog.
func (c *Consumer) Open(ctx context.Context) {
	c.Close()

	c.gen++
	gen := c.gen
	sctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.open = true
	c.kick()

	go c.read(sctx, gen)
}

// Close tears the subscription and watchdog down. Safe to call repeatedly.
func (c *Consumer) Close() {
	if c.watchdog != nil {
		c.watchdog.Stop()
		c.watchdog = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.open = false
}

func (c *Consumer) IsOpen() bool {
	return c.open
}

func (c *Consumer) kick() {
	if c.watchdog != nil {
		c.watchdog.Stop()
	}
	c.kickSeq++
	gen, seq := c.gen, c.kickSeq
	c.watchdog = c.cfg.Clock.AfterFunc(c.cfg.Timeout, func() {
		c.cfg.Post(func() { c.onWatchdog(gen, seq) })
	})
}

func (c *Consumer) current(gen uint64) bool {
	return c.open && gen == c.gen
}

func (c *Consumer) read(ctx context.Context, gen uint64) {
	body, err := c.cfg.Opener.OpenStream(ctx)
	if err != nil {
		if ctx.Err() == nil {
			c.cfg.Post(func() { c.onFailure(gen, err) })
		}
		return
	}

	go func() {
		<-ctx.Done()
		body.Close()
	}()

	err = readEvents(body, func(data []byte) bool {
		ev, derr := model.DecodeProgress(data)
		if derr != nil {
			c.cfg.Metrics.MalformedEvent()
			logger.Debugf("dropping malformed progress event %q: %v", data, derr)
			return ctx.Err() == nil
		}
		c.cfg.Post(func() { c.onEvent(gen, ev) })
		return ctx.Err() == nil
	})

	if ctx.Err() != nil {
		return
	}
	if err == nil {
		err = ErrClosedByServer
	}
	c.cfg.Post(func() { c.onFailure(gen, err) })
}

func (c *Consumer) onEvent(gen uint64, ev model.ProgressEvent) {
	if !c.current(gen) {
		return
	}
	c.cfg.Metrics.ProgressEvent()
	c.kick()

	if ev.Terminal() {
		c.Close()
		c.cfg.Deliver(Signal{Kind: SignalTerminal, Event: ev})
		return
	}
	c.cfg.Deliver(Signal{Kind: SignalProgress, Event: ev})
}

func (c *Consumer) onWatchdog(gen, seq uint64) {
	if !c.current(gen) || seq != c.kickSeq {
		return
	}
	c.Close()
	c.cfg.Deliver(Signal{Kind: SignalStalled})
}

func (c *Consumer) onFailure(gen uint64, err error) {
	if !c.current(gen) {
		return
	}
	c.Close()
	c.cfg.Deliver(Signal{Kind: SignalFailed, Err: err})
}
