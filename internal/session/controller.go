// Package session drives one scan job at a time: it launches the job, watches
// its progress stream and returns to Idle on every way a job can end.
//
// All session state lives on a single dispatch goroutine. Network calls and
// timers run elsewhere and hand their results back as closures on the queue,
// so no lock guards the state machine.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/L1nMay/portscanner-console/internal/clock"
	"github.com/L1nMay/portscanner-console/internal/logger"
	"github.com/L1nMay/portscanner-console/internal/metrics"
	"github.com/L1nMay/portscanner-console/internal/model"
	"github.com/L1nMay/portscanner-console/internal/notify"
	"github.com/L1nMay/portscanner-console/internal/stream"
)

const (
	DefaultRefreshGrace   = 400 * time.Millisecond
	DefaultStalledDismiss = 4 * time.Second

	startingPercent = 3
	startingMessage = "Starting..."
)

const (
	msgStarted         = "Scan started"
	msgStartFailed     = "Scan start failed: "
	msgDisconnected    = "Progress stream disconnected"
	msgStalled         = "No progress events from server (scan stuck?)"
	msgCancelRequested = "Cancel requested"
	msgCancelFailed    = "Cancel failed: "
	msgRefreshFailed   = "Refresh failed: "
)

var (
	ErrBusy      = errors.New("a scan session is already running")
	ErrDisposed  = errors.New("session controller disposed")
	ErrStalled   = errors.New("no progress events from server")
	ErrCancelled = errors.New("scan cancelled")
)

// Launcher issues the job control calls.
type Launcher interface {
	StartScan(ctx context.Context) error
	StartCustomScan(ctx context.Context, req model.ScanRequest) error
	CancelScan(ctx context.Context) error
}

// Refresher reloads the result snapshot after a job completes.
type Refresher interface {
	Refresh(ctx context.Context) error
}

type Deps struct {
	Launcher Launcher
	Stream   stream.Opener
	// Refresher is optional.
	Refresher Refresher
}

// Hooks run on the dispatch goroutine. They must return quickly and must not
// call back into the Controller.
type Hooks struct {
	OnState    func(State)
	OnProgress func(model.ProgressEvent)
	// OnFinished receives the outcome once per session. For OutcomeCompleted
	// err is the refresh error, if any.
	OnFinished func(Outcome, error)
}

type Options struct {
	Clock          clock.Clock
	Watchdog       time.Duration
	RefreshGrace   time.Duration
	StalledDismiss time.Duration
	Notifier       notify.Sink
	Metrics        *metrics.Collector
	Hooks          Hooks
}

type Controller struct {
	deps     Deps
	opts     Options
	consumer *stream.Consumer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	queue       chan func()
	quit        chan struct{}
	done        chan struct{}
	disposeOnce sync.Once

	// dispatch goroutine only
	state State
	gen   uint64
	sid   string
	grace clock.Timer

	stateView atomic.Int32
	sidView   atomic.Value
}

func New(deps Deps, opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Watchdog <= 0 {
		opts.Watchdog = stream.DefaultWatchdog
	}
	if opts.RefreshGrace <= 0 {
		opts.RefreshGrace = DefaultRefreshGrace
	}
	if opts.StalledDismiss <= 0 {
		opts.StalledDismiss = DefaultStalledDismiss
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		deps:   deps,
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
		queue:  make(chan func(), 64),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	c.sidView.Store("")
	c.consumer = stream.NewConsumer(stream.Config{
		Opener:  deps.Stream,
		Clock:   opts.Clock,
		Timeout: opts.Watchdog,
		Post:    c.post,
		Deliver: c.onSignal,
		Metrics: opts.Metrics,
	})

	go c.run()
	return c
}

// State is safe to call from any goroutine.
func (c *Controller) State() State {
	return State(c.stateView.Load())
}

// SessionID returns the id of the current or most recent session.
func (c *Controller) SessionID() string {
	return c.sidView.Load().(string)
}

// Start opens a session. It returns ErrBusy when a session is already
// running and a *model.ValidationError for a malformed custom launch; neither
// touches the network.
func (c *Controller) Start(ctx context.Context, l Launch) error {
	if err := l.Validate(); err != nil {
		c.notify(notify.LevelError, err.Error(), 0)
		return err
	}

	var err error
	if cerr := c.call(ctx, func() { err = c.begin(l) }); cerr != nil {
		return cerr
	}
	return err
}

// Cancel asks the server to stop the job and ends the local session without
// waiting for the reply.
func (c *Controller) Cancel(ctx context.Context) error {
	reqCtx := context.WithoutCancel(ctx)
	return c.call(ctx, func() {
		c.goAsync(func() { c.requestCancel(reqCtx) })

		if c.state == Idle {
			logger.Debugf("cancel requested with no session running")
			return
		}
		logger.Infof("session %s: cancelled locally", c.sid)
		c.finish(OutcomeCancelled, ErrCancelled)
	})
}

// Dispose ends any running session, stops the dispatch goroutine and waits
// for outstanding calls. Safe to call more than once.
func (c *Controller) Dispose() {
	c.disposeOnce.Do(func() {
		_ = c.call(context.Background(), func() {
			if c.state != Idle {
				c.finish(OutcomeDisposed, ErrDisposed)
			}
			c.consumer.Close()
		})
		close(c.quit)
		<-c.done
		c.cancel()
		c.wg.Wait()
	})
}

func (c *Controller) run() {
	defer close(c.done)
	for {
		select {
		case fn := <-c.queue:
			fn()
		case <-c.quit:
			return
		}
	}
}

func (c *Controller) post(fn func()) {
	select {
	case c.queue <- fn:
	case <-c.quit:
	}
}

// call runs fn on the dispatch goroutine and waits for it.
func (c *Controller) call(ctx context.Context, fn func()) error {
	select {
	case <-c.quit:
		return ErrDisposed
	default:
	}

	ran := make(chan struct{})
	select {
	case c.queue <- func() { fn(); close(ran) }:
	case <-c.quit:
		return ErrDisposed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-ran:
		return nil
	case <-c.done:
		select {
		case <-ran:
			return nil
		default:
			return ErrDisposed
		}
	}
}

func (c *Controller) goAsync(fn func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn()
	}()
}

// begin moves Idle to Starting and hands the synthetic "Starting..." event to
// OnProgress. That event does not activate the session: State stays Starting
// until the first event arrives from the server, so a failed launch never
// passes through Active.
func (c *Controller) begin(l Launch) error {
	if c.state != Idle {
		logger.Debugf("session %s: start rejected in state %s", c.sid, c.state)
		return ErrBusy
	}

	c.gen++
	gen := c.gen
	c.sid = uuid.NewString()
	c.sidView.Store(c.sid)

	c.setState(Starting)
	c.opts.Metrics.SessionStarted(l.Kind())
	logger.Infof("session %s: starting %s scan", c.sid, l.Kind())

	c.consumer.Open(c.ctx)
	c.progress(model.ProgressEvent{
		Percent: startingPercent,
		Message: startingMessage,
		Status:  model.StatusRunning,
	})

	c.goAsync(func() {
		err := l.run(c.ctx, c.deps.Launcher)
		c.post(func() { c.onLaunched(gen, err) })
	})
	return nil
}

func (c *Controller) live(gen uint64) bool {
	return gen == c.gen && (c.state == Starting || c.state == Active)
}

func (c *Controller) onLaunched(gen uint64, err error) {
	if !c.live(gen) {
		logger.Debugf("launch result for ended session ignored (err=%v)", err)
		return
	}
	if err != nil {
		logger.Errorf("session %s: launch failed: %v", c.sid, err)
		c.notify(notify.LevelError, msgStartFailed+err.Error(), 0)
		c.finish(OutcomeLaunchFailed, err)
		return
	}
	logger.Infof("session %s: launch accepted", c.sid)
	c.notify(notify.LevelOK, msgStarted, 0)
}

func (c *Controller) onSignal(sig stream.Signal) {
	if c.state != Starting && c.state != Active {
		return
	}

	switch sig.Kind {
	case stream.SignalProgress:
		c.activate()
		c.progress(sig.Event)

	case stream.SignalTerminal:
		c.activate()
		c.progress(sig.Event)
		c.complete(sig.Event)

	case stream.SignalStalled:
		logger.Warnf("session %s: no progress for %s", c.sid, c.opts.Watchdog)
		c.notify(notify.LevelError, msgStalled, c.opts.StalledDismiss)
		c.finish(OutcomeStalled, ErrStalled)

	case stream.SignalFailed:
		logger.Errorf("session %s: progress stream failed: %v", c.sid, sig.Err)
		c.notify(notify.LevelError, msgDisconnected, 0)
		c.finish(OutcomeDisconnected, sig.Err)
	}
}

func (c *Controller) activate() {
	if c.state == Starting {
		c.setState(Active)
	}
}

// complete handles a terminal event: the subscription is gone, the refresh
// waits for the grace delay.
func (c *Controller) complete(ev model.ProgressEvent) {
	c.setState(Closing)
	c.consumer.Close()
	logger.Infof("session %s: terminal event at %.0f%%: %s", c.sid, ev.Percent, ev.Message)

	gen := c.gen
	c.grace = c.opts.Clock.AfterFunc(c.opts.RefreshGrace, func() {
		c.post(func() { c.onGrace(gen) })
	})
}

func (c *Controller) onGrace(gen uint64) {
	if gen != c.gen || c.state != Closing || c.grace == nil {
		return
	}
	c.grace = nil

	if c.deps.Refresher == nil {
		c.finish(OutcomeCompleted, nil)
		return
	}
	c.goAsync(func() {
		err := c.deps.Refresher.Refresh(c.ctx)
		c.post(func() { c.onRefreshed(gen, err) })
	})
}

func (c *Controller) onRefreshed(gen uint64, err error) {
	if gen != c.gen || c.state != Closing {
		return
	}
	if err != nil {
		logger.Errorf("session %s: refresh failed: %v", c.sid, err)
		c.notify(notify.LevelError, msgRefreshFailed+err.Error(), 0)
	}
	c.finish(OutcomeCompleted, err)
}

func (c *Controller) requestCancel(ctx context.Context) {
	if err := c.deps.Launcher.CancelScan(ctx); err != nil {
		logger.Errorf("cancel request failed: %v", err)
		c.notify(notify.LevelError, msgCancelFailed+err.Error(), 0)
		return
	}
	c.notify(notify.LevelInfo, msgCancelRequested, 0)
}

// finish releases the subscription and timers and returns to Idle.
func (c *Controller) finish(outcome Outcome, err error) {
	c.consumer.Close()
	if c.grace != nil {
		c.grace.Stop()
		c.grace = nil
	}

	if c.state != Closing {
		c.setState(Closing)
	}
	c.setState(Idle)

	c.opts.Metrics.SessionFinished(outcome.String())
	logger.Infof("session %s: finished (%s)", c.sid, outcome)
	if c.opts.Hooks.OnFinished != nil {
		c.opts.Hooks.OnFinished(outcome, err)
	}
}

func (c *Controller) setState(s State) {
	c.state = s
	c.stateView.Store(int32(s))
	if c.opts.Hooks.OnState != nil {
		c.opts.Hooks.OnState(s)
	}
}

func (c *Controller) progress(ev model.ProgressEvent) {
	if c.opts.Hooks.OnProgress != nil {
		c.opts.Hooks.OnProgress(ev)
	}
}

func (c *Controller) notify(level notify.Level, msg string, timeout time.Duration) {
	c.opts.Notifier.Notify(notify.Notification{Message: msg, Level: level, Timeout: timeout})
}
