package reaper

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Wiper resets the room after it has gone quiet.
type Wiper interface {
	Wipe(ctx context.Context) error
}

type Options struct {
	Idle time.Duration
	Tick time.Duration
	// Ticks replaces the internal ticker when set.
	Ticks  <-chan time.Time
	Now    func() time.Time
	Logger *zap.Logger
}

// Reaper wipes the room once no request has touched it for the idle threshold.
type Reaper struct {
	wiper Wiper
	idle  time.Duration
	ticks <-chan time.Time
	stop  func()
	now   func() time.Time
	log   *zap.Logger
	// last activity, unix nanoseconds
	last atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func New(parent context.Context, wiper Wiper, opts Options) *Reaper {
	ctx, cancel := context.WithCancel(parent)
	r := &Reaper{
		wiper:  wiper,
		idle:   opts.Idle,
		ticks:  opts.Ticks,
		stop:   func() {},
		now:    opts.Now,
		log:    opts.Logger,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	if r.ticks == nil {
		tick := opts.Tick
		if tick <= 0 {
			tick = time.Minute
		}
		t := time.NewTicker(tick)
		r.ticks, r.stop = t.C, t.Stop
	}
	r.last.Store(r.now().UnixNano())

	go r.loop()
	return r
}

// Touch resets the idle clock. It never blocks.
func (r *Reaper) Touch() {
	r.last.Store(r.now().UnixNano())
}

func (r *Reaper) Close() {
	r.cancel()
	<-r.done
}

func (r *Reaper) loop() {
	defer close(r.done)
	defer r.stop()
	for {
		select {
		case <-r.ctx.Done():
			return

		case <-r.ticks:
			r.check()
		}
	}
}

func (r *Reaper) check() {
	now := r.now()
	last := r.last.Load()
	idleFor := now.Sub(time.Unix(0, last))
	if idleFor < r.idle {
		return
	}

	ctx, cancel := context.WithTimeout(r.ctx, 30*time.Second)
	defer cancel()
	if err := r.wiper.Wipe(ctx); err != nil {
		r.log.Error("idle wipe failed", zap.Duration("idle_for", idleFor), zap.Error(err))
		return
	}
	// a touch that landed during the wipe stays
	r.last.CompareAndSwap(last, now.UnixNano())
	r.log.Info("room wiped after inactivity", zap.Duration("idle_for", idleFor))
}
