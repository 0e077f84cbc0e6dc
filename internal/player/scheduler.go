package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/ttyplay/internal/index"
	"pkt.systems/ttyplay/internal/seek"
	"pkt.systems/ttyplay/internal/ttyrec"
)

// DefaultPollInterval is how often a live source is re-read while idle.
const DefaultPollInterval = 250 * time.Millisecond

// Source yields records in playback order. io.EOF ends playback unless the
// source is Live.
type Source interface {
	Next() (seek.Step, error)
}

// Navigator is a Source that can reposition itself against an index.
type Navigator interface {
	Source
	Index() *index.Index
	Seek(target ttyrec.Timeval, emit func(seek.Step) error) (seek.Result, error)
	NextSegment() (index.Position, error)
	PrevSegment(latency ttyrec.Timeval) (index.Position, error)
	NextLandmark() (index.Position, error)
	PrevLandmark() (index.Position, error)
	Segment() int
	Landmark() int
	Offset() int64
	Elapsed() ttyrec.Timeval
}

// Live is a Source that may grow. io.EOF from a live source means no record
// is available yet; Wake fires when more data may have arrived.
type Live interface {
	Source
	Wake() <-chan struct{}
}

// Clock abstracts wall-clock time for the scheduler.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Options configures a Player.
type Options struct {
	Speed float64
	// NoWait disables timing; keys are still polled between records.
	NoWait   bool
	Controls Controls
	Clock    Clock
	// PollInterval paces re-reads of a live source that ran dry.
	PollInterval time.Duration
	Logger       pslog.Logger
}

// Player is one playback control loop. It is not safe for concurrent use.
type Player struct {
	src  Source
	nav  Navigator
	live Live
	out  io.Writer
	keys <-chan byte

	controls Controls
	clock    Clock
	noWait   bool
	poll     time.Duration
	logger   pslog.Logger

	lex   Lexer
	state State
	drift time.Duration
}

// New returns a Player reading records from src, writing payloads to out and
// taking key bytes from keys. keys may be nil.
func New(src Source, out io.Writer, keys <-chan byte, opts Options) *Player {
	p := &Player{
		src:      src,
		out:      out,
		keys:     keys,
		controls: opts.Controls,
		clock:    opts.Clock,
		noWait:   opts.NoWait,
		poll:     opts.PollInterval,
		logger:   opts.Logger,
	}
	if nav, ok := src.(Navigator); ok {
		p.nav = nav
		p.controls.Indexed = true
		p.controls.End = nav.Index().End()
	}
	if live, ok := src.(Live); ok {
		p.live = live
	}
	if p.clock == nil {
		p.clock = systemClock{}
	}
	if p.poll <= 0 {
		p.poll = DefaultPollInterval
	}
	if p.logger == nil {
		p.logger = pslog.Ctx(context.Background())
	}
	p.state.Speed = opts.Speed
	if p.state.Speed == 0 {
		p.state.Speed = 1
	}
	p.state.Speed = clampSpeed(p.state.Speed)
	return p
}

// State returns a copy of the playback state.
func (p *Player) State() State {
	return p.state
}

// Queue sets the pending request, replacing any other.
func (p *Player) Queue(req Request) {
	p.state.Request = req
}

// Run plays until quit, end of stream, or ctx is done. Quit and end of
// stream return nil.
func (p *Player) Run(ctx context.Context) error {
	first := true
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if p.state.Quit {
			p.logger.Debug("playback quit", "elapsed", p.state.Elapsed.String())
			return nil
		}
		if p.state.Pending() {
			end, err := p.apply()
			if err != nil {
				return err
			}
			if end {
				p.logger.Debug("playback reached end after seek", "elapsed", p.state.Elapsed.String())
				return nil
			}
			continue
		}

		step, err := p.src.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return err
			}
			if p.live == nil {
				p.logger.Debug("playback reached end", "elapsed", p.state.Elapsed.String())
				return nil
			}
			if err := p.idle(ctx); err != nil {
				return err
			}
			continue
		}

		switch {
		case p.noWait:
			p.pollKeys()
		case !first && !step.Fresh:
			if err := p.wait(ctx, step.Delta); err != nil {
				return err
			}
		}
		first = false
		if err := p.emit(step); err != nil {
			return err
		}
	}
}

func (p *Player) emit(step seek.Step) error {
	if _, err := p.out.Write(step.Payload); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if p.nav != nil {
		p.state.Segment = p.nav.Segment()
		p.state.Landmark = p.nav.Landmark()
		p.state.Offset = p.nav.Offset()
		p.state.Elapsed = p.nav.Elapsed()
		return nil
	}
	p.state.Elapsed = p.state.Elapsed.Add(step.Delta)
	p.state.Offset = step.End()
	return nil
}

// wait sleeps for the record's share of wall-clock time, corrected by the
// accumulated drift. Keys cut the wait short and reset the drift.
func (p *Player) wait(ctx context.Context, delta ttyrec.Timeval) error {
	if p.state.Paused() {
		for p.state.Paused() && !p.state.Quit && !p.state.Pending() {
			if p.keys == nil {
				p.state.Quit = true
				break
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case b, ok := <-p.keys:
				p.take(b, ok)
			}
		}
		p.drift = 0
		return nil
	}

	raw := delta.Div(math.Abs(p.state.Speed)).Duration()
	planned := max(raw-p.drift, 0)
	start := p.clock.Now()
	if planned == 0 {
		select {
		case b, ok := <-p.keys:
			p.take(b, ok)
			p.drift = 0
			return nil
		default:
		}
	} else {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case b, ok := <-p.keys:
			p.take(b, ok)
			p.drift = 0
			return nil
		case <-p.clock.After(planned):
		}
	}
	actual := p.clock.Now().Sub(start)
	p.drift += actual - raw
	p.logger.Trace("record wait", "planned", planned, "actual", actual, "drift", p.drift)
	return nil
}

// take feeds b and any immediately available bytes through the lexer. A
// closed key channel is dropped.
func (p *Player) take(b byte, ok bool) {
	if !ok {
		p.keys = nil
		return
	}
	p.feed(b)
	p.pollKeys()
}

func (p *Player) pollKeys() {
	for p.keys != nil {
		select {
		case b, ok := <-p.keys:
			if !ok {
				p.keys = nil
				return
			}
			p.feed(b)
		default:
			return
		}
	}
}

func (p *Player) feed(b byte) {
	k, ok := p.lex.Feed(b)
	if !ok {
		return
	}
	before := p.state.Speed
	p.controls.Handle(&p.state, k)
	if p.state.Speed != before {
		p.logger.Debug("playback speed", "speed", p.state.Speed, "paused", p.state.Paused())
	}
}

// idle waits for a live source to grow.
func (p *Player) idle(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case b, ok := <-p.keys:
		p.take(b, ok)
	case <-p.live.Wake():
	case <-p.clock.After(p.poll):
	}
	return nil
}

// apply drains the pending request. It reports whether the recording has
// nothing further to play.
func (p *Player) apply() (bool, error) {
	req := p.state.Request
	target := p.state.target()
	p.state.Request = Request{}
	if p.nav == nil {
		return false, nil
	}
	p.drift = 0

	var (
		end bool
		err error
	)
	switch req.Kind {
	case RequestSeek, RequestSeekTo:
		var res seek.Result
		res, err = p.nav.Seek(target, func(step seek.Step) error {
			_, werr := p.out.Write(step.Payload)
			return werr
		})
		end = res.EOF
	case RequestNextSegment:
		_, err = p.nav.NextSegment()
	case RequestPrevSegment:
		_, err = p.nav.PrevSegment(p.controls.SwitchLatency)
	case RequestNextLandmark:
		_, err = p.nav.NextLandmark()
	case RequestPrevLandmark:
		_, err = p.nav.PrevLandmark()
	}
	if errors.Is(err, seek.ErrNoTarget) {
		p.logger.Debug("jump ignored", "request", req.Kind.String())
		err = nil
	}
	if err != nil {
		return false, err
	}
	p.state.Segment = p.nav.Segment()
	p.state.Landmark = p.nav.Landmark()
	p.state.Offset = p.nav.Offset()
	p.state.Elapsed = p.nav.Elapsed()
	return end, nil
}
