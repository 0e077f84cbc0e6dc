package player

import (
	"errors"
	"fmt"
	"math"

	"pkt.systems/ttyplay/internal/ttyrec"
)

const (
	DefaultJumpBase      = 15
	DefaultJumpScale     = 10
	DefaultSwitchLatency = 10

	// MinSpeed and MaxSpeed bound the playback multiplier magnitude.
	MinSpeed = 1.0 / 1024
	MaxSpeed = 1024
)

// Controls maps keys to playback state changes.
type Controls struct {
	// Indexed enables segment, landmark and seek commands.
	Indexed bool
	// End is the elapsed time the End key seeks to.
	End ttyrec.Timeval
	// JumpBase is the arrow-key seek distance at 1x.
	JumpBase ttyrec.Timeval
	// JumpScale multiplies JumpBase for Up/Down, and again for PgUp/PgDn.
	JumpScale float64
	// SwitchLatency is how far into a segment the previous-segment key
	// restarts it instead of going back.
	SwitchLatency ttyrec.Timeval
}

// DefaultControls returns the stock key bindings without an index.
func DefaultControls() Controls {
	return Controls{
		JumpBase:      ttyrec.FromSeconds(DefaultJumpBase),
		JumpScale:     DefaultJumpScale,
		SwitchLatency: ttyrec.FromSeconds(DefaultSwitchLatency),
	}
}

// Handle applies k to st.
func (c Controls) Handle(st *State, k Key) {
	switch k.Kind {
	case KeyRune:
		c.handleRune(st, k.R)
	case KeyLeft:
		c.jump(st, -1)
	case KeyRight:
		c.jump(st, 1)
	case KeyUp:
		c.jump(st, -c.scale())
	case KeyDown:
		c.jump(st, c.scale())
	case KeyPageUp:
		c.jump(st, -c.scale()*c.scale())
	case KeyPageDown:
		c.jump(st, c.scale()*c.scale())
	case KeyHome:
		if c.Indexed {
			st.Request = Request{Kind: RequestSeekTo}
		}
	case KeyEnd:
		if c.Indexed {
			st.Request = Request{Kind: RequestSeekTo, Target: c.End}
		}
	}
}

func (c Controls) handleRune(st *State, r byte) {
	switch r {
	case '+':
		st.Speed = clampSpeed(st.Speed * 2)
	case '-':
		st.Speed = clampSpeed(st.Speed / 2)
	case '1':
		st.Speed = 1.0
	case 'p':
		st.Speed = -st.Speed
	case 'q':
		st.Quit = true
	}
	if !c.Indexed {
		return
	}
	switch r {
	case 'f':
		st.Request = Request{Kind: RequestNextSegment}
	case 'd':
		st.Request = Request{Kind: RequestPrevSegment}
	case 'c':
		st.Request = Request{Kind: RequestNextLandmark}
	case 'x':
		st.Request = Request{Kind: RequestPrevLandmark}
	}
}

func (c Controls) scale() float64 {
	if c.JumpScale <= 0 {
		return DefaultJumpScale
	}
	return c.JumpScale
}

func (c Controls) jump(st *State, factor float64) {
	if !c.Indexed {
		return
	}
	base := c.JumpBase
	if base.IsZero() {
		base = ttyrec.FromSeconds(DefaultJumpBase)
	}
	micros := float64(base.Micros()) * factor * math.Abs(st.Speed)
	st.seekBy(ttyrec.FromMicros(int64(math.Round(micros))))
}

// ErrInvalidSpeed reports a speed that cannot drive playback.
var ErrInvalidSpeed = errors.New("invalid speed")

// CheckSpeed accepts a nonzero speed whose magnitude lies within
// [MinSpeed, MaxSpeed]. A negative speed starts paused.
func CheckSpeed(s float64) error {
	if math.IsNaN(s) || s == 0 {
		return fmt.Errorf("%w %v", ErrInvalidSpeed, s)
	}
	if mag := math.Abs(s); mag < MinSpeed || mag > MaxSpeed {
		return fmt.Errorf("%w %v: magnitude must be within [%v, %v]", ErrInvalidSpeed, s, MinSpeed, MaxSpeed)
	}
	return nil
}

func clampSpeed(s float64) float64 {
	if math.IsNaN(s) {
		return 1
	}
	mag := math.Abs(s)
	switch {
	case mag > MaxSpeed:
		mag = MaxSpeed
	case mag < MinSpeed:
		mag = MinSpeed
	}
	return math.Copysign(mag, s)
}
