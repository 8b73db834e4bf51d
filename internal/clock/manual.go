package clock

import "time"

// Manual is a Scheduler advanced explicitly by the caller. It drives the
// offline renderer and every timing-sensitive test.
type Manual struct {
	reg    registry
	now    time.Duration
	frames uint64
}

// NewManual returns a Manual clock at time zero.
func NewManual() *Manual {
	return &Manual{}
}

// Register implements Scheduler.
func (m *Manual) Register(fn FrameFunc) func() {
	return m.reg.add(fn)
}

// Step delivers one frame of length dt.
func (m *Manual) Step(dt time.Duration) {
	m.now += dt
	m.frames++
	m.reg.tick(dt)
}

// Advance delivers frames at fps until d has elapsed. The last frame is
// shortened so exactly d passes.
func (m *Manual) Advance(d time.Duration, fps int) {
	if fps <= 0 {
		fps = 60
	}
	frame := time.Second / time.Duration(fps)
	for d > 0 {
		dt := frame
		if d < dt {
			dt = d
		}
		m.Step(dt)
		d -= dt
	}
}

// Now returns the total time delivered so far.
func (m *Manual) Now() time.Duration {
	return m.now
}

// Frames returns the number of frames delivered so far.
func (m *Manual) Frames() uint64 {
	return m.frames
}

// Registered returns the number of live registrations.
func (m *Manual) Registered() int {
	return m.reg.len()
}
