// Package scroll makes the per-worker calendars scroll as one surface by
// mirroring the scroll position of whichever calendar the user moves.
package scroll

import (
	"sync"
	"time"

	"github.com/klabast/wb-services/agenda/internal/calendar"
)

// SettleDelay is how long the mirror ignores scroll events after copying a
// position, so the writes it just made are not mirrored back.
const SettleDelay = 50 * time.Millisecond

// Surface is a scrollable calendar body.
type Surface interface {
	SurfaceID() string
	ScrollTop() float64
	SetScrollTop(top float64)
}

// Timer is the part of *time.Timer the mirror uses.
type Timer interface {
	Stop() bool
}

// Options configures a Mirror.
type Options struct {
	// Delay defaults to SettleDelay.
	Delay time.Duration
	// AfterFunc defaults to time.AfterFunc.
	AfterFunc func(d time.Duration, f func()) Timer
}

// Mirror copies scrollTop from the surface being scrolled to every other
// attached surface. A guard flag, released SettleDelay after the last
// mirrored write, keeps the copies from echoing back.
type Mirror struct {
	mu        sync.Mutex
	surfaces  []Surface
	syncing   bool
	last      float64
	delay     time.Duration
	afterFunc func(time.Duration, func()) Timer
	release   Timer
	gen       uint64
}

// NewMirror returns a Mirror with no surfaces attached.
func NewMirror(opts Options) *Mirror {
	m := &Mirror{delay: opts.Delay, afterFunc: opts.AfterFunc}
	if m.delay <= 0 {
		m.delay = SettleDelay
	}
	if m.afterFunc == nil {
		m.afterFunc = func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
	}
	return m
}

// Attach replaces the mirrored set and restores the last mirrored position
// on it, since freshly rendered surfaces start at the top.
func (m *Mirror) Attach(surfaces []Surface) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.surfaces = append([]Surface(nil), surfaces...)
	for _, s := range m.surfaces {
		s.SetScrollTop(m.last)
	}
}

// HandleScroll is the scroll listener of source. It reports whether the
// position was mirrored; events arriving while the guard is held are
// dropped.
func (m *Mirror) HandleScroll(source Surface) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.syncing {
		return false
	}
	m.syncing = true

	top := source.ScrollTop()
	m.last = top
	for _, s := range m.surfaces {
		if s.SurfaceID() == source.SurfaceID() {
			continue
		}
		s.SetScrollTop(top)
	}

	if m.release != nil {
		m.release.Stop()
	}
	m.gen++
	gen := m.gen
	m.release = m.afterFunc(m.delay, func() { m.settle(gen) })
	return true
}

// settle releases the guard unless a newer scroll has re-armed it.
func (m *Mirror) settle(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return
	}
	m.syncing = false
	m.release = nil
}

// Syncing reports whether the guard is currently held.
func (m *Mirror) Syncing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.syncing
}

// Position is the last mirrored scrollTop.
func (m *Mirror) Position() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Surface returns the attached surface with id.
func (m *Mirror) Surface(id string) (Surface, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.surfaces {
		if s.SurfaceID() == id {
			return s, true
		}
	}
	return nil, false
}

// Surfaces returns the widgets that can scroll.
func Surfaces(widgets []calendar.Widget) []Surface {
	out := make([]Surface, 0, len(widgets))
	for _, w := range widgets {
		if s, ok := w.(Surface); ok {
			out = append(out, s)
		}
	}
	return out
}

// Hook re-attaches the mirror to the widgets of every new render.
func (m *Mirror) Hook() calendar.RenderHook {
	return func(ev calendar.RenderEvent) {
		m.Attach(Surfaces(ev.Widgets))
	}
}

// Close stops a pending guard release.
func (m *Mirror) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.release != nil {
		m.release.Stop()
		m.release = nil
	}
	m.gen++
	m.syncing = false
}
