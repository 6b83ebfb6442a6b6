package device

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/viru/berrybridge/event"
)

type fakeEngine struct {
	mu      sync.Mutex
	calls   map[string]int
	initErr error
	sizes   [][2]int

	init       atomic.Bool
	paused     atomic.Bool
	hasWindow  atomic.Bool
	frames     atomic.Int64
	violations atomic.Int32
	block      chan struct{}
	entered    atomic.Int64

	surface   atomic.Pointer[string]
	lastFrame atomic.Pointer[string]
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{calls: make(map[string]int)}
}

func (e *fakeEngine) record(name string) {
	e.mu.Lock()
	e.calls[name]++
	e.mu.Unlock()
}

func (e *fakeEngine) count(name string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[name]
}

func (e *fakeEngine) InitDevice() error {
	e.record("init")
	if e.initErr != nil {
		return e.initErr
	}
	e.init.Store(true)
	return nil
}

func (e *fakeEngine) ShutdownDevice() { e.record("shutdown"); e.init.Store(false) }
func (e *fakeEngine) PauseDevice()    { e.record("pause"); e.paused.Store(true) }
func (e *fakeEngine) UnpauseDevice()  { e.record("unpause"); e.paused.Store(false) }

func (e *fakeEngine) IsDeviceInit() bool    { return e.init.Load() }
func (e *fakeEngine) IsDeviceRunning() bool { return e.init.Load() && !e.paused.Load() }
func (e *fakeEngine) IsDevicePaused() bool  { return e.paused.Load() }

func (e *fakeEngine) Frame() {
	e.entered.Add(1)
	if !e.hasWindow.Load() {
		e.violations.Add(1)
	}
	e.lastFrame.Store(e.surface.Load())
	if e.block != nil {
		<-e.block
	}
	time.Sleep(50 * time.Microsecond)
	if !e.hasWindow.Load() {
		e.violations.Add(1)
	}
	e.frames.Add(1)
}

func (e *fakeEngine) SetWindow(s Surface) {
	e.record("set-window")
	name, _ := s.(string)
	e.surface.Store(&name)
	e.hasWindow.Store(true)
}

func (e *fakeEngine) DestroyWindow() {
	e.record("destroy-window")
	e.surface.Store(nil)
	e.hasWindow.Store(false)
}

func (e *fakeEngine) Resize(w, h int) {
	e.mu.Lock()
	e.sizes = append(e.sizes, [2]int{w, h})
	e.mu.Unlock()
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func quietLogger() log.FieldLogger {
	l, _ := test.NewNullLogger()
	return l
}

func startRunning(t *testing.T, eng *fakeEngine, cfg Config) *Lifecycle {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = quietLogger()
	}
	l := New(eng, cfg)
	if err := l.SurfaceCreated("surface-1"); err != nil {
		t.Fatal(err)
	}
	if got := l.State(); got != Running {
		t.Fatalf("State() = %s, want running", got)
	}
	waitFor(t, "first frame", func() bool { return eng.frames.Load() > 0 })
	return l
}

func TestSurfaceDestroyedJoinsRender(t *testing.T) {
	eng := newFakeEngine()
	l := startRunning(t, eng, Config{})

	if err := l.SurfaceDestroyed(); err != nil {
		t.Fatal(err)
	}
	if l.RenderAlive() {
		t.Fatal("render goroutine alive after SurfaceDestroyed returned")
	}
	if got := l.State(); got != Paused {
		t.Errorf("State() = %s, want paused", got)
	}
	frames := eng.frames.Load()
	time.Sleep(5 * time.Millisecond)
	if eng.frames.Load() != frames {
		t.Error("frames rendered after surface destroyed")
	}
	if n := eng.violations.Load(); n != 0 {
		t.Errorf("%d frames ran without a window", n)
	}
	if eng.count("destroy-window") != 1 || eng.count("pause") != 1 {
		t.Errorf("calls = %v", eng.calls)
	}
}

func TestDuplicateSurfaceCreatedInitsOnce(t *testing.T) {
	eng := newFakeEngine()
	l := startRunning(t, eng, Config{})
	if err := l.SurfaceCreated("surface-1"); err != nil {
		t.Fatal(err)
	}
	if got := eng.count("init"); got != 1 {
		t.Errorf("InitDevice called %d times, want 1", got)
	}
	if got := eng.count("set-window"); got != 1 {
		t.Errorf("SetWindow called %d times, want 1", got)
	}
	l.Destroy()
}

func TestInitFailureRollsBack(t *testing.T) {
	eng := newFakeEngine()
	eng.initErr = errors.New("no gpu")
	l := New(eng, Config{Logger: quietLogger()})

	err := l.SurfaceCreated("surface-1")
	if !errors.Is(err, eng.initErr) {
		t.Fatalf("SurfaceCreated() = %v, want wrapped init error", err)
	}
	if got := l.State(); got != Uninitialized {
		t.Errorf("State() = %s, want uninitialized", got)
	}
	if l.RenderAlive() {
		t.Error("render goroutine started after failed init")
	}
	if eng.hasWindow.Load() {
		t.Error("window left bound after failed init")
	}

	// A later surface gets a fresh attempt.
	eng.initErr = nil
	if err := l.SurfaceCreated("surface-2"); err != nil {
		t.Fatal(err)
	}
	if got := l.State(); got != Running {
		t.Errorf("State() = %s, want running", got)
	}
	l.Destroy()
}

func TestPauseResume(t *testing.T) {
	eng := newFakeEngine()
	l := startRunning(t, eng, Config{})

	if err := l.Pause(); err != nil {
		t.Fatal(err)
	}
	if l.RenderAlive() || l.State() != Paused || !eng.IsDevicePaused() {
		t.Fatalf("after Pause: alive=%v state=%s paused=%v", l.RenderAlive(), l.State(), eng.IsDevicePaused())
	}
	if !eng.hasWindow.Load() {
		t.Error("Pause released the surface")
	}

	if err := l.Resume(); err != nil {
		t.Fatal(err)
	}
	if got := l.State(); got != Running {
		t.Fatalf("State() = %s, want running", got)
	}
	frames := eng.frames.Load()
	waitFor(t, "frames after resume", func() bool { return eng.frames.Load() > frames })
	l.Destroy()
}

func TestSurfaceRecreated(t *testing.T) {
	eng := newFakeEngine()
	l := startRunning(t, eng, Config{})
	l.SurfaceDestroyed()

	// Resume without a surface keeps the device paused.
	l.Resume()
	if got := l.State(); got != Paused {
		t.Fatalf("State() = %s, want paused", got)
	}

	if err := l.SurfaceCreated("surface-2"); err != nil {
		t.Fatal(err)
	}
	if got := l.State(); got != Running {
		t.Fatalf("State() = %s, want running", got)
	}
	if eng.count("init") != 1 || eng.count("set-window") != 2 || eng.count("unpause") != 1 {
		t.Errorf("calls = %v", eng.calls)
	}
	l.Destroy()
}

func TestPausedActivityDefersRender(t *testing.T) {
	eng := newFakeEngine()
	l := New(eng, Config{Logger: quietLogger()})
	l.Pause()
	if err := l.SurfaceCreated("surface-1"); err != nil {
		t.Fatal(err)
	}
	if l.State() != Paused || l.RenderAlive() {
		t.Fatalf("state=%s alive=%v, want paused without render", l.State(), l.RenderAlive())
	}
	l.Resume()
	if got := l.State(); got != Running {
		t.Fatalf("State() = %s, want running", got)
	}
	l.Destroy()
}

func TestDestroyShutsDownOnce(t *testing.T) {
	eng := newFakeEngine()
	l := startRunning(t, eng, Config{})

	for i := 0; i < 2; i++ {
		if err := l.Destroy(); err != nil {
			t.Fatal(err)
		}
	}
	if got := l.State(); got != Destroyed {
		t.Errorf("State() = %s, want destroyed", got)
	}
	if l.RenderAlive() {
		t.Error("render goroutine alive after Destroy")
	}
	if eng.count("shutdown") != 1 || eng.count("destroy-window") != 1 {
		t.Errorf("calls = %v", eng.calls)
	}
	if err := l.SurfaceCreated("surface-2"); !errors.Is(err, ErrDestroyed) {
		t.Errorf("SurfaceCreated after Destroy = %v, want ErrDestroyed", err)
	}
}

func TestDestroyUninitialized(t *testing.T) {
	eng := newFakeEngine()
	l := New(eng, Config{Logger: quietLogger()})
	if err := l.Destroy(); err != nil {
		t.Fatal(err)
	}
	if l.State() != Destroyed || eng.count("shutdown") != 0 {
		t.Errorf("state=%s calls=%v", l.State(), eng.calls)
	}
}

func TestStuckRenderLeaksSurface(t *testing.T) {
	logger, hook := test.NewNullLogger()
	eng := newFakeEngine()
	eng.block = make(chan struct{})
	l := New(eng, Config{JoinTimeout: 5 * time.Millisecond, Logger: logger})
	if err := l.SurfaceCreated("surface-1"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "frame in flight", func() bool { return eng.entered.Load() > 0 })

	if err := l.SurfaceDestroyed(); !errors.Is(err, ErrRenderStuck) {
		t.Fatalf("SurfaceDestroyed() = %v, want ErrRenderStuck", err)
	}
	if eng.count("destroy-window") != 0 {
		t.Error("surface released under a live frame")
	}
	if !l.Leaked() {
		t.Error("Leaked() = false")
	}
	warns := 0
	for _, e := range hook.AllEntries() {
		if e.Level == log.WarnLevel {
			warns++
		}
	}
	if warns != 2 {
		t.Errorf("got %d join warnings, want 2", warns)
	}

	// Once the frame returns the next transition recovers.
	close(eng.block)
	waitFor(t, "stuck frame to return", func() bool { return !l.RenderAlive() })
	if err := l.SurfaceDestroyed(); err != nil {
		t.Fatal(err)
	}
	if l.Leaked() || l.RenderAlive() || eng.count("destroy-window") != 1 {
		t.Errorf("leaked=%v alive=%v calls=%v", l.Leaked(), l.RenderAlive(), eng.calls)
	}
	if n := eng.violations.Load(); n != 0 {
		t.Errorf("%d frames ran without a window", n)
	}
	l.Destroy()
}

func TestLeakedSurfaceReplaced(t *testing.T) {
	eng := newFakeEngine()
	eng.block = make(chan struct{})
	l := New(eng, Config{JoinTimeout: 5 * time.Millisecond, Logger: quietLogger()})
	if err := l.SurfaceCreated("surface-1"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "frame in flight", func() bool { return eng.entered.Load() > 0 })
	if err := l.SurfaceDestroyed(); !errors.Is(err, ErrRenderStuck) {
		t.Fatalf("SurfaceDestroyed() = %v, want ErrRenderStuck", err)
	}

	// The new surface arrives while the frame is still stuck.
	l.SurfaceChanged(320, 240)
	if err := l.SurfaceCreated("surface-2"); !errors.Is(err, ErrRenderStuck) {
		t.Fatalf("SurfaceCreated() = %v, want ErrRenderStuck", err)
	}
	if got := eng.count("set-window"); got != 1 {
		t.Errorf("SetWindow called %d times under a stuck frame", got)
	}

	close(eng.block)
	waitFor(t, "stuck frame to return", func() bool { return !l.RenderAlive() })
	if err := l.Resume(); err != nil {
		t.Fatal(err)
	}
	if got := l.State(); got != Running {
		t.Fatalf("State() = %s, want running", got)
	}
	if eng.count("destroy-window") != 1 || eng.count("set-window") != 2 {
		t.Errorf("calls = %v", eng.calls)
	}
	frames := eng.frames.Load()
	waitFor(t, "frames after recovery", func() bool { return eng.frames.Load() > frames+1 })
	if p := eng.lastFrame.Load(); p == nil || *p != "surface-2" {
		t.Errorf("frames rendered on %v, want surface-2", p)
	}
	l.Destroy()
}

func TestLeakedSurfaceReplacedOnCreate(t *testing.T) {
	eng := newFakeEngine()
	eng.block = make(chan struct{})
	l := New(eng, Config{JoinTimeout: 5 * time.Millisecond, Logger: quietLogger()})
	if err := l.SurfaceCreated("surface-1"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "frame in flight", func() bool { return eng.entered.Load() > 0 })
	if err := l.SurfaceDestroyed(); !errors.Is(err, ErrRenderStuck) {
		t.Fatalf("SurfaceDestroyed() = %v, want ErrRenderStuck", err)
	}
	close(eng.block)
	waitFor(t, "stuck frame to return", func() bool { return !l.RenderAlive() })

	// Not a duplicate: the bound surface is gone.
	if err := l.SurfaceCreated("surface-2"); err != nil {
		t.Fatal(err)
	}
	if got := l.State(); got != Running {
		t.Fatalf("State() = %s, want running", got)
	}
	frames := eng.frames.Load()
	waitFor(t, "frames on the new surface", func() bool { return eng.frames.Load() > frames+1 })
	if p := eng.lastFrame.Load(); p == nil || *p != "surface-2" {
		t.Errorf("frames rendered on %v, want surface-2", p)
	}
	if n := eng.violations.Load(); n != 0 {
		t.Errorf("%d frames ran without a window", n)
	}
	l.Destroy()
}

func TestRenderStopsWhenEngineStops(t *testing.T) {
	eng := newFakeEngine()
	l := startRunning(t, eng, Config{})
	eng.init.Store(false)
	waitFor(t, "render exit", func() bool { return !l.RenderAlive() })
	if got := l.State(); got != Running {
		t.Errorf("State() = %s, want running", got)
	}
	l.Destroy()
}

func TestResolutionEvents(t *testing.T) {
	eng := newFakeEngine()
	q := event.NewQueue(8)
	l := New(eng, Config{Events: q, Logger: quietLogger()})

	l.SurfaceChanged(640, 480)
	if q.Len() != 0 {
		t.Fatal("resolution pushed without a surface")
	}
	l.Pause()
	l.SurfaceCreated("surface-1")
	l.SurfaceChanged(480, 640)

	var got []event.Event
	q.Drain(func(e event.Event) { got = append(got, e) })
	want := []event.Event{
		{Kind: event.Resolution, A: 640, B: 480},
		{Kind: event.Resolution, A: 480, B: 640},
	}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("events = %v, want %v", got, want)
	}
	if len(eng.sizes) != 2 {
		t.Errorf("Resize calls = %v", eng.sizes)
	}
	l.Destroy()
}

func TestTransitions(t *testing.T) {
	tests := []struct {
		from, to State
		ok       bool
	}{
		{Uninitialized, Initializing, true},
		{Initializing, Running, true},
		{Initializing, Uninitialized, true},
		{Running, Paused, true},
		{Paused, Running, true},
		{Paused, ShuttingDown, true},
		{ShuttingDown, Destroyed, true},
		{Uninitialized, Running, false},
		{Destroyed, Uninitialized, false},
		{Running, Destroyed, false},
	}
	for _, tt := range tests {
		if got := canTransition(tt.from, tt.to); got != tt.ok {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.ok)
		}
	}
}
