package player

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/cwbudde/algo-player/internal/testutil"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1700000000, 0)}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.t = c.t.Add(d)
}

func newTestProcessor(t *testing.T, sampleRate float64) (*Processor, *fakeClock) {
	t.Helper()

	p := New(sampleRate)
	clock := newFakeClock()
	p.now = clock.now

	if err := p.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	t.Cleanup(func() { _ = p.Destroy() })

	return p, clock
}

func loadConstantBuffer(t *testing.T, p *Processor, frames int, amplitude float64, opts ...LoadOption) *Buffer {
	t.Helper()

	b, err := NewBuffer(p.SampleRate(), [][]float64{testutil.DC(amplitude, frames)})
	if err != nil {
		t.Fatalf("NewBuffer() error = %v", err)
	}

	if err := p.LoadBuffer(b, opts...); err != nil {
		t.Fatalf("LoadBuffer() error = %v", err)
	}

	return b
}

func TestInitializeIdempotent(t *testing.T) {
	p, _ := newTestProcessor(t, 44100)

	if err := p.Initialize(); err != nil {
		t.Errorf("second Initialize() error = %v, want nil", err)
	}
}

func TestInitializeFailureIsTyped(t *testing.T) {
	p := New(0) // invalid rate: graph construction must fail

	err := p.Initialize()

	var initErr *InitError
	if !errors.As(err, &initErr) {
		t.Fatalf("Initialize() error = %v, want *InitError", err)
	}

	// Not ready: every other operation refuses cleanly.
	if err := p.Play(); !errors.Is(err, ErrNotReady) {
		t.Errorf("Play() before init error = %v, want ErrNotReady", err)
	}

	if err := p.UpdateSettings(DefaultSettings()); !errors.Is(err, ErrNotReady) {
		t.Errorf("UpdateSettings() before init error = %v, want ErrNotReady", err)
	}
}

func TestLoadBufferErrors(t *testing.T) {
	p, _ := newTestProcessor(t, 44100)
	prev := loadConstantBuffer(t, p, 4410, 0.5)

	var loadErr *LoadError

	if err := p.LoadBuffer(nil); !errors.As(err, &loadErr) {
		t.Errorf("LoadBuffer(nil) error = %v, want *LoadError", err)
	}

	mismatched, err := NewBuffer(48000, [][]float64{testutil.DC(0.1, 480)})
	if err != nil {
		t.Fatal(err)
	}

	if err := p.LoadBuffer(mismatched); !errors.As(err, &loadErr) {
		t.Errorf("LoadBuffer(rate mismatch) error = %v, want *LoadError", err)
	}

	// The previous buffer is retained unchanged after both failures.
	if got, want := p.Duration(), prev.Duration(); got != want {
		t.Errorf("Duration() after failed load = %v, want %v", got, want)
	}
}

func TestPlayWithoutBufferIsSilentNoop(t *testing.T) {
	p, _ := newTestProcessor(t, 44100)

	if err := p.Play(); err != nil {
		t.Errorf("Play() without buffer error = %v, want nil", err)
	}

	if p.IsPlaying() {
		t.Error("IsPlaying() = true after no-op Play")
	}
}

func TestDurationWithoutBuffer(t *testing.T) {
	p, _ := newTestProcessor(t, 44100)

	if got := p.Duration(); got != 0 {
		t.Errorf("Duration() = %v, want 0", got)
	}
}

func TestTransportPlayPauseResume(t *testing.T) {
	p, clock := newTestProcessor(t, 8000)
	loadConstantBuffer(t, p, 16000, 0.5) // 2 seconds

	if err := p.Play(); err != nil {
		t.Fatalf("Play() error = %v", err)
	}

	if !p.IsPlaying() || p.State() != Playing {
		t.Fatal("not in Playing state after Play")
	}

	clock.advance(500 * time.Millisecond)

	if got := p.CurrentTime(); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("CurrentTime() while playing = %v, want 0.5", got)
	}

	if err := p.Pause(); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}

	if p.State() != Paused {
		t.Errorf("State() = %v, want Paused", p.State())
	}

	if got := p.CurrentTime(); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("CurrentTime() while paused = %v, want 0.5", got)
	}

	// The clock keeps running while paused; position must not move.
	clock.advance(3 * time.Second)
	if got := p.CurrentTime(); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("CurrentTime() after pause dwell = %v, want 0.5", got)
	}

	// Resume continues from the paused offset.
	if err := p.Play(); err != nil {
		t.Fatalf("resume Play() error = %v", err)
	}

	clock.advance(250 * time.Millisecond)

	if got := p.CurrentTime(); math.Abs(got-0.75) > 1e-9 {
		t.Errorf("CurrentTime() after resume = %v, want 0.75", got)
	}
}

func TestPlayThenImmediatePause(t *testing.T) {
	p, _ := newTestProcessor(t, 8000)
	loadConstantBuffer(t, p, 16000, 0.5)

	if err := p.Play(); err != nil {
		t.Fatal(err)
	}

	if err := p.Pause(); err != nil {
		t.Fatal(err)
	}

	// No fake-clock advance between Play and Pause: offset is exactly 0.
	if got := p.CurrentTime(); got != 0 {
		t.Errorf("CurrentTime() = %v, want 0", got)
	}
}

func TestStopFromAnyState(t *testing.T) {
	states := []struct {
		name    string
		prepare func(t *testing.T, p *Processor, clock *fakeClock)
	}{
		{"from stopped", func(t *testing.T, p *Processor, clock *fakeClock) {}},
		{"from playing", func(t *testing.T, p *Processor, clock *fakeClock) {
			if err := p.Play(); err != nil {
				t.Fatal(err)
			}
			clock.advance(time.Second)
		}},
		{"from paused", func(t *testing.T, p *Processor, clock *fakeClock) {
			if err := p.Play(); err != nil {
				t.Fatal(err)
			}
			clock.advance(time.Second)
			if err := p.Pause(); err != nil {
				t.Fatal(err)
			}
		}},
	}

	for _, tt := range states {
		t.Run(tt.name, func(t *testing.T) {
			p, clock := newTestProcessor(t, 8000)
			loadConstantBuffer(t, p, 16000, 0.5)
			tt.prepare(t, p, clock)

			if err := p.Stop(); err != nil {
				t.Fatalf("Stop() error = %v", err)
			}

			if got := p.CurrentTime(); got != 0 {
				t.Errorf("CurrentTime() after Stop = %v, want 0", got)
			}

			if p.IsPlaying() {
				t.Error("IsPlaying() = true after Stop")
			}
		})
	}
}

func TestPlayWhilePlayingIsNoop(t *testing.T) {
	p, clock := newTestProcessor(t, 8000)
	loadConstantBuffer(t, p, 16000, 0.5)

	if err := p.Play(); err != nil {
		t.Fatal(err)
	}

	clock.advance(time.Second)

	// A second Play while playing must not re-anchor the clock.
	if err := p.Play(); err != nil {
		t.Fatal(err)
	}

	if got := p.CurrentTime(); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("CurrentTime() = %v, want 1.0", got)
	}
}

func TestPauseClampsToDuration(t *testing.T) {
	p, clock := newTestProcessor(t, 8000)
	loadConstantBuffer(t, p, 8000, 0.5) // 1 second

	if err := p.Play(); err != nil {
		t.Fatal(err)
	}

	// External pollers may pause well past the end; the stored offset is
	// clamped to the buffer duration.
	clock.advance(5 * time.Second)

	if err := p.Pause(); err != nil {
		t.Fatal(err)
	}

	if got := p.CurrentTime(); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("CurrentTime() = %v, want 1.0 (clamped)", got)
	}
}

func TestLoadBufferInvalidatesPlayback(t *testing.T) {
	p, clock := newTestProcessor(t, 8000)
	loadConstantBuffer(t, p, 16000, 0.5)

	if err := p.Play(); err != nil {
		t.Fatal(err)
	}

	clock.advance(time.Second)
	loadConstantBuffer(t, p, 8000, 0.25)

	if p.IsPlaying() {
		t.Error("IsPlaying() = true after buffer replacement")
	}

	if got := p.CurrentTime(); got != 0 {
		t.Errorf("CurrentTime() after buffer replacement = %v, want 0", got)
	}
}

func TestEndToEnd(t *testing.T) {
	p, clock := newTestProcessor(t, 8000)
	loadConstantBuffer(t, p, 8000, 0.5)

	env := p.Envelope()
	if len(env) != EnvelopeLength {
		t.Fatalf("len(Envelope()) = %d, want %d", len(env), EnvelopeLength)
	}

	testutil.RequireSliceNearlyEqual(t, env, testutil.DC(0.5, EnvelopeLength), 1e-12)

	if got := p.Duration(); math.Abs(got-1.0) > 1e-12 {
		t.Errorf("Duration() = %v, want 1.0", got)
	}

	if err := p.Play(); err != nil {
		t.Fatal(err)
	}

	clock.advance(time.Second)

	if err := p.Pause(); err != nil {
		t.Fatal(err)
	}

	if got := p.CurrentTime(); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("CurrentTime() at pause = %v, want ~1.0", got)
	}

	if err := p.Play(); err != nil {
		t.Fatal(err)
	}

	if got := p.CurrentTime(); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("CurrentTime() on resume = %v, want ~1.0", got)
	}
}

func TestUpdateSettingsIdempotent(t *testing.T) {
	p, _ := newTestProcessor(t, 44100)

	s := Settings{BassBoost: 80, LowFreq: 20, MidFreq: 70, HighFreq: 90,
		Saturation: 10, Compression: 55, Gain: 60, Enabled: true}

	if err := p.UpdateSettings(s); err != nil {
		t.Fatal(err)
	}

	first := p.graph.params

	if err := p.UpdateSettings(s); err != nil {
		t.Fatal(err)
	}

	if p.graph.params != first {
		t.Errorf("stage params changed on second update: %+v vs %+v", p.graph.params, first)
	}
}

func TestUpdateSettingsClampsStored(t *testing.T) {
	p, _ := newTestProcessor(t, 44100)

	if err := p.UpdateSettings(Settings{BassBoost: 500, Gain: -10, Enabled: true}); err != nil {
		t.Fatal(err)
	}

	got := p.Settings()
	if got.BassBoost != 100 || got.Gain != 0 {
		t.Errorf("Settings() = %+v, want clamped BassBoost=100, Gain=0", got)
	}
}

func TestLevelFromFrame(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
		want  float64
	}{
		{"all zero", make([]byte, 1024), 0},
		{"all max", func() []byte {
			f := make([]byte, 1024)
			for i := range f {
				f[i] = 255
			}
			return f
		}(), 100},
		{"half", func() []byte {
			f := make([]byte, 2)
			f[0] = 255
			return f
		}(), 50},
		{"empty", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := levelFromFrame(tt.frame)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("levelFromFrame() = %v, want %v", got, tt.want)
			}

			if got < 0 || got > 100 {
				t.Errorf("levelFromFrame() = %v, out of [0, 100]", got)
			}
		})
	}
}

func TestLevelSilenceIsZero(t *testing.T) {
	p, _ := newTestProcessor(t, 44100)

	if got := p.Level(); got != 0 {
		t.Errorf("Level() with no audio = %v, want 0", got)
	}
}

func TestSpectrumFrameFreshPerCall(t *testing.T) {
	p, _ := newTestProcessor(t, 44100)

	a := p.SpectrumFrame()
	b := p.SpectrumFrame()

	if len(a) != 1024 || len(b) != 1024 {
		t.Fatalf("frame lengths = %d, %d, want 1024", len(a), len(b))
	}

	if &a[0] == &b[0] {
		t.Error("SpectrumFrame() returned a cached slice")
	}
}

func TestEndedCallbackFiresOnce(t *testing.T) {
	p := New(8000)
	if err := p.Initialize(); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = p.Destroy() }()

	ended := make(chan struct{}, 2)

	b, err := NewBuffer(8000, [][]float64{testutil.DC(0.5, 80)}) // 10 ms
	if err != nil {
		t.Fatal(err)
	}

	if err := p.LoadBuffer(b, WithEndedCallback(func() { ended <- struct{}{} })); err != nil {
		t.Fatal(err)
	}

	if err := p.Play(); err != nil {
		t.Fatal(err)
	}

	select {
	case <-ended:
	case <-time.After(2 * time.Second):
		t.Fatal("ended callback not fired")
	}

	// Exactly once: no second event arrives.
	select {
	case <-ended:
		t.Fatal("ended callback fired more than once")
	case <-time.After(100 * time.Millisecond):
	}

	// Auto-stop is external: the transport still reports Playing.
	if !p.IsPlaying() {
		t.Error("transport auto-stopped; auto-stop must be external")
	}
}

func TestOutputSinkReceivesAllFrames(t *testing.T) {
	p := New(8000)
	if err := p.Initialize(); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = p.Destroy() }()

	var (
		mu    sync.Mutex
		count int
	)

	ended := make(chan struct{}, 1)

	b, err := NewBuffer(8000, [][]float64{testutil.DC(0.5, 800)}) // 100 ms
	if err != nil {
		t.Fatal(err)
	}

	err = p.LoadBuffer(b,
		WithOutputSink(func(block []float64) {
			mu.Lock()
			count += len(block)
			mu.Unlock()
		}),
		WithEndedCallback(func() { ended <- struct{}{} }),
	)
	if err != nil {
		t.Fatal(err)
	}

	if err := p.Play(); err != nil {
		t.Fatal(err)
	}

	select {
	case <-ended:
	case <-time.After(2 * time.Second):
		t.Fatal("playback did not complete")
	}

	mu.Lock()
	defer mu.Unlock()

	if count != 800 {
		t.Errorf("sink received %d frames, want 800", count)
	}
}

func TestDestroy(t *testing.T) {
	p, _ := newTestProcessor(t, 8000)
	loadConstantBuffer(t, p, 16000, 0.5)

	if err := p.Play(); err != nil {
		t.Fatal(err)
	}

	if err := p.Destroy(); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}

	if err := p.Destroy(); err != nil {
		t.Errorf("second Destroy() error = %v, want nil (idempotent)", err)
	}

	if err := p.Play(); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Play() after Destroy error = %v, want ErrDestroyed", err)
	}

	if err := p.Initialize(); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Initialize() after Destroy error = %v, want ErrDestroyed", err)
	}

	if got := p.CurrentTime(); got != 0 {
		t.Errorf("CurrentTime() after Destroy = %v, want 0", got)
	}

	if got := p.SpectrumFrame(); got != nil {
		t.Errorf("SpectrumFrame() after Destroy = %v, want nil", got)
	}
}

func TestMeteringInterleavesWithUpdates(t *testing.T) {
	p, _ := newTestProcessor(t, 8000)
	loadConstantBuffer(t, p, 80000, 0.5)

	if err := p.Play(); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)

		for i := 0; i < 50; i++ {
			s := DefaultSettings()
			s.MidFreq = float64(i * 2)
			if err := p.UpdateSettings(s); err != nil {
				t.Errorf("UpdateSettings() error = %v", err)
				return
			}
		}
	}()

	for i := 0; i < 50; i++ {
		if lvl := p.Level(); lvl < 0 || lvl > 100 {
			t.Fatalf("Level() = %v, out of [0, 100]", lvl)
		}

		_ = p.SpectrumFrame()
	}

	<-done

	if err := p.Stop(); err != nil {
		t.Fatal(err)
	}
}
