package player

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cwbudde/algo-player/dsp/buffer"
)

// State is the transport state of a Processor.
type State int

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// LoadOption configures a LoadBuffer call.
type LoadOption func(*loadConfig)

type loadConfig struct {
	onEnded func()
	sink    func([]float64)
}

// WithEndedCallback registers fn to be invoked exactly once when the loaded
// buffer plays to completion. It is not invoked on Pause, Stop, or buffer
// replacement. fn runs on the playback goroutine and must not block.
func WithEndedCallback(fn func()) LoadOption {
	return func(c *loadConfig) {
		c.onEnded = fn
	}
}

// WithOutputSink registers fn to receive each processed block during
// playback. The slice is reused between calls; fn must copy anything it
// wants to keep and must not call back into the Processor.
func WithOutputSink(fn func(block []float64)) LoadOption {
	return func(c *loadConfig) {
		c.sink = fn
	}
}

// playbackUnit is one non-reusable playback run. Closing cancel stops the
// pump; done is closed when the pump goroutine has exited.
type playbackUnit struct {
	cancel chan struct{}
	done   chan struct{}
}

// Processor owns the processing graph, the transport state machine, and the
// metering surface. Exactly one graph exists per Processor lifetime: it is
// built by Initialize, reparameterized by UpdateSettings, and released by
// Destroy. All methods are safe for concurrent use.
type Processor struct {
	mu sync.Mutex

	sampleRate float64
	graph      *graph
	settings   Settings

	buf      *Buffer
	mono     []float64
	envelope []float64
	onEnded  func()
	sink     func([]float64)

	state        State
	anchor       time.Time
	pausedOffset float64 // seconds

	unit *playbackUnit

	pool         *buffer.Pool
	frameScratch []byte

	destroyed bool
	now       func() time.Time
}

// New creates a Processor for the given sample rate. The graph is not built
// until Initialize is called.
func New(sampleRate float64) *Processor {
	return &Processor{
		sampleRate: sampleRate,
		settings:   DefaultSettings(),
		pool:       buffer.NewPool(),
		now:        time.Now,
	}
}

// SampleRate returns the processor sample rate in Hz.
func (p *Processor) SampleRate() float64 { return p.sampleRate }

// Initialize builds the processing graph. It is idempotent: calling it
// again while already initialized is a no-op. On failure it returns an
// InitError and the processor stays not-ready.
func (p *Processor) Initialize() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.destroyed {
		return ErrDestroyed
	}

	if p.graph != nil {
		return nil
	}

	g, err := newGraph(p.sampleRate)
	if err != nil {
		return &InitError{Err: err}
	}

	if err := g.apply(mapSettings(p.settings)); err != nil {
		return &InitError{Err: err}
	}

	p.graph = g
	p.frameScratch = make([]byte, g.an.BinCount())

	return nil
}

// LoadBuffer replaces the loaded buffer. Any in-progress playback is torn
// down and the transport resets to Stopped. On failure the previous buffer
// is retained unchanged.
func (p *Processor) LoadBuffer(b *Buffer, opts ...LoadOption) error {
	p.mu.Lock()

	if err := p.readyLocked(); err != nil {
		p.mu.Unlock()
		return err
	}

	if b == nil {
		p.mu.Unlock()
		return &LoadError{Err: errors.New("nil buffer")}
	}

	if b.SampleRate() != p.sampleRate {
		p.mu.Unlock()
		return &LoadError{Err: fmt.Errorf("buffer sample rate %g does not match processor rate %g",
			b.SampleRate(), p.sampleRate)}
	}

	var cfg loadConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	u := p.detachUnitLocked()

	p.buf = b
	p.mono = b.monoMix()
	p.envelope = ExtractEnvelope(b)
	p.onEnded = cfg.onEnded
	p.sink = cfg.sink

	p.state = Stopped
	p.anchor = time.Time{}
	p.pausedOffset = 0
	p.graph.reset()

	p.mu.Unlock()
	waitUnit(u)

	return nil
}

// UpdateSettings recomputes every stage parameter from s. Out-of-range
// values are clamped, never rejected. The update is idempotent: applying
// the same settings twice yields identical stage parameters.
func (p *Processor) UpdateSettings(s Settings) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.readyLocked(); err != nil {
		return err
	}

	if err := p.graph.apply(mapSettings(s)); err != nil {
		return err
	}

	p.settings = s.clamped()

	return nil
}

// Settings returns the last applied settings, clamped to [0, 100].
func (p *Processor) Settings() Settings {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.settings
}

// Play starts or resumes playback. With no buffer loaded it is a silent
// no-op; callers are expected to check readiness themselves. A fresh,
// non-reusable playback unit is started at the paused offset.
func (p *Processor) Play() error {
	p.mu.Lock()

	if err := p.readyLocked(); err != nil {
		p.mu.Unlock()
		return err
	}

	if p.buf == nil || p.state == Playing {
		p.mu.Unlock()
		return nil
	}

	offset := p.pausedOffset
	p.anchor = p.now().Add(-time.Duration(offset * float64(time.Second)))
	p.pausedOffset = 0
	p.state = Playing

	old := p.detachUnitLocked()

	u := &playbackUnit{
		cancel: make(chan struct{}),
		done:   make(chan struct{}),
	}
	p.unit = u

	mono := p.mono
	startFrame := int(offset * p.sampleRate)

	p.mu.Unlock()
	waitUnit(old)

	go p.pump(u, mono, startFrame)

	return nil
}

// Pause halts playback and stores the elapsed position. The playback unit
// is discarded; a new one is created on the next Play.
func (p *Processor) Pause() error {
	p.mu.Lock()

	if err := p.readyLocked(); err != nil {
		p.mu.Unlock()
		return err
	}

	if p.state != Playing {
		p.mu.Unlock()
		return nil
	}

	elapsed := p.now().Sub(p.anchor).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}

	if d := p.durationLocked(); d > 0 && elapsed > d {
		elapsed = d
	}

	p.pausedOffset = elapsed
	p.state = Paused

	u := p.detachUnitLocked()

	p.mu.Unlock()
	waitUnit(u)

	return nil
}

// Stop halts playback from any state and resets the position to zero.
func (p *Processor) Stop() error {
	p.mu.Lock()

	if err := p.readyLocked(); err != nil {
		p.mu.Unlock()
		return err
	}

	p.state = Stopped
	p.anchor = time.Time{}
	p.pausedOffset = 0

	u := p.detachUnitLocked()
	p.graph.reset()

	p.mu.Unlock()
	waitUnit(u)

	return nil
}

// CurrentTime returns the playback position in seconds: wall clock minus
// the anchor while playing, the paused offset otherwise.
func (p *Processor) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.destroyed || p.graph == nil {
		return 0
	}

	if p.state == Playing {
		elapsed := p.now().Sub(p.anchor).Seconds()
		if elapsed < 0 {
			return 0
		}

		return elapsed
	}

	return p.pausedOffset
}

// Duration returns the loaded buffer length in seconds, or 0 with no
// buffer loaded.
func (p *Processor) Duration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.durationLocked()
}

// IsPlaying reports whether the transport is in the Playing state.
func (p *Processor) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state == Playing
}

// State returns the current transport state.
func (p *Processor) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state
}

// Level pulls one fresh spectrum snapshot and reduces it to a level in
// [0, 100]: mean bin magnitude over the full byte scale.
func (p *Processor) Level() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.destroyed || p.graph == nil {
		return 0
	}

	return levelFromFrame(p.graph.an.Frame(p.frameScratch))
}

// levelFromFrame reduces one spectrum frame to a level in [0, 100].
func levelFromFrame(frame []byte) float64 {
	if len(frame) == 0 {
		return 0
	}

	sum := 0
	for _, v := range frame {
		sum += int(v)
	}

	return float64(sum) / float64(len(frame)) / 255 * 100
}

// SpectrumFrame returns one fresh spectrum snapshot: a fixed-length slice
// of per-bin magnitudes scaled 0..255. Nothing is cached between calls;
// the caller owns the returned slice. Returns nil when not ready.
func (p *Processor) SpectrumFrame() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.destroyed || p.graph == nil {
		return nil
	}

	return p.graph.an.Frame(make([]byte, p.graph.an.BinCount()))
}

// Envelope returns the waveform envelope of the loaded buffer, or nil with
// no buffer loaded. The slice is owned by the processor and must not be
// modified; it is replaced wholesale on the next LoadBuffer.
func (p *Processor) Envelope() []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.envelope
}

// ResponseCurveDB returns the EQ magnitude response in dB at the given
// frequencies, for visualization. Returns nil when not ready.
func (p *Processor) ResponseCurveDB(freqs []float64) []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.destroyed || p.graph == nil {
		return nil
	}

	return p.graph.responseCurveDB(freqs)
}

// Destroy halts any active playback and releases the graph. Destroy is
// idempotent; every other operation invoked afterwards returns
// ErrDestroyed.
func (p *Processor) Destroy() error {
	p.mu.Lock()

	if p.destroyed {
		p.mu.Unlock()
		return nil
	}

	p.destroyed = true
	p.state = Stopped
	p.pausedOffset = 0

	u := p.detachUnitLocked()

	p.graph = nil
	p.buf = nil
	p.mono = nil
	p.envelope = nil
	p.onEnded = nil
	p.sink = nil

	p.mu.Unlock()
	waitUnit(u)

	return nil
}

func (p *Processor) readyLocked() error {
	if p.destroyed {
		return ErrDestroyed
	}

	if p.graph == nil {
		return ErrNotReady
	}

	return nil
}

func (p *Processor) durationLocked() float64 {
	if p.buf == nil {
		return 0
	}

	return p.buf.Duration()
}

// detachUnitLocked disowns the active playback unit and signals it to
// cancel. The caller must wait for the unit outside the lock: the pump
// takes the same mutex per block, so waiting under the lock would deadlock.
func (p *Processor) detachUnitLocked() *playbackUnit {
	u := p.unit
	if u != nil {
		close(u.cancel)
		p.unit = nil
	}

	return u
}

func waitUnit(u *playbackUnit) {
	if u != nil {
		<-u.done
	}
}

// pump is the playback unit goroutine. It paces mono through the graph in
// wall-clock time, so the analyser and level meter track the audible
// position. The processed output is handed to the sink when one is set.
func (p *Processor) pump(u *playbackUnit, mono []float64, startFrame int) {
	defer close(u.done)

	const (
		tick     = 10 * time.Millisecond
		maxChunk = 4096
	)

	total := len(mono)
	if startFrame >= total {
		p.finishUnit(u)
		return
	}

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	start := time.Now()
	pos := startFrame

	var sinkScratch []float64

	for {
		select {
		case <-u.cancel:
			return
		case <-ticker.C:
			target := startFrame + int(time.Since(start).Seconds()*p.sampleRate)
			if target > total {
				target = total
			}

			for pos < target {
				n := target - pos
				if n > maxChunk {
					n = maxChunk
				}

				if !p.processChunk(u, mono[pos:pos+n], &sinkScratch) {
					return
				}

				pos += n
			}

			if pos >= total {
				p.finishUnit(u)
				return
			}
		}
	}
}

// processChunk runs one block through the graph. Returns false when the
// unit has been detached and the pump should exit.
func (p *Processor) processChunk(u *playbackUnit, src []float64, sinkScratch *[]float64) bool {
	p.mu.Lock()

	if p.unit != u || p.graph == nil {
		p.mu.Unlock()
		return false
	}

	blk := p.pool.Get(len(src))
	copy(blk.Samples(), src)
	p.graph.process(blk.Samples())

	sink := p.sink

	var out []float64
	if sink != nil {
		if cap(*sinkScratch) < len(src) {
			*sinkScratch = make([]float64, len(src))
		}

		out = (*sinkScratch)[:len(src)]
		copy(out, blk.Samples())
	}

	p.pool.Put(blk)
	p.mu.Unlock()

	// The sink runs off-lock so user code cannot deadlock the processor.
	if sink != nil {
		sink(out)
	}

	return true
}

// finishUnit fires the ended callback exactly once when a unit plays to
// completion. The transport state is not changed: auto-stop is the
// caller's responsibility.
func (p *Processor) finishUnit(u *playbackUnit) {
	p.mu.Lock()

	var cb func()
	if p.unit == u {
		cb = p.onEnded
	}

	p.mu.Unlock()

	if cb != nil {
		cb()
	}
}
