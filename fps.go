package spritegrid

import "time"

// FPSMeter tracks the rendered frame rate. Tick is called once per
// presented frame; Rate reports frames per second, resampled roughly
// twice a second so the number is readable rather than jittering every
// frame.
type FPSMeter struct {
	frames    int
	lastReset time.Time
	rate      float64
	now       func() time.Time
}

func NewFPSMeter() *FPSMeter {
	return &FPSMeter{now: time.Now}
}

// Tick records one presented frame.
func (f *FPSMeter) Tick() {
	now := f.now()
	if f.lastReset.IsZero() {
		f.lastReset = now
	}
	f.frames++
	elapsed := now.Sub(f.lastReset)
	if elapsed >= 500*time.Millisecond {
		f.rate = float64(f.frames) / elapsed.Seconds()
		f.frames = 0
		f.lastReset = now
	}
}

// Rate returns the most recent sampled frames-per-second value. It is
// zero until the first sample window completes.
func (f *FPSMeter) Rate() float64 { return f.rate }
