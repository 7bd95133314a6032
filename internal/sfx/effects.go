// internal/sfx/effects.go
//
// Synthesized sound effects for game events.
// Responsibilities:
//   - Oscillators (sine, square, saw, noise) shaped by attack/release envelopes.
//   - One recipe per Sound, mixed or sequenced with beep.
//
// Notes:
//   - Noise uses a fixed-seed PCG so every render of a Sound is identical.

package sfx

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
)

// Sound names a game event effect.
type Sound string

const (
	SoundMove     Sound = "move"
	SoundLand     Sound = "land"
	SoundExplode  Sound = "explode"
	SoundInvalid  Sound = "invalid"
	SoundGameOver Sound = "gameover"
)

// Sounds lists every effect.
func Sounds() []Sound {
	return []Sound{SoundMove, SoundLand, SoundExplode, SoundInvalid, SoundGameOver}
}

// ParseSound maps a name to its Sound.
func ParseSound(name string) (Sound, bool) {
	for _, s := range Sounds() {
		if string(s) == name {
			return s, true
		}
	}
	return "", false
}

// Config controls rendering.
type Config struct {
	SampleRate beep.SampleRate
	Volume     float64 // master volume, 0-1
}

// DefaultConfig renders at 44.1kHz and 60% volume.
func DefaultConfig() Config {
	return Config{SampleRate: beep.SampleRate(44100), Volume: 0.6}
}

// WaveType defines oscillator wave shapes
type WaveType int

const (
	WaveSine WaveType = iota
	WaveSquare
	WaveSaw
	WaveNoise
)

type oscillator struct {
	freq     float64
	phase    float64
	duration int
	position int
	wave     WaveType
	rate     beep.SampleRate
	rng      *rand.Rand
}

func newOscillator(freq float64, d time.Duration, wave WaveType, rate beep.SampleRate) beep.Streamer {
	o := &oscillator{freq: freq, duration: rate.N(d), wave: wave, rate: rate}
	if wave == WaveNoise {
		o.rng = rand.New(rand.NewPCG(0x5eed, uint64(freq)))
	}
	return o
}

func (o *oscillator) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if o.position >= o.duration {
			return i, i > 0
		}

		var val float64
		switch o.wave {
		case WaveSine:
			val = math.Sin(2 * math.Pi * o.phase)
		case WaveSquare:
			if o.phase < 0.5 {
				val = 1.0
			} else {
				val = -1.0
			}
		case WaveSaw:
			val = 2.0 * (o.phase - 0.5)
		case WaveNoise:
			val = o.rng.Float64()*2 - 1
		}
		samples[i][0] = val
		samples[i][1] = val

		o.phase += o.freq / float64(o.rate)
		o.phase -= math.Floor(o.phase) // keep in [0, 1)
		o.position++
	}
	return len(samples), true
}

func (o *oscillator) Err() error { return nil }

// envelope applies a linear attack and release to a stream.
type envelope struct {
	streamer       beep.Streamer
	position       int
	attackSamples  int
	releaseSamples int
	totalSamples   int
}

func newEnvelope(s beep.Streamer, d, attack, release time.Duration, rate beep.SampleRate) beep.Streamer {
	return &envelope{
		streamer:       s,
		attackSamples:  rate.N(attack),
		releaseSamples: rate.N(release),
		totalSamples:   rate.N(d),
	}
}

func (e *envelope) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = e.streamer.Stream(samples)
	releaseStart := e.totalSamples - e.releaseSamples
	for i := 0; i < n; i++ {
		if e.position >= e.totalSamples {
			return i, i > 0
		}
		vol := 1.0
		if e.position < e.attackSamples && e.attackSamples > 0 {
			vol = float64(e.position) / float64(e.attackSamples)
		}
		if e.position >= releaseStart && e.releaseSamples > 0 {
			vol = max(float64(e.totalSamples-e.position)/float64(e.releaseSamples), 0)
		}
		samples[i][0] *= vol
		samples[i][1] *= vol
		e.position++
	}
	return n, ok
}

func (e *envelope) Err() error { return e.streamer.Err() }

// math.Log2(0) is -Inf, so zero volume is rendered silent
func newVolume(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Volume: 0, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(vol), Silent: false}
}

func tone(freq float64, d time.Duration, wave WaveType, rate beep.SampleRate) beep.Streamer {
	attack := min(5*time.Millisecond, d/4)
	return newEnvelope(newOscillator(freq, d, wave, rate), d, attack, d/2, rate)
}

// Effect builds the streamer for s.
func Effect(s Sound, cfg Config) (beep.Streamer, error) {
	rate := cfg.SampleRate
	var st beep.Streamer
	switch s {
	case SoundMove:
		st = tone(660, 60*time.Millisecond, WaveSquare, rate)
	case SoundLand:
		st = beep.Mix(
			newVolume(tone(440, 90*time.Millisecond, WaveSine, rate), 0.8),
			newVolume(tone(880, 90*time.Millisecond, WaveSine, rate), 0.2),
		)
	case SoundExplode:
		d := 350 * time.Millisecond
		st = beep.Mix(
			newVolume(newEnvelope(newOscillator(0, d, WaveNoise, rate), d, 2*time.Millisecond, 300*time.Millisecond, rate), 0.7),
			newVolume(tone(80, d, WaveSaw, rate), 0.4),
		)
	case SoundInvalid:
		st = tone(110, 150*time.Millisecond, WaveSaw, rate)
	case SoundGameOver:
		st = beep.Seq(
			tone(523.25, 180*time.Millisecond, WaveSquare, rate),
			tone(392.00, 180*time.Millisecond, WaveSquare, rate),
			tone(261.63, 360*time.Millisecond, WaveSquare, rate),
		)
	default:
		return nil, fmt.Errorf("sfx: unknown sound %q", s)
	}
	return newVolume(st, cfg.Volume), nil
}
