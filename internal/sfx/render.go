package sfx

import (
	"errors"
	"io"
	"sync"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
)

// Render encodes s as 16-bit mono WAV.
func Render(s Sound, cfg Config) ([]byte, error) {
	st, err := Effect(s, cfg)
	if err != nil {
		return nil, err
	}
	var f memFile
	format := beep.Format{SampleRate: cfg.SampleRate, NumChannels: 1, Precision: 2}
	if err := wav.Encode(&f, st, format); err != nil {
		return nil, err
	}
	return f.buf, nil
}

// Bank renders each effect once and serves the cached bytes afterwards.
type Bank struct {
	cfg  Config
	mu   sync.Mutex
	wavs map[Sound][]byte
}

func NewBank(cfg Config) *Bank {
	return &Bank{cfg: cfg, wavs: make(map[Sound][]byte)}
}

// WAV returns the encoded effect. Callers must not modify the slice.
func (b *Bank) WAV(s Sound) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if data, ok := b.wavs[s]; ok {
		return data, nil
	}
	data, err := Render(s, b.cfg)
	if err != nil {
		return nil, err
	}
	b.wavs[s] = data
	return data, nil
}

// memFile is the in-memory io.WriteSeeker wav.Encode needs to patch the header.
type memFile struct {
	buf []byte
	pos int
}

func (m *memFile) Write(p []byte) (int, error) {
	if end := m.pos + len(p); end > len(m.buf) {
		m.buf = append(m.buf, make([]byte, end-len(m.buf))...)
	}
	copy(m.buf[m.pos:], p)
	m.pos += len(p)
	return len(p), nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(m.pos) + offset
	case io.SeekEnd:
		abs = int64(len(m.buf)) + offset
	default:
		return 0, errors.New("sfx: bad whence")
	}
	if abs < 0 {
		return 0, errors.New("sfx: negative position")
	}
	m.pos = int(abs)
	return abs, nil
}
