//go:build !portaudio && !beep

package device

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/ebitengine/oto/v3"

	"go-dualtone/debug"
	"go-dualtone/graph"
)

// oto allows a single context per process, created on first use
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoRate int
	otoErr  error
)

func otoContext(sampleRate int) (*oto.Context, error) {
	otoOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 2,
			Format:       oto.FormatFloat32LE,
		})
		if err != nil {
			otoErr = err
			return
		}
		<-ready
		otoCtx = ctx
		otoRate = sampleRate
	})
	if otoErr != nil {
		return nil, otoErr
	}
	if sampleRate != otoRate {
		return nil, fmt.Errorf("oto: context already running at %d Hz", otoRate)
	}
	return otoCtx, nil
}

// Default returns the build's hardware sink
func Default() graph.Sink { return Oto{} }

// Oto plays through ebitengine/oto
type Oto struct{}

func (Oto) Name() string { return "oto" }

func (Oto) Play(sampleRate int, src graph.Source) (graph.Stream, error) {
	ctx, err := otoContext(sampleRate)
	if err != nil {
		return nil, err
	}
	if err := ctx.Resume(); err != nil {
		return nil, err
	}
	p := ctx.NewPlayer(&otoReader{src: src})
	p.Play()
	debug.Log("device", "oto player started at %d Hz", sampleRate)
	return &otoStream{ctx: ctx, player: p}, nil
}

// otoReader adapts a Source to the byte stream oto pulls
type otoReader struct {
	src graph.Source
	buf []float32
}

func (r *otoReader) Read(p []byte) (int, error) {
	frames := len(p) / 8
	if cap(r.buf) < 2*frames {
		r.buf = make([]float32, 2*frames)
	}
	buf := r.buf[:2*frames]
	r.src.Render(buf)
	for i, v := range buf {
		binary.LittleEndian.PutUint32(p[4*i:], math.Float32bits(v))
	}
	return 8 * frames, nil
}

type otoStream struct {
	ctx    *oto.Context
	player *oto.Player
	once   sync.Once
	err    error
}

func (s *otoStream) Close() error {
	s.once.Do(func() {
		s.player.Pause()
		s.err = s.player.Close()
		// the context cannot be closed; suspend it to release the device
		if err := s.ctx.Suspend(); s.err == nil {
			s.err = err
		}
		debug.Log("device", "oto player closed")
	})
	return s.err
}
