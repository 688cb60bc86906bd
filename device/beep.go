//go:build beep

package device

import (
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"

	"go-dualtone/debug"
	"go-dualtone/graph"
)

// Default returns the build's hardware sink
func Default() graph.Sink { return Beep{Latency: 50 * time.Millisecond} }

// Beep plays through the gopxl/beep speaker
type Beep struct {
	Latency time.Duration
}

func (Beep) Name() string { return "beep" }

func (b Beep) Play(sampleRate int, src graph.Source) (graph.Stream, error) {
	sr := beep.SampleRate(sampleRate)
	if err := speaker.Init(sr, sr.N(b.Latency)); err != nil {
		return nil, err
	}

	var buf []float32
	streamer := beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if cap(buf) < 2*len(samples) {
			buf = make([]float32, 2*len(samples))
		}
		buf = buf[:2*len(samples)]
		src.Render(buf)
		for i := range samples {
			samples[i][0] = float64(buf[2*i])
			samples[i][1] = float64(buf[2*i+1])
		}
		return len(samples), true
	})
	speaker.Play(streamer)
	debug.Log("device", "beep speaker started at %d Hz", sampleRate)
	return &beepStream{}, nil
}

type beepStream struct {
	once sync.Once
}

func (s *beepStream) Close() error {
	s.once.Do(func() {
		speaker.Clear()
		speaker.Close()
		debug.Log("device", "beep speaker closed")
	})
	return nil
}
