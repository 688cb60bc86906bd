//go:build portaudio

package device

import (
	"sync"

	"github.com/gordonklaus/portaudio"

	"go-dualtone/debug"
	"go-dualtone/graph"
)

// Default returns the build's hardware sink
func Default() graph.Sink { return PortAudio{FramesPerBuffer: 512} }

// PortAudio plays through the default PortAudio output device. The
// library is initialized per session and terminated on close.
type PortAudio struct {
	FramesPerBuffer int
}

func (PortAudio) Name() string { return "portaudio" }

func (p PortAudio) Play(sampleRate int, src graph.Source) (graph.Stream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	stream, err := portaudio.OpenDefaultStream(0, 2, float64(sampleRate), p.FramesPerBuffer, func(out []float32) {
		src.Render(out)
	})
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, err
	}
	debug.Log("device", "portaudio stream started at %d Hz", sampleRate)
	return &paStream{stream: stream}, nil
}

type paStream struct {
	stream *portaudio.Stream
	once   sync.Once
	err    error
}

func (s *paStream) Close() error {
	s.once.Do(func() {
		s.err = s.stream.Stop()
		if err := s.stream.Close(); s.err == nil {
			s.err = err
		}
		if err := portaudio.Terminate(); s.err == nil {
			s.err = err
		}
		debug.Log("device", "portaudio stream closed")
	})
	return s.err
}
