package device

import (
	"fmt"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"go-dualtone/debug"
	"go-dualtone/graph"
)

// WAV records the graph output to a 16-bit stereo file at real-time pace.
// Each session overwrites Path.
type WAV struct {
	Path string
}

func (w WAV) Name() string { return "wav:" + w.Path }

func (w WAV) Play(sampleRate int, src graph.Source) (graph.Stream, error) {
	f, err := os.Create(w.Path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", w.Path, err)
	}
	enc := wav.NewEncoder(f, sampleRate, 16, 2, 1)
	ib := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: sampleRate},
		SourceBitDepth: 16,
	}

	write := func(buf []float32) error {
		if cap(ib.Data) < len(buf) {
			ib.Data = make([]int, len(buf))
		}
		ib.Data = ib.Data[:len(buf)]
		for i, v := range buf {
			ib.Data[i] = int(math.Round(float64(clip(v)) * math.MaxInt16))
		}
		return enc.Write(ib)
	}
	finish := func() error {
		err := enc.Close()
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		debug.Log("device", "wav closed %s", w.Path)
		return err
	}
	return startPump(sampleRate, src, write, finish), nil
}

func clip(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
