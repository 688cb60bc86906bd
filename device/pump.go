package device

import (
	"sync"
	"time"

	"go-dualtone/debug"
	"go-dualtone/graph"
)

// chunkFrames is how many frames the software sinks render per tick
const chunkFrames = 1024

// pump pulls chunks from a source at real-time pace and hands them to
// write, until closed
type pump struct {
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	err     error
	onClose func() error
}

func startPump(sampleRate int, src graph.Source, write func([]float32) error, onClose func() error) *pump {
	p := &pump{
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		onClose: onClose,
	}
	period := time.Duration(float64(time.Second) * chunkFrames / float64(sampleRate))
	buf := make([]float32, 2*chunkFrames)

	go func() {
		defer close(p.done)
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-p.stop:
				return
			case <-ticker.C:
				src.Render(buf)
				if err := write(buf); err != nil {
					debug.Log("device", "pump write: %v", err)
					p.err = err
					return
				}
			}
		}
	}()
	return p
}

func (p *pump) Close() error {
	var err error
	p.once.Do(func() {
		close(p.stop)
		<-p.done
		err = p.err
		if p.onClose != nil {
			if cerr := p.onClose(); err == nil {
				err = cerr
			}
		}
	})
	return err
}

// Null renders in real time and discards the result. The analysis tap still
// fills, so the trace works on machines without an audio device.
type Null struct{}

func (Null) Name() string { return "null" }

func (Null) Play(sampleRate int, src graph.Source) (graph.Stream, error) {
	return startPump(sampleRate, src, func([]float32) error { return nil }, nil), nil
}
