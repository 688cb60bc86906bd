// Package device provides the output sinks a graph plays through.
//
// The hardware backend is chosen at build time: oto by default,
// PortAudio with -tags portaudio, and the beep speaker with -tags beep.
// The null and WAV sinks are always available.
package device

import (
	"fmt"
	"strings"

	"github.com/mitchellh/go-homedir"

	"go-dualtone/graph"
)

// Named sinks report which backend they are, for the status line
type Named interface {
	Name() string
}

// Open resolves an output spec: "device" (or empty) for the build's
// hardware backend, "null" for a silent real-time pump, or "wav:<path>"
// to record to a file.
func Open(spec string) (graph.Sink, error) {
	switch {
	case spec == "" || spec == "device":
		return Default(), nil
	case spec == "null":
		return Null{}, nil
	case strings.HasPrefix(spec, "wav:"):
		path := strings.TrimPrefix(spec, "wav:")
		if path == "" {
			return nil, fmt.Errorf("device: wav output needs a path")
		}
		path, err := homedir.Expand(path)
		if err != nil {
			return nil, fmt.Errorf("device: %w", err)
		}
		return WAV{Path: path}, nil
	}
	return nil, fmt.Errorf("device: unknown output %q", spec)
}

// Name returns the backend name of sink, or "custom"
func Name(sink graph.Sink) string {
	if n, ok := sink.(Named); ok {
		return n.Name()
	}
	return "custom"
}
