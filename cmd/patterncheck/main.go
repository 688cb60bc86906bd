// Command patterncheck validates a pattern file and prints the timeline
// the sequencer would play, without opening an audio device.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"go-dualtone/pattern"
	"go-dualtone/sequencer"
	"go-dualtone/tone"
)

func main() {
	cycles := flag.Int("cycles", 1, "number of cycles to print")
	format := flag.Bool("fmt", false, "print the pattern in canonical form instead")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: patterncheck [-cycles n] [-fmt] [file]")
		fmt.Fprintln(os.Stderr, "Reads standard input when no file is given.")
		flag.PrintDefaults()
	}
	flag.Parse()

	text, err := readInput(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "patterncheck: %v\n", err)
		os.Exit(1)
	}
	p, err := pattern.Parse(text)
	if err != nil {
		fmt.Fprintf(os.Stderr, "patterncheck: %v\n", err)
		os.Exit(1)
	}

	if *format {
		fmt.Println(pattern.Format(p))
		return
	}
	timeline(os.Stdout, p, *cycles)
}

func readInput(path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

// timeline drives a sequencer on a manual clock and writes one line per
// step until cycles full cycles have played
func timeline(w io.Writer, p pattern.Pattern, cycles int) {
	cycles = max(cycles, 1)
	total := p.Cycle() * time.Duration(cycles)
	fmt.Fprintf(w, "%d steps, cycle %v, showing %d cycle(s)\n", p.Len(), p.Cycle(), cycles)

	clock := sequencer.NewManualClock()
	var current tone.Pair
	seq := sequencer.New(clock, sequencer.TunerFunc(func(pair tone.Pair) { current = pair }))
	seq.OnStep = func(i, n int) {
		fmt.Fprintf(w, "%10.1f ms  step %2d of %d  %v  for %g ms\n",
			float64(clock.Now())/float64(time.Millisecond), i+1, n, current, p.At(i).Millis())
	}

	seq.Begin(p)
	for {
		next, ok := clock.Next()
		if !ok || next >= total {
			break
		}
		clock.Advance(next - clock.Now())
	}
	seq.Cancel()
	fmt.Fprintf(w, "%10.1f ms  end\n", float64(total)/float64(time.Millisecond))
}
