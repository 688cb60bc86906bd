// Package pattern decodes the textual step list that drives pattern playback.
//
// The text is a JSON object with a "pattern" field holding an ordered list of
// [frequencyA, frequencyB, durationMs] triples. Other fields are ignored.
package pattern

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"go-dualtone/tone"
)

// Field is the top-level key holding the step list
const Field = "pattern"

// DefaultText is the pattern shown when nothing else was supplied
const DefaultText = `{
  "pattern": [
    [100, 90, 3000],
    [90, 100, 2500],
    [110, 95, 3500],
    [95, 110, 3000],
    [105, 92, 2500],
    [92, 105, 2000],
    [115, 98, 4000],
    [98, 115, 3500],
    [108, 94, 3000],
    [94, 108, 2500],
    [120, 100, 3500],
    [100, 120, 3000]
  ]
}`

// Step holds both channel frequencies for Duration
type Step struct {
	Pair     tone.Pair
	Duration time.Duration
}

// Millis returns the step duration in milliseconds
func (s Step) Millis() float64 {
	return float64(s.Duration) / float64(time.Millisecond)
}

// Pattern is an ordered, cyclic, non-empty step list. Treat it as immutable.
type Pattern []Step

// Len returns the number of steps
func (p Pattern) Len() int { return len(p) }

// At returns step i modulo the pattern length
func (p Pattern) At(i int) Step {
	return p[i%len(p)]
}

// Cycle returns the time one full pass through the pattern takes
func (p Pattern) Cycle() time.Duration {
	var d time.Duration
	for _, s := range p {
		d += s.Duration
	}
	return d
}

// Equal reports whether p and o hold the same steps in the same order
func (p Pattern) Equal(o Pattern) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// Kind classifies a ParseError
type Kind int

const (
	Malformed   Kind = iota // not well-formed JSON
	Shape                   // no "pattern" list at the top level
	Empty                   // the list has no steps
	InvalidStep             // a step has wrong arity, type or value
)

func (k Kind) String() string {
	switch k {
	case Malformed:
		return "malformed"
	case Shape:
		return "shape"
	case Empty:
		return "empty"
	case InvalidStep:
		return "invalid step"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseError describes why a pattern text was rejected
type ParseError struct {
	Kind  Kind
	Index int // step index for InvalidStep, -1 otherwise
	Err   error
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case Malformed:
		return fmt.Sprintf("invalid JSON: %v", e.Err)
	case Shape:
		return fmt.Sprintf("expected a %q array: %v", Field, e.Err)
	case Empty:
		return fmt.Sprintf("%q has no steps", Field)
	case InvalidStep:
		return fmt.Sprintf("step %d: %v", e.Index+1, e.Err)
	}
	return e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsKind reports whether err is a *ParseError of kind k
func IsKind(err error, k Kind) bool {
	var pe *ParseError
	return errors.As(err, &pe) && pe.Kind == k
}

var errArity = errors.New("each step must be [frequencyA, frequencyB, durationMs]")

// Parse decodes text into a Pattern. It is pure and deterministic.
func Parse(text string) (Pattern, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, &ParseError{Kind: Malformed, Index: -1, Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &ParseError{Kind: Malformed, Index: -1, Err: errors.New("unexpected data after top-level value")}
	}

	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, &ParseError{Kind: Shape, Index: -1, Err: errors.New("top level is not an object")}
	}
	raw, ok := obj[Field]
	if !ok {
		return nil, &ParseError{Kind: Shape, Index: -1, Err: errors.New("field missing")}
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, &ParseError{Kind: Shape, Index: -1, Err: fmt.Errorf("field is %s, not a list", typeName(raw))}
	}
	if len(list) == 0 {
		return nil, &ParseError{Kind: Empty, Index: -1, Err: errors.New("no steps")}
	}

	p := make(Pattern, 0, len(list))
	for i, item := range list {
		step, err := parseStep(item)
		if err != nil {
			return nil, &ParseError{Kind: InvalidStep, Index: i, Err: err}
		}
		p = append(p, step)
	}
	return p, nil
}

func parseStep(item any) (Step, error) {
	fields, ok := item.([]any)
	if !ok || len(fields) != 3 {
		return Step{}, errArity
	}

	var v [3]float64
	names := [3]string{"frequencyA", "frequencyB", "durationMs"}
	for i, f := range fields {
		n, ok := f.(json.Number)
		if !ok {
			return Step{}, fmt.Errorf("%s is %s, not a number", names[i], typeName(f))
		}
		x, err := strconv.ParseFloat(string(n), 64)
		if err != nil || math.IsInf(x, 0) || math.IsNaN(x) {
			return Step{}, fmt.Errorf("%s %s is not a finite number", names[i], n)
		}
		if x <= 0 {
			return Step{}, fmt.Errorf("%s must be greater than 0, got %s", names[i], n)
		}
		v[i] = x
	}

	// float64(MaxInt64) rounds up to 2^63, which no Duration holds
	ns := v[2] * float64(time.Millisecond)
	if ns >= math.MaxInt64 {
		return Step{}, fmt.Errorf("durationMs %g is too long", v[2])
	}
	d := time.Duration(ns)
	if d <= 0 {
		return Step{}, fmt.Errorf("durationMs %g is too short", v[2])
	}
	return Step{Pair: tone.Pair{A: v[0], B: v[1]}, Duration: d}, nil
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "a boolean"
	case string:
		return "a string"
	case json.Number:
		return "a number"
	case []any:
		return "a list"
	case map[string]any:
		return "an object"
	}
	return fmt.Sprintf("%T", v)
}

// Format renders p back into pattern text that Parse accepts
func Format(p Pattern) string {
	var b bytes.Buffer
	b.WriteString("{\n  \"" + Field + "\": [\n")
	for i, s := range p {
		fmt.Fprintf(&b, "    [%s, %s, %s]",
			strconv.FormatFloat(s.Pair.A, 'f', -1, 64),
			strconv.FormatFloat(s.Pair.B, 'f', -1, 64),
			strconv.FormatFloat(s.Millis(), 'f', -1, 64))
		if i < len(p)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString("  ]\n}")
	return b.String()
}
