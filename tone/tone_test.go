package tone

import (
	"math"
	"testing"
)

func TestValidHz(t *testing.T) {
	tests := []struct {
		hz   float64
		want bool
	}{
		{100, true},
		{0.001, true},
		{0, false},
		{-1, false},
		{math.Inf(1), false},
		{math.NaN(), false},
	}
	for _, tt := range tests {
		if got := ValidHz(tt.hz); got != tt.want {
			t.Errorf("ValidHz(%v) = %v, want %v", tt.hz, got, tt.want)
		}
	}
}

func TestPairWith(t *testing.T) {
	p := Pair{A: 100, B: 90}
	if got := p.With(ChannelB, 120); got != (Pair{A: 100, B: 120}) {
		t.Errorf("With(B) = %v", got)
	}
	if got := p.With(ChannelA, 80).Get(ChannelA); got != 80 {
		t.Errorf("Get(A) = %v, want 80", got)
	}
	if p.A != 100 {
		t.Error("With mutated the receiver")
	}
}

func TestNoteToHz(t *testing.T) {
	if got := NoteToHz(69); got != 440 {
		t.Errorf("NoteToHz(69) = %v, want 440", got)
	}
	if got := NoteToHz(57); math.Abs(got-220) > 1e-9 {
		t.Errorf("NoteToHz(57) = %v, want 220", got)
	}
}
