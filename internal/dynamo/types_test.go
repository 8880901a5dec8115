package dynamo

import (
	"math"
	"testing"
)

func TestStateClone(t *testing.T) {
	s := State{1.0, 2.0, 3.0}
	c := s.Clone()

	c[0] = 99.0
	if s[0] != 1.0 {
		t.Errorf("Clone shares backing array with original")
	}
	if len(c) != len(s) {
		t.Errorf("Clone length = %d, want %d", len(c), len(s))
	}
}

func TestStateIsValid(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  bool
	}{
		{"finite", State{1.0, -2.5, 0.0}, true},
		{"empty", State{}, true},
		{"nan", State{1.0, math.NaN()}, false},
		{"pos inf", State{math.Inf(1), 0.0}, false},
		{"neg inf", State{0.0, math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStateNorm(t *testing.T) {
	s := State{3.0, 4.0}
	if got := s.Norm(); math.Abs(got-5.0) > 1e-12 {
		t.Errorf("Norm() = %f, want 5.0", got)
	}

	if got := (State{}).Norm(); got != 0 {
		t.Errorf("empty Norm() = %f, want 0", got)
	}
}

func TestStateSub(t *testing.T) {
	a := State{5.0, 3.0, 1.0}
	b := State{1.0, 1.0, 1.0}
	d := a.Sub(b)

	want := State{4.0, 2.0, 0.0}
	for i := range want {
		if d[i] != want[i] {
			t.Errorf("Sub()[%d] = %f, want %f", i, d[i], want[i])
		}
	}
}

func TestResultLast(t *testing.T) {
	r := &Result{
		States: []State{{1.0}, {2.0}, {3.0}},
		Times:  []float64{0.0, 0.5, 1.0},
	}

	s, tm := r.Last()
	if s[0] != 3.0 || tm != 1.0 {
		t.Errorf("Last() = (%v, %f), want ([3.0], 1.0)", s, tm)
	}

	empty := &Result{}
	if s, _ := empty.Last(); s != nil {
		t.Errorf("Last() on empty result = %v, want nil", s)
	}
}
