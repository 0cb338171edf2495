package facing

import "testing"

func TestDerive_DominantAxis(t *testing.T) {
	cases := []struct {
		dx, dy float64
		want   Direction
	}{
		{1, 0, Right},
		{-1, 0, Left},
		{0, 1, Down},
		{0, -1, Up},
		{0.6, 0.5, Right},
		{-0.5, 0.6, Down},
		{0.5, 0.5, Right}, // ties go to the horizontal axis
	}
	for _, c := range cases {
		if got := Derive(c.dx, c.dy, Down); got != c.want {
			t.Fatalf("Derive(%v,%v)=%q want %q", c.dx, c.dy, got, c.want)
		}
	}
}

func TestDerive_ZeroDeltaKeepsFallback(t *testing.T) {
	if got := Derive(0, 0, Left); got != Left {
		t.Fatalf("idle entity lost facing: got %q want %q", got, Left)
	}
	if got := Derive(1e-9, -1e-9, Up); got != Up {
		t.Fatalf("sub-epsilon delta lost facing: got %q want %q", got, Up)
	}
}
