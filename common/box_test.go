package common

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestBoxOperations(t *testing.T) {
	b := NewBoxForExtents(10, 20, 4)

	tests := []struct {
		name string
		got  Box
		want Box
	}{
		{"extents", b, Box{X0: -5, X1: 5, Y0: -10, Y1: 10, Z0: -2, Z1: 2}},
		{"translate", b.Translate(mgl64.Vec3{5, 10, 2}), Box{X0: 0, X1: 10, Y0: 0, Y1: 20, Z0: 0, Z1: 4}},
		{"expand", b.Expand(1, 2, 3), Box{X0: -6, X1: 6, Y0: -12, Y1: 12, Z0: -5, Z1: 5}},
		{"scale", b.Scale(mgl64.Vec3{2, 0.5, 0}), Box{X0: -10, X1: 10, Y0: -5, Y1: 5, Z0: -2, Z1: 2}},
		{"union", b.Union(Box{X0: 3, X1: 30, Y0: -1, Y1: 1, Z0: 0, Z1: 9}), Box{X0: -5, X1: 30, Y0: -10, Y1: 10, Z0: -2, Z1: 9}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, tc.got)
			}
		})
	}
}

func TestBoxOverlaps(t *testing.T) {
	a := Box{X0: 0, X1: 10, Y0: 0, Y1: 10, Z0: 0, Z1: 10}

	tests := []struct {
		name   string
		other  Box
		wantXY bool
		want   bool
	}{
		{"inside", Box{X0: 2, X1: 3, Y0: 2, Y1: 3, Z0: 2, Z1: 3}, true, true},
		{"touching_edge", Box{X0: 10, X1: 20, Y0: 0, Y1: 10, Z0: 0, Z1: 10}, true, true},
		{"apart_in_x", Box{X0: 11, X1: 20, Y0: 0, Y1: 10, Z0: 0, Z1: 10}, false, false},
		{"apart_in_z_only", Box{X0: 0, X1: 10, Y0: 0, Y1: 10, Z0: 20, Z1: 30}, true, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := a.OverlapsXY(tc.other); got != tc.wantXY {
				t.Fatalf("OverlapsXY: expected %v, got %v", tc.wantXY, got)
			}
			if got := a.Overlaps(tc.other); got != tc.want {
				t.Fatalf("Overlaps: expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestBoxPredicates(t *testing.T) {
	if !(Box{}).IsZero() || !(Box{X0: 4, X1: 4}).IsZero() {
		t.Fatalf("expected degenerate boxes to be zero")
	}
	if MinimumBox.IsZero() {
		t.Fatalf("minimum box must not be zero")
	}
	if got := SquaredLength(mgl64.Vec3{3, 4, 12}); got != 169 {
		t.Fatalf("expected 169, got %v", got)
	}
	if got := ScaleOrOne(mgl64.Vec3{0, 2, 0}); got != (mgl64.Vec3{1, 2, 1}) {
		t.Fatalf("expected unset scale to default to one, got %v", got)
	}
}
