package common

import (
	"math"
	"testing"
)

const epsilon = 1e-5

func approx(t *testing.T, got, want float32, label string) {
	t.Helper()
	if math.Abs(float64(got-want)) > epsilon {
		t.Errorf("%s = %v, want %v", label, got, want)
	}
}

func TestAffineIdentityApply(t *testing.T) {
	m := AffineIdentity()
	x, y := m.Apply(3, -7)
	approx(t, x, 3, "x")
	approx(t, y, -7, "y")
}

func TestAffineComposeOrder(t *testing.T) {
	// parent.Mul(local) applies local first. Scaling then translating must
	// differ from translating then scaling.
	m := Translation(10, 0).Mul(Scaling(2, 2))
	x, y := m.Apply(1, 1)
	approx(t, x, 12, "x")
	approx(t, y, 2, "y")

	m = Scaling(2, 2).Mul(Translation(10, 0))
	x, y = m.Apply(1, 1)
	approx(t, x, 22, "x")
	approx(t, y, 2, "y")
}

func TestRotationQuarterTurn(t *testing.T) {
	m := Rotation(math.Pi / 2)
	x, y := m.Apply(1, 0)
	approx(t, x, 0, "x")
	approx(t, y, 1, "y")
}

func TestAffineInverseComposition(t *testing.T) {
	m := Translation(5, 9).Mul(Rotation(0.7)).Mul(Scaling(3, 3))
	inv := Scaling(1.0/3, 1.0/3).Mul(Rotation(-0.7)).Mul(Translation(-5, -9))
	round := inv.Mul(m)
	x, y := round.Apply(11, -4)
	approx(t, x, 11, "x")
	approx(t, y, -4, "y")
}

func applyMat4(m Mat4, x, y float32) (float32, float32) {
	return m[0]*x + m[4]*y + m[12], m[1]*x + m[5]*y + m[13]
}

func TestOrtho2DMapsCorners(t *testing.T) {
	p := Ortho2D(800, 600)

	x, y := applyMat4(p, 0, 0)
	approx(t, x, -1, "top-left x")
	approx(t, y, 1, "top-left y")

	x, y = applyMat4(p, 800, 600)
	approx(t, x, 1, "bottom-right x")
	approx(t, y, -1, "bottom-right y")

	x, y = applyMat4(p, 400, 300)
	approx(t, x, 0, "center x")
	approx(t, y, 0, "center y")
}

func TestMat4MulIdentity(t *testing.T) {
	m := AffineToMat4(Translation(3, 4).Mul(Rotation(1.1)))
	if got := m.Mul(Mat4Identity()); got != m {
		t.Errorf("m * I = %v, want %v", got, m)
	}
	if got := Mat4Identity().Mul(m); got != m {
		t.Errorf("I * m = %v, want %v", got, m)
	}
}

func TestAffineToMat4MatchesApply(t *testing.T) {
	a := Translation(-2, 8).Mul(Rotation(0.4)).Mul(Scaling(1.5, 0.5))
	m := AffineToMat4(a)

	ax, ay := a.Apply(6, -3)
	mx, my := applyMat4(m, 6, -3)
	approx(t, mx, ax, "x")
	approx(t, my, ay, "y")
}

func TestAppendEllipsePoints(t *testing.T) {
	pts := AppendEllipsePoints(nil, 10, 20, 5, 3, 4)
	if len(pts) != 4 {
		t.Fatalf("len = %d, want 4", len(pts))
	}
	approx(t, pts[0][0], 15, "first x")
	approx(t, pts[0][1], 20, "first y")
	approx(t, pts[1][0], 10, "second x")
	approx(t, pts[1][1], 23, "second y")

	if got := AppendEllipsePoints(pts[:0], 0, 0, 1, 1, 2); len(got) != 0 {
		t.Errorf("segments < 3 appended %d points", len(got))
	}
}

func TestCircleSegmentsBounds(t *testing.T) {
	if got := CircleSegments(0); got != 3 {
		t.Errorf("CircleSegments(0) = %d, want 3", got)
	}
	if got := CircleSegments(0.5); got < 8 {
		t.Errorf("CircleSegments(0.5) = %d, want >= 8", got)
	}
	if got := CircleSegments(1e6); got > 128 {
		t.Errorf("CircleSegments(1e6) = %d, want <= 128", got)
	}
	small, large := CircleSegments(10), CircleSegments(400)
	if small >= large {
		t.Errorf("segments did not grow with radius: %d >= %d", small, large)
	}
}

func TestRectClamped(t *testing.T) {
	r := NewRect(-10, -10, 50, 50).Clamped(30, 20)
	if r != NewRect(0, 0, 30, 20) {
		t.Errorf("Clamped = %+v", r)
	}
	if got := NewRect(100, 100, 10, 10).Clamped(50, 50); !got.Empty() {
		t.Errorf("out-of-bounds rect clamped to %+v, want empty", got)
	}
}

func TestSliceToBytes(t *testing.T) {
	data := []float32{1, 2, 3}
	b := SliceToBytes(data)
	if len(b) != 12 {
		t.Fatalf("len = %d, want 12", len(b))
	}
	if SliceToBytes([]uint32(nil)) != nil {
		t.Error("nil slice should convert to nil")
	}
}
