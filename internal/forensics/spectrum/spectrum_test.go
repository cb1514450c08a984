package spectrum

import (
	"image"
	"math"
	"math/rand/v2"
	"testing"
)

func TestRadialProfileClosedForm(t *testing.T) {
	// Value equals the truncated radius, so each ring's mean is its radius.
	const n = 16
	values := make([]float64, n*n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			dx, dy := float64(x-n/2), float64(y-n/2)
			values[y*n+x] = float64(int(math.Sqrt(dx*dx + dy*dy)))
		}
	}
	profile := RadialProfile(values, n, n, 8)
	for r, v := range profile {
		if v != float64(r) {
			t.Fatalf("ring %d mean = %v", r, v)
		}
	}
}

func TestRadialProfileConstantField(t *testing.T) {
	values := make([]float64, 32*32)
	for i := range values {
		values[i] = 3.5
	}
	for r, v := range RadialProfile(values, 32, 32, 16) {
		if v != 3.5 {
			t.Fatalf("ring %d = %v", r, v)
		}
	}
}

func TestMagnitudeDCAtCentre(t *testing.T) {
	// A constant matrix has all its energy in the DC term, which fftshift
	// moves to (h/2, w/2).
	const n = 8
	values := make([]float64, n*n)
	for i := range values {
		values[i] = 1
	}
	mag := Magnitude(values, n, n)
	want := 20 * math.Log(float64(n*n)+logEpsilon)
	if got := mag[(n/2)*n+n/2]; math.Abs(got-want) > 1e-9 {
		t.Fatalf("DC magnitude = %v, want %v", got, want)
	}
	if got := mag[0]; got > -300 {
		t.Fatalf("non-DC bin should be near log(eps), got %v", got)
	}
}

func TestProfileUniformImage(t *testing.T) {
	floor := 20 * math.Log(logEpsilon)
	for _, level := range []uint8{1, 128, 255} {
		img := image.NewGray(image.Rect(0, 0, Size, Size))
		for i := range img.Pix {
			img.Pix[i] = level
		}
		profile := Profile(img)
		if len(profile) != Bins {
			t.Fatalf("level %d: profile length %d", level, len(profile))
		}
		for r := 1; r < len(profile); r++ {
			if math.Abs(profile[r]-floor) > 1e-6 {
				t.Fatalf("level %d: ring %d = %v, want %v", level, r, profile[r], floor)
			}
			if profile[0] <= profile[r] {
				t.Fatalf("level %d: DC ring %v not above ring %d (%v)", level, profile[0], r, profile[r])
			}
		}
	}
}

func TestProfileShapeAndDeterminism(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	img := image.NewGray(image.Rect(0, 0, 300, 200))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.IntN(256))
	}
	a := Profile(img)
	b := Profile(img)
	if err := CheckShape(a); err != nil {
		t.Fatalf("CheckShape: %v", err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("profile not deterministic at %d", i)
		}
	}
	if err := CheckShape(a[:10]); err == nil {
		t.Fatal("expected shape error")
	}
}
