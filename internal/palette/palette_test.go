package palette

import (
	"math"
	"testing"

	"github.com/abelbrown/emograph/internal/anim"
	"github.com/abelbrown/emograph/internal/dataset"
)

func absDiff(a, b uint8) int {
	d := int(a) - int(b)
	if d < 0 {
		return -d
	}
	return d
}

func TestRoundTripAllColors(t *testing.T) {
	// Every 3rd channel value keeps the grid at ~740k triples; the
	// achromatic diagonal and channel extremes are covered explicitly below.
	check := func(c RGB) {
		h, s, l := RGBToHSL(c)
		got := HSLToRGB(h, s, l)
		if absDiff(got.R, c.R) > 1 || absDiff(got.G, c.G) > 1 || absDiff(got.B, c.B) > 1 {
			t.Fatalf("round trip %v -> (%.4f,%.4f,%.4f) -> %v", c, h, s, l, got)
		}
	}
	for r := 0; r < 256; r += 3 {
		for g := 0; g < 256; g += 3 {
			for b := 0; b < 256; b += 3 {
				check(RGB{uint8(r), uint8(g), uint8(b)})
			}
		}
	}
	for v := 0; v < 256; v++ {
		check(RGB{uint8(v), uint8(v), uint8(v)})
		check(RGB{uint8(v), 255, 0})
		check(RGB{0, uint8(v), 255})
		check(RGB{255, 0, uint8(v)})
	}
}

func TestAchromatic(t *testing.T) {
	for _, c := range []RGB{{0, 0, 0}, {120, 120, 120}, {255, 255, 255}} {
		h, s, l := RGBToHSL(c)
		if h != 0 || s != 0 {
			t.Errorf("RGBToHSL(%v) = (%v,%v,%v), want h=0 s=0", c, h, s, l)
		}
	}
}

func TestKnownConversions(t *testing.T) {
	tests := []struct {
		c       RGB
		h, s, l float64
	}{
		{RGB{255, 0, 0}, 0, 1, 0.5},
		{RGB{0, 255, 0}, 120, 1, 0.5},
		{RGB{0, 0, 255}, 240, 1, 0.5},
		{RGB{255, 193, 7}, 45, 1, 0.5137},
	}
	for _, tt := range tests {
		h, s, l := RGBToHSL(tt.c)
		if math.Abs(h-tt.h) > 0.5 || math.Abs(s-tt.s) > 0.01 || math.Abs(l-tt.l) > 0.01 {
			t.Errorf("RGBToHSL(%v) = (%.2f,%.3f,%.4f), want (%.2f,%.3f,%.4f)", tt.c, h, s, l, tt.h, tt.s, tt.l)
		}
	}
}

func TestNodeColorGrayWithoutSelfLoops(t *testing.T) {
	node := dataset.Node{ID: Anger, Label: Anger}
	got := NodeColor(node, []anim.Link{{Source: Anger, Target: Joy, Count: 10}})
	want := RGB{204, 204, 204}
	if got != want {
		t.Errorf("NodeColor = %v, want gray baseline %v", got, want)
	}
}

func TestNodeColorSaturates(t *testing.T) {
	for _, label := range Categories {
		got := Blend(BaseColors[label], 10)
		base := BaseColors[label]
		if absDiff(got.R, base.R) > 1 || absDiff(got.G, base.G) > 1 || absDiff(got.B, base.B) > 1 {
			t.Errorf("%s: saturated color %v, want %v", English(label), got, base)
		}
	}
}

func TestBlendFactor(t *testing.T) {
	if BlendFactor(0) != 0 {
		t.Errorf("BlendFactor(0) = %v, want 0", BlendFactor(0))
	}
	prev := 0.0
	for n := 1; n < 10; n++ {
		f := BlendFactor(n)
		if f < prev {
			t.Errorf("BlendFactor not monotonic at %d", n)
		}
		prev = f
	}
	if BlendFactor(4) != 1 {
		t.Errorf("BlendFactor(4) = %v, want saturated 1", BlendFactor(4))
	}
	if f := BlendFactor(1); math.Abs(f-1/2.2) > 1e-12 {
		t.Errorf("BlendFactor(1) = %v, want %v", f, 1/2.2)
	}
}

func TestNodeColorSelfLoop(t *testing.T) {
	node := dataset.Node{ID: Fear, Label: Fear}
	links := []anim.Link{{Source: Fear, Target: Fear, Count: 12}, {Source: Fear, Target: Joy, Count: 3}}
	got := NodeColor(node, links)
	want := Blend(BaseColors[Fear], 1)
	if got != want {
		t.Errorf("NodeColor = %v, want %v", got, want)
	}
	gray := RGB{204, 204, 204}
	if got == gray || got == BaseColors[Fear] {
		t.Errorf("one self-loop should sit between gray and the base color, got %v", got)
	}
}

func TestNodeColorUnknownLabel(t *testing.T) {
	got := NodeColor(dataset.Node{ID: "x", Label: "unknown"}, nil)
	if got != (RGB{204, 204, 204}) {
		t.Errorf("unknown label without loops = %v, want gray baseline", got)
	}
	got = Blend(BaseColor("unknown"), 10)
	if absDiff(got.R, 120) > 1 || absDiff(got.G, 120) > 1 || absDiff(got.B, 120) > 1 {
		t.Errorf("unknown label color = %v, want neutral %v", got, Neutral)
	}
}

func TestSelfLoopCount(t *testing.T) {
	links := []anim.Link{
		{Source: "A", Target: "A"},
		{Source: "A", Target: "B"},
		{Source: "B", Target: "B"},
	}
	if n := SelfLoopCount("A", links); n != 1 {
		t.Errorf("SelfLoopCount(A) = %d, want 1", n)
	}
	if n := SelfLoopCount("C", links); n != 0 {
		t.Errorf("SelfLoopCount(C) = %d, want 0", n)
	}
}

func TestNodeDegree(t *testing.T) {
	links := []anim.Link{
		{Source: "A", Target: "B"},
		{Source: "C", Target: "A"},
		{Source: "A", Target: "A"},
		{Source: "B", Target: "C"},
	}
	tests := []struct {
		id   string
		want int
	}{
		{"A", 3},
		{"B", 2},
		{"missing", 1},
	}
	for _, tt := range tests {
		if got := NodeDegree(tt.id, links); got != tt.want {
			t.Errorf("NodeDegree(%s) = %d, want %d", tt.id, got, tt.want)
		}
	}
	if got := NodeDegree("A", nil); got != 1 {
		t.Errorf("NodeDegree with no links = %d, want 1", got)
	}
}

func TestHexAndCSS(t *testing.T) {
	c := RGB{255, 193, 7}
	if c.Hex() != "#ffc107" {
		t.Errorf("Hex = %q", c.Hex())
	}
	if c.CSS() != "rgb(255,193,7)" {
		t.Errorf("CSS = %q", c.CSS())
	}
}
