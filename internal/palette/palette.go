// Package palette maps emotion categories to colors and derives node colors
// and sizes from the accumulated link set.
package palette

import (
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/abelbrown/emograph/internal/anim"
	"github.com/abelbrown/emograph/internal/dataset"
)

// Emotion category labels as they appear in the datasets.
const (
	Joy          = "기쁨"
	Trust        = "신뢰"
	Anticipation = "기대"
	Surprise     = "놀람"
	Sadness      = "슬픔"
	Fear         = "공포"
	Anger        = "분노"
	Disgust      = "혐오"
)

// Categories lists the eight emotion categories in wheel order.
var Categories = []string{Joy, Trust, Anticipation, Surprise, Sadness, Fear, Anger, Disgust}

// English returns the English name of a category label, or the label itself.
func English(label string) string {
	switch label {
	case Joy:
		return "joy"
	case Trust:
		return "trust"
	case Anticipation:
		return "anticipation"
	case Surprise:
		return "surprise"
	case Sadness:
		return "sadness"
	case Fear:
		return "fear"
	case Anger:
		return "anger"
	case Disgust:
		return "disgust"
	}
	return label
}

// RGB is an 8-bit color.
type RGB struct {
	R, G, B uint8
}

// Hex returns "#rrggbb".
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// CSS returns "rgb(r,g,b)".
func (c RGB) CSS() string {
	return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
}

// Neutral is the fallback for labels with no base color.
var Neutral = RGB{120, 120, 120}

// BaseColors maps each category to its pure color.
var BaseColors = map[string]RGB{
	Joy:          {255, 193, 7},  // warm yellow
	Trust:        {76, 175, 80},  // green
	Anticipation: {0, 188, 212},  // sky blue
	Surprise:     {255, 87, 34},  // orange
	Sadness:      {63, 81, 181},  // blue
	Fear:         {103, 58, 183}, // purple
	Anger:        {244, 67, 54},  // red
	Disgust:      {139, 195, 74}, // olive green
}

// BaseColor returns the category color for label, or Neutral.
func BaseColor(label string) RGB {
	if c, ok := BaseColors[label]; ok {
		return c
	}
	return Neutral
}

// RGBToHSL converts 8-bit RGB to hue in degrees [0,360) and saturation and
// lightness in [0,1]. Gray inputs yield h=0, s=0.
func RGBToHSL(c RGB) (h, s, l float64) {
	col := colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
	return col.Hsl()
}

// HSLToRGB converts back to 8-bit RGB, rounding half up per channel.
func HSLToRGB(h, s, l float64) RGB {
	r, g, b := colorful.Hsl(h, s, l).Clamped().RGB255()
	return RGB{r, g, b}
}

// Gray baseline a node fades from before it has any self-loops.
const (
	grayH = 0.0
	grayS = 0.0
	grayL = 0.80
)

// SelfLoopCount returns the number of accumulated links from id to itself.
func SelfLoopCount(id string, links []anim.Link) int {
	n := 0
	for _, l := range links {
		if l.Source == id && l.Target == id {
			n++
		}
	}
	return n
}

// BlendFactor is how far a node has moved from gray toward its category color.
// log2 makes the first self-loops count most; it saturates at 1.
func BlendFactor(selfLoops int) float64 {
	return math.Min(1, math.Log2(float64(selfLoops)+1)/2.2)
}

// NodeColor blends from the gray baseline toward the node's category color
// (looked up by Label) as self-loops accumulate.
func NodeColor(node dataset.Node, links []anim.Link) RGB {
	return Blend(BaseColor(node.Label), SelfLoopCount(node.ID, links))
}

// Blend interpolates H, S and L between the gray baseline and base.
func Blend(base RGB, selfLoops int) RGB {
	h, s, l := RGBToHSL(base)
	t := BlendFactor(selfLoops)
	return HSLToRGB(
		grayH*(1-t)+h*t,
		grayS*(1-t)+s*t,
		grayL*(1-t)+l*t,
	)
}

// NodeDegree counts accumulated links touching id, with a floor of 1 so an
// unconnected node still has a size. A self-loop counts once.
func NodeDegree(id string, links []anim.Link) int {
	n := 0
	for _, l := range links {
		if l.Source == id || l.Target == id {
			n++
		}
	}
	if n == 0 {
		return 1
	}
	return n
}
