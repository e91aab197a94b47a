package theme

import (
	"image"
	"image/color"
	"time"
)

// BackgroundKind identifies the background content type
type BackgroundKind string

const (
	BackgroundImage      BackgroundKind = "image"
	BackgroundGIF        BackgroundKind = "gif"
	BackgroundVideo      BackgroundKind = "video"
	BackgroundCollection BackgroundKind = "collection"
	BackgroundColor      BackgroundKind = "color"
)

// ScaleMode controls how background media is fitted to the output canvas
type ScaleMode string

const (
	ScaleStretch  ScaleMode = "stretch"
	ScaleFit      ScaleMode = "scaled_fit"
	ScaleFill     ScaleMode = "scaled_fill"
	ScaleCentered ScaleMode = "centered"
	ScaleTiled    ScaleMode = "tiled"
)

// GradientDirection controls the axis of a two-color text gradient
type GradientDirection string

const (
	GradientVertical   GradientDirection = "vertical"
	GradientHorizontal GradientDirection = "horizontal"
	GradientDiagonal   GradientDirection = "diagonal"
)

// LabelPosition places a metric label relative to its value
type LabelPosition string

const (
	LabelLeft  LabelPosition = "left"
	LabelRight LabelPosition = "right"
	LabelAbove LabelPosition = "above"
	LabelBelow LabelPosition = "below"
	LabelNone  LabelPosition = "none"
)

// Shadow is a drop shadow behind rendered text
type Shadow struct {
	Color color.NRGBA
	DX    int
	DY    int
	Blur  int
}

// Outline is a stroke ring around rendered text
type Outline struct {
	Color color.NRGBA
	Width int
}

// Gradient is a two-color fill applied through the text mask
type Gradient struct {
	Color1    color.NRGBA
	Color2    color.NRGBA
	Direction GradientDirection
}

// Style is the full text styling for one widget. Shadow, Outline and
// Gradient are nil when disabled.
type Style struct {
	FontSize float64
	Color    color.NRGBA
	Shadow   *Shadow
	Outline  *Outline
	Gradient *Gradient
}

// TextWidget is a free-text layer
type TextWidget struct {
	Text     string
	Position image.Point
	Style    Style
}

// DateWidget renders the current date. Format is one of
// "default", "short", "numeric".
type DateWidget struct {
	Position    image.Point
	Style       Style
	ShowWeekday bool
	ShowYear    bool
	Format      string
}

// TimeWidget renders the current time of day
type TimeWidget struct {
	Position    image.Point
	Style       Style
	Use24Hour   bool
	ShowSeconds bool
	ShowAMPM    bool
}

// MetricWidget renders one telemetry value as text
type MetricWidget struct {
	Kind          string
	Label         string
	Unit          string
	DecimalPlaces int
	FreqFormat    string // "mhz" or "ghz", frequency kinds only
	LabelPosition LabelPosition
	Position      image.Point
	Style         Style
}

// BarWidget renders one telemetry value as a filled bar
type BarWidget struct {
	Kind         string
	Position     image.Point
	Width        int
	Height       int
	Orientation  string // "horizontal" or "vertical"
	MinValue     float64
	MaxValue     float64
	Fill         color.NRGBA
	Background   color.NRGBA
	Border       color.NRGBA
	ShowBorder   bool
	BorderWidth  int
	CornerRadius int
}

// Background describes the background content source
type Background struct {
	Kind      BackgroundKind
	Path      string
	Paths     []string
	Color     color.NRGBA
	ScaleMode ScaleMode
	Opacity   float64 // 0..1, faded toward Color when below 1
}

// Foreground is an optional overlay composited above the background
type Foreground struct {
	Path    string
	Opacity float64 // 0..1
	Offset  image.Point
}

// Config is one fully resolved display configuration. It is immutable
// after Load; a config change produces a new Config and a new generator.
type Config struct {
	OutputWidth     int
	OutputHeight    int
	Rotation        int // 0, 90, 180, 270 clockwise
	RefreshInterval time.Duration
	FontPath        string

	Background Background
	Foreground *Foreground
	Date       *DateWidget
	Time       *TimeWidget
	Metrics    []MetricWidget
	Texts      []TextWidget
	Bars       []BarWidget
}

// MetricKinds returns the distinct metric kinds referenced by the config,
// in first-use order.
func (c *Config) MetricKinds() []string {
	seen := make(map[string]bool)
	var kinds []string
	add := func(k string) {
		if k != "" && !seen[k] {
			seen[k] = true
			kinds = append(kinds, k)
		}
	}
	for _, m := range c.Metrics {
		add(m.Kind)
	}
	for _, b := range c.Bars {
		add(b.Kind)
	}
	return kinds
}

// Canvas returns the composition surface size before rotation. For 90
// and 270 the axes swap so the rotated output matches the device
// resolution exactly.
func (c *Config) Canvas() (int, int) {
	if c.Rotation == 90 || c.Rotation == 270 {
		return c.OutputHeight, c.OutputWidth
	}
	return c.OutputWidth, c.OutputHeight
}

// Bounds returns the composition canvas rectangle (pre-rotation).
func (c *Config) Bounds() image.Rectangle {
	w, h := c.Canvas()
	return image.Rect(0, 0, w, h)
}
