package theme

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigError reports a malformed or incompatible configuration file.
// It is fatal at startup; on reload the previous generator keeps serving.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// File-level yaml structures. These mirror the format the configuration
// GUI writes; Load converts them into the resolved Config.

type fileRoot struct {
	Display fileDisplay `yaml:"display"`
}

type fileDisplay struct {
	OutputWidth     int             `yaml:"output_width"`
	OutputHeight    int             `yaml:"output_height"`
	Rotation        int             `yaml:"rotation"`
	RefreshInterval float64         `yaml:"refresh_interval"`
	FontFamily      string          `yaml:"font_family"`
	Background      fileBackground  `yaml:"background"`
	Foreground      *fileForeground `yaml:"foreground"`
	Date            *fileDate       `yaml:"date"`
	Time            *fileTime       `yaml:"time"`
	Metrics         fileMetrics     `yaml:"metrics"`
	Texts           []fileText      `yaml:"texts"`
	Bars            []fileBar       `yaml:"bars"`
}

type fileRGB struct {
	R uint8 `yaml:"r"`
	G uint8 `yaml:"g"`
	B uint8 `yaml:"b"`
}

type filePosition struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

type fileBackground struct {
	Type      string   `yaml:"type"`
	Path      string   `yaml:"path"`
	Paths     []string `yaml:"paths"`
	Color     *fileRGB `yaml:"color"`
	ScaleMode string   `yaml:"scale_mode"`
	Opacity   *int     `yaml:"opacity"`
}

type fileForeground struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Opacity *int   `yaml:"opacity"`
	X       int    `yaml:"x"`
	Y       int    `yaml:"y"`
}

type fileShadow struct {
	Enabled bool   `yaml:"enabled"`
	Color   string `yaml:"color"`
	DX      int    `yaml:"dx"`
	DY      int    `yaml:"dy"`
	Blur    int    `yaml:"blur"`
}

type fileOutline struct {
	Enabled bool   `yaml:"enabled"`
	Color   string `yaml:"color"`
	Width   int    `yaml:"width"`
}

type fileGradient struct {
	Enabled   bool   `yaml:"enabled"`
	Color1    string `yaml:"color1"`
	Color2    string `yaml:"color2"`
	Direction string `yaml:"direction"`
}

type fileStyle struct {
	FontSize float64       `yaml:"font_size"`
	Color    string        `yaml:"color"`
	Shadow   *fileShadow   `yaml:"shadow"`
	Outline  *fileOutline  `yaml:"outline"`
	Gradient *fileGradient `yaml:"gradient"`
}

type fileDate struct {
	Enabled     bool         `yaml:"enabled"`
	ShowWeekday *bool        `yaml:"show_weekday"`
	ShowYear    bool         `yaml:"show_year"`
	Format      string       `yaml:"format"`
	Position    filePosition `yaml:"position"`
	Style       fileStyle    `yaml:"style"`
}

type fileTime struct {
	Enabled     bool         `yaml:"enabled"`
	Use24Hour   *bool        `yaml:"use_24_hour"`
	ShowSeconds bool         `yaml:"show_seconds"`
	ShowAMPM    bool         `yaml:"show_am_pm"`
	Position    filePosition `yaml:"position"`
	Style       fileStyle    `yaml:"style"`
}

type fileMetrics struct {
	Enabled bool         `yaml:"enabled"`
	Configs []fileMetric `yaml:"configs"`
}

type fileMetric struct {
	Kind          string       `yaml:"kind"`
	Label         string       `yaml:"label"`
	Unit          string       `yaml:"unit"`
	DecimalPlaces int          `yaml:"decimal_places"`
	FreqFormat    string       `yaml:"freq_format"`
	LabelPosition string       `yaml:"label_position"`
	Enabled       *bool        `yaml:"enabled"`
	Position      filePosition `yaml:"position"`
	Style         fileStyle    `yaml:"style"`
}

type fileText struct {
	Text     string       `yaml:"text"`
	Enabled  *bool        `yaml:"enabled"`
	Position filePosition `yaml:"position"`
	Style    fileStyle    `yaml:"style"`
}

type fileBar struct {
	Kind            string       `yaml:"kind"`
	Enabled         *bool        `yaml:"enabled"`
	Position        filePosition `yaml:"position"`
	Width           int          `yaml:"width"`
	Height          int          `yaml:"height"`
	Orientation     string       `yaml:"orientation"`
	MinValue        float64      `yaml:"min_value"`
	MaxValue        *float64     `yaml:"max_value"`
	FillColor       string       `yaml:"fill_color"`
	BackgroundColor string       `yaml:"background_color"`
	BorderColor     string       `yaml:"border_color"`
	ShowBorder      *bool        `yaml:"show_border"`
	BorderWidth     *int         `yaml:"border_width"`
	CornerRadius    int          `yaml:"corner_radius"`
}

const (
	defaultRefreshInterval = time.Second
	defaultTextFontSize    = 20.0
	defaultMetricFontSize  = 16.0
)

var white = color.NRGBA{255, 255, 255, 255}

// Load reads and validates the configuration at path for a target device
// resolution. The declared resolution must match the target exactly.
// Referenced media is resolved but not opened here; missing files degrade
// later in the frame manager rather than failing the load.
func Load(path string, targetWidth, targetHeight int) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}

	var root fileRoot
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &ConfigError{Path: path, Err: fmt.Errorf("parse: %w", err)}
	}

	cfg, err := build(&root.Display, targetWidth, targetHeight)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	return cfg, nil
}

func build(d *fileDisplay, targetWidth, targetHeight int) (*Config, error) {
	if d.OutputWidth != targetWidth || d.OutputHeight != targetHeight {
		return nil, fmt.Errorf("resolution %dx%d does not match device %dx%d",
			d.OutputWidth, d.OutputHeight, targetWidth, targetHeight)
	}
	switch d.Rotation {
	case 0, 90, 180, 270:
	default:
		return nil, fmt.Errorf("unsupported rotation %d", d.Rotation)
	}

	cfg := &Config{
		OutputWidth:     d.OutputWidth,
		OutputHeight:    d.OutputHeight,
		Rotation:        d.Rotation,
		RefreshInterval: defaultRefreshInterval,
		FontPath:        ResolvePath(d.FontFamily),
	}
	if d.RefreshInterval > 0 {
		cfg.RefreshInterval = time.Duration(d.RefreshInterval * float64(time.Second))
	}

	bg, err := buildBackground(&d.Background)
	if err != nil {
		return nil, err
	}
	cfg.Background = *bg

	if d.Foreground != nil && d.Foreground.Enabled {
		fg := &Foreground{
			Path:    ResolvePath(substituteResolution(d.Foreground.Path, targetWidth, targetHeight)),
			Opacity: opacity(d.Foreground.Opacity),
			Offset:  image.Pt(d.Foreground.X, d.Foreground.Y),
		}
		cfg.Foreground = fg
	}

	if d.Date != nil && d.Date.Enabled {
		style, err := buildStyle(&d.Date.Style, defaultTextFontSize)
		if err != nil {
			return nil, fmt.Errorf("date widget: %w", err)
		}
		cfg.Date = &DateWidget{
			Position:    image.Pt(d.Date.Position.X, d.Date.Position.Y),
			Style:       *style,
			ShowWeekday: boolOr(d.Date.ShowWeekday, true),
			ShowYear:    d.Date.ShowYear,
			Format:      stringOr(d.Date.Format, "default"),
		}
	}

	if d.Time != nil && d.Time.Enabled {
		style, err := buildStyle(&d.Time.Style, defaultTextFontSize)
		if err != nil {
			return nil, fmt.Errorf("time widget: %w", err)
		}
		cfg.Time = &TimeWidget{
			Position:    image.Pt(d.Time.Position.X, d.Time.Position.Y),
			Style:       *style,
			Use24Hour:   boolOr(d.Time.Use24Hour, true),
			ShowSeconds: d.Time.ShowSeconds,
			ShowAMPM:    d.Time.ShowAMPM,
		}
	}

	if d.Metrics.Enabled {
		for i := range d.Metrics.Configs {
			m := &d.Metrics.Configs[i]
			if !boolOr(m.Enabled, true) {
				continue
			}
			style, err := buildStyle(&m.Style, defaultMetricFontSize)
			if err != nil {
				return nil, fmt.Errorf("metric %q: %w", m.Kind, err)
			}
			cfg.Metrics = append(cfg.Metrics, MetricWidget{
				Kind:          m.Kind,
				Label:         m.Label,
				Unit:          m.Unit,
				DecimalPlaces: m.DecimalPlaces,
				FreqFormat:    stringOr(m.FreqFormat, "mhz"),
				LabelPosition: LabelPosition(stringOr(m.LabelPosition, string(LabelLeft))),
				Position:      image.Pt(m.Position.X, m.Position.Y),
				Style:         *style,
			})
		}
	}

	for i := range d.Texts {
		t := &d.Texts[i]
		if !boolOr(t.Enabled, true) || t.Text == "" {
			continue
		}
		style, err := buildStyle(&t.Style, defaultTextFontSize)
		if err != nil {
			return nil, fmt.Errorf("text widget %d: %w", i, err)
		}
		cfg.Texts = append(cfg.Texts, TextWidget{
			Text:     t.Text,
			Position: image.Pt(t.Position.X, t.Position.Y),
			Style:    *style,
		})
	}

	for i := range d.Bars {
		b := &d.Bars[i]
		if !boolOr(b.Enabled, true) {
			continue
		}
		bar, err := buildBar(b)
		if err != nil {
			return nil, fmt.Errorf("bar widget %d: %w", i, err)
		}
		cfg.Bars = append(cfg.Bars, *bar)
	}

	if err := validatePositions(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildBackground(b *fileBackground) (*Background, error) {
	kind := BackgroundKind(stringOr(b.Type, string(BackgroundColor)))
	switch kind {
	case BackgroundImage, BackgroundGIF, BackgroundVideo, BackgroundCollection, BackgroundColor:
	default:
		return nil, fmt.Errorf("unknown background type %q", b.Type)
	}

	bg := &Background{
		Kind:      kind,
		Path:      ResolvePath(b.Path),
		ScaleMode: ScaleMode(stringOr(b.ScaleMode, string(ScaleStretch))),
		Opacity:   opacity(b.Opacity),
		Color:     color.NRGBA{A: 255}, // solid black default
	}
	for _, p := range b.Paths {
		bg.Paths = append(bg.Paths, ResolvePath(p))
	}
	if b.Color != nil {
		bg.Color = color.NRGBA{R: b.Color.R, G: b.Color.G, B: b.Color.B, A: 255}
	}
	if kind != BackgroundColor && bg.Path == "" && len(bg.Paths) == 0 {
		return nil, fmt.Errorf("background type %q requires a path", kind)
	}
	return bg, nil
}

func buildStyle(s *fileStyle, defaultSize float64) (*Style, error) {
	style := &Style{
		FontSize: defaultSize,
		Color:    white,
	}
	if s.FontSize > 0 {
		style.FontSize = s.FontSize
	}
	if s.Color != "" {
		c, err := ParseHexColor(s.Color)
		if err != nil {
			return nil, err
		}
		style.Color = c
	}
	if s.Shadow != nil && s.Shadow.Enabled {
		c, err := parseHexColorOr(s.Shadow.Color, color.NRGBA{0, 0, 0, 128})
		if err != nil {
			return nil, err
		}
		style.Shadow = &Shadow{
			Color: c,
			DX:    intOr(s.Shadow.DX, 2),
			DY:    intOr(s.Shadow.DY, 2),
			Blur:  s.Shadow.Blur,
		}
	}
	if s.Outline != nil && s.Outline.Enabled {
		c, err := parseHexColorOr(s.Outline.Color, color.NRGBA{0, 0, 0, 255})
		if err != nil {
			return nil, err
		}
		style.Outline = &Outline{Color: c, Width: intOr(s.Outline.Width, 1)}
	}
	if s.Gradient != nil && s.Gradient.Enabled {
		c1, err := parseHexColorOr(s.Gradient.Color1, white)
		if err != nil {
			return nil, err
		}
		c2, err := parseHexColorOr(s.Gradient.Color2, color.NRGBA{100, 100, 255, 255})
		if err != nil {
			return nil, err
		}
		style.Gradient = &Gradient{
			Color1:    c1,
			Color2:    c2,
			Direction: GradientDirection(stringOr(s.Gradient.Direction, string(GradientVertical))),
		}
	}
	return style, nil
}

func buildBar(b *fileBar) (*BarWidget, error) {
	fill, err := parseHexColorOr(b.FillColor, color.NRGBA{0, 255, 0, 255})
	if err != nil {
		return nil, err
	}
	bgc, err := parseHexColorOr(b.BackgroundColor, color.NRGBA{50, 50, 50, 255})
	if err != nil {
		return nil, err
	}
	border, err := parseHexColorOr(b.BorderColor, white)
	if err != nil {
		return nil, err
	}
	maxValue := 100.0
	if b.MaxValue != nil {
		maxValue = *b.MaxValue
	}
	if maxValue <= b.MinValue {
		return nil, fmt.Errorf("bar range [%g, %g] is empty", b.MinValue, maxValue)
	}
	return &BarWidget{
		Kind:         b.Kind,
		Position:     image.Pt(b.Position.X, b.Position.Y),
		Width:        intOr(b.Width, 100),
		Height:       intOr(b.Height, 16),
		Orientation:  stringOr(b.Orientation, "horizontal"),
		MinValue:     b.MinValue,
		MaxValue:     maxValue,
		Fill:         fill,
		Background:   bgc,
		Border:       border,
		ShowBorder:   boolOr(b.ShowBorder, true),
		BorderWidth:  intOrPtr(b.BorderWidth, 1),
		CornerRadius: b.CornerRadius,
	}, nil
}

func validatePositions(cfg *Config) error {
	bounds := cfg.Bounds()
	check := func(name string, p image.Point) error {
		if !p.In(bounds) {
			return fmt.Errorf("%s position (%d,%d) outside %dx%d canvas",
				name, p.X, p.Y, bounds.Dx(), bounds.Dy())
		}
		return nil
	}
	if cfg.Date != nil {
		if err := check("date", cfg.Date.Position); err != nil {
			return err
		}
	}
	if cfg.Time != nil {
		if err := check("time", cfg.Time.Position); err != nil {
			return err
		}
	}
	for _, m := range cfg.Metrics {
		if err := check("metric "+m.Kind, m.Position); err != nil {
			return err
		}
	}
	for _, t := range cfg.Texts {
		if err := check("text", t.Position); err != nil {
			return err
		}
	}
	for _, b := range cfg.Bars {
		if err := check("bar "+b.Kind, b.Position); err != nil {
			return err
		}
	}
	return nil
}

// ParseHexColor parses "#RRGGBB" or "#RRGGBBAA" into an NRGBA color.
func ParseHexColor(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(s, "#")
	var c color.NRGBA
	c.A = 255
	switch len(h) {
	case 8:
		if _, err := fmt.Sscanf(h, "%02x%02x%02x%02x", &c.R, &c.G, &c.B, &c.A); err != nil {
			return c, fmt.Errorf("invalid hex color %q", s)
		}
	case 6:
		if _, err := fmt.Sscanf(h, "%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
			return c, fmt.Errorf("invalid hex color %q", s)
		}
	default:
		return c, fmt.Errorf("invalid hex color %q", s)
	}
	return c, nil
}

func parseHexColorOr(s string, fallback color.NRGBA) (color.NRGBA, error) {
	if s == "" {
		return fallback, nil
	}
	return ParseHexColor(s)
}

func opacity(v *int) float64 {
	if v == nil {
		return 1.0
	}
	o := *v
	if o < 0 {
		o = 0
	}
	if o > 255 {
		o = 255
	}
	return float64(o) / 255.0
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

func stringOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func intOr(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}

func intOrPtr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}
