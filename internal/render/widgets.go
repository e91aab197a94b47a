package render

import (
	"strconv"
	"time"

	"github.com/fogleman/gg"

	"github.com/lcdhud/lcdhud/internal/metrics"
	"github.com/lcdhud/lcdhud/pkg/theme"
)

// placeholder stands in for a metric value whose provider failed.
const placeholder = "N/A"

// labelGap separates an above/below label from its value, in pixels.
const labelGap = 2

func dateLayout(w *theme.DateWidget) string {
	switch w.Format {
	case "numeric":
		if w.ShowYear {
			return "02/01/2006"
		}
		return "02/01"
	case "short":
		layout := "Jan 2"
		if w.ShowWeekday {
			layout = "Mon " + layout
		}
		if w.ShowYear {
			layout += " 2006"
		}
		return layout
	default:
		layout := "2 January"
		if w.ShowWeekday {
			layout = "Monday " + layout
		}
		if w.ShowYear {
			layout += " 2006"
		}
		return layout
	}
}

func timeLayout(w *theme.TimeWidget) string {
	var layout string
	if w.Use24Hour {
		layout = "15:04"
	} else {
		layout = "3:04"
	}
	if w.ShowSeconds {
		layout += ":05"
	}
	if !w.Use24Hour && w.ShowAMPM {
		layout += " PM"
	}
	return layout
}

// metricText formats one sample per the widget's options. Unavailable
// samples format as the placeholder; the unit is withheld so the panel
// never shows "N/A%".
func metricText(w *theme.MetricWidget, s metrics.Sample) string {
	var value string
	switch {
	case s.Unavailable:
		value = placeholder
	case metrics.Kind(w.Kind).IsText():
		value = s.Text
	default:
		v := s.Value
		if w.FreqFormat == "ghz" {
			v /= 1000
		}
		value = strconv.FormatFloat(v, 'f', w.DecimalPlaces, 64)
	}
	if !s.Unavailable && w.Unit != "" {
		value += w.Unit
	}
	switch w.LabelPosition {
	case theme.LabelLeft:
		if w.Label != "" {
			return w.Label + " " + value
		}
	case theme.LabelRight:
		if w.Label != "" {
			return value + " " + w.Label
		}
	}
	return value
}

func (r *Renderer) drawDate(dc *gg.Context, w *theme.DateWidget, now time.Time) {
	r.DrawText(dc, now.Format(dateLayout(w)), w.Position, w.Style)
}

func (r *Renderer) drawTime(dc *gg.Context, w *theme.TimeWidget, now time.Time) {
	r.DrawText(dc, now.Format(timeLayout(w)), w.Position, w.Style)
}

func (r *Renderer) drawMetric(dc *gg.Context, w *theme.MetricWidget, s metrics.Sample) {
	r.DrawText(dc, metricText(w, s), w.Position, w.Style)
	if w.Label == "" {
		return
	}
	offset := int(w.Style.FontSize) + labelGap
	switch w.LabelPosition {
	case theme.LabelAbove:
		p := w.Position
		p.Y -= offset
		r.DrawText(dc, w.Label, p, w.Style)
	case theme.LabelBelow:
		p := w.Position
		p.Y += offset
		r.DrawText(dc, w.Label, p, w.Style)
	}
}

// drawBar renders a fill bar. An unavailable sample draws the empty
// track only, which is the bar equivalent of the text placeholder.
func (r *Renderer) drawBar(dc *gg.Context, w *theme.BarWidget, s metrics.Sample) {
	frac := 0.0
	if !s.Unavailable && w.MaxValue > w.MinValue {
		frac = (s.Value - w.MinValue) / (w.MaxValue - w.MinValue)
		if frac < 0 {
			frac = 0
		}
		if frac > 1 {
			frac = 1
		}
	}

	x, y := float64(w.Position.X), float64(w.Position.Y)
	bw, bh := float64(w.Width), float64(w.Height)
	rad := float64(w.CornerRadius)

	dc.SetColor(w.Background)
	dc.DrawRoundedRectangle(x, y, bw, bh, rad)
	dc.Fill()

	if frac > 0 {
		dc.SetColor(w.Fill)
		if w.Orientation == "vertical" {
			fh := bh * frac
			dc.DrawRoundedRectangle(x, y+bh-fh, bw, fh, rad)
		} else {
			dc.DrawRoundedRectangle(x, y, bw*frac, bh, rad)
		}
		dc.Fill()
	}

	if w.ShowBorder && w.BorderWidth > 0 {
		dc.SetColor(w.Border)
		dc.SetLineWidth(float64(w.BorderWidth))
		dc.DrawRoundedRectangle(x, y, bw, bh, rad)
		dc.Stroke()
	}
}
