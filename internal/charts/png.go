package charts

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	chart "github.com/wcharczuk/go-chart/v2"
)

const (
	DefaultPanelWidth  = 480
	DefaultPanelHeight = 320
)

// stackedBars converts a subplot into go-chart bars: one bar per category,
// one stacked value per stack series.
func stackedBars(sp Subplot) []chart.StackedBar {
	index := make(map[string]int)
	var bars []chart.StackedBar
	for _, tr := range sp.Traces {
		for i, cat := range tr.Categories {
			j, ok := index[cat]
			if !ok {
				j = len(bars)
				index[cat] = j
				bars = append(bars, chart.StackedBar{Name: cat})
			}
			bars[j].Values = append(bars[j].Values, chart.Value{
				Label: tr.Stack,
				Value: float64(tr.Counts[i]),
			})
		}
	}
	return bars
}

// RenderPNG draws the bar grid as a single PNG, one panel per subplot.
// Panels without data are left blank. Non-positive sizes fall back to the
// defaults.
func RenderPNG(w io.Writer, bc BarChart, panelWidth, panelHeight int) error {
	if panelWidth <= 0 {
		panelWidth = DefaultPanelWidth
	}
	if panelHeight <= 0 {
		panelHeight = DefaultPanelHeight
	}
	cols := max(bc.Cols, 1)
	rows := max(bc.Rows, 1)

	canvas := image.NewRGBA(image.Rect(0, 0, cols*panelWidth, rows*panelHeight))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	for _, sp := range bc.Subplots {
		bars := stackedBars(sp)
		if len(bars) == 0 {
			continue
		}
		sbc := chart.StackedBarChart{
			Title:  sp.Title,
			Width:  panelWidth,
			Height: panelHeight,
			Bars:   bars,
		}
		var buf bytes.Buffer
		if err := sbc.Render(chart.PNG, &buf); err != nil {
			return fmt.Errorf("RenderPNG: subplot %q: %w", sp.Title, err)
		}
		panel, err := png.Decode(&buf)
		if err != nil {
			return fmt.Errorf("RenderPNG: decode subplot %q: %w", sp.Title, err)
		}
		origin := image.Pt(sp.Col*panelWidth, sp.Row*panelHeight)
		draw.Draw(canvas, panel.Bounds().Add(origin).Sub(panel.Bounds().Min), panel, panel.Bounds().Min, draw.Over)
	}
	return png.Encode(w, canvas)
}
