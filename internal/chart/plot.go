// Package chart draws the memory time series in the terminal, either as a
// redrawn plain-text screen or inside a bubbletea program.
package chart

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"ramwatch/internal/models"
)

const (
	// MinPlotWidth and MinPlotHeight are the smallest usable plot areas, in
	// character cells.
	MinPlotWidth  = 10
	MinPlotHeight = 3

	brailleBlank = 0x2800
	gutterWidth  = 5 // "100 ┤"
)

// brailleDots maps (col 0-1, row 0-3) to the braille dot bit offsets.
// Braille character = U+2800 + sum of activated dot bits.
var brailleDots = [2][4]rune{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

// canvas is a grid of braille cells addressed in dot coordinates, with the
// origin at the top left. Each cell is 2 dots wide and 4 dots tall.
type canvas struct {
	cols, rows int
	cells      [][]rune
}

func newCanvas(width, height int) *canvas {
	cells := make([][]rune, height)
	for r := range cells {
		cells[r] = make([]rune, width)
		for c := range cells[r] {
			cells[r][c] = brailleBlank
		}
	}
	return &canvas{cols: width * 2, rows: height * 4, cells: cells}
}

func (c *canvas) set(x, y int) {
	if x < 0 || y < 0 || x >= c.cols || y >= c.rows {
		return
	}
	c.cells[y/4][x/2] |= brailleDots[x%2][y%4]
}

// line draws a straight segment with Bresenham's algorithm.
func (c *canvas) line(x0, y0, x1, y1 int) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		c.set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func (c *canvas) lines() []string {
	out := make([]string, len(c.cells))
	for r, row := range c.cells {
		out[r] = string(row)
	}
	return out
}

// Layout is a plot split into its parts so renderers can style each one.
type Layout struct {
	Title  string
	YLabel string
	// Rows holds the plot area, each row prefixed with its gutter.
	Rows   []string
	Axis   string
	Ticks  string
	XLabel string
}

// String joins the parts with newlines, unstyled.
func (l Layout) String() string {
	parts := make([]string, 0, len(l.Rows)+5)
	parts = append(parts, l.Title, l.YLabel)
	parts = append(parts, l.Rows...)
	parts = append(parts, l.Axis, l.Ticks, l.XLabel)
	return strings.Join(parts, "\n")
}

// Plot lays out frame as a connected line over a width by height cell area.
// The x axis is linear over the frame's first to last tick and the y axis
// is fixed at 0 to 100 percent.
func Plot(frame models.ChartFrame, width, height int) Layout {
	width = max(width, MinPlotWidth)
	height = max(height, MinPlotHeight)

	c := newCanvas(width, height)
	points := frame.Points
	if len(points) > 0 {
		first, last := points[0].Tick, points[len(points)-1].Tick
		px, py := -1, -1
		for _, p := range points {
			x := scaleX(p.Tick, first, last, c.cols)
			y := scaleY(p.PercentUsed, c.rows)
			if px < 0 {
				c.set(x, y)
			} else {
				c.line(px, py, x, y)
			}
			px, py = x, y
		}
	}

	labels := gutterLabels(height)
	rows := make([]string, height)
	for r, line := range c.lines() {
		if label, ok := labels[r]; ok {
			rows[r] = fmt.Sprintf("%3s ┤", label) + line
		} else {
			rows[r] = "    │" + line
		}
	}

	return Layout{
		Title:  center(frame.Title, width+gutterWidth),
		YLabel: frame.YLabel,
		Rows:   rows,
		Axis:   "    └" + strings.Repeat("─", width),
		Ticks:  strings.Repeat(" ", gutterWidth) + tickLine(points, width),
		XLabel: center(frame.XLabel, width+gutterWidth),
	}
}

// scaleX maps tick onto [0, cols) linearly between first and last. A single
// tick sits at the left edge.
func scaleX(tick, first, last uint64, cols int) int {
	if last <= first {
		return 0
	}
	pos := float64(tick-first) / float64(last-first)
	return int(math.Round(pos * float64(cols-1)))
}

// scaleY maps a percent onto dot rows, 100 at the top.
func scaleY(percent float64, rows int) int {
	if math.IsNaN(percent) {
		percent = 0
	}
	percent = math.Min(math.Max(percent, 0), 100)
	return int(math.Round((1 - percent/100) * float64(rows-1)))
}

// gutterLabels places 100, 50 and 0 on the rows holding those values.
func gutterLabels(height int) map[int]string {
	dotRows := height * 4
	return map[int]string{
		0:                       "100",
		scaleY(50, dotRows) / 4: "50",
		height - 1:              "0",
	}
}

// tickLine prints the first tick at the left and the last at the right edge.
func tickLine(points []models.Point, width int) string {
	if len(points) == 0 {
		return ""
	}
	first := strconv.FormatUint(points[0].Tick, 10)
	if len(points) == 1 {
		return first
	}
	last := strconv.FormatUint(points[len(points)-1].Tick, 10)
	gap := width - len(first) - len(last)
	if gap < 1 {
		gap = 1
	}
	return first + strings.Repeat(" ", gap) + last
}

func center(s string, width int) string {
	n := len([]rune(s))
	if n >= width {
		return s
	}
	return strings.Repeat(" ", (width-n)/2) + s
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
