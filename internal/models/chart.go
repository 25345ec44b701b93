package models

// Chart labels used for every frame.
const (
	ChartTitle   = "RAM Monitor"
	ChartXLabel  = "Time (Seconds)"
	ChartYLabel  = "% of RAM in use"
	XScaleLinear = "linear"
)

// ChartFrame is everything a renderer needs to redraw the plot once.
// Points is a private copy; renderers may keep it but must not modify it.
type ChartFrame struct {
	Title  string          `json:"title"`
	XLabel string          `json:"x_label"`
	YLabel string          `json:"y_label"`
	XScale string          `json:"x_scale"`
	Points []Point         `json:"points"`
	Latest *MemorySnapshot `json:"latest,omitempty"`
}

// NewChartFrame builds a frame with the standard labels.
func NewChartFrame(points []Point, latest *MemorySnapshot) ChartFrame {
	return ChartFrame{
		Title:  ChartTitle,
		XLabel: ChartXLabel,
		YLabel: ChartYLabel,
		XScale: XScaleLinear,
		Points: points,
		Latest: latest,
	}
}
