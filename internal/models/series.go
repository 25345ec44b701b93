package models

// Point is one accumulated sample: the tick it was recorded on and the
// percent of memory in use at that tick.
type Point struct {
	Tick        uint64  `json:"tick"`
	PercentUsed float64 `json:"percent_used"`
}

// TimeSeries is an append-only sequence of points whose ticks start at 1 and
// grow by exactly one per append. It is never truncated, so its memory grows
// for the life of the process. The zero value is an empty series.
//
// A TimeSeries is not safe for concurrent use; readers on other goroutines
// must work on a Snapshot.
type TimeSeries struct {
	points []Point
}

// Append records percent under the next tick and returns the new point.
func (s *TimeSeries) Append(percent float64) Point {
	p := Point{Tick: uint64(len(s.points)) + 1, PercentUsed: percent}
	s.points = append(s.points, p)
	return p
}

// Len returns the number of points.
func (s *TimeSeries) Len() int { return len(s.points) }

// Last returns the most recent point.
func (s *TimeSeries) Last() (Point, bool) {
	if len(s.points) == 0 {
		return Point{}, false
	}
	return s.points[len(s.points)-1], true
}

// Snapshot returns a copy of all points in tick order.
func (s *TimeSeries) Snapshot() []Point {
	out := make([]Point, len(s.points))
	copy(out, s.points)
	return out
}

// PointsSince returns the points recorded after tick, oldest first.
func PointsSince(points []Point, tick uint64) []Point {
	// Ticks are dense and start at 1, so the index of tick+1 is tick.
	if tick >= uint64(len(points)) {
		return []Point{}
	}
	out := make([]Point, len(points)-int(tick))
	copy(out, points[tick:])
	return out
}
