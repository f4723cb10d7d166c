package scheduler

import "math"

// Segment is a half-open time slice [Start, End) of the source, in seconds.
type Segment struct {
	Start float64
	End   float64
}

// PlanSegments splits a measured duration into non-overlapping segments of
// at most segmentSeconds each. A segmentSeconds of zero means no splitting:
// the whole input becomes one segment. Durations that are not positive plan
// nothing; the caller treats that as an analysis failure.
func PlanSegments(duration, segmentSeconds float64) []Segment {
	if duration <= 0 {
		return nil
	}
	if segmentSeconds <= 0 {
		return []Segment{{Start: 0, End: duration}}
	}

	n := int(math.Ceil(duration / segmentSeconds))
	segments := make([]Segment, 0, n)
	for i := 0; i < n; i++ {
		start := float64(i) * segmentSeconds
		end := math.Min(start+segmentSeconds, duration)
		segments = append(segments, Segment{Start: start, End: end})
	}
	return segments
}
