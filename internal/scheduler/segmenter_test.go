package scheduler

import (
	"math"
	"testing"
)

func TestPlanSegmentsSplitsWithShortTail(t *testing.T) {
	segments := PlanSegments(62.5, 25)
	want := []Segment{
		{Start: 0, End: 25},
		{Start: 25, End: 50},
		{Start: 50, End: 62.5},
	}
	if len(segments) != len(want) {
		t.Fatalf("expected %d segments, got %d", len(want), len(segments))
	}
	for i, seg := range segments {
		if math.Abs(seg.Start-want[i].Start) > 1e-9 || math.Abs(seg.End-want[i].End) > 1e-9 {
			t.Errorf("segment %d = %+v, want %+v", i, seg, want[i])
		}
	}
}

func TestPlanSegmentsCoversDurationExactly(t *testing.T) {
	segments := PlanSegments(90, 30)
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segments))
	}
	var prev float64
	for i, seg := range segments {
		if seg.Start != prev {
			t.Errorf("segment %d starts at %v, want %v", i, seg.Start, prev)
		}
		if seg.End <= seg.Start {
			t.Errorf("segment %d is empty: %+v", i, seg)
		}
		prev = seg.End
	}
	if prev != 90 {
		t.Errorf("segments end at %v, want 90", prev)
	}
}

func TestPlanSegmentsZeroMeansWholeInput(t *testing.T) {
	segments := PlanSegments(45, 0)
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segments))
	}
	if segments[0].Start != 0 || segments[0].End != 45 {
		t.Errorf("segment = %+v, want [0, 45)", segments[0])
	}
}

func TestPlanSegmentsRejectsNonPositiveDuration(t *testing.T) {
	for _, duration := range []float64{0, -10} {
		if got := PlanSegments(duration, 30); got != nil {
			t.Errorf("PlanSegments(%v, 30) = %v, want nil", duration, got)
		}
	}
}

func TestPlanSegmentsShortInputSingleSegment(t *testing.T) {
	segments := PlanSegments(12, 30)
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segments))
	}
	if segments[0] != (Segment{Start: 0, End: 12}) {
		t.Errorf("segment = %+v, want [0, 12)", segments[0])
	}
}
