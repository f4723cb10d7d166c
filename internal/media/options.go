package media

import (
	"errors"
	"fmt"
	"strings"
)

// Options describes a single codec invocation: the codec name plus raw
// encoder parameters passed through to the worker untouched.
type Options struct {
	Codec  string   `json:"codec"`
	Params []string `json:"params,omitempty"`
}

// JobOptions captures everything a client chooses at submission time.
// Audio is optional; a nil Audio means the stream is copied or dropped by the
// worker according to its defaults. SegmentSeconds of zero disables
// splitting and the whole input is transcoded as one task.
type JobOptions struct {
	Video          Options  `json:"video"`
	Audio          *Options `json:"audio,omitempty"`
	SegmentSeconds float64  `json:"segment_seconds"`
}

// Validate rejects option sets the scheduler cannot act on. Nothing is
// created for an invalid submission.
func (o JobOptions) Validate() error {
	if strings.TrimSpace(o.Video.Codec) == "" {
		return errors.New("video codec is required")
	}
	if o.Audio != nil && strings.TrimSpace(o.Audio.Codec) == "" {
		return errors.New("audio codec must be set when audio options are provided")
	}
	if o.SegmentSeconds < 0 {
		return fmt.Errorf("segment duration must not be negative, got %v", o.SegmentSeconds)
	}
	return nil
}
