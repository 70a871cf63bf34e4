package bcomp

import (
	"encoding/json"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// FileID identifies which side of a comparison an event refers to.
type FileID int

const (
	// FileA is the first file passed to StartComparison.
	FileA FileID = iota
	// FileB is the second file passed to StartComparison.
	FileB
)

func (f FileID) String() string {
	if f == FileB {
		return "b"
	}
	return "a"
}

// Event is implemented by every value sent on the channel returned by
// StartComparison. Apart from MarshalJSON the interface only marks
// membership; callers type-switch on concrete types.
type Event interface {
	isEvent()
	// MarshalJSON is implemented by every Event so a consumer out of
	// process (a CLI, a desktop shell) can serialize the channel
	// without bcomp knowing anything about that transport.
	json.Marshaler
}

// ProgressEvent reports advisory completion percentage for one phase.
type ProgressEvent struct {
	Percentage float64
	File       FileID
	Text       string
}

func (ProgressEvent) isEvent() {}

func (e ProgressEvent) MarshalJSON() ([]byte, error) {
	return jsonAPI.Marshal(struct {
		Type       string  `json:"type"`
		Percentage float64 `json:"percentage"`
		File       string  `json:"file"`
		Text       string  `json:"text"`
	}{"progress", e.Percentage, e.File.String(), e.Text})
}

// StepCompletedEvent marks the end of one orchestrator phase.
type StepCompletedEvent struct {
	Step     string
	Duration time.Duration
}

func (StepCompletedEvent) isEvent() {}

func (e StepCompletedEvent) MarshalJSON() ([]byte, error) {
	return jsonAPI.Marshal(struct {
		Type       string `json:"type"`
		Step       string `json:"step"`
		DurationMS int64  `json:"duration_ms"`
	}{"step_completed", e.Step, e.Duration.Milliseconds()})
}

// UniqueLineEvent reports one line whose occurrence count differs
// between the two files.
type UniqueLineEvent struct {
	File       FileID
	LineNumber uint64
	Text       string
}

func (UniqueLineEvent) isEvent() {}

func (e UniqueLineEvent) MarshalJSON() ([]byte, error) {
	return jsonAPI.Marshal(struct {
		Type       string `json:"type"`
		File       string `json:"file"`
		LineNumber uint64 `json:"line_number"`
		Text       string `json:"text"`
	}{"unique_line", e.File.String(), e.LineNumber, e.Text})
}

// ComparisonFinishedEvent marks successful completion. It is always
// the last event sent before the channel is closed on a success path.
type ComparisonFinishedEvent struct{}

func (ComparisonFinishedEvent) isEvent() {}

func (ComparisonFinishedEvent) MarshalJSON() ([]byte, error) {
	return jsonAPI.Marshal(struct {
		Type string `json:"type"`
	}{"comparison_finished"})
}

// ComparisonFailedEvent marks a comparison that could not complete.
// It is always the last event sent before the channel is closed on a
// failure path.
type ComparisonFailedEvent struct{ Err error }

func (ComparisonFailedEvent) isEvent() {}

func (e ComparisonFailedEvent) MarshalJSON() ([]byte, error) {
	msg := ""
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return jsonAPI.Marshal(struct {
		Type  string `json:"type"`
		Error string `json:"error"`
	}{"comparison_failed", msg})
}
