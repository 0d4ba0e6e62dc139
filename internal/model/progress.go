package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// Status is the explicit job state a server may attach to a progress event.
type Status string

const (
	StatusRunning   Status = "running"
	StatusFinished  Status = "finished"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// terminalKeywords is the fallback used when an event carries no usable status.
var terminalKeywords = []string{"finished", "done", "cancel", "failed", "error"}

type ProgressEvent struct {
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
	Status  Status  `json:"status,omitempty"`
}

var errNullEvent = errors.New("progress event is null")

// DecodeProgress parses one stream message. Anything that is not a JSON object
// with the expected field types is an error.
func DecodeProgress(data []byte) (ProgressEvent, error) {
	var ev ProgressEvent
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		return ev, errNullEvent
	}
	if err := json.Unmarshal(trimmed, &ev); err != nil {
		return ProgressEvent{}, err
	}
	return ev, nil
}

// Terminal reports whether the event ends the job. An explicit status wins;
// without one the percent and message text decide.
func (e ProgressEvent) Terminal() bool {
	switch Status(strings.ToLower(string(e.Status))) {
	case StatusRunning:
		return false
	case StatusFinished, StatusCancelled, StatusFailed:
		return true
	}

	if e.Percent >= 100 {
		return true
	}
	msg := strings.ToLower(e.Message)
	for _, kw := range terminalKeywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

// ClampedPercent bounds Percent to [0, 100] for display.
func (e ProgressEvent) ClampedPercent() float64 {
	switch {
	case e.Percent < 0:
		return 0
	case e.Percent > 100:
		return 100
	}
	return e.Percent
}
