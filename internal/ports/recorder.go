package ports

import "time"

// Recorder receives outcome events for metrics.
type Recorder interface {
	CycleCompleted(outcome string, activities int, duration time.Duration)
	InstallCompleted(outcome string)
}

type NopRecorder struct{}

func (NopRecorder) CycleCompleted(string, int, time.Duration) {}
func (NopRecorder) InstallCompleted(string)                   {}
