package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Status is the outcome of a run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run is one processed input file.
type Run struct {
	ID            string
	BatchID       string
	Site          string
	Year          string
	InputPath     string
	OutputPath    string
	Format        string
	CRS           string
	MinScore      float64
	MinDetections int
	MinConsec     int
	Detections    int
	Targets       int
	Nests         int
	Status        Status
	Error         string
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Duration reports how long the run took.
func (r Run) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// NewID returns a fresh run or batch identifier.
func NewID() string {
	return uuid.NewString()
}

// ListOptions filters List results. Zero values match everything.
type ListOptions struct {
	Site    string
	Year    string
	BatchID string
	Status  Status
	Limit   int
}
