package jobs

import "time"

// Status represents the lifecycle of an analysis job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusRunning,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// IsValid reports whether the status is one of the known lifecycle values.
func (s Status) IsValid() bool {
	_, ok := statusSet[s]
	return ok
}

// Terminal reports whether the job has finished, successfully or not.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is one row of the job index.
type Job struct {
	ID        string
	VideoURL  string
	Status    Status
	Stage     string
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Stats summarizes the index by status.
type Stats struct {
	Total     int
	Pending   int
	Running   int
	Completed int
	Failed    int
}
