package status

// JobState enumerates the lifecycle of a batch job record.
type JobState string

const (
	// JobQueued is set when the job record is created, before any item runs.
	JobQueued JobState = "queued"
	// JobProcessing is set from the first item's progress write onward.
	JobProcessing JobState = "processing"
	// JobCompleted is set exactly once, after the last item, regardless of
	// per-item failures.
	JobCompleted JobState = "completed"
	// JobInterrupted is set when a shutdown drains an in-flight job before
	// it finishes, so pollers are not left staring at "processing".
	JobInterrupted JobState = "interrupted"
)

// ResultState enumerates terminal states of a single recording.
type ResultState string

const (
	ResultCompleted ResultState = "completed"
	ResultFailed    ResultState = "failed"
)

// JobStatus is the aggregate progress record for one batch job.
// Current is monotonically non-decreasing; Total is fixed at creation.
type JobStatus struct {
	Status  JobState `json:"status"`
	Current *int     `json:"current"`
	Total   *int     `json:"total"`
}

// TranscriptionStatus is the terminal record for one recording, keyed by
// recording id independent of the job that processed it. Exactly one of
// (Text, Duration) or Error is populated.
type TranscriptionStatus struct {
	Status   ResultState `json:"status"`
	Text     *string     `json:"text,omitempty"`
	Duration *float64    `json:"duration,omitempty"`
	Error    *string     `json:"error,omitempty"`
}

// IntPtr returns a pointer to v. Convenience for building partial updates.
func IntPtr(v int) *int { return &v }

// StringPtr returns a pointer to v.
func StringPtr(v string) *string { return &v }

// Float64Ptr returns a pointer to v.
func Float64Ptr(v float64) *float64 { return &v }
