package domain

import "time"

// JobStatus is the lifecycle status of an ingestion job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCanceled  JobStatus = "canceled"
)

// IsTerminal reports whether no further transitions can happen.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCanceled
}

// IsActive reports whether the job holds its profile's single active slot.
func (s JobStatus) IsActive() bool {
	return s == JobQueued || s == JobRunning
}

// Valid reports whether s is a known status.
func (s JobStatus) Valid() bool {
	return s.IsActive() || s.IsTerminal()
}

// JobPhase is the pipeline stage a running job is in.
type JobPhase string

const (
	PhasePreflight JobPhase = "preflight"
	PhaseExtract   JobPhase = "extract"
	PhaseEmbed     JobPhase = "embed"
	PhaseUpsert    JobPhase = "upsert"
	PhaseFinished  JobPhase = "finished"
)

// Job list limits.
const (
	DefaultJobListLimit = 20
	MaxJobListLimit     = 200
)

// Job is the durable record of one ingestion run.
type Job struct {
	ID         string `json:"job_id"`
	Profile    string `json:"profile"`
	Provider   string `json:"provider"`
	ModelName  string `json:"model_name"`
	ModelDim   int    `json:"model_dim"`
	VectorDB   string `json:"vector_db"`
	Collection string `json:"collection"`
	Truncate   bool   `json:"truncate"`

	Status JobStatus `json:"status"`
	Phase  JobPhase  `json:"phase"`
	Error  string    `json:"error,omitempty"`

	FilesTotal  int    `json:"files_total"`
	FilesDone   int    `json:"files_done"`
	PagesTotal  int    `json:"pages_total"`
	PagesDone   int    `json:"pages_done"`
	ChunksDone  int    `json:"chunks_done"`
	CurrentFile string `json:"current_file,omitempty"`

	// ChunksPerMin is advisory throughput, computed after embed and upsert.
	ChunksPerMin float64 `json:"chunks_per_min"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JobUpdate is a field-level patch. Nil fields are left unchanged.
type JobUpdate struct {
	Status       *JobStatus
	Phase        *JobPhase
	Error        *string
	FilesTotal   *int
	FilesDone    *int
	PagesTotal   *int
	PagesDone    *int
	ChunksDone   *int
	CurrentFile  *string
	ChunksPerMin *float64
}

// Apply copies the set fields onto job.
func (u JobUpdate) Apply(job *Job) {
	if u.Status != nil {
		job.Status = *u.Status
	}
	if u.Phase != nil {
		job.Phase = *u.Phase
	}
	if u.Error != nil {
		job.Error = *u.Error
	}
	if u.FilesTotal != nil {
		job.FilesTotal = *u.FilesTotal
	}
	if u.FilesDone != nil {
		job.FilesDone = *u.FilesDone
	}
	if u.PagesTotal != nil {
		job.PagesTotal = *u.PagesTotal
	}
	if u.PagesDone != nil {
		job.PagesDone = *u.PagesDone
	}
	if u.ChunksDone != nil {
		job.ChunksDone = *u.ChunksDone
	}
	if u.CurrentFile != nil {
		job.CurrentFile = *u.CurrentFile
	}
	if u.ChunksPerMin != nil {
		job.ChunksPerMin = *u.ChunksPerMin
	}
}

// Empty reports whether the update sets nothing.
func (u JobUpdate) Empty() bool {
	return u == JobUpdate{}
}

// JobFilter narrows ListJobs. Zero values match everything.
type JobFilter struct {
	Profile string
	Status  JobStatus
	Limit   int
}

// Normalize clamps Limit into [1, MaxJobListLimit], defaulting to
// DefaultJobListLimit.
func (f JobFilter) Normalize() JobFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultJobListLimit
	}
	if f.Limit > MaxJobListLimit {
		f.Limit = MaxJobListLimit
	}
	return f
}

// Ptr returns a pointer to v. Used to build JobUpdate values.
func Ptr[T any](v T) *T {
	return &v
}

// EnqueueResult is returned when a job is accepted.
type EnqueueResult struct {
	Status           JobStatus `json:"status"`
	JobID            string    `json:"job_id"`
	Profile          string    `json:"profile"`
	CanceledPrevious int       `json:"canceled_previous"`
	Collection       string    `json:"collection"`
}
