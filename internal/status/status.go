package status

import (
	"time"

	"github.com/nbyapp/nbyapp/internal/app"
)

// Kind classifies a step log entry
type Kind string

const (
	KindInfo    Kind = "info"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
	KindSuccess Kind = "success"
	KindFile    Kind = "file"
)

// Outcome is how a generation ended
type Outcome string

const (
	OutcomeNone      Outcome = ""
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
)

// Step is one entry of the generation log
type Step struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
	Kind    Kind      `json:"type"`
}

// ErrorInfo describes the last error recorded during a generation
type ErrorInfo struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Status is the state of the current generation job
type Status struct {
	JobID        string     `json:"job_id,omitempty"`
	IsGenerating bool       `json:"is_generating"`
	Steps        []Step     `json:"steps"`
	Progress     int        `json:"progress"`
	CurrentStep  string     `json:"current_step"`
	Files        []app.File `json:"files"`
	Error        *ErrorInfo `json:"error,omitempty"`
	AppID        string     `json:"app_id,omitempty"`
	ServiceName  string     `json:"service,omitempty"`
	ModelName    string     `json:"model,omitempty"`
	Idea         string     `json:"idea,omitempty"`
	StartedAt    time.Time  `json:"started_at,omitempty"`
	Outcome      Outcome    `json:"outcome,omitempty"`
}

// IsTerminal returns true once the job has completed, failed or been cancelled
func (s Status) IsTerminal() bool {
	return s.Outcome != OutcomeNone
}

// clone returns a deep copy safe to hand to observers
func (s Status) clone() Status {
	out := s
	out.Steps = append([]Step(nil), s.Steps...)
	out.Files = append([]app.File(nil), s.Files...)
	if s.Error != nil {
		e := *s.Error
		out.Error = &e
	}
	return out
}

// Patch carries the fields UpdateStatus merges into the status. Nil fields are left alone.
type Patch struct {
	AppID       *string
	CurrentStep *string
	Progress    *int
	Error       *ErrorInfo
}
