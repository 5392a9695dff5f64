package status

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nbyapp/nbyapp/internal/app"
)

// Observer receives a full status snapshot on every change.
// Observers run synchronously and must not call back into the Broadcaster.
type Observer func(Status)

// KindedError is implemented by errors that name their category in ErrorInfo.Kind
type KindedError interface {
	error
	ErrorKind() string
}

// Broadcaster owns the status of one generation slot and fans every change
// out to its observers. Each observer sees snapshots in mutation order.
type Broadcaster struct {
	mu        sync.Mutex
	status    Status
	observers map[uint64]Observer
	order     []uint64
	nextID    uint64
	now       func() time.Time

	beforeTerminal func()
}

// NewBroadcaster creates an idle broadcaster
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		status:    Status{Steps: []Step{}, Files: []app.File{}},
		observers: make(map[uint64]Observer),
		now:       time.Now,
	}
}

// Subscribe registers fn, calls it immediately with the current status and
// returns a function that removes it again.
func (b *Broadcaster) Subscribe(fn Observer) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.observers[id] = fn
	b.order = append(b.order, id)
	fn(b.status.clone())
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.observers, id)
			for i, oid := range b.order {
				if oid == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

// BeforeTerminal registers fn to run inside every terminal transition, after
// the status changed and before any observer sees the terminal snapshot.
// fn runs under the broadcaster lock and must not call back into it.
func (b *Broadcaster) BeforeTerminal(fn func()) {
	b.mu.Lock()
	b.beforeTerminal = fn
	b.mu.Unlock()
}

// Snapshot returns a copy of the current status
func (b *Broadcaster) Snapshot() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status.clone()
}

// StartGeneration resets the status for a new job
func (b *Broadcaster) StartGeneration(serviceName, modelName, idea string) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.status = Status{
		JobID:        uuid.NewString(),
		IsGenerating: true,
		Steps: []Step{{
			Time:    now,
			Message: fmt.Sprintf("Starting app generation with %s (%s)", serviceName, modelName),
			Kind:    KindInfo,
		}},
		Progress:    0,
		CurrentStep: "Initializing",
		Files:       []app.File{},
		ServiceName: serviceName,
		ModelName:   modelName,
		Idea:        idea,
		StartedAt:   now,
	}
	b.notifyLocked()
	return b.status.JobID
}

// AddStep appends a log entry and makes it the current step
func (b *Broadcaster) AddStep(message string, kind Kind) {
	b.mutate(func(s *Status) {
		b.appendStepLocked(s, message, kind)
	})
}

// UpdateProgress clamps value to [0,100]. Progress never moves backwards within a job.
func (b *Broadcaster) UpdateProgress(value int) {
	b.mutate(func(s *Status) {
		s.Progress = nextProgress(s.Progress, value)
	})
}

// AddFile records a generated file and narrates it as a file step
func (b *Broadcaster) AddFile(f app.File) {
	b.mutate(func(s *Status) {
		s.Files = append(s.Files, f)
		b.appendStepLocked(s, "Created file: "+f.Name, KindFile)
	})
}

// SetError records err and logs it. The job keeps running; the caller decides
// whether to fall back or stop.
func (b *Broadcaster) SetError(err error) {
	if err == nil {
		return
	}
	b.mutate(func(s *Status) {
		s.Error = &ErrorInfo{Kind: errorKind(err), Message: err.Error()}
		b.appendStepLocked(s, "Error: "+err.Error(), KindError)
	})
}

// CompleteGeneration marks the job finished successfully
func (b *Broadcaster) CompleteGeneration() {
	b.mutate(func(s *Status) {
		s.IsGenerating = false
		s.Progress = 100
		s.Outcome = OutcomeCompleted
		b.appendStepLocked(s, "Generation completed successfully", KindSuccess)
	})
}

// FailGeneration ends the job without a result. outcome is OutcomeFailed or OutcomeCancelled.
func (b *Broadcaster) FailGeneration(err error, outcome Outcome) {
	if outcome != OutcomeCancelled {
		outcome = OutcomeFailed
	}
	b.mutate(func(s *Status) {
		s.IsGenerating = false
		s.Outcome = outcome
		msg := "unknown error"
		if err != nil {
			msg = err.Error()
		}
		if outcome == OutcomeCancelled {
			s.Error = &ErrorInfo{Kind: string(OutcomeCancelled), Message: msg}
			b.appendStepLocked(s, "Generation cancelled: "+msg, KindWarning)
			return
		}
		kind := "error"
		if err != nil {
			kind = errorKind(err)
		}
		s.Error = &ErrorInfo{Kind: kind, Message: msg}
		b.appendStepLocked(s, "Generation failed: "+msg, KindError)
	})
}

// UpdateStatus merges the set fields of p into the status
func (b *Broadcaster) UpdateStatus(p Patch) {
	b.mutate(func(s *Status) {
		if p.AppID != nil {
			s.AppID = *p.AppID
		}
		if p.CurrentStep != nil {
			s.CurrentStep = *p.CurrentStep
		}
		if p.Progress != nil {
			s.Progress = nextProgress(s.Progress, *p.Progress)
		}
		if p.Error != nil {
			e := *p.Error
			s.Error = &e
		}
	})
}

// mutate applies fn and notifies observers. A finished job is frozen until
// the next StartGeneration, so late writes are dropped.
func (b *Broadcaster) mutate(fn func(s *Status)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.status.IsTerminal() {
		return
	}
	fn(&b.status)
	if b.status.IsTerminal() && b.beforeTerminal != nil {
		b.beforeTerminal()
	}
	b.notifyLocked()
}

func (b *Broadcaster) appendStepLocked(s *Status, message string, kind Kind) {
	if kind == "" {
		kind = KindInfo
	}
	s.Steps = append(s.Steps, Step{Time: b.now(), Message: message, Kind: kind})
	s.CurrentStep = message
}

func (b *Broadcaster) notifyLocked() {
	for _, id := range b.order {
		b.observers[id](b.status.clone())
	}
}

func nextProgress(current, value int) int {
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}
	if value < current {
		return current
	}
	return value
}

func errorKind(err error) string {
	var ke KindedError
	if errors.As(err, &ke) {
		return ke.ErrorKind()
	}
	return "error"
}
