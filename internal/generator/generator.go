package generator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nbyapp/nbyapp/internal/app"
	"github.com/nbyapp/nbyapp/internal/export"
	"github.com/nbyapp/nbyapp/internal/llm"
	"github.com/nbyapp/nbyapp/internal/metrics"
	"github.com/nbyapp/nbyapp/internal/parser"
	"github.com/nbyapp/nbyapp/internal/prompt"
	"github.com/nbyapp/nbyapp/internal/status"
	"github.com/nbyapp/nbyapp/internal/store"
)

// Progress milestones reported to the status broadcaster
const (
	progressStarted    = 5
	progressDispatched = 10
	progressResponse   = 40
	progressParsed     = 50
	progressFiles      = 60
	progressPersisted  = 70
	progressExported   = 90
)

// DefaultTimeout bounds a single provider call
const DefaultTimeout = 30 * time.Second

// DefaultMaxTokens is the completion budget sent to providers
const DefaultMaxTokens = 4000

// Request asks for one app generation
type Request struct {
	ServiceID string `json:"service_id"`
	Idea      string `json:"idea"`
	ModelID   string `json:"model_id,omitempty"`
}

// Result is returned by Generate
type Result struct {
	Success   bool       `json:"success"`
	Message   string     `json:"message"`
	ServiceID string     `json:"service_id"`
	AppID     string     `json:"app_id,omitempty"`
	Files     []app.File `json:"files"`
	Fallback  bool       `json:"fallback"`
	Saved     bool       `json:"saved"`
}

// Options tune a Generator. Zero values select defaults.
type Options struct {
	Timeout   time.Duration
	MaxTokens int
	// MockMode skips network providers and uses the mock generator directly
	MockMode bool
	Exporter export.Exporter
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
	Now      func() time.Time
}

// Generator runs the idea -> prompt -> provider -> files -> store pipeline
type Generator struct {
	registry  *llm.Registry
	providers llm.Providers
	fallback  llm.Provider
	store     store.Store
	status    *status.Broadcaster
	exporter  export.Exporter
	metrics   *metrics.Metrics
	logger    *zap.Logger
	ids       *app.IDGenerator
	timeout   time.Duration
	maxTokens int
	mockMode  bool

	mu      sync.Mutex
	running bool
	seq     uint64
	cancel  context.CancelFunc
}

// NewGenerator creates a new generator
func NewGenerator(registry *llm.Registry, providers llm.Providers, st store.Store, broadcaster *status.Broadcaster, opts Options) *Generator {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	g := &Generator{
		registry:  registry,
		providers: providers,
		fallback:  llm.MockProvider{},
		store:     st,
		status:    broadcaster,
		exporter:  opts.Exporter,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		ids:       app.NewIDGenerator(opts.Now),
		timeout:   opts.Timeout,
		maxTokens: opts.MaxTokens,
		mockMode:  opts.MockMode,
	}
	// The slot is free by the time anyone sees a finished job
	broadcaster.BeforeTerminal(g.release)
	return g
}

// Status returns the broadcaster the generator reports to
func (g *Generator) Status() *status.Broadcaster {
	return g.status
}

// Registry returns the service registry
func (g *Generator) Registry() *llm.Registry {
	return g.registry
}

// Busy reports whether a generation is running
func (g *Generator) Busy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}

// Cancel stops the running generation. It returns false when nothing is running.
func (g *Generator) Cancel() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.running || g.cancel == nil {
		return false
	}
	g.cancel()
	return true
}

func (g *Generator) begin(ctx context.Context) (context.Context, uint64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running {
		return nil, 0, ErrBusy
	}
	runCtx, cancel := context.WithCancel(ctx)
	g.seq++
	g.running = true
	g.cancel = cancel
	g.metrics.SetActive(true)
	return runCtx, g.seq, nil
}

// end frees the slot if job seq still holds it
func (g *Generator) end(seq uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running && g.seq == seq {
		g.releaseLocked()
	}
}

// release frees the slot of the running job. It is called from the terminal
// status transition.
func (g *Generator) release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running {
		g.releaseLocked()
	}
}

func (g *Generator) releaseLocked() {
	if g.cancel != nil {
		g.cancel()
	}
	g.running = false
	g.cancel = nil
	g.metrics.SetActive(false)
}

type job struct {
	seq     uint64
	ctx     context.Context
	svc     llm.Service
	model   llm.Model
	idea    string
	prompt  string
	started time.Time
}

// Generate produces and stores one app for req.
//
// An unknown service fails fast with llm.ErrUnknownService before any status
// change. Provider failures fall back to the mock generator, and store or
// export failures are recorded but do not fail the call. Only cancellation
// by the caller ends a started generation without a result.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	j, err := g.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	return g.run(j)
}

// Start validates req and reserves the generation slot, then runs the
// generation in the background and hands its outcome to done. Errors from
// validation and ErrBusy are returned synchronously.
func (g *Generator) Start(ctx context.Context, req Request, done func(*Result, error)) error {
	j, err := g.prepare(ctx, req)
	if err != nil {
		return err
	}
	go func() {
		res, err := g.run(j)
		if done != nil {
			done(res, err)
		}
	}()
	return nil
}

func (g *Generator) prepare(ctx context.Context, req Request) (*job, error) {
	svc, err := g.registry.Service(req.ServiceID)
	if err != nil {
		return nil, err
	}
	model, err := g.registry.ResolveModel(req.ServiceID, req.ModelID)
	if err != nil {
		return nil, err
	}

	runCtx, seq, err := g.begin(ctx)
	if err != nil {
		return nil, err
	}

	j := &job{
		seq:     seq,
		ctx:     runCtx,
		svc:     svc,
		model:   model,
		idea:    req.Idea,
		prompt:  prompt.Build(req.Idea),
		started: time.Now(),
	}
	// Reset the status before returning so readers never see the previous job as current
	g.status.StartGeneration(svc.DisplayName, model.DisplayName, req.Idea)
	return j, nil
}

func (g *Generator) run(j *job) (*Result, error) {
	defer g.end(j.seq)

	runCtx, svc, model, started := j.ctx, j.svc, j.model, j.started

	g.status.AddStep(fmt.Sprintf("Prepared prompt (%d characters)", len(j.prompt)), status.KindInfo)
	g.status.UpdateProgress(progressStarted)

	llmReq := llm.Request{
		ModelID:     model.ID,
		Prompt:      j.prompt,
		MaxTokens:   g.maxTokens,
		Idea:        j.idea,
		ServiceName: svc.DisplayName,
		ModelName:   model.DisplayName,
	}

	raw, fellBack, err := g.complete(runCtx, svc, llmReq)
	if err != nil {
		return nil, g.abort(svc, started, err)
	}

	files := parser.ExtractFiles(raw)
	g.status.AddStep(fmt.Sprintf("Extracted %d files from response", len(files)), status.KindInfo)
	g.status.UpdateProgress(progressParsed)
	for i, f := range files {
		g.status.AddFile(f)
		g.status.UpdateProgress(progressParsed + (progressFiles-progressParsed)*(i+1)/len(files))
	}

	if err := runCtx.Err(); err != nil {
		return nil, g.abort(svc, started, err)
	}

	id, createdAt := g.ids.Next()
	rec := app.Record{
		ID:                 id,
		DisplayName:        app.DisplayName(j.idea),
		Idea:               j.idea,
		ServiceID:          svc.ID,
		ModelID:            model.ID,
		ServiceDisplayName: svc.DisplayName,
		ModelDisplayName:   model.DisplayName,
		CreatedAt:          createdAt,
		Files:              files,
	}

	saved := true
	if _, err := g.store.Save(runCtx, rec); err != nil {
		saved = false
		var perr *store.PersistenceError
		if !errors.As(err, &perr) {
			perr = &store.PersistenceError{Op: "save", Err: err}
		}
		g.logger.Warn("failed to persist app", zap.String("app_id", id), zap.Error(err))
		g.status.SetError(perr)
	} else {
		g.status.AddStep("Saved app "+id, status.KindInfo)
	}
	g.status.UpdateProgress(progressPersisted)

	g.exportFiles(runCtx, svc.ID, id, files)
	g.status.UpdateProgress(progressExported)

	g.status.UpdateStatus(status.Patch{AppID: &id})
	g.status.CompleteGeneration()

	outcome := "completed"
	if fellBack {
		outcome = "fallback"
	}
	g.metrics.ObserveGeneration(svc.ID, outcome, time.Since(started))
	g.logger.Info("app generated",
		zap.String("app_id", id),
		zap.String("service", svc.ID),
		zap.String("model", model.ID),
		zap.Int("files", len(files)),
		zap.Bool("fallback", fellBack),
		zap.Bool("saved", saved),
	)

	return &Result{
		Success:   true,
		Message:   resultMessage(svc, model, fellBack, g.mockMode, saved),
		ServiceID: svc.ID,
		AppID:     id,
		Files:     files,
		Fallback:  fellBack,
		Saved:     saved,
	}, nil
}

// complete obtains the raw completion, falling back to the mock generator on
// transport failure. It returns an error only when runCtx is done.
func (g *Generator) complete(runCtx context.Context, svc llm.Service, req llm.Request) (string, bool, error) {
	if g.mockMode {
		g.status.AddStep("Mock mode enabled, skipping "+svc.DisplayName+" request", status.KindInfo)
		g.status.UpdateProgress(progressDispatched)
		raw, err := g.fallback.Invoke(runCtx, req)
		if err != nil {
			return "", false, err
		}
		g.status.UpdateProgress(progressResponse)
		return raw, false, nil
	}

	raw, err := g.invoke(runCtx, svc, req)
	if err == nil {
		g.status.AddStep("Received response from "+svc.DisplayName, status.KindInfo)
		g.status.UpdateProgress(progressResponse)
		return raw, false, nil
	}
	if runCtx.Err() != nil {
		return "", false, runCtx.Err()
	}

	g.logger.Warn("provider call failed, using mock generator",
		zap.String("service", svc.ID),
		zap.String("model", req.ModelID),
		zap.Error(err),
	)
	g.status.SetError(err)
	g.status.AddStep("Falling back to mock generator", status.KindWarning)
	g.metrics.IncFallback(svc.ID)

	raw, err = g.fallback.Invoke(runCtx, req)
	if err != nil {
		return "", true, err
	}
	g.status.UpdateProgress(progressResponse)
	return raw, true, nil
}

// invoke calls the service provider under the bounded wait. Every failure is
// returned as *llm.TransportError.
func (g *Generator) invoke(runCtx context.Context, svc llm.Service, req llm.Request) (string, error) {
	provider, ok := g.providers.For(svc.ID)
	if !ok {
		return "", &llm.TransportError{Provider: svc.ID, Err: errors.New("no provider configured")}
	}

	callCtx, cancel := context.WithTimeout(runCtx, g.timeout)
	defer cancel()

	g.status.AddStep(fmt.Sprintf("Sending request to %s (%s)", svc.DisplayName, req.ModelName), status.KindInfo)
	g.status.UpdateProgress(progressDispatched)

	raw, err := provider.Invoke(callCtx, req)
	if err == nil {
		return raw, nil
	}

	var te *llm.TransportError
	if !errors.As(err, &te) {
		te = &llm.TransportError{Provider: provider.Name(), Err: err}
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) && runCtx.Err() == nil {
		te.Timeout = true
		if te.Err == nil || !errors.Is(te.Err, context.DeadlineExceeded) {
			te.Err = fmt.Errorf("no response within %s: %w", g.timeout, context.DeadlineExceeded)
		}
	}
	return "", te
}

func (g *Generator) exportFiles(ctx context.Context, serviceID, appID string, files []app.File) {
	if g.exporter == nil {
		return
	}
	g.status.AddStep("Saving files for "+appID, status.KindInfo)
	loc, err := g.exporter.Export(ctx, appID, files)
	if err != nil {
		g.metrics.IncExportError(serviceID)
		g.logger.Warn("failed to export files", zap.String("app_id", appID), zap.Error(err))
		g.status.AddStep("Failed to save files: "+err.Error(), status.KindWarning)
		if loc == "" {
			return
		}
	}
	if loc != "" {
		g.status.AddStep("Files saved to "+loc, status.KindSuccess)
	}
}

// abort ends a started generation after the caller cancelled it
func (g *Generator) abort(svc llm.Service, started time.Time, cause error) error {
	g.status.FailGeneration(cause, status.OutcomeCancelled)
	g.metrics.ObserveGeneration(svc.ID, "cancelled", time.Since(started))
	g.logger.Info("generation cancelled", zap.String("service", svc.ID), zap.Error(cause))
	return fmt.Errorf("%w: %v", ErrCancelled, cause)
}

func resultMessage(svc llm.Service, model llm.Model, fellBack, mockMode, saved bool) string {
	var msg string
	switch {
	case mockMode:
		msg = fmt.Sprintf("App generated in mock mode for %s (%s)", svc.DisplayName, model.DisplayName)
	case fellBack:
		msg = fmt.Sprintf("%s request failed, generated a placeholder app instead", svc.DisplayName)
	default:
		msg = fmt.Sprintf("App generated successfully with %s (%s)", svc.DisplayName, model.DisplayName)
	}
	if !saved {
		msg += "; the app could not be saved"
	}
	return msg
}
