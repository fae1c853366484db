// Package execution runs cells against the AI client and writes the results
// back through the notebook engine.
package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/scribe/internal/aiclient"
	"github.com/starford/scribe/internal/apperr"
	"github.com/starford/scribe/internal/models"
	"github.com/starford/scribe/internal/notebook"
	"github.com/starford/scribe/internal/store"
)

// Reasons a Run request did not start an execution.
const (
	ReasonEmptyInput     = "empty_input"
	ReasonAlreadyRunning = "already_running"
)

// DefaultLanguage is the language tag sent with code explanations.
const DefaultLanguage = "python"

// DefaultTimeout bounds one execution when no timeout is configured.
const DefaultTimeout = 2 * time.Minute

// writeTimeout bounds the write-back of a result. It starts after the AI
// call returns.
const writeTimeout = 10 * time.Second

// ErrClosed is returned by Run after Close.
var ErrClosed = errors.New("execution: executor is closed")

// Notifier is told about every status transition.
type Notifier interface {
	StatusChanged(documentID, cellID string, status models.Status)
}

// Ticket describes the outcome of a Run request.
type Ticket struct {
	CellID  string `json:"cell_id"`
	Started bool   `json:"started"`
	Reason  string `json:"reason,omitempty"`
}

type run struct {
	documentID string
	status     models.Status
	done       chan struct{}
}

// Executor owns the in-flight registry. A cell has at most one running
// execution; terminal statuses stay in the registry until the cell is
// re-run or forgotten.
type Executor struct {
	engine   *notebook.Engine
	store    store.Store
	client   aiclient.Client
	logger   *slog.Logger
	notify   Notifier
	language string
	timeout  time.Duration
	now      func() time.Time

	mu     sync.Mutex
	runs   map[string]*run
	closed bool
	wg     sync.WaitGroup
}

// Option configures an Executor.
type Option func(*Executor)

// WithNotifier registers a status notifier.
func WithNotifier(n Notifier) Option {
	return func(e *Executor) { e.notify = n }
}

// WithLanguage sets the language tag used for code explanations.
func WithLanguage(lang string) Option {
	return func(e *Executor) {
		if lang != "" {
			e.language = lang
		}
	}
}

// WithTimeout bounds each execution.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// New creates an executor. client is the handle every run uses.
func New(engine *notebook.Engine, s store.Store, client aiclient.Client, logger *slog.Logger, opts ...Option) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Executor{
		engine:   engine,
		store:    s,
		client:   client,
		logger:   logger.With(slog.String("component", "execution")),
		language: DefaultLanguage,
		timeout:  DefaultTimeout,
		now:      time.Now,
		runs:     make(map[string]*run),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Classify picks the AI call for a cell. Code cells that read like a
// question go to a general response, other code cells are explained.
// Markdown and text cells always get a general response.
func Classify(kind models.CellKind, input string) models.Route {
	if kind != models.KindCode {
		return models.RouteGeneral
	}
	lower := strings.ToLower(input)
	if strings.Contains(lower, "?") || strings.Contains(lower, "help") {
		return models.RouteGeneral
	}
	return models.RouteExplain
}

// Run starts an execution of the cell and returns immediately. Runs on a
// cell with blank input, or on a cell that is already running, are
// no-ops reported through the ticket.
func (e *Executor) Run(ctx context.Context, cellID string) (Ticket, error) {
	cell, err := e.store.Cell(ctx, cellID)
	if err != nil {
		return Ticket{}, err
	}
	t := Ticket{CellID: cellID}
	if strings.TrimSpace(cell.Input) == "" {
		t.Reason = ReasonEmptyInput
		return t, nil
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return Ticket{}, ErrClosed
	}
	if r, ok := e.runs[cellID]; ok && r.status == models.StatusRunning {
		e.mu.Unlock()
		t.Reason = ReasonAlreadyRunning
		return t, nil
	}
	r := &run{documentID: cell.DocumentID, status: models.StatusRunning, done: make(chan struct{})}
	e.runs[cellID] = r
	e.wg.Add(1)
	e.mu.Unlock()

	e.emit(cell.DocumentID, cellID, models.StatusRunning)
	e.logger.Info("execution started",
		slog.String("cell_id", cellID),
		slog.String("document_id", cell.DocumentID))

	runCtx := context.WithoutCancel(ctx)
	go func() {
		defer e.wg.Done()
		e.execute(runCtx, cell, r)
	}()

	t.Started = true
	return t, nil
}

// call sends the cell to the AI client, bounded by the run timeout.
func (e *Executor) call(ctx context.Context, route models.Route, input string) (aiclient.Response, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var resp aiclient.Response
	var err error
	switch route {
	case models.RouteExplain:
		resp, err = e.client.ExplainCode(callCtx, input, e.language)
	default:
		resp, err = e.client.Generate(callCtx, input, "")
	}
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("timed out after %s: %w", e.timeout, err)
	}
	return resp, err
}

func (e *Executor) execute(ctx context.Context, cell models.Cell, r *run) {
	route := Classify(cell.Kind, cell.Input)
	start := e.now()

	resp, err := e.call(ctx, route, cell.Input)

	ex := models.Exchange{
		ID:        uuid.NewString(),
		Route:     route,
		Prompt:    cell.Input,
		Latency:   e.now().Sub(start),
		CreatedAt: e.now(),
	}
	status := models.StatusCompleted
	output := resp.Content
	if err != nil {
		status = models.StatusError
		output = "execution error: " + err.Error()
		ex.Outcome = outcomeOf(err)
		ex.Error = err.Error()
	} else {
		ex.Outcome = models.OutcomeSuccess
		ex.Model = resp.Model
		ex.Content = resp.Content
		ex.PromptTokens = resp.Usage.PromptTokens
		ex.CompletionTokens = resp.Usage.CompletionTokens
		ex.TotalTokens = resp.Usage.TotalTokens
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	_, werr := e.engine.WriteResult(writeCtx, cell.ID, output, &ex)
	cancel()
	switch {
	case errors.Is(werr, apperr.ErrNotFound):
		e.logger.Info("cell deleted during execution, result discarded",
			slog.String("cell_id", cell.ID))
		e.finish(cell.ID, r, models.StatusIdle, true)
		return
	case werr != nil:
		e.logger.Error("write execution result",
			slog.String("cell_id", cell.ID),
			slog.String("error", werr.Error()))
		status = models.StatusError
	}

	if err != nil {
		e.logger.Warn("execution failed",
			slog.String("cell_id", cell.ID),
			slog.String("route", string(route)),
			slog.String("error", err.Error()))
	} else {
		e.logger.Info("execution completed",
			slog.String("cell_id", cell.ID),
			slog.String("route", string(route)),
			slog.Int("total_tokens", resp.Usage.TotalTokens))
	}
	e.finish(cell.ID, r, status, false)
}

func (e *Executor) finish(cellID string, r *run, status models.Status, drop bool) {
	e.mu.Lock()
	r.status = status
	if drop && e.runs[cellID] == r {
		delete(e.runs, cellID)
	}
	close(r.done)
	e.mu.Unlock()
	e.emit(r.documentID, cellID, status)
}

func outcomeOf(err error) models.Outcome {
	if errors.Is(err, context.DeadlineExceeded) {
		return models.OutcomeTimeout
	}
	switch aiclient.KindOf(err) {
	case aiclient.KindStatus:
		return models.OutcomeAPIError
	case aiclient.KindDecode:
		return models.OutcomeMalformedResponse
	case aiclient.KindMissingCredential, aiclient.KindInvalidEndpoint, aiclient.KindEncoding:
		return models.OutcomeClientError
	}
	return models.OutcomeTransportError
}

// Status returns the cell's execution status, idle when it never ran.
func (e *Executor) Status(cellID string) models.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	if r, ok := e.runs[cellID]; ok {
		return r.status
	}
	return models.StatusIdle
}

// Annotate fills the Status field of each cell.
func (e *Executor) Annotate(cells []models.Cell) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range cells {
		cells[i].Status = models.StatusIdle
		if r, ok := e.runs[cells[i].ID]; ok {
			cells[i].Status = r.status
		}
	}
}

// Wait blocks until the cell's current execution finishes and returns its
// final status.
func (e *Executor) Wait(ctx context.Context, cellID string) (models.Status, error) {
	e.mu.Lock()
	r, ok := e.runs[cellID]
	e.mu.Unlock()
	if !ok {
		return models.StatusIdle, nil
	}
	select {
	case <-r.done:
		e.mu.Lock()
		defer e.mu.Unlock()
		return r.status, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Forget drops the terminal status of a cell. A running entry is kept; its
// write-back discards the result when the cell is gone.
func (e *Executor) Forget(cellIDs ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, id := range cellIDs {
		if r, ok := e.runs[id]; ok && r.status != models.StatusRunning {
			delete(e.runs, id)
		}
	}
}

// Close stops accepting runs and waits for in-flight executions.
func (e *Executor) Close(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("execution: close: %w", ctx.Err())
	}
}

func (e *Executor) emit(documentID, cellID string, status models.Status) {
	if e.notify != nil {
		e.notify.StatusChanged(documentID, cellID, status)
	}
}
