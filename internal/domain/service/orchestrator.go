package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonny/kube-actions/internal/domain/model"
	"github.com/jonny/kube-actions/internal/domain/port/inbound"
	"github.com/jonny/kube-actions/internal/domain/port/outbound"
	"github.com/jonny/kube-actions/internal/metrics"
)

const defaultTimeout = 30 * time.Second

// Config tunes the orchestrator.
type Config struct {
	// DefaultTimeout bounds every kubectl step.
	DefaultTimeout time.Duration
	// WorkspaceDir is the only directory manifestPath may point into. Empty
	// disables path-based apply.
	WorkspaceDir string
}

// Orchestrator validates requests, builds their kubectl steps and runs them
// in order. It implements inbound.MutationPort.
type Orchestrator struct {
	builder    *CommandBuilder
	runner     outbound.ProcessRunner
	executions outbound.ExecutionRepository
	notifier   outbound.Notifier
	logger     *slog.Logger
	cfg        Config
}

// NewOrchestrator creates an Orchestrator with all required dependencies.
func NewOrchestrator(
	builder *CommandBuilder,
	runner outbound.ProcessRunner,
	executions outbound.ExecutionRepository,
	notifier outbound.Notifier,
	logger *slog.Logger,
	cfg Config,
) *Orchestrator {
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		builder:    builder,
		runner:     runner,
		executions: executions,
		notifier:   notifier,
		logger:     logger,
		cfg:        cfg,
	}
}

// Ensure Orchestrator satisfies the inbound port at compile time.
var _ inbound.MutationPort = (*Orchestrator)(nil)

// Execute runs every step of req. Steps run strictly in order; the first
// failure stops the sequence and nothing that already succeeded is undone.
func (o *Orchestrator) Execute(ctx context.Context, action model.Action, req model.MutationRequest) model.OrchestrationOutcome {
	outcome := model.OrchestrationOutcome{
		ID:        model.NewID(),
		Action:    action,
		Request:   req,
		StartedAt: time.Now().UTC(),
	}

	if err := ValidateRequest(req); err != nil {
		return o.reject(outcome, err)
	}

	outcome.RequestedSteps = o.builder.Plan(req)
	o.runSteps(ctx, &outcome)
	outcome.FinishedAt = time.Now().UTC()

	o.record(ctx, outcome)
	return outcome
}

// Apply applies a manifest given inline or as a path inside the workspace
// directory, returning the resources kubectl reported.
func (o *Orchestrator) Apply(ctx context.Context, req model.MutationRequest) (model.OrchestrationOutcome, []model.AppliedResource) {
	req.Operation = model.OperationApply

	if req.ManifestPath != "" {
		path, err := o.resolveManifestPath(req.ManifestPath)
		if err != nil {
			return o.reject(model.OrchestrationOutcome{
				ID:        model.NewID(),
				Action:    model.ActionApplyManifest,
				Request:   req,
				StartedAt: time.Now().UTC(),
			}, err), nil
		}
		req = req.WithManifestPath(path)
	}

	outcome := o.Execute(ctx, model.ActionApplyManifest, req)
	if !outcome.Succeeded() {
		return outcome, nil
	}
	return outcome, ParseApplyOutput(outcome.Output())
}

// ListResources runs `kubectl get <kind> --output name` and parses the result.
// Reads are neither audited nor notified.
func (o *Orchestrator) ListResources(ctx context.Context, kind, namespace string) ([]model.ResourceRef, error) {
	req := model.MutationRequest{
		Kind:      model.Kind(strings.ToLower(kind)),
		Operation: model.OperationList,
		Namespace: namespace,
	}
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	spec := o.builder.Build(req)
	result, err := o.runner.Run(ctx, spec, o.cfg.DefaultTimeout)
	if err != nil {
		o.logger.Error("list resources failed", "kind", kind, "namespace", namespace, "error", err)
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	if !result.Succeeded() {
		return nil, &model.NonZeroExitError{Command: spec.String(), ExitCode: result.ExitCode, Stderr: result.Stderr}
	}
	return ParseResourceNames(string(req.Kind), result.Stdout), nil
}

// GetExecution returns a single audit record. Lookups that match nothing wrap
// outbound.ErrNotFound.
func (o *Orchestrator) GetExecution(ctx context.Context, id string) (model.Execution, error) {
	e, err := o.executions.GetByID(ctx, id)
	if err != nil {
		return model.Execution{}, fmt.Errorf("get execution: %w", err)
	}
	return e, nil
}

// ListExecutions returns recorded outcomes, newest first unless page says otherwise.
func (o *Orchestrator) ListExecutions(ctx context.Context, filter outbound.ExecutionFilter, page outbound.PageRequest) (outbound.PageResult[model.Execution], error) {
	if page.Page < 1 {
		page.Page = 1
	}
	if page.Size < 1 || page.Size > 200 {
		page.Size = 50
	}
	if page.OrderBy == "" {
		page.OrderBy = "created_at"
		page.Desc = true
	}
	res, err := o.executions.List(ctx, filter, page)
	if err != nil {
		return outbound.PageResult[model.Execution]{}, fmt.Errorf("list executions: %w", err)
	}
	return res, nil
}

// runSteps fills in CompletedSteps, Status and Err. A result is recorded for
// every step that ran to exit, including the one that failed.
func (o *Orchestrator) runSteps(ctx context.Context, outcome *model.OrchestrationOutcome) {
	for i, step := range outcome.RequestedSteps {
		result, err := o.runner.Run(ctx, step, o.cfg.DefaultTimeout)
		if err == nil {
			outcome.CompletedSteps = append(outcome.CompletedSteps, result)
			if result.Succeeded() {
				continue
			}
			err = &model.NonZeroExitError{Command: step.String(), ExitCode: result.ExitCode, Stderr: result.Stderr}
		}

		if i == 0 {
			outcome.Status = model.StatusFailure
			outcome.Err = err
			return
		}
		outcome.Status = model.StatusPartialSuccess
		outcome.Err = &model.PartialFailureError{
			Completed: outcome.RequestedSteps[i-1].String(),
			Err:       err,
		}
		return
	}
	outcome.Status = model.StatusFullSuccess
}

// reject finishes an outcome that failed before any process was spawned.
func (o *Orchestrator) reject(outcome model.OrchestrationOutcome, err error) model.OrchestrationOutcome {
	outcome.Status = model.StatusFailure
	outcome.Err = err
	outcome.FinishedAt = time.Now().UTC()

	o.logger.Warn("request rejected",
		"id", outcome.ID,
		"action", outcome.Action,
		"error", err,
	)
	metrics.ObserveOutcome(string(outcome.Action), string(outcome.Status))
	return outcome
}

// record logs, audits and, for anything short of full success, notifies.
// None of these can change the outcome.
func (o *Orchestrator) record(ctx context.Context, outcome model.OrchestrationOutcome) {
	metrics.ObserveOutcome(string(outcome.Action), string(outcome.Status))

	attrs := []any{
		"id", outcome.ID,
		"action", outcome.Action,
		"namespace", outcome.Request.Namespace,
		"status", outcome.Status,
		"steps", len(outcome.CompletedSteps),
		"duration", outcome.Duration(),
	}
	switch outcome.Status {
	case model.StatusFullSuccess:
		o.logger.Info("mutation completed", attrs...)
	case model.StatusPartialSuccess:
		o.logger.Warn("mutation partially completed", append(attrs, "error", outcome.Err)...)
	default:
		o.logger.Error("mutation failed", append(attrs, "error", outcome.Err)...)
	}

	execution := model.NewExecution(outcome)

	// The request context may already be gone; the audit row must still land.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := o.executions.Create(writeCtx, execution); err != nil {
		o.logger.Error("failed to record execution", "id", execution.ID, "error", err)
	}

	if outcome.Succeeded() {
		return
	}
	err := o.notifier.NotifyOutcome(writeCtx, outbound.OutcomeNotification{
		ExecutionID: execution.ID,
		Action:      string(execution.Action),
		Kind:        execution.Kind,
		Namespace:   execution.Namespace,
		Names:       execution.Names,
		Status:      string(execution.Status),
		ErrorKind:   string(execution.ErrorKind),
		Error:       execution.ErrorMessage,
		Commands:    execution.Commands,
	})
	if err != nil {
		o.logger.Error("failed to send outcome notification", "id", execution.ID, "error", err)
	}
}

func (o *Orchestrator) resolveManifestPath(path string) (string, error) {
	if o.cfg.WorkspaceDir == "" {
		return "", model.NewValidationError("manifestPath", "path-based apply is disabled")
	}
	root, err := filepath.Abs(o.cfg.WorkspaceDir)
	if err != nil {
		return "", fmt.Errorf("resolve workspace dir: %w", err)
	}

	candidate := path
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(root, candidate)
	}
	candidate = filepath.Clean(candidate)

	if !within(root, candidate) {
		return "", model.NewValidationError("manifestPath", "%q is outside the workspace directory", path)
	}

	// Symlinks inside the workspace must not lead out of it.
	resolved, err := filepath.EvalSymlinks(candidate)
	if errors.Is(err, fs.ErrNotExist) {
		return "", model.NewValidationError("manifestPath", "%q does not exist", path)
	}
	if err != nil {
		return "", fmt.Errorf("resolve manifest: %w", err)
	}
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", fmt.Errorf("resolve workspace dir: %w", err)
	}
	if !within(realRoot, resolved) {
		return "", model.NewValidationError("manifestPath", "%q is outside the workspace directory", path)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("stat manifest: %w", err)
	}
	if info.IsDir() {
		return "", model.NewValidationError("manifestPath", "%q is a directory", path)
	}
	// kubectl gets the checked target, not a link it would follow again.
	return resolved, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
