package kubernetes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/jonny/kube-actions/internal/domain/model"
	"github.com/jonny/kube-actions/internal/domain/port/outbound"
	"github.com/jonny/kube-actions/internal/metrics"
)

const (
	defaultRunTimeout = 30 * time.Second
	defaultKillGrace  = 5 * time.Second
)

// RunnerConfig configures process execution.
type RunnerConfig struct {
	// Binary is only used by HealthCheck; Run takes the binary from each spec.
	Binary         string
	Kubeconfig     string
	DefaultTimeout time.Duration
	// KillGrace bounds how long Run waits for output pipes after the process
	// group has been killed.
	KillGrace time.Duration
}

// Runner implements outbound.ProcessRunner by spawning one process per call.
// Arguments are passed as argv; no shell is involved.
type Runner struct {
	policy *Policy
	cfg    RunnerConfig
	logger *slog.Logger
}

// NewRunner creates a Runner. policy may be nil to skip verb and namespace checks.
func NewRunner(policy *Policy, cfg RunnerConfig, logger *slog.Logger) *Runner {
	if cfg.Binary == "" {
		cfg.Binary = "kubectl"
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = defaultRunTimeout
	}
	if cfg.KillGrace <= 0 {
		cfg.KillGrace = defaultKillGrace
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{policy: policy, cfg: cfg, logger: logger}
}

var _ outbound.ProcessRunner = (*Runner)(nil)

// Run executes spec and waits for it to exit or for timeout to elapse. A
// non-zero exit code is reported in the result with a nil error.
func (r *Runner) Run(ctx context.Context, spec model.CommandSpec, timeout time.Duration) (model.ExecutionResult, error) {
	command := spec.String()
	verb := spec.Verb()
	result := model.ExecutionResult{Command: spec, ExitCode: -1}

	if r.policy != nil {
		if err := r.policy.Check(spec.Args); err != nil {
			metrics.ObserveKubectl(verb, string(model.ErrorKindDenied), 0)
			r.logger.Warn("kubectl command denied", "command", command, "reason", err)
			return result, &model.ExecutionError{Kind: model.ErrorKindDenied, Command: command, Err: err}
		}
	}

	if timeout <= 0 {
		timeout = r.cfg.DefaultTimeout
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(execCtx, spec.Binary, spec.Args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = r.cfg.KillGrace
	setProcessGroup(cmd)
	if spec.Stdin != "" {
		cmd.Stdin = strings.NewReader(spec.Stdin)
	}
	if r.cfg.Kubeconfig != "" {
		cmd.Env = append(os.Environ(), "KUBECONFIG="+r.cfg.Kubeconfig)
	}

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	result.Stdout = stdout.String()
	result.Stderr = stderr.String()
	result.DurationMs = elapsed.Milliseconds()

	switch {
	case err == nil:
		result.ExitCode = 0
		metrics.ObserveKubectl(verb, "ok", elapsed)
		r.logger.Debug("kubectl command finished", "command", command, "duration", elapsed)
		return result, nil

	case execCtx.Err() != nil:
		kind := model.ErrorKindTimeout
		if errors.Is(ctx.Err(), context.Canceled) {
			kind = model.ErrorKindCanceled
		}
		metrics.ObserveKubectl(verb, string(kind), elapsed)
		r.logger.Warn("kubectl command interrupted", "command", command, "kind", kind, "timeout", timeout)
		return result, &model.ExecutionError{
			Kind:    kind,
			Command: command,
			Err:     fmt.Errorf("killed after %s: %w", elapsed.Round(time.Millisecond), execCtx.Err()),
		}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		metrics.ObserveKubectl(verb, string(model.ErrorKindNonZeroExit), elapsed)
		r.logger.Debug("kubectl command failed", "command", command, "exit_code", result.ExitCode)
		return result, nil
	}

	// The process exited but a descendant kept the output pipes open.
	if errors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
		metrics.ObserveKubectl(verb, "ok", elapsed)
		return result, nil
	}

	metrics.ObserveKubectl(verb, string(model.ErrorKindSpawn), elapsed)
	r.logger.Error("kubectl command could not start", "command", command, "error", err)
	return result, &model.ExecutionError{Kind: model.ErrorKindSpawn, Command: command, Err: err}
}

// HealthCheck verifies the configured binary is on PATH.
func (r *Runner) HealthCheck(_ context.Context) error {
	if _, err := exec.LookPath(r.cfg.Binary); err != nil {
		return fmt.Errorf("%s not found: %w", r.cfg.Binary, err)
	}
	return nil
}
