package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonny/kube-actions/internal/domain/model"
	"github.com/jonny/kube-actions/internal/domain/port/outbound"
	"github.com/jonny/kube-actions/internal/domain/service"
)

// --- fakes ---

type runResponse struct {
	result model.ExecutionResult
	err    error
}

// fakeRunner replays responses keyed by verb and records every call.
type fakeRunner struct {
	mu        sync.Mutex
	responses map[string]runResponse
	calls     []model.CommandSpec
	timeouts  []time.Duration
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{responses: make(map[string]runResponse)}
}

func (r *fakeRunner) on(verb string, exitCode int, stdout, stderr string) *fakeRunner {
	r.responses[verb] = runResponse{result: model.ExecutionResult{ExitCode: exitCode, Stdout: stdout, Stderr: stderr}}
	return r
}

func (r *fakeRunner) fail(verb string, err error) *fakeRunner {
	r.responses[verb] = runResponse{err: err}
	return r
}

func (r *fakeRunner) Run(_ context.Context, spec model.CommandSpec, timeout time.Duration) (model.ExecutionResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, spec)
	r.timeouts = append(r.timeouts, timeout)

	resp, ok := r.responses[spec.Verb()]
	if !ok {
		resp = runResponse{}
	}
	if resp.err != nil {
		return model.ExecutionResult{}, resp.err
	}
	res := resp.result
	res.Command = spec
	return res, nil
}

func (r *fakeRunner) HealthCheck(context.Context) error { return nil }

var _ outbound.ProcessRunner = (*fakeRunner)(nil)

type mockExecutionRepo struct {
	mu         sync.Mutex
	executions []model.Execution
	err        error
	lastFilter outbound.ExecutionFilter
	lastPage   outbound.PageRequest
}

func (m *mockExecutionRepo) Create(_ context.Context, e model.Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.executions = append(m.executions, e)
	return nil
}

func (m *mockExecutionRepo) GetByID(_ context.Context, id string) (model.Execution, error) {
	for _, e := range m.executions {
		if e.ID == id {
			return e, nil
		}
	}
	return model.Execution{}, fmt.Errorf("execution %s %w", id, outbound.ErrNotFound)
}

func (m *mockExecutionRepo) List(_ context.Context, f outbound.ExecutionFilter, p outbound.PageRequest) (outbound.PageResult[model.Execution], error) {
	m.lastFilter = f
	m.lastPage = p
	return outbound.PageResult[model.Execution]{Items: m.executions, TotalCount: int64(len(m.executions)), Page: p.Page, Size: p.Size}, nil
}

var _ outbound.ExecutionRepository = (*mockExecutionRepo)(nil)

type mockNotifier struct {
	mu   sync.Mutex
	sent []outbound.OutcomeNotification
	err  error
}

func (m *mockNotifier) NotifyOutcome(_ context.Context, n outbound.OutcomeNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, n)
	return m.err
}

var _ outbound.Notifier = (*mockNotifier)(nil)

// --- helpers ---

type fixture struct {
	orch     *service.Orchestrator
	runner   *fakeRunner
	repo     *mockExecutionRepo
	notifier *mockNotifier
}

func newFixture(runner *fakeRunner, cfg service.Config) fixture {
	repo := &mockExecutionRepo{}
	notifier := &mockNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	orch := service.NewOrchestrator(service.NewCommandBuilder("", ""), runner, repo, notifier, logger, cfg)
	return fixture{orch: orch, runner: runner, repo: repo, notifier: notifier}
}

// --- tests ---

func TestOrchestrator_CreatePodEndToEnd(t *testing.T) {
	f := newFixture(newFakeRunner().on("run", 0, "pod/web-1 created\n", ""), service.Config{})

	req, err := service.RequestFromAction(model.ActionCreatePod, service.Parameters{"podName": "web-1", "podImage": "nginx:latest"})
	if err != nil {
		t.Fatalf("RequestFromAction: %v", err)
	}
	outcome := f.orch.Execute(context.Background(), model.ActionCreatePod, req)

	if outcome.Status != model.StatusFullSuccess {
		t.Fatalf("Status = %s, err = %v", outcome.Status, outcome.Err)
	}
	if len(f.runner.calls) != 1 {
		t.Fatalf("expected 1 kubectl call, got %d", len(f.runner.calls))
	}
	want := "run web-1 --image=nginx:latest --port=80 --namespace=default --labels=backstage.io/kubernetes-id=cluster-viewer"
	if got := strings.Join(f.runner.calls[0].Args, " "); got != want {
		t.Errorf("args = %q\nwant   %q", got, want)
	}
	if outcome.Output() != "pod/web-1 created" {
		t.Errorf("Output() = %q", outcome.Output())
	}
	if len(f.repo.executions) != 1 || !f.repo.executions[0].IsSuccess() {
		t.Errorf("expected one successful audit record, got %+v", f.repo.executions)
	}
	if len(f.notifier.sent) != 0 {
		t.Errorf("successful outcome should not notify, got %d", len(f.notifier.sent))
	}
}

func TestOrchestrator_CreateDeploymentLabels(t *testing.T) {
	f := newFixture(newFakeRunner().
		on("create", 0, "deployment.apps/web created", "").
		on("label", 0, "deployment.apps/web labeled", ""), service.Config{})

	outcome := f.orch.Execute(context.Background(), model.ActionCreateDeployment, deploymentRequest())

	if !outcome.Succeeded() {
		t.Fatalf("Status = %s, err = %v", outcome.Status, outcome.Err)
	}
	if len(outcome.CompletedSteps) != 2 {
		t.Fatalf("CompletedSteps = %d, want 2", len(outcome.CompletedSteps))
	}
	if f.runner.calls[0].Verb() != "create" || f.runner.calls[1].Verb() != "label" {
		t.Errorf("unexpected call order: %v", f.runner.calls)
	}
	if outcome.Output() != "deployment.apps/web created\ndeployment.apps/web labeled" {
		t.Errorf("Output() = %q", outcome.Output())
	}
}

func TestOrchestrator_PartialSuccessWhenLabelFails(t *testing.T) {
	f := newFixture(newFakeRunner().
		on("create", 0, "deployment.apps/web created", "").
		on("label", 1, "", "error: resource not found"), service.Config{})

	outcome := f.orch.Execute(context.Background(), model.ActionCreateDeployment, deploymentRequest())

	if outcome.Status != model.StatusPartialSuccess {
		t.Fatalf("Status = %s, want partial_success", outcome.Status)
	}
	if len(outcome.CompletedSteps) != 2 {
		t.Errorf("CompletedSteps = %d, want 2", len(outcome.CompletedSteps))
	}
	if model.KindOf(outcome.Err) != model.ErrorKindPartialFailure {
		t.Errorf("KindOf(err) = %s", model.KindOf(outcome.Err))
	}
	var exitErr *model.NonZeroExitError
	if !errors.As(outcome.Err, &exitErr) || exitErr.ExitCode != 1 {
		t.Errorf("expected wrapped NonZeroExitError, got %v", outcome.Err)
	}
	if len(f.notifier.sent) != 1 || f.notifier.sent[0].Status != string(model.StatusPartialSuccess) {
		t.Errorf("expected partial_success notification, got %+v", f.notifier.sent)
	}
	if len(f.repo.executions) != 1 || f.repo.executions[0].ErrorKind != model.ErrorKindPartialFailure {
		t.Errorf("audit record = %+v", f.repo.executions)
	}
}

func TestOrchestrator_FirstStepFailureStops(t *testing.T) {
	f := newFixture(newFakeRunner().
		on("expose", 1, "", `Error from server (NotFound): deployments.apps "web" not found`), service.Config{})

	outcome := f.orch.Execute(context.Background(), model.ActionCreateService, serviceRequest())

	if outcome.Status != model.StatusFailure {
		t.Fatalf("Status = %s, want failure", outcome.Status)
	}
	if len(outcome.CompletedSteps) != 1 {
		t.Errorf("CompletedSteps = %d, want 1", len(outcome.CompletedSteps))
	}
	if len(f.runner.calls) != 1 {
		t.Errorf("label step must not run after a failed expose, calls = %d", len(f.runner.calls))
	}
	if !strings.Contains(outcome.Err.Error(), "NotFound") {
		t.Errorf("error should carry stderr: %v", outcome.Err)
	}
	if model.KindOf(outcome.Err) != model.ErrorKindNonZeroExit {
		t.Errorf("KindOf(err) = %s", model.KindOf(outcome.Err))
	}
}

func TestOrchestrator_RunnerErrorOnFirstStep(t *testing.T) {
	timeoutErr := &model.ExecutionError{Kind: model.ErrorKindTimeout, Command: "kubectl create", Err: context.DeadlineExceeded}
	f := newFixture(newFakeRunner().fail("create", timeoutErr), service.Config{})

	outcome := f.orch.Execute(context.Background(), model.ActionCreateDeployment, deploymentRequest())

	if outcome.Status != model.StatusFailure {
		t.Fatalf("Status = %s", outcome.Status)
	}
	if len(outcome.CompletedSteps) != 0 {
		t.Errorf("CompletedSteps = %d, want 0", len(outcome.CompletedSteps))
	}
	if model.KindOf(outcome.Err) != model.ErrorKindTimeout {
		t.Errorf("KindOf(err) = %s", model.KindOf(outcome.Err))
	}
}

func TestOrchestrator_RunnerErrorOnSecondStepIsPartial(t *testing.T) {
	spawnErr := &model.ExecutionError{Kind: model.ErrorKindSpawn, Command: "kubectl label", Err: errors.New("exec: not found")}
	f := newFixture(newFakeRunner().
		on("create", 0, "created", "").
		fail("label", spawnErr), service.Config{})

	outcome := f.orch.Execute(context.Background(), model.ActionCreateDeployment, deploymentRequest())

	if outcome.Status != model.StatusPartialSuccess {
		t.Fatalf("Status = %s", outcome.Status)
	}
	var execErr *model.ExecutionError
	if !errors.As(outcome.Err, &execErr) || execErr.Kind != model.ErrorKindSpawn {
		t.Errorf("expected wrapped spawn error, got %v", outcome.Err)
	}
}

func TestOrchestrator_ValidationSpawnsNothing(t *testing.T) {
	f := newFixture(newFakeRunner(), service.Config{})

	req := deploymentRequest()
	req.Parameters["image"] = "-oops"
	outcome := f.orch.Execute(context.Background(), model.ActionCreateDeployment, req)

	if outcome.Status != model.StatusFailure {
		t.Fatalf("Status = %s", outcome.Status)
	}
	if model.KindOf(outcome.Err) != model.ErrorKindValidation {
		t.Errorf("KindOf(err) = %s", model.KindOf(outcome.Err))
	}
	if len(f.runner.calls) != 0 {
		t.Errorf("no process may be spawned on validation failure, got %d calls", len(f.runner.calls))
	}
	if len(f.repo.executions) != 0 {
		t.Errorf("validation failures are not audited, got %d records", len(f.repo.executions))
	}
}

func TestOrchestrator_BatchDeleteSingleInvocation(t *testing.T) {
	f := newFixture(newFakeRunner().on("delete", 0, "pod \"a\" deleted\npod \"b\" deleted", ""), service.Config{})

	req := model.MutationRequest{
		Kind: model.KindPod, Operation: model.OperationDelete,
		Names: []string{"a", "b"}, Namespace: "default",
	}
	outcome := f.orch.Execute(context.Background(), model.ActionDeleteResource, req)

	if !outcome.Succeeded() {
		t.Fatalf("Status = %s, err = %v", outcome.Status, outcome.Err)
	}
	if len(f.runner.calls) != 1 {
		t.Fatalf("expected exactly one kubectl call, got %d", len(f.runner.calls))
	}
	if got := strings.Join(f.runner.calls[0].Args, " "); got != "delete pod a b --namespace=default" {
		t.Errorf("args = %q", got)
	}
}

func TestOrchestrator_UsesConfiguredTimeout(t *testing.T) {
	f := newFixture(newFakeRunner(), service.Config{DefaultTimeout: 7 * time.Second})
	f.orch.Execute(context.Background(), model.ActionRestartPod, model.MutationRequest{
		Kind: model.KindPod, Operation: model.OperationRestart, Name: "web-1", Namespace: "default",
	})
	if len(f.runner.timeouts) != 1 || f.runner.timeouts[0] != 7*time.Second {
		t.Errorf("timeouts = %v", f.runner.timeouts)
	}
}

func TestOrchestrator_AuditAndNotifyFailuresDoNotChangeOutcome(t *testing.T) {
	f := newFixture(newFakeRunner().on("delete", 1, "", "forbidden"), service.Config{})
	f.repo.err = errors.New("database is locked")
	f.notifier.err = errors.New("slack down")

	outcome := f.orch.Execute(context.Background(), model.ActionRestartPod, model.MutationRequest{
		Kind: model.KindPod, Operation: model.OperationRestart, Name: "web-1", Namespace: "default",
	})
	if outcome.Status != model.StatusFailure {
		t.Fatalf("Status = %s", outcome.Status)
	}
	if len(f.notifier.sent) != 1 {
		t.Errorf("expected notification attempt, got %d", len(f.notifier.sent))
	}
}

func TestOrchestrator_ListResources(t *testing.T) {
	f := newFixture(newFakeRunner().on("get", 0, "deployment.apps/web\ndeployment.apps/api\n", ""), service.Config{})

	refs, err := f.orch.ListResources(context.Background(), "Deployment", "default")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(refs) != 2 || refs[0].Name != "web" || refs[1].Name != "api" || refs[0].Kind != "deployment" {
		t.Errorf("refs = %+v", refs)
	}
	if got := strings.Join(f.runner.calls[0].Args, " "); got != "get deployment --namespace default --output name" {
		t.Errorf("args = %q", got)
	}
	if len(f.repo.executions) != 0 {
		t.Error("reads must not be audited")
	}
}

func TestOrchestrator_ListResourcesErrors(t *testing.T) {
	f := newFixture(newFakeRunner().on("get", 1, "", "error: the server doesn't have a resource type \"foos\""), service.Config{})

	_, err := f.orch.ListResources(context.Background(), "foos", "default")
	var exitErr *model.NonZeroExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected NonZeroExitError, got %v", err)
	}

	_, err = f.orch.ListResources(context.Background(), "pods", "Bad_NS")
	var vErr *model.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestOrchestrator_ApplyInline(t *testing.T) {
	f := newFixture(newFakeRunner().on("apply", 0, "deployment.apps/web created\nservice/web unchanged\n", ""), service.Config{})

	outcome, resources := f.orch.Apply(context.Background(), model.MutationRequest{
		Namespace: "default",
		Manifest:  "kind: Deployment\n---\nkind: Service\n",
	})
	if !outcome.Succeeded() {
		t.Fatalf("Status = %s, err = %v", outcome.Status, outcome.Err)
	}
	if outcome.Action != model.ActionApplyManifest {
		t.Errorf("Action = %s", outcome.Action)
	}
	if len(resources) != 2 || resources[0].Kind != "deployment" || resources[1].Result != "unchanged" {
		t.Errorf("resources = %+v", resources)
	}
	if f.runner.calls[0].Stdin == "" {
		t.Error("inline manifest must be passed on stdin")
	}
}

func TestOrchestrator_ApplyPath(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "app.yaml"), []byte("kind: ConfigMap\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	f := newFixture(newFakeRunner().on("apply", 0, "configmap/app created", ""), service.Config{WorkspaceDir: dir})

	outcome, _ := f.orch.Apply(context.Background(), model.MutationRequest{Namespace: "default", ManifestPath: "app.yaml"})
	if !outcome.Succeeded() {
		t.Fatalf("Status = %s, err = %v", outcome.Status, outcome.Err)
	}
	want, err := filepath.EvalSymlinks(filepath.Join(dir, "app.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if got := f.runner.calls[0].Args[2]; got != want {
		t.Errorf("manifest path arg = %q, want %q", got, want)
	}
}

func TestOrchestrator_ApplyPathPassesResolvedTarget(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "releases"), 0o755); err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(dir, "releases", "v2.yaml")
	if err := os.WriteFile(target, []byte("kind: ConfigMap\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(target, filepath.Join(dir, "current.yaml")); err != nil {
		t.Fatal(err)
	}
	f := newFixture(newFakeRunner().on("apply", 0, "configmap/app configured", ""), service.Config{WorkspaceDir: dir})

	outcome, _ := f.orch.Apply(context.Background(), model.MutationRequest{Namespace: "default", ManifestPath: "current.yaml"})
	if !outcome.Succeeded() {
		t.Fatalf("Status = %s, err = %v", outcome.Status, outcome.Err)
	}
	want, err := filepath.EvalSymlinks(target)
	if err != nil {
		t.Fatal(err)
	}
	if got := f.runner.calls[0].Args[2]; got != want {
		t.Errorf("kubectl must receive the link target: got %q, want %q", got, want)
	}
}

func TestOrchestrator_ApplyPathRejected(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "manifests"), 0o755); err != nil {
		t.Fatal(err)
	}
	outside := filepath.Join(t.TempDir(), "secret.yaml")
	if err := os.WriteFile(outside, []byte("kind: Secret\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(outside, filepath.Join(dir, "link.yaml")); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		cfg  service.Config
		path string
	}{
		{"no workspace", service.Config{}, "app.yaml"},
		{"escape", service.Config{WorkspaceDir: dir}, "../etc/passwd"},
		{"absolute outside", service.Config{WorkspaceDir: dir}, "/etc/passwd"},
		{"missing", service.Config{WorkspaceDir: dir}, "nope.yaml"},
		{"directory", service.Config{WorkspaceDir: dir}, "manifests"},
		{"symlink escape", service.Config{WorkspaceDir: dir}, "link.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(newFakeRunner(), tt.cfg)
			outcome, resources := f.orch.Apply(context.Background(), model.MutationRequest{Namespace: "default", ManifestPath: tt.path})
			if model.KindOf(outcome.Err) != model.ErrorKindValidation {
				t.Errorf("KindOf(err) = %s (%v)", model.KindOf(outcome.Err), outcome.Err)
			}
			if resources != nil {
				t.Errorf("resources = %v", resources)
			}
			if len(f.runner.calls) != 0 {
				t.Error("no process may be spawned")
			}
		})
	}
}

func TestOrchestrator_ListExecutionsDefaults(t *testing.T) {
	f := newFixture(newFakeRunner(), service.Config{})
	_, err := f.orch.ListExecutions(context.Background(), outbound.ExecutionFilter{Action: "create-pod"}, outbound.PageRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.repo.lastPage.Page != 1 || f.repo.lastPage.Size != 50 || !f.repo.lastPage.Desc {
		t.Errorf("page = %+v", f.repo.lastPage)
	}
	if f.repo.lastFilter.Action != "create-pod" {
		t.Errorf("filter = %+v", f.repo.lastFilter)
	}
}

func TestOrchestrator_GetExecution(t *testing.T) {
	f := newFixture(newFakeRunner().on("run", 0, "pod/web-1 created", ""), service.Config{})
	outcome := f.orch.Execute(context.Background(), model.ActionCreatePod, model.MutationRequest{
		Kind: model.KindPod, Operation: model.OperationCreate, Name: "web-1", Namespace: "default",
		Parameters: map[string]string{model.ParamImage: "nginx:latest", model.ParamPort: "80"},
	})

	got, err := f.orch.GetExecution(context.Background(), outcome.ID)
	if err != nil {
		t.Fatalf("GetExecution: %v", err)
	}
	if got.Status != model.StatusFullSuccess {
		t.Errorf("status = %s", got.Status)
	}

	_, err = f.orch.GetExecution(context.Background(), "missing")
	if !errors.Is(err, outbound.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
