package model

import (
	"strings"
	"time"
)

type OutcomeStatus string

const (
	StatusFullSuccess    OutcomeStatus = "full_success"
	StatusPartialSuccess OutcomeStatus = "partial_success"
	StatusFailure        OutcomeStatus = "failure"
)

// OrchestrationOutcome records what was planned for a request and what
// actually ran. Steps that succeeded before a failure are not rolled back.
type OrchestrationOutcome struct {
	ID             string
	Action         Action
	Request        MutationRequest
	RequestedSteps []CommandSpec
	CompletedSteps []ExecutionResult
	Status         OutcomeStatus
	Err            error
	StartedAt      time.Time
	FinishedAt     time.Time
}

func (o OrchestrationOutcome) Succeeded() bool {
	return o.Status == StatusFullSuccess
}

// Output joins the stdout of every completed step.
func (o OrchestrationOutcome) Output() string {
	parts := make([]string, 0, len(o.CompletedSteps))
	for _, step := range o.CompletedSteps {
		if out := strings.TrimSpace(step.Stdout); out != "" {
			parts = append(parts, out)
		}
	}
	return strings.Join(parts, "\n")
}

// Commands returns the display form of every requested step.
func (o OrchestrationOutcome) Commands() []string {
	out := make([]string, 0, len(o.RequestedSteps))
	for _, step := range o.RequestedSteps {
		out = append(out, step.String())
	}
	return out
}

func (o OrchestrationOutcome) Duration() time.Duration {
	if o.FinishedAt.IsZero() {
		return 0
	}
	return o.FinishedAt.Sub(o.StartedAt)
}

// ResourceRef identifies an existing cluster object.
type ResourceRef struct {
	Name string `json:"name"`
	Kind string `json:"type"`
}

// AppliedResource is one line of `kubectl apply` output, e.g.
// "deployment.apps/web created".
type AppliedResource struct {
	Kind   string `json:"kind"`
	Name   string `json:"name"`
	Result string `json:"result"`
}
