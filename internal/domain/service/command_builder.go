package service

import (
	"github.com/jonny/kube-actions/internal/domain/model"
)

const (
	DefaultBinary        = "kubectl"
	DefaultIdentityLabel = "backstage.io/kubernetes-id=cluster-viewer"
)

// CommandBuilder maps mutation requests to kubectl argument vectors. It is
// pure: it never spawns a process and never fails. Requests are validated
// before they reach it.
type CommandBuilder struct {
	binary        string
	identityLabel string
}

// NewCommandBuilder creates a CommandBuilder. Empty arguments fall back to
// kubectl and the cluster-viewer identity label.
func NewCommandBuilder(binary, identityLabel string) *CommandBuilder {
	if binary == "" {
		binary = DefaultBinary
	}
	if identityLabel == "" {
		identityLabel = DefaultIdentityLabel
	}
	return &CommandBuilder{binary: binary, identityLabel: identityLabel}
}

// IdentityLabel returns the key=value label applied to created objects.
func (b *CommandBuilder) IdentityLabel() string {
	return b.identityLabel
}

// Build returns the primary command for req.
func (b *CommandBuilder) Build(req model.MutationRequest) model.CommandSpec {
	ns := namespaceFlag(req.Namespace)

	switch req.Operation {
	case model.OperationCreate:
		switch req.Kind {
		case model.KindDeployment:
			return b.spec(
				"create", "deployment", req.Name,
				"--image="+req.Param(model.ParamImage),
				"--replicas="+req.Param(model.ParamReplicas),
				"--port="+req.Param(model.ParamPort),
				ns,
			)
		case model.KindPod:
			return b.spec(
				"run", req.Name,
				"--image="+req.Param(model.ParamImage),
				"--port="+req.Param(model.ParamPort),
				ns,
				"--labels="+b.identityLabel,
			)
		}

	case model.OperationExpose:
		return b.spec(
			"expose", "deployment", req.Param(model.ParamTarget),
			"--name="+req.Name,
			"--port="+req.Param(model.ParamPort),
			"--target-port="+req.Param(model.ParamTargetPort),
			"--type="+req.Param(model.ParamServiceType),
			ns,
		)

	case model.OperationDelete:
		args := []string{"delete", string(req.Kind)}
		args = append(args, req.TargetNames()...)
		args = append(args, ns)
		return b.spec(args...)

	case model.OperationRestart:
		return b.spec("delete", "pod", req.Name, ns)

	case model.OperationList:
		return b.spec("get", string(req.Kind), "--namespace", req.Namespace, "--output", "name")

	case model.OperationApply:
		if req.Manifest != "" {
			spec := b.spec("apply", "-f", "-", ns)
			spec.Stdin = req.Manifest
			return spec
		}
		return b.spec("apply", "-f", req.ManifestPath, ns)
	}

	return b.spec(string(req.Operation), string(req.Kind), req.Name, ns)
}

// Label returns the command attaching the identity label to the object req created.
func (b *CommandBuilder) Label(req model.MutationRequest) model.CommandSpec {
	return b.spec("label", string(req.Kind), req.Name, b.identityLabel, namespaceFlag(req.Namespace))
}

// Plan returns every step req needs, in execution order.
func (b *CommandBuilder) Plan(req model.MutationRequest) []model.CommandSpec {
	steps := []model.CommandSpec{b.Build(req)}
	if req.NeedsLabel() {
		steps = append(steps, b.Label(req))
	}
	return steps
}

func (b *CommandBuilder) spec(args ...string) model.CommandSpec {
	return model.CommandSpec{Binary: b.binary, Args: args}
}

func namespaceFlag(ns string) string {
	return "--namespace=" + ns
}
