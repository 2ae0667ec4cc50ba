package model

type Kind string

const (
	KindDeployment Kind = "deployment"
	KindService    Kind = "service"
	KindPod        Kind = "pod"
	KindConfigMap  Kind = "configmap"
	KindSecret     Kind = "secret"
)

type Operation string

const (
	OperationCreate  Operation = "create"
	OperationExpose  Operation = "expose"
	OperationDelete  Operation = "delete"
	OperationRestart Operation = "restart"
	OperationList    Operation = "list"
	OperationApply   Operation = "apply"
)

// Action is the name a caller uses to request a mutation over HTTP.
type Action string

const (
	ActionCreateDeployment Action = "create-deployment"
	ActionCreateService    Action = "create-service"
	ActionCreatePod        Action = "create-pod"
	ActionDeleteResource   Action = "delete-resource"
	ActionRestartPod       Action = "restart-pod"
	ActionListResources    Action = "list-resources"
	ActionApplyManifest    Action = "apply-manifest"
)

// Parameter keys understood by the command builder.
const (
	ParamImage       = "image"
	ParamReplicas    = "replicas"
	ParamPort        = "port"
	ParamTargetPort  = "targetPort"
	ParamServiceType = "serviceType"
	ParamTarget      = "target"
)

// MutationRequest describes one cluster mutation. It is built once per
// incoming call and treated as read-only afterwards.
type MutationRequest struct {
	Kind         Kind              `json:"kind"`
	Operation    Operation         `json:"operation"`
	Name         string            `json:"name,omitempty"`
	Names        []string          `json:"names,omitempty"`
	Namespace    string            `json:"namespace"`
	Parameters   map[string]string `json:"parameters,omitempty"`
	Manifest     string            `json:"-"`
	ManifestPath string            `json:"manifestPath,omitempty"`
}

// Param returns the named parameter or "" when absent.
func (r MutationRequest) Param(key string) string {
	return r.Parameters[key]
}

// TargetNames returns every object name the request addresses, in order.
func (r MutationRequest) TargetNames() []string {
	if len(r.Names) > 0 {
		out := make([]string, len(r.Names))
		copy(out, r.Names)
		return out
	}
	if r.Name != "" {
		return []string{r.Name}
	}
	return nil
}

// NeedsLabel reports whether the created object must be labeled in a second step.
func (r MutationRequest) NeedsLabel() bool {
	switch {
	case r.Kind == KindDeployment && r.Operation == OperationCreate:
		return true
	case r.Kind == KindService && r.Operation == OperationExpose:
		return true
	}
	return false
}

// WithManifestPath returns a copy pointing at a resolved manifest path.
func (r MutationRequest) WithManifestPath(path string) MutationRequest {
	r.ManifestPath = path
	return r
}
