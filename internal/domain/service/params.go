package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jonny/kube-actions/internal/domain/model"
)

const defaultNamespace = "default"

// Parameters is the loosely typed parameter object sent by the portal UI.
type Parameters map[string]any

// RequestFromAction maps an action name and its UI parameters to a
// MutationRequest, filling in the defaults the portal has always relied on.
// Unknown actions yield a *model.ValidationError.
func RequestFromAction(action model.Action, params Parameters) (model.MutationRequest, error) {
	switch action {
	case model.ActionCreateDeployment:
		return model.MutationRequest{
			Kind:      model.KindDeployment,
			Operation: model.OperationCreate,
			Name:      params.String("name", ""),
			Namespace: params.String("namespace", defaultNamespace),
			Parameters: map[string]string{
				model.ParamImage:    params.String("image", ""),
				model.ParamReplicas: params.String("replicas", "1"),
				model.ParamPort:     params.String("port", "80"),
			},
		}, nil

	case model.ActionCreateService:
		return model.MutationRequest{
			Kind:      model.KindService,
			Operation: model.OperationExpose,
			Name:      params.String("serviceName", ""),
			Namespace: params.String("serviceNamespace", defaultNamespace),
			Parameters: map[string]string{
				model.ParamTarget:      params.String("targetApp", ""),
				model.ParamPort:        params.String("servicePort", "80"),
				model.ParamTargetPort:  params.String("targetPort", "80"),
				model.ParamServiceType: params.String("serviceType", "ClusterIP"),
			},
		}, nil

	case model.ActionCreatePod:
		return model.MutationRequest{
			Kind:      model.KindPod,
			Operation: model.OperationCreate,
			Name:      params.String("podName", ""),
			Namespace: params.String("podNamespace", defaultNamespace),
			Parameters: map[string]string{
				model.ParamImage: params.String("podImage", ""),
				model.ParamPort:  params.String("podPort", "80"),
			},
		}, nil

	case model.ActionDeleteResource:
		names := params.Strings("resourceNames")
		if single := params.String("resourceName", ""); single != "" {
			names = append([]string{single}, names...)
		}
		return model.MutationRequest{
			Kind:      model.Kind(strings.ToLower(params.String("resourceType", ""))),
			Operation: model.OperationDelete,
			Names:     dedupe(names),
			Namespace: params.String("deleteNamespace", defaultNamespace),
		}, nil

	case model.ActionRestartPod:
		return model.MutationRequest{
			Kind:      model.KindPod,
			Operation: model.OperationRestart,
			Name:      params.String("podName", ""),
			Namespace: params.String("podNamespace", defaultNamespace),
		}, nil
	}

	return model.MutationRequest{}, model.NewValidationError("action", "Unknown action: %s", action)
}

// String returns params[key] rendered as a trimmed string, or def when the
// key is missing or blank. JSON numbers and booleans are accepted.
func (p Parameters) String(key, def string) string {
	var s string
	switch v := p[key].(type) {
	case nil:
		return def
	case string:
		s = v
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		s = strconv.Itoa(v)
	case bool:
		s = strconv.FormatBool(v)
	default:
		s = fmt.Sprint(v)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}

// Strings returns params[key] as a list. A single string is split on commas.
func (p Parameters) Strings(key string) []string {
	var out []string
	switch v := p[key].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = appendTrimmed(out, s)
			}
		}
	case []string:
		for _, s := range v {
			out = appendTrimmed(out, s)
		}
	case string:
		for _, s := range strings.Split(v, ",") {
			out = appendTrimmed(out, s)
		}
	}
	return out
}

// Describe renders a short human summary of a successful action.
func Describe(action model.Action, req model.MutationRequest) string {
	switch action {
	case model.ActionCreateDeployment:
		return fmt.Sprintf("Deployment %s created and labeled successfully", req.Name)
	case model.ActionCreateService:
		return fmt.Sprintf("Service %s created and labeled successfully", req.Name)
	case model.ActionCreatePod:
		return fmt.Sprintf("Pod %s created successfully", req.Name)
	case model.ActionDeleteResource:
		return fmt.Sprintf("Deleted %s %s", req.Kind, strings.Join(req.TargetNames(), ", "))
	case model.ActionRestartPod:
		return fmt.Sprintf("Pod %s restarted", req.Name)
	case model.ActionApplyManifest:
		return "Manifest applied successfully"
	}
	return fmt.Sprintf("%s completed successfully", action)
}

func appendTrimmed(out []string, s string) []string {
	if s = strings.TrimSpace(s); s != "" {
		out = append(out, s)
	}
	return out
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
