package service

import (
	"errors"
	"io"
	"strconv"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/util/validation"

	"github.com/jonny/kube-actions/internal/domain/model"
)

var validServiceTypes = map[string]bool{
	string(corev1.ServiceTypeClusterIP):    true,
	string(corev1.ServiceTypeNodePort):     true,
	string(corev1.ServiceTypeLoadBalancer): true,
	string(corev1.ServiceTypeExternalName): true,
}

// ValidateRequest checks every field the command builder will use. It returns
// a *model.ValidationError for the first problem found.
func ValidateRequest(req model.MutationRequest) error {
	if err := checkNamespace(req.Namespace); err != nil {
		return err
	}

	switch req.Operation {
	case model.OperationCreate:
		switch req.Kind {
		case model.KindDeployment:
			return firstError(
				checkObjectName("name", req.Name),
				checkImage(req.Param(model.ParamImage)),
				checkReplicas(req.Param(model.ParamReplicas)),
				checkPort(model.ParamPort, req.Param(model.ParamPort)),
			)
		case model.KindPod:
			return firstError(
				checkObjectName("name", req.Name),
				checkImage(req.Param(model.ParamImage)),
				checkPort(model.ParamPort, req.Param(model.ParamPort)),
			)
		}
		return model.NewValidationError("kind", "create is not supported for %q", req.Kind)

	case model.OperationExpose:
		if req.Kind != model.KindService {
			return model.NewValidationError("kind", "expose only creates services, got %q", req.Kind)
		}
		return firstError(
			checkServiceName(req.Name),
			checkObjectName(model.ParamTarget, req.Param(model.ParamTarget)),
			checkPort(model.ParamPort, req.Param(model.ParamPort)),
			checkTargetPort(req.Param(model.ParamTargetPort)),
			checkServiceType(req.Param(model.ParamServiceType)),
		)

	case model.OperationDelete:
		if err := checkResourceType(string(req.Kind)); err != nil {
			return err
		}
		names := req.TargetNames()
		if len(names) == 0 {
			return model.NewValidationError("names", "at least one resource name is required")
		}
		for _, name := range names {
			if err := checkObjectName("names", name); err != nil {
				return err
			}
		}
		return nil

	case model.OperationRestart:
		if req.Kind != model.KindPod {
			return model.NewValidationError("kind", "only pods can be restarted, got %q", req.Kind)
		}
		return checkObjectName("name", req.Name)

	case model.OperationList:
		return checkResourceType(string(req.Kind))

	case model.OperationApply:
		switch {
		case req.Manifest != "" && req.ManifestPath != "":
			return model.NewValidationError("manifest", "provide either manifestContent or manifestPath, not both")
		case req.Manifest != "":
			return ValidateManifest(req.Manifest)
		case req.ManifestPath != "":
			return nil
		}
		return model.NewValidationError("manifest", "either manifestContent or manifestPath must be provided")
	}

	return model.NewValidationError("operation", "unsupported operation %q", req.Operation)
}

// ValidateManifest requires well-formed YAML with at least one document, each
// naming its kind.
func ValidateManifest(content string) error {
	dec := yaml.NewDecoder(strings.NewReader(content))
	docs := 0
	for i := 1; ; i++ {
		var doc map[string]any
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return model.NewValidationError("manifestContent", "invalid YAML in document %d: %v", i, err)
		}
		if len(doc) == 0 {
			continue
		}
		if kind, _ := doc["kind"].(string); kind == "" {
			return model.NewValidationError("manifestContent", "document %d has no kind", i)
		}
		docs++
	}
	if docs == 0 {
		return model.NewValidationError("manifestContent", "manifest contains no documents")
	}
	return nil
}

func checkNamespace(ns string) error {
	if ns == "" {
		return model.NewValidationError("namespace", "is required")
	}
	if errs := validation.IsDNS1123Label(ns); len(errs) > 0 {
		return model.NewValidationError("namespace", "%q is invalid: %s", ns, strings.Join(errs, "; "))
	}
	return nil
}

func checkObjectName(field, name string) error {
	if name == "" {
		return model.NewValidationError(field, "is required")
	}
	if errs := validation.IsDNS1123Subdomain(name); len(errs) > 0 {
		return model.NewValidationError(field, "%q is invalid: %s", name, strings.Join(errs, "; "))
	}
	return nil
}

func checkServiceName(name string) error {
	if name == "" {
		return model.NewValidationError("name", "is required")
	}
	if errs := validation.IsDNS1035Label(name); len(errs) > 0 {
		return model.NewValidationError("name", "%q is invalid: %s", name, strings.Join(errs, "; "))
	}
	return nil
}

// checkResourceType accepts plain and group-qualified types such as
// "pod", "deployments" or "deployments.apps".
func checkResourceType(kind string) error {
	if kind == "" {
		return model.NewValidationError("type", "is required")
	}
	if errs := validation.IsDNS1123Subdomain(kind); len(errs) > 0 {
		return model.NewValidationError("type", "%q is not a valid resource type", kind)
	}
	return nil
}

func checkImage(image string) error {
	if image == "" {
		return model.NewValidationError(model.ParamImage, "is required")
	}
	if strings.HasPrefix(image, "-") {
		return model.NewValidationError(model.ParamImage, "%q must not start with '-'", image)
	}
	if strings.IndexFunc(image, unicode.IsSpace) >= 0 {
		return model.NewValidationError(model.ParamImage, "%q must not contain whitespace", image)
	}
	return nil
}

func checkReplicas(v string) error {
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return model.NewValidationError(model.ParamReplicas, "%q must be a non-negative integer", v)
	}
	return nil
}

func checkPort(field, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return model.NewValidationError(field, "%q is not a number", v)
	}
	if errs := validation.IsValidPortNum(n); len(errs) > 0 {
		return model.NewValidationError(field, "%s", strings.Join(errs, "; "))
	}
	return nil
}

// checkTargetPort allows a port number or a named container port.
func checkTargetPort(v string) error {
	if _, err := strconv.Atoi(v); err == nil {
		return checkPort(model.ParamTargetPort, v)
	}
	if errs := validation.IsValidPortName(v); len(errs) > 0 {
		return model.NewValidationError(model.ParamTargetPort, "%q is invalid: %s", v, strings.Join(errs, "; "))
	}
	return nil
}

func checkServiceType(v string) error {
	if !validServiceTypes[v] {
		return model.NewValidationError(model.ParamServiceType,
			"%q must be one of ClusterIP, NodePort, LoadBalancer, ExternalName", v)
	}
	return nil
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
