package service

import (
	"strings"

	"github.com/jonny/kube-actions/internal/domain/model"
)

// ParseResourceNames turns `kubectl get --output name` output into refs.
// Lines of the form "deployment.apps/web" yield "web"; bare lines are taken
// as names verbatim. Blank lines are skipped and the result is never nil.
func ParseResourceNames(kind, output string) []model.ResourceRef {
	refs := make([]model.ResourceRef, 0)
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		name := line
		if idx := strings.LastIndex(line, "/"); idx >= 0 {
			name = line[idx+1:]
		}
		if name == "" {
			continue
		}
		refs = append(refs, model.ResourceRef{Kind: kind, Name: name})
	}
	return refs
}

// ParseApplyOutput parses `kubectl apply` output such as
// "deployment.apps/web created" or "service/web unchanged".
func ParseApplyOutput(output string) []model.AppliedResource {
	resources := make([]model.AppliedResource, 0)
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		ref := fields[0]
		res := model.AppliedResource{
			Name:   ref,
			Result: strings.Join(fields[1:], " "),
		}
		if idx := strings.LastIndex(ref, "/"); idx >= 0 {
			kind := ref[:idx]
			if dot := strings.Index(kind, "."); dot >= 0 {
				kind = kind[:dot]
			}
			res.Kind = kind
			res.Name = ref[idx+1:]
		}
		resources = append(resources, res)
	}
	return resources
}
