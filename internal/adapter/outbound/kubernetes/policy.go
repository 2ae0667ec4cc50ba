package kubernetes

import (
	"fmt"
	"strings"
)

// PolicyConfig holds the allowed kubectl verbs and the namespaces mutations
// may never touch.
type PolicyConfig struct {
	AllowedVerbs      []string
	BlockedNamespaces []string
}

// Policy enforces verb and namespace access control before a process is spawned.
type Policy struct {
	allowedVerbs map[string]bool
	blockedNS    map[string]bool
}

// readOnlyVerbs may target blocked namespaces.
var readOnlyVerbs = map[string]bool{"get": true}

// NewPolicy creates a Policy from the given configuration. An empty verb
// list allows every verb.
func NewPolicy(cfg PolicyConfig) *Policy {
	return &Policy{
		allowedVerbs: toSet(cfg.AllowedVerbs),
		blockedNS:    toSet(cfg.BlockedNamespaces),
	}
}

// IsVerbAllowed reports whether verb is in the allow-list.
func (p *Policy) IsVerbAllowed(verb string) bool {
	if len(p.allowedVerbs) == 0 {
		return true
	}
	return p.allowedVerbs[strings.ToLower(verb)]
}

// IsNamespaceBlocked reports whether ns is in the blocked-namespace set.
func (p *Policy) IsNamespaceBlocked(ns string) bool {
	return p.blockedNS[strings.ToLower(ns)]
}

// Check returns a non-nil error when args must not run.
func (p *Policy) Check(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("empty command")
	}
	verb := strings.ToLower(args[0])
	if !p.IsVerbAllowed(verb) {
		return fmt.Errorf("verb %q is not allowed", verb)
	}
	if readOnlyVerbs[verb] {
		return nil
	}
	if ns := extractNamespaceFlag(args); ns != "" && p.IsNamespaceBlocked(ns) {
		return fmt.Errorf("namespace %q is blocked for %s", ns, verb)
	}
	return nil
}

// extractNamespaceFlag scans command tokens for -n or --namespace and returns the value.
func extractNamespaceFlag(command []string) string {
	for i, token := range command {
		switch {
		case token == "-n" || token == "--namespace":
			if i+1 < len(command) {
				return command[i+1]
			}
		case strings.HasPrefix(token, "--namespace="):
			return strings.TrimPrefix(token, "--namespace=")
		case strings.HasPrefix(token, "-n="):
			return strings.TrimPrefix(token, "-n=")
		}
	}
	return ""
}

func toSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			s[strings.ToLower(item)] = true
		}
	}
	return s
}
