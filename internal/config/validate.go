package config

import (
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/util/validation"
)

// maxActionSteps is the most kubectl steps a single action runs
// (create or expose followed by label).
const maxActionSteps = 2

// Validate checks the config for errors.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if cfg.Server.MetricsPort < 0 || cfg.Server.MetricsPort > 65535 {
		errs = append(errs, "server.metricsPort must be between 0 and 65535")
	}
	if cfg.Server.MetricsPort != 0 && cfg.Server.MetricsPort == cfg.Server.Port {
		errs = append(errs, "server.metricsPort must differ from server.port")
	}
	if !strings.HasPrefix(cfg.Server.BasePath, "/") || strings.HasSuffix(cfg.Server.BasePath, "/") {
		errs = append(errs, fmt.Sprintf("server.basePath must start and not end with '/' (got %q)", cfg.Server.BasePath))
	}
	if cfg.Server.MaxBodyBytes <= 0 {
		errs = append(errs, "server.maxBodyBytes must be positive")
	}
	if cfg.Server.RateLimit.Enabled && cfg.Server.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, "server.rateLimit.requestsPerMinute must be positive when rate limiting is enabled")
	}

	if cfg.Kubectl.Binary == "" {
		errs = append(errs, "kubectl.binary is required")
	}
	if cfg.Kubectl.Timeout <= 0 {
		errs = append(errs, "kubectl.timeout must be positive")
	}
	if cfg.Kubectl.KillGrace < 0 {
		errs = append(errs, "kubectl.killGrace must not be negative")
	}
	// A zero writeTimeout means none.
	if worst := maxActionSteps * (cfg.Kubectl.Timeout + cfg.Kubectl.KillGrace); cfg.Server.WriteTimeout > 0 && cfg.Kubectl.Timeout > 0 && cfg.Server.WriteTimeout <= worst {
		errs = append(errs, fmt.Sprintf("server.writeTimeout (%s) must exceed %d x (kubectl.timeout + kubectl.killGrace) = %s", cfg.Server.WriteTimeout, maxActionSteps, worst))
	}
	if err := validateIdentityLabel(cfg.Kubectl.IdentityLabel); err != nil {
		errs = append(errs, fmt.Sprintf("kubectl.identityLabel: %v", err))
	}
	for _, ns := range cfg.Kubectl.BlockedNamespaces {
		if msgs := validation.IsDNS1123Label(ns); len(msgs) > 0 {
			errs = append(errs, fmt.Sprintf("kubectl.blockedNamespaces: %q is invalid: %s", ns, strings.Join(msgs, "; ")))
		}
	}

	if cfg.Kubernetes.HealthCheck && cfg.Kubernetes.InCluster && cfg.Kubernetes.Kubeconfig != "" {
		errs = append(errs, "kubernetes.inCluster and kubernetes.kubeconfig are mutually exclusive")
	}

	if cfg.Audit.Enabled && cfg.Audit.SQLite.Path == "" {
		errs = append(errs, "audit.sqlite.path is required when audit is enabled")
	}

	if cfg.Slack.Enabled {
		if cfg.Slack.BotToken == "" {
			errs = append(errs, "slack.botToken is required when slack is enabled")
		}
		if cfg.Slack.DefaultChannel == "" {
			errs = append(errs, "slack.defaultChannel is required when slack is enabled")
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("logging.level must be debug, info, warn, or error (got %q)", cfg.Logging.Level))
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("logging.format must be json or text (got %q)", cfg.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// validateIdentityLabel requires exactly one key=value pair that kubectl will accept.
func validateIdentityLabel(label string) error {
	if label == "" {
		return fmt.Errorf("is required")
	}
	set, err := labels.ConvertSelectorToLabelsMap(label)
	if err != nil {
		return err
	}
	if len(set) != 1 {
		return fmt.Errorf("must be a single key=value pair (got %q)", label)
	}
	for k, v := range set {
		if msgs := validation.IsQualifiedName(k); len(msgs) > 0 {
			return fmt.Errorf("key %q is invalid: %s", k, strings.Join(msgs, "; "))
		}
		if msgs := validation.IsValidLabelValue(v); len(msgs) > 0 {
			return fmt.Errorf("value %q is invalid: %s", v, strings.Join(msgs, "; "))
		}
	}
	return nil
}
