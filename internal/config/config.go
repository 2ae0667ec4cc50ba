package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Kubectl    KubectlConfig    `yaml:"kubectl"`
	Kubernetes KubernetesConfig `yaml:"kubernetes"`
	Audit      AuditConfig      `yaml:"audit"`
	Slack      SlackConfig      `yaml:"slack"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	Port            int             `yaml:"port"`
	BasePath        string          `yaml:"basePath"`
	ReadTimeout     time.Duration   `yaml:"readTimeout"`
	WriteTimeout    time.Duration   `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration   `yaml:"shutdownTimeout"`
	MetricsPort     int             `yaml:"metricsPort"`
	AllowedOrigins  []string        `yaml:"allowedOrigins"`
	AuthToken       string          `yaml:"authToken"`
	MaxBodyBytes    int64           `yaml:"maxBodyBytes"`
	RateLimit       RateLimitConfig `yaml:"rateLimit"`
}

type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
	// TrustProxy keys the limiter on the first X-Forwarded-For address.
	// Enable only behind a proxy that sets the header.
	TrustProxy bool `yaml:"trustProxy"`
}

type KubectlConfig struct {
	Binary            string        `yaml:"binary"`
	Kubeconfig        string        `yaml:"kubeconfig"`
	Timeout           time.Duration `yaml:"timeout"`
	KillGrace         time.Duration `yaml:"killGrace"`
	IdentityLabel     string        `yaml:"identityLabel"`
	AllowedVerbs      []string      `yaml:"allowedVerbs"`
	BlockedNamespaces []string      `yaml:"blockedNamespaces"`
	WorkspaceDir      string        `yaml:"workspaceDir"`
	DryRun            bool          `yaml:"dryRun"`
}

// KubernetesConfig configures the client-go connection used for readiness only.
type KubernetesConfig struct {
	HealthCheck bool   `yaml:"healthCheck"`
	InCluster   bool   `yaml:"inCluster"`
	Kubeconfig  string `yaml:"kubeconfig"`
}

type AuditConfig struct {
	Enabled bool         `yaml:"enabled"`
	SQLite  SQLiteConfig `yaml:"sqlite"`
}

type SQLiteConfig struct {
	Path              string `yaml:"path"`
	MaxOpenConns      int    `yaml:"maxOpenConns"`
	PragmaJournalMode string `yaml:"pragmaJournalMode"`
	PragmaBusyTimeout int    `yaml:"pragmaBusyTimeout"`
}

type SlackConfig struct {
	Enabled        bool              `yaml:"enabled"`
	BotToken       string            `yaml:"botToken"`
	DefaultChannel string            `yaml:"defaultChannel"`
	Channels       map[string]string `yaml:"channels"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads a YAML config file and returns a Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            7007,
			BasePath:        "/api/kubernetes-actions",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    90 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MetricsPort:     9090,
			AllowedOrigins:  []string{"http://localhost:3000"},
			MaxBodyBytes:    1 << 20,
			RateLimit:       RateLimitConfig{Enabled: true, RequestsPerMinute: 60, Burst: 10},
		},
		Kubectl: KubectlConfig{
			Binary:            "kubectl",
			Timeout:           30 * time.Second,
			KillGrace:         5 * time.Second,
			IdentityLabel:     "backstage.io/kubernetes-id=cluster-viewer",
			AllowedVerbs:      []string{"create", "expose", "run", "label", "delete", "get", "apply"},
			BlockedNamespaces: []string{"kube-system", "kube-public", "kube-node-lease"},
		},
		Kubernetes: KubernetesConfig{
			HealthCheck: false,
			InCluster:   false,
		},
		Audit: AuditConfig{
			Enabled: true,
			SQLite: SQLiteConfig{
				Path:              "/data/kube-actions.db",
				MaxOpenConns:      1,
				PragmaJournalMode: "wal",
				PragmaBusyTimeout: 5000,
			},
		},
		Slack: SlackConfig{
			Enabled:        false,
			DefaultChannel: "#platform-alerts",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// expandEnvVars replaces ${VAR} patterns with environment variable values.
func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		return "${" + key + "}"
	})
}
