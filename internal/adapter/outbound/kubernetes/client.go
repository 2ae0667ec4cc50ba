package kubernetes

import (
	"context"
	"fmt"

	k8s "k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// NewClientset creates a Kubernetes clientset from in-cluster config or a kubeconfig file.
// An empty kubeconfigPath falls back to the default loading rules ($KUBECONFIG, ~/.kube/config).
func NewClientset(inCluster bool, kubeconfigPath string) (k8s.Interface, error) {
	var config *rest.Config
	var err error

	switch {
	case inCluster:
		config, err = rest.InClusterConfig()
	case kubeconfigPath != "":
		config, err = clientcmd.BuildConfigFromFlags("", kubeconfigPath)
	default:
		config, err = clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
			clientcmd.NewDefaultClientConfigLoadingRules(),
			&clientcmd.ConfigOverrides{},
		).ClientConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("building k8s config: %w", err)
	}

	return k8s.NewForConfig(config)
}

// ClusterProbe reports whether the API server kubectl will talk to is reachable.
type ClusterProbe struct {
	clientset k8s.Interface
}

func NewClusterProbe(clientset k8s.Interface) *ClusterProbe {
	return &ClusterProbe{clientset: clientset}
}

// HealthCheck verifies connectivity to the API server via ServerVersion.
func (p *ClusterProbe) HealthCheck(_ context.Context) error {
	if _, err := p.clientset.Discovery().ServerVersion(); err != nil {
		return fmt.Errorf("k8s health check failed: %w", err)
	}
	return nil
}
