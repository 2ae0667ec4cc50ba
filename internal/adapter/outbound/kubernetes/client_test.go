package kubernetes

import (
	"context"
	"errors"
	"testing"

	"k8s.io/apimachinery/pkg/runtime"
	fakediscovery "k8s.io/client-go/discovery/fake"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"
)

func TestClusterProbe_Healthy(t *testing.T) {
	probe := NewClusterProbe(fake.NewSimpleClientset())
	if err := probe.HealthCheck(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestClusterProbe_Unreachable(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	disc, ok := clientset.Discovery().(*fakediscovery.FakeDiscovery)
	if !ok {
		t.Fatalf("unexpected discovery type %T", clientset.Discovery())
	}
	disc.PrependReactor("get", "version", func(k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, errors.New("connection refused")
	})

	if err := NewClusterProbe(clientset).HealthCheck(context.Background()); err == nil {
		t.Error("expected health check to fail")
	}
}

func TestNewClientset_MissingKubeconfig(t *testing.T) {
	if _, err := NewClientset(false, "/nonexistent/kubeconfig"); err == nil {
		t.Error("expected error for missing kubeconfig file")
	}
}
