package service_test

import (
	"testing"

	"github.com/jonny/kube-actions/internal/domain/model"
	"github.com/jonny/kube-actions/internal/domain/service"
)

func TestParseResourceNames(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   []string
	}{
		{"qualified names", "deployment.apps/web\ndeployment.apps/api\n", []string{"web", "api"}},
		{"bare names", "web\napi", []string{"web", "api"}},
		{"blank lines skipped", "\n  pod/a  \n\n\npod/b\n", []string{"a", "b"}},
		{"crlf", "pod/a\r\npod/b\r\n", []string{"a", "b"}},
		{"empty", "", []string{}},
		{"whitespace only", "  \n\t\n", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := service.ParseResourceNames("pod", tt.output)
			if got == nil {
				t.Fatal("ParseResourceNames returned nil")
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d refs (%v), want %d", len(got), got, len(tt.want))
			}
			for i, ref := range got {
				if ref.Name != tt.want[i] {
					t.Errorf("ref[%d].Name = %q, want %q", i, ref.Name, tt.want[i])
				}
				if ref.Kind != "pod" {
					t.Errorf("ref[%d].Kind = %q, want pod", i, ref.Kind)
				}
			}
		})
	}
}

func TestParseApplyOutput(t *testing.T) {
	out := "deployment.apps/web created\nservice/web unchanged\nconfigmap/settings configured (server dry run)\n\n"
	got := service.ParseApplyOutput(out)

	want := []model.AppliedResource{
		{Kind: "deployment", Name: "web", Result: "created"},
		{Kind: "service", Name: "web", Result: "unchanged"},
		{Kind: "configmap", Name: "settings", Result: "configured (server dry run)"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d resources, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("resource[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestParseApplyOutput_Empty(t *testing.T) {
	if got := service.ParseApplyOutput(""); got == nil || len(got) != 0 {
		t.Errorf("ParseApplyOutput(\"\") = %v, want empty slice", got)
	}
}
