package slack_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	slackapi "github.com/slack-go/slack"

	"github.com/jonny/kube-actions/internal/adapter/outbound/notification/slack"
	"github.com/jonny/kube-actions/internal/domain/port/outbound"
)

func partialOutcome() outbound.OutcomeNotification {
	return outbound.OutcomeNotification{
		ExecutionID: "exec-42",
		Action:      "create-deployment",
		Kind:        "deployment",
		Namespace:   "payments",
		Names:       []string{"web"},
		Status:      "partial_success",
		ErrorKind:   "partial_failure",
		Error:       "kubectl label failed with exit code 1: not found",
		Commands: []string{
			"kubectl create deployment web --image=nginx --replicas=1 --port=80 --namespace=payments",
			"kubectl label deployment web backstage.io/kubernetes-id=cluster-viewer --namespace=payments",
		},
	}
}

func TestBuildOutcomeBlocks(t *testing.T) {
	blocks := slack.BuildOutcomeBlocks(partialOutcome())
	if len(blocks) != 5 {
		t.Fatalf("expected 5 blocks, got %d", len(blocks))
	}

	section, ok := blocks[0].(*slackapi.SectionBlock)
	if !ok {
		t.Fatalf("expected first block to be SectionBlock, got %T", blocks[0])
	}
	if !strings.Contains(section.Text.Text, "create-deployment") {
		t.Errorf("expected action in header, got: %s", section.Text.Text)
	}
	if !strings.Contains(section.Text.Text, ":large_yellow_circle:") {
		t.Errorf("expected yellow emoji for partial success, got: %s", section.Text.Text)
	}
	if _, ok := blocks[4].(*slackapi.ContextBlock); !ok {
		t.Errorf("expected commands context block, got %T", blocks[4])
	}
}

func TestBuildOutcomeBlocks_NoErrorNoCommands(t *testing.T) {
	n := outbound.OutcomeNotification{Action: "create-pod", Status: "failure", Namespace: "default"}
	if blocks := slack.BuildOutcomeBlocks(n); len(blocks) != 3 {
		t.Errorf("expected 3 blocks, got %d", len(blocks))
	}
}

func TestBuildOutcomeBlocks_TruncatesLongErrors(t *testing.T) {
	n := partialOutcome()
	n.Error = strings.Repeat("x", 5000)
	blocks := slack.BuildOutcomeBlocks(n)
	section := blocks[3].(*slackapi.SectionBlock)
	if len(section.Text.Text) > 2100 {
		t.Errorf("error block not truncated: %d chars", len(section.Text.Text))
	}
}

func TestNotifier_NotifyOutcome(t *testing.T) {
	var mu sync.Mutex
	var form url.Values

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		form, _ = url.ParseQuery(string(body))
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"channel":"C123","ts":"1700000000.000100"}`))
	}))
	defer srv.Close()

	n := slack.NewNotifier(slack.Config{
		BotToken:       "xoxb-test",
		DefaultChannel: "C-default",
		Channels:       map[string]string{"payments": "C-payments"},
		APIURL:         srv.URL + "/",
	})

	if err := n.NotifyOutcome(context.Background(), partialOutcome()); err != nil {
		t.Fatalf("NotifyOutcome: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if got := form.Get("channel"); got != "C-payments" {
		t.Errorf("channel = %q, want namespace channel", got)
	}
	if !strings.Contains(form.Get("text"), "partial_success") {
		t.Errorf("fallback text = %q", form.Get("text"))
	}
}

func TestNotifier_NotifyOutcomeAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":false,"error":"channel_not_found"}`))
	}))
	defer srv.Close()

	n := slack.NewNotifier(slack.Config{BotToken: "xoxb-test", DefaultChannel: "C-missing", APIURL: srv.URL + "/"})
	err := n.NotifyOutcome(context.Background(), partialOutcome())
	if err == nil || !strings.Contains(err.Error(), "channel_not_found") {
		t.Errorf("expected channel_not_found error, got %v", err)
	}
}
