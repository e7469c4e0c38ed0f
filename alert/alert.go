// Package alert notifies an operator when a job's classification
// crosses into a wasteful workload label, grounded on the teacher's
// engine/alert.go Notifier (webhook + command channels, SSRF-guarded
// webhook host validation, exec.CommandContext with a bounded timeout).
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"github.com/ftahirops/hpcsentry/internal/logging"
	"github.com/ftahirops/hpcsentry/model"
)

// Config names the alert destinations.
type Config struct {
	Webhook string
	Command string
}

// notifyLabels are the workload labels worth paging someone about: jobs
// burning allocation while mostly idle.
var notifyLabels = map[model.Label]bool{
	model.IdleHeavy:         true,
	model.IdleHeavySwitching: true,
}

// Notifier sends alert notifications for jobs the Classifier flagged as
// wasteful.
type Notifier struct {
	cfg    Config
	client *http.Client
}

// New returns a Notifier for cfg.
func New(cfg Config) *Notifier {
	return &Notifier{cfg: cfg, client: &http.Client{Timeout: 5 * time.Second}}
}

// Enabled reports whether any destination is configured.
func (n *Notifier) Enabled() bool {
	return n.cfg.Webhook != "" || n.cfg.Command != ""
}

// ShouldNotify reports whether a job's classification warrants an alert.
func ShouldNotify(c model.Classification) bool {
	return notifyLabels[c.Label]
}

// Notify dispatches an alert for jobID asynchronously.
func (n *Notifier) Notify(jobID string, c model.Classification) {
	if !n.Enabled() {
		return
	}
	payload := map[string]interface{}{
		"job_id":           jobID,
		"label":            c.Label.String(),
		"efficiency_score": c.EfficiencyScore,
		"recommendations":  c.Recommendations,
		"ts":               time.Now().Format(time.RFC3339),
	}
	go n.dispatch(payload)
}

func (n *Notifier) dispatch(payload map[string]interface{}) {
	if n.cfg.Webhook != "" {
		n.sendWebhook(payload)
	}
	if n.cfg.Command != "" {
		n.sendCommand(payload)
	}
}

func (n *Notifier) sendWebhook(payload map[string]interface{}) {
	if err := validateWebhookURL(n.cfg.Webhook); err != nil {
		logging.Warnf("alert webhook blocked: %v", err)
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	req, err := http.NewRequest(http.MethodPost, n.cfg.Webhook, bytes.NewReader(data))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		logging.Warnf("alert webhook send error: %v", err)
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

func (n *Notifier) sendCommand(payload map[string]interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, "sh", "-c", n.cfg.Command)
	cmd.Stdin = bytes.NewReader(data)
	if err := cmd.Run(); err != nil {
		logging.Warnf("alert command error: %v", err)
	}
}

// validateWebhookURL rejects schemes other than http/https and blocks
// well-known cloud metadata and loopback hosts.
func validateWebhookURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid webhook URL: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("webhook URL must use http or https scheme, got %q", scheme)
	}
	host := strings.ToLower(u.Hostname())
	blocked := []string{"169.254.169.254", "metadata.google.internal", "localhost", "127.0.0.1", "::1", "[::1]"}
	for _, b := range blocked {
		if host == b {
			return fmt.Errorf("webhook URL host %q is blocked", host)
		}
	}
	return nil
}
