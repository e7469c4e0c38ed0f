package alert

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ftahirops/hpcsentry/model"
)

func TestValidateWebhookURL_BlocksMetadataAndLoopback(t *testing.T) {
	bad := []string{
		"http://169.254.169.254/latest/meta-data",
		"http://metadata.google.internal/",
		"http://localhost:8080/hook",
		"http://127.0.0.1/hook",
		"http://[::1]/hook",
	}
	for _, u := range bad {
		assert.Error(t, validateWebhookURL(u), u)
	}
}

func TestValidateWebhookURL_RejectsNonHTTPScheme(t *testing.T) {
	assert.Error(t, validateWebhookURL("ftp://example.com/hook"))
}

func TestValidateWebhookURL_AllowsOrdinaryHTTPS(t *testing.T) {
	assert.NoError(t, validateWebhookURL("https://alerts.example.com/hook"))
}

func TestShouldNotify_OnlyIdleLabels(t *testing.T) {
	assert.True(t, ShouldNotify(model.Classification{Label: model.IdleHeavy}))
	assert.True(t, ShouldNotify(model.Classification{Label: model.IdleHeavySwitching}))
	assert.False(t, ShouldNotify(model.Classification{Label: model.CpuBound}))
	assert.False(t, ShouldNotify(model.Classification{Label: model.Balanced}))
}

func TestNotify_SendsWebhookPayload(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	// validateWebhookURL blocks loopback hosts, so the webhook names an
	// ordinary host and the client's dialer routes it to the test server.
	n := New(Config{Webhook: "http://alerts.example.com/hook"})
	n.client.Transport = &http.Transport{
		DialContext: func(ctx context.Context, network, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, srv.Listener.Addr().String())
		},
	}
	n.Notify("J1", model.Classification{Label: model.IdleHeavy, EfficiencyScore: 12})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if atomic.LoadInt32(&hits) > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestEnabled(t *testing.T) {
	assert.False(t, New(Config{}).Enabled())
	assert.True(t, New(Config{Webhook: "https://example.com"}).Enabled())
	assert.True(t, New(Config{Command: "echo hi"}).Enabled())
}
