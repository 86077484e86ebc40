package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// WebhookNotifier sends alerts via webhook.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

type webhookPayload struct {
	MsgType string      `json:"msgtype"`
	Text    webhookText `json:"text"`
}

type webhookText struct {
	Content string `json:"content"`
}

// NewWebhookNotifier constructs a notifier.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Notify sends an alert to webhook.
func (n *WebhookNotifier) Notify(ctx context.Context, msg AlertMessage) error {
	if n == nil || n.url == "" {
		return errors.New("webhook notifier: empty url")
	}
	payload := webhookPayload{
		MsgType: "text",
		Text:    webhookText{Content: formatAlertMessage(msg)},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return errors.New("webhook notifier: non-2xx")
	}
	return nil
}

func formatAlertMessage(msg AlertMessage) string {
	var b strings.Builder
	b.WriteString("[Sensor Health Alert]\n")
	if msg.TenantID != "" {
		fmt.Fprintf(&b, "Tenant: %s\n", msg.TenantID)
	}
	if msg.SensorID != "" {
		fmt.Fprintf(&b, "Sensor: %s\n", msg.SensorID)
	}
	if msg.Status != "" {
		fmt.Fprintf(&b, "Status: %s\n", msg.Status)
	}
	fmt.Fprintf(&b, "Score: %.1f\n", msg.HealthScore)
	if msg.Diagnosis != "" {
		fmt.Fprintf(&b, "Diagnosis: %s\n", msg.Diagnosis)
	}
	if msg.Recommendation != "" {
		fmt.Fprintf(&b, "Suggested: %s\n", msg.Recommendation)
	}
	if len(msg.Flags) > 0 {
		fmt.Fprintf(&b, "Flags: %s\n", strings.Join(msg.Flags, ", "))
	}
	return strings.TrimSpace(b.String())
}
