package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Notifier envia alertas para canais externos.
type Notifier interface {
	Notify(ctx context.Context, msg Alert) error
}

type Alert struct {
	Title    string
	Text     string
	Severity string
}

type SlackNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewSlackNotifier devolve nil quando o webhook não está configurado.
func NewSlackNotifier(webhookURL string) *SlackNotifier {
	if webhookURL == "" {
		return nil
	}
	return &SlackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

func (s *SlackNotifier) Notify(ctx context.Context, msg Alert) error {
	if s == nil || s.webhookURL == "" {
		return errors.New("slack notifier not configured")
	}

	body, err := json.Marshal(map[string]any{"text": formatSlackMessage(msg)})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("slack notification failed: status %d", resp.StatusCode)
	}
	return nil
}

// UploadFailed monta o alerta enviado quando o relay não consegue hospedar um vídeo.
func UploadFailed(uploadID, provider, filename string, cause error) Alert {
	return Alert{
		Title:    "Upload de vídeo falhou",
		Text:     fmt.Sprintf("upload `%s` (%s) via %s: %v", uploadID, filename, provider, cause),
		Severity: "warning",
	}
}

func formatSlackMessage(msg Alert) string {
	emoji := ":information_source:"
	switch msg.Severity {
	case "warning":
		emoji = ":warning:"
	case "critical":
		emoji = ":rotating_light:"
	}
	if msg.Title != "" {
		return emoji + " *" + msg.Title + "*\n" + msg.Text
	}
	return emoji + " " + msg.Text
}
