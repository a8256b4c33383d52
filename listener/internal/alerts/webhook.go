package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/faoswatch/faoswatch/listener/internal/config"
	"github.com/faoswatch/faoswatch/listener/internal/tracker"
)

// deliverWebhooks posts ev to every webhook target with a resolved URL.
// Targets whose URL env var is unset are skipped silently.
func (d *Dispatcher) deliverWebhooks(ctx context.Context, hooks []config.WebhookConfig, ev tracker.AlertEvent) []DispatchError {
	var errs []DispatchError
	for _, wh := range hooks {
		url := wh.URL()
		if url == "" {
			continue
		}

		var body []byte
		switch wh.Type {
		case "slack":
			body, _ = json.Marshal(map[string]string{
				"text": fmt.Sprintf("*%s* %s (azimuth %.1f°)", Title(ev.Name), PopupMessage(ev.Name, ev.TTG), ev.Azimuth),
			})
		case "teams":
			body, _ = json.Marshal(map[string]interface{}{
				"@type":      "MessageCard",
				"@context":   "http://schema.org/extensions",
				"themeColor": "00D4FF",
				"summary":    Title(ev.Name),
				"title":      Title(ev.Name),
				"text":       fmt.Sprintf("%s, azimuth %.1f°", PopupMessage(ev.Name, ev.TTG), ev.Azimuth),
			})
		case "http":
			body, _ = json.Marshal(map[string]interface{}{"alert": ev})
		default:
			errs = append(errs, DispatchError{Kind: KindWebhook, Target: wh.Type, Cause: fmt.Errorf("unknown webhook type")})
			continue
		}

		if err := d.post(ctx, url, body); err != nil {
			errs = append(errs, DispatchError{Kind: KindWebhook, Target: wh.Type, Cause: err})
		}
	}
	return errs
}

func (d *Dispatcher) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}
