package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/session_guard/internal/config"
	"github.com/Skotchmaster/session_guard/internal/models"
)

const LoginEventIndex = "login_events"

func NewClient(cfg *config.Config) (*elasticsearch.Client, error) {
	log.Printf("Connecting to Elasticsearch at: %s", cfg.ES_URL)

	esCfg := elasticsearch.Config{
		Addresses: []string{cfg.ES_URL},
		Username:  cfg.ES_USER,
		Password:  cfg.ES_PASSWORD,
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("elasticsearch error: %s: %s", res.Status(), body)
	}

	return client, nil
}

// IndexLoginEvent mirrors the audit row into the search index. Callers treat
// failures as advisory; the DB row is the source of truth.
func IndexLoginEvent(ctx context.Context, client *elasticsearch.Client, event *models.LoginEvent) error {
	doc := map[string]interface{}{
		"principal_id": event.PrincipalID.String(),
		"origin":       event.Origin,
		"descriptor":   event.Descriptor,
		"browser":      event.Browser,
		"os":           event.OS,
		"trusted":      event.Trusted,
		"event_type":   event.EventType,
		"created_at":   event.CreatedAt,
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("es: marshal login event: %w", err)
	}

	res, err := client.Index(LoginEventIndex, bytes.NewReader(data), client.Index.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("es: index login event: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("es: index login event: %s: %s", res.Status(), body)
	}
	return nil
}
