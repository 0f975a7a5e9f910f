// Package publish delivers monitoring reports to a collector.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"recmon/internal/config"
	"recmon/internal/recmon"
)

// ReportPath is appended to the HTTP server URL.
const ReportPath = "/api/v1/recordings"

const maxRetryDelay = 30 * time.Second

// Publisher sends one report.
type Publisher interface {
	Publish(ctx context.Context, r *recmon.Report) error
}

// HTTPPublisher POSTs reports as JSON.
type HTTPPublisher struct {
	Client  *http.Client
	BaseURL string
	APIKey  string
}

// Publish implements Publisher.
func (p *HTTPPublisher) Publish(ctx context.Context, r *recmon.Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	url := strings.TrimSuffix(p.BaseURL, "/") + ReportPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.APIKey != "" {
		req.Header.Set("X-API-Key", p.APIKey)
	}

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("[WARN] Error closing response body: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	return nil
}

// Retrying retries a Publisher with a bounded backoff.
type Retrying struct {
	Next     Publisher
	Attempts int
	Delay    time.Duration
}

// Publish implements Publisher. Cancelling ctx stops further attempts.
func (p *Retrying) Publish(ctx context.Context, r *recmon.Report) error {
	start := time.Now()
	attempts := max(p.Attempts, 1)

	err := retry.Do(func() error {
		return p.Next.Publish(ctx, r)
	},
		retry.Context(ctx),
		retry.Attempts(uint(attempts)),
		retry.Delay(p.Delay),
		retry.MaxDelay(maxRetryDelay),
		retry.OnRetry(func(n uint, err error) {
			log.Printf("[WARN] Publish attempt %d/%d failed: %v", n+1, attempts, err)
		}))
	if err != nil {
		return fmt.Errorf("publish failed after %d attempts: %w", attempts, err)
	}

	log.Printf("[INFO] Published report for board %s in %v", r.BoardID, time.Since(start))
	return nil
}

// New builds the configured publisher, wrapped in Retrying.
func New(cfg *config.Config, boardID string) (Publisher, error) {
	if err := cfg.ValidatePublish(); err != nil {
		return nil, err
	}

	p := cfg.Publish
	timeout := time.Duration(p.TimeoutSeconds) * time.Second

	var next Publisher
	switch p.Transport {
	case config.TransportHTTP:
		next = &HTTPPublisher{
			Client:  &http.Client{Timeout: timeout},
			BaseURL: p.HTTP.URL,
			APIKey:  p.HTTP.APIKey,
		}
	case config.TransportMQTT:
		clientID := p.MQTT.ClientID
		if clientID == "" {
			clientID = "recmon-" + boardID
		}
		next = &MQTTPublisher{
			Broker:   fmt.Sprintf("tcp://%s:%d", p.MQTT.Host, p.MQTT.Port),
			Topic:    cfg.Topic(boardID),
			User:     p.MQTT.User,
			Password: p.MQTT.Password,
			ClientID: clientID,
			QoS:      byte(p.MQTT.QoS),
			Retain:   p.MQTT.Retain,
			Timeout:  timeout,
		}
	default:
		return nil, fmt.Errorf("unknown transport %q", p.Transport)
	}

	return &Retrying{
		Next:     next,
		Attempts: p.Retries,
		Delay:    time.Duration(p.RetryDelaySeconds) * time.Second,
	}, nil
}
