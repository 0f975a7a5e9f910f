package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"recmon/internal/recmon"
)

// disconnectQuiesce is how long Disconnect waits for in-flight work, in ms.
const disconnectQuiesce = 250

var errTimeout = errors.New("timed out")

// MQTTPublisher connects, publishes one message and disconnects.
type MQTTPublisher struct {
	// newClient is swapped in tests.
	newClient func(*mqtt.ClientOptions) mqtt.Client

	Broker   string // tcp://host:port
	Topic    string
	User     string
	Password string
	ClientID string
	Timeout  time.Duration
	QoS      byte
	Retain   bool
}

// Publish implements Publisher.
func (p *MQTTPublisher) Publish(ctx context.Context, r *recmon.Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	opts := mqtt.NewClientOptions().
		AddBroker(p.Broker).
		SetClientID(p.ClientID).
		SetConnectTimeout(p.Timeout).
		SetAutoReconnect(false)
	if p.User != "" {
		opts.SetUsername(p.User)
		opts.SetPassword(p.Password)
	}

	newClient := p.newClient
	if newClient == nil {
		newClient = mqtt.NewClient
	}
	client := newClient(opts)

	if err := wait(ctx, client.Connect(), p.Timeout); err != nil {
		// Abort a connect that may still complete in the background.
		client.Disconnect(0)
		return fmt.Errorf("failed to connect to %s: %w", p.Broker, err)
	}
	defer client.Disconnect(disconnectQuiesce)

	if err := wait(ctx, client.Publish(p.Topic, p.QoS, p.Retain, data), p.Timeout); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.Topic, err)
	}

	log.Printf("[DEBUG] Published %d bytes to %s (qos=%d, retain=%v)", len(data), p.Topic, p.QoS, p.Retain)
	return nil
}

func wait(ctx context.Context, token mqtt.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return errTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}
