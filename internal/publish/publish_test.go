package publish

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"recmon/internal/config"
	"recmon/internal/recmon"
)

func testReport() *recmon.Report {
	return &recmon.Report{
		BoardID:         "TEST_BOARD_12345678",
		Timestamp:       "2026-02-10T08:00:00Z",
		CameraStatus:    recmon.StatusRecording,
		StatusMessage:   "Camera is currently recording",
		OfflineSegments: recmon.Segments{},
	}
}

func TestHTTPPublisher(t *testing.T) {
	var got recmon.Report
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != ReportPath {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-API-Key") != "secret" {
			t.Errorf("X-API-Key = %q", r.Header.Get("X-API-Key"))
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := &HTTPPublisher{Client: server.Client(), BaseURL: server.URL + "/", APIKey: "secret"}
	if err := p.Publish(context.Background(), testReport()); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}
	if got.BoardID != "TEST_BOARD_12345678" || got.CameraStatus != recmon.StatusRecording {
		t.Errorf("server received %+v", got)
	}
}

func TestHTTPPublisherRejectsNonOK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	p := &HTTPPublisher{Client: server.Client(), BaseURL: server.URL}
	err := p.Publish(context.Background(), testReport())
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Errorf("expected status 503 error, got %v", err)
	}
}

func TestRetryingSucceedsAfterFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := &Retrying{
		Next:     &HTTPPublisher{Client: server.Client(), BaseURL: server.URL},
		Attempts: 3,
		Delay:    time.Millisecond,
	}
	if err := p.Publish(context.Background(), testReport()); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("server saw %d calls, want 3", calls.Load())
	}
}

func TestRetryingGivesUp(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	p := &Retrying{
		Next:     &HTTPPublisher{Client: server.Client(), BaseURL: server.URL},
		Attempts: 2,
		Delay:    time.Millisecond,
	}
	if err := p.Publish(context.Background(), testReport()); err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls.Load() != 2 {
		t.Errorf("server saw %d calls, want 2", calls.Load())
	}
}

// fakeToken completes immediately without error.
type fakeToken struct{}

func (*fakeToken) Wait() bool                     { return true }
func (*fakeToken) WaitTimeout(time.Duration) bool { return true }
func (*fakeToken) Error() error                   { return nil }
func (*fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type errToken struct {
	fakeToken
	err error
}

func (t *errToken) Error() error { return t.err }

// pendingToken never completes.
type pendingToken struct{ fakeToken }

func (*pendingToken) Done() <-chan struct{} { return make(chan struct{}) }

type fakeClient struct {
	mqtt.Client

	connect      mqtt.Token
	opts         *mqtt.ClientOptions
	topic        string
	payload      []byte
	qos          byte
	retained     bool
	disconnected bool
}

func (c *fakeClient) Connect() mqtt.Token {
	if c.connect != nil {
		return c.connect
	}
	return &fakeToken{}
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload any) mqtt.Token {
	c.topic, c.qos, c.retained = topic, qos, retained
	c.payload, _ = payload.([]byte)
	return &fakeToken{}
}

func (c *fakeClient) Disconnect(uint) { c.disconnected = true }

func newMQTT(fc *fakeClient) *MQTTPublisher {
	return &MQTTPublisher{
		newClient: func(o *mqtt.ClientOptions) mqtt.Client {
			fc.opts = o
			return fc
		},
		Broker:   "tcp://broker.local:1883",
		Topic:    "storeyes/TEST_BOARD_12345678/recordings",
		User:     "cam",
		Password: "pw",
		ClientID: "recmon-test",
		Timeout:  time.Second,
		QoS:      1,
		Retain:   true,
	}
}

func TestMQTTPublisher(t *testing.T) {
	fc := &fakeClient{}
	p := newMQTT(fc)

	if err := p.Publish(context.Background(), testReport()); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}
	if fc.topic != p.Topic || fc.qos != 1 || !fc.retained {
		t.Errorf("published to %q qos=%d retained=%v", fc.topic, fc.qos, fc.retained)
	}
	if !fc.disconnected {
		t.Error("client was not disconnected")
	}
	var got recmon.Report
	if err := json.Unmarshal(fc.payload, &got); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if got.BoardID != "TEST_BOARD_12345678" {
		t.Errorf("payload board_id = %q", got.BoardID)
	}
	if fc.opts.Username != "cam" || fc.opts.ClientID != "recmon-test" || len(fc.opts.Servers) != 1 {
		t.Errorf("client options = %+v", fc.opts)
	}
}

func TestMQTTPublisherConnectFailure(t *testing.T) {
	fc := &fakeClient{connect: &errToken{err: errors.New("connection refused")}}
	p := newMQTT(fc)

	err := p.Publish(context.Background(), testReport())
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("expected connect error, got %v", err)
	}
	if fc.topic != "" {
		t.Error("published despite failed connect")
	}
}

func TestMQTTPublisherConnectTimeout(t *testing.T) {
	fc := &fakeClient{connect: &pendingToken{}}
	p := newMQTT(fc)
	p.Timeout = 10 * time.Millisecond

	err := p.Publish(context.Background(), testReport())
	if !errors.Is(err, errTimeout) {
		t.Errorf("expected timeout, got %v", err)
	}
	if !fc.disconnected {
		t.Error("pending connection was not torn down")
	}
}

func TestMQTTPublisherConnectCanceled(t *testing.T) {
	fc := &fakeClient{connect: &pendingToken{}}
	p := newMQTT(fc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Publish(ctx, testReport())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if !fc.disconnected {
		t.Error("pending connection was not torn down")
	}
}

func TestNew(t *testing.T) {
	cfg := config.Default()
	p, err := New(cfg, "board-1")
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	r, ok := p.(*Retrying)
	if !ok {
		t.Fatalf("New() returned %T, want *Retrying", p)
	}
	m, ok := r.Next.(*MQTTPublisher)
	if !ok {
		t.Fatalf("inner publisher is %T, want *MQTTPublisher", r.Next)
	}
	if m.Topic != "storeyes/board-1/recordings" || m.Broker != "tcp://localhost:1883" || m.ClientID != "recmon-board-1" {
		t.Errorf("unexpected MQTT publisher: %+v", m)
	}
	if r.Attempts != 3 || r.Delay != 2*time.Second {
		t.Errorf("unexpected retry settings: %+v", r)
	}

	cfg.Publish.Transport = config.TransportHTTP
	if _, err := New(cfg, "board-1"); err == nil {
		t.Error("expected error for http transport without URL")
	}
	cfg.Publish.HTTP.URL = "https://monitor.example.com"
	p, err = New(cfg, "board-1")
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, ok := p.(*Retrying).Next.(*HTTPPublisher); !ok {
		t.Errorf("inner publisher is %T, want *HTTPPublisher", p.(*Retrying).Next)
	}
}
