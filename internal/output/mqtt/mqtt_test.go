package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/crimson-sun/silverwatch/internal/model"
	"github.com/crimson-sun/silverwatch/internal/output"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func newToken(err error, complete bool) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	if complete {
		close(t.done)
	}
	return t
}

func (t *fakeToken) Wait() bool                     { <-t.done; return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type fakeClient struct {
	topic        string
	qos          byte
	payload      []byte
	token        *fakeToken
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	c.topic, c.qos, c.payload = topic, qos, payload.([]byte)
	return c.token
}

func (c *fakeClient) Disconnect(uint) { c.disconnected = true }

func TestWritePublishesJSON(t *testing.T) {
	fc := &fakeClient{token: newToken(nil, true)}
	o := &Output{client: fc, topic: "silverwatch/alerts"}

	alert := model.AlertEvent{ID: "x", Timestamp: time.Now().UTC(), Level: 2, Name: "Metallic Seaweed"}
	if err := o.Write(context.Background(), alert); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if fc.topic != "silverwatch/alerts" || fc.qos != 1 {
		t.Errorf("published to %q qos %d", fc.topic, fc.qos)
	}
	var got model.AlertEvent
	if err := json.Unmarshal(fc.payload, &got); err != nil {
		t.Fatal(err)
	}
	if got.Level != 2 || got.ID != "x" {
		t.Errorf("payload = %+v", got)
	}

	o.Close()
	if !fc.disconnected {
		t.Error("Close should disconnect")
	}
}

func TestWritePublishError(t *testing.T) {
	boom := errors.New("not connected")
	o := &Output{client: &fakeClient{token: newToken(boom, true)}, topic: "t"}

	err := o.Write(context.Background(), model.AlertEvent{Level: 1})
	var se *output.StorageError
	if !errors.As(err, &se) || se.Sink != "mqtt" || !errors.Is(err, boom) {
		t.Fatalf("expected mqtt StorageError wrapping cause, got %v", err)
	}
}

func TestWriteHonoursContext(t *testing.T) {
	o := &Output{client: &fakeClient{token: newToken(nil, false)}, topic: "t"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := o.Write(ctx, model.AlertEvent{Level: 1}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestClientOptions(t *testing.T) {
	opts := clientOptions(Config{
		Broker:   "tcp://broker:1883",
		ClientID: "silverwatch",
		Username: "u",
		Password: "p",
	})
	if len(opts.Servers) != 1 || opts.Servers[0].Host != "broker:1883" {
		t.Errorf("Servers = %v", opts.Servers)
	}
	if opts.ClientID != "silverwatch" || opts.Username != "u" {
		t.Errorf("ClientID=%q Username=%q", opts.ClientID, opts.Username)
	}
	if !opts.AutoReconnect {
		t.Error("AutoReconnect should be enabled")
	}
}

func TestNewRequiresBrokerAndTopic(t *testing.T) {
	if _, err := New(Config{Topic: "t"}); err == nil {
		t.Error("expected error without broker")
	}
	if _, err := New(Config{Broker: "tcp://localhost:1883"}); err == nil {
		t.Error("expected error without topic")
	}
}
