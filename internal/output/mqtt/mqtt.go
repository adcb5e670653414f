// Package mqtt publishes alerts to an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/crimson-sun/silverwatch/internal/model"
	"github.com/crimson-sun/silverwatch/internal/output"
)

const (
	qos            = 1
	connectTimeout = 10 * time.Second
	publishTimeout = 10 * time.Second
	disconnectWait = 250 // ms
)

// Config describes the broker connection.
type Config struct {
	Broker   string // e.g. tcp://localhost:1883
	Topic    string
	ClientID string
	Username string
	Password string
}

// publisher is the subset of mqtt.Client the sink uses.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// Output publishes each alert as JSON with QoS 1.
type Output struct {
	client publisher
	topic  string
}

// New connects to the broker. Paho reconnects in the background after a
// lost connection; publishes made while disconnected fail.
func New(cfg Config) (*Output, error) {
	if cfg.Broker == "" || cfg.Topic == "" {
		return nil, fmt.Errorf("mqtt output: broker and topic are required")
	}
	client := mqtt.NewClient(clientOptions(cfg))
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, output.Fail("mqtt", "connect", fmt.Errorf("timed out after %s", connectTimeout))
	}
	if err := token.Error(); err != nil {
		return nil, output.Fail("mqtt", "connect", err)
	}
	return &Output{client: client, topic: cfg.Topic}, nil
}

func clientOptions(cfg Config) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetOrderMatters(true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	return opts
}

func (o *Output) Write(ctx context.Context, alert model.AlertEvent) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return output.Fail("mqtt", "marshal", err)
	}

	token := o.client.Publish(o.topic, qos, false, payload)
	timer := time.NewTimer(publishTimeout)
	defer timer.Stop()
	select {
	case <-token.Done():
		return output.Fail("mqtt", "publish", token.Error())
	case <-ctx.Done():
		return output.Fail("mqtt", "publish", ctx.Err())
	case <-timer.C:
		return output.Fail("mqtt", "publish", fmt.Errorf("timed out after %s", publishTimeout))
	}
}

func (o *Output) Close() error {
	o.client.Disconnect(disconnectWait)
	return nil
}
