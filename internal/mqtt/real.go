package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/thatsimonsguy/hydro-controller/internal/events"
)

var connectTimeout = 10 * time.Second

// newClient is replaced in tests to avoid a real broker.
var newClient = paho.NewClient

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	client paho.Client
	topic  string
}

// NewRealPublisher connects to broker and publishes under topic.
func NewRealPublisher(broker, clientID, topic string) (*RealPublisher, error) {
	if clientID == "" {
		clientID = DefaultClientID
	}
	if topic == "" {
		topic = DefaultTopic
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	client := newClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		// stop the background connect retries
		client.Disconnect(0)
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		client.Disconnect(0)
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return &RealPublisher{client: client, topic: topic}, nil
}

// Publish sends e to the broker. Abnormal events use QoS 1.
func (p *RealPublisher) Publish(e events.Event) error {
	payload, err := FormatPayload(e)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	var qos byte
	if e.Abnormal() || e.Kind == events.KindShutdown {
		qos = 1
	}

	token := p.client.Publish(Subtopic(p.topic, e.Kind), qos, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000)
	return nil
}
