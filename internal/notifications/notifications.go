// Package notifications pushes abnormal control-loop events to ntfy.
package notifications

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/hydro-controller/internal/events"
)

const DefaultBaseURL = "https://ntfy.sh"

type Notifier struct {
	client *resty.Client
	topic  string
}

// New returns a notifier for topic, or nil when no topic is configured.
func New(topic, baseURL string) *Notifier {
	if topic == "" {
		log.Warn().Msg("Ntfy topic not configured - notifications disabled")
		return nil
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	n := &Notifier{
		client: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(10 * time.Second).
			SetHeader("Content-Type", "application/json"),
		topic: topic,
	}

	log.Info().
		Str("topic", topic).
		Msg("Ntfy notifications initialized")
	return n
}

type message struct {
	Topic    string   `json:"topic"`
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	Priority int      `json:"priority,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// Send publishes one notification.
func (n *Notifier) Send(title, body string, priority int) error {
	res, err := n.client.R().
		SetBody(message{Topic: n.topic, Title: title, Message: body, Priority: priority, Tags: []string{"warning"}}).
		Post("/")
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	if res.IsError() {
		return fmt.Errorf("ntfy returned non-success status: %d", res.StatusCode())
	}

	log.Debug().
		Str("title", title).
		Int("status", res.StatusCode()).
		Msg("Notification sent successfully")
	return nil
}

// Emit implements events.Sink. Only abnormal events are sent.
func (n *Notifier) Emit(e events.Event) {
	if n == nil || !e.Abnormal() {
		return
	}
	title, body := render(e)
	if err := n.Send(title, body, 5); err != nil {
		log.Warn().Err(err).Str("event", string(e.Kind)).Msg("Notification failed")
	}
}

func render(e events.Event) (string, string) {
	var title string
	switch e.Kind {
	case events.KindBusError:
		title = "Hydro relay bus error"
	case events.KindAllOffFailed:
		title = "Hydro relays may still be energized"
	default:
		title = "Hydro controller stopped"
	}

	var parts []string
	if e.Zone != "" {
		parts = append(parts, "zone "+e.Zone)
	}
	if e.Detail != "" {
		parts = append(parts, e.Detail)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	if len(parts) == 0 {
		parts = append(parts, string(e.Kind))
	}
	return title, strings.Join(parts, ": ")
}
