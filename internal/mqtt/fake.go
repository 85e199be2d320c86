package mqtt

import "github.com/thatsimonsguy/hydro-controller/internal/events"

// FakePublisher records published events for test assertions.
type FakePublisher struct {
	Events   []events.Event
	Payloads [][]byte

	// PublishError, if set, will be returned by Publish.
	PublishError error

	Closed bool
}

func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

func (f *FakePublisher) Publish(e events.Event) error {
	if f.PublishError != nil {
		return f.PublishError
	}

	payload, err := FormatPayload(e)
	if err != nil {
		return err
	}
	f.Events = append(f.Events, e)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}
