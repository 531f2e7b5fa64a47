package journal

import (
	"context"
	"encoding/json"

	"github.com/joripage/futures-bot/pkg/oms/model"
	"github.com/nats-io/nats.go"
)

const (
	DefaultNATSStream  = "ORDERS"
	DefaultNATSSubject = "ORDERS.events"
)

// NATSSink publishes events to JetStream; cmd/worker persists them.
type NATSSink struct {
	js      nats.JetStreamContext
	subject string
}

func NewNATSSink(js nats.JetStreamContext, subject string) *NATSSink {
	if subject == "" {
		subject = DefaultNATSSubject
	}
	return &NATSSink{js: js, subject: subject}
}

// EnsureStream creates the stream backing the subject if it does not exist yet.
func EnsureStream(js nats.JetStreamContext, name string, subjects ...string) error {
	if _, err := js.StreamInfo(name); err == nil {
		return nil
	}
	_, err := js.AddStream(&nats.StreamConfig{
		Name:     name,
		Subjects: subjects,
	})
	return err
}

func (s *NATSSink) Record(ctx context.Context, ev *model.OrderEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = s.js.Publish(s.subject, data, nats.Context(ctx), nats.MsgId(ev.EventID))
	return err
}
