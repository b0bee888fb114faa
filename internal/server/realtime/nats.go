package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/iudanet/livedesk/pkg/api"
)

// SubjectPrefix префикс NATS subject событий: livedesk.events.<tenant>.<collection>
const SubjectPrefix = "livedesk.events"

// natsConnect подменяется в тестах
var natsConnect = nats.Connect

// NATSBroker рассылает события между экземплярами сервера через NATS
type NATSBroker struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// NewNATSBroker подключается к NATS серверу
func NewNATSBroker(logger *slog.Logger, url, name string, opts ...nats.Option) (*NATSBroker, error) {
	options := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	}
	options = append(options, opts...)

	nc, err := natsConnect(url, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSBroker{conn: nc, logger: logger}, nil
}

// Subject возвращает NATS subject коллекции тенанта
func Subject(tenantID, collection string) string {
	return SubjectPrefix + "." + subjectToken(tenantID) + "." + subjectToken(collection)
}

// subjectToken заменяет символы, недопустимые в токене subject
func subjectToken(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
}

// Publish реализует Broker
func (b *NATSBroker) Publish(ctx context.Context, event api.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.conn.Publish(Subject(event.TenantID, event.Collection), data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Subscribe реализует Broker
func (b *NATSBroker) Subscribe(handler Handler) (func(), error) {
	sub, err := b.conn.Subscribe(SubjectPrefix+".>", func(msg *nats.Msg) {
		var event api.Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			b.logger.Warn("Failed to decode NATS event", "subject", msg.Subject, "error", err)
			return
		}
		handler(event)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to events: %w", err)
	}

	return func() {
		if err := sub.Unsubscribe(); err != nil {
			b.logger.Warn("Failed to unsubscribe from NATS", "error", err)
		}
	}, nil
}

// Close реализует Broker
func (b *NATSBroker) Close() error {
	if err := b.conn.Flush(); err != nil {
		b.logger.Warn("Failed to flush NATS connection", "error", err)
	}
	b.conn.Close()
	return nil
}
