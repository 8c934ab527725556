package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"
)

const DefaultSubjectPrefix = "analytics"

// NATSTracker publishes events as JSON on "<prefix>.<event name>".
type NATSTracker struct {
	conn   *nats.Conn
	prefix string
	log    *slog.Logger
}

func NewNATSTracker(conn *nats.Conn, prefix string, log *slog.Logger) *NATSTracker {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if log == nil {
		log = slog.Default()
	}
	return &NATSTracker{conn: conn, prefix: prefix, log: log}
}

// Connect dials url with a client name and unlimited reconnects.
func Connect(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("contractor-backend"),
		nats.MaxReconnects(-1),
	)
}

func (t *NATSTracker) Subject(eventName string) string {
	return t.prefix + "." + eventName
}

// Track publishes without waiting for the server. Errors are logged and dropped.
func (t *NATSTracker) Track(ctx context.Context, event Event) {
	if t == nil || t.conn == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		t.log.Warn("analytics: encode failed", slog.String("event", event.Name), slog.String("error", err.Error()))
		return
	}
	if err := t.conn.Publish(t.Subject(event.Name), payload); err != nil {
		t.log.Warn("analytics: publish failed", slog.String("event", event.Name), slog.String("error", err.Error()))
	}
}
