// Package telemetry publishes pipeline bus events to NATS so that
// external systems can observe stream health without scraping logs.
// Publishing is fire-and-forget: a broken telemetry link never affects
// pipeline control flow.
package telemetry

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mdegans/mce/errors"
	"github.com/mdegans/mce/media"
	"github.com/mdegans/mce/metric"
)

// Event is the wire form of one published bus message.
type Event struct {
	Kind      string    `json:"kind"`
	Source    string    `json:"source,omitempty"`
	Code      int       `json:"code,omitempty"`
	Text      string    `json:"text,omitempty"`
	Debug     string    `json:"debug,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher publishes bus events to NATS under a subject prefix. A nil
// Publisher is valid and publishes nothing.
type Publisher struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
	metrics *metric.Metrics
}

// Connect establishes the NATS connection and returns a Publisher
// publishing under subject. metrics may be nil.
func Connect(url, subject string, logger *slog.Logger, metrics *metric.Metrics) (*Publisher, error) {
	if subject == "" {
		subject = "mce.events"
	}

	opts := []nats.Option{
		nats.Name("mce-telemetry"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("telemetry disconnected", "error", err)
			if metrics != nil {
				metrics.RecordNATSStatus(false)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("telemetry reconnected", "url", nc.ConnectedUrl())
			if metrics != nil {
				metrics.RecordNATSStatus(true)
				metrics.RecordNATSReconnect()
			}
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, errors.WrapTransient(err, "Publisher", "Connect",
			"connect to NATS at "+url)
	}
	if metrics != nil {
		metrics.RecordNATSStatus(true)
	}

	logger.Info("telemetry connected", "url", url, "subject", subject)
	return &Publisher{
		conn:    conn,
		subject: subject,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Publish sends one bus message. Failures are logged and dropped.
func (p *Publisher) Publish(msg media.Message) {
	if p == nil || p.conn == nil {
		return
	}

	event := Event{
		Kind:      msg.Kind.String(),
		Source:    msg.Source,
		Code:      msg.Code,
		Text:      msg.Text,
		Debug:     msg.Debug,
		Timestamp: time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to encode telemetry event", "error", err)
		return
	}

	subject := p.subject + "." + event.Kind
	if err := p.conn.Publish(subject, payload); err != nil {
		p.logger.Warn("failed to publish telemetry event",
			"subject", subject, "error", err)
		if p.metrics != nil {
			p.metrics.RecordError("telemetry", "publish")
		}
	}
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("telemetry drain failed", "error", err)
		p.conn.Close()
	}
}
