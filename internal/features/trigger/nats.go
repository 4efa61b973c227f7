package trigger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go-automation/internal/config"
	"go-automation/internal/features/stream"
	"go-automation/internal/metrics"

	"github.com/nats-io/nats.go"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	transport      = "nats"
	handleTimeout  = 30 * time.Second
	connectTimeout = 5 * time.Second
)

// Connection holds the shared NATS connection. Conn is nil when NATS_URL
// is not configured.
type Connection struct {
	Conn *nats.Conn
}

func NewConnection(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (*Connection, error) {
	if cfg.NATSURL == "" {
		logger.Info("NATS disabled, NATS_URL not set")
		return &Connection{}, nil
	}
	nc, err := nats.Connect(cfg.NATSURL,
		nats.Name("go-automation"),
		nats.Timeout(connectTimeout),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := nc.Drain(); err != nil {
				nc.Close()
				return err
			}
			return nil
		},
	})
	return &Connection{Conn: nc}, nil
}

// Subscriber consumes triggers from a queue group so each message is
// handled by one engine instance.
type Subscriber struct {
	conn    *Connection
	router  *Router
	subject string
	group   string
	logger  *zap.Logger
	sub     *nats.Subscription
}

func NewSubscriber(conn *Connection, cfg *config.Config, router *Router, logger *zap.Logger) *Subscriber {
	return &Subscriber{
		conn:    conn,
		router:  router,
		subject: cfg.NATSTriggerSubject,
		group:   cfg.NATSQueueGroup,
		logger:  logger,
	}
}

func (s *Subscriber) Start() error {
	if s.conn.Conn == nil {
		return nil
	}
	sub, err := s.conn.Conn.QueueSubscribe(s.subject, s.group, func(m *nats.Msg) {
		s.Handle(m.Subject, m.Data)
	})
	if err != nil {
		return fmt.Errorf("queue subscribe %q/%q: %w", s.subject, s.group, err)
	}
	s.sub = sub
	s.logger.Info("Subscribed to triggers", zap.String("subject", s.subject), zap.String("group", s.group))
	return nil
}

func (s *Subscriber) Stop() error {
	if s.sub == nil {
		return nil
	}
	return s.sub.Unsubscribe()
}

// Handle decodes and routes one message. Bad messages are logged and
// dropped.
func (s *Subscriber) Handle(subject string, data []byte) {
	msg, err := Decode(data)
	if err != nil {
		metrics.TriggersReceivedTotal.WithLabelValues(transport, "invalid").Inc()
		s.logger.Warn("Dropping trigger message", zap.String("subject", subject), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	if err := s.router.Route(ctx, msg); err != nil {
		metrics.TriggersReceivedTotal.WithLabelValues(transport, "failed").Inc()
		s.logger.Warn("Trigger message failed",
			zap.String("recipient_id", msg.RecipientID),
			zap.String("trigger", msg.Trigger),
			zap.String("kind", string(msg.Kind)),
			zap.Error(err),
		)
		return
	}
	metrics.TriggersReceivedTotal.WithLabelValues(transport, "handled").Inc()
}

// Publisher forwards delivery events to NATS_EFFECT_SUBJECT.
type Publisher struct {
	publish func(subject string, data []byte) error
	subject string
	logger  *zap.Logger
}

func NewPublisher(conn *Connection, cfg *config.Config, logger *zap.Logger) *Publisher {
	p := &Publisher{subject: cfg.NATSEffectSubject, logger: logger}
	if conn.Conn != nil {
		p.publish = conn.Conn.Publish
	}
	return p
}

func (p *Publisher) Publish(_ context.Context, ev stream.Event) {
	if p.publish == nil || p.subject == "" || ev.Type != stream.EventDelivery {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		p.logger.Warn("Failed to encode delivery event", zap.Error(err))
		return
	}
	if err := p.publish(p.subject, data); err != nil {
		p.logger.Warn("Failed to publish delivery event", zap.String("subject", p.subject), zap.Error(err))
	}
}
