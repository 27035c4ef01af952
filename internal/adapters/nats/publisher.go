package natsadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/questgeo/internal/core/domain"
)

// VerificationSubjectPrefix is the subject root verdicts are published under.
const VerificationSubjectPrefix = "quest.verification."

// ErrNoTarget is returned for verdicts that carry no target ID. Only
// verdicts against stored targets are published.
var ErrNoTarget = errors.New("verdict has no target id")

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := &nats.StreamConfig{
		Name:      "QUEST_VERIFICATIONS",
		Subjects:  []string{VerificationSubjectPrefix + ">"},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(cfg); err != nil {
		// Stream may already exist, try update
		if _, err := js.UpdateStream(cfg); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// VerificationSubject returns the subject a verdict for targetID is published on.
func VerificationSubject(targetID string) string {
	return VerificationSubjectPrefix + targetID
}

// TargetFromSubject is the inverse of VerificationSubject. It returns ""
// for subjects outside the verification root.
func TargetFromSubject(subject string) string {
	target, ok := strings.CutPrefix(subject, VerificationSubjectPrefix)
	if !ok {
		return ""
	}
	return target
}

// PublishVerification publishes a verdict to JetStream.
func (p *Publisher) PublishVerification(ctx context.Context, v *domain.Verdict) error {
	if v.TargetID == "" {
		return ErrNoTarget
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(VerificationSubject(v.TargetID), data, nats.Context(ctx))
	return err
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("questgeo"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
