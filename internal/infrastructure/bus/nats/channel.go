// Package nats carries the record-creation handshake over a NATS bus as a
// correlated request/reply exchange.
package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/hwelland/qcflow/internal/core/domain"
)

// DefaultRequestTimeout bounds the wait for a creation acknowledgement.
const DefaultRequestTimeout = 5 * time.Second

// CreateRequest is the wire envelope for one record-creation request.
type CreateRequest struct {
	Type      string                 `json:"type"`
	RequestID string                 `json:"request_id"`
	Payload   domain.InspectionDraft `json:"payload"`
}

// CreateReply is the correlated acknowledgement from the record store.
// Error replies carry a code so the requester can tell a rejected draft
// from a store that failed on a valid one.
type CreateReply struct {
	Type      string    `json:"type"`
	RequestID string    `json:"request_id"`
	RecordID  string    `json:"record_id,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	Error     string    `json:"error,omitempty"`
	Code      string    `json:"code,omitempty"`
}

const (
	msgTypeCreate  = "create"
	msgTypeCreated = "created"
	msgTypeError   = "error"

	replyCodeRejected = "rejected"
	replyCodeFailed   = "failed"
)

// Channel is the requester side of the handshake. One channel is shared
// process-wide; correlation ids keep concurrent handshakes from
// cross-delivering.
type Channel struct {
	conn    *nats.Conn
	subject string
	timeout time.Duration
}

type Options struct {
	ConnectTimeout time.Duration
	ReconnectWait  time.Duration
	MaxReconnects  int
	RequestTimeout time.Duration
}

func Connect(url, subject string, options Options) (*Channel, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	requestTimeout := options.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}

	conn, err := nats.Connect(
		url,
		nats.Name("qcflow"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Channel{conn: conn, subject: subject, timeout: requestTimeout}, nil
}

func (c *Channel) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}

// CreateRecord publishes the creation request and waits, up to the
// configured timeout, for the acknowledgement carrying the same request
// id. Replies with a foreign id are dropped and the wait continues. No
// retry happens on timeout; the caller decides whether to resubmit.
func (c *Channel) CreateRecord(ctx context.Context, requestID string, draft domain.InspectionDraft) (domain.RecordRef, error) {
	data, err := json.Marshal(CreateRequest{
		Type:      msgTypeCreate,
		RequestID: requestID,
		Payload:   draft,
	})
	if err != nil {
		return domain.RecordRef{}, fmt.Errorf("marshal create request: %w", err)
	}

	inbox := nats.NewInbox()
	sub, err := c.conn.SubscribeSync(inbox)
	if err != nil {
		return domain.RecordRef{}, domain.WrapError(domain.ErrChannelUnavailable, "subscribe reply inbox", err)
	}
	defer func() {
		_ = sub.Unsubscribe()
	}()

	if err := c.conn.PublishRequest(c.subject, inbox, data); err != nil {
		return domain.RecordRef{}, classifyPublishError(err)
	}

	return awaitReply(ctx, sub, requestID, c.timeout)
}

// replyReceiver is the slice of a NATS subscription the reply wait needs.
type replyReceiver interface {
	NextMsgWithContext(ctx context.Context) (*nats.Msg, error)
}

// awaitReply consumes inbox messages until one carries requestID or the
// timeout elapses. Undecodable replies, replies correlated to another
// request and unknown reply types are dropped without ending the wait.
func awaitReply(ctx context.Context, sub replyReceiver, requestID string, timeout time.Duration) (domain.RecordRef, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		msg, err := sub.NextMsgWithContext(waitCtx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return domain.RecordRef{}, domain.WrapError(domain.ErrHandshakeTimeout,
					"await record ack", fmt.Errorf("no acknowledgement within %s", timeout))
			}
			if errors.Is(err, context.Canceled) {
				return domain.RecordRef{}, err
			}
			return domain.RecordRef{}, domain.WrapError(domain.ErrChannelUnavailable, "await record ack", err)
		}

		var reply CreateReply
		if err := json.Unmarshal(msg.Data, &reply); err != nil {
			slog.Warn("undecodable record reply dropped", "request_id", requestID, "error", err)
			continue
		}
		if reply.RequestID != requestID {
			slog.Warn("mismatched record reply dropped",
				"want_request_id", requestID, "got_request_id", reply.RequestID)
			continue
		}

		switch reply.Type {
		case msgTypeCreated:
			return domain.RecordRef{RecordID: reply.RecordID, CreatedAt: reply.CreatedAt}, nil
		case msgTypeError:
			if reply.Code == replyCodeRejected {
				return domain.RecordRef{}, domain.WrapError(domain.ErrInvalidInput,
					"record store rejected request", errors.New(reply.Error))
			}
			return domain.RecordRef{}, domain.WrapError(domain.ErrRecordStore,
				"record store failed", errors.New(reply.Error))
		default:
			slog.Warn("unexpected record reply type dropped", "type", reply.Type)
		}
	}
}

func classifyPublishError(err error) error {
	if errors.Is(err, nats.ErrConnectionClosed) ||
		errors.Is(err, nats.ErrNoServers) ||
		errors.Is(err, nats.ErrDisconnected) ||
		errors.Is(err, nats.ErrInvalidConnection) {
		return domain.WrapError(domain.ErrChannelUnavailable, "publish create request", err)
	}
	return fmt.Errorf("publish create request: %w", err)
}
