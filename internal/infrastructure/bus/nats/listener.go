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

// CreateHandler persists one inspection draft and returns the reference of
// the created record.
type CreateHandler func(ctx context.Context, draft domain.InspectionDraft) (domain.RecordRef, error)

// Listen consumes record-creation requests from the channel's subject as
// part of the "recorders" queue group and answers each with a correlated
// reply. It blocks until ctx is cancelled, then drains the subscription.
func (c *Channel) Listen(ctx context.Context, handler CreateHandler) error {
	sub, err := c.conn.QueueSubscribe(c.subject, "recorders", func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		c.handleCreate(ctx, msg, handler)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := c.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := c.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func (c *Channel) handleCreate(ctx context.Context, msg *nats.Msg, handler CreateHandler) {
	if msg.Reply == "" {
		slog.Warn("create request without reply inbox dropped")
		return
	}

	var req CreateRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		c.reply(msg.Reply, CreateReply{
			Type: msgTypeError, Error: "undecodable request", Code: replyCodeRejected,
		})
		return
	}
	if req.Type != msgTypeCreate {
		c.reply(msg.Reply, CreateReply{
			Type: msgTypeError, RequestID: req.RequestID,
			Error: fmt.Sprintf("unexpected message type %q", req.Type),
			Code:  replyCodeRejected,
		})
		return
	}

	handlerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ref, err := handler(handlerCtx, req.Payload)
	if err != nil {
		code := replyCodeFailed
		if domain.IsKind(err, domain.ErrInvalidInput) {
			code = replyCodeRejected
		}
		slog.Error("record creation handler failed",
			"request_id", req.RequestID, "code", code, "error", err)
		c.reply(msg.Reply, CreateReply{
			Type: msgTypeError, RequestID: req.RequestID, Error: err.Error(), Code: code,
		})
		return
	}

	c.reply(msg.Reply, CreateReply{
		Type:      msgTypeCreated,
		RequestID: req.RequestID,
		RecordID:  ref.RecordID,
		CreatedAt: ref.CreatedAt,
	})
}

func (c *Channel) reply(inbox string, reply CreateReply) {
	data, err := json.Marshal(reply)
	if err != nil {
		slog.Error("marshal record reply", "error", err)
		return
	}
	if err := c.conn.Publish(inbox, data); err != nil {
		slog.Error("publish record reply", "error", err)
	}
}
