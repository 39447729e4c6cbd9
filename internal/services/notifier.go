package services

import (
	"context"
	"errors"

	"github.com/itsdone-dev/itsdone/internal/mail"
	"github.com/itsdone-dev/itsdone/internal/realtime"
	"github.com/itsdone-dev/itsdone/internal/sms"
	"go.uber.org/zap"
)

const (
	ChannelEmail = "email"
	ChannelInApp = "in_app"
	ChannelSMS   = "sms"
)

var ErrChannelUnavailable = errors.New("notification channel is not configured")

// Notifier bundles the outbound channels. Any of them may be nil.
type Notifier struct {
	Mail     mail.Sender
	SMS      sms.Sender
	Realtime realtime.Publisher
	Log      *zap.Logger
}

func (n *Notifier) logger() *zap.Logger {
	if n != nil && n.Log != nil {
		return n.Log
	}
	return zap.L()
}

func (n *Notifier) Email(ctx context.Context, msg mail.Message) error {
	if n == nil || n.Mail == nil {
		return ErrChannelUnavailable
	}
	return n.Mail.Send(ctx, msg)
}

func (n *Notifier) Text(ctx context.Context, to, body string) error {
	if n == nil || n.SMS == nil {
		return ErrChannelUnavailable
	}
	return n.SMS.Send(ctx, to, body)
}

func (n *Notifier) Push(userID uint, event any) {
	if n == nil || n.Realtime == nil {
		return
	}
	n.Realtime.Publish(userID, event)
}
