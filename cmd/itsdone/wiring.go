package main

import (
	"context"
	"net"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/itsdone-dev/itsdone/internal/config"
	"github.com/itsdone-dev/itsdone/internal/mail"
	"github.com/itsdone-dev/itsdone/internal/probes"
	"github.com/itsdone-dev/itsdone/internal/sms"
	"github.com/itsdone-dev/itsdone/internal/storage"
)

// mailSender picks the queue when RabbitMQ is configured, then SMTP, then logging.
func mailSender(cfg config.Config, log *zap.Logger) (mail.Sender, func(), error) {
	if cfg.AMQPURL != "" {
		queue, err := mail.DialQueue(cfg.AMQPURL, cfg.MailQueue)
		if err != nil {
			return nil, nil, err
		}
		log.Info("emails are queued", zap.String("queue", cfg.MailQueue))
		return queue, func() { queue.Close() }, nil
	}

	if cfg.SMTP.Enabled() {
		log.Info("emails are sent over SMTP", zap.String("host", cfg.SMTP.Host))
		return mail.NewSMTPSender(cfg.SMTP), func() {}, nil
	}

	log.Warn("SMTP not configured, emails will only be logged")
	return mail.LogSender{Log: log}, func() {}, nil
}

func smsSender(cfg config.Config, log *zap.Logger) sms.Sender {
	if !cfg.Twilio.Enabled() {
		log.Info("twilio not configured, SMS notifications disabled")
		return nil
	}
	return sms.NewTwilioSender(cfg.Twilio)
}

// uploadStore writes to S3 when configured and keeps the local directory as fallback.
func uploadStore(ctx context.Context, cfg config.Config, log *zap.Logger) storage.Store {
	local := &storage.LocalStore{
		Dir:     cfg.UploadDir,
		BaseURL: strings.TrimSuffix(cfg.PublicURL, "/") + "/uploads",
	}

	if !cfg.S3.Enabled() {
		return local
	}

	s3Store, err := storage.NewS3Store(ctx, cfg.S3)
	if err != nil {
		log.Warn("S3 unavailable, using local uploads", zap.Error(err))
		return local
	}

	return &storage.FallbackStore{Primary: s3Store, Secondary: local, Log: log}
}

// dependencyProbes lists the optional services the health check reports on.
func dependencyProbes(cfg config.Config, redisClient *redis.Client) []probes.Probe {
	var list []probes.Probe

	if redisClient != nil {
		list = append(list, probes.Redis(redisClient))
	}
	if cfg.SMTP.Enabled() {
		list = append(list, probes.TCP("smtp", net.JoinHostPort(cfg.SMTP.Host, strconv.Itoa(cfg.SMTP.Port))))
	}

	return list
}
