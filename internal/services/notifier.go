package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"cashbox-api/internal/models"
)

type NotifyKind string

const (
	NotifySuccess NotifyKind = "success"
	NotifyError   NotifyKind = "error"
	NotifyInfo    NotifyKind = "info"
)

// Notifier is a fire-and-forget sink for user-facing notices.
type Notifier interface {
	Notify(ctx context.Context, kind NotifyKind, message string)
}

// LogNotifier writes notices to the application log.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, kind NotifyKind, msg string) {
	switch kind {
	case NotifyError:
		n.log.Warn("notice", zap.String("kind", string(kind)), zap.String("message", msg))
	default:
		n.log.Info("notice", zap.String("kind", string(kind)), zap.String("message", msg))
	}
}

// Notice is the payload published on the Redis channel.
type Notice struct {
	Kind    NotifyKind `json:"kind"`
	Message string     `json:"message"`
	At      time.Time  `json:"at"`
}

// RedisNotifier publishes notices as JSON on a pub/sub channel.
type RedisNotifier struct {
	client  redis.UniversalClient
	channel string
	log     *zap.Logger
	now     func() time.Time
}

func NewRedisNotifier(client redis.UniversalClient, channel string, log *zap.Logger) *RedisNotifier {
	return &RedisNotifier{client: client, channel: channel, log: log, now: time.Now}
}

func (n *RedisNotifier) Notify(ctx context.Context, kind NotifyKind, msg string) {
	payload, err := json.Marshal(Notice{Kind: kind, Message: msg, At: n.now().UTC()})
	if err != nil {
		n.log.Warn("encode notice", zap.String("kind", string(kind)), zap.Error(err))
		return
	}
	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		n.log.Warn("publish notice", zap.String("channel", n.channel), zap.Error(err))
	}
}

// MultiNotifier fans a notice out to every sink.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, kind NotifyKind, msg string) {
	for _, n := range m {
		n.Notify(ctx, kind, msg)
	}
}

// AmountFormatter renders money for notices in the configured locale.
type AmountFormatter struct {
	printer *message.Printer
	symbol  string
}

func NewAmountFormatter(locale, symbol string) *AmountFormatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Spanish
	}
	return &AmountFormatter{printer: message.NewPrinter(tag), symbol: symbol}
}

func (f *AmountFormatter) Format(m models.Money) string {
	v := m.Decimal().InexactFloat64()
	return f.symbol + " " + f.printer.Sprint(number.Decimal(v, number.Scale(2)))
}
