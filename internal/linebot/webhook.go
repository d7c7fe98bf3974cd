package linebot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/OldStager01/dcsim/internal/logger"
)

const DefaultDedupeSize = 1024

var (
	ErrNoSignature      = errors.New("missing line signature")
	ErrInvalidSignature = errors.New("invalid line signature")
	ErrMalformedPayload = errors.New("malformed webhook payload")
)

type webhookPayload struct {
	Destination string         `json:"destination"`
	Events      []webhookEvent `json:"events"`
}

type webhookEvent struct {
	Type           string `json:"type"`
	WebhookEventID string `json:"webhookEventId"`
	ReplyToken     string `json:"replyToken"`
	Source         struct {
		Type   string `json:"type"`
		UserID string `json:"userId"`
	} `json:"source"`
	Message *struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"message,omitempty"`
	DeliveryContext struct {
		IsRedelivery bool `json:"isRedelivery"`
	} `json:"deliveryContext"`
}

// Replier sends a reply to a webhook event.
type Replier interface {
	Reply(ctx context.Context, replyToken, text string) error
}

type WebhookResult struct {
	Received   int `json:"received"`
	Handled    int `json:"handled"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`
}

type BotConfig struct {
	ChannelSecret string
	DedupeSize    int

	// OnMessage is told the kind of every processed event and how it went.
	OnMessage func(kind, outcome string)
}

// Bot answers webhook deliveries from LINE.
type Bot struct {
	secret    string
	replier   Replier
	formatter *Formatter
	seen      *lru.Cache[string, bool]
	onMessage func(kind, outcome string)
}

func NewBot(cfg BotConfig, replier Replier, formatter *Formatter) *Bot {
	if cfg.DedupeSize <= 0 {
		cfg.DedupeSize = DefaultDedupeSize
	}
	// lru.New only fails on a non-positive size.
	seen, _ := lru.New[string, bool](cfg.DedupeSize)

	onMessage := cfg.OnMessage
	if onMessage == nil {
		onMessage = func(string, string) {}
	}

	return &Bot{
		secret:    cfg.ChannelSecret,
		replier:   replier,
		formatter: formatter,
		seen:      seen,
		onMessage: onMessage,
	}
}

// HandleWebhook verifies and processes one delivery. The HTTP layer answers
// 200 whatever this returns, since LINE redelivers on anything else.
func (b *Bot) HandleWebhook(ctx context.Context, body []byte, signature string) (WebhookResult, error) {
	var result WebhookResult

	if signature == "" {
		return result, ErrNoSignature
	}
	if b.secret == "" {
		return result, ErrNotConfigured
	}
	if len(body) == 0 {
		return result, nil
	}
	if !VerifySignature(body, signature, b.secret) {
		b.onMessage("webhook", "rejected")
		return result, ErrInvalidSignature
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return result, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	result.Received = len(payload.Events)
	for _, event := range payload.Events {
		if event.WebhookEventID != "" && b.seen.Contains(event.WebhookEventID) {
			result.Duplicates++
			b.onMessage(event.Type, "duplicate")
			continue
		}

		if err := b.handleEvent(ctx, event); err != nil {
			result.Failed++
			b.onMessage(event.Type, "failed")
			logger.WithField("user_id", event.Source.UserID).Warnf("Failed to handle LINE %s event: %v", event.Type, err)
			continue
		}
		// Only handled events count as seen, so a redelivery after a failed
		// reply gets another try.
		if event.WebhookEventID != "" {
			b.seen.Add(event.WebhookEventID, true)
		}
		result.Handled++
		b.onMessage(event.Type, "ok")
	}

	return result, nil
}

func (b *Bot) handleEvent(ctx context.Context, event webhookEvent) error {
	log := logger.WithField("user_id", event.Source.UserID)

	switch event.Type {
	case "message":
		if event.Message == nil || event.Message.Type != "text" {
			return nil
		}
		cmd := ParseCommand(event.Message.Text)
		log.WithField("command", cmd).Info("LINE message received")
		return b.replier.Reply(ctx, event.ReplyToken, b.formatter.Reply(cmd))

	case "follow":
		log.Info("LINE follower added")
		return b.replier.Reply(ctx, event.ReplyToken, Welcome())

	case "unfollow":
		log.Info("LINE follower removed")
		return nil

	default:
		log.Debugf("Ignoring LINE %s event", event.Type)
		return nil
	}
}
