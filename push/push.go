// Package push delivers web-push notifications to subscribed browsers.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"edunet/database"
	"edunet/logger"

	"github.com/SherClockHolmes/webpush-go"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const maxBody = 100

type Message struct {
	Title string
	Body  string
	URL   string
}

// Sender delivers a message to a user's browsers without blocking the caller.
type Sender interface {
	Send(userID primitive.ObjectID, msg Message)
	PublicKey() string
}

// Nop drops every message.
type Nop struct{}

func (Nop) Send(primitive.ObjectID, Message) {}
func (Nop) PublicKey() string                { return "" }

type WebPush struct {
	subs       database.SubscriptionRepository
	publicKey  string
	privateKey string
	subject    string
	timeout    time.Duration
}

// New returns a VAPID sender, or Nop when either key is missing.
func New(subs database.SubscriptionRepository, publicKey, privateKey, subject string) Sender {
	if publicKey == "" || privateKey == "" {
		return Nop{}
	}
	if subject == "" {
		subject = "mailto:admin@edunet.local"
	}
	return &WebPush{
		subs:       subs,
		publicKey:  publicKey,
		privateKey: privateKey,
		subject:    subject,
		timeout:    5 * time.Second,
	}
}

func (w *WebPush) PublicKey() string { return w.publicKey }

func (w *WebPush) Send(userID primitive.ObjectID, msg Message) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Log.Error("panic in push delivery", zap.Any("recover", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		defer cancel()
		if err := w.Deliver(ctx, userID, msg); err != nil {
			logger.Log.Warn("push delivery failed", zap.String("user", userID.Hex()), zap.Error(err))
		}
	}()
}

// Deliver sends synchronously. A user without a subscription is not an error.
// Subscriptions the push service reports as gone are deleted.
func (w *WebPush) Deliver(ctx context.Context, userID primitive.ObjectID, msg Message) error {
	sub, err := w.subs.ForUser(ctx, userID)
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load subscription: %w", err)
	}

	payload, err := json.Marshal(map[string]any{
		"title": msg.Title,
		"body":  truncate(msg.Body),
		"data": map[string]any{
			"url":       msg.URL,
			"timestamp": time.Now().Unix(),
		},
	})
	if err != nil {
		return err
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, &sub.Sub, &webpush.Options{
		Subscriber:      w.subject,
		VAPIDPublicKey:  w.publicKey,
		VAPIDPrivateKey: w.privateKey,
		TTL:             30,
	})
	if resp != nil {
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
			logger.Log.Info("push subscription expired", zap.String("user", userID.Hex()))
			if delErr := w.subs.DeleteForUser(ctx, userID); delErr != nil {
				return fmt.Errorf("delete expired subscription: %w", delErr)
			}
			return nil
		}
	}
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}
	return nil
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxBody {
		return s
	}
	return string(r[:maxBody]) + "..."
}
