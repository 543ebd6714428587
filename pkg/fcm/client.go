package fcm

import (
	"context"
	"errors"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/timebankhq/timebank-backend/pkg/config"
	"github.com/timebankhq/timebank-backend/pkg/logger"
)

var errCredentialsRequired = errors.New("fcm credentials are required")

// Sender delivers a push message to a single device token.
type Sender interface {
	SendPush(ctx context.Context, push Push) error
}

// Push is one notification destined for a registered device.
type Push struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

// Client wraps the Firebase messaging client.
type Client struct {
	messaging *messaging.Client
	logg      *logger.Logger
}

// NewClient initializes the Firebase app and its messaging client.
func NewClient(ctx context.Context, cfg config.FCMConfig, logg *logger.Logger) (*Client, error) {
	opts := make([]option.ClientOption, 0, 1)
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	default:
		return nil, errCredentialsRequired
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, err
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, err
	}
	return &Client{messaging: client, logg: logg}, nil
}

// SendPush delivers the push via FCM. Unregistered tokens are reported as
// ErrUnregisteredToken so callers can prune the registration.
func (c *Client) SendPush(ctx context.Context, push Push) error {
	msg := &messaging.Message{
		Token: push.Token,
		Notification: &messaging.Notification{
			Title: push.Title,
			Body:  push.Body,
		},
		Data: push.Data,
	}

	id, err := c.messaging.Send(ctx, msg)
	if err != nil {
		if messaging.IsUnregistered(err) {
			return ErrUnregisteredToken
		}
		return err
	}
	if c.logg != nil {
		c.logg.Info(c.logg.WithFields(ctx, map[string]any{"fcm_message_id": id}), "push delivered")
	}
	return nil
}

// ErrUnregisteredToken marks a device token FCM no longer recognizes.
var ErrUnregisteredToken = errors.New("device token is no longer registered")
