package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MessageGuard claims inbound message ids so a redelivered webhook is not answered twice.
// A claim is kept for the dedup window after success; Release drops it so a
// failed attempt can be retried by the bridge.
type MessageGuard struct {
	client RedisClient
	window time.Duration
}

func NewMessageGuard(client RedisClient, window time.Duration) *MessageGuard {
	if window <= 0 {
		window = 10 * time.Minute
	}
	return &MessageGuard{client: client, window: window}
}

// Claim returns a token when the message was not seen in the window, "" when it is a duplicate.
func (g *MessageGuard) Claim(ctx context.Context, accountID int64, messageID string) (string, error) {
	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, MessageKey(accountID, messageID), token, g.window)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

func (g *MessageGuard) Release(ctx context.Context, accountID int64, messageID, token string) error {
	if token == "" {
		return nil
	}
	return g.client.DelIfEquals(ctx, MessageKey(accountID, messageID), token)
}

func MessageKey(accountID int64, messageID string) string {
	return fmt.Sprintf("wa_msg:%d:%s", accountID, messageID)
}
