package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"whatsapp-ai-agent/internal/domain"
	"whatsapp-ai-agent/internal/domain/model"
	"whatsapp-ai-agent/internal/domain/ports/repository"
	"whatsapp-ai-agent/internal/infra/logging"
)

const previewLength = 120

// Cipher encrypts message bodies at rest.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// ExchangeResult is what one StoreMessageExchange call left in the store.
type ExchangeResult struct {
	Conversation *model.Conversation
	Incoming     *model.StoredMessage
	Outgoing     *model.StoredMessage // nil without AI reply
	Created      bool                 // false when the inbound message was already stored
}

type MessageStore struct {
	tm     repository.TransactionManager
	convs  repository.ConversationRepository
	cipher Cipher
	log    *zerolog.Logger
}

// NewMessageStore builds the store; cipher may be nil to keep bodies in clear text.
func NewMessageStore(tm repository.TransactionManager, convs repository.ConversationRepository, cipher Cipher, logger *zerolog.Logger) *MessageStore {
	l := logger.With().Str("component", "MessageStore").Logger()
	return &MessageStore{tm: tm, convs: convs, cipher: cipher, log: &l}
}

// StoreMessageExchange upserts the conversation and stores the inbound message and the optional
// AI reply in one transaction. Both inserts are idempotent on the provider message id.
func (s *MessageStore) StoreMessageExchange(ctx context.Context, account *model.AccountMetadata, in model.MessageRequest, resp *model.AIResponse) (*ExchangeResult, error) {
	if account == nil {
		return nil, fmt.Errorf("store exchange: %w: nil account", domain.ErrInvalidArgument)
	}
	if in.ID == "" {
		return nil, fmt.Errorf("store exchange: %w: empty message id", domain.ErrInvalidArgument)
	}
	contact := resolveContact(in.From)
	res := &ExchangeResult{}

	err := s.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		conv, err := s.convs.Upsert(ctx, tx, model.NewConversation(
			account.AccountID, contact.ID, in.DisplayName(), contact.Phone, contact.IsGroup || in.IsGroup,
		))
		if err != nil {
			return fmt.Errorf("upsert conversation: %w", err)
		}
		res.Conversation = conv

		now := time.Now()
		incoming, created, err := s.insertOnce(ctx, tx, &model.StoredMessage{
			ID:                uuid.NewString(),
			ConversationID:    conv.ID,
			ProviderMessageID: in.ID,
			Direction:         model.DirectionInbound,
			Type:              messageType(in.Type),
			Content:           in.Body,
			SentAt:            in.SentAt(),
			CreatedAt:         now,
		})
		if err != nil {
			return fmt.Errorf("store inbound: %w", err)
		}
		res.Incoming, res.Created = incoming, created

		lastAt, lastBody, answered := incoming.SentAt, in.Body, false

		if resp != nil {
			replyTo := incoming.ID
			outgoing, outCreated, err := s.insertOnce(ctx, tx, &model.StoredMessage{
				ID:                uuid.NewString(),
				ConversationID:    conv.ID,
				ProviderMessageID: model.OutboundProviderID(in.ID),
				Direction:         model.DirectionOutbound,
				Type:              "text",
				Content:           resp.Content,
				IsAIGenerated:     true,
				ReplyToMessageID:  &replyTo,
				AIModel:           resp.Model,
				TokensUsed:        resp.TokensUsed,
				SentAt:            now,
				CreatedAt:         now,
			})
			if err != nil {
				return fmt.Errorf("store outbound: %w", err)
			}
			res.Outgoing = outgoing
			if outCreated {
				lastAt, lastBody, created, answered = now, resp.Content, true, true
			}
		}

		if !created {
			return nil
		}
		preview := model.Preview(lastBody, previewLength)
		if s.cipher != nil {
			preview = ""
		}
		return s.convs.TouchLastMessage(ctx, tx, conv.ID, lastAt, preview, answered)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// insertOnce encrypts and inserts m, or loads the row already stored under its provider id.
func (s *MessageStore) insertOnce(ctx context.Context, tx repository.Tx, m *model.StoredMessage) (*model.StoredMessage, bool, error) {
	plain := m.Content
	if s.cipher != nil && plain != "" {
		enc, err := s.cipher.Encrypt(plain)
		if err != nil {
			return nil, false, fmt.Errorf("encrypt body: %w", err)
		}
		m.Content, m.Encrypted = enc, true
	}
	created, err := s.convs.InsertMessage(ctx, tx, m)
	if err != nil {
		return nil, false, err
	}
	if created {
		m.Content = plain
		return m, true, nil
	}
	existing, err := s.convs.FindMessageByProviderID(ctx, tx, m.ConversationID, m.ProviderMessageID)
	if err != nil {
		return nil, false, err
	}
	logging.With(ctx, s.log).Debug().Str("provider_message_id", m.ProviderMessageID).Msg("message already stored")
	return existing, false, nil
}

// History returns the recent turns with a contact, oldest first. A contact without
// a conversation has no history.
func (s *MessageStore) History(ctx context.Context, accountID int64, contactID string, limit int) ([]model.HistoryEntry, *model.Conversation, error) {
	conv, err := s.convs.FindByContact(ctx, repository.NoTX, accountID, contactID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	msgs, err := s.convs.ListRecentMessages(ctx, repository.NoTX, conv.ID, limit)
	if err != nil {
		return nil, conv, err
	}
	out := make([]model.HistoryEntry, 0, len(msgs))
	for _, m := range msgs {
		body := m.Content
		if m.Encrypted {
			if s.cipher == nil {
				continue
			}
			if body, err = s.cipher.Decrypt(body); err != nil {
				logging.With(ctx, s.log).Warn().Err(err).Str("message_id", m.ID).Msg("cannot decrypt stored message, skipped")
				continue
			}
		}
		role := model.RoleUser
		if m.Direction == model.DirectionOutbound {
			role = model.RoleAssistant
		}
		out = append(out, model.HistoryEntry{Role: role, Content: body})
	}
	return out, conv, nil
}

func messageType(t string) string {
	if t == "" {
		return "text"
	}
	return t
}
