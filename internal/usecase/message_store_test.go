//go:build !integration

package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"whatsapp-ai-agent/internal/domain/model"
)

func TestStoreMessageExchange_IdempotentInbound(t *testing.T) {
	convs := newMemConvRepo()
	tm := &mockTxManager{}
	s := NewMessageStore(tm, convs, nil, nopLogger())
	acc := shopAccount()
	msg := incoming("WAMID.1", "Bonjour")
	resp := &model.AIResponse{Content: "Bonjour, bienvenue chez TechShop !", Model: "gpt-4o-mini", TokensUsed: 30}

	first, err := s.StoreMessageExchange(context.Background(), acc, msg, resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := s.StoreMessageExchange(context.Background(), acc, msg, resp)
	if err != nil {
		t.Fatalf("unexpected error on retry: %v", err)
	}

	if convs.count(model.DirectionInbound) != 1 || convs.count(model.DirectionOutbound) != 1 {
		t.Fatalf("expected exactly one inbound and one outbound row, got %d/%d",
			convs.count(model.DirectionInbound), convs.count(model.DirectionOutbound))
	}
	if !first.Created || second.Created {
		t.Errorf("created flags wrong: %v %v", first.Created, second.Created)
	}
	if first.Incoming.ID != second.Incoming.ID || first.Conversation.ID != second.Conversation.ID {
		t.Error("retry must resolve the rows stored first")
	}
	if tm.calls != 2 {
		t.Errorf("each exchange runs in its own transaction, got %d", tm.calls)
	}
	if convs.touches != 1 {
		t.Errorf("conversation must be touched once, got %d", convs.touches)
	}

	out := first.Outgoing
	if out == nil || !out.IsAIGenerated || out.ProviderMessageID != "ai:WAMID.1" || out.ReplyToMessageID == nil || *out.ReplyToMessageID != first.Incoming.ID {
		t.Fatalf("unexpected outgoing message %+v", out)
	}
	conv := first.Conversation
	if conv.ContactIdentifier != "237650000001@s.whatsapp.net" || conv.ContactPhone != "237650000001" || conv.ContactName != "Alice" {
		t.Errorf("unexpected conversation display fields %+v", conv)
	}
	if conv.LastMessagePreview != resp.Content || conv.UnreadCount != 0 {
		t.Errorf("answered conversation must preview the reply with nothing unread, got %+v", conv)
	}
}

func TestStoreMessageExchange_WithoutReply(t *testing.T) {
	convs := newMemConvRepo()
	s := NewMessageStore(&mockTxManager{}, convs, nil, nopLogger())

	res, err := s.StoreMessageExchange(context.Background(), shopAccount(), incoming("m1", "Allô ?"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outgoing != nil || convs.count(model.DirectionOutbound) != 0 {
		t.Fatal("no outbound message expected")
	}
	if res.Conversation.UnreadCount != 1 || res.Conversation.LastMessagePreview != "Allô ?" {
		t.Errorf("unanswered message must count as unread, got %+v", res.Conversation)
	}
}

func TestStoreMessageExchange_LateReplyClearsUnread(t *testing.T) {
	convs := newMemConvRepo()
	s := NewMessageStore(&mockTxManager{}, convs, nil, nopLogger())
	acc := shopAccount()
	ctx := context.Background()

	if _, err := s.StoreMessageExchange(ctx, acc, incoming("m1", "Allô ?"), nil); err != nil {
		t.Fatal(err)
	}
	if _, err := s.StoreMessageExchange(ctx, acc, incoming("m2", "Vous êtes là ?"), nil); err != nil {
		t.Fatal(err)
	}
	res, err := s.StoreMessageExchange(ctx, acc, incoming("m2", "Vous êtes là ?"), &model.AIResponse{Content: "Oui, je vous écoute."})
	if err != nil {
		t.Fatal(err)
	}
	if res.Created || res.Outgoing == nil {
		t.Fatalf("reply to an already stored message must be written, got %+v", res)
	}
	if res.Conversation.UnreadCount != 0 || res.Conversation.LastMessagePreview != "Oui, je vous écoute." {
		t.Errorf("answered conversation must have nothing unread, got %+v", res.Conversation)
	}
}

func TestStoreMessageExchange_FailureAndValidation(t *testing.T) {
	convs := newMemConvRepo()
	convs.insertErr = errors.New("disk full")
	s := NewMessageStore(&mockTxManager{}, convs, nil, nopLogger())

	if _, err := s.StoreMessageExchange(context.Background(), shopAccount(), incoming("m1", "x"), nil); err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("insert error must surface, got %v", err)
	}
	if _, err := s.StoreMessageExchange(context.Background(), nil, incoming("m1", "x"), nil); err == nil {
		t.Error("nil account must be rejected")
	}
	if _, err := s.StoreMessageExchange(context.Background(), shopAccount(), incoming("", "x"), nil); err == nil {
		t.Error("empty message id must be rejected")
	}
}

func TestMessageStore_EncryptedHistory(t *testing.T) {
	convs := newMemConvRepo()
	s := NewMessageStore(&mockTxManager{}, convs, reverseCipher{}, nopLogger())
	acc := shopAccount()
	ctx := context.Background()

	res, err := s.StoreMessageExchange(ctx, acc, incoming("m1", "Le Pixel est dispo ?"), &model.AIResponse{Content: "Oui, à 100 000 FCFA."})
	if err != nil {
		t.Fatal(err)
	}
	stored, _ := convs.FindMessageByProviderID(ctx, nil, res.Conversation.ID, "m1")
	if !stored.Encrypted || strings.Contains(stored.Content, "Pixel") {
		t.Fatalf("body must be encrypted at rest, got %+v", stored)
	}
	if res.Conversation.LastMessagePreview != "" {
		t.Error("preview must not leak encrypted bodies")
	}

	hist, conv, err := s.History(ctx, acc.AccountID, "237650000001@s.whatsapp.net", 10)
	if err != nil || conv == nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hist) != 2 || hist[0].Role != model.RoleUser || hist[0].Content != "Le Pixel est dispo ?" || hist[1].Role != model.RoleAssistant {
		t.Fatalf("unexpected history %+v", hist)
	}

	none, conv, err := s.History(ctx, acc.AccountID, "unknown@s.whatsapp.net", 10)
	if err != nil || conv != nil || len(none) != 0 {
		t.Fatalf("unknown contact has no history, got %v %v %v", none, conv, err)
	}
}
