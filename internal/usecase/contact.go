package usecase

import (
	"strings"

	"whatsapp-ai-agent/internal/infra/whatsapp"
)

type contactRef struct {
	ID      string
	Phone   string
	IsGroup bool
}

// resolveContact normalizes the bridge sender id. Unparseable ids are kept as-is
// so the message can still be grouped under one conversation.
func resolveContact(from string) contactRef {
	c, err := whatsapp.ParseContact(from)
	if err != nil {
		raw := strings.TrimSpace(from)
		return contactRef{ID: raw, Phone: raw}
	}
	return contactRef{ID: c.Identifier(), Phone: c.Phone, IsGroup: c.IsGroup}
}
