package whatsapp

import (
	"fmt"
	"strings"

	"go.mau.fi/whatsmeow/types"

	"whatsapp-ai-agent/internal/domain"
)

// Contact is a normalized WhatsApp sender.
type Contact struct {
	JID     types.JID
	Phone   string
	IsGroup bool
}

// Identifier is the stable conversation key for the contact.
func (c Contact) Identifier() string { return c.JID.String() }

// ParseContact accepts bridge sender ids such as "2376...@c.us", "2376...@s.whatsapp.net",
// "1203...@g.us" or a bare phone number, and maps them onto whatsmeow JIDs.
func ParseContact(from string) (Contact, error) {
	from = strings.TrimSpace(from)
	if from == "" {
		return Contact{}, domain.ErrInvalidContactJID
	}
	if !strings.Contains(from, "@") {
		phone := digitsOnly(from)
		if phone == "" {
			return Contact{}, fmt.Errorf("%w: %q", domain.ErrInvalidContactJID, from)
		}
		return Contact{JID: types.NewJID(phone, types.DefaultUserServer), Phone: phone}, nil
	}

	jid, err := types.ParseJID(from)
	if err != nil {
		return Contact{}, fmt.Errorf("%w: %v", domain.ErrInvalidContactJID, err)
	}
	if jid.User == "" {
		return Contact{}, fmt.Errorf("%w: %q", domain.ErrInvalidContactJID, from)
	}
	jid = jid.ToNonAD()
	switch jid.Server {
	case types.LegacyUserServer:
		jid.Server = types.DefaultUserServer
	case types.GroupServer:
		return Contact{JID: jid, IsGroup: true}, nil
	}
	return Contact{JID: jid, Phone: jid.User}, nil
}

// IsGroupSender reports whether the sender id points at a group chat.
func IsGroupSender(from string) bool {
	c, err := ParseContact(from)
	return err == nil && c.IsGroup
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' || r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return ""
		}
	}
	return b.String()
}
