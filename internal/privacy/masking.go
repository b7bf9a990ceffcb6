package privacy

import (
	"strings"
)

// MaskPhoneNumber masks a phone number showing only the last 4 digits
// Example: "5511987654321" -> "*********4321"
func MaskPhoneNumber(phone string) string {
	if phone == "" {
		return ""
	}

	if strings.HasPrefix(phone, "+") {
		if len(phone) <= 5 {
			return "+" + strings.Repeat("*", len(phone)-1)
		}
		return "+" + strings.Repeat("*", len(phone)-5) + phone[len(phone)-4:]
	}

	if len(phone) <= 4 {
		return strings.Repeat("*", len(phone))
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}

// MaskJID masks a provider address while keeping its domain visible, so
// logs still show whether an address was phone-based, masked or a group.
// Example: "5511987654321@s.whatsapp.net" -> "*********4321@s.whatsapp.net"
func MaskJID(jid string) string {
	if jid == "" {
		return ""
	}

	at := strings.Index(jid, "@")
	if at < 0 {
		return MaskPhoneNumber(jid)
	}
	return MaskPhoneNumber(jid[:at]) + jid[at:]
}

// MaskMessageID masks a provider message id keeping the last 8 characters
// for log correlation.
func MaskMessageID(messageID string) string {
	return maskString(messageID, 8)
}

// maskString masks a string showing only the last n characters
func maskString(s string, keepLast int) string {
	if s == "" {
		return ""
	}
	if len(s) <= keepLast {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-keepLast) + s[len(s)-keepLast:]
}
