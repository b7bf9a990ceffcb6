package directory

import (
	"sort"
	"strings"

	"clinicdesk/internal/constants"
)

// ExtractPhone scans a loosely typed directory payload for a usable phone
// number. Directory responses drift across versions, so instead of pinning
// a schema we look for any key that smells like an address (suffixed jid,
// phone, number or id) and holds a plausible digit string. Keys are visited
// in sorted order so the result is deterministic, and recursion stops at a
// fixed depth to keep hostile payloads cheap.
func ExtractPhone(raw map[string]interface{}) string {
	return scanForPhone(raw, 0)
}

func scanForPhone(raw map[string]interface{}, depth int) string {
	if raw == nil || depth >= constants.ResolutionScanMaxDepth {
		return ""
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// Direct hits at this level first, then descend.
	for _, key := range keys {
		if !isAddressKey(key) {
			continue
		}
		if value, ok := raw[key].(string); ok {
			if phone := PhoneFromAddress(value); phone != "" {
				return phone
			}
		}
	}

	for _, key := range keys {
		switch child := raw[key].(type) {
		case map[string]interface{}:
			if phone := scanForPhone(child, depth+1); phone != "" {
				return phone
			}
		case []interface{}:
			for _, item := range child {
				if m, ok := item.(map[string]interface{}); ok {
					if phone := scanForPhone(m, depth+1); phone != "" {
						return phone
					}
				}
			}
		}
	}

	return ""
}

func isAddressKey(key string) bool {
	lower := strings.ToLower(key)
	return strings.HasSuffix(lower, "jid") ||
		strings.HasSuffix(lower, "phone") ||
		strings.HasSuffix(lower, "number") ||
		strings.HasSuffix(lower, "id")
}

// PhoneFromAddress extracts the phone number from a provider address like
// "5511999990000@s.whatsapp.net". Masked, group and broadcast addresses
// carry no phone and yield "".
func PhoneFromAddress(address string) string {
	if address == "" {
		return ""
	}
	if strings.HasSuffix(address, constants.MaskedAddressSuffix) ||
		strings.HasSuffix(address, constants.GroupAddressSuffix) ||
		strings.HasSuffix(address, constants.BroadcastAddressSuffix) {
		return ""
	}

	candidate := address
	if at := strings.IndexByte(candidate, '@'); at >= 0 {
		candidate = candidate[:at]
	}
	candidate = strings.TrimPrefix(candidate, "+")

	if len(candidate) < constants.PhoneMinDigits || len(candidate) > constants.PhoneMaxDigits {
		return ""
	}
	for _, r := range candidate {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return candidate
}
