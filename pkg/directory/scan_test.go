package directory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhoneFromAddress(t *testing.T) {
	tests := []struct {
		name     string
		address  string
		expected string
	}{
		{"phone jid", "5511987654321@s.whatsapp.net", "5511987654321"},
		{"bare digits", "5511987654321", "5511987654321"},
		{"with plus", "+5511987654321", "5511987654321"},
		{"masked address", "123456789012@lid", ""},
		{"group address", "123456789012-987@g.us", ""},
		{"broadcast", "status@broadcast", ""},
		{"too short", "1234567@s.whatsapp.net", ""},
		{"too long", "1234567890123456@s.whatsapp.net", ""},
		{"non digits", "maria@s.whatsapp.net", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, PhoneFromAddress(tt.address))
		})
	}
}

func TestExtractPhone_FlatPayload(t *testing.T) {
	raw := map[string]interface{}{
		"pushName":  "Maria",
		"remoteJid": "5511987654321@s.whatsapp.net",
	}
	assert.Equal(t, "5511987654321", ExtractPhone(raw))
}

func TestExtractPhone_KeySuffixes(t *testing.T) {
	for _, key := range []string{"jid", "senderJid", "phone", "contactPhone", "number", "id"} {
		raw := map[string]interface{}{key: "5511987654321"}
		assert.Equal(t, "5511987654321", ExtractPhone(raw), "key %q should match", key)
	}

	assert.Equal(t, "", ExtractPhone(map[string]interface{}{"name": "5511987654321"}))
}

func TestExtractPhone_NestedPayload(t *testing.T) {
	raw := map[string]interface{}{
		"data": map[string]interface{}{
			"contact": map[string]interface{}{
				"remoteJid": "5511987654321@s.whatsapp.net",
			},
		},
	}
	assert.Equal(t, "5511987654321", ExtractPhone(raw))
}

func TestExtractPhone_ArrayPayload(t *testing.T) {
	raw := map[string]interface{}{
		"contacts": []interface{}{
			map[string]interface{}{"name": "no phone here"},
			map[string]interface{}{"number": "5511987654321"},
		},
	}
	assert.Equal(t, "5511987654321", ExtractPhone(raw))
}

func TestExtractPhone_Deterministic(t *testing.T) {
	// Two eligible keys at the same level: sorted key order decides.
	raw := map[string]interface{}{
		"bNumber": "5511900000002",
		"aNumber": "5511900000001",
	}
	for i := 0; i < 10; i++ {
		assert.Equal(t, "5511900000001", ExtractPhone(raw))
	}
}

func TestExtractPhone_DepthBounded(t *testing.T) {
	deep := map[string]interface{}{"number": "5511987654321"}
	for i := 0; i < 10; i++ {
		deep = map[string]interface{}{"nested": deep}
	}
	assert.Equal(t, "", ExtractPhone(deep))
}

func TestExtractPhone_SkipsMaskedValues(t *testing.T) {
	raw := map[string]interface{}{
		"id":        "123456789012@lid",
		"remoteJid": "5511987654321@s.whatsapp.net",
	}
	assert.Equal(t, "5511987654321", ExtractPhone(raw))
}

func TestExtractPhone_NilAndEmpty(t *testing.T) {
	assert.Equal(t, "", ExtractPhone(nil))
	assert.Equal(t, "", ExtractPhone(map[string]interface{}{}))
}
