package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenpoints/greenledger/errors"
)

func requireInvalidRequest(t *testing.T, err error) *errors.LedgerError {
	t.Helper()
	require.Error(t, err)
	le := errors.FromError(err)
	assert.Equal(t, errors.ErrCodeInvalidRequest, le.Code)
	return le
}

func TestValidateShortTextLength(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"valid", "hello", false},
		{"empty string", "", false},
		{"json string", `{"key": "value"}`, false},
		{"exact max", strings.Repeat("a", MaxShortTextLength), false},
		{"multibyte at max", strings.Repeat("é", MaxShortTextLength), false},
		{"too long", strings.Repeat("a", MaxShortTextLength+1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateShortTextLength("field", tt.value)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			le := requireInvalidRequest(t, err)
			assert.Contains(t, le.Message, "field")
		})
	}
}

func TestValidateLongTextLength(t *testing.T) {
	assert.NoError(t, ValidateLongTextLength("metadata", "campaign spring-2024"))
	assert.NoError(t, ValidateLongTextLength("metadata", strings.Repeat("x", MaxLongTextLength)))

	requireInvalidRequest(t, ValidateLongTextLength("metadata", strings.Repeat("x", MaxLongTextLength+1)))
	for _, payload := range []string{"{{7*7}}", "${jndi:ldap://x}", "a%0Ab", "EVAL(1)"} {
		le := requireInvalidRequest(t, ValidateLongTextLength("metadata", payload))
		assert.Contains(t, le.Message, "metadata", payload)
	}
}

func TestValidateTransactionFields(t *testing.T) {
	assert.NoError(t, ValidateTransactionFields("alice", "bob", "transfer", map[string]string{"qr": "stall-7"}))

	requireInvalidRequest(t, ValidateTransactionFields(strings.Repeat("a", 200), "bob", "transfer", nil))
	requireInvalidRequest(t, ValidateTransactionFields("alice", "bob", "transfer", map[string]string{"note": "{{x}}"}))
	requireInvalidRequest(t, ValidateTransactionFields("alice", "bob", "transfer", map[string]string{strings.Repeat("k", 200): "v"}))
}

func TestValidateUsername(t *testing.T) {
	assert.NoError(t, ValidateUsername("erin"))
	requireInvalidRequest(t, ValidateUsername("${x}"))
	requireInvalidRequest(t, ValidateUsername(strings.Repeat("u", MaxShortTextLength+1)))
}

func TestValidateRecord(t *testing.T) {
	ok := map[string]interface{}{
		"event": "scan",
		"note":  "${not a template, stored verbatim}",
		"tags":  []interface{}{"a", map[string]interface{}{"b": 1}},
	}
	assert.NoError(t, ValidateRecord(ok))

	requireInvalidRequest(t, ValidateRecord(map[string]interface{}{"big": strings.Repeat("x", MaxLongTextLength+1)}))
	requireInvalidRequest(t, ValidateRecord(map[string]interface{}{strings.Repeat("k", 200): 1}))

	deep := map[string]interface{}{}
	cur := deep
	for i := 0; i < MaxRecordDepth+2; i++ {
		next := map[string]interface{}{}
		cur["n"] = next
		cur = next
	}
	requireInvalidRequest(t, ValidateRecord(deep))
}
