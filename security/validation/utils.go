package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/greenpoints/greenledger/errors"
)

var InjectionRegexp = BuildInjectionPatterns()

// BuildInjectionPatterns builds regexp for injection detection (case-insensitive)
func BuildInjectionPatterns() *regexp.Regexp {
	parts := make([]string, 0, len(InjectionPatterns))
	for _, pattern := range InjectionPatterns {
		pNorm := norm.NFC.String(pattern)
		parts = append(parts, regexp.QuoteMeta(pNorm))
	}
	// (?i) for case-insensitive
	return regexp.MustCompile("(?i)" + strings.Join(parts, "|"))
}

// ValidateShortTextLength validates short text field length
func ValidateShortTextLength(fieldName, fieldValue string) error {
	normalized := norm.NFC.String(fieldValue)

	if utf8.RuneCountInString(normalized) > MaxShortTextLength {
		return errors.NewError(
			errors.ErrCodeInvalidRequest,
			fmt.Sprintf(errors.ErrMsgShortTextTooLong, MaxShortTextLength, fieldName),
		)
	}
	return nil
}

// ValidateLongTextLength validates long text field length and rejects
// template or encoded injection payloads.
func ValidateLongTextLength(fieldName, fieldValue string) error {
	normalized := norm.NFC.String(fieldValue)

	if utf8.RuneCountInString(normalized) > MaxLongTextLength {
		return errors.NewError(
			errors.ErrCodeInvalidRequest,
			fmt.Sprintf(errors.ErrMsgLongTextTooLong, MaxLongTextLength, fieldName),
		)
	}

	if InjectionRegexp.MatchString(normalized) {
		return errors.NewError(
			errors.ErrCodeInvalidRequest,
			fmt.Sprintf(errors.ErrMsgInvalidCharacters, fieldName),
		)
	}
	return nil
}

// ValidateTransactionFields checks the free-text fields of a submission.
// Amount and party checks stay with the ledger.
func ValidateTransactionFields(sender, recipient, txType string, metadata map[string]string) error {
	if err := ValidateShortTextLength(SenderField, sender); err != nil {
		return err
	}
	if err := ValidateShortTextLength(RecipientField, recipient); err != nil {
		return err
	}
	if err := ValidateShortTextLength(TypeField, txType); err != nil {
		return err
	}
	for k, v := range metadata {
		if err := ValidateShortTextLength(MetadataKey, k); err != nil {
			return err
		}
		if err := ValidateLongTextLength(MetadataField, v); err != nil {
			return err
		}
	}
	return nil
}

// ValidateUsername checks a wallet username.
func ValidateUsername(username string) error {
	if err := ValidateShortTextLength(UsernameField, username); err != nil {
		return err
	}
	if InjectionRegexp.MatchString(norm.NFC.String(username)) {
		return errors.NewError(
			errors.ErrCodeInvalidRequest,
			fmt.Sprintf(errors.ErrMsgInvalidCharacters, UsernameField),
		)
	}
	return nil
}

// ValidateRecord bounds the size of an audit record. Record content is
// stored verbatim, so only lengths and nesting are checked.
func ValidateRecord(record map[string]interface{}) error {
	return validateValue(record, 0)
}

func validateValue(v interface{}, depth int) error {
	if depth > MaxRecordDepth {
		return errors.NewError(
			errors.ErrCodeInvalidRequest,
			fmt.Sprintf(errors.ErrMsgRecordTooDeep, MaxRecordDepth),
		)
	}
	switch val := v.(type) {
	case string:
		if utf8.RuneCountInString(val) > MaxLongTextLength {
			return errors.NewError(
				errors.ErrCodeInvalidRequest,
				fmt.Sprintf(errors.ErrMsgLongTextTooLong, MaxLongTextLength, RecordField),
			)
		}
	case map[string]interface{}:
		for k, item := range val {
			if err := ValidateShortTextLength(RecordKey, k); err != nil {
				return err
			}
			if err := validateValue(item, depth+1); err != nil {
				return err
			}
		}
	case []interface{}:
		for _, item := range val {
			if err := validateValue(item, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}
