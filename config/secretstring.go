package config

import "fmt"

// SecretStringValue must be exported - used in tests.
const SecretStringValue = "<secret>"

// SecretString is a type that should be used for values which must not be
// visible in logs, dumps and reports: client secrets and tokens.
type SecretString string

// MarshalJSON marshals SecretString to JSON making sure that actual value is not visible.
func (s SecretString) MarshalJSON() ([]byte, error) {
	if len(s) == 0 {
		return []byte("null"), nil
	}
	return []byte("\"" + SecretStringValue + "\""), nil
}

// MarshalYAML marshals SecretString to YAML making sure that actual value is not visible.
func (s SecretString) MarshalYAML() (any, error) {
	if len(s) == 0 {
		return nil, nil
	}
	return SecretStringValue, nil
}

// String keeps value out of fmt output and zap.Stringer fields.
func (s SecretString) String() string {
	if len(s) == 0 {
		return ""
	}
	return SecretStringValue
}

// Hint shows enough of the value to recognize it.
func (s SecretString) Hint() string {
	switch {
	case len(s) == 0:
		return "(empty)"
	case len(s) <= 8:
		return fmt.Sprintf("%s (%d chars)", SecretStringValue, len(s))
	}
	return fmt.Sprintf("%s...%s (%d chars)", s[:3], s[len(s)-3:], len(s))
}
