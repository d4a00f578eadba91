package models

// KeyValidation is the validation lifecycle of the personal API key.
type KeyValidation int

const (
	// KeyUnvalidated means the key has not been checked since it was written.
	KeyUnvalidated KeyValidation = iota
	// KeyValid means the backend confirmed the key.
	KeyValid
	// KeyInvalid means the backend rejected the key, or the check itself
	// failed (validation is fail-closed).
	KeyInvalid
)

// String returns the display name of the validation state.
func (v KeyValidation) String() string {
	switch v {
	case KeyUnvalidated:
		return "unvalidated"
	case KeyValid:
		return "valid"
	case KeyInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}
