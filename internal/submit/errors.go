package submit

import "fmt"

// Kind classifies a client-input failure so the HTTP layer can pick a
// status code without string matching.
type Kind int

const (
	KindMissingGeneration Kind = iota
	KindMissingParameter
	KindInvalidEndianness
	KindMalformedIdentifier
	KindDuplicateSignal
)

func (k Kind) String() string {
	switch k {
	case KindMissingGeneration:
		return "missing_generation"
	case KindMissingParameter:
		return "missing_parameter"
	case KindInvalidEndianness:
		return "invalid_endianness"
	case KindMalformedIdentifier:
		return "malformed_identifier"
	case KindDuplicateSignal:
		return "duplicate_signal"
	default:
		return "unknown"
	}
}

// Error is a rejected submission. Store and filesystem failures are
// plain wrapped errors; only client input produces an *Error.
type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func errMissingGeneration(detail string) *Error {
	return &Error{Kind: KindMissingGeneration, Detail: detail}
}

func errMissingParameter(detail string) *Error {
	return &Error{Kind: KindMissingParameter, Detail: detail}
}

func errInvalidEndianness(detail string) *Error {
	return &Error{Kind: KindInvalidEndianness, Detail: detail}
}

func errMalformedIdentifier(detail string) *Error {
	return &Error{Kind: KindMalformedIdentifier, Detail: detail}
}

func errDuplicateSignal(detail string) *Error {
	return &Error{Kind: KindDuplicateSignal, Detail: detail}
}
