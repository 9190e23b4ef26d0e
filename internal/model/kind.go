package model

import (
	"errors"
	"fmt"
	"strings"
)

// Kind selects which of the two report schemas applies to a scan.
type Kind string

const (
	// KindURL is a scan of a web address.
	KindURL Kind = "url"

	// KindMessage is a scan of free text such as an SMS, e-mail or chat message.
	KindMessage Kind = "message"
)

// ErrUnknownKind is returned by ParseKind for values other than "url" and "message".
var ErrUnknownKind = errors.New("unknown scan kind: must be \"url\" or \"message\"")

// Kinds returns every supported kind in display order.
func Kinds() []Kind {
	return []Kind{KindURL, KindMessage}
}

// ParseKind converts user input into a Kind.
// Leading and trailing whitespace is ignored and matching is case-insensitive.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindURL:
		return KindURL, nil
	case KindMessage:
		return KindMessage, nil
	default:
		return "", fmt.Errorf("%w (got %q)", ErrUnknownKind, s)
	}
}

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	return k == KindURL || k == KindMessage
}

// String returns the wire representation of the kind.
func (k Kind) String() string {
	return string(k)
}
