package protocol

import (
	"unicode/utf8"

	kverrors "github.com/ajitpratap0/kvlink-go/pkg/errors"
)

// Encoder converts between native string values and the raw bytes exchanged
// with the server. The connection manager passes the configured encoder
// through to the handle untouched.
type Encoder interface {
	// Encode converts a native value to wire bytes.
	Encode(value string) []byte

	// Decode converts wire bytes back to a native value.
	Decode(data []byte) (string, error)
}

// UTF8Encoder is the default encoder. Decode rejects byte sequences that are
// not valid UTF-8.
type UTF8Encoder struct{}

func (UTF8Encoder) Encode(value string) []byte {
	return []byte(value)
}

func (UTF8Encoder) Decode(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", kverrors.NewError(kverrors.CodeDecodeError, "value is not valid UTF-8",
			kverrors.CategoryProtocol, kverrors.SeverityError)
	}
	return string(data), nil
}

// BytesEncoder passes values through without validation.
type BytesEncoder struct{}

func (BytesEncoder) Encode(value string) []byte {
	return []byte(value)
}

func (BytesEncoder) Decode(data []byte) (string, error) {
	return string(data), nil
}
