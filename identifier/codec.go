package identifier

import (
	"errors"
	"strings"
)

// DefaultAlphabet is the encoding alphabet used when no custom one is
// supplied: uppercase letters and digits with the ambiguous characters
// 0, O, 1, and I excluded.
const DefaultAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

var (
	// ErrAlphabetTooSmall is returned when the alphabet has fewer than 16 characters.
	ErrAlphabetTooSmall = errors.New("alphabet must contain at least 16 characters")

	// ErrAlphabetNotUnique is returned when the alphabet contains duplicate characters.
	ErrAlphabetNotUnique = errors.New("alphabet characters must be unique")

	// ErrMalformedToken is returned when a token cannot be decoded with this codec.
	ErrMalformedToken = errors.New("malformed token")
)

// Codec is an immutable, alphabet-restricted, reversible encoding of 32-bit
// values. Each value is encoded big-endian at a fixed width, so a token's
// length is always a multiple of the width and decoding needs no separator
// characters inside the restricted alphabet.
//
// Codecs are explicitly constructed and safe for concurrent use; there is no
// package-level mutable configuration.
type Codec struct {
	alphabet string
	index    map[byte]uint32
	width    int
}

// NewCodec builds a Codec over the given alphabet.
func NewCodec(alphabet string) (Codec, error) {
	if len(alphabet) < 16 {
		return Codec{}, ErrAlphabetTooSmall
	}

	index := make(map[byte]uint32, len(alphabet))

	for i := 0; i < len(alphabet); i++ {
		if _, seen := index[alphabet[i]]; seen {
			return Codec{}, ErrAlphabetNotUnique
		}

		index[alphabet[i]] = uint32(i)
	}

	return Codec{
		alphabet: alphabet,
		index:    index,
		width:    widthFor(uint64(len(alphabet))),
	}, nil
}

// DefaultCodec returns a Codec over DefaultAlphabet.
func DefaultCodec() Codec {
	codec, err := NewCodec(DefaultAlphabet)
	if err != nil {
		panic(err) // DefaultAlphabet is a valid alphabet
	}

	return codec
}

// widthFor returns the smallest number of digits in the given base that can
// represent every 32-bit value.
func widthFor(base uint64) int {
	width := 0
	capacity := uint64(1)

	for capacity>>32 == 0 { // capacity < 2^32
		capacity *= base
		width++

		if capacity == 0 { // overflowed uint64, plenty of room
			break
		}
	}

	return width
}

// Width returns the number of characters used to encode one 32-bit value.
func (c Codec) Width() int {
	return c.width
}

// Encode encodes the given values into a single opaque token.
func (c Codec) Encode(values ...uint32) string {
	var builder strings.Builder
	builder.Grow(len(values) * c.width)

	base := uint64(len(c.alphabet))

	for _, value := range values {
		digits := make([]byte, c.width)
		remainder := uint64(value)

		for i := c.width - 1; i >= 0; i-- {
			digits[i] = c.alphabet[remainder%base]
			remainder /= base
		}

		builder.Write(digits)
	}

	return builder.String()
}

// Decode reverses Encode. It fails closed: a token whose length is not a
// multiple of the width, that contains characters outside the alphabet, or
// that encodes a value exceeding 32 bits yields ErrMalformedToken.
func (c Codec) Decode(token string) ([]uint32, error) {
	if len(token) == 0 || len(token)%c.width != 0 {
		return nil, ErrMalformedToken
	}

	base := uint64(len(c.alphabet))
	values := make([]uint32, 0, len(token)/c.width)

	for start := 0; start < len(token); start += c.width {
		var value uint64

		for i := start; i < start+c.width; i++ {
			digit, known := c.index[token[i]]
			if !known {
				return nil, ErrMalformedToken
			}

			value = value*base + uint64(digit)
		}

		if value>>32 != 0 {
			return nil, ErrMalformedToken
		}

		values = append(values, uint32(value))
	}

	return values, nil
}
