// Package id generates message identifiers.
package id

import (
	"crypto/rand"
	"errors"
	"strings"
	"time"
)

// ErrInvalid is returned when a string is not a ULID.
var ErrInvalid = errors.New("id: invalid ulid")

// Crockford base32 without I, L, O and U.
const alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

const (
	length     = 26
	timeChars  = 10
	randomSize = 10
)

// New returns a 26 character ULID for the current time. IDs sort by
// creation time.
func New() string {
	return newAt(time.Now())
}

func newAt(t time.Time) string {
	var entropy [randomSize]byte
	_, _ = rand.Read(entropy[:])

	var b [length]byte
	ms := uint64(t.UnixMilli())
	for i := timeChars - 1; i >= 0; i-- {
		b[i] = alphabet[ms&0x1F]
		ms >>= 5
	}

	// 80 random bits as 16 five-bit groups.
	var acc uint64
	bits := 0
	pos := timeChars
	for _, v := range entropy {
		acc = acc<<8 | uint64(v)
		bits += 8
		for bits >= 5 {
			bits -= 5
			b[pos] = alphabet[(acc>>bits)&0x1F]
			pos++
		}
	}
	return string(b[:])
}

// Time returns the creation time encoded in a ULID.
func Time(s string) (time.Time, error) {
	if len(s) != length {
		return time.Time{}, ErrInvalid
	}
	var ms uint64
	for i := range timeChars {
		v := strings.IndexByte(alphabet, s[i])
		if v < 0 {
			return time.Time{}, ErrInvalid
		}
		ms = ms<<5 | uint64(v)
	}
	return time.UnixMilli(int64(ms)), nil
}
