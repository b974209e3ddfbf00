package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

func GenerateCode(n int) (string, error) {
	// Make a slice of n random bytes.
	byt := make([]byte, n)

	// Read into the slice.
	if _, err := rand.Read(byt); err != nil {
		return "", err
	}

	// Return the hexadecimal string.
	return strings.ToUpper(hex.EncodeToString(byt)), nil
}

// NewBookingReference builds a human-readable booking reference from a
// time component and a random component. Uniqueness is the only contract;
// the format itself is free to change.
func NewBookingReference(now time.Time) (string, error) {
	code, err := GenerateCode(3)
	if err != nil {
		return "", err
	}
	ts := strings.ToUpper(strconv.FormatInt(now.Unix(), 36))
	return fmt.Sprintf("TKT-%s-%s", ts, code), nil
}

// NewTicketCode derives a redemption code for one ticket of a booking: the
// booking reference, the seat sequence and a random nonce.
func NewTicketCode(bookingRef string, seq int) (string, error) {
	nonce, err := GenerateCode(4)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%02d-%s", bookingRef, seq, nonce), nil
}
