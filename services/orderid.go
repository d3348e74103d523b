package services

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const orderIDSuffixLen = 4

var suffixSpace = big.NewInt(36 * 36 * 36 * 36)

// NewOrderID returns ORD-<base36 millis>-<4 base36 chars>, upper case.
// Uniqueness is probabilistic; the id is the primary key, so a collision
// surfaces as a duplicate-key insert failure.
func NewOrderID(now time.Time) string {
	n, err := rand.Int(rand.Reader, suffixSpace)
	if err != nil {
		n = big.NewInt(now.UnixNano() % suffixSpace.Int64())
	}
	suffix := strconv.FormatInt(n.Int64(), 36)
	if len(suffix) < orderIDSuffixLen {
		suffix = strings.Repeat("0", orderIDSuffixLen-len(suffix)) + suffix
	}
	return "ORD-" + strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36)) + "-" + strings.ToUpper(suffix)
}
