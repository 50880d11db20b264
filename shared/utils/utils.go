package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const (
	idTimeLayout = "20060102T150405"
	idCharset    = "abcdefghijklmnopqrstuvwxyz0123456789"
	idSuffixLen  = 6
)

// GenerateID returns prefix-<UTC timestamp>-<random suffix>. IDs sort by
// creation time to the second.
func GenerateID(prefix string) string {
	return generateID(prefix, time.Now())
}

func generateID(prefix string, now time.Time) string {
	suffix := make([]byte, idSuffixLen)
	for i := range suffix {
		num, _ := rand.Int(rand.Reader, big.NewInt(int64(len(idCharset))))
		suffix[i] = idCharset[num.Int64()]
	}
	return fmt.Sprintf("%s-%s-%s", prefix, now.UTC().Format(idTimeLayout), suffix)
}
