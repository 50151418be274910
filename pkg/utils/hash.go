package utils

import (
	"crypto/md5"
	"fmt"
	"strings"
)

func HashString(input string) string {
	hash := md5.Sum([]byte(input))
	return fmt.Sprintf("%x", hash)
}

// HashFields builds a stable identity hash from composite fields.
// Used to derive mention IDs for platforms that don't supply one.
func HashFields(fields ...string) string {
	return HashString(strings.Join(fields, "|"))
}
