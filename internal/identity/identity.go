// Package identity derives stable author identifiers.
package identity

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// ID returns the author id for a (name, email) pair: 16 lowercase hex digits
// of an xxHash64 over the exact bytes, with a NUL between the fields so that
// ("ab", "c") and ("a", "bc") differ.
func ID(name, email string) string {
	d := xxhash.New()
	_, _ = d.WriteString(name)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(email)
	return fmt.Sprintf("%016x", d.Sum64())
}

// GravatarHash is the avatar lookup key for an email. It is for display only
// and never identifies an author.
func GravatarHash(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])
}
