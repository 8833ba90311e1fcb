package sqlgen

import (
	"crypto/rand"
	"errors"
	"io"
	"strings"

	"github.com/google/uuid"
)

// ErrAliasExhausted is returned when alias generation cannot find an
// unused name. In practice this means the collision check itself is
// broken, not that the namespace is full.
var ErrAliasExhausted = errors.New("sqlgen: could not generate an unused attach alias")

const aliasAttempts = 16

// RandomAlias generates an identifier safe to use as an ATTACH alias,
// retrying while taken reports a collision. entropy may be nil to use
// crypto/rand; tests inject a deterministic reader.
func RandomAlias(entropy io.Reader, taken func(string) bool) (string, error) {
	if entropy == nil {
		entropy = rand.Reader
	}
	for i := 0; i < aliasAttempts; i++ {
		u, err := uuid.NewRandomFromReader(entropy)
		if err != nil {
			return "", err
		}
		alias := "tmp_" + strings.ReplaceAll(u.String(), "-", "")[:12]
		if taken == nil || !taken(alias) {
			return alias, nil
		}
	}
	return "", ErrAliasExhausted
}
