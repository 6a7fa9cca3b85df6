// Package credential derives and checks PIN digests. A digest is bound to the
// caller identity so the same PIN yields different digests for different callers.
package credential

import (
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/argon2"
)

const (
	saltPrefix = "myibot-pin:"

	hashTime    uint32 = 1
	hashMemory  uint32 = 19 * 1024
	hashThreads uint8  = 1
	hashKeyLen  uint32 = 32
)

// Hash returns the hex encoded argon2id digest of pin salted by caller.
func Hash(pin, caller string) string {
	return hex.EncodeToString(derive(pin, caller))
}

// Verify reports whether candidate hashes to stored for caller.
func Verify(candidate, caller, stored string) bool {
	expected, err := hex.DecodeString(stored)
	if err != nil || len(expected) != int(hashKeyLen) {
		return false
	}
	return subtle.ConstantTimeCompare(derive(candidate, caller), expected) == 1
}

func derive(pin, caller string) []byte {
	salt := []byte(saltPrefix + caller)
	return argon2.IDKey([]byte(pin), salt, hashTime, hashMemory, hashThreads, hashKeyLen)
}
