package auth

import (
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/argon2"
)

// KeyHasher turns a presented secret into the value stored in api_keys.key_hash.
// Lookups are by hash, so implementations must be deterministic.
type KeyHasher interface {
	Hash(secret string) string
	Verify(hash, secret string) bool
	Algo() string
}

// Argon2Hasher derives argon2id keys salted with a server-side pepper.
type Argon2Hasher struct {
	Pepper    string
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
}

func NewArgon2Hasher(pepper string) Argon2Hasher {
	return Argon2Hasher{Pepper: pepper, Time: 1, MemoryKiB: 19 * 1024, Threads: 1}
}

func (a Argon2Hasher) Hash(secret string) string {
	sum := argon2.IDKey([]byte(secret), []byte("api-key:"+a.Pepper), a.Time, a.MemoryKiB, a.Threads, 32)
	return hex.EncodeToString(sum)
}

func (a Argon2Hasher) Verify(hash, secret string) bool {
	return subtle.ConstantTimeCompare([]byte(hash), []byte(a.Hash(secret))) == 1
}

func (a Argon2Hasher) Algo() string { return "argon2id" }
