// Package security hashes passwords with Argon2id and mints the opaque
// tokens used for password resets.
package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

// ErrInvalidHash means a stored hash is not a PHC-format argon2id string.
var ErrInvalidHash = errors.New("invalid argon2id hash")

var b64 = base64.RawStdEncoding

// argonParams is the cost part of an encoded hash.
type argonParams struct {
	memory  uint32
	time    uint32
	threads uint8
}

// costFrom clamps configured costs into a range that is safe to run on a
// request path and still meaningful.
func costFrom(cfg config.PasswordConfig) (argonParams, int, int) {
	return argonParams{
			memory:  uint32(bounded(cfg.ArgonMemoryKB, 8, 512*1024)),
			time:    uint32(bounded(cfg.ArgonTime, 1, 10)),
			threads: uint8(bounded(cfg.ArgonParallelism, 1, 255)),
		},
		bounded(cfg.ArgonSaltLen, 8, 64),
		bounded(cfg.ArgonKeyLen, 16, 64)
}

func bounded(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// HashPassword encodes password as
// $argon2id$v=19$m=<kb>,t=<passes>,p=<threads>$<salt>$<key>.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	p, saltLen, keyLen := costFrom(cfg)
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, p.time, p.memory, p.threads, uint32(keyLen))
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.memory, p.time, p.threads, b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

// VerifyPassword recomputes the key with the parameters stored in encoded.
func VerifyPassword(password, encoded string) (bool, error) {
	p, salt, key, err := parseHash(encoded)
	if err != nil {
		return false, err
	}
	got := argon2.IDKey([]byte(password), salt, p.time, p.memory, p.threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(key, got) == 1, nil
}

// NeedsRehash reports whether encoded was produced with costs other than the
// ones cfg asks for now.
func NeedsRehash(encoded string, cfg config.PasswordConfig) bool {
	stored, salt, key, err := parseHash(encoded)
	if err != nil {
		return true
	}
	want, saltLen, keyLen := costFrom(cfg)
	return stored != want || len(salt) != saltLen || len(key) != keyLen
}

func parseHash(encoded string) (argonParams, []byte, []byte, error) {
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil || version != argon2.Version {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	var p argonParams
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	if p.memory == 0 || p.time == 0 || p.threads == 0 {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	salt, err := b64.DecodeString(fields[4])
	if err != nil || len(salt) == 0 {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	key, err := b64.DecodeString(fields[5])
	if err != nil || len(key) == 0 {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	return p, salt, key, nil
}
