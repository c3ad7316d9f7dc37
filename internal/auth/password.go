// Package auth provides password hashing, identity tokens, and the
// request-scoped identity carried through handlers.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// HashAlgorithm names a supported password hashing scheme.
type HashAlgorithm string

const (
	AlgorithmBcrypt   HashAlgorithm = "bcrypt"
	AlgorithmArgon2id HashAlgorithm = "argon2id"
)

const (
	argon2KeyLen  = 32
	argon2SaltLen = 16

	maxBcryptPasswordLen = 72

	// maxArgon2MemoryKB bounds the memory parameter accepted from a stored digest.
	maxArgon2MemoryKB = 1 << 22
)

var (
	// ErrInvalidHash indicates the hash format is invalid.
	ErrInvalidHash = errors.New("invalid hash format")
	// ErrIncompatibleVersion indicates the hash version is not supported.
	ErrIncompatibleVersion = errors.New("incompatible argon2 version")
	// ErrPasswordTooLong is returned when bcrypt cannot hash the input.
	ErrPasswordTooLong = errors.New("password exceeds 72 bytes")
	// ErrInvalidHasherConfig is returned by NewHasher for unusable parameters.
	ErrInvalidHasherConfig = errors.New("invalid hasher config")
)

// HasherConfig holds the process-wide hashing parameters.
type HasherConfig struct {
	Algorithm      HashAlgorithm
	BcryptCost     int
	Argon2Time     uint32
	Argon2MemoryKB uint32
	Argon2Threads  uint8
}

// Hasher hashes and verifies user passwords.
// It is safe for concurrent use; its parameters never change after construction.
type Hasher struct {
	cfg   HasherConfig
	dummy string
}

// NewHasher validates cfg and returns a Hasher.
func NewHasher(cfg HasherConfig) (*Hasher, error) {
	switch cfg.Algorithm {
	case AlgorithmBcrypt:
		if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
			return nil, fmt.Errorf("%w: bcrypt cost %d out of range", ErrInvalidHasherConfig, cfg.BcryptCost)
		}
	case AlgorithmArgon2id:
		if cfg.Argon2Time < 1 || cfg.Argon2Threads < 1 || cfg.Argon2MemoryKB < 8*uint32(cfg.Argon2Threads) {
			return nil, fmt.Errorf("%w: argon2id parameters t=%d m=%d p=%d",
				ErrInvalidHasherConfig, cfg.Argon2Time, cfg.Argon2MemoryKB, cfg.Argon2Threads)
		}
	default:
		return nil, fmt.Errorf("%w: unknown algorithm %q", ErrInvalidHasherConfig, cfg.Algorithm)
	}

	h := &Hasher{cfg: cfg}

	dummy, err := h.Hash("taskguard-timing-equalizer")
	if err != nil {
		return nil, fmt.Errorf("compute dummy hash: %w", err)
	}
	h.dummy = dummy

	return h, nil
}

// Algorithm returns the scheme used for new digests.
func (h *Hasher) Algorithm() HashAlgorithm {
	return h.cfg.Algorithm
}

// Hash returns a salted one-way digest of password.
// Two calls with the same input return different digests.
func (h *Hasher) Hash(password string) (string, error) {
	if h.cfg.Algorithm == AlgorithmArgon2id {
		return h.hashArgon2id(password)
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether password produced digest.
// Digests from either supported algorithm are accepted regardless of the
// configured one. A malformed digest is a mismatch, never an error.
func (h *Hasher) Verify(password, digest string) bool {
	switch {
	case strings.HasPrefix(digest, "$argon2id$"):
		ok, err := verifyArgon2id(password, digest)
		return err == nil && ok
	case strings.HasPrefix(digest, "$2a$"), strings.HasPrefix(digest, "$2b$"), strings.HasPrefix(digest, "$2y$"):
		// bcrypt only sees the first 72 bytes; longer input can never be the
		// password that was hashed.
		if len(password) > maxBcryptPasswordLen {
			return false
		}
		return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
	default:
		return false
	}
}

// VerifyDummy spends the same work as a real verification against a digest
// that can never match. Used when the account does not exist.
func (h *Hasher) VerifyDummy(password string) {
	_ = h.Verify(password, h.dummy)
}

func (h *Hasher) hashArgon2id(password string) (string, error) {
	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	hash := argon2.IDKey(
		[]byte(password),
		salt,
		h.cfg.Argon2Time,
		h.cfg.Argon2MemoryKB,
		h.cfg.Argon2Threads,
		argon2KeyLen,
	)

	// PHC string format: $argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.cfg.Argon2MemoryKB,
		h.cfg.Argon2Time,
		h.cfg.Argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// verifyArgon2id checks password against a PHC-encoded argon2id digest.
func verifyArgon2id(password, encodedHash string) (bool, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return false, ErrInvalidHash
	}

	if parts[1] != "argon2id" {
		return false, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, ErrInvalidHash
	}
	if version != argon2.Version {
		return false, ErrIncompatibleVersion
	}

	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, ErrInvalidHash
	}
	// argon2.IDKey panics on zero rounds or parallelism.
	if time < 1 || threads < 1 || memory > maxArgon2MemoryKB {
		return false, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, ErrInvalidHash
	}

	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expectedHash) == 0 {
		return false, ErrInvalidHash
	}

	computedHash := argon2.IDKey(
		[]byte(password),
		salt,
		time,
		memory,
		threads,
		uint32(len(expectedHash)),
	)

	return subtle.ConstantTimeCompare(computedHash, expectedHash) == 1, nil
}
