package auth

import (
	"errors"
	"strings"
	"testing"
)

func newTestHasher(t *testing.T, algo HashAlgorithm) *Hasher {
	t.Helper()
	h, err := NewHasher(HasherConfig{
		Algorithm:      algo,
		BcryptCost:     4,
		Argon2Time:     1,
		Argon2MemoryKB: 1024,
		Argon2Threads:  1,
	})
	if err != nil {
		t.Fatalf("NewHasher(%s) failed: %v", algo, err)
	}
	return h
}

func TestHasher_Format(t *testing.T) {
	t.Parallel()

	tests := []struct {
		algo   HashAlgorithm
		prefix string
	}{
		{AlgorithmBcrypt, "$2a$04$"},
		{AlgorithmArgon2id, "$argon2id$v=19$m=1024,t=1,p=1$"},
	}

	for _, tt := range tests {
		t.Run(string(tt.algo), func(t *testing.T) {
			t.Parallel()

			digest, err := newTestHasher(t, tt.algo).Hash("secret123")
			if err != nil {
				t.Fatalf("Hash failed: %v", err)
			}
			if !strings.HasPrefix(digest, tt.prefix) {
				t.Errorf("digest should start with %q, got: %s", tt.prefix, digest)
			}
		})
	}
}

func TestHasher_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, algo := range []HashAlgorithm{AlgorithmBcrypt, AlgorithmArgon2id} {
		t.Run(string(algo), func(t *testing.T) {
			t.Parallel()
			h := newTestHasher(t, algo)

			passwords := []string{"secret123", "", "pässwörd", strings.Repeat("x", 72)}
			for _, p := range passwords {
				digest, err := h.Hash(p)
				if err != nil {
					t.Fatalf("Hash(%q) failed: %v", p, err)
				}
				if !h.Verify(p, digest) {
					t.Errorf("Verify(%q, Hash(%q)) = false", p, p)
				}
				if h.Verify(p+"!", digest) {
					t.Errorf("Verify(%q, Hash(%q)) = true", p+"!", p)
				}
			}
		})
	}
}

func TestHasher_Uniqueness(t *testing.T) {
	t.Parallel()

	for _, algo := range []HashAlgorithm{AlgorithmBcrypt, AlgorithmArgon2id} {
		t.Run(string(algo), func(t *testing.T) {
			t.Parallel()
			h := newTestHasher(t, algo)

			hash1, err := h.Hash("the_same_password")
			if err != nil {
				t.Fatalf("Hash failed: %v", err)
			}
			hash2, err := h.Hash("the_same_password")
			if err != nil {
				t.Fatalf("Hash failed: %v", err)
			}

			if hash1 == hash2 {
				t.Error("same password should produce different hashes due to random salt")
			}
			if !h.Verify("the_same_password", hash1) || !h.Verify("the_same_password", hash2) {
				t.Error("both hashes should verify")
			}
		})
	}
}

func TestHasher_VerifiesOtherAlgorithm(t *testing.T) {
	t.Parallel()

	bc := newTestHasher(t, AlgorithmBcrypt)
	ar := newTestHasher(t, AlgorithmArgon2id)

	bcDigest, err := bc.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	arDigest, err := ar.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	if !ar.Verify("secret123", bcDigest) {
		t.Error("argon2id hasher should verify bcrypt digest")
	}
	if !bc.Verify("secret123", arDigest) {
		t.Error("bcrypt hasher should verify argon2id digest")
	}
}

func TestHasher_MalformedDigest(t *testing.T) {
	t.Parallel()

	h := newTestHasher(t, AlgorithmBcrypt)

	digests := []string{
		"",
		"not-a-hash",
		"$2a$",
		"$2b$04$tooshort",
		"$argon2id$v=19$m=65536",
		"$argon2id$v=18$m=65536,t=3,p=4$c29tZXNhbHQ$c29tZWhhc2g",
		"$argon2id$v=19$m=1024,t=0,p=1$c29tZXNhbHQ$c29tZWhhc2g",
		"$argon2id$v=19$m=1024,t=1,p=0$c29tZXNhbHQ$c29tZWhhc2g",
		"$argon2id$v=19$m=1024,t=1,p=1$c29tZXNhbHQ$",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$c29tZWhhc2g",
		"$bcrypt$v=19$m=65536,t=3,p=4$salt$hash",
	}

	for _, d := range digests {
		if h.Verify("password", d) {
			t.Errorf("Verify with malformed digest %q should be false", d)
		}
	}
}

func TestVerifyArgon2id_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		hash    string
		wantErr error
	}{
		{"empty", "", ErrInvalidHash},
		{"wrong algorithm", "$argon2i$v=19$m=65536,t=3,p=4$salt$hash", ErrInvalidHash},
		{"missing parts", "$argon2id$v=19$m=65536", ErrInvalidHash},
		{"wrong version", "$argon2id$v=18$m=65536,t=3,p=4$c29tZXNhbHQ$c29tZWhhc2g", ErrIncompatibleVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			match, err := verifyArgon2id("password", tt.hash)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("verifyArgon2id error = %v, want %v", err, tt.wantErr)
			}
			if match {
				t.Error("should not match")
			}
		})
	}
}

func TestHasher_PasswordTooLong(t *testing.T) {
	t.Parallel()

	_, err := newTestHasher(t, AlgorithmBcrypt).Hash(strings.Repeat("x", 73))
	if !errors.Is(err, ErrPasswordTooLong) {
		t.Errorf("expected ErrPasswordTooLong, got: %v", err)
	}

	if _, err := newTestHasher(t, AlgorithmArgon2id).Hash(strings.Repeat("x", 73)); err != nil {
		t.Errorf("argon2id should accept long passwords, got: %v", err)
	}
}

func TestHasher_LongerPasswordNeverMatches(t *testing.T) {
	t.Parallel()

	for _, algo := range []HashAlgorithm{AlgorithmBcrypt, AlgorithmArgon2id} {
		t.Run(string(algo), func(t *testing.T) {
			t.Parallel()
			h := newTestHasher(t, algo)

			password := strings.Repeat("a", 72)
			digest, err := h.Hash(password)
			if err != nil {
				t.Fatalf("Hash failed: %v", err)
			}
			if !h.Verify(password, digest) {
				t.Fatal("Verify should accept the 72-byte password")
			}
			for _, suffix := range []string{"x", "DIFFERENT", strings.Repeat("a", 10)} {
				if h.Verify(password+suffix, digest) {
					t.Errorf("Verify accepted password with suffix %q", suffix)
				}
			}
		})
	}
}

func TestNewHasher_InvalidConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  HasherConfig
	}{
		{"unknown algorithm", HasherConfig{Algorithm: "md5"}},
		{"bcrypt cost too low", HasherConfig{Algorithm: AlgorithmBcrypt, BcryptCost: 2}},
		{"bcrypt cost too high", HasherConfig{Algorithm: AlgorithmBcrypt, BcryptCost: 40}},
		{"argon2 zero time", HasherConfig{Algorithm: AlgorithmArgon2id, Argon2MemoryKB: 1024, Argon2Threads: 1}},
		{"argon2 zero threads", HasherConfig{Algorithm: AlgorithmArgon2id, Argon2Time: 1, Argon2MemoryKB: 1024}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := NewHasher(tt.cfg); !errors.Is(err, ErrInvalidHasherConfig) {
				t.Errorf("NewHasher error = %v, want ErrInvalidHasherConfig", err)
			}
		})
	}
}

func TestHasher_VerifyDummy(t *testing.T) {
	t.Parallel()

	h := newTestHasher(t, AlgorithmBcrypt)
	if !h.Verify("taskguard-timing-equalizer", h.dummy) {
		t.Fatal("dummy digest should be a valid digest")
	}
	h.VerifyDummy("anything")
}
