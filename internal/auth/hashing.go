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

	apperrors "github.com/rdGxd/todo-list/pkg/errors"
)

// Hasher hashes and checks passwords. Compare reports false for a wrong
// password and for a hash it cannot parse; it never returns an error, so a
// corrupted stored hash can only fail closed.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Compare(plaintext, hashed string) bool
}

const (
	HasherBcrypt   = "bcrypt"
	HasherArgon2id = "argon2id"
)

// NewHasher returns the implementation named by algorithm.
func NewHasher(algorithm string, bcryptCost int) (Hasher, error) {
	switch algorithm {
	case HasherBcrypt:
		return NewBcryptHasher(bcryptCost), nil
	case HasherArgon2id:
		return NewArgon2idHasher(), nil
	default:
		return nil, fmt.Errorf("unknown password hasher %q", algorithm)
	}
}

// --- bcrypt ---

// BcryptHasher hashes with bcrypt at a fixed cost.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher clamps cost into bcrypt's accepted range.
func NewBcryptHasher(cost int) *BcryptHasher {
	cost = min(max(cost, bcrypt.MinCost), bcrypt.MaxCost)
	return &BcryptHasher{cost: cost}
}

// Hash fails with InvalidInput for passwords longer than bcrypt's 72-byte
// limit.
func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", apperrors.InvalidInput("password must be at most 72 bytes")
	}
	if err != nil {
		return "", fmt.Errorf("bcrypt hash: %w", err)
	}
	return string(b), nil
}

func (h *BcryptHasher) Compare(plaintext, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext)) == nil
}

// --- argon2id ---

// Argon2idHasher produces PHC strings of the form
// $argon2id$v=19$m=<KiB>,t=<iterations>,p=<threads>$<salt>$<key>.
type Argon2idHasher struct {
	memory     uint32
	iterations uint32
	threads    uint8
	keyLength  uint32
	saltLength int
}

// NewArgon2idHasher uses the RFC 9106 second recommended parameter set.
func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{
		memory:     64 * 1024,
		iterations: 3,
		threads:    2,
		keyLength:  32,
		saltLength: 16,
	}
}

func (h *Argon2idHasher) Hash(plaintext string) (string, error) {
	salt := make([]byte, h.saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(plaintext), salt, h.iterations, h.memory, h.threads, h.keyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.memory, h.iterations, h.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Compare re-derives the key with the parameters stored in hashed, so hashes
// made with older parameters keep verifying.
func (h *Argon2idHasher) Compare(plaintext, hashed string) bool {
	p, salt, key, ok := decodeArgon2id(hashed)
	if !ok {
		return false
	}
	got := argon2.IDKey([]byte(plaintext), salt, p.iterations, p.memory, p.threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(got, key) == 1
}

func decodeArgon2id(encoded string) (params Argon2idHasher, salt, key []byte, ok bool) {
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != HasherArgon2id {
		return params, nil, nil, false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return params, nil, nil, false
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.memory, &params.iterations, &params.threads); err != nil {
		return params, nil, nil, false
	}
	if params.memory == 0 || params.iterations == 0 || params.threads == 0 {
		return params, nil, nil, false
	}

	var err error
	if salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil || len(salt) == 0 {
		return params, nil, nil, false
	}
	if key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(key) == 0 {
		return params, nil, nil, false
	}
	return params, salt, key, true
}
