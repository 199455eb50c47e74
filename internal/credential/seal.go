package credential

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	// ErrInvalidSealedToken is returned when a stored token does not have the sealed format.
	ErrInvalidSealedToken = errors.New("credential: invalid sealed token format")
	// ErrIncompatibleSealVersion is returned for tokens sealed by an unknown version.
	ErrIncompatibleSealVersion = errors.New("credential: incompatible seal version")
	// ErrSealMismatch is returned when a token cannot be opened with the passphrase.
	ErrSealMismatch = errors.New("credential: sealed token does not match passphrase")
)

const sealVersion = 1

// KDFParams configures the argon2id key derivation used for sealing.
type KDFParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
}

// DefaultKDFParams are used by NewSealer.
var DefaultKDFParams = KDFParams{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
}

// Sealer encrypts bearer tokens at rest with a key derived from a passphrase.
// A nil Sealer stores tokens as plain text.
type Sealer struct {
	passphrase []byte
	params     KDFParams
}

// NewSealer returns a sealer for passphrase, or nil when passphrase is empty.
func NewSealer(passphrase string) *Sealer {
	return NewSealerWithParams(passphrase, DefaultKDFParams)
}

// NewSealerWithParams allows tests to use cheaper key derivation.
func NewSealerWithParams(passphrase string, params KDFParams) *Sealer {
	if passphrase == "" {
		return nil
	}
	return &Sealer{passphrase: []byte(passphrase), params: params}
}

// Seal encrypts token. The output format is
// $sealed$v=1$m=...,t=...,p=...$salt$nonce+ciphertext.
func (s *Sealer) Seal(token string) (string, error) {
	if s == nil || token == "" {
		return token, nil
	}

	salt := make([]byte, s.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	gcm, err := s.cipher(salt, s.params)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := gcm.Seal(nonce, nonce, []byte(token), nil)

	format := "$sealed$v=%d$m=%d,t=%d,p=%d$%s$%s"
	return fmt.Sprintf(format, sealVersion, s.params.Memory, s.params.Iterations, s.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sealed),
	), nil
}

// Open reverses Seal. Values that were stored unsealed are returned as is when
// the sealer is nil.
func (s *Sealer) Open(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if !strings.HasPrefix(value, "$sealed$") {
		if s == nil {
			return value, nil
		}
		return "", ErrInvalidSealedToken
	}
	if s == nil {
		return "", ErrSealMismatch
	}

	parts := strings.Split(value, "$")
	if len(parts) != 6 {
		return "", ErrInvalidSealedToken
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return "", ErrInvalidSealedToken
	}
	if version != sealVersion {
		return "", ErrIncompatibleSealVersion
	}

	var params KDFParams
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Iterations, &params.Parallelism); err != nil {
		return "", ErrInvalidSealedToken
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return "", ErrInvalidSealedToken
	}
	sealed, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return "", ErrInvalidSealedToken
	}

	gcm, err := s.cipher(salt, params)
	if err != nil {
		return "", err
	}
	if len(sealed) < gcm.NonceSize() {
		return "", ErrInvalidSealedToken
	}
	plain, err := gcm.Open(nil, sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():], nil)
	if err != nil {
		return "", ErrSealMismatch
	}
	return string(plain), nil
}

func (s *Sealer) cipher(salt []byte, params KDFParams) (cipher.AEAD, error) {
	key := argon2.IDKey(s.passphrase, salt, params.Iterations, params.Memory, params.Parallelism, 32)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
