package security

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/goliatone/go-cerm/core"
)

// Token payloads carry live vendor credentials, so snapshots are sealed
// before they reach the token store. The envelope is versioned JSON
// behind a fixed prefix; the prefix lets a reader tell sealed payloads
// from legacy plaintext rows.
const envelopePrefix = "cerm.secret.v1:"

const envelopeAlgorithm = "aes-256-gcm"

type Option func(*AppKeySecretProvider)

func WithKeyID(id string) Option {
	return func(provider *AppKeySecretProvider) {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			provider.keyID = trimmed
		}
	}
}

func WithVersion(version int) Option {
	return func(provider *AppKeySecretProvider) {
		if version > 0 {
			provider.version = version
		}
	}
}

// AppKeySecretProvider seals token payloads with a single application
// key using AES-256-GCM. Key material of any length is accepted; values
// that are not already AES-sized are digested to 32 bytes.
type AppKeySecretProvider struct {
	aead    cipher.AEAD
	keyID   string
	version int
}

func NewAppKeySecretProvider(keyMaterial []byte, opts ...Option) (*AppKeySecretProvider, error) {
	material := bytes.TrimSpace(keyMaterial)
	if len(material) == 0 {
		return nil, fmt.Errorf("security: key material is required")
	}
	aead, err := newAEAD(material)
	if err != nil {
		return nil, err
	}
	provider := &AppKeySecretProvider{
		aead:    aead,
		keyID:   "app-key",
		version: 1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(provider)
		}
	}
	return provider, nil
}

func NewAppKeySecretProviderFromString(key string, opts ...Option) (*AppKeySecretProvider, error) {
	return NewAppKeySecretProvider([]byte(key), opts...)
}

// sealedPayload is the wire form of an encrypted snapshot. Field names
// are part of the stored format and must not change.
type sealedPayload struct {
	KeyID      string `json:"kid"`
	Version    int    `json:"ver"`
	Algorithm  string `json:"alg"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

func (p *AppKeySecretProvider) Encrypt(_ context.Context, plaintext []byte) ([]byte, error) {
	if p == nil || p.aead == nil {
		return nil, fmt.Errorf("security: secret provider is nil")
	}
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("security: plaintext is required")
	}

	nonce := make([]byte, p.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("security: nonce generation failed: %w", err)
	}

	sealed := sealedPayload{
		KeyID:      p.keyID,
		Version:    p.version,
		Algorithm:  envelopeAlgorithm,
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(p.aead.Seal(nil, nonce, plaintext, nil)),
	}
	encoded, err := json.Marshal(sealed)
	if err != nil {
		return nil, fmt.Errorf("security: encode envelope: %w", err)
	}
	return append([]byte(envelopePrefix), encoded...), nil
}

func (p *AppKeySecretProvider) Decrypt(_ context.Context, ciphertext []byte) ([]byte, error) {
	if p == nil || p.aead == nil {
		return nil, fmt.Errorf("security: secret provider is nil")
	}
	if len(ciphertext) == 0 {
		return nil, fmt.Errorf("security: ciphertext is required")
	}

	sealed, err := p.openEnvelope(ciphertext)
	if err != nil {
		return nil, err
	}

	nonce, err := base64.StdEncoding.DecodeString(sealed.Nonce)
	if err != nil {
		return nil, fmt.Errorf("security: decode nonce: %w", err)
	}
	encrypted, err := base64.StdEncoding.DecodeString(sealed.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("security: decode ciphertext payload: %w", err)
	}

	plaintext, err := p.aead.Open(nil, nonce, encrypted, nil)
	if err != nil {
		return nil, fmt.Errorf("security: decrypt payload: %w", err)
	}
	return plaintext, nil
}

// openEnvelope parses a stored payload and checks its key metadata
// against this provider before any decryption work happens.
func (p *AppKeySecretProvider) openEnvelope(ciphertext []byte) (sealedPayload, error) {
	encoded := strings.TrimPrefix(string(ciphertext), envelopePrefix)

	var sealed sealedPayload
	if err := json.Unmarshal([]byte(encoded), &sealed); err != nil {
		return sealedPayload{}, fmt.Errorf("security: decode envelope: %w", err)
	}
	if sealed.KeyID != "" && sealed.KeyID != p.keyID {
		return sealedPayload{}, fmt.Errorf("security: key id mismatch: got %q want %q", sealed.KeyID, p.keyID)
	}
	if sealed.Version > 0 && sealed.Version != p.version {
		return sealedPayload{}, fmt.Errorf("security: key version mismatch: got %d want %d", sealed.Version, p.version)
	}
	return sealed, nil
}

func (p *AppKeySecretProvider) KeyID() string {
	if p == nil {
		return ""
	}
	return p.keyID
}

func (p *AppKeySecretProvider) Version() int {
	if p == nil {
		return 0
	}
	return p.version
}

// Metadata reports the key id and version the token store records next
// to each encrypted snapshot.
func (p *AppKeySecretProvider) Metadata() (string, int) {
	return p.KeyID(), p.Version()
}

func newAEAD(material []byte) (cipher.AEAD, error) {
	key := material
	switch len(material) {
	case 16, 24, 32:
	default:
		digest := sha256.Sum256(material)
		key = digest[:]
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("security: create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("security: create gcm: %w", err)
	}
	return aead, nil
}

var _ core.SecretProvider = (*AppKeySecretProvider)(nil)
