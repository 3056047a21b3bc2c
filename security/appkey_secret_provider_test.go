package security

import (
	"bytes"
	"context"
	"testing"
)

func TestAppKeySecretProvider_EncryptDecryptRoundTrip(t *testing.T) {
	provider, err := NewAppKeySecretProviderFromString("super-secret-test-key", WithKeyID("cerm-v1"), WithVersion(3))
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	plaintext := []byte(`{"access_token":"abc123","token_type":"bearer"}`)
	encrypted, err := provider.Encrypt(context.Background(), plaintext)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if bytes.Equal(encrypted, plaintext) {
		t.Fatalf("expected encrypted payload to differ from plaintext")
	}
	if !bytes.HasPrefix(encrypted, []byte(envelopePrefix)) {
		t.Fatalf("expected envelope prefix")
	}
	if bytes.Contains(encrypted, []byte("abc123")) {
		t.Fatalf("expected access token to be hidden in envelope")
	}

	decrypted, err := provider.Decrypt(context.Background(), encrypted)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Fatalf("expected roundtrip plaintext; got %q", string(decrypted))
	}
}

func TestAppKeySecretProvider_RejectsMetadataMismatch(t *testing.T) {
	issuer, err := NewAppKeySecretProviderFromString("super-secret-test-key", WithKeyID("cerm-v1"), WithVersion(1))
	if err != nil {
		t.Fatalf("new issuer provider: %v", err)
	}
	receiver, err := NewAppKeySecretProviderFromString("super-secret-test-key", WithKeyID("cerm-v2"), WithVersion(2))
	if err != nil {
		t.Fatalf("new receiver provider: %v", err)
	}

	encrypted, err := issuer.Encrypt(context.Background(), []byte("payload"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, err := receiver.Decrypt(context.Background(), encrypted); err == nil {
		t.Fatalf("expected metadata mismatch error")
	}
}

func TestAppKeySecretProvider_DigestsOddSizedKeyMaterial(t *testing.T) {
	writer, err := NewAppKeySecretProviderFromString("not an aes sized key")
	if err != nil {
		t.Fatalf("new writer provider: %v", err)
	}
	reader, err := NewAppKeySecretProviderFromString("not an aes sized key")
	if err != nil {
		t.Fatalf("new reader provider: %v", err)
	}

	encrypted, err := writer.Encrypt(context.Background(), []byte("payload"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	decrypted, err := reader.Decrypt(context.Background(), encrypted)
	if err != nil {
		t.Fatalf("decrypt with independently derived key: %v", err)
	}
	if string(decrypted) != "payload" {
		t.Fatalf("expected roundtrip, got %q", decrypted)
	}

	keyID, version := writer.Metadata()
	if keyID != "app-key" || version != 1 {
		t.Fatalf("expected default metadata, got %q/%d", keyID, version)
	}
}

func TestAppKeySecretProvider_RejectsTamperedCiphertext(t *testing.T) {
	provider, err := NewAppKeySecretProviderFromString("super-secret-test-key")
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	encrypted, err := provider.Encrypt(context.Background(), []byte("payload"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	tampered := bytes.Replace(encrypted, []byte(`"alg":"aes-256-gcm"`), []byte(`"alg":"aes-256-gcm","ver":9`), 1)
	if _, err := provider.Decrypt(context.Background(), tampered); err == nil {
		t.Fatalf("expected tampered envelope rejection")
	}
}
