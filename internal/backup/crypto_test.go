package backup

import (
	"bytes"
	"errors"
	"testing"
)

func TestDeriveKeyDeterminism(t *testing.T) {
	salt := []byte("0123456789abcdef")
	k1 := DeriveKey("passphrase", salt)
	k2 := DeriveKey("passphrase", salt)
	if !bytes.Equal(k1, k2) {
		t.Error("same passphrase and salt produced different keys")
	}
	if len(k1) != keySize {
		t.Errorf("key length = %d, want %d", len(k1), keySize)
	}
	if bytes.Equal(k1, DeriveKey("other", salt)) {
		t.Error("different passphrases produced the same key")
	}
}

func TestEncryptDecrypt(t *testing.T) {
	plain := []byte("SQLite format 3\x00 member roster")

	sealed, err := Encrypt(plain, "secret")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if bytes.Contains(sealed, []byte("member roster")) {
		t.Error("ciphertext contains plaintext")
	}

	got, err := Decrypt(sealed, "secret")
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Errorf("decrypted = %q", got)
	}

	again, err := Encrypt(plain, "secret")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if bytes.Equal(sealed[:saltSize], again[:saltSize]) {
		t.Error("salt was reused")
	}
}

func TestDecryptFailures(t *testing.T) {
	sealed, err := Encrypt([]byte("data"), "secret")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	tampered := bytes.Clone(sealed)
	tampered[len(tampered)-1] ^= 0xff

	tests := map[string]struct {
		data       []byte
		passphrase string
	}{
		"wrong passphrase": {sealed, "nope"},
		"tampered":         {tampered, "secret"},
		"too small":        {[]byte("short"), "secret"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Decrypt(tt.data, tt.passphrase); !errors.Is(err, ErrDecrypt) {
				t.Errorf("err = %v, want ErrDecrypt", err)
			}
		})
	}
}

func TestEncryptEmpty(t *testing.T) {
	sealed, err := Encrypt(nil, "secret")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	got, err := Decrypt(sealed, "secret")
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("decrypted %d bytes, want 0", len(got))
	}
}
