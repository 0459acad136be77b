package wallet

import (
	"bytes"
	"errors"
	"testing"
)

// fastParams returns low-cost Argon2 params for fast tests.
func fastParams() EncryptionParams {
	return EncryptionParams{
		Memory:      64, // 64 KiB (minimal)
		Iterations:  1,
		Parallelism: 1,
	}
}

func TestEncryptDecrypt_Roundtrip(t *testing.T) {
	for _, plaintext := range [][]byte{{}, []byte(testMnemonic), bytes.Repeat([]byte{0xAB}, 10000)} {
		sealed, err := Encrypt(plaintext, []byte("strong-password-123"), fastParams())
		if err != nil {
			t.Fatalf("Encrypt() error: %v", err)
		}
		opened, err := Decrypt(sealed, []byte("strong-password-123"))
		if err != nil {
			t.Fatalf("Decrypt() error: %v", err)
		}
		if !bytes.Equal(opened, plaintext) {
			t.Errorf("roundtrip of %d bytes failed", len(plaintext))
		}
	}
}

func TestDecrypt_WrongPassword(t *testing.T) {
	sealed, err := Encrypt([]byte("secret data"), []byte("correct"), fastParams())
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}
	if _, err := Decrypt(sealed, []byte("wrong")); !errors.Is(err, ErrWrongPassword) {
		t.Errorf("Decrypt() error = %v, want ErrWrongPassword", err)
	}
}

func TestDecrypt_TruncatedData(t *testing.T) {
	if _, err := Decrypt([]byte("too short"), []byte("pass")); err == nil {
		t.Error("Decrypt with truncated data should fail")
	}
}

func TestDecrypt_CorruptedCiphertext(t *testing.T) {
	sealed, err := Encrypt([]byte("data"), []byte("pass"), fastParams())
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}
	sealed[len(sealed)-1] ^= 0xFF

	if _, err := Decrypt(sealed, []byte("pass")); err == nil {
		t.Error("Decrypt with corrupted ciphertext should fail")
	}
}

func TestDecrypt_HeaderIsAuthenticated(t *testing.T) {
	sealed, err := Encrypt([]byte("data"), []byte("pass"), fastParams())
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}
	// Flip a salt byte: the derived key changes and authentication fails.
	sealed[1] ^= 0x01
	if _, err := Decrypt(sealed, []byte("pass")); err == nil {
		t.Error("Decrypt with a modified header should fail")
	}
}

func TestDecrypt_UnknownVersion(t *testing.T) {
	sealed, err := Encrypt([]byte("data"), []byte("pass"), fastParams())
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}
	sealed[0] = 9
	if _, err := Decrypt(sealed, []byte("pass")); err == nil {
		t.Error("Decrypt with an unknown version should fail")
	}
}

func TestEncrypt_DifferentEachTime(t *testing.T) {
	enc1, _ := Encrypt([]byte("same data"), []byte("same pass"), fastParams())
	enc2, _ := Encrypt([]byte("same data"), []byte("same pass"), fastParams())
	if bytes.Equal(enc1, enc2) {
		t.Error("encrypting same data twice should produce different output (random salt/nonce)")
	}
}

func TestEncrypt_OutputFormat(t *testing.T) {
	sealed, err := Encrypt([]byte("test"), []byte("pass"), fastParams())
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}
	// header + nonce(24) + plaintext + tag(16)
	if want := headerSize + 24 + 4 + 16; len(sealed) != want {
		t.Errorf("sealed length = %d, want %d", len(sealed), want)
	}
	if sealed[0] != sealVersion {
		t.Errorf("version byte = %d, want %d", sealed[0], sealVersion)
	}
}

func TestEncrypt_RejectsZeroParams(t *testing.T) {
	if _, err := Encrypt([]byte("x"), []byte("pass"), EncryptionParams{}); err == nil {
		t.Error("Encrypt with zero params should fail")
	}
}

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	if p.Memory != 64*1024 || p.Iterations != 3 || p.Parallelism != 4 {
		t.Errorf("DefaultParams() = %+v", p)
	}
}
