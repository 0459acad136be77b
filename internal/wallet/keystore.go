package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Keystore errors.
var (
	ErrKeystoreExists   = errors.New("keystore already exists")
	ErrKeystoreNotFound = errors.New("keystore not found")
)

// keystoreFile is the on-disk JSON format of the encrypted wallet secret.
type keystoreFile struct {
	Version         int        `json:"version"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	Kind            SecretKind `json:"kind"`
	Address         string     `json:"address"`
	EncryptedSecret []byte     `json:"encrypted_secret"`
}

// Keystore keeps the wallet secret in one encrypted file.
type Keystore struct {
	path   string
	params EncryptionParams
}

// NewKeystore creates a keystore at path. The parent directory is created
// if it doesn't exist.
func NewKeystore(path string, params EncryptionParams) (*Keystore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}
	return &Keystore{path: path, params: params}, nil
}

// Path returns the keystore file path.
func (ks *Keystore) Path() string {
	return ks.path
}

// Exists reports whether the keystore file is present.
func (ks *Keystore) Exists() bool {
	_, err := os.Stat(ks.path)
	return err == nil
}

// Create writes a new keystore. It fails if one already exists.
func (ks *Keystore) Create(secret *Secret, password []byte) error {
	if ks.Exists() {
		return fmt.Errorf("%w: %s", ErrKeystoreExists, ks.path)
	}
	now := time.Now().UTC()
	return ks.write(&keystoreFile{Version: 1, CreatedAt: now}, secret, password)
}

// Save replaces the stored secret, keeping the creation time.
func (ks *Keystore) Save(secret *Secret, password []byte) error {
	kf, err := ks.read()
	if errors.Is(err, ErrKeystoreNotFound) {
		return ks.Create(secret, password)
	}
	if err != nil {
		return err
	}
	return ks.write(kf, secret, password)
}

// Load decrypts the stored secret.
func (ks *Keystore) Load(password []byte) (*Secret, error) {
	kf, err := ks.read()
	if err != nil {
		return nil, err
	}
	plain, err := Decrypt(kf.EncryptedSecret, password)
	if err != nil {
		return nil, fmt.Errorf("decrypt keystore: %w", err)
	}
	defer zero(plain)

	secret, err := ParseSecret(string(plain))
	if err != nil {
		return nil, fmt.Errorf("keystore secret: %w", err)
	}
	return secret, nil
}

// Address returns the stored address without decrypting the secret.
func (ks *Keystore) Address() (string, error) {
	kf, err := ks.read()
	if err != nil {
		return "", err
	}
	return kf.Address, nil
}

func (ks *Keystore) write(kf *keystoreFile, secret *Secret, password []byte) error {
	sealed, err := Encrypt([]byte(secret.Export()), password, ks.params)
	if err != nil {
		return fmt.Errorf("encrypt secret: %w", err)
	}
	kf.UpdatedAt = time.Now().UTC()
	kf.Kind = secret.Kind()
	kf.Address = secret.Address().String()
	kf.EncryptedSecret = sealed

	data, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal keystore: %w", err)
	}
	// Write then rename so a crash never leaves a truncated keystore.
	tmp := ks.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write keystore: %w", err)
	}
	if err := os.Rename(tmp, ks.path); err != nil {
		return fmt.Errorf("replace keystore: %w", err)
	}
	return nil
}

func (ks *Keystore) read() (*keystoreFile, error) {
	data, err := os.ReadFile(ks.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrKeystoreNotFound, ks.path)
	}
	if err != nil {
		return nil, fmt.Errorf("read keystore: %w", err)
	}
	var kf keystoreFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parse keystore: %w", err)
	}
	if kf.Version != 1 {
		return nil, fmt.Errorf("unsupported keystore version: %d", kf.Version)
	}
	return &kf, nil
}
