package wallet

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/slpwallet/pkg/crypto"
	"github.com/Klingon-tech/slpwallet/pkg/types"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

// ErrInvalidSecret is returned when a string is neither a valid mnemonic
// nor a valid WIF.
var ErrInvalidSecret = errors.New("invalid mnemonic and invalid wif")

// SecretKind tells how the wallet key was obtained.
type SecretKind string

const (
	SecretMnemonic SecretKind = "mnemonic"
	SecretWIF      SecretKind = "wif"
)

// Secret is the wallet key together with the mnemonic it was derived
// from, if any. A Secret holds either a mnemonic or an imported WIF key,
// never both.
type Secret struct {
	mnemonic string
	xpub     string
	key      *crypto.PrivateKey
}

// NewSecret creates a secret from a fresh mnemonic.
func NewSecret() (*Secret, error) {
	m, err := GenerateMnemonic()
	if err != nil {
		return nil, err
	}
	return SecretFromMnemonic(m)
}

// SecretFromMnemonic derives the wallet key at DerivationPath.
func SecretFromMnemonic(mnemonic string) (*Secret, error) {
	mnemonic = NormalizeMnemonic(mnemonic)
	seed, err := SeedFromMnemonic(mnemonic, "")
	if err != nil {
		return nil, err
	}
	master, err := NewMasterKey(seed)
	if err != nil {
		return nil, err
	}
	child, err := master.DeriveWalletKey()
	if err != nil {
		return nil, fmt.Errorf("derive %s: %w", DerivationPath, err)
	}
	key, err := child.Signer()
	if err != nil {
		return nil, err
	}
	return &Secret{mnemonic: mnemonic, xpub: master.Neuter().String(), key: key}, nil
}

// SecretFromWIF imports a raw private key. Only compressed keys are
// accepted since the address commits to the compressed public key.
func SecretFromWIF(s string) (*Secret, error) {
	wif, err := btcutil.DecodeWIF(s)
	if err != nil {
		return nil, fmt.Errorf("decode wif: %w", err)
	}
	if !wif.CompressPubKey {
		return nil, errors.New("uncompressed wif keys are not supported")
	}
	return &Secret{key: crypto.NewPrivateKey(wif.PrivKey)}, nil
}

// ParseSecret accepts a mnemonic or, failing that, a WIF key.
func ParseSecret(s string) (*Secret, error) {
	if ValidateMnemonic(s) {
		return SecretFromMnemonic(s)
	}
	secret, err := SecretFromWIF(s)
	if err != nil {
		return nil, ErrInvalidSecret
	}
	return secret, nil
}

// Kind reports whether the secret came from a mnemonic or a WIF.
func (s *Secret) Kind() SecretKind {
	if s.mnemonic != "" {
		return SecretMnemonic
	}
	return SecretWIF
}

// Mnemonic returns the mnemonic, or "" for an imported key.
func (s *Secret) Mnemonic() string {
	return s.mnemonic
}

// XPub returns the neutered root key, or "" for an imported key.
func (s *Secret) XPub() string {
	return s.xpub
}

// Path returns the derivation path, or "" for an imported key.
func (s *Secret) Path() string {
	if s.mnemonic == "" {
		return ""
	}
	return DerivationPath
}

// WIF encodes the wallet key for the active network.
func (s *Secret) WIF() string {
	wif, err := btcutil.NewWIF(s.key.Key(), chainParams(), true)
	if err != nil {
		return ""
	}
	return wif.String()
}

// Key returns the signing key.
func (s *Secret) Key() *crypto.PrivateKey {
	return s.key
}

// Address returns the P2PKH address of the wallet key.
func (s *Secret) Address() types.Address {
	return crypto.AddressFromPubKey(s.key.PublicKey())
}

// Export returns the string ParseSecret restores this secret from.
func (s *Secret) Export() string {
	if s.mnemonic != "" {
		return s.mnemonic
	}
	return s.WIF()
}

// chainParams maps the active address prefix to the WIF network.
func chainParams() *chaincfg.Params {
	switch types.GetAddressPrefix() {
	case types.TestnetPrefix:
		return &chaincfg.TestNet3Params
	case types.RegtestPrefix:
		return &chaincfg.RegressionNetParams
	default:
		return &chaincfg.MainNetParams
	}
}
