package sign

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

var (
	_ Signer    = (*EthereumSigner)(nil)
	_ PublicKey = EthereumPublicKey{}
	_ Address   = EthereumAddress{}
)

// EthereumAddress is an Address backed by common.Address.
type EthereumAddress struct{ common.Address }

func NewEthereumAddress(addr common.Address) EthereumAddress { return EthereumAddress{addr} }

func NewEthereumAddressFromHex(hexAddr string) EthereumAddress {
	return EthereumAddress{common.HexToAddress(hexAddr)}
}

// String returns the EIP-55 checksummed form.
func (a EthereumAddress) String() string { return a.Address.Hex() }

// Equals compares byte-wise against another EthereumAddress and falls back
// to the string form for other implementations.
func (a EthereumAddress) Equals(other Address) bool {
	if o, ok := other.(EthereumAddress); ok {
		return a.Address == o.Address
	}
	return other != nil && strings.EqualFold(a.String(), other.String())
}

// EthereumPublicKey is a secp256k1 public key.
type EthereumPublicKey struct{ *ecdsa.PublicKey }

func NewEthereumPublicKey(pub *ecdsa.PublicKey) EthereumPublicKey { return EthereumPublicKey{pub} }

// NewEthereumPublicKeyFromBytes accepts a 65-byte uncompressed or a 33-byte
// compressed key.
func NewEthereumPublicKeyFromBytes(pubBytes []byte) (EthereumPublicKey, error) {
	var (
		pub *ecdsa.PublicKey
		err error
	)
	switch len(pubBytes) {
	case 33:
		pub, err = ethcrypto.DecompressPubkey(pubBytes)
	default:
		pub, err = ethcrypto.UnmarshalPubkey(pubBytes)
	}
	if err != nil {
		return EthereumPublicKey{}, fmt.Errorf("failed to unmarshal public key: %w", err)
	}
	return EthereumPublicKey{pub}, nil
}

// NewEthereumPublicKeyFromHex parses a hex public key with or without the
// 0x prefix. A 64-byte key without the 0x04 marker is accepted too, which is
// how some key networks report PKP public keys.
func NewEthereumPublicKeyFromHex(pubHex string) (EthereumPublicKey, error) {
	raw, err := hexutil.Decode("0x" + strings.TrimPrefix(strings.TrimSpace(pubHex), "0x"))
	if err != nil {
		return EthereumPublicKey{}, fmt.Errorf("failed to decode public key hex: %w", err)
	}
	if len(raw) == 64 {
		raw = append([]byte{0x04}, raw...)
	}
	return NewEthereumPublicKeyFromBytes(raw)
}

func (p EthereumPublicKey) Address() Address {
	return EthereumAddress{ethcrypto.PubkeyToAddress(*p.PublicKey)}
}

// Bytes returns the 65-byte uncompressed encoding.
func (p EthereumPublicKey) Bytes() []byte { return ethcrypto.FromECDSAPub(p.PublicKey) }

// EthereumSigner signs digests with a local secp256k1 key.
type EthereumSigner struct {
	privateKey *ecdsa.PrivateKey
	publicKey  EthereumPublicKey
}

// NewEthereumSigner parses a hex private key, with or without 0x.
func NewEthereumSigner(privateKeyHex string) (Signer, error) {
	key, err := ethcrypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("could not parse ethereum private key: %w", err)
	}
	return NewEthereumSignerFromKey(key), nil
}

func NewEthereumSignerFromKey(key *ecdsa.PrivateKey) *EthereumSigner {
	return &EthereumSigner{
		privateKey: key,
		publicKey:  EthereumPublicKey{&key.PublicKey},
	}
}

func (s *EthereumSigner) PublicKey() PublicKey { return s.publicKey }

// Sign returns r || s || v with v in {27, 28}.
func (s *EthereumSigner) Sign(hash []byte) (Signature, error) {
	sig, err := ethcrypto.Sign(hash, s.privateKey)
	if err != nil {
		return nil, err
	}
	return NormalizeV(sig), nil
}

// RecoverAddressFromHash recovers the signer of a digest. Both 0/1 and
// 27/28 recovery ids are accepted.
func RecoverAddressFromHash(hash []byte, sig Signature) (Address, error) {
	if len(sig) != 65 {
		return nil, fmt.Errorf("invalid signature length: got %d, want 65", len(sig))
	}
	local := make([]byte, 65)
	copy(local, sig)
	if local[64] >= 27 {
		local[64] -= 27
	}
	pub, err := ethcrypto.SigToPub(hash, local)
	if err != nil {
		return nil, fmt.Errorf("signature recovery failed: %w", err)
	}
	return EthereumAddress{ethcrypto.PubkeyToAddress(*pub)}, nil
}

// NormalizeV returns a copy of a 65-byte signature with v moved from 0/1 to
// 27/28. Other lengths are returned unchanged.
func NormalizeV(sig []byte) Signature {
	out := make(Signature, len(sig))
	copy(out, sig)
	if len(out) == 65 && out[64] < 27 {
		out[64] += 27
	}
	return out
}
