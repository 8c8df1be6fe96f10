// Package local is a signer adapter backed by an in-process secp256k1 key.
// It exists for development and tests, where a PKP network is not at hand.
package local

import (
	"context"
	"sync"

	"github.com/erc7824/aa-signers/pkg/sign"
	"github.com/erc7824/aa-signers/signer"
)

var _ signer.Authenticator[AuthParams, sign.Address] = (*Signer)(nil)

type AuthParams struct {
	// PrivateKey is a hex secp256k1 key, with or without the 0x prefix.
	PrivateKey string
}

type Signer struct {
	mu     sync.RWMutex
	signer sign.Signer
}

func New() *Signer {
	return &Signer{}
}

// Authenticate loads the key. Later calls return the address of the first
// key and ignore params.
func (s *Signer) Authenticate(_ context.Context, params AuthParams) (sign.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.signer != nil {
		return s.signer.PublicKey().Address(), nil
	}
	if params.PrivateKey == "" {
		return nil, signer.ErrNotAuthenticated
	}

	k, err := sign.NewEthereumSigner(params.PrivateKey)
	if err != nil {
		return nil, err
	}
	s.signer = k
	return k.PublicKey().Address(), nil
}

func (s *Signer) AuthDetails() (sign.Address, error) {
	k, err := s.key()
	if err != nil {
		return nil, signer.ErrNotAuthenticated
	}
	return k.PublicKey().Address(), nil
}

func (s *Signer) Address(context.Context) (sign.Address, error) {
	k, err := s.key()
	if err != nil {
		return nil, err
	}
	return k.PublicKey().Address(), nil
}

func (s *Signer) SignMessage(_ context.Context, msg []byte) (sign.Signature, error) {
	k, err := s.key()
	if err != nil {
		return nil, err
	}
	return sign.SignMessage(k, msg)
}

func (s *Signer) SignTypedData(_ context.Context, td signer.TypedData) (sign.Signature, error) {
	k, err := s.key()
	if err != nil {
		return nil, err
	}
	resolved, err := td.Resolve()
	if err != nil {
		return nil, err
	}
	return sign.SignTypedData(k, resolved)
}

func (s *Signer) key() (sign.Signer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.signer == nil {
		return nil, signer.ErrSignerNotInitialized
	}
	return s.signer, nil
}
