// Package pkp provides a wallet whose key is a programmable key pair held by
// the key-management network. Signing requests are authorised with session
// signatures; the wallet never sees the private key.
package pkp

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/go-playground/validator/v10"

	"github.com/erc7824/aa-signers/pkg/lit"
	"github.com/erc7824/aa-signers/pkg/log"
	"github.com/erc7824/aa-signers/pkg/sign"
)

var (
	ErrWalletNotInitialized = errors.New("pkp wallet is not initialized")
	ErrSignatureMismatch    = errors.New("signature was not produced by the pkp")
)

// ChainReader is the part of an Ethereum RPC client the wallet needs.
type ChainReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
	Close()
}

// ChainDialer opens a ChainReader for an RPC endpoint.
type ChainDialer func(ctx context.Context, rpcURL string) (ChainReader, error)

// DialChain connects with go-ethereum's ethclient.
func DialChain(ctx context.Context, rpcURL string) (ChainReader, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	return client, nil
}

type WalletConfig struct {
	// PKPPublicKey is the uncompressed secp256k1 public key in hex.
	PKPPublicKey string          `validate:"required"`
	RPCURL       string          `validate:"required,url"`
	SessionSigs  lit.SessionSigs `validate:"required,min=1"`
	Client       lit.NodeClient  `validate:"required"`
	// ChainDialer defaults to DialChain.
	ChainDialer ChainDialer
	Logger      log.Logger
}

type Wallet struct {
	cfg     WalletConfig
	pubKey  sign.EthereumPublicKey
	address sign.Address
	lg      log.Logger

	mu      sync.RWMutex
	chain   ChainReader
	chainID *big.Int
}

func NewWallet(cfg WalletConfig) (*Wallet, error) {
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid pkp wallet config: %w", err)
	}

	pubKey, err := sign.NewEthereumPublicKeyFromHex(cfg.PKPPublicKey)
	if err != nil {
		return nil, fmt.Errorf("invalid pkp public key: %w", err)
	}
	if cfg.ChainDialer == nil {
		cfg.ChainDialer = DialChain
	}

	lg := cfg.Logger
	if lg == nil {
		lg = log.NewNoopLogger()
	}

	address := pubKey.Address()
	return &Wallet{
		cfg:     cfg,
		pubKey:  pubKey,
		address: address,
		lg:      lg.WithName("pkp-wallet").WithKV("address", address.String()),
	}, nil
}

// Init connects the node client if it is not ready and reads the chain ID
// from the RPC endpoint. Calling it again after success does nothing.
func (w *Wallet) Init(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.chain != nil {
		return nil
	}

	if !w.cfg.Client.Ready() {
		if err := w.cfg.Client.Connect(ctx); err != nil {
			return err
		}
	}

	chain, err := w.cfg.ChainDialer(ctx, w.cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("failed to dial chain rpc: %w", err)
	}
	chainID, err := chain.ChainID(ctx)
	if err != nil {
		chain.Close()
		return fmt.Errorf("failed to read chain id: %w", err)
	}

	w.chain = chain
	w.chainID = chainID
	w.lg.Debug("wallet initialized", "chainID", chainID.String())
	return nil
}

func (w *Wallet) Address() sign.Address { return w.address }

// PublicKey returns the PKP public key as configured.
func (w *Wallet) PublicKey() string { return w.cfg.PKPPublicKey }

// ChainID is nil until Init succeeds.
func (w *Wallet) ChainID() *big.Int {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.chainID == nil {
		return nil
	}
	return new(big.Int).Set(w.chainID)
}

// SignMessage signs msg as personal_sign does.
func (w *Wallet) SignMessage(ctx context.Context, msg []byte) (sign.Signature, error) {
	return w.signHash(ctx, sign.HashMessage(msg))
}

// SignTypedData signs the EIP-712 digest of td.
func (w *Wallet) SignTypedData(ctx context.Context, td apitypes.TypedData) (sign.Signature, error) {
	hash, err := sign.HashTypedData(td)
	if err != nil {
		return nil, err
	}
	return w.signHash(ctx, hash)
}

func (w *Wallet) signHash(ctx context.Context, hash []byte) (sign.Signature, error) {
	w.mu.RLock()
	initialized := w.chain != nil
	w.mu.RUnlock()
	if !initialized {
		return nil, ErrWalletNotInitialized
	}

	raw, err := w.cfg.Client.PKPSign(ctx, lit.PKPSignParams{
		ToSign:      hash,
		PubKey:      w.cfg.PKPPublicKey,
		SessionSigs: w.cfg.SessionSigs,
	})
	if err != nil {
		return nil, err
	}

	sig := sign.NormalizeV(raw)
	signer, err := sign.RecoverAddressFromHash(hash, sig)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSignatureMismatch, err)
	}
	if !signer.Equals(w.address) {
		return nil, fmt.Errorf("%w: recovered %s", ErrSignatureMismatch, signer)
	}
	return sig, nil
}

// Close releases the chain RPC client.
func (w *Wallet) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.chain != nil {
		w.chain.Close()
		w.chain = nil
		w.chainID = nil
	}
}
