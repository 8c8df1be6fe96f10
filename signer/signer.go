// Package signer defines the account authenticator contract that signer
// adapters implement for the smart-account stack.
//
// An adapter starts unauthenticated. Authenticate exchanges adapter-specific
// input P for authentication details D; after that the adapter can report
// its address and sign.
package signer

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/erc7824/aa-signers/pkg/sign"
)

var (
	// ErrNotAuthenticated is returned when authentication details are
	// requested before Authenticate succeeded, or when an authentication
	// attempt produced no credentials.
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	// ErrSignerNotInitialized is returned by signing operations called before
	// Authenticate succeeded.
	ErrSignerNotInitialized = fmt.Errorf("signer not initialized")
)

// Authenticator is implemented by every signer adapter.
type Authenticator[P, D any] interface {
	Authenticate(ctx context.Context, params P) (D, error)
	AuthDetails() (D, error)
	Address(ctx context.Context) (sign.Address, error)
	SignMessage(ctx context.Context, msg []byte) (sign.Signature, error)
	SignTypedData(ctx context.Context, td TypedData) (sign.Signature, error)
}

// ParseMessage turns user input into message bytes: valid 0x-prefixed hex
// is decoded, anything else is taken as UTF-8 text.
func ParseMessage(s string) []byte {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		if raw, err := hexutil.Decode("0x" + s[2:]); err == nil {
			return raw
		}
	}
	return []byte(s)
}
