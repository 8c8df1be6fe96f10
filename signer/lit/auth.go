package lit

import (
	litnode "github.com/erc7824/aa-signers/pkg/lit"
)

// AuthContext is the authentication input: either AuthMethodContext or
// SessionSigsContext.
type AuthContext interface {
	isAuthContext()
}

// AuthMethodContext authenticates with raw auth-method material. The signer
// exchanges it for session signatures.
type AuthMethodContext struct {
	AuthMethod litnode.AuthMethod
}

// SessionSigsContext authenticates with session signatures issued earlier.
type SessionSigsContext struct {
	SessionSigs litnode.SessionSigs
}

func (AuthMethodContext) isAuthContext()  {}
func (SessionSigsContext) isAuthContext() {}

type AuthParams struct {
	Context AuthContext
	// SessionKeyPair is generated when nil.
	SessionKeyPair *litnode.SessionKeyPair
	// AuthSig is the wallet signature sent with EthWallet auth methods.
	AuthSig *litnode.AuthSig
	// Chain defaults to DefaultChain.
	Chain string
	// Expiration is an RFC 3339 timestamp; defaults to now plus
	// DefaultSessionExpiration.
	Expiration string
}
