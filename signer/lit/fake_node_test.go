package lit_test

import (
	"context"
	"math/big"
	"sync"
	"sync/atomic"

	litnode "github.com/erc7824/aa-signers/pkg/lit"
	"github.com/erc7824/aa-signers/pkg/log"
	"github.com/erc7824/aa-signers/pkg/pkp"
	"github.com/erc7824/aa-signers/pkg/sign"
)

// fakeNode stands in for the network. Session signatures are the capability
// returned by the auth callback, keyed by a single node URL; PKP signatures
// are made with a local key.
type fakeNode struct {
	mu sync.Mutex

	ready      bool
	connects   int
	connectErr error

	sessionSigsCalls  int
	sessionSigsParams []litnode.SessionSigsParams
	sessionSigsErr    error
	emptySessionSigs  bool
	// gate, when set, blocks GetSessionSigs until closed.
	gate chan struct{}

	signSessionKeyReqs []litnode.SignSessionKeyParams
	pkp                sign.Signer
}

var _ litnode.NodeClient = (*fakeNode)(nil)

func (n *fakeNode) Connect(context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.connects++
	if n.connectErr != nil {
		return n.connectErr
	}
	n.ready = true
	return nil
}

func (n *fakeNode) Ready() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ready
}

func (n *fakeNode) Disconnect() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ready = false
}

func (n *fakeNode) GetSessionSigs(ctx context.Context, p litnode.SessionSigsParams) (litnode.SessionSigs, error) {
	n.mu.Lock()
	n.sessionSigsCalls++
	n.sessionSigsParams = append(n.sessionSigsParams, p)
	err, empty, gate := n.sessionSigsErr, n.emptySessionSigs, n.gate
	n.mu.Unlock()
	log.FromContext(ctx).Debug("issuing session signatures", "resources", len(p.ResourceAbilityRequests))

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}

	capability, err := p.AuthNeededCallback(ctx, litnode.AuthCallbackParams{
		Chain:                   p.Chain,
		Expiration:              p.Expiration,
		ResourceAbilityRequests: p.ResourceAbilityRequests,
		SessionKeyPair:          *p.SessionKey,
		URI:                     p.SessionKey.URI(),
	})
	if err != nil {
		return nil, err
	}
	if empty {
		return litnode.SessionSigs{}, nil
	}
	return litnode.SessionSigs{"https://node-1": capability}, nil
}

func (n *fakeNode) SignSessionKey(_ context.Context, p litnode.SignSessionKeyParams) (litnode.AuthSig, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.signSessionKeyReqs = append(n.signSessionKeyReqs, p)
	return litnode.AuthSig{Sig: "0xcapability", DerivedVia: "web3.eth.personal.sign", Address: "0xpkp"}, nil
}

func (n *fakeNode) PKPSign(_ context.Context, p litnode.PKPSignParams) (sign.Signature, error) {
	return n.pkp.Sign(p.ToSign)
}

func (n *fakeNode) calls() (connects, sessionSigs, signSessionKey int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.connects, n.sessionSigsCalls, len(n.signSessionKeyReqs)
}

type fakeChain struct{}

func (fakeChain) ChainID(context.Context) (*big.Int, error) { return big.NewInt(1), nil }
func (fakeChain) Close()                                    {}

func dialFakeChain(context.Context, string) (pkp.ChainReader, error) {
	return fakeChain{}, nil
}

// closingChain counts Close calls across every chain it dials.
type closingChain struct {
	closes *atomic.Int32
}

func (closingChain) ChainID(context.Context) (*big.Int, error) { return big.NewInt(1), nil }
func (c closingChain) Close()                                   { c.closes.Add(1) }

func (c closingChain) dial(context.Context, string) (pkp.ChainReader, error) {
	return c, nil
}
