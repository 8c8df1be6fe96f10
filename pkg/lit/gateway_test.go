package lit_test

import (
	"context"
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/erc7824/aa-signers/pkg/lit"
	"github.com/erc7824/aa-signers/pkg/rpc"
	"github.com/erc7824/aa-signers/pkg/sign"
)

// fakeGateway is an in-memory rpc.Dialer answering the gateway methods.
type fakeGateway struct {
	mu        sync.Mutex
	network   string
	nodes     []lit.NodeInfo
	connected bool
	dials     int
	dialErr   error
	pkpSigner sign.Signer

	// nodeKeys sign every successful response unless signers overrides the
	// key list for a method.
	nodeKeys []sign.Signer
	signers  map[rpc.Method][]sign.Signer

	sessionKeyReqs []rpc.SignSessionKeyRequest
	pkpSignReqs    []rpc.PKPSignRequest
	eventCh        chan *rpc.Response
}

var _ rpc.Dialer = (*fakeGateway)(nil)

func newFakeGateway(network string, nodeURLs ...string) *fakeGateway {
	nodes := make([]lit.NodeInfo, 0, len(nodeURLs))
	keys := make([]sign.Signer, 0, len(nodeURLs))
	for _, u := range nodeURLs {
		key := newNodeKey()
		keys = append(keys, key)
		nodes = append(nodes, lit.NodeInfo{URL: u, Address: key.PublicKey().Address().String()})
	}
	return &fakeGateway{
		network:  network,
		nodes:    nodes,
		nodeKeys: keys,
		signers:  make(map[rpc.Method][]sign.Signer),
		eventCh:  make(chan *rpc.Response),
	}
}

func newNodeKey() sign.Signer {
	key, err := crypto.GenerateKey()
	if err != nil {
		panic(err)
	}
	return sign.NewEthereumSignerFromKey(key)
}

// signWith replaces the keys signing responses to method.
func (g *fakeGateway) signWith(method rpc.Method, keys ...sign.Signer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.signers[method] = keys
}

func (g *fakeGateway) Dial(ctx context.Context, url string, handleClosure func(err error)) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.dials++
	if g.dialErr != nil {
		return g.dialErr
	}
	g.connected = true
	gen := g.dials
	go func() {
		<-ctx.Done()
		g.mu.Lock()
		if g.dials == gen {
			g.connected = false
		}
		g.mu.Unlock()
		handleClosure(nil)
	}()
	return nil
}

func (g *fakeGateway) IsConnected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.connected
}

// drop simulates the gateway closing the connection.
func (g *fakeGateway) drop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.connected = false
}

func (g *fakeGateway) EventCh() <-chan *rpc.Response { return g.eventCh }

func (g *fakeGateway) Call(ctx context.Context, req *rpc.Request) (*rpc.Response, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.connected {
		return nil, rpc.ErrNotConnected
	}

	var (
		result any
		err    error
	)
	switch rpc.Method(req.Req.Method) {
	case rpc.HandshakeMethod:
		result = rpc.HandshakeResponse{Network: g.network, Nodes: g.nodes, LatestBlockhash: "0xblock"}
	case rpc.SignSessionKeyMethod:
		var p rpc.SignSessionKeyRequest
		if err = req.Req.Params.Translate(&p); err == nil {
			g.sessionKeyReqs = append(g.sessionKeyReqs, p)
			result = rpc.SignSessionKeyResponse{
				AuthSig:      lit.AuthSig{Sig: "0xcapability", DerivedVia: "web3.eth.personal.sign", Address: "0xpkp"},
				PKPPublicKey: p.PKPPublicKey,
			}
		}
	case rpc.PKPSignMethod:
		var p rpc.PKPSignRequest
		if err = req.Req.Params.Translate(&p); err == nil {
			g.pkpSignReqs = append(g.pkpSignReqs, p)
			if g.pkpSigner == nil {
				err = errors.New("pkp not found")
				break
			}
			var sig sign.Signature
			if sig, err = g.pkpSigner.Sign(p.ToSign); err == nil {
				result = rpc.PKPSignResponse{Signature: sig}
			}
		}
	default:
		err = errors.New("method not found")
	}

	if err != nil {
		res := rpc.NewErrorResponse(req.Req.RequestID, err.Error())
		return &res, nil
	}
	params, err := rpc.NewParams(result)
	if err != nil {
		return nil, err
	}
	res := rpc.NewResponse(rpc.NewPayload(req.Req.RequestID, req.Req.Method, params))

	keys, ok := g.signers[rpc.Method(req.Req.Method)]
	if !ok {
		keys = g.nodeKeys
	}
	hash, err := res.Res.Hash()
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		sig, err := key.Sign(hash)
		if err != nil {
			return nil, err
		}
		res.Sig = append(res.Sig, sig)
	}
	return &res, nil
}
