package lit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"

	"github.com/erc7824/aa-signers/pkg/log"
	"github.com/erc7824/aa-signers/pkg/rpc"
	"github.com/erc7824/aa-signers/pkg/sign"
)

const clientVersion = "aa-signers/1"

var (
	ErrNotReady            = errors.New("lit node client is not ready")
	ErrNetworkMismatch     = errors.New("gateway network does not match")
	ErrNoNodes             = errors.New("no nodes available")
	ErrMissingAuthCallback = errors.New("auth needed callback is required")
	ErrNoResourceAbilities = errors.New("resource ability requests are required")
	ErrMissingPKPPublicKey = errors.New("pkp public key is required")
	ErrMissingSessionSigs  = errors.New("session signatures are required")
	ErrMissingToSign       = errors.New("nothing to sign")
	ErrInvalidNodeAddress  = errors.New("invalid node address")
	ErrUnsignedResponse    = errors.New("gateway response is not signed")
	ErrUntrustedSigner     = errors.New("gateway response signed by a key outside the node set")
)

// NodeClient is the key-management network client the signer and the wallet
// depend on.
type NodeClient interface {
	Connect(ctx context.Context) error
	Ready() bool
	Disconnect()
	GetSessionSigs(ctx context.Context, params SessionSigsParams) (SessionSigs, error)
	SignSessionKey(ctx context.Context, params SignSessionKeyParams) (AuthSig, error)
	PKPSign(ctx context.Context, params PKPSignParams) (sign.Signature, error)
}

var _ NodeClient = (*Client)(nil)

type Config struct {
	Network string `env:"LIT_NETWORK" env-default:"datil-dev" validate:"required"`
	// URL is the gateway websocket endpoint.
	URL string `env:"LIT_GATEWAY_URL" validate:"required,url"`
	// Debug logs gateway exchanges at info level.
	Debug  bool                      `env:"LIT_DEBUG"`
	Dialer rpc.WebsocketDialerConfig
}

// Option customises a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(lg log.Logger) Option {
	return func(c *Client) { c.lg = lg }
}

// WithDialerFactory replaces the websocket dialer created on every Connect.
func WithDialerFactory(newDialer func() rpc.Dialer) Option {
	return func(c *Client) { c.newDialer = newDialer }
}

// WithClock overrides the time source used for issuance and default
// expirations.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// Client talks to the network through a gateway. It is safe for concurrent
// use; Connect may be called again after the connection drops.
type Client struct {
	cfg       Config
	lg        log.Logger
	newDialer func() rpc.Dialer
	now       func() time.Time

	mu   sync.RWMutex
	conn *connection
}

type connection struct {
	rpc             *rpc.Client
	cancel          context.CancelFunc
	nodes           []NodeInfo
	nodeKeys        map[common.Address]struct{}
	latestBlockhash string
}

// verify accepts responses signed only by keys from the handshake node set.
func (c *connection) verify(method rpc.Method, signers []sign.Address) error {
	return verifySigners(c.nodeKeys, method, signers)
}

func verifySigners(nodeKeys map[common.Address]struct{}, method rpc.Method, signers []sign.Address) error {
	if len(signers) == 0 {
		return fmt.Errorf("%w: %s", ErrUnsignedResponse, method)
	}
	for _, s := range signers {
		if _, ok := nodeKeys[common.HexToAddress(s.String())]; !ok {
			return fmt.Errorf("%w: %s signed by %s", ErrUntrustedSigner, method, s)
		}
	}
	return nil
}

func nodeKeySet(nodes []NodeInfo) (map[common.Address]struct{}, error) {
	if len(nodes) == 0 {
		return nil, ErrNoNodes
	}
	keys := make(map[common.Address]struct{}, len(nodes))
	for _, n := range nodes {
		if !common.IsHexAddress(n.Address) {
			return nil, fmt.Errorf("%w: %q for %s", ErrInvalidNodeAddress, n.Address, n.URL)
		}
		keys[common.HexToAddress(n.Address)] = struct{}{}
	}
	return keys, nil
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.Network == "" {
		cfg.Network = DefaultNetwork
	}
	if cfg.Dialer == (rpc.WebsocketDialerConfig{}) {
		cfg.Dialer = rpc.DefaultWebsocketDialerConfig
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid lit client config: %w", err)
	}

	c := &Client{
		cfg: cfg,
		lg:  log.NewNoopLogger(),
		now: time.Now,
	}
	c.newDialer = func() rpc.Dialer { return rpc.NewWebsocketDialer(c.cfg.Dialer) }
	for _, opt := range opts {
		opt(c)
	}
	c.lg = c.lg.WithName("lit-client").WithKV("network", cfg.Network)
	return c, nil
}

func (c *Client) Network() string { return c.cfg.Network }

// Connect dials the gateway and performs the handshake. It is a no-op when
// already connected. The handshake must be signed by nodes it announces;
// those node keys are then the only accepted response signers. The
// connection outlives ctx; Disconnect closes it.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		if c.conn.rpc.IsConnected() {
			return nil
		}
		c.conn.cancel()
		c.conn = nil
	}

	connCtx, cancel := context.WithCancel(log.SetContextLogger(context.WithoutCancel(ctx), c.lg))
	rpcClient := rpc.NewClient(c.newDialer())
	err := rpcClient.Start(connCtx, c.cfg.URL, func(err error) {
		if err != nil {
			c.lg.Warn("gateway connection closed", "error", err)
		}
	})
	if err != nil {
		cancel()
		return err
	}

	res, signers, err := rpcClient.Handshake(ctx, rpc.HandshakeRequest{
		Network:       c.cfg.Network,
		ClientVersion: clientVersion,
	})
	if err != nil {
		cancel()
		return fmt.Errorf("handshake failed: %w", err)
	}
	if res.Network != c.cfg.Network {
		cancel()
		return fmt.Errorf("%w: want %s, got %s", ErrNetworkMismatch, c.cfg.Network, res.Network)
	}
	nodeKeys, err := nodeKeySet(res.Nodes)
	if err != nil {
		cancel()
		return err
	}
	if err := verifySigners(nodeKeys, rpc.HandshakeMethod, signers); err != nil {
		cancel()
		return err
	}

	c.conn = &connection{
		rpc:             rpcClient,
		cancel:          cancel,
		nodes:           res.Nodes,
		nodeKeys:        nodeKeys,
		latestBlockhash: res.LatestBlockhash,
	}

	c.debug("connected", "url", c.cfg.URL, "nodes", len(res.Nodes))
	return nil
}

// Ready reports whether a handshake succeeded and the connection is up.
func (c *Client) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.conn != nil && c.conn.rpc.IsConnected()
}

func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return
	}
	c.conn.cancel()
	c.conn = nil
	c.debug("disconnected")
}

// Nodes returns the node set from the last handshake.
func (c *Client) Nodes() []NodeInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.conn == nil {
		return nil
	}
	return append([]NodeInfo(nil), c.conn.nodes...)
}

func (c *Client) LatestBlockhash() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.conn == nil {
		return ""
	}
	return c.conn.latestBlockhash
}

// GetSessionSigs obtains a capability for the session key through the
// callback, then issues one session signature per node.
func (c *Client) GetSessionSigs(ctx context.Context, params SessionSigsParams) (SessionSigs, error) {
	conn, err := c.connection()
	if err != nil {
		return nil, err
	}
	if params.AuthNeededCallback == nil {
		return nil, ErrMissingAuthCallback
	}
	if len(params.ResourceAbilityRequests) == 0 {
		return nil, ErrNoResourceAbilities
	}

	var keyPair SessionKeyPair
	if params.SessionKey != nil {
		keyPair = *params.SessionKey
	} else if keyPair, err = GenerateSessionKeyPair(); err != nil {
		return nil, err
	}

	now := c.now().UTC()
	chain := params.Chain
	if chain == "" {
		chain = DefaultChain
	}
	expiration := params.Expiration
	if expiration == "" {
		expiration = now.Add(DefaultSessionExpiration).Format(time.RFC3339)
	}

	capability, err := params.AuthNeededCallback(ctx, AuthCallbackParams{
		Chain:                   chain,
		Expiration:              expiration,
		ResourceAbilityRequests: params.ResourceAbilityRequests,
		SessionKeyPair:          keyPair,
		URI:                     keyPair.URI(),
	})
	if err != nil {
		return nil, err
	}

	sigs := make(SessionSigs, len(conn.nodes))
	for _, node := range conn.nodes {
		sig, err := signSessionMessage(keyPair, SessionMessage{
			SessionKey:              keyPair.PublicKey,
			ResourceAbilityRequests: params.ResourceAbilityRequests,
			Capabilities:            []AuthSig{capability},
			IssuedAt:                now.Format(time.RFC3339),
			Expiration:              expiration,
			NodeAddress:             node.URL,
		})
		if err != nil {
			return nil, err
		}
		sigs[node.URL] = sig
	}

	c.debug("issued session signatures", "nodes", len(sigs), "expiration", expiration, "chain", chain)
	return sigs, nil
}

func (c *Client) SignSessionKey(ctx context.Context, params SignSessionKeyParams) (AuthSig, error) {
	conn, err := c.connection()
	if err != nil {
		return AuthSig{}, err
	}
	if params.PKPPublicKey == "" {
		return AuthSig{}, ErrMissingPKPPublicKey
	}

	req := rpc.SignSessionKeyRequest{
		AuthMethods:  params.AuthMethods,
		AuthSig:      params.AuthSig,
		PKPPublicKey: params.PKPPublicKey,
		Expiration:   params.Expiration,
		Resources:    params.Resources,
		URI:          params.URI,
	}
	if params.SessionKey != nil {
		req.SessionKey = params.SessionKey.PublicKey
		if req.URI == "" {
			req.URI = params.SessionKey.URI()
		}
	}

	res, signers, err := conn.rpc.SignSessionKey(ctx, req)
	if err != nil {
		return AuthSig{}, err
	}
	if err := conn.verify(rpc.SignSessionKeyMethod, signers); err != nil {
		return AuthSig{}, err
	}
	c.debug("session key signed", "authMethods", len(params.AuthMethods), "withAuthSig", params.AuthSig != nil)
	return res.AuthSig, nil
}

func (c *Client) PKPSign(ctx context.Context, params PKPSignParams) (sign.Signature, error) {
	conn, err := c.connection()
	if err != nil {
		return nil, err
	}
	if len(params.ToSign) == 0 {
		return nil, ErrMissingToSign
	}
	if params.PubKey == "" {
		return nil, ErrMissingPKPPublicKey
	}
	if len(params.SessionSigs) == 0 {
		return nil, ErrMissingSessionSigs
	}

	res, signers, err := conn.rpc.PKPSign(ctx, rpc.PKPSignRequest{
		ToSign:      params.ToSign,
		PubKey:      params.PubKey,
		SessionSigs: params.SessionSigs,
	})
	if err != nil {
		return nil, err
	}
	if err := conn.verify(rpc.PKPSignMethod, signers); err != nil {
		return nil, err
	}
	return res.Signature, nil
}

func (c *Client) connection() (*connection, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.conn == nil || !c.conn.rpc.IsConnected() {
		return nil, ErrNotReady
	}
	return c.conn, nil
}

func (c *Client) debug(msg string, keysAndValues ...any) {
	if c.cfg.Debug {
		c.lg.Info(msg, keysAndValues...)
		return
	}
	c.lg.Debug(msg, keysAndValues...)
}
