// Package lit is the Lit-Protocol signer adapter. It authenticates a user
// against the key-management network, keeps the resulting session
// signatures, and signs through a PKP wallet built from them.
//
//	s, err := lit.New(lit.Config{
//	    PKPPublicKey: pkpPublicKey,
//	    RPCURL:       "https://rpc.example",
//	    GatewayURL:   "wss://gateway.example/ws",
//	})
//	if err != nil {
//	    return err
//	}
//	_, err = s.Authenticate(ctx, lit.AuthParams{
//	    Context: lit.AuthMethodContext{AuthMethod: authMethod},
//	})
//	sig, err := s.SignMessage(ctx, []byte("hello"))
package lit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	litnode "github.com/erc7824/aa-signers/pkg/lit"
	"github.com/erc7824/aa-signers/pkg/log"
	"github.com/erc7824/aa-signers/pkg/pkp"
	"github.com/erc7824/aa-signers/pkg/sign"
	"github.com/erc7824/aa-signers/signer"
)

const tracerName = "github.com/erc7824/aa-signers/signer/lit"

var (
	ErrUnsupportedAuthContext = errors.New("unsupported auth context")
	// ErrMissingAuthSig is returned for EthWallet auth methods without an
	// AuthSig.
	ErrMissingAuthSig = errors.New("auth sig is required for eth wallet auth method")
)

var _ signer.Authenticator[AuthParams, litnode.SessionSigs] = (*Signer)(nil)

// state is unauthenticated or authenticated.
type state interface {
	isState()
}

type unauthenticated struct{}

type authenticated struct {
	sessionSigs litnode.SessionSigs
	wallet      *pkp.Wallet
}

func (unauthenticated) isState() {}
func (authenticated) isState()   {}

// Signer implements signer.Authenticator for PKPs. Authenticate runs at most
// one acquisition at a time; once it succeeds the credentials are kept until
// Close.
type Signer struct {
	cfg       Config
	inner     litnode.NodeClient
	ownsInner bool
	lg      log.Logger
	tracer  trace.Tracer
	metrics *metrics
	now     func() time.Time

	authMu sync.Mutex // held for the whole of Authenticate
	mu     sync.RWMutex
	state  state
}

func New(cfg Config) (*Signer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Network == "" {
		cfg.Network = DefaultNetwork
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNoopLogger()
	}
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	lg := cfg.Logger.WithName("lit-signer").WithKV("network", cfg.Network)

	inner, ownsInner := cfg.Inner, cfg.Inner == nil
	if ownsInner {
		client, err := litnode.NewClient(litnode.Config{
			Network: cfg.Network,
			URL:     cfg.GatewayURL,
			Debug:   cfg.Debug,
		}, litnode.WithLogger(cfg.Logger), litnode.WithClock(cfg.Now))
		if err != nil {
			return nil, err
		}
		inner = client
	}

	m, err := newMetrics(cfg.Registerer)
	if err != nil {
		return nil, err
	}

	return &Signer{
		cfg:       cfg,
		inner:     inner,
		ownsInner: ownsInner,
		lg:        lg,
		tracer:    cfg.TracerProvider.Tracer(tracerName),
		metrics:   m,
		now:       cfg.Now,
		state:     unauthenticated{},
	}, nil
}

func (s *Signer) Network() string      { return s.cfg.Network }
func (s *Signer) PKPPublicKey() string { return s.cfg.PKPPublicKey }

func (s *Signer) IsAuthenticated() bool {
	_, ok := s.current().(authenticated)
	return ok
}

// Authenticate returns the stored session signatures if the signer is
// already authenticated. Otherwise it acquires them from params, builds the
// PKP wallet and initialises it. Errors from the network are returned as
// they are, and leave the signer unauthenticated.
func (s *Signer) Authenticate(ctx context.Context, params AuthParams) (litnode.SessionSigs, error) {
	s.authMu.Lock()
	defer s.authMu.Unlock()

	if st, ok := s.current().(authenticated); ok {
		return st.sessionSigs, nil
	}

	kind := contextKind(params.Context)
	ctx, span := s.tracer.Start(ctx, "lit.Signer.Authenticate", trace.WithAttributes(
		attribute.String("lit.network", s.cfg.Network),
		attribute.String("lit.auth_context", kind),
	))
	defer span.End()
	lg := log.NewSpanLogger(s.lg, log.NewOtelSpanEventRecorder(span))
	ctx = log.SetContextLogger(ctx, s.lg)

	sessionSigs, wallet, err := s.authenticate(ctx, params)
	s.metrics.observeAuth(kind, err)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		lg.Warn("authentication failed", "context", kind, "error", err)
		return nil, err
	}

	s.setState(authenticated{sessionSigs: sessionSigs, wallet: wallet})
	lg.Info("authenticated", "context", kind, "nodes", len(sessionSigs), "address", wallet.Address().String())
	return sessionSigs, nil
}

func (s *Signer) authenticate(ctx context.Context, params AuthParams) (litnode.SessionSigs, *pkp.Wallet, error) {
	var (
		sessionSigs litnode.SessionSigs
		err         error
	)
	switch c := params.Context.(type) {
	case AuthMethodContext:
		sessionSigs, err = s.sessionSigsFromAuthMethod(ctx, c.AuthMethod, params)
	case *AuthMethodContext:
		if c == nil {
			return nil, nil, ErrUnsupportedAuthContext
		}
		sessionSigs, err = s.sessionSigsFromAuthMethod(ctx, c.AuthMethod, params)
	case SessionSigsContext:
		sessionSigs = c.SessionSigs
	case *SessionSigsContext:
		if c == nil {
			return nil, nil, ErrUnsupportedAuthContext
		}
		sessionSigs = c.SessionSigs
	default:
		return nil, nil, ErrUnsupportedAuthContext
	}
	if err != nil {
		return nil, nil, err
	}
	if len(sessionSigs) == 0 {
		return nil, nil, signer.ErrNotAuthenticated
	}

	wallet, err := pkp.NewWallet(pkp.WalletConfig{
		PKPPublicKey: s.cfg.PKPPublicKey,
		RPCURL:       s.cfg.RPCURL,
		SessionSigs:  sessionSigs,
		Client:       s.inner,
		ChainDialer:  s.cfg.ChainDialer,
		Logger:       s.cfg.Logger,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := wallet.Init(ctx); err != nil {
		return nil, nil, err
	}
	return sessionSigs, wallet, nil
}

// Close drops the credentials and closes the wallet's chain connection. The
// network client is disconnected only when New built it; a client passed in
// Config.Inner stays with its owner. The signer can authenticate again after
// Close.
func (s *Signer) Close() {
	s.authMu.Lock()
	defer s.authMu.Unlock()

	if st, ok := s.current().(authenticated); ok {
		st.wallet.Close()
	}
	s.setState(unauthenticated{})
	if s.ownsInner {
		s.inner.Disconnect()
	}
	s.lg.Debug("closed")
}

// sessionSigsFromAuthMethod connects if needed and asks the network for
// session signatures with PKP signing rights on every resource.
func (s *Signer) sessionSigsFromAuthMethod(ctx context.Context, method litnode.AuthMethod, params AuthParams) (litnode.SessionSigs, error) {
	ethWallet := litnode.AuthMethodType(method.AuthMethodType) == litnode.AuthMethodTypeEthWallet
	if ethWallet && params.AuthSig == nil {
		return nil, ErrMissingAuthSig
	}

	if !s.inner.Ready() {
		if err := s.inner.Connect(ctx); err != nil {
			return nil, err
		}
	}

	sessionKey := params.SessionKeyPair
	if sessionKey == nil {
		kp, err := litnode.GenerateSessionKeyPair()
		if err != nil {
			return nil, err
		}
		sessionKey = &kp
	}
	chain := params.Chain
	if chain == "" {
		chain = DefaultChain
	}
	expiration := params.Expiration
	if expiration == "" {
		expiration = s.now().UTC().Add(DefaultSessionExpiration).Format(time.RFC3339)
	}

	authNeeded := func(ctx context.Context, cb litnode.AuthCallbackParams) (litnode.AuthSig, error) {
		req := litnode.SignSessionKeyParams{
			AuthMethods:  []litnode.AuthMethod{method},
			PKPPublicKey: s.cfg.PKPPublicKey,
			Expiration:   cb.Expiration,
			Resources:    cb.ResourceAbilityRequests,
			URI:          cb.URI,
		}
		if ethWallet {
			req.AuthSig = params.AuthSig
		} else {
			kp := cb.SessionKeyPair
			req.SessionKey = &kp
		}
		return s.inner.SignSessionKey(ctx, req)
	}

	return s.inner.GetSessionSigs(ctx, litnode.SessionSigsParams{
		Chain:      chain,
		Expiration: expiration,
		ResourceAbilityRequests: []litnode.ResourceAbilityRequest{
			{Resource: litnode.ResourceAny, Ability: litnode.AbilityPKPSigning},
		},
		SessionKey:         sessionKey,
		AuthNeededCallback: authNeeded,
	})
}

// AuthDetails returns the session signatures from Authenticate.
func (s *Signer) AuthDetails() (litnode.SessionSigs, error) {
	st, ok := s.current().(authenticated)
	if !ok {
		return nil, signer.ErrNotAuthenticated
	}
	return st.sessionSigs, nil
}

func (s *Signer) Address(ctx context.Context) (sign.Address, error) {
	wallet, err := s.wallet()
	if err != nil {
		return nil, err
	}
	return wallet.Address(), nil
}

func (s *Signer) SignMessage(ctx context.Context, msg []byte) (sign.Signature, error) {
	wallet, err := s.wallet()
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "lit.Signer.SignMessage")
	defer span.End()

	sig, err := wallet.SignMessage(ctx, msg)
	s.observeSign(span, "message", err)
	return sig, err
}

func (s *Signer) SignTypedData(ctx context.Context, td signer.TypedData) (sign.Signature, error) {
	wallet, err := s.wallet()
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "lit.Signer.SignTypedData")
	defer span.End()

	resolved, err := td.Resolve()
	if err != nil {
		s.observeSign(span, "typed_data", err)
		return nil, err
	}
	span.SetAttributes(attribute.String("eip712.primary_type", resolved.PrimaryType))

	sig, err := wallet.SignTypedData(ctx, resolved)
	s.observeSign(span, "typed_data", err)
	return sig, err
}

func (s *Signer) observeSign(span trace.Span, kind string, err error) {
	s.metrics.observeSign(kind, err)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.lg.Warn("signing failed", "kind", kind, "error", err)
	}
}

// wallet is the guard in front of every signing operation.
func (s *Signer) wallet() (*pkp.Wallet, error) {
	switch st := s.current().(type) {
	case authenticated:
		return st.wallet, nil
	case unauthenticated:
		return nil, signer.ErrSignerNotInitialized
	default:
		panic(fmt.Sprintf("lit signer in unknown state %T", st))
	}
}

func (s *Signer) current() state {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Signer) setState(st state) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

func contextKind(c AuthContext) string {
	switch c.(type) {
	case AuthMethodContext, *AuthMethodContext:
		return "auth_method"
	case SessionSigsContext, *SessionSigsContext:
		return "session_sigs"
	default:
		return "unknown"
	}
}
