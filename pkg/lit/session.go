package lit

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	sessionURIPrefix = "lit:session:"

	SessionSigDerivedVia = "litSessionSignViaNacl"
	SessionSigAlgo       = "ed25519"
)

var (
	ErrInvalidSessionKey  = errors.New("invalid session key")
	ErrInvalidSessionSig  = errors.New("invalid session signature")
	ErrSessionSigExpired  = errors.New("session signature expired")
	ErrUnsupportedSigAlgo = errors.New("unsupported session signature algorithm")
)

// SessionKeyPair is an ed25519 key pair, hex encoded without a 0x prefix.
// SecretKey holds the 64-byte seed||public form.
type SessionKeyPair struct {
	PublicKey string `json:"publicKey"`
	SecretKey string `json:"secretKey"`
}

func GenerateSessionKeyPair() (SessionKeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return SessionKeyPair{}, fmt.Errorf("failed to generate session key: %w", err)
	}
	return SessionKeyPair{
		PublicKey: hex.EncodeToString(pub),
		SecretKey: hex.EncodeToString(priv),
	}, nil
}

// URI returns "lit:session:<public key>".
func (kp SessionKeyPair) URI() string {
	return sessionURIPrefix + kp.PublicKey
}

func (kp SessionKeyPair) Sign(msg []byte) ([]byte, error) {
	secret, err := hex.DecodeString(kp.SecretKey)
	if err != nil || len(secret) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: bad secret key", ErrInvalidSessionKey)
	}
	priv := ed25519.PrivateKey(secret)
	if hex.EncodeToString(priv.Public().(ed25519.PublicKey)) != strings.ToLower(kp.PublicKey) {
		return nil, fmt.Errorf("%w: public key does not match secret key", ErrInvalidSessionKey)
	}
	return ed25519.Sign(priv, msg), nil
}

// SessionMessage is the JSON document each node's session signature
// covers.
type SessionMessage struct {
	SessionKey              string                   `json:"sessionKey"`
	ResourceAbilityRequests []ResourceAbilityRequest `json:"resourceAbilityRequests"`
	Capabilities            []AuthSig                `json:"capabilities"`
	IssuedAt                string                   `json:"issuedAt"`
	Expiration              string                   `json:"expiration"`
	NodeAddress             string                   `json:"nodeAddress"`
}

func signSessionMessage(kp SessionKeyPair, msg SessionMessage) (AuthSig, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return AuthSig{}, fmt.Errorf("failed to encode session message: %w", err)
	}
	sig, err := kp.Sign(data)
	if err != nil {
		return AuthSig{}, err
	}
	return AuthSig{
		Sig:           hex.EncodeToString(sig),
		DerivedVia:    SessionSigDerivedVia,
		SignedMessage: string(data),
		Address:       kp.PublicKey,
		Algo:          SessionSigAlgo,
	}, nil
}

// VerifySessionSig checks the ed25519 signature of a session signature and
// that its message is bound to the signing key and not expired at now.
func VerifySessionSig(sig AuthSig, now time.Time) (SessionMessage, error) {
	if sig.Algo != SessionSigAlgo {
		return SessionMessage{}, fmt.Errorf("%w: %q", ErrUnsupportedSigAlgo, sig.Algo)
	}

	pub, err := hex.DecodeString(sig.Address)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return SessionMessage{}, fmt.Errorf("%w: bad session public key", ErrInvalidSessionSig)
	}
	raw, err := hex.DecodeString(sig.Sig)
	if err != nil {
		return SessionMessage{}, fmt.Errorf("%w: bad signature encoding", ErrInvalidSessionSig)
	}
	if !ed25519.Verify(ed25519.PublicKey(pub), []byte(sig.SignedMessage), raw) {
		return SessionMessage{}, fmt.Errorf("%w: signature mismatch", ErrInvalidSessionSig)
	}

	var msg SessionMessage
	if err := json.Unmarshal([]byte(sig.SignedMessage), &msg); err != nil {
		return SessionMessage{}, fmt.Errorf("%w: %w", ErrInvalidSessionSig, err)
	}
	if !strings.EqualFold(msg.SessionKey, sig.Address) {
		return SessionMessage{}, fmt.Errorf("%w: session key mismatch", ErrInvalidSessionSig)
	}

	exp, err := time.Parse(time.RFC3339, msg.Expiration)
	if err != nil {
		return SessionMessage{}, fmt.Errorf("%w: bad expiration: %w", ErrInvalidSessionSig, err)
	}
	if !now.Before(exp) {
		return SessionMessage{}, fmt.Errorf("%w at %s", ErrSessionSigExpired, msg.Expiration)
	}
	return msg, nil
}
