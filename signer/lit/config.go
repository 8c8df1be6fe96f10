package lit

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	litnode "github.com/erc7824/aa-signers/pkg/lit"
	"github.com/erc7824/aa-signers/pkg/log"
	"github.com/erc7824/aa-signers/pkg/pkp"
	"github.com/erc7824/aa-signers/pkg/sign"
)

const (
	// DefaultChain is the chain named in session requests when none is given.
	DefaultChain = "ethereum"
	// DefaultSessionExpiration is how long session signatures last when the
	// caller gives no expiration.
	DefaultSessionExpiration = 7 * 24 * time.Hour
	DefaultNetwork           = litnode.DefaultNetwork
)

// Config is fixed at construction.
type Config struct {
	// PKPPublicKey is the hex secp256k1 public key of the PKP to sign with.
	PKPPublicKey string `env:"LIT_PKP_PUBLIC_KEY" validate:"required,pkp_pubkey"`
	// RPCURL is the chain endpoint the wallet reads its chain ID from.
	RPCURL string `env:"LIT_RPC_URL" validate:"required,url"`
	// Network defaults to DefaultNetwork.
	Network string `env:"LIT_NETWORK" env-default:"datil-dev"`
	// GatewayURL is needed only when Inner is nil.
	GatewayURL string `env:"LIT_GATEWAY_URL" validate:"required_without=Inner,omitempty,url"`
	Debug      bool   `env:"LIT_DEBUG"`

	// Inner replaces the network client built from Network, GatewayURL and
	// Debug.
	Inner litnode.NodeClient `env:"-"`
	// ChainDialer defaults to pkp.DialChain.
	ChainDialer pkp.ChainDialer `env:"-"`
	Logger      log.Logger      `env:"-"`
	// Registerer receives the signer metrics. Nil leaves them unregistered.
	Registerer     prometheus.Registerer `env:"-"`
	TracerProvider trace.TracerProvider  `env:"-"`
	// Now defaults to time.Now.
	Now func() time.Time `env:"-"`
}

func getValidator() *validator.Validate {
	validate := validator.New()

	if err := validate.RegisterValidation("pkp_pubkey", func(fl validator.FieldLevel) bool {
		_, err := sign.NewEthereumPublicKeyFromHex(fl.Field().String())
		return err == nil
	}); err != nil {
		panic(fmt.Sprintf("failed to register pkp_pubkey validation: %v", err))
	}
	return validate
}

func (c Config) validate() error {
	if err := getValidator().Struct(c); err != nil {
		return fmt.Errorf("invalid lit signer config: %w", err)
	}
	return nil
}
