package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/c-bata/go-prompt"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/term"

	litnode "github.com/erc7824/aa-signers/pkg/lit"
	"github.com/erc7824/aa-signers/pkg/log"
	"github.com/erc7824/aa-signers/pkg/sign"
	"github.com/erc7824/aa-signers/signer"
	"github.com/erc7824/aa-signers/signer/lit"
	"github.com/erc7824/aa-signers/signer/local"
)

// accountSigner is what every command after authentication needs, whichever
// adapter is active.
type accountSigner interface {
	Address(ctx context.Context) (sign.Address, error)
	SignMessage(ctx context.Context, msg []byte) (sign.Signature, error)
	SignTypedData(ctx context.Context, td signer.TypedData) (sign.Signature, error)
}

type Operator struct {
	lit      *lit.Signer // nil when no PKP is configured
	local    *local.Signer
	active   accountSigner
	registry prometheus.Gatherer
	lg       log.Logger

	out        io.Writer
	timeout    time.Duration
	readLine   func(name string) string
	readSecret func() (string, error)

	exitCh chan struct{}
}

func NewOperator(litSigner *lit.Signer, registry prometheus.Gatherer, timeout time.Duration, lg log.Logger) *Operator {
	o := &Operator{
		lit:      litSigner,
		local:    local.New(),
		registry: registry,
		lg:       lg.WithName("operator"),
		out:      os.Stdout,
		timeout:  timeout,
		exitCh:   make(chan struct{}),
	}
	o.readLine = o.readExtraArg
	o.readSecret = readPassword
	return o
}

func (o *Operator) Complete(d prompt.Document) []prompt.Suggest {
	return prompt.FilterHasPrefix(o.complete(d), d.GetWordBeforeCursor(), true)
}

func (o *Operator) complete(d prompt.Document) []prompt.Suggest {
	args := strings.Split(d.TextBeforeCursor(), " ")

	if len(args) < 2 {
		return []prompt.Suggest{
			{Text: "auth", Description: "Authenticate with an auth method, session signatures or a local key"},
			{Text: "details", Description: "Show the authentication details"},
			{Text: "address", Description: "Show the account address"},
			{Text: "sign", Description: "Sign a message (text or 0x hex)"},
			{Text: "sign-typed", Description: "Sign EIP-712 typed data read from a JSON file"},
			{Text: "metrics", Description: "Show signer counters"},
			{Text: "exit", Description: "Exit the application"},
		}
	}

	if len(args) < 3 && args[0] == "auth" {
		return []prompt.Suggest{
			{Text: "token", Description: "Exchange an auth method for session signatures"},
			{Text: "sessions", Description: "Use session signatures from a JSON file"},
			{Text: "local", Description: "Use a local private key"},
		}
	}

	if len(args) < 4 && args[0] == "auth" && args[1] == "token" {
		var suggestions []prompt.Suggest
		for _, t := range []litnode.AuthMethodType{
			litnode.AuthMethodTypeEthWallet,
			litnode.AuthMethodTypeLitAction,
			litnode.AuthMethodTypeWebAuthn,
			litnode.AuthMethodTypeDiscord,
			litnode.AuthMethodTypeGoogle,
			litnode.AuthMethodTypeGoogleJwt,
			litnode.AuthMethodTypeAppleJwt,
			litnode.AuthMethodTypeStytchOtp,
		} {
			suggestions = append(suggestions, prompt.Suggest{
				Text:        strconv.FormatUint(uint64(t), 10),
				Description: t.String(),
			})
		}
		return suggestions
	}

	return nil
}

func (o *Operator) Execute(s string) {
	s = strings.TrimSpace(s)
	args := strings.Fields(s)
	if len(args) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	switch args[0] {
	case "auth":
		o.handleAuth(ctx, args)
	case "details":
		o.handleDetails()
	case "address":
		o.handleAddress(ctx)
	case "sign":
		o.handleSign(ctx, s, args)
	case "sign-typed":
		o.handleSignTyped(ctx, args)
	case "metrics":
		o.handleMetrics()
	case "exit":
		o.exit()
	default:
		fmt.Fprintf(o.out, "Unknown command: %s\n", s)
	}
}

func (o *Operator) Wait() <-chan struct{} {
	return o.exitCh
}

func (o *Operator) exit() {
	select {
	case <-o.exitCh:
	default:
		close(o.exitCh)
	}
}

func (o *Operator) readExtraArg(name string) string {
	return prompt.Input(fmt.Sprintf("{%s}>>> ", name), emptyCompleter,
		prompt.OptionTitle("Lit Signer CLI"),
		prompt.OptionPrefixTextColor(prompt.Yellow),
	)
}

func (o *Operator) handleAuth(ctx context.Context, args []string) {
	if len(args) < 3 && !(len(args) == 2 && args[1] == "local") {
		fmt.Fprintln(o.out, "Usage: auth <token <method-type> <access-token>|sessions <file>|local [private-key]>")
		return
	}
	if o.active != nil {
		fmt.Fprintln(o.out, "Already authenticated.")
		return
	}

	switch args[1] {
	case "token", "sessions":
		if o.lit == nil {
			fmt.Fprintln(o.out, "No PKP configured. Set LIT_PKP_PUBLIC_KEY and LIT_RPC_URL.")
			return
		}
		params, err := o.litAuthParams(args)
		if err != nil {
			fmt.Fprintf(o.out, "Invalid auth input: %s\n", err.Error())
			return
		}
		sigs, err := o.lit.Authenticate(ctx, params)
		if err != nil {
			fmt.Fprintf(o.out, "Authentication failed: %s\n", err.Error())
			return
		}
		o.active = o.lit
		fmt.Fprintf(o.out, "Authenticated with %d session signature(s).\n", len(sigs))
	case "local":
		var privateKey string
		if len(args) > 2 {
			privateKey = args[2]
		} else {
			fmt.Fprintln(o.out, "Paste private key:")
			var err error
			if privateKey, err = o.readSecret(); err != nil {
				fmt.Fprintf(o.out, "Failed to read private key: %s\n", err.Error())
				return
			}
		}
		addr, err := o.local.Authenticate(ctx, local.AuthParams{PrivateKey: privateKey})
		if err != nil {
			fmt.Fprintf(o.out, "Authentication failed: %s\n", err.Error())
			return
		}
		o.active = o.local
		fmt.Fprintf(o.out, "Authenticated as %s.\n", addr.String())
	default:
		fmt.Fprintf(o.out, "Unknown auth type: %s. Use 'token', 'sessions' or 'local'.\n", args[1])
	}
}

func (o *Operator) litAuthParams(args []string) (lit.AuthParams, error) {
	if args[1] == "sessions" {
		var sigs litnode.SessionSigs
		if err := readJSONFile(args[2], &sigs); err != nil {
			return lit.AuthParams{}, err
		}
		return lit.AuthParams{Context: lit.SessionSigsContext{SessionSigs: sigs}}, nil
	}

	if len(args) < 4 {
		return lit.AuthParams{}, fmt.Errorf("usage: auth token <method-type> <access-token>")
	}
	methodType, err := strconv.ParseUint(args[2], 10, 32)
	if err != nil {
		return lit.AuthParams{}, fmt.Errorf("invalid method type %q", args[2])
	}
	params := lit.AuthParams{
		Context: lit.AuthMethodContext{AuthMethod: litnode.AuthMethod{
			AuthMethodType: uint32(methodType),
			AccessToken:    args[3],
		}},
	}

	if litnode.AuthMethodType(methodType) == litnode.AuthMethodTypeEthWallet {
		path := o.readLine("auth sig file")
		var authSig litnode.AuthSig
		if err := readJSONFile(strings.TrimSpace(path), &authSig); err != nil {
			return lit.AuthParams{}, err
		}
		params.AuthSig = &authSig
	}
	return params, nil
}

func (o *Operator) handleDetails() {
	if o.active == nil {
		fmt.Fprintln(o.out, "Not authenticated. Please authenticate first.")
		return
	}

	if o.active == o.local {
		addr, err := o.local.AuthDetails()
		if err != nil {
			fmt.Fprintf(o.out, "Failed to get details: %s\n", err.Error())
			return
		}
		fmt.Fprintf(o.out, "Local key for %s\n", addr.String())
		return
	}

	sigs, err := o.lit.AuthDetails()
	if err != nil {
		fmt.Fprintf(o.out, "Failed to get details: %s\n", err.Error())
		return
	}
	renderSessionSigs(o.out, o.lit.Network(), sigs)
}

func (o *Operator) handleAddress(ctx context.Context) {
	if o.active == nil {
		fmt.Fprintln(o.out, "Not authenticated. Please authenticate first.")
		return
	}

	addr, err := o.active.Address(ctx)
	if err != nil {
		fmt.Fprintf(o.out, "Failed to get address: %s\n", err.Error())
		return
	}
	fmt.Fprintln(o.out, addr.String())
}

func (o *Operator) handleSign(ctx context.Context, line string, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(o.out, "Usage: sign <message>")
		return
	}
	if o.active == nil {
		fmt.Fprintln(o.out, "Not authenticated. Please authenticate first.")
		return
	}

	// Everything after the command is the message, spaces included.
	raw := strings.TrimSpace(strings.TrimPrefix(line, args[0]))
	sig, err := o.active.SignMessage(ctx, signer.ParseMessage(raw))
	if err != nil {
		fmt.Fprintf(o.out, "Failed to sign message: %s\n", err.Error())
		return
	}
	fmt.Fprintln(o.out, sig.String())
}

func (o *Operator) handleSignTyped(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(o.out, "Usage: sign-typed <file>")
		return
	}
	if o.active == nil {
		fmt.Fprintln(o.out, "Not authenticated. Please authenticate first.")
		return
	}

	var td signer.TypedData
	if err := readJSONFile(args[1], &td); err != nil {
		fmt.Fprintf(o.out, "Failed to read typed data: %s\n", err.Error())
		return
	}
	sig, err := o.active.SignTypedData(ctx, td)
	if err != nil {
		fmt.Fprintf(o.out, "Failed to sign typed data: %s\n", err.Error())
		return
	}
	fmt.Fprintln(o.out, sig.String())
}

func (o *Operator) handleMetrics() {
	families, err := o.registry.Gather()
	if err != nil {
		fmt.Fprintf(o.out, "Failed to gather metrics: %s\n", err.Error())
		return
	}
	renderMetrics(o.out, families)
}

func readPassword() (string, error) {
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
