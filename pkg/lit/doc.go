// Package lit is a client for a Lit-style distributed key-management
// network.
//
// The network holds programmable key pairs (PKPs). A caller proves its
// identity with an auth method, gets the PKP to sign a capability for a
// locally generated ed25519 session key, and then uses per-node session
// signatures made with that key to authorise PKP signing requests.
//
//	client, err := lit.NewClient(lit.Config{URL: "wss://gateway.example/ws"})
//	if err != nil {
//	    return err
//	}
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	sigs, err := client.GetSessionSigs(ctx, lit.SessionSigsParams{
//	    ResourceAbilityRequests: []lit.ResourceAbilityRequest{{Resource: lit.ResourceAny, Ability: lit.AbilityPKPSigning}},
//	    AuthNeededCallback:      callback,
//	})
package lit
