package rpc_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erc7824/aa-signers/pkg/rpc"
	"github.com/erc7824/aa-signers/pkg/sign"
)

func TestClient_Start(t *testing.T) {
	t.Parallel()

	server := createEchoServer(t, map[string]func(*rpc.Request) *rpc.Response{
		rpc.HandshakeMethod.String(): func(req *rpc.Request) *rpc.Response {
			res := rpc.NewResponse(rpc.NewPayload(req.Req.RequestID, req.Req.Method, req.Req.Params))
			return &res
		},
	})
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	dialer := rpc.NewWebsocketDialer(rpc.DefaultWebsocketDialerConfig)
	client := rpc.NewClient(dialer)

	closed := make(chan struct{})
	err := client.Start(ctx, "ws://"+server.Listener.Addr().String(), func(err error) {
		close(closed)
	})
	require.NoError(t, err)
	assert.True(t, client.IsConnected())

	res, signers, err := client.Handshake(ctx, rpc.HandshakeRequest{Network: "datil-dev"})
	require.NoError(t, err)
	assert.Equal(t, "datil-dev", res.Network)
	assert.Empty(t, signers)

	cancel()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("closure handler was not called")
	}
	assert.False(t, client.IsConnected())
}

func TestClient_StartDialError(t *testing.T) {
	t.Parallel()

	dialer := NewMockDialer()
	dialer.dialErr = errors.New("refused")
	client := rpc.NewClient(dialer)

	err := client.Start(context.Background(), "ws://gateway", func(error) {})
	assert.EqualError(t, err, "refused")
}

func TestClient_Handshake(t *testing.T) {
	t.Parallel()

	dialer := NewMockDialer()
	dialer.RegisterHandler(rpc.HandshakeMethod, func(req *rpc.Request) (*rpc.Response, error) {
		var hs rpc.HandshakeRequest
		if err := req.Req.Params.Translate(&hs); err != nil {
			return nil, err
		}
		return respond(req, rpc.HandshakeMethod, rpc.HandshakeResponse{
			Network: hs.Network,
			Nodes: []rpc.NodeInfo{
				{URL: "https://node-1", Address: "0x01"},
				{URL: "https://node-2", Address: "0x02"},
			},
		})
	})
	client := rpc.NewClient(dialer)

	res, signers, err := client.Handshake(context.Background(), rpc.HandshakeRequest{Network: "datil-test"})
	require.NoError(t, err)
	assert.Empty(t, signers)
	assert.Equal(t, "datil-test", res.Network)
	assert.Len(t, res.Nodes, 2)

	calls := dialer.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "handshake", calls[0].Req.Method)
	assert.NotZero(t, calls[0].Req.RequestID)
}

func TestClient_HandshakeSigners(t *testing.T) {
	t.Parallel()

	node, err := sign.NewEthereumSigner("0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	require.NoError(t, err)

	dialer := NewMockDialer()
	dialer.RegisterHandler(rpc.HandshakeMethod, func(req *rpc.Request) (*rpc.Response, error) {
		res, err := respond(req, rpc.HandshakeMethod, rpc.HandshakeResponse{Network: "datil"})
		if err != nil {
			return nil, err
		}
		hash, err := res.Res.Hash()
		if err != nil {
			return nil, err
		}
		sig, err := node.Sign(hash)
		if err != nil {
			return nil, err
		}
		res.Sig = []sign.Signature{sig}
		return res, nil
	})
	client := rpc.NewClient(dialer)

	_, signers, err := client.Handshake(context.Background(), rpc.HandshakeRequest{Network: "datil"})
	require.NoError(t, err)
	require.Len(t, signers, 1)
	assert.True(t, signers[0].Equals(node.PublicKey().Address()))
}

func TestClient_SignSessionKey(t *testing.T) {
	t.Parallel()

	dialer := NewMockDialer()
	var got rpc.SignSessionKeyRequest
	dialer.RegisterHandler(rpc.SignSessionKeyMethod, func(req *rpc.Request) (*rpc.Response, error) {
		if err := req.Req.Params.Translate(&got); err != nil {
			return nil, err
		}
		return respond(req, rpc.SignSessionKeyMethod, rpc.SignSessionKeyResponse{
			AuthSig:      rpc.AuthSig{Sig: "0xabc", DerivedVia: "web3.eth.personal.sign", Address: "0x01"},
			PKPPublicKey: got.PKPPublicKey,
		})
	})
	client := rpc.NewClient(dialer)

	reqParams := rpc.SignSessionKeyRequest{
		SessionKey:   "0xsession",
		AuthMethods:  []rpc.AuthMethod{{AuthMethodType: 6, AccessToken: "jwt"}},
		PKPPublicKey: "0x04pkp",
		Expiration:   "2030-01-01T00:00:00Z",
		Resources:    []rpc.ResourceAbilityRequest{{Resource: "*", Ability: "pkp-signing"}},
		URI:          "lit:session:0xsession",
	}

	res, _, err := client.SignSessionKey(context.Background(), reqParams)
	require.NoError(t, err)
	assert.Equal(t, "0xabc", res.AuthSig.Sig)
	assert.Equal(t, "0x04pkp", res.PKPPublicKey)
	assert.Equal(t, reqParams, got)
}

func TestClient_PKPSign(t *testing.T) {
	t.Parallel()

	dialer := NewMockDialer()
	dialer.RegisterHandler(rpc.PKPSignMethod, func(req *rpc.Request) (*rpc.Response, error) {
		var ps rpc.PKPSignRequest
		if err := req.Req.Params.Translate(&ps); err != nil {
			return nil, err
		}
		if len(ps.SessionSigs) == 0 {
			return nil, errors.New("missing session signatures")
		}
		return respond(req, rpc.PKPSignMethod, rpc.PKPSignResponse{Signature: sign.Signature(ps.ToSign)})
	})
	client := rpc.NewClient(dialer)

	res, _, err := client.PKPSign(context.Background(), rpc.PKPSignRequest{
		ToSign:      hexutil.Bytes{0xde, 0xad},
		PubKey:      "0x04pkp",
		SessionSigs: map[string]rpc.AuthSig{"https://node-1": {Sig: "0x01"}},
	})
	require.NoError(t, err)
	assert.Equal(t, sign.Signature{0xde, 0xad}, res.Signature)

	_, _, err = client.PKPSign(context.Background(), rpc.PKPSignRequest{ToSign: hexutil.Bytes{0x01}})
	var rpcErr *rpc.Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, "missing session signatures", rpcErr.Error())
}

func TestClient_Errors(t *testing.T) {
	t.Parallel()

	t.Run("method not found", func(t *testing.T) {
		client := rpc.NewClient(NewMockDialer())
		_, _, err := client.Handshake(context.Background(), rpc.HandshakeRequest{Network: "datil"})
		assert.EqualError(t, err, "method not found")
	})

	t.Run("unexpected response method", func(t *testing.T) {
		dialer := NewMockDialer()
		dialer.RegisterHandler(rpc.PKPSignMethod, func(req *rpc.Request) (*rpc.Response, error) {
			return respond(req, rpc.HandshakeMethod, nil)
		})
		client := rpc.NewClient(dialer)

		_, _, err := client.PKPSign(context.Background(), rpc.PKPSignRequest{})
		assert.ErrorIs(t, err, rpc.ErrUnexpectedResponseMethod)
	})

	t.Run("malformed response signature", func(t *testing.T) {
		dialer := NewMockDialer()
		dialer.RegisterHandler(rpc.HandshakeMethod, func(req *rpc.Request) (*rpc.Response, error) {
			res, err := respond(req, rpc.HandshakeMethod, rpc.HandshakeResponse{Network: "datil"})
			if err != nil {
				return nil, err
			}
			res.Sig = []sign.Signature{{0x01, 0x02}}
			return res, nil
		})
		client := rpc.NewClient(dialer)

		_, _, err := client.Handshake(context.Background(), rpc.HandshakeRequest{Network: "datil"})
		assert.ErrorIs(t, err, rpc.ErrInvalidResponseSignature)
	})

	t.Run("transport error", func(t *testing.T) {
		client := rpc.NewClient(rpc.NewWebsocketDialer(rpc.DefaultWebsocketDialerConfig))
		_, _, err := client.PKPSign(context.Background(), rpc.PKPSignRequest{})
		assert.ErrorIs(t, err, rpc.ErrNotConnected)
	})
}

func TestClient_PreparePayload(t *testing.T) {
	t.Parallel()

	client := rpc.NewClient(NewMockDialer())

	a, err := client.PreparePayload(rpc.HandshakeMethod, rpc.HandshakeRequest{Network: "datil"})
	require.NoError(t, err)
	b, err := client.PreparePayload(rpc.HandshakeMethod, nil)
	require.NoError(t, err)

	assert.Equal(t, "handshake", a.Method)
	assert.NotEqual(t, a.RequestID, b.RequestID)

	_, err = client.PreparePayload(rpc.PKPSignMethod, "not an object")
	assert.Error(t, err)
}
