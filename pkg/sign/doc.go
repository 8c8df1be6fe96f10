// Package sign holds the signing primitives shared by the adapters.
//
// Signer, PublicKey and Address keep key material behind an interface so a
// local key and a remote key network look the same to callers.
// EthereumSigner is the local secp256k1 implementation. HashMessage and
// HashTypedData produce the EIP-191 and EIP-712 digests that every Signer
// expects; Sign never hashes its input.
//
//	signer, err := sign.NewEthereumSigner(privateKeyHex)
//	if err != nil {
//		return err
//	}
//	sig, err := sign.SignMessage(signer, []byte("hello"))
//	if err != nil {
//		return err
//	}
//	addr, err := sign.RecoverMessageAddress([]byte("hello"), sig)
package sign
