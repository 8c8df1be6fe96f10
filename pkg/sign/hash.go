package sign

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// HashMessage returns the EIP-191 personal_sign digest of msg.
func HashMessage(msg []byte) []byte {
	return accounts.TextHash(msg)
}

// HashTypedData returns the EIP-712 digest of td.
func HashTypedData(td apitypes.TypedData) ([]byte, error) {
	hash, _, err := apitypes.TypedDataAndHash(td)
	if err != nil {
		return nil, fmt.Errorf("failed to hash typed data: %w", err)
	}
	return hash, nil
}

// SignMessage signs msg the way personal_sign does.
func SignMessage(s Signer, msg []byte) (Signature, error) {
	return s.Sign(HashMessage(msg))
}

// SignTypedData signs the EIP-712 digest of td.
func SignTypedData(s Signer, td apitypes.TypedData) (Signature, error) {
	hash, err := HashTypedData(td)
	if err != nil {
		return nil, err
	}
	return s.Sign(hash)
}

// RecoverMessageAddress recovers the signer of a personal_sign signature.
func RecoverMessageAddress(msg []byte, sig Signature) (Address, error) {
	return RecoverAddressFromHash(HashMessage(msg), sig)
}

// RecoverTypedDataAddress recovers the signer of an EIP-712 signature.
func RecoverTypedDataAddress(td apitypes.TypedData, sig Signature) (Address, error) {
	hash, err := HashTypedData(td)
	if err != nil {
		return nil, err
	}
	return RecoverAddressFromHash(hash, sig)
}
