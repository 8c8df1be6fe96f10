package sign

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Signer produces signatures over 32-byte digests.
type Signer interface {
	PublicKey() PublicKey
	// Sign signs a digest. Callers hash first (see HashMessage and
	// HashTypedData); Sign never hashes.
	Sign(hash []byte) (Signature, error)
}

// PublicKey is a chain-agnostic public key.
type PublicKey interface {
	Address() Address
	Bytes() []byte
}

// Address is a chain-specific account address.
type Address interface {
	fmt.Stringer
	Equals(other Address) bool
}

// Signature is a raw signature. It encodes to JSON as a 0x-prefixed hex
// string.
type Signature []byte

func (s Signature) String() string { return hexutil.Encode(s) }

func (s Signature) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Signature) UnmarshalJSON(data []byte) error {
	var hexStr string
	if err := json.Unmarshal(data, &hexStr); err != nil {
		return err
	}
	decoded, err := hexutil.Decode(hexStr)
	if err != nil {
		return err
	}
	*s = decoded
	return nil
}
