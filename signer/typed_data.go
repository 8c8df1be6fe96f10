package signer

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

const eip712DomainType = "EIP712Domain"

var (
	ErrNoPrimaryType        = errors.New("typed data has no primary type candidate")
	ErrAmbiguousPrimaryType = errors.New("typed data primary type is ambiguous")
	ErrUnknownPrimaryType   = errors.New("typed data primary type is not defined")
)

// TypedData is an EIP-712 payload as callers usually hold it: the domain
// type and the primary type may be left out.
type TypedData struct {
	Domain      apitypes.TypedDataDomain  `json:"domain"`
	Types       apitypes.Types            `json:"types"`
	Message     apitypes.TypedDataMessage `json:"message"`
	PrimaryType string                    `json:"primaryType,omitempty"`
}

// Resolve fills in what TypedData may omit. The primary type defaults to the
// only struct type no other type references. EIP712Domain defaults to the
// domain fields that are set, in the standard order.
func (td TypedData) Resolve() (apitypes.TypedData, error) {
	types := make(apitypes.Types, len(td.Types)+1)
	for name, fields := range td.Types {
		types[name] = fields
	}
	if _, ok := types[eip712DomainType]; !ok {
		types[eip712DomainType] = domainFields(td.Domain)
	}

	primary := td.PrimaryType
	if primary == "" {
		var err error
		if primary, err = inferPrimaryType(types); err != nil {
			return apitypes.TypedData{}, err
		}
	} else if _, ok := types[primary]; !ok {
		return apitypes.TypedData{}, fmt.Errorf("%w: %s", ErrUnknownPrimaryType, primary)
	}

	return apitypes.TypedData{
		Types:       types,
		PrimaryType: primary,
		Domain:      td.Domain,
		Message:     td.Message,
	}, nil
}

func domainFields(d apitypes.TypedDataDomain) []apitypes.Type {
	var fields []apitypes.Type
	if d.Name != "" {
		fields = append(fields, apitypes.Type{Name: "name", Type: "string"})
	}
	if d.Version != "" {
		fields = append(fields, apitypes.Type{Name: "version", Type: "string"})
	}
	if d.ChainId != nil {
		fields = append(fields, apitypes.Type{Name: "chainId", Type: "uint256"})
	}
	if d.VerifyingContract != "" {
		fields = append(fields, apitypes.Type{Name: "verifyingContract", Type: "address"})
	}
	if d.Salt != "" {
		fields = append(fields, apitypes.Type{Name: "salt", Type: "bytes32"})
	}
	return fields
}

func inferPrimaryType(types apitypes.Types) (string, error) {
	referenced := make(map[string]bool)
	for _, fields := range types {
		for _, f := range fields {
			referenced[baseType(f.Type)] = true
		}
	}

	var candidates []string
	for name := range types {
		if name != eip712DomainType && !referenced[name] {
			candidates = append(candidates, name)
		}
	}
	sort.Strings(candidates)

	switch len(candidates) {
	case 0:
		return "", ErrNoPrimaryType
	case 1:
		return candidates[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguousPrimaryType, strings.Join(candidates, ", "))
	}
}

// baseType strips array suffixes: "Person[][2]" is "Person".
func baseType(t string) string {
	if i := strings.IndexByte(t, '['); i >= 0 {
		return t[:i]
	}
	return t
}
