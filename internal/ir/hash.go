package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for a future algorithm change.
const (
	DomainFact       = "rete/fact/v1"
	DomainBinding    = "rete/binding/v1"
	DomainActivation = "rete/activation/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator keeps domain and data from running together.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// FactID computes a content-addressed ID for a fact asserted at seq.
// Two structurally equal facts asserted at different seqs get different IDs,
// so fact identity stays distinct from fact content.
func FactID(fields IRArray, seq int64) (string, error) {
	canonical, err := MarshalCanonical(IRObject{
		"fields": fields,
		"seq":    IRInt(seq),
	})
	if err != nil {
		return "", fmt.Errorf("FactID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainFact, canonical), nil
}

// BindingHash hashes a variable binding. Used to index activations
// in the journal and to compare traces independent of map order.
func BindingHash(binding IRObject) (string, error) {
	canonical, err := MarshalCanonical(binding)
	if err != nil {
		return "", fmt.Errorf("BindingHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainBinding, canonical), nil
}

// ActivationID identifies one rule instantiation: the rule plus the ordered
// fact IDs that satisfied its patterns. An activation and its later
// retraction share the same ID.
func ActivationID(rule string, factIDs []string) (string, error) {
	ids := make(IRArray, len(factIDs))
	for i, id := range factIDs {
		ids[i] = IRString(id)
	}
	canonical, err := MarshalCanonical(IRObject{
		"rule":     IRString(rule),
		"fact_ids": ids,
	})
	if err != nil {
		return "", fmt.Errorf("ActivationID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainActivation, canonical), nil
}

// MustBindingHash is like BindingHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustBindingHash(binding IRObject) string {
	hash, err := BindingHash(binding)
	if err != nil {
		panic(err)
	}
	return hash
}
