package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix enables future algorithm migration.
const (
	DomainModel    = "hyperdem/model/v1"
	DomainSyndrome = "hyperdem/syndrome/v1"
	DomainSource   = "hyperdem/source/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ModelFingerprint identifies a compiled decoding model. Two models with
// the same fingerprint decode identically.
func ModelFingerprint(model Object) (string, error) {
	canonical, err := MarshalCanonical(Object{
		"format": String(FormatVersion),
		"model":  model,
	})
	if err != nil {
		return "", fmt.Errorf("ModelFingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainModel, canonical), nil
}

// SyndromeHash identifies one shot's solver input. Defects and heralds are
// hashed in the order given.
func SyndromeHash(defects, heralds, erasures []int) (string, error) {
	canonical, err := MarshalCanonical(Object{
		"defects":  Ints(defects),
		"heralds":  Ints(heralds),
		"erasures": Ints(erasures),
	})
	if err != nil {
		return "", fmt.Errorf("SyndromeHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSyndrome, canonical), nil
}

// SourceKey identifies the input a model was compiled from, together with
// the options that affect compilation.
func SourceKey(source Object) (string, error) {
	canonical, err := MarshalCanonical(Object{
		"format": String(FormatVersion),
		"source": source,
	})
	if err != nil {
		return "", fmt.Errorf("SourceKey: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSource, canonical), nil
}

// MustModelFingerprint is like ModelFingerprint but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustModelFingerprint(model Object) string {
	fp, err := ModelFingerprint(model)
	if err != nil {
		panic(err)
	}
	return fp
}
