package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainTemplate = "textfsm/template/v1"
	DomainInput    = "textfsm/input/v1"
	DomainRecords  = "textfsm/records/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00}) // Null separator: no domain/content split can collide with another
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// TemplateDigest identifies template source text.
func TemplateDigest(text string) string {
	return hashWithDomain(DomainTemplate, []byte(text))
}

// InputDigest identifies parsed input text.
func InputDigest(text string) string {
	return hashWithDomain(DomainInput, []byte(text))
}

// RecordsDigest computes the content-addressed digest of an output sequence.
// Order is significant: the same records in another order hash differently.
func RecordsDigest(records []Record) (string, error) {
	if records == nil {
		records = []Record{}
	}
	canonical, err := MarshalCanonical(records)
	if err != nil {
		return "", fmt.Errorf("RecordsDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRecords, canonical), nil
}

// MustRecordsDigest is like RecordsDigest but panics on error.
// Use only in tests or with records known to be well-formed.
func MustRecordsDigest(records []Record) string {
	d, err := RecordsDigest(records)
	if err != nil {
		panic(err)
	}
	return d
}
