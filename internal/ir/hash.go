package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainRecord prefixes record identity hashes.
// The version suffix leaves room for a future algorithm change.
const DomainRecord = "pyco/record/v1"

// hashWithDomain computes SHA256(domain || 0x00 || data) as lowercase hex.
// The null separator removes domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentHash returns the domain separated hash of the canonical form of obj.
func ContentHash(domain string, obj IRObject) (string, error) {
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("content hash: %w", err)
	}
	return hashWithDomain(domain, canonical), nil
}

// RecordID computes the default identifier of a record from its type name
// and encoded fields. Two records of the same type with equal fields share an
// identifier; the same fields under another type do not.
func RecordID(typeName string, fields IRObject) (string, error) {
	obj := IRObject{
		"type":   IRString(typeName),
		"fields": fields,
	}
	id, err := ContentHash(DomainRecord, obj)
	if err != nil {
		return "", fmt.Errorf("RecordID: %w", err)
	}
	return id, nil
}
