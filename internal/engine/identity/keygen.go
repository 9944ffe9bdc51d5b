// Package identity derives the deterministic identity key for a normalized
// record using a strict priority cascade: a verified national document is the
// only field guaranteed unique per person in this domain, name plus birth
// date is the next-strongest combination, a bare name is weak but better than
// nothing, and the hash is a deterministic bucket of last resort rather than
// a claim of identity.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"custreg/internal/domain"
)

// DeriveKey returns the identity key for a normalized record. It is total and
// deterministic: identical inputs always derive identical keys, and a record
// never receives a lower-priority key while a higher-priority field is
// present.
func DeriveKey(rec *domain.NormalizedRecord) domain.IdentityKey {
	switch {
	case rec.Document != "":
		return domain.IdentityKey{Method: domain.KeyMethodDocument, Value: rec.Document}
	case rec.FullName != "" && rec.BirthDate != "":
		return domain.IdentityKey{Method: domain.KeyMethodNameBirthdate, Value: rec.FullName + "_" + rec.BirthDate}
	case rec.FullName != "":
		return domain.IdentityKey{Method: domain.KeyMethodName, Value: rec.FullName}
	default:
		return domain.IdentityKey{Method: domain.KeyMethodHash, Value: fallbackHash(rec)}
	}
}

// fallbackHash digests the normalized fields plus every raw identifying field
// in sorted column order. Records with identical inputs hash to the same
// bucket, but the hash method tag marks the identity as unverified for every
// downstream consumer.
func fallbackHash(rec *domain.NormalizedRecord) string {
	parts := []string{rec.FullName, rec.Document, rec.BirthDate, rec.Phone, rec.Email, rec.Address}

	if rec.Raw != nil {
		headers := make([]string, 0, len(rec.Raw.Fields))
		for h := range rec.Raw.Fields {
			headers = append(headers, h)
		}
		sort.Strings(headers)
		for _, h := range headers {
			parts = append(parts, h, rec.Raw.Fields[h])
		}
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:16])
}
