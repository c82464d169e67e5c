package importer

import (
	"crypto/sha256"
	"encoding/hex"
)

// Checksum is the lowercase hex SHA-256 of the source bytes. It is recorded for
// audit only; identical sources still create a new import.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
