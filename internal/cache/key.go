package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// HashContent returns the SHA-256 of a file's content as hex.
func HashContent(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Fingerprint identifies the extraction settings that influence a result.
// Changing any of them invalidates cached entries.
func Fingerprint(backend string, maxBlankLines int, mergeLineComments bool) string {
	return fmt.Sprintf("v%d/%s/blank=%d/merge=%t", entrySchema, backend, maxBlankLines, mergeLineComments)
}

// Key combines a content hash, a language and a settings fingerprint.
// Identical content extracted the same way shares a key regardless of path.
func Key(contentHash, language, fingerprint string) string {
	return hashString(contentHash + "\x00" + language + "\x00" + fingerprint)
}

// hashString returns SHA-256 hash of the input string as hex.
func hashString(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}
