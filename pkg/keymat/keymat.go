package keymat

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// KeySize is the symmetric key length used by the envelope codec (AES-256).
const KeySize = 32

var ErrInvalidDigest = errors.New("keymat: invalid integrity digest")

// DeriveKey turns the published subresource-integrity digest of the widget
// bundle into the symmetric encryption key. The derivation is deterministic
// and offline: a tampered or mismatched bundle yields a different digest,
// hence a different key, hence a decryption failure on the client. Accepted
// forms are "sha384-<base64>" (standard SRI) and a bare base64 string.
func DeriveKey(integrityDigest string) ([]byte, error) {
	raw := integrityDigest
	if idx := strings.IndexByte(raw, '-'); idx > 0 {
		algo := raw[:idx]
		switch algo {
		case "sha256", "sha384", "sha512":
			raw = raw[idx+1:]
		default:
			return nil, fmt.Errorf("%w: unknown algorithm prefix %q", ErrInvalidDigest, algo)
		}
	}
	if raw == "" {
		return nil, fmt.Errorf("%w: empty digest", ErrInvalidDigest)
	}

	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDigest, err)
	}
	if len(decoded) < KeySize {
		return nil, fmt.Errorf("%w: digest decodes to %d bytes, need at least %d", ErrInvalidDigest, len(decoded), KeySize)
	}

	key := make([]byte, KeySize)
	copy(key, decoded[:KeySize])
	return key, nil
}
