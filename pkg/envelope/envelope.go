package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

const (
	IVSize  = 12
	TagSize = 16
)

var (
	// ErrAuthentication means the GCM tag did not verify: tampered
	// ciphertext, wrong key, or transport corruption. Callers discard the
	// envelope; retrying with the same material cannot succeed.
	ErrAuthentication = errors.New("envelope: authentication failed")

	// ErrMalformed means the envelope's shape is wrong (bad sizes, bad
	// encoding) before any cryptography runs. Distinct from ErrAuthentication.
	ErrMalformed = errors.New("envelope: malformed envelope")
)

// Envelope is the in-flight transport unit for one encrypted notification
// body. It is created by Seal on the server, consumed exactly once by Open on
// the client, and never persisted.
type Envelope struct {
	Ciphertext []byte
	IV         []byte
	Tag        []byte
	KeyRef     string
}

// Wire is the JSON shape the widget receives. Field names are deliberately
// short: the envelope rides inside every notification response.
type Wire struct {
	E string `json:"e"` // ciphertext, base64
	I string `json:"i"` // iv, hex
	T string `json:"t"` // tag, base64
	K string `json:"k"` // key reference (integrity digest, e.g. "sha384-...")
}

// Seal encrypts plaintext under key with AES-256-GCM, generating a fresh
// random 96-bit IV per call. The IV must never repeat for the same key, so it
// is always drawn from crypto/rand rather than a counter shared across
// processes.
func Seal(plaintext, key []byte, keyRef string) (*Envelope, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("envelope: generating iv: %w", err)
	}

	sealed := gcm.Seal(nil, iv, plaintext, nil)
	// gcm.Seal appends the tag to the ciphertext; the wire format carries
	// them as separate fields.
	split := len(sealed) - TagSize
	return &Envelope{
		Ciphertext: sealed[:split],
		IV:         iv,
		Tag:        sealed[split:],
		KeyRef:     keyRef,
	}, nil
}

// Open decrypts an envelope. A tag mismatch returns ErrAuthentication and no
// plaintext is ever released on that path.
func Open(env *Envelope, key []byte) ([]byte, error) {
	if env == nil || len(env.IV) != IVSize || len(env.Tag) != TagSize {
		return nil, ErrMalformed
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(env.Ciphertext)+TagSize)
	sealed = append(sealed, env.Ciphertext...)
	sealed = append(sealed, env.Tag...)

	plaintext, err := gcm.Open(nil, env.IV, sealed, nil)
	if err != nil {
		return nil, ErrAuthentication
	}
	return plaintext, nil
}

// MarshalWire encodes the envelope into the short-field JSON shape.
func (e *Envelope) MarshalWire() Wire {
	return Wire{
		E: base64.StdEncoding.EncodeToString(e.Ciphertext),
		I: hex.EncodeToString(e.IV),
		T: base64.StdEncoding.EncodeToString(e.Tag),
		K: e.KeyRef,
	}
}

// UnmarshalWire decodes the short-field shape back into an Envelope. Encoding
// errors are ErrMalformed, never ErrAuthentication.
func UnmarshalWire(w Wire) (*Envelope, error) {
	ct, err := base64.StdEncoding.DecodeString(w.E)
	if err != nil {
		return nil, fmt.Errorf("%w: ciphertext: %v", ErrMalformed, err)
	}
	iv, err := hex.DecodeString(w.I)
	if err != nil {
		return nil, fmt.Errorf("%w: iv: %v", ErrMalformed, err)
	}
	tag, err := base64.StdEncoding.DecodeString(w.T)
	if err != nil {
		return nil, fmt.Errorf("%w: tag: %v", ErrMalformed, err)
	}
	if len(iv) != IVSize || len(tag) != TagSize {
		return nil, ErrMalformed
	}
	return &Envelope{Ciphertext: ct, IV: iv, Tag: tag, KeyRef: w.K}, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("envelope: bad key: %w", err)
	}
	return cipher.NewGCM(block)
}
