package cookies

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // sha1 HMAC is the keygrip signature format
	"encoding/base64"
	"hash"
)

// Keygrip signs and verifies data with a rotating list of keys. The first
// key signs, every key verifies, so keys can be rotated by prepending a new
// one and eventually dropping the last.
type Keygrip struct {
	keys []string
	hash func() hash.Hash
}

// NewKeygrip creates a keygrip that signs with HMAC-SHA1.
func NewKeygrip(keys ...string) *Keygrip {
	return NewKeygripWith(sha1.New, keys...)
}

// NewKeygripWith creates a keygrip with a custom HMAC hash.
func NewKeygripWith(h func() hash.Hash, keys ...string) *Keygrip {
	return &Keygrip{keys: append([]string(nil), keys...), hash: h}
}

// Len returns the number of keys.
func (k *Keygrip) Len() int { return len(k.keys) }

// Sign signs data with the primary key.
func (k *Keygrip) Sign(data string) string {
	if len(k.keys) == 0 {
		return ""
	}

	return k.sign(data, k.keys[0])
}

// Verify reports whether digest was produced by any of the keys.
func (k *Keygrip) Verify(data, digest string) bool {
	return k.Index(data, digest) >= 0
}

// Index returns the position of the key that produced digest, or -1.
func (k *Keygrip) Index(data, digest string) int {
	for i, key := range k.keys {
		if hmac.Equal([]byte(digest), []byte(k.sign(data, key))) {
			return i
		}
	}

	return -1
}

func (k *Keygrip) sign(data, key string) string {
	mac := hmac.New(k.hash, []byte(key))
	mac.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
