package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	nonceSize = 24
	sealInfo  = "storefront session token v1"
)

var errUnsealable = errors.New("session: sealed token cannot be opened")

// Sealer encrypts access tokens before they reach durable storage.
type Sealer struct {
	key [32]byte
}

// NewSealer derives the sealing key from secret.
func NewSealer(secret string) (*Sealer, error) {
	if secret == "" {
		return nil, errors.New("session: empty sealing secret")
	}
	s := &Sealer{}
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte(sealInfo))
	if _, err := io.ReadFull(kdf, s.key[:]); err != nil {
		return nil, fmt.Errorf("session: derive key: %w", err)
	}
	return s, nil
}

func (s *Sealer) Seal(token string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("session: nonce: %w", err)
	}
	out := secretbox.Seal(nonce[:], []byte(token), &nonce, &s.key)
	return base64.RawURLEncoding.EncodeToString(out), nil
}

func (s *Sealer) Open(sealed string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return "", errUnsealable
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", errUnsealable
	}
	return string(plain), nil
}

// grant is what the sealed token field holds: the access token and the cache
// scope minted when it was issued.
type grant struct {
	Token string `json:"token"`
	Scope string `json:"scope"`
}

func (s *Sealer) sealGrant(g grant) (string, error) {
	b, err := json.Marshal(g)
	if err != nil {
		return "", fmt.Errorf("session: encode grant: %w", err)
	}
	return s.Seal(string(b))
}

func (s *Sealer) openGrant(sealed string) (grant, error) {
	plain, err := s.Open(sealed)
	if err != nil {
		return grant{}, err
	}
	var g grant
	if err := json.Unmarshal([]byte(plain), &g); err != nil || g.Token == "" {
		return grant{}, errUnsealable
	}
	return g, nil
}
