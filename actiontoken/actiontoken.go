// Package actiontoken issues and validates the single-use tokens that guard
// administrator status transitions. Each token is bound to one transition
// kind and one actor: an approve token can never authorize a block request,
// and a validated token is consumed so replays fail.
package actiontoken

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the transition a token is valid for.
type Kind string

const (
	// KindApprove authorizes an approve transition.
	KindApprove Kind = "user-approve"
	// KindBlock authorizes a block transition.
	KindBlock Kind = "user-block"
)

var (
	ErrTokenMismatch    = errors.New("action token mismatch")
	ErrTokenMissing     = errors.New("action token missing")
	ErrTokenExpired     = errors.New("action token expired")
	ErrTokenConsumed    = errors.New("action token already used")
	ErrSecureKeyMissing = errors.New("action token secure key required")
)

// DefaultTokenLength is the nonce length in bytes.
const DefaultTokenLength = 32

// DefaultExpiration bounds how long an issued token stays valid.
const DefaultExpiration = 24 * time.Hour

// Storage tracks consumed tokens so each validates at most once. Consume
// returns false when the token was seen before and is still within its
// retention window.
type Storage interface {
	Consume(token string, retention time.Duration) (bool, error)
}

// Config defines service construction options.
type Config struct {
	// SecureKey signs token payloads. Required, at least 32 bytes.
	SecureKey []byte

	// TokenLength defines the nonce length in bytes.
	TokenLength int

	// Expiration defines how long issued tokens are valid.
	Expiration time.Duration

	// Storage tracks consumed tokens. Defaults to an in-memory ledger.
	Storage Storage

	// Clock overrides the time source (useful for tests).
	Clock func() time.Time
}

// Service issues and validates kind-bound single-use tokens.
type Service struct {
	key         []byte
	tokenLength int
	expiration  time.Duration
	storage     Storage
	now         func() time.Time
}

// New creates a token service.
func New(config ...Config) *Service {
	cfg := configDefault(config...)

	return &Service{
		key:         cfg.SecureKey,
		tokenLength: cfg.TokenLength,
		expiration:  cfg.Expiration,
		storage:     cfg.Storage,
		now:         cfg.Clock,
	}
}

// Issue generates a token valid for one transition of the given kind,
// requested by the given actor.
func (s *Service) Issue(kind Kind, actorID string) (string, error) {
	if len(s.key) == 0 {
		return "", ErrSecureKeyMissing
	}

	nonce := make([]byte, s.tokenLength)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	timestamp := s.now().UTC().Unix()
	payload := fmt.Sprintf("%d:%s:%s:%s", timestamp, hex.EncodeToString(nonce), kind, actorID)

	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(payload))
	signature := mac.Sum(nil)

	token := fmt.Sprintf("%s:%s", payload, hex.EncodeToString(signature))
	return base64.RawURLEncoding.EncodeToString([]byte(token)), nil
}

// Validate checks that the token matches the given kind and actor, has not
// expired, and has not been used before. A successful validation consumes
// the token.
func (s *Service) Validate(token string, kind Kind, actorID string) error {
	if len(s.key) == 0 {
		return ErrSecureKeyMissing
	}

	if token == "" {
		return ErrTokenMissing
	}

	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return ErrTokenMismatch
	}

	parts := strings.Split(string(decoded), ":")
	if len(parts) != 5 {
		return ErrTokenMismatch
	}

	timestampStr, nonceHex, kindFromToken, actorFromToken, signatureHex := parts[0], parts[1], parts[2], parts[3], parts[4]

	timestamp, err := strconv.ParseInt(timestampStr, 10, 64)
	if err != nil {
		return ErrTokenMismatch
	}

	if _, err := hex.DecodeString(nonceHex); err != nil {
		return ErrTokenMismatch
	}

	signature, err := hex.DecodeString(signatureHex)
	if err != nil {
		return ErrTokenMismatch
	}

	payload := strings.Join(parts[:4], ":")
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(payload))
	expectedSignature := mac.Sum(nil)

	if !hmac.Equal(signature, expectedSignature) {
		return ErrTokenMismatch
	}

	if subtle.ConstantTimeCompare([]byte(kindFromToken), []byte(kind)) != 1 {
		return ErrTokenMismatch
	}

	if subtle.ConstantTimeCompare([]byte(actorFromToken), []byte(actorID)) != 1 {
		return ErrTokenMismatch
	}

	if s.expiration > 0 {
		expiresAt := time.Unix(timestamp, 0).Add(s.expiration)
		if s.now().UTC().After(expiresAt) {
			return ErrTokenExpired
		}
	}

	// consume last: a token that fails any check above must stay unused
	fresh, err := s.storage.Consume(token, s.expiration)
	if err != nil {
		return err
	}
	if !fresh {
		return ErrTokenConsumed
	}

	return nil
}

func configDefault(config ...Config) Config {
	cfg := Config{}
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.TokenLength == 0 {
		cfg.TokenLength = DefaultTokenLength
	}

	if cfg.Expiration == 0 {
		cfg.Expiration = DefaultExpiration
	}

	if cfg.Storage == nil {
		cfg.Storage = NewMemoryStorage()
	}

	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	cfg.SecureKey = initializeSecureKey(cfg.SecureKey)

	return cfg
}

func initializeSecureKey(current []byte) []byte {
	if len(current) > 0 {
		if len(current) < 32 {
			panic(fmt.Errorf("actiontoken: secure key must be at least 32 bytes, got %d", len(current)))
		}
		return current
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		panic(fmt.Errorf("actiontoken: unable to initialize secure key: %w", err))
	}
	return key
}
