package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/sifan077/PowerDrive/internal/app/repository"
)

// TokenBytes is the amount of randomness behind every share token (128 bits).
const TokenBytes = 16

// TokenLength is the length of a hex-encoded share token.
const TokenLength = TokenBytes * 2

const (
	defaultFilterCapacity = 1_000_000
	defaultFilterFPRate   = 0.001
)

// GenerateToken returns a fresh hex token drawn from crypto/rand.
func GenerateToken() (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// IsWellFormedToken reports whether s looks like a token GenerateToken could produce.
func IsWellFormedToken(s string) bool {
	if len(s) != TokenLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// TokenFilter remembers every token ever issued so issuance can skip candidates
// that were (probably) handed out before. A positive answer may be false; a
// negative answer is always correct. Deleted tokens are never removed, so
// revoked tokens stay blocked from reuse.
//
// The false positive rate only holds up to the capacity the filter was sized
// for. Past that, Saturated reports true and callers should stop consulting it.
type TokenFilter struct {
	mu       sync.RWMutex
	filter   *bloom.BloomFilter
	capacity uint
	added    uint
}

// NewTokenFilter sizes the filter for the expected number of tokens.
func NewTokenFilter(capacity uint, fpRate float64) *TokenFilter {
	if capacity == 0 {
		capacity = defaultFilterCapacity
	}
	if fpRate <= 0 || fpRate >= 1 {
		fpRate = defaultFilterFPRate
	}
	return &TokenFilter{
		filter:   bloom.NewWithEstimates(capacity, fpRate),
		capacity: capacity,
	}
}

// Add records token as issued.
func (f *TokenFilter) Add(token string) {
	f.mu.Lock()
	f.filter.AddString(token)
	f.added++
	f.mu.Unlock()
}

// MayContain reports whether token may have been issued already.
func (f *TokenFilter) MayContain(token string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.filter.TestString(token)
}

// Saturated reports whether more tokens were added than the filter was sized for.
func (f *TokenFilter) Saturated() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.added > f.capacity
}

// Warm loads every stored token into the filter and returns how many were added.
func (f *TokenFilter) Warm(ctx context.Context, links repository.ShareLinkRepository) (int, error) {
	tokens, err := links.ListTokens(ctx)
	if err != nil {
		return 0, fmt.Errorf("list tokens: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, token := range tokens {
		f.filter.AddString(token)
	}
	f.added += uint(len(tokens))
	return len(tokens), nil
}
