// Package auth issues bearer tokens for the external catalogs.
//
// Catalog clients consume a [TokenProvider] and never inspect token internals. Each provider
// caches its current token and serializes refreshes, so concurrent callers that all see an
// expired token trigger a single mint or exchange.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oe/sunrain-sub001/internal/shared"
	"golang.org/x/sync/singleflight"
)

// TokenProvider issues a valid bearer token and can be forced to refresh it.
type TokenProvider interface {
	// Token returns a cached token, minting one first if none is valid.
	Token(ctx context.Context) (string, error)
	// Refresh discards the cached token and obtains a new one.
	Refresh(ctx context.Context) error
	// Validate reports whether token is still usable by this provider.
	Validate(token string) bool
}

// expiryMargin is subtracted from a token's lifetime so a token is never sent
// moments before it lapses.
const expiryMargin = 30 * time.Second

// issueTimeout bounds a shared refresh, which outlives any single caller's context.
const issueTimeout = 30 * time.Second

// issueFunc obtains a fresh token and its expiry.
type issueFunc func(ctx context.Context) (token string, expiry time.Time, err error)

// cachedProvider holds the current token for one catalog.
type cachedProvider struct {
	mu     sync.RWMutex
	token  string
	expiry time.Time

	group singleflight.Group
	issue issueFunc
	now   func() time.Time
}

func newCachedProvider(issue issueFunc, now func() time.Time) *cachedProvider {
	if now == nil {
		now = time.Now
	}
	return &cachedProvider{issue: issue, now: now}
}

func (p *cachedProvider) current() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.token == "" {
		return "", false
	}
	if !p.expiry.IsZero() && !p.now().Add(expiryMargin).Before(p.expiry) {
		return "", false
	}
	return p.token, true
}

func (p *cachedProvider) Token(ctx context.Context) (string, error) {
	if tok, ok := p.current(); ok {
		return tok, nil
	}
	return p.refresh(ctx)
}

func (p *cachedProvider) Refresh(ctx context.Context) error {
	p.mu.Lock()
	p.token = ""
	p.expiry = time.Time{}
	p.mu.Unlock()

	_, err := p.refresh(ctx)
	return err
}

// refresh mints a token through the singleflight group so overlapping callers share one result.
// The mint runs detached from the caller that started it; each caller still stops waiting when
// its own ctx is done.
func (p *cachedProvider) refresh(ctx context.Context) (string, error) {
	ch := p.group.DoChan("refresh", func() (any, error) {
		issueCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), issueTimeout)
		defer cancel()

		tok, expiry, err := p.issue(issueCtx)
		if err != nil {
			return "", err
		}
		if tok == "" {
			return "", fmt.Errorf("%w: empty token issued", shared.ErrRefreshFailed)
		}

		p.mu.Lock()
		p.token = tok
		p.expiry = expiry
		p.mu.Unlock()
		return tok, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			if shared.IsCanceled(res.Err) || errors.Is(res.Err, shared.ErrRefreshFailed) {
				return "", res.Err
			}
			return "", fmt.Errorf("%w: %v", shared.ErrRefreshFailed, res.Err)
		}
		return res.Val.(string), nil
	}
}

// StaticTokenProvider always returns the same token. Refresh is a no-op.
type StaticTokenProvider struct {
	value string
}

// NewStaticTokenProvider wraps a pre-issued token.
func NewStaticTokenProvider(token string) *StaticTokenProvider {
	return &StaticTokenProvider{value: token}
}

func (p *StaticTokenProvider) Token(ctx context.Context) (string, error) {
	if p.value == "" {
		return "", shared.ErrMissingCredentials
	}
	return p.value, nil
}

func (p *StaticTokenProvider) Refresh(ctx context.Context) error {
	if p.value == "" {
		return shared.ErrMissingCredentials
	}
	return nil
}

func (p *StaticTokenProvider) Validate(token string) bool {
	return token != "" && token == p.value
}
