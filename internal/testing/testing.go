// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"
)

// MockTokenProvider is a test double for [auth.TokenProvider].
//
// Token returns the current entry of Tokens; Refresh advances to the next entry and stays on
// the last one once exhausted.
type MockTokenProvider struct {
	mu  sync.Mutex
	idx int

	Tokens     []string
	TokenErr   error
	RefreshErr error

	TokenCalls   int
	RefreshCalls int
}

func NewMockTokenProvider(tokens ...string) *MockTokenProvider {
	return &MockTokenProvider{Tokens: tokens}
}

func (m *MockTokenProvider) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TokenCalls++
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.TokenErr != nil {
		return "", m.TokenErr
	}
	if len(m.Tokens) == 0 {
		return "", errors.New("no tokens configured")
	}
	return m.Tokens[m.idx], nil
}

func (m *MockTokenProvider) Refresh(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RefreshCalls++
	if m.RefreshErr != nil {
		return m.RefreshErr
	}
	if m.idx < len(m.Tokens)-1 {
		m.idx++
	}
	return nil
}

func (m *MockTokenProvider) Validate(token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.TokenErr == nil && len(m.Tokens) > 0 && token == m.Tokens[m.idx]
}

// Refreshes returns RefreshCalls under the lock.
func (m *MockTokenProvider) Refreshes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.RefreshCalls
}

// FakeClock is a [pacing.Clock] that advances only when slept on.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

// Sleeps returns a copy of every duration slept so far.
func (c *FakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
