package rotation

import "sync"

// Token is a resettable cancellation signal. Set may be called any number
// of times; it stays set until Clear.
type Token struct {
	mu  sync.Mutex
	ch  chan struct{}
	set bool
}

func NewToken() *Token {
	return &Token{ch: make(chan struct{})}
}

// Set signals cancellation. Setting an already set token does nothing.
func (t *Token) Set() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.set {
		return
	}
	t.set = true
	close(t.ch)
}

// IsSet reports whether the token is set without blocking.
func (t *Token) IsSet() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.set
}

// Done returns a channel that is closed while the token is set. A Clear
// hands out a fresh channel, so callers should fetch it once per wait.
func (t *Token) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ch
}

// Clear resets a set token.
func (t *Token) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.set {
		return
	}
	t.set = false
	t.ch = make(chan struct{})
}
