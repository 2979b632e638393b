// registry.go maps placeholder tokens to resolved macros for one conversion.
package md

import (
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// Token is an opaque placeholder string. Tokens are hyphen-delimited
// alphanumerics so HTML-to-Markdown rendering leaves them intact.
type Token string

const tokenPrefix = "CFMD"

// TokenPattern matches any placeholder token.
var TokenPattern = regexp.MustCompile(tokenPrefix + `-[0-9a-z]+-[0-9a-z]+-[0-9a-z]+`)

// tokenSeq makes tokens unique within the process even when the clock and
// random part repeat.
var tokenSeq atomic.Uint64

func newToken() Token {
	now := strconv.FormatInt(time.Now().UnixNano(), 36)
	random := strconv.FormatUint(rand.Uint64()&0xffffffffff, 36)
	seq := strconv.FormatUint(tokenSeq.Add(1), 36)
	return Token(strings.Join([]string{tokenPrefix, now, random, seq}, "-"))
}

// Placeholder returns the text injected into the view document for t.
func (t Token) Placeholder() string {
	return "{{" + string(t) + "}}"
}

type registryEntry struct {
	token    Token
	resolved *ResolvedMacro
	consumed bool
}

// Registry holds the tokens of one document conversion. It is not safe for
// concurrent use; every conversion creates its own.
type Registry struct {
	entries []*registryEntry
	byToken map[Token]*registryEntry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byToken: make(map[Token]*registryEntry)}
}

// Register mints a token for r and stores the mapping.
func (reg *Registry) Register(r *ResolvedMacro) Token {
	t := newToken()
	for reg.byToken[t] != nil {
		t = newToken()
	}
	e := &registryEntry{token: t, resolved: r}
	reg.entries = append(reg.entries, e)
	reg.byToken[t] = e
	return t
}

// Resolve returns the macro registered for t.
func (reg *Registry) Resolve(t Token) (*ResolvedMacro, bool) {
	e, ok := reg.byToken[t]
	if !ok {
		return nil, false
	}
	return e.resolved, true
}

// Tokens returns the tokens of group g in registration order.
func (reg *Registry) Tokens(g Group) []Token {
	var out []Token
	for _, e := range reg.entries {
		if e.resolved.Group == g {
			out = append(out, e.token)
		}
	}
	return out
}

// All returns every token in registration order.
func (reg *Registry) All() []Token {
	out := make([]Token, 0, len(reg.entries))
	for _, e := range reg.entries {
		out = append(out, e.token)
	}
	return out
}

// Consume marks t as substituted. It reports false for unknown or
// already consumed tokens.
func (reg *Registry) Consume(t Token) bool {
	e, ok := reg.byToken[t]
	if !ok || e.consumed {
		return false
	}
	e.consumed = true
	return true
}

// Pending returns the tokens not yet consumed, in registration order.
func (reg *Registry) Pending() []Token {
	var out []Token
	for _, e := range reg.entries {
		if !e.consumed {
			out = append(out, e.token)
		}
	}
	return out
}

// Len returns the number of registered tokens.
func (reg *Registry) Len() int {
	return len(reg.entries)
}

// Clear drops all state.
func (reg *Registry) Clear() {
	reg.entries = nil
	reg.byToken = make(map[Token]*registryEntry)
}
