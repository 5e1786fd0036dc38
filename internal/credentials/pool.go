// Package credentials hands out oracle API keys in round-robin order.
package credentials

import (
	"errors"
	"strings"
	"sync/atomic"
)

var ErrEmptyPool = errors.New("credentials: no API keys configured")

// Pool cycles through a fixed set of credentials. Next is safe for concurrent
// use; the atomic cursor guarantees two in-flight calls never draw the same
// position in the cycle.
type Pool struct {
	keys   []string
	cursor atomic.Uint64
}

// NewPool drops blank entries and fails when nothing usable remains.
func NewPool(keys []string) (*Pool, error) {
	cleaned := make([]string, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			cleaned = append(cleaned, k)
		}
	}
	if len(cleaned) == 0 {
		return nil, ErrEmptyPool
	}
	return &Pool{keys: cleaned}, nil
}

// ParseList splits a comma separated API_KEYS value, dropping blanks.
func ParseList(raw string) []string {
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func (p *Pool) Next() string {
	n := p.cursor.Add(1) - 1
	return p.keys[n%uint64(len(p.keys))]
}

func (p *Pool) Size() int {
	return len(p.keys)
}
