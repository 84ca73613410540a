// Package settings decodes the setting values the engines depend on.
//
// Ignore lists are stored as comma-joined account ids and repeating
// transfers as a JSON array. Parsing is strict: a malformed repeating
// transfer payload is an error, never an empty schedule.
package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ledger/internal/cache"
	"ledger/internal/core"
)

var ErrInvalidRepeatingTransfers = errors.New("invalid repeating transfers setting")

// AccountSet is a set of account ids.
type AccountSet map[string]struct{}

func (s AccountSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// ParseAccountList splits a comma-joined list of account ids. Blank
// entries are skipped.
func ParseAccountList(value string) AccountSet {
	set := make(AccountSet)
	for _, id := range strings.Split(value, ",") {
		if id = strings.TrimSpace(id); id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}

// ParseRepeatingTransfers decodes a JSON array of repeating transfers and
// validates every entry. A blank value means no schedules.
func ParseRepeatingTransfers(value string) ([]core.RepeatingTransfer, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(value)))
	dec.DisallowUnknownFields()

	var rts []core.RepeatingTransfer
	if err := dec.Decode(&rts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRepeatingTransfers, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after array", ErrInvalidRepeatingTransfers)
	}
	if rts == nil {
		// "null" is not an array.
		return nil, fmt.Errorf("%w: expected a JSON array", ErrInvalidRepeatingTransfers)
	}
	for i, rt := range rts {
		if err := rt.Validate(); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", ErrInvalidRepeatingTransfers, i, err)
		}
	}
	return rts, nil
}

// Parser memoises parsed repeating transfer payloads. The same setting
// value is read by every issue computation, so decoding it once per
// distinct payload is enough. Returned slices are shared and must not be
// modified.
type Parser struct {
	transfers *cache.LRUCache[string, []core.RepeatingTransfer]
}

func NewParser(size int, ttl time.Duration) *Parser {
	return &Parser{transfers: cache.NewLRUCache[string, []core.RepeatingTransfer](size, ttl)}
}

// RepeatingTransfers is ParseRepeatingTransfers with memoisation. A nil
// Parser parses without caching.
func (p *Parser) RepeatingTransfers(value string) ([]core.RepeatingTransfer, error) {
	if p == nil {
		return ParseRepeatingTransfers(value)
	}
	return p.transfers.GetOrLoad(value, func() ([]core.RepeatingTransfer, error) {
		return ParseRepeatingTransfers(value)
	})
}

// Cache exposes the underlying cache for registration with a cache.Manager.
func (p *Parser) Cache() cache.Cleaner {
	return p.transfers
}
