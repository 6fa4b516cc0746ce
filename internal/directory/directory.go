// Package directory resolves tenant identifiers to recipient address lists.
// The production source is a JSON document in object storage; test routing
// substitutes a static in-memory map.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"packetboat/internal/storage"
	"packetboat/pkg/logging"
)

// Directory looks up the explicit recipient list for a tenant. An unknown
// tenant yields an empty list, never an error.
type Directory interface {
	Lookup(tenantID string) []string
}

// Static is an immutable in-memory directory.
type Static struct {
	entries map[string][]string
}

func NewStatic(entries map[string][]string) *Static {
	normalized := make(map[string][]string, len(entries))
	for k, v := range entries {
		normalized[k] = cleanAddresses(v)
	}
	return &Static{entries: normalized}
}

func (s *Static) Lookup(tenantID string) []string {
	return s.entries[tenantID]
}

// Len reports the number of tenants with entries, for startup logging.
func (s *Static) Len() int {
	return len(s.entries)
}

// LoadFromStore fetches and normalizes the recipient map document. Values
// may be a single address string or an array of address strings; anything
// else clamps to an empty list with a warning. A top-level shape other than
// an object, or an unreadable document, is a fatal error: an erroring load
// must stay distinguishable from a present-but-empty map.
func LoadFromStore(ctx context.Context, store storage.ObjectStore, bucket, key string, logger logging.Logger) (*Static, error) {
	if bucket == "" || key == "" {
		logger.Warn("Recipient map location not configured; using empty mapping")
		return NewStatic(nil), nil
	}

	raw, err := store.GetObject(ctx, bucket, key)
	if err != nil {
		return nil, fmt.Errorf("load recipient map: %w", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("recipient map must be a JSON object at top level: %w", err)
	}

	entries := make(map[string][]string, len(doc))
	for tenantID, value := range doc {
		var single string
		if err := json.Unmarshal(value, &single); err == nil {
			entries[tenantID] = cleanAddresses([]string{single})
			continue
		}
		var many []string
		if err := json.Unmarshal(value, &many); err == nil {
			entries[tenantID] = cleanAddresses(many)
			continue
		}
		logger.WithField("tenant", tenantID).Warn("Recipient map value is neither string nor string array; clamping to empty")
		entries[tenantID] = nil
	}

	logger.WithFields(logging.Fields{
		"bucket":  bucket,
		"key":     key,
		"entries": len(entries),
	}).Info("Loaded recipient map")

	return &Static{entries: entries}, nil
}

func cleanAddresses(in []string) []string {
	var out []string
	for _, a := range in {
		if v := strings.TrimSpace(a); v != "" {
			out = append(out, v)
		}
	}
	return out
}
