// Package walker enumerates the fixed-depth report partition hierarchy:
// tenant -> channel -> ip-version -> ip-field, with the cadence and
// date-partition segments appended to form leaf prefixes.
package walker

import (
	"context"
	"fmt"
	"strings"

	"packetboat/internal/storage"
	"packetboat/pkg/logging"
)

// TenantNamespace is the key=value namespace of top-level tenant partitions.
const TenantNamespace = "tenant="

// TenantPartitions is one discovered tenant and its leaf prefixes for the
// run's date. LeafPrefixes is empty (not absent) when the tenant partition
// exists but holds no matching sub-partitions; downstream classification
// relies on that distinction.
type TenantPartitions struct {
	ID           string // partition name, e.g. "tenant=wholesales"
	Prefix       string // full tenant prefix under the root, trailing slash included
	LeafPrefixes []string
}

// DisplayName strips the tenant namespace from a partition identifier.
// Identifiers without the namespace pass through unchanged.
func DisplayName(tenantID string) string {
	if rest, ok := strings.CutPrefix(tenantID, TenantNamespace); ok {
		return rest
	}
	return tenantID
}

// Walker discovers leaf partitions one listing per level. It never verifies
// a prefix before listing it; an empty listing is a normal outcome.
type Walker struct {
	store         storage.ObjectStore
	bucket        string
	cadencePrefix string
	logger        logging.Logger
}

func New(store storage.ObjectStore, bucket, cadencePrefix string, logger logging.Logger) *Walker {
	return &Walker{
		store:         store,
		bucket:        bucket,
		cadencePrefix: cadencePrefix,
		logger:        logger,
	}
}

// DiscoverLeafPartitions walks the hierarchy under rootPrefix and returns
// one record per discovered tenant, in listing order. Tenants with no leaf
// partitions for the date are still returned. Any listing failure aborts
// discovery; partial traversal results are never returned.
func (w *Walker) DiscoverLeafPartitions(ctx context.Context, rootPrefix, datePartition string) ([]TenantPartitions, error) {
	tenantPrefixes, err := w.store.ListChildPrefixes(ctx, w.bucket, rootPrefix)
	if err != nil {
		return nil, fmt.Errorf("discover tenants: %w", err)
	}

	tenants := make([]TenantPartitions, 0, len(tenantPrefixes))
	for _, tenantPrefix := range tenantPrefixes {
		rec := TenantPartitions{
			ID:     lastSegment(tenantPrefix),
			Prefix: tenantPrefix,
		}

		channelPrefixes, err := w.store.ListChildPrefixes(ctx, w.bucket, tenantPrefix)
		if err != nil {
			return nil, fmt.Errorf("discover channels for %s: %w", rec.ID, err)
		}
		for _, channelPrefix := range channelPrefixes {
			ipvPrefixes, err := w.store.ListChildPrefixes(ctx, w.bucket, channelPrefix)
			if err != nil {
				return nil, fmt.Errorf("discover ip versions for %s: %w", rec.ID, err)
			}
			for _, ipvPrefix := range ipvPrefixes {
				ipFieldPrefixes, err := w.store.ListChildPrefixes(ctx, w.bucket, ipvPrefix)
				if err != nil {
					return nil, fmt.Errorf("discover ip fields for %s: %w", rec.ID, err)
				}
				for _, ipFieldPrefix := range ipFieldPrefixes {
					leaf := fmt.Sprintf("%s%sdate-partition=%s/", ipFieldPrefix, w.cadencePrefix, datePartition)
					rec.LeafPrefixes = append(rec.LeafPrefixes, leaf)
				}
			}
		}

		tenants = append(tenants, rec)
	}

	w.logger.WithFields(logging.Fields{
		"root":           rootPrefix,
		"date_partition": datePartition,
		"tenants":        len(tenants),
	}).Info("Discovered tenant partitions")

	return tenants, nil
}

func lastSegment(prefix string) string {
	trimmed := strings.TrimSuffix(prefix, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}
