package collector

import (
	"context"
	"errors"
	"testing"

	"packetboat/internal/walker"
	"packetboat/pkg/logging"

	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	keys     map[string][]string // prefix+suffix -> keys
	objects  map[string][]byte
	fetchErr string
}

func (f *fakeStore) ListChildPrefixes(ctx context.Context, bucket, parent string) ([]string, error) {
	return nil, nil
}

func (f *fakeStore) ListKeysWithSuffix(ctx context.Context, bucket, prefix, suffix string) ([]string, error) {
	return f.keys[prefix+suffix], nil
}

func (f *fakeStore) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	if f.fetchErr != "" && key == f.fetchErr {
		return nil, errors.New("fetch blew up")
	}
	obj, ok := f.objects[key]
	if !ok {
		return nil, errors.New("missing object " + key)
	}
	return obj, nil
}

const (
	rankedRoot  = "data/substat=ranked-traffic/"
	summaryRoot = "data/substat=summary/"
)

func newCollector(store *fakeStore) *Collector {
	return New(Params{
		Store:                store,
		Bucket:               "bucket",
		AttachmentRootPrefix: rankedRoot,
		FragmentRootPrefix:   summaryRoot,
		AttachmentSuffix:     ".csv",
		FragmentSuffix:       ".txt",
		Logger:               logging.NewLogger(),
	})
}

func tenantWithLeaves(leaves ...string) walker.TenantPartitions {
	return walker.TenantPartitions{
		ID:           "tenant=alpha",
		Prefix:       rankedRoot + "tenant=alpha/",
		LeafPrefixes: leaves,
	}
}

func TestCollectAttachmentsVerbatim(t *testing.T) {
	leaf := rankedRoot + "tenant=alpha/bypass/ipv=4/ip_field=src/cadence=week/date-partition=2026-08-10/"
	raw := []byte{0x00, 0x01, 0xFF}
	store := &fakeStore{
		keys: map[string][]string{
			leaf + ".csv": {leaf + "DIPS_top.csv"},
		},
		objects: map[string][]byte{
			leaf + "DIPS_top.csv": raw,
		},
	}

	atts, frags, err := newCollector(store).Collect(context.Background(), tenantWithLeaves(leaf))
	require.NoError(t, err)
	require.Empty(t, frags)
	require.Len(t, atts, 1)
	require.Equal(t, "DIPS_top.csv", atts[0].Filename)
	require.Equal(t, raw, atts[0].Content)
}

func TestCollectFragmentsDecodedAndLabeled(t *testing.T) {
	leaf := rankedRoot + "tenant=alpha/bypass/ipv=4/ip_field=src/cadence=week/date-partition=2026-08-10/"
	fragLeaf := summaryRoot + "tenant=alpha/bypass/ipv=4/ip_field=src/cadence=week/date-partition=2026-08-10/"
	store := &fakeStore{
		keys: map[string][]string{
			fragLeaf + ".txt": {fragLeaf + "DIPS_summary.txt", fragLeaf + "empty.txt"},
		},
		objects: map[string][]byte{
			fragLeaf + "DIPS_summary.txt": []byte("  hello\r\nworld\r "),
			fragLeaf + "empty.txt":        []byte("  \r\n  "),
		},
	}

	atts, frags, err := newCollector(store).Collect(context.Background(), tenantWithLeaves(leaf))
	require.NoError(t, err)
	require.Empty(t, atts)
	require.Len(t, frags, 1, "empty decoded content must be dropped")
	require.Equal(t, "bypass/ipv=4/ip_field=src/cadence=week/date-partition=2026-08-10/DIPS_summary.txt", frags[0].Label)
	require.Equal(t, "hello\nworld", frags[0].Content)
}

func TestCollectFragmentOrderFollowsLeafTraversal(t *testing.T) {
	leafA := rankedRoot + "tenant=alpha/chanA/ipv=4/ip_field=src/cadence=week/date-partition=2026-08-10/"
	leafB := rankedRoot + "tenant=alpha/chanB/ipv=4/ip_field=src/cadence=week/date-partition=2026-08-10/"
	fragA := summaryRoot + "tenant=alpha/chanA/ipv=4/ip_field=src/cadence=week/date-partition=2026-08-10/"
	fragB := summaryRoot + "tenant=alpha/chanB/ipv=4/ip_field=src/cadence=week/date-partition=2026-08-10/"
	store := &fakeStore{
		keys: map[string][]string{
			fragA + ".txt": {fragA + "z_last_alphabetically.txt"},
			fragB + ".txt": {fragB + "a_first_alphabetically.txt"},
		},
		objects: map[string][]byte{
			fragA + "z_last_alphabetically.txt":  []byte("from chanA"),
			fragB + "a_first_alphabetically.txt": []byte("from chanB"),
		},
	}

	_, frags, err := newCollector(store).Collect(context.Background(), tenantWithLeaves(leafA, leafB))
	require.NoError(t, err)
	require.Len(t, frags, 2)
	require.Equal(t, "from chanA", frags[0].Content, "discovery order, not alphabetical order")
	require.Equal(t, "from chanB", frags[1].Content)
}

func TestCollectFetchFailureAbortsTenant(t *testing.T) {
	leaf := rankedRoot + "tenant=alpha/c/ipv=4/ip_field=src/cadence=week/date-partition=2026-08-10/"
	store := &fakeStore{
		keys: map[string][]string{
			leaf + ".csv": {leaf + "one.csv", leaf + "two.csv"},
		},
		objects: map[string][]byte{
			leaf + "one.csv": []byte("ok"),
		},
		fetchErr: leaf + "two.csv",
	}

	atts, frags, err := newCollector(store).Collect(context.Background(), tenantWithLeaves(leaf))
	require.ErrorContains(t, err, "tenant=alpha")
	require.Nil(t, atts)
	require.Nil(t, frags)
}
