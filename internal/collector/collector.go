// Package collector pulls the two artifact classes for a tenant out of its
// leaf partitions: binary attachments, passed through byte-for-byte, and
// decoded text fragments used for notification body sections.
package collector

import (
	"context"
	"fmt"
	"strings"

	"packetboat/internal/storage"
	"packetboat/internal/walker"
	"packetboat/pkg/logging"
)

// Attachment is a report file attached verbatim to a notification.
type Attachment struct {
	Filename string
	Content  []byte
}

// Fragment is a decoded text artifact. Label is the object key relative to
// the tenant's fragment-root prefix and carries the sub-path tokens used to
// group fragments during composition.
type Fragment struct {
	Label   string
	Content string
}

// Collector reads artifacts for one tenant at a time. Fragment leaves live
// under a structurally parallel root, derived by substituting the attachment
// root prefix with the fragment root prefix in each leaf prefix, so fragment
// order follows the walker's traversal order.
type Collector struct {
	store                storage.ObjectStore
	bucket               string
	attachmentRootPrefix string
	fragmentRootPrefix   string
	attachmentSuffix     string
	fragmentSuffix       string
	logger               logging.Logger
}

type Params struct {
	Store                storage.ObjectStore
	Bucket               string
	AttachmentRootPrefix string
	FragmentRootPrefix   string
	AttachmentSuffix     string
	FragmentSuffix       string
	Logger               logging.Logger
}

func New(p Params) *Collector {
	return &Collector{
		store:                p.Store,
		bucket:               p.Bucket,
		attachmentRootPrefix: p.AttachmentRootPrefix,
		fragmentRootPrefix:   p.FragmentRootPrefix,
		attachmentSuffix:     p.AttachmentSuffix,
		fragmentSuffix:       p.FragmentSuffix,
		logger:               p.Logger,
	}
}

// Collect gathers attachments and fragments for a tenant. Any listing or
// fetch failure aborts the collection; no partial tenant output is emitted.
func (c *Collector) Collect(ctx context.Context, tenant walker.TenantPartitions) ([]Attachment, []Fragment, error) {
	var attachments []Attachment
	var fragments []Fragment

	fragmentTenantPrefix := strings.Replace(tenant.Prefix, c.attachmentRootPrefix, c.fragmentRootPrefix, 1)

	for _, leaf := range tenant.LeafPrefixes {
		keys, err := c.store.ListKeysWithSuffix(ctx, c.bucket, leaf, c.attachmentSuffix)
		if err != nil {
			return nil, nil, fmt.Errorf("list attachments for %s: %w", tenant.ID, err)
		}
		for _, key := range keys {
			content, err := c.store.GetObject(ctx, c.bucket, key)
			if err != nil {
				return nil, nil, fmt.Errorf("fetch attachment for %s: %w", tenant.ID, err)
			}
			attachments = append(attachments, Attachment{
				Filename: lastSegment(key),
				Content:  content,
			})
		}

		fragmentLeaf := strings.Replace(leaf, c.attachmentRootPrefix, c.fragmentRootPrefix, 1)
		fragKeys, err := c.store.ListKeysWithSuffix(ctx, c.bucket, fragmentLeaf, c.fragmentSuffix)
		if err != nil {
			return nil, nil, fmt.Errorf("list fragments for %s: %w", tenant.ID, err)
		}
		for _, key := range fragKeys {
			raw, err := c.store.GetObject(ctx, c.bucket, key)
			if err != nil {
				return nil, nil, fmt.Errorf("fetch fragment for %s: %w", tenant.ID, err)
			}
			content := decodeText(raw)
			if content == "" {
				continue
			}
			label := strings.TrimPrefix(strings.TrimPrefix(key, fragmentTenantPrefix), "/")
			fragments = append(fragments, Fragment{
				Label:   label,
				Content: content,
			})
		}
	}

	c.logger.WithFields(logging.Fields{
		"tenant":      tenant.ID,
		"attachments": len(attachments),
		"fragments":   len(fragments),
	}).Debug("Collected tenant artifacts")

	return attachments, fragments, nil
}

// decodeText interprets raw bytes as UTF-8 with replacement on invalid
// sequences, normalizes line endings to \n and trims surrounding whitespace.
func decodeText(raw []byte) string {
	s := strings.ToValidUTF8(string(raw), "�")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.TrimSpace(s)
}

func lastSegment(key string) string {
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[i+1:]
	}
	return key
}
