// Package reporter orchestrates one report run: partition discovery,
// artifact collection, classification, policy evaluation, composition and
// delivery, strictly in that order. A run either returns a structured
// result or aborts on the first fatal condition; no partial-tenant output
// is ever emitted.
package reporter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"packetboat/internal/classifier"
	"packetboat/internal/collector"
	"packetboat/internal/composer"
	"packetboat/internal/config"
	"packetboat/internal/directory"
	"packetboat/internal/mailer"
	"packetboat/internal/metrics"
	"packetboat/internal/policy"
	"packetboat/internal/storage"
	"packetboat/internal/walker"
	"packetboat/pkg/logging"
)

// Deliverer is the transport contract the reporter needs from the mailer.
type Deliverer interface {
	Deliver(ctx context.Context, msg mailer.Message) (mailer.DeliveryResult, error)
}

// RunResult is the structured summary returned to the caller on success.
type RunResult struct {
	RunID                     string `json:"run_id"`
	DatePartition             string `json:"date_partition"`
	TestMode                  bool   `json:"test_mode"`
	SystemState               string `json:"system_state"`
	ReportsSent               int    `json:"reports_sent"`
	TenantNoDataSent          int    `json:"tenant_no_data_sent"`
	AggregateNoDataSent       int    `json:"aggregate_no_data_sent"`
	OutageSent                int    `json:"outage_sent"`
	SkippedNoRecipients       int    `json:"skipped_no_recipients"`
	TenantsTotal              int    `json:"tenants_total"`
	TenantsMissingAttachments int    `json:"tenants_missing_attachments"`
	TenantsMissingFragments   int    `json:"tenants_missing_fragments"`
}

// Reporter runs the pipeline. It holds no per-run state; invocations for
// the same date are idempotent reads and re-send the same notifications.
type Reporter struct {
	cfg       *config.Config
	store     storage.ObjectStore
	deliverer Deliverer
	metrics   *metrics.Collector
	logger    logging.Logger

	now func() time.Time
}

func New(cfg *config.Config, store storage.ObjectStore, deliverer Deliverer, mc *metrics.Collector, logger logging.Logger) *Reporter {
	return &Reporter{
		cfg:       cfg,
		store:     store,
		deliverer: deliverer,
		metrics:   mc,
		logger:    logger,
		now:       time.Now,
	}
}

type tenantArtifacts struct {
	attachments []collector.Attachment
	fragments   []collector.Fragment
}

// Run executes one full report run.
func (r *Reporter) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	runID := uuid.NewString()
	log := r.logger.WithField("run_id", runID)
	started := r.now()

	date := resolveDatePartition(opts, started, r.cfg.TestMode, r.cfg.TestDatePartition)

	if r.cfg.TestMode {
		log.WithField("source", "env").Info("Recipient map source: test map")
	} else {
		log.WithFields(logging.Fields{
			"source": "object-store",
			"bucket": r.cfg.RecipientMapBucket,
			"key":    r.cfg.RecipientMapKey,
		}).Info("Recipient map source: production map")
	}
	log.WithFields(logging.Fields{
		"bucket":          r.cfg.Bucket,
		"attachment_root": r.cfg.AttachmentRootPrefix,
		"fragment_root":   r.cfg.FragmentRootPrefix,
		"cadence":         r.cfg.CadencePrefix,
		"date_partition":  date,
	}).Info("Starting report run")

	result := &RunResult{
		RunID:         runID,
		DatePartition: date,
		TestMode:      r.cfg.TestMode,
	}

	var dir directory.Directory
	if r.cfg.TestMode {
		static := directory.NewStatic(r.cfg.TestRecipientMap)
		log.WithField("entries", static.Len()).Info("Loaded test recipient map")
		dir = static
	} else {
		loaded, err := directory.LoadFromStore(ctx, r.store, r.cfg.RecipientMapBucket, r.cfg.RecipientMapKey, r.logger)
		if err != nil {
			return nil, r.fail(err)
		}
		dir = loaded
	}

	w := walker.New(r.store, r.cfg.Bucket, r.cfg.CadencePrefix, r.logger)
	tenants, err := w.DiscoverLeafPartitions(ctx, r.cfg.AttachmentRootPrefix, date)
	if err != nil {
		return nil, r.fail(err)
	}
	result.TenantsTotal = len(tenants)
	if r.metrics != nil {
		r.metrics.TenantsDiscovered.Set(float64(len(tenants)))
	}
	if len(tenants) == 0 {
		log.Warn("No tenants discovered; nothing to report (check the attachment root prefix)")
	}

	col := collector.New(collector.Params{
		Store:                r.store,
		Bucket:               r.cfg.Bucket,
		AttachmentRootPrefix: r.cfg.AttachmentRootPrefix,
		FragmentRootPrefix:   r.cfg.FragmentRootPrefix,
		AttachmentSuffix:     r.cfg.AttachmentSuffix,
		FragmentSuffix:       r.cfg.FragmentSuffix,
		Logger:               r.logger,
	})

	arts := make([]classifier.TenantArtifacts, 0, len(tenants))
	byTenant := make(map[string]tenantArtifacts, len(tenants))
	for _, tenant := range tenants {
		attachments, fragments, err := col.Collect(ctx, tenant)
		if err != nil {
			return nil, r.fail(err)
		}
		byTenant[tenant.ID] = tenantArtifacts{attachments: attachments, fragments: fragments}
		arts = append(arts, classifier.TenantArtifacts{
			TenantID:       tenant.ID,
			HasAttachments: len(attachments) > 0,
			HasFragments:   len(fragments) > 0,
		})
	}

	plan := policy.Evaluate(arts, dir, r.cfg.FallbackRecipients, r.logger)
	result.SystemState = plan.System.String()
	result.SkippedNoRecipients = plan.SkippedNoRecipients
	result.TenantsMissingAttachments = len(plan.MissingAttachmentTenants)
	result.TenantsMissingFragments = len(plan.MissingFragmentTenants)

	comp := composer.New(r.cfg.ProductName, r.cfg.MailFrom, r.cfg.Disclaimer)
	for _, n := range plan.Notifications {
		req := composer.Request{
			Kind:                     n.Kind,
			TenantID:                 n.TenantID,
			DatePartition:            date,
			MissingAttachmentTenants: plan.MissingAttachmentTenants,
			MissingFragmentTenants:   plan.MissingFragmentTenants,
		}

		var attachments []collector.Attachment
		if n.TenantID != "" {
			ta := byTenant[n.TenantID]
			req.Fragments = ta.fragments
			if n.Kind == policy.KindReport {
				req.Attachments = ta.attachments
				attachments = ta.attachments
			}
		}

		subject, body := comp.Compose(req)
		delivery, err := r.deliverer.Deliver(ctx, mailer.Message{
			Subject:     subject,
			Body:        body,
			Recipients:  n.Recipients,
			Attachments: attachments,
		})
		if err != nil {
			return nil, r.fail(fmt.Errorf("deliver %s notification: %w", n.Kind, err))
		}

		log.WithFields(logging.Fields{
			"kind":           string(n.Kind),
			"tenant":         n.TenantID,
			"host":           delivery.HostUsed,
			"recipients":     len(n.Recipients),
			"attachments":    len(attachments),
			"date_partition": date,
		}).Info("Notification sent")

		switch n.Kind {
		case policy.KindReport:
			result.ReportsSent++
		case policy.KindTenantNoData:
			result.TenantNoDataSent++
		case policy.KindFallbackNoDataSummary:
			result.AggregateNoDataSent++
		case policy.KindSystemOutage:
			result.OutageSent++
		}
		if r.metrics != nil {
			r.metrics.NotificationsTotal.WithLabelValues(string(n.Kind)).Inc()
		}
	}

	if r.metrics != nil {
		r.metrics.RunsTotal.WithLabelValues("success").Inc()
		r.metrics.RunDuration.Observe(r.now().Sub(started).Seconds())
	}

	log.WithFields(logging.Fields{
		"system_state":           result.SystemState,
		"reports_sent":           result.ReportsSent,
		"tenant_no_data_sent":    result.TenantNoDataSent,
		"aggregate_no_data_sent": result.AggregateNoDataSent,
		"outage_sent":            result.OutageSent,
		"skipped_no_recipients":  result.SkippedNoRecipients,
		"tenants_total":          result.TenantsTotal,
	}).Info("Report run finished")

	return result, nil
}

func (r *Reporter) fail(err error) error {
	if r.metrics != nil {
		r.metrics.RunsTotal.WithLabelValues("failed").Inc()
	}
	return err
}
