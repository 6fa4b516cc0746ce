// Package policy maps the run's completeness states to the set of
// notifications to emit, with the outage suppression rule and the explicit
// recipient gates applied.
package policy

import (
	"packetboat/internal/classifier"
	"packetboat/internal/directory"
	"packetboat/pkg/logging"
)

// Kind identifies a notification variant.
type Kind string

const (
	KindReport                Kind = "report"
	KindTenantNoData          Kind = "tenant_no_data"
	KindFallbackNoDataSummary Kind = "fallback_no_data_summary"
	KindSystemOutage          Kind = "system_outage"
)

// Notification is one planned emission. TenantID is empty for the
// system-wide kinds.
type Notification struct {
	Kind       Kind
	TenantID   string
	Recipients []string
}

// Plan is the ordered notification set for one run. Report notifications
// come first, then per-tenant no-data notices, then the single aggregate or
// outage notification; result counters downstream are reported in that
// order.
type Plan struct {
	System                   classifier.SystemState
	Notifications            []Notification
	SkippedNoRecipients      int
	MissingAttachmentTenants []string // tenant IDs, discovery order
	MissingFragmentTenants   []string
}

// Evaluate builds the notification plan for the collected artifacts.
//
// Outage is absorbing: when every tenant produced nothing of either class,
// exactly one system notification goes to the fallback list (none if the
// list is empty) and nothing else is evaluated. Under normal state, report
// recipients fall back to the default list, while per-tenant no-data
// notices require an explicit mapping so tenants that never opted in are
// not spammed.
func Evaluate(arts []classifier.TenantArtifacts, dir directory.Directory, fallback []string, logger logging.Logger) Plan {
	res := classifier.Classify(arts)
	plan := Plan{System: res.System}

	for _, a := range arts {
		if !a.HasAttachments {
			plan.MissingAttachmentTenants = append(plan.MissingAttachmentTenants, a.TenantID)
		}
		if !a.HasFragments {
			plan.MissingFragmentTenants = append(plan.MissingFragmentTenants, a.TenantID)
		}
	}

	if res.System == classifier.SystemOutage {
		if len(fallback) == 0 {
			logger.Warn("System outage detected but no fallback recipients configured; emitting nothing")
			return plan
		}
		plan.Notifications = append(plan.Notifications, Notification{
			Kind:       KindSystemOutage,
			Recipients: fallback,
		})
		return plan
	}

	// Reports first.
	for _, tr := range res.Tenants {
		if tr.State != classifier.HasReport {
			continue
		}
		recipients := dir.Lookup(tr.TenantID)
		if len(recipients) == 0 {
			recipients = fallback
		}
		if len(recipients) == 0 {
			logger.WithField("tenant", tr.TenantID).Warn("No recipients resolvable for report; skipping")
			plan.SkippedNoRecipients++
			continue
		}
		plan.Notifications = append(plan.Notifications, Notification{
			Kind:       KindReport,
			TenantID:   tr.TenantID,
			Recipients: recipients,
		})
	}

	// Per-tenant no-data notices: explicit mapping only, no fallback.
	for _, tr := range res.Tenants {
		if tr.State == classifier.HasReport {
			continue
		}
		explicit := dir.Lookup(tr.TenantID)
		if len(explicit) == 0 {
			continue
		}
		plan.Notifications = append(plan.Notifications, Notification{
			Kind:       KindTenantNoData,
			TenantID:   tr.TenantID,
			Recipients: explicit,
		})
	}

	// One aggregate summary to the fallback list, last.
	if len(plan.MissingAttachmentTenants) > 0 && len(fallback) > 0 {
		plan.Notifications = append(plan.Notifications, Notification{
			Kind:       KindFallbackNoDataSummary,
			Recipients: fallback,
		})
	}

	return plan
}
