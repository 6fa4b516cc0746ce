// Package classifier derives per-tenant and system-wide completeness states
// from the artifacts collected for a run.
package classifier

// TenantState is a tenant's data completeness for one run. It is derived,
// never stored; re-running classification on the same inputs yields the
// same states.
type TenantState int

const (
	// HasReport: attachments present. Fragment presence is irrelevant here.
	HasReport TenantState = iota
	// NoAttachmentsHasSummary: no attachments, but at least one fragment.
	NoAttachmentsHasSummary
	// NoAttachmentsNoSummary: neither artifact class present.
	NoAttachmentsNoSummary
)

func (s TenantState) String() string {
	switch s {
	case HasReport:
		return "has_report"
	case NoAttachmentsHasSummary:
		return "no_attachments_has_summary"
	case NoAttachmentsNoSummary:
		return "no_attachments_no_summary"
	}
	return "unknown"
}

// SystemState is the run-wide completeness state.
type SystemState int

const (
	SystemNormal SystemState = iota
	// SystemOutage: every discovered tenant produced nothing of either
	// class. A run with zero tenants is Normal, not an outage: that
	// pattern points at a discovery misconfiguration rather than a data
	// outage.
	SystemOutage
)

func (s SystemState) String() string {
	if s == SystemOutage {
		return "outage"
	}
	return "normal"
}

// TenantArtifacts is the classification input for one tenant.
type TenantArtifacts struct {
	TenantID       string
	HasAttachments bool
	HasFragments   bool
}

// Result holds per-tenant states in input order plus the system state.
type Result struct {
	Tenants []TenantResult
	System  SystemState
}

type TenantResult struct {
	TenantID string
	State    TenantState
}

// Classify maps artifact presence to tenant states and the system state.
func Classify(tenants []TenantArtifacts) Result {
	res := Result{
		Tenants: make([]TenantResult, 0, len(tenants)),
		System:  SystemNormal,
	}

	anyArtifact := false
	for _, t := range tenants {
		state := NoAttachmentsNoSummary
		switch {
		case t.HasAttachments:
			state = HasReport
		case t.HasFragments:
			state = NoAttachmentsHasSummary
		}
		if state != NoAttachmentsNoSummary {
			anyArtifact = true
		}
		res.Tenants = append(res.Tenants, TenantResult{TenantID: t.TenantID, State: state})
	}

	if len(tenants) > 0 && !anyArtifact {
		res.System = SystemOutage
	}
	return res
}
