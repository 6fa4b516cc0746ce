package composer

import (
	"strings"
	"testing"

	"packetboat/internal/collector"
	"packetboat/internal/policy"

	"github.com/stretchr/testify/require"
)

func newComposer() *Composer {
	return New("DNS Service Bypass", "reports@example.com", "Informational only.")
}

func TestSubjectsAreDeterministicTemplates(t *testing.T) {
	c := newComposer()

	subject, _ := c.Compose(Request{Kind: policy.KindReport, TenantID: "tenant=wholesales"})
	require.Equal(t, "DNS Service Bypass Weekly Report wholesales", subject)

	subject, _ = c.Compose(Request{Kind: policy.KindTenantNoData, TenantID: "tenant=wholesales"})
	require.Equal(t, "DNS Service Bypass Weekly Report - NO DATA wholesales", subject)

	subject, _ = c.Compose(Request{Kind: policy.KindSystemOutage, DatePartition: "2026-08-10"})
	require.Equal(t, "DNS Service Bypass Weekly Report - NO DATA (ALL AGENCIES) date-partition=2026-08-10", subject)

	subject, _ = c.Compose(Request{Kind: policy.KindFallbackNoDataSummary, DatePartition: "2026-08-10"})
	require.Equal(t, "DNS Service Bypass Weekly Report - NO DATA (date-partition=2026-08-10)", subject)
}

func TestSubjectsIgnoreContents(t *testing.T) {
	c := newComposer()

	bare, _ := c.Compose(Request{Kind: policy.KindReport, TenantID: "tenant=x"})
	full, _ := c.Compose(Request{
		Kind:        policy.KindReport,
		TenantID:    "tenant=x",
		Fragments:   []collector.Fragment{{Label: "DIPS/a.txt", Content: "stuff"}},
		Attachments: []collector.Attachment{{Filename: "DIPS.csv"}},
	})
	require.Equal(t, bare, full)
}

func TestReportBodyWithoutFragmentsIsFooterOnly(t *testing.T) {
	c := newComposer()

	_, body := c.Compose(Request{Kind: policy.KindReport, TenantID: "tenant=x"})
	require.Equal(t, c.footer(), body)
}

func TestReportBodyGroupsFragmentsAndAttachments(t *testing.T) {
	c := newComposer()

	_, body := c.Compose(Request{
		Kind:     policy.KindReport,
		TenantID: "tenant=x",
		Fragments: []collector.Fragment{
			{Label: "chanA/dips_summary.txt", Content: "dest first"},
			{Label: "chanB/SIPS_summary.txt", Content: "source block"},
			{Label: "chanC/DIPS_extra.txt", Content: "dest second"},
		},
		Attachments: []collector.Attachment{
			{Filename: "z_DIPS_top.csv"},
			{Filename: "a_DIPS_top.csv"},
			{Filename: "SIPS_ranked.csv"},
		},
	})

	require.Contains(t, body, "DNS Traffic by Destination")
	require.Contains(t, body, "DNS Traffic by Source")

	// Fragments in discovery order within the group, never alphabetical.
	require.Contains(t, body, "dest first\n\ndest second")
	// Attachment filenames sorted within the group.
	require.Contains(t, body, "Attached files: a_DIPS_top.csv, z_DIPS_top.csv")
	require.Contains(t, body, "Attached files: SIPS_ranked.csv")

	destIdx := strings.Index(body, "DNS Traffic by Destination")
	srcIdx := strings.Index(body, "DNS Traffic by Source")
	require.Less(t, destIdx, srcIdx)
}

func TestReportBodyEmptyGroupGetsPlaceholder(t *testing.T) {
	c := newComposer()

	_, body := c.Compose(Request{
		Kind:      policy.KindReport,
		TenantID:  "tenant=x",
		Fragments: []collector.Fragment{{Label: "chan/DIPS.txt", Content: "dest only"}},
	})

	require.Contains(t, body, "(No SIPS summary report content found for this week.)")
	require.Contains(t, body, "(No DIPS attachments found)")
}

func TestTenantNoDataBodyVariants(t *testing.T) {
	c := newComposer()

	_, body := c.Compose(Request{Kind: policy.KindTenantNoData, TenantID: "tenant=x"})
	require.True(t, strings.HasPrefix(body, "There is no DNS bypass traffic report data for this week and no summary report.\n"))

	_, body = c.Compose(Request{
		Kind:      policy.KindTenantNoData,
		TenantID:  "tenant=x",
		Fragments: []collector.Fragment{{Label: "SIPS.txt", Content: "still some source data"}},
	})
	require.True(t, strings.HasPrefix(body, "There is no DNS bypass traffic report data for this week. A summary report is included below.\n"))
	require.Contains(t, body, "still some source data")
	// No-data notices carry no attachments, so no attachment listings either.
	require.NotContains(t, body, "Attached files:")
}

func TestOutageBodyListsDisplayNames(t *testing.T) {
	c := newComposer()

	_, body := c.Compose(Request{
		Kind:                     policy.KindSystemOutage,
		DatePartition:            "2026-08-10",
		MissingAttachmentTenants: []string{"tenant=alpha", "tenant=beta"},
	})

	require.Contains(t, body, "tenant: alpha\n")
	require.Contains(t, body, "tenant: beta\n")
	require.NotContains(t, body, "tenant=alpha")
}

func TestAggregateBodyListsBothClasses(t *testing.T) {
	c := newComposer()

	_, body := c.Compose(Request{
		Kind:                     policy.KindFallbackNoDataSummary,
		DatePartition:            "2026-08-10",
		MissingAttachmentTenants: []string{"tenant=alpha", "tenant=beta"},
		MissingFragmentTenants:   nil,
	})

	require.Contains(t, body, "Tenants missing report attachments for date-partition=2026-08-10:\nalpha, beta")
	require.Contains(t, body, "Tenants missing summary content for date-partition=2026-08-10:\nNone")
}

func TestFooterIsAlwaysLast(t *testing.T) {
	c := newComposer()
	reqs := []Request{
		{Kind: policy.KindReport, TenantID: "tenant=x", Fragments: []collector.Fragment{{Label: "DIPS", Content: "x"}}},
		{Kind: policy.KindTenantNoData, TenantID: "tenant=x"},
		{Kind: policy.KindSystemOutage, DatePartition: "2026-08-10", MissingAttachmentTenants: []string{"tenant=x"}},
		{Kind: policy.KindFallbackNoDataSummary, DatePartition: "2026-08-10"},
	}

	for _, req := range reqs {
		_, body := c.Compose(req)
		require.True(t, strings.HasSuffix(body, c.footer()), "kind %s: footer must terminate the body", req.Kind)
		require.Contains(t, c.footer(), "reports@example.com")
		require.Contains(t, c.footer(), "DISCLAIMER: Informational only.")
	}
}
