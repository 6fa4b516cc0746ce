// Package composer renders notification subjects and plain-text bodies.
// Rendering is deterministic: subjects depend only on identifiers and the
// run's date value, fragment contents appear in discovery order, and the
// shared footer is always the last element of every body.
package composer

import (
	"fmt"
	"sort"
	"strings"

	"packetboat/internal/collector"
	"packetboat/internal/policy"
	"packetboat/internal/walker"
)

// Fragment group tokens and their section headers. A fragment or attachment
// belongs to a group when its label or filename contains the token,
// case-insensitively.
const (
	tokenDIPS = "DIPS"
	tokenSIPS = "SIPS"

	headerDestination = "DNS Traffic by Destination"
	headerSource      = "DNS Traffic by Source"

	placeholderNoDIPSSummary     = "(No DIPS summary report content found for this week.)"
	placeholderNoSIPSSummary     = "(No SIPS summary report content found for this week.)"
	placeholderNoDIPSAttachments = "(No DIPS attachments found)"
	placeholderNoSIPSAttachments = "(No SIPS attachments found)"
)

const footerTemplate = "\n\nFor questions about this report, please reply to this message or e-mail %s.\nDISCLAIMER: %s\n"

// Request carries everything a single composition needs. TenantID is empty
// for the system-wide kinds; the tenant listings are only read for those.
type Request struct {
	Kind                     policy.Kind
	TenantID                 string
	DatePartition            string
	Fragments                []collector.Fragment
	Attachments              []collector.Attachment
	MissingAttachmentTenants []string
	MissingFragmentTenants   []string
}

// Composer renders subjects and bodies from labeled content fragments.
type Composer struct {
	product    string
	sender     string
	disclaimer string
}

func New(product, sender, disclaimer string) *Composer {
	return &Composer{
		product:    product,
		sender:     sender,
		disclaimer: disclaimer,
	}
}

// Compose returns the subject and body for one notification.
func (c *Composer) Compose(req Request) (subject, body string) {
	switch req.Kind {
	case policy.KindReport:
		return c.reportSubject(req), c.reportBody(req)
	case policy.KindTenantNoData:
		return c.tenantNoDataSubject(req), c.tenantNoDataBody(req)
	case policy.KindSystemOutage:
		return c.outageSubject(req), c.outageBody(req)
	case policy.KindFallbackNoDataSummary:
		return c.aggregateSubject(req), c.aggregateBody(req)
	}
	return "", c.footer()
}

func (c *Composer) reportSubject(req Request) string {
	return fmt.Sprintf("%s Weekly Report %s", c.product, walker.DisplayName(req.TenantID))
}

func (c *Composer) tenantNoDataSubject(req Request) string {
	return fmt.Sprintf("%s Weekly Report - NO DATA %s", c.product, walker.DisplayName(req.TenantID))
}

func (c *Composer) outageSubject(req Request) string {
	return fmt.Sprintf("%s Weekly Report - NO DATA (ALL AGENCIES) date-partition=%s", c.product, req.DatePartition)
}

func (c *Composer) aggregateSubject(req Request) string {
	return fmt.Sprintf("%s Weekly Report - NO DATA (date-partition=%s)", c.product, req.DatePartition)
}

func (c *Composer) reportBody(req Request) string {
	var b strings.Builder
	if len(req.Fragments) > 0 {
		b.WriteString(c.groupedSummarySection(req.Fragments, req.Attachments, true))
	}
	b.WriteString(c.footer())
	return b.String()
}

func (c *Composer) tenantNoDataBody(req Request) string {
	var b strings.Builder
	if len(req.Fragments) > 0 {
		b.WriteString("There is no DNS bypass traffic report data for this week. A summary report is included below.\n\n")
		b.WriteString(c.groupedSummarySection(req.Fragments, nil, false))
	} else {
		b.WriteString("There is no DNS bypass traffic report data for this week and no summary report.\n")
	}
	b.WriteString(c.footer())
	return b.String()
}

func (c *Composer) outageBody(req Request) string {
	var b strings.Builder
	b.WriteString("NO DATA DETAILS:\n")
	fmt.Fprintf(&b, "No report data of any kind was found for date-partition=%s.\n", req.DatePartition)
	b.WriteString("Affected tenants:\n")
	for _, id := range req.MissingAttachmentTenants {
		fmt.Fprintf(&b, "tenant: %s\n", walker.DisplayName(id))
	}
	b.WriteString(c.footer())
	return b.String()
}

func (c *Composer) aggregateBody(req Request) string {
	var b strings.Builder
	b.WriteString("NO DATA DETAILS:\n")
	fmt.Fprintf(&b, "Tenants missing report attachments for date-partition=%s:\n", req.DatePartition)
	b.WriteString(displayList(req.MissingAttachmentTenants))
	b.WriteString("\n\nSUMMARY NO DATA DETAILS:\n")
	fmt.Fprintf(&b, "Tenants missing summary content for date-partition=%s:\n", req.DatePartition)
	b.WriteString(displayList(req.MissingFragmentTenants))
	b.WriteString("\n")
	b.WriteString(c.footer())
	return b.String()
}

// groupedSummarySection renders the two token groups as labeled sections.
// When listings are on, each section ends with the sorted listing of
// attachment filenames matched by the same token; no-data notices carry no
// attachments and suppress the listings. Fragments keep their discovery
// order within a group.
func (c *Composer) groupedSummarySection(fragments []collector.Fragment, attachments []collector.Attachment, listings bool) string {
	var b strings.Builder

	b.WriteString(headerDestination + "\n\n")
	b.WriteString(groupText(fragments, tokenDIPS, placeholderNoDIPSSummary))
	b.WriteString("\n\n")
	if listings {
		b.WriteString("Attached files: " + groupFilenames(attachments, tokenDIPS, placeholderNoDIPSAttachments))
		b.WriteString("\n\n")
	}

	b.WriteString(headerSource + "\n\n")
	b.WriteString(groupText(fragments, tokenSIPS, placeholderNoSIPSSummary))
	b.WriteString("\n")
	if listings {
		b.WriteString("\nAttached files: " + groupFilenames(attachments, tokenSIPS, placeholderNoSIPSAttachments))
		b.WriteString("\n")
	}

	return b.String()
}

func (c *Composer) footer() string {
	return fmt.Sprintf(footerTemplate, c.sender, c.disclaimer)
}

func containsToken(s, token string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(token))
}

func groupText(fragments []collector.Fragment, token, placeholder string) string {
	var blocks []string
	for _, f := range fragments {
		if containsToken(f.Label, token) && f.Content != "" {
			blocks = append(blocks, f.Content)
		}
	}
	if len(blocks) == 0 {
		return placeholder
	}
	return strings.Join(blocks, "\n\n")
}

func groupFilenames(attachments []collector.Attachment, token, placeholder string) string {
	var names []string
	for _, a := range attachments {
		if containsToken(a.Filename, token) {
			names = append(names, a.Filename)
		}
	}
	if len(names) == 0 {
		return placeholder
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func displayList(tenantIDs []string) string {
	if len(tenantIDs) == 0 {
		return "None"
	}
	names := make([]string, 0, len(tenantIDs))
	for _, id := range tenantIDs {
		names = append(names, walker.DisplayName(id))
	}
	return strings.Join(names, ", ")
}
