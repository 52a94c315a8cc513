// Package docresult defines the citeable document variants returned by the
// search plugin layer: NUREG 1022 §3.2 sections, Reportability Manual
// sections, and naive full-document chunks. Each renders a dense string for
// agent consumption and a display value plus signed URL for the user-facing
// citation list.
package docresult

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Kind identifies which concrete PluginResult variant a result is.
type Kind string

const (
	KindNuregSection        Kind = "nuregsection32"
	KindReportabilityManual Kind = "reportabilitymanual"
	KindNaiveChunk          Kind = "naivesearch"
)

// Base carries the fields common to every PluginResult variant.
type Base struct {
	ID          string
	Bucket      string
	Key         string
	PageNumber  int
	Cited       bool
	SearchQuery string
}

// PluginResult is the common surface every concrete search-result variant
// implements.
type PluginResult interface {
	Identity() Base
	SetCited(cited bool)
	SetSearchQuery(query string)
	AgentString() string
	DisplayValue() string
	Kind() Kind
}

// URLSigner mints a time-limited, page-anchored URL for a stored object.
// Implemented by internal/objectstore.S3Store.
type URLSigner interface {
	PresignGetURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// ResolveURL signs a citation URL for the document backing r, anchored to
// its page number, mirroring the original's SAS-token "#page=N" scheme.
func ResolveURL(ctx context.Context, signer URLSigner, r PluginResult, expiry time.Duration) (string, error) {
	b := r.Identity()
	url, err := signer.PresignGetURL(ctx, b.Key, expiry)
	if err != nil {
		return "", fmt.Errorf("resolve citation url for %s: %w", b.ID, err)
	}
	if b.PageNumber > 0 {
		url = fmt.Sprintf("%s#page=%d", url, b.PageNumber)
	}
	return url, nil
}

// Summary is the compact, user-facing form of a PluginResult, analogous to
// the original's SearchPluginResult.
type Summary struct {
	SearchType  string `json:"searchType"`
	DocumentID  string `json:"documentId"`
	DocumentURI string `json:"documentUri"`
	SearchQuery string `json:"searchQuery,omitempty"`
	Cited       bool   `json:"cited"`
}

// ToSummary converts r to its user-facing Summary, signing the document URI.
func ToSummary(ctx context.Context, signer URLSigner, expiry time.Duration, r PluginResult) (Summary, error) {
	uri, err := ResolveURL(ctx, signer, r, expiry)
	if err != nil {
		return Summary{}, err
	}
	b := r.Identity()
	return Summary{
		SearchType:  string(r.Kind()),
		DocumentID:  b.ID,
		DocumentURI: uri,
		SearchQuery: b.SearchQuery,
		Cited:       b.Cited,
	}, nil
}

// Example is a worked example attached to a NuregSection.
type Example struct {
	Title       string
	Description string
}

// NuregSection is a single entry from NUREG 1022 §3.2.
type NuregSection struct {
	Base
	Section     string
	CFR5072     []string
	CFR5073     []string
	Description string
	Discussion  string
	Examples    []Example
}

func (n *NuregSection) Identity() Base          { return n.Base }
func (n *NuregSection) SetCited(c bool)         { n.Cited = c }
func (n *NuregSection) SetSearchQuery(q string) { n.SearchQuery = q }
func (n *NuregSection) Kind() Kind              { return KindNuregSection }

func (n *NuregSection) DisplayValue() string { return n.Section }

func (n *NuregSection) AgentString() string {
	examplesStr := "None"
	if len(n.Examples) > 0 {
		lines := make([]string, len(n.Examples))
		for i, ex := range n.Examples {
			lines[i] = fmt.Sprintf("- %s: %s", ex.Title, ex.Description)
		}
		examplesStr = strings.Join(lines, "\n")
	}
	return fmt.Sprintf(
		"NUREG Section 3.2 Entry:\nDocument Id: %s\nSection Name: %s\n10 CFR 50.72: %s\n10 CFR 50.73: %s\nDescription: \n%s\nDiscussion: \n%s\nExamples:\n%s",
		n.ID, n.Section, strings.Join(n.CFR5072, ", "), strings.Join(n.CFR5073, ", "), n.Description, n.Discussion, examplesStr,
	)
}

// RequiredNotification is a notification obligation triggered by a
// Reportability Manual section.
type RequiredNotification struct {
	TimeLimit    string
	Notification string
}

// RequiredReport is a written-report obligation triggered by a
// Reportability Manual section.
type RequiredReport struct {
	TimeLimit    string
	Notification string
}

// ReportabilityManual is a single section from Constellation's
// Reportability Manual.
type ReportabilityManual struct {
	Base
	SectionName            string
	References             []string
	ReferenceContent       string
	Discussion             string
	RequiredNotifications  []RequiredNotification
	RequiredWrittenReports []RequiredReport
}

func (r *ReportabilityManual) Identity() Base          { return r.Base }
func (r *ReportabilityManual) SetCited(c bool)         { r.Cited = c }
func (r *ReportabilityManual) SetSearchQuery(q string) { r.SearchQuery = q }
func (r *ReportabilityManual) Kind() Kind              { return KindReportabilityManual }

func (r *ReportabilityManual) DisplayValue() string { return r.SectionName }

func (r *ReportabilityManual) AgentString() string {
	notifications := "None"
	if len(r.RequiredNotifications) > 0 {
		lines := make([]string, len(r.RequiredNotifications))
		for i, rn := range r.RequiredNotifications {
			lines[i] = fmt.Sprintf("- %s: %s", rn.TimeLimit, rn.Notification)
		}
		notifications = strings.Join(lines, "\n")
	}
	reports := "None"
	if len(r.RequiredWrittenReports) > 0 {
		lines := make([]string, len(r.RequiredWrittenReports))
		for i, rr := range r.RequiredWrittenReports {
			lines[i] = fmt.Sprintf("- %s: %s", rr.TimeLimit, rr.Notification)
		}
		reports = strings.Join(lines, "\n")
	}
	return fmt.Sprintf(
		"Reportability Manual Entry:\nDocument Id: %s\nSection Name: %s\nReferences: \n%s\nReference Content: \n%s\nDiscussion: \n%s\nRequired Notifications:\n%s\nRequired Reports:\n%s",
		r.ID, r.SectionName, strings.Join(r.References, ", "), r.ReferenceContent, r.Discussion, notifications, reports,
	)
}

// NaiveChunk is an unstructured chunk from the naive ingestion path, used by
// both the TS and UFSAR naive-search indexes.
type NaiveChunk struct {
	Base
	ChunkID string
	Title   string
	URL     string
	Content string
}

func (c *NaiveChunk) Identity() Base          { return c.Base }
func (c *NaiveChunk) SetCited(v bool)         { c.Cited = v }
func (c *NaiveChunk) SetSearchQuery(q string) { c.SearchQuery = q }
func (c *NaiveChunk) Kind() Kind              { return KindNaiveChunk }

func (c *NaiveChunk) DisplayValue() string { return c.Title }

func (c *NaiveChunk) AgentString() string {
	return fmt.Sprintf("Naive Search Entry:\nDocument Id: %s\nTitle: %s\nurl: \n%s\nContent: \n%s\n", c.ChunkID, c.Title, c.URL, c.Content)
}
