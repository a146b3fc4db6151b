package ingest

import (
	"bytes"
	"encoding/json"
	"log"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"github.com/david/rfp-desk/internal/models"
)

// HTMLToText converts HTML to plain text, collapsing whitespace. Text without
// markup is only whitespace-normalised.
func HTMLToText(html string) string {
	if !strings.ContainsAny(html, "<&") {
		return cleanText(html)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return cleanText(html) // Fallback to original if parsing fails
	}
	return cleanText(doc.Text())
}

var descriptionPolicy = bluemonday.UGCPolicy()

// SanitizeHTML keeps the display markup of an HTML description and strips
// scripts, handlers and frames. Plain text yields an empty string.
func SanitizeHTML(html string) string {
	if !strings.Contains(html, "<") {
		return ""
	}
	return strings.TrimSpace(descriptionPolicy.Sanitize(html))
}

// RecordID returns the identifier a feed used for the record, preferring
// rfp_id over the generic id field.
func RecordID(raw RawOpportunity) string {
	return firstNonEmpty(string(raw.RFPID), string(raw.ID))
}

// FromRaw converts a RawOpportunity into an OpportunityRecord. Absent fields
// stay empty; filling them is the enricher's job.
func FromRaw(raw RawOpportunity) models.OpportunityRecord {
	rec := models.OpportunityRecord{
		ID:              RecordID(raw),
		Title:           HTMLToText(raw.Title),
		Organization:    cleanText(firstNonEmpty(raw.Organization, raw.Client)),
		Department:      cleanText(raw.Department),
		Category:        cleanText(raw.Category),
		IssueDate:       normalizeDate(raw.IssueDate),
		Deadline:        normalizeDate(raw.Deadline),
		SourceStatusRaw: strings.TrimSpace(raw.Status),
		Description:     HTMLToText(raw.Description),
		DescriptionHTML: SanitizeHTML(raw.Description),
		SubmissionEmail: strings.TrimSpace(raw.SubmissionEmail),
		Priority:        models.ParsePriority(raw.Priority),
	}

	// match_percent is the continuous score; match is the dashboard's
	// whole-number copy.
	candidates := []struct {
		raw   json.RawMessage
		whole bool
	}{{raw.MatchPercent, false}, {raw.Match, true}}
	for _, candidate := range candidates {
		if isAbsent(candidate.raw) {
			continue
		}
		score, err := models.ParseScore(candidate.raw, candidate.whole)
		if err != nil {
			log.Printf("[ingest] record %q: ignoring match score: %v", rec.ID, err)
			continue
		}
		rec.Match = &score
		break
	}

	return rec
}

func isAbsent(msg json.RawMessage) bool {
	trimmed := bytes.TrimSpace(msg)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
