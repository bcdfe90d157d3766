package types

import (
	"strconv"
	"strings"
	"time"
)

// Confidence is the four-level lattice shared by evidence and summaries.
type Confidence string

const (
	Definitive Confidence = "definitive"
	Strong     Confidence = "strong"
	Moderate   Confidence = "moderate"
	Weak       Confidence = "weak"
)

// Evidence categories.
const (
	CategoryTracking = "tracking"
	CategoryCMS      = "cms"
	CategoryFiles    = "files"
	CategoryForms    = "forms"
	CategoryChat     = "chat"
	CategoryCTAs     = "ctas"
	CategoryMeetings = "meetings"
	CategoryVideo    = "video"
	CategoryEmail    = "email"
	CategoryCookies  = "cookies"
)

// Evidence sources.
const (
	SourceHTML   = "html"
	SourceURL    = "url"
	SourceHeader = "header"
)

// MatchLimit is the maximum stored length of an evidence match.
const MatchLimit = 300

// Evidence is one observation supporting a detection claim. Immutable once
// created.
type Evidence struct {
	Category   string     `json:"category"`
	PatternID  string     `json:"patternId"`
	Match      string     `json:"match"`
	Source     string     `json:"source"`
	HubID      *int       `json:"hubId"`
	Confidence Confidence `json:"confidence"`
	Context    *string    `json:"context"`
}

// Features flags the product areas a page shows signs of.
type Features struct {
	Forms                   bool `json:"forms"`
	Chat                    bool `json:"chat"`
	CTAsLegacy              bool `json:"ctasLegacy"`
	Meetings                bool `json:"meetings"`
	Video                   bool `json:"video"`
	EmailTrackingIndicators bool `json:"emailTrackingIndicators"`
}

// Any reports whether at least one feature flag is set.
func (f Features) Any() bool {
	return f.Forms || f.Chat || f.CTAsLegacy || f.Meetings || f.Video || f.EmailTrackingIndicators
}

// Summary is the aggregate view derived deterministically from evidence.
type Summary struct {
	Tracking   bool       `json:"tracking"`
	CMSHosting bool       `json:"cmsHosting"`
	Features   Features   `json:"features"`
	Confidence Confidence `json:"confidence"`
}

// PageMetadata carries the page title and meta description, when present.
type PageMetadata struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// URLVariation records that a result was obtained through a fallback URL.
type URLVariation struct {
	OriginalURL   string `json:"original_url"`
	WorkingURL    string `json:"working_url"`
	VariationType string `json:"variation_type"`
}

// Result is the detection record emitted per input URL. Success and failure
// records share their column set after flattening.
type Result struct {
	OriginalURL     string            `json:"originalUrl"`
	FinalURL        string            `json:"finalUrl"`
	Timestamp       string            `json:"timestamp"`
	HubSpotDetected bool              `json:"hubspotDetected"`
	HubIDs          []int             `json:"hubIds"`
	Summary         Summary           `json:"summary"`
	Evidence        []Evidence        `json:"evidence"`
	Headers         map[string]string `json:"headers"`
	HTTPStatus      *int              `json:"httpStatus,omitempty"`
	PageMetadata    *PageMetadata     `json:"pageMetadata,omitempty"`
	URLVariation    *URLVariation     `json:"url_variation,omitempty"`

	// Failure-only fields.
	Error         string   `json:"error,omitempty"`
	Attempts      int      `json:"attempts,omitempty"`
	AttemptedURLs []string `json:"attemptedUrls,omitempty"`
}

// IsFailure reports whether this is a failure record.
func (r *Result) IsFailure() bool { return r.Error != "" }

// NewFailureResult builds the failure record for an input URL that exhausted
// every attempt. It shares the success shape with empty evidence/headers.
func NewFailureResult(originalURL, errMsg string, attempts int, attemptedURLs []string, status *int) *Result {
	return &Result{
		OriginalURL:     originalURL,
		FinalURL:        originalURL,
		Timestamp:       UTCTimestamp(),
		HubSpotDetected: false,
		HubIDs:          []int{},
		Summary:         Summary{Confidence: Weak},
		Evidence:        []Evidence{},
		Headers:         map[string]string{},
		HTTPStatus:      status,
		Error:           errMsg,
		Attempts:        attempts,
		AttemptedURLs:   attemptedURLs,
	}
}

// UTCTimestamp returns the current time as an ISO-8601 UTC string with a
// Z suffix, matching the wire format of the result schema.
func UTCTimestamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000000") + "Z"
}

// ColumnOrder is the fixed tabular column set shared by the CSV and XLSX
// sinks.
var ColumnOrder = []string{
	"original_url", "final_url", "timestamp", "hubspot_detected",
	"tracking", "cms_hosting", "confidence",
	"forms", "chat", "ctas_legacy", "meetings", "video", "email_tracking",
	"hub_ids", "hub_id_count", "evidence_count", "http_status",
	"page_title", "page_description",
}

// Flatten converts a result into the fixed tabular column set. Booleans are
// kept as values so the XLSX sink can write native boolean cells.
func (r *Result) Flatten() map[string]any {
	hubIDs := make([]string, len(r.HubIDs))
	for i, id := range r.HubIDs {
		hubIDs[i] = strconv.Itoa(id)
	}

	var status any
	if r.HTTPStatus != nil {
		status = *r.HTTPStatus
	} else {
		status = ""
	}

	var title, description string
	if r.PageMetadata != nil {
		if r.PageMetadata.Title != nil {
			title = *r.PageMetadata.Title
		}
		if r.PageMetadata.Description != nil {
			description = *r.PageMetadata.Description
		}
	}

	return map[string]any{
		"original_url":     r.OriginalURL,
		"final_url":        r.FinalURL,
		"timestamp":        r.Timestamp,
		"hubspot_detected": r.HubSpotDetected,
		"tracking":         r.Summary.Tracking,
		"cms_hosting":      r.Summary.CMSHosting,
		"confidence":       string(r.Summary.Confidence),
		"forms":            r.Summary.Features.Forms,
		"chat":             r.Summary.Features.Chat,
		"ctas_legacy":      r.Summary.Features.CTAsLegacy,
		"meetings":         r.Summary.Features.Meetings,
		"video":            r.Summary.Features.Video,
		"email_tracking":   r.Summary.Features.EmailTrackingIndicators,
		"hub_ids":          strings.Join(hubIDs, ","),
		"hub_id_count":     len(r.HubIDs),
		"evidence_count":   len(r.Evidence),
		"http_status":      status,
		"page_title":       title,
		"page_description": description,
	}
}
