package crawler

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/whitehat-seo/hubcrawl/internal/types"
)

// Progress tracks run statistics for periodic reporting. All updates and
// renderings are serialized by the mutex so percentage and rate stay
// consistent.
type Progress struct {
	mu    sync.Mutex
	total int
	start time.Time

	completed int
	success   int
	failure   int

	hubspotFound int
	tracking     int
	cms          int
	forms        int
	chat         int
	video        int
	meetings     int
	email        int

	definitive int
	strong     int
	moderate   int
	weak       int

	hubIDs map[int]struct{}
}

// NewProgress creates a tracker for a run over total URLs.
func NewProgress(total int) *Progress {
	return &Progress{
		total:  total,
		start:  time.Now(),
		hubIDs: make(map[int]struct{}),
	}
}

// RecordSuccess folds a detection result into the statistics and returns the
// completed count.
func (p *Progress) RecordSuccess(res *types.Result) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.completed++
	p.success++

	s := res.Summary
	if s.Tracking || s.CMSHosting || s.Features.Any() {
		p.hubspotFound++
	}
	if s.Tracking {
		p.tracking++
	}
	if s.CMSHosting {
		p.cms++
	}
	if s.Features.Forms {
		p.forms++
	}
	if s.Features.Chat {
		p.chat++
	}
	if s.Features.Video {
		p.video++
	}
	if s.Features.Meetings {
		p.meetings++
	}
	if s.Features.EmailTrackingIndicators {
		p.email++
	}

	switch s.Confidence {
	case types.Definitive:
		p.definitive++
	case types.Strong:
		p.strong++
	case types.Moderate:
		p.moderate++
	case types.Weak:
		p.weak++
	}

	for _, id := range res.HubIDs {
		p.hubIDs[id] = struct{}{}
	}
	return p.completed
}

// RecordFailure counts a URL that exhausted every attempt and returns the
// completed count.
func (p *Progress) RecordFailure() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed++
	p.failure++
	return p.completed
}

func (p *Progress) elapsed() float64 { return time.Since(p.start).Seconds() }

func (p *Progress) rate() float64 {
	if e := p.elapsed(); e > 0 {
		return float64(p.completed) / e
	}
	return 0
}

func (p *Progress) eta() float64 {
	if r := p.rate(); r > 0 {
		return float64(p.total-p.completed) / r
	}
	return 0
}

func (p *Progress) percentage() float64 {
	if p.total > 0 {
		return float64(p.completed) / float64(p.total) * 100
	}
	return 0
}

// formatTime renders seconds as H:MM:SS, dropping the hour when zero.
func formatTime(seconds float64) string {
	if seconds < 0 || math.IsInf(seconds, 0) || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int(seconds)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}

// Status renders the current statistics in the requested style
// (compact, detailed, or json).
func (p *Progress) Status(style string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch style {
	case "detailed":
		return p.detailedStatus()
	case "json":
		return p.jsonStatus()
	default:
		return p.compactStatus()
	}
}

func (p *Progress) headline() string {
	return fmt.Sprintf("Progress: %d/%d (%.1f%%) | Success: %d | Failed: %d | Rate: %.1f URL/s | Elapsed: %s | ETA: %s",
		p.completed, p.total, p.percentage(), p.success, p.failure,
		p.rate(), formatTime(p.elapsed()), formatTime(p.eta()))
}

func (p *Progress) compactStatus() string {
	line := p.headline()
	if p.success > 0 {
		pct := float64(p.hubspotFound) / float64(p.success) * 100
		line += fmt.Sprintf("\nHubSpot Found: %d/%d (%.1f%%) | Hub IDs: %d unique",
			p.hubspotFound, p.success, pct, len(p.hubIDs))
	}
	return line
}

func (p *Progress) detailedStatus() string {
	lines := []string{p.headline()}
	if p.success > 0 {
		pct := float64(p.hubspotFound) / float64(p.success) * 100
		lines = append(lines,
			fmt.Sprintf("HubSpot Found: %d/%d (%.1f%%) | Tracking: %d | CMS: %d | Forms: %d | Chat: %d",
				p.hubspotFound, p.success, pct, p.tracking, p.cms, p.forms, p.chat),
			fmt.Sprintf("Confidence: Definitive: %d | Strong: %d | Moderate: %d | Weak: %d | Hub IDs: %d unique",
				p.definitive, p.strong, p.moderate, p.weak, len(p.hubIDs)))
	}
	return strings.Join(lines, "\n")
}

func (p *Progress) jsonStatus() string {
	round2 := func(f float64) float64 { return math.Round(f*100) / 100 }
	data := map[string]any{
		"progress": map[string]any{
			"completed":  p.completed,
			"total":      p.total,
			"percentage": round2(p.percentage()),
			"success":    p.success,
			"failed":     p.failure,
		},
		"performance": map[string]any{
			"rate_urls_per_sec": round2(p.rate()),
			"elapsed_seconds":   round2(p.elapsed()),
			"eta_seconds":       round2(p.eta()),
		},
		"hubspot_detection": map[string]any{
			"found":          p.hubspotFound,
			"tracking":       p.tracking,
			"cms":            p.cms,
			"forms":          p.forms,
			"chat":           p.chat,
			"video":          p.video,
			"meetings":       p.meetings,
			"email":          p.email,
			"unique_hub_ids": len(p.hubIDs),
		},
		"confidence": map[string]any{
			"definitive": p.definitive,
			"strong":     p.strong,
			"moderate":   p.moderate,
			"weak":       p.weak,
		},
	}
	out, err := json.Marshal(data)
	if err != nil {
		return p.headline()
	}
	return string(out)
}

// FinalSummary renders the end-of-run report.
func (p *Progress) FinalSummary() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	lines := []string{fmt.Sprintf("Completed: %d URLs (%d succeeded, %d failed)", p.total, p.success, p.failure)}
	if p.success > 0 {
		pct := float64(p.hubspotFound) / float64(p.success) * 100
		lines = append(lines,
			fmt.Sprintf("HubSpot Found: %d/%d (%.1f%%) | Unique Hub IDs: %d", p.hubspotFound, p.success, pct, len(p.hubIDs)),
			fmt.Sprintf("Total Time: %s | Average Rate: %.1f URL/s", formatTime(p.elapsed()), p.rate()))
	}
	return strings.Join(lines, "\n")
}
