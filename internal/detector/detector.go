package detector

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/whitehat-seo/hubcrawl/internal/types"
)

func push(ev []types.Evidence, category, patternID, match, source string, hubID *int, conf types.Confidence) []types.Evidence {
	if len(match) > types.MatchLimit {
		match = match[:types.MatchLimit]
	}
	return append(ev, types.Evidence{
		Category:   category,
		PatternID:  patternID,
		Match:      match,
		Source:     source,
		HubID:      hubID,
		Confidence: conf,
	})
}

func captureHubID(re *regexp.Regexp, m []string) *int {
	if len(m) < 2 || m[1] == "" {
		return nil
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &id
}

// DetectHTML scans a page body against the pattern table and returns the
// evidence it produces. Each pattern contributes at most one item (first
// occurrence) except cookie mentions, which are reported per match.
func DetectHTML(html string) []types.Evidence {
	var ev []types.Evidence

	// Tracking: loader script with the hs-script-loader id is definitive;
	// otherwise any hs-scripts.com reference is strong.
	if m := RX["tracking_loader_script"].FindStringSubmatch(html); m != nil {
		ev = push(ev, types.CategoryTracking, "tracking_loader_script", m[0], types.SourceHTML,
			captureHubID(RX["tracking_loader_script"], m), types.Definitive)
	} else if m := RX["tracking_script_any"].FindStringSubmatch(html); m != nil {
		ev = push(ev, types.CategoryTracking, "tracking_script_any", m[0], types.SourceHTML,
			captureHubID(RX["tracking_script_any"], m), types.Strong)
	}

	if m := RX["analytics_core"].FindStringSubmatch(html); m != nil {
		ev = push(ev, types.CategoryTracking, "analytics_core", m[0], types.SourceHTML,
			captureHubID(RX["analytics_core"], m), types.Strong)
	}
	if m := RX["_hsq_presence"].FindString(html); m != "" {
		ev = push(ev, types.CategoryTracking, "_hsq_presence", m, types.SourceHTML, nil, types.Strong)
	}
	if m := RX["banner_helper"].FindString(html); m != "" {
		ev = push(ev, types.CategoryTracking, "banner_helper", m, types.SourceHTML, nil, types.Strong)
	}
	if m := RX["url_params_hs"].FindString(html); m != "" {
		ev = push(ev, types.CategoryTracking, "url_params_hs", m, types.SourceHTML, nil, types.Moderate)
	}

	// Cookie names mentioned in page code. Body mentions score lower than
	// header-asserted cookies.
	for _, m := range RX["cookie_any"].FindAllString(html, -1) {
		ev = push(ev, types.CategoryCookies, "cookie_any", m, types.SourceHTML, nil, types.Moderate)
	}

	// Forms: the v2 loader is definitive only alongside an actual create
	// call; the create call on its own is definitive.
	formsLoader := RX["forms_v2_loader"].FindString(html)
	formsCreate := RX["forms_create_call"].FindString(html)
	if formsLoader != "" {
		conf := types.Strong
		if formsCreate != "" {
			conf = types.Definitive
		}
		ev = push(ev, types.CategoryForms, "forms_v2_loader", formsLoader, types.SourceHTML, nil, conf)
	}
	if formsCreate != "" {
		ev = push(ev, types.CategoryForms, "forms_create_call", formsCreate, types.SourceHTML, nil, types.Definitive)
	}
	if m := RX["forms_hidden_hs_context"].FindString(html); m != "" {
		ev = push(ev, types.CategoryForms, "forms_hidden_hs_context", m, types.SourceHTML, nil, types.Strong)
	}

	// Chat / conversations
	if m := RX["chat_usemessages_js"].FindString(html); m != "" {
		ev = push(ev, types.CategoryChat, "chat_usemessages_js", m, types.SourceHTML, nil, types.Definitive)
	}
	if m := RX["chat_usemessages_api"].FindString(html); m != "" {
		ev = push(ev, types.CategoryChat, "chat_usemessages_api", m, types.SourceHTML, nil, types.Definitive)
	}
	if m := RX["cookie_messagesUtk"].FindString(html); m != "" {
		ev = push(ev, types.CategoryChat, "cookie_messagesUtk", m, types.SourceHTML, nil, types.Strong)
	}

	// Legacy CTAs: loader is definitive only alongside a load call.
	ctaLoader := RX["cta_loader_legacy"].FindString(html)
	ctaCall := RX["cta_load_call"].FindString(html)
	if ctaLoader != "" {
		conf := types.Strong
		if ctaCall != "" {
			conf = types.Definitive
		}
		ev = push(ev, types.CategoryCTAs, "cta_loader_legacy", ctaLoader, types.SourceHTML, nil, conf)
	}
	if ctaCall != "" {
		ev = push(ev, types.CategoryCTAs, "cta_load_call", ctaCall, types.SourceHTML, nil, types.Definitive)
	}
	if m := RX["cta_redirect_link"].FindString(html); m != "" {
		ev = push(ev, types.CategoryCTAs, "cta_redirect_link", m, types.SourceHTML, nil, types.Definitive)
	}

	// Meetings
	if m := RX["meetings_embed_js"].FindString(html); m != "" {
		ev = push(ev, types.CategoryMeetings, "meetings_embed_js", m, types.SourceHTML, nil, types.Strong)
	}
	if m := RX["meetings_iframe"].FindString(html); m != "" {
		ev = push(ev, types.CategoryMeetings, "meetings_iframe", m, types.SourceHTML, nil, types.Strong)
	}

	// CMS hosting: either an explicit generator tag, or the wrapper class
	// together with an internal /_hcms/ path. The wrapper alone proves
	// nothing (templates get copied around).
	if m := RX["cms_meta_generator"].FindString(html); m != "" {
		ev = push(ev, types.CategoryCMS, "cms_meta_generator", m, types.SourceHTML, nil, types.Strong)
	}
	if m := RX["cms_wrapper_class"].FindString(html); m != "" && RX["cms_internal_paths"].MatchString(html) {
		ev = push(ev, types.CategoryCMS, "cms_wrapper_with_hcms", m, types.SourceHTML, nil, types.Strong)
	}
	if m := RX["cms_host_hs_sites"].FindString(html); m != "" {
		ev = push(ev, types.CategoryCMS, "cms_host_hs_sites", m, types.SourceHTML, nil, types.Strong)
	}

	// Files CDN is moderate: hosted files do not imply CMS hosting.
	if m := RX["cms_files_hubspotusercontent"].FindString(html); m != "" {
		ev = push(ev, types.CategoryFiles, "cms_files_hubspotusercontent", m, types.SourceHTML, nil, types.Moderate)
	}
	if m := RX["cms_files_hubfs_path"].FindString(html); m != "" {
		ev = push(ev, types.CategoryFiles, "cms_files_hubfs_path", m, types.SourceHTML, nil, types.Moderate)
	}

	// Video
	if m := RX["video_hubspotvideo"].FindString(html); m != "" {
		ev = push(ev, types.CategoryVideo, "video_hubspotvideo", m, types.SourceHTML, nil, types.Strong)
	}

	// Email tracking indicators embedded in markup
	if m := RX["email_hubspot_marketing_click"].FindString(html); m != "" {
		ev = push(ev, types.CategoryEmail, "email_hubspot_marketing_click", m, types.SourceHTML, nil, types.Strong)
	}
	if m := RX["email_hubspotlinks"].FindString(html); m != "" {
		ev = push(ev, types.CategoryEmail, "email_hubspotlinks", m, types.SourceHTML, nil, types.Moderate)
	}

	return ev
}

// networkRule maps a pattern id scanned against resource URLs to its
// category and confidence. Observed requests are stronger evidence than
// markup mentions, so most entries are definitive.
type networkRule struct {
	patternID  string
	category   string
	confidence types.Confidence
}

var networkRules = []networkRule{
	{"forms_v2_loader", types.CategoryForms, types.Definitive},
	{"forms_submit_v2", types.CategoryForms, types.Definitive},
	{"forms_submit_v3", types.CategoryForms, types.Definitive},
	{"chat_usemessages_api", types.CategoryChat, types.Definitive},
	{"chat_usemessages_js", types.CategoryChat, types.Definitive},
	{"cta_loader_legacy", types.CategoryCTAs, types.Definitive},
	{"cta_redirect_link", types.CategoryCTAs, types.Definitive},
	{"meetings_embed_js", types.CategoryMeetings, types.Definitive},
	{"meetings_iframe", types.CategoryMeetings, types.Strong},
	{"cms_host_hs_sites", types.CategoryCMS, types.Definitive},
	{"cms_files_hubspotusercontent", types.CategoryFiles, types.Moderate},
	{"video_hubspotvideo", types.CategoryVideo, types.Definitive},
	{"email_hubspot_marketing_click", types.CategoryEmail, types.Definitive},
	{"email_hubspot_sales_click", types.CategoryEmail, types.Definitive},
	{"email_hubspotlinks", types.CategoryEmail, types.Moderate},
}

var networkTrackingPatterns = []string{"tracking_script_any", "analytics_core", "beacon_ptq"}

// DetectNetwork scans extracted (or observed) sub-resource URLs. The full
// URL is recorded as the match text.
func DetectNetwork(resourceURLs []string) []types.Evidence {
	var ev []types.Evidence
	for _, u := range resourceURLs {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}

		for _, key := range networkTrackingPatterns {
			re := RX[key]
			m := re.FindStringSubmatch(u)
			if m == nil {
				continue
			}
			hubID := captureHubID(re, m)
			if hubID == nil {
				if idm := hubIDFromURL.FindStringSubmatch(u); idm != nil {
					hubID = captureHubID(hubIDFromURL, idm)
				}
			}
			ev = push(ev, types.CategoryTracking, key, u, types.SourceURL, hubID, types.Definitive)
		}

		for _, rule := range networkRules {
			if RX[rule.patternID].MatchString(u) {
				ev = push(ev, rule.category, rule.patternID, u, types.SourceURL, nil, rule.confidence)
			}
		}
	}
	return ev
}

// DetectHeaderCookies scans every Set-Cookie value for HubSpot cookie names.
// Server-asserted cookies score higher than body mentions; hubspotutk is the
// visitor tracking cookie and counts as definitive.
func DetectHeaderCookies(setCookies []string) []types.Evidence {
	var ev []types.Evidence
	for _, value := range setCookies {
		if value == "" {
			continue
		}
		for _, name := range RX["cookie_any"].FindAllString(value, -1) {
			conf := types.Strong
			if strings.EqualFold(name, "hubspotutk") {
				conf = types.Definitive
			}
			ev = push(ev, types.CategoryCookies, "cookie_any", name, types.SourceHeader, nil, conf)
		}
	}
	return ev
}

// Dedupe removes evidence duplicates by (category, patternId, source,
// truncated match), preserving first-seen order.
func Dedupe(evidence []types.Evidence) []types.Evidence {
	type key struct {
		category, patternID, source, match string
	}
	seen := make(map[key]struct{}, len(evidence))
	out := evidence[:0:0]
	for _, e := range evidence {
		k := key{e.Category, e.PatternID, e.Source, e.Match}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, e)
	}
	return out
}

// Summarise derives the aggregate summary from an evidence list.
func Summarise(evidence []types.Evidence) types.Summary {
	has := func(category string) bool {
		for _, e := range evidence {
			if e.Category == category {
				return true
			}
		}
		return false
	}

	tracking := has(types.CategoryTracking)
	if !tracking {
		for _, e := range evidence {
			if e.Category == types.CategoryCookies && strings.Contains(strings.ToLower(e.Match), "hubspotutk") {
				tracking = true
				break
			}
		}
	}

	cmsHosting := false
	for _, e := range evidence {
		if e.Category == types.CategoryCMS && (e.Confidence == types.Strong || e.Confidence == types.Definitive) {
			cmsHosting = true
			break
		}
	}

	features := types.Features{
		Forms:                   has(types.CategoryForms),
		Chat:                    has(types.CategoryChat),
		CTAsLegacy:              has(types.CategoryCTAs),
		Meetings:                has(types.CategoryMeetings),
		Video:                   has(types.CategoryVideo),
		EmailTrackingIndicators: has(types.CategoryEmail),
	}

	confidence := types.Weak
	switch {
	case len(evidence) == 0:
		confidence = types.Weak
	case tracking && hasDefinitiveLoader(evidence):
		confidence = types.Definitive
	case tracking:
		confidence = types.Strong
	case anyAtLeastStrong(evidence):
		confidence = types.Moderate
	}

	return types.Summary{
		Tracking:   tracking,
		CMSHosting: cmsHosting,
		Features:   features,
		Confidence: confidence,
	}
}

func hasDefinitiveLoader(evidence []types.Evidence) bool {
	for _, e := range evidence {
		if e.PatternID == "tracking_loader_script" && e.Confidence == types.Definitive {
			return true
		}
	}
	return false
}

func anyAtLeastStrong(evidence []types.Evidence) bool {
	for _, e := range evidence {
		if e.Confidence == types.Strong || e.Confidence == types.Definitive {
			return true
		}
	}
	return false
}

// MakeResult assembles a result record from deduplicated evidence.
func MakeResult(originalURL, finalURL string, evidence []types.Evidence, headers map[string]string, status *int, meta *types.PageMetadata) *types.Result {
	var hubIDs []int
	for _, e := range evidence {
		if e.HubID == nil {
			continue
		}
		id := *e.HubID
		known := false
		for _, existing := range hubIDs {
			if existing == id {
				known = true
				break
			}
		}
		if !known {
			hubIDs = append(hubIDs, id)
		}
	}
	if hubIDs == nil {
		hubIDs = []int{}
	}
	if evidence == nil {
		evidence = []types.Evidence{}
	}
	if headers == nil {
		headers = map[string]string{}
	}

	summary := Summarise(evidence)
	detected := summary.Tracking || summary.CMSHosting || summary.Features.Any()

	return &types.Result{
		OriginalURL:     originalURL,
		FinalURL:        finalURL,
		Timestamp:       types.UTCTimestamp(),
		HubSpotDetected: detected,
		HubIDs:          hubIDs,
		Summary:         summary,
		Evidence:        evidence,
		Headers:         headers,
		HTTPStatus:      status,
		PageMetadata:    meta,
	}
}
