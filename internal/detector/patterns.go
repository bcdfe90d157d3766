// Package detector converts HTML bodies, sub-resource URLs, and response
// headers into HubSpot detection evidence and a graded summary.
package detector

import "regexp"

// RX is the process-wide pattern table, compiled once at init and immutable
// afterwards. All patterns are case-insensitive and multi-line. Capture
// group 1, where present, yields a numeric Hub ID.
var RX = map[string]*regexp.Regexp{
	// Tracking
	"tracking_loader_script": rx(`<script[^>]*\bid=["']hs-script-loader["'][^>]*\bsrc=["'][^"']*\bjs(?:\.[a-z0-9-]+)?\.hs-scripts\.com/(\d+)\.js`),
	"tracking_script_any":    rx(`\bjs(?:\.[a-z0-9-]+)?\.hs-scripts\.com/(\d+)\.js`),
	"analytics_core":         rx(`\bjs(?:\.[a-z0-9-]+)?\.hs-analytics\.net/analytics/\d+/(\d+)\.js`),
	"beacon_ptq":             rx(`\btrack\.hubspot\.com/__ptq\.gif|\bapi\.hubapi\.com/livechat-public/v1/beacon`),
	"_hsq_presence":          rx(`\b_hsq\s*(?:=|\.push\s*\()`),
	"banner_helper":          rx(`\bjs\.hs-banner\.com/[^\s"'<>]+`),
	"url_params_hs":          rx(`[?&](?:_hsenc|_hsmi|_hsfp|__hssc|__hstc|hsCtaTracking)=`),

	// Cookies (names asserted by HubSpot products)
	"cookie_any":         rx(`\b(?:hubspotutk|__hstc|__hssc|__hssrc|__hs_opt_out|__hs_do_not_track|hs_ab_test|hs-messages-is-open|hs-messages-hide-welcome-message|messagesUtk)\b`),
	"cookie_messagesUtk": rx(`\bmessagesUtk\b`),

	// Forms
	"forms_v2_loader":         rx(`\bjs(?:\.[a-z0-9-]+)?\.hsforms\.net/forms/(?:v2(?:-legacy)?|embed/v2)\.js`),
	"forms_create_call":       rx(`\bhbspt\.forms\.create\b`),
	"forms_submit_v2":         rx(`\bforms\.hubspot\.com/uploads/form/v2`),
	"forms_submit_v3":         rx(`\bapi\.hsforms\.com/submissions/v3`),
	"forms_hidden_hs_context": rx(`\bname=["']hs_context["']`),

	// Chat / conversations
	"chat_usemessages_js":  rx(`\bjs\.usemessages\.com/conversations-embed\.js`),
	"chat_usemessages_api": rx(`\bapi\.usemessages\.com/`),

	// Legacy CTAs
	"cta_loader_legacy": rx(`\bjs\.hscta\.net/cta/current\.js`),
	"cta_load_call":     rx(`\bhbspt\.cta\.load\s*\(`),
	"cta_redirect_link": rx(`\bcta-redirect\.hubspot\.com/cta/redirect/(\d+)`),

	// Meetings
	"meetings_embed_js": rx(`\bstatic\.hsappstatic\.net/MeetingsEmbed/`),
	"meetings_iframe":   rx(`\bmeetings\.hubspot\.com/[^\s"'<>]+`),

	// CMS hosting and files CDN
	"cms_meta_generator":           rx(`<meta[^>]*\bname=["']generator["'][^>]*\bcontent=["']HubSpot`),
	"cms_wrapper_class":            rx(`\bhs_cos_wrapper\b`),
	"cms_internal_paths":           rx(`/_hcms/`),
	"cms_host_hs_sites":            rx(`\b[a-z0-9-]+\.hs-sites\.com\b`),
	"cms_files_hubspotusercontent": rx(`\b[a-z0-9.-]*hubspotusercontent[a-z0-9-]*\.(?:net|com)\b`),
	"cms_files_hubfs_path":         rx(`/hubfs/`),

	// Video
	"video_hubspotvideo": rx(`\bplay\.hubspotvideo\.com/`),

	// Email tracking
	"email_hubspot_marketing_click": rx(`\b[a-z0-9.-]*hubspotemail\.net/`),
	"email_hubspot_sales_click":     rx(`\bt\.sidekickopen\d*\.com/`),
	"email_hubspotlinks":            rx(`\b[a-z0-9.-]*hubspotlinks\.com/`),
}

// hubIDFromURL is the fallback tenant-id extraction for tracking resource
// URLs whose matched pattern carried no capture.
var hubIDFromURL = rx(`(?:hs-scripts\.com|hs-analytics\.net)/(?:analytics/\d+/)?(\d+)\.js`)

func rx(pattern string) *regexp.Regexp {
	return regexp.MustCompile(`(?im)` + pattern)
}
