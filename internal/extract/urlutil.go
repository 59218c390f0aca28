package extract

import (
	"net/url"
	"strings"
)

// Query parameters that only carry referral or campaign attribution.
var trackingParams = map[string]bool{
	"ref":      true,
	"tag":      true,
	"affid":    true,
	"aff_id":   true,
	"gclid":    true,
	"fbclid":   true,
	"icid":     true,
	"cid":      true,
	"mcid":     true,
	"psource":  true,
	"referrer": true,
}

// AbsoluteURL resolves href against base and strips referral and
// campaign tracking parameters. Unparseable inputs come back as-is.
func AbsoluteURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return href
	}

	if !u.IsAbs() && base != "" {
		b, err := url.Parse(base)
		if err == nil {
			u = b.ResolveReference(u)
		}
	}

	q := u.Query()
	changed := false
	for key := range q {
		if trackingParams[strings.ToLower(key)] || strings.HasPrefix(strings.ToLower(key), "utm_") {
			q.Del(key)
			changed = true
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}

	return u.String()
}
