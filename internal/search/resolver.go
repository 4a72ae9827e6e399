package search

import (
	"encoding/base64"
	"net/url"
	"strings"

	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/config"
)

// decoder unwraps an engine-specific redirect href into its destination URL.
// Each engine declares its scheme in the registry; decode failures reject
// the single link, never the task.
type decoder interface {
	Decode(href *url.URL) (string, bool)
}

// queryParamDecoder extracts the destination from a redirect query
// parameter (Google's /url?q=, DuckDuckGo's uddg=).
type queryParamDecoder struct {
	param  string
	prefix string
}

func (d queryParamDecoder) Decode(href *url.URL) (string, bool) {
	if d.prefix != "" && !strings.HasPrefix(href.Path, strings.SplitN(d.prefix, "?", 2)[0]) {
		// Not a wrapped link; pass through untouched.
		return href.String(), true
	}
	target := href.Query().Get(d.param)
	if target == "" {
		if d.prefix == "" {
			return href.String(), true
		}
		return "", false
	}
	if unescaped, err := url.QueryUnescape(target); err == nil {
		target = unescaped
	}
	return target, true
}

// base64ParamDecoder extracts a base64-wrapped destination parameter
// (Bing's u=a1<base64>). Truncated padding is repaired before decoding.
type base64ParamDecoder struct {
	param string
}

func (d base64ParamDecoder) Decode(href *url.URL) (string, bool) {
	raw := href.Query().Get(d.param)
	if raw == "" {
		return href.String(), true
	}
	// Bing prefixes the payload with a two-character version tag.
	if len(raw) > 2 && !strings.HasPrefix(raw, "http") {
		raw = raw[2:]
	}
	if pad := len(raw) % 4; pad != 0 {
		raw += strings.Repeat("=", 4-pad)
	}
	decoded, err := base64.URLEncoding.DecodeString(raw)
	if err != nil {
		decoded, err = base64.StdEncoding.DecodeString(raw)
	}
	if err != nil {
		return "", false
	}
	target := string(decoded)
	if !strings.HasPrefix(target, "http") {
		return "", false
	}
	return target, true
}

// prefixStripDecoder salvages the first embedded http(s) URL from an
// otherwise opaque redirect href.
type prefixStripDecoder struct{}

func (prefixStripDecoder) Decode(href *url.URL) (string, bool) {
	s := href.String()
	// Skip position 0 so the wrapper's own scheme never matches.
	idx := strings.Index(s[1:], "http")
	if idx < 0 {
		return s, true
	}
	idx++
	if unescaped, err := url.QueryUnescape(s[idx:]); err == nil {
		return unescaped, true
	}
	return s[idx:], true
}

type passthroughDecoder struct{}

func (passthroughDecoder) Decode(href *url.URL) (string, bool) {
	return href.String(), true
}

func decoderFor(eng *config.EngineConfig) decoder {
	switch eng.Decoder {
	case "query_param":
		return queryParamDecoder{param: eng.DecodeParam, prefix: eng.RedirectPrefix}
	case "base64_param":
		return base64ParamDecoder{param: eng.DecodeParam}
	case "prefix_strip":
		return prefixStripDecoder{}
	default:
		return passthroughDecoder{}
	}
}

// Resolver normalizes harvested hrefs into absolute destination URLs,
// unwrapping engine redirects and rejecting invalid, excluded or duplicate
// links.
type Resolver struct {
	registry *config.Registry
}

func NewResolver(registry *config.Registry) *Resolver {
	return &Resolver{registry: registry}
}

// Resolve turns a raw href from one engine's results page into a normalized
// absolute URL. visited is the task's set of already-accepted URLs; a hit
// rejects the link as a duplicate. A nil *LinkRejected means the link was
// accepted.
func (r *Resolver) Resolve(rawHref, engineID, pageURL string, visited map[string]bool) (string, *LinkRejected) {
	rawHref = strings.TrimSpace(rawHref)
	if rawHref == "" {
		return "", &LinkRejected{Href: rawHref, Reason: RejectInvalidURL}
	}

	href, err := url.Parse(rawHref)
	if err != nil {
		return "", &LinkRejected{Href: rawHref, Reason: RejectInvalidURL}
	}

	// Relative hrefs resolve against the results page they came from.
	if !href.IsAbs() {
		base, err := url.Parse(pageURL)
		if err != nil {
			return "", &LinkRejected{Href: rawHref, Reason: RejectInvalidURL}
		}
		href = base.ResolveReference(href)
	}

	decoded := href.String()
	if eng, ok := r.registry.Engine(engineID); ok {
		var decodedOK bool
		decoded, decodedOK = decoderFor(eng).Decode(href)
		if !decodedOK {
			return "", &LinkRejected{Href: rawHref, Reason: RejectDecodeFailed}
		}
	}

	final, err := url.Parse(strings.TrimSpace(decoded))
	if err != nil || !final.IsAbs() || (final.Scheme != "http" && final.Scheme != "https") || final.Host == "" {
		return "", &LinkRejected{Href: rawHref, Reason: RejectInvalidURL}
	}

	final.Fragment = ""
	normalized := final.String()

	if r.isExcludedDomain(final.Hostname()) {
		return "", &LinkRejected{Href: normalized, Reason: RejectExcludedDomain}
	}

	if visited[normalized] {
		return "", &LinkRejected{Href: normalized, Reason: RejectDuplicate}
	}

	return normalized, nil
}

func (r *Resolver) isExcludedDomain(host string) bool {
	host = strings.ToLower(host)
	for _, domain := range r.registry.ExcludedDomains {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain == "" {
			continue
		}
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}
