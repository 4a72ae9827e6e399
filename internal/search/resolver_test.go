package search

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/config"
)

func TestResolveGoogleRedirect(t *testing.T) {
	r := NewResolver(testRegistry(t))

	got, rej := r.Resolve(
		"/url?q=https%3A%2F%2Fexample.com%2Ftender&sa=U",
		"google",
		"https://www.google.com/search?q=tender",
		map[string]bool{},
	)
	require.Nil(t, rej)
	assert.Equal(t, "https://example.com/tender", got)
}

func TestResolveGooglePlainLink(t *testing.T) {
	r := NewResolver(testRegistry(t))

	got, rej := r.Resolve("https://example.com/tender", "google", "https://www.google.com/search", map[string]bool{})
	require.Nil(t, rej)
	assert.Equal(t, "https://example.com/tender", got)
}

func TestResolveBingBase64Redirect(t *testing.T) {
	r := NewResolver(testRegistry(t))

	payload := "a1" + strings.TrimRight(base64.URLEncoding.EncodeToString([]byte("https://example.com/tender")), "=")
	got, rej := r.Resolve("https://www.bing.com/ck/a?u="+payload, "bing", "https://www.bing.com/search", map[string]bool{})
	require.Nil(t, rej)
	assert.Equal(t, "https://example.com/tender", got)
}

func TestResolveBingMalformedBase64(t *testing.T) {
	r := NewResolver(testRegistry(t))

	_, rej := r.Resolve("https://www.bing.com/ck/a?u=a1%21%21%21%21", "bing", "https://www.bing.com/search", map[string]bool{})
	require.NotNil(t, rej)
	assert.Equal(t, RejectDecodeFailed, rej.Reason)
}

func TestResolveDuckDuckGoRedirect(t *testing.T) {
	r := NewResolver(testRegistry(t))

	got, rej := r.Resolve(
		"//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Ftender",
		"duckduckgo",
		"https://html.duckduckgo.com/html/?q=tender",
		map[string]bool{},
	)
	require.Nil(t, rej)
	assert.Equal(t, "https://example.com/tender", got)
}

func prefixStripRegistry() *config.Registry {
	return &config.Registry{
		Engines: []config.EngineConfig{
			{ID: "mojeek", Strategy: "http", Decoder: "prefix_strip"},
		},
	}
}

func TestResolvePrefixStripRedirect(t *testing.T) {
	r := NewResolver(prefixStripRegistry())

	got, rej := r.Resolve(
		"https://redirect.mojeek.test/click/https%3A%2F%2Fexample.com%2Ftender",
		"mojeek",
		"https://www.mojeek.test/search?q=tender",
		map[string]bool{},
	)
	require.Nil(t, rej)
	assert.Equal(t, "https://example.com/tender", got)
}

func TestResolvePrefixStripUnescapedTarget(t *testing.T) {
	r := NewResolver(prefixStripRegistry())

	got, rej := r.Resolve(
		"https://redirect.mojeek.test/out?target=https://example.com/tender",
		"mojeek",
		"https://www.mojeek.test/search?q=tender",
		map[string]bool{},
	)
	require.Nil(t, rej)
	assert.Equal(t, "https://example.com/tender", got)
}

func TestResolvePrefixStripPlainLink(t *testing.T) {
	r := NewResolver(prefixStripRegistry())

	got, rej := r.Resolve("https://example.com/tender", "mojeek", "https://www.mojeek.test/search", map[string]bool{})
	require.Nil(t, rej)
	assert.Equal(t, "https://example.com/tender", got)
}

func TestResolveExcludedDomain(t *testing.T) {
	r := NewResolver(testRegistry(t))

	_, rej := r.Resolve("https://www.facebook.com/sometender", "ecosia", "https://www.ecosia.org/search", map[string]bool{})
	require.NotNil(t, rej)
	assert.Equal(t, RejectExcludedDomain, rej.Reason)
}

func TestResolveDuplicate(t *testing.T) {
	r := NewResolver(testRegistry(t))
	visited := map[string]bool{"https://example.com/tender": true}

	_, rej := r.Resolve("https://example.com/tender", "ecosia", "https://www.ecosia.org/search", visited)
	require.NotNil(t, rej)
	assert.Equal(t, RejectDuplicate, rej.Reason)
}

func TestResolveStripsFragment(t *testing.T) {
	r := NewResolver(testRegistry(t))

	got, rej := r.Resolve("https://example.com/tender#section-2", "ecosia", "https://www.ecosia.org/search", map[string]bool{})
	require.Nil(t, rej)
	assert.Equal(t, "https://example.com/tender", got)
}

func TestResolveRejectsNonHTTP(t *testing.T) {
	r := NewResolver(testRegistry(t))

	for _, href := range []string{"", "javascript:void(0)", "mailto:procurement@example.com"} {
		_, rej := r.Resolve(href, "ecosia", "https://www.ecosia.org/search", map[string]bool{})
		require.NotNil(t, rej, "href %q should be rejected", href)
		assert.Equal(t, RejectInvalidURL, rej.Reason)
	}
}
