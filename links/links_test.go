package links

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	base, err := url.Parse("https://docs.example.com/guide/intro?v=2")
	require.NoError(t, err)

	tests := []struct {
		name string
		href string
		kind Kind
		url  string
	}{
		{"relative path", "../about", Internal, "https://docs.example.com/about"},
		{"absolute path", "/contact", Internal, "https://docs.example.com/contact"},
		{"same host absolute", "https://docs.example.com/x", Internal, "https://docs.example.com/x"},
		{"scheme ignored", "http://docs.example.com/x", Internal, "http://docs.example.com/x"},
		{"host case ignored", "https://DOCS.example.com/x", Internal, "https://DOCS.example.com/x"},
		{"other host", "https://example.org/", External, "https://example.org/"},
		{"default https port", "https://docs.example.com:443/x", Internal, "https://docs.example.com:443/x"},
		{"default http port", "http://docs.example.com:80/x", Internal, "http://docs.example.com:80/x"},
		{"port differs", "https://docs.example.com:8443/", External, "https://docs.example.com:8443/"},
		{"mailto", "mailto:hi@example.com", External, "mailto:hi@example.com"},
		{"fragment only", "#setup", Fragment, "https://docs.example.com/guide/intro?v=2#setup"},
		{"fragment on other page", "/about#team", Internal, "https://docs.example.com/about#team"},
		{"fragment with other query", "?v=3#setup", Internal, "https://docs.example.com/guide/intro?v=3#setup"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res, err := Classify(base, tt.href)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, res.Kind)
			assert.Equal(t, tt.url, res.URL.String())
		})
	}
}

func TestClassifyDefaultPortOnBase(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		base string
		href string
		kind Kind
	}{
		{"explicit port on base", "https://site.test:443/", "https://site.test/x", Internal},
		{"ipv6 default port", "http://[::1]:80/", "http://[::1]/a", Internal},
		{"ipv6 other port", "http://[::1]/", "http://[::1]:8080/a", External},
		{"non-default port kept", "http://site.test:8080/", "http://site.test:8080/a", Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			base, err := url.Parse(tt.base)
			require.NoError(t, err)
			res, err := Classify(base, tt.href)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, res.Kind)
		})
	}
}

func TestClassifyInvalidHref(t *testing.T) {
	t.Parallel()

	base, _ := url.Parse("https://example.com/")
	_, err := Classify(base, "http://[::1")
	require.Error(t, err)
}

func TestHarden(t *testing.T) {
	t.Parallel()

	t.Run("adds target and rel", func(t *testing.T) {
		t.Parallel()

		a := &html.Node{Type: html.ElementNode, DataAtom: atom.A, Data: "a",
			Attr: []html.Attribute{{Key: "href", Val: "https://example.org"}}}
		Harden(a)

		assert.Equal(t, "_blank", getAttr(a, "target"))
		assert.Equal(t, "noopener noreferrer", getAttr(a, "rel"))
	})

	t.Run("keeps existing rel tokens", func(t *testing.T) {
		t.Parallel()

		a := &html.Node{Type: html.ElementNode, DataAtom: atom.A, Data: "a",
			Attr: []html.Attribute{{Key: "rel", Val: "external NoOpener"}, {Key: "target", Val: "_self"}}}
		Harden(a)

		assert.Equal(t, "_blank", getAttr(a, "target"))
		assert.Equal(t, "external NoOpener noreferrer", getAttr(a, "rel"))
	})
}
