package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const aboutPage = `<!DOCTYPE html>
<html>
<head><title> About us </title></head>
<body>
<nav role="navigation"><a href="/">Home</a></nav>
<main role="main"><h1>About</h1><p>We build <em>sites</em>.</p></main>
<footer>footer</footer>
</body>
</html>`

func TestExtract(t *testing.T) {
	t.Parallel()

	ex, err := New(`[role="main"]`, nil)
	require.NoError(t, err)

	content, err := ex.Extract(aboutPage)
	require.NoError(t, err)
	assert.Equal(t, "<h1>About</h1><p>We build <em>sites</em>.</p>", content.Markup)
	assert.Equal(t, "About us", content.Title)
}

func TestExtractFirstMatch(t *testing.T) {
	t.Parallel()

	ex, err := New("section", nil)
	require.NoError(t, err)

	content, err := ex.Extract(`<section>one</section><section>two</section>`)
	require.NoError(t, err)
	assert.Equal(t, "one", content.Markup)
	assert.Empty(t, content.Title)
}

func TestExtractContentNotFound(t *testing.T) {
	t.Parallel()

	ex, err := New(`[role="main"]`, nil)
	require.NoError(t, err)

	_, err = ex.Extract(`<html><body><div>no main here</div></body></html>`)
	var notFound *ContentNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, `[role="main"]`, notFound.Selector)
}

func TestNewInvalidSelector(t *testing.T) {
	t.Parallel()

	_, err := New("main[", nil)
	assert.Error(t, err)
}

func TestExtractSanitized(t *testing.T) {
	t.Parallel()

	ex, err := New("main", DefaultPolicy())
	require.NoError(t, err)

	content, err := ex.Extract(`<main><p class="lead" onclick="steal()">Hi</p><script>alert(1)</script></main>`)
	require.NoError(t, err)
	assert.NotContains(t, content.Markup, "script")
	assert.NotContains(t, content.Markup, "onclick")
	assert.Contains(t, content.Markup, `class="lead"`)
}
