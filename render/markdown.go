// Package render turns content region markup into text for the terminal.
package render

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// Markdown converts content markup to Markdown. Relative links are
// resolved against pageURL.
type Markdown struct {
	conv *converter.Converter
}

// NewMarkdown creates a converter with the commonmark and table plugins.
func NewMarkdown() *Markdown {
	return &Markdown{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// Convert renders markup as Markdown.
func (m *Markdown) Convert(markup, pageURL string) (string, error) {
	var opts []converter.ConvertOptionFunc
	if pageURL != "" {
		opts = append(opts, converter.WithDomain(pageURL))
	}
	md, err := m.conv.ConvertString(markup, opts...)
	if err != nil {
		return "", fmt.Errorf("converting to markdown: %w", err)
	}
	return strings.TrimSpace(md), nil
}

// Wrap breaks each line of text at word boundaries so no line is wider
// than width cells. Leading indentation is repeated on continuation lines.
// Words wider than width are split.
func Wrap(text string, width int) []string {
	if width <= 0 {
		return nil
	}

	var out []string
	for _, line := range strings.Split(text, "\n") {
		indent := line[:len(line)-len(strings.TrimLeftFunc(line, unicode.IsSpace))]
		words := strings.Fields(line)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		avail := width - cellWidth(indent)
		if avail < 1 {
			indent, avail = "", width
		}

		var cur strings.Builder
		curWidth := 0
		flush := func() {
			if curWidth > 0 {
				out = append(out, indent+cur.String())
				cur.Reset()
				curWidth = 0
			}
		}
		for _, w := range words {
			ww := cellWidth(w)
			switch {
			case ww > avail:
				flush()
				for _, part := range splitWord(w, avail) {
					out = append(out, indent+part)
				}
			case curWidth == 0:
				cur.WriteString(w)
				curWidth = ww
			case curWidth+1+ww <= avail:
				cur.WriteByte(' ')
				cur.WriteString(w)
				curWidth += 1 + ww
			default:
				flush()
				cur.WriteString(w)
				curWidth = ww
			}
		}
		flush()
	}
	return out
}

func splitWord(w string, width int) []string {
	var parts []string
	var cur strings.Builder
	curWidth := 0
	for _, r := range w {
		rw := runeWidth(r)
		if curWidth > 0 && curWidth+rw > width {
			parts = append(parts, cur.String())
			cur.Reset()
			curWidth = 0
		}
		cur.WriteRune(r)
		curWidth += rw
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}

func cellWidth(s string) int {
	n := 0
	for _, r := range s {
		n += runeWidth(r)
	}
	return n
}

// runeWidth approximates terminal cells: combining marks take none, East
// Asian wide characters take two.
func runeWidth(r rune) int {
	switch {
	case unicode.Is(unicode.Mn, r), r == 0x200B, r == 0xFEFF:
		return 0
	case unicode.Is(unicode.Han, r), unicode.Is(unicode.Hangul, r),
		unicode.Is(unicode.Hiragana, r), unicode.Is(unicode.Katakana, r),
		r >= 0xFF01 && r <= 0xFF60:
		return 2
	}
	return 1
}
