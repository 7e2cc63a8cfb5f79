package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  hello   world ", "hello world"},
		{"a b", "a b"},
		{"line\none\n\ttwo", "line one two"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CleanText(tc.in))
	}
}

func TestExtractTextStripsMarkup(t *testing.T) {
	html := `<div><h2>About the role</h2><p>We build <b>APIs</b> in Go.</p><ul><li>HTTP</li><li>SQL</li></ul></div>`
	got := ExtractText(html)
	assert.Equal(t, "About the role We build APIs in Go. HTTP SQL", got)
}

func TestExtractTextDropsScriptsAndStyles(t *testing.T) {
	html := `<p>Visible</p><script>alert(1)</script><style>p{color:red}</style><p>Also visible</p>`
	got := ExtractText(html)
	assert.Equal(t, "Visible Also visible", got)
}

func TestExtractTextPlainInputPassesThrough(t *testing.T) {
	assert.Equal(t, "just words", ExtractText("  just   words "))
	assert.Equal(t, "", ExtractText("   "))
}

func TestExtractTextDecodesEntities(t *testing.T) {
	assert.Equal(t, "R&D roles", ExtractText("<p>R&amp;D&nbsp;roles</p>"))
}
