package browser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseContent(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		maxLength int
		wantTitle string
		wantDesc  string
		wantText  string
		wantHas   []string
		wantNot   []string
		truncated bool
	}{
		{
			name: "title, description and noise removal",
			input: `<html>
				<head>
					<title>Test Page</title>
					<meta name="description" content="Test description">
					<script>alert('evil');</script>
					<style>body { color: red; }</style>
				</head>
				<body>
					<h1 id="main-title">Hello World</h1>
					<p class="intro">This is a test.</p>
				</body>
			</html>`,
			wantTitle: "Test Page",
			wantDesc:  "Test description",
			wantText:  "Hello World\nThis is a test.",
		},
		{
			name: "remove unwanted elements",
			input: `<html><body>
				<div>Content</div>
				<script src="app.js">var x = 1;</script>
				<noscript>No JS</noscript>
				<iframe src="ad.html"></iframe>
				<svg><text>vector</text></svg>
			</body></html>`,
			wantText: "Content",
			wantNot:  []string{"var x", "No JS", "vector"},
		},
		{
			name:      "truncate at boundary",
			input:     `<html><body><p>First paragraph with some content.</p><p>Second paragraph.</p></body></html>`,
			maxLength: 30,
			wantText:  "First paragraph with some cont...",
			truncated: true,
		},
		{
			name:     "inline elements stay on one line",
			input:    `<html><body><p>Price: <b>$10</b> per <i>month</i></p></body></html>`,
			wantText: "Price: $10 per month",
		},
		{
			name:    "block elements break lines",
			input:   `<html><body><div>One</div><div>Two</div><span>Three</span></body></html>`,
			wantHas: []string{"One\nTwo\nThree"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, err := ParseContent(tt.input, tt.maxLength)
			require.NoError(t, err)

			assert.Equal(t, tt.wantTitle, content.Title)
			assert.Equal(t, tt.wantDesc, content.Description)
			assert.Equal(t, tt.truncated, content.Truncated)
			if tt.wantText != "" {
				assert.Equal(t, tt.wantText, content.Text)
			}
			for _, want := range tt.wantHas {
				assert.Contains(t, content.Text, want)
			}
			for _, notWant := range tt.wantNot {
				assert.NotContains(t, content.Text, notWant)
			}
		})
	}
}

func TestParseContentCollections(t *testing.T) {
	input := `<html><body>
		<h2>Results</h2>
		<ul><li>One</li><li>Two <b>bold</b></li></ul>
		<table><tr><td>A</td><td>B</td></tr></table>
		<a href="/next">Next page</a>
		<a href="javascript:void(0)">Nothing</a>
		<a>No href</a>
	</body></html>`

	content, err := ParseContent(input, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"Results"}, content.Headings)
	assert.Equal(t, []string{"One", "Two bold", "A B"}, content.Items)
	assert.Equal(t, []Link{{Text: "Next page", Href: "/next"}}, content.Links)
}

func TestPageContentRender(t *testing.T) {
	content := &PageContent{
		Title:    "Shop",
		Headings: []string{"Deals"},
		Items:    []string{"Lamp $10", "Desk $90"},
		Text:     "Deals\nLamp $10\nDesk $90",
	}

	tests := []struct {
		name    string
		format  string
		want    string
		wantErr bool
	}{
		{name: "default is text", format: "", want: content.Text},
		{name: "text", format: "text", want: content.Text},
		{name: "list", format: "list", want: "- Lamp $10\n- Desk $90"},
		{name: "unknown", format: "xml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := content.Render(tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("json", func(t *testing.T) {
		got, err := content.Render("json")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(got, "{"))
		assert.Contains(t, got, `"title": "Shop"`)
		assert.Contains(t, got, `"Desk $90"`)
	})

	t.Run("list falls back to headings then text", func(t *testing.T) {
		headingsOnly := &PageContent{Headings: []string{"A", "B"}, Text: "A B"}
		got, err := headingsOnly.Render("list")
		require.NoError(t, err)
		assert.Equal(t, "- A\n- B", got)

		plain := &PageContent{Text: "just text"}
		got, err = plain.Render("list")
		require.NoError(t, err)
		assert.Equal(t, "just text", got)
	})
}

func TestCutUTF8(t *testing.T) {
	assert.Equal(t, "h", cutUTF8("héllo", 2))
	assert.Equal(t, "hé", cutUTF8("héllo", 3))
	assert.Equal(t, "abc", cutUTF8("abc", 10))
}

func TestIsSkippedElement(t *testing.T) {
	tests := []struct {
		tag  string
		want bool
	}{
		{"script", true},
		{"style", true},
		{"noscript", true},
		{"iframe", true},
		{"svg", true},
		{"div", false},
		{"p", false},
		{"span", false},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			assert.Equal(t, tt.want, isSkippedElement(tt.tag))
		})
	}
}

func TestIsBlockElement(t *testing.T) {
	tests := []struct {
		tag  string
		want bool
	}{
		{"div", true},
		{"p", true},
		{"section", true},
		{"h1", true},
		{"ul", true},
		{"table", true},
		{"span", false},
		{"a", false},
		{"strong", false},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			assert.Equal(t, tt.want, isBlockElement(tt.tag))
		})
	}
}
