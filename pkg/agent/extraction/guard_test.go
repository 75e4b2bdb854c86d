package extraction

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const pageText = "1. From: alice@example.com Subject: Quarterly report\n2. From: bob@example.com Subject: Lunch"

func TestIsExtractionTask(t *testing.T) {
	g := New()

	tests := []struct {
		desc string
		want bool
	}{
		{desc: "Read my last 5 emails", want: true},
		{desc: "Extract all prices from the catalog", want: true},
		{desc: "Прочитай последние письма", want: true},
		{desc: "Open youtube and play music", want: false},
		{desc: "Order a pizza", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			assert.Equal(t, tt.want, g.IsExtractionTask(tt.desc))
		})
	}
}

func TestResolveSubstitutesIncompleteResults(t *testing.T) {
	tests := []struct {
		name   string
		result string
	}{
		{name: "empty", result: ""},
		{name: "whitespace", result: "   "},
		{name: "short", result: "Done."},
		{name: "boilerplate", result: "I analyzed the inbox and everything that was requested is now complete for you."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New()
			g.Record(pageText)

			res := g.Resolve(tt.result, true)
			assert.True(t, res.Substituted)
			assert.Equal(t, pageText, res.Result)
			assert.False(t, g.Pending())
		})
	}
}

func TestResolveKeepsGoodResult(t *testing.T) {
	g := New()
	g.Record(pageText)

	good := strings.Repeat("1. Subject: Quarterly report from Alice about revenue. ", 3)
	res := g.Resolve(good, true)
	assert.False(t, res.Substituted)
	assert.False(t, res.Short)
	assert.Equal(t, good, res.Result)
	assert.False(t, g.Pending(), "slot is cleared even when the result is kept")
}

func TestResolveFlagsShortResult(t *testing.T) {
	g := New()
	kept := "1. Quarterly report from alice 2. Lunch plans from bob today"
	res := g.Resolve(kept, true)
	assert.False(t, res.Substituted)
	assert.True(t, res.Short)
	assert.Equal(t, kept, res.Result)
}

func TestResolveWithoutShadow(t *testing.T) {
	g := New()
	res := g.Resolve("", true)
	assert.False(t, res.Substituted)
	assert.Equal(t, "", res.Result)
}

func TestResolveNonExtractionTask(t *testing.T) {
	g := New()
	g.Record(pageText)

	res := g.Resolve("ok", false)
	assert.False(t, res.Substituted)
	assert.Equal(t, "ok", res.Result)
	assert.False(t, g.Pending())
}

func TestRecordOverwrites(t *testing.T) {
	g := New()
	g.Record("first page")
	g.Record(pageText)

	res := g.Resolve("", true)
	assert.Equal(t, pageText, res.Result)
}

func TestOptions(t *testing.T) {
	g := New(WithKeywords([]string{"HARVEST"}), WithBoilerplate([]string{"all good"}), WithMinLength(5))
	assert.True(t, g.IsExtractionTask("harvest the table"))
	assert.False(t, g.IsExtractionTask("read the table"))

	g.Record(pageText)
	res := g.Resolve("All good, finished", true)
	assert.True(t, res.Substituted)

	g.Record(pageText)
	res = g.Resolve("fine result", true)
	assert.False(t, res.Substituted)
}
