package delivery_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"jobmate/harvester-service/internal/delivery"
)

func TestSummarize_ShortTextKeptWhole(t *testing.T) {
	got := delivery.Summarize("  Build a   landing page.\nNothing else.  ")
	assert.Equal(t, "Build a landing page. Nothing else.", got.Text)
	assert.Equal(t, []string{"Build a landing page"}, got.KeyPoints)
}

func TestSummarize_Empty(t *testing.T) {
	assert.Equal(t, delivery.Summary{}, delivery.Summarize(" \n "))
}

func TestSummarize_LeadSentences(t *testing.T) {
	filler := strings.Repeat("word ", 20)
	desc := "First " + filler + "one. Second " + filler + "two! Third part? Fourth " + filler + "four."

	got := delivery.Summarize(desc)
	assert.True(t, strings.HasPrefix(got.Text, "First "), got.Text)
	assert.NotContains(t, got.Text, "Fourth")
	assert.LessOrEqual(t, utf8.RuneCountInString(got.Text), 250)
	assert.True(t, strings.HasSuffix(got.Text, ".") || strings.HasSuffix(got.Text, "..."), got.Text)
}

func TestSummarize_LongSingleSentenceCut(t *testing.T) {
	got := delivery.Summarize(strings.Repeat("ñ", 400))
	assert.Equal(t, strings.Repeat("ñ", 250)+"...", got.Text)
	assert.Empty(t, got.KeyPoints)
}

func TestSummarize_KeyPointsPreferBullets(t *testing.T) {
	desc := "We need a scraper.\n- Go 1.22\n• Postgres\n* Docker\n- Kubernetes"
	assert.Equal(t, []string{"Go 1.22", "Postgres", "Docker"}, delivery.Summarize(desc).KeyPoints)
}

func TestSummarize_KeyPointsNumbered(t *testing.T) {
	desc := "Scope:\n1. Crawl listings\n2) Store them\n"
	assert.Equal(t, []string{"Crawl listings", "Store them"}, delivery.Summarize(desc).KeyPoints)
}

func TestSummarize_KeyPointsFromRequirementSentences(t *testing.T) {
	desc := "Hello there. Experience with Go is required. Budget is fixed. You must write tests. " +
		"We are looking for speed. You should document it."
	assert.Equal(t,
		[]string{"Experience with Go is required", "You must write tests", "We are looking for speed"},
		delivery.Summarize(desc).KeyPoints)
}

func TestSummaryMarkdown(t *testing.T) {
	s := delivery.Summary{Text: "Short.", KeyPoints: []string{"a", "b"}}
	assert.Equal(t, "*Summary:*\nShort.\n\n*Key Points:*\n• a\n• b", s.Markdown())
	assert.Equal(t, "*Summary:*\nShort.", delivery.Summary{Text: "Short."}.Markdown())
}
