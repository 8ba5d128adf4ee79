package extract_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/harvester-service/internal/extract"
	"jobmate/harvester-service/internal/model"
)

const baseURL = "https://www.workana.com"

var fixedNow = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

// fullListingHTML carries every field the extractor knows about.
const fullListingHTML = `<div class="project-item js-project project-item-featured">
  <h2 class="h3 project-title"><span><a href="/job/build-a-webhook-integration?ref=projects_1">Build a webhook   integration</a></span></h2>
  <div class="project-main-details">
    <span class="date">Published: 3 hours ago</span>
    <span class="bids">Proposals: 12</span>
  </div>
  <span class="label label-max">Max project</span>
  <div class="html-desc project-details"><div><p>We need an expert
    in webhooks.</p><p>Second paragraph.</p></div></div>
  <p class="budget h4"><span class="values"><span>USD 1,000 - 3,000</span></span></p>
  <div class="skills"><div>
    <a class="skill label label-info"><h3>Go</h3></a>
    <a class="skill label label-info"><h3> </h3></a>
    <a class="skill label label-info"><h3>PostgreSQL</h3></a>
  </div></div>
  <div class="project-author">
    <span class="author-info"><button>Acme Corp</button></span>
    <span class="country"><span class="country-name"><a>Brazil</a></span></span>
    <span class="rating"><span class="profile-stars"><span class="stars-bg" title="4.75 of 5.00"></span></span></span>
    <span class="payment"><span class="payment-verified">Payment verified</span></span>
    <span class="message-created"><span>Last reply: 2 hours ago</span></span>
  </div>
</div>`

func newExtractor() *extract.Extractor {
	return extract.New(extract.Config{
		BaseURL: baseURL,
		Now:     func() time.Time { return fixedNow },
	})
}

// ── Full record ───────────────────────────────────────────────────────────

func TestExtract_FullListing(t *testing.T) {
	l, err := newExtractor().Extract(fullListingHTML)
	require.NoError(t, err)

	assert.Equal(t, "build-a-webhook-integration", l.ID)
	assert.Equal(t, baseURL+"/job/build-a-webhook-integration?ref=projects_1", l.URL)
	require.NotNil(t, l.Title)
	assert.Equal(t, "Build a webhook integration", *l.Title)

	require.NotNil(t, l.PostedRelative)
	assert.Equal(t, "3 hours ago", *l.PostedRelative)
	require.NotNil(t, l.PostedAt)
	assert.WithinDuration(t, fixedNow.Add(-3*time.Hour), *l.PostedAt, time.Second)

	require.NotNil(t, l.BidsCount)
	assert.Equal(t, 12, *l.BidsCount)

	require.NotNil(t, l.Description)
	assert.Equal(t, "We need an expert in webhooks.", *l.Description)

	require.NotNil(t, l.BudgetRaw)
	assert.Equal(t, "USD 1,000 - 3,000", *l.BudgetRaw)
	require.NotNil(t, l.BudgetMin)
	require.NotNil(t, l.BudgetMax)
	assert.Equal(t, 1000.0, *l.BudgetMin)
	assert.Equal(t, 3000.0, *l.BudgetMax)
	assert.Equal(t, model.BudgetFixed, l.BudgetType)

	assert.Equal(t, []string{"Go", "PostgreSQL"}, l.Skills)
	assert.True(t, l.IsFeatured)
	assert.True(t, l.IsHighlighted)

	require.NotNil(t, l.ClientName)
	assert.Equal(t, "Acme Corp", *l.ClientName)
	require.NotNil(t, l.ClientCountry)
	assert.Equal(t, "Brazil", *l.ClientCountry)
	require.NotNil(t, l.ClientRating)
	assert.Equal(t, 4.75, *l.ClientRating)
	assert.True(t, l.ClientPaymentVerified)
	require.NotNil(t, l.ClientLastReply)
	assert.Equal(t, "2 hours ago", *l.ClientLastReply)

	assert.Equal(t, "build-a-webhook-integration|Acme Corp", l.DedupKey())
}

// ── Missing fields ────────────────────────────────────────────────────────

func TestExtract_MinimalListing(t *testing.T) {
	html := `<div class="project-item js-project">
	  <h2 class="h3 project-title"><span><a href="https://www.workana.com/job/logo-design">Logo</a></span></h2>
	</div>`

	l, err := newExtractor().Extract(html)
	require.NoError(t, err)

	assert.Equal(t, "logo-design", l.ID)
	assert.Nil(t, l.Description)
	assert.Nil(t, l.PostedRelative)
	assert.Nil(t, l.PostedAt)
	assert.Nil(t, l.BidsCount)
	assert.Nil(t, l.BudgetRaw)
	assert.Equal(t, model.BudgetUnknown, l.BudgetType)
	assert.Empty(t, l.Skills)
	assert.NotNil(t, l.Skills)
	assert.False(t, l.IsFeatured)
	assert.False(t, l.IsHighlighted)
	assert.Nil(t, l.ClientName)
	assert.Nil(t, l.ClientCountry)
	assert.Nil(t, l.ClientRating)
	assert.False(t, l.ClientPaymentVerified)
	assert.Nil(t, l.ClientLastReply)
	assert.Equal(t, "logo-design|", l.DedupKey())
}

func TestExtract_NoLinkYieldsEmptyID(t *testing.T) {
	html := `<div class="project-item js-project">
	  <h2 class="h3 project-title"><span>No link here</span></h2>
	  <p class="budget h4"><span class="values"><span>USD 50</span></span></p>
	</div>`

	l, err := newExtractor().Extract(html)
	require.NoError(t, err)
	assert.Empty(t, l.ID)
	assert.Empty(t, l.URL)
	require.NotNil(t, l.BudgetMin)
	assert.Equal(t, 50.0, *l.BudgetMin)
}

func TestExtract_UnparseableDateKeepsRaw(t *testing.T) {
	html := `<div class="project-item js-project">
	  <div class="project-main-details"><span class="date">Published: sometime</span></div>
	</div>`

	l, err := newExtractor().Extract(html)
	require.NoError(t, err)
	require.NotNil(t, l.PostedRelative)
	assert.Equal(t, "sometime", *l.PostedRelative)
	assert.Nil(t, l.PostedAt)
}

func TestExtract_EmptyFragment(t *testing.T) {
	_, err := newExtractor().Extract("   ")
	assert.ErrorIs(t, err, extract.ErrEmptyFragment)
}

func TestExtract_MalformedMarkupDoesNotFail(t *testing.T) {
	html := `<div class="project-item js-project"><h2 class="h3 project-title"><span><a href="/job/broken">Broken<div><p>`

	l, err := newExtractor().Extract(html)
	require.NoError(t, err)
	assert.Equal(t, "broken", l.ID)
}

// ── Fallback chains ───────────────────────────────────────────────────────

func TestExtract_CountryFallbackSecondary(t *testing.T) {
	// country-name is not wrapped in span.country, so only the second
	// selector of the chain matches.
	html := `<div class="project-item js-project">
	  <h2 class="h3 project-title"><span><a href="/job/x">X</a></span></h2>
	  <div class="project-author">
	    <span class="author-info"><button>Jane</button></span>
	    <span class="country-name"><a>Argentina</a></span>
	  </div>
	</div>`

	l, err := newExtractor().Extract(html)
	require.NoError(t, err)
	require.NotNil(t, l.ClientCountry)
	assert.Equal(t, "Argentina", *l.ClientCountry)
}

func TestExtract_CountryFallbackTertiary(t *testing.T) {
	html := `<div class="project-item js-project">
	  <div class="project-author"><span class="country"><a>Mexico</a></span></div>
	</div>`

	l, err := newExtractor().Extract(html)
	require.NoError(t, err)
	require.NotNil(t, l.ClientCountry)
	assert.Equal(t, "Mexico", *l.ClientCountry)
}

func TestExtract_RatingFallbackNested(t *testing.T) {
	html := `<div class="project-item js-project">
	  <div class="project-author">
	    <span class="rating"><span class="profile-stars"><span class="wrap"><span class="stars-bg" title="3.50 of 5.00"></span></span></span></span>
	  </div>
	</div>`

	l, err := newExtractor().Extract(html)
	require.NoError(t, err)
	require.NotNil(t, l.ClientRating)
	assert.Equal(t, 3.5, *l.ClientRating)
}

func TestExtract_ClientFieldsWithoutAuthorSection(t *testing.T) {
	html := `<div class="project-item js-project">
	  <h2 class="h3 project-title"><span><a href="/job/loose">Loose</a></span></h2>
	  <div class="client-box">
	    <span class="country-name"><a>Uruguay</a></span>
	    <span class="rating"><span class="profile-stars"><span class="stars-bg" title="4.20 of 5.00"></span></span></span>
	  </div>
	</div>`

	l, err := newExtractor().Extract(html)
	require.NoError(t, err)
	require.NotNil(t, l.ClientCountry)
	assert.Equal(t, "Uruguay", *l.ClientCountry)
	require.NotNil(t, l.ClientRating)
	assert.Equal(t, 4.2, *l.ClientRating)
	assert.Nil(t, l.ClientName)
	assert.False(t, l.ClientPaymentVerified)
}

func TestChain_FirstStopsAtFirstHit(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<div><span class="b">second</span><span class="c">third</span></div>`))
	require.NoError(t, err)

	calls := 0
	counting := func(s extract.Strategy) extract.Strategy {
		return func(sel *goquery.Selection) (string, bool) {
			calls++
			return s(sel)
		}
	}
	chain := extract.Chain{
		counting(extract.Text("span.a")),
		counting(extract.Text("span.b")),
		counting(extract.Text("span.c")),
	}

	v, ok := chain.First(doc.Selection)
	assert.True(t, ok)
	assert.Equal(t, "second", v)
	assert.Equal(t, 2, calls)
}

func TestChain_AllMiss(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<div><span class="x"> </span></div>`))
	require.NoError(t, err)

	_, ok := extract.TextChain("span.x", "span.y").First(doc.Selection)
	assert.False(t, ok)
	_, ok = extract.AttrChain("title", "span.x").First(doc.Selection)
	assert.False(t, ok)
}

func TestExtract_CustomSelectors(t *testing.T) {
	sel := extract.DefaultSelectors()
	sel.ClientCountry = []string{"span.a", "span.b"}

	l, err := extract.New(extract.Config{BaseURL: baseURL, Selectors: sel}).Extract(
		`<div class="project-item js-project"><div class="project-author"><span class="b">Chile</span></div></div>`)
	require.NoError(t, err)
	require.NotNil(t, l.ClientCountry)
	assert.Equal(t, "Chile", *l.ClientCountry)
}

// ── Page splitting ────────────────────────────────────────────────────────

func listingHTML(i int) string {
	return fmt.Sprintf(`<div class="project-item js-project">
	  <h2 class="h3 project-title"><span><a href="/job/job-%d">Job %d</a></span></h2>
	</div>`, i, i)
}

func TestSplitPage(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<html><body><div id="projects">`)
	for i := 1; i <= 3; i++ {
		b.WriteString(listingHTML(i))
	}
	b.WriteString(`</div><nav class="text-center"><ul class="pagination">
	  <li class="active"><a>1</a></li><li><a href="?page=2">2</a></li>
	  <li><a href="?page=7">7</a></li><li><a aria-label="Next">»</a></li>
	</ul></nav></body></html>`)

	ex := newExtractor()
	p, err := ex.SplitPage(b.String())
	require.NoError(t, err)
	assert.Equal(t, 7, p.TotalPages)
	require.Len(t, p.Fragments, 3)

	for i, frag := range p.Fragments {
		l, err := ex.Extract(frag)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("job-%d", i+1), l.ID)
	}
}

func TestSplitPage_NoPagination(t *testing.T) {
	p, err := newExtractor().SplitPage(`<html><body>` + listingHTML(1) + `</body></html>`)
	require.NoError(t, err)
	assert.Equal(t, 1, p.TotalPages)
	assert.Len(t, p.Fragments, 1)
}

// ── Slug derivation ───────────────────────────────────────────────────────

func TestJobIDFromURL(t *testing.T) {
	hosts := []string{"https://www.workana.com", "http://www.workana.com"}
	cases := map[string]string{
		"https://www.workana.com/job/desenvolvedor-expert":          "desenvolvedor-expert",
		"http://www.workana.com/job/desenvolvedor-expert/":          "desenvolvedor-expert",
		"/job/app-mobile?ref=projects_2":                            "app-mobile",
		"https://www.workana.com/en/job/landing-page/details?x=1":   "landing-page",
		"https://www.workana.com/projects/some-slug?utm_source=abc": "some-slug",
		"https://www.workana.com/projects/some-slug/":               "some-slug",
		"": "",
	}
	for in, want := range cases {
		assert.Equal(t, want, extract.JobIDFromURL(in, hosts...), "input %q", in)
	}
}
