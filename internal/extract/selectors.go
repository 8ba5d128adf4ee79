package extract

// Selectors names where each field lives in a listing's markup. Fields
// holding a slice are fallback chains: tried in order, first non-empty
// result wins. Client-scoped selectors are evaluated inside ClientSection,
// or against the whole listing when that section is absent.
type Selectors struct {
	Item          string
	FeaturedClass string

	TitleLink   []string
	Date        []string
	Bids        []string
	Description []string
	Budget      []string
	Skills      string
	MaxBadge    string

	ClientSection   string
	ClientName      []string
	ClientCountry   []string
	ClientRating    []string // rating lives in the title attribute
	PaymentVerified string
	LastReply       []string

	Pagination      string
	PaginationPages string
}

// DefaultSelectors returns the selectors for the Workana job index.
func DefaultSelectors() Selectors {
	return Selectors{
		Item:          ".project-item.js-project",
		FeaturedClass: "project-item-featured",

		TitleLink:   []string{"h2.h3.project-title > span > a", "h2.project-title a"},
		Date:        []string{"div.project-main-details > span.date"},
		Bids:        []string{"div.project-main-details > span.bids"},
		Description: []string{"div.html-desc.project-details > div > p"},
		Budget:      []string{"p.budget.h4 > span.values > span"},
		Skills:      "div.skills > div > a.skill.label.label-info > h3",
		MaxBadge:    "span.label.label-max",

		ClientSection: "div.project-author",
		ClientName:    []string{"div.project-author > span.author-info > button"},
		ClientCountry: []string{
			"div.project-author > span.country > span.country-name > a",
			"span.country-name > a",
			"span.country > a",
		},
		ClientRating: []string{
			"div.project-author > span.rating > span.profile-stars > span.stars-bg",
			"span.rating > span.profile-stars span.stars-bg",
		},
		PaymentVerified: "div.project-author > span.payment > span.payment-verified",
		LastReply:       []string{"div.project-author > span.message-created > span"},

		Pagination:      "nav.text-center > ul.pagination",
		PaginationPages: "ul.pagination > li > a",
	}
}
