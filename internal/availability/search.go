package availability

import (
	"time"

	"restobook/internal/models"
)

// RestaurantSummary is the search listing entry.
type RestaurantSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	City string `json:"city"`
}

// SearchResult partitions restaurants by availability tier.
type SearchResult struct {
	Available    []RestaurantSummary `json:"available"`
	Possible     []RestaurantSummary `json:"possible"`
	NotAvailable []RestaurantSummary `json:"notAvailable"`
	Closed       []RestaurantSummary `json:"closed"`
}

// NewSearchResult returns a result with empty, non-nil lists.
func NewSearchResult() SearchResult {
	return SearchResult{
		Available:    []RestaurantSummary{},
		Possible:     []RestaurantSummary{},
		NotAvailable: []RestaurantSummary{},
		Closed:       []RestaurantSummary{},
	}
}

// Search classifies the active restaurants of city for partyOf at instant.
func Search(restaurants []*models.Restaurant, city string, instant time.Time, partyOf int) SearchResult {
	out := NewSearchResult()
	for _, r := range restaurants {
		if r == nil || !r.IsActive || !r.InCity(city) {
			continue
		}
		summary := RestaurantSummary{ID: r.ID, Name: r.Name, City: r.City}
		switch Get(r, instant, partyOf) {
		case models.Available:
			out.Available = append(out.Available, summary)
		case models.Possible:
			out.Possible = append(out.Possible, summary)
		case models.NotAvailable:
			out.NotAvailable = append(out.NotAvailable, summary)
		case models.Closed:
			out.Closed = append(out.Closed, summary)
		}
	}
	return out
}
