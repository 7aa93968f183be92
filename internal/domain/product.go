package domain

import "context"

// ProductDetails is the resolved product behind a spotlight's product reference.
type ProductDetails struct {
	Ref         string `json:"ref"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Currency    string `json:"currency,omitempty"`
	ImageURL    string `json:"imageUrl"`
	InStock     bool   `json:"inStock"`
}

// ProductLookup resolves product references. Implementations return
// ErrProductNotFound for unknown references.
type ProductLookup interface {
	GetProduct(ctx context.Context, ref string) (ProductDetails, error)
}

type SpotlightStatus string

const (
	SpotlightResolving SpotlightStatus = "resolving"
	SpotlightResolved  SpotlightStatus = "resolved"
	SpotlightFallback  SpotlightStatus = "fallback"
)

// SpotlightView is what the presentation layer draws for the active product
// spotlight. CartEnabled is false until the product reference resolves.
type SpotlightView struct {
	EventID     string          `json:"eventId"`
	Status      SpotlightStatus `json:"status"`
	Product     ProductDetails  `json:"product"`
	CartEnabled bool            `json:"cartEnabled"`
	LastError   string          `json:"lastError,omitempty"`
}

// FallbackProduct builds display details from the payload carried on the event.
func FallbackProduct(e ProductSpotlightEvent) ProductDetails {
	return ProductDetails{
		Ref:         e.ProductRef,
		Name:        e.DisplayName,
		Description: e.DisplayDescription,
		Price:       e.DisplayPrice,
		ImageURL:    e.ImageRef,
	}
}
