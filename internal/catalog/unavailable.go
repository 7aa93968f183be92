package catalog

import (
	"context"

	"github.com/pscheid92/liveshop/internal/domain"
)

// UnavailableLookup is used when no catalog backend is configured. Every
// spotlight then shows its fallback payload.
type UnavailableLookup struct{}

func (UnavailableLookup) GetProduct(context.Context, string) (domain.ProductDetails, error) {
	return domain.ProductDetails{}, domain.ErrLookupUnavailable
}
