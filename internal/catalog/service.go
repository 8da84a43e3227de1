package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/wa-returns-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/wa-returns-backend/pkg/errors"
)

// Service resolves a customer's free-text item description to a product.
type Service struct {
	repo Repository
}

// NewService wires the catalog lookup.
func NewService(repo Repository) (*Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "catalog repository required")
	}
	return &Service{repo: repo}, nil
}

// Resolve matches by SKU, then exact name, then a unique name fragment.
// No match or an ambiguous fragment returns (nil, nil).
func (s *Service) Resolve(ctx context.Context, description string) (*models.Product, error) {
	query := strings.TrimSpace(description)
	if query == "" {
		return nil, nil
	}

	product, err := s.repo.FindBySKU(ctx, query)
	if err != nil {
		return nil, wrapLookup(err, "sku")
	}
	if product != nil {
		return product, nil
	}

	product, err = s.repo.FindByName(ctx, query)
	if err != nil {
		return nil, wrapLookup(err, "name")
	}
	if product != nil {
		return product, nil
	}

	candidates, err := s.repo.SearchByName(ctx, query, 2)
	if err != nil {
		return nil, wrapLookup(err, "search")
	}
	if len(candidates) == 1 {
		return &candidates[0], nil
	}
	return nil, nil
}

func wrapLookup(err error, by string) error {
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("catalog lookup by %s", by))
}
