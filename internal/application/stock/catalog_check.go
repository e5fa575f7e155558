package stock

import (
	"context"
	"fmt"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/stock"
	"github.com/google/uuid"
)

// requireInCatalog fails with a NotFound error for the first warehouse or
// product the catalog does not know.
func requireInCatalog(ctx context.Context, catalog stock.Catalog, warehouses []uuid.UUID, products []uuid.UUID) error {
	for _, id := range warehouses {
		ok, err := catalog.WarehouseExists(ctx, id)
		if err != nil {
			return fmt.Errorf("check warehouse %s: %w", id, err)
		}
		if !ok {
			return shared.NewNotFoundError("WAREHOUSE_NOT_FOUND", fmt.Sprintf("Warehouse %s not found", id))
		}
	}
	for _, id := range products {
		ok, err := catalog.ProductExists(ctx, id)
		if err != nil {
			return fmt.Errorf("check product %s: %w", id, err)
		}
		if !ok {
			return shared.NewNotFoundError("PRODUCT_NOT_FOUND", fmt.Sprintf("Product %s not found", id))
		}
	}
	return nil
}
