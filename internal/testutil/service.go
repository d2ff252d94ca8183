package testutil

import (
	"context"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/require"

	"github.com/qolzam/telar/apps/crud/crud"
	"github.com/qolzam/telar/apps/crud/internal/database/sqldb"
	"github.com/qolzam/telar/apps/crud/permissions"
	"github.com/qolzam/telar/apps/crud/repository"
)

// ProductPayload is the decoded create/update body of a product
type ProductPayload struct {
	Name     string  `json:"name" create:"required,min=2" update:"required,min=2" partial_update:"omitempty,min=2"`
	Category string  `json:"category" create:"required" update:"required"`
	Price    float64 `json:"price" create:"gte=0" update:"gte=0" partial_update:"gte=0"`
	SKU      string  `json:"sku" groups:"create" create:"required"`
}

// ProductOutput is the read representation of a product
type ProductOutput struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Category string    `json:"category"`
	Price    float64   `json:"price"`
	OwnerID  uuid.UUID `json:"ownerId" groups:"read"`
}

type (
	ProductService = crud.Service[Product, ProductPayload, ProductOutput]
	ProductConfig  = crud.Config[Product, ProductPayload, ProductOutput]
)

// ProductMapper creates products owned by the caller and merges payload fields into them
var ProductMapper = crud.MapperFuncs[Product, ProductPayload]{
	New: func(_ context.Context, req *permissions.Request, p *ProductPayload) (*Product, error) {
		product := NewProduct(p.Name, p.Category, p.Price)
		product.SKU = p.SKU
		if req.User.Authenticated() {
			product.OwnerID = req.User.UserID
		}
		return &product, nil
	},
	Merge: func(_ context.Context, e *Product, p *ProductPayload, fields []string) error {
		if fields == nil {
			e.Name, e.Category, e.Price = p.Name, p.Category, p.Price
			return nil
		}
		for _, f := range fields {
			switch f {
			case "name":
				e.Name = p.Name
			case "category":
				e.Category = p.Category
			case "price":
				e.Price = p.Price
			}
		}
		return nil
	},
}

// NewProductService wires a product service over client. configure may replace any collaborator.
func NewProductService(t *testing.T, client *sqldb.Client, configure ...func(*ProductConfig)) *ProductService {
	t.Helper()
	resource := ProductResource(t)
	store, err := repository.NewStore[Product](client, resource)
	require.NoError(t, err)

	cfg := ProductConfig{
		Resource:   resource,
		Store:      store,
		Mapper:     ProductMapper,
		Transactor: client,
	}
	for _, fn := range configure {
		fn(&cfg)
	}
	svc, err := crud.NewService(cfg)
	require.NoError(t, err)
	return svc
}
