package httpx

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/ariefcatur/go-inventory-orders/internal/catalog"
	"github.com/ariefcatur/go-inventory-orders/internal/memdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newCatalogServer() http.Handler {
	r := NewRouter(zap.NewNop(), nil)
	h := &CatalogHandler{Service: &catalog.Service{Store: memdb.New()}, Log: zap.NewNop()}
	h.Register(r)
	return r
}

func TestProductCRUD(t *testing.T) {
	srv := newCatalogServer()

	rec := do(t, srv, http.MethodPost, "/products", `{"name":"Rice","category":"food","price":100,"stock":5}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var p catalog.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	require.NotEmpty(t, p.ID)

	rec = do(t, srv, http.MethodPut, "/products/"+p.ID, `{"name":"Rice","category":"food","price":120,"stock":4}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodGet, "/products/"+p.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got catalog.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, int64(120), got.Price)
	assert.Equal(t, 4, got.Stock)

	assert.Equal(t, http.StatusNoContent, do(t, srv, http.MethodDelete, "/products/"+p.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/products/"+p.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodDelete, "/products/"+p.ID, "").Code)
}

func TestProductValidation(t *testing.T) {
	srv := newCatalogServer()
	rec := do(t, srv, http.MethodPost, "/products", `{"name":"Rice","category":"food","stock":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "stock")
}

func TestCustomersCategoriesDashboard(t *testing.T) {
	srv := newCatalogServer()

	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/customers", `{"name":"Ana"}`).Code)
	require.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/customers", `{"email":"x@y"}`).Code)
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPut, "/categories/food", `{"name":"Food"}`).Code)

	rec := do(t, srv, http.MethodGet, "/categories", "")
	assert.Contains(t, rec.Body.String(), `"food"`)

	rec = do(t, srv, http.MethodGet, "/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var c catalog.Counts
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	assert.Equal(t, 1, c.Customers)
	assert.Equal(t, 1, c.Categories)
	assert.Equal(t, 0, c.Orders)
}
