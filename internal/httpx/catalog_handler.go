package httpx

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ariefcatur/go-inventory-orders/internal/catalog"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CatalogService interface {
	SaveProduct(ctx context.Context, p catalog.Product) (catalog.Product, error)
	GetProduct(ctx context.Context, id string) (catalog.Product, error)
	ListProducts(ctx context.Context) ([]catalog.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	SaveCustomer(ctx context.Context, c catalog.Customer) (catalog.Customer, error)
	GetCustomer(ctx context.Context, id string) (catalog.Customer, error)
	ListCustomers(ctx context.Context) ([]catalog.Customer, error)
	DeleteCustomer(ctx context.Context, id string) error

	SaveCategory(ctx context.Context, c catalog.Category) (catalog.Category, error)
	ListCategories(ctx context.Context) ([]catalog.Category, error)
	DeleteCategory(ctx context.Context, id string) error

	Counts(ctx context.Context) (catalog.Counts, error)
}

// CatalogHandler serves the admin CRUD endpoints. PUT replaces the whole record.
type CatalogHandler struct {
	Service CatalogService
	Log     *zap.Logger
}

func (h *CatalogHandler) Register(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Post("/products", h.saveProduct)
	r.Get("/products/{id}", h.getProduct)
	r.Put("/products/{id}", h.saveProduct)
	r.Delete("/products/{id}", h.deleteProduct)

	r.Get("/customers", h.listCustomers)
	r.Post("/customers", h.saveCustomer)
	r.Get("/customers/{id}", h.getCustomer)
	r.Put("/customers/{id}", h.saveCustomer)
	r.Delete("/customers/{id}", h.deleteCustomer)

	r.Get("/categories", h.listCategories)
	r.Post("/categories", h.saveCategory)
	r.Put("/categories/{id}", h.saveCategory)
	r.Delete("/categories/{id}", h.deleteCategory)

	r.Get("/dashboard", h.dashboard)
}

func (h *CatalogHandler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, catalog.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.Log.Error("catalog request", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func timeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), 3*time.Second)
}

// saved answers 201 for POST and 200 for PUT.
func saved(w http.ResponseWriter, r *http.Request, v any) {
	code := http.StatusOK
	if r.Method == http.MethodPost {
		code = http.StatusCreated
	}
	writeJSON(w, code, v)
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeout(r)
	defer cancel()
	ps, err := h.Service.ListProducts(ctx)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *CatalogHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeout(r)
	defer cancel()
	p, err := h.Service.GetProduct(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) saveProduct(w http.ResponseWriter, r *http.Request) {
	var p catalog.Product
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if id := chi.URLParam(r, "id"); id != "" {
		p.ID = id
	}
	ctx, cancel := timeout(r)
	defer cancel()
	out, err := h.Service.SaveProduct(ctx, p)
	if err != nil {
		h.fail(w, err)
		return
	}
	saved(w, r, out)
}

func (h *CatalogHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeout(r)
	defer cancel()
	if err := h.Service.DeleteProduct(ctx, chi.URLParam(r, "id")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) listCustomers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeout(r)
	defer cancel()
	cs, err := h.Service.ListCustomers(ctx)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (h *CatalogHandler) getCustomer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeout(r)
	defer cancel()
	c, err := h.Service.GetCustomer(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CatalogHandler) saveCustomer(w http.ResponseWriter, r *http.Request) {
	var c catalog.Customer
	if err := decodeJSON(w, r, &c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if id := chi.URLParam(r, "id"); id != "" {
		c.ID = id
	}
	ctx, cancel := timeout(r)
	defer cancel()
	out, err := h.Service.SaveCustomer(ctx, c)
	if err != nil {
		h.fail(w, err)
		return
	}
	saved(w, r, out)
}

func (h *CatalogHandler) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeout(r)
	defer cancel()
	if err := h.Service.DeleteCustomer(ctx, chi.URLParam(r, "id")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeout(r)
	defer cancel()
	cs, err := h.Service.ListCategories(ctx)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (h *CatalogHandler) saveCategory(w http.ResponseWriter, r *http.Request) {
	var c catalog.Category
	if err := decodeJSON(w, r, &c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if id := chi.URLParam(r, "id"); id != "" {
		c.ID = id
	}
	ctx, cancel := timeout(r)
	defer cancel()
	out, err := h.Service.SaveCategory(ctx, c)
	if err != nil {
		h.fail(w, err)
		return
	}
	saved(w, r, out)
}

func (h *CatalogHandler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeout(r)
	defer cancel()
	if err := h.Service.DeleteCategory(ctx, chi.URLParam(r, "id")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) dashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeout(r)
	defer cancel()
	c, err := h.Service.Counts(ctx)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
