package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store is the persistence behind the catalog; Repo and memdb.DB implement it.
type Store interface {
	SaveProduct(ctx context.Context, p Product) error
	GetProduct(ctx context.Context, id string) (Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
	DeleteProduct(ctx context.Context, id string) error

	SaveCustomer(ctx context.Context, c Customer) error
	GetCustomer(ctx context.Context, id string) (Customer, error)
	ListCustomers(ctx context.Context) ([]Customer, error)
	DeleteCustomer(ctx context.Context, id string) error

	SaveCategory(ctx context.Context, c Category) error
	ListCategories(ctx context.Context) ([]Category, error)
	DeleteCategory(ctx context.Context, id string) error

	Counts(ctx context.Context) (Counts, error)
}

type ProductCache interface {
	GetProduct(ctx context.Context, id string) (Product, bool, error)
	SetProduct(ctx context.Context, p Product) error
	GetProducts(ctx context.Context) ([]Product, bool, error)
	SetProducts(ctx context.Context, ps []Product) error
	InvalidateProducts(ctx context.Context, ids ...string) error
}

// ChangeNotifier is told about every committed change to a collection.
type ChangeNotifier interface {
	CollectionChanged(ctx context.Context, collection string, ids ...string)
}

// Service is the CRUD layer used by the admin endpoints. Cache and Notifier are optional.
type Service struct {
	Store    Store
	Cache    ProductCache
	Notifier ChangeNotifier
	Log      *zap.Logger
}

func (s *Service) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s *Service) changed(ctx context.Context, collection string, ids ...string) {
	if s.Notifier != nil {
		s.Notifier.CollectionChanged(ctx, collection, ids...)
	}
}

func (s *Service) invalidate(ctx context.Context, ids ...string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.InvalidateProducts(ctx, ids...); err != nil {
		s.log().Warn("product cache invalidation failed", zap.Strings("product_ids", ids), zap.Error(err))
	}
}

func (s *Service) SaveProduct(ctx context.Context, p Product) (Product, error) {
	p.normalize()
	if err := p.Validate(); err != nil {
		return Product{}, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if err := s.Store.SaveProduct(ctx, p); err != nil {
		return Product{}, fmt.Errorf("save product %s: %w", p.ID, err)
	}
	s.invalidate(ctx, p.ID)
	s.changed(ctx, CollectionProducts, p.ID)
	return p, nil
}

// GetProduct serves from the cache when possible and fills it on a miss.
func (s *Service) GetProduct(ctx context.Context, id string) (Product, error) {
	id = strings.TrimSpace(id)
	if s.Cache != nil {
		p, ok, err := s.Cache.GetProduct(ctx, id)
		if err != nil {
			s.log().Warn("product cache read failed", zap.String("product_id", id), zap.Error(err))
		} else if ok {
			return p, nil
		}
	}

	p, err := s.Store.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if s.Cache != nil {
		if err := s.Cache.SetProduct(ctx, p); err != nil {
			s.log().Warn("product cache fill failed", zap.String("product_id", id), zap.Error(err))
		}
	}
	return p, nil
}

func (s *Service) ListProducts(ctx context.Context) ([]Product, error) {
	if s.Cache != nil {
		ps, ok, err := s.Cache.GetProducts(ctx)
		if err != nil {
			s.log().Warn("product list cache read failed", zap.Error(err))
		} else if ok {
			return ps, nil
		}
	}

	ps, err := s.Store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	if s.Cache != nil {
		if err := s.Cache.SetProducts(ctx, ps); err != nil {
			s.log().Warn("product list cache fill failed", zap.Error(err))
		}
	}
	return ps, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.Store.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	s.changed(ctx, CollectionProducts, id)
	return nil
}

func (s *Service) SaveCustomer(ctx context.Context, c Customer) (Customer, error) {
	c.normalize()
	if err := c.Validate(); err != nil {
		return Customer{}, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if err := s.Store.SaveCustomer(ctx, c); err != nil {
		return Customer{}, fmt.Errorf("save customer %s: %w", c.ID, err)
	}
	s.changed(ctx, CollectionCustomers, c.ID)
	return c, nil
}

func (s *Service) GetCustomer(ctx context.Context, id string) (Customer, error) {
	return s.Store.GetCustomer(ctx, strings.TrimSpace(id))
}

func (s *Service) ListCustomers(ctx context.Context) ([]Customer, error) {
	return s.Store.ListCustomers(ctx)
}

func (s *Service) DeleteCustomer(ctx context.Context, id string) error {
	if err := s.Store.DeleteCustomer(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, CollectionCustomers, id)
	return nil
}

func (s *Service) SaveCategory(ctx context.Context, c Category) (Category, error) {
	c.ID = strings.TrimSpace(c.ID)
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return Category{}, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if err := s.Store.SaveCategory(ctx, c); err != nil {
		return Category{}, fmt.Errorf("save category %s: %w", c.ID, err)
	}
	s.changed(ctx, CollectionCategories, c.ID)
	return c, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.Store.ListCategories(ctx)
}

func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	if err := s.Store.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, CollectionCategories, id)
	return nil
}

// Counts backs the dashboard counters.
func (s *Service) Counts(ctx context.Context) (Counts, error) {
	return s.Store.Counts(ctx)
}
