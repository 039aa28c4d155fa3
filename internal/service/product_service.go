package service

import (
	"github.com/kredoapp/kredo-backend/internal/domain"
	"github.com/kredoapp/kredo-backend/internal/websocket"
)

// ProductService handles loan product catalog management
type ProductService struct {
	productRepo    domain.LoanProductRepository
	eventPublisher websocket.EventPublisher
}

// NewProductService creates a new ProductService
func NewProductService(productRepo domain.LoanProductRepository) *ProductService {
	return &ProductService{productRepo: productRepo}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *ProductService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

func (s *ProductService) publishEvent(event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(event)
	}
}

// Create validates and persists a new loan product
func (s *ProductService) Create(product *domain.LoanProduct) (*domain.LoanProduct, error) {
	if err := product.Validate(); err != nil {
		return nil, err
	}
	created, err := s.productRepo.Create(product)
	if err != nil {
		return nil, err
	}
	s.publishEvent(websocket.ProductCreated(created.ID, created.Name))
	return created, nil
}

// GetByID retrieves a loan product by ID
func (s *ProductService) GetByID(id int32) (*domain.LoanProduct, error) {
	return s.productRepo.GetByID(id)
}

// GetAll retrieves all loan products
func (s *ProductService) GetAll() ([]*domain.LoanProduct, error) {
	return s.productRepo.GetAll()
}

// Update modifies a loan product. Products already referenced by a disbursed
// loan are frozen so existing schedules keep the terms they were priced at.
func (s *ProductService) Update(product *domain.LoanProduct) (*domain.LoanProduct, error) {
	if err := product.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.productRepo.GetByID(product.ID); err != nil {
		return nil, err
	}

	count, err := s.productRepo.CountDisbursedLoans(product.ID)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, domain.ErrProductInUse
	}

	updated, err := s.productRepo.Update(product)
	if err != nil {
		return nil, err
	}
	s.publishEvent(websocket.ProductUpdated(updated.ID, updated.Name))
	return updated, nil
}
