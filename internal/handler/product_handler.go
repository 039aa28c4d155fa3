package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/kredoapp/kredo-backend/internal/domain"
	"github.com/kredoapp/kredo-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ProductHandler handles loan product HTTP requests
type ProductHandler struct {
	productService *service.ProductService
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService *service.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

// ProductRequest represents the create/update product request body
type ProductRequest struct {
	Name              string `json:"name"`
	InterestRate      string `json:"interestRate"`
	InterestType      string `json:"interestType"`
	ProcessingFeeRate string `json:"processingFeeRate"`
	PenaltyRate       string `json:"penaltyRate"`
	MinAmount         string `json:"minAmount"`
	MaxAmount         string `json:"maxAmount"`
	MinTenureMonths   int32  `json:"minTenureMonths"`
	MaxTenureMonths   int32  `json:"maxTenureMonths"`
}

// ProductResponse represents a loan product in API responses
type ProductResponse struct {
	ID                int32  `json:"id"`
	Name              string `json:"name"`
	InterestRate      string `json:"interestRate"`
	InterestType      string `json:"interestType"`
	ProcessingFeeRate string `json:"processingFeeRate"`
	PenaltyRate       string `json:"penaltyRate"`
	MinAmount         string `json:"minAmount"`
	MaxAmount         string `json:"maxAmount"`
	MinTenureMonths   int32  `json:"minTenureMonths"`
	MaxTenureMonths   int32  `json:"maxTenureMonths"`
	CreatedAt         string `json:"createdAt"`
	UpdatedAt         string `json:"updatedAt"`
}

// CreateProduct handles POST /api/v1/loan-products
func (h *ProductHandler) CreateProduct(c echo.Context) error {
	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	product, validationErrs := parseProductRequest(&req)
	if validationErrs != nil {
		return NewValidationError(c, "Validation failed", validationErrs)
	}

	created, err := h.productService.Create(product)
	if err != nil {
		if resp := productValidationResponse(c, err); resp != nil {
			return resp
		}
		log.Error().Err(err).Str("name", req.Name).Msg("Failed to create loan product")
		return NewInternalError(c, "Failed to create loan product")
	}

	log.Info().Int32("product_id", created.ID).Str("name", created.Name).Msg("Loan product created")

	return c.JSON(http.StatusCreated, toProductResponse(created))
}

// GetProducts handles GET /api/v1/loan-products
func (h *ProductHandler) GetProducts(c echo.Context) error {
	products, err := h.productService.GetAll()
	if err != nil {
		log.Error().Err(err).Msg("Failed to get loan products")
		return NewInternalError(c, "Failed to get loan products")
	}

	response := make([]ProductResponse, len(products))
	for i, product := range products {
		response[i] = toProductResponse(product)
	}

	return c.JSON(http.StatusOK, response)
}

// GetProduct handles GET /api/v1/loan-products/:id
func (h *ProductHandler) GetProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid product ID", nil)
	}

	product, err := h.productService.GetByID(int32(id))
	if err != nil {
		if errors.Is(err, domain.ErrLoanProductNotFound) {
			return NewNotFoundError(c, "Loan product not found")
		}
		log.Error().Err(err).Int("product_id", id).Msg("Failed to get loan product")
		return NewInternalError(c, "Failed to get loan product")
	}

	return c.JSON(http.StatusOK, toProductResponse(product))
}

// UpdateProduct handles PUT /api/v1/loan-products/:id
func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid product ID", nil)
	}

	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	product, validationErrs := parseProductRequest(&req)
	if validationErrs != nil {
		return NewValidationError(c, "Validation failed", validationErrs)
	}
	product.ID = int32(id)

	updated, err := h.productService.Update(product)
	if err != nil {
		if errors.Is(err, domain.ErrLoanProductNotFound) {
			return NewNotFoundError(c, "Loan product not found")
		}
		if errors.Is(err, domain.ErrProductInUse) {
			return NewConflictError(c, "Product is referenced by a disbursed loan and cannot be changed")
		}
		if resp := productValidationResponse(c, err); resp != nil {
			return resp
		}
		log.Error().Err(err).Int("product_id", id).Msg("Failed to update loan product")
		return NewInternalError(c, "Failed to update loan product")
	}

	log.Info().Int32("product_id", updated.ID).Str("name", updated.Name).Msg("Loan product updated")

	return c.JSON(http.StatusOK, toProductResponse(updated))
}

// parseProductRequest converts a request body into a domain product,
// returning field errors for unparseable decimals
func parseProductRequest(req *ProductRequest) (*domain.LoanProduct, []ValidationError) {
	interestRate, err := decimal.NewFromString(req.InterestRate)
	if err != nil {
		return nil, []ValidationError{{Field: "interestRate", Message: "Must be a valid decimal number"}}
	}
	processingFeeRate, err := decimal.NewFromString(req.ProcessingFeeRate)
	if err != nil {
		return nil, []ValidationError{{Field: "processingFeeRate", Message: "Must be a valid decimal number"}}
	}
	penaltyRate, err := decimal.NewFromString(req.PenaltyRate)
	if err != nil {
		return nil, []ValidationError{{Field: "penaltyRate", Message: "Must be a valid decimal number"}}
	}
	minAmount, err := decimal.NewFromString(req.MinAmount)
	if err != nil {
		return nil, []ValidationError{{Field: "minAmount", Message: "Must be a valid decimal number"}}
	}
	maxAmount, err := decimal.NewFromString(req.MaxAmount)
	if err != nil {
		return nil, []ValidationError{{Field: "maxAmount", Message: "Must be a valid decimal number"}}
	}

	return &domain.LoanProduct{
		Name:              req.Name,
		InterestRate:      interestRate,
		InterestType:      domain.InterestType(req.InterestType),
		ProcessingFeeRate: processingFeeRate,
		PenaltyRate:       penaltyRate,
		MinAmount:         minAmount,
		MaxAmount:         maxAmount,
		MinTenureMonths:   req.MinTenureMonths,
		MaxTenureMonths:   req.MaxTenureMonths,
	}, nil
}

// productValidationResponse maps product validation errors to a 400
// response, or returns nil for errors it does not recognize
func productValidationResponse(c echo.Context, err error) error {
	if errors.Is(err, domain.ErrProductNameEmpty) {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "name", Message: "Name is required"},
		})
	}
	if errors.Is(err, domain.ErrProductNameTooLong) {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "name", Message: "Name must be 200 characters or less"},
		})
	}
	if errors.Is(err, domain.ErrProductRateNegative) {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "interestRate", Message: "Rates must not be negative"},
		})
	}
	if errors.Is(err, domain.ErrProductInterestTypeInvalid) {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "interestType", Message: "Must be 'flat' or 'reducing'"},
		})
	}
	if errors.Is(err, domain.ErrProductAmountBoundsInvalid) {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "minAmount", Message: "Amount bounds must satisfy 0 < min <= max"},
		})
	}
	if errors.Is(err, domain.ErrProductTenureBoundsInvalid) {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "minTenureMonths", Message: "Tenure bounds must satisfy 0 < min <= max"},
		})
	}
	return nil
}

// Helper function to convert domain.LoanProduct to ProductResponse
func toProductResponse(product *domain.LoanProduct) ProductResponse {
	return ProductResponse{
		ID:                product.ID,
		Name:              product.Name,
		InterestRate:      product.InterestRate.StringFixed(2),
		InterestType:      string(product.InterestType),
		ProcessingFeeRate: product.ProcessingFeeRate.StringFixed(2),
		PenaltyRate:       product.PenaltyRate.StringFixed(2),
		MinAmount:         product.MinAmount.StringFixed(2),
		MaxAmount:         product.MaxAmount.StringFixed(2),
		MinTenureMonths:   product.MinTenureMonths,
		MaxTenureMonths:   product.MaxTenureMonths,
		CreatedAt:         product.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         product.UpdatedAt.Format(time.RFC3339),
	}
}
