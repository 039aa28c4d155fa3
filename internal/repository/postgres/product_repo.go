package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kredoapp/kredo-backend/internal/domain"
)

// LoanProductRepository implements domain.LoanProductRepository using PostgreSQL
type LoanProductRepository struct {
	pool *pgxpool.Pool
}

// NewLoanProductRepository creates a new LoanProductRepository
func NewLoanProductRepository(pool *pgxpool.Pool) *LoanProductRepository {
	return &LoanProductRepository{pool: pool}
}

const productColumns = `id, name, interest_rate, interest_type, processing_fee_rate, penalty_rate,
	min_amount, max_amount, min_tenure_months, max_tenure_months, created_at, updated_at`

func scanProduct(row pgx.Row) (*domain.LoanProduct, error) {
	var product domain.LoanProduct
	var interestRate, processingFeeRate, penaltyRate, minAmount, maxAmount pgtype.Numeric

	err := row.Scan(
		&product.ID,
		&product.Name,
		&interestRate,
		&product.InterestType,
		&processingFeeRate,
		&penaltyRate,
		&minAmount,
		&maxAmount,
		&product.MinTenureMonths,
		&product.MaxTenureMonths,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	product.InterestRate = pgNumericToDecimal(interestRate)
	product.ProcessingFeeRate = pgNumericToDecimal(processingFeeRate)
	product.PenaltyRate = pgNumericToDecimal(penaltyRate)
	product.MinAmount = pgNumericToDecimal(minAmount)
	product.MaxAmount = pgNumericToDecimal(maxAmount)
	return &product, nil
}

// Create creates a new loan product
func (r *LoanProductRepository) Create(product *domain.LoanProduct) (*domain.LoanProduct, error) {
	ctx := context.Background()

	interestRate, err := decimalToPgNumeric(product.InterestRate)
	if err != nil {
		return nil, err
	}
	processingFeeRate, err := decimalToPgNumeric(product.ProcessingFeeRate)
	if err != nil {
		return nil, err
	}
	penaltyRate, err := decimalToPgNumeric(product.PenaltyRate)
	if err != nil {
		return nil, err
	}
	minAmount, err := decimalToPgNumeric(product.MinAmount)
	if err != nil {
		return nil, err
	}
	maxAmount, err := decimalToPgNumeric(product.MaxAmount)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO loan_products (name, interest_rate, interest_type, processing_fee_rate, penalty_rate,
			min_amount, max_amount, min_tenure_months, max_tenure_months)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+productColumns,
		product.Name,
		interestRate,
		product.InterestType,
		processingFeeRate,
		penaltyRate,
		minAmount,
		maxAmount,
		product.MinTenureMonths,
		product.MaxTenureMonths,
	)
	return scanProduct(row)
}

// GetByID retrieves a loan product by ID
func (r *LoanProductRepository) GetByID(id int32) (*domain.LoanProduct, error) {
	ctx := context.Background()

	product, err := scanProduct(r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM loan_products WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrLoanProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return product, nil
}

// GetAll retrieves all loan products ordered by name
func (r *LoanProductRepository) GetAll() ([]*domain.LoanProduct, error) {
	ctx := context.Background()

	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM loan_products ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]*domain.LoanProduct, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

// Update updates an existing loan product
func (r *LoanProductRepository) Update(product *domain.LoanProduct) (*domain.LoanProduct, error) {
	ctx := context.Background()

	interestRate, err := decimalToPgNumeric(product.InterestRate)
	if err != nil {
		return nil, err
	}
	processingFeeRate, err := decimalToPgNumeric(product.ProcessingFeeRate)
	if err != nil {
		return nil, err
	}
	penaltyRate, err := decimalToPgNumeric(product.PenaltyRate)
	if err != nil {
		return nil, err
	}
	minAmount, err := decimalToPgNumeric(product.MinAmount)
	if err != nil {
		return nil, err
	}
	maxAmount, err := decimalToPgNumeric(product.MaxAmount)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE loan_products
		SET name = $2, interest_rate = $3, interest_type = $4, processing_fee_rate = $5,
			penalty_rate = $6, min_amount = $7, max_amount = $8,
			min_tenure_months = $9, max_tenure_months = $10, updated_at = NOW()
		WHERE id = $1
		RETURNING `+productColumns,
		product.ID,
		product.Name,
		interestRate,
		product.InterestType,
		processingFeeRate,
		penaltyRate,
		minAmount,
		maxAmount,
		product.MinTenureMonths,
		product.MaxTenureMonths,
	)
	updated, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrLoanProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// CountDisbursedLoans counts loans that have been disbursed against a product
func (r *LoanProductRepository) CountDisbursedLoans(productID int32) (int64, error) {
	ctx := context.Background()

	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM loans WHERE loan_product_id = $1`, productID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
