package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kredoapp/kredo-backend/internal/domain"
)

// LoanApplicationRepository implements domain.LoanApplicationRepository using PostgreSQL
type LoanApplicationRepository struct {
	pool *pgxpool.Pool
}

// NewLoanApplicationRepository creates a new LoanApplicationRepository
func NewLoanApplicationRepository(pool *pgxpool.Pool) *LoanApplicationRepository {
	return &LoanApplicationRepository{pool: pool}
}

const applicationColumns = `id, application_number, customer_id, loan_product_id, servicing_account_id,
	applied_amount, tenure_months, purpose, status, approved_amount, approved_by, approved_date,
	rejection_reason, created_at, updated_at`

func scanApplication(row pgx.Row) (*domain.LoanApplication, error) {
	var application domain.LoanApplication
	var appliedAmount, approvedAmount pgtype.Numeric
	var approvedBy pgtype.Int4
	var approvedDate pgtype.Timestamptz
	var rejectionReason pgtype.Text

	err := row.Scan(
		&application.ID,
		&application.ApplicationNumber,
		&application.CustomerID,
		&application.LoanProductID,
		&application.ServicingAccountID,
		&appliedAmount,
		&application.TenureMonths,
		&application.Purpose,
		&application.Status,
		&approvedAmount,
		&approvedBy,
		&approvedDate,
		&rejectionReason,
		&application.CreatedAt,
		&application.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	application.AppliedAmount = pgNumericToDecimal(appliedAmount)
	if approvedAmount.Valid {
		amount := pgNumericToDecimal(approvedAmount)
		application.ApprovedAmount = &amount
	}
	if approvedBy.Valid {
		application.ApprovedBy = &approvedBy.Int32
	}
	if approvedDate.Valid {
		application.ApprovedDate = &approvedDate.Time
	}
	if rejectionReason.Valid {
		application.RejectionReason = &rejectionReason.String
	}
	return &application, nil
}

// Create creates a new loan application
func (r *LoanApplicationRepository) Create(application *domain.LoanApplication) (*domain.LoanApplication, error) {
	ctx := context.Background()

	appliedAmount, err := decimalToPgNumeric(application.AppliedAmount)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO loan_applications (application_number, customer_id, loan_product_id,
			servicing_account_id, applied_amount, tenure_months, purpose, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+applicationColumns,
		application.ApplicationNumber,
		application.CustomerID,
		application.LoanProductID,
		application.ServicingAccountID,
		appliedAmount,
		application.TenureMonths,
		application.Purpose,
		application.Status,
	)
	return scanApplication(row)
}

// GetByID retrieves an application by ID
func (r *LoanApplicationRepository) GetByID(id int32) (*domain.LoanApplication, error) {
	ctx := context.Background()

	application, err := scanApplication(r.pool.QueryRow(ctx,
		`SELECT `+applicationColumns+` FROM loan_applications WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrApplicationNotFound
	}
	if err != nil {
		return nil, err
	}
	return application, nil
}

// GetByNumber retrieves an application by its application number
func (r *LoanApplicationRepository) GetByNumber(applicationNumber string) (*domain.LoanApplication, error) {
	ctx := context.Background()

	application, err := scanApplication(r.pool.QueryRow(ctx,
		`SELECT `+applicationColumns+` FROM loan_applications WHERE application_number = $1`, applicationNumber))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrApplicationNotFound
	}
	if err != nil {
		return nil, err
	}
	return application, nil
}

// GetAll retrieves applications newest first, optionally filtered by status
func (r *LoanApplicationRepository) GetAll(status domain.ApplicationStatus) ([]*domain.LoanApplication, error) {
	ctx := context.Background()

	query := `SELECT ` + applicationColumns + ` FROM loan_applications`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applications := make([]*domain.LoanApplication, 0)
	for rows.Next() {
		application, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		applications = append(applications, application)
	}
	return applications, rows.Err()
}

// Update updates an application's mutable review fields
func (r *LoanApplicationRepository) Update(application *domain.LoanApplication) (*domain.LoanApplication, error) {
	ctx := context.Background()

	approvedAmount := pgtype.Numeric{}
	if application.ApprovedAmount != nil {
		num, err := decimalToPgNumeric(*application.ApprovedAmount)
		if err != nil {
			return nil, err
		}
		approvedAmount = num
	}

	approvedBy := pgtype.Int4{}
	if application.ApprovedBy != nil {
		approvedBy.Int32 = *application.ApprovedBy
		approvedBy.Valid = true
	}

	approvedDate := pgtype.Timestamptz{}
	if application.ApprovedDate != nil {
		approvedDate.Time = *application.ApprovedDate
		approvedDate.Valid = true
	}

	rejectionReason := pgtype.Text{}
	if application.RejectionReason != nil {
		rejectionReason.String = *application.RejectionReason
		rejectionReason.Valid = true
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE loan_applications
		SET status = $2, approved_amount = $3, approved_by = $4, approved_date = $5,
			rejection_reason = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING `+applicationColumns,
		application.ID,
		application.Status,
		approvedAmount,
		approvedBy,
		approvedDate,
		rejectionReason,
	)
	updated, err := scanApplication(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrApplicationNotFound
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateStatusTx updates an application's status within a transaction
func (r *LoanApplicationRepository) UpdateStatusTx(tx interface{}, id int32, status domain.ApplicationStatus) error {
	pgxTx, err := asTx(tx)
	if err != nil {
		return err
	}

	tag, err := pgxTx.Exec(context.Background(),
		`UPDATE loan_applications SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrApplicationNotFound
	}
	return nil
}
