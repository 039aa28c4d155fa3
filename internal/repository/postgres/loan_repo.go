package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kredoapp/kredo-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// LoanRepository implements domain.LoanRepository using PostgreSQL
type LoanRepository struct {
	pool *pgxpool.Pool
}

// NewLoanRepository creates a new LoanRepository
func NewLoanRepository(pool *pgxpool.Pool) *LoanRepository {
	return &LoanRepository{pool: pool}
}

const loanColumns = `id, loan_number, application_id, customer_id, loan_product_id, principal_amount,
	interest_rate, interest_type, tenure_months, start_date, maturity_date, total_interest,
	processing_fee, total_payable, monthly_installment, outstanding_principal, outstanding_interest,
	status, created_at, updated_at`

func scanLoan(row pgx.Row) (*domain.Loan, error) {
	var loan domain.Loan
	var principal, interestRate, totalInterest, processingFee, totalPayable pgtype.Numeric
	var installment, outstandingPrincipal, outstandingInterest pgtype.Numeric

	err := row.Scan(
		&loan.ID,
		&loan.LoanNumber,
		&loan.ApplicationID,
		&loan.CustomerID,
		&loan.LoanProductID,
		&principal,
		&interestRate,
		&loan.InterestType,
		&loan.TenureMonths,
		&loan.StartDate,
		&loan.MaturityDate,
		&totalInterest,
		&processingFee,
		&totalPayable,
		&installment,
		&outstandingPrincipal,
		&outstandingInterest,
		&loan.Status,
		&loan.CreatedAt,
		&loan.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	loan.PrincipalAmount = pgNumericToDecimal(principal)
	loan.InterestRate = pgNumericToDecimal(interestRate)
	loan.TotalInterest = pgNumericToDecimal(totalInterest)
	loan.ProcessingFee = pgNumericToDecimal(processingFee)
	loan.TotalPayable = pgNumericToDecimal(totalPayable)
	loan.MonthlyInstallment = pgNumericToDecimal(installment)
	loan.OutstandingPrincipal = pgNumericToDecimal(outstandingPrincipal)
	loan.OutstandingInterest = pgNumericToDecimal(outstandingInterest)
	return &loan, nil
}

func (r *LoanRepository) getBy(ctx context.Context, q dbtx, where string, arg any) (*domain.Loan, error) {
	loan, err := scanLoan(q.QueryRow(ctx, `SELECT `+loanColumns+` FROM loans WHERE `+where, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrLoanNotFound
	}
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// CreateTx creates a new loan within a transaction
func (r *LoanRepository) CreateTx(tx interface{}, loan *domain.Loan) (*domain.Loan, error) {
	pgxTx, err := asTx(tx)
	if err != nil {
		return nil, err
	}
	ctx := context.Background()

	numerics := make([]pgtype.Numeric, 8)
	for i, d := range []decimal.Decimal{
		loan.PrincipalAmount, loan.InterestRate, loan.TotalInterest, loan.ProcessingFee,
		loan.TotalPayable, loan.MonthlyInstallment, loan.OutstandingPrincipal, loan.OutstandingInterest,
	} {
		num, err := decimalToPgNumeric(d)
		if err != nil {
			return nil, err
		}
		numerics[i] = num
	}

	row := pgxTx.QueryRow(ctx, `
		INSERT INTO loans (loan_number, application_id, customer_id, loan_product_id, principal_amount,
			interest_rate, interest_type, tenure_months, start_date, maturity_date, total_interest,
			processing_fee, total_payable, monthly_installment, outstanding_principal,
			outstanding_interest, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING `+loanColumns,
		loan.LoanNumber,
		loan.ApplicationID,
		loan.CustomerID,
		loan.LoanProductID,
		numerics[0],
		numerics[1],
		loan.InterestType,
		loan.TenureMonths,
		loan.StartDate,
		loan.MaturityDate,
		numerics[2],
		numerics[3],
		numerics[4],
		numerics[5],
		numerics[6],
		numerics[7],
		loan.Status,
	)
	return scanLoan(row)
}

// GetByID retrieves a loan by ID
func (r *LoanRepository) GetByID(id int32) (*domain.Loan, error) {
	return r.getBy(context.Background(), r.pool, `id = $1`, id)
}

// GetByNumber retrieves a loan by its loan number
func (r *LoanRepository) GetByNumber(loanNumber string) (*domain.Loan, error) {
	return r.getBy(context.Background(), r.pool, `loan_number = $1`, loanNumber)
}

// GetByApplicationID retrieves the loan created from an application
func (r *LoanRepository) GetByApplicationID(applicationID int32) (*domain.Loan, error) {
	return r.getBy(context.Background(), r.pool, `application_id = $1`, applicationID)
}

// GetAll retrieves loans newest first, optionally filtered by status
func (r *LoanRepository) GetAll(status domain.LoanStatus) ([]*domain.Loan, error) {
	ctx := context.Background()

	query := `SELECT ` + loanColumns + ` FROM loans`
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

	loans := make([]*domain.Loan, 0)
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, loan)
	}
	return loans, rows.Err()
}

// LockTx retrieves a loan with a row lock so concurrent postings serialize
func (r *LoanRepository) LockTx(tx interface{}, id int32) (*domain.Loan, error) {
	pgxTx, err := asTx(tx)
	if err != nil {
		return nil, err
	}

	loan, err := scanLoan(pgxTx.QueryRow(context.Background(),
		`SELECT `+loanColumns+` FROM loans WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrLoanNotFound
	}
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// UpdateOutstandingTx updates a loan's outstanding balances within a transaction
func (r *LoanRepository) UpdateOutstandingTx(tx interface{}, id int32, principal, interest decimal.Decimal) error {
	pgxTx, err := asTx(tx)
	if err != nil {
		return err
	}

	principalNum, err := decimalToPgNumeric(principal)
	if err != nil {
		return err
	}
	interestNum, err := decimalToPgNumeric(interest)
	if err != nil {
		return err
	}

	tag, err := pgxTx.Exec(context.Background(), `
		UPDATE loans
		SET outstanding_principal = $2, outstanding_interest = $3, updated_at = NOW()
		WHERE id = $1`,
		id, principalNum, interestNum)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLoanNotFound
	}
	return nil
}

// UpdateStatusTx updates a loan's status within a transaction
func (r *LoanRepository) UpdateStatusTx(tx interface{}, id int32, status domain.LoanStatus) error {
	pgxTx, err := asTx(tx)
	if err != nil {
		return err
	}

	tag, err := pgxTx.Exec(context.Background(),
		`UPDATE loans SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLoanNotFound
	}
	return nil
}
