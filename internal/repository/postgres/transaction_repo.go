package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kredoapp/kredo-backend/internal/domain"
)

// LoanTransactionRepository implements domain.LoanTransactionRepository using PostgreSQL
type LoanTransactionRepository struct {
	pool *pgxpool.Pool
}

// NewLoanTransactionRepository creates a new LoanTransactionRepository
func NewLoanTransactionRepository(pool *pgxpool.Pool) *LoanTransactionRepository {
	return &LoanTransactionRepository{pool: pool}
}

const transactionColumns = `id, loan_id, type, amount, principal_component, interest_component,
	penalty_component, transaction_date, reference, description, actor_id, created_at`

func scanTransaction(row pgx.Row) (*domain.LoanTransaction, error) {
	var transaction domain.LoanTransaction
	var amount, principalComponent, interestComponent, penaltyComponent pgtype.Numeric

	err := row.Scan(
		&transaction.ID,
		&transaction.LoanID,
		&transaction.Type,
		&amount,
		&principalComponent,
		&interestComponent,
		&penaltyComponent,
		&transaction.TransactionDate,
		&transaction.Reference,
		&transaction.Description,
		&transaction.ActorID,
		&transaction.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	transaction.Amount = pgNumericToDecimal(amount)
	transaction.PrincipalComponent = pgNumericToDecimal(principalComponent)
	transaction.InterestComponent = pgNumericToDecimal(interestComponent)
	transaction.PenaltyComponent = pgNumericToDecimal(penaltyComponent)
	return &transaction, nil
}

// CreateTx records a transaction within a database transaction. The
// reference column carries a unique constraint; a second insert with the
// same reference fails with ErrDuplicateReference.
func (r *LoanTransactionRepository) CreateTx(tx interface{}, transaction *domain.LoanTransaction) (*domain.LoanTransaction, error) {
	pgxTx, err := asTx(tx)
	if err != nil {
		return nil, err
	}
	ctx := context.Background()

	amount, err := decimalToPgNumeric(transaction.Amount)
	if err != nil {
		return nil, err
	}
	principalComponent, err := decimalToPgNumeric(transaction.PrincipalComponent)
	if err != nil {
		return nil, err
	}
	interestComponent, err := decimalToPgNumeric(transaction.InterestComponent)
	if err != nil {
		return nil, err
	}
	penaltyComponent, err := decimalToPgNumeric(transaction.PenaltyComponent)
	if err != nil {
		return nil, err
	}

	row := pgxTx.QueryRow(ctx, `
		INSERT INTO loan_transactions (loan_id, type, amount, principal_component,
			interest_component, penalty_component, transaction_date, reference, description, actor_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+transactionColumns,
		transaction.LoanID,
		transaction.Type,
		amount,
		principalComponent,
		interestComponent,
		penaltyComponent,
		transaction.TransactionDate,
		transaction.Reference,
		transaction.Description,
		transaction.ActorID,
	)
	created, err := scanTransaction(row)
	if isUniqueViolation(err) {
		return nil, domain.ErrDuplicateReference
	}
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetByLoanID retrieves a loan's transactions newest first
func (r *LoanTransactionRepository) GetByLoanID(loanID int32) ([]*domain.LoanTransaction, error) {
	ctx := context.Background()

	rows, err := r.pool.Query(ctx,
		`SELECT `+transactionColumns+` FROM loan_transactions
		WHERE loan_id = $1 ORDER BY transaction_date DESC, id DESC`, loanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := make([]*domain.LoanTransaction, 0)
	for rows.Next() {
		transaction, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, transaction)
	}
	return transactions, rows.Err()
}

// GetByReference retrieves a transaction by its idempotency reference
func (r *LoanTransactionRepository) GetByReference(reference string) (*domain.LoanTransaction, error) {
	ctx := context.Background()

	transaction, err := scanTransaction(r.pool.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM loan_transactions WHERE reference = $1`, reference))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return transaction, nil
}
