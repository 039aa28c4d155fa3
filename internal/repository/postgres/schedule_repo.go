package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kredoapp/kredo-backend/internal/domain"
)

// RepaymentScheduleRepository implements domain.RepaymentScheduleRepository using PostgreSQL
type RepaymentScheduleRepository struct {
	pool *pgxpool.Pool
}

// NewRepaymentScheduleRepository creates a new RepaymentScheduleRepository
func NewRepaymentScheduleRepository(pool *pgxpool.Pool) *RepaymentScheduleRepository {
	return &RepaymentScheduleRepository{pool: pool}
}

const scheduleColumns = `id, loan_id, installment_number, due_date, principal_due, interest_due,
	total_due, principal_paid, interest_paid, penalty_paid, status, paid_date, created_at, updated_at`

func scanScheduleEntry(row pgx.Row) (*domain.RepaymentScheduleEntry, error) {
	var entry domain.RepaymentScheduleEntry
	var principalDue, interestDue, totalDue, principalPaid, interestPaid, penaltyPaid pgtype.Numeric
	var paidDate pgtype.Timestamptz

	err := row.Scan(
		&entry.ID,
		&entry.LoanID,
		&entry.InstallmentNumber,
		&entry.DueDate,
		&principalDue,
		&interestDue,
		&totalDue,
		&principalPaid,
		&interestPaid,
		&penaltyPaid,
		&entry.Status,
		&paidDate,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.PrincipalDue = pgNumericToDecimal(principalDue)
	entry.InterestDue = pgNumericToDecimal(interestDue)
	entry.TotalDue = pgNumericToDecimal(totalDue)
	entry.PrincipalPaid = pgNumericToDecimal(principalPaid)
	entry.InterestPaid = pgNumericToDecimal(interestPaid)
	entry.PenaltyPaid = pgNumericToDecimal(penaltyPaid)
	if paidDate.Valid {
		entry.PaidDate = &paidDate.Time
	}
	return &entry, nil
}

// CreateBatchTx inserts a loan's full schedule in one batch within a transaction
func (r *RepaymentScheduleRepository) CreateBatchTx(tx interface{}, entries []*domain.RepaymentScheduleEntry) error {
	pgxTx, err := asTx(tx)
	if err != nil {
		return err
	}
	ctx := context.Background()

	batch := &pgx.Batch{}
	for _, entry := range entries {
		principalDue, err := decimalToPgNumeric(entry.PrincipalDue)
		if err != nil {
			return err
		}
		interestDue, err := decimalToPgNumeric(entry.InterestDue)
		if err != nil {
			return err
		}
		totalDue, err := decimalToPgNumeric(entry.TotalDue)
		if err != nil {
			return err
		}

		batch.Queue(`
			INSERT INTO repayment_schedule_entries (loan_id, installment_number, due_date,
				principal_due, interest_due, total_due, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			entry.LoanID,
			entry.InstallmentNumber,
			entry.DueDate,
			principalDue,
			interestDue,
			totalDue,
			entry.Status,
		)
	}

	results := pgxTx.SendBatch(ctx, batch)
	defer results.Close()
	for range entries {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return results.Close()
}

// GetByLoanID retrieves a loan's schedule ordered by installment number
func (r *RepaymentScheduleRepository) GetByLoanID(loanID int32) ([]*domain.RepaymentScheduleEntry, error) {
	ctx := context.Background()

	rows, err := r.pool.Query(ctx,
		`SELECT `+scheduleColumns+` FROM repayment_schedule_entries
		WHERE loan_id = $1 ORDER BY installment_number`, loanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*domain.RepaymentScheduleEntry, 0)
	for rows.Next() {
		entry, err := scanScheduleEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// UpdateAllocationTx persists an entry's paid amounts, status, and paid date
// within a transaction
func (r *RepaymentScheduleRepository) UpdateAllocationTx(tx interface{}, entry *domain.RepaymentScheduleEntry) error {
	pgxTx, err := asTx(tx)
	if err != nil {
		return err
	}

	principalPaid, err := decimalToPgNumeric(entry.PrincipalPaid)
	if err != nil {
		return err
	}
	interestPaid, err := decimalToPgNumeric(entry.InterestPaid)
	if err != nil {
		return err
	}
	penaltyPaid, err := decimalToPgNumeric(entry.PenaltyPaid)
	if err != nil {
		return err
	}

	paidDate := pgtype.Timestamptz{}
	if entry.PaidDate != nil {
		paidDate.Time = *entry.PaidDate
		paidDate.Valid = true
	}

	tag, err := pgxTx.Exec(context.Background(), `
		UPDATE repayment_schedule_entries
		SET principal_paid = $2, interest_paid = $3, penalty_paid = $4, status = $5,
			paid_date = $6, updated_at = NOW()
		WHERE id = $1`,
		entry.ID, principalPaid, interestPaid, penaltyPaid, entry.Status, paidDate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrScheduleEntryNotFound
	}
	return nil
}
