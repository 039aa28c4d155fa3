package testutil

import (
	"time"

	"github.com/kredoapp/kredo-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// MockLoanProductRepository is a mock implementation of domain.LoanProductRepository
type MockLoanProductRepository struct {
	Products       map[int32]*domain.LoanProduct
	DisbursedCount map[int32]int64
	nextID         int32
}

// NewMockLoanProductRepository creates a new MockLoanProductRepository
func NewMockLoanProductRepository() *MockLoanProductRepository {
	return &MockLoanProductRepository{
		Products:       make(map[int32]*domain.LoanProduct),
		DisbursedCount: make(map[int32]int64),
	}
}

// Create creates a new loan product
func (m *MockLoanProductRepository) Create(product *domain.LoanProduct) (*domain.LoanProduct, error) {
	m.nextID++
	product.ID = m.nextID
	product.CreatedAt = time.Now()
	product.UpdatedAt = product.CreatedAt
	m.Products[product.ID] = product
	return product, nil
}

// GetByID retrieves a loan product by ID
func (m *MockLoanProductRepository) GetByID(id int32) (*domain.LoanProduct, error) {
	if product, ok := m.Products[id]; ok {
		return product, nil
	}
	return nil, domain.ErrLoanProductNotFound
}

// GetAll retrieves all loan products
func (m *MockLoanProductRepository) GetAll() ([]*domain.LoanProduct, error) {
	products := make([]*domain.LoanProduct, 0, len(m.Products))
	for _, product := range m.Products {
		products = append(products, product)
	}
	return products, nil
}

// Update updates an existing loan product
func (m *MockLoanProductRepository) Update(product *domain.LoanProduct) (*domain.LoanProduct, error) {
	if _, ok := m.Products[product.ID]; !ok {
		return nil, domain.ErrLoanProductNotFound
	}
	product.UpdatedAt = time.Now()
	m.Products[product.ID] = product
	return product, nil
}

// CountDisbursedLoans returns the stubbed disbursed-loan count for a product
func (m *MockLoanProductRepository) CountDisbursedLoans(productID int32) (int64, error) {
	return m.DisbursedCount[productID], nil
}

// MockLoanApplicationRepository is a mock implementation of domain.LoanApplicationRepository
type MockLoanApplicationRepository struct {
	Applications map[int32]*domain.LoanApplication
	nextID       int32
}

// NewMockLoanApplicationRepository creates a new MockLoanApplicationRepository
func NewMockLoanApplicationRepository() *MockLoanApplicationRepository {
	return &MockLoanApplicationRepository{
		Applications: make(map[int32]*domain.LoanApplication),
	}
}

// Create creates a new loan application
func (m *MockLoanApplicationRepository) Create(application *domain.LoanApplication) (*domain.LoanApplication, error) {
	m.nextID++
	application.ID = m.nextID
	application.CreatedAt = time.Now()
	application.UpdatedAt = application.CreatedAt
	m.Applications[application.ID] = application
	return application, nil
}

// GetByID retrieves an application by ID
func (m *MockLoanApplicationRepository) GetByID(id int32) (*domain.LoanApplication, error) {
	if application, ok := m.Applications[id]; ok {
		return application, nil
	}
	return nil, domain.ErrApplicationNotFound
}

// GetByNumber retrieves an application by application number
func (m *MockLoanApplicationRepository) GetByNumber(applicationNumber string) (*domain.LoanApplication, error) {
	for _, application := range m.Applications {
		if application.ApplicationNumber == applicationNumber {
			return application, nil
		}
	}
	return nil, domain.ErrApplicationNotFound
}

// GetAll retrieves applications, optionally filtered by status
func (m *MockLoanApplicationRepository) GetAll(status domain.ApplicationStatus) ([]*domain.LoanApplication, error) {
	applications := make([]*domain.LoanApplication, 0, len(m.Applications))
	for _, application := range m.Applications {
		if status != "" && application.Status != status {
			continue
		}
		applications = append(applications, application)
	}
	return applications, nil
}

// Update updates an existing application
func (m *MockLoanApplicationRepository) Update(application *domain.LoanApplication) (*domain.LoanApplication, error) {
	if _, ok := m.Applications[application.ID]; !ok {
		return nil, domain.ErrApplicationNotFound
	}
	application.UpdatedAt = time.Now()
	m.Applications[application.ID] = application
	return application, nil
}

// UpdateStatusTx updates an application's status within a transaction
func (m *MockLoanApplicationRepository) UpdateStatusTx(tx interface{}, id int32, status domain.ApplicationStatus) error {
	application, ok := m.Applications[id]
	if !ok {
		return domain.ErrApplicationNotFound
	}
	application.Status = status
	return nil
}

// MockLoanRepository is a mock implementation of domain.LoanRepository
type MockLoanRepository struct {
	Loans  map[int32]*domain.Loan
	nextID int32
}

// NewMockLoanRepository creates a new MockLoanRepository
func NewMockLoanRepository() *MockLoanRepository {
	return &MockLoanRepository{
		Loans: make(map[int32]*domain.Loan),
	}
}

// CreateTx creates a loan within a transaction
func (m *MockLoanRepository) CreateTx(tx interface{}, loan *domain.Loan) (*domain.Loan, error) {
	m.nextID++
	loan.ID = m.nextID
	loan.CreatedAt = time.Now()
	loan.UpdatedAt = loan.CreatedAt
	m.Loans[loan.ID] = loan
	return loan, nil
}

// GetByID retrieves a loan by ID
func (m *MockLoanRepository) GetByID(id int32) (*domain.Loan, error) {
	if loan, ok := m.Loans[id]; ok {
		return loan, nil
	}
	return nil, domain.ErrLoanNotFound
}

// GetByNumber retrieves a loan by loan number
func (m *MockLoanRepository) GetByNumber(loanNumber string) (*domain.Loan, error) {
	for _, loan := range m.Loans {
		if loan.LoanNumber == loanNumber {
			return loan, nil
		}
	}
	return nil, domain.ErrLoanNotFound
}

// GetByApplicationID retrieves the loan created from an application
func (m *MockLoanRepository) GetByApplicationID(applicationID int32) (*domain.Loan, error) {
	for _, loan := range m.Loans {
		if loan.ApplicationID == applicationID {
			return loan, nil
		}
	}
	return nil, domain.ErrLoanNotFound
}

// GetAll retrieves loans, optionally filtered by status
func (m *MockLoanRepository) GetAll(status domain.LoanStatus) ([]*domain.Loan, error) {
	loans := make([]*domain.Loan, 0, len(m.Loans))
	for _, loan := range m.Loans {
		if status != "" && loan.Status != status {
			continue
		}
		loans = append(loans, loan)
	}
	return loans, nil
}

// LockTx retrieves a loan with a row lock within a transaction
func (m *MockLoanRepository) LockTx(tx interface{}, id int32) (*domain.Loan, error) {
	return m.GetByID(id)
}

// UpdateOutstandingTx updates a loan's outstanding balances within a transaction
func (m *MockLoanRepository) UpdateOutstandingTx(tx interface{}, id int32, principal, interest decimal.Decimal) error {
	loan, ok := m.Loans[id]
	if !ok {
		return domain.ErrLoanNotFound
	}
	loan.OutstandingPrincipal = principal
	loan.OutstandingInterest = interest
	return nil
}

// UpdateStatusTx updates a loan's status within a transaction
func (m *MockLoanRepository) UpdateStatusTx(tx interface{}, id int32, status domain.LoanStatus) error {
	loan, ok := m.Loans[id]
	if !ok {
		return domain.ErrLoanNotFound
	}
	loan.Status = status
	return nil
}

// MockRepaymentScheduleRepository is a mock implementation of domain.RepaymentScheduleRepository
type MockRepaymentScheduleRepository struct {
	Entries map[int32][]*domain.RepaymentScheduleEntry
	nextID  int32
}

// NewMockRepaymentScheduleRepository creates a new MockRepaymentScheduleRepository
func NewMockRepaymentScheduleRepository() *MockRepaymentScheduleRepository {
	return &MockRepaymentScheduleRepository{
		Entries: make(map[int32][]*domain.RepaymentScheduleEntry),
	}
}

// CreateBatchTx inserts a loan's schedule entries within a transaction
func (m *MockRepaymentScheduleRepository) CreateBatchTx(tx interface{}, entries []*domain.RepaymentScheduleEntry) error {
	for _, entry := range entries {
		m.nextID++
		entry.ID = m.nextID
		m.Entries[entry.LoanID] = append(m.Entries[entry.LoanID], entry)
	}
	return nil
}

// GetByLoanID retrieves a loan's schedule ordered by installment number
func (m *MockRepaymentScheduleRepository) GetByLoanID(loanID int32) ([]*domain.RepaymentScheduleEntry, error) {
	return m.Entries[loanID], nil
}

// UpdateAllocationTx persists an entry's paid amounts and status within a transaction
func (m *MockRepaymentScheduleRepository) UpdateAllocationTx(tx interface{}, entry *domain.RepaymentScheduleEntry) error {
	for _, existing := range m.Entries[entry.LoanID] {
		if existing.ID == entry.ID {
			*existing = *entry
			return nil
		}
	}
	return domain.ErrScheduleEntryNotFound
}

// MockLoanTransactionRepository is a mock implementation of domain.LoanTransactionRepository
type MockLoanTransactionRepository struct {
	Transactions map[int32]*domain.LoanTransaction
	nextID       int32
}

// NewMockLoanTransactionRepository creates a new MockLoanTransactionRepository
func NewMockLoanTransactionRepository() *MockLoanTransactionRepository {
	return &MockLoanTransactionRepository{
		Transactions: make(map[int32]*domain.LoanTransaction),
	}
}

// CreateTx creates a transaction record within a database transaction
func (m *MockLoanTransactionRepository) CreateTx(tx interface{}, transaction *domain.LoanTransaction) (*domain.LoanTransaction, error) {
	for _, existing := range m.Transactions {
		if existing.Reference == transaction.Reference {
			return nil, domain.ErrDuplicateReference
		}
	}
	m.nextID++
	transaction.ID = m.nextID
	transaction.CreatedAt = time.Now()
	m.Transactions[transaction.ID] = transaction
	return transaction, nil
}

// GetByLoanID retrieves a loan's transactions
func (m *MockLoanTransactionRepository) GetByLoanID(loanID int32) ([]*domain.LoanTransaction, error) {
	transactions := make([]*domain.LoanTransaction, 0)
	for _, transaction := range m.Transactions {
		if transaction.LoanID == loanID {
			transactions = append(transactions, transaction)
		}
	}
	return transactions, nil
}

// GetByReference retrieves a transaction by its idempotency reference
func (m *MockLoanTransactionRepository) GetByReference(reference string) (*domain.LoanTransaction, error) {
	for _, transaction := range m.Transactions {
		if transaction.Reference == reference {
			return transaction, nil
		}
	}
	return nil, domain.ErrTransactionNotFound
}
