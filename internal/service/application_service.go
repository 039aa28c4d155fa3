package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kredoapp/kredo-backend/internal/domain"
	"github.com/kredoapp/kredo-backend/internal/websocket"
	"github.com/shopspring/decimal"
)

// ApplicationInput carries a new loan application request
type ApplicationInput struct {
	CustomerID         int32
	LoanProductID      int32
	ServicingAccountID int32
	AppliedAmount      decimal.Decimal
	TenureMonths       int32
	Purpose            string
}

// ApprovalInput carries an application approval request
type ApprovalInput struct {
	ApprovedAmount *decimal.Decimal
	ActorID        int32
}

// RejectionInput carries an application rejection request
type RejectionInput struct {
	Reason  string
	ActorID int32
}

// ApplicationService handles loan application intake and review
type ApplicationService struct {
	applicationRepo domain.LoanApplicationRepository
	productRepo     domain.LoanProductRepository
	eventPublisher  websocket.EventPublisher
}

// NewApplicationService creates a new ApplicationService
func NewApplicationService(applicationRepo domain.LoanApplicationRepository, productRepo domain.LoanProductRepository) *ApplicationService {
	return &ApplicationService{
		applicationRepo: applicationRepo,
		productRepo:     productRepo,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *ApplicationService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

func (s *ApplicationService) publishEvent(event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(event)
	}
}

// Apply registers a new loan application in pending status. The requested
// amount and tenure are checked against the product's bounds at intake so
// out-of-range applications are rejected before they enter review.
func (s *ApplicationService) Apply(input ApplicationInput) (*domain.LoanApplication, error) {
	product, err := s.productRepo.GetByID(input.LoanProductID)
	if err != nil {
		return nil, err
	}
	if err := product.CheckBounds(input.AppliedAmount, input.TenureMonths); err != nil {
		return nil, err
	}

	application := &domain.LoanApplication{
		ApplicationNumber:  newApplicationNumber(),
		CustomerID:         input.CustomerID,
		LoanProductID:      input.LoanProductID,
		ServicingAccountID: input.ServicingAccountID,
		AppliedAmount:      input.AppliedAmount,
		TenureMonths:       input.TenureMonths,
		Purpose:            input.Purpose,
		Status:             domain.ApplicationStatusPending,
	}
	if err := application.Validate(); err != nil {
		return nil, err
	}

	return s.applicationRepo.Create(application)
}

// GetByID retrieves an application by ID
func (s *ApplicationService) GetByID(id int32) (*domain.LoanApplication, error) {
	return s.applicationRepo.GetByID(id)
}

// GetByNumber retrieves an application by its application number
func (s *ApplicationService) GetByNumber(applicationNumber string) (*domain.LoanApplication, error) {
	return s.applicationRepo.GetByNumber(applicationNumber)
}

// GetAll retrieves applications, optionally filtered by status
func (s *ApplicationService) GetAll(status domain.ApplicationStatus) ([]*domain.LoanApplication, error) {
	return s.applicationRepo.GetAll(status)
}

// Approve moves a pending application to approved. The approved amount
// defaults to the applied amount and must stay within the product bounds.
func (s *ApplicationService) Approve(id int32, input ApprovalInput) (*domain.LoanApplication, error) {
	if input.ActorID <= 0 {
		return nil, domain.ErrActorRequired
	}

	application, err := s.applicationRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !application.IsPending() {
		return nil, domain.InvalidTransitionError{
			Entity: "loan application",
			From:   string(application.Status),
			To:     string(domain.ApplicationStatusApproved),
		}
	}

	approvedAmount := application.AppliedAmount
	if input.ApprovedAmount != nil {
		approvedAmount = *input.ApprovedAmount
	}
	if approvedAmount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrApprovedAmountInvalid
	}

	product, err := s.productRepo.GetByID(application.LoanProductID)
	if err != nil {
		return nil, err
	}
	if err := product.CheckBounds(approvedAmount, application.TenureMonths); err != nil {
		return nil, err
	}

	now := time.Now()
	application.Status = domain.ApplicationStatusApproved
	application.ApprovedAmount = &approvedAmount
	application.ApprovedBy = &input.ActorID
	application.ApprovedDate = &now
	application.RejectionReason = nil

	updated, err := s.applicationRepo.Update(application)
	if err != nil {
		return nil, err
	}

	s.publishEvent(websocket.ApplicationApproved(updated.ID, updated.ApplicationNumber, approvedAmount))
	return updated, nil
}

// Reject moves a pending application to rejected with a mandatory reason
func (s *ApplicationService) Reject(id int32, input RejectionInput) (*domain.LoanApplication, error) {
	if input.ActorID <= 0 {
		return nil, domain.ErrActorRequired
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, domain.ErrRejectionReasonRequired
	}

	application, err := s.applicationRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !application.IsPending() {
		return nil, domain.InvalidTransitionError{
			Entity: "loan application",
			From:   string(application.Status),
			To:     string(domain.ApplicationStatusRejected),
		}
	}

	application.Status = domain.ApplicationStatusRejected
	application.RejectionReason = &reason
	application.ApprovedAmount = nil
	application.ApprovedBy = nil
	application.ApprovedDate = nil

	updated, err := s.applicationRepo.Update(application)
	if err != nil {
		return nil, err
	}

	s.publishEvent(websocket.ApplicationRejected(updated.ID, updated.ApplicationNumber, reason))
	return updated, nil
}

// newApplicationNumber builds a human-readable unique application number,
// e.g. APP-20260831-1A2B3C4D
func newApplicationNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("APP-%s-%s", time.Now().Format("20060102"), suffix)
}
