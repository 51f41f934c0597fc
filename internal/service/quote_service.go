package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// createQuoteAttempts bounds the duplicate-quote-number retry loop.
const createQuoteAttempts = 3

// --- DTOs ---

type CreateQuoteRequest struct {
	Items    []QuoteItemRequest    `json:"items" binding:"required,min=1,dive"`
	Services []QuoteServiceRequest `json:"services" binding:"omitempty,dive"`
	Notes    string                `json:"notes" binding:"omitempty,max=500"`
}

// UpdateQuoteRequest patches a draft quote. Nil Items and Services leave
// the line set untouched (notes-only edit); providing either replaces
// the full line set with the given collections.
type UpdateQuoteRequest struct {
	Items    []QuoteItemRequest    `json:"items" binding:"omitempty,dive"`
	Services []QuoteServiceRequest `json:"services" binding:"omitempty,dive"`
	Notes    *string               `json:"notes" binding:"omitempty,max=500"`
}

type QuoteFilter struct {
	Status    string
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

type QuoteResponse struct {
	ID          string                `json:"id"`
	QuoteNumber string                `json:"quote_number"`
	OwnerID     string                `json:"owner_id"`
	Status      string                `json:"status"`
	Subtotal    string                `json:"subtotal"`
	TaxAmount   string                `json:"tax_amount"`
	Total       string                `json:"total"`
	Notes       string                `json:"notes"`
	Items       []LineItemResponse    `json:"items"`
	Services    []ServiceLineResponse `json:"services"`
	SubmittedAt *string               `json:"submitted_at"`
	ReviewedAt  *string               `json:"reviewed_at"`
	ReviewedBy  *string               `json:"reviewed_by"`
	CreatedAt   string                `json:"created_at"`
	UpdatedAt   string                `json:"updated_at"`
}

// QuoteEvent is broadcast to connected staff dashboards on lifecycle
// transitions.
type QuoteEvent struct {
	Type        string `json:"type"` // quote.submitted, quote.confirmed, quote.rejected
	QuoteID     string `json:"quote_id"`
	QuoteNumber string `json:"quote_number"`
	OwnerID     string `json:"owner_id"`
	Status      string `json:"status"`
	Total       string `json:"total"`
}

// QuoteNotifier pushes lifecycle events to whoever is listening.
// Implemented by the websocket hub; a no-op in tests.
type QuoteNotifier interface {
	NotifyQuoteEvent(event QuoteEvent)
}

// --- Interface ---

// QuoteService owns the quote lifecycle: calculation, atomic
// persistence, the draft -> submitted edge, owner cancellation and the
// staff review flow. Every guard is checked before any mutation is
// attempted.
type QuoteService interface {
	Calculate(ctx context.Context, req CalculateQuoteRequest) (BreakdownResponse, error)
	CreateQuote(ctx context.Context, ownerID string, req CreateQuoteRequest) (QuoteResponse, error)
	GetQuote(ctx context.Context, id, callerID, callerRole string) (QuoteResponse, error)
	ListQuotes(ctx context.Context, ownerID string, filter QuoteFilter) ([]QuoteResponse, int64, error)
	UpdateQuote(ctx context.Context, id, callerID string, req UpdateQuoteRequest) (QuoteResponse, error)
	SubmitQuote(ctx context.Context, id, callerID string) (QuoteResponse, error)
	CancelQuote(ctx context.Context, id, callerID string) (QuoteResponse, error)
	StartReview(ctx context.Context, id, reviewerID string) (QuoteResponse, error)
	ConfirmQuote(ctx context.Context, id, reviewerID string) (QuoteResponse, error)
	RejectQuote(ctx context.Context, id, reviewerID string) (QuoteResponse, error)
}

type quoteService struct {
	quoteRepo repository.QuoteRepository
	auditRepo repository.AuditRepository
	pricing   PricingService
	numberGen QuoteNumberGenerator
	txManager repository.TransactionManager
	notifier  QuoteNotifier
	now       func() time.Time
}

func NewQuoteService(
	quoteRepo repository.QuoteRepository,
	auditRepo repository.AuditRepository,
	pricing PricingService,
	numberGen QuoteNumberGenerator,
	txManager repository.TransactionManager,
	notifier QuoteNotifier,
) QuoteService {
	return &quoteService{
		quoteRepo: quoteRepo,
		auditRepo: auditRepo,
		pricing:   pricing,
		numberGen: numberGen,
		txManager: txManager,
		notifier:  notifier,
		now:       time.Now,
	}
}

// --- Implementation ---

func (s *quoteService) Calculate(ctx context.Context, req CalculateQuoteRequest) (BreakdownResponse, error) {
	breakdown, err := s.pricing.Calculate(ctx, req)
	if err != nil {
		return BreakdownResponse{}, err
	}
	return ToBreakdownResponse(breakdown), nil
}

func (s *quoteService) CreateQuote(ctx context.Context, ownerID string, req CreateQuoteRequest) (QuoteResponse, error) {
	owner, err := uuid.Parse(ownerID)
	if err != nil {
		return QuoteResponse{}, apperror.Validation("invalid owner id")
	}
	if len(req.Notes) > 500 {
		return QuoteResponse{}, apperror.Validation("notes must be at most 500 characters")
	}

	breakdown, err := s.pricing.Calculate(ctx, CalculateQuoteRequest{Items: req.Items, Services: req.Services})
	if err != nil {
		return QuoteResponse{}, err
	}

	var quote *model.Quote
	for attempt := 1; ; attempt++ {
		quote = &model.Quote{
			OwnerID:   owner,
			Status:    model.QuoteStatusDraft,
			Subtotal:  breakdown.Subtotal,
			TaxAmount: breakdown.TaxAmount,
			Total:     breakdown.Total,
			Notes:     req.Notes,
			Items:     breakdown.Items,
			Services:  breakdown.Services,
		}

		err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
			number, genErr := s.numberGen.Next(txCtx)
			if genErr != nil {
				return genErr
			}
			quote.QuoteNumber = number
			return s.quoteRepo.Create(txCtx, quote)
		})
		if err == nil {
			break
		}
		// Two creations racing for the same sequence hit the unique
		// index on quote_number; regenerate and retry.
		if errors.Is(err, gorm.ErrDuplicatedKey) && attempt < createQuoteAttempts {
			continue
		}
		return QuoteResponse{}, s.asAppError(err)
	}

	s.writeAuditLog(ctx, ownerID, model.ActionCreateQuote, quote)

	return s.reload(ctx, quote.ID)
}

func (s *quoteService) GetQuote(ctx context.Context, id, callerID, callerRole string) (QuoteResponse, error) {
	quoteID, err := uuid.Parse(id)
	if err != nil {
		return QuoteResponse{}, apperror.QuoteNotFound("quote %s not found", id)
	}

	quote, err := s.quoteRepo.FindByIDWithLines(ctx, quoteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return QuoteResponse{}, apperror.QuoteNotFound("quote %s not found", id)
		}
		return QuoteResponse{}, apperror.Database(err)
	}

	if quote.OwnerID.String() != callerID && callerRole != model.RoleStaff {
		return QuoteResponse{}, apperror.Forbidden("quote %s belongs to another customer", id)
	}

	return toQuoteResponse(quote), nil
}

func (s *quoteService) ListQuotes(ctx context.Context, ownerID string, filter QuoteFilter) ([]QuoteResponse, int64, error) {
	owner, err := uuid.Parse(ownerID)
	if err != nil {
		return nil, 0, apperror.Validation("invalid owner id")
	}

	status := strings.ToUpper(filter.Status)
	if status != "" && !isKnownStatus(status) {
		return nil, 0, apperror.Validation("unknown status filter %q", filter.Status)
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	quotes, total, err := s.quoteRepo.ListByOwner(ctx, repository.QuoteListFilter{
		OwnerID:   owner,
		Status:    status,
		Page:      filter.Page,
		Limit:     filter.Limit,
		SortBy:    filter.SortBy,
		SortOrder: filter.SortOrder,
	})
	if err != nil {
		return nil, 0, apperror.Database(err)
	}

	result := make([]QuoteResponse, 0, len(quotes))
	for i := range quotes {
		result = append(result, toQuoteResponse(&quotes[i]))
	}
	return result, total, nil
}

func (s *quoteService) UpdateQuote(ctx context.Context, id, callerID string, req UpdateQuoteRequest) (QuoteResponse, error) {
	quoteID, err := uuid.Parse(id)
	if err != nil {
		return QuoteResponse{}, apperror.QuoteNotFound("quote %s not found", id)
	}
	if req.Notes != nil && len(*req.Notes) > 500 {
		return QuoteResponse{}, apperror.Validation("notes must be at most 500 characters")
	}

	replaceLines := req.Items != nil || req.Services != nil
	if !replaceLines && req.Notes == nil {
		return QuoteResponse{}, apperror.Validation("patch must change items, services or notes")
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		quote, findErr := s.findOwned(txCtx, quoteID, callerID)
		if findErr != nil {
			return findErr
		}
		if quote.Status != model.QuoteStatusDraft {
			return apperror.QuoteNotDraft("quote %s is %s and can no longer be edited", quote.QuoteNumber, strings.ToLower(quote.Status))
		}

		if replaceLines {
			breakdown, calcErr := s.pricing.Calculate(txCtx, CalculateQuoteRequest{Items: req.Items, Services: req.Services})
			if calcErr != nil {
				return calcErr
			}
			if replErr := s.quoteRepo.ReplaceLines(txCtx, quoteID, breakdown.Items, breakdown.Services,
				breakdown.Subtotal, breakdown.TaxAmount, breakdown.Total); replErr != nil {
				return apperror.Database(replErr)
			}
		}

		if req.Notes != nil {
			if notesErr := s.quoteRepo.UpdateNotes(txCtx, quoteID, *req.Notes); notesErr != nil {
				return apperror.Database(notesErr)
			}
		}
		return nil
	})
	if err != nil {
		return QuoteResponse{}, s.asAppError(err)
	}

	s.writeAuditLogID(ctx, callerID, model.ActionUpdateQuote, quoteID.String())

	return s.reload(ctx, quoteID)
}

func (s *quoteService) SubmitQuote(ctx context.Context, id, callerID string) (QuoteResponse, error) {
	quoteID, err := uuid.Parse(id)
	if err != nil {
		return QuoteResponse{}, apperror.QuoteNotFound("quote %s not found", id)
	}

	var quote *model.Quote
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		quote, findErr = s.findOwned(txCtx, quoteID, callerID)
		if findErr != nil {
			return findErr
		}
		if quote.Status != model.QuoteStatusDraft {
			return apperror.QuoteAlreadySubmitted("quote %s was already submitted", quote.QuoteNumber)
		}

		now := s.now()
		quote.Status = model.QuoteStatusSubmitted
		quote.SubmittedAt = &now
		return s.quoteRepo.Update(txCtx, quote)
	})
	if err != nil {
		return QuoteResponse{}, s.asAppError(err)
	}

	s.writeAuditLog(ctx, callerID, model.ActionSubmitQuote, quote)
	s.notify("quote.submitted", quote)

	return s.reload(ctx, quoteID)
}

func (s *quoteService) CancelQuote(ctx context.Context, id, callerID string) (QuoteResponse, error) {
	quoteID, err := uuid.Parse(id)
	if err != nil {
		return QuoteResponse{}, apperror.QuoteNotFound("quote %s not found", id)
	}

	var quote *model.Quote
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		quote, findErr = s.findOwned(txCtx, quoteID, callerID)
		if findErr != nil {
			return findErr
		}
		if quote.Status != model.QuoteStatusDraft && quote.Status != model.QuoteStatusSubmitted {
			return apperror.QuoteNotDraft("quote %s is %s and can no longer be cancelled", quote.QuoteNumber, strings.ToLower(quote.Status))
		}

		quote.Status = model.QuoteStatusCancelled
		return s.quoteRepo.Update(txCtx, quote)
	})
	if err != nil {
		return QuoteResponse{}, s.asAppError(err)
	}

	s.writeAuditLog(ctx, callerID, model.ActionCancelQuote, quote)

	return s.reload(ctx, quoteID)
}

func (s *quoteService) StartReview(ctx context.Context, id, reviewerID string) (QuoteResponse, error) {
	return s.transitionReview(ctx, id, reviewerID, model.QuoteStatusSubmitted, model.QuoteStatusInReview, model.ActionReviewQuote, "")
}

func (s *quoteService) ConfirmQuote(ctx context.Context, id, reviewerID string) (QuoteResponse, error) {
	return s.transitionReview(ctx, id, reviewerID, model.QuoteStatusInReview, model.QuoteStatusConfirmed, model.ActionConfirmQuote, "quote.confirmed")
}

func (s *quoteService) RejectQuote(ctx context.Context, id, reviewerID string) (QuoteResponse, error) {
	return s.transitionReview(ctx, id, reviewerID, model.QuoteStatusInReview, model.QuoteStatusRejected, model.ActionRejectQuote, "quote.rejected")
}

// transitionReview performs one staff edge of the review flow, guarding
// the source state inside the transaction.
func (s *quoteService) transitionReview(ctx context.Context, id, reviewerID, fromStatus, toStatus, action, eventType string) (QuoteResponse, error) {
	quoteID, err := uuid.Parse(id)
	if err != nil {
		return QuoteResponse{}, apperror.QuoteNotFound("quote %s not found", id)
	}
	reviewer, err := uuid.Parse(reviewerID)
	if err != nil {
		return QuoteResponse{}, apperror.Validation("invalid reviewer id")
	}

	var quote *model.Quote
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		quote, findErr = s.quoteRepo.FindByID(txCtx, quoteID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperror.QuoteNotFound("quote %s not found", id)
			}
			return apperror.Database(findErr)
		}
		if quote.Status != fromStatus {
			return apperror.QuoteNotDraft("quote %s is %s, expected %s", quote.QuoteNumber, strings.ToLower(quote.Status), strings.ToLower(fromStatus))
		}

		now := s.now()
		quote.Status = toStatus
		quote.ReviewedAt = &now
		quote.ReviewedBy = &reviewer
		return s.quoteRepo.Update(txCtx, quote)
	})
	if err != nil {
		return QuoteResponse{}, s.asAppError(err)
	}

	s.writeAuditLog(ctx, reviewerID, action, quote)
	if eventType != "" {
		s.notify(eventType, quote)
	}

	return s.reload(ctx, quoteID)
}

// --- Helpers ---

// findOwned loads a quote and enforces ownership. The Forbidden check
// runs before any status guard: a non-owner learns nothing about the
// quote's state.
func (s *quoteService) findOwned(ctx context.Context, quoteID uuid.UUID, callerID string) (*model.Quote, error) {
	quote, err := s.quoteRepo.FindByID(ctx, quoteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.QuoteNotFound("quote %s not found", quoteID)
		}
		return nil, apperror.Database(err)
	}
	if quote.OwnerID.String() != callerID {
		return nil, apperror.Forbidden("quote %s belongs to another customer", quoteID)
	}
	return quote, nil
}

func (s *quoteService) reload(ctx context.Context, quoteID uuid.UUID) (QuoteResponse, error) {
	quote, err := s.quoteRepo.FindByIDWithLines(ctx, quoteID)
	if err != nil {
		return QuoteResponse{}, apperror.Database(err)
	}
	return toQuoteResponse(quote), nil
}

func (s *quoteService) asAppError(err error) error {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperror.Database(err)
}

func (s *quoteService) notify(eventType string, quote *model.Quote) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyQuoteEvent(QuoteEvent{
		Type:        eventType,
		QuoteID:     quote.ID.String(),
		QuoteNumber: quote.QuoteNumber,
		OwnerID:     quote.OwnerID.String(),
		Status:      quote.Status,
		Total:       quote.Total.StringFixed(2),
	})
}

func (s *quoteService) writeAuditLog(ctx context.Context, userID, action string, quote *model.Quote) {
	entry := model.AuditLog{
		Action:     action,
		EntityID:   quote.ID.String(),
		EntityName: quote.QuoteNumber,
	}
	details, _ := json.Marshal(map[string]string{
		"status": quote.Status,
		"total":  quote.Total.StringFixed(2),
	})
	entry.Details = string(details)
	if parsed, err := uuid.Parse(userID); err == nil {
		entry.UserID = &parsed
	}
	// Best-effort audit log; don't fail the operation if logging fails
	_ = s.auditRepo.Log(ctx, &entry)
}

func (s *quoteService) writeAuditLogID(ctx context.Context, userID, action, entityID string) {
	entry := model.AuditLog{Action: action, EntityID: entityID}
	if parsed, err := uuid.Parse(userID); err == nil {
		entry.UserID = &parsed
	}
	_ = s.auditRepo.Log(ctx, &entry)
}

func isKnownStatus(status string) bool {
	switch status {
	case model.QuoteStatusDraft, model.QuoteStatusSubmitted, model.QuoteStatusInReview,
		model.QuoteStatusConfirmed, model.QuoteStatusRejected, model.QuoteStatusCancelled:
		return true
	}
	return false
}

// --- Mapping ---

func toQuoteResponse(q *model.Quote) QuoteResponse {
	resp := QuoteResponse{
		ID:          q.ID.String(),
		QuoteNumber: q.QuoteNumber,
		OwnerID:     q.OwnerID.String(),
		Status:      q.Status,
		Subtotal:    q.Subtotal.StringFixed(2),
		TaxAmount:   q.TaxAmount.StringFixed(2),
		Total:       q.Total.StringFixed(2),
		Notes:       q.Notes,
		Items:       make([]LineItemResponse, 0, len(q.Items)),
		Services:    make([]ServiceLineResponse, 0, len(q.Services)),
		CreatedAt:   q.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   q.UpdatedAt.Format(time.RFC3339),
	}
	for _, item := range q.Items {
		resp.Items = append(resp.Items, toLineItemResponse(item))
	}
	for _, line := range q.Services {
		resp.Services = append(resp.Services, toServiceLineResponse(line))
	}
	if q.SubmittedAt != nil {
		v := q.SubmittedAt.Format(time.RFC3339)
		resp.SubmittedAt = &v
	}
	if q.ReviewedAt != nil {
		v := q.ReviewedAt.Format(time.RFC3339)
		resp.ReviewedAt = &v
	}
	if q.ReviewedBy != nil {
		v := q.ReviewedBy.String()
		resp.ReviewedBy = &v
	}
	return resp
}
