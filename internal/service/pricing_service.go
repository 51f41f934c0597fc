package service

import (
	"context"
	"errors"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TaxRate is the flat tax applied to every quote subtotal.
var TaxRate = decimal.RequireFromString("0.20")

const dateLayout = "2006-01-02"

// --- DTOs ---

type QuoteItemRequest struct {
	EquipmentID string `json:"equipment_id" binding:"required"`
	StartDate   string `json:"start_date" binding:"required"` // YYYY-MM-DD
	EndDate     string `json:"end_date" binding:"required"`   // YYYY-MM-DD
}

type QuoteServiceRequest struct {
	ServiceID string `json:"service_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

type CalculateQuoteRequest struct {
	Items    []QuoteItemRequest    `json:"items" binding:"required,min=1,dive"`
	Services []QuoteServiceRequest `json:"services" binding:"omitempty,dive"`
}

// QuoteBreakdown is a fully priced quote that has not been persisted.
// Rates and prices are captured values: persisting the breakdown later
// does not re-read the catalog.
type QuoteBreakdown struct {
	Items     []model.QuoteLineItem
	Services  []model.QuoteServiceLine
	Subtotal  decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

type LineItemResponse struct {
	EquipmentID   string `json:"equipment_id"`
	EquipmentName string `json:"equipment_name"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	Duration      int    `json:"duration"`
	DailyRate     string `json:"daily_rate"`
	LineTotal     string `json:"line_total"`
}

type ServiceLineResponse struct {
	ServiceID   string `json:"service_id"`
	ServiceName string `json:"service_name"`
	UnitPrice   string `json:"unit_price"`
	Quantity    int    `json:"quantity"`
	LineTotal   string `json:"line_total"`
}

type BreakdownResponse struct {
	Items     []LineItemResponse    `json:"items"`
	Services  []ServiceLineResponse `json:"services"`
	Subtotal  string                `json:"subtotal"`
	TaxAmount string                `json:"tax_amount"`
	Total     string                `json:"total"`
}

// --- Interface ---

// PricingService resolves tiered rates and prices quote requests. It is
// read-only with respect to storage: identical inputs against unchanged
// catalog data always produce the same breakdown.
type PricingService interface {
	ResolveRate(ctx context.Context, equipmentID uuid.UUID, duration int) (*model.RateTier, error)
	Calculate(ctx context.Context, req CalculateQuoteRequest) (*QuoteBreakdown, error)
}

type pricingService struct {
	equipmentRepo repository.EquipmentRepository
	offeringRepo  repository.ServiceOfferingRepository
}

func NewPricingService(equipmentRepo repository.EquipmentRepository, offeringRepo repository.ServiceOfferingRepository) PricingService {
	return &pricingService{
		equipmentRepo: equipmentRepo,
		offeringRepo:  offeringRepo,
	}
}

// --- Implementation ---

// ResolveRate finds the applicable tier for a rental duration. When
// overlapping tiers cover the same duration, the lowest daily rate wins.
func (s *pricingService) ResolveRate(ctx context.Context, equipmentID uuid.UUID, duration int) (*model.RateTier, error) {
	if duration < 1 {
		return nil, apperror.Validation("duration must be at least 1 day")
	}

	equipment, err := s.findEquipment(ctx, equipmentID)
	if err != nil {
		return nil, err
	}

	tiers, err := s.equipmentRepo.FindActiveTiers(ctx, equipmentID)
	if err != nil {
		return nil, apperror.Database(err)
	}

	var best *model.RateTier
	for i := range tiers {
		t := &tiers[i]
		if duration < t.DurationMin || duration > t.DurationMax {
			continue
		}
		if best == nil || t.DailyRate.LessThan(best.DailyRate) {
			best = t
		}
	}

	if best == nil {
		return nil, apperror.RateNotFound("no rate tier covers a %d-day rental of %s", duration, equipment.Name)
	}
	return best, nil
}

// Calculate prices every requested line and returns the breakdown, or
// the first error encountered. It never returns a partial result.
func (s *pricingService) Calculate(ctx context.Context, req CalculateQuoteRequest) (*QuoteBreakdown, error) {
	if len(req.Items) == 0 {
		return nil, apperror.Validation("at least one equipment item is required")
	}

	breakdown := &QuoteBreakdown{
		Items:    make([]model.QuoteLineItem, 0, len(req.Items)),
		Services: make([]model.QuoteServiceLine, 0, len(req.Services)),
		Subtotal: decimal.Zero,
	}

	for i, item := range req.Items {
		line, err := s.priceItem(ctx, item)
		if err != nil {
			return nil, err
		}
		line.Position = i
		breakdown.Items = append(breakdown.Items, *line)
		breakdown.Subtotal = breakdown.Subtotal.Add(line.LineTotal)
	}

	for i, svc := range req.Services {
		line, err := s.priceService(ctx, svc)
		if err != nil {
			return nil, err
		}
		line.Position = i
		breakdown.Services = append(breakdown.Services, *line)
		breakdown.Subtotal = breakdown.Subtotal.Add(line.LineTotal)
	}

	// Rounding happens exactly once, at the tax step. The running
	// subtotal is an exact sum of 2dp line totals, so
	// total = subtotal + taxAmount holds identically across
	// recalculation.
	breakdown.TaxAmount = breakdown.Subtotal.Mul(TaxRate).Round(2)
	breakdown.Total = breakdown.Subtotal.Add(breakdown.TaxAmount)

	return breakdown, nil
}

func (s *pricingService) priceItem(ctx context.Context, item QuoteItemRequest) (*model.QuoteLineItem, error) {
	equipmentID, err := uuid.Parse(item.EquipmentID)
	if err != nil {
		return nil, apperror.Validation("invalid equipment id %q", item.EquipmentID)
	}

	start, err := time.Parse(dateLayout, item.StartDate)
	if err != nil {
		return nil, apperror.Validation("invalid start_date %q (expected YYYY-MM-DD)", item.StartDate)
	}
	end, err := time.Parse(dateLayout, item.EndDate)
	if err != nil {
		return nil, apperror.Validation("invalid end_date %q (expected YYYY-MM-DD)", item.EndDate)
	}
	if end.Before(start) {
		return nil, apperror.InvalidDateRange("end date %s is before start date %s", item.EndDate, item.StartDate)
	}

	// Inclusive day count: a single-day rental has duration 1.
	duration := int(end.Sub(start).Hours()/24) + 1

	equipment, err := s.findEquipment(ctx, equipmentID)
	if err != nil {
		return nil, err
	}

	tier, err := s.ResolveRate(ctx, equipmentID, duration)
	if err != nil {
		return nil, err
	}

	return &model.QuoteLineItem{
		EquipmentID:   equipment.ID,
		EquipmentName: equipment.Name,
		StartDate:     start,
		EndDate:       end,
		Duration:      duration,
		DailyRate:     tier.DailyRate,
		LineTotal:     tier.DailyRate.Mul(decimal.NewFromInt(int64(duration))),
	}, nil
}

func (s *pricingService) priceService(ctx context.Context, svc QuoteServiceRequest) (*model.QuoteServiceLine, error) {
	serviceID, err := uuid.Parse(svc.ServiceID)
	if err != nil {
		return nil, apperror.Validation("invalid service id %q", svc.ServiceID)
	}
	if svc.Quantity < 1 {
		return nil, apperror.Validation("service quantity must be at least 1")
	}

	offering, err := s.offeringRepo.FindActiveByID(ctx, serviceID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.ServiceNotFound("service %s not found or inactive", serviceID)
		}
		return nil, apperror.Database(err)
	}

	return &model.QuoteServiceLine{
		ServiceID:   offering.ID,
		ServiceName: offering.Name,
		UnitPrice:   offering.Price,
		Quantity:    svc.Quantity,
		LineTotal:   offering.Price.Mul(decimal.NewFromInt(int64(svc.Quantity))),
	}, nil
}

func (s *pricingService) findEquipment(ctx context.Context, id uuid.UUID) (*model.Equipment, error) {
	equipment, err := s.equipmentRepo.FindActiveByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.EquipmentNotFound("equipment %s not found or inactive", id)
		}
		return nil, apperror.Database(err)
	}
	return equipment, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// --- Mapping ---

func ToBreakdownResponse(b *QuoteBreakdown) BreakdownResponse {
	resp := BreakdownResponse{
		Items:     make([]LineItemResponse, 0, len(b.Items)),
		Services:  make([]ServiceLineResponse, 0, len(b.Services)),
		Subtotal:  b.Subtotal.StringFixed(2),
		TaxAmount: b.TaxAmount.StringFixed(2),
		Total:     b.Total.StringFixed(2),
	}
	for _, item := range b.Items {
		resp.Items = append(resp.Items, toLineItemResponse(item))
	}
	for _, line := range b.Services {
		resp.Services = append(resp.Services, toServiceLineResponse(line))
	}
	return resp
}

func toLineItemResponse(item model.QuoteLineItem) LineItemResponse {
	return LineItemResponse{
		EquipmentID:   item.EquipmentID.String(),
		EquipmentName: item.EquipmentName,
		StartDate:     item.StartDate.Format(dateLayout),
		EndDate:       item.EndDate.Format(dateLayout),
		Duration:      item.Duration,
		DailyRate:     item.DailyRate.StringFixed(2),
		LineTotal:     item.LineTotal.StringFixed(2),
	}
}

func toServiceLineResponse(line model.QuoteServiceLine) ServiceLineResponse {
	return ServiceLineResponse{
		ServiceID:   line.ServiceID.String(),
		ServiceName: line.ServiceName,
		UnitPrice:   line.UnitPrice.StringFixed(2),
		Quantity:    line.Quantity,
		LineTotal:   line.LineTotal.StringFixed(2),
	}
}
