package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"backend/internal/model"
	"backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- Fakes ---

type fakeEquipmentRepo struct {
	equipment map[uuid.UUID]*model.Equipment
	tiers     map[uuid.UUID][]model.RateTier
}

func newFakeEquipmentRepo() *fakeEquipmentRepo {
	return &fakeEquipmentRepo{
		equipment: make(map[uuid.UUID]*model.Equipment),
		tiers:     make(map[uuid.UUID][]model.RateTier),
	}
}

func (f *fakeEquipmentRepo) add(name string, tiers ...model.RateTier) uuid.UUID {
	id := uuid.New()
	f.equipment[id] = &model.Equipment{ID: id, Name: name, Active: true}
	for i := range tiers {
		tiers[i].EquipmentID = id
		if tiers[i].ID == uuid.Nil {
			tiers[i].ID = uuid.New()
		}
	}
	f.tiers[id] = tiers
	return id
}

func (f *fakeEquipmentRepo) FindActiveByID(_ context.Context, id uuid.UUID) (*model.Equipment, error) {
	e, ok := f.equipment[id]
	if !ok || !e.Active {
		return nil, gorm.ErrRecordNotFound
	}
	return e, nil
}

func (f *fakeEquipmentRepo) FindActiveTiers(_ context.Context, equipmentID uuid.UUID) ([]model.RateTier, error) {
	var active []model.RateTier
	for _, t := range f.tiers[equipmentID] {
		if t.Active {
			active = append(active, t)
		}
	}
	return active, nil
}

type fakeOfferingRepo struct {
	offerings map[uuid.UUID]*model.ServiceOffering
}

func newFakeOfferingRepo() *fakeOfferingRepo {
	return &fakeOfferingRepo{offerings: make(map[uuid.UUID]*model.ServiceOffering)}
}

func (f *fakeOfferingRepo) add(name, price string) uuid.UUID {
	id := uuid.New()
	f.offerings[id] = &model.ServiceOffering{
		ID:     id,
		Name:   name,
		Price:  decimal.RequireFromString(price),
		Active: true,
	}
	return id
}

func (f *fakeOfferingRepo) FindActiveByID(_ context.Context, id uuid.UUID) (*model.ServiceOffering, error) {
	o, ok := f.offerings[id]
	if !ok || !o.Active {
		return nil, gorm.ErrRecordNotFound
	}
	return o, nil
}

func tier(min, max int, rate string) model.RateTier {
	return model.RateTier{
		ID:          uuid.New(),
		DurationMin: min,
		DurationMax: max,
		DailyRate:   decimal.RequireFromString(rate),
		Active:      true,
	}
}

// --- Tests ---

func TestPricingService_ResolveRate(t *testing.T) {
	t.Run("picks the tier covering the duration", func(t *testing.T) {
		repo := newFakeEquipmentRepo()
		id := repo.add("Excavator", tier(1, 3, "250.00"), tier(4, 7, "220.00"))
		svc := NewPricingService(repo, newFakeOfferingRepo())

		got, err := svc.ResolveRate(context.Background(), id, 5)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !got.DailyRate.Equal(decimal.RequireFromString("220.00")) {
			t.Fatalf("expected rate 220.00, got %s", got.DailyRate)
		}
	})

	t.Run("overlapping tiers resolve to the lowest rate", func(t *testing.T) {
		repo := newFakeEquipmentRepo()
		id := repo.add("Excavator",
			tier(1, 10, "300.00"),
			tier(2, 5, "250.00"),
			tier(3, 4, "280.00"),
		)
		svc := NewPricingService(repo, newFakeOfferingRepo())

		got, err := svc.ResolveRate(context.Background(), id, 3)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !got.DailyRate.Equal(decimal.RequireFromString("250.00")) {
			t.Fatalf("expected lowest rate 250.00, got %s", got.DailyRate)
		}
	})

	t.Run("no covering tier fails with RATE_NOT_FOUND", func(t *testing.T) {
		repo := newFakeEquipmentRepo()
		id := repo.add("Excavator", tier(1, 30, "250.00"))
		svc := NewPricingService(repo, newFakeOfferingRepo())

		_, err := svc.ResolveRate(context.Background(), id, 40)
		if apperror.CodeOf(err) != apperror.CodeRateNotFound {
			t.Fatalf("expected RATE_NOT_FOUND, got %v", err)
		}
		if !strings.Contains(err.Error(), "Excavator") {
			t.Fatalf("expected equipment name in message, got %q", err.Error())
		}
	})

	t.Run("inactive tiers are ignored", func(t *testing.T) {
		repo := newFakeEquipmentRepo()
		inactive := tier(1, 10, "100.00")
		inactive.Active = false
		id := repo.add("Scissor Lift", inactive, tier(1, 10, "180.00"))
		svc := NewPricingService(repo, newFakeOfferingRepo())

		got, err := svc.ResolveRate(context.Background(), id, 2)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !got.DailyRate.Equal(decimal.RequireFromString("180.00")) {
			t.Fatalf("expected 180.00 (active tier), got %s", got.DailyRate)
		}
	})

	t.Run("unknown equipment fails with EQUIPMENT_NOT_FOUND", func(t *testing.T) {
		svc := NewPricingService(newFakeEquipmentRepo(), newFakeOfferingRepo())

		_, err := svc.ResolveRate(context.Background(), uuid.New(), 2)
		if apperror.CodeOf(err) != apperror.CodeEquipmentNotFound {
			t.Fatalf("expected EQUIPMENT_NOT_FOUND, got %v", err)
		}
	})

	t.Run("duration below one day is rejected", func(t *testing.T) {
		repo := newFakeEquipmentRepo()
		id := repo.add("Excavator", tier(1, 3, "250.00"))
		svc := NewPricingService(repo, newFakeOfferingRepo())

		_, err := svc.ResolveRate(context.Background(), id, 0)
		if apperror.CodeOf(err) != apperror.CodeValidation {
			t.Fatalf("expected VALIDATION_ERROR, got %v", err)
		}
	})
}

func TestPricingService_Calculate(t *testing.T) {
	t.Run("two-day rental at 250 totals 500", func(t *testing.T) {
		repo := newFakeEquipmentRepo()
		id := repo.add("Excavator", tier(1, 3, "250.00"))
		svc := NewPricingService(repo, newFakeOfferingRepo())

		got, err := svc.Calculate(context.Background(), CalculateQuoteRequest{
			Items: []QuoteItemRequest{
				{EquipmentID: id.String(), StartDate: "2024-02-01", EndDate: "2024-02-02"},
			},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.Items[0].Duration != 2 {
			t.Fatalf("expected duration 2, got %d", got.Items[0].Duration)
		}
		if !got.Items[0].LineTotal.Equal(decimal.RequireFromString("500.00")) {
			t.Fatalf("expected line total 500.00, got %s", got.Items[0].LineTotal)
		}
	})

	t.Run("single-day rental has duration one", func(t *testing.T) {
		repo := newFakeEquipmentRepo()
		id := repo.add("Excavator", tier(1, 3, "250.00"))
		svc := NewPricingService(repo, newFakeOfferingRepo())

		got, err := svc.Calculate(context.Background(), CalculateQuoteRequest{
			Items: []QuoteItemRequest{
				{EquipmentID: id.String(), StartDate: "2024-02-01", EndDate: "2024-02-01"},
			},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.Items[0].Duration != 1 {
			t.Fatalf("expected duration 1, got %d", got.Items[0].Duration)
		}
		if !got.Subtotal.Equal(decimal.RequireFromString("250.00")) {
			t.Fatalf("expected subtotal 250.00, got %s", got.Subtotal)
		}
	})

	t.Run("multi-item subtotal tax and total", func(t *testing.T) {
		repo := newFakeEquipmentRepo()
		a := repo.add("Equipment A", tier(1, 10, "200.00"))
		b := repo.add("Equipment B", tier(1, 10, "150.00"))
		svc := NewPricingService(repo, newFakeOfferingRepo())

		got, err := svc.Calculate(context.Background(), CalculateQuoteRequest{
			Items: []QuoteItemRequest{
				{EquipmentID: a.String(), StartDate: "2024-03-01", EndDate: "2024-03-05"}, // 5 days * 200 = 1000
				{EquipmentID: b.String(), StartDate: "2024-03-01", EndDate: "2024-03-03"}, // 3 days * 150 = 450
			},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !got.Subtotal.Equal(decimal.RequireFromString("1450")) {
			t.Fatalf("expected subtotal 1450, got %s", got.Subtotal)
		}
		if !got.TaxAmount.Equal(decimal.RequireFromString("290")) {
			t.Fatalf("expected tax 290, got %s", got.TaxAmount)
		}
		if !got.Total.Equal(decimal.RequireFromString("1740")) {
			t.Fatalf("expected total 1740, got %s", got.Total)
		}
	})

	t.Run("service lines accumulate into subtotal", func(t *testing.T) {
		equipRepo := newFakeEquipmentRepo()
		id := equipRepo.add("Excavator", tier(1, 3, "250.00"))
		offeringRepo := newFakeOfferingRepo()
		delivery := offeringRepo.add("Delivery", "75.50")
		svc := NewPricingService(equipRepo, offeringRepo)

		got, err := svc.Calculate(context.Background(), CalculateQuoteRequest{
			Items: []QuoteItemRequest{
				{EquipmentID: id.String(), StartDate: "2024-02-01", EndDate: "2024-02-02"},
			},
			Services: []QuoteServiceRequest{
				{ServiceID: delivery.String(), Quantity: 2},
			},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !got.Services[0].LineTotal.Equal(decimal.RequireFromString("151.00")) {
			t.Fatalf("expected service line 151.00, got %s", got.Services[0].LineTotal)
		}
		if !got.Subtotal.Equal(decimal.RequireFromString("651.00")) {
			t.Fatalf("expected subtotal 651.00, got %s", got.Subtotal)
		}
	})

	t.Run("end before start fails with INVALID_DATE_RANGE", func(t *testing.T) {
		repo := newFakeEquipmentRepo()
		id := repo.add("Excavator", tier(1, 3, "250.00"))
		svc := NewPricingService(repo, newFakeOfferingRepo())

		_, err := svc.Calculate(context.Background(), CalculateQuoteRequest{
			Items: []QuoteItemRequest{
				{EquipmentID: id.String(), StartDate: "2024-02-05", EndDate: "2024-02-01"},
			},
		})
		if apperror.CodeOf(err) != apperror.CodeInvalidDateRange {
			t.Fatalf("expected INVALID_DATE_RANGE, got %v", err)
		}
	})

	t.Run("unknown service fails with SERVICE_NOT_FOUND", func(t *testing.T) {
		repo := newFakeEquipmentRepo()
		id := repo.add("Excavator", tier(1, 3, "250.00"))
		svc := NewPricingService(repo, newFakeOfferingRepo())

		_, err := svc.Calculate(context.Background(), CalculateQuoteRequest{
			Items: []QuoteItemRequest{
				{EquipmentID: id.String(), StartDate: "2024-02-01", EndDate: "2024-02-02"},
			},
			Services: []QuoteServiceRequest{
				{ServiceID: uuid.NewString(), Quantity: 1},
			},
		})
		if apperror.CodeOf(err) != apperror.CodeServiceNotFound {
			t.Fatalf("expected SERVICE_NOT_FOUND, got %v", err)
		}
	})

	t.Run("zero quantity is rejected", func(t *testing.T) {
		equipRepo := newFakeEquipmentRepo()
		id := equipRepo.add("Excavator", tier(1, 3, "250.00"))
		offeringRepo := newFakeOfferingRepo()
		delivery := offeringRepo.add("Delivery", "75.50")
		svc := NewPricingService(equipRepo, offeringRepo)

		_, err := svc.Calculate(context.Background(), CalculateQuoteRequest{
			Items: []QuoteItemRequest{
				{EquipmentID: id.String(), StartDate: "2024-02-01", EndDate: "2024-02-02"},
			},
			Services: []QuoteServiceRequest{
				{ServiceID: delivery.String(), Quantity: 0},
			},
		})
		if apperror.CodeOf(err) != apperror.CodeValidation {
			t.Fatalf("expected VALIDATION_ERROR, got %v", err)
		}
	})

	t.Run("empty item list is rejected", func(t *testing.T) {
		svc := NewPricingService(newFakeEquipmentRepo(), newFakeOfferingRepo())

		_, err := svc.Calculate(context.Background(), CalculateQuoteRequest{})
		if apperror.CodeOf(err) != apperror.CodeValidation {
			t.Fatalf("expected VALIDATION_ERROR, got %v", err)
		}
	})

	t.Run("identical inputs produce identical breakdowns", func(t *testing.T) {
		repo := newFakeEquipmentRepo()
		id := repo.add("Excavator", tier(1, 30, "333.33"))
		svc := NewPricingService(repo, newFakeOfferingRepo())

		req := CalculateQuoteRequest{
			Items: []QuoteItemRequest{
				{EquipmentID: id.String(), StartDate: "2024-02-01", EndDate: "2024-02-07"},
			},
		}
		first, err := svc.Calculate(context.Background(), req)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		second, err := svc.Calculate(context.Background(), req)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if first.Subtotal.String() != second.Subtotal.String() ||
			first.TaxAmount.String() != second.TaxAmount.String() ||
			first.Total.String() != second.Total.String() {
			t.Fatalf("breakdowns differ: %v vs %v", first, second)
		}
	})

	t.Run("total equals subtotal plus tax exactly", func(t *testing.T) {
		repo := newFakeEquipmentRepo()
		// 3 days * 33.37 = 100.11; tax = 20.022 -> rounds to 20.02
		id := repo.add("Excavator", tier(1, 30, "33.37"))
		svc := NewPricingService(repo, newFakeOfferingRepo())

		got, err := svc.Calculate(context.Background(), CalculateQuoteRequest{
			Items: []QuoteItemRequest{
				{EquipmentID: id.String(), StartDate: "2024-02-01", EndDate: "2024-02-03"},
			},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !got.Total.Sub(got.Subtotal).Sub(got.TaxAmount).IsZero() {
			t.Fatalf("total %s != subtotal %s + tax %s", got.Total, got.Subtotal, got.TaxAmount)
		}
		want := got.Subtotal.Mul(decimal.RequireFromString("1.20")).Round(2)
		if !got.Total.Equal(want) {
			t.Fatalf("expected total %s, got %s", want, got.Total)
		}
	})

	t.Run("first error aborts the whole calculation", func(t *testing.T) {
		repo := newFakeEquipmentRepo()
		good := repo.add("Equipment A", tier(1, 10, "200.00"))
		svc := NewPricingService(repo, newFakeOfferingRepo())

		_, err := svc.Calculate(context.Background(), CalculateQuoteRequest{
			Items: []QuoteItemRequest{
				{EquipmentID: good.String(), StartDate: "2024-03-01", EndDate: "2024-03-05"},
				{EquipmentID: uuid.NewString(), StartDate: "2024-03-01", EndDate: "2024-03-03"},
			},
		})
		if err == nil {
			t.Fatal("expected error, got breakdown")
		}
		var appErr *apperror.Error
		if !errors.As(err, &appErr) {
			t.Fatalf("expected coded error, got %v", err)
		}
	})
}
