package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// QuoteListFilter narrows ListByOwner results
type QuoteListFilter struct {
	OwnerID   uuid.UUID
	Status    string // empty for all
	Page      int
	Limit     int
	SortBy    string // validated column name
	SortOrder string // asc|desc
}

// QuoteRepository persists the quote aggregate. Each mutating method is
// atomic on its own: the header and its line collections change together
// or not at all, so a reader never observes totals that disagree with
// the line set.
type QuoteRepository interface {
	Create(ctx context.Context, quote *model.Quote) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Quote, error)
	FindByIDWithLines(ctx context.Context, id uuid.UUID) (*model.Quote, error)
	ListByOwner(ctx context.Context, filter QuoteListFilter) ([]model.Quote, int64, error)
	ReplaceLines(ctx context.Context, quoteID uuid.UUID, items []model.QuoteLineItem, services []model.QuoteServiceLine, subtotal, taxAmount, total decimal.Decimal) error
	Update(ctx context.Context, quote *model.Quote) error
	UpdateNotes(ctx context.Context, quoteID uuid.UUID, notes string) error
	FindLatest(ctx context.Context) (*model.Quote, error)
}

type quoteRepository struct {
	db *gorm.DB
}

func NewQuoteRepository(db *gorm.DB) QuoteRepository {
	return &quoteRepository{db: db}
}

func (r *quoteRepository) Create(ctx context.Context, quote *model.Quote) error {
	// gorm writes the header and both line collections in one transaction
	return GetDB(ctx, r.db).Create(quote).Error
}

func (r *quoteRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Quote, error) {
	var quote model.Quote
	if err := GetDB(ctx, r.db).First(&quote, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &quote, nil
}

func (r *quoteRepository) FindByIDWithLines(ctx context.Context, id uuid.UUID) (*model.Quote, error) {
	var quote model.Quote
	if err := GetDB(ctx, r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		Preload("Services", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		First(&quote, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &quote, nil
}

func (r *quoteRepository) ListByOwner(ctx context.Context, filter QuoteListFilter) ([]model.Quote, int64, error) {
	var quotes []model.Quote
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Quote{}).Where("owner_id = ?", filter.OwnerID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "created_at desc"
	if filter.SortBy != "" {
		order = filter.SortBy + " " + filter.SortOrder
	}

	offset := (filter.Page - 1) * filter.Limit
	fetchQuery := db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		Preload("Services", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		Where("owner_id = ?", filter.OwnerID)
	if filter.Status != "" {
		fetchQuery = fetchQuery.Where("status = ?", filter.Status)
	}
	if err := fetchQuery.Order(order).Offset(offset).Limit(filter.Limit).Find(&quotes).Error; err != nil {
		return nil, 0, err
	}

	return quotes, total, nil
}

// ReplaceLines swaps the quote's line collections and header totals in a
// single transaction (a savepoint when the caller already runs in one).
func (r *quoteRepository) ReplaceLines(ctx context.Context, quoteID uuid.UUID, items []model.QuoteLineItem, services []model.QuoteServiceLine, subtotal, taxAmount, total decimal.Decimal) error {
	return GetDB(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("quote_id = ?", quoteID).Delete(&model.QuoteLineItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("quote_id = ?", quoteID).Delete(&model.QuoteServiceLine{}).Error; err != nil {
			return err
		}

		for i := range items {
			items[i].ID = uuid.Nil
			items[i].QuoteID = quoteID
			items[i].Position = i
		}
		for i := range services {
			services[i].ID = uuid.Nil
			services[i].QuoteID = quoteID
			services[i].Position = i
		}

		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}
		if len(services) > 0 {
			if err := tx.Create(&services).Error; err != nil {
				return err
			}
		}

		return tx.Model(&model.Quote{}).Where("id = ?", quoteID).Updates(map[string]interface{}{
			"subtotal":   subtotal,
			"tax_amount": taxAmount,
			"total":      total,
		}).Error
	})
}

func (r *quoteRepository) Update(ctx context.Context, quote *model.Quote) error {
	// Omit associations: line collections only change through Create/ReplaceLines
	return GetDB(ctx, r.db).Omit("Items", "Services").Save(quote).Error
}

func (r *quoteRepository) UpdateNotes(ctx context.Context, quoteID uuid.UUID, notes string) error {
	return GetDB(ctx, r.db).Model(&model.Quote{}).Where("id = ?", quoteID).Update("notes", notes).Error
}

// FindLatest returns the most recently created quote, used to derive the
// next quote number.
func (r *quoteRepository) FindLatest(ctx context.Context) (*model.Quote, error) {
	var quote model.Quote
	if err := GetDB(ctx, r.db).Order("created_at desc").First(&quote).Error; err != nil {
		return nil, err
	}
	return &quote, nil
}
