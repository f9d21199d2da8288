package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"giftshop-bot/internal/model"
)

// InvoiceRepository stores gateway invoices.
type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// Save inserts the invoice or replaces every column of an existing one.
func (r *InvoiceRepository) Save(ctx context.Context, invoice *model.Invoice) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "invoice_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"platform_id", "status", "asset", "amount", "updated_at"}),
	}).Create(invoice).Error
	if err != nil {
		return fmt.Errorf("save invoice: %w", err)
	}
	return nil
}

// ApplyStatus stores status and returns the status it replaced.
// found is false when the invoice was never persisted locally; nothing is written then.
func (r *InvoiceRepository) ApplyStatus(ctx context.Context, invoiceID, status string) (previous string, found bool, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var invoice model.Invoice
		if err := q.Where("invoice_id = ?", invoiceID).First(&invoice).Error; err != nil {
			if IsNotFound(err) {
				return nil
			}
			return fmt.Errorf("load invoice: %w", err)
		}
		found = true
		previous = invoice.Status
		if err := tx.Model(&invoice).Update("status", status).Error; err != nil {
			return fmt.Errorf("update invoice status: %w", err)
		}
		return nil
	})
	return previous, found, err
}

func (r *InvoiceRepository) FindByID(ctx context.Context, invoiceID string) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := r.db.WithContext(ctx).Where("invoice_id = ?", invoiceID).First(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}
