package persistence

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/customersvc/backend/internal/domain/customer"
	"github.com/customersvc/backend/internal/domain/shared"
	"github.com/customersvc/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCustomerRepository implements customer.Repository using GORM
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewGormCustomerRepository creates a new GormCustomerRepository
func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

var _ customer.Repository = (*GormCustomerRepository)(nil)

// Save inserts c when isNew is set and upserts it on id otherwise.
func (r *GormCustomerRepository) Save(ctx context.Context, c *customer.Customer, isNew bool) (*customer.Customer, error) {
	model := models.CustomerModelFromDomain(c)
	db := r.db.WithContext(ctx)

	if !isNew && model.ID != 0 {
		db = db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"first_name", "last_name"}),
		})
	}

	if err := db.Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, shared.ErrAlreadyExists.Wrap(err)
		}
		return nil, fmt.Errorf("save customer %d: %w", c.ID, err)
	}

	return model.ToDomain(), nil
}

// FindByID returns found == false with a nil error when no row has the id
func (r *GormCustomerRepository) FindByID(ctx context.Context, id int64) (*customer.Customer, bool, error) {
	var model models.CustomerModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("find customer %d: %w", id, err)
	}
	return model.ToDomain(), true, nil
}

// FindAll streams the customers table through a cursor. The query runs when
// iteration starts and the rows are closed when it ends or is abandoned.
func (r *GormCustomerRepository) FindAll(ctx context.Context) iter.Seq2[customer.Customer, error] {
	return func(yield func(customer.Customer, error) bool) {
		db := r.db.WithContext(ctx)
		rows, err := db.Model(&models.CustomerModel{}).Rows()
		if err != nil {
			yield(customer.Customer{}, fmt.Errorf("scan customers: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var model models.CustomerModel
			if err := db.ScanRows(rows, &model); err != nil {
				yield(customer.Customer{}, fmt.Errorf("scan customer row: %w", err))
				return
			}
			if !yield(*model.ToDomain(), nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(customer.Customer{}, fmt.Errorf("scan customers: %w", err))
		}
	}
}
