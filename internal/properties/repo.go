package properties

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hearthstay/hearthstay-backend/pkg/db/models"
	"github.com/hearthstay/hearthstay-backend/pkg/pagination"
)

// Repository handles property persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, property *models.Property) error
	Update(ctx context.Context, property *models.Property) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Property, error)
	ListActive(ctx context.Context, query ListQuery) ([]models.Property, *pagination.Cursor, error)
	ListByHost(ctx context.Context, hostID uuid.UUID) ([]models.Property, error)
}

// ListQuery configures active property listings.
type ListQuery struct {
	City    string
	Country string
	Params  pagination.Params
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a property repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, property *models.Property) error {
	return r.db.WithContext(ctx).Create(property).Error
}

func (r *repository) Update(ctx context.Context, property *models.Property) error {
	return r.db.WithContext(ctx).Save(property).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	var property models.Property
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&property).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &property, nil
}

func (r *repository) ListActive(ctx context.Context, query ListQuery) ([]models.Property, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(query.Params.Limit)
	cursor, err := pagination.ParseCursor(query.Params.Cursor)
	if err != nil {
		return nil, nil, err
	}

	q := r.db.WithContext(ctx).
		Model(&models.Property{}).
		Where("is_active").
		Order("created_at DESC, id DESC").
		Limit(limit + 1)
	if query.City != "" {
		q = q.Where("city = ?", query.City)
	}
	if query.Country != "" {
		q = q.Where("country = ?", query.Country)
	}
	if cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Property
	if err := q.Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	var next *pagination.Cursor
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return rows, next, nil
}

func (r *repository) ListByHost(ctx context.Context, hostID uuid.UUID) ([]models.Property, error) {
	var rows []models.Property
	if err := r.db.WithContext(ctx).
		Where("host_id = ?", hostID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
