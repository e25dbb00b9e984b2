package properties

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hearthstay/hearthstay-backend/pkg/db/models"
	pkgerrors "github.com/hearthstay/hearthstay-backend/pkg/errors"
	"github.com/hearthstay/hearthstay-backend/pkg/pagination"
)

// Service exposes property reads to controllers and the checkout flow.
type Service interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error)
	ListActive(ctx context.Context, query ListQuery) ([]models.Property, *pagination.Cursor, error)
}

type service struct {
	repo Repository
}

// NewService wires a property service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("properties repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "property id is required")
	}
	property, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load property")
	}
	if property == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "property not found")
	}
	return property, nil
}

func (s *service) ListActive(ctx context.Context, query ListQuery) ([]models.Property, *pagination.Cursor, error) {
	rows, next, err := s.repo.ListActive(ctx, query)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list properties")
	}
	return rows, next, nil
}
