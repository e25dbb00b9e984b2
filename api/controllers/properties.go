package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hearthstay/hearthstay-backend/api/responses"
	"github.com/hearthstay/hearthstay-backend/api/validators"
	propsvc "github.com/hearthstay/hearthstay-backend/internal/properties"
	"github.com/hearthstay/hearthstay-backend/pkg/db/models"
	pkgerrors "github.com/hearthstay/hearthstay-backend/pkg/errors"
	"github.com/hearthstay/hearthstay-backend/pkg/logger"
	"github.com/hearthstay/hearthstay-backend/pkg/pagination"
)

type propertyResponse struct {
	ID                uuid.UUID `json:"id"`
	Title             string    `json:"title"`
	Description       *string   `json:"description,omitempty"`
	City              string    `json:"city"`
	Country           string    `json:"country"`
	MaxGuests         int       `json:"max_guests"`
	NightlyPriceCents int64     `json:"nightly_price_cents"`
	CleaningFeeCents  int64     `json:"cleaning_fee_cents"`
	Currency          string    `json:"currency"`
	CreatedAt         time.Time `json:"created_at"`
}

type propertyListResponse struct {
	Properties []propertyResponse `json:"properties"`
	NextCursor string             `json:"next_cursor,omitempty"`
}

// ListProperties returns active listings, optionally filtered by location.
func ListProperties(svc propsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "property service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := propsvc.ListQuery{
			City:    strings.TrimSpace(r.URL.Query().Get("city")),
			Country: strings.TrimSpace(r.URL.Query().Get("country")),
			Params: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
		}

		properties, next, err := svc.ListActive(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := propertyListResponse{Properties: make([]propertyResponse, 0, len(properties))}
		for _, property := range properties {
			resp.Properties = append(resp.Properties, newPropertyResponse(property))
		}
		if next != nil {
			resp.NextCursor = pagination.EncodeCursor(*next)
		}
		responses.WriteSuccess(w, resp)
	}
}

// GetProperty returns a single listing by id.
func GetProperty(svc propsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "property service unavailable"))
			return
		}

		propertyID, err := parsePathID(r, "propertyId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		property, err := svc.GetByID(r.Context(), propertyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newPropertyResponse(*property))
	}
}

func newPropertyResponse(property models.Property) propertyResponse {
	return propertyResponse{
		ID:                property.ID,
		Title:             property.Title,
		Description:       property.Description,
		City:              property.City,
		Country:           property.Country,
		MaxGuests:         property.MaxGuests,
		NightlyPriceCents: property.NightlyPriceCents,
		CleaningFeeCents:  property.CleaningFeeCents,
		Currency:          property.Currency,
		CreatedAt:         property.CreatedAt.UTC(),
	}
}

func parsePathID(r *http.Request, param string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, param))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "identifier is required").WithDetails(map[string]any{"field": param})
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid identifier")
	}
	return id, nil
}
