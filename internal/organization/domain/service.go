package domain

import (
	"context"
	"errors"
)

var ErrOrganizationNotFound = errors.New("organization_not_found")

// Service exposes the organization settings row.
type Service interface {
	Get(ctx context.Context) (Organization, error)
	Update(ctx context.Context, org Organization) (Organization, error)
}
