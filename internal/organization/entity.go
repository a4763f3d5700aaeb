// AngelaMos | 2026
// entity.go

package organization

import (
	"time"
)

type Organization struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	ShortCode string    `db:"short_code"`
	CreatedAt time.Time `db:"created_at"`
}

type CreateOrganizationRequest struct {
	Name      string `json:"name"      validate:"required,min=2,max=120"`
	ShortCode string `json:"shortCode" validate:"required,alphanum,min=2,max=16"`
}

type OrganizationResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ShortCode string    `json:"shortCode"`
	CreatedAt time.Time `json:"createdAt"`
}

func ToOrganizationResponse(o *Organization) OrganizationResponse {
	return OrganizationResponse{
		ID:        o.ID,
		Name:      o.Name,
		ShortCode: o.ShortCode,
		CreatedAt: o.CreatedAt,
	}
}
