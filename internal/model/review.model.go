package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Review struct {
	ID         uuid.UUID `json:"id"`
	BookingID  uuid.UUID `json:"booking_id"`
	ClientID   uuid.UUID `json:"client_id"`
	ProviderID uuid.UUID `json:"provider_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
}

type ReviewCreateRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (r *ReviewCreateRequest) Validate() error {
	if r.Rating < 1 || r.Rating > 5 {
		return invalid("rating must be between 1 and 5")
	}
	r.Comment = strings.TrimSpace(r.Comment)
	return nil
}
