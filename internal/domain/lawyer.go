package domain

import (
	"time"

	"github.com/google/uuid"
)

// Lawyer is a volunteer advocate registered through the lawyer form.
type Lawyer struct {
	ID              uuid.UUID
	Name            string
	WhatsApp        string
	PracticingCourt string
	Assembly        string
	Email           string
	CreatedAt       time.Time
}

// RegisterLawyerParams holds the validated answers of a completed lawyer wizard.
type RegisterLawyerParams struct {
	Name            string
	WhatsApp        string
	PracticingCourt string
	Assembly        string
	Email           string
}
