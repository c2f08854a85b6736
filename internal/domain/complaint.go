// Package domain contains core business types and interfaces.
//
// This file defines the Complaint domain type submitted through the
// legal taskforce complaint form.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Complaint Type
// =============================================================================

// ComplaintType is the category a complainant picks for an incident.
type ComplaintType string

const (
	ComplaintTypeBoothCapturing    ComplaintType = "Booth Capturing"
	ComplaintTypeVoterBribery      ComplaintType = "Voter Bribery"
	ComplaintTypeCommunalTargeting ComplaintType = "Caste or Communal Targeting"
	ComplaintTypePoliceInaction    ComplaintType = "Police Inaction or Bias"
	ComplaintTypeVoterThreats      ComplaintType = "Threats to Voters"
	ComplaintTypeVoterIDTampering  ComplaintType = "Voter ID Tampering or Deletion"
	ComplaintTypeCountingFraud     ComplaintType = "Counting Fraud or Manipulation"
	ComplaintTypePollingDisruption ComplaintType = "Other Disruption during Polling"

	// ComplaintTypeOther requires the complainant to describe the category
	// in free text.
	ComplaintTypeOther ComplaintType = "Other"
)

// complaintTypes is the display order of the categories.
var complaintTypes = []ComplaintType{
	ComplaintTypeBoothCapturing,
	ComplaintTypeVoterBribery,
	ComplaintTypeCommunalTargeting,
	ComplaintTypePoliceInaction,
	ComplaintTypeVoterThreats,
	ComplaintTypeVoterIDTampering,
	ComplaintTypeCountingFraud,
	ComplaintTypePollingDisruption,
	ComplaintTypeOther,
}

// ComplaintTypes returns the complaint categories in display order.
// The returned slice is a copy and may be modified by the caller.
func ComplaintTypes() []ComplaintType {
	out := make([]ComplaintType, len(complaintTypes))
	copy(out, complaintTypes)
	return out
}

// String returns the string representation of the type.
func (t ComplaintType) String() string {
	return string(t)
}

// IsValid returns true if the type is one of the fixed categories.
func (t ComplaintType) IsValid() bool {
	for _, ct := range complaintTypes {
		if ct == t {
			return true
		}
	}
	return false
}

// =============================================================================
// Complaint Domain Type
// =============================================================================

// Complaint is the persisted record of a submitted complaint. It is created
// once at successful submission and never mutated afterwards.
type Complaint struct {
	ID            uuid.UUID     // Unique identifier
	Name          string        // Complainant name
	Phone         string        // 10-digit Indian mobile number
	Assembly      *string       // Optional assembly constituency
	District      string        // District of the incident
	IncidentDate  string        // YYYY-MM-DD, never in the future
	IncidentTime  string        // HH:mm
	Location      string        // Village / booth / area
	ComplaintType ComplaintType // Category
	Description   *string       // Optional free text
	PhotoURL      string        // Public URL of the uploaded photo
	VideoURL      string        // Public URL of the uploaded video
	SubmitterIP   string        // Client IP at submission (may be empty)
	CreatedAt     time.Time     // When the record was written
}

// =============================================================================
// Complaint Service Parameters
// =============================================================================

// SubmitComplaintParams holds the validated answers and attached media of a
// completed complaint wizard.
type SubmitComplaintParams struct {
	Name          string
	Phone         string
	Assembly      string
	District      string
	IncidentDate  string
	IncidentTime  string
	Location      string
	ComplaintType ComplaintType
	OtherText     string
	Description   string
	Photo         *Attachment
	Video         *Attachment
	SubmitterIP   string
}

// EffectiveDescription returns the description to persist. When the
// description is blank and the type is Other, the free-text category is used
// instead. A blank result means NULL.
func (p SubmitComplaintParams) EffectiveDescription() string {
	if p.Description != "" {
		return p.Description
	}
	if p.ComplaintType == ComplaintTypeOther {
		return p.OtherText
	}
	return ""
}

// =============================================================================
// Submission Stages
// =============================================================================

// SubmitStage labels the progress of a complaint submission.
type SubmitStage string

const (
	StagePreparing      SubmitStage = "preparing"
	StageUploadingPhoto SubmitStage = "uploading_photo"
	StageUploadingVideo SubmitStage = "uploading_video"
	StageSaving         SubmitStage = "saving"
	StageDone           SubmitStage = "done"
)

// String returns the string representation of the stage.
func (s SubmitStage) String() string {
	return string(s)
}
