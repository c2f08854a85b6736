package wizard

import (
	"strings"
	"time"

	"github.com/shaktiabhiyan/taskforce/internal/domain"
)

// Form names
const (
	FormComplaint = "complaint"
	FormLawyer    = "lawyer"
)

// Complaint form fields
const (
	FieldName          = "name"
	FieldPhone         = "phone"
	FieldAssembly      = "assembly"
	FieldDistrict      = "district"
	FieldIncidentDate  = "incident_date"
	FieldIncidentTime  = "incident_time"
	FieldLocation      = "location"
	FieldComplaintType = "complaint_type"
	FieldOtherText     = "other_text"
	FieldDescription   = "description"
	FieldPhoto         = "photo_file"
	FieldVideo         = "video_file"
)

// Lawyer form fields (name and assembly are shared with the complaint form)
const (
	FieldWhatsApp        = "whatsapp"
	FieldPracticingCourt = "practicing_court"
	FieldEmail           = "email"
)

// NewComplaintForm returns the eleven-step complaint form.
func NewComplaintForm(limits Limits, now func() time.Time) *Form {
	types := domain.ComplaintTypes()
	options := make([]string, len(types))
	for i, t := range types {
		options[i] = t.String()
	}

	rules := []Rule{
		{Field: FieldName, Label: "Name", Kind: KindText},
		{Field: FieldPhone, Label: "Phone", Kind: KindPhone},
		{Field: FieldAssembly, Label: "Assembly", Kind: KindText, Optional: true},
		{Field: FieldDistrict, Label: "District", Kind: KindText},
		{Field: FieldIncidentDate, Label: "Date", Kind: KindDate},
		{Field: FieldIncidentTime, Label: "Time", Kind: KindTime},
		{Field: FieldLocation, Label: "Location", Kind: KindText},
		{Field: FieldComplaintType, Label: "Complaint type", Kind: KindEnum, Options: options},
		{Field: FieldOtherText, Label: "Complaint type", Kind: KindText, Optional: true},
		{Field: FieldDescription, Label: "Description", Kind: KindText, Optional: true},
		{Field: FieldPhoto, Label: "Photo", Kind: KindFile, Media: domain.MediaImage},
		{Field: FieldVideo, Label: "Video", Kind: KindFile, Media: domain.MediaVideo},
	}

	cross := []CrossRule{{Field: FieldOtherText, Check: otherTextRequired}}
	v := NewValidator(rules, cross, limits, now)

	steps := buildSteps(v, []stepDef{
		{name: "name", fields: []string{FieldName}},
		{name: "phone", fields: []string{FieldPhone}},
		{name: "assembly", fields: []string{FieldAssembly}, optional: true},
		{name: "district", fields: []string{FieldDistrict}},
		{name: "incident_date", fields: []string{FieldIncidentDate}},
		{name: "incident_time", fields: []string{FieldIncidentTime}},
		{name: "location", fields: []string{FieldLocation}},
		{name: "complaint_type", fields: []string{FieldComplaintType, FieldOtherText}},
		{name: "description", fields: []string{FieldDescription}, optional: true},
		{name: "photo", fields: []string{FieldPhoto}},
		{name: "video", fields: []string{FieldVideo}},
	})

	return &Form{
		Name:      FormComplaint,
		Steps:     steps,
		Validator: v,
		Priority: []string{
			FieldName, FieldPhone, FieldAssembly, FieldDistrict,
			FieldIncidentDate, FieldIncidentTime, FieldLocation,
			FieldComplaintType, FieldOtherText, FieldDescription,
			FieldPhoto, FieldVideo,
		},
	}
}

// NewLawyerForm returns the five-step lawyer registration form.
func NewLawyerForm() *Form {
	rules := []Rule{
		{Field: FieldName, Label: "Name", Kind: KindText},
		{Field: FieldWhatsApp, Label: "WhatsApp number", Kind: KindPhone},
		{Field: FieldPracticingCourt, Label: "Practicing Court", Kind: KindText},
		{Field: FieldAssembly, Label: "Vidhansabha/Assembly", Kind: KindText},
		{Field: FieldEmail, Label: "Email", Kind: KindEmail},
	}
	v := NewValidator(rules, nil, Limits{}, nil)

	steps := buildSteps(v, []stepDef{
		{name: "name", fields: []string{FieldName}},
		{name: "whatsapp", fields: []string{FieldWhatsApp}},
		{name: "practicing_court", fields: []string{FieldPracticingCourt}},
		{name: "assembly", fields: []string{FieldAssembly}},
		{name: "email", fields: []string{FieldEmail}},
	})

	return &Form{
		Name:      FormLawyer,
		Steps:     steps,
		Validator: v,
		Priority:  []string{FieldName, FieldWhatsApp, FieldPracticingCourt, FieldAssembly, FieldEmail},
	}
}

// otherTextRequired makes other_text mandatory exactly when the complaint
// type is Other.
func otherTextRequired(rec *Record) Result {
	if domain.ComplaintType(rec.Text(FieldComplaintType)) != domain.ComplaintTypeOther {
		return ok()
	}
	if strings.TrimSpace(rec.Get(FieldOtherText)) == "" {
		return fail(MsgOtherText)
	}
	return ok()
}
