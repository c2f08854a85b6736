package wizard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shaktiabhiyan/taskforce/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ist = time.FixedZone("IST", 5*60*60+30*60)

// fixedNow is late evening local time so a UTC-based "today" would differ.
func fixedNow() time.Time {
	return time.Date(2026, time.March, 10, 23, 15, 0, 0, ist)
}

func testLimits() Limits {
	return Limits{
		MaxImageBytes:  2048,
		MaxVideoBytes:  4096,
		CompressImages: true,
	}
}

func jpeg(size int) *domain.Attachment {
	return &domain.Attachment{Filename: "booth.jpg", ContentType: "image/jpeg", Data: make([]byte, size)}
}

func mp4(size int) *domain.Attachment {
	return &domain.Attachment{Filename: "clip.mp4", ContentType: "video/mp4", Data: make([]byte, size)}
}

// validComplaint holds one valid answer per scalar complaint field.
var validComplaint = map[string]string{
	FieldName:          "Asha Kumar",
	FieldPhone:         "9876543210",
	FieldDistrict:      "Patna",
	FieldIncidentDate:  "2026-03-10",
	FieldIncidentTime:  "14:30",
	FieldLocation:      "Booth 42",
	FieldComplaintType: "Voter Bribery",
}

// fillComplaint answers every step and advances to the last one.
func fillComplaint(t *testing.T, w *Wizard) {
	t.Helper()
	for _, step := range w.Form().Steps {
		for _, field := range step.Fields {
			switch field {
			case FieldPhoto:
				_, _, err := w.Attach(field, jpeg(512))
				require.NoError(t, err)
			case FieldVideo:
				_, _, err := w.Attach(field, mp4(1024))
				require.NoError(t, err)
			default:
				if v, ok := validComplaint[field]; ok {
					_, err := w.Set(field, v)
					require.NoError(t, err)
				}
			}
		}
		if step.Index < len(w.Form().Steps) {
			require.True(t, w.Advance(), "advance from step %d (%s)", step.Index, step.Name)
		}
	}
	require.Equal(t, 11, w.Current())
}

func newComplaintWizard(release Releaser) *Wizard {
	return New(NewComplaintForm(testLimits(), fixedNow), release)
}

type clearingErr struct{ fields []string }

func (e *clearingErr) Error() string         { return "upload failed" }
func (e *clearingErr) ClearFields() []string { return e.fields }

// =============================================================================
// Step Table
// =============================================================================

func TestComplaintFormStepOrder(t *testing.T) {
	form := NewComplaintForm(testLimits(), fixedNow)

	names := make([]string, 0, len(form.Steps))
	for i, s := range form.Steps {
		assert.Equal(t, i+1, s.Index)
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{
		"name", "phone", "assembly", "district", "incident_date", "incident_time",
		"location", "complaint_type", "description", "photo", "video",
	}, names)

	assert.True(t, form.Steps[2].Optional)
	assert.True(t, form.Steps[8].Optional)
	assert.Equal(t, 7, form.StepOf(FieldOtherText))
	assert.Equal(t, -1, form.StepOf("unknown"))
}

func TestLawyerFormStepOrder(t *testing.T) {
	form := NewLawyerForm()

	var names []string
	for _, s := range form.Steps {
		names = append(names, s.Name)
		assert.False(t, s.Optional)
	}
	assert.Equal(t, []string{"name", "whatsapp", "practicing_court", "assembly", "email"}, names)
}

// =============================================================================
// Navigation
// =============================================================================

func TestAdvance_RequiresCompleteStep(t *testing.T) {
	w := newComplaintWizard(nil)

	for _, step := range w.Form().Steps[:len(w.Form().Steps)-1] {
		if !step.Optional {
			assert.False(t, w.Advance(), "step %s advanced while empty", step.Name)
			assert.Equal(t, step.Index, w.Current())
		}
		for _, field := range step.Fields {
			switch field {
			case FieldPhoto:
				_, _, err := w.Attach(field, jpeg(10))
				require.NoError(t, err)
			default:
				if v, ok := validComplaint[field]; ok {
					_, err := w.Set(field, v)
					require.NoError(t, err)
				}
			}
		}
		assert.True(t, w.Advance(), "step %s did not advance when complete", step.Name)
		assert.Equal(t, step.Index+1, w.Current())
	}
}

func TestAdvance_NoOpOnLastStep(t *testing.T) {
	w := newComplaintWizard(nil)
	fillComplaint(t, w)

	assert.False(t, w.Advance())
	assert.Equal(t, 11, w.Current())
}

func TestAdvance_InvalidValueBlocks(t *testing.T) {
	w := newComplaintWizard(nil)
	_, err := w.Set(FieldName, "Asha")
	require.NoError(t, err)
	require.True(t, w.Advance())

	res, err := w.Set(FieldPhone, "98765")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, MsgPhone, res.Message)
	assert.Equal(t, MsgPhone, w.Errors()[FieldPhone])

	assert.False(t, w.Advance())
	assert.Equal(t, 2, w.Current())
}

func TestRetreat_AlwaysAllowedExceptFirst(t *testing.T) {
	w := newComplaintWizard(nil)

	assert.False(t, w.Retreat())
	assert.Equal(t, 1, w.Current())

	fillComplaint(t, w)

	// Break an earlier answer; retreat still walks all the way back.
	_, err := w.Set(FieldPhone, "123")
	require.NoError(t, err)

	for want := 10; want >= 1; want-- {
		require.True(t, w.Retreat())
		assert.Equal(t, want, w.Current())
	}
	assert.False(t, w.Retreat())
}

func TestOptionalStepsAlwaysComplete(t *testing.T) {
	form := NewComplaintForm(testLimits(), fixedNow)

	for _, s := range form.Steps {
		if s.Optional {
			assert.True(t, s.IsComplete(NewRecord()), s.Name)
		}
	}
}

// =============================================================================
// Cross-field Rule
// =============================================================================

func TestComplaintTypeStepCompleteness(t *testing.T) {
	form := NewComplaintForm(testLimits(), fixedNow)
	step := form.Steps[7]
	require.Equal(t, "complaint_type", step.Name)

	tests := []struct {
		name      string
		ctype     string
		otherText string
		want      bool
	}{
		{"other with blank text", "Other", "   ", false},
		{"other with empty text", "Other", "", false},
		{"other with text", "Other", "Polling agent removed", true},
		{"bribery with empty text", "Voter Bribery", "", true},
		{"bribery with text", "Voter Bribery", "ignored", true},
		{"unknown type", "Vote Rigging", "", false},
		{"no type", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewRecord()
			rec.Set(FieldComplaintType, tt.ctype)
			rec.Set(FieldOtherText, tt.otherText)
			assert.Equal(t, tt.want, step.IsComplete(rec))
		})
	}
}

func TestSet_OtherTextErrorFollowsType(t *testing.T) {
	w := newComplaintWizard(nil)

	_, err := w.Set(FieldOtherText, "x")
	require.NoError(t, err)
	_, err = w.Set(FieldOtherText, "")
	require.NoError(t, err)
	_, err = w.Set(FieldComplaintType, "Other")
	require.NoError(t, err)
	_, err = w.Set(FieldOtherText, " ")
	require.NoError(t, err)
	assert.Equal(t, MsgOtherText, w.Errors()[FieldOtherText])

	_, err = w.Set(FieldComplaintType, "Booth Capturing")
	require.NoError(t, err)
	assert.NotContains(t, w.Errors(), FieldOtherText)
}

// =============================================================================
// Field Validator
// =============================================================================

func TestValidatePhone(t *testing.T) {
	v := NewComplaintForm(testLimits(), fixedNow).Validator

	tests := []struct {
		phone string
		valid bool
	}{
		{"9876543210", true},
		{"6000000000", true},
		{"7123456789", true},
		{"8123456789", true},
		{" 9876543210 ", true},
		{"987654321", false},   // 9 digits
		{"98765432101", false}, // 11 digits
		{"0123456789", false},
		{"1123456789", false},
		{"5123456789", false},
		{"98765o3210", false},
		{"+919876543210", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			res := v.Validate(FieldPhone, tt.phone, NewRecord())
			assert.Equal(t, tt.valid, res.Valid)
			if !tt.valid {
				assert.Equal(t, MsgPhone, res.Message)
			}
		})
	}
}

func TestValidateIncidentDate(t *testing.T) {
	v := NewComplaintForm(testLimits(), fixedNow).Validator

	tests := []struct {
		name string
		date string
		want Result
	}{
		{"today", "2026-03-10", Result{Valid: true}},
		{"yesterday", "2026-03-09", Result{Valid: true}},
		{"tomorrow", "2026-03-11", Result{Message: MsgFutureDate}},
		{"next year", "2027-01-01", Result{Message: MsgFutureDate}},
		{"malformed", "10/03/2026", Result{Message: MsgBadDate}},
		{"empty", "", Result{Message: "Date is required"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, v.Validate(FieldIncidentDate, tt.date, NewRecord()))
		})
	}
}

func TestValidateScalars(t *testing.T) {
	complaint := NewComplaintForm(testLimits(), fixedNow).Validator
	lawyer := NewLawyerForm().Validator

	tests := []struct {
		name  string
		v     *Validator
		field string
		value string
		want  Result
	}{
		{"time ok", complaint, FieldIncidentTime, "14:30", Result{Valid: true}},
		{"time 24h", complaint, FieldIncidentTime, "25:00", Result{Message: MsgBadTime}},
		{"time midnight", complaint, FieldIncidentTime, "00:00", Result{Valid: true}},
		{"time single-digit hour", complaint, FieldIncidentTime, "9:30", Result{Message: MsgBadTime}},
		{"time seconds", complaint, FieldIncidentTime, "09:30:00", Result{Message: MsgBadTime}},
		{"district blank", complaint, FieldDistrict, "  ", Result{Message: "District is required"}},
		{"assembly optional", complaint, FieldAssembly, "", Result{Valid: true}},
		{"description optional", complaint, FieldDescription, "", Result{Valid: true}},
		{"enum member", complaint, FieldComplaintType, "Threats to Voters", Result{Valid: true}},
		{"enum outsider", complaint, FieldComplaintType, "threats to voters", Result{Message: MsgEnumFallback}},
		{"email ok", lawyer, FieldEmail, "adv.rao@example.in", Result{Valid: true}},
		{"email no tld", lawyer, FieldEmail, "adv.rao@example", Result{Message: MsgEmail}},
		{"email spaces", lawyer, FieldEmail, "adv rao@example.in", Result{Message: MsgEmail}},
		{"court required", lawyer, FieldPracticingCourt, "", Result{Message: "Practicing Court is required"}},
		{"assembly required", lawyer, FieldAssembly, "", Result{Message: "Vidhansabha/Assembly is required"}},
		{"unknown field", lawyer, "fax", "1", Result{Message: `Unknown field "fax"`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.Validate(tt.field, tt.value, NewRecord()))
		})
	}
}

func TestValidateAttachment(t *testing.T) {
	strict := Limits{MaxImageBytes: 2048, MaxVideoBytes: 4096}
	tests := []struct {
		name   string
		limits Limits
		field  string
		file   *domain.Attachment
		want   Result
	}{
		{"photo ok", strict, FieldPhoto, jpeg(2048), Result{Valid: true}},
		{"photo wrong type", strict, FieldPhoto, mp4(10), Result{Message: MsgImageOnly}},
		{"photo too large", strict, FieldPhoto, jpeg(2049), Result{Message: "Max size 0 MB"}},
		{"photo large but compressible", testLimits(), FieldPhoto, jpeg(8000), Result{Valid: true}},
		{"video ok", strict, FieldVideo, mp4(4096), Result{Valid: true}},
		{"video wrong type", strict, FieldVideo, jpeg(10), Result{Message: MsgVideoOnly}},
		{"video too large", testLimits(), FieldVideo, mp4(4097), Result{Message: "Max size 0 MB"}},
		{"missing", strict, FieldVideo, nil, Result{Message: "Video is required"}},
		{"content type params", strict, FieldPhoto, &domain.Attachment{ContentType: "IMAGE/PNG; q=1", Data: []byte{1}}, Result{Valid: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewComplaintForm(tt.limits, fixedNow).Validator
			assert.Equal(t, tt.want, v.ValidateAttachment(tt.field, tt.file))
		})
	}
}

func TestMaxSizeMessageUsesMegabytes(t *testing.T) {
	assert.Equal(t, "Max size 10 MB", maxSizeMessage(domain.MBToBytes(10)))
	assert.Equal(t, "Max size 50 MB", maxSizeMessage(domain.MBToBytes(50)))
}

// =============================================================================
// Attachments
// =============================================================================

func TestAttach_FailedSelectionClearsField(t *testing.T) {
	var released []string
	w := newComplaintWizard(func(id string) { released = append(released, id) })

	res, firstID, err := w.Attach(FieldPhoto, jpeg(100))
	require.NoError(t, err)
	require.True(t, res.Valid)
	require.NotEmpty(t, firstID)

	res, id, err := w.Attach(FieldPhoto, mp4(100))
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, MsgImageOnly, res.Message)
	assert.Empty(t, id)

	assert.Nil(t, w.Record().File(FieldPhoto))
	_, has := w.Preview(FieldPhoto)
	assert.False(t, has)
	assert.Equal(t, []string{firstID}, released)
	assert.Equal(t, MsgImageOnly, w.Errors()[FieldPhoto])
	assert.False(t, w.Form().Steps[9].IsComplete(w.Record()))
}

func TestAttach_ReplaceReleasesPreviousPreview(t *testing.T) {
	var released []string
	w := newComplaintWizard(func(id string) { released = append(released, id) })

	_, first, err := w.Attach(FieldVideo, mp4(10))
	require.NoError(t, err)
	_, second, err := w.Attach(FieldVideo, mp4(20))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, []string{first}, released)
	assert.Equal(t, int64(20), w.Record().File(FieldVideo).Size())

	require.NoError(t, w.Detach(FieldVideo))
	assert.Equal(t, []string{first, second}, released)
	assert.Nil(t, w.Record().File(FieldVideo))
}

func TestAttach_RejectsScalarField(t *testing.T) {
	w := newComplaintWizard(nil)

	_, _, err := w.Attach(FieldName, jpeg(1))
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(w.CanAttach(FieldName)))
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(w.CanAttach("nickname")))
	assert.NoError(t, w.CanAttach(FieldVideo))
	assert.Nil(t, w.Record().File(FieldVideo))

	_, err = w.Set(FieldPhoto, "x")
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))

	_, err = w.Set("nickname", "x")
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}

// =============================================================================
// Submission
// =============================================================================

func TestSubmit_OnlyFromLastStep(t *testing.T) {
	w := newComplaintWizard(nil)
	called := false

	err := w.Submit(context.Background(), func(context.Context, *Record) error {
		called = true
		return nil
	})

	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	assert.False(t, called)
	assert.False(t, w.CanSubmit())
}

func TestSubmit_Success(t *testing.T) {
	var released []string
	w := newComplaintWizard(func(id string) { released = append(released, id) })
	fillComplaint(t, w)

	var got map[string]string
	var photo *domain.Attachment
	calls := 0
	err := w.Submit(context.Background(), func(_ context.Context, rec *Record) error {
		calls++
		got = rec.Values()
		photo = rec.File(FieldPhoto)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, "Asha Kumar", got[FieldName])
	assert.NotContains(t, got, FieldDescription)
	assert.NotNil(t, photo)

	assert.True(t, w.Submitted())
	assert.Empty(t, w.Record().Values())
	assert.Nil(t, w.Record().File(FieldPhoto))
	assert.Len(t, released, 2)

	// Terminal: nothing else is accepted.
	err = w.Submit(context.Background(), func(context.Context, *Record) error {
		calls++
		return nil
	})
	assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
	assert.Equal(t, 1, calls)

	_, err = w.Set(FieldName, "again")
	assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
	assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(w.CanAttach(FieldPhoto)))
	assert.False(t, w.Retreat())
}

func TestSubmit_ValidationFailureJumpsToFirstInvalid(t *testing.T) {
	w := newComplaintWizard(nil)
	fillComplaint(t, w)

	// Invalidate two answers after the fact; the earlier one in priority wins.
	_, err := w.Set(FieldLocation, "")
	require.NoError(t, err)
	_, err = w.Set(FieldPhone, "5123456789")
	require.NoError(t, err)

	called := false
	err = w.Submit(context.Background(), func(context.Context, *Record) error {
		called = true
		return nil
	})

	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, MsgPhone, ve.Fields[FieldPhone])
	assert.Equal(t, "Location is required", ve.Fields[FieldLocation])
	assert.False(t, called)
	assert.Equal(t, 2, w.Current())
	assert.False(t, w.Submitted())
}

func TestSubmit_OtherWithoutTextBlocked(t *testing.T) {
	w := newComplaintWizard(nil)
	fillComplaint(t, w)

	_, err := w.Set(FieldComplaintType, "Other")
	require.NoError(t, err)

	called := false
	err = w.Submit(context.Background(), func(context.Context, *Record) error {
		called = true
		return nil
	})

	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, map[string]string{FieldOtherText: MsgOtherText}, ve.Fields)
	assert.False(t, called)
	assert.Equal(t, 8, w.Current())
}

func TestSubmit_FailureKeepsRecord(t *testing.T) {
	w := newComplaintWizard(nil)
	fillComplaint(t, w)

	err := w.Submit(context.Background(), func(context.Context, *Record) error {
		return domain.Internal(errors.New("connection refused"), "complaint.submit", "insert failed")
	})
	require.Error(t, err)

	assert.False(t, w.Submitted())
	assert.Equal(t, 11, w.Current())
	assert.Equal(t, "Asha Kumar", w.Record().Get(FieldName))
	assert.NotNil(t, w.Record().File(FieldPhoto))
	assert.NotNil(t, w.Record().File(FieldVideo))
	assert.Equal(t, "An internal error occurred. Please try again later.", w.Snapshot().SubmitError)
}

func TestSubmit_FailureClearsReportedFiles(t *testing.T) {
	var released []string
	w := newComplaintWizard(func(id string) { released = append(released, id) })
	fillComplaint(t, w)

	err := w.Submit(context.Background(), func(context.Context, *Record) error {
		return &clearingErr{fields: []string{FieldPhoto, FieldVideo}}
	})
	require.Error(t, err)

	assert.Nil(t, w.Record().File(FieldPhoto))
	assert.Nil(t, w.Record().File(FieldVideo))
	assert.Len(t, released, 2)
	assert.Equal(t, "Patna", w.Record().Get(FieldDistrict))
	assert.Equal(t, 11, w.Current())
	assert.False(t, w.CanAdvance())
}

func TestLawyerInvalidWhatsAppBlocksSubmit(t *testing.T) {
	w := New(NewLawyerForm(), nil)

	_, err := w.Set(FieldName, "Adv. Meera Rao")
	require.NoError(t, err)
	require.True(t, w.Advance())

	res, err := w.Set(FieldWhatsApp, "5123456789")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.False(t, w.Advance())
	assert.False(t, w.CanSubmit())

	called := false
	err = w.Submit(context.Background(), func(context.Context, *Record) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)
}

func TestReset(t *testing.T) {
	var released []string
	w := newComplaintWizard(func(id string) { released = append(released, id) })
	fillComplaint(t, w)

	w.Reset()

	assert.Equal(t, 1, w.Current())
	assert.Empty(t, w.Record().Values())
	assert.Empty(t, w.Errors())
	assert.Len(t, released, 2)
}

func TestSnapshot(t *testing.T) {
	w := newComplaintWizard(nil)
	_, err := w.Set(FieldName, "Asha")
	require.NoError(t, err)
	require.True(t, w.Advance())
	_, _, err = w.Attach(FieldPhoto, jpeg(64))
	require.NoError(t, err)

	s := w.Snapshot()

	assert.Equal(t, FormComplaint, s.Form)
	assert.Equal(t, 2, s.Step)
	assert.Equal(t, "phone", s.StepName)
	assert.Equal(t, 11, s.TotalSteps)
	assert.Equal(t, []string{FieldPhone}, s.StepFields)
	assert.Equal(t, "Asha", s.Answers[FieldName])
	assert.False(t, s.CanAdvance)
	assert.True(t, s.CanRetreat)
	assert.False(t, s.CanSubmit)
	require.Contains(t, s.Attachments, FieldPhoto)
	assert.Equal(t, int64(64), s.Attachments[FieldPhoto].Size)
	assert.Equal(t, "image/jpeg", s.Attachments[FieldPhoto].ContentType)
}
