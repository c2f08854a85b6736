package wizard

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shaktiabhiyan/taskforce/internal/domain"
)

// SubmitFunc persists a completed Record. It is called at most once per
// successful Submit.
type SubmitFunc func(ctx context.Context, rec *Record) error

// Releaser frees a preview handle that is no longer referenced.
type Releaser func(previewID string)

// FieldClearer is implemented by submission errors that require the user to
// re-attach specific files before trying again.
type FieldClearer interface {
	ClearFields() []string
}

// Wizard drives a single user's pass through a Form. It is not safe for
// concurrent use; callers serialise access per session.
type Wizard struct {
	form      *Form
	current   int // 0-based
	record    *Record
	errors    map[string]string
	submitErr string
	previews  map[string]string // field -> preview ID
	release   Releaser
	submitted bool
}

// New creates a Wizard positioned on the first step with an empty record.
// release may be nil.
func New(form *Form, release Releaser) *Wizard {
	if release == nil {
		release = func(string) {}
	}
	return &Wizard{
		form:     form,
		record:   NewRecord(),
		errors:   make(map[string]string),
		previews: make(map[string]string),
		release:  release,
	}
}

// Form returns the form definition driving this wizard.
func (w *Wizard) Form() *Form { return w.form }

// Record returns the live answer record.
func (w *Wizard) Record() *Record { return w.record }

// Current returns the 1-based index of the active step.
func (w *Wizard) Current() int { return w.current + 1 }

// Step returns the active step.
func (w *Wizard) Step() Step { return w.form.Steps[w.current] }

// Errors returns a copy of the per-field error messages.
func (w *Wizard) Errors() map[string]string {
	out := make(map[string]string, len(w.errors))
	for k, v := range w.errors {
		out[k] = v
	}
	return out
}

// Submitted reports whether the wizard reached its terminal state.
func (w *Wizard) Submitted() bool { return w.submitted }

// CanAdvance reports whether Advance would move forward.
func (w *Wizard) CanAdvance() bool {
	return !w.submitted && w.current < w.form.Last() && w.Step().IsComplete(w.record)
}

// CanRetreat reports whether Retreat would move back.
func (w *Wizard) CanRetreat() bool {
	return !w.submitted && w.current > 0
}

// CanSubmit reports whether the submit action is reachable.
func (w *Wizard) CanSubmit() bool {
	return !w.submitted && w.current == w.form.Last()
}

// =============================================================================
// Answer Mutation
// =============================================================================

// Set validates and stores a scalar answer. The value is stored even when
// invalid so the user can keep editing; the returned Result carries the
// message, which is also recorded in Errors.
func (w *Wizard) Set(field, value string) (Result, error) {
	const op = "wizard.set"

	if w.submitted {
		return Result{}, domain.Conflict(op, "This form has already been submitted")
	}
	rule, known := w.form.Validator.Rule(field)
	if !known {
		return Result{}, domain.Invalid(op, "Unknown field")
	}
	if rule.Kind == KindFile {
		return Result{}, domain.Invalid(op, "Use a file upload for this field")
	}

	w.record.Set(field, value)
	w.submitErr = ""
	res := w.form.Validator.Validate(field, value, w.record)
	w.recordResult(field, res)

	// A type change can flip the cross-field rule on other_text.
	if field == FieldComplaintType {
		if _, has := w.form.Validator.Rule(FieldOtherText); has {
			other := w.form.Validator.Validate(FieldOtherText, w.record.Get(FieldOtherText), w.record)
			if other.Valid || w.record.Get(FieldOtherText) != "" {
				w.recordResult(FieldOtherText, other)
			}
		}
	}
	return res, nil
}

// Attach validates a selected file and stores it. A rejected file clears the
// field: any earlier selection is dropped and its preview released, so the
// step becomes incomplete until a valid file is chosen.
func (w *Wizard) Attach(field string, a *domain.Attachment) (Result, string, error) {
	if err := w.checkFileField("wizard.attach", field); err != nil {
		return Result{}, "", err
	}

	res := w.form.Validator.ValidateAttachment(field, a)
	w.dropFile(field)
	w.submitErr = ""
	if !res.Valid {
		w.errors[field] = res.Message
		return res, "", nil
	}

	w.record.SetFile(field, a)
	id := uuid.NewString()
	w.previews[field] = id
	delete(w.errors, field)
	return res, id, nil
}

// Detach removes the file selected for field and releases its preview.
func (w *Wizard) Detach(field string) error {
	if err := w.checkFileField("wizard.detach", field); err != nil {
		return err
	}
	w.dropFile(field)
	delete(w.errors, field)
	return nil
}

// CanAttach reports whether field currently accepts a file, without
// changing any state.
func (w *Wizard) CanAttach(field string) error {
	return w.checkFileField("wizard.attach", field)
}

func (w *Wizard) checkFileField(op, field string) error {
	if w.submitted {
		return domain.Conflict(op, "This form has already been submitted")
	}
	rule, known := w.form.Validator.Rule(field)
	if !known || rule.Kind != KindFile {
		return domain.Invalid(op, "Field does not accept files")
	}
	return nil
}

// Preview returns the preview handle for field, if a file is attached.
func (w *Wizard) Preview(field string) (string, bool) {
	id, ok := w.previews[field]
	return id, ok
}

func (w *Wizard) dropFile(field string) {
	if id, ok := w.previews[field]; ok {
		w.release(id)
		delete(w.previews, field)
	}
	w.record.SetFile(field, nil)
}

func (w *Wizard) recordResult(field string, res Result) {
	if res.Valid {
		delete(w.errors, field)
		return
	}
	w.errors[field] = res.Message
}

// =============================================================================
// Navigation
// =============================================================================

// Advance moves to the next step. It is a no-op on the last step or when the
// current step is incomplete. Returns true if the wizard moved.
func (w *Wizard) Advance() bool {
	if !w.CanAdvance() {
		return false
	}
	w.current++
	return true
}

// Retreat moves to the previous step. It is never blocked by validation and
// is a no-op only on the first step. Returns true if the wizard moved.
func (w *Wizard) Retreat() bool {
	if !w.CanRetreat() {
		return false
	}
	w.current--
	return true
}

// JumpToFirstInvalid moves to the step owning the highest-priority field
// present in errs. It returns the chosen field, or "" when none matched.
func (w *Wizard) JumpToFirstInvalid(errs map[string]string) string {
	for _, field := range w.form.Priority {
		if _, bad := errs[field]; !bad {
			continue
		}
		if idx := w.form.StepOf(field); idx >= 0 {
			w.current = idx
			return field
		}
	}
	return ""
}

// =============================================================================
// Submission
// =============================================================================

// Submit validates the whole record and hands it to fn.
//
// Only reachable from the last step. On validation failure the wizard jumps
// to the first invalid step and fn is not called. On fn failure the record is
// kept, except for files named by a FieldClearer error, and the wizard stays
// on the last step. On success the record is cleared and the wizard becomes
// terminal.
func (w *Wizard) Submit(ctx context.Context, fn SubmitFunc) error {
	const op = "wizard.submit"

	if w.submitted {
		return domain.Conflict(op, "This form has already been submitted")
	}
	if !w.CanSubmit() {
		return domain.Invalid(op, "Complete every step before submitting")
	}

	errs := w.ValidateAll()
	if len(errs) > 0 {
		w.JumpToFirstInvalid(errs)
		return &domain.ValidationError{Op: op, Fields: errs}
	}

	if err := fn(ctx, w.record); err != nil {
		var fc FieldClearer
		if errors.As(err, &fc) {
			for _, field := range fc.ClearFields() {
				w.dropFile(field)
			}
		}
		w.submitErr = domain.ErrorMessage(err)
		return err
	}

	for field := range w.previews {
		w.dropFile(field)
	}
	w.record.Clear()
	w.errors = make(map[string]string)
	w.submitErr = ""
	w.submitted = true
	return nil
}

// ValidateAll runs every field and cross-field rule against the record and
// replaces the stored errors with the result.
func (w *Wizard) ValidateAll() map[string]string {
	w.errors = w.form.Validator.ValidateRecord(w.record)
	return w.Errors()
}

// Reset returns the wizard to the first step with an empty record.
func (w *Wizard) Reset() {
	for field := range w.previews {
		w.dropFile(field)
	}
	w.record.Clear()
	w.errors = make(map[string]string)
	w.submitErr = ""
	w.current = 0
	w.submitted = false
}

// Close releases every preview held by the wizard. Call when the owning
// session ends.
func (w *Wizard) Close() {
	for field := range w.previews {
		w.dropFile(field)
	}
}
