// Package wizard implements the step-by-step form engine shared by the
// complaint form and the lawyer form.
//
// A Form pairs an ordered Step table with a Validator. A Wizard drives one
// user's pass through a Form: it holds the answer Record, gates forward
// navigation on step completeness, and hands the finished Record to a
// submission function exactly once.
package wizard

import (
	"strings"

	"github.com/shaktiabhiyan/taskforce/internal/domain"
)

// Record is the accumulating set of answers for one form session.
// Scalar answers and file attachments are kept apart.
type Record struct {
	values map[string]string
	files  map[string]*domain.Attachment
}

// NewRecord returns an empty Record.
func NewRecord() *Record {
	return &Record{
		values: make(map[string]string),
		files:  make(map[string]*domain.Attachment),
	}
}

// Get returns the raw scalar answer for field, or "" if unset.
func (r *Record) Get(field string) string {
	return r.values[field]
}

// Text returns the scalar answer for field with surrounding whitespace removed.
func (r *Record) Text(field string) string {
	return strings.TrimSpace(r.values[field])
}

// File returns the attachment for field, or nil if none is selected.
func (r *Record) File(field string) *domain.Attachment {
	return r.files[field]
}

// Values returns a copy of all scalar answers.
func (r *Record) Values() map[string]string {
	out := make(map[string]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// Set stores a scalar answer. An empty value removes the field.
func (r *Record) Set(field, value string) {
	if value == "" {
		delete(r.values, field)
		return
	}
	r.values[field] = value
}

// SetFile stores an attachment. A nil attachment removes the field.
func (r *Record) SetFile(field string, a *domain.Attachment) {
	if a == nil {
		delete(r.files, field)
		return
	}
	r.files[field] = a
}

// Clear drops every answer.
func (r *Record) Clear() {
	r.values = make(map[string]string)
	r.files = make(map[string]*domain.Attachment)
}
