package wizard

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shaktiabhiyan/taskforce/internal/domain"
)

// =============================================================================
// Rule Definitions
// =============================================================================

// Kind selects the format check applied to a field.
type Kind int

const (
	KindText  Kind = iota // Free text, required unless Optional
	KindPhone             // Indian mobile number
	KindEmail             // RFC-shaped address
	KindEnum              // Member of Options
	KindDate              // YYYY-MM-DD, not in the future
	KindTime              // HH:mm (24h)
	KindFile              // Attachment of the declared MediaClass
)

// Rule declares how a single field is validated.
type Rule struct {
	Field    string
	Label    string
	Kind     Kind
	Optional bool
	Options  []string          // KindEnum only
	Media    domain.MediaClass // KindFile only
}

// CrossRule validates a field against other answers in the record.
// It runs after the field's own Rule passes.
type CrossRule struct {
	Field string
	Check func(rec *Record) Result
}

// Result is the outcome of validating one field.
type Result struct {
	Valid   bool
	Message string
}

func ok() Result { return Result{Valid: true} }

func fail(msg string) Result { return Result{Valid: false, Message: msg} }

// Messages
const (
	MsgPhone        = "Enter a valid 10-digit Indian mobile number"
	MsgEmail        = "Enter a valid email address"
	MsgFutureDate   = "Date cannot be in the future"
	MsgBadDate      = "Enter a valid date"
	MsgBadTime      = "Enter a valid time"
	MsgOtherText    = "Please specify your complaint type"
	MsgImageOnly    = "Only image files are allowed"
	MsgVideoOnly    = "Only video files are allowed"
	MsgEnumFallback = "Select one of the listed options"
)

var (
	phonePattern = regexp.MustCompile(`^[6-9]\d{9}$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	timePattern  = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

// Limits are the configured attachment ceilings.
type Limits struct {
	MaxImageBytes int64
	MaxVideoBytes int64

	// CompressImages defers the photo size check to the upload pipeline,
	// which compresses oversized photos before re-checking.
	CompressImages bool
}

// DefaultLimits returns the stock ceilings (10 MB photo, 50 MB video).
func DefaultLimits() Limits {
	return Limits{
		MaxImageBytes:  domain.MBToBytes(domain.DefaultMaxImageMB),
		MaxVideoBytes:  domain.MBToBytes(domain.DefaultMaxVideoMB),
		CompressImages: true,
	}
}

// =============================================================================
// Validator
// =============================================================================

// Validator evaluates field rules against a Record.
type Validator struct {
	rules  map[string]Rule
	order  []string
	cross  map[string]CrossRule
	limits Limits
	now    func() time.Time
}

// NewValidator creates a Validator for the given rules. now supplies the
// local clock used for date checks; nil means time.Now.
func NewValidator(rules []Rule, cross []CrossRule, limits Limits, now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	v := &Validator{
		rules:  make(map[string]Rule, len(rules)),
		cross:  make(map[string]CrossRule, len(cross)),
		limits: limits,
		now:    now,
	}
	for _, r := range rules {
		v.rules[r.Field] = r
		v.order = append(v.order, r.Field)
	}
	for _, c := range cross {
		v.cross[c.Field] = c
	}
	return v
}

// Rule returns the rule for field.
func (v *Validator) Rule(field string) (Rule, bool) {
	r, ok := v.rules[field]
	return r, ok
}

// Fields returns the field names in declaration order.
func (v *Validator) Fields() []string {
	out := make([]string, len(v.order))
	copy(out, v.order)
	return out
}

// Validate checks value for field in the context of rec. For file fields
// value is ignored and the attachment in rec is checked instead.
func (v *Validator) Validate(field, value string, rec *Record) Result {
	rule, known := v.rules[field]
	if !known {
		return fail(fmt.Sprintf("Unknown field %q", field))
	}

	var res Result
	if rule.Kind == KindFile {
		res = v.checkFile(rule, rec.File(field))
	} else {
		res = v.checkScalar(rule, value)
	}
	if !res.Valid {
		return res
	}

	if c, has := v.cross[field]; has {
		return c.Check(rec)
	}
	return res
}

// ValidateAttachment checks a candidate file for field before it is stored.
// A nil attachment is reported as missing.
func (v *Validator) ValidateAttachment(field string, a *domain.Attachment) Result {
	rule, known := v.rules[field]
	if !known || rule.Kind != KindFile {
		return fail(fmt.Sprintf("Field %q does not accept files", field))
	}
	return v.checkFile(rule, a)
}

// ValidateRecord checks every field and cross rule, returning the failing
// fields and their messages. An empty map means the record is valid.
func (v *Validator) ValidateRecord(rec *Record) map[string]string {
	errs := make(map[string]string)
	for _, field := range v.order {
		if res := v.Validate(field, rec.Get(field), rec); !res.Valid {
			errs[field] = res.Message
		}
	}
	for field, c := range v.cross {
		if _, declared := v.rules[field]; declared {
			continue // already covered above
		}
		if res := c.Check(rec); !res.Valid {
			errs[field] = res.Message
		}
	}
	return errs
}

func (v *Validator) checkScalar(rule Rule, value string) Result {
	value = strings.TrimSpace(value)
	if value == "" {
		if rule.Optional {
			return ok()
		}
		if rule.Kind == KindPhone {
			return fail(MsgPhone)
		}
		return fail(rule.Label + " is required")
	}

	switch rule.Kind {
	case KindPhone:
		if !phonePattern.MatchString(value) {
			return fail(MsgPhone)
		}
	case KindEmail:
		if !emailPattern.MatchString(value) {
			return fail(MsgEmail)
		}
	case KindEnum:
		for _, opt := range rule.Options {
			if opt == value {
				return ok()
			}
		}
		return fail(MsgEnumFallback)
	case KindDate:
		return v.checkDate(value)
	case KindTime:
		// time.Parse alone accepts single-digit hours.
		if !timePattern.MatchString(value) {
			return fail(MsgBadTime)
		}
		if _, err := time.Parse("15:04", value); err != nil {
			return fail(MsgBadTime)
		}
	}
	return ok()
}

// checkDate rejects dates after today in the validator's clock location,
// compared at day granularity.
func (v *Validator) checkDate(value string) Result {
	now := v.now()
	d, err := time.ParseInLocation("2006-01-02", value, now.Location())
	if err != nil {
		return fail(MsgBadDate)
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if d.After(today) {
		return fail(MsgFutureDate)
	}
	return ok()
}

// checkFile checks the MIME class first, then size. Oversized photos pass
// when compression is enabled; the upload pipeline enforces the ceiling.
func (v *Validator) checkFile(rule Rule, a *domain.Attachment) Result {
	if a == nil {
		if rule.Optional {
			return ok()
		}
		return fail(rule.Label + " is required")
	}

	if !rule.Media.Matches(a.ContentType) {
		if rule.Media == domain.MediaVideo {
			return fail(MsgVideoOnly)
		}
		return fail(MsgImageOnly)
	}

	switch rule.Media {
	case domain.MediaImage:
		if !v.limits.CompressImages && a.Size() > v.limits.MaxImageBytes {
			return fail(maxSizeMessage(v.limits.MaxImageBytes))
		}
	case domain.MediaVideo:
		if a.Size() > v.limits.MaxVideoBytes {
			return fail(maxSizeMessage(v.limits.MaxVideoBytes))
		}
	}
	return ok()
}

func maxSizeMessage(limit int64) string {
	return fmt.Sprintf("Max size %d MB", limit/(1024*1024))
}
