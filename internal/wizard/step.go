package wizard

// Step is one screen of a wizard.
type Step struct {
	Index    int      // 1-based position
	Name     string   // Stable identifier, e.g. "complaint_type"
	Fields   []string // Fields collected on this step
	Optional bool     // Optional steps never gate navigation

	// IsComplete reports whether the user may move past this step.
	IsComplete func(rec *Record) bool
}

// Form is a fixed step table plus the validator for its fields.
type Form struct {
	Name      string
	Steps     []Step
	Validator *Validator

	// Priority is the declared order in which invalid fields are searched
	// when a submit fails validation.
	Priority []string
}

// StepOf returns the 0-based position of the step collecting field,
// or -1 if no step owns it.
func (f *Form) StepOf(field string) int {
	for i, s := range f.Steps {
		for _, sf := range s.Fields {
			if sf == field {
				return i
			}
		}
	}
	return -1
}

// Last returns the 0-based position of the final step.
func (f *Form) Last() int {
	return len(f.Steps) - 1
}

// fieldsValid builds a completeness predicate that holds when every listed
// field passes validation.
func fieldsValid(v *Validator, fields ...string) func(rec *Record) bool {
	return func(rec *Record) bool {
		for _, field := range fields {
			if !v.Validate(field, rec.Get(field), rec).Valid {
				return false
			}
		}
		return true
	}
}

// always is the predicate for optional steps.
func always(*Record) bool { return true }

// buildSteps derives a step table from an ordered list of field groups.
// Optional steps are always complete; the rest require every field valid.
func buildSteps(v *Validator, defs []stepDef) []Step {
	steps := make([]Step, 0, len(defs))
	for i, d := range defs {
		s := Step{
			Index:    i + 1,
			Name:     d.name,
			Fields:   d.fields,
			Optional: d.optional,
		}
		if d.optional {
			s.IsComplete = always
		} else {
			s.IsComplete = fieldsValid(v, d.fields...)
		}
		steps = append(steps, s)
	}
	return steps
}

type stepDef struct {
	name     string
	fields   []string
	optional bool
}
