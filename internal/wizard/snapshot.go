package wizard

// Snapshot is the client-facing view of a wizard's state.
type Snapshot struct {
	Form        string                    `json:"form"`
	Step        int                       `json:"step"`
	StepName    string                    `json:"step_name"`
	TotalSteps  int                       `json:"total_steps"`
	StepFields  []string                  `json:"step_fields"`
	Answers     map[string]string         `json:"answers"`
	Attachments map[string]AttachmentInfo `json:"attachments"`
	Errors      map[string]string         `json:"errors"`
	SubmitError string                    `json:"submit_error,omitempty"`
	CanAdvance  bool                      `json:"can_advance"`
	CanRetreat  bool                      `json:"can_retreat"`
	CanSubmit   bool                      `json:"can_submit"`
	Submitted   bool                      `json:"submitted"`
}

// AttachmentInfo describes a selected file without its contents.
type AttachmentInfo struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	PreviewID   string `json:"preview_id"`
}

// Snapshot returns the current state for rendering.
func (w *Wizard) Snapshot() Snapshot {
	step := w.Step()
	s := Snapshot{
		Form:        w.form.Name,
		Step:        step.Index,
		StepName:    step.Name,
		TotalSteps:  len(w.form.Steps),
		StepFields:  append([]string(nil), step.Fields...),
		Answers:     w.record.Values(),
		Attachments: make(map[string]AttachmentInfo, len(w.previews)),
		Errors:      w.Errors(),
		SubmitError: w.submitErr,
		CanAdvance:  w.CanAdvance(),
		CanRetreat:  w.CanRetreat(),
		CanSubmit:   w.CanSubmit(),
		Submitted:   w.submitted,
	}
	for field, id := range w.previews {
		a := w.record.File(field)
		if a == nil {
			continue
		}
		s.Attachments[field] = AttachmentInfo{
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Size:        a.Size(),
			PreviewID:   id,
		}
	}
	return s
}
