// Package chatbot implements the voter-roll audit conversation: participant
// lookup or registration, audit description, evidence upload and submission.
//
// The flow returns prompt and notice keys rather than copy; rendering the
// conversation in a language is the client's job.
package chatbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/shaktiabhiyan/taskforce/internal/domain"
	"github.com/shaktiabhiyan/taskforce/internal/metrics"
	"github.com/shaktiabhiyan/taskforce/internal/voteraudit"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// Steps, Prompts and Notices
// =============================================================================

// Step is a position in the conversation.
type Step string

const (
	StepLanguage    Step = "language"
	StepMobile      Step = "mobile"
	StepName        Step = "name"
	StepState       Step = "state"
	StepDistrict    Step = "district"
	StepAssembly    Step = "assembly"
	StepBooth       Step = "booth"
	StepDescription Step = "description"
	StepImages      Step = "images"
	StepCompleted   Step = "completed"
)

// Prompt keys. Each step has one.
const (
	PromptLanguage    = "select_language"
	PromptMobile      = "enter_mobile"
	PromptName        = "enter_name"
	PromptState       = "select_state"
	PromptDistrict    = "select_district"
	PromptAssembly    = "select_assembly"
	PromptBooth       = "enter_booth"
	PromptDescription = "enter_description"
	PromptImages      = "upload_documents"
	PromptCompleted   = "thank_you"
)

// Notice keys describe what happened with the last input.
const (
	NoticeWelcomeBack      = "welcome_back"
	NoticeLoggedIn         = "logged_in"
	NoticeInvalidMobile    = "invalid_mobile"
	NoticeInvalidName      = "invalid_name"
	NoticeInvalidOption    = "select_from_options"
	NoticeNoDistricts      = "districts_unavailable"
	NoticeNoAssemblies     = "assemblies_unavailable"
	NoticeInvalidBooth     = "invalid_booth"
	NoticeAccountCreated   = "account_created"
	NoticeCreateFailed     = "create_user_failed"
	NoticeLoginFailed      = "login_failed"
	NoticeInvalidDesc      = "invalid_description"
	NoticeUseUpload        = "use_upload_button"
	NoticeUploaded         = "files_uploaded"
	NoticeUploadFirst      = "upload_documents_first"
	NoticeSessionExpired   = "session_expired"
	NoticeAlreadySubmitted = "already_submitted"
	NoticeNotUnderstood    = "not_understood"
	NoticeCertificate      = "certificate_ready"
)

// User-facing messages for failures reported as errors.
const (
	MsgConnection     = "Connection problem. Please try again."
	MsgUploadFailed   = "Upload error occurred. Please try again."
	MsgSubmitFailed   = "Submission error occurred. Please try again."
	MsgWrongStep      = "That action is not available at this point in the conversation."
	MsgUnsupportedDoc = "Only images and PDF documents can be uploaded."
)

// languageOptions are offered on the first step, in display order.
var languageOptions = []string{"English", "हिंदी"}

var languageAliases = map[string]Language{
	"english": LanguageEnglish,
	"en":      LanguageEnglish,
	"हिंदी":   LanguageHindi,
	"hindi":   LanguageHindi,
	"hi":      LanguageHindi,
}

var mobilePattern = regexp.MustCompile(`^\d{10}$`)

// Reply is the flow's answer to one interaction.
type Reply struct {
	Step    Step     `json:"step"`
	Prompt  string   `json:"prompt"`
	Notice  string   `json:"notice,omitempty"`
	Detail  string   `json:"detail,omitempty"` // Upstream explanation, when one was given
	Options []string `json:"options,omitempty"`

	Language        Language `json:"language"`
	Authenticated   bool     `json:"authenticated"`
	UploadedCount   int      `json:"uploaded_count"`
	CertificateName string   `json:"certificate_name,omitempty"`
}

// =============================================================================
// Flow
// =============================================================================

// Uploader hosts evidence files and returns their public URL.
type Uploader interface {
	Upload(ctx context.Context, filename, contentType string, data []byte) (string, error)
}

// Config bounds evidence uploads.
type Config struct {
	MaxFileBytes   int64 // Per file
	MaxFiles       int   // Per upload call
	MaxConcurrency int   // Parallel uploads
}

// Flow drives chatbot sessions. It holds no per-participant state and is
// safe for concurrent use across sessions.
type Flow struct {
	api      voteraudit.Client
	uploader Uploader
	regions  *Directory
	cfg      Config
	now      func() time.Time
	logger   *slog.Logger
}

// NewFlow creates a Flow.
func NewFlow(api voteraudit.Client, uploader Uploader, regions *Directory, cfg Config, logger *slog.Logger) *Flow {
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = domain.MBToBytes(domain.DefaultMaxImageMB)
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = 10
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}
	return &Flow{
		api:      api,
		uploader: uploader,
		regions:  regions,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger,
	}
}

// Start opens the conversation. A session still holding a live token
// resumes at the description step.
func (f *Flow) Start(sess *Session) Reply {
	if sess.Authenticated(f.now()) {
		return f.moveTo(sess, StepDescription, NoticeWelcomeBack)
	}
	sess.Close()
	return f.moveTo(sess, StepLanguage, "")
}

// Current restates the prompt of the session's step.
func (f *Flow) Current(sess *Session) Reply {
	return f.reply(sess, "")
}

// Handle processes one typed message or option click.
func (f *Flow) Handle(ctx context.Context, sess *Session, input string) (Reply, error) {
	input = strings.TrimSpace(input)

	switch sess.Step {
	case StepLanguage:
		lang, ok := languageAliases[strings.ToLower(input)]
		if !ok {
			return f.reply(sess, NoticeInvalidOption), nil
		}
		sess.Language = lang
		return f.moveTo(sess, StepMobile, ""), nil

	case StepMobile:
		return f.handleMobile(ctx, sess, input)

	case StepName:
		if input == "" {
			return f.reply(sess, NoticeInvalidName), nil
		}
		sess.User.Name = input
		return f.moveTo(sess, StepState, ""), nil

	case StepState:
		state, ok := matchOption(f.regions.StateNames(), input)
		if !ok {
			return f.reply(sess, NoticeInvalidOption), nil
		}
		if len(f.regions.DistrictNames(state)) == 0 {
			return f.reply(sess, NoticeNoDistricts), nil
		}
		sess.User.State = state
		return f.moveTo(sess, StepDistrict, ""), nil

	case StepDistrict:
		district, ok := matchOption(f.regions.DistrictNames(sess.User.State), input)
		if !ok {
			return f.reply(sess, NoticeInvalidOption), nil
		}
		if len(f.regions.AssemblyNames(sess.User.State, district)) == 0 {
			return f.reply(sess, NoticeNoAssemblies), nil
		}
		sess.User.District = district
		return f.moveTo(sess, StepAssembly, ""), nil

	case StepAssembly:
		assembly, ok := matchOption(f.regions.AssemblyNames(sess.User.State, sess.User.District), input)
		if !ok {
			return f.reply(sess, NoticeInvalidOption), nil
		}
		sess.User.Assembly = assembly
		return f.moveTo(sess, StepBooth, ""), nil

	case StepBooth:
		if input == "" {
			return f.reply(sess, NoticeInvalidBooth), nil
		}
		sess.User.BoothNumber = input
		return f.register(ctx, sess)

	case StepDescription:
		if input == "" {
			return f.reply(sess, NoticeInvalidDesc), nil
		}
		sess.Description = input
		return f.moveTo(sess, StepImages, ""), nil

	case StepImages:
		return f.reply(sess, NoticeUseUpload), nil

	case StepCompleted:
		return f.reply(sess, NoticeAlreadySubmitted), nil
	}

	return f.reply(sess, NoticeNotUnderstood), nil
}

// handleMobile looks the participant up and either logs in or starts
// registration.
func (f *Flow) handleMobile(ctx context.Context, sess *Session, phone string) (Reply, error) {
	const op = "chatbot.mobile"

	if !mobilePattern.MatchString(phone) {
		return f.reply(sess, NoticeInvalidMobile), nil
	}

	status, err := f.api.CheckUser(ctx, phone)
	if err != nil {
		f.logger.Error("voter audit user check failed", "error", err)
		return f.reply(sess, ""), domain.Unavailable(err, op, MsgConnection)
	}

	switch status {
	case voteraudit.UserExists:
		if err := f.login(ctx, sess, phone); err != nil {
			f.logger.Warn("voter audit login failed", "error", err)
			r := f.reply(sess, NoticeLoginFailed)
			r.Detail = voteraudit.RejectionMessage(err)
			return r, nil
		}
		return f.moveTo(sess, StepDescription, NoticeLoggedIn), nil

	default:
		sess.registrationPhone = phone
		sess.User = domain.AuditUser{Phone: phone}
		return f.moveTo(sess, StepName, ""), nil
	}
}

// register creates the participant collected during registration, then
// logs in. Failures send the participant back to the mobile step.
func (f *Flow) register(ctx context.Context, sess *Session) (Reply, error) {
	const op = "chatbot.register"

	if sess.registrationPhone == "" || sess.Authenticated(f.now()) {
		return f.moveTo(sess, StepDescription, ""), nil
	}

	err := f.api.CreateUser(ctx, voteraudit.NewUser{
		Phone:       sess.registrationPhone,
		Name:        sess.User.Name,
		State:       sess.User.State,
		District:    sess.User.District,
		Assembly:    sess.User.Assembly,
		BoothNumber: sess.User.BoothNumber,
	})
	if err != nil {
		f.logger.Error("voter audit registration failed", "error", err, "state", sess.User.State)
		if errors.Is(err, voteraudit.ErrRejected) {
			r := f.moveTo(sess, StepMobile, NoticeCreateFailed)
			r.Detail = voteraudit.RejectionMessage(err)
			return r, nil
		}
		return f.moveTo(sess, StepMobile, NoticeCreateFailed), domain.Unavailable(err, op, MsgConnection)
	}

	if err := f.login(ctx, sess, sess.registrationPhone); err != nil {
		f.logger.Error("voter audit login after registration failed", "error", err)
		return f.moveTo(sess, StepMobile, NoticeLoginFailed), nil
	}

	sess.registrationPhone = ""
	return f.moveTo(sess, StepDescription, NoticeAccountCreated), nil
}

func (f *Flow) login(ctx context.Context, sess *Session, phone string) error {
	res, err := f.api.Login(ctx, phone)
	if err != nil {
		return err
	}
	sess.SetToken(res.Token)
	if res.User.Phone == "" {
		res.User.Phone = phone
	}
	sess.User = res.User
	return nil
}

// =============================================================================
// Evidence and Submission
// =============================================================================

// Attach uploads evidence files concurrently. Either every file is added or
// none is; the session stays on the images step.
func (f *Flow) Attach(ctx context.Context, sess *Session, files []*domain.Attachment) (Reply, error) {
	const op = "chatbot.attach"

	if sess.Step != StepImages {
		return f.reply(sess, ""), domain.Conflict(op, MsgWrongStep)
	}
	if len(files) == 0 {
		return f.reply(sess, NoticeUseUpload), nil
	}
	if len(files) > f.cfg.MaxFiles {
		return f.reply(sess, ""), domain.Invalid(op, fmt.Sprintf("Too many files. Upload at most %d at a time.", f.cfg.MaxFiles))
	}
	for _, a := range files {
		if !isEvidence(a.ContentType) {
			return f.reply(sess, ""), domain.Invalid(op, MsgUnsupportedDoc)
		}
		if a.Size() > f.cfg.MaxFileBytes {
			return f.reply(sess, ""), domain.TooLarge(op, "Each file must be "+domain.HumanMB(f.cfg.MaxFileBytes)+" or less")
		}
	}

	urls := make([]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.cfg.MaxConcurrency)
	for i, a := range files {
		g.Go(func() error {
			url, err := f.uploader.Upload(gctx, a.Filename, a.ContentType, a.Data)
			if err != nil {
				return err
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		metrics.UploadFailed("evidence", "failed")
		f.logger.Error("evidence upload failed", "error", err, "files", len(files))
		return f.reply(sess, ""), domain.Unavailable(err, op, MsgUploadFailed)
	}

	sess.ImageURLs = append(sess.ImageURLs, urls...)
	for _, a := range files {
		metrics.UploadSucceeded("evidence", a.Size())
	}
	return f.reply(sess, NoticeUploaded), nil
}

// Submit sends the audit. Without uploaded evidence nothing is sent. A
// rejected or expired token returns the participant to the mobile step.
func (f *Flow) Submit(ctx context.Context, sess *Session) (Reply, error) {
	const op = "chatbot.submit"

	if sess.Step != StepImages {
		if sess.Step == StepCompleted {
			return f.reply(sess, NoticeAlreadySubmitted), nil
		}
		return f.reply(sess, ""), domain.Conflict(op, MsgWrongStep)
	}
	if len(sess.ImageURLs) == 0 {
		return f.reply(sess, NoticeUploadFirst), nil
	}
	if !sess.Authenticated(f.now()) {
		sess.Logout()
		return f.moveTo(sess, StepMobile, NoticeSessionExpired), nil
	}

	start := f.now()
	record := domain.AuditRecord{
		ImageURLs:   append([]string(nil), sess.ImageURLs...),
		Description: sess.Description,
		Location:    sess.Location(),
	}
	if err := f.api.SubmitAudit(ctx, sess.Token, record); err != nil {
		if errors.Is(err, voteraudit.ErrUnauthorized) {
			sess.Logout()
			return f.moveTo(sess, StepMobile, NoticeSessionExpired), nil
		}
		metrics.SubmissionFailed("voter_audit", string(StepImages))
		f.logger.Error("audit submission failed", "error", err)
		return f.reply(sess, ""), domain.Unavailable(err, op, MsgSubmitFailed)
	}

	metrics.SubmissionSucceeded("voter_audit", f.now().Sub(start))
	f.logger.Info("audit submitted",
		"state", record.Location.State,
		"district", record.Location.District,
		"images", len(record.ImageURLs),
	)

	sess.certificateName = sess.User.Name
	notice := ""
	if sess.certificateName != "" {
		notice = NoticeCertificate
	}
	return f.moveTo(sess, StepCompleted, notice), nil
}

// StartNewComplaint begins another audit for the same participant.
func (f *Flow) StartNewComplaint(sess *Session) Reply {
	sess.clearAudit()
	return f.moveTo(sess, StepDescription, "")
}

// Reset tears the session down and restarts at the language step.
func (f *Flow) Reset(sess *Session) Reply {
	sess.Close()
	return f.moveTo(sess, StepLanguage, "")
}

// =============================================================================
// Helper Functions
// =============================================================================

func (f *Flow) moveTo(sess *Session, step Step, notice string) Reply {
	sess.Step = step
	metrics.ChatbotStep(string(step))
	return f.reply(sess, notice)
}

// reply describes the session's current step.
func (f *Flow) reply(sess *Session, notice string) Reply {
	r := Reply{
		Step:            sess.Step,
		Notice:          notice,
		Language:        sess.Language,
		Authenticated:   sess.Authenticated(f.now()),
		UploadedCount:   len(sess.ImageURLs),
		CertificateName: sess.certificateName,
	}

	switch sess.Step {
	case StepLanguage:
		r.Prompt = PromptLanguage
		r.Options = languageOptions
	case StepMobile:
		r.Prompt = PromptMobile
	case StepName:
		r.Prompt = PromptName
	case StepState:
		r.Prompt = PromptState
		r.Options = f.regions.StateNames()
	case StepDistrict:
		r.Prompt = PromptDistrict
		r.Options = f.regions.DistrictNames(sess.User.State)
	case StepAssembly:
		r.Prompt = PromptAssembly
		r.Options = f.regions.AssemblyNames(sess.User.State, sess.User.District)
	case StepBooth:
		r.Prompt = PromptBooth
	case StepDescription:
		r.Prompt = PromptDescription
	case StepImages:
		r.Prompt = PromptImages
	case StepCompleted:
		r.Prompt = PromptCompleted
	}
	return r
}

// isEvidence accepts images and PDF documents.
func isEvidence(contentType string) bool {
	return domain.MediaImage.Matches(contentType) ||
		strings.HasPrefix(strings.ToLower(contentType), "application/pdf")
}
