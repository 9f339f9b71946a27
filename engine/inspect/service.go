// Package inspect orchestrates vehicle health check inspections: it binds
// the persistence contract to the vhc scoring engine, enforces the response
// state machine, and publishes lifecycle events.
package inspect

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/OpenBayHQ/openbay-mvp/engine/vhc"
	"github.com/OpenBayHQ/openbay-mvp/pkg/fn"
	"github.com/OpenBayHQ/openbay-mvp/pkg/metrics"
	"github.com/google/uuid"
)

// Store is the persistence contract the service needs. Implementations
// must serialize concurrent UpdateAnswers calls per response id; the
// service itself holds no locks.
type Store interface {
	GetTemplate(ctx context.Context, id string) (vhc.Template, error)
	// GetActiveTemplate returns the single globally active template, or an
	// error wrapping vhc.ErrNoActiveTemplate when none is flagged active.
	GetActiveTemplate(ctx context.Context) (vhc.Template, error)
	GetResponse(ctx context.Context, id string) (vhc.Response, error)
	CreateResponse(ctx context.Context, r vhc.Response) (vhc.Response, error)
	// UpdateAnswers merges answers by item id into the response, recomputes
	// scores and progress, stamps updatedAt, and returns the full updated
	// response. Invalid answers reject the whole batch before any mutation.
	UpdateAnswers(ctx context.Context, responseID string, answers []vhc.Answer) (vhc.Response, error)
	// SaveResponse persists a response the service has already transitioned.
	SaveResponse(ctx context.Context, r vhc.Response) (vhc.Response, error)
}

// Publisher emits lifecycle events. A nil publisher disables eventing.
type Publisher interface {
	Publish(ctx context.Context, subject string, v any) error
}

// Options tunes optional service collaborators.
type Options struct {
	Publisher Publisher
	Metrics   *metrics.Registry
}

// Service implements the inspection workflows.
type Service struct {
	store Store
	pub   Publisher
	log   *slog.Logger
	met   serviceMetrics
	now   func() time.Time
	newID func() string
}

// New creates an inspection service.
func New(store Store, logger *slog.Logger, opts Options) *Service {
	reg := opts.Metrics
	if reg == nil {
		reg = metrics.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store: store,
		pub:   opts.Publisher,
		log:   logger,
		met:   newServiceMetrics(reg),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// StartParams describes a new inspection assignment.
type StartParams struct {
	TemplateID string // empty selects the active template
	VehicleID  string
	Powertrain vhc.Powertrain
	BookingID  string
	ServiceIDs []string
	AssignedTo string
	AssignedBy string
	DueAt      *time.Time
	CreatedBy  string
}

// Start creates a draft response pinned to a template snapshot.
func (s *Service) Start(ctx context.Context, p StartParams) (vhc.Response, error) {
	if !vhc.ValidPowertrains[p.Powertrain] {
		return vhc.Response{}, vhc.NewError(vhc.ErrInvalidAnswer, p.VehicleID, "unknown powertrain %q", p.Powertrain)
	}

	var tpl vhc.Template
	var err error
	if p.TemplateID == "" {
		tpl, err = s.store.GetActiveTemplate(ctx)
	} else {
		tpl, err = s.store.GetTemplate(ctx, p.TemplateID)
	}
	if err != nil {
		return vhc.Response{}, err
	}

	now := s.now()
	r := vhc.Response{
		ID:              s.newID(),
		TemplateID:      tpl.ID,
		TemplateVersion: tpl.Version,
		Powertrain:      p.Powertrain,
		Status:          vhc.StatusDraft,
		VehicleID:       p.VehicleID,
		BookingID:       p.BookingID,
		ServiceIDs:      p.ServiceIDs,
		AssignedTo:      p.AssignedTo,
		AssignedBy:      p.AssignedBy,
		DueAt:           p.DueAt,
		CreatedBy:       p.CreatedBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	r.Scores, r.Progress = vhc.Compute(tpl, nil, p.Powertrain)

	created, err := s.store.CreateResponse(ctx, r)
	if err != nil {
		return vhc.Response{}, err
	}
	s.met.started.Inc()
	s.publish(ctx, SubjectResponseCreated, eventFor(created, now, nil))
	s.log.Info("inspection started", "response_id", created.ID, "template", tpl.ID, "version", tpl.Version, "vehicle", p.VehicleID)
	return created, nil
}

// Response fetches a response by id.
func (s *Service) Response(ctx context.Context, id string) (vhc.Response, error) {
	return s.store.GetResponse(ctx, id)
}

// Template fetches a template by id.
func (s *Service) Template(ctx context.Context, id string) (vhc.Template, error) {
	return s.store.GetTemplate(ctx, id)
}

// ActiveTemplate fetches the globally active template.
func (s *Service) ActiveTemplate(ctx context.Context) (vhc.Template, error) {
	return s.store.GetActiveTemplate(ctx)
}

// RecordAnswers converts incoming answers to their storage form and merges
// them into the response. The store performs the upsert, recompute, and
// updatedAt stamp atomically per response.
func (s *Service) RecordAnswers(ctx context.Context, responseID string, answers []vhc.Answer) (vhc.Response, error) {
	stored := vhc.ConvertAnswersForStorage(answers)
	updated, err := s.store.UpdateAnswers(ctx, responseID, stored)
	if err != nil {
		return vhc.Response{}, err
	}
	s.met.answersRecorded.Add(uint64(len(answers)))
	s.publish(ctx, SubjectResponseUpdated, eventFor(updated, s.now(), nil))
	return updated, nil
}

// Submit moves a complete response to submitted and stamps submittedAt.
// Incomplete responses fail with vhc.ErrIncompleteSubmission and remain
// untouched.
func (s *Service) Submit(ctx context.Context, responseID, submittedBy string) (vhc.Response, error) {
	r, err := s.store.GetResponse(ctx, responseID)
	if err != nil {
		return vhc.Response{}, err
	}
	if !r.Progress.Complete() {
		return vhc.Response{}, vhc.NewError(vhc.ErrIncompleteSubmission, r.ID,
			"%d of %d applicable items answered", r.Progress.Answered, r.Progress.Total)
	}
	if err := vhc.Transition(&r, vhc.StatusSubmitted); err != nil {
		return vhc.Response{}, err
	}
	now := s.now()
	r.SubmittedAt = &now
	r.UpdatedAt = now

	saved, err := s.store.SaveResponse(ctx, r)
	if err != nil {
		return vhc.Response{}, err
	}
	s.met.submitted.Inc()

	ev := eventFor(saved, now, &saved)
	if tpl, err := s.store.GetTemplate(ctx, saved.TemplateID); err == nil {
		ev.Breakdown = vhc.Breakdown(tpl, saved.Answers, saved.Powertrain)
		ev.FlaggedItems = fn.FilterMap(ev.Breakdown, func(is vhc.ItemScore) (string, bool) {
			return is.ItemID, is.Scored && is.Band == vhc.BandRed
		})
	}
	s.publish(ctx, SubjectResponseSubmitted, ev)
	s.log.Info("inspection submitted", "response_id", saved.ID, "by", submittedBy, "total", ev.Scores[vhc.TotalScoreKey])
	return saved, nil
}

// Approve moves a submitted response to approved.
func (s *Service) Approve(ctx context.Context, responseID, approvedBy string) (vhc.Response, error) {
	r, err := s.store.GetResponse(ctx, responseID)
	if err != nil {
		return vhc.Response{}, err
	}
	if err := vhc.Transition(&r, vhc.StatusApproved); err != nil {
		return vhc.Response{}, err
	}
	now := s.now()
	r.ApprovedBy = approvedBy
	r.ApprovedAt = &now
	r.UpdatedAt = now

	saved, err := s.store.SaveResponse(ctx, r)
	if err != nil {
		return vhc.Response{}, err
	}
	s.met.approved.Inc()
	s.publish(ctx, SubjectResponseApproved, eventFor(saved, now, nil))
	return saved, nil
}

// Void cancels a response from any non-terminal state.
func (s *Service) Void(ctx context.Context, responseID, voidedBy string) (vhc.Response, error) {
	r, err := s.store.GetResponse(ctx, responseID)
	if err != nil {
		return vhc.Response{}, err
	}
	if err := vhc.Transition(&r, vhc.StatusVoid); err != nil {
		return vhc.Response{}, err
	}
	r.UpdatedAt = s.now()

	saved, err := s.store.SaveResponse(ctx, r)
	if err != nil {
		return vhc.Response{}, err
	}
	s.met.voided.Inc()
	s.publish(ctx, SubjectResponseVoided, eventFor(saved, r.UpdatedAt, nil))
	s.log.Info("inspection voided", "response_id", saved.ID, "by", voidedBy)
	return saved, nil
}

// Breakdown returns the per-item scoring detail for a response.
func (s *Service) Breakdown(ctx context.Context, responseID string) ([]vhc.ItemScore, error) {
	r, err := s.store.GetResponse(ctx, responseID)
	if err != nil {
		return nil, err
	}
	tpl, err := s.store.GetTemplate(ctx, r.TemplateID)
	if err != nil {
		return nil, err
	}
	return vhc.Breakdown(tpl, r.Answers, r.Powertrain), nil
}

func (s *Service) publish(ctx context.Context, subject string, ev ResponseEvent) {
	if s.pub == nil {
		return
	}
	if err := s.pub.Publish(ctx, subject, ev); err != nil {
		// Events are best-effort; the mutation already succeeded.
		s.met.publishErrors.Inc()
		s.log.Warn("event publish failed", "subject", subject, "response_id", ev.ResponseID, "err", err)
	}
}

// IsNotFound reports whether err is any flavor of not-found.
func IsNotFound(err error) bool {
	return errors.Is(err, vhc.ErrNotFound) || errors.Is(err, vhc.ErrNoActiveTemplate)
}
