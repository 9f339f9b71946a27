// Package memstore is the mock persistence layer: an in-memory JSON-shaped
// store of templates and responses implementing the inspect.Store contract.
// It owns the global active-template flag and serializes answer merges per
// response id.
package memstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/OpenBayHQ/openbay-mvp/engine/vhc"
	"github.com/OpenBayHQ/openbay-mvp/pkg/repo"
)

// Store holds templates and responses in memory.
type Store struct {
	templates *repo.MemRepo[vhc.Template, string]
	responses *repo.MemRepo[vhc.Response, string]

	mu       sync.Mutex // guards activeID and the lock table
	activeID string
	locks    map[string]*sync.Mutex

	now func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		templates: repo.NewMemRepo[vhc.Template, string](cloneTemplate),
		responses: repo.NewMemRepo[vhc.Response, string](cloneResponse),
		locks:     make(map[string]*sync.Mutex),
		now:       time.Now,
	}
}

// responseLock returns the per-response mutex, creating it on first use.
// All response mutations hold this lock so concurrent merges on the same
// id serialize.
func (s *Store) responseLock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// PutTemplate validates, compiles, and stores a template snapshot. A
// template flagged active displaces the previous active template.
func (s *Store) PutTemplate(ctx context.Context, t vhc.Template) error {
	if err := vhc.ValidateTemplate(t); err != nil {
		return err
	}
	if err := t.Compile(); err != nil {
		return err
	}
	if err := s.templates.Put(ctx, t.ID, t); err != nil {
		return err
	}
	if t.IsActive {
		return s.SetActiveTemplate(ctx, t.ID)
	}
	return nil
}

// SetActiveTemplate atomically makes the given template the single active
// one. Readers of GetActiveTemplate see either the old or the new active
// template, never neither.
func (s *Store) SetActiveTemplate(ctx context.Context, id string) error {
	t, err := s.templates.Get(ctx, id)
	if err != nil {
		return notFound(err, id, "template")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeID != "" && s.activeID != id {
		if prev, err := s.templates.Get(ctx, s.activeID); err == nil {
			prev.IsActive = false
			s.templates.Put(ctx, prev.ID, prev)
		}
	}
	t.IsActive = true
	if err := s.templates.Put(ctx, t.ID, t); err != nil {
		return err
	}
	s.activeID = id
	return nil
}

// GetTemplate returns the template for id.
func (s *Store) GetTemplate(ctx context.Context, id string) (vhc.Template, error) {
	t, err := s.templates.Get(ctx, id)
	if err != nil {
		return vhc.Template{}, notFound(err, id, "template")
	}
	return t, nil
}

// GetActiveTemplate returns the globally active template.
func (s *Store) GetActiveTemplate(ctx context.Context) (vhc.Template, error) {
	s.mu.Lock()
	id := s.activeID
	s.mu.Unlock()
	if id == "" {
		return vhc.Template{}, vhc.NewError(vhc.ErrNoActiveTemplate, "", "no template is flagged active")
	}
	return s.GetTemplate(ctx, id)
}

// GetResponse returns the response for id.
func (s *Store) GetResponse(ctx context.Context, id string) (vhc.Response, error) {
	r, err := s.responses.Get(ctx, id)
	if err != nil {
		return vhc.Response{}, notFound(err, id, "response")
	}
	return r, nil
}

// CreateResponse stores a new response after checking its template pin.
func (s *Store) CreateResponse(ctx context.Context, r vhc.Response) (vhc.Response, error) {
	if _, err := s.templates.Get(ctx, r.TemplateID); err != nil {
		return vhc.Response{}, notFound(err, r.TemplateID, "template")
	}
	if r.Status == "" {
		r.Status = vhc.StatusDraft
	}
	if err := s.responses.Put(ctx, r.ID, r); err != nil {
		return vhc.Response{}, err
	}
	return r, nil
}

// SaveResponse persists an already-transitioned response and returns it.
func (s *Store) SaveResponse(ctx context.Context, r vhc.Response) (vhc.Response, error) {
	lock := s.responseLock(r.ID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := s.responses.Get(ctx, r.ID); err != nil {
		return vhc.Response{}, notFound(err, r.ID, "response")
	}
	if err := s.responses.Put(ctx, r.ID, r); err != nil {
		return vhc.Response{}, err
	}
	return r, nil
}

// UpdateAnswers merges the batch into the response by item id, recomputes
// scores and progress from the full answer list, and stamps updatedAt.
// The whole batch is validated against the pinned template before any
// mutation, so a bad answer leaves the response untouched.
func (s *Store) UpdateAnswers(ctx context.Context, responseID string, answers []vhc.Answer) (vhc.Response, error) {
	lock := s.responseLock(responseID)
	lock.Lock()
	defer lock.Unlock()

	r, err := s.responses.Get(ctx, responseID)
	if err != nil {
		return vhc.Response{}, notFound(err, responseID, "response")
	}
	if r.Status != vhc.StatusDraft && r.Status != vhc.StatusInProgress {
		return vhc.Response{}, vhc.NewError(vhc.ErrIllegalTransition, responseID,
			"cannot record answers while %s", r.Status)
	}

	tpl, err := s.templates.Get(ctx, r.TemplateID)
	if err != nil {
		return vhc.Response{}, notFound(err, r.TemplateID, "template")
	}
	if err := vhc.ValidateAnswers(tpl, answers); err != nil {
		return vhc.Response{}, err
	}

	r.Answers = mergeAnswers(r.Answers, answers)
	r.Scores, r.Progress = vhc.Compute(tpl, r.Answers, r.Powertrain)
	if r.Status == vhc.StatusDraft && len(r.Answers) > 0 {
		r.Status = vhc.StatusInProgress
	}
	r.UpdatedAt = s.now()

	if err := s.responses.Put(ctx, r.ID, r); err != nil {
		return vhc.Response{}, err
	}
	return r, nil
}

// mergeAnswers upserts by item id: an existing answer is replaced in place,
// keeping first-submission order; new item ids append.
func mergeAnswers(existing, batch []vhc.Answer) []vhc.Answer {
	merged := make([]vhc.Answer, len(existing))
	copy(merged, existing)
	for _, a := range batch {
		replaced := false
		for i := range merged {
			if merged[i].ItemID == a.ItemID {
				merged[i] = a
				replaced = true
				break
			}
		}
		if !replaced {
			merged = append(merged, a)
		}
	}
	return merged
}

func notFound(err error, id, kind string) error {
	if errors.Is(err, repo.ErrNotFound) {
		return vhc.NewError(vhc.ErrNotFound, id, "%s does not exist", kind)
	}
	return err
}

func cloneTemplate(t vhc.Template) vhc.Template {
	sections := make([]vhc.SectionTemplate, len(t.Sections))
	copy(sections, t.Sections)
	for i := range sections {
		items := make([]vhc.ItemTemplate, len(sections[i].Items))
		copy(items, sections[i].Items)
		sections[i].Items = items
	}
	t.Sections = sections
	return t
}

func cloneResponse(r vhc.Response) vhc.Response {
	answers := make([]vhc.Answer, len(r.Answers))
	copy(answers, r.Answers)
	for i := range answers {
		if answers[i].Value != nil {
			v := *answers[i].Value
			answers[i].Value = &v
		}
		if answers[i].Photos != nil {
			p := make([]string, len(answers[i].Photos))
			copy(p, answers[i].Photos)
			answers[i].Photos = p
		}
	}
	r.Answers = answers
	if r.Scores != nil {
		scores := make(vhc.ScoreSet, len(r.Scores))
		for k, v := range r.Scores {
			scores[k] = v
		}
		r.Scores = scores
	}
	if r.ServiceIDs != nil {
		ids := make([]string, len(r.ServiceIDs))
		copy(ids, r.ServiceIDs)
		r.ServiceIDs = ids
	}
	return r
}
