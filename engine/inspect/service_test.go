package inspect

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/OpenBayHQ/openbay-mvp/engine/memstore"
	"github.com/OpenBayHQ/openbay-mvp/engine/vhc"
)

type recordedEvent struct {
	subject string
	payload ResponseEvent
}

type stubPublisher struct {
	events []recordedEvent
	err    error
}

func (p *stubPublisher) Publish(_ context.Context, subject string, v any) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, recordedEvent{subject: subject, payload: v.(ResponseEvent)})
	return nil
}

func num(f float64) *vhc.Value { v := vhc.Num(f); return &v }

func testTemplate() vhc.Template {
	return vhc.Template{
		ID: "standard-vhc", Version: 3, Title: "Standard Health Check", IsActive: true,
		Sections: []vhc.SectionTemplate{{
			ID: "brakes", Title: "Brakes", Weight: 1, Order: 1,
			Items: []vhc.ItemTemplate{
				{ID: "pads", Type: vhc.ItemRadio, Options: []string{"1", "2", "3", "4", "5"}, Weight: 2, Order: 1},
				{ID: "discs", Type: vhc.ItemRadio, Options: []string{"1", "2", "3", "4", "5"}, Weight: 1, Order: 2},
			},
		}},
	}
}

func newTestService(t *testing.T) (*Service, *stubPublisher) {
	t.Helper()
	store := memstore.New()
	if err := store.PutTemplate(context.Background(), testTemplate()); err != nil {
		t.Fatalf("put template: %v", err)
	}
	pub := &stubPublisher{}
	svc := New(store, slog.New(slog.NewTextHandler(io.Discard, nil)), Options{Publisher: pub})
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	n := 0
	svc.newID = func() string { n++; return "resp-test" }
	return svc, pub
}

func startInspection(t *testing.T, svc *Service) vhc.Response {
	t.Helper()
	r, err := svc.Start(context.Background(), StartParams{
		VehicleID:  "veh-1",
		Powertrain: vhc.PowertrainICE,
		AssignedTo: "tech-7",
		CreatedBy:  "advisor-2",
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return r
}

func TestStart_UsesActiveTemplate(t *testing.T) {
	svc, pub := newTestService(t)
	r := startInspection(t, svc)

	if r.TemplateID != "standard-vhc" || r.TemplateVersion != 3 {
		t.Errorf("pinned template = %s v%d", r.TemplateID, r.TemplateVersion)
	}
	if r.Status != vhc.StatusDraft {
		t.Errorf("status = %s, want draft", r.Status)
	}
	if r.Progress.Total != 2 || r.Progress.Answered != 0 {
		t.Errorf("progress = %+v", r.Progress)
	}
	if len(pub.events) != 1 || pub.events[0].subject != SubjectResponseCreated {
		t.Errorf("events = %+v", pub.events)
	}
}

func TestStart_UnknownPowertrain(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Start(context.Background(), StartParams{VehicleID: "veh-1", Powertrain: "steam"})
	if !errors.Is(err, vhc.ErrInvalidAnswer) {
		t.Errorf("expected ErrInvalidAnswer, got %v", err)
	}
}

func TestStart_NoActiveTemplate(t *testing.T) {
	store := memstore.New()
	svc := New(store, slog.New(slog.NewTextHandler(io.Discard, nil)), Options{})
	_, err := svc.Start(context.Background(), StartParams{VehicleID: "veh-1", Powertrain: vhc.PowertrainICE})
	if !errors.Is(err, vhc.ErrNoActiveTemplate) {
		t.Errorf("expected ErrNoActiveTemplate, got %v", err)
	}
}

func TestRecordAnswers_ConvertsTitles(t *testing.T) {
	svc, pub := newTestService(t)
	r := startInspection(t, svc)

	title := vhc.Str("Good Condition")
	updated, err := svc.RecordAnswers(context.Background(), r.ID, []vhc.Answer{{ItemID: "pads", Value: &title}})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if n, ok := updated.Answers[0].Value.Number(); !ok || n != 4 {
		t.Errorf("stored value = %v, want 4", updated.Answers[0].Value)
	}
	if updated.Status != vhc.StatusInProgress {
		t.Errorf("status = %s, want in_progress", updated.Status)
	}
	last := pub.events[len(pub.events)-1]
	if last.subject != SubjectResponseUpdated || last.payload.Progress.Answered != 1 {
		t.Errorf("updated event = %+v", last)
	}
}

func TestSubmit_Incomplete(t *testing.T) {
	svc, _ := newTestService(t)
	r := startInspection(t, svc)
	svc.RecordAnswers(context.Background(), r.ID, []vhc.Answer{{ItemID: "pads", Value: num(4)}})

	_, err := svc.Submit(context.Background(), r.ID, "tech-7")
	if !errors.Is(err, vhc.ErrIncompleteSubmission) {
		t.Fatalf("expected ErrIncompleteSubmission, got %v", err)
	}

	// Status must be unchanged after the failed submit.
	got, _ := svc.Response(context.Background(), r.ID)
	if got.Status != vhc.StatusInProgress {
		t.Errorf("status = %s, want in_progress", got.Status)
	}
}

func TestSubmit_Complete(t *testing.T) {
	svc, pub := newTestService(t)
	r := startInspection(t, svc)
	ctx := context.Background()
	svc.RecordAnswers(ctx, r.ID, []vhc.Answer{
		{ItemID: "pads", Value: num(4)},
		{ItemID: "discs", Value: num(2)},
	})

	submitted, err := svc.Submit(ctx, r.ID, "tech-7")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if submitted.Status != vhc.StatusSubmitted {
		t.Errorf("status = %s", submitted.Status)
	}
	if submitted.SubmittedAt == nil {
		t.Error("submittedAt not stamped")
	}

	last := pub.events[len(pub.events)-1]
	if last.subject != SubjectResponseSubmitted {
		t.Fatalf("last event = %s", last.subject)
	}
	if last.payload.Response == nil {
		t.Error("submitted event must carry the response snapshot")
	}
	if len(last.payload.FlaggedItems) != 1 || last.payload.FlaggedItems[0] != "discs" {
		t.Errorf("flagged = %v, want [discs]", last.payload.FlaggedItems)
	}
	want := (4.0*2 + 2.0*1) / 3.0
	if got := last.payload.Scores["brakes"]; got < want-1e-9 || got > want+1e-9 {
		t.Errorf("event score = %v, want %v", got, want)
	}
}

func TestApprove(t *testing.T) {
	svc, _ := newTestService(t)
	r := startInspection(t, svc)
	ctx := context.Background()
	svc.RecordAnswers(ctx, r.ID, []vhc.Answer{
		{ItemID: "pads", Value: num(4)},
		{ItemID: "discs", Value: num(4)},
	})
	svc.Submit(ctx, r.ID, "tech-7")

	approved, err := svc.Approve(ctx, r.ID, "manager-1")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != vhc.StatusApproved || approved.ApprovedBy != "manager-1" || approved.ApprovedAt == nil {
		t.Errorf("approved = %+v", approved)
	}
}

func TestApprove_RequiresSubmitted(t *testing.T) {
	svc, _ := newTestService(t)
	r := startInspection(t, svc)
	_, err := svc.Approve(context.Background(), r.ID, "manager-1")
	if !errors.Is(err, vhc.ErrIllegalTransition) {
		t.Errorf("expected ErrIllegalTransition, got %v", err)
	}
}

func TestVoid(t *testing.T) {
	svc, pub := newTestService(t)
	r := startInspection(t, svc)

	voided, err := svc.Void(context.Background(), r.ID, "advisor-2")
	if err != nil {
		t.Fatalf("void: %v", err)
	}
	if voided.Status != vhc.StatusVoid {
		t.Errorf("status = %s", voided.Status)
	}
	if pub.events[len(pub.events)-1].subject != SubjectResponseVoided {
		t.Errorf("missing voided event")
	}
}

func TestVoid_ApprovedIsTerminal(t *testing.T) {
	svc, _ := newTestService(t)
	r := startInspection(t, svc)
	ctx := context.Background()
	svc.RecordAnswers(ctx, r.ID, []vhc.Answer{
		{ItemID: "pads", Value: num(4)},
		{ItemID: "discs", Value: num(4)},
	})
	svc.Submit(ctx, r.ID, "tech-7")
	svc.Approve(ctx, r.ID, "manager-1")

	_, err := svc.Void(ctx, r.ID, "advisor-2")
	if !errors.Is(err, vhc.ErrIllegalTransition) {
		t.Errorf("expected ErrIllegalTransition, got %v", err)
	}
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	svc, pub := newTestService(t)
	pub.err = errors.New("nats down")

	r, err := svc.Start(context.Background(), StartParams{VehicleID: "veh-1", Powertrain: vhc.PowertrainICE})
	if err != nil {
		t.Fatalf("start should succeed despite publish failure: %v", err)
	}
	if r.ID == "" {
		t.Error("response not created")
	}
}

func TestBreakdown(t *testing.T) {
	svc, _ := newTestService(t)
	r := startInspection(t, svc)
	ctx := context.Background()
	svc.RecordAnswers(ctx, r.ID, []vhc.Answer{{ItemID: "pads", Value: num(1)}})

	items, err := svc.Breakdown(ctx, r.ID)
	if err != nil {
		t.Fatalf("breakdown: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if items[0].ItemID != "pads" || items[0].Band != vhc.BandRed {
		t.Errorf("pads breakdown = %+v", items[0])
	}
	if items[1].Answered {
		t.Errorf("discs should be unanswered: %+v", items[1])
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(vhc.NewError(vhc.ErrNotFound, "x", "gone")) {
		t.Error("ErrNotFound not detected")
	}
	if !IsNotFound(vhc.NewError(vhc.ErrNoActiveTemplate, "", "none")) {
		t.Error("ErrNoActiveTemplate not detected")
	}
	if IsNotFound(errors.New("other")) {
		t.Error("false positive")
	}
}
