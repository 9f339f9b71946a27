package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/OpenBayHQ/openbay-mvp/engine/vhc"
)

// SeedDoc is the JSON fixture format: flat template and response records.
type SeedDoc struct {
	Templates []vhc.Template `json:"templates"`
	Responses []vhc.Response `json:"responses"`
}

// Seed loads fixtures into the store. Response scores and progress are
// recomputed from their answers rather than trusted from the file, so seed
// data can never carry stale derived state.
func (s *Store) Seed(ctx context.Context, doc SeedDoc) error {
	for _, t := range doc.Templates {
		if err := s.PutTemplate(ctx, t); err != nil {
			return fmt.Errorf("seed template %s: %w", t.ID, err)
		}
	}
	for _, r := range doc.Responses {
		tpl, err := s.GetTemplate(ctx, r.TemplateID)
		if err != nil {
			return fmt.Errorf("seed response %s: %w", r.ID, err)
		}
		if !vhc.ValidStatuses[r.Status] {
			return fmt.Errorf("seed response %s: unknown status %q", r.ID, r.Status)
		}
		if err := vhc.ValidateAnswers(tpl, r.Answers); err != nil {
			return fmt.Errorf("seed response %s: %w", r.ID, err)
		}
		r.Scores, r.Progress = vhc.Compute(tpl, r.Answers, r.Powertrain)
		if err := s.responses.Put(ctx, r.ID, r); err != nil {
			return err
		}
	}
	return nil
}

// SeedFile reads a SeedDoc from a JSON file and loads it.
func (s *Store) SeedFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	var doc SeedDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return s.Seed(ctx, doc)
}
