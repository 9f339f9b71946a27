package findings

import (
	"context"
	"fmt"

	"github.com/OpenBayHQ/openbay-mvp/engine/vhc"
)

// Embedder turns text into a vector. pkg/embed's Ollama client satisfies it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// ItemSimilar groups the similarity hits for one flagged item.
type ItemSimilar struct {
	ItemID string           `json:"item_id"`
	Hits   []SimilarFinding `json:"hits"`
}

// Finder runs embed-then-search over the findings index.
type Finder struct {
	store *Store
	embed Embedder
}

// NewFinder creates a Finder.
func NewFinder(store *Store, embed Embedder) *Finder {
	return &Finder{store: store, embed: embed}
}

// IndexResponse extracts and indexes the flagged findings of a submitted
// response. Responses without flagged items are a no-op.
func (f *Finder) IndexResponse(ctx context.Context, t vhc.Template, r vhc.Response) (int, error) {
	return f.IndexFindings(ctx, FromResponse(t, r))
}

// IndexFindings embeds and upserts pre-extracted findings.
func (f *Finder) IndexFindings(ctx context.Context, found []Finding) (int, error) {
	if len(found) == 0 {
		return 0, nil
	}

	texts := make([]string, len(found))
	for i, fd := range found {
		texts[i] = EmbedText(fd)
	}
	vecs, err := f.embed.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("findings: embed %d notes: %w", len(texts), err)
	}

	records := make([]FindingRecord, len(found))
	for i := range found {
		records[i] = FindingRecord{Finding: found[i], Embedding: vecs[i]}
	}
	if err := f.store.Index(ctx, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

// SimilarForResponse returns, for each flagged item of the response (or just
// itemID when non-empty), the most similar past findings on the same item.
// Hits from the response itself are dropped.
func (f *Finder) SimilarForResponse(ctx context.Context, t vhc.Template, r vhc.Response, itemID string, topK int) ([]ItemSimilar, error) {
	if topK <= 0 {
		topK = 5
	}

	var out []ItemSimilar
	for _, fd := range FromResponse(t, r) {
		if itemID != "" && fd.ItemID != itemID {
			continue
		}
		vec, err := f.embed.Embed(ctx, EmbedText(fd))
		if err != nil {
			return nil, fmt.Errorf("findings: embed query for %s: %w", fd.ItemID, err)
		}
		// topK+1 leaves room to drop the response's own point.
		hits, err := f.store.SearchSimilar(ctx, vec, topK+1, map[string]string{"item_id": fd.ItemID})
		if err != nil {
			return nil, err
		}
		kept := make([]SimilarFinding, 0, topK)
		for _, h := range hits {
			if h.Finding.ResponseID == r.ID {
				continue
			}
			kept = append(kept, h)
			if len(kept) == topK {
				break
			}
		}
		out = append(out, ItemSimilar{ItemID: fd.ItemID, Hits: kept})
	}
	return out, nil
}
