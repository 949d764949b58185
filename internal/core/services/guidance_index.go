package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/custodia-labs/vigil/internal/core/domain"
	"github.com/custodia-labs/vigil/internal/core/ports/driven"
	"github.com/custodia-labs/vigil/internal/logger"
	"github.com/custodia-labs/vigil/internal/normalisers/markdown"
)

// sectionNamespace seeds deterministic guidance section IDs.
var sectionNamespace = uuid.MustParse("b7e2f4a1-93c6-4d0e-8f25-6a1d3c9e7b40")

// emptyGeneration is served before the first rebuild.
var emptyGeneration = &domain.GuidanceGeneration{}

// GuidanceIndex holds embedded guidance sections and answers similarity
// queries. Each rebuild produces a new immutable generation that is swapped
// in atomically, so readers never observe a partial rebuild.
type GuidanceIndex struct {
	embedder   driven.EmbeddingService
	store      driven.GuidanceStore
	normaliser *markdown.Normaliser

	// rebuildMu serializes rebuilds. Queries never take it.
	rebuildMu sync.Mutex
	current   atomic.Pointer[domain.GuidanceGeneration]
}

// NewGuidanceIndex creates an empty index.
// The store is optional (can be nil); without it generations live in memory only.
func NewGuidanceIndex(embedder driven.EmbeddingService, store driven.GuidanceStore) *GuidanceIndex {
	g := &GuidanceIndex{
		embedder:   embedder,
		store:      store,
		normaliser: markdown.New(),
	}
	g.current.Store(emptyGeneration)
	return g
}

// Load restores the most recent persisted generation.
// An empty store leaves the index empty and is not an error.
func (g *GuidanceIndex) Load(ctx context.Context) error {
	if g.store == nil {
		return nil
	}
	g.rebuildMu.Lock()
	defer g.rebuildMu.Unlock()

	gen, err := g.store.LoadLatest(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		logger.Debug("No persisted guidance generation")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load guidance: %w", err)
	}
	if g.stale(gen) {
		if gen, err = g.reembed(ctx, gen, nil); err != nil {
			return fmt.Errorf("load guidance: %w", err)
		}
		if err := g.store.SaveGeneration(ctx, gen); err != nil {
			return fmt.Errorf("save guidance generation: %w", err)
		}
	}
	g.current.Store(gen)
	logger.Debug("Loaded guidance generation %d (%d sections)", gen.ID, len(gen.Sections))
	return nil
}

// stale reports whether gen holds vectors from an embedder other than the
// index's own. Such vectors cannot be compared with new query vectors.
func (g *GuidanceIndex) stale(gen *domain.GuidanceGeneration) bool {
	if g.embedder == nil || len(gen.Sections) == 0 {
		return false
	}
	return !gen.EmbeddedBy(g.embedder.ModelName(), g.embedder.Dimensions())
}

// reembed returns a copy of a stale generation, same ID, with every
// section embedded again by the index's embedder. Sections of titles in
// skip are dropped instead; their titles keep their slot.
func (g *GuidanceIndex) reembed(
	ctx context.Context, gen *domain.GuidanceGeneration, skip map[string]string,
) (*domain.GuidanceGeneration, error) {
	logger.Warn("Guidance generation %d was embedded with %q (%d dims), re-embedding with %q (%d dims)",
		gen.ID, gen.EmbeddingModel, gen.EmbeddingDimensions, g.embedder.ModelName(), g.embedder.Dimensions())

	next := g.newGeneration(gen.ID)
	next.Titles = slices.Clone(gen.Titles)
	for _, s := range gen.Sections {
		if _, ok := skip[s.DocumentTitle]; !ok {
			next.Sections = append(next.Sections, s)
		}
	}
	if len(next.Sections) == 0 {
		return next, nil
	}
	texts := make([]string, len(next.Sections))
	for i, s := range next.Sections {
		texts[i] = markdown.Section{Heading: s.Heading, Text: s.Text}.Embeddable(s.DocumentTitle)
	}
	vectors, err := g.embed(ctx, "stale guidance", texts)
	if err != nil {
		return nil, err
	}
	for i := range next.Sections {
		next.Sections[i].Embedding = vectors[i]
	}
	return next, nil
}

func (g *GuidanceIndex) newGeneration(id int64) *domain.GuidanceGeneration {
	return &domain.GuidanceGeneration{
		ID:                  id,
		EmbeddingModel:      g.embedder.ModelName(),
		EmbeddingDimensions: g.embedder.Dimensions(),
	}
}

// embed embeds texts in one batch and checks the vector count.
func (g *GuidanceIndex) embed(ctx context.Context, what string, texts []string) ([][]float32, error) {
	vectors, err := g.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed %s: %w", what, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embed %s: got %d vectors for %d sections", what, len(vectors), len(texts))
	}
	return vectors, nil
}

// Snapshot returns the live generation. It is never nil and must not be modified.
func (g *GuidanceIndex) Snapshot() *domain.GuidanceGeneration {
	return g.current.Load()
}

// Generation returns the live generation ID (0 before the first rebuild).
func (g *GuidanceIndex) Generation() int64 {
	return g.Snapshot().ID
}

// Sections returns a copy of the live sections in insertion order.
func (g *GuidanceIndex) Sections() []domain.GuidanceSection {
	gen := g.Snapshot()
	out := make([]domain.GuidanceSection, len(gen.Sections))
	copy(out, gen.Sections)
	return out
}

// Rebuild upserts documents (title -> markdown) and returns the new
// generation ID. Sections of a re-ingested title replace the previous ones;
// other titles are untouched. Documents keep their slot when replaced and
// new documents are appended in title order. On any failure the previous
// generation stays live.
func (g *GuidanceIndex) Rebuild(ctx context.Context, documents map[string]string) (int64, error) {
	logger.Section("Guidance Rebuild")
	if len(documents) == 0 {
		return 0, fmt.Errorf("%w: no guidance documents", domain.ErrInvalidInput)
	}
	if _, ok := documents[""]; ok {
		return 0, fmt.Errorf("%w: guidance document without title", domain.ErrInvalidInput)
	}
	if g.embedder == nil {
		return 0, domain.ErrEmbeddingUnavailable
	}

	g.rebuildMu.Lock()
	defer g.rebuildMu.Unlock()

	old := g.current.Load()
	if g.stale(old) {
		reembedded, err := g.reembed(ctx, old, documents)
		if err != nil {
			return 0, err
		}
		old = reembedded
	}

	// Embeddings of sections whose ID and text are unchanged are reused.
	previous := make(map[string]domain.GuidanceSection, len(old.Sections))
	byTitle := make(map[string][]domain.GuidanceSection)
	for _, s := range old.Sections {
		previous[s.ID] = s
		byTitle[s.DocumentTitle] = append(byTitle[s.DocumentTitle], s)
	}

	titles := make([]string, 0, len(old.Titles)+len(documents))
	titles = append(titles, old.Titles...)
	var added []string
	for title := range documents {
		if !slices.Contains(old.Titles, title) {
			added = append(added, title)
		}
	}
	sort.Strings(added)
	titles = append(titles, added...)

	next := g.newGeneration(old.ID + 1)
	for _, title := range titles {
		content, replaced := documents[title]
		if !replaced {
			next.Titles = append(next.Titles, title)
			next.Sections = append(next.Sections, byTitle[title]...)
			continue
		}

		sections, err := g.buildSections(ctx, title, content, previous)
		if err != nil {
			return 0, err
		}
		if len(sections) == 0 {
			logger.Warn("Guidance document %q has no sections, dropping it", title)
			continue
		}
		next.Titles = append(next.Titles, title)
		next.Sections = append(next.Sections, sections...)
	}

	if g.store != nil {
		if err := g.store.SaveGeneration(ctx, next); err != nil {
			return 0, fmt.Errorf("save guidance generation: %w", err)
		}
	}
	g.current.Store(next)

	logger.Info("Guidance generation %d live: %d documents, %d sections", next.ID, len(next.Titles), len(next.Sections))
	return next.ID, nil
}

// buildSections splits one document and embeds its new or changed sections.
func (g *GuidanceIndex) buildSections(
	ctx context.Context, title, content string, previous map[string]domain.GuidanceSection,
) ([]domain.GuidanceSection, error) {
	doc, err := g.normaliser.Split(title, content)
	if err != nil {
		return nil, err
	}

	sections := make([]domain.GuidanceSection, len(doc.Sections))
	var pending []int
	var texts []string
	for i, s := range doc.Sections {
		sections[i] = domain.GuidanceSection{
			ID:            sectionID(title, i, s.Heading),
			DocumentTitle: title,
			Heading:       s.Heading,
			Category:      doc.Category,
			Text:          s.Text,
		}
		if prev, ok := previous[sections[i].ID]; ok && prev.Text == s.Text && prev.Category == doc.Category {
			sections[i].Embedding = prev.Embedding
			continue
		}
		pending = append(pending, i)
		texts = append(texts, s.Embeddable(title))
	}

	if len(texts) == 0 {
		logger.Debug("Document %q unchanged (%d sections)", title, len(sections))
		return sections, nil
	}

	logger.Debug("Embedding %d sections of %q", len(texts), title)
	vectors, err := g.embed(ctx, fmt.Sprintf("guidance %q", title), texts)
	if err != nil {
		return nil, err
	}
	for j, i := range pending {
		sections[i].Embedding = vectors[j]
	}
	return sections, nil
}

// Query returns up to k live sections most similar to text, best first.
func (g *GuidanceIndex) Query(ctx context.Context, text string, k int) ([]domain.ScoredSection, error) {
	return g.Search(ctx, g.Snapshot(), text, k)
}

// Search ranks the sections of gen against text. The text is embedded once.
// Equal scores keep insertion order. An empty generation or k <= 0 returns
// an empty result without calling the embedder.
func (g *GuidanceIndex) Search(
	ctx context.Context, gen *domain.GuidanceGeneration, text string, k int,
) ([]domain.ScoredSection, error) {
	if gen == nil || len(gen.Sections) == 0 || k <= 0 {
		return []domain.ScoredSection{}, nil
	}
	if g.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	query, err := g.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	scored := make([]domain.ScoredSection, len(gen.Sections))
	for i, s := range gen.Sections {
		scored[i] = domain.ScoredSection{Section: s, Score: cosine(query, s.Embedding)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// cosine returns the cosine similarity of a and b. Vectors of different
// length or zero magnitude score 0.
func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func sectionID(title string, ordinal int, heading string) string {
	return uuid.NewSHA1(sectionNamespace, []byte(title+"\x00"+strconv.Itoa(ordinal)+"\x00"+heading)).String()
}
