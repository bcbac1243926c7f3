package search

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/autotag/core"
	"github.com/poiesic/autotag/similarity"
	"github.com/poiesic/autotag/storage"
)

// DefaultTopTags is how many tags each hit carries by default.
const DefaultTopTags = 5

// Searcher finds documents similar to a query document or text.
type Searcher struct {
	docs    storage.DocumentRepository
	tags    storage.TagRepository
	engine  *similarity.Engine
	topTags int
	logger  *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithEngine sets the similarity engine.
// Default is similarity.NewEngine().
func WithEngine(engine *similarity.Engine) Option {
	return func(s *Searcher) error {
		if engine == nil {
			return fmt.Errorf("search: engine is nil")
		}
		s.engine = engine
		return nil
	}
}

// WithTopTags sets how many tags each hit carries.
func WithTopTags(n int) Option {
	return func(s *Searcher) error {
		if err := core.ValidateLimit("top_tags", n); err != nil {
			return err
		}
		s.topTags = n
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(
	docs storage.DocumentRepository,
	tags storage.TagRepository,
	opts ...Option,
) (*Searcher, error) {
	if docs == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if tags == nil {
		return nil, ErrTagRepositoryRequired
	}

	s := &Searcher{
		docs:    docs,
		tags:    tags,
		topTags: DefaultTopTags,
		logger:  slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.engine == nil {
		s.engine = similarity.NewEngine()
	}

	return s, nil
}

// FindSimilar returns the processed documents most similar to docID,
// scoring at least threshold, at most limit of them, best first.
func (s *Searcher) FindSimilar(ctx context.Context, docID core.ID, threshold float64, limit int) ([]*core.SimilarDocument, error) {
	return s.FindSimilarWithMonitor(ctx, docID, threshold, limit, nil)
}

// FindSimilarWithMonitor is FindSimilar with monitoring.
// The monitor receives callbacks at each stage of the search process.
func (s *Searcher) FindSimilarWithMonitor(ctx context.Context, docID core.ID, threshold float64, limit int, monitor SearchMonitor) ([]*core.SimilarDocument, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start("document " + docID.String())

	if err := validateQuery(threshold, limit); err != nil {
		return nil, err
	}

	doc, err := s.docs.GetDocument(ctx, docID)
	if err != nil {
		return nil, err
	}

	return s.search(ctx, doc.Content, storage.CorpusOptions{
		ProcessedOnly: true,
		Exclude:       []core.ID{docID},
	}, threshold, limit, monitor)
}

// FindSimilarText ranks processed documents against text that is not stored.
func (s *Searcher) FindSimilarText(ctx context.Context, text string, threshold float64, limit int) ([]*core.SimilarDocument, error) {
	return s.FindSimilarTextWithMonitor(ctx, text, threshold, limit, nil)
}

// FindSimilarTextWithMonitor is FindSimilarText with monitoring.
func (s *Searcher) FindSimilarTextWithMonitor(ctx context.Context, text string, threshold float64, limit int, monitor SearchMonitor) ([]*core.SimilarDocument, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(text)

	if strings.TrimSpace(text) == "" {
		return nil, &core.InputError{Field: "text", Reason: "must not be blank"}
	}
	if err := validateQuery(threshold, limit); err != nil {
		return nil, err
	}

	return s.search(ctx, text, storage.CorpusOptions{ProcessedOnly: true}, threshold, limit, monitor)
}

func (s *Searcher) search(ctx context.Context, query string, opts storage.CorpusOptions, threshold float64, limit int, monitor SearchMonitor) ([]*core.SimilarDocument, error) {
	// 1. Load candidates
	candidates, err := s.docs.GetCorpus(ctx, opts)
	if err != nil {
		s.logger.Error("error loading candidate documents", "err", err)
		return nil, err
	}
	monitor.AfterCandidateRetrieval(len(candidates))

	results := []*core.SimilarDocument{}
	if len(candidates) == 0 || limit == 0 {
		monitor.Finish(results)
		return results, nil
	}

	// 2. Rank
	ranked, err := s.engine.RankSimilar(query, candidates, threshold, limit)
	if err != nil {
		return nil, err
	}
	monitor.AfterRanking(ranked)
	if len(ranked) == 0 {
		monitor.Finish(results)
		return results, nil
	}

	// 3. Hydrate
	ids := make([]core.ID, len(ranked))
	for i, r := range ranked {
		ids[i] = r.DocumentId
	}
	docs, err := s.docs.GetDocuments(ctx, ids...)
	if err != nil {
		s.logger.Error("error retrieving documents", "documentCount", len(ids), "err", err)
		return nil, err
	}
	monitor.AfterDocumentRetrieval(docs)

	byID := make(map[core.ID]*core.Document, len(docs))
	for _, d := range docs {
		byID[d.Id] = d
	}

	for _, r := range ranked {
		doc, ok := byID[r.DocumentId]
		if !ok {
			// Deleted between ranking and retrieval
			continue
		}
		tags, err := s.tags.GetTags(ctx, r.DocumentId)
		if err != nil {
			s.logger.Warn("failed to get tags for document", "document", r.DocumentId, "err", err)
			tags = []*core.Tag{}
		}
		result := &core.SimilarDocument{
			Document: doc,
			Score:    r.Score,
			Tags:     topTags(tags, s.topTags),
		}
		monitor.Hit(result)
		results = append(results, result)
	}
	monitor.Finish(results)

	return results, nil
}

func validateQuery(threshold float64, limit int) error {
	if err := core.ValidateThreshold(threshold); err != nil {
		return err
	}
	return core.ValidateLimit("limit", limit)
}

// topTags returns the n most confident tags, highest first, ties by name.
func topTags(tags []*core.Tag, n int) []*core.Tag {
	sorted := make([]*core.Tag, len(tags))
	copy(sorted, tags)
	slices.SortStableFunc(sorted, func(a, b *core.Tag) int {
		if c := cmp.Compare(b.Confidence, a.Confidence); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
