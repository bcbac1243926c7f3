package search

import (
	"github.com/poiesic/autotag/core"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string)
	AfterCandidateRetrieval(count int)
	AfterRanking(ranked []core.SimilarityResult)
	AfterDocumentRetrieval(docs []*core.Document)
	Hit(result *core.SimilarDocument)
	Finish(results []*core.SimilarDocument)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                            {}
func (n *noopMonitor) AfterCandidateRetrieval(_ int)             {}
func (n *noopMonitor) AfterRanking(_ []core.SimilarityResult)    {}
func (n *noopMonitor) AfterDocumentRetrieval(_ []*core.Document) {}
func (n *noopMonitor) Hit(_ *core.SimilarDocument)               {}
func (n *noopMonitor) Finish(_ []*core.SimilarDocument)          {}
