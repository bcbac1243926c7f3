package retag

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Snapshot is the state of a Progress at one moment.
type Snapshot struct {
	Done    int
	Failed  int
	Total   int
	Elapsed time.Duration
}

// Percent returns Done as a percentage of Total.
func (s Snapshot) Percent() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Done) / float64(s.Total) * 100
}

// Rate returns documents finished per second.
func (s Snapshot) Rate() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Done) / s.Elapsed.Seconds()
}

func (s Snapshot) String() string {
	return fmt.Sprintf("Retagged %d/%d documents (%.1f%%, %d failed) - %.1f docs/s",
		s.Done, s.Total, s.Percent(), s.Failed, s.Rate())
}

// Progress counts finished documents and rewrites one status line on w every
// `every` documents. The clock starts when it is created. Safe for concurrent use.
type Progress struct {
	mu       sync.Mutex
	w        io.Writer
	every    int
	total    int
	done     int
	failed   int
	reported int
	start    time.Time
	closed   bool
	final    Snapshot
}

// NewProgress creates a Progress for total documents. A nil w discards
// output and every is at least 1.
func NewProgress(w io.Writer, total, every int) *Progress {
	if w == nil {
		w = io.Discard
	}
	return &Progress{
		w:     w,
		every: max(every, 1),
		total: total,
		start: time.Now(),
	}
}

// Record marks one more document finished, failed or not.
func (p *Progress) Record(failed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.done >= p.total {
		return
	}

	p.done++
	if failed {
		p.failed++
	}
	if p.done-p.reported >= p.every {
		p.reported = p.done
		fmt.Fprintf(p.w, "\r%s", p.snapshot())
	}
}

// Snapshot returns the current state.
func (p *Progress) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot()
}

// Close writes the final status line and stops the clock. Later calls
// return the same snapshot without writing.
func (p *Progress) Close() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.final = p.snapshot()
		p.closed = true
		fmt.Fprintf(p.w, "\r%s\n", p.final)
	}
	return p.final
}

func (p *Progress) snapshot() Snapshot {
	if p.closed {
		return p.final
	}
	return Snapshot{
		Done:    p.done,
		Failed:  p.failed,
		Total:   p.total,
		Elapsed: time.Since(p.start),
	}
}
