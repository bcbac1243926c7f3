package retag

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgress_ReportsEveryInterval(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, 100, 50)

	for range 10 {
		p.Record(false)
	}
	assert.Empty(t, buf.String(), "no report before the interval is crossed")

	for range 40 {
		p.Record(false)
	}
	assert.Contains(t, buf.String(), "50/100")
	assert.Contains(t, buf.String(), "50.0%")
}

func TestProgress_CountsFailures(t *testing.T) {
	p := NewProgress(nil, 4, 1)
	p.Record(false)
	p.Record(true)
	p.Record(true)

	s := p.Snapshot()
	assert.Equal(t, 3, s.Done)
	assert.Equal(t, 2, s.Failed)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 75.0, s.Percent())
}

func TestProgress_Close(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, 4, 10)
	p.Record(false)
	p.Record(false)
	p.Record(true)

	s := p.Close()
	out := buf.String()
	assert.Contains(t, out, "3/4", "close reports the real count")
	assert.Contains(t, out, "1 failed")
	assert.True(t, strings.HasSuffix(out, "\n"))

	time.Sleep(5 * time.Millisecond)
	again := p.Close()
	assert.Equal(t, s, again, "clock stops at close")
	assert.Equal(t, out, buf.String(), "second close writes nothing")

	p.Record(false)
	assert.Equal(t, 3, p.Snapshot().Done)
}

func TestProgress_CapsAtTotal(t *testing.T) {
	p := NewProgress(nil, 2, 1)
	for range 5 {
		p.Record(false)
	}
	assert.Equal(t, 2, p.Snapshot().Done)
}

func TestSnapshot(t *testing.T) {
	s := Snapshot{Done: 10, Total: 40, Elapsed: 2 * time.Second}
	assert.Equal(t, 25.0, s.Percent())
	assert.Equal(t, 5.0, s.Rate())
	assert.Equal(t, "Retagged 10/40 documents (25.0%, 0 failed) - 5.0 docs/s", s.String())

	assert.Zero(t, Snapshot{}.Percent())
	assert.Zero(t, Snapshot{Done: 3}.Rate())
}

func TestProgress_Concurrent(t *testing.T) {
	p := NewProgress(nil, 1000, 7)

	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 10 {
				p.Record(i%10 == 0)
			}
		}()
	}
	wg.Wait()

	s := p.Snapshot()
	assert.Equal(t, 1000, s.Done)
	assert.Equal(t, 100, s.Failed)
}
