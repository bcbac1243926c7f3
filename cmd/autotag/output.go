package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/poiesic/autotag"
	"github.com/poiesic/autotag/core"
	"github.com/poiesic/autotag/ingestion"
	"github.com/poiesic/autotag/retag"
	"github.com/poiesic/autotag/storage"
	"github.com/poiesic/autotag/tagging"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printIngestResult(w io.Writer, r *ingestion.Result) {
	fmt.Fprintf(w, "Stored document %s (%s): %d keywords, %d entities, %d tags in %v\n",
		r.Document.Id, r.Document.Filename,
		r.Summary.Keywords, r.Summary.Entities, r.Summary.Tags,
		r.Summary.ProcessingTime.Round(time.Millisecond))
	if r.Degraded {
		fmt.Fprintln(w, "  entity model unavailable; keyword tags only")
	}
}

func printExtraction(w io.Writer, r *tagging.Result) {
	fmt.Fprintln(w, "Keywords:")
	tw := newTable(w)
	for _, k := range r.Keywords {
		fmt.Fprintf(tw, "  %s\t%.4f\n", k.Term, k.Score)
	}
	tw.Flush()

	fmt.Fprintln(w, "Entities:")
	tw = newTable(w)
	for _, e := range r.Entities {
		fmt.Fprintf(tw, "  %s\t%s\t%.2f\n", e.Text, e.Type, e.Confidence)
	}
	tw.Flush()

	fmt.Fprintln(w, "Tags:")
	tw = newTable(w)
	for _, t := range r.Tags {
		fmt.Fprintf(tw, "  %s\t%s\t%.2f\n", t.Name, t.Type, t.Confidence)
	}
	tw.Flush()
}

func printTaggedDocument(w io.Writer, d *autotag.TaggedDocument, withContent bool) {
	doc := d.Document
	tw := newTable(w)
	fmt.Fprintf(tw, "ID:\t%s\n", doc.Id)
	fmt.Fprintf(tw, "Filename:\t%s\n", doc.Filename)
	fmt.Fprintf(tw, "Type:\t%s\n", doc.FileType)
	fmt.Fprintf(tw, "Size:\t%d bytes\n", doc.FileSize)
	fmt.Fprintf(tw, "Processed:\t%t\n", doc.Processed)
	fmt.Fprintf(tw, "Uploaded:\t%s\n", doc.UploadedAt.Format(time.RFC3339))
	fmt.Fprintf(tw, "Updated:\t%s\n", doc.UpdatedAt.Format(time.RFC3339))
	tw.Flush()

	for _, tagType := range core.TagTypes {
		tags := d.ByType[tagType]
		if len(tags) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s tags:\n", tagType)
		printTags(w, tags)
	}

	if withContent {
		fmt.Fprintf(w, "\n%s\n", doc.Content)
	}
}

func printTags(w io.Writer, tags []*core.Tag) {
	tw := newTable(w)
	for _, t := range tags {
		label := string(t.Type)
		if t.EntityType != "" {
			label += "/" + string(t.EntityType)
		}
		fmt.Fprintf(tw, "  %s\t%s\t%.2f\n", t.Name, label, t.Confidence)
	}
	tw.Flush()
}

func printDocumentPage(w io.Writer, page *storage.DocumentPage) {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tFILENAME\tSIZE\tPROCESSED\tUPLOADED")
	for _, doc := range page.Documents {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%t\t%s\n",
			doc.Id, doc.Filename, doc.FileSize, doc.Processed, doc.UploadedAt.Format(time.RFC3339))
	}
	tw.Flush()
	fmt.Fprintf(w, "Page %d of %d (%d documents)\n", page.Page, page.Pages(), page.Total)
}

func printSimilar(w io.Writer, hits []*core.SimilarDocument) {
	if len(hits) == 0 {
		fmt.Fprintln(w, "No similar documents found")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "SCORE\tID\tFILENAME\tTAGS")
	for _, h := range hits {
		names := make([]string, len(h.Tags))
		for i, t := range h.Tags {
			names[i] = t.Name
		}
		fmt.Fprintf(tw, "%.4f\t%s\t%s\t%s\n", h.Score, h.Document.Id, h.Document.Filename, strings.Join(names, ", "))
	}
	tw.Flush()
}

func printStats(w io.Writer, stats *storage.TagStatistics) {
	tw := newTable(w)
	fmt.Fprintln(tw, "TAG\tTYPE\tDOCUMENTS\tAVG CONFIDENCE")
	for _, s := range stats.Tags {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\n", s.Name, s.Type, s.DocumentCount, s.AvgConfidence)
	}
	tw.Flush()

	fmt.Fprintln(w)
	tw = newTable(w)
	fmt.Fprintln(tw, "TYPE\tTAGS\tUNIQUE\tAVG CONFIDENCE")
	for _, s := range stats.Summary {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.2f\n", s.Type, s.TotalTags, s.UniqueNames, s.AvgConfidence)
	}
	tw.Flush()
}

func printRetagStats(w io.Writer, s *retag.Stats) {
	fmt.Fprintf(w, "Documents: %d, retagged: %d, degraded: %d, failed: %d\n",
		s.Documents, s.Retagged, s.Degraded, s.Failed)
}
