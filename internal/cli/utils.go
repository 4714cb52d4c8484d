// Package cli formats command output for yomu.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hyperjump/yomu/internal/models"
	"github.com/hyperjump/yomu/internal/pipeline"
	"github.com/hyperjump/yomu/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const rule = "---------------------------------------------------------"

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (use text or json)", s)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteAnswer writes an answer to w in the given format.
func WriteAnswer(w io.Writer, ans *models.Answer, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, ans)
	}
	fmt.Fprintf(w, "\n%s\n", strings.TrimRight(ans.Text, "\n"))
	if ans.Strategy != "" {
		mode := "extractive"
		if ans.Generated {
			mode = "generated"
		}
		fmt.Fprintf(w, "\n(%s retrieval, %d results, %s)\n", ans.Strategy, ans.Results, mode)
	}
	return nil
}

// WriteReport writes an ingestion report to w in the given format.
func WriteReport(w io.Writer, r *pipeline.Report, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, r)
	}
	fmt.Fprintf(w, "Ingestion %s finished in %s\n", r.RunID, r.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  Seed:       %s\n", r.Seed)
	fmt.Fprintf(w, "  Pages:      %d\n", r.Pages)
	fmt.Fprintf(w, "  Documents:  %d\n", r.Documents)
	fmt.Fprintf(w, "  Processed:  %d (%d chunks)\n", r.Processed, r.Chunks)
	fmt.Fprintf(w, "  Unchanged:  %d\n", r.Unchanged)
	fmt.Fprintf(w, "  Failed:     %d index, %d fetch\n", r.Failed, r.FetchFailed)
	return nil
}

// WriteSources writes tracked sources to w in the given format.
func WriteSources(w io.Writer, sources []*models.Source, format OutputFormat) error {
	if format == OutputJSON {
		if sources == nil {
			sources = []*models.Source{}
		}
		return writeJSON(w, sources)
	}
	if len(sources) == 0 {
		fmt.Fprintln(w, "No sources tracked yet.")
		return nil
	}
	for _, s := range sources {
		processed := "never"
		if !s.LastProcessedAt.IsZero() {
			processed = s.LastProcessedAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(w, "%-9s %-9s %s  %s\n", s.Kind, s.Status, processed, s.URL)
		if s.Title != "" {
			fmt.Fprintf(w, "          %s\n", utils.Truncate(s.Title, 80))
		}
	}
	fmt.Fprintf(w, "\n%d sources\n", len(sources))
	return nil
}

// WriteEvents writes ingest log entries to w in the given format.
func WriteEvents(w io.Writer, events []*models.Event, format OutputFormat) error {
	if format == OutputJSON {
		if events == nil {
			events = []*models.Event{}
		}
		return writeJSON(w, events)
	}
	if len(events) == 0 {
		fmt.Fprintln(w, "No ingest events recorded.")
		return nil
	}
	for _, ev := range events {
		fmt.Fprintf(w, "%s  %-16s %s", ev.Timestamp.Local().Format(time.DateTime), ev.Kind, ev.SourceURL)
		if ev.Detail != "" {
			fmt.Fprintf(w, "  (%s)", utils.Truncate(utils.SingleLine(ev.Detail), 100))
		}
		fmt.Fprintln(w)
	}
	return nil
}

// WriteStatus writes storage counts to w in the given format.
func WriteStatus(w io.Writer, st *pipeline.Status, strategy string, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, struct {
			*pipeline.Status
			Strategy string `json:"strategy"`
		}{st, strategy})
	}
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Strategy:    %s\n", strategy)
	fmt.Fprintf(w, "Sources:     %d\n", st.Sources)
	fmt.Fprintf(w, "Chunks:      %d\n", st.Chunks)
	fmt.Fprintf(w, "Vectors:     %d\n", st.Vectors)
	fmt.Fprintf(w, "Events:      %d\n", st.Events)
	fmt.Fprintf(w, "Disk usage:  %s\n", FormatBytes(st.DiskUsageBytes))
	fmt.Fprintln(w, rule)
	return nil
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
