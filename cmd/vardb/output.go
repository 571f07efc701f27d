package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ersonp/variantdb-core/internal/domain/entities"
	"github.com/ersonp/variantdb-core/internal/domain/services"
)

// Output formats.
const (
	outputTable = "table"
	outputJSON  = "json"
)

var validOutputs = []string{outputTable, outputJSON}

func validateOutput(format string) error {
	for _, f := range validOutputs {
		if f == format {
			return nil
		}
	}
	return fmt.Errorf("invalid --output %q (valid: %s)", format, strings.Join(validOutputs, ", "))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func formatDate(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

func formatAudit(stamps []entities.AuditStamp) string {
	parts := make([]string, 0, len(stamps))
	for _, s := range stamps {
		parts = append(parts, fmt.Sprintf("%s:%s", s.Type, s.UserID))
	}
	return strings.Join(parts, " ")
}

func formatActions(w io.Writer, records []entities.ActionRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No actions found.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tKIND\tSTATUS\tCLASSIFICATION\tADDED\tAUDIT")
	for _, r := range records {
		added := int64(0)
		if len(r.Audit) > 0 {
			added = r.Audit[0].Date
		}
		classification := "-"
		if r.Classification != entities.ClassificationNone {
			classification = r.Classification.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Kind, r.Status, classification, formatDate(added), formatAudit(r.Audit))
	}
	return tw.Flush()
}

func formatEvents(w io.Writer, records []entities.EventRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No events found.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "POS\tID\tLABEL\tSTATUS\tAUDIT")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.Position, r.ID, r.Label, r.Status, formatAudit(r.Audit))
	}
	return tw.Flush()
}

func formatPending(w io.Writer, report *services.PendingReport) error {
	if len(report.Actions) == 0 && len(report.Events) == 0 {
		_, err := fmt.Fprintln(w, "Nothing awaiting authorisation.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "TYPE\tID\tSUBJECT\tSTATUS\tBY")
	for _, a := range report.Actions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", a.Kind, a.ID, a.SubjectID, a.Status, lastUser(a.Audit))
	}
	for _, e := range report.Events {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Label, e.ID, e.SubjectID, e.Status, lastUser(e.Audit))
	}
	return tw.Flush()
}

func lastUser(stamps []entities.AuditStamp) string {
	if len(stamps) == 0 {
		return "-"
	}
	return stamps[len(stamps)-1].UserID
}

func formatStratification(w io.Writer, s *entities.Stratification) error {
	fmt.Fprintf(w, "Run %s, panel %s, %d runs in frequency denominator\n\n", s.RunID, s.Panel, s.TotalRuns)

	tw := newTable(w)
	fmt.Fprintln(tw, "BUCKET\tCOUNT")
	for _, c := range s.Counts {
		fmt.Fprintf(tw, "%s\t%d\n", c.Bucket, c.Count)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(s.Variants) == 0 {
		_, err := fmt.Fprintln(w, "\nNo panel variants in this run.")
		return err
	}

	fmt.Fprintln(w)
	tw = newTable(w)
	fmt.Fprintln(tw, "VARIANT\tSYMBOLS\tINHERITANCE\tCLASSIFICATION\tFILTER\tOCCURRENCE\tFREQUENCY")
	for _, v := range s.Variants {
		classification := "-"
		if v.Classification != entities.ClassificationNone {
			classification = v.Classification.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%.2f\n",
			v.VariantID, strings.Join(v.Symbols, ","), v.Inheritance, classification, v.Filter, v.Occurrence, v.InternalFrequency)
	}
	return tw.Flush()
}
