package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/guregu/null/v5"

	"projectbeheer/backend/internal/audit/domain"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printEntries(w io.Writer, entries []*domain.Entry, raw bool) error {
	if raw {
		return printJSON(w, entries)
	}
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No changes found.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tTABLE\tID\tVERSION\tACTION\tACTOR\tNOTE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			e.OccurredAt.UTC().Format(time.RFC3339), e.EntityTable, e.EntityID,
			e.VersionAfter, e.Action, orDash(e.ActorID), orDash(e.Note))
	}
	return tw.Flush()
}

func orDash(s null.String) string {
	if !s.Valid || s.String == "" {
		return "-"
	}
	return s.String
}

func printChanges(w io.Writer, changes map[string]domain.FieldChange) error {
	if len(changes) == 0 {
		_, err := fmt.Fprintln(w, "No differences.")
		return err
	}
	fields := make([]string, 0, len(changes))
	for f := range changes {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tOLD\tNEW")
	for _, f := range fields {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", f, formatValue(changes[f].Old), formatValue(changes[f].New))
	}
	return tw.Flush()
}

func formatValue(v any) string {
	if v == nil {
		return "-"
	}
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
