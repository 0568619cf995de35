package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"webform-store/internal/webform"
)

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatCreated(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

func printSubmissions(cmd *cobra.Command, subs []webform.Submission, headersOnly bool) {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTRY\tFORM\tCREATED\tSTATE\tRESOURCE")
	for _, s := range subs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", s.EntryID, s.FormID, formatCreated(s.DateCreated), s.State, s.ResourceID)
		if headersOnly {
			continue
		}
		for _, name := range s.FieldNames() {
			fmt.Fprintf(tw, "\t  %s\t%s\t\t\n", name, strings.Join(s.Values(name), ", "))
		}
	}
	tw.Flush()
	printf(cmd, "%d submission(s)\n", len(subs))
}

func printSubmission(cmd *cobra.Command, s *webform.Submission) {
	printf(cmd, "Entry:    %d\n", s.EntryID)
	printf(cmd, "Form:     %s\n", s.FormID)
	printf(cmd, "Created:  %s\n", formatCreated(s.DateCreated))
	printf(cmd, "State:    %d\n", s.State)
	printf(cmd, "Resource: %s\n", s.ResourceID)
	for _, fv := range s.Fields {
		printf(cmd, "  %s = %s\n", fv.Name, fv.Value)
	}
}

func printCounts(cmd *cobra.Command, counts map[string]int) {
	forms := make([]string, 0, len(counts))
	for form := range counts {
		forms = append(forms, form)
	}
	sort.Strings(forms)

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FORM\tSUBMISSIONS")
	for _, form := range forms {
		fmt.Fprintf(tw, "%s\t%d\n", form, counts[form])
	}
	tw.Flush()
}
