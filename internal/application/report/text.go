package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

var statusMarks = map[string]string{
	"pass":      "PASS",
	"attention": "ATTN",
	"fail":      "FAIL",
}

// RenderText writes the report as plain text for reviewers and the replay CLI
func RenderText(w io.Writer, r Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Case:\t%s\n", r.CaseID)
	fmt.Fprintf(tw, "Status:\t%s (stage %d)\n", r.Status, int(r.CurrentStage))
	fmt.Fprintf(tw, "Amount:\t%.2f %s\n", r.Amount, r.Currency)
	if r.Department != "" {
		fmt.Fprintf(tw, "Department:\t%s\n", r.Department)
	}
	if r.Supplier != "" {
		fmt.Fprintf(tw, "Supplier:\t%s\n", r.Supplier)
	}
	if r.Flagged {
		fmt.Fprintf(tw, "Review:\t%s\n", r.FlagReason)
	}
	if r.RejectionReason != "" {
		fmt.Fprintf(tw, "Rejected:\t%s\n", r.RejectionReason)
	}
	if r.PaymentReference != "" {
		fmt.Fprintf(tw, "Payment:\t%s\n", r.PaymentReference)
	}
	fmt.Fprintf(tw, "Checks:\t%d pass, %d attention, %d fail\n", r.Totals.Pass, r.Totals.Attention, r.Totals.Fail)

	for _, s := range r.Stages {
		fmt.Fprintf(tw, "\n%d. %s\t%s\t%s\n", int(s.Stage), s.Name, s.Verdict, s.Reason)
		for _, c := range s.Checks {
			fmt.Fprintf(tw, "   [%s]\t%s\t%s\n", statusMarks[string(c.Status)], c.Name, c.Detail)
		}
		if s.Flagged {
			fmt.Fprintf(tw, "   flagged:\t%s\n", s.FlagReason)
		}
		if s.Narrative != "" {
			fmt.Fprintf(tw, "   narrative:\t%s\n", oneLine(s.Narrative))
		}
		if s.Resolution != nil {
			res := s.Resolution
			line := fmt.Sprintf("%s by %s", res.Action, res.Actor)
			if res.Reason != "" {
				line += ": " + res.Reason
			}
			fmt.Fprintf(tw, "   resolution:\t%s\n", line)
		}
	}
	return tw.Flush()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
