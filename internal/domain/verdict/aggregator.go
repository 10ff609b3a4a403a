// Package verdict rolls a stage's check list into its binary verdict
package verdict

import (
	"errors"
	"fmt"
	"strings"

	"github.com/garyjia/ai-procurement/internal/domain/entity"
)

// ErrCheckCount is returned when a stage produced fewer checks than required
var ErrCheckCount = errors.New("stage produced too few checks")

// Escalation limits
const (
	attentionLimit       = 3
	urgentAttentionLimit = 2
)

// Aggregate applies the escalation rules in order, first match wins:
// any fail, three or more attention items, two or more attention items on an
// urgent case. Anything else auto-approves.
func Aggregate(checks []entity.CheckResult, urgent bool) (entity.Verdict, error) {
	if len(checks) < entity.ChecksPerStage {
		return entity.Verdict{}, fmt.Errorf("%w: got %d, want %d", ErrCheckCount, len(checks), entity.ChecksPerStage)
	}

	var failed, flagged []string
	for _, c := range checks {
		switch c.Status {
		case entity.CheckFail:
			failed = append(failed, c.Name)
		case entity.CheckAttention:
			flagged = append(flagged, c.Name)
		}
	}

	switch {
	case len(failed) > 0:
		return entity.Verdict{
			Value:  entity.VerdictHITLFlag,
			Reason: "failed checks: " + strings.Join(failed, ", "),
		}, nil
	case len(flagged) >= attentionLimit:
		return entity.Verdict{
			Value:  entity.VerdictHITLFlag,
			Reason: "multiple items require attention: " + strings.Join(flagged, ", "),
		}, nil
	case urgent && len(flagged) >= urgentAttentionLimit:
		return entity.Verdict{
			Value:  entity.VerdictHITLFlag,
			Reason: "urgent case with items requiring attention: " + strings.Join(flagged, ", "),
		}, nil
	case len(flagged) > 0:
		return entity.Verdict{
			Value:  entity.VerdictAutoApprove,
			Reason: "approved, non-blocking attention items: " + strings.Join(flagged, ", "),
		}, nil
	default:
		return entity.Verdict{
			Value:  entity.VerdictAutoApprove,
			Reason: "all checks passed",
		}, nil
	}
}
