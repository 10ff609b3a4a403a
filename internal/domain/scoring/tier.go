// Package scoring holds the stage-specific rule engines that feed the check
// evaluator: approval-tier resolution, fraud risk scoring and the
// compliance / segregation-of-duties evaluator.
package scoring

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/garyjia/ai-procurement/internal/domain/entity"
)

var (
	// ErrNoTiers is returned when a resolver is built from an empty table
	ErrNoTiers = errors.New("approval tier table is empty")

	// ErrOverlappingTiers is returned when two bands share a ceiling
	ErrOverlappingTiers = errors.New("approval tiers overlap")
)

// Overlay adds an approval-chain entry for department or category spend
// above a threshold. Empty Department or Category match anything.
type Overlay struct {
	Department string  `json:"department" mapstructure:"department" yaml:"department"`
	Category   string  `json:"category" mapstructure:"category" yaml:"category"`
	MinAmount  float64 `json:"min_amount" mapstructure:"min_amount" yaml:"min_amount"`
	Role       string  `json:"role" mapstructure:"role" yaml:"role"`
	Reason     string  `json:"reason" mapstructure:"reason" yaml:"reason"`
}

// Matches reports whether the overlay applies to the given spend
func (o Overlay) Matches(amount float64, department, category string) bool {
	if o.Department != "" && !strings.EqualFold(o.Department, department) {
		return false
	}
	if o.Category != "" && !strings.EqualFold(o.Category, category) {
		return false
	}
	return amount > o.MinAmount
}

// TierResolver maps an amount to its approval-authority band
type TierResolver struct {
	tiers    []entity.Tier
	overlays []Overlay
}

// NewTierResolver sorts the band table by ascending ceiling with the open
// band last. Bands must not share a ceiling and at most one may be open.
func NewTierResolver(tiers []entity.Tier, overlays []Overlay) (*TierResolver, error) {
	if len(tiers) == 0 {
		return nil, ErrNoTiers
	}

	sorted := make([]entity.Tier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Unbounded() != b.Unbounded() {
			return b.Unbounded()
		}
		return a.MaxAmount < b.MaxAmount
	})

	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if prev.Unbounded() && cur.Unbounded() {
			return nil, fmt.Errorf("%w: tiers %d and %d are both open", ErrOverlappingTiers, prev.Tier, cur.Tier)
		}
		if !cur.Unbounded() && prev.MaxAmount == cur.MaxAmount {
			return nil, fmt.Errorf("%w: tiers %d and %d share ceiling %.2f", ErrOverlappingTiers, prev.Tier, cur.Tier, cur.MaxAmount)
		}
		if cur.Tier <= prev.Tier {
			return nil, fmt.Errorf("%w: tier %d ordered after tier %d", ErrOverlappingTiers, cur.Tier, prev.Tier)
		}
	}

	return &TierResolver{
		tiers:    sorted,
		overlays: append([]Overlay(nil), overlays...),
	}, nil
}

// Tiers returns the sorted band table
func (r *TierResolver) Tiers() []entity.Tier {
	return append([]entity.Tier(nil), r.tiers...)
}

// Resolve returns the first band whose ceiling covers amount.
// Anything beyond every ceiling falls through to the last band.
func (r *TierResolver) Resolve(amount float64) entity.Tier {
	for _, t := range r.tiers {
		if t.Covers(amount) {
			return t
		}
	}
	return r.tiers[len(r.tiers)-1]
}

// Chain returns the tier-determined approver followed by any overlay entries
func (r *TierResolver) Chain(amount float64, department, category string) []entity.ApprovalEntry {
	tier := r.Resolve(amount)
	chain := []entity.ApprovalEntry{{
		Role:   tier.ApproverRole,
		Reason: fmt.Sprintf("tier %d (%s) authority", tier.Tier, tier.Name),
		Source: "tier",
	}}
	return append(chain, r.Overlays(amount, department, category)...)
}

// Overlays returns the extra approval entries triggered by department or
// category spend. The tier entry is never touched.
func (r *TierResolver) Overlays(amount float64, department, category string) []entity.ApprovalEntry {
	var out []entity.ApprovalEntry
	for _, o := range r.overlays {
		if !o.Matches(amount, department, category) {
			continue
		}
		out = append(out, entity.ApprovalEntry{
			Role:   o.Role,
			Reason: o.Reason,
			Source: "overlay",
		})
	}
	return out
}

// DefaultTiers is the reference approval-authority table
func DefaultTiers() []entity.Tier {
	return []entity.Tier{
		{Tier: 1, Name: "auto", MaxAmount: 1000, ApproverRole: "system", Description: "auto-approved petty spend"},
		{Tier: 2, Name: "manager", MaxAmount: 10000, ApproverRole: "department_manager", Description: "department manager sign-off"},
		{Tier: 3, Name: "director", MaxAmount: 50000, ApproverRole: "director", Description: "director sign-off"},
		{Tier: 4, Name: "vp", MaxAmount: 250000, ApproverRole: "vp_finance", Description: "VP finance sign-off"},
		{Tier: 5, Name: "executive", MaxAmount: 0, ApproverRole: "cfo", Description: "executive committee, no upper bound"},
	}
}

// DefaultOverlays is the reference department/category overlay table
func DefaultOverlays() []Overlay {
	return []Overlay{
		{Department: "it", MinAmount: 25000, Role: "it_security_review", Reason: "IT spend above 25,000 requires security review"},
		{Department: "legal", MinAmount: 10000, Role: "general_counsel", Reason: "Legal spend above 10,000 requires general counsel"},
		{Department: "marketing", MinAmount: 50000, Role: "cmo", Reason: "Marketing spend above 50,000 requires CMO approval"},
		{Category: "software", MinAmount: 5000, Role: "it_license_review", Reason: "software purchases above 5,000 require license review"},
	}
}
