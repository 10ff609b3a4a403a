package scoring

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/garyjia/ai-procurement/internal/domain/entity"
	"github.com/garyjia/ai-procurement/internal/domain/facts"
)

// Actor roles that participate in segregation-of-duties checks
const (
	RoleRequester = "requester"
	RoleCreator   = "creator"
	RoleApprover  = "approver"
	RoleReceiver  = "receiver"
	RolePayer     = "payer"
)

// ConflictPair is two roles one actor may not hold on the same case
type ConflictPair struct {
	A string `json:"a" mapstructure:"a" yaml:"a"`
	B string `json:"b" mapstructure:"b" yaml:"b"`
}

// DocumentRequirement lists the documents a tier adds on top of the tiers below it
type DocumentRequirement struct {
	Tier      int      `json:"tier" mapstructure:"tier" yaml:"tier"`
	Documents []string `json:"documents" mapstructure:"documents" yaml:"documents"`
}

// ComplianceRules holds the SOD, document and contract policies
type ComplianceRules struct {
	ConflictPairs             []ConflictPair        `json:"conflict_pairs" mapstructure:"conflict_pairs" yaml:"conflict_pairs"`
	RequiredDocuments         []DocumentRequirement `json:"required_documents" mapstructure:"required_documents" yaml:"required_documents"`
	ContractExpiryWarningDays int                   `json:"contract_expiry_warning_days" mapstructure:"contract_expiry_warning_days" yaml:"contract_expiry_warning_days"`
	RestrictedCategories      []string              `json:"restricted_categories" mapstructure:"restricted_categories" yaml:"restricted_categories"`
}

// DefaultComplianceRules is the reference compliance table
func DefaultComplianceRules() ComplianceRules {
	return ComplianceRules{
		ConflictPairs: []ConflictPair{
			{A: RoleCreator, B: RoleApprover},
			{A: RoleRequester, B: RoleApprover},
			{A: RoleApprover, B: RolePayer},
			{A: RoleReceiver, B: RolePayer},
			{A: RoleRequester, B: RolePayer},
		},
		RequiredDocuments: []DocumentRequirement{
			{Tier: 1, Documents: []string{"invoice"}},
			{Tier: 2, Documents: []string{"purchase_order"}},
			{Tier: 3, Documents: []string{"quote", "budget_approval"}},
			{Tier: 4, Documents: []string{"competitive_bids"}},
			{Tier: 5, Documents: []string{"board_approval"}},
		},
		ContractExpiryWarningDays: 30,
		RestrictedCategories:      []string{"weapons", "gambling", "cryptocurrency"},
	}
}

// Validate checks the document table is strictly growing by tier
func (r ComplianceRules) Validate() error {
	seen := map[int]bool{}
	for _, req := range r.RequiredDocuments {
		if seen[req.Tier] {
			return fmt.Errorf("required documents: tier %d listed twice", req.Tier)
		}
		seen[req.Tier] = true
		if len(req.Documents) == 0 {
			return fmt.Errorf("required documents: tier %d adds no documents", req.Tier)
		}
	}
	for _, p := range r.ConflictPairs {
		if p.A == "" || p.B == "" || p.A == p.B {
			return fmt.Errorf("invalid conflict pair %q/%q", p.A, p.B)
		}
	}
	if r.ContractExpiryWarningDays < 0 {
		return fmt.Errorf("contract expiry warning days must not be negative, got %d", r.ContractExpiryWarningDays)
	}
	return nil
}

// Conflict is one SOD violation
type Conflict struct {
	Pair  ConflictPair
	Actor string
}

func (c Conflict) String() string {
	return fmt.Sprintf("%s is both %s and %s", c.Actor, c.Pair.A, c.Pair.B)
}

// ComplianceEvaluator applies the compliance rule table
type ComplianceEvaluator struct {
	rules ComplianceRules
}

// NewComplianceEvaluator creates an evaluator for the given rules
func NewComplianceEvaluator(rules ComplianceRules) *ComplianceEvaluator {
	return &ComplianceEvaluator{rules: rules}
}

// Actors maps each SOD role to the actor identifier recorded on the case
func Actors(f facts.Facts) map[string]string {
	return map[string]string{
		RoleRequester: f.RequesterID,
		RoleCreator:   f.CreatorID,
		RoleApprover:  f.ApproverID,
		RoleReceiver:  f.ReceiverID,
		RolePayer:     f.PayerID,
	}
}

// Conflicts returns every conflict pair held by a single actor.
// Unassigned roles never conflict.
func (e *ComplianceEvaluator) Conflicts(f facts.Facts) []Conflict {
	actors := Actors(f)
	var out []Conflict
	for _, p := range e.rules.ConflictPairs {
		a, b := actors[p.A], actors[p.B]
		if a == "" || b == "" {
			continue
		}
		if strings.EqualFold(a, b) {
			out = append(out, Conflict{Pair: p, Actor: a})
		}
	}
	return out
}

// RequiredDocuments returns the cumulative document list for a tier
func (e *ComplianceEvaluator) RequiredDocuments(tier int) []string {
	reqs := append([]DocumentRequirement(nil), e.rules.RequiredDocuments...)
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].Tier < reqs[j].Tier })

	var docs []string
	seen := map[string]bool{}
	for _, req := range reqs {
		if req.Tier > tier {
			break
		}
		for _, d := range req.Documents {
			key := strings.ToLower(d)
			if !seen[key] {
				seen[key] = true
				docs = append(docs, key)
			}
		}
	}
	return docs
}

// MissingDocuments compares the provided documents against the tier table
func (e *ComplianceEvaluator) MissingDocuments(tier int, provided []string) []string {
	have := make(map[string]bool, len(provided))
	for _, d := range provided {
		have[strings.ToLower(strings.TrimSpace(d))] = true
	}
	var missing []string
	for _, d := range e.RequiredDocuments(tier) {
		if !have[d] {
			missing = append(missing, d)
		}
	}
	return missing
}

// DocumentStatus: none missing passes, one missing needs attention, more fails
func (e *ComplianceEvaluator) DocumentStatus(tier int, provided []string) (entity.CheckStatus, []string) {
	missing := e.MissingDocuments(tier, provided)
	switch {
	case len(missing) == 0:
		return entity.CheckPass, nil
	case len(missing) == 1:
		return entity.CheckAttention, missing
	default:
		return entity.CheckFail, missing
	}
}

// ContractStatus classifies contract expiry relative to asOf.
// Expired fails, inside the warning window needs attention.
func (e *ComplianceEvaluator) ContractStatus(expiry, asOf time.Time) (entity.CheckStatus, string) {
	if expiry.IsZero() {
		return entity.CheckPass, "no contract expiry on record"
	}
	if asOf.IsZero() {
		return entity.CheckPass, fmt.Sprintf("contract expires %s, no reference date", expiry.Format("2006-01-02"))
	}
	days := int(expiry.Sub(asOf).Hours() / 24)
	switch {
	case expiry.Before(asOf):
		return entity.CheckFail, fmt.Sprintf("contract expired %s", expiry.Format("2006-01-02"))
	case days <= e.rules.ContractExpiryWarningDays:
		return entity.CheckAttention, fmt.Sprintf("contract expires in %d days", days)
	default:
		return entity.CheckPass, fmt.Sprintf("contract valid until %s", expiry.Format("2006-01-02"))
	}
}

// Restricted reports a category on the restricted list
func (e *ComplianceEvaluator) Restricted(category string) bool {
	for _, c := range e.rules.RestrictedCategories {
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}
