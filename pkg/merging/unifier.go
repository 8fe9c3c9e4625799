// Package merging turns accepted match decisions into unified company records
package merging

import (
	"strings"

	"github.com/Gobusters/ectolinq"

	"github.com/Ramsey-B/clover/pkg/models"
)

// DefaultCeiling is the minimum confidence for a decision to be unified
const DefaultCeiling = 90

// Unifier filters decisions by the acceptance ceiling and merges the accepted
// pairs into UnifiedCompany rows.
type Unifier struct {
	Ceiling int
}

// NewUnifier creates a unifier with the given acceptance ceiling
func NewUnifier(ceiling int) *Unifier {
	return &Unifier{Ceiling: ceiling}
}

// Accept keeps decisions whose confidence meets the ceiling
func (u *Unifier) Accept(decisions []models.MatchDecision) []models.MatchDecision {
	return ectolinq.Filter(decisions, u.Accepted)
}

// Accepted reports whether a single decision meets the ceiling
func (u *Unifier) Accepted(decision models.MatchDecision) bool {
	return decision.Confidence >= u.Ceiling
}

// Merge builds the unified record for one decision.
//
// Field sources:
//   - registry: business number, name, entity type, status, address, postcode, state, effective date
//   - crawl: industry tag, source url
//   - name falls back to the crawl name when the registry has none
func (u *Unifier) Merge(decision models.MatchDecision) models.UnifiedCompany {
	crawl := decision.Pair.Crawl
	registry := decision.Pair.Registry

	return models.UnifiedCompany{
		BusinessNumber: strings.TrimSpace(registry.BusinessNumber),
		CompanyName:    preferNonEmpty(registry.Name, crawl.Name),
		EntityType:     preferNonEmpty(registry.EntityType),
		EntityStatus:   preferNonEmpty(registry.EntityStatus),
		Address:        preferNonEmpty(registry.Address),
		Postcode:       preferNonEmpty(registry.Postcode),
		State:          preferNonEmpty(registry.State),
		EffectiveDate:  preferNonEmpty(registry.EffectiveDate),
		Industry:       preferNonEmpty(crawl.Industry),
		SourceURL:      preferNonEmpty(crawl.URL),
		Confidence:     decision.Confidence,
	}
}

// Dedupe collapses companies sharing a business number. The last record seen
// for a key wins; it takes the position where the key was first seen.
func Dedupe(companies []models.UnifiedCompany) []models.UnifiedCompany {
	position := make(map[string]int, len(companies))
	out := make([]models.UnifiedCompany, 0, len(companies))

	for _, company := range companies {
		if i, ok := position[company.BusinessNumber]; ok {
			out[i] = company
			continue
		}
		position[company.BusinessNumber] = len(out)
		out = append(out, company)
	}
	return out
}

// Unify runs Accept, Merge and Dedupe in order
func (u *Unifier) Unify(decisions []models.MatchDecision) []models.UnifiedCompany {
	accepted := u.Accept(decisions)
	companies := ectolinq.Map(accepted, u.Merge)
	companies = ectolinq.Filter(companies, func(c models.UnifiedCompany) bool {
		return c.BusinessNumber != ""
	})
	return Dedupe(companies)
}

func preferNonEmpty(values ...*string) string {
	for _, v := range values {
		if s := strings.TrimSpace(models.Deref(v)); s != "" {
			return s
		}
	}
	return ""
}
