package scoring

import (
	"fmt"

	"windshield-quiz-service/internal/domain"
)

// Insurance outcome keys.
const (
	OutcomeNotCovered       = "not_covered"
	OutcomeFullyCovered     = "fully_covered"
	OutcomePartiallyCovered = "partially_covered"
	OutcomeCheckPolicy      = "check_policy"
)

// insuranceAnswers holds the option picked for each calculator role. Roles
// left unanswered keep the zero InsuranceOption.
type insuranceAnswers struct {
	state, coverage, cause, deductible, service, fullGlass, priorClaims domain.InsuranceOption
	stateName                                                          string
}

func pickInsurance(quiz domain.Quiz, roles domain.InsuranceRoles, answers []domain.Answer) insuranceAnswers {
	picked := make(map[string]domain.Option, len(answers))
	for _, sel := range selections(quiz, answers) {
		if len(sel.options) > 0 {
			picked[sel.question.ID] = sel.options[0]
		}
	}
	attrs := func(qid string) domain.InsuranceOption {
		if opt, ok := picked[qid]; ok {
			if p, ok := opt.Payload.(domain.InsuranceOption); ok {
				return p
			}
		}
		return domain.InsuranceOption{}
	}

	in := insuranceAnswers{
		state:       attrs(roles.State),
		coverage:    attrs(roles.CoverageType),
		cause:       attrs(roles.DamageCause),
		deductible:  attrs(roles.Deductible),
		service:     attrs(roles.ServiceType),
		fullGlass:   attrs(roles.FullGlass),
		priorClaims: attrs(roles.PriorClaims),
	}
	in.stateName = in.state.State
	if opt, ok := picked[roles.State]; ok && opt.Label != "" {
		in.stateName = opt.Label
	}
	if in.stateName == "" {
		in.stateName = "Your state"
	}
	return in
}

// insurance estimates what the user pays for glass work under their policy.
func insurance(quiz domain.Quiz, s domain.InsuranceScoring, answers []domain.Answer) domain.Result {
	in := pickInsurance(quiz, s.Roles, answers)

	var notes, warnings []string

	estimate := s.DefaultEstimate
	if in.service.EstimatedCost != nil {
		estimate = *in.service.EstimatedCost
	}

	covered := false
	if in.coverage.Covered {
		switch in.cause.CoverageClass {
		case domain.CoverageComprehensive, domain.CoverageUnknown:
			covered = true
		case domain.CoverageCollision:
			if in.coverage.IncludesCollision {
				covered = true
				notes = append(notes, "Collision damage is covered by your policy, but filing under comprehensive coverage may still cost you less. Ask your insurer which applies.")
			}
		}
	}

	deductible := 0.0
	outOfPocket := estimate
	if covered {
		switch {
		case in.state.ZeroDeductibleLaw:
			notes = append(notes, fmt.Sprintf("%s law requires insurers to cover windshield glass with no deductible on comprehensive policies.", in.stateName))
		case in.service.WaivesDeductible:
			notes = append(notes, "Most insurers waive the deductible for windshield repairs.")
		case in.fullGlass.FullGlass:
			notes = append(notes, "Full glass coverage means you pay no deductible for glass claims.")
		case in.deductible.Deductible != nil:
			deductible = *in.deductible.Deductible
		default:
			deductible = s.AssumedDeductible
			notes = append(notes, fmt.Sprintf("We assumed a $%.0f deductible. Verify the amount on your actual policy.", deductible))
		}
		outOfPocket = min(deductible, estimate)
	}

	if in.state.GlassRiderAvailable && deductible > 0 {
		notes = append(notes, fmt.Sprintf("%s allows an optional zero-deductible glass rider. Ask your agent about adding one.", in.stateName))
	}
	if in.priorClaims.PriorClaims {
		warnings = append(warnings, "Repeat glass claims can affect your premium with some insurers. Ask how another claim would impact your rate.")
	}

	var outcome string
	switch {
	case !covered:
		outcome = OutcomeNotCovered
	case outOfPocket == 0:
		outcome = OutcomeFullyCovered
	case outOfPocket < estimate:
		outcome = OutcomePartiallyCovered
	default:
		outcome = OutcomeCheckPolicy
	}

	r := fromTemplate(outcome, s.Results[outcome], domain.SeverityInfo)
	r.Notes = append(r.Notes, notes...)
	r.Warnings = append(r.Warnings, warnings...)
	r.CostBreakdown = &domain.CostBreakdown{
		Covered:       covered,
		Deductible:    deductible,
		EstimatedCost: estimate,
		YourCost:      outOfPocket,
		InsurancePays: estimate - outOfPocket,
	}
	return r
}
