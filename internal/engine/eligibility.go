package engine

import (
	"fmt"
	"time"

	"github.com/metroflow/induction-backend/internal/types"
)

// dateOnly truncates to calendar-day granularity in UTC. Certificate expiry
// is a date, not an instant.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Classify applies the hard safety gates to one trainset. Rules run in a
// fixed order; the first violated rule becomes the primary blocking reason
// but every violation is listed. Nothing outside these rules can block:
// open major or minor job cards, pending cleaning, and branding deficits
// only affect the score.
func Classify(fact *types.TrainsetFact, evalDate time.Time) types.Verdict {
	verdict := types.Verdict{TrainsetID: fact.ID, Eligible: true}
	eval := dateOnly(evalDate)

	for _, domain := range types.FitnessDomains {
		expiry, ok := fact.FitnessExpiry[domain]
		if !ok {
			continue
		}
		expiryDay := dateOnly(expiry)
		if !expiryDay.After(eval) {
			verdict.Eligible = false
			verdict.BlockingReasons = append(verdict.BlockingReasons,
				fmt.Sprintf("%s fitness expired on %s", domain, expiryDay.Format("2006-01-02")))
		}
	}

	for _, jc := range fact.JobCards {
		if jc.Severity == types.JobCardCritical && jc.IsOpen() {
			verdict.Eligible = false
			verdict.BlockingReasons = append(verdict.BlockingReasons,
				fmt.Sprintf("critical job card %s open: %s", jc.ID, jc.Description))
		}
	}

	return verdict
}
