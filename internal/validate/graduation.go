package validate

import (
	"fmt"

	"github.com/mfromano/schedule-creator/internal/models"
)

// CheckGraduation applies the graduation arithmetic to every graduating
// senior (and T32 juniors): historical plus current-year base-schedule
// weeks per requirement, NF excluded, with the 4:1 NucMed substitution for
// non-NRDR residents only.
func CheckGraduation(residents []*models.Resident, grid *models.Grid) []Finding {
	var findings []Finding
	for _, r := range residents {
		if r.RYear < 3 && !r.IsT32() {
			continue
		}
		severity := SeverityError
		if r.RYear < 4 {
			// Juniors still have seasons left; deficits are advisory.
			severity = SeverityWarning
		}

		current := map[string]float64{}
		for w := 1; w <= grid.Weeks; w++ {
			if code := grid.Base(r.Name, w); code != "" && !models.IsNightFloat(code) {
				current[code]++
			}
		}

		for _, req := range models.StandardRequirements() {
			if !req.AppliesToResident(r) {
				continue
			}
			total := req.CreditedWeeks(r.History, current)
			if total < req.RequiredWeeks {
				findings = append(findings, Finding{
					Check:    "graduation",
					Severity: severity,
					Message: fmt.Sprintf("%s: %s at %.1f/%.0f weeks (deficit %.1f)",
						r.Name, req.Label, total, req.RequiredWeeks, req.RequiredWeeks-total),
					Cells: []Cell{{Resident: r.Name}},
				})
			}
		}

		// ESNR: at most one Smr block among the neuro window.
		if r.IsESNR() {
			if smr := current["Smr"]; smr > 4 {
				findings = append(findings, Finding{
					Check:    "graduation",
					Severity: SeverityError,
					Message:  fmt.Sprintf("%s: %.0f weeks of Smr exceeds the one-block ESNR limit", r.Name, smr),
					Cells:    []Cell{{Resident: r.Name}},
				})
			}
		}
	}
	return findings
}
