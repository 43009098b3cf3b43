package validate

import (
	"fmt"
	"sort"

	"github.com/mfromano/schedule-creator/internal/models"
)

// CheckNightFloat verifies per-kind counts, the 4-week spacing, and no-call
// weeks against the NF overlay.
func CheckNightFloat(
	residents []*models.Resident,
	grid *models.Grid,
	rules models.NFRules,
	noCall map[string]map[int]bool,
) []Finding {
	var findings []Finding
	overlay := grid.NFAssignments()

	for _, r := range residents {
		picks := overlay[r.Name]
		var weeks []int
		counts := map[string]int{}
		for w, kind := range picks {
			weeks = append(weeks, w)
			counts[kind]++
		}
		sort.Ints(weeks)

		switch r.RYear {
		case 2:
			if counts["Mnf"] != rules.R2MnfWeeks {
				findings = append(findings, nfCountFinding(r, "Mnf", counts["Mnf"], rules.R2MnfWeeks))
			}
			if counts["Snf2"] > 0 {
				findings = append(findings, Finding{
					Check:    "night-float",
					Severity: SeverityError,
					Message:  fmt.Sprintf("%s (R2) holds %d Snf2 week(s); Snf2 is R3/R4 only", r.Name, counts["Snf2"]),
				})
			}
		case 3:
			total := counts["Mnf"] + counts["Snf2"]
			if total > rules.R3MaxNF {
				findings = append(findings, Finding{
					Check:    "night-float",
					Severity: SeverityError,
					Message:  fmt.Sprintf("%s (R3) holds %d NF week(s); maximum %d", r.Name, total, rules.R3MaxNF),
				})
			}
		case 4:
			if counts["Snf2"] != rules.R4Snf2Weeks {
				findings = append(findings, nfCountFinding(r, "Snf2", counts["Snf2"], rules.R4Snf2Weeks))
			}
			if counts["Mnf"] > 0 {
				findings = append(findings, Finding{
					Check:    "night-float",
					Severity: SeverityError,
					Message:  fmt.Sprintf("%s (R4) holds %d Mnf week(s); Mnf is R2/R3 only", r.Name, counts["Mnf"]),
				})
			}
		}

		for i := 1; i < len(weeks); i++ {
			if weeks[i]-weeks[i-1] < rules.MinSpacingWeeks {
				findings = append(findings, Finding{
					Check:    "night-float",
					Severity: SeverityError,
					Message: fmt.Sprintf("%s: NF weeks %d and %d are closer than %d weeks",
						r.Name, weeks[i-1], weeks[i], rules.MinSpacingWeeks),
					Cells: []Cell{{Resident: r.Name, Week: weeks[i-1]}, {Resident: r.Name, Week: weeks[i]}},
				})
			}
		}

		for _, w := range weeks {
			if noCall[r.Name][w] {
				findings = append(findings, Finding{
					Check:    "night-float",
					Severity: SeverityError,
					Message:  fmt.Sprintf("%s: NF in week %d violates a no-call request", r.Name, w),
					Cells:    []Cell{{Resident: r.Name, Week: w}},
				})
			}
		}
	}
	return findings
}

func nfCountFinding(r *models.Resident, kind string, got, want int) Finding {
	return Finding{
		Check:    "night-float",
		Severity: SeverityError,
		Message:  fmt.Sprintf("%s (R%d) holds %d %s week(s); rule requires %d", r.Name, r.RYear, got, kind, want),
	}
}
