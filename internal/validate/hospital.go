package validate

import (
	"fmt"
	"sort"

	"github.com/mfromano/schedule-creator/internal/models"
)

// CheckHospitalConflicts flags any (resident, block) whose four cells span
// more than one non-OTHER hospital system.
func CheckHospitalConflicts(residents []*models.Resident, grid *models.Grid) []Finding {
	var findings []Finding
	for _, r := range residents {
		for block := 1; block <= 13; block++ {
			systems := map[models.HospitalSystem][]string{}
			var cells []Cell
			for _, w := range models.BlockWeeks(block) {
				code := grid.Base(r.Name, w)
				if code == "" {
					continue
				}
				sys := models.HospitalFor(code)
				if sys == models.HospitalOther {
					continue
				}
				systems[sys] = append(systems[sys], code)
				cells = append(cells, Cell{Resident: r.Name, Week: w})
			}
			if len(systems) <= 1 {
				continue
			}
			names := make([]string, 0, len(systems))
			codes := make([]string, 0, 4)
			for sys, cc := range systems {
				names = append(names, string(sys))
				codes = append(codes, cc...)
			}
			sort.Strings(names)
			sort.Strings(codes)
			findings = append(findings, Finding{
				Check:    "hospital-conflict",
				Severity: SeverityError,
				Message: fmt.Sprintf("%s: block %d spans %v via %v",
					r.Name, block, names, codes),
				Cells: cells,
			})
		}
	}
	return findings
}
