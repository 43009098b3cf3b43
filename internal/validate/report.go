package validate

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mfromano/schedule-creator/internal/models"
)

// Report aggregates the four independent checks over one grid.
type Report struct {
	RunID    string    `json:"run_id"`
	Findings []Finding `json:"findings"`
	Summary  []SystemSummary
}

// Input bundles what the checks need.
type Input struct {
	Residents []*models.Resident
	Grid      *models.Grid
	Envelope  models.Envelope
	NFRules   models.NFRules
	NoCall    map[string]map[int]bool
}

// Run executes all four checks and collects the findings.
func Run(in Input) *Report {
	r := &Report{RunID: uuid.NewString()}
	r.Findings = append(r.Findings, CheckStaffing(in.Grid, in.Envelope, in.Grid.Weeks)...)
	r.Findings = append(r.Findings, CheckGraduation(in.Residents, in.Grid)...)
	r.Findings = append(r.Findings, CheckHospitalConflicts(in.Residents, in.Grid)...)
	r.Findings = append(r.Findings, CheckNightFloat(in.Residents, in.Grid, in.NFRules, in.NoCall)...)
	r.Summary = StaffingSummary(in.Grid, in.Grid.Weeks)
	return r
}

// OK reports whether no error-severity finding exists.
func (r *Report) OK() bool {
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			return false
		}
	}
	return true
}

// ErrorCount counts error-severity findings.
func (r *Report) ErrorCount() int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			n++
		}
	}
	return n
}

// ByCheck groups findings under their check name.
func (r *Report) ByCheck() map[string][]Finding {
	out := map[string][]Finding{}
	for _, f := range r.Findings {
		out[f.Check] = append(out[f.Check], f)
	}
	return out
}

// Render formats the report for terminal output.
func (r *Report) Render(residents []*models.Resident, grid *models.Grid) string {
	var sb strings.Builder
	bar := strings.Repeat("=", 70)
	sb.WriteString(bar + "\n")
	sb.WriteString("SCHEDULE VALIDATION REPORT  (run " + r.RunID + ")\n")
	sb.WriteString(bar + "\n")

	byCheck := r.ByCheck()
	for _, check := range []string{"staffing", "graduation", "hospital-conflict", "night-float"} {
		findings := byCheck[check]
		fmt.Fprintf(&sb, "\n## %s (%d finding(s))\n", strings.ToUpper(check), len(findings))
		if len(findings) == 0 {
			sb.WriteString("  clean\n")
			continue
		}
		shown := findings
		if len(shown) > 20 {
			shown = shown[:20]
		}
		for _, f := range shown {
			fmt.Fprintf(&sb, "  [%s] %s\n", f.Severity, f.Message)
		}
		if len(findings) > 20 {
			fmt.Fprintf(&sb, "  ... and %d more\n", len(findings)-20)
		}
	}

	sb.WriteString("\n## SYSTEM CENSUS (residents/week)\n")
	for _, s := range r.Summary {
		fmt.Fprintf(&sb, "  %-6s avg=%.1f min=%d (week %d) max=%d\n",
			s.System, s.Avg, s.Min, s.MinWeek, s.Max)
	}

	sb.WriteString("\n## COVERAGE (avg unassigned weeks/resident)\n")
	for year := 1; year <= 4; year++ {
		class := models.ByYear(residents, year)
		if len(class) == 0 {
			continue
		}
		empty := 0
		for _, res := range class {
			for w := 1; w <= grid.Weeks; w++ {
				if grid.Base(res.Name, w) == "" {
					empty++
				}
			}
		}
		fmt.Fprintf(&sb, "  R%d: %.1f\n", year, float64(empty)/float64(len(class)))
	}

	status := "OK"
	if !r.OK() {
		status = fmt.Sprintf("%d ERROR finding(s)", r.ErrorCount())
	}
	sb.WriteString("\n" + bar + "\n")
	sb.WriteString("RESULT: " + status + "\n")
	return sb.String()
}
