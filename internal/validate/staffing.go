package validate

import (
	"fmt"
	"sort"

	"github.com/mfromano/schedule-creator/internal/models"
)

// CheckStaffing compares per-week head counts against the envelope.
// Under-staffing is an error; over-staffing a warning (maximums depend on
// class size and are mostly informational).
func CheckStaffing(grid *models.Grid, env models.Envelope, weeks int) []Finding {
	var findings []Finding
	for week := 1; week <= weeks; week++ {
		for _, bound := range env.Bounds {
			count := grid.HeadCount(week, bound.Codes)
			if minReq := bound.MinFor(week); count < minReq {
				findings = append(findings, Finding{
					Check:    "staffing",
					Severity: SeverityError,
					Message: fmt.Sprintf("week %d (block %d): %s has %d resident(s), minimum %d",
						week, models.WeekToBlock(week), bound.Label, count, minReq),
				})
			}
			if count > bound.Max {
				findings = append(findings, Finding{
					Check:    "staffing",
					Severity: SeverityWarning,
					Message: fmt.Sprintf("week %d (block %d): %s has %d resident(s), maximum %d",
						week, models.WeekToBlock(week), bound.Label, count, bound.Max),
				})
			}
		}
	}
	return findings
}

// SystemSummary is the per-hospital-system weekly census.
type SystemSummary struct {
	System  models.HospitalSystem `json:"system"`
	Avg     float64               `json:"avg"`
	Min     int                   `json:"min"`
	Max     int                   `json:"max"`
	MinWeek int                   `json:"min_week"`
}

// StaffingSummary tallies residents per hospital system per week.
func StaffingSummary(grid *models.Grid, weeks int) []SystemSummary {
	systems := []models.HospitalSystem{models.HospitalUCSF, models.HospitalZSFG, models.HospitalVA}
	var out []SystemSummary
	for _, sys := range systems {
		sum, minC, maxC, minWeek := 0, -1, 0, 0
		for week := 1; week <= weeks; week++ {
			count := 0
			for _, code := range grid.WeekAssignments(week) {
				if models.HospitalFor(code) == sys {
					count++
				}
			}
			sum += count
			if minC < 0 || count < minC {
				minC, minWeek = count, week
			}
			if count > maxC {
				maxC = count
			}
		}
		if minC < 0 {
			minC = 0
		}
		out = append(out, SystemSummary{
			System: sys, Avg: float64(sum) / float64(weeks),
			Min: minC, Max: maxC, MinWeek: minWeek,
		})
	}
	return out
}

// HeatmapRow is one staffing-bound row of the occupancy heatmap: weekly
// counts against the weekly minimum, for review rendering.
type HeatmapRow struct {
	Label  string `json:"label"`
	Counts []int  `json:"counts"`
	Mins   []int  `json:"mins"`
}

// Heatmap builds the per-week rotation occupancy grid.
func Heatmap(grid *models.Grid, env models.Envelope, weeks int) []HeatmapRow {
	rows := make([]HeatmapRow, 0, len(env.Bounds))
	for _, bound := range env.Bounds {
		row := HeatmapRow{Label: bound.Label}
		for week := 1; week <= weeks; week++ {
			row.Counts = append(row.Counts, grid.HeadCount(week, bound.Codes))
			row.Mins = append(row.Mins, bound.MinFor(week))
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Label < rows[j].Label })
	return rows
}
