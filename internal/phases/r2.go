package phases

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mfromano/schedule-creator/internal/models"
	"github.com/mfromano/schedule-creator/internal/solver"
)

// R2Pick records one resident's outcome in the track match.
type R2Pick struct {
	Track   int     `json:"track"`
	Rank    int     `json:"rank"`
	Penalty float64 `json:"penalty"`
}

// R2MatchResult is the solved track match plus its score.
type R2MatchResult struct {
	Assignments  map[string]int    `json:"assignments"`
	TotalPenalty float64           `json:"total_penalty"`
	PerResident  map[string]R2Pick `json:"per_resident"`
}

// assignR2Tracks solves the 1:1 resident↔track assignment. The objective is
// rank penalty (rank 1 costs 0) plus a small deficit discount for tracks
// covering sections where the resident sits in the bottom historical
// quartile; the lambda weight keeps preference rank dominant. Pathway
// incompatibilities are hard.
func (b *Builder) assignR2Tracks() error {
	r2s := sortedByName(models.ByYear(b.in.Residents, 2))
	if len(r2s) == 0 {
		return nil
	}
	trackList := b.in.R2Tracks
	if len(trackList) == 0 {
		b.warn("no R2 tracks loaded; %d R2s left unassigned", len(r2s))
		return nil
	}

	numTracks := len(trackList)
	rows := make([]string, len(r2s))
	for i, r := range r2s {
		rows[i] = r.Name
	}
	cols := make([]string, numTracks)
	for j, tr := range trackList {
		cols[j] = strconv.Itoa(tr.Number)
	}

	deficient := b.bottomQuartileSections(r2s)
	trackSections := make([]map[models.Section]bool, numTracks)
	for j, tr := range trackList {
		trackSections[j] = make(map[models.Section]bool)
		for _, c := range tr.Cells {
			if s, ok := models.SectionFor(c.Code); ok {
				trackSections[j][s] = true
			}
		}
	}

	rank := func(i, j int) int {
		r := r2s[i]
		if r.TrackPrefs == nil || len(r.TrackPrefs.Rankings) == 0 {
			return numTracks // no preference counts as worst rank
		}
		if rk, ok := r.TrackPrefs.Rankings[trackList[j].Number]; ok {
			return rk
		}
		return numTracks
	}

	w := b.cfg.Weights
	cost := func(i, j int) float64 {
		c := float64(rank(i, j)-1) * w.PreferenceWeight
		discount := 0.0
		for s := range deficient[r2s[i].Name] {
			if trackSections[j][s] {
				discount++
			}
		}
		return c - w.DeficitLambda*discount
	}

	allowed := func(i, j int) bool {
		return trackCompatible(r2s[i], trackSections[j])
	}

	res, err := solver.SolveAssignment(solver.AssignmentProblem{
		Phase:   "r2-track-match",
		Rows:    rows,
		Cols:    cols,
		Cost:    cost,
		Allowed: allowed,
	})
	if err != nil {
		return err
	}

	match := &R2MatchResult{
		Assignments: make(map[string]int, len(r2s)),
		PerResident: make(map[string]R2Pick, len(r2s)),
	}
	byNumber := make(map[int]int, numTracks) // track number → index
	for j, tr := range trackList {
		byNumber[tr.Number] = j
	}
	for i, r := range r2s {
		num, _ := strconv.Atoi(res.ColFor[r.Name])
		j := byNumber[num]
		rk := rank(i, j)
		penalty := float64(rk - 1)
		match.Assignments[r.Name] = num
		match.TotalPenalty += penalty
		match.PerResident[r.Name] = R2Pick{Track: num, Rank: rk, Penalty: penalty}

		r.TrackNumber = num
		for week, code := range trackList[j].ToWeekly() {
			if err := b.assign(models.PhaseR2, r, week, code); err != nil {
				return err
			}
		}
	}
	b.result.R2Match = match
	b.log.Info("r2 tracks matched",
		zap.Int("residents", len(r2s)),
		zap.Float64("total_penalty", match.TotalPenalty))
	return nil
}

// trackCompatible applies the pathway eligibility mask: a pathway resident
// may only take tracks that touch the sections the pathway needs.
func trackCompatible(r *models.Resident, sections map[models.Section]bool) bool {
	if r.IsESIR() && !sections[models.SectionIR] {
		return false
	}
	if r.IsNRDR() && !sections[models.SectionNucMed] {
		return false
	}
	return true
}

// bottomQuartileSections finds, per resident, the sections where their
// historical weeks fall under the class's 25th percentile.
func (b *Builder) bottomQuartileSections(class []*models.Resident) map[string]map[models.Section]bool {
	// Collect per-section week totals across the class.
	perSection := make(map[models.Section][]float64)
	totals := make(map[string]map[models.Section]float64, len(class))
	for _, r := range class {
		totals[r.Name] = make(map[models.Section]float64)
		for code, weeks := range r.History {
			if s, ok := models.SectionFor(code); ok {
				totals[r.Name][s] += weeks
			}
		}
	}
	for _, r := range class {
		for s, v := range totals[r.Name] {
			perSection[s] = append(perSection[s], v)
		}
	}

	out := make(map[string]map[models.Section]bool, len(class))
	for _, r := range class {
		out[r.Name] = make(map[models.Section]bool)
	}
	for s, values := range perSection {
		if len(values) < 4 {
			continue
		}
		sort.Float64s(values)
		q1 := values[len(values)/4]
		for _, r := range class {
			if totals[r.Name][s] < q1 {
				out[r.Name][s] = true
			}
		}
	}
	return out
}

// RankingMatrix renders how many residents ranked each track at each
// position, for the review output.
func (b *Builder) RankingMatrix() string {
	r2s := models.ByYear(b.in.Residents, 2)
	n := len(b.in.R2Tracks)
	if n == 0 {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%-10s", "Track")
	for r := 1; r <= n; r++ {
		fmt.Fprintf(&sb, "%-8s", fmt.Sprintf("Rank %d", r))
	}
	sb.WriteByte('\n')
	sb.WriteString(strings.Repeat("-", 10+8*n))
	sb.WriteByte('\n')

	for _, tr := range b.in.R2Tracks {
		fmt.Fprintf(&sb, "%-10s", fmt.Sprintf("Track %d", tr.Number))
		for rank := 1; rank <= n; rank++ {
			count := 0
			for _, r := range r2s {
				if r.TrackPrefs != nil && r.TrackPrefs.Rankings[tr.Number] == rank {
					count++
				}
			}
			fmt.Fprintf(&sb, "%-8d", count)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
