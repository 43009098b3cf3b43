// Package workbook reads and writes the persisted scheduling workbook and
// the preference survey. Track grid cells in the workbook are
// formula-derived and always recomputed from the base sequences; they are
// never read back as values.
package workbook

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/mfromano/schedule-creator/internal/models"
	"github.com/mfromano/schedule-creator/internal/tracks"
)

// Sheet names consumed by the core.
const (
	sheetOverview   = "Overview"
	sheetKey        = "Key"
	sheetHistorical = "Historical"
	sheetR1Tracks   = "R1 Tracks"
	sheetR2Tracks   = "R2 Tracks"
	sheetRecs        = "R3-4 Recs"
	sheetPreferences = "Preferences"
	sheetBase       = "Base Schedule"
	sheetNightFloat = "Night Float"
)

// Base Schedule geometry: residents occupy rows 6-65 with weekly data in
// columns D-BC; the staffing envelope sits in rows 101-151.
const (
	baseFirstResidentRow = 6
	baseLastResidentRow  = 65
	baseFirstDataCol     = 4 // column D
	envelopeFirstRow     = 101
	envelopeLastRow      = 151
	nfFirstDataCol       = 6 // column F
)

// Reader pulls scheduling data out of the workbook.
type Reader struct {
	f    *excelize.File
	log  *zap.Logger
	path string
}

func OpenReader(path string, log *zap.Logger) (*Reader, error) {
	if log == nil {
		log = zap.NewNop()
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	return &Reader{f: f, log: log, path: path}, nil
}

func (r *Reader) Close() error { return r.f.Close() }

func cellStr(f *excelize.File, sheet, axis string) string {
	v, _ := f.GetCellValue(sheet, axis)
	return strings.TrimSpace(v)
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

// AcademicYear reads the target-year cell from the Overview tab (B5, with
// B6 as the fallback used by older workbook versions).
func (r *Reader) AcademicYear() (int, error) {
	for _, axis := range []string{"B5", "B6"} {
		if v := cellStr(r.f, sheetOverview, axis); v != "" {
			year, err := strconv.Atoi(v)
			if err == nil && year > 2000 {
				return year, nil
			}
		}
	}
	return 0, fmt.Errorf("data integrity: Overview target-year cell is empty or not a year")
}

// RotationCodes parses the Key tab: code, section, label, then one
// eligibility column per radiology year.
func (r *Reader) RotationCodes() ([]models.RotationCode, error) {
	rows, err := r.f.GetRows(sheetKey)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", sheetKey, err)
	}
	var codes []models.RotationCode
	seen := map[string]bool{}
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		code := strings.TrimSpace(row[0])
		if code == "" {
			continue
		}
		if seen[code] {
			return nil, fmt.Errorf("data integrity: duplicate rotation code %q in Key tab", code)
		}
		seen[code] = true
		rc := models.RotationCode{Code: code, EligibleRYears: map[int]bool{}}
		if len(row) > 1 {
			rc.Section = strings.TrimSpace(row[1])
		}
		if len(row) > 2 {
			rc.Label = strings.TrimSpace(row[2])
		}
		for year := 1; year <= 4; year++ {
			col := 2 + year
			if len(row) > col && isMarked(row[col]) {
				rc.EligibleRYears[year] = true
			}
		}
		codes = append(codes, rc)
	}
	return codes, nil
}

func isMarked(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x", "yes", "true", "1":
		return true
	}
	return false
}

type historicalLayout struct {
	hasFuturePGY bool
	pgyCol       int // 0-based
	nameCol      int
	historyCol   int
	pathwayCols  map[models.Pathway]int
}

// detectHistoricalLayout distinguishes the two known Historical layouts:
// layout A carries an explicit future-PGY column B; layout B has only the
// prior-year PGY in column A (incremented by one) with pathway flag columns
// C-F. The core always works with the target-year PGY.
func (r *Reader) detectHistoricalLayout() historicalLayout {
	header := strings.ToLower(cellStr(r.f, sheetHistorical, "B2"))
	if strings.Contains(header, "future") {
		return historicalLayout{
			hasFuturePGY: true,
			pgyCol:       1,
			nameCol:      2,
			historyCol:   3,
		}
	}
	return historicalLayout{
		pgyCol:     0,
		nameCol:    1,
		historyCol: 6,
		pathwayCols: map[models.Pathway]int{
			models.PathwayESNR: 2,
			models.PathwayESIR: 3,
			models.PathwayT32:  4,
			models.PathwayNRDR: 5,
		},
	}
}

// Roster parses the Historical tab into residents keyed by name. Interns
// (future R-year < 1) and graduated residents are skipped.
func (r *Reader) Roster() ([]*models.Resident, error) {
	rows, err := r.f.GetRows(sheetHistorical)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", sheetHistorical, err)
	}
	layout := r.detectHistoricalLayout()

	var residents []*models.Resident
	seen := map[string]bool{}
	for i, row := range rows {
		if i < 2 { // rows 1-2 are headers
			continue
		}
		if len(row) <= layout.nameCol {
			continue
		}
		name := strings.TrimSpace(row[layout.nameCol])
		rawPGY := ""
		if len(row) > layout.pgyCol {
			rawPGY = strings.TrimSpace(row[layout.pgyCol])
		}
		if name == "" || rawPGY == "" {
			continue
		}
		pgy, err := strconv.Atoi(rawPGY)
		if err != nil {
			r.log.Warn("skipping roster row with non-numeric PGY",
				zap.Int("row", i+1), zap.String("value", rawPGY))
			continue
		}
		if !layout.hasFuturePGY {
			pgy++ // prior-year PGY: advance to the target year
		}
		if ry := pgy - 1; ry < 1 || ry > 4 {
			continue
		}
		if seen[name] {
			return nil, fmt.Errorf("data integrity: duplicate resident name %q in Historical tab", name)
		}
		seen[name] = true

		res := models.NewResident(name, pgy)
		for pathway, col := range layout.pathwayCols {
			if len(row) > col && isMarked(row[col]) {
				res.Pathway |= pathway
			}
		}
		residents = append(residents, res)
	}
	return residents, nil
}

// HistoricalAssignments accumulates the per-week rotation history columns
// into each resident's history tabulation.
func (r *Reader) HistoricalAssignments(residents []*models.Resident) error {
	rows, err := r.f.GetRows(sheetHistorical)
	if err != nil {
		return fmt.Errorf("read %s: %w", sheetHistorical, err)
	}
	layout := r.detectHistoricalLayout()
	byName := make(map[string]*models.Resident, len(residents))
	for _, res := range residents {
		byName[res.Name] = res
	}

	for i, row := range rows {
		if i < 2 || len(row) <= layout.nameCol {
			continue
		}
		res := byName[strings.TrimSpace(row[layout.nameCol])]
		if res == nil {
			continue
		}
		for col := layout.historyCol; col < len(row); col++ {
			code := strings.TrimSpace(row[col])
			if code == "" || code == "0" {
				continue
			}
			res.History[code]++
		}
	}
	return nil
}

// trackSheet reads a track tab: track count from the row-6 header labels,
// the base sequence from columns A-C (position, biweek, code) rows 7+. The
// grid itself is derived, never read.
func (r *Reader) trackSheet(sheet string) ([]tracks.Track, error) {
	rows, err := r.f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", sheet, err)
	}

	trackCount := 0
	if len(rows) >= 6 {
		for i, v := range rows[5] {
			if i < 6 {
				continue
			}
			label := strings.TrimSpace(v)
			if label == "" {
				continue
			}
			if num, ok := trackNumber(label); ok {
				if num > trackCount {
					trackCount = num
				}
			} else if !isDigits(label) {
				break // first non-track header ends the grid
			}
		}
	}
	if trackCount == 0 {
		return nil, fmt.Errorf("data integrity: %s has no track headers in row 6", sheet)
	}

	type pos struct{ a, b string }
	positions := map[int]*pos{}
	maxPos := 0
	for i, row := range rows {
		if i < 6 || len(row) < 3 {
			continue
		}
		idx, err := strconv.Atoi(strings.TrimSpace(row[0]))
		if err != nil {
			continue
		}
		biweek := strings.TrimSpace(row[1])
		code := strings.TrimSpace(row[2])
		if code == "" || (biweek != "A" && biweek != "B") {
			continue
		}
		if positions[idx] == nil {
			positions[idx] = &pos{}
		}
		if biweek == "A" {
			positions[idx].a = code
		} else {
			positions[idx].b = code
		}
		if idx > maxPos {
			maxPos = idx
		}
	}
	if maxPos == 0 {
		return nil, fmt.Errorf("data integrity: %s has no base sequence in column C", sheet)
	}

	base := make([]tracks.BiweekCodes, maxPos)
	for idx := 1; idx <= maxPos; idx++ {
		if p := positions[idx]; p != nil {
			base[idx-1] = tracks.BiweekCodes{A: p.a, B: p.b}
		}
	}

	derived, warnings, err := tracks.Derive(base, trackCount)
	for _, w := range warnings {
		r.log.Warn("track derivation", zap.String("sheet", sheet), zap.String("warning", w))
	}
	return derived, err
}

// trackNumber parses header labels like "3A"/"3B" into the track number.
func trackNumber(label string) (int, bool) {
	if len(label) < 2 {
		return 0, false
	}
	last := label[len(label)-1]
	if last != 'A' && last != 'B' {
		return 0, false
	}
	num, err := strconv.Atoi(label[:len(label)-1])
	if err != nil {
		return 0, false
	}
	return num, true
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

func (r *Reader) R1Tracks() ([]tracks.Track, error) { return r.trackSheet(sheetR1Tracks) }
func (r *Reader) R2Tracks() ([]tracks.Track, error) { return r.trackSheet(sheetR2Tracks) }

// recsColumns maps the R3-4 Recs recommendation columns (0-based) to
// rotation codes.
var recsColumns = map[int]string{
	8: "Vnuc", 9: "Smr", 10: "Ser", 11: "Sbi", 12: "Mnuc",
	13: "Pcbi", 14: "Mch", 15: "Mai", 16: "Mus", 17: "Mb",
	18: "Mucic", 19: "Peds", 20: "Zir", 21: "Mir",
}

// R34Recs applies the R3-4 Recs tab: recommended block counts, deficient
// sections, and the authoritative pathway flags, which overwrite whatever
// the survey reported.
func (r *Reader) R34Recs(residents []*models.Resident) error {
	rows, err := r.f.GetRows(sheetRecs)
	if err != nil {
		return fmt.Errorf("read %s: %w", sheetRecs, err)
	}
	byName := make(map[string]*models.Resident, len(residents))
	for _, res := range residents {
		byName[res.Name] = res
	}

	pathwayCols := []struct {
		col     int
		pathway models.Pathway
	}{
		{2, models.PathwayESNR}, {3, models.PathwayESIR},
		{4, models.PathwayT32}, {5, models.PathwayNRDR},
	}

	for i, row := range rows {
		if i < 2 || len(row) < 2 {
			continue
		}
		res := byName[strings.TrimSpace(row[1])]
		if res == nil {
			continue
		}

		// Recs pathway flags are authoritative: reset, then apply.
		res.Pathway = 0
		for _, pc := range pathwayCols {
			if len(row) > pc.col && isMarked(row[pc.col]) {
				res.Pathway |= pc.pathway
			}
		}

		if len(row) > 7 && row[7] != "" {
			res.DeficientSections = nil
			for _, s := range strings.Split(row[7], ",") {
				if s = strings.TrimSpace(s); s != "" {
					res.DeficientSections = append(res.DeficientSections, s)
				}
			}
		}

		for col, code := range recsColumns {
			if len(row) > col {
				if v := parseFloat(row[col]); v > 0 {
					res.RecommendedBlocks[code] = v
				}
			}
		}
	}
	return nil
}

// PreferencesTab applies the workbook's manually curated Preferences tab.
// Its no-call column (AA) backstops the survey: dates already present from
// the survey are not duplicated.
func (r *Reader) PreferencesTab(residents []*models.Resident, yearStart int) error {
	rows, err := r.f.GetRows(sheetPreferences)
	if err != nil {
		// The tab is optional in older workbook versions.
		r.log.Warn("no Preferences tab", zap.Error(err))
		return nil
	}
	byName := make(map[string]*models.Resident, len(residents))
	for _, res := range residents {
		byName[res.Name] = res
	}

	const noCallCol = 26 // column AA
	for i, row := range rows {
		if i < 2 || len(row) <= noCallCol {
			continue
		}
		res := byName[strings.TrimSpace(row[1])]
		if res == nil || len(res.NoCall.RawDates) > 0 {
			continue
		}
		for _, part := range strings.Split(row[noCallCol], ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			d, err := parseMonthDayIn(part, yearStart)
			if err != nil {
				r.log.Warn("unparseable Preferences no-call date",
					zap.String("resident", res.Name), zap.String("value", part))
				continue
			}
			res.NoCall.RawDates = append(res.NoCall.RawDates, d)
		}
	}
	return nil
}

// StaffingEnvelope reads the envelope rows under the Base Schedule grid.
// Labels match against the institutional bound table; weekly values fill
// per-week minima.
func (r *Reader) StaffingEnvelope() (models.Envelope, error) {
	defaults := models.DefaultEnvelope()
	byLabel := map[string]*models.StaffingBound{}
	for i := range defaults.Bounds {
		byLabel[strings.ToLower(defaults.Bounds[i].Label)] = &defaults.Bounds[i]
	}

	for rowIdx := envelopeFirstRow; rowIdx <= envelopeLastRow; rowIdx++ {
		label := cellStr(r.f, sheetBase, fmt.Sprintf("A%d", rowIdx))
		if label == "" {
			label = cellStr(r.f, sheetBase, fmt.Sprintf("B%d", rowIdx))
		}
		if label == "" {
			continue
		}
		bound, ok := byLabel[strings.ToLower(label)]
		if !ok {
			r.log.Warn("unknown staffing envelope label", zap.String("label", label), zap.Int("row", rowIdx))
			continue
		}
		weekly := make([]int, 53)
		any := false
		for week := 1; week <= 52; week++ {
			axis, err := excelize.CoordinatesToCellName(baseFirstDataCol+week-1, rowIdx)
			if err != nil {
				return models.Envelope{}, err
			}
			if v := parseFloat(cellStr(r.f, sheetBase, axis)); v > 0 {
				weekly[week] = int(v)
				any = true
			}
		}
		if any {
			bound.WeeklyMin = weekly
		}
	}
	return defaults, nil
}

// residentRows maps resident names to their grid rows on a schedule tab.
func (r *Reader) residentRows(sheet string) (map[string]int, error) {
	out := map[string]int{}
	for rowIdx := baseFirstResidentRow; rowIdx <= baseLastResidentRow; rowIdx++ {
		name := cellStr(r.f, sheet, fmt.Sprintf("B%d", rowIdx))
		if name == "" {
			continue
		}
		if prev, dup := out[name]; dup {
			return nil, fmt.Errorf("data integrity: resident %q appears on rows %d and %d of %s",
				name, prev, rowIdx, sheet)
		}
		out[name] = rowIdx
	}
	return out, nil
}

func (r *Reader) BaseScheduleRows() (map[string]int, error) { return r.residentRows(sheetBase) }
func (r *Reader) NightFloatRows() (map[string]int, error)   { return r.residentRows(sheetNightFloat) }

// ReadBaseScheduleGrid loads the workbook's existing Base Schedule and
// Night Float cells into a grid, for validating a previously written file.
func (r *Reader) ReadBaseScheduleGrid(residents []*models.Resident) (*models.Grid, error) {
	baseRows, err := r.BaseScheduleRows()
	if err != nil {
		return nil, err
	}
	nfRows, err := r.NightFloatRows()
	if err != nil {
		return nil, err
	}

	grid := models.NewGrid(52)
	for _, res := range residents {
		if rowIdx, ok := baseRows[res.Name]; ok {
			for week := 1; week <= 52; week++ {
				axis, err := excelize.CoordinatesToCellName(baseFirstDataCol+week-1, rowIdx)
				if err != nil {
					return nil, err
				}
				code := cellStr(r.f, sheetBase, axis)
				if code == "" {
					continue
				}
				if err := grid.Assign(models.PhaseNone, res.Name, week, code); err != nil {
					return nil, err
				}
				res.Schedule[week] = code
			}
		}
		if rowIdx, ok := nfRows[res.Name]; ok {
			for week := 1; week <= 52; week++ {
				axis, err := excelize.CoordinatesToCellName(nfFirstDataCol+week-1, rowIdx)
				if err != nil {
					return nil, err
				}
				code := cellStr(r.f, sheetNightFloat, axis)
				if code == "" || !models.IsNightFloat(code) {
					continue
				}
				if err := grid.AssignNF(res.Name, week, code); err != nil {
					r.log.Warn("night-float cell collides with an educational lock",
						zap.String("resident", res.Name), zap.Int("week", week))
				}
			}
		}
	}
	return grid, nil
}

// NoCallWeeks scans the Night Float tab for red-filled cells; red marks a
// week the resident must not take NF.
func (r *Reader) NoCallWeeks(residents []*models.Resident) (map[string]map[int]bool, error) {
	rows, err := r.NightFloatRows()
	if err != nil {
		return nil, err
	}
	out := map[string]map[int]bool{}
	for _, res := range residents {
		rowIdx, ok := rows[res.Name]
		if !ok {
			continue
		}
		for week := 1; week <= 52; week++ {
			axis, err := excelize.CoordinatesToCellName(nfFirstDataCol+week-1, rowIdx)
			if err != nil {
				return nil, err
			}
			red, err := r.isRedFill(sheetNightFloat, axis)
			if err != nil {
				return nil, err
			}
			if red {
				if out[res.Name] == nil {
					out[res.Name] = map[int]bool{}
				}
				out[res.Name][week] = true
			}
		}
	}
	return out, nil
}

func (r *Reader) isRedFill(sheet, axis string) (bool, error) {
	styleID, err := r.f.GetCellStyle(sheet, axis)
	if err != nil {
		return false, err
	}
	if styleID == 0 {
		return false, nil
	}
	style, err := r.f.GetStyle(styleID)
	if err != nil || style == nil {
		return false, nil
	}
	for _, c := range style.Fill.Color {
		cc := strings.ToUpper(strings.TrimPrefix(c, "#"))
		if cc == "FF0000" || cc == "FFFF0000" {
			return true, nil
		}
	}
	return false, nil
}
