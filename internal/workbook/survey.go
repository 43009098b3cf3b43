package workbook

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/mfromano/schedule-creator/internal/models"
)

// Survey sheet names (pre-cleaned per-class exports).
const (
	surveyR1     = "R1 Rotations"
	surveyR2     = "R2 Rotations"
	surveyR3     = "R3 Rotations"
	surveyR4     = "R4 Rotations"
	surveyNoCall = "No Call Pref"
)

// Survey parses the preference-response file. Missing or unparseable cells
// are logged and skipped; they are never fatal.
type Survey struct {
	f   *excelize.File
	log *zap.Logger

	// yearStart resolves MM/DD no-call dates onto the academic year.
	yearStart int
}

func OpenSurvey(path string, yearStart int, log *zap.Logger) (*Survey, error) {
	if log == nil {
		log = zap.NewNop()
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open survey %s: %w", path, err)
	}
	return &Survey{f: f, log: log, yearStart: yearStart}, nil
}

func (s *Survey) Close() error { return s.f.Close() }

// ParseAll applies every sheet. The caller applies the recs-tab pathway
// override afterward; survey pathway values are advisory only.
func (s *Survey) ParseAll(residents []*models.Resident) {
	s.parseR1(residents)
	s.parseR2(residents)
	s.parseR3(residents)
	s.parseR4(residents)
	s.parseNoCall(residents)
}

// sheetDicts reads a sheet into header-keyed rows, row 1 as headers.
func (s *Survey) sheetDicts(sheet string) []map[string]string {
	rows, err := s.f.GetRows(sheet)
	if err != nil || len(rows) == 0 {
		return nil
	}
	headers := rows[0]
	var out []map[string]string
	for _, row := range rows[1:] {
		empty := true
		d := map[string]string{}
		for i, h := range headers {
			h = strings.TrimSpace(h)
			if h == "" || i >= len(row) {
				continue
			}
			v := strings.TrimSpace(row[i])
			if v != "" {
				empty = false
			}
			d[h] = v
		}
		if !empty {
			out = append(out, d)
		}
	}
	return out
}

// findResident matches a survey row to a roster resident across the name
// formats the forms produce ("First Last", "Last, First", last-name only).
func findResident(row map[string]string, class []*models.Resident) *models.Resident {
	full := row["Full Name"]
	if full == "" {
		full = row["Name"]
	}
	if full == "" {
		full = strings.TrimSpace(row["First Name"] + " " + row["Last Name"])
	}
	if full == "" {
		return nil
	}
	for _, r := range class {
		if full == r.Name || full == r.FirstName+" "+r.LastName || full == r.LastName+", "+r.FirstName {
			return r
		}
	}
	for _, r := range class {
		if r.LastName != "" && strings.Contains(full, r.LastName) {
			return r
		}
	}
	return nil
}

// parseRank accepts "1", "1st", "First", "2nd", ... as a ranking value.
func parseRank(v string) (int, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return 0, false
	}
	switch v {
	case "first":
		return 1, true
	case "second":
		return 2, true
	case "third":
		return 3, true
	case "fourth":
		return 4, true
	case "fifth":
		return 5, true
	}
	v = strings.TrimRight(v, "stndrh")
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

var samplerRankColumns = []string{"Nir", "Mir", "Msk", "Mnuc", "Mucic"}

func (s *Survey) parseR1(residents []*models.Resident) {
	class := models.ByYear(residents, 1)
	for _, row := range s.sheetDicts(surveyR1) {
		res := findResident(row, class)
		if res == nil {
			s.log.Warn("survey R1 row matched no resident", zap.String("name", row["Name"]))
			continue
		}
		rankings := map[string]int{}
		for _, col := range samplerRankColumns {
			if rank, ok := parseRank(row[col]); ok {
				rankings[col] = rank
			}
		}
		res.SamplerPrefs = &models.SamplerPrefs{Rankings: rankings}
		s.applyCommon(res, row)
	}
}

func (s *Survey) parseR2(residents []*models.Resident) {
	class := models.ByYear(residents, 2)
	for _, row := range s.sheetDicts(surveyR2) {
		res := findResident(row, class)
		if res == nil {
			s.log.Warn("survey R2 row matched no resident", zap.String("name", row["Name"]))
			continue
		}
		rankings := map[int]int{}
		// "Track Rank" lists track numbers in preference order.
		if list := row["Track Rank"]; list != "" {
			for pos, part := range strings.Split(list, ",") {
				num, err := strconv.Atoi(strings.TrimSpace(part))
				if err != nil {
					s.log.Warn("unparseable track rank entry",
						zap.String("resident", res.Name), zap.String("value", part))
					continue
				}
				rankings[num] = pos + 1
			}
		} else {
			// Fallback: one column per track number holding the rank.
			for col, v := range row {
				num, err := strconv.Atoi(col)
				if err != nil {
					continue
				}
				if rank, ok := parseRank(v); ok {
					rankings[num] = rank
				}
			}
		}
		res.TrackPrefs = &models.TrackPrefs{Rankings: rankings}
		s.applyCommon(res, row)
	}
}

func (s *Survey) parseR3(residents []*models.Resident) {
	class := models.ByYear(residents, 3)
	for _, row := range s.sheetDicts(surveyR3) {
		res := findResident(row, class)
		if res == nil {
			s.log.Warn("survey R3 row matched no resident", zap.String("name", row["Name"]))
			continue
		}

		airp := map[string]int{}
		for col, v := range row {
			if id, ok := strings.CutPrefix(col, "AIRP "); ok {
				if rank, rok := parseRank(v); rok {
					airp[id] = rank
				}
			}
		}
		if len(airp) > 0 {
			res.AIRPPrefs = &models.AIRPPrefs{Rankings: airp}
		}

		s.applySectionPrefs(res, row)
		if v := row["Pathway"]; v != "" {
			res.Pathway |= models.ParsePathway(v)
		}
		if v := row["Zir Blocks"]; v != "" {
			var blocks []int
			for _, part := range strings.Split(v, ",") {
				if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil && n >= 1 && n <= 13 {
					blocks = append(blocks, n)
				}
			}
			if len(blocks) > 0 {
				res.ZirPrefs = &models.ZirPrefs{PreferredBlocks: blocks}
			}
		}
		s.applyCommon(res, row)
	}
}

func (s *Survey) parseR4(residents []*models.Resident) {
	class := models.ByYear(residents, 4)
	for _, row := range s.sheetDicts(surveyR4) {
		res := findResident(row, class)
		if res == nil {
			s.log.Warn("survey R4 row matched no resident", zap.String("name", row["Name"]))
			continue
		}

		if v := row["Pathway"]; v != "" {
			res.Pathway |= models.ParsePathway(v)
		}
		if v := row["FSE"]; v != "" {
			res.FSEPrefs = &models.FSEPrefs{
				Specialties:  []string{v},
				Organization: row["FSE Organization"],
			}
		}
		if v := row["Research Months"]; v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				res.ResearchMonths = n
			}
		}
		if v := row["CEP Months"]; v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				res.CEPMonths = n
			}
		}
		res.SupplementalFunding = isMarked(row["Supplemental Funding"])
		res.HarshR2Year = isMarked(row["Harsh R2"])
		s.applySectionPrefs(res, row)
		s.applyCommon(res, row)
	}
}

// applySectionPrefs reads per-rotation TOP/BOTTOM scores ("TOP 1" → +3,
// "BOTTOM 1" → -3) plus the Top/Bottom section lists.
func (s *Survey) applySectionPrefs(res *models.Resident, row map[string]string) {
	prefs := &models.SectionPrefs{Scores: map[string]int{}}
	for col, v := range row {
		if _, known := models.SectionFor(col); !known {
			continue
		}
		v = strings.ToUpper(strings.TrimSpace(v))
		var score int
		switch {
		case strings.HasPrefix(v, "TOP "):
			if n, err := strconv.Atoi(v[4:]); err == nil {
				score = 4 - n // TOP 1 → 3 ... TOP 3 → 1
			}
		case strings.HasPrefix(v, "BOTTOM "):
			if n, err := strconv.Atoi(v[7:]); err == nil {
				score = n - 4 // BOTTOM 1 → -3 ... BOTTOM 3 → -1
			}
		}
		if score != 0 {
			prefs.Scores[col] = score
		}
	}
	for _, part := range strings.Split(row["Top Sections"], ",") {
		if part = strings.TrimSpace(part); part != "" {
			prefs.Top = append(prefs.Top, part)
		}
	}
	for _, part := range strings.Split(row["Bottom Sections"], ",") {
		if part = strings.TrimSpace(part); part != "" {
			prefs.Bottom = append(prefs.Bottom, part)
		}
	}
	if len(prefs.Scores) > 0 || len(prefs.Top) > 0 || len(prefs.Bottom) > 0 {
		res.SectionPrefs = prefs
	}
}

func (s *Survey) applyCommon(res *models.Resident, row map[string]string) {
	if v := row["Vac"]; v != "" {
		res.VacationDates = append(res.VacationDates, v)
	}
	if v := row["Acad"]; v != "" {
		res.AcademicDates = append(res.AcademicDates, v)
	}
	if v := row["Leave"]; v != "" {
		res.LeaveInfo = v
	}
}

func (s *Survey) parseNoCall(residents []*models.Resident) {
	for _, row := range s.sheetDicts(surveyNoCall) {
		res := findResident(row, residents)
		if res == nil {
			s.log.Warn("no-call row matched no resident", zap.String("name", row["Name"]))
			continue
		}
		raw := row["NO NF ASSIGNMENTS"]
		if raw == "" {
			continue
		}
		// Some exports prefix the list with "Name:".
		if i := strings.Index(raw, ":"); i >= 0 {
			raw = raw[i+1:]
		}
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			d, err := s.parseMonthDay(part)
			if err != nil {
				s.log.Warn("unparseable no-call date",
					zap.String("resident", res.Name), zap.String("value", part))
				continue
			}
			res.NoCall.RawDates = append(res.NoCall.RawDates, d)
		}
	}
}

func (s *Survey) parseMonthDay(v string) (time.Time, error) {
	return parseMonthDayIn(v, s.yearStart)
}

// parseMonthDayIn resolves an MM/DD string onto the academic year: July
// through December belong to the start year, January through June to the
// following year.
func parseMonthDayIn(v string, yearStart int) (time.Time, error) {
	parts := strings.Split(v, "/")
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("want MM/DD, got %q", v)
	}
	month, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("bad month in %q", v)
	}
	day, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("bad day in %q", v)
	}
	year := yearStart
	if month < 7 {
		year++
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
}
