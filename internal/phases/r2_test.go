package phases

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfromano/schedule-creator/internal/config"
	"github.com/mfromano/schedule-creator/internal/models"
	"github.com/mfromano/schedule-creator/internal/tracks"
)

func trackOf(number int, code string) tracks.Track {
	tr := tracks.Track{Number: number, Label: code}
	for b := 1; b <= 13; b++ {
		tr.Cells = append(tr.Cells,
			tracks.Cell{Block: b, Biweek: "A", Code: code},
			tracks.Cell{Block: b, Biweek: "B", Code: code})
	}
	return tr
}

func newTestBuilder(t *testing.T, in Input) *Builder {
	t.Helper()
	if in.Catalog == nil {
		in.Catalog = models.NewCatalog(nil)
	}
	in.Calendar = models.ComputeCalendar(2025)
	in.NFRules = models.DefaultNFRules()
	b, err := NewBuilder(nil, config.Default(), in)
	require.NoError(t, err)
	return b
}

func r2WithRanks(name string, ranks map[int]int) *models.Resident {
	r := models.NewResident(name, 3) // rising R2
	r.TrackPrefs = &models.TrackPrefs{Rankings: ranks}
	return r
}

func TestAssignR2Tracks_MinimalSeed(t *testing.T) {
	// Three R2s with identical rank vectors all preferring track 1:
	// deterministic assignment in name order, total penalty 0+1+2 = 3.
	ranks := map[int]int{1: 1, 2: 2, 3: 3}
	in := Input{
		Residents: []*models.Resident{
			r2WithRanks("Cole, Cam", ranks),
			r2WithRanks("Adams, Amy", ranks),
			r2WithRanks("Baker, Bo", ranks),
		},
		R2Tracks: []tracks.Track{trackOf(1, "Mai"), trackOf(2, "Mus"), trackOf(3, "Mch")},
	}
	b := newTestBuilder(t, in)
	require.NoError(t, b.assignR2Tracks())

	match := b.Result().R2Match
	require.NotNil(t, match)
	assert.InDelta(t, 3.0, match.TotalPenalty, 1e-9)
	assert.Equal(t, 1, match.Assignments["Adams, Amy"])
	assert.Equal(t, 2, match.Assignments["Baker, Bo"])
	assert.Equal(t, 3, match.Assignments["Cole, Cam"])
}

func TestAssignR2Tracks_Idempotent(t *testing.T) {
	ranks := map[int]int{1: 2, 2: 1, 3: 3}
	build := func() map[string]int {
		in := Input{
			Residents: []*models.Resident{
				r2WithRanks("Adams, Amy", ranks),
				r2WithRanks("Baker, Bo", ranks),
				r2WithRanks("Cole, Cam", ranks),
			},
			R2Tracks: []tracks.Track{trackOf(1, "Mai"), trackOf(2, "Mus"), trackOf(3, "Mch")},
		}
		b := newTestBuilder(t, in)
		require.NoError(t, b.assignR2Tracks())
		return b.Result().R2Match.Assignments
	}
	assert.Equal(t, build(), build(), "identical input yields identical assignment")
}

func TestAssignR2Tracks_PathwayMask(t *testing.T) {
	// The ESIR resident ranks the non-IR track first but must receive the
	// track containing IR rotations.
	esir := r2WithRanks("Adams, Amy", map[int]int{1: 1, 2: 2})
	esir.Pathway = models.PathwayESIR
	plain := r2WithRanks("Baker, Bo", map[int]int{1: 1, 2: 2})

	in := Input{
		Residents: []*models.Resident{esir, plain},
		R2Tracks:  []tracks.Track{trackOf(1, "Mai"), trackOf(2, "Zir")},
	}
	b := newTestBuilder(t, in)
	require.NoError(t, b.assignR2Tracks())

	match := b.Result().R2Match
	assert.Equal(t, 2, match.Assignments["Adams, Amy"], "ESIR forced onto the IR track")
	assert.Equal(t, 1, match.Assignments["Baker, Bo"])
}

func TestAssignR2Tracks_WritesGrid(t *testing.T) {
	r := r2WithRanks("Adams, Amy", map[int]int{1: 1})
	in := Input{
		Residents: []*models.Resident{r},
		R2Tracks:  []tracks.Track{trackOf(1, "Mai")},
	}
	b := newTestBuilder(t, in)
	require.NoError(t, b.assignR2Tracks())

	assert.Equal(t, 1, r.TrackNumber)
	for w := 1; w <= 52; w++ {
		assert.Equal(t, "Mai", b.Grid().Base("Adams, Amy", w), "week %d", w)
	}
}

func TestRankingMatrix(t *testing.T) {
	in := Input{
		Residents: []*models.Resident{
			r2WithRanks("Adams, Amy", map[int]int{1: 1, 2: 2}),
			r2WithRanks("Baker, Bo", map[int]int{1: 1, 2: 2}),
		},
		R2Tracks: []tracks.Track{trackOf(1, "Mai"), trackOf(2, "Mus")},
	}
	b := newTestBuilder(t, in)
	out := b.RankingMatrix()
	assert.Contains(t, out, "Track 1")
	assert.Contains(t, out, "Rank 1")
}
