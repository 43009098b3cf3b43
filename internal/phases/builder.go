// Package phases is the schedule synthesis pipeline: strictly ordered
// phases that take turns mutating the shared grid. Each phase's
// postcondition is the next phase's precondition; cells written by an
// earlier phase are locked against later ones.
package phases

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/mfromano/schedule-creator/internal/config"
	"github.com/mfromano/schedule-creator/internal/models"
	"github.com/mfromano/schedule-creator/internal/solver"
	"github.com/mfromano/schedule-creator/internal/tracks"
)

// Input is everything the pipeline consumes, loaded up front.
type Input struct {
	Residents []*models.Resident
	Catalog   *models.Catalog
	Calendar  models.Calendar
	Envelope  models.Envelope
	NFRules   models.NFRules
	R1Tracks  []tracks.Track
	R2Tracks  []tracks.Track
}

// Result carries the per-phase metadata surfaced for human review.
type Result struct {
	R1Assignments   map[string]int
	R2Match         *R2MatchResult
	AIRPAssignments map[string]string
	R3Filled        map[string]map[int]string
	R4Meta          map[string]*R4Meta
	NF              *solver.NFResult
	SamplerRewrites map[string]map[int]string
	Warnings        []string
}

// Builder runs the pipeline against a single grid. Execution is
// single-threaded and strictly sequential; the only interruption points are
// the context checks between phases.
type Builder struct {
	log  *zap.Logger
	cfg  *config.Config
	in   Input
	grid *models.Grid

	result Result
}

func NewBuilder(log *zap.Logger, cfg *config.Config, in Input) (*Builder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := checkDataIntegrity(in); err != nil {
		return nil, err
	}
	return &Builder{
		log:  log,
		cfg:  cfg,
		in:   in,
		grid: models.NewGrid(52),
	}, nil
}

// checkDataIntegrity fails fast on structural problems in the loaded data.
func checkDataIntegrity(in Input) error {
	seen := map[string]bool{}
	for _, r := range in.Residents {
		if r.Name == "" {
			return fmt.Errorf("data integrity: resident with empty name")
		}
		if seen[r.Name] {
			return fmt.Errorf("data integrity: duplicate resident name %q", r.Name)
		}
		seen[r.Name] = true
		if r.RYear < 1 || r.RYear > 4 {
			return fmt.Errorf("data integrity: resident %q has radiology year %d", r.Name, r.RYear)
		}
	}
	return nil
}

func (b *Builder) Grid() *models.Grid { return b.grid }

func (b *Builder) Result() *Result { return &b.result }

// Run executes the mutating phases in order. Validation runs separately on
// the finished grid.
func (b *Builder) Run(ctx context.Context) error {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"r1-tracks", b.assignR1Tracks},
		{"r2-track-match", b.assignR2Tracks},
		{"r3-build", b.buildR3},
		{"r4-build", b.buildR4},
		{"night-float", b.assignNightFloat},
		{"sampler-resolve", b.resolveSamplers},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		b.log.Info("phase start", zap.String("phase", step.name))
		if err := step.fn(); err != nil {
			return fmt.Errorf("phase %s: %w", step.name, err)
		}
		b.log.Info("phase done", zap.String("phase", step.name))
	}
	return nil
}

// assign writes one cell through the grid lock check and mirrors it into
// the resident's schedule.
func (b *Builder) assign(phase models.BuildPhase, r *models.Resident, week int, code string) error {
	if rc, ok := b.in.Catalog.Get(code); ok && !rc.EligibleFor(r.RYear) {
		return fmt.Errorf("rotation %s not eligible for %s (R%d)", code, r.Name, r.RYear)
	}
	if err := b.grid.Assign(phase, r.Name, week, code); err != nil {
		return err
	}
	r.Schedule[week] = code
	return nil
}

func (b *Builder) assignBlock(phase models.BuildPhase, r *models.Resident, block int, code string) error {
	for _, w := range models.BlockWeeks(block) {
		if err := b.assign(phase, r, w, code); err != nil {
			return err
		}
	}
	return nil
}

// freeBlocks lists a resident's blocks with no base assignment yet.
func (b *Builder) freeBlocks(r *models.Resident) []int {
	var out []int
	for block := 1; block <= 13; block++ {
		empty := true
		for _, w := range models.BlockWeeks(block) {
			if r.Schedule[w] != "" {
				empty = false
				break
			}
		}
		if empty {
			out = append(out, block)
		}
	}
	return out
}

func (b *Builder) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	b.result.Warnings = append(b.result.Warnings, msg)
	b.log.Warn(msg)
}

func sortedByName(residents []*models.Resident) []*models.Resident {
	out := make([]*models.Resident, len(residents))
	copy(out, residents)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
