package phases

import (
	"time"

	"go.uber.org/zap"

	"github.com/mfromano/schedule-creator/internal/solver"
)

// assignNightFloat overlays NF onto the locked base schedule. The solver
// checks the LC/CORE, block 1 and AIRP week restrictions on every candidate
// week as it places each quota, and every relaxation it takes is logged.
func (b *Builder) assignNightFloat() error {
	noCall := b.noCallWeeks()

	res, err := solver.SolveNightFloat(solver.NFProblem{
		Residents: b.in.Residents,
		Rules:     b.in.NFRules,
		Weeks:     52,
		Base:      b.grid.Base,
		NoCall:    noCall,
		LCBlock:   b.cfg.LCBlock(),
		CoreBlock: b.cfg.CoreExamBlock,
	})
	if err != nil {
		return err
	}

	for _, note := range res.Relaxations {
		b.log.Warn("night-float relaxation", zap.String("dropped", note))
		b.result.Warnings = append(b.result.Warnings, "night-float: "+note)
	}

	total := 0
	for name, picks := range res.Assignments {
		for _, pk := range picks {
			if err := b.grid.AssignNF(name, pk.Week, pk.Kind); err != nil {
				return err
			}
			total++
		}
	}
	b.result.NF = res
	b.log.Info("night float placed",
		zap.Int("weeks", total),
		zap.Int("residents", len(res.Assignments)))
	return nil
}

// noCallWeeks maps survey no-call dates onto week numbers. A no-call
// weekend blocks the week of the following Monday as well.
func (b *Builder) noCallWeeks() map[string]map[int]bool {
	out := make(map[string]map[int]bool)
	mark := func(name string, week int) {
		if out[name] == nil {
			out[name] = make(map[int]bool)
		}
		out[name][week] = true
	}
	for _, r := range b.in.Residents {
		for _, d := range r.NoCall.RawDates {
			mark(r.Name, b.in.Calendar.WeekOf(d))
			if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
				monday := d.AddDate(0, 0, (8-int(wd))%7)
				mark(r.Name, b.in.Calendar.WeekOf(monday))
			}
		}
		// Educational locks double as no-call weeks.
		for w, code := range r.Schedule {
			if code == "AIRP" || code == "LC" {
				mark(r.Name, w)
			}
		}
	}
	return out
}
