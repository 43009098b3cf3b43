package phases

import (
	"github.com/mfromano/schedule-creator/internal/models"
)

// assignR1Tracks maps rising R1s onto R1 tracks 1:1. The pairing itself is
// arbitrary; residents are taken in lexical order so reruns are identical.
// Sampler placeholder cells stay as-is; the sampler phase rewrites them
// after night float is placed.
func (b *Builder) assignR1Tracks() error {
	r1s := sortedByName(models.ByYear(b.in.Residents, 1))
	if len(r1s) == 0 {
		return nil
	}
	if len(b.in.R1Tracks) == 0 {
		b.warn("no R1 tracks loaded; %d R1s left unassigned", len(r1s))
		return nil
	}
	if len(r1s) != len(b.in.R1Tracks) {
		b.warn("%d R1s vs %d R1 tracks; wrapping around", len(r1s), len(b.in.R1Tracks))
	}

	assignments := make(map[string]int, len(r1s))
	for i, res := range r1s {
		track := b.in.R1Tracks[i%len(b.in.R1Tracks)]
		res.TrackNumber = track.Number
		assignments[res.Name] = track.Number
		for week, code := range track.ToWeekly() {
			if err := b.assign(models.PhaseR1, res, week, code); err != nil {
				return err
			}
		}
	}
	b.result.R1Assignments = assignments
	return nil
}
