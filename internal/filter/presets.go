package filter

import (
	"time"

	"listing-lab/internal/domain"
)

// ResolvePreset turns a named date preset into concrete [start, end) bounds
// against the supplied reference time, so preset resolution is deterministic
// and testable independent of wall-clock time. Nil bounds mean unbounded.
func ResolvePreset(preset domain.DatePreset, now time.Time) (start, end *time.Time) {
	endAt := now
	switch preset {
	case domain.Preset5Y:
		s := now.AddDate(-5, 0, 0)
		return &s, &endAt
	case domain.Preset3Y:
		s := now.AddDate(-3, 0, 0)
		return &s, &endAt
	case domain.Preset1Y:
		s := now.AddDate(-1, 0, 0)
		return &s, &endAt
	case domain.Preset6M:
		s := now.AddDate(0, -6, 0)
		return &s, &endAt
	case domain.PresetYTD:
		s := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
		return &s, &endAt
	case domain.PresetQTD:
		quarter := (int(now.Month()) - 1) / 3
		s := time.Date(now.Year(), time.Month(quarter*3+1), 1, 0, 0, 0, 0, now.Location())
		return &s, &endAt
	}
	// PresetAll, PresetCustom and the zero value resolve to no bounds here;
	// custom bounds come from the spec itself.
	return nil, nil
}
