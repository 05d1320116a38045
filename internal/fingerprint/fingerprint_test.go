package fingerprint

import (
	"testing"
	"time"

	"listing-lab/internal/domain"
	"listing-lab/internal/enrich"
)

func floatPtr(f float64) *float64 { return &f }

func sampleTable() []*domain.ListingRecord {
	return []*domain.ListingRecord{
		{ListingID: "a", ListingType: domain.ListingTypeSale, PriceIDR: floatPtr(1000000)},
		{ListingID: "b", ListingType: domain.ListingTypeRent, PriceIDR: floatPtr(25000000)},
	}
}

func TestTable_Deterministic(t *testing.T) {
	fp1 := Table(sampleTable())
	fp2 := Table(sampleTable())
	if fp1 != fp2 {
		t.Error("same table must produce the same fingerprint")
	}
	if len(fp1) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(fp1))
	}
}

func TestTable_SensitiveToContent(t *testing.T) {
	base := Table(sampleTable())

	changed := sampleTable()
	changed[0].PriceIDR = floatPtr(2000000)
	if Table(changed) == base {
		t.Error("price change must change the fingerprint")
	}

	reordered := sampleTable()
	reordered[0], reordered[1] = reordered[1], reordered[0]
	if Table(reordered) == base {
		t.Error("row order change must change the fingerprint")
	}

	truncated := sampleTable()[:1]
	if Table(truncated) == base {
		t.Error("row removal must change the fingerprint")
	}
}

func TestConfig_SensitiveToHorizon(t *testing.T) {
	now := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	a := Config(enrich.Config{CurrentYear: 2026, Now: now})
	b := Config(enrich.Config{CurrentYear: 2026, Now: now, FreeholdHorizonYears: 30})
	if a == b {
		t.Error("horizon change must change the fingerprint")
	}
}

func TestSnapshot_CombinesBoth(t *testing.T) {
	now := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	tableFP := Table(sampleTable())
	cfgFP := Config(enrich.Config{CurrentYear: 2026, Now: now})

	s1 := Snapshot(tableFP, cfgFP)
	s2 := Snapshot(tableFP, Config(enrich.Config{CurrentYear: 2027, Now: now}))
	if s1 == s2 {
		t.Error("config change must change the snapshot key")
	}
}
