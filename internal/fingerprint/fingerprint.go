// Package fingerprint computes deterministic SHA256 identities for listing
// tables and enrichment configs, used by the calling layer to key its
// memoization cache. The core engines themselves stay cache-free.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"listing-lab/internal/domain"
	"listing-lab/internal/enrich"
)

// Table computes a fingerprint over the identity-bearing fields of every
// record, in input order. Any change to the set, order, or content of the
// table changes the fingerprint.
func Table(listings []*domain.ListingRecord) string {
	h := sha256.New()
	for _, l := range listings {
		fmt.Fprintf(h, "%s|%s|%s|%s|%s|%s|%s|%s|%s\n",
			l.ListingID,
			l.ListingType,
			l.Ownership,
			floatField(l.PriceIDR),
			floatField(l.PriceUSD),
			floatField(l.BuildingSizeSqm),
			floatField(l.LandSizeSqm),
			strField(l.LeaseDuration),
			timeField(l.ScrapedAt),
		)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Config computes a fingerprint of an enrichment config.
func Config(cfg enrich.Config) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d|%s|%g|%d|%s",
		cfg.CurrentYear,
		cfg.Now.UTC().Format("2006-01-02T15:04:05"),
		cfg.FXRate,
		cfg.FreeholdHorizonYears,
		strings.Join(cfg.OutlierMetrics, ","),
	)
	hash := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(hash[:])
}

// Snapshot combines table and config fingerprints into one cache key.
func Snapshot(tableFP, configFP string) string {
	hash := sha256.Sum256([]byte(tableFP + "|" + configFP))
	return hex.EncodeToString(hash[:])
}

func floatField(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%g", *v)
}

func strField(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func timeField(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.UTC().Format("2006-01-02T15:04:05")
}
