// Package format provides pure display-formatting helpers for bills.
//
// Both functions keep returning a usable value alongside any error so
// callers can render best-effort fields when a record is malformed.
package format

import (
	"fmt"
	"time"

	"billed/internal/core"
)

// Month abbreviations as the historical locale pipeline produced them:
// capitalized French short names truncated to three runes. June and July
// collapse to the same "Jui", so display strings are not a sort key.
var frenchMonths = [12]string{
	"Jan", "Fév", "Mar", "Avr", "Mai", "Jui",
	"Jui", "Aoû", "Sep", "Oct", "Nov", "Déc",
}

// FormatDate turns a canonical ISO date into its display form,
// e.g. "2004-04-04" -> "4 Avr. 04". On parse failure the input is
// returned unchanged together with the error.
func FormatDate(iso string) (string, error) {
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return iso, fmt.Errorf("parse bill date %q: %w", iso, err)
	}
	return fmt.Sprintf("%d %s. %02d", t.Day(), frenchMonths[int(t.Month())-1], t.Year()%100), nil
}

// FormatStatus maps a raw status code to its display label. Unknown codes
// come back unchanged together with an error.
func FormatStatus(raw string) (string, error) {
	switch core.Status(raw) {
	case core.StatusPending:
		return "En attente", nil
	case core.StatusAccepted:
		return "Accepté", nil
	case core.StatusRefused:
		return "Refused", nil
	}
	return raw, fmt.Errorf("unknown bill status %q", raw)
}
