package utils

import (
	"time"
)

// BRT is the Brasília time location (UTC-3), the reference clock of the
// electoral data.
var BRT *time.Location

func init() {
	var err error
	BRT, err = time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		// Fallback: create fixed zone if tz database is not available
		BRT = time.FixedZone("BRT", -3*60*60)
	}
}

// NowBRT returns the current time in Brasília time.
func NowBRT() time.Time {
	return time.Now().In(BRT)
}

// FormatDateTimeBRT formats a timestamp for report headers and API payloads.
// e.g., "02/10/2022 18:04 BRT"
func FormatDateTimeBRT(t time.Time) string {
	return t.In(BRT).Format("02/01/2006 15:04") + " BRT"
}
