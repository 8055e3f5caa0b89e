// Package timeutil centralizes the UTC-everywhere time handling used across
// the monitoring engine: timestamp formatting and parsing, and date-suffixed
// index names. The one exception is ConvertUTCToLocal, which turns report
// histogram bucket keys into the process's local time; everything else in
// this package deals in UTC.
package timeutil

import (
	"fmt"
	"time"
)

// ISOFormat is the canonical timestamp layout used on every MetricRecord,
// IndexMetricRecord and IncidentRecord: %Y-%m-%dT%H:%M:%SZ.
const ISOFormat = "2006-01-02T15:04:05Z"

// dateSuffixFormat is the YYYYMMDD suffix appended to sink index names.
const dateSuffixFormat = "20060102"

// NowUTC returns the current instant truncated to whole seconds, matching
// the precision of the canonical timestamp format.
func NowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// FormatISO renders t (converted to UTC) in the canonical timestamp layout.
func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOFormat)
}

// ParseISO parses the canonical timestamp layout back into a UTC time.Time.
func ParseISO(s string) (time.Time, error) {
	t, err := time.Parse(ISOFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("timeutil: parse %q: %w", s, err)
	}
	return t.UTC(), nil
}

// DateSuffix returns the YYYYMMDD suffix for t's UTC calendar day.
func DateSuffix(t time.Time) string {
	return t.UTC().Format(dateSuffixFormat)
}

// IndexName builds a date-suffixed sink index name from a prefix and the
// UTC calendar day of t, e.g. IndexName("metric-", now) -> "metric-20260731".
func IndexName(prefix string, t time.Time) string {
	return prefix + DateSuffix(t)
}

// ConvertUTCToLocal parses an RFC3339-ish UTC string (as returned by
// Elasticsearch's key_as_string on date-histogram buckets) and converts it
// to the process's local timezone. Callers must treat a parse failure as a
// "drop this bucket" signal per the report aggregator's contract.
func ConvertUTCToLocal(utcString string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, utcString)
	if err != nil {
		// Elasticsearch's date_histogram key_as_string often omits the zone
		// offset and just appends "Z" without nanoseconds; fall back to the
		// canonical layout before giving up.
		t, err = time.Parse(ISOFormat, utcString)
		if err != nil {
			return time.Time{}, fmt.Errorf("timeutil: convert %q to local time: %w", utcString, err)
		}
	}
	return t.Local(), nil
}
