// Package utils provides common utility functions for votereport.
package utils

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// FormatVotes formats a vote count with thousands separators (12,345).
func FormatVotes(n int) string {
	return humanize.Comma(int64(n))
}

// FormatRank formats a zone rank for display, e.g. 2 → "2º".
func FormatRank(rank int) string {
	return strconv.Itoa(rank) + "º"
}

// FormatMean formats a zone mean with two decimals (83.33).
func FormatMean(mean float64) string {
	return strconv.FormatFloat(mean, 'f', 2, 64)
}

// Truncate cuts s to at most max runes. Multi-byte names are never split
// mid-rune.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// NormalizeName applies NFC normalization and trims surrounding whitespace so
// "José" typed with a combining accent compares equal to the precomposed form.
func NormalizeName(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

var upperPT = cases.Upper(language.BrazilianPortuguese)

// UpperPT upper-cases a label using Brazilian Portuguese casing rules
// ("Águas Claras" → "ÁGUAS CLARAS").
func UpperPT(s string) string {
	return upperPT.String(s)
}

// ReportFilename derives the download name for a candidate's report:
// every whitespace rune becomes "_", e.g. "Maria da Silva" → "Relatorio_Maria_da_Silva.pdf".
// Path separators and control characters are replaced too, so the result
// is always a single path element.
func ReportFilename(prefix, candidate, ext string) string {
	name := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.IsControl(r) || r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, candidate)
	ext = strings.TrimPrefix(ext, ".")
	return prefix + name + "." + ext
}

// FormatBytes formats a document size for status lines (1.2 MB).
func FormatBytes(n int) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}
