package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/etnz/taxlots/date"
)

// parseDay parses a YYYY-MM-DD date, an empty string means today.
func parseDay(s string) (date.Date, error) {
	if s == "" {
		return date.Today(), nil
	}
	return date.Parse(s)
}

// parseSplit parses a split ratio written "2:1" or "2-for-1".
func parseSplit(s string) (numerator, denominator int64, err error) {
	sep := ":"
	if strings.Contains(s, "-for-") {
		sep = "-for-"
	}
	n, d, ok := strings.Cut(s, sep)
	if !ok {
		return 0, 0, fmt.Errorf("invalid split ratio %q, expected N:D", s)
	}
	if numerator, err = strconv.ParseInt(strings.TrimSpace(n), 10, 64); err != nil {
		return 0, 0, fmt.Errorf("invalid split numerator %q: %w", n, err)
	}
	if denominator, err = strconv.ParseInt(strings.TrimSpace(d), 10, 64); err != nil {
		return 0, 0, fmt.Errorf("invalid split denominator %q: %w", d, err)
	}
	if numerator <= 0 || denominator <= 0 {
		return 0, 0, fmt.Errorf("invalid split ratio %q, both terms must be positive", s)
	}
	return numerator, denominator, nil
}

// splitList splits a comma separated list, ignoring blanks.
func splitList(s string) []string {
	var list []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}
