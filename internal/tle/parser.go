package tle

import (
	"bufio"
	"io"
	"log/slog"
	"strings"

	"github.com/pkg/errors"
)

// Parse reads a catalog of element sets from r. Both the 3-line form (name
// line, optionally prefixed "0 ") and the bare 2-line form are accepted.
// Entries that fail validation are skipped with a warning log.
func Parse(r io.Reader, logger *slog.Logger) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading TLE data")
	}

	var entries []Entry
	for i := 0; i+1 < len(lines); {
		name := ""
		if !strings.HasPrefix(lines[i], "1 ") {
			name = strings.TrimSpace(strings.TrimPrefix(lines[i], "0 "))
			i++
		}
		if i+1 >= len(lines) {
			logger.Warn("skipping truncated TLE entry", "name", name)
			break
		}
		line1, line2 := lines[i], lines[i+1]

		// Resynchronize when the pair is not a "1 "/"2 " couple. A consumed
		// name line already advanced i; the current line may be the next name.
		if !strings.HasPrefix(line1, "1 ") || !strings.HasPrefix(line2, "2 ") {
			logger.Warn("skipping malformed TLE entry", "line_index", i, "name", name)
			if name == "" {
				i++
			}
			continue
		}
		i += 2

		el, err := ParseElements(line1, line2)
		if err != nil {
			logger.Warn("skipping invalid TLE entry", "name", name, "error", err)
			continue
		}
		if name == "" {
			name = el.SatNum
		}

		entries = append(entries, Entry{
			NORADID:  el.CatalogNumber,
			Name:     name,
			Epoch:    el.EpochTime(),
			Line1:    strings.TrimSpace(line1),
			Line2:    strings.TrimSpace(line2),
			Elements: el,
		})
	}

	return entries, nil
}
