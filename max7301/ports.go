package max7301

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"
)

// ParsePorts parses a port list such as "4-11,20,28-31" into ascending,
// deduplicated ports. An empty string yields no ports.
func ParsePorts(s string) ([]Port, error) {
	var ports []Port
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(field, "-")
		first, err := parsePort(lo)
		if err != nil {
			return nil, err
		}
		last := first
		if isRange {
			if last, err = parsePort(hi); err != nil {
				return nil, err
			}
			if last < first {
				return nil, fmt.Errorf("max7301: descending port range %q", field)
			}
		}
		for p := first; p <= last; p++ {
			ports = append(ports, p)
		}
	}
	slices.Sort(ports)
	return slices.Compact(ports), nil
}

func parsePort(s string) (Port, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("max7301: bad port %q: %w", s, err)
	}
	return NewPort(n)
}

// FormatPorts renders ports in the form accepted by ParsePorts, collapsing
// consecutive runs.
func FormatPorts(ports []Port) string {
	sorted := slices.Clone(ports)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	var b strings.Builder
	for i := 0; i < len(sorted); {
		j := i
		for j+1 < len(sorted) && sorted[j+1] == sorted[j]+1 {
			j++
		}
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(int(sorted[i])))
		if j > i {
			b.WriteByte('-')
			b.WriteString(strconv.Itoa(int(sorted[j])))
		}
		i = j + 1
	}
	return b.String()
}
