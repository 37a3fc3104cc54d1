package sensor

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseLine parses one line of the Arduino serial protocol:
//
//	distance[,angle[,detected]]
//
// distance and angle are decimal numbers, detected is 0/1 or true/false.
func ParseLine(line string) (Reading, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Reading{}, fmt.Errorf("empty line")
	}
	fields := strings.Split(line, ",")
	if len(fields) > 3 {
		return Reading{}, fmt.Errorf("line %q: expected at most 3 fields, got %d", line, len(fields))
	}

	var r Reading
	d, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
	if err != nil {
		return Reading{}, fmt.Errorf("line %q: distance: %w", line, err)
	}
	r.Distance = d

	if len(fields) > 1 {
		a, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil {
			return Reading{}, fmt.Errorf("line %q: angle: %w", line, err)
		}
		r.Angle = a
		r.HasAngle = true
	}
	if len(fields) > 2 {
		det, err := strconv.ParseBool(strings.TrimSpace(fields[2]))
		if err != nil {
			return Reading{}, fmt.Errorf("line %q: detected: %w", line, err)
		}
		r.Detected = det
	}
	if err := r.Validate(); err != nil {
		return Reading{}, fmt.Errorf("line %q: %w", line, err)
	}
	return r, nil
}
