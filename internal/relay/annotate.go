package relay

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var locationPattern = regexp.MustCompile(`line (\d+), characters (\d+)-(\d+)`)

// Location is a source span reported by the checker.
type Location struct {
	Line  int // 1-indexed
	Start int // first character, 0-indexed
	End   int // exclusive
}

// Annotate splices the offending statement into the checker log right after the
// first "line N, characters S-E" it finds:
//
//	... characters 18-23 [statement `sauto` from line `Theorem t : True. sauto. Qed.`]: ...
//
// The log is returned unchanged when there is no location or N names no line of code.
func Annotate(log, code string) string {
	idx := locationPattern.FindStringSubmatchIndex(log)
	if idx == nil {
		return log
	}

	loc, ok := parseLocation(log, idx)
	if !ok {
		return log
	}

	lines := strings.Split(code, "\n")
	if loc.Line < 1 || loc.Line > len(lines) {
		return log
	}
	line := lines[loc.Line-1]

	end := idx[1]
	note := fmt.Sprintf(" [statement `%s` from line `%s`]", sliceChars(line, loc.Start, loc.End), line)
	return log[:end] + note + log[end:]
}

func parseLocation(log string, idx []int) (Location, bool) {
	var vals [3]int
	for i := range vals {
		n, err := strconv.Atoi(log[idx[2+2*i]:idx[3+2*i]])
		if err != nil {
			// only on overflow: the groups are all digits
			return Location{}, false
		}
		vals[i] = n
	}
	return Location{Line: vals[0], Start: vals[1], End: vals[2]}, true
}

// sliceChars returns characters [start, end) of s, clamped to its length.
func sliceChars(s string, start, end int) string {
	r := []rune(s)
	if end > len(r) {
		end = len(r)
	}
	if start >= end {
		return ""
	}
	return string(r[start:end])
}
