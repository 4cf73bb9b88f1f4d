/*package format handles the two small formatting languages used in mpgio
config files, e.g.:

   Input = /data/sims/L125/output/PART_{%03d,snapshot}
   Snapshots = 0..100 - 63

Snapshot path templates are fixed text with variables written as
{verb,snapshot}, where "verb" is a printf() verb (e.g. %03d) used to print the
snapshot number. A template may contain any number of variables, and every
variable is replaced by the same snapshot.

Sequence formats are a way to specify non-contiguous sequences of natural
numbers. They consist of a series of tokens separated by "+" or "-". Each token
can be either a number or two numbers separated by "..", which includes both
ends. E.g.:

   100
   0..100
   0..10 + 100
   0..100 - 63 - 10..20

Numbers can't be added twice or removed if they aren't there. All spaces are
ignored.
*/
package format

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	// Any expanded sequence which would have more than BigNumber elements is
	// assumed to be a bug.
	BigNumber = 1 << 20
)

// ExpandSequenceFormat expands a sequence format string into a sorted sequence
// of integers.
func ExpandSequenceFormat(format string) ([]int, error) {
	tok := tokenize(format)
	if len(tok) == 0 {
		return nil, fmt.Errorf("The sequence format string is empty.")
	}

	// A leading "+" is optional.
	if tok[0] != "+" && tok[0] != "-" {
		tok = append([]string{"+"}, tok...)
	}

	m := map[int]bool{}
	for i := 0; i < len(tok); i += 2 {
		op := tok[i]
		if op != "+" && op != "-" {
			return nil, fmt.Errorf("Element number %d of '%s', '%s', "+
				"should be a '-' or '+', but isn't.", i, format, op)
		} else if i+1 >= len(tok) {
			return nil, fmt.Errorf("The sequence format '%s' ends in a "+
				"trailing '%s'.", format, op)
		}

		lo, hi, err := parseRange(tok[i+1])
		if err != nil {
			return nil, fmt.Errorf("Element number %d of '%s', '%s', can't "+
				"be parsed because %s", i, format, tok[i+1], err.Error())
		} else if hi-lo >= BigNumber {
			return nil, fmt.Errorf("The range '%s' has %d elements, which "+
				"is almost certainly a bug.", tok[i+1], hi-lo+1)
		}

		for n := lo; n <= hi; n++ {
			switch {
			case op == "+" && m[n]:
				return nil, fmt.Errorf("The number %d is added to '%s' "+
					"more than once.", n, format)
			case op == "-" && !m[n]:
				return nil, fmt.Errorf("The number %d is removed from '%s' "+
					"more times than it was added.", n, format)
			case op == "+":
				m[n] = true
			default:
				delete(m, n)
			}
		}
	}

	if len(m) > BigNumber {
		return nil, fmt.Errorf("The sequence '%s' would have %d elements, "+
			"which is almost certainly a bug.", format, len(m))
	}

	out := make([]int, 0, len(m))
	for n := range m {
		out = append(out, n)
	}
	sort.Ints(out)

	return out, nil
}

// tokenize splits a sequence format into numbers, ranges and operators.
func tokenize(format string) []string {
	format = strings.ReplaceAll(format, "+", " + ")
	format = strings.ReplaceAll(format, "-", " - ")
	return strings.Fields(format)
}

// parseRange parses "n" or "lo..hi". The error message assumes that it is
// printed after a "because".
func parseRange(tok string) (lo, hi int, err error) {
	bounds := strings.Split(tok, "..")
	if len(bounds) > 2 {
		return 0, 0, fmt.Errorf("it has more than one '..'.")
	}

	lo, err = strconv.Atoi(bounds[0])
	if err != nil {
		return 0, 0, fmt.Errorf("'%s' is not an integer.", bounds[0])
	}
	if len(bounds) == 1 {
		return lo, lo, nil
	}

	hi, err = strconv.Atoi(bounds[1])
	if err != nil {
		return 0, 0, fmt.Errorf("'%s' is not an integer.", bounds[1])
	} else if hi < lo {
		return 0, 0, fmt.Errorf("lower bound %d is larger than upper "+
			"bound %d.", lo, hi)
	}
	return lo, hi, nil
}

// ExpandSnapshot replaces every {verb,snapshot} variable in a snapshot path
// template with snap.
func ExpandSnapshot(template string, snap int) (string, error) {
	out := &strings.Builder{}
	rest := template
	for {
		start := strings.IndexByte(rest, '{')
		end := strings.IndexByte(rest, '}')

		switch {
		case start == -1 && end == -1:
			out.WriteString(rest)
			return out.String(), nil
		case start == -1 || end < start:
			return "", fmt.Errorf("The template '%s' has a '}' that doesn't "+
				"come after a '{'.", template)
		case end == -1:
			return "", fmt.Errorf("The template '%s' has a '{' without a "+
				"matching '}'.", template)
		}

		v := rest[start+1 : end]
		if strings.ContainsRune(v, '{') {
			return "", fmt.Errorf("The template '%s' has nested '{' "+
				"characters.", template)
		}

		tok := strings.Split(v, ",")
		if len(tok) != 2 || strings.TrimSpace(tok[1]) != "snapshot" ||
			!strings.HasPrefix(strings.TrimSpace(tok[0]), "%") {
			return "", fmt.Errorf("The template '%s' has an invalid "+
				"variable, '{%s}'. Variables should contain a printf verb "+
				"(e.g. '%%03d'), a comma, and the word 'snapshot'.",
				template, v)
		}

		out.WriteString(rest[:start])
		fmt.Fprintf(out, strings.TrimSpace(tok[0]), snap)
		rest = rest[end+1:]
	}
}
