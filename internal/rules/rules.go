package rules

import "strings"

// Record is the unit handed to classification and the output sinks: the
// response plus the request that produced it.
type Record struct {
	Seq     int
	Method  string
	URL     string
	Payload any
	Status  int
	Headers map[string][]string
	Body    string
}

// Rule routes matching responses to an output file. An empty StatusCodes or
// Messages set means match-any for that sub-condition; both sub-conditions
// must hold. Substring matching is case-sensitive unless IgnoreCase is set.
type Rule struct {
	StatusCodes []int
	Messages    []string
	IgnoreCase  bool
	OutputFile  string
}

// Match pairs a rule with its verdict for one record.
type Match struct {
	Rule    Rule
	Matched bool
}

// Classify evaluates every rule independently against rec. A record may match
// zero, one, or several rules; there is no short-circuit on first match.
func Classify(rec Record, ruleset []Rule) []Match {
	matches := make([]Match, len(ruleset))
	for i, r := range ruleset {
		matches[i] = Match{Rule: r, Matched: matchesRule(rec, r)}
	}
	return matches
}

func matchesRule(rec Record, r Rule) bool {
	if len(r.StatusCodes) > 0 && !containsInt(r.StatusCodes, rec.Status) {
		return false
	}
	if len(r.Messages) > 0 && !containsAny(rec.Body, r.Messages, r.IgnoreCase) {
		return false
	}
	return true
}

func containsInt(codes []int, status int) bool {
	for _, c := range codes {
		if c == status {
			return true
		}
	}
	return false
}

func containsAny(body string, messages []string, ignoreCase bool) bool {
	if ignoreCase {
		body = strings.ToLower(body)
	}
	for _, m := range messages {
		if ignoreCase {
			m = strings.ToLower(m)
		}
		if strings.Contains(body, m) {
			return true
		}
	}
	return false
}
