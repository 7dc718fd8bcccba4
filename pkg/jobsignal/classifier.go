// Package jobsignal recognizes job-application lifecycle events in email.
//
// Classification is a flat, ordered rule list. Each rule matches clause by
// clause, and a clause that also matches the rule's guard (conditional or
// future-tense phrasing) does not count.
package jobsignal

import (
	"regexp"
	"strings"

	"jobtrack-backend/internal/tracker/domain"
	"jobtrack-backend/pkg/mailtext"
)

// Input is the part of a message the classifier looks at. Body keeps its
// original casing and line breaks.
type Input struct {
	Subject string
	Sender  string
	Snippet string
	Body    string
}

type rule struct {
	status domain.LifecycleStatus
	match  []*regexp.Regexp
	guard  *regexp.Regexp
}

func (r rule) fires(clauses []string) bool {
	for _, clause := range clauses {
		if r.guard != nil && r.guard.MatchString(clause) {
			continue
		}
		for _, re := range r.match {
			if re.MatchString(clause) {
				return true
			}
		}
	}
	return false
}

// Classify returns the signal one email carries. The boolean is false when
// nothing job-related was recognized; the zero Signal is returned then.
func Classify(in Input) (domain.Signal, bool) {
	status, ok := DetectStatus(in)
	if !ok {
		return domain.Signal{}, false
	}
	return domain.Signal{
		Status:   status,
		Company:  GuessCompany(in.Sender, in.Subject),
		Position: GuessPosition(in.Subject, in.Body),
	}, true
}

// DetectStatus applies the rules in precedence order and returns the first
// status whose rule fires.
func DetectStatus(in Input) (domain.LifecycleStatus, bool) {
	clauses := clausesOf(in)
	for _, r := range rules {
		if r.fires(clauses) {
			return r.status, true
		}
	}
	return "", false
}

var clauseBreak = regexp.MustCompile(`[.!?;]+(?:\s+|$)|\n+`)

// clausesOf splits subject, snippet and body into normalized clauses so a
// guard only cancels matches in its own sentence.
func clausesOf(in Input) []string {
	var out []string
	for _, text := range []string{in.Subject, in.Snippet, in.Body} {
		for _, piece := range clauseBreak.Split(text, -1) {
			if clause := mailtext.Normalize(piece); clause != "" {
				out = append(out, clause)
			}
		}
	}
	return out
}

// titleCase capitalizes the first letter of each word and lowercases the rest.
func titleCase(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	return newTitleCaser().String(strings.ToLower(s))
}
