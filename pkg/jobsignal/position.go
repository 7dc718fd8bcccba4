package jobsignal

import (
	"strings"
)

var (
	positionKeyword = re(`\b(internship|intern|software engineer|swe|front[- ]?end|back[- ]?end|full[- ]?stack|data|ml|security|devops)\b`)
	positionLabel   = re(`(?im)^[ \t•*\-]*positions?(?:\s+title)?\s*:[ \t]*(.*)$`)
	requisitionID   = re(`^[A-Z0-9_#\-]*[0-9][A-Z0-9_#\-]*$`)
	interestShown   = re(`(?i)\binterest\s+you(?:'|’)?(?:ve|\s+have)\s+shown\s+in\s+(?:the\s+|our\s+)?(.+?)\s+(?:position|role|opening|opportunity)\b`)
	seasonYear      = re(`(?i)[\s,\-–—(]*\b(?:(?:summer|fall|autumn|winter|spring)\s+)?(?:19|20)\d{2}\b[\s)\]]*$`)
	parenthetical   = re(`\s*[(\[][^)\]]*[)\]]`)
	atCompany       = re(`(?i)\s+at\s+.*$`)
)

// GuessPosition guesses the job title: a "Position:" line in the body, then
// a vocabulary keyword in the subject, then an "interest you've shown in the
// X position" phrase in the body.
func GuessPosition(subject, body string) string {
	if p := positionFromLabel(body); p != "" {
		return p
	}
	if p := positionFromSubject(subject); p != "" {
		return p
	}
	return positionFromInterest(body)
}

func positionFromLabel(body string) string {
	m := positionLabel.FindStringSubmatchIndex(body)
	if m == nil {
		return ""
	}
	value := strings.TrimSpace(body[m[2]:m[3]])
	if value == "" {
		for _, line := range strings.Split(body[m[1]:], "\n") {
			if line = strings.TrimSpace(line); line != "" {
				value = line
				break
			}
		}
	}
	return cleanTitle(stripRequisitionIDs(value))
}

func stripRequisitionIDs(value string) string {
	var kept []string
	for _, field := range strings.Fields(value) {
		bare := strings.Trim(field, "()[],;:#")
		if bare != "" && requisitionID.MatchString(bare) {
			continue
		}
		kept = append(kept, field)
	}
	return strings.Join(kept, " ")
}

// positionFromSubject prefers a short separator-delimited subject segment
// that contains a keyword ("... — Software Engineer Intern") and otherwise
// returns the first keyword itself.
func positionFromSubject(subject string) string {
	for _, segment := range subjectSplit.Split(subject, -1) {
		segment = atCompany.ReplaceAllString(strings.TrimSpace(segment), "")
		lower := strings.ToLower(segment)
		if !positionKeyword.MatchString(lower) {
			continue
		}
		if len(strings.Fields(segment)) <= 6 && !subjectGeneric.MatchString(segment) {
			return cleanTitle(segment)
		}
	}
	if m := positionKeyword.FindString(strings.ToLower(subject)); m != "" {
		return titleCase(m)
	}
	return ""
}

func positionFromInterest(body string) string {
	m := interestShown.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	return cleanTitle(m[1])
}

// cleanTitle drops parentheticals and trailing season/year qualifiers, then
// title-cases what is left.
func cleanTitle(value string) string {
	value = parenthetical.ReplaceAllString(value, "")
	value = seasonYear.ReplaceAllString(value, "")
	value = namePunct.ReplaceAllString(value, "")
	if len(value) > 80 || !hasLetter.MatchString(value) {
		return ""
	}
	return titleCase(value)
}
