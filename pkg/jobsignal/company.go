package jobsignal

import (
	"strings"

	"github.com/emersion/go-message/mail"
	"golang.org/x/net/publicsuffix"

	"jobtrack-backend/internal/tracker/domain"
)

// knownCompanies maps registrable sender domains to canonical names.
var knownCompanies = map[string]string{
	"lockheedmartin.com":  "Lockheed Martin",
	"lmco.com":            "Lockheed Martin",
	"google.com":          "Google",
	"amazon.com":          "Amazon",
	"amazon.jobs":         "Amazon",
	"microsoft.com":       "Microsoft",
	"meta.com":            "Meta",
	"metacareers.com":     "Meta",
	"facebookmail.com":    "Meta",
	"apple.com":           "Apple",
	"netflix.com":         "Netflix",
	"linkedin.com":        "LinkedIn",
	"ibm.com":             "IBM",
	"salesforce.com":      "Salesforce",
	"nvidia.com":          "NVIDIA",
	"jpmchase.com":        "JPMorgan Chase",
	"goldmansachs.com":    "Goldman Sachs",
	"capitalone.com":      "Capital One",
	"bloomberg.net":       "Bloomberg",
	"twosigma.com":        "Two Sigma",
	"janestreet.com":      "Jane Street",
	"citadel.com":         "Citadel",
	"stripe.com":          "Stripe",
	"databricks.com":      "Databricks",
	"palantir.com":        "Palantir",
	"uber.com":            "Uber",
	"airbnb.com":          "Airbnb",
	"deloitte.com":        "Deloitte",
	"northropgrumman.com": "Northrop Grumman",
	"boeing.com":          "Boeing",
}

// atsDomains are applicant-tracking systems that send on a company's
// behalf. The company, if anywhere in the address, is the local-part.
var atsDomains = map[string]bool{
	"greenhouse.io":         true,
	"greenhouse-mail.io":    true,
	"lever.co":              true,
	"myworkday.com":         true,
	"workday.com":           true,
	"myworkdayjobs.com":     true,
	"smartrecruiters.com":   true,
	"icims.com":             true,
	"jobvite.com":           true,
	"ashbyhq.com":           true,
	"brassring.com":         true,
	"taleo.net":             true,
	"successfactors.com":    true,
	"successfactors.eu":     true,
	"breezy.hr":             true,
	"bamboohr.com":          true,
	"recruitee.com":         true,
	"workablemail.com":      true,
	"workable.com":          true,
	"applytojob.com":        true,
	"jazzhr.com":            true,
	"paylocity.com":         true,
	"ultipro.com":           true,
	"oraclecloud.com":       true,
	"avature.net":           true,
	"eightfold.ai":          true,
	"phenompeople.com":      true,
	"hire.lever.co":         true,
	"indeed.com":            true,
	"indeedemail.com":       true,
	"hirevue.com":           true,
	"hackerrankforwork.com": true,
	"hackerrank.com":        true,
	"codesignal.com":        true,
}

// mailboxProviders never identify the employer.
var mailboxProviders = map[string]bool{
	"gmail.com":      true,
	"googlemail.com": true,
	"outlook.com":    true,
	"hotmail.com":    true,
	"live.com":       true,
	"yahoo.com":      true,
	"icloud.com":     true,
	"me.com":         true,
	"aol.com":        true,
	"proton.me":      true,
	"protonmail.com": true,
}

var (
	genericLocalPart = re(`^(no-?reply|do-?not-?reply|donotreply|notifications?|notify|alerts?|jobs?|careers?|talent|recruit\w*|hr|info|mailer|system|support|hello|team|apply|applications?|candidates?|hiring|workday|greenhouse|lever|icims|taleo|admin|bounce\w*|\d+)$`)
	teamWords        = re(`(?i)\b(careers?|jobs?|talent acquisition|talent|recruit(ing|ment|ers?)?|hiring( team)?|human resources|hr|team|university|campus|notifications?|no-?reply|do-?not-?reply)\b`)
	viaSuffix        = re(`(?i)\s+(via|from|@|on behalf of)\s+.*$`)
	namePunct        = re(`^[\s\-|,:@.]+|[\s\-|,:@.]+$`)
	fallbackDisplay  = re(`^\s*"?([^"<]+?)"?\s*<([^>]+)>`)
	fallbackAddress  = re(`([A-Za-z0-9._%+\-]+)@([A-Za-z0-9.\-]+\.[A-Za-z]{2,})`)
	hasLetter        = re(`[A-Za-z]`)
)

// Subject patterns, tried in order.
var (
	subjectCareersIn = re(`(?i)^\s*your\s+(.+?)\s+careers?\s+application\s+is\s+in\b`)
	subjectThanks    = re(`(?i)\bthanks?(?:\s+you)?\s+for\s+(?:applying|your\s+application|your\s+interest)(?:\s+(?:to|at|with|in))?\s+(.+?)(?:\s+[-–—|:]\s+|\s*[!.,]|$)`)
	subjectAt        = re(`(?i)^(.+?)\s+(?:at|@)\s+(.+?)(?:\s+[-–—|:(]|\s*[!.,]|$)`)
	subjectDash      = re(`^(.+?)\s+[-–—|]\s+(.+)$`)
	subjectSplit     = re(`\s+[-–—|]\s+|\s*:\s+`)
	subjectGeneric   = re(`(?i)\b(thank|thanks|application|applying|applied|interview|invitation|invite|update|your|received|confirmation|assessment|offer|status|next steps|regarding|re|fwd?|reminder|action required|congratulations)\b`)
	leadingArticle   = re(`(?i)^(the|our|a|an|this|your)\s`)
)

// GuessCompany guesses the employer from the sender and subject. Sender-based
// guesses come first; a subject-derived name replaces a weaker sender guess
// when it extends it ("acme.com" plus "... Acme Corp — ..." gives "Acme Corp").
func GuessCompany(sender, subject string) string {
	name, addr := parseSender(sender)
	domainName := registrableDomain(addr)
	fromSubject := companyFromSubject(subject)

	if display := cleanDisplayName(name); display != "" {
		return refine(display, fromSubject)
	}
	if known, ok := knownCompanies[domainName]; ok {
		return known
	}
	if atsDomains[domainName] {
		if local := companyFromLocalPart(addr); local != "" {
			return refine(local, fromSubject)
		}
		return fromSubject
	}
	if domainName != "" && !mailboxProviders[domainName] {
		if label := domainLabel(domainName); label != "" {
			return refine(label, fromSubject)
		}
	}
	return fromSubject
}

// refine prefers the subject-derived name when it starts with the weaker
// guess as a whole word.
func refine(weak, fromSubject string) string {
	if fromSubject == "" {
		return weak
	}
	weakKey := domain.CompanyKey(weak)
	subjectKey := domain.CompanyKey(fromSubject)
	if subjectKey == weakKey {
		return weak
	}
	if strings.HasPrefix(subjectKey, weakKey+" ") {
		return fromSubject
	}
	return weak
}

func parseSender(sender string) (name, addr string) {
	sender = strings.TrimSpace(sender)
	if sender == "" {
		return "", ""
	}
	if parsed, err := mail.ParseAddress(sender); err == nil {
		return parsed.Name, strings.ToLower(parsed.Address)
	}
	if m := fallbackDisplay.FindStringSubmatch(sender); m != nil {
		name = m[1]
	}
	if m := fallbackAddress.FindStringSubmatch(sender); m != nil {
		addr = strings.ToLower(m[0])
	}
	return name, addr
}

func cleanDisplayName(name string) string {
	if name == "" || strings.Contains(name, "@") {
		return ""
	}
	name = viaSuffix.ReplaceAllString(name, "")
	name = teamWords.ReplaceAllString(name, " ")
	name = strings.Join(strings.Fields(name), " ")
	name = namePunct.ReplaceAllString(name, "")
	name = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(name, "The "), "the "))
	if name == "" || !hasLetter.MatchString(name) {
		return ""
	}
	if genericLocalPart.MatchString(strings.ToLower(name)) {
		return ""
	}
	if atsDomains[strings.ToLower(name)+".com"] || atsDomains[strings.ToLower(name)+".io"] {
		return ""
	}
	return name
}

func registrableDomain(addr string) string {
	at := strings.LastIndex(addr, "@")
	if at < 0 {
		return ""
	}
	host := strings.TrimSuffix(addr[at+1:], ".")
	etld1, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return etld1
}

// domainLabel returns the registrable label ("acme" for "mail.acme.co.uk"),
// title-cased with hyphens as spaces.
func domainLabel(registrable string) string {
	label := registrable
	if dot := strings.Index(label, "."); dot >= 0 {
		label = label[:dot]
	}
	return titleCase(strings.ReplaceAll(label, "-", " "))
}

func companyFromLocalPart(addr string) string {
	at := strings.Index(addr, "@")
	if at <= 0 {
		return ""
	}
	local := strings.ToLower(addr[:at])
	if plus := strings.Index(local, "+"); plus >= 0 {
		local = local[:plus]
	}
	if genericLocalPart.MatchString(local) {
		return ""
	}
	local = strings.Map(func(r rune) rune {
		switch {
		case r == '-' || r == '_' || r == '.':
			return ' '
		case r >= '0' && r <= '9':
			return -1
		}
		return r
	}, local)
	return titleCase(local)
}

func companyFromSubject(subject string) string {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return ""
	}
	if m := subjectCareersIn.FindStringSubmatch(subject); m != nil {
		return titleCase(m[1])
	}
	if m := subjectThanks.FindStringSubmatch(subject); m != nil {
		if name := subjectCompanyCandidate(m[1]); name != "" {
			return name
		}
	}
	if m := subjectAt.FindStringSubmatch(subject); m != nil {
		if name := subjectCompanyCandidate(m[2]); name != "" {
			return name
		}
	}
	if m := subjectDash.FindStringSubmatch(subject); m != nil {
		if name := subjectCompanyCandidate(m[1]); name != "" {
			return name
		}
		next := subjectSplit.Split(m[2], 2)[0]
		if name := subjectCompanyCandidate(next); name != "" && !positionKeyword.MatchString(strings.ToLower(name)) {
			return name
		}
	}
	return ""
}

// subjectCompanyCandidate accepts a short subject fragment that reads like
// a name rather than a phrase.
func subjectCompanyCandidate(fragment string) string {
	fragment = strings.TrimSpace(fragment)
	if idx := strings.LastIndex(strings.ToLower(fragment), " at "); idx >= 0 {
		fragment = fragment[idx+4:]
	}
	fragment = namePunct.ReplaceAllString(fragment, "")
	if fragment == "" || leadingArticle.MatchString(fragment) || subjectGeneric.MatchString(fragment) {
		return ""
	}
	if len(strings.Fields(fragment)) > 5 || !hasLetter.MatchString(fragment) {
		return ""
	}
	return titleCase(fragment)
}
