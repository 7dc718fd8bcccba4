package jobsignal

import (
	"regexp"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"jobtrack-backend/internal/tracker/domain"
)

// A caser is stateful; each call gets its own.
func newTitleCaser() cases.Caser {
	return cases.Title(language.English)
}

var re = regexp.MustCompile

// thirdPerson is a promise about some group of applicants ("candidates who
// are selected will be invited") rather than news about this one.
const thirdPerson = `\b(candidates|applicants|those|anyone|individuals)\s+(who|whose|that)\b.*\b(will|'ll|would|may|might|shall)\b` +
	`|\b(selected|shortlisted|successful|qualified)\s+(candidates|applicants)\b.*\b(will|'ll|would|may|might|shall)\b`

// conditionalMention cancels clauses that only describe what may happen
// later ("if selected for an interview you will be contacted").
var conditionalMention = re(`\b(if|should|once|whether|in the event)\b.{0,40}\b(selected|shortlisted|chosen|invited|qualified|successful|advanc\w*|mov(e|ing) forward|proceed\w*|match\w*)\b` +
	`|\b(may|might|could)\s+(be\s+)?(contact\w*|reach\w* out|in touch|invit\w*|ask\w*|requir\w*)\b` +
	`|\bqualified candidates\b` +
	`|\b(process|steps)\s+(may|might|could|will|can)\s+(also\s+)?(include|involve|consist)\b` +
	`|\b(if|should|once|whether|unless|in the event)\b.*\b(will|'ll|would|may|might|shall)\b` +
	`|\b(will|'ll|would|may|might|shall)\b.*\b(if|unless)\b` +
	`|` + thirdPerson)

// futureNotice cancels clauses that promise to report a rejection later
// instead of delivering one.
var futureNotice = re(`\b(will|we'll|shall)\s+(be\s+)?(notif\w*|let you know|inform\w*|contact\w*|update\w*|reach out)\b` +
	`|\b(will|'ll|shall)\s+(receive|hear|get|be sent|be emailed)\b` +
	`|\bif\s+(you are |you're |your application is )?(no longer|not selected|unsuccessful)\b` +
	`|\bshould\s+(you|your application)\s+(no longer|not)\b` +
	`|` + thirdPerson)

var offerGuard = re(`\b(if|once|in the event)\b`)

// rules is ordered by precedence: the first rule that fires wins.
var rules = []rule{
	{
		status: domain.StatusOffer,
		match: []*regexp.Regexp{
			re(`\b(offer letter|offer of employment|formal offer|verbal offer|your offer (package|details))\b`),
			re(`\b(extend|extended|extending)\s+(you\s+)?(an|a|this|the)\s+(\w+\s+)?offer\b`),
			re(`\b(pleased|happy|delighted|excited|thrilled)\s+to\s+(extend|offer you)\b`),
			re(`\bcongratulations\b.{0,60}\boffer\b`),
		},
		guard: offerGuard,
	},
	{
		status: domain.StatusWithdrawn,
		match: []*regexp.Regexp{
			re(`\byou('ve| have)\s+(successfully\s+)?withdrawn\b`),
			re(`\b(application|candidacy)\s+(has been|was)\s+(successfully\s+)?withdrawn\b`),
			re(`\b(withdrawal of your (application|candidacy)|withdrew your (application|candidacy))\b`),
			re(`\bconfirm(ing|s)?\s+(your|the)\s+withdrawal\b`),
		},
		guard: re(`\bif\b`),
	},
	{
		status: domain.StatusInterview,
		match: []*regexp.Regexp{
			re(`\b(schedul\w*|book|set up|arrange|confirm\w*|invit\w*|availability|available times|select a time|pick a time|calendar)\b.{0,60}\binterviews?\b`),
			re(`\binterviews?\b.{0,60}\b(scheduled|invitation|invite|confirmed|confirmation|availability|slots?|calendar|link|on (monday|tuesday|wednesday|thursday|friday|saturday|sunday))\b`),
			re(`\b(phone screen|recruiter screen|recruiter call|technical screen|onsite interview|on-site interview|virtual onsite|final round|next round)\b`),
		},
		guard: conditionalMention,
	},
	{
		status: domain.StatusOA,
		match: []*regexp.Regexp{
			re(`\b(online (coding )?assessment|technical assessment|coding (assessment|challenge|exercise|test)|take-home (assignment|assessment|challenge)|assessment (invitation|link))\b`),
			re(`\b(hacker ?rank|codility|code ?signal|karat|testgorilla)\b`),
		},
		guard: conditionalMention,
	},
	{
		status: domain.StatusRejected,
		match: []*regexp.Regexp{
			re(`\b(we regret|regret to (inform|let you know|tell you)|unable to offer you)\b`),
			re(`\b(not|won't|will not|decided not to)\s+(be\s+)?(mov(e|ing) forward|proceed(ing)?|progress(ing)?)\s+with\s+your\s+(application|candidacy)\b`),
			re(`\bdecided to (move forward|proceed|pursue|go)\s+with\s+(other|another|a different|more qualified)\s+(candidates?|applicants?)\b`),
			re(`\bno longer (being\s+)?(under\s+)?consider(ed|ation)\b`),
			re(`\b(position|role) has (now\s+)?been filled\b`),
			re(`\b(not (been )?selected|application (was|has been) unsuccessful|unsuccessful on this occasion)\b`),
			re(`\bunfortunately\b.{0,80}\b(not|unable|won't|decided|declin\w*)\b.{0,60}\b(your (application|candidacy|profile)|you|other (candidates|applicants))\b`),
			re(`\bafter careful (consideration|review)\b.{0,80}\b(not|unable|other candidates|decided)\b`),
		},
		guard: futureNotice,
	},
	{
		status: domain.StatusApplied,
		match: []*regexp.Regexp{
			re(`\b(thank you|thanks)\s+(so much\s+)?(for|in)\s+(your\s+)?(interest|applying|application|submitting)\b`),
			re(`\b(application|resume|cv)\s+(has been\s+|was\s+|is\s+)?(successfully\s+)?(received|submitted)\b`),
			re(`\bwe('ve| have)?\s+received\s+your\s+(application|resume|submission)\b`),
			re(`\b(candidate reference( number)?|application confirmation)\b`),
			re(`\byour\s+.{1,60}\s+application is in\b`),
		},
	},
}
