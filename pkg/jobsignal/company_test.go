package jobsignal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuessCompany(t *testing.T) {
	tests := []struct {
		name    string
		sender  string
		subject string
		want    string
	}{
		{"subject refines domain label", "careers@acme.com", "Thank you for applying to Acme Corp — Software Engineer Intern", "Acme Corp"},
		{"domain label", "careers@acme.com", "Your application", "Acme"},
		{"multi-part suffix", "talent@northwind-traders.co.uk", "", "Northwind Traders"},
		{"display name with team suffix", "Globex Talent Acquisition <jobs@globex.com>", "", "Globex"},
		{"quoted display name", `"Lockheed Martin" <donotreply@trm.brassring.com>`, "", "Lockheed Martin"},
		{"display name of an ATS falls through to local-part", "Workday <acme-robotics@myworkday.com>", "", "Acme Robotics"},
		{"ATS display with careers suffix", "Acme Robotics Careers <no-reply@greenhouse.io>", "", "Acme Robotics"},
		{"ATS no-reply uses subject", "no-reply@greenhouse.io", "Thank you for applying to NovaSoft", "Novasoft"},
		{"known domain", "jobs@mail.google.com", "", "Google"},
		{"mailbox provider uses subject", "recruiter.jane@gmail.com", "Interview at Globex", "Globex"},
		{"careers application is in", "", "Your Initech Careers Application Is In", "Initech"},
		{"dash subject", "", "Hooli — Data Analyst", "Hooli"},
		{"generic dash head", "", "Application received — Pied Piper", "Pied Piper"},
		{"nothing to go on", "", "Hello there", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GuessCompany(tt.sender, tt.subject))
		})
	}
}

func TestRefine(t *testing.T) {
	assert.Equal(t, "Acme Corp", refine("Acme", "Acme Corp"))
	assert.Equal(t, "Acme", refine("Acme", "Acme"))
	assert.Equal(t, "Acme", refine("Acme", "Acmeco"))
	assert.Equal(t, "Acme", refine("Acme", "Globex"))
	assert.Equal(t, "Acme", refine("Acme", ""))
}
