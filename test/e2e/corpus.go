// Package e2e runs whole-system question answering over a handbook corpus.
package e2e

import (
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

// filler is appended to every handbook entry. It shares no terms with any
// question, so it must never be chosen for an answer.
const filler = "Contact the office manager with anything unclear."

// HandbookEntry is one document of the corpus together with the question it
// answers. Fact is a substring of Content that a correct answer contains.
type HandbookEntry struct {
	ID       string
	Title    string
	Content  string
	Question string
	Fact     string
}

// Corpus is the handbook used by the end-to-end tests.
type Corpus struct {
	Entries []HandbookEntry
}

// BuildCorpus returns the handbook. Each entry states one fact in a sentence
// that repeats the distinctive words of its question.
func BuildCorpus() *Corpus {
	raw := []struct {
		id, title, fact, sentence, question string
	}{
		{"parking-permits", "Parking", "40 dollars", "Parking permits for the north garage cost 40 dollars per month.", "How much do north garage parking permits cost?"},
		{"guest-wifi", "Guest Wifi", "every Monday", "The guest wifi password rotates every Monday and is posted at reception.", "When does the guest wifi password rotate?"},
		{"laptop-refresh", "Laptops", "every three years", "Company laptops are refreshed every three years by the hardware team.", "How often are company laptops refreshed?"},
		{"access-badges", "Badges", "within one business day", "Lost access badges are replaced by security within one business day.", "How quickly are lost access badges replaced?"},
		{"payroll-schedule", "Payroll", "25th of each month", "Payroll is deposited on the 25th of each month.", "When is payroll deposited?"},
		{"parental-leave", "Parental Leave", "sixteen weeks", "Parental leave provides sixteen weeks of fully paid time off.", "How many weeks of paid time off does parental leave provide?"},
		{"gym-stipend", "Wellness", "50 dollars monthly", "The wellness gym stipend reimburses up to 50 dollars monthly.", "How much does the wellness gym stipend reimburse?"},
		{"conference-budget", "Conferences", "2000 dollars", "Each engineer has a conference budget of 2000 dollars per year.", "What conference budget does each engineer have?"},
		{"vpn-login", "VPN", "authenticator app", "The corporate VPN requires the authenticator app for every login.", "What does the corporate VPN login require?"},
		{"printer-toner", "Printing", "third floor supply closet", "Printer toner cartridges are stocked in the third floor supply closet.", "Where are printer toner cartridges stocked?"},
		{"fire-drills", "Fire Safety", "east courtyard", "Fire drills happen quarterly and assemble in the east courtyard.", "Where do fire drills assemble?"},
		{"espresso-machine", "Kitchen", "Friday afternoon", "The espresso machine is descaled every Friday afternoon by facilities.", "When is the espresso machine descaled?"},
		{"code-review", "Code Review", "two approving reviews", "Pull requests need two approving reviews before merging.", "How many approving reviews do pull requests need before merging?"},
		{"on-call-stipend", "On-call", "300 dollars", "The on-call engineer receives a weekly stipend of 300 dollars.", "What weekly stipend does the on-call engineer receive?"},
		{"mentorship", "Mentorship", "ninety days", "New hires are paired with a mentorship buddy for their first ninety days.", "How long are new hires paired with a mentorship buddy?"},
		{"international-travel", "Travel", "three weeks ahead", "International flights must be booked through the travel desk three weeks ahead.", "How far ahead must international flights be booked?"},
		{"data-retention", "Retention", "seven years of inactivity", "Customer records are deleted after seven years of inactivity.", "When are customer records deleted?"},
		{"boardroom", "Meeting Rooms", "twenty people", "The boardroom seats twenty people and is reserved through the calendar.", "How many people does the boardroom seat?"},
		{"mailroom", "Mailroom", "four o'clock", "Outgoing packages leave the mailroom daily at four o'clock.", "When do outgoing packages leave the mailroom?"},
		{"password-length", "Passwords", "fourteen characters", "Account passwords must contain at least fourteen characters.", "How many characters must account passwords contain?"},
		{"sabbatical", "Sabbatical", "five years of service", "Staff become eligible for a paid sabbatical after five years of service.", "When do staff become eligible for a paid sabbatical?"},
		{"bicycle-racks", "Bicycles", "loading dock", "Bicycle storage racks are located beside the loading dock.", "Where are bicycle storage racks located?"},
		{"expense-deadline", "Expense Reports", "thirty days", "Expense reports must be submitted within thirty days of purchase.", "When must expense reports be submitted?"},
		{"holiday-party", "Holiday Party", "riverside hall", "The holiday party takes place at the riverside hall in December.", "Where does the holiday party take place?"},
	}
	c := &Corpus{Entries: make([]HandbookEntry, len(raw))}
	for i, r := range raw {
		c.Entries[i] = HandbookEntry{
			ID:       r.id,
			Title:    r.title,
			Content:  r.sentence + " " + filler,
			Question: r.question,
			Fact:     r.fact,
		}
	}
	return c
}

// DocumentInputs converts the corpus for ingestion.
func (c *Corpus) DocumentInputs() []*models.DocumentInput {
	out := make([]*models.DocumentInput, len(c.Entries))
	for i, e := range c.Entries {
		out[i] = &models.DocumentInput{ID: e.ID, Title: e.Title, Content: e.Content}
	}
	return out
}

// factSentence returns the sentence of e that states its fact.
func (e HandbookEntry) factSentence() string {
	return strings.TrimSpace(strings.TrimSuffix(e.Content, filler))
}
