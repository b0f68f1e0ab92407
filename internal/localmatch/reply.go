package localmatch

import (
	"fmt"
	"strings"

	"secureshield-assistant/internal/models"
)

// NoInfoReply is the answer when neither a keyword nor a document matches.
const NoInfoReply = "I don't have specific information about that. Can you ask something about our insurance services?"

type cannedReply struct {
	keywords []string
	text     string
}

// cannedReplies are checked in order; the first keyword hit wins.
var cannedReplies = []cannedReply{
	{[]string{"hello", "hi", "hey"}, "Hello! How can I help you with our insurance services today?"},
	{[]string{"contact", "reach", "call"}, "You can contact us at (555) 123-4567 or email us at info@secureshield.com."},
	{[]string{"quote", "price", "cost"}, "We offer competitive quotes for all our insurance types. You can request a personalized quote by filling out the form on our website."},
	{[]string{"auto", "car"}, "Our auto insurance provides comprehensive coverage for your vehicle, including liability, collision, and comprehensive options."},
	{[]string{"home", "house", "property"}, "Our home insurance protects your property and belongings against damage, theft, and liability. We offer customizable policies to fit your specific needs."},
	{[]string{"health"}, "Our health insurance plans provide coverage for medical expenses, prescriptions, and preventive care. We offer various plans to suit different needs and budgets."},
	{[]string{"life"}, "Our life insurance policies provide financial protection for your loved ones in case of your passing. We offer term life and whole life options."},
}

// DefaultDocuments seed the matcher when the site content cannot be fetched.
var DefaultDocuments = []models.Document{
	{Text: "SecureShield Insurance offers auto, home, health, and life insurance.", Source: "General"},
	{Text: "Get a quote by filling out our form or contacting an agent.", Source: "Contact"},
	{Text: "Our insurance services are tailored to your unique needs.", Source: "Services"},
}

// Reply composes the local answer for message: a keyword reply if one
// applies, otherwise the best match, otherwise NoInfoReply.
func Reply(message string, matches []Match) string {
	words := map[string]bool{}
	for _, w := range nonWordRe.Split(strings.ToLower(message), -1) {
		if w != "" {
			words[w] = true
			words[strings.TrimSuffix(w, "s")] = true
		}
	}

	for _, r := range cannedReplies {
		for _, kw := range r.keywords {
			if words[kw] {
				return r.text
			}
		}
	}

	if len(matches) > 0 && matches[0].Score > 0 {
		top := matches[0].Document
		return fmt.Sprintf("Based on what I know about %s: %s", top.Source, top.Text)
	}
	return NoInfoReply
}

// Answer searches m and composes the reply in one step.
func (m *Matcher) Answer(message string, k int) string {
	return Reply(message, m.Search(message, k))
}
