package scraper

import "secureshield-assistant/internal/models"

// SampleDocuments is the built-in SecureShield content served when no
// scrape has been saved yet.
func SampleDocuments() []models.Document {
	return []models.Document{
		{Text: "SecureShield Insurance offers comprehensive auto insurance coverage to protect you and your vehicle on the road.", Source: "Auto Insurance"},
		{Text: "Our home insurance policies cover your property, belongings, and provide liability protection.", Source: "Home Insurance"},
		{Text: "SecureShield health insurance plans include coverage for doctor visits, hospital stays, and prescription medications.", Source: "Health Insurance"},
		{Text: "Life insurance from SecureShield provides financial security for your loved ones in the event of your passing.", Source: "Life Insurance"},
		{Text: "Get a personalized insurance quote online or by calling our customer service at (555) 123-4567.", Source: "Quotes"},
		{Text: "Our team of experienced insurance agents is available to help you find the right coverage for your needs.", Source: "Agents"},
		{Text: "SecureShield Insurance has been providing reliable coverage to customers for over 25 years.", Source: "About Us"},
		{Text: "Contact us at info@secureshield.com or call (555) 123-4567 for assistance with your insurance needs.", Source: "Contact"},
		{Text: "Our claims process is simple and efficient, allowing you to get back to normal as quickly as possible.", Source: "Claims"},
		{Text: "SecureShield offers discounts for bundling multiple insurance policies together.", Source: "Discounts"},
		{Text: "We provide 24/7 customer support for all your insurance questions and concerns.", Source: "Support"},
		{Text: "SecureShield Insurance is committed to providing exceptional service and comprehensive coverage at competitive rates.", Source: "Mission"},
	}
}
