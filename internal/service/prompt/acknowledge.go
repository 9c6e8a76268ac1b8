package prompt

import (
	"strings"
	"unicode/utf8"
)

const shortMessageReply = "I'm here to help with career advice. What would you like to know more about?"

var acknowledgments = map[string]string{
	"ok":        "Is there anything specific you'd like to know more about?",
	"okay":      "Is there anything specific you'd like to know more about?",
	"thanks":    "You're welcome! Anything else you'd like to know?",
	"thank you": "You're welcome! Anything else you'd like to know?",
	"great":     "Glad to help! Do you have any other questions?",
	"good":      "Great! Do you need any more information?",
	"hi":        "Hello! How can I help with your career questions today?",
	"hello":     "Hi there! How can I assist you with your career today?",
	"yes":       "What would you like to know more about specifically?",
	"no":        "Alright. Is there anything else I can help you with instead?",
	"sure":      "Great! What would you like to know more about?",
	"got it":    "Excellent! What else would you like to explore?",
	"bye":       "Take care! Feel free to return if you have more questions.",
	"goodbye":   "Goodbye! Wishing you success in your career endeavors!",
}

// Acknowledge returns a canned reply for greetings, thanks and other messages
// too short to be worth a completion call.
func Acknowledge(message string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(message))
	if reply, ok := acknowledgments[normalized]; ok {
		return reply, true
	}
	if utf8.RuneCountInString(normalized) <= 3 {
		return shortMessageReply, true
	}
	return "", false
}
