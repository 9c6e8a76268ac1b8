// Package format renders raw completion text as escaped HTML fragments.
package format

import (
	"html"
	"regexp"
	"strings"

	"careerbot/internal/models"
)

type section struct {
	title string
	re    *regexp.Regexp
	list  bool
}

var careerSections = []section{
	{title: "Top 5 Recommended Careers:", re: regexp.MustCompile(`(?s)Top 5 Recommended Careers:(.*?)(?:Key Skills Needed:|$)`), list: true},
	{title: "Key Skills Needed:", re: regexp.MustCompile(`(?s)Key Skills Needed:(.*?)(?:Education Requirements:|$)`), list: true},
	{title: "Education Requirements:", re: regexp.MustCompile(`(?s)Education Requirements:(.*?)(?:Quick Starting Tips:|$)`)},
	{title: "Quick Starting Tips:", re: regexp.MustCompile(`(?s)Quick Starting Tips:(.*)$`), list: true},
}

type feedbackSection struct {
	class   string
	heading string
	re      *regexp.Regexp
}

var resumeSections = []feedbackSection{
	{class: "feedback-item positive", heading: "💪 Strengths", re: regexp.MustCompile(`(?is)strengths(.*?)(?:areas to improve|$)`)},
	{class: "feedback-item negative", heading: "🔍 Areas to Improve", re: regexp.MustCompile(`(?is)areas to improve(.*?)(?:ats score|$)`)},
	{class: "feedback-item", heading: "🤖 ATS Score", re: regexp.MustCompile(`(?is)ats score:(.*?\d+\s*/\s*10)`)},
	{class: "feedback-item recommendation", heading: "💡 Recommendation", re: regexp.MustCompile(`(?is)(?:one sentence final recommendation|final recommendation)(.*)$`)},
}

var (
	// spaced dashes separate inline items; hyphenated words stay whole
	itemSplit      = regexp.MustCompile(`(?:\n|•|[ \t]+-[ \t]+)+`)
	trailingNumber = regexp.MustCompile(`\s*\d+\.\s*$`)
	numberedMarker = regexp.MustCompile(`(?m)^([ \t]*)(\d+\.)[ \t]*`)
	// a lone '*' is a bullet, '**' opens bold text
	bulletMarker   = regexp.MustCompile(`(?m)^([ \t]*)(?:[-•]|\*(?:[ \t]|$))[ \t]*`)
	paragraphBreak = regexp.MustCompile(`\n[ \t]*\n`)
)

// Format escapes raw and lays it out for the feature. Text without the
// expected headings falls back to the generic layout.
func Format(raw string, feature models.Feature) string {
	text := html.EscapeString(strings.ReplaceAll(raw, "\r\n", "\n"))

	switch feature {
	case models.FeatureCareerPaths:
		if out, ok := formatCareerPaths(text); ok {
			return out
		}
	case models.FeatureResumeFeedback:
		if out, ok := formatResumeFeedback(text); ok {
			return out
		}
	}
	return formatGeneric(text)
}

func formatCareerPaths(text string) (string, bool) {
	var b strings.Builder
	found := false
	for _, s := range careerSections {
		m := s.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		found = true
		body := trailingNumber.ReplaceAllString(strings.TrimSpace(m[1]), "")
		b.WriteString("<h4>" + s.title + "</h4>")
		if !s.list {
			b.WriteString("<p>" + strings.Trim(body, "-* \t\n") + "</p>")
			continue
		}
		b.WriteString("<ul>")
		for _, item := range listItems(body) {
			b.WriteString("<li>" + item + "</li>")
		}
		b.WriteString("</ul>")
	}
	if !found {
		return "", false
	}
	return `<div class="response-section">` + b.String() + "</div>", true
}

func formatResumeFeedback(text string) (string, bool) {
	var b strings.Builder
	found := false
	for _, s := range resumeSections {
		m := s.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		found = true
		body := strings.TrimSpace(m[1])
		body = trailingNumber.ReplaceAllString(body, "")
		body = strings.TrimSpace(strings.TrimLeft(body, ":*) \t\n"))
		b.WriteString(`<div class="` + s.class + `"><h4>` + s.heading + "</h4><p>")
		b.WriteString(strings.ReplaceAll(body, "\n", "<br>"))
		b.WriteString("</p></div>")
	}
	if !found {
		return "", false
	}
	return `<div class="response-section">` + b.String() + "</div>", true
}

func formatGeneric(text string) string {
	text = numberedMarker.ReplaceAllString(text, "$1<strong>$2</strong> ")
	text = bulletMarker.ReplaceAllString(text, "$1• ")

	var b strings.Builder
	b.WriteString(`<div class="ai-formatted-response">`)
	for _, p := range paragraphBreak.Split(text, -1) {
		if strings.TrimSpace(p) == "" {
			continue
		}
		b.WriteString("<p>" + strings.Join(strings.Split(strings.Trim(p, "\n"), "\n"), "<br>") + "</p>")
	}
	b.WriteString("</div>")
	return b.String()
}

// listItems splits a section body on newlines and bullets, dropping list markers.
func listItems(body string) []string {
	var items []string
	for _, part := range itemSplit.Split(body, -1) {
		item := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(part), "-*"))
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
