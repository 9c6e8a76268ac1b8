package prompt

import (
	"fmt"

	"careerbot/internal/models"
)

const (
	genericStructuredSystem = "You are a helpful AI career advisor chatbot that provides brief, structured responses."
	genericContext          = "careers and professional development"

	careerNamesSystem   = "You provide only career title names without descriptions or explanations."
	careerNamesTemplate = "List only 3-4 career titles that match the interest in '%s'. No descriptions, just the names separated by commas."

	conversationalSystemTemplate = `You are a helpful, friendly career advisor chatbot. You specialize in %s.
Respond naturally to the user's questions and comments about career advice.
Keep your responses conversational, helpful, and concise (under 150 words).
Avoid using structured formats unless specifically asked for structured information.`
)

type featurePrompt struct {
	system    string
	template  string
	context   string
	maxTokens int
}

var featurePrompts = map[models.Feature]featurePrompt{
	models.FeatureCareerPaths: {
		system: "You are a career advisor that provides structured career advice. Always follow the exact format requested.",
		template: `Provide career advice for someone interested in '%s'. Format your response as follows:
- Top 5 Recommended Careers: List 5 careers with one sentence description for each
- Key Skills Needed: List 4-5 essential skills for these careers
- Education Requirements: Brief overview (1-2 sentences)
- Quick Starting Tips: 2-3 practical steps to get started

Keep entire response under 250 words and be specific.`,
		context:   "career paths and suggestions",
		maxTokens: 350,
	},
	models.FeatureResumeFeedback: {
		system: "You are a resume reviewer providing structured, concise feedback. Always follow the exact format requested.",
		template: `Analyze this resume concisely:
%s

Provide feedback in EXACTLY this format:
1. Strengths (3 bullet points, one sentence each)
2. Areas to Improve (3 bullet points, one sentence each)
3. ATS Score: X/10
4. One sentence final recommendation

Keep the entire response under 250 words and be specific.`,
		context:   "resume and CV feedback",
		maxTokens: 400,
	},
	models.FeatureMarketInsights: {
		system: "You are a job market analyst providing structured insights. Always follow the exact format requested.",
		template: `Provide current job market insights about '%s' in this exact format:
1. Current Demand: Brief 1-sentence overview
2. Salary Range: Specific numbers with brief context
3. Growth Outlook: Short 1-sentence prediction
4. Key Skills: List only 3-4 most important skills
5. Quick Tip: One practical piece of advice

Keep entire response under 150 words.`,
		context:   "job market insights and trends",
		maxTokens: 250,
	},
	models.FeatureCollegeAdvice: {
		system: "You are a college advisor giving structured guidance on majors and careers. Always follow the exact format requested.",
		template: `For the major '%s', provide career guidance in this exact format:
1. Top 3 Career Paths: Just list names with one-line descriptions
2. Required Skills: Only list 3-4 most essential skills
3. Entry Requirements: Brief 1-sentence overview
4. Quick Advice: One practical tip for students

Keep the entire response under 150 words.`,
		context:   "college majors and education paths",
		maxTokens: 250,
	},
	models.FeatureInterviewTips: {
		system: "You are an interview coach providing structured preparation tips. Always follow the exact format requested.",
		template: `Provide interview preparation tips for '%s' role in this exact format:
1. Key Skills to Highlight: List only 3-4 critical skills
2. Common Questions: List 3 specific questions
3. Preparation Strategy: One specific action item
4. Quick Tip: One sentence of practical advice

Keep entire response under 150 words and be specific to the role.`,
		context:   "interview preparation and techniques",
		maxTokens: 250,
	},
}

func conversationalSystem(feature models.Feature) string {
	ctx := genericContext
	if fp, ok := featurePrompts[feature]; ok {
		ctx = fp.context
	}
	return fmt.Sprintf(conversationalSystemTemplate, ctx)
}
