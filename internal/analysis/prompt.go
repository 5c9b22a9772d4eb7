package analysis

import "strings"

const connectionPrompt = `Test connection. Respond with "Connection successful".`

const promptHeader = `Analyze the following resume and provide structured feedback. Return a JSON response with the following structure:
{
  "strengths": ["strength1", "strength2", ...],
  "weaknesses": ["weakness1", "weakness2", ...],
  "missingSections": ["missing1", "missing2", ...],
  "suggestions": ["suggestion1", "suggestion2", ...],
  "overallScore": 85,
  "summary": "A brief summary of the resume analysis"
}

Please analyze these key areas:
1. Overall structure and formatting
2. Professional experience relevance
3. Skills and qualifications
4. Education background
5. Contact information completeness
6. Achievement quantification
7. Keyword optimization
8. Grammar and clarity

Resume Text:
`

const promptFooter = `

Provide specific, actionable feedback and rate the resume on a scale of 1-100.`

// BuildPrompt embeds the resume text in the analysis instructions.
func BuildPrompt(resumeText string) string {
	var b strings.Builder
	b.Grow(len(promptHeader) + len(resumeText) + len(promptFooter))
	b.WriteString(promptHeader)
	b.WriteString(resumeText)
	b.WriteString(promptFooter)
	return b.String()
}
