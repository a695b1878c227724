package prompt

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DescribeDiagram turns a workspace diagram data URI into natural language
// the model can use. Plain-text diagrams are inlined verbatim and SVG
// markup is decoded and inlined; raster images are only described as
// existing, since their pixel content cannot be interpreted.
func DescribeDiagram(dataURI string) string {
	mime, payload, ok := splitDataURI(dataURI)
	if !ok {
		return "a diagram exists but could not be read"
	}
	switch {
	case mime == "text/plain":
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return "a text diagram exists but could not be decoded"
		}
		return "a text diagram:\n" + string(decoded)
	case mime == "image/svg+xml":
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return "an SVG diagram exists but could not be decoded"
		}
		return "an SVG diagram:\n" + string(decoded)
	case strings.HasPrefix(mime, "image/"):
		return "a visual diagram exists (drawn by the student; pixel content not available)"
	default:
		return "a diagram exists but could not be read"
	}
}

func splitDataURI(uri string) (mime, payload string, ok bool) {
	rest, found := strings.CutPrefix(uri, "data:")
	if !found {
		return "", "", false
	}
	meta, payload, found := strings.Cut(rest, ",")
	if !found {
		return "", "", false
	}
	mime = strings.TrimSuffix(meta, ";base64")
	return mime, payload, true
}

// DiagramInput carries the context embedded in a diagram-generation prompt.
type DiagramInput struct {
	ProblemTitle        string
	ProblemDescription  string
	ProblemDifficulty   string
	Code                string
	PseudoCode          string
	ExistingDiagram     string
	ConversationHistory string
}

const diagramSystemPrompt = `You are an expert educational diagram creator. Your job is to create clear, simple SVG diagrams that help students understand coding algorithms and data structures.

**CRITICAL RULES:**
1. You MUST create an SVG diagram - never refuse or explain why you can't
2. Always wrap SVG in ` + "```svg" + ` code blocks
3. Use viewBox="0 0 400 300" for consistency
4. Use educational colors: #2563eb (blue), #dc2626 (red), #16a34a (green), #f59e0b (yellow), #374151 (gray)
5. Include clear labels and step-by-step visual explanations
6. Make diagrams simple but informative

**Common Algorithm Patterns:**
- **Arrays**: Show elements in boxes with indices
- **Loops**: Show iteration with arrows and step counters
- **Comparisons**: Use different colors for true/false conditions
- **Searching**: Highlight current position and target
- **Sorting**: Show before/after states with arrows
- **Recursion**: Show function calls as nested boxes

**Style Guidelines:**
- Font: Arial, 12-14px
- Clear spacing between elements
- Use arrows to show flow/direction
- Color-code different states or conditions
- Include a title at the top

Create a diagram that visualizes the algorithm or concept being discussed.`

// FormatDiagram builds the prompt pair for the full diagram gateway.
func FormatDiagram(in DiagramInput) (system, user string) {
	var b strings.Builder
	fmt.Fprintf(&b, "**Problem:** %s\n", in.ProblemTitle)
	fmt.Fprintf(&b, "**Description:** %s\n", in.ProblemDescription)
	fmt.Fprintf(&b, "**Difficulty:** %s\n", in.ProblemDifficulty)
	b.WriteString("\n**Current Student Work:**\n")
	if in.PseudoCode != "" {
		fmt.Fprintf(&b, "**Pseudocode:**\n%s\n", in.PseudoCode)
	}
	if in.Code != "" {
		fmt.Fprintf(&b, "**Code:**\n%s\n", in.Code)
	}
	if in.ExistingDiagram != "" {
		fmt.Fprintf(&b, "**Existing diagram:** %s\n", DescribeDiagram(in.ExistingDiagram))
	}
	b.WriteString("\n**Conversation Context:**\n")
	if in.ConversationHistory != "" {
		b.WriteString(in.ConversationHistory)
	} else {
		b.WriteString("No conversation history available")
	}
	b.WriteString(`

**Instructions:**
Based on the problem and conversation above, create an SVG diagram that:
1. Shows the algorithm visually
2. Helps the student understand the concept
3. Includes step-by-step visualization if applicable
4. Uses colors to distinguish different states/conditions

Generate the SVG diagram now:`)
	return diagramSystemPrompt, b.String()
}

const svgSystemPrompt = `You are an expert at creating educational SVG diagrams for coding problems and algorithms.

CRITICAL: You MUST create an SVG diagram. Do not explain how to create one - CREATE the actual SVG code.

**SVG Generation Rules:**
- Always wrap SVG code in ` + "```svg" + ` code blocks
- Use viewBox="0 0 400 300" for consistent sizing
- Colors: #2563eb (blue), #dc2626 (red), #16a34a (green), #374151 (gray), #f59e0b (yellow)
- Font: Arial, sans-serif, 12-14px
- Clear labels and simple shapes
- Make it educational and easy to understand

Now create an SVG diagram based on the user's request.`

// FormatSVG builds the prompt pair for the narrower SVG gateway.
func FormatSVG(conversationContext, diagramRequest, currentProblem string) (system, user string) {
	if currentProblem == "" {
		currentProblem = "Not specified"
	}
	user = fmt.Sprintf(`Based on this conversation context:
%s

Current problem: %s

User is asking for: %s

Please create an SVG diagram that visualizes this algorithm or concept. Make it educational and clear.`,
		conversationContext, currentProblem, diagramRequest)
	return svgSystemPrompt, user
}
