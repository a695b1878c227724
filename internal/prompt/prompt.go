// Package prompt builds mode-specific system/user prompt strings for the
// LLM gateways. Formatting is pure and deterministic: identical inputs
// always produce identical prompts, with context sections in a fixed order.
package prompt

import (
	"fmt"
	"strings"
)

// Mode selects the instruction template for a tutor request.
type Mode string

const (
	ModeGenerate          Mode = "generate"
	ModeProblemDiscussion Mode = "problem_discussion"
	ModeHint              Mode = "hint"
	ModeReview            Mode = "review"
	ModeSolution          Mode = "solution"
	ModeDefault           Mode = "default"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeGenerate, ModeProblemDiscussion, ModeHint, ModeReview, ModeSolution, ModeDefault:
		return true
	}
	return false
}

// InferMode resolves the request mode: an explicit valid mode wins,
// otherwise it is inferred from substrings of the user message.
func InferMode(explicit, message string) Mode {
	if m := Mode(explicit); m.Valid() {
		return m
	}
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "generate") || strings.Contains(lower, "create a problem"):
		return ModeGenerate
	case strings.Contains(lower, "hint"):
		return ModeHint
	case strings.Contains(lower, "review"):
		return ModeReview
	case strings.Contains(lower, "solution"):
		return ModeSolution
	default:
		return ModeDefault
	}
}

// Input carries all context a tutor prompt may embed. Empty fields are
// simply omitted from the rendered context.
type Input struct {
	ProblemTitle       string
	ProblemDescription string
	ProblemDifficulty  string
	ProblemCategory    string
	UserCode           string
	UserPseudoCode     string
	UserDiagram        string // data URI, summarized before embedding
	ChatHistory        string
	Context            string // free-form conversation context
}

const generateSystemPrompt = `You are a coding interview tutor. Generate a coding problem based on the user's request.

IMPORTANT: Return ONLY a valid JSON object with no additional text or markdown formatting.

Use this exact structure:
{
  "title": "Problem Title",
  "difficulty": "Easy" | "Medium" | "Hard",
  "category": "Arrays" | "Stack" | "Trees" | "Linked Lists" | "Dynamic Programming" | "Graphs" | "Strings",
  "description": "Problem description",
  "examples": [
    {
      "input": "example input",
      "output": "example output",
      "explanation": "explanation of the example"
    }
  ],
  "constraints": ["constraint 1", "constraint 2"],
  "starter": "Python function starter code with docstring",
  "hints": ["hint 1", "hint 2", "hint 3"]
}`

const discussionSystemPrompt = `You are a concise coding tutor helping users quickly find coding problems to practice.

IMPORTANT RULES:
1. Be extremely concise - maximum 2-3 short sentences
2. Ask 1-2 specific questions to understand what they want to practice
3. After 1-2 exchanges, suggest a SPECIFIC problem with title, difficulty, and brief description
4. Always end your problem suggestion with: "Should I create this problem for you?"
5. NO long explanations - get to the point quickly`

const hintSystemPrompt = `You are a coding tutor. The user is working on a coding problem and needs guidance.
Provide helpful hints and ask guiding questions without giving away the complete solution.
Be encouraging and educational. If they're stuck, guide them towards the right approach gradually.`

const reviewSystemPrompt = `You are a coding tutor reviewing the user's code.
Provide constructive feedback on their solution. Point out:
- Correctness issues
- Time/space complexity
- Code quality and style
- Alternative approaches

Be encouraging and educational. Don't just say what's wrong, explain why and how to improve.`

const solutionSystemPrompt = `You are a coding tutor. The user has requested the solution to their problem.
Provide a complete, well-explained solution with:
- Clean, readable code
- Step-by-step explanation
- Time and space complexity analysis
- Why this approach works`

const defaultSystemPrompt = `You are a helpful coding tutor. Assist the user with their coding questions while being encouraging and educational.`

// Format builds the system prompt and user message for a tutor request.
func Format(mode Mode, message string, in Input) (system, user string) {
	switch mode {
	case ModeGenerate:
		system = generateSystemPrompt
	case ModeProblemDiscussion:
		system = discussionSystemPrompt + contextSection(in)
	case ModeHint:
		system = hintSystemPrompt + contextSection(in)
	case ModeReview:
		system = reviewSystemPrompt + contextSection(in)
	case ModeSolution:
		system = solutionSystemPrompt + contextSection(in)
	default:
		system = defaultSystemPrompt
	}
	return system, message
}

// contextSection renders all available context in a fixed order: problem,
// student work, diagram summary, chat history, free-form context.
func contextSection(in Input) string {
	var b strings.Builder

	b.WriteString("\n\nCurrent problem context: ")
	if in.ProblemTitle == "" {
		b.WriteString("No context provided")
	} else {
		fmt.Fprintf(&b, "%q (%s, %s)\n%s", in.ProblemTitle, in.ProblemDifficulty, in.ProblemCategory, in.ProblemDescription)
	}

	if in.UserPseudoCode != "" {
		b.WriteString("\n\nStudent pseudocode:\n")
		b.WriteString(in.UserPseudoCode)
	}
	if in.UserCode != "" {
		b.WriteString("\n\nStudent code:\n")
		b.WriteString(in.UserCode)
	} else {
		b.WriteString("\n\nStudent code: No code written yet")
	}
	if in.UserDiagram != "" {
		b.WriteString("\n\nStudent diagram: ")
		b.WriteString(DescribeDiagram(in.UserDiagram))
	}
	if in.ChatHistory != "" {
		b.WriteString("\n\nRecent conversation:\n")
		b.WriteString(in.ChatHistory)
	}
	if in.Context != "" {
		b.WriteString("\n\nAdditional context:\n")
		b.WriteString(in.Context)
	}
	return b.String()
}
