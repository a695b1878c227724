package prompt

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestInferModeExplicitWins(t *testing.T) {
	t.Parallel()

	if got := InferMode("hint", "please generate a problem"); got != ModeHint {
		t.Errorf("mode = %q, want hint", got)
	}
	if got := InferMode("problem_discussion", "anything"); got != ModeProblemDiscussion {
		t.Errorf("mode = %q, want problem_discussion", got)
	}
}

func TestInferModeFromMessage(t *testing.T) {
	t.Parallel()

	cases := []struct {
		message string
		want    Mode
	}{
		{"Generate a new array problem", ModeGenerate},
		{"could you create a problem about trees", ModeGenerate},
		{"give me a hint", ModeHint},
		{"please review my code", ModeReview},
		{"show me the solution", ModeSolution},
		{"what is a hash map?", ModeDefault},
		{"", ModeDefault},
	}
	for _, tc := range cases {
		if got := InferMode("", tc.message); got != tc.want {
			t.Errorf("InferMode(%q) = %q, want %q", tc.message, got, tc.want)
		}
	}
}

func TestInferModeInvalidExplicitFallsThrough(t *testing.T) {
	t.Parallel()

	if got := InferMode("bogus", "give me a hint"); got != ModeHint {
		t.Errorf("mode = %q, want hint inferred from message", got)
	}
}

func TestFormatDeterministic(t *testing.T) {
	t.Parallel()

	in := Input{
		ProblemTitle:       "Two Sum",
		ProblemDescription: "Find two numbers.",
		ProblemDifficulty:  "Easy",
		ProblemCategory:    "Arrays",
		UserCode:           "def two_sum(): pass",
		ChatHistory:        "user: hello",
	}
	sys1, user1 := Format(ModeHint, "help", in)
	sys2, user2 := Format(ModeHint, "help", in)
	if sys1 != sys2 || user1 != user2 {
		t.Error("Format must be deterministic for identical input")
	}
}

func TestFormatGenerateHasJSONSchema(t *testing.T) {
	t.Parallel()

	system, user := Format(ModeGenerate, "make me a problem", Input{})
	if !strings.Contains(system, "Return ONLY a valid JSON object") {
		t.Error("generate system prompt missing JSON instruction")
	}
	if user != "make me a problem" {
		t.Errorf("user = %q", user)
	}
}

func TestFormatContextSection(t *testing.T) {
	t.Parallel()

	system, _ := Format(ModeHint, "help", Input{
		ProblemTitle:      "Two Sum",
		ProblemDifficulty: "Easy",
		ProblemCategory:   "Arrays",
		UserPseudoCode:    "loop over nums",
	})
	if !strings.Contains(system, `"Two Sum" (Easy, Arrays)`) {
		t.Errorf("system missing problem context: %q", system)
	}
	if !strings.Contains(system, "loop over nums") {
		t.Error("system missing pseudocode")
	}
	if !strings.Contains(system, "Student code: No code written yet") {
		t.Error("system missing empty-code placeholder")
	}
}

func TestDescribeDiagramText(t *testing.T) {
	t.Parallel()

	payload := base64.StdEncoding.EncodeToString([]byte("A -> B -> C"))
	got := DescribeDiagram("data:text/plain;base64," + payload)
	if !strings.Contains(got, "A -> B -> C") {
		t.Errorf("text diagram not inlined: %q", got)
	}
}

func TestDescribeDiagramSVG(t *testing.T) {
	t.Parallel()

	payload := base64.StdEncoding.EncodeToString([]byte("<svg><rect/></svg>"))
	got := DescribeDiagram("data:image/svg+xml;base64," + payload)
	if !strings.Contains(got, "<svg><rect/></svg>") {
		t.Errorf("svg diagram not inlined: %q", got)
	}
}

func TestDescribeDiagramRaster(t *testing.T) {
	t.Parallel()

	got := DescribeDiagram("data:image/png;base64,aWdub3JlZA==")
	if strings.Contains(got, "aWdub3JlZA") {
		t.Error("raster payload must not be inlined")
	}
	if !strings.Contains(got, "visual diagram exists") {
		t.Errorf("unexpected raster description: %q", got)
	}
}

func TestDescribeDiagramMalformed(t *testing.T) {
	t.Parallel()

	got := DescribeDiagram("not a data uri")
	if !strings.Contains(got, "could not be read") {
		t.Errorf("unexpected description: %q", got)
	}
}

func TestFormatSVGDefaultsProblem(t *testing.T) {
	t.Parallel()

	_, user := FormatSVG("ctx", "draw a tree", "")
	if !strings.Contains(user, "Not specified") {
		t.Errorf("empty problem should render as Not specified: %q", user)
	}
}
