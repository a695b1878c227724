// Package domain contains core domain types for the CodeJitsu application.
package domain

import "fmt"

// Difficulty is the difficulty rating of a Question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Valid reports whether d is one of the known difficulty levels.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Categories lists the problem categories the tutor knows about.
// "All" is a browser filter, not a real category.
var Categories = []string{"All", "Arrays", "Stack", "Trees", "Linked Lists", "Dynamic Programming", "Graphs", "Strings"}

// Example is a worked input/output pair attached to a Question.
type Example struct {
	Input       string `json:"input"`
	Output      string `json:"output"`
	Explanation string `json:"explanation,omitempty"`
}

// Question is a structured coding-exercise description. Questions are
// immutable once created; switching the active question replaces it
// wholesale, there is no merging.
type Question struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	Difficulty  Difficulty `json:"difficulty"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	Examples    []Example  `json:"examples"`
	Constraints []string   `json:"constraints"`
	Starter     string     `json:"starter"`
	Solution    string     `json:"solution,omitempty"`
	Hints       []string   `json:"hints,omitempty"`
}

// Validate checks that a question parsed from model output is structurally
// usable. It does not check algorithmic correctness.
func (q *Question) Validate() error {
	if q.Title == "" {
		return fmt.Errorf("question has no title")
	}
	if !q.Difficulty.Valid() {
		return fmt.Errorf("question has invalid difficulty %q", q.Difficulty)
	}
	if q.Description == "" {
		return fmt.Errorf("question has no description")
	}
	if q.Starter == "" {
		return fmt.Errorf("question has no starter code")
	}
	return nil
}
