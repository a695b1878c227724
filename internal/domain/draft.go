package domain

import "time"

// Draft is a persisted per-question workspace snapshot so a student can
// come back to a problem without losing their code.
type Draft struct {
	UserID     string    `json:"userId"`
	QuestionID int       `json:"questionId"`
	PseudoCode string    `json:"pseudoCode"`
	PythonCode string    `json:"pythonCode"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
