package domain

const defaultStarter = "# Write your Python code here\n\n"

// Workspace is the combined pseudocode/code/diagram editing state for the
// active question. The session controller is the sole writer; everything
// else sees read-only snapshots.
type Workspace struct {
	PseudoCode string `json:"pseudoCode"`
	PythonCode string `json:"pythonCode"`
	// Diagram is a data URI: image/png (canvas drawing), text/plain;base64
	// (free-text diagram) or image/svg+xml;base64 (hand-authored SVG).
	Diagram string `json:"diagram"`
	// AIGeneratedDiagram holds raw SVG markup returned by the diagram gateway.
	AIGeneratedDiagram string `json:"aiGeneratedDiagram"`
	// ResetCounter increments on every explicit reset so observers can
	// distinguish consecutive resets of the same question.
	ResetCounter int `json:"resetCounter"`
}

// ApplyQuestion resets the workspace to a new question's defaults:
// pseudocode and diagrams are cleared, python code reloads from the
// question's starter text.
func (w *Workspace) ApplyQuestion(q *Question) {
	w.PseudoCode = ""
	w.Diagram = ""
	w.AIGeneratedDiagram = ""
	if q != nil {
		w.PythonCode = q.Starter
	} else {
		w.PythonCode = defaultStarter
	}
}

// Reset performs the same clearing as ApplyQuestion without changing the
// question, and bumps the reset counter.
func (w *Workspace) Reset(q *Question) {
	w.ApplyQuestion(q)
	w.ResetCounter++
}
