package model

// DiagnosticOption is one answer choice on a generated diagnostic item.
type DiagnosticOption struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// DiagnosticItem is one generated question on a diagnostic assessment.
// CorrectAnswer redundantly names the correct option id; it is the repair
// source when the isCorrect flags come back inconsistent.
type DiagnosticItem struct {
	ID            string             `json:"id"`
	Skill         string             `json:"skill"`
	Question      string             `json:"question"`
	Options       []DiagnosticOption `json:"options"`
	CorrectAnswer string             `json:"correctAnswer,omitempty"`
}

// CorrectOptionID returns the id of the single option flagged correct, or
// "" when zero or more than one option carries the flag.
func (it *DiagnosticItem) CorrectOptionID() string {
	var id string
	count := 0
	for _, opt := range it.Options {
		if opt.IsCorrect {
			id = opt.ID
			count++
		}
	}
	if count != 1 {
		return ""
	}
	return id
}

// DiagnosticArtifact is the durable output of the diagnostic feature. When
// structural validation fails the item set is still stored, annotated with
// ValidationWarning for human inspection, rather than silently dropped.
type DiagnosticArtifact struct {
	ArtifactMeta
	CourseSourcedID   string           `json:"courseSourcedId"`
	QuestionCount     int              `json:"questionCount"`
	Items             []DiagnosticItem `json:"items"`
	ValidationWarning string           `json:"_validationWarning,omitempty"`
}

// DiagnosticAnswer is one student response to a diagnostic item.
type DiagnosticAnswer struct {
	ItemID   string `json:"itemId"`
	OptionID string `json:"optionId"`
}

// SkillScore aggregates a student's diagnostic performance on one skill.
type SkillScore struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// DiagnosticScore is the result of scoring a student's diagnostic answers
// against the stored artifact.
type DiagnosticScore struct {
	CourseSourcedID string                `json:"courseSourcedId"`
	StudentID       string                `json:"studentId"`
	Correct         int                   `json:"correct"`
	Total           int                   `json:"total"`
	Skills          map[string]SkillScore `json:"skills"`
	XPAwarded       int                   `json:"xpAwarded"`
}
