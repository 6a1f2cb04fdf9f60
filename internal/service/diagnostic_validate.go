package service

import (
	"fmt"
	"strings"

	"github.com/openlearn/adaptive-api/internal/domain/model"
)

// validateDiagnostic checks the structural soundness of a generated item set
// and repairs inconsistent correct-answer flags where possible. It returns
// the (possibly repaired) items plus a warning string describing every
// violation found; an empty warning means the set is sound.
//
// Items are never dropped. A caller stores the warning alongside the data so
// a human can inspect the output instead of losing it.
func validateDiagnostic(items []model.DiagnosticItem, minItems int) ([]model.DiagnosticItem, string) {
	var problems []string
	if len(items) < minItems {
		problems = append(problems,
			fmt.Sprintf("expected at least %d items, got %d", minItems, len(items)))
	}

	for i := range items {
		item := &items[i]
		label := item.ID
		if label == "" {
			label = fmt.Sprintf("item[%d]", i)
		}

		if item.ID == "" {
			problems = append(problems, label+": missing id")
		}
		if strings.TrimSpace(item.Question) == "" {
			problems = append(problems, label+": missing question text")
		}
		if strings.TrimSpace(item.Skill) == "" {
			problems = append(problems, label+": missing skill")
		}
		if len(item.Options) < 2 {
			problems = append(problems,
				fmt.Sprintf("%s: %d options, need at least 2", label, len(item.Options)))
			continue
		}

		if item.CorrectOptionID() == "" {
			repairCorrectFlags(item)
		}
		if item.CorrectOptionID() == "" {
			problems = append(problems,
				label+": no single option flagged correct")
		}
	}

	return items, strings.Join(problems, "; ")
}

// repairCorrectFlags re-derives the isCorrect flags from the item's
// correctAnswer field when the flags came back inconsistent (zero or more
// than one set). It does nothing unless correctAnswer names a real option.
func repairCorrectFlags(item *model.DiagnosticItem) {
	if item.CorrectAnswer == "" {
		return
	}
	found := false
	for i := range item.Options {
		if item.Options[i].ID == item.CorrectAnswer {
			found = true
			break
		}
	}
	if !found {
		return
	}
	for i := range item.Options {
		item.Options[i].IsCorrect = item.Options[i].ID == item.CorrectAnswer
	}
}
