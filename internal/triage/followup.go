package triage

// FollowUps proposes clarifying questions for the given confidence. The
// result never exceeds rules.MaxFollowUps entries.
func FollowUps(scores CategoryScores, confidence Confidence, rules *Rules) []string {
	var questions []string
	switch confidence {
	case ConfidenceLow:
		questions = append(questions, rules.LowConfidenceQuestions...)
	case ConfidenceMedium:
		for _, w := range rules.WeakCategoryQuestions {
			if scores[w.Category] == 0 {
				questions = append(questions, w.Question)
			}
		}
	}
	if len(questions) > rules.MaxFollowUps {
		questions = questions[:rules.MaxFollowUps]
	}
	if questions == nil {
		questions = []string{}
	}
	return questions
}
