package domain

// Question is immutable trivia content
type Question struct {
	ID          int    `json:"id"`
	Prompt      string `json:"question"`
	Answer      string `json:"answer"`
	Explanation string `json:"explanation"`
}

// QuestionView is what players see while answering
type QuestionView struct {
	ID     int    `json:"id"`
	Prompt string `json:"question"`
}

// View hides the answer and explanation
func (q *Question) View() QuestionView {
	return QuestionView{ID: q.ID, Prompt: q.Prompt}
}
