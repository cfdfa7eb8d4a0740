package analysis

func ans(s string) *string { return &s }

func resp(questionID, respondentID, answer string) Response {
	return Response{QuestionID: questionID, RespondentID: respondentID, Answer: ans(answer)}
}
