package session

const (
	TypeSystem   = "system"
	TypeQuestion = "question"
	TypeError    = "error"

	StatusConnected  = "connected"
	StatusProcessing = "processing"
	StatusFinished   = "finished"
)

type SystemMessage struct {
	Type    string `json:"type"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type QuestionMessage struct {
	Type           string `json:"type"`
	Text           string `json:"text"`
	QuestionNumber int    `json:"question_number"`
	TotalQuestions int    `json:"total_questions"`
}

// ErrorMessage carries both warnings (Fatal false) and the terminal error.
type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Fatal   bool   `json:"fatal"`
}

func systemMessage(status, message string) SystemMessage {
	return SystemMessage{Type: TypeSystem, Status: status, Message: message}
}

func questionMessage(text string, number, total int) QuestionMessage {
	return QuestionMessage{Type: TypeQuestion, Text: text, QuestionNumber: number, TotalQuestions: total}
}

func warningMessage(code, message string) ErrorMessage {
	return ErrorMessage{Type: TypeError, Code: code, Message: message}
}

var fatalMessages = map[string]string{
	CodePersistenceFailed: "Your answer could not be saved. The interview has been stopped.",
	CodeAnswerTimeout:     "No answer was received in time. The interview has been stopped.",
	CodeShuttingDown:      "The server is restarting. Please reconnect to continue.",
	CodeUnexpected:        "An unexpected error occurred. The interview has been stopped.",
}

func fatalMessage(code string) ErrorMessage {
	msg, ok := fatalMessages[code]
	if !ok {
		msg = fatalMessages[CodeUnexpected]
	}
	return ErrorMessage{Type: TypeError, Code: code, Message: msg, Fatal: true}
}
