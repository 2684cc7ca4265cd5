package models

// Chat message states.
const (
	ChatStatusThinking = "thinking"
	ChatStatusComplete = "complete"
)

// ChatMessage is one transient question/answer exchange in a session's
// chat log. Created in the thinking state with an empty answer; either
// completed with the final answer or removed from the log when the
// question-answering call fails.
type ChatMessage struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Status   string `json:"status"`
}
