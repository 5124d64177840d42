package model

// ConversationTurn is one question/answer exchange kept in the bounded
// per-user history.
type ConversationTurn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
