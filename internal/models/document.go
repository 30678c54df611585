package models

// Role tags a chat message with its speaker.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a conversation. Order within a conversation matters:
// earlier messages are prior context.
type Message struct {
	Role    Role
	Content string
}

func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Embedding is a fixed-length vector produced by an embedding model.
type Embedding []float32

// DocumentRow is a persisted (text, embedding) pair.
type DocumentRow struct {
	Text      string
	Embedding Embedding
}

// ScoredResult is a row returned by a similarity query. Score is the dot
// product between the query vector and the stored embedding.
type ScoredResult struct {
	Text  string
	Score float64
}

// Document is a scraped page before chunking.
type Document struct {
	ID       string
	URL      string
	Title    string
	Content  string
	Metadata map[string]interface{}
}

type ProcessedDocument struct {
	Document
	Chunks []string
}
