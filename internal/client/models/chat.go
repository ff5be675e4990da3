package models

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// ChatMessage is one entry of a chat transcript.
type ChatMessage struct {
	Sender Sender
	Text   string
}
