package chat

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/thyroscope/internal/client/models"
)

const (
	Greeting = "👋 Hello! I'm your thyroid health assistant 🤖. I can answer questions about " +
		"thyroid conditions like hyperthyroidism, hypothyroidism, thyroid cancer, nodules, " +
		"and thyroiditis. How can I help you today?"

	UnavailableNotice = "⚠️ The AI service is currently unavailable. Please try again later."
)

// Conversation binds a Client to the transcript of one chat view.
type Conversation struct {
	client     *Client
	transcript *Transcript
	onUpdate   func(models.ChatMessage)
}

type ConversationOption func(*Conversation)

// WithUpdates registers fn to receive the pending message after each change.
func WithUpdates(fn func(models.ChatMessage)) ConversationOption {
	return func(c *Conversation) { c.onUpdate = fn }
}

func NewConversation(client *Client, greeting string, opts ...ConversationOption) *Conversation {
	c := &Conversation{
		client:     client,
		transcript: NewTranscript(greeting),
		onUpdate:   func(models.ChatMessage) {},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Conversation) Transcript() *Transcript {
	return c.transcript
}

// Close ends the view. Fragments still arriving are discarded.
func (c *Conversation) Close() {
	c.transcript.Close()
}

// Submit runs one turn. The user message and an empty pending reply are in
// the transcript before the request is sent. The reply is finalized with the
// received text, or with UnavailableNotice if the turn failed. Rejected
// submissions (ErrEmptyMessage, ErrSendInProgress) leave the transcript
// untouched.
func (c *Conversation) Submit(ctx context.Context, message string) (models.ChatMessage, error) {
	msg, err := c.client.reserve(message)
	if err != nil {
		return models.ChatMessage{}, err
	}

	if !c.transcript.AppendUser(msg) || !c.transcript.BeginPending() {
		c.client.release()
		return models.ChatMessage{}, ErrTranscriptClosed
	}
	c.update("")

	stream, err := c.client.open(ctx, msg)
	if err != nil {
		return c.fail(err)
	}

	var text strings.Builder
	for frag, err := range stream.Fragments() {
		if err != nil {
			return c.fail(err)
		}
		if !c.transcript.AppendPending(frag) {
			return models.ChatMessage{}, ErrTranscriptClosed
		}
		text.WriteString(frag)
		c.update(text.String())
	}

	reply := models.ChatMessage{Sender: models.SenderAssistant, Text: text.String()}
	if !c.transcript.Finalize(reply.Text) {
		return models.ChatMessage{}, ErrTranscriptClosed
	}
	c.onUpdate(reply)
	return reply, nil
}

func (c *Conversation) fail(err error) (models.ChatMessage, error) {
	reply := models.ChatMessage{Sender: models.SenderAssistant, Text: UnavailableNotice}
	if c.transcript.Finalize(reply.Text) {
		c.onUpdate(reply)
	}
	return reply, err
}

func (c *Conversation) update(text string) {
	if c.transcript.Closed() {
		return
	}
	c.onUpdate(models.ChatMessage{Sender: models.SenderAssistant, Text: text})
}
