package agent

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
)

// Conversation owns the transcript across questions. Only completed
// question/answer pairs are carried forward; tool traffic and aborted
// attempts stay out of the history.
type Conversation struct {
	loop    *Loop
	history []anthropic.MessageParam
}

func NewConversation(loop *Loop) *Conversation {
	return &Conversation{loop: loop}
}

// Ask answers one question in the context of the conversation so far.
func (c *Conversation) Ask(ctx context.Context, question string) (Result, error) {
	res, err := c.loop.Run(ctx, c.history, question)
	if err != nil {
		return Result{}, err
	}
	if !res.Aborted {
		c.history = append(c.history,
			anthropic.NewUserMessage(anthropic.NewTextBlock(question)),
			anthropic.NewAssistantMessage(anthropic.NewTextBlock(res.Answer)),
		)
	}
	return res, nil
}

// Reset drops the conversation history.
func (c *Conversation) Reset() {
	c.history = nil
}

// Len reports the number of stored turns.
func (c *Conversation) Len() int { return len(c.history) }
