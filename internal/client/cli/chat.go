package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/thyroscope/internal/client/chat"
	"github.com/dmitrijs2005/thyroscope/internal/client/guard"
	"github.com/dmitrijs2005/thyroscope/internal/client/models"
)

const leaveChat = "/back"

// replyPrinter writes a pending reply incrementally. When the final text is
// not a continuation of what was printed (a failure notice), it starts a new
// line.
type replyPrinter struct {
	out     io.Writer
	started bool
	printed string
}

func (p *replyPrinter) reset() {
	p.started = false
	p.printed = ""
}

func (p *replyPrinter) update(m models.ChatMessage) {
	if !p.started {
		fmt.Fprintf(p.out, "%s> ", models.SenderAssistant)
		p.started = true
	}
	switch {
	case strings.HasPrefix(m.Text, p.printed):
		fmt.Fprint(p.out, m.Text[len(p.printed):])
	default:
		fmt.Fprintf(p.out, "\n%s", m.Text)
	}
	p.printed = m.Text
}

// Chat opens the chat view and runs turns until the user types /back or the
// input ends. The transcript is discarded on exit.
func (a *App) Chat(ctx context.Context) error {
	if !a.open(ctx, guard.ViewChat) {
		return nil
	}

	printer := &replyPrinter{out: a.out}
	conv := chat.NewConversation(a.chat, chat.Greeting, chat.WithUpdates(printer.update))
	defer conv.Close()

	for _, m := range conv.Transcript().Messages() {
		fmt.Fprintf(a.out, "%s> %s\n", m.Sender, m.Text)
	}
	fmt.Fprintf(a.out, "(type %s to leave)\n", leaveChat)

	for {
		line, err := getSimpleText(a.reader, "you", a.out)
		if err != nil {
			return nil
		}
		if line == leaveChat {
			a.Navigate(guard.ViewDashboard)
			return nil
		}
		if a.View() != guard.ViewChat {
			return nil
		}

		printer.reset()
		_, err = conv.Submit(ctx, line)
		if printer.started {
			fmt.Fprintln(a.out)
		}

		switch {
		case errors.Is(err, chat.ErrEmptyMessage):
			fmt.Fprintln(a.out, "Please enter a question.")
		case errors.Is(err, chat.ErrSendInProgress):
			fmt.Fprintln(a.out, "Please wait for the current reply.")
		case err != nil:
			a.log.Warn(ctx, "chat turn failed", "error", err)
		}
	}
}
