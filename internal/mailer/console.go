package mailer

import (
	"context"
	"fmt"
	"io"
)

// ConsoleTransport prints messages instead of sending them. Used for dry runs.
type ConsoleTransport struct {
	w io.Writer
}

// NewConsoleTransport creates a transport writing to w.
func NewConsoleTransport(w io.Writer) *ConsoleTransport {
	return &ConsoleTransport{w: w}
}

// Send writes a readable rendition of msg.
func (t *ConsoleTransport) Send(ctx context.Context, msg *Message) error {
	fmt.Fprintln(t.w, "=== EMAIL WOULD BE SENT ===")
	fmt.Fprintf(t.w, "From: %s\nTo: %s\nSubject: %s\n\n%s\n", msg.From, msg.To, msg.Subject, msg.Body)
	if msg.Attachment != nil {
		fmt.Fprintf(t.w, "Attachment: %s (%s, %d bytes)\n",
			msg.Attachment.Filename, msg.Attachment.ContentType, len(msg.Attachment.Data))
	} else {
		fmt.Fprintln(t.w, "Attachment: none")
	}
	_, err := fmt.Fprintln(t.w, "=== END EMAIL ===")
	return err
}

func (t *ConsoleTransport) String() string {
	return "console"
}
