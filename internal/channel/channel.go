// Package channel defines the messaging destination postings are delivered to.
package channel

import "context"

// Sender delivers one rendered message. A nil error means the channel
// accepted the message.
type Sender interface {
	Send(ctx context.Context, text string) error
	Name() string
}
