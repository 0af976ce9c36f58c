package mock

import "context"

// Sender records messages. ErrFor, when set, can fail individual messages.
type Sender struct {
	Messages []string
	Err      error
	ErrFor   func(text string) error
}

func (s *Sender) Name() string {
	return "mock"
}

func (s *Sender) Send(ctx context.Context, text string) error {
	_ = ctx
	if s.Err != nil {
		return s.Err
	}
	if s.ErrFor != nil {
		if err := s.ErrFor(text); err != nil {
			return err
		}
	}
	s.Messages = append(s.Messages, text)
	return nil
}
