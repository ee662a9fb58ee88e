package chat

import "errors"

// ErrNoAskService is returned when a question is submitted without an ask service.
var ErrNoAskService = errors.New("ask service not available")
