package vk

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Long-poll update discriminant codes for the message family.
const (
	updFlagsReplace = 1
	updFlagsSet     = 2
	updFlagsReset   = 3
	updNewMessage   = 4
)

// Accepted payload layout for a new-message update, positions after the code:
// (message_id, mask, sender_id, timestamp, subject, text, attachments).
const newMessageArgCount = 7

// ErrMalformedUpdate reports a message update whose payload is shorter than
// the fixed positional layout.
var ErrMalformedUpdate = errors.New("vk: malformed update payload")

// RawUpdate is one event from the long-poll feed: a discriminant code
// followed by positional arguments of mixed types.
type RawUpdate struct {
	Code int
	Args []any
}

// UnmarshalJSON decodes the wire form of an update, a JSON array whose first
// element is the discriminant code.
func (u *RawUpdate) UnmarshalJSON(data []byte) error {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return fmt.Errorf("vk: decode update: %w", err)
	}
	if len(elems) == 0 {
		return fmt.Errorf("vk: decode update: empty array")
	}

	var code int
	if err := json.Unmarshal(elems[0], &code); err != nil {
		return fmt.Errorf("vk: decode update code: %w", err)
	}

	args := make([]any, 0, len(elems)-1)
	for _, raw := range elems[1:] {
		var v any
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("vk: decode update arg: %w", err)
		}
		args = append(args, v)
	}

	u.Code = code
	u.Args = args
	return nil
}

// InboundMessage is a chat message received from a user, extracted from one
// raw update. It exists only for the duration of a single pipeline run.
type InboundMessage struct {
	UserID int64
	Text   string
}

// ParseUpdate extracts an inbound message from a raw update. Only the
// message-family discriminants are inspected; every other code yields nil.
// For a new-message update the mask argument is decoded and updates carrying
// the platform's own outgoing traffic (OUTBOX set) yield nil. A payload
// shorter than the fixed layout is rejected as malformed.
func ParseUpdate(u RawUpdate) (*InboundMessage, error) {
	switch u.Code {
	case updNewMessage:
	case updFlagsReplace, updFlagsSet, updFlagsReset:
		// Flag bookkeeping for an existing message, nothing to deliver.
		return nil, nil
	default:
		return nil, nil
	}

	if len(u.Args) < newMessageArgCount {
		return nil, fmt.Errorf("%w: code %d with %d args", ErrMalformedUpdate, u.Code, len(u.Args))
	}

	mask, ok := argInt(u.Args[1])
	if !ok || mask < 0 {
		return nil, fmt.Errorf("%w: non-integer mask", ErrMalformedUpdate)
	}
	if DecodeFlags(uint64(mask)).Has(FlagOutbox) {
		return nil, nil
	}

	sender, ok := argInt(u.Args[2])
	if !ok {
		return nil, fmt.Errorf("%w: non-integer sender id", ErrMalformedUpdate)
	}
	text, ok := u.Args[5].(string)
	if !ok {
		return nil, fmt.Errorf("%w: non-string message text", ErrMalformedUpdate)
	}

	return &InboundMessage{UserID: sender, Text: text}, nil
}

// argInt converts a positional argument to an integer, accepting the types
// produced by JSON decoding as well as plain Go integers from tests.
func argInt(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case float64:
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}
