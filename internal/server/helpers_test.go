package server

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/charmbracelet/log"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

// drainSink pulls every queued frame off a session sink and decodes the
// envelopes, without blocking.
func drainSink(t *testing.T, sink chan []byte) []Message {
	t.Helper()

	var msgs []Message
	for {
		select {
		case frame, ok := <-sink:
			if !ok {
				return msgs
			}
			var msg Message
			if err := json.Unmarshal(frame, &msg); err != nil {
				t.Fatalf("undecodable frame %q: %v", frame, err)
			}
			msgs = append(msgs, msg)
		default:
			return msgs
		}
	}
}

// messageTypes projects drained messages down to their type tags
func messageTypes(msgs []Message) []MessageType {
	types := make([]MessageType, len(msgs))
	for i, msg := range msgs {
		types[i] = msg.Type
	}
	return types
}

// decodePayload unmarshals one message's payload into a typed struct
func decodePayload[T any](t *testing.T, msg Message) T {
	t.Helper()

	var payload T
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		t.Fatalf("undecodable %s payload: %v", msg.Type, err)
	}
	return payload
}

// findMessage returns the first message of the given type, failing the
// test when none is present.
func findMessage(t *testing.T, msgs []Message, msgType MessageType) Message {
	t.Helper()

	for _, msg := range msgs {
		if msg.Type == msgType {
			return msg
		}
	}
	t.Fatalf("no %s message in %v", msgType, messageTypes(msgs))
	return Message{}
}

func hasMessage(msgs []Message, msgType MessageType) bool {
	for _, msg := range msgs {
		if msg.Type == msgType {
			return true
		}
	}
	return false
}

func mustMessage(t *testing.T, msgType MessageType, payload any) *Message {
	t.Helper()

	msg, err := NewMessage(msgType, payload)
	if err != nil {
		t.Fatalf("building %s message: %v", msgType, err)
	}
	return msg
}
