// Package codec encodes outbound method calls and decodes inbound frames
// into their discriminated shape (reply or event).
package codec

import (
	"encoding/json"
	"fmt"

	"github.com/lumastream/chat-client/internal/domain"
)

// Frame is a decoded inbound frame. Exactly one of the reply/event halves
// is populated depending on Type.
type Frame struct {
	Type string

	// Reply fields
	ID    int64
	Reply Object

	// Event fields
	Event string
	Data  Object
}

type methodFrame struct {
	Type      string `json:"type"`
	Method    string `json:"method"`
	Arguments []any  `json:"arguments"`
	ID        int64  `json:"id"`
}

// EncodeMethod serializes an outbound method call. Each argument keeps its
// native JSON type.
func EncodeMethod(method string, args []any, id int64) ([]byte, error) {
	if args == nil {
		args = []any{}
	}
	data, err := json.Marshal(methodFrame{
		Type:      domain.FrameMethod,
		Method:    method,
		Arguments: args,
		ID:        id,
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s method: %w", method, err)
	}
	return data, nil
}

// DecodeFrame parses a raw inbound frame. Any missing required field is a
// decode failure reported at the first absent field.
func DecodeFrame(raw []byte) (*Frame, error) {
	obj, err := ParseObject(raw)
	if err != nil {
		return nil, err
	}

	frameType, err := obj.String(domain.FieldType)
	if err != nil {
		return nil, err
	}

	switch frameType {
	case domain.FrameReply:
		id, err := obj.Int(domain.FieldID)
		if err != nil {
			return nil, err
		}
		return &Frame{Type: frameType, ID: id, Reply: obj}, nil

	case domain.FrameEvent:
		event, err := obj.String(domain.FieldEvent)
		if err != nil {
			return nil, err
		}
		data, err := obj.Object(domain.FieldData)
		if err != nil {
			return nil, err
		}
		return &Frame{Type: frameType, Event: event, Data: data}, nil

	default:
		return nil, fmt.Errorf("unknown frame type %q", frameType)
	}
}
