package transport

import "fmt"

// EncodeFrame prefixes payload with its message type.
func EncodeFrame(typ MessageType, payload []byte) []byte {
	frame := make([]byte, 1+len(payload))
	frame[0] = byte(typ)
	copy(frame[1:], payload)
	return frame
}

// DecodeFrame splits a frame produced by EncodeFrame. The payload aliases frame.
func DecodeFrame(frame []byte) (MessageType, []byte, error) {
	if len(frame) == 0 {
		return 0, nil, ErrEmptyFrame
	}
	typ := MessageType(frame[0])
	if !typ.Valid() {
		return 0, nil, fmt.Errorf("frame type %d: %w", frame[0], ErrUnknownMessageType)
	}
	return typ, frame[1:], nil
}
