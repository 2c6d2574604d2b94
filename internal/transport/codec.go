package transport

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Frame types used on stream transports.
const (
	FrameRequest = "request"
	FrameEvent   = "event"
)

// ErrMalformedFrame is returned for frames that cannot be routed.
var ErrMalformedFrame = errors.New("malformed frame")

type requestFrame struct {
	Type   string `json:"type"`
	Method string `json:"method"`
	Params any    `json:"params"`
}

type eventFrame struct {
	Type      string          `json:"type"`
	Name      string          `json:"name"`
	RequestID string          `json:"requestId,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

// EncodeRequest encodes req as a request frame. A request without an ID gets
// a fresh one, which is returned alongside the frame.
func EncodeRequest(req Request) ([]byte, string, error) {
	data, err := json.Marshal(requestFrame{Type: FrameRequest, Method: req.Method, Params: req.Params})
	if err != nil {
		return nil, "", fmt.Errorf("encode %s request: %w", req.Method, err)
	}
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	data, err = sjson.SetBytes(data, "id", id)
	if err != nil {
		return nil, "", fmt.Errorf("stamp %s request id: %w", req.Method, err)
	}
	return data, id, nil
}

// DecodeRequest is the inverse of EncodeRequest. Params stay raw JSON.
func DecodeRequest(frame []byte) (Request, error) {
	if !gjson.ValidBytes(frame) {
		return Request{}, fmt.Errorf("%w: invalid json", ErrMalformedFrame)
	}
	res := gjson.GetManyBytes(frame, "type", "method", "id", "params")
	if res[0].String() != FrameRequest || res[1].String() == "" {
		return Request{}, fmt.Errorf("%w: not a request", ErrMalformedFrame)
	}
	var params json.RawMessage
	if res[3].Exists() {
		params = json.RawMessage(res[3].Raw)
	}
	return Request{ID: res[2].String(), Method: res[1].String(), Params: params}, nil
}

// EncodeEvent encodes ev as an event frame. An empty payload encodes as null.
func EncodeEvent(ev Event) ([]byte, error) {
	payload := json.RawMessage(ev.Payload)
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	data, err := json.Marshal(eventFrame{Type: FrameEvent, Name: ev.Name, RequestID: ev.RequestID, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", ev.Name, err)
	}
	return data, nil
}

// DecodeEvent routes an event frame by name without decoding its payload.
func DecodeEvent(frame []byte) (Event, error) {
	if !gjson.ValidBytes(frame) {
		return Event{}, fmt.Errorf("%w: invalid json", ErrMalformedFrame)
	}
	res := gjson.GetManyBytes(frame, "type", "name", "requestId", "payload")
	if res[0].String() != FrameEvent || res[1].String() == "" {
		return Event{}, fmt.Errorf("%w: not an event", ErrMalformedFrame)
	}
	var payload []byte
	if res[3].Exists() && res[3].Type != gjson.Null {
		payload = []byte(res[3].Raw)
	}
	return Event{Name: res[1].String(), RequestID: res[2].String(), Payload: payload}, nil
}
