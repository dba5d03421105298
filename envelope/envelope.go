// Package envelope defines the request and response shapes carried inside
// one framed payload, plus their JSON codec.
//
// Values are the encoding/json data model: nil, bool, float64, string,
// []any, and map[string]any. The codec validates top-level shape only;
// argument contents are each handler's responsibility.
package envelope

import (
	"encoding/json"
	"fmt"
)

// Request is one decoded call request.
//
//	{"function": "<name>", "args": [<value>, ...]}
//
// Function is always non-empty and Args is always non-nil after a
// successful decode.
type Request struct {
	Function string
	Args     []any
}

// Response is one call result: exactly one of the success and failure
// variants. Construct with Success or Failure.
type Response struct {
	OK      bool
	Result  any    // set when OK
	Message string // set when !OK
}

// Success wraps a handler result.
func Success(result any) Response {
	return Response{OK: true, Result: result}
}

// Failure wraps an error message.
func Failure(message string) Response {
	return Response{OK: false, Message: message}
}

// DecodeErrorKind classifies request decode failures.
type DecodeErrorKind int

const (
	// Malformed means the payload was not valid JSON at all.
	Malformed DecodeErrorKind = iota
	// BadShape means the JSON parsed but the top level is not a request
	// envelope (missing or mistyped "function"/"args").
	BadShape
)

// DecodeError reports why a payload could not be decoded into a Request.
// The message is client-facing: it becomes the error envelope's "message"
// field verbatim.
type DecodeError struct {
	Kind    DecodeErrorKind
	Message string
}

func (e *DecodeError) Error() string { return e.Message }

// wire shapes for the response codec.
type wireResponse struct {
	Status  string          `json:"status"`
	Result  json.RawMessage `json:"result,omitempty"`
	Message string          `json:"message,omitempty"`
}

type wireSuccess struct {
	Status string `json:"status"`
	Result any    `json:"result"`
}

type wireFailure struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// DecodeRequest parses payload bytes into a Request, validating the
// top-level shape. Failures come back as *DecodeError.
func DecodeRequest(payload []byte) (*Request, error) {
	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, &DecodeError{Kind: Malformed, Message: "Invalid JSON: " + err.Error()}
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &DecodeError{Kind: BadShape, Message: "Missing 'function' or 'args' field"}
	}
	fn, ok := obj["function"].(string)
	if !ok || fn == "" {
		return nil, &DecodeError{Kind: BadShape, Message: "Missing 'function' or 'args' field"}
	}
	args, ok := obj["args"].([]any)
	if !ok {
		// "args": null parses as an untyped nil, not a []any; distinguish a
		// present-but-null args from a wrong type the same way: reject both.
		return nil, &DecodeError{Kind: BadShape, Message: "Missing 'function' or 'args' field"}
	}

	return &Request{Function: fn, Args: args}, nil
}

// EncodeRequest produces the canonical payload bytes for a Request. Used by
// client stubs; the server only decodes requests.
func EncodeRequest(req *Request) ([]byte, error) {
	args := req.Args
	if args == nil {
		args = []any{}
	}
	return json.Marshal(struct {
		Function string `json:"function"`
		Args     []any  `json:"args"`
	}{req.Function, args})
}

// EncodeResponse produces the canonical payload bytes for a Response:
// {"status":"success","result":...} or {"status":"error","message":"..."}.
// It never fails for values representable in the JSON data model.
func EncodeResponse(resp Response) ([]byte, error) {
	if resp.OK {
		return json.Marshal(wireSuccess{Status: "success", Result: resp.Result})
	}
	return json.Marshal(wireFailure{Status: "error", Message: resp.Message})
}

// DecodeResponse parses payload bytes into a Response. Used by client stubs
// and round-trip tests.
func DecodeResponse(payload []byte) (Response, error) {
	var w wireResponse
	if err := json.Unmarshal(payload, &w); err != nil {
		return Response{}, &DecodeError{Kind: Malformed, Message: "Invalid JSON: " + err.Error()}
	}
	switch w.Status {
	case "success":
		var result any
		if len(w.Result) > 0 {
			if err := json.Unmarshal(w.Result, &result); err != nil {
				return Response{}, &DecodeError{Kind: Malformed, Message: "Invalid JSON: " + err.Error()}
			}
		}
		return Success(result), nil
	case "error":
		return Failure(w.Message), nil
	default:
		return Response{}, &DecodeError{Kind: BadShape, Message: fmt.Sprintf("unknown response status %q", w.Status)}
	}
}
