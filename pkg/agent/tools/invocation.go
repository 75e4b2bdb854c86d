package tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/Lappy000/Browser-Agent-AI/pkg/types"
)

// Invocation is one decoded tool call from a model turn. Err is set when the
// tool is known but its arguments did not decode; Input is nil then.
type Invocation struct {
	Input Input
	Err   error
	Raw   json.RawMessage
	ID    string
	Kind  Kind
}

// Name returns the wire name of the tool.
func (inv Invocation) Name() string {
	return inv.Kind.String()
}

// Params returns the raw arguments as a generic map for logging and events.
func (inv Invocation) Params() map[string]interface{} {
	params := make(map[string]interface{})
	if len(inv.Raw) > 0 {
		_ = json.Unmarshal(inv.Raw, &params)
	}
	return params
}

// DecodeError reports a tool call that cannot be mapped onto the catalog:
// an unknown tool name, or a missing or repeated call id.
type DecodeError struct {
	Err  error
	Tool string
	ID   string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("tool call %s (%s): %v", e.ID, e.Tool, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func newInput(k Kind) Input {
	switch k {
	case KindNavigate:
		return &NavigateInput{}
	case KindClick:
		return &ClickInput{}
	case KindClickAt:
		return &ClickAtInput{}
	case KindTypeText:
		return &TypeTextInput{}
	case KindSelectOption:
		return &SelectOptionInput{}
	case KindScroll:
		return &ScrollInput{}
	case KindWait:
		return &WaitInput{}
	case KindExtractData:
		return &ExtractDataInput{}
	case KindGoBack:
		return &GoBackInput{}
	case KindRefresh:
		return &RefreshInput{}
	case KindScreenshot:
		return &ScreenshotInput{}
	case KindNewTab:
		return &NewTabInput{}
	case KindAskUser:
		return &AskUserInput{}
	case KindCompleteTask:
		return &CompleteTaskInput{}
	}
	return nil
}

// Decode maps a raw tool call onto its typed input. Only an unknown tool is
// an error. Arguments that do not fit the tool's input are kept on the
// Invocation and reported by Validate, so the model can correct the call.
func Decode(call types.ToolCall) (Invocation, error) {
	kind, ok := ParseKind(call.Name)
	if !ok {
		return Invocation{}, &DecodeError{ID: call.ID, Tool: call.Name, Err: fmt.Errorf("unknown tool")}
	}

	raw := bytes.TrimSpace(call.Arguments)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}

	inv := Invocation{ID: call.ID, Kind: kind, Raw: json.RawMessage(raw)}
	input := newInput(kind)
	if err := json.Unmarshal(raw, input); err != nil {
		inv.Err = argumentError(err)
		return inv, nil
	}

	return Invocation{
		ID:    call.ID,
		Kind:  kind,
		Input: derefInput(input),
		Raw:   json.RawMessage(raw),
	}, nil
}

// DecodeAll decodes every call of a model turn and rejects duplicate IDs.
func DecodeAll(calls []types.ToolCall) ([]Invocation, error) {
	seen := make(map[string]bool, len(calls))
	out := make([]Invocation, 0, len(calls))
	for _, call := range calls {
		if call.ID == "" {
			return nil, &DecodeError{Tool: call.Name, Err: fmt.Errorf("missing tool call id")}
		}
		if seen[call.ID] {
			return nil, &DecodeError{ID: call.ID, Tool: call.Name, Err: fmt.Errorf("duplicate tool call id")}
		}
		seen[call.ID] = true

		inv, err := Decode(call)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, nil
}

// derefInput stores inputs by value so type switches match on value types.
func derefInput(in Input) Input {
	switch v := in.(type) {
	case *NavigateInput:
		return *v
	case *ClickInput:
		return *v
	case *ClickAtInput:
		return *v
	case *TypeTextInput:
		return *v
	case *SelectOptionInput:
		return *v
	case *ScrollInput:
		return *v
	case *WaitInput:
		return *v
	case *ExtractDataInput:
		return *v
	case *GoBackInput:
		return *v
	case *RefreshInput:
		return *v
	case *ScreenshotInput:
		return *v
	case *NewTabInput:
		return *v
	case *AskUserInput:
		return *v
	case *CompleteTaskInput:
		return *v
	}
	return in
}

// Validate checks required fields of the typed input.
func (inv Invocation) Validate() error {
	if inv.Err != nil {
		return fmt.Errorf("invalid %s arguments: %w", inv.Name(), inv.Err)
	}
	if inv.Input == nil {
		return fmt.Errorf("%s: missing input", inv.Name())
	}
	if err := inv.Input.Validate(); err != nil {
		return fmt.Errorf("invalid %s arguments: %w", inv.Name(), err)
	}
	return nil
}

// argumentError rewords json type errors in terms of the tool's fields.
func argumentError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return fmt.Errorf("field %s must be %s, got %s", typeErr.Field, jsonTypeName(typeErr.Type.Kind()), typeErr.Value)
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return fmt.Errorf("arguments are not valid JSON: %v", syntaxErr)
	}
	return err
}

func jsonTypeName(k reflect.Kind) string {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "an integer"
	case reflect.Float32, reflect.Float64:
		return "a number"
	case reflect.Bool:
		return "a boolean"
	case reflect.String:
		return "a string"
	case reflect.Slice, reflect.Array:
		return "an array"
	}
	return "an object"
}
