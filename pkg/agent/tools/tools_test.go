package tools

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lappy000/Browser-Agent-AI/pkg/types"
)

func call(id, name, args string) types.ToolCall {
	return types.ToolCall{ID: id, Name: name, Arguments: json.RawMessage(args)}
}

func TestParseKind(t *testing.T) {
	for _, k := range AllKinds() {
		got, ok := ParseKind(k.String())
		require.True(t, ok, k.String())
		assert.Equal(t, k, got)
	}

	_, ok := ParseKind("execute_javascript")
	assert.False(t, ok)
	assert.Equal(t, "unknown", Kind(99).String())
	assert.Len(t, AllKinds(), 14)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		want Input
		name string
		call types.ToolCall
	}{
		{
			name: "navigate",
			call: call("1", "navigate", `{"url":"https://example.com"}`),
			want: NavigateInput{URL: "https://example.com"},
		},
		{
			name: "click by selector",
			call: call("2", "click", `{"selector":"#submit"}`),
			want: ClickInput{Target: Target{Selector: "#submit"}},
		},
		{
			name: "scroll",
			call: call("3", "scroll", `{"direction":"down","amount":"page"}`),
			want: ScrollInput{Direction: "down", Amount: "page"},
		},
		{
			name: "go back with empty arguments",
			call: call("4", "go_back", ``),
			want: GoBackInput{},
		},
		{
			name: "complete task",
			call: call("5", "complete_task", `{"success":true,"summary":"done","result":"1. a"}`),
			want: CompleteTaskInput{Success: boolPtr(true), Summary: "done", Result: "1. a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := Decode(tt.call)
			require.NoError(t, err)
			assert.Equal(t, tt.call.ID, inv.ID)
			assert.Equal(t, tt.want, inv.Input)
			assert.NoError(t, inv.Validate())
		})
	}
}

func TestDecodeTypeText(t *testing.T) {
	inv, err := Decode(call("1", "type_text", `{"element_index":3,"text":"hello","clear":false}`))
	require.NoError(t, err)

	in, ok := inv.Input.(TypeTextInput)
	require.True(t, ok)
	assert.Equal(t, 3, in.Index())
	assert.False(t, in.ShouldClear())
	assert.Equal(t, "hello", in.Text)

	inv, err = Decode(call("2", "type_text", `{"selector":"#q","text":"x"}`))
	require.NoError(t, err)
	assert.True(t, inv.Input.(TypeTextInput).ShouldClear())
	assert.Equal(t, -1, inv.Input.(TypeTextInput).Index())
}

func TestDecodeUnknownTool(t *testing.T) {
	_, err := Decode(call("1", "run_shell", `{}`))
	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "1", de.ID)
	assert.Equal(t, "run_shell", de.Tool)
}

func TestDecodeKeepsArgumentErrors(t *testing.T) {
	tests := []struct {
		name string
		call types.ToolCall
		kind Kind
		want string
	}{
		{name: "invalid json", call: call("2", "navigate", `{"url":`), kind: KindNavigate, want: "not valid JSON"},
		{name: "index as string", call: call("3", "click", `{"element_index":"three"}`), kind: KindClick, want: "element_index"},
		{name: "result as array", call: call("4", "complete_task", `{"summary":"x","result":["a"]}`), kind: KindCompleteTask, want: "result"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := Decode(tt.call)
			require.NoError(t, err)
			assert.Equal(t, tt.call.ID, inv.ID)
			assert.Equal(t, tt.kind, inv.Kind)
			assert.Nil(t, inv.Input)
			require.Error(t, inv.Err)

			err = inv.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDecodeAllRejectsDuplicateIDs(t *testing.T) {
	_, err := DecodeAll([]types.ToolCall{
		call("a", "refresh", `{}`),
		call("a", "go_back", `{}`),
	})
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Contains(t, de.Error(), "duplicate")

	invs, err := DecodeAll([]types.ToolCall{
		call("a", "refresh", `{}`),
		call("b", "go_back", `{}`),
	})
	require.NoError(t, err)
	assert.Len(t, invs, 2)
	assert.Equal(t, KindGoBack, invs[1].Kind)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		call    types.ToolCall
		wantErr bool
	}{
		{name: "navigate without url", call: call("1", "navigate", `{}`), wantErr: true},
		{name: "click without target", call: call("2", "click", `{}`), wantErr: true},
		{name: "click negative index", call: call("3", "click", `{"element_index":-1}`), wantErr: true},
		{name: "click with index and selector", call: call("3b", "click", `{"element_index":0,"selector":"#more"}`), wantErr: true},
		{name: "type with index and selector", call: call("3c", "type_text", `{"element_index":2,"selector":"#q","text":"a"}`), wantErr: true},
		{name: "click at needs both coordinates", call: call("4", "click_at_coordinates", `{"x":5}`), wantErr: true},
		{name: "click at element", call: call("5", "click_at_coordinates", `{"element_index":2}`)},
		{name: "scroll bad direction", call: call("6", "scroll", `{"direction":"sideways"}`), wantErr: true},
		{name: "scroll bad amount", call: call("7", "scroll", `{"direction":"up","amount":"huge"}`), wantErr: true},
		{name: "select without value", call: call("8", "select_option", `{"element_index":1}`), wantErr: true},
		{name: "extract bad format", call: call("9", "extract_data", `{"query":"x","format":"xml"}`), wantErr: true},
		{name: "ask without question", call: call("10", "ask_user", `{}`), wantErr: true},
		{name: "new tab without url", call: call("11", "new_tab", `{}`)},
		{name: "wait negative", call: call("12", "wait", `{"timeout":-5}`), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := Decode(tt.call)
			require.NoError(t, err)
			if tt.wantErr {
				assert.Error(t, inv.Validate())
			} else {
				assert.NoError(t, inv.Validate())
			}
		})
	}
}

func boolPtr(b bool) *bool { return &b }

func TestCompleteTaskSucceeded(t *testing.T) {
	tests := []struct {
		name string
		args string
		want bool
	}{
		{name: "omitted", args: `{"summary":"done"}`, want: true},
		{name: "true", args: `{"summary":"done","success":true}`, want: true},
		{name: "false", args: `{"summary":"blocked","success":false}`, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := Decode(call("1", "complete_task", tt.args))
			require.NoError(t, err)
			in, ok := inv.Input.(CompleteTaskInput)
			require.True(t, ok)
			assert.Equal(t, tt.want, in.Succeeded())
		})
	}
}

func TestScrollPixels(t *testing.T) {
	assert.Equal(t, 500, ScrollInput{Direction: "down"}.Pixels())
	assert.Equal(t, 200, ScrollInput{Direction: "down", Amount: "small"}.Pixels())
	assert.Equal(t, -1, ScrollInput{Direction: "down", Amount: "page"}.Pixels())
}

func TestNewTabDestination(t *testing.T) {
	assert.Equal(t, "about:blank", NewTabInput{}.Destination())
	assert.Equal(t, "https://a.test", NewTabInput{URL: "https://a.test"}.Destination())
}

func TestParams(t *testing.T) {
	inv, err := Decode(call("1", "navigate", `{"url":"https://example.com"}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"url": "https://example.com"}, inv.Params())
}

func TestSchemas(t *testing.T) {
	schemas := Schemas()
	require.Len(t, schemas, 14)

	for _, s := range schemas {
		assert.NotEmpty(t, s.Description, s.Name)
		assert.Equal(t, "object", s.Parameters["type"], s.Name)
	}

	nav := Schema(KindNavigate)
	assert.Equal(t, []string{"url"}, nav.Parameters["required"])

	click := Schema(KindClick)
	_, hasRequired := click.Parameters["required"]
	assert.False(t, hasRequired)
}
