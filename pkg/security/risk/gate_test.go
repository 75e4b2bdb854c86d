package risk

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lappy000/Browser-Agent-AI/pkg/agent/tools"
	"github.com/Lappy000/Browser-Agent-AI/pkg/types"
)

func inv(t *testing.T, name, args string) tools.Invocation {
	t.Helper()
	i, err := tools.Decode(types.ToolCall{ID: "call_1", Name: name, Arguments: json.RawMessage(args)})
	require.NoError(t, err)
	return i
}

func testSnapshot() *types.Snapshot {
	return &types.Snapshot{
		URL: "https://mail.example.com/inbox",
		Elements: []types.Element{
			{Index: 0, Tag: "a", Text: "Inbox"},
			{Index: 1, Tag: "button", AriaLabel: "Delete message"},
			{Index: 2, Tag: "input", Type: "password", Name: "pw"},
			{Index: 3, Tag: "input", Type: "text", Name: "q", Placeholder: "Search mail"},
			{Index: 4, Tag: "button", Text: "Shopping"},
			{Index: 5, Tag: "button", Text: "Pay now"},
			{Index: 6, Tag: "button", Text: "Sign out"},
		},
	}
}

func newGate(t *testing.T, c Confirmer) *Gate {
	t.Helper()
	g, err := New(Config{}, c)
	require.NoError(t, err)
	return g
}

func TestAssess(t *testing.T) {
	g := newGate(t, nil)
	snap := testSnapshot()
	checkout := &types.Snapshot{URL: "https://shop.example.com/checkout"}

	tests := []struct {
		snap     *types.Snapshot
		name     string
		tool     string
		args     string
		category Category
		want     Level
	}{
		{name: "navigate plain", tool: "navigate", args: `{"url":"https://google.com"}`, snap: snap, want: LevelSafe},
		{name: "navigate checkout", tool: "navigate", args: `{"url":"https://shop.test/checkout"}`, snap: snap, want: LevelMedium, category: CategoryPayment},
		{name: "new tab billing", tool: "new_tab", args: `{"url":"https://example.com/billing"}`, snap: snap, want: LevelMedium, category: CategoryPayment},
		{name: "click delete by index", tool: "click", args: `{"element_index":1}`, snap: snap, want: LevelHigh, category: CategoryDelete},
		{name: "click pay by index", tool: "click", args: `{"element_index":5}`, snap: snap, want: LevelHigh, category: CategoryPayment},
		{name: "click sign out", tool: "click", args: `{"element_index":6}`, snap: snap, want: LevelHigh, category: CategoryAccount},
		{name: "click neutral", tool: "click", args: `{"element_index":0}`, snap: snap, want: LevelLow},
		{name: "keyword inside a word", tool: "click", args: `{"element_index":4}`, snap: snap, want: LevelLow},
		{name: "click by selector", tool: "click", args: `{"selector":"button.send-btn"}`, snap: snap, want: LevelHigh, category: CategorySend},
		{name: "click on checkout page", tool: "click", args: `{"selector":"#continue"}`, snap: checkout, want: LevelMedium, category: CategoryPayment},
		{name: "click at delete element", tool: "click_at_coordinates", args: `{"element_index":1}`, snap: snap, want: LevelHigh, category: CategoryDelete},
		{name: "click at coordinates", tool: "click_at_coordinates", args: `{"x":1,"y":2}`, snap: snap, want: LevelLow},
		{name: "type into password field", tool: "type_text", args: `{"element_index":2,"text":"hunter2"}`, snap: snap, want: LevelMedium, category: CategorySensitive},
		{name: "type into card selector", tool: "type_text", args: `{"selector":"#credit-number","text":"4111"}`, snap: snap, want: LevelMedium, category: CategorySensitive},
		{name: "type sensitive text", tool: "type_text", args: `{"element_index":3,"text":"my password is x"}`, snap: snap, want: LevelMedium, category: CategorySensitive},
		{name: "type search", tool: "type_text", args: `{"element_index":3,"text":"weekly report"}`, snap: snap, want: LevelLow},
		{name: "select delete option", tool: "select_option", args: `{"element_index":3,"value":"Delete all"}`, snap: snap, want: LevelMedium, category: CategoryDelete},
		{name: "select plain option", tool: "select_option", args: `{"element_index":3,"value":"Newest first"}`, snap: snap, want: LevelLow},
		{name: "scroll", tool: "scroll", args: `{"direction":"down"}`, snap: snap, want: LevelSafe},
		{name: "complete", tool: "complete_task", args: `{"success":true,"summary":"x"}`, snap: snap, want: LevelSafe},
		{name: "nil snapshot", tool: "click", args: `{"element_index":1}`, snap: nil, want: LevelLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := g.Assess(inv(t, tt.tool, tt.args), tt.snap)
			assert.Equal(t, tt.want, a.Level, a.Reason)
			assert.Equal(t, tt.category, a.Category)
		})
	}
}

func TestCheckSafeDoesNotAsk(t *testing.T) {
	asked := 0
	g := newGate(t, ConfirmFunc(func(context.Context, string, string) (bool, error) {
		asked++
		return false, nil
	}))

	d, err := g.Check(context.Background(), inv(t, "click", `{"element_index":0}`), testSnapshot())
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.False(t, d.Asked)
	assert.Zero(t, asked)
}

func TestCheckDenied(t *testing.T) {
	var gotDesc, gotReason string
	g := newGate(t, ConfirmFunc(func(_ context.Context, desc, reason string) (bool, error) {
		gotDesc, gotReason = desc, reason
		return false, nil
	}))

	d, err := g.Check(context.Background(), inv(t, "click", `{"element_index":1}`), testSnapshot())
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.True(t, d.Asked)
	assert.Equal(t, RejectedByUser, d.Reason)
	assert.Equal(t, LevelHigh, d.Assessment.Level)
	assert.Equal(t, "Click 'Delete message' on https://mail.example.com/inbox", gotDesc)
	assert.Contains(t, gotReason, "delete")
}

func TestCheckApproved(t *testing.T) {
	g := newGate(t, AutoConfirmer(true))
	d, err := g.Check(context.Background(), inv(t, "navigate", `{"url":"https://shop.test/cart"}`), nil)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.True(t, d.Asked)
}

func TestCheckConfirmerErrorIsRefusal(t *testing.T) {
	g := newGate(t, ConfirmFunc(func(context.Context, string, string) (bool, error) {
		return true, errors.New("terminal closed")
	}))
	d, err := g.Check(context.Background(), inv(t, "click", `{"element_index":1}`), testSnapshot())
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestCheckCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g := newGate(t, ConfirmFunc(func(ctx context.Context, _, _ string) (bool, error) {
		cancel()
		return false, ctx.Err()
	}))
	d, err := g.Check(ctx, inv(t, "click", `{"element_index":1}`), testSnapshot())
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, d.Allowed)
}

func TestNilConfirmerRefuses(t *testing.T) {
	g := newGate(t, nil)
	d, err := g.Check(context.Background(), inv(t, "click", `{"element_index":1}`), testSnapshot())
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestDisabledGate(t *testing.T) {
	g, err := New(Config{Disabled: true}, AutoConfirmer(false))
	require.NoError(t, err)

	d, err := g.Check(context.Background(), inv(t, "click", `{"element_index":1}`), testSnapshot())
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, LevelHigh, d.Assessment.Level)
}

func TestCustomConfig(t *testing.T) {
	g, err := New(Config{
		Keywords:    map[Category][]string{CategoryDelete: {"archive"}},
		URLPatterns: []string{"*.bank.test*"},
	}, nil)
	require.NoError(t, err)

	snap := &types.Snapshot{Elements: []types.Element{{Index: 0, Text: "Archive thread"}, {Index: 1, Text: "Delete"}}}
	assert.Equal(t, LevelHigh, g.Assess(inv(t, "click", `{"element_index":0}`), snap).Level)
	assert.Equal(t, LevelLow, g.Assess(inv(t, "click", `{"element_index":1}`), snap).Level)
	assert.Equal(t, LevelMedium, g.Assess(inv(t, "navigate", `{"url":"https://www.bank.test/login"}`), snap).Level)
	assert.Equal(t, LevelSafe, g.Assess(inv(t, "navigate", `{"url":"https://shop.test/checkout"}`), snap).Level)
}

func TestDescribe(t *testing.T) {
	snap := testSnapshot()
	tests := []struct {
		name string
		tool string
		args string
		want string
	}{
		{name: "navigate", tool: "navigate", args: `{"url":"https://a.test"}`, want: "Navigate to https://a.test"},
		{name: "type masks text", tool: "type_text", args: `{"element_index":3,"text":"secret-value"}`, want: "Type 'sec***' into 'Search mail' on https://mail.example.com/inbox"},
		{name: "click at", tool: "click_at_coordinates", args: `{"x":10,"y":20}`, want: "Click at (10, 20) on https://mail.example.com/inbox"},
		{name: "fallback", tool: "scroll", args: `{"direction":"down"}`, want: `scroll: {"direction":"down"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Describe(inv(t, tt.tool, tt.args), snap))
		})
	}
}

func TestMask(t *testing.T) {
	assert.Equal(t, "***", Mask("abc"))
	assert.Equal(t, "***", Mask(""))
	assert.Equal(t, "abc***", Mask("abcdef"))
	assert.Equal(t, "пар***", Mask("пароль"))
}

func TestContainsWord(t *testing.T) {
	assert.True(t, containsWord("pay now", "pay"))
	assert.True(t, containsWord("quick-pay", "pay"))
	assert.False(t, containsWord("shopping", "pin"))
	assert.True(t, containsWord("удалить письмо", "удал"))
	assert.True(t, containsWord("spin the pin", "pin"))
}
