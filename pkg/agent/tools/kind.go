// Package tools defines the closed set of browser tools the model can call,
// their typed inputs and the JSON schemas offered to the backends.
package tools

// Kind identifies one tool of the closed catalog.
type Kind int

const (
	KindNavigate Kind = iota + 1
	KindClick
	KindClickAt
	KindTypeText
	KindSelectOption
	KindScroll
	KindWait
	KindExtractData
	KindGoBack
	KindRefresh
	KindScreenshot
	KindNewTab
	KindAskUser
	KindCompleteTask
)

var kindNames = map[Kind]string{
	KindNavigate:     "navigate",
	KindClick:        "click",
	KindClickAt:      "click_at_coordinates",
	KindTypeText:     "type_text",
	KindSelectOption: "select_option",
	KindScroll:       "scroll",
	KindWait:         "wait",
	KindExtractData:  "extract_data",
	KindGoBack:       "go_back",
	KindRefresh:      "refresh",
	KindScreenshot:   "take_screenshot",
	KindNewTab:       "new_tab",
	KindAskUser:      "ask_user",
	KindCompleteTask: "complete_task",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		m[name] = k
	}
	return m
}()

// String returns the wire name of the tool.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind resolves a wire name into a Kind.
func ParseKind(name string) (Kind, bool) {
	k, ok := kindsByName[name]
	return k, ok
}

// AllKinds returns every tool kind in catalog order.
func AllKinds() []Kind {
	out := make([]Kind, 0, len(kindNames))
	for k := KindNavigate; k <= KindCompleteTask; k++ {
		out = append(out, k)
	}
	return out
}

// ChangesPage reports whether the tool acts on the page. Only these reach
// the Actuator and the risk gate classifies them by target.
func (k Kind) ChangesPage() bool {
	switch k {
	case KindAskUser, KindCompleteTask, KindWait, KindExtractData, KindScreenshot:
		return false
	}
	return true
}
