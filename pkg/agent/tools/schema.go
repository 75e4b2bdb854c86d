package tools

import "github.com/Lappy000/Browser-Agent-AI/pkg/types"

// BaseToolSchema wraps properties into a JSON schema object.
func BaseToolSchema(properties map[string]interface{}, required []string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func prop(typ, description string) map[string]interface{} {
	return map[string]interface{}{"type": typ, "description": description}
}

func enumProp(description string, values ...string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "enum": values, "description": description}
}

var indexProp = prop("integer", "Index [N] of the element in the current element list. Preferred over selector; give one of the two, not both.")

var descriptions = map[Kind]string{
	KindNavigate: "Open the given URL in the current tab.",
	KindClick: "Click an element. Use element_index from the current element list; " +
		"only use a CSS selector when the element is not listed. Never invent indexes from memory.",
	KindClickAt: "Click at viewport coordinates. Use when a regular click does not work. " +
		"Pass x and y, or element_index to click at the element position.",
	KindTypeText:     "Type text into an input field. The field is cleared first unless clear is false.",
	KindSelectOption: "Choose an option of a select element by value or visible text.",
	KindScroll:       "Scroll the page to reveal more content.",
	KindWait: "Wait for an element to appear or for the page to settle. Only use when really needed; " +
		"prefer short timeouts (200-500ms).",
	KindExtractData: "Extract the readable content of the current page. Right after extracting, call " +
		"complete_task and put the formatted data into its result field.",
	KindGoBack:     "Go back to the previous page in browser history.",
	KindRefresh:    "Reload the current page.",
	KindScreenshot: "Capture a screenshot for visual analysis. Only use when you really need to see the page.",
	KindNewTab:     "Open a new tab and switch to it. Use before navigate to keep the current page open.",
	KindAskUser:    "Ask the user a clarifying question when information is missing.",
	KindCompleteTask: "Finish the task. For data extraction tasks, result must contain the actual data " +
		"(emails, items, text) formatted for the user, not a description of what was done.",
}

func parameters(k Kind) map[string]interface{} {
	switch k {
	case KindNavigate:
		return BaseToolSchema(map[string]interface{}{
			"url": prop("string", "URL to open, for example https://example.com"),
		}, []string{"url"})
	case KindClick:
		return BaseToolSchema(map[string]interface{}{
			"element_index": indexProp,
			"selector":      prop("string", "CSS selector, only when the element is not in the list"),
		}, nil)
	case KindClickAt:
		return BaseToolSchema(map[string]interface{}{
			"x":             prop("integer", "X coordinate in pixels from the left edge of the viewport"),
			"y":             prop("integer", "Y coordinate in pixels from the top edge of the viewport"),
			"element_index": prop("integer", "Index [N] of the element whose position to click, instead of x and y"),
		}, nil)
	case KindTypeText:
		return BaseToolSchema(map[string]interface{}{
			"element_index": indexProp,
			"selector":      prop("string", "CSS selector of the input field"),
			"text":          prop("string", "Text to type"),
			"clear":         prop("boolean", "Clear the field before typing (default true)"),
		}, []string{"text"})
	case KindSelectOption:
		return BaseToolSchema(map[string]interface{}{
			"element_index": indexProp,
			"selector":      prop("string", "CSS selector of the select element"),
			"value":         prop("string", "Option value or visible text"),
		}, []string{"value"})
	case KindScroll:
		return BaseToolSchema(map[string]interface{}{
			"direction": enumProp("Scroll direction", "up", "down", "left", "right"),
			"amount":    enumProp("Scroll distance (default medium)", "small", "medium", "large", "page"),
		}, []string{"direction"})
	case KindWait:
		return BaseToolSchema(map[string]interface{}{
			"selector": prop("string", "CSS selector to wait for (optional)"),
			"timeout":  prop("integer", "Maximum wait in milliseconds (default 500)"),
		}, nil)
	case KindExtractData:
		return BaseToolSchema(map[string]interface{}{
			"query":  prop("string", "What to extract, for example 'last 10 emails' or 'all product prices'"),
			"format": enumProp("Output format (default text)", "text", "list", "json"),
		}, []string{"query"})
	case KindScreenshot:
		return BaseToolSchema(map[string]interface{}{
			"full_page": prop("boolean", "Capture the full page instead of the viewport"),
		}, nil)
	case KindNewTab:
		return BaseToolSchema(map[string]interface{}{
			"url": prop("string", "URL to open in the new tab (default about:blank)"),
		}, nil)
	case KindAskUser:
		return BaseToolSchema(map[string]interface{}{
			"question": prop("string", "Question for the user"),
			"options": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "Suggested answers (optional)",
			},
		}, []string{"question"})
	case KindCompleteTask:
		return BaseToolSchema(map[string]interface{}{
			"success": prop("boolean", "Whether the task was accomplished"),
			"summary": prop("string", "Short description of what was done"),
			"result":  prop("string", "The extracted data itself, formatted and numbered for the user"),
		}, []string{"success", "summary"})
	}
	return BaseToolSchema(map[string]interface{}{}, nil)
}

// Schema returns the definition of a single tool.
func Schema(k Kind) types.ToolSchema {
	return types.ToolSchema{
		Name:        k.String(),
		Description: descriptions[k],
		Parameters:  parameters(k),
	}
}

// Schemas returns the definitions of the whole catalog.
func Schemas() []types.ToolSchema {
	kinds := AllKinds()
	out := make([]types.ToolSchema, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, Schema(k))
	}
	return out
}
