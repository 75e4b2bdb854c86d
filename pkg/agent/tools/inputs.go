package tools

import (
	"errors"
	"fmt"
)

// Input is the typed argument set of one tool.
type Input interface {
	Kind() Kind
	Validate() error
}

// Target addresses an element either by its snapshot index or by selector.
type Target struct {
	ElementIndex *int   `json:"element_index,omitempty"`
	Selector     string `json:"selector,omitempty"`
}

// HasIndex reports whether the target uses an element index.
func (t Target) HasIndex() bool {
	return t.ElementIndex != nil
}

// Index returns the element index, -1 when absent.
func (t Target) Index() int {
	if t.ElementIndex == nil {
		return -1
	}
	return *t.ElementIndex
}

func (t Target) validate() error {
	if t.ElementIndex == nil && t.Selector == "" {
		return errors.New("either element_index or selector is required")
	}
	if t.ElementIndex != nil && t.Selector != "" {
		return errors.New("give element_index or selector, not both")
	}
	if t.ElementIndex != nil && *t.ElementIndex < 0 {
		return fmt.Errorf("element_index must be non-negative, got %d", *t.ElementIndex)
	}
	return nil
}

type NavigateInput struct {
	URL string `json:"url"`
}

func (NavigateInput) Kind() Kind { return KindNavigate }

func (in NavigateInput) Validate() error {
	if in.URL == "" {
		return errors.New("url is required")
	}
	return nil
}

type ClickInput struct {
	Target
}

func (ClickInput) Kind() Kind { return KindClick }

func (in ClickInput) Validate() error { return in.validate() }

// ClickAtInput clicks at viewport coordinates, or at the position of an
// indexed element.
type ClickAtInput struct {
	X            *int `json:"x,omitempty"`
	Y            *int `json:"y,omitempty"`
	ElementIndex *int `json:"element_index,omitempty"`
}

func (ClickAtInput) Kind() Kind { return KindClickAt }

func (in ClickAtInput) Validate() error {
	if in.ElementIndex != nil {
		return nil
	}
	if in.X == nil || in.Y == nil {
		return errors.New("either x and y or element_index is required")
	}
	return nil
}

type TypeTextInput struct {
	Target
	Clear *bool  `json:"clear,omitempty"`
	Text  string `json:"text"`
}

func (TypeTextInput) Kind() Kind { return KindTypeText }

func (in TypeTextInput) Validate() error { return in.validate() }

// ShouldClear reports whether the field is cleared before typing. Defaults
// to true.
func (in TypeTextInput) ShouldClear() bool {
	return in.Clear == nil || *in.Clear
}

type SelectOptionInput struct {
	Target
	Value string `json:"value"`
}

func (SelectOptionInput) Kind() Kind { return KindSelectOption }

func (in SelectOptionInput) Validate() error {
	if in.Value == "" {
		return errors.New("value is required")
	}
	return in.validate()
}

// ScrollAmounts maps scroll amount names to pixels. "page" scrolls by one
// viewport height.
var ScrollAmounts = map[string]int{
	"small":  200,
	"medium": 500,
	"large":  1000,
	"page":   -1,
}

type ScrollInput struct {
	Direction string `json:"direction"`
	Amount    string `json:"amount,omitempty"`
}

func (ScrollInput) Kind() Kind { return KindScroll }

func (in ScrollInput) Validate() error {
	switch in.Direction {
	case "up", "down", "left", "right":
	default:
		return fmt.Errorf("direction must be one of up, down, left, right, got %q", in.Direction)
	}
	if in.Amount != "" {
		if _, ok := ScrollAmounts[in.Amount]; !ok {
			return fmt.Errorf("unknown scroll amount %q", in.Amount)
		}
	}
	return nil
}

// Pixels returns the scroll distance, -1 for a full viewport.
func (in ScrollInput) Pixels() int {
	if px, ok := ScrollAmounts[in.Amount]; ok {
		return px
	}
	return ScrollAmounts["medium"]
}

type WaitInput struct {
	Selector  string `json:"selector,omitempty"`
	TimeoutMs int    `json:"timeout,omitempty"`
}

func (WaitInput) Kind() Kind { return KindWait }

func (in WaitInput) Validate() error {
	if in.TimeoutMs < 0 {
		return errors.New("timeout must be non-negative")
	}
	return nil
}

type ExtractDataInput struct {
	Query  string `json:"query"`
	Format string `json:"format,omitempty"`
}

func (ExtractDataInput) Kind() Kind { return KindExtractData }

func (in ExtractDataInput) Validate() error {
	if in.Query == "" {
		return errors.New("query is required")
	}
	switch in.Format {
	case "", "text", "list", "json":
		return nil
	}
	return fmt.Errorf("format must be one of text, list, json, got %q", in.Format)
}

type GoBackInput struct{}

func (GoBackInput) Kind() Kind { return KindGoBack }

func (GoBackInput) Validate() error { return nil }

type RefreshInput struct{}

func (RefreshInput) Kind() Kind { return KindRefresh }

func (RefreshInput) Validate() error { return nil }

type ScreenshotInput struct {
	FullPage bool `json:"full_page,omitempty"`
}

func (ScreenshotInput) Kind() Kind { return KindScreenshot }

func (ScreenshotInput) Validate() error { return nil }

type NewTabInput struct {
	URL string `json:"url,omitempty"`
}

func (NewTabInput) Kind() Kind { return KindNewTab }

func (NewTabInput) Validate() error { return nil }

// Destination returns the URL to open, about:blank when none was given.
func (in NewTabInput) Destination() string {
	if in.URL == "" {
		return "about:blank"
	}
	return in.URL
}

type AskUserInput struct {
	Question string   `json:"question"`
	Options  []string `json:"options,omitempty"`
}

func (AskUserInput) Kind() Kind { return KindAskUser }

func (in AskUserInput) Validate() error {
	if in.Question == "" {
		return errors.New("question is required")
	}
	return nil
}

// CompleteTaskInput ends the task. Result carries the extracted data for
// extraction tasks.
type CompleteTaskInput struct {
	Success *bool  `json:"success,omitempty"`
	Summary string `json:"summary"`
	Result  string `json:"result,omitempty"`
}

func (CompleteTaskInput) Kind() Kind { return KindCompleteTask }

// Succeeded reports the model's success flag. An omitted flag counts as
// success.
func (in CompleteTaskInput) Succeeded() bool {
	return in.Success == nil || *in.Success
}

func (in CompleteTaskInput) Validate() error {
	if in.Summary == "" && in.Result == "" {
		return errors.New("summary is required")
	}
	return nil
}
