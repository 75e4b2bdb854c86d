package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Lappy000/Browser-Agent-AI/pkg/agent/loopdetect"
	"github.com/Lappy000/Browser-Agent-AI/pkg/agent/tools"
	"github.com/Lappy000/Browser-Agent-AI/pkg/llm"
	"github.com/Lappy000/Browser-Agent-AI/pkg/types"
)

// extractPreviewLength bounds the extracted data echoed back to the model.
const extractPreviewLength = 500

// turnOutcome collects what one model turn produced.
type turnOutcome struct {
	completion *tools.CompleteTaskInput
	answer     *userAnswer
	results    []types.ToolResult
}

type userAnswer struct {
	question string
	answer   string
}

func (t *turnOutcome) add(inv tools.Invocation, message string, success bool) {
	t.results = append(t.results, types.ToolResult{
		ToolUseID: inv.ID,
		Content:   message,
		IsError:   !success,
	})
}

// runTurn decodes the tool calls of one reply and runs them strictly in
// order. All results reach the history before any user answer, and both
// before the next backend call.
func (o *Orchestrator) runTurn(ctx context.Context, resp *llm.Response) (*turnOutcome, error) {
	invocations, err := tools.DecodeAll(resp.ToolCalls)
	if err != nil {
		return nil, &llm.ProtocolFault{Reason: "invalid tool call", Err: err}
	}

	if text := strings.TrimSpace(resp.Text); text != "" {
		o.emit(types.NewThinkingContentEvent(text))
	}
	o.assembler.Append(types.NewAssistantMessage(resp.Text, resp.ToolCalls))

	out := &turnOutcome{}
	for _, inv := range invocations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := o.handleInvocation(ctx, inv, out); err != nil {
			return nil, err
		}
	}

	o.assembler.Append(o.assembler.CombineResults(out.results)...)
	if out.answer != nil {
		o.assembler.Append(types.NewUserMessage(fmt.Sprintf("User answer to question '%s':\n%s", out.answer.question, out.answer.answer)))
	}
	return out, nil
}

// handleInvocation runs one invocation through validation, loop detection
// and the risk gate before it reaches the Actuator. Rejections become error
// results; only a done context is returned as error.
func (o *Orchestrator) handleInvocation(ctx context.Context, inv tools.Invocation, out *turnOutcome) error {
	name := inv.Name()
	params := inv.Params()
	o.emit(types.NewToolCallEvent(name, params))

	if err := inv.Validate(); err != nil {
		o.reject(inv, out, fmt.Sprintf("Invalid arguments for %s: %v", name, err))
		return nil
	}

	if verdict, looping := o.detector.Observe(loopdetect.Of(inv)); looping {
		agentDebugLog.Warnf("Loop detected: %s", verdict.Diagnostic)
		o.emit(types.NewLoopDetectedEvent(name, verdict.Diagnostic))
		o.reject(inv, out, loopdetect.Guidance(verdict, o.detector.Repetitions()))
		return nil
	}

	decision, err := o.gate.Check(ctx, inv, o.snapshot)
	if err != nil {
		return err
	}
	if decision.Asked {
		o.emit(types.NewRiskDecisionEvent(name, decision.Assessment.Level.String(), decision.Assessment.Reason, decision.Allowed))
	}
	if !decision.Allowed {
		msg := fmt.Sprintf("Action not executed: %s (%s)", decision.Reason, decision.Assessment.Reason)
		o.history.Add(name, params, msg, false, decision.Reason)
		o.reject(inv, out, msg)
		return nil
	}

	var result types.ActionResult
	switch in := inv.Input.(type) {
	case tools.CompleteTaskInput:
		if out.completion == nil {
			c := in
			out.completion = &c
		}
		result = types.ActionResult{Success: in.Succeeded(), Message: in.Summary}
	case tools.AskUserInput:
		result, err = o.askUser(ctx, in, out)
		if err != nil {
			return err
		}
	case tools.ScreenshotInput:
		result = o.screenshot(ctx, in)
	default:
		result = o.executeTool(ctx, inv)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	message := result.Message
	if inv.Kind == tools.KindExtractData && result.Success {
		o.guard.Record(result.Data)
		message = extractionMessage(result)
	}

	errMsg := ""
	if !result.Success {
		errMsg = result.Message
	}
	o.history.Add(name, params, result.Message, result.Success, errMsg)
	o.machine.RecordAction()

	if result.Success {
		o.emit(types.NewToolResultEvent(name, message))
	} else {
		o.emit(types.NewToolResultErrorEvent(name, errors.New(message)))
	}
	out.add(inv, message, result.Success)
	return nil
}

func (o *Orchestrator) reject(inv tools.Invocation, out *turnOutcome, message string) {
	o.emit(types.NewToolResultErrorEvent(inv.Name(), errors.New(message)))
	out.add(inv, message, false)
}

// executeTool dispatches a page action to the Actuator. Element indices are
// resolved against the snapshot the model saw this turn.
func (o *Orchestrator) executeTool(ctx context.Context, inv tools.Invocation) types.ActionResult {
	switch in := inv.Input.(type) {
	case tools.NavigateInput:
		return o.actuator.Navigate(ctx, in.URL)
	case tools.ClickInput:
		loc, ok := o.locate(in.Target)
		if !ok {
			return missingElement(in.Index())
		}
		return o.actuator.Click(ctx, loc)
	case tools.ClickAtInput:
		if in.ElementIndex != nil {
			el, ok := o.snapshot.ElementAt(*in.ElementIndex)
			if !ok {
				return missingElement(*in.ElementIndex)
			}
			return o.actuator.ClickAt(ctx, el.X, el.Y)
		}
		return o.actuator.ClickAt(ctx, *in.X, *in.Y)
	case tools.TypeTextInput:
		loc, ok := o.locate(in.Target)
		if !ok {
			return missingElement(in.Index())
		}
		return o.actuator.TypeText(ctx, loc, in.Text, in.ShouldClear())
	case tools.SelectOptionInput:
		loc, ok := o.locate(in.Target)
		if !ok {
			return missingElement(in.Index())
		}
		return o.actuator.SelectOption(ctx, loc, in.Value)
	case tools.ScrollInput:
		return o.actuator.Scroll(ctx, in.Direction, in.Pixels())
	case tools.WaitInput:
		return o.actuator.Wait(ctx, in.Selector, time.Duration(in.TimeoutMs)*time.Millisecond)
	case tools.ExtractDataInput:
		return o.actuator.ExtractData(ctx, in.Query, in.Format)
	case tools.GoBackInput:
		return o.actuator.GoBack(ctx)
	case tools.RefreshInput:
		return o.actuator.Refresh(ctx)
	case tools.NewTabInput:
		return o.actuator.NewTab(ctx, in.Destination())
	}
	return types.Failed(fmt.Sprintf("Unknown tool: %s", inv.Name()))
}

// locate turns a target into a Locator. An index must exist in the current
// snapshot; a selector is passed through.
func (o *Orchestrator) locate(t tools.Target) (types.Locator, bool) {
	if t.HasIndex() {
		el, ok := o.snapshot.ElementAt(t.Index())
		if !ok {
			return types.Locator{}, false
		}
		return types.Locator{Element: el, Selector: t.Selector}, true
	}
	return types.Locator{Selector: t.Selector}, true
}

func missingElement(index int) types.ActionResult {
	return types.Failed(fmt.Sprintf("Element [%d] not found on the current page. Use an index from the latest element list.", index))
}

func (o *Orchestrator) screenshot(ctx context.Context, in tools.ScreenshotInput) types.ActionResult {
	data, err := o.observer.Screenshot(ctx, in.FullPage)
	if err != nil {
		return types.Failed(fmt.Sprintf("Screenshot failed: %v", err))
	}
	o.forceShot = true
	return types.Succeeded(fmt.Sprintf("Screenshot captured (%d bytes). It is attached to the next page state when vision is enabled.", len(data)))
}

// askUser suspends the task in WaitingInput until the Answerer replies. The
// answer itself is appended after the turn's results.
func (o *Orchestrator) askUser(ctx context.Context, in tools.AskUserInput, out *turnOutcome) (types.ActionResult, error) {
	if o.answerer == nil {
		return types.Failed("No user is available to answer questions. Continue with your best judgement or finish with complete_task."), nil
	}

	agentDebugLog.Infof("Question for the user: %s", in.Question)
	if err := o.machine.WaitForInput(in.Question); err != nil {
		return types.ActionResult{}, err
	}

	answer, askErr := o.answerer.Ask(ctx, in.Question, in.Options)
	if _, err := o.machine.ResumeWithInput(answer); err != nil {
		return types.ActionResult{}, err
	}
	if askErr != nil {
		if ctx.Err() != nil {
			return types.ActionResult{}, ctx.Err()
		}
		agentDebugLog.Warnf("No answer to %q: %v", in.Question, askErr)
		return types.Failed(fmt.Sprintf("Could not get an answer from the user: %v", askErr)), nil
	}

	out.answer = &userAnswer{question: in.Question, answer: answer}
	msg := "Question for the user: " + in.Question
	if len(in.Options) > 0 {
		msg += "\nOptions: " + strings.Join(in.Options, ", ")
	}
	return types.Succeeded(msg + "\n\nThe answer follows."), nil
}

// extractionMessage tells the model the payload is stored and shows the
// beginning of it.
func extractionMessage(result types.ActionResult) string {
	preview := []rune(result.Data)
	ellipsis := ""
	if len(preview) > extractPreviewLength {
		preview = preview[:extractPreviewLength]
		ellipsis = "..."
	}
	return fmt.Sprintf("Data extracted and stored (%d characters).\nPreview: %s%s\n\nNow call complete_task with a short summary. The stored data is included in the result automatically.",
		len([]rune(result.Data)), string(preview), ellipsis)
}
