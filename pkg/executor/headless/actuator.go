package headless

import (
	"context"
	"time"

	"github.com/Lappy000/Browser-Agent-AI/pkg/agent"
	"github.com/Lappy000/Browser-Agent-AI/pkg/agent/tools"
	"github.com/Lappy000/Browser-Agent-AI/pkg/types"
)

// constrainedActuator refuses actions that break the run's constraints
// before they reach the browser. Refusals come back as failed results so
// the model can choose another way.
type constrainedActuator struct {
	next agent.Actuator
	cm   *ConstraintManager
}

// Constrain wraps an Actuator with the executor's constraints.
func (e *Executor) Constrain(next agent.Actuator) agent.Actuator {
	return &constrainedActuator{next: next, cm: e.constraintMgr}
}

func (a *constrainedActuator) refuse(kind tools.Kind, url string) (types.ActionResult, bool) {
	if err := a.cm.ValidateAction(kind, url); err != nil {
		return types.Failed("Action refused: " + err.Error()), true
	}
	return types.ActionResult{}, false
}

func (a *constrainedActuator) Navigate(ctx context.Context, url string) types.ActionResult {
	if r, refused := a.refuse(tools.KindNavigate, url); refused {
		return r
	}
	return a.next.Navigate(ctx, url)
}

func (a *constrainedActuator) Click(ctx context.Context, target types.Locator) types.ActionResult {
	if r, refused := a.refuse(tools.KindClick, ""); refused {
		return r
	}
	return a.next.Click(ctx, target)
}

func (a *constrainedActuator) ClickAt(ctx context.Context, x, y int) types.ActionResult {
	if r, refused := a.refuse(tools.KindClickAt, ""); refused {
		return r
	}
	return a.next.ClickAt(ctx, x, y)
}

func (a *constrainedActuator) TypeText(ctx context.Context, target types.Locator, text string, clear bool) types.ActionResult {
	if r, refused := a.refuse(tools.KindTypeText, ""); refused {
		return r
	}
	return a.next.TypeText(ctx, target, text, clear)
}

func (a *constrainedActuator) SelectOption(ctx context.Context, target types.Locator, value string) types.ActionResult {
	if r, refused := a.refuse(tools.KindSelectOption, ""); refused {
		return r
	}
	return a.next.SelectOption(ctx, target, value)
}

func (a *constrainedActuator) Scroll(ctx context.Context, direction string, pixels int) types.ActionResult {
	if r, refused := a.refuse(tools.KindScroll, ""); refused {
		return r
	}
	return a.next.Scroll(ctx, direction, pixels)
}

func (a *constrainedActuator) Wait(ctx context.Context, selector string, timeout time.Duration) types.ActionResult {
	if r, refused := a.refuse(tools.KindWait, ""); refused {
		return r
	}
	return a.next.Wait(ctx, selector, timeout)
}

func (a *constrainedActuator) ExtractData(ctx context.Context, query, format string) types.ActionResult {
	if r, refused := a.refuse(tools.KindExtractData, ""); refused {
		return r
	}
	return a.next.ExtractData(ctx, query, format)
}

func (a *constrainedActuator) GoBack(ctx context.Context) types.ActionResult {
	if r, refused := a.refuse(tools.KindGoBack, ""); refused {
		return r
	}
	return a.next.GoBack(ctx)
}

func (a *constrainedActuator) Refresh(ctx context.Context) types.ActionResult {
	if r, refused := a.refuse(tools.KindRefresh, ""); refused {
		return r
	}
	return a.next.Refresh(ctx)
}

func (a *constrainedActuator) NewTab(ctx context.Context, url string) types.ActionResult {
	dest := url
	if dest == "about:blank" {
		dest = ""
	}
	if r, refused := a.refuse(tools.KindNewTab, dest); refused {
		return r
	}
	return a.next.NewTab(ctx, url)
}
