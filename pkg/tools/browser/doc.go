// Package browser drives a Chromium browser through Playwright on behalf of
// the agent.
//
// A Manager owns the Playwright driver and the browser sessions started
// from it. A Session is the agent's view of one browser context: it
// implements the actuator side (navigate, click, type, scroll, ...) and the
// observer side (structured snapshots and screenshots) of the agent loop.
//
// # Element addressing
//
// Observe returns a snapshot whose elements carry an index and a selector.
// Selectors prefer stable attributes (aria-label, data-testid, id, name);
// when none is unique the element is stamped with a data-agent-index
// attribute. Stamps are cleared on every snapshot, so only the most recent
// snapshot resolves indices correctly.
//
// # Navigation safety
//
// Every navigation target, including new tabs, passes the session's
// urlguard.Validator before reaching the browser. A rejected URL is
// reported as a failed action, not as an error.
//
// # Example Usage
//
//	manager := browser.NewManager()
//	if err := manager.Initialize(); err != nil {
//	    return err
//	}
//	defer manager.Shutdown()
//
//	session, err := manager.StartSession("agent", browser.DefaultOptions(), guard)
//	res := session.Navigate(ctx, "example.com")
//	snap, err := session.Observe(ctx)
package browser
