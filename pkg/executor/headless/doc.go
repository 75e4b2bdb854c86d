// Package headless runs a single browser task without a human at the
// keyboard, for cron jobs, CI pipelines and scripted scraping.
//
// A run is described by a YAML file:
//
//	task: "Find the current price of the Pro plan on example.com"
//	mode: observe
//	auto_approve: false
//	constraints:
//	  allowed_urls: ["https://example.com/*", "https://*.example.com/*"]
//	  max_tokens: 150000
//	  max_iterations: 25
//	  timeout: 3m
//	artifacts:
//	  enabled: true
//	  output_dir: ./artifacts
//
// The executor plugs into the agent at three points. HandleEvent follows the
// run and feeds the token limit. Confirm stands in for the human behind the
// risk gate and answers with the auto_approve setting. Constrain wraps the
// browser Actuator so that actions outside the run's constraints fail before
// they reach the page:
//
//   - observe mode refuses click, click_at_coordinates, type_text and
//     select_option
//   - allowed_tools limits the tools that may act at all
//   - allowed_urls and denied_urls are glob patterns over destination URLs;
//     denied patterns win
//   - max_tokens stops the run once the backend has used that many tokens
//
// Questions from the model get no answer in a headless run; the agent is
// told so and carries on.
//
// When the task ends the executor writes three artifacts to output_dir:
// execution.json with the full summary and action log, summary.md for
// people, and metrics.json.
package headless
