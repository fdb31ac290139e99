// Package engine implements the proctor scenario validation engine.
//
// Given a submitted command, its captured output, a scenario step, and
// the history of commands already tried, the engine decides whether the
// step is satisfied, how much partial credit to award, and what guidance
// to show next.
//
// ARCHITECTURE:
//
// Stateless Decision Function:
// Every entry point is a pure function over its arguments. The engine
// holds no state between calls - rules are derived fresh from the step
// description on each call and carry no identity across calls. This
// ensures:
//   - Reproducible verdicts for identical inputs
//   - No serialization concerns for the caller
//   - Trivial reasoning about concurrent steps (there is nothing shared)
//
// Validation Flow:
//  1. extract.Rules derives a uniform rule list from the step
//  2. Each rule is evaluated against command, output, env, and history
//  3. Per-rule pass/fail aggregates into a weighted score and progress
//  4. Feedback and hints are synthesized from the rule results
//
// The engine is invoked once per command-submission event from a
// serialized UI event loop. Cost is bounded by O(rules x history) over
// interactively sized inputs; there are no suspension points and no I/O.
//
// ERROR MODEL:
//
// The engine never errors for bad content. Missing patterns, failing
// probes, probe panics, and unknown rule kinds all degrade to failed
// rule results carrying a descriptive message. The only error surface is
// programmer-level misuse: malformed rule data (an invalid pattern) fails
// at extraction time as an *extract.AuthoringError.
package engine
