// Package rule provides the canonical rule types for the proctor
// validation engine.
//
// This package contains type definitions only. All other internal packages
// import rule; rule imports nothing internal. This keeps rule the
// foundational layer with no circular dependencies.
//
// A Rule is one atomic, independently weighted, pass/fail checkable
// requirement derived from a scenario step. Its behavior lives in the
// Check field, a sealed sum over the four supported kinds:
//
//   - CommandCheck: the learner ran a matching command (single pattern),
//     or ran every command in a list (require-all mode)
//   - OutputCheck: the captured output matches a pattern
//   - StateCheck: a caller-supplied probe over external state holds
//   - SequenceCheck: commands appear in history in a required relative order
//
// Check is a sealed interface using the marker method pattern. Only types
// in this package implement Check. This enables exhaustive type switches
// in the evaluator: adding a new rule kind is a compile-time decision,
// not a silently-ignored default branch.
//
// Patterns are compiled once, when rules are derived from a step. Pattern
// validity is a construction-time concern; evaluation never parses.
package rule
