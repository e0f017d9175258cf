// Package prompts contains the LLM prompt templates used by the action
// pipeline.
//
// Prompt text is Go code rather than config files because it is program
// logic: templates use fmt.Sprintf interpolation and can be validated by
// tests.
//
// Convention: each prompt category gets its own file (classify.go,
// extraction.go, query.go) with an exported function that accepts the
// dynamic parts and returns the fully interpolated prompt string.
package prompts
