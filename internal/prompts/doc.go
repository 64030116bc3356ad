// Package prompts evaluates user-supplied questions and compliance
// conditions against a job's extracted document text. Evaluation is
// best-effort: a prompt that cannot be answered produces a failed result,
// never a failed job.
package prompts
