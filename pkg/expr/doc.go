// Package expr provides CEL (Common Expression Language) filters over rules.
//
// Filter expressions have access to variables:
//   - `id` (string): Rule id
//   - `name` (string): Rule display name
//   - `risk` (string): "high" or "default"
//   - `update` (string): Last update date, YYYY-MM-DD
//   - `systeminfo` (list<string>): Supported system tags
//   - `paths` (list<string>): Path patterns
//   - `registry` (list<string>): Registry path patterns
//
// Summaries built from a container index only carry `id`, `name` and `risk`;
// the other variables are empty there.
//
// Additional functions:
//   - date(string): Parses a YYYY-MM-DD date into a timestamp
//   - isLiteral(string): Reports whether a pattern has no regex fragments
//   - fragments(string): Returns the regex fragments of a pattern
package expr
