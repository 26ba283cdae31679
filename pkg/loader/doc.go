// Package loader discovers, decodes and validates rule documents.
//
// Every `*.yaml` and `*.yml` file below the root directory is one rule
// document. Files are checked concurrently, first against the JSON schema
// reflected from [rule.Rule] and then by semantic checks (dates, registry
// actions, pattern fragments). All validation problems are collected and
// returned together as [*Errors]; filesystem failures abort immediately.
//
// Directory names below the root are purely organizational and are not
// recorded anywhere.
package loader
