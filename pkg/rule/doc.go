// Package rule defines the in-memory model of cleanup rule documents.
//
// A [Rule] describes the filesystem paths and registry entries belonging to
// one piece of software. Rules are authored as YAML, validated by
// [github.com/macropower/rulepack/pkg/loader], and grouped into a [Set] for
// packing. Path and registry path strings use the `<...>` fragment grammar
// from [github.com/macropower/rulepack/pkg/pattern].
package rule
