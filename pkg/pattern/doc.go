// Package pattern scans path and registry patterns.
//
// A pattern is a literal string that may embed regular expression fragments
// delimited by '<' and '>':
//
//	C:\Users\%USERNAME%\AppData\Local\<[Tt]emp>\<.*\.log>
//
// Outside the delimiters the text is literal. Platform tokens such as
// %APPDATA% are kept as-is and never expanded. Delimiters cannot nest, so a
// fragment may not contain '<' or '>' (named capture groups are therefore not
// supported). Fragments must be non-empty and must compile with [regexp].
package pattern
