// Package config loads versioned configuration files.
//
// A [Loader] validates a document against the JSON schema of its kind,
// decodes it into the kind's Go type and applies defaults. Errors point at
// the offending line of the source document.
package config
