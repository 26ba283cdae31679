package rule

import (
	"fmt"
	"regexp"
	"slices"
	"time"

	"github.com/invopop/jsonschema"
)

// DateLayout is the layout of [Rule.Update].
const DateLayout = "2006-01-02"

// IDPattern is the pattern every [Rule.ID] must match. It is repeated in the
// `jsonschema` tag of [Rule.ID].
const IDPattern = `^[a-z0-9_]+$`

var idRegexp = regexp.MustCompile(IDPattern)

// ValidID reports whether id matches [IDPattern].
func ValidID(id string) bool {
	return idRegexp.MatchString(id)
}

// DefaultKey is used for [RegistryRule.Key] when none is given.
const DefaultKey = "*"

// Risk is the risk level of removing the software a rule targets.
type Risk string

const (
	RiskDefault Risk = "default"
	RiskHigh    Risk = "high"
)

// Risks lists all valid [Risk] values.
var Risks = []Risk{RiskDefault, RiskHigh}

// Valid reports whether r is a known risk level.
func (r Risk) Valid() bool {
	return slices.Contains(Risks, r)
}

func (Risk) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Title:       "Risk",
		Description: "Risk level of removing the targeted software.",
		Enum:        []any{string(RiskHigh), string(RiskDefault)},
	}
}

// Action is the operation applied to a matched registry entry.
type Action string

const (
	ActionDeleteKey       Action = "delete_key"
	ActionDeleteValue     Action = "delete_value"
	ActionDeleteValueData Action = "delete_value_data"
)

// Actions lists all valid [Action] values.
var Actions = []Action{ActionDeleteKey, ActionDeleteValue, ActionDeleteValueData}

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	return slices.Contains(Actions, a)
}

// NeedsValue reports whether the action operates on a named value.
func (a Action) NeedsValue() bool {
	return a == ActionDeleteValue || a == ActionDeleteValueData
}

func (Action) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:  "string",
		Title: "Action",
		Enum: []any{
			string(ActionDeleteKey),
			string(ActionDeleteValue),
			string(ActionDeleteValueData),
		},
	}
}

// Rule is a single cleanup rule document.
//
// Field order is the order used when a rule is written back to YAML.
//
//nolint:govet // Field order is significant.
type Rule struct {
	// ID uniquely identifies the rule across a rule set.
	ID string `json:"id" jsonschema:"required,title=ID,pattern=^[a-z0-9_]+$"`
	// Name is the display name of the targeted software.
	Name string `json:"name" jsonschema:"required,title=Name,minLength=1"`
	// Risk is the risk level of the cleanup.
	Risk Risk `json:"risk" jsonschema:"required"`
	// SystemInfo lists the supported system tags. Empty means all systems.
	SystemInfo []string `json:"systeminfo,omitempty" jsonschema:"title=Supported Systems"`
	// Update is the date the rule was last reviewed, as YYYY-MM-DD.
	Update string `json:"update" jsonschema:"required,title=Update Date"`
	// Author of the rule.
	Author string `json:"author,omitempty" jsonschema:"title=Author"`
	// Description of the rule.
	Description string `json:"description,omitempty" jsonschema:"title=Description"`
	// Match selects what the cleanup engine removes.
	Match Match `json:"match" jsonschema:"title=Match"`
}

// Match groups the filesystem and registry selectors of a [Rule].
type Match struct {
	// Path lists filesystem path patterns.
	Path []string `json:"path,omitempty" jsonschema:"title=Paths"`
	// Registry lists registry selectors.
	Registry []*RegistryRule `json:"registry,omitempty" jsonschema:"title=Registry"`
}

// RegistryRule selects registry keys or values to remove.
//
//nolint:govet // Field order is significant.
type RegistryRule struct {
	// Path is the registry key path pattern.
	Path string `json:"path" jsonschema:"required,title=Path,minLength=1"`
	// Key is a glob matched against key names.
	Key string `json:"key,omitempty" jsonschema:"title=Key"`
	// Value is a glob matched against value names.
	Value *string `json:"value,omitempty" jsonschema:"title=Value"`
	// ValueData is a glob matched against value data.
	ValueData *string `json:"value_data,omitempty" jsonschema:"title=Value Data"`
	// Action is applied to every match.
	Action Action `json:"action,omitempty"`
}

// UpdateTime parses [Rule.Update].
func (r *Rule) UpdateTime() (time.Time, error) {
	t, err := time.Parse(DateLayout, r.Update)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse update date %q: %w", r.Update, err)
	}

	return t, nil
}

// Clone returns a deep copy of r.
func (r *Rule) Clone() *Rule {
	if r == nil {
		return nil
	}

	c := *r
	c.SystemInfo = slices.Clone(r.SystemInfo)
	c.Match.Path = slices.Clone(r.Match.Path)

	if r.Match.Registry != nil {
		c.Match.Registry = make([]*RegistryRule, len(r.Match.Registry))
		for i, reg := range r.Match.Registry {
			c.Match.Registry[i] = reg.Clone()
		}
	}

	return &c
}

// Clone returns a deep copy of r.
func (r *RegistryRule) Clone() *RegistryRule {
	if r == nil {
		return nil
	}

	c := *r
	if r.Value != nil {
		v := *r.Value
		c.Value = &v
	}
	if r.ValueData != nil {
		v := *r.ValueData
		c.ValueData = &v
	}

	return &c
}

// Ptr returns a pointer to s.
func Ptr(s string) *string {
	return &s
}
