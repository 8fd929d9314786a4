// Package attrs merges assembly-level, module-level and security attribute
// lists of the inputs into the target.
package attrs

import (
	"fmt"
	"slices"
	"strings"

	"weld/internal/metadata"
)

// Policy selects how a source attribute is combined with the target list.
type Policy uint8

const (
	// OverwriteOrAppend replaces an attribute of the same declared type, or
	// appends when there is none.
	OverwriteOrAppend Policy = iota
	// Union appends unless an attribute of the same declared type with the
	// same constructor arguments (in any order) is already present.
	Union
	// AllowMultiple appends attributes whose type permits multiple
	// instances without deduplication; others fall back to OverwriteOrAppend.
	AllowMultiple
)

func (p Policy) String() string {
	switch p {
	case OverwriteOrAppend:
		return "overwrite-or-append"
	case Union:
		return "union"
	case AllowMultiple:
		return "allow-multiple"
	default:
		return "unknown"
	}
}

// ParsePolicy converts a configuration value to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "overwrite", "overwrite-or-append":
		return OverwriteOrAppend, nil
	case "union":
		return Union, nil
	case "allow-multiple", "multiple":
		return AllowMultiple, nil
	default:
		return OverwriteOrAppend, fmt.Errorf("invalid attribute policy: %q (expected: union|allow-multiple|overwrite-or-append)", s)
	}
}

// Options configure a Merger.
type Options struct {
	Policy           Policy
	KeepFirst        bool // overwrite-or-append leaves the existing attribute alone
	ExecutableTarget bool // drop partial-trust/transparency attributes
}

// Merger applies one policy to attribute lists.
type Merger struct {
	opts Options
}

// NewMerger creates a Merger.
func NewMerger(opts Options) *Merger { return &Merger{opts: opts} }

// Options returns the configured options.
func (m *Merger) Options() Options { return m.opts }

var executableDropped = []metadata.TypeRef{
	metadata.AllowPartiallyTrustedCallersAttribute,
	metadata.SecurityCriticalAttribute,
	metadata.SecurityTransparentAttribute,
	metadata.SecurityRulesAttribute,
}

// Keep is the pre-filter every source attribute passes before any policy:
// ComVisible is handled separately, and the transparency attributes never
// reach an executable target.
func (m *Merger) Keep(a metadata.Attribute) bool {
	if a.Is(metadata.ComVisibleAttribute) {
		return false
	}
	if m.opts.ExecutableTarget && slices.ContainsFunc(executableDropped, a.Is) {
		return false
	}
	return true
}

// MergeList folds source into target and returns the new target list.
func (m *Merger) MergeList(target, source []metadata.Attribute) []metadata.Attribute {
	for _, a := range source {
		if !m.Keep(a) {
			continue
		}
		target = m.mergeOne(target, a.Clone())
	}
	return target
}

func (m *Merger) mergeOne(target []metadata.Attribute, a metadata.Attribute) []metadata.Attribute {
	switch m.opts.Policy {
	case Union:
		if slices.ContainsFunc(target, func(t metadata.Attribute) bool { return sameInstance(t, a) }) {
			return target
		}
		return append(target, a)
	case AllowMultiple:
		if a.AllowMultiple {
			return append(target, a)
		}
	}
	idx := slices.IndexFunc(target, func(t metadata.Attribute) bool { return t.Type.FuzzyEqual(a.Type) })
	if idx < 0 {
		return append(target, a)
	}
	if !m.opts.KeepFirst {
		target[idx] = a
	}
	return target
}

// sameInstance compares declared type and the multiset of constructor
// argument expressions.
func sameInstance(x, y metadata.Attribute) bool {
	if !x.Type.FuzzyEqual(y.Type) || len(x.Args) != len(y.Args) {
		return false
	}
	a, b := slices.Clone(x.Args), slices.Clone(y.Args)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b)
}

// MergeSecurity folds source permission sets into target. Sets sharing an
// action are merged permission by permission with the same policy.
func (m *Merger) MergeSecurity(target, source []metadata.SecurityAttribute) []metadata.SecurityAttribute {
	for _, sa := range source {
		idx := slices.IndexFunc(target, func(t metadata.SecurityAttribute) bool { return t.Action == sa.Action })
		if idx < 0 {
			perms := m.MergeList(nil, sa.Permissions)
			if len(perms) == 0 {
				continue
			}
			target = append(target, metadata.SecurityAttribute{Action: sa.Action, Permissions: perms})
			continue
		}
		target[idx].Permissions = m.MergeList(target[idx].Permissions, sa.Permissions)
	}
	return target
}

// MergeModule merges the three attribute lists of src into dst.
func (m *Merger) MergeModule(dst, src *metadata.Module) {
	dst.Attributes = m.MergeList(dst.Attributes, src.Attributes)
	dst.ModuleAttributes = m.MergeList(dst.ModuleAttributes, src.ModuleAttributes)
	dst.Security = m.MergeSecurity(dst.Security, src.Security)
}
