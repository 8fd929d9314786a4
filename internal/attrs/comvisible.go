package attrs

import (
	"strconv"
	"strings"

	"weld/internal/metadata"
)

// ComVisible returns the effective ComVisible value of an attribute list
// and whether it is set explicitly. Absent means visible.
func ComVisible(list []metadata.Attribute) (value, explicit bool) {
	for _, a := range list {
		if !a.Is(metadata.ComVisibleAttribute) || len(a.Args) == 0 {
			continue
		}
		v, err := strconv.ParseBool(strings.TrimSpace(a.Args[0]))
		if err != nil {
			continue
		}
		return v, true
	}
	return true, false
}

// ComVisibleAttr builds an explicit ComVisible attribute.
func ComVisibleAttr(value bool) metadata.Attribute {
	return metadata.Attribute{Type: metadata.ComVisibleAttribute, Args: []string{strconv.FormatBool(value)}}
}

// StampComVisible gives every public type in types, and every public type
// nested in them at any depth, an explicit ComVisible(value) unless it
// carries one of its own, so it does not inherit a differing assembly-level
// default. It returns the number stamped.
func StampComVisible(a *metadata.Arena, types []metadata.TypeID, value bool) int {
	stamped := 0
	work := make([]metadata.TypeID, 0, len(types))
	for i := len(types) - 1; i >= 0; i-- {
		work = append(work, types[i])
	}
	seen := make(map[metadata.TypeID]struct{}, len(types))
	for len(work) > 0 {
		tid := work[len(work)-1]
		work = work[:len(work)-1]
		if _, ok := seen[tid]; ok {
			continue
		}
		seen[tid] = struct{}{}
		t := a.Type(tid)
		if t == nil {
			continue
		}
		nested := a.NestedTypes(tid)
		for i := len(nested) - 1; i >= 0; i-- {
			work = append(work, nested[i])
		}
		if !t.IsPublic() || metadata.HasAttribute(t.Attributes, metadata.ComVisibleAttribute) {
			continue
		}
		t.Attributes = append(t.Attributes, ComVisibleAttr(value))
		stamped++
	}
	return stamped
}
