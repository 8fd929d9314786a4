// Package access widens protected overrides whose base method became
// reachable as protected-internal once the inputs share one assembly.
package access

import (
	"weld/internal/metadata"
)

// CopyLookup maps a source member to its copy in the target.
type CopyLookup func(metadata.MemberID) (metadata.MemberID, bool)

type repairer struct {
	arena  *metadata.Arena
	target metadata.ModuleID
	copies CopyLookup
	memo   map[metadata.MemberID]bool
}

// Repair walks every type of the target module, nested ones included, and
// widens each virtual, non-newslot Family method to FamORAssem when some
// ancestor method it overrides is FamORAssem and lives in the target. The
// walk stops at the first such ancestor and skips overridden methods that
// do not qualify. An ancestor outside the target qualifies through its copy
// when copies knows one (a base type that was not merged can still derive
// from one that was). An ancestor that is widened itself counts as
// FamORAssem, so the outcome does not depend on type order. Repair must run
// after duplication fixups so base types point into the target. The widened
// members are returned in visiting order.
func Repair(a *metadata.Arena, target metadata.ModuleID, copies CopyLookup) []metadata.MemberID {
	mod := a.Module(target)
	if mod == nil {
		return nil
	}
	r := &repairer{arena: a, target: target, copies: copies, memo: make(map[metadata.MemberID]bool)}

	var widened []metadata.MemberID
	work := make([]metadata.TypeID, 0, len(mod.Types))
	for i := len(mod.Types) - 1; i >= 0; i-- {
		work = append(work, mod.Types[i])
	}
	var pending []metadata.MemberID
	visited := make(map[metadata.TypeID]struct{}, len(mod.Types))
	for len(work) > 0 {
		tid := work[len(work)-1]
		work = work[:len(work)-1]
		if _, ok := visited[tid]; ok {
			continue
		}
		visited[tid] = struct{}{}
		t := a.Type(tid)
		if t == nil {
			continue
		}
		for _, mid := range t.Members {
			if r.widens(mid) {
				pending = append(pending, mid)
			}
		}
		nested := a.NestedTypes(tid)
		for i := len(nested) - 1; i >= 0; i-- {
			work = append(work, nested[i])
		}
	}
	// решения приняты по исходным уровням доступа, меняем только теперь
	for _, mid := range pending {
		a.Member(mid).Method().Access = metadata.AccessFamORAssem
		widened = append(widened, mid)
	}
	return widened
}

func (r *repairer) widens(mid metadata.MemberID) bool {
	if done, ok := r.memo[mid]; ok {
		return done
	}
	r.memo[mid] = false // цикл наследования не расширяет
	m := r.arena.Member(mid)
	if m.Kind() != metadata.MemberMethod {
		return false
	}
	body := m.Method()
	if !body.IsVirtual() || body.IsNewSlot() || body.Access != metadata.AccessFamily {
		return false
	}
	owner := r.arena.Type(m.DeclaringType)
	if owner == nil {
		return false
	}
	sig := metadata.OverrideSignature(m)
	seen := map[metadata.TypeID]struct{}{}
	for base := owner.BaseType; base.IsValid(); {
		if _, loop := seen[base]; loop {
			return false
		}
		seen[base] = struct{}{}
		bt := r.arena.Type(base)
		if bt == nil {
			return false
		}
		if found, ok := r.overridden(base, m.Name, sig); ok && r.qualifies(found) {
			r.memo[mid] = true
			return true
		}
		base = bt.BaseType
	}
	return false
}

// qualifies reports whether the overridden method found is FamORAssem in
// the target, directly or after its own widening.
func (r *repairer) qualifies(found metadata.MemberID) bool {
	if r.arena.Member(found).Module != r.target {
		copied, ok := r.lookup(found)
		if !ok {
			return false
		}
		found = copied
	}
	switch r.arena.Member(found).Method().Access {
	case metadata.AccessFamORAssem:
		return true
	case metadata.AccessFamily:
		return r.widens(found)
	default:
		return false
	}
}

func (r *repairer) lookup(mid metadata.MemberID) (metadata.MemberID, bool) {
	if r.copies == nil {
		return metadata.NoMemberID, false
	}
	return r.copies(mid)
}

// overridden finds the virtual method in tid that an override with the
// given name and signature would replace.
func (r *repairer) overridden(tid metadata.TypeID, name, sig string) (metadata.MemberID, bool) {
	for _, mid := range r.arena.MembersNamed(tid, name) {
		cand := r.arena.Member(mid)
		if cand.Kind() != metadata.MemberMethod || !cand.Method().IsVirtual() {
			continue
		}
		if metadata.OverrideSignature(cand) == sig {
			return mid, true
		}
	}
	return metadata.NoMemberID, false
}
