// Package union merges assemblies that define the same types by combining
// their members instead of renaming or rejecting the duplicates.
package union

import (
	"slices"

	"weld/internal/diag"
	"weld/internal/dup"
	"weld/internal/metadata"
	"weld/internal/trace"
)

type pair struct {
	src, dst metadata.TypeID
}

// Engine carries the state one union merge accumulates across inputs:
// recorded member signatures per target type, tracked external references
// and the names of resources already added.
type Engine struct {
	arena     *metadata.Arena
	dup       *dup.Duplicator
	merged    map[string]struct{}
	sigs      map[metadata.TypeID]map[string]struct{}
	refs      []metadata.Reference
	resources map[string]struct{}
	count     int
	reporter  diag.Reporter
	tracer    trace.Tracer
	span      uint64
}

// New creates an engine writing through d. inputs are every assembly taking
// part in the merge; references to them are never tracked as external.
func New(a *metadata.Arena, d *dup.Duplicator, inputs []metadata.ModuleID, r diag.Reporter, t trace.Tracer, span uint64) *Engine {
	merged := make(map[string]struct{}, len(inputs))
	for _, id := range inputs {
		merged[metadata.FoldName(a.Module(id).Identity.Name)] = struct{}{}
	}
	if r == nil {
		r = diag.NopReporter{}
	}
	if t == nil {
		t = trace.Nop
	}
	return &Engine{
		arena:     a,
		dup:       d,
		merged:    merged,
		sigs:      make(map[metadata.TypeID]map[string]struct{}),
		resources: make(map[string]struct{}),
		reporter:  r,
		tracer:    t,
		span:      span,
	}
}

// Merge folds one input into the target. Inputs must be merged in order.
func (e *Engine) Merge(src metadata.ModuleID) {
	mod := e.arena.Module(src)
	target := e.dup.Target()
	first := e.count == 0
	e.count++

	// глобальный контейнер никогда не копируется как тип, только его члены
	srcGlobal, dstGlobal := mod.GlobalType(), e.arena.Module(target).GlobalType()
	e.dup.Map.SeedType(srcGlobal, dstGlobal)
	e.forwardMembers(srcGlobal, dstGlobal)

	var matched []pair
	if first {
		for _, ct := range mod.TopLevel() {
			e.dup.Type(ct, metadata.NoTypeID)
		}
	} else {
		var fresh []metadata.TypeID
		matched, fresh = e.forward(src, target)
		for _, ct := range fresh {
			e.dup.Type(ct, metadata.NoTypeID)
		}
	}
	matched = append([]pair{{srcGlobal, dstGlobal}}, matched...)
	e.mergeMembers(matched)

	e.mergeReferences(mod, first)
	e.mergeResources(src)
}

// forward seeds the duplicate map so that every top-level type of src that
// has a same-named counterpart in dst, and every structurally matching
// member of such a type, is redirected instead of copied. It returns the
// matched pairs and the types without a counterpart.
func (e *Engine) forward(src, dst metadata.ModuleID) (matched []pair, fresh []metadata.TypeID) {
	for _, ct := range e.arena.Module(src).TopLevel() {
		t := e.arena.Type(ct)
		tt := e.arena.FindType(dst, t.Namespace, t.Name)
		if !tt.IsValid() {
			fresh = append(fresh, ct)
			continue
		}
		e.dup.Map.SeedType(ct, tt)
		matched = append(matched, pair{ct, tt})
		e.forwardMembers(ct, tt)
	}
	return matched, fresh
}

// forwardMembers seeds member matches of ct in tt, descending into nested
// types that match by name.
func (e *Engine) forwardMembers(ct, tt metadata.TypeID) {
	stack := []pair{{ct, tt}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, mid := range e.arena.Type(p.src).Members {
			match := e.findMatch(p.dst, mid)
			if !match.IsValid() {
				continue
			}
			e.dup.Map.SeedMember(mid, match)
			srcNested := e.arena.Member(mid).Nested()
			dstNested := e.arena.Member(match).Nested()
			if srcNested.IsValid() && dstNested.IsValid() && e.dup.Map.SeedType(srcNested, dstNested) {
				stack = append(stack, pair{srcNested, dstNested})
			}
		}
	}
}

func (e *Engine) findMatch(tt metadata.TypeID, mid metadata.MemberID) metadata.MemberID {
	m := e.arena.Member(mid)
	for _, candidate := range e.arena.MembersNamed(tt, m.Name) {
		if metadata.StructurallyEqual(m, e.arena.Member(candidate)) {
			return candidate
		}
	}
	return metadata.NoMemberID
}

// mergeMembers appends the members of each matched source type whose
// signature the target type has not recorded yet. Matched nested types are
// merged the same way.
func (e *Engine) mergeMembers(work []pair) {
	stack := slices.Clone(work)
	slices.Reverse(stack)
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		recorded := e.signatures(p.dst)
		members := slices.Clone(e.arena.Type(p.src).Members)
		var nested []pair
		for _, mid := range members {
			sig := metadata.SignatureID(e.arena.Member(mid))
			if _, ok := recorded[sig]; ok {
				srcNested := e.arena.Member(mid).Nested()
				if dstNested, mapped := e.dup.Map.Type(srcNested); srcNested.IsValid() && mapped {
					nested = append(nested, pair{srcNested, dstNested})
				}
				continue
			}
			e.dup.Member(mid, p.dst)
			recorded[sig] = struct{}{}
		}
		slices.Reverse(nested)
		stack = append(stack, nested...)
	}
}

// signatures returns the recorded signature set of a target type, building
// it from the type's current members the first time it is asked for.
func (e *Engine) signatures(tt metadata.TypeID) map[string]struct{} {
	if rec, ok := e.sigs[tt]; ok {
		return rec
	}
	members := e.arena.Type(tt).Members
	rec := make(map[string]struct{}, len(members))
	for _, mid := range members {
		rec[metadata.SignatureID(e.arena.Member(mid))] = struct{}{}
	}
	e.sigs[tt] = rec
	return rec
}

// mergeReferences tracks external references. A later reference with the
// same simple name as a tracked one is unified with it by forwarding its
// type graph onto the tracked assembly's.
func (e *Engine) mergeReferences(mod *metadata.Module, first bool) {
	for _, ref := range mod.References {
		if _, ok := e.merged[metadata.FoldName(ref.Identity.Name)]; ok {
			continue
		}
		idx := slices.IndexFunc(e.refs, func(r metadata.Reference) bool { return r.Identity.SameName(ref.Identity) })
		if idx < 0 {
			e.refs = append(e.refs, ref)
			continue
		}
		if first {
			continue
		}
		tracked := e.refs[idx]
		if ref.Module.IsValid() && tracked.Module.IsValid() && ref.Module != tracked.Module {
			e.forward(ref.Module, tracked.Module)
			trace.Point(e.tracer, trace.ScopeAssembly, "unify-reference",
				ref.Identity.String()+" -> "+tracked.Identity.String(), e.span)
		}
	}
}

func (e *Engine) mergeResources(src metadata.ModuleID) {
	mod := e.arena.Module(src)
	target := e.arena.Module(e.dup.Target())
	for _, res := range mod.Resources {
		if _, seen := e.resources[res.Name]; seen {
			diag.ReportInfo(e.reporter, diag.PolResourceDropped, mod.Identity.Name+"!"+res.Name,
				"resource with the same name already merged").Emit()
			trace.Point(e.tracer, trace.ScopeNode, "resource-dropped", mod.Identity.Name+"!"+res.Name, e.span)
			continue
		}
		e.resources[res.Name] = struct{}{}
		res.Data = slices.Clone(res.Data)
		target.Resources = append(target.Resources, res)
	}
}

// References returns the tracked external references in first-seen order.
func (e *Engine) References() []metadata.Reference { return e.refs }

// Validate reports the option combinations union merging cannot honour.
func Validate(allowDup, internalize bool) error {
	if allowDup {
		return diag.Fatalf(diag.CfgUnionWithAllowDup, "", "union merge cannot be combined with allowing duplicate types")
	}
	if internalize {
		return diag.Fatalf(diag.CfgUnionWithInternalize, "", "union merge cannot be combined with internalizing")
	}
	return nil
}
