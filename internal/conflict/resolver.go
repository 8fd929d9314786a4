// Package conflict keeps top-level type names unique in the merge target
// when assemblies are merged without union semantics.
package conflict

import (
	"fmt"
	"strings"

	"weld/internal/diag"
	"weld/internal/dup"
	"weld/internal/metadata"
	"weld/internal/trace"
)

// Options control which collisions may be resolved by renaming.
type Options struct {
	AllowAll   bool     // rename every colliding type
	AllowNames []string // rename only these names (simple or full)
}

// Rename records one resolved collision.
type Rename struct {
	Assembly string
	Old      string
	New      string
}

// Resolver detects and renames colliding top-level types of one input
// against the current target.
type Resolver struct {
	arena    *metadata.Arena
	dup      *dup.Duplicator
	opts     Options
	allow    map[string]struct{}
	reporter diag.Reporter
	tracer   trace.Tracer
	span     uint64

	Renamed []Rename
}

// NewResolver binds a resolver to the duplicator that writes the target.
func NewResolver(a *metadata.Arena, d *dup.Duplicator, opts Options, r diag.Reporter, t trace.Tracer, span uint64) *Resolver {
	allow := make(map[string]struct{}, len(opts.AllowNames))
	for _, name := range opts.AllowNames {
		allow[name] = struct{}{}
	}
	if r == nil {
		r = diag.NopReporter{}
	}
	if t == nil {
		t = trace.Nop
	}
	return &Resolver{arena: a, dup: d, opts: opts, allow: allow, reporter: r, tracer: t, span: span}
}

// Resolve renames every top-level type of src that collides with a type
// already in the target, or fails with MrgDuplicateType when the collision
// is not allowed to be renamed.
func (r *Resolver) Resolve(src metadata.ModuleID) error {
	mod := r.arena.Module(src)
	target := r.dup.Target()
	for _, tid := range mod.TopLevel() {
		t := r.arena.Type(tid)
		existing := r.arena.FindType(target, t.Namespace, t.Name)
		if !existing.IsValid() {
			continue
		}
		if existing == tid {
			continue
		}
		if mapped, ok := r.dup.Map.Type(tid); ok && mapped == existing {
			continue
		}
		if !r.renamable(t) {
			return diag.Fatalf(diag.MrgDuplicateType, mod.Identity.Name+"!"+t.FullName(),
				"duplicate type %q found in assembly %q; mark it non-public or allow duplicates for it",
				t.FullName(), mod.Identity.Name)
		}
		r.rename(mod, tid, existing)
	}
	return nil
}

func (r *Resolver) renamable(t *metadata.Type) bool {
	if !t.IsPublic() || r.opts.AllowAll {
		return true
	}
	if _, ok := r.allow[t.Name]; ok {
		return true
	}
	_, ok := r.allow[t.FullName()]
	return ok
}

func (r *Resolver) rename(mod *metadata.Module, tid, kept metadata.TypeID) {
	t := r.arena.Type(tid)
	oldFull := t.FullName()
	var name string
	if t.IsCompilerGenerated() {
		name = fmt.Sprintf("%s.%s", mod.Identity.Name, t.Name)
	} else {
		name = fmt.Sprintf("%s%d.%s", mod.Identity.Name, mod.UniqueKey, t.Name)
	}
	// уже скопированный тип переименовываем в target, иначе исходный узел
	node := tid
	if mapped, ok := r.dup.Map.Type(tid); ok {
		node = mapped
	}
	r.arena.RenameType(node, name)
	newFull := r.arena.Type(node).FullName()
	r.Renamed = append(r.Renamed, Rename{Assembly: mod.Identity.Name, Old: oldFull, New: newFull})

	subject := mod.Identity.Name + "!" + oldFull
	keptIn := r.arena.Module(r.arena.Type(kept).Module).Identity.Name
	diag.ReportInfo(r.reporter, diag.PolTypeRenamed, subject, fmt.Sprintf("renamed to %q", newFull)).
		WithNote(keptIn+"!"+r.arena.Type(kept).FullName(), "keeps the original name").
		Emit()
	trace.Point(r.tracer, trace.ScopeNode, "rename", oldFull+" -> "+newFull, r.span)

	r.renameResource(mod, oldFull, newFull)
}

func (r *Resolver) renameResource(mod *metadata.Module, oldFull, newFull string) {
	oldName := oldFull + ".resources"
	idx := mod.ResourceIndex(oldName)
	if idx < 0 {
		diag.ReportWarning(r.reporter, diag.AnmResourceNotFound, mod.Identity.Name+"!"+oldFull,
			fmt.Sprintf("no resource %q to rename; skipped", oldName)).Emit()
		return
	}
	mod.Resources[idx].Name = newFull + ".resources"
}

// Internalize clears the public flag of every top-level type of src that
// is not exempt. It returns the number of types changed.
func Internalize(a *metadata.Arena, src metadata.ModuleID, exempt *ExemptionList, r diag.Reporter) int {
	mod := a.Module(src)
	changed := 0
	for _, tid := range mod.TopLevel() {
		t := a.Type(tid)
		if !t.IsPublic() || exempt.Exempt(mod.Identity.Name, t.FullName()) {
			continue
		}
		t.Flags &^= metadata.TypeFlagPublic
		changed++
		if r != nil {
			r.Report(diag.PolTypeInternalized, diag.SevInfo, mod.Identity.Name+"!"+t.FullName(), "made non-public", nil)
		}
	}
	return changed
}

// SubjectOf formats "Asm!Ns.Type" for diagnostics.
func SubjectOf(a *metadata.Arena, tid metadata.TypeID) string {
	t := a.Type(tid)
	if t == nil {
		return ""
	}
	mod := a.Module(t.Module)
	var sb strings.Builder
	if mod != nil {
		sb.WriteString(mod.Identity.Name)
		sb.WriteByte('!')
	}
	sb.WriteString(t.FullName())
	return sb.String()
}
