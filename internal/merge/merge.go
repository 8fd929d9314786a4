// Package merge sequences the merge engines over an ordered input list and
// produces the target module.
package merge

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"weld/internal/access"
	"weld/internal/attrs"
	"weld/internal/closure"
	"weld/internal/conflict"
	"weld/internal/diag"
	"weld/internal/dup"
	"weld/internal/metadata"
	"weld/internal/observ"
	"weld/internal/progress"
	"weld/internal/trace"
	"weld/internal/union"
)

// Result describes a finished merge. On error only Bag is meaningful.
type Result struct {
	Target              metadata.ModuleID
	Inputs              []metadata.ModuleID // roots followed by closure additions
	Bag                 *diag.Bag
	Renamed             []conflict.Rename
	ClosureAdded        []metadata.ModuleID
	Widened             []metadata.MemberID
	StrongNameLost      bool
	DowngradedToLibrary bool
	Timings             *observ.Report
}

type merger struct {
	arena    *metadata.Arena
	opts     Options
	bag      *diag.Bag
	reporter diag.Reporter
	tracer   trace.Tracer
	span     uint64
	timer    *observ.Timer

	target metadata.ModuleID
	dup    *dup.Duplicator
	attrs  *attrs.Merger
	comVis bool
	res    *Result
}

// Run merges inputs into a new module of the arena. inputs[0] is the
// primary assembly. The tracer is taken from ctx.
func Run(ctx context.Context, a *metadata.Arena, inputs []metadata.ModuleID, opts Options) (*Result, error) {
	bag := diag.NewBag(opts.MaxDiagnostics)
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeRun, "merge", trace.ParentFrom(ctx))
	span.WithExtra("options", opts.String())
	defer span.End("")

	m := &merger{
		arena:    a,
		opts:     opts,
		bag:      bag,
		reporter: diag.NewDedupReporter(diag.BagReporter{Bag: bag}),
		tracer:   tracer,
		span:     span.ID(),
		res:      &Result{Bag: bag},
	}
	if opts.EnableTimings {
		m.timer = observ.NewTimer()
	}

	err := m.run(ctx, inputs)
	if err != nil {
		if f, ok := diag.AsFatal(err); ok {
			bag.Add(f.Diagnostic())
		}
		span.WithExtra("error", err.Error())
		return &Result{Bag: bag}, err
	}
	if m.timer != nil {
		report := m.timer.Report()
		m.res.Timings = &report
	}
	return m.res, nil
}

func (m *merger) run(ctx context.Context, inputs []metadata.ModuleID) error {
	if err := m.opts.Validate(); err != nil {
		return err
	}
	if err := m.checkInputs(inputs); err != nil {
		return err
	}
	inputs = slices.Clone(inputs)

	if m.opts.Closure {
		done := m.phase("closure")
		added := closure.Compute(m.arena, inputs)
		for _, id := range added {
			name := m.arena.Module(id).Identity.Name
			diag.ReportInfo(m.reporter, diag.PolClosureAdded, name, "added to satisfy references into merged assemblies").Emit()
		}
		inputs = append(inputs, added...)
		m.res.ClosureAdded = added
		done(fmt.Sprintf("added=%d", len(added)))
	}
	m.res.Inputs = inputs
	for _, id := range inputs {
		progress.Emit(m.opts.Progress, progress.Event{
			Assembly: m.arena.Module(id).Identity.Name,
			Stage:    progress.StageMerge,
			Status:   progress.StatusQueued,
		})
	}

	done := m.phase("pekind")
	pe, err := reconcilePEKind(m.arena, inputs, m.opts.AllowZeroPEKind, m.reporter)
	done("")
	if err != nil {
		return err
	}

	m.createTarget(inputs[0], pe)
	if err := m.mergeInputs(ctx, inputs); err != nil {
		return err
	}

	done = m.phase("fixup")
	m.dup.Fixup()
	done(fmt.Sprintf("types=%d", len(m.dup.Copied())))

	done = m.phase("access")
	m.res.Widened = access.Repair(m.arena, m.target, m.dup.Map.Member)
	for _, mid := range m.res.Widened {
		mem := m.arena.Member(mid)
		trace.Point(m.tracer, trace.ScopeNode, "widen",
			conflict.SubjectOf(m.arena, mem.DeclaringType)+"::"+mem.Name, m.span)
	}
	done(fmt.Sprintf("widened=%d", len(m.res.Widened)))

	if err := m.transferEntryPoint(inputs[0]); err != nil {
		return err
	}
	m.applyStrongName(inputs[0])
	m.res.Target = m.target
	return nil
}

func (m *merger) phase(name string) func(note string) {
	span := trace.Begin(m.tracer, trace.ScopePass, name, m.span)
	end := m.timer.Track(name)
	report := progress.Track(m.opts.Progress, "", progress.Stage(name))
	return func(note string) {
		end(note)
		span.End(note)
		report(nil)
	}
}

func (m *merger) checkInputs(inputs []metadata.ModuleID) error {
	if len(inputs) == 0 {
		return diag.Fatalf(diag.CfgNoInputs, "", "no input assemblies")
	}
	seen := make(map[metadata.ModuleID]struct{}, len(inputs))
	names := make(map[string]struct{}, len(inputs))
	for _, id := range inputs {
		mod := m.arena.Module(id)
		if mod == nil {
			return diag.Fatalf(diag.MrgUnknownInput, "", "input handle %d is not loaded", id)
		}
		key := normalizeName(mod.Identity.Name)
		if _, dupID := seen[id]; dupID {
			return diag.Fatalf(diag.CfgDuplicateInput, mod.Identity.Name, "assembly %q listed twice", mod.Identity.Name)
		}
		if _, dupName := names[key]; dupName {
			return diag.Fatalf(diag.CfgDuplicateInput, mod.Identity.Name, "two inputs are named %q", mod.Identity.Name)
		}
		seen[id] = struct{}{}
		names[key] = struct{}{}
	}
	return nil
}

func (m *merger) createTarget(primaryID metadata.ModuleID, pe metadata.PEKind) {
	primary := m.arena.Module(primaryID)
	id := primary.Identity
	if m.opts.OutputName != "" {
		id.Name = m.opts.OutputName
	}
	if m.opts.Version != "" {
		id.Version = m.opts.Version
	}
	kind := m.opts.outputKind(primary.Kind)

	m.target = m.arena.NewModule(id)
	tmod := m.arena.Module(m.target)
	tmod.MVID = uuid.New().String()
	tmod.Kind = kind
	tmod.PEKind = pe
	m.dup = dup.New(m.arena, m.target, nil)

	policy, _ := m.opts.policy() // validated
	m.attrs = attrs.NewMerger(attrs.Options{
		Policy:           policy,
		KeepFirst:        m.opts.KeepFirst,
		ExecutableTarget: kind.IsExecutable(),
	})

	source := primary
	if m.opts.AttributeFile.IsValid() {
		source = m.arena.Module(m.opts.AttributeFile)
		m.attrs.MergeModule(tmod, source)
	}
	value, explicit := attrs.ComVisible(source.Attributes)
	if explicit {
		tmod.Attributes = append(tmod.Attributes, attrs.ComVisibleAttr(value))
	}
	m.comVis = value
	trace.Point(m.tracer, trace.ScopePass, "target", id.String()+" "+kind.String(), m.span)
}

func (m *merger) mergeInputs(ctx context.Context, inputs []metadata.ModuleID) error {
	done := m.phase("merge")
	defer func() { done(fmt.Sprintf("inputs=%d", len(inputs))) }()

	var (
		engine   *union.Engine
		resolver *conflict.Resolver
	)
	if m.opts.Union {
		engine = union.New(m.arena, m.dup, inputs, m.reporter, m.tracer, m.span)
	} else {
		resolver = conflict.NewResolver(m.arena, m.dup, conflict.Options{
			AllowAll:   m.opts.AllowAllDuplicates,
			AllowNames: m.opts.AllowDuplicateNames,
		}, m.reporter, m.tracer, m.span)
	}

	for i, id := range inputs {
		if err := ctx.Err(); err != nil {
			diag.ReportError(m.reporter, diag.MrgCancelled, m.arena.Module(id).Identity.Name, "merge cancelled").Emit()
			return fmt.Errorf("merge cancelled: %w", err)
		}
		if err := m.mergeOne(i, id, engine, resolver); err != nil {
			return err
		}
	}
	if resolver != nil {
		m.res.Renamed = resolver.Renamed
	}

	tmod := m.arena.Module(m.target)
	if engine != nil {
		tmod.References = slices.Clone(engine.References())
	} else {
		tmod.References = m.externalReferences(inputs)
	}
	return nil
}

func (m *merger) mergeOne(i int, id metadata.ModuleID, engine *union.Engine, resolver *conflict.Resolver) (err error) {
	mod := m.arena.Module(id)
	span := trace.Begin(m.tracer, trace.ScopeAssembly, mod.Identity.Name, m.span)
	report := progress.Track(m.opts.Progress, mod.Identity.Name, progress.StageMerge)
	defer func() { report(err) }()
	before := len(m.dup.Copied())

	if engine != nil {
		engine.Merge(id)
	} else {
		if i > 0 && m.opts.Internalize {
			n := conflict.Internalize(m.arena, id, m.opts.Exemptions, m.reporter)
			span.WithExtra("internalized", fmt.Sprint(n))
		}
		if i > 0 {
			if err := resolver.Resolve(id); err != nil {
				span.End("conflict")
				return err
			}
		}
		m.mergeGlobals(mod)
		for _, tid := range mod.TopLevel() {
			m.dup.Type(tid, metadata.NoTypeID)
		}
		m.copyResources(mod)
	}

	if m.opts.CopyAttributes || (i == 0 && !m.opts.AttributeFile.IsValid()) {
		m.attrs.MergeModule(m.arena.Module(m.target), mod)
	}

	if value, _ := attrs.ComVisible(mod.Attributes); value != m.comVis {
		copied := m.dup.Copied()[before:]
		n := attrs.StampComVisible(m.arena, copied, value)
		span.WithExtra("comvisible", fmt.Sprint(n))
	}

	span.End(fmt.Sprintf("types=%d", len(m.dup.Copied())-before))
	return nil
}

// mergeGlobals appends the members of the global container to the target's
// global container; the container itself is never copied as a type.
func (m *merger) mergeGlobals(mod *metadata.Module) {
	src := mod.GlobalType()
	dst := m.arena.Module(m.target).GlobalType()
	m.dup.Map.SeedType(src, dst)
	members := slices.Clone(m.arena.Type(src).Members)
	for _, mid := range members {
		m.dup.Member(mid, dst)
	}
}

func (m *merger) copyResources(mod *metadata.Module) {
	tmod := m.arena.Module(m.target)
	for _, res := range mod.Resources {
		if tmod.ResourceIndex(res.Name) >= 0 {
			diag.ReportWarning(m.reporter, diag.AnmDuplicateResource, mod.Identity.Name+"!"+res.Name,
				"a resource with this name is already merged; skipped").Emit()
			continue
		}
		res.Data = slices.Clone(res.Data)
		tmod.Resources = append(tmod.Resources, res)
	}
}

// externalReferences collects every reference of the inputs that does not
// point at another input, keeping the first one per simple name.
func (m *merger) externalReferences(inputs []metadata.ModuleID) []metadata.Reference {
	merged := make(map[string]struct{}, len(inputs))
	for _, id := range inputs {
		merged[normalizeName(m.arena.Module(id).Identity.Name)] = struct{}{}
	}
	var refs []metadata.Reference
	seen := make(map[string]struct{})
	for _, id := range inputs {
		for _, ref := range m.arena.Module(id).References {
			key := normalizeName(ref.Identity.Name)
			if _, in := merged[key]; in {
				continue
			}
			if _, dupRef := seen[key]; dupRef {
				continue
			}
			seen[key] = struct{}{}
			refs = append(refs, ref)
		}
	}
	return refs
}
