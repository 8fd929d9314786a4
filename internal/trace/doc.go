// Package trace records what a merge run did, pass by pass and assembly by
// assembly, for runs that behave unexpectedly or hang.
//
// A Tracer travels in the context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "closure", trace.ParentFrom(ctx))
//	defer span.End("")
//
// Levels filter by Scope: phase keeps runs and passes, detail adds
// assemblies, debug adds single types and members (renames, widened
// overrides, skipped resources).
//
// In ring mode nothing is written while the run succeeds; the command
// dumps the buffer only when the run fails.
package trace
