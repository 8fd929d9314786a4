package merge

import (
	"weld/internal/diag"
	"weld/internal/metadata"
)

// transferEntryPoint moves the primary's entry point to its copy. An
// executable target without one is downgraded to a library.
func (m *merger) transferEntryPoint(primaryID metadata.ModuleID) error {
	tmod := m.arena.Module(m.target)
	if !tmod.Kind.IsExecutable() {
		return nil
	}
	primary := m.arena.Module(primaryID)
	if !primary.EntryPoint.IsValid() {
		tmod.Kind = metadata.KindLibrary
		m.res.DowngradedToLibrary = true
		diag.ReportInfo(m.reporter, diag.PolDowngradedToLibrary, primary.Identity.Name,
			"primary assembly has no entry point; output is a library").Emit()
		return nil
	}
	mapped, ok := m.dup.Map.Member(primary.EntryPoint)
	if !ok {
		ep := m.arena.Member(primary.EntryPoint)
		return diag.Fatalf(diag.MrgEntryPointLost, primary.Identity.Name,
			"entry point %q of %q was not copied into the target", ep.Name, primary.Identity.Name)
	}
	tmod.EntryPoint = mapped
	return nil
}

// applyStrongName picks the signing source: key file, then key container.
// Without either the primary's strong name cannot be kept.
func (m *merger) applyStrongName(primaryID metadata.ModuleID) {
	tmod := m.arena.Module(m.target)
	primary := m.arena.Module(primaryID)
	switch {
	case m.opts.KeyFile != "":
		tmod.Signing = metadata.Signing{Source: metadata.SignKeyFile, KeyFile: m.opts.KeyFile, Delay: m.opts.DelaySign}
	case m.opts.KeyContainer != "":
		tmod.Signing = metadata.Signing{Source: metadata.SignKeyContainer, Container: m.opts.KeyContainer, Delay: m.opts.DelaySign}
	default:
		tmod.Signing = metadata.Signing{}
		if primary.Signing.Source != metadata.SignNone || primary.Identity.PublicKeyToken != "" {
			m.res.StrongNameLost = true
			diag.ReportInfo(m.reporter, diag.PolStrongNameLost, primary.Identity.Name,
				"primary assembly is strong-named but no key was given; output is unsigned").Emit()
		}
	}
	// токен пересчитывает тот, кто подписывает
	tmod.Identity.PublicKeyToken = ""
}

func normalizeName(name string) string { return metadata.FoldName(name) }
