package merge

import (
	"strings"

	"weld/internal/diag"
	"weld/internal/metadata"
)

// reconcilePEKind checks that every input is IL-only and that at most one
// machine-specific bit pattern occurs. The first input seeds the result.
func reconcilePEKind(a *metadata.Arena, inputs []metadata.ModuleID, allowZero bool, r diag.Reporter) (metadata.PEKind, error) {
	var (
		kind    metadata.PEKind
		machine metadata.PEKind
		owner   string
	)
	for i, id := range inputs {
		mod := a.Module(id)
		pe := mod.PEKind
		if pe&metadata.PEILOnly == 0 {
			if !allowZero {
				return 0, diag.Fatalf(diag.MrgPEKindNotILOnly, mod.Identity.Name,
					"assembly %q is not marked IL-only (%s)", mod.Identity.Name, peLabel(pe))
			}
			pe |= metadata.PEILOnly
			diag.ReportInfo(r, diag.PolZeroPEKindForced, mod.Identity.Name, "treated as IL-only").Emit()
		}
		if i == 0 {
			kind = pe
		}
		if bits := pe & metadata.PEMachineMask; bits != 0 {
			switch {
			case machine == 0:
				machine, owner = bits, mod.Identity.Name
			case machine != bits:
				return 0, diag.Fatalf(diag.MrgPEKindIncompatible, mod.Identity.Name,
					"assembly %q targets %s but %q targets %s", mod.Identity.Name, peLabel(bits), owner, peLabel(machine))
			}
		}
	}
	return kind&^metadata.PEMachineMask | metadata.PEILOnly | machine, nil
}

func peLabel(k metadata.PEKind) string {
	labels := k.Strings()
	if len(labels) == 0 {
		return "none"
	}
	return strings.Join(labels, "|")
}
