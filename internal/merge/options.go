package merge

import (
	"fmt"
	"strings"

	"weld/internal/attrs"
	"weld/internal/conflict"
	"weld/internal/diag"
	"weld/internal/metadata"
	"weld/internal/progress"
	"weld/internal/union"
)

// TargetKind selects the output form of the merged module.
type TargetKind uint8

const (
	TargetSameAsPrimary TargetKind = iota
	TargetLibrary
	TargetExe
	TargetWinExe
)

func (k TargetKind) String() string {
	switch k {
	case TargetSameAsPrimary:
		return "same"
	case TargetLibrary:
		return "library"
	case TargetExe:
		return "exe"
	case TargetWinExe:
		return "winexe"
	default:
		return "unknown"
	}
}

// ParseTargetKind converts a flag or config value.
func ParseTargetKind(s string) (TargetKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "same", "same-as-primary":
		return TargetSameAsPrimary, nil
	case "library", "lib", "dll":
		return TargetLibrary, nil
	case "exe", "console":
		return TargetExe, nil
	case "winexe", "windows":
		return TargetWinExe, nil
	default:
		return TargetSameAsPrimary, diag.Fatalf(diag.CfgBadTargetKind, "", "invalid target kind %q (expected: library|exe|winexe|same)", s)
	}
}

// Options are the caller-configurable parameters of one merge.
type Options struct {
	Union bool

	Internalize bool
	Exemptions  *conflict.ExemptionList

	AllowAllDuplicates  bool
	AllowDuplicateNames []string

	AllowZeroPEKind bool

	CopyAttributes  bool
	AllowMultiple   bool
	KeepFirst       bool
	AttributePolicy string            // empty: derived from AllowMultiple
	AttributeFile   metadata.ModuleID // attributes come from this module only

	Closure bool

	TargetKind TargetKind
	OutputName string
	Version    string

	KeyFile      string
	KeyContainer string
	DelaySign    bool

	MaxDiagnostics int
	EnableTimings  bool
	Progress       progress.Sink
}

// allowsDuplicates reports whether any duplicate renaming was requested.
func (o *Options) allowsDuplicates() bool {
	return o.AllowAllDuplicates || len(o.AllowDuplicateNames) > 0
}

// Validate rejects option combinations before any merging starts.
func (o *Options) Validate() error {
	if o.Union {
		if err := union.Validate(o.allowsDuplicates(), o.Internalize); err != nil {
			return err
		}
	}
	if o.AttributeFile.IsValid() && o.CopyAttributes {
		return diag.Fatalf(diag.CfgAttrFileWithCopyAttrs, "", "an attribute file cannot be combined with copying attributes")
	}
	if _, err := o.policy(); err != nil {
		return err
	}
	return nil
}

func (o *Options) policy() (attrs.Policy, error) {
	if o.AttributePolicy != "" {
		p, err := attrs.ParsePolicy(o.AttributePolicy)
		if err != nil {
			return p, diag.Fatalf(diag.CfgBadAttributePolicy, "", "%v", err)
		}
		return p, nil
	}
	if o.AllowMultiple {
		return attrs.AllowMultiple, nil
	}
	return attrs.OverwriteOrAppend, nil
}

func (o *Options) outputKind(primary metadata.ModuleKind) metadata.ModuleKind {
	switch o.TargetKind {
	case TargetLibrary:
		return metadata.KindLibrary
	case TargetExe:
		return metadata.KindConsole
	case TargetWinExe:
		return metadata.KindWindows
	default:
		return primary
	}
}

func (o *Options) String() string {
	return fmt.Sprintf("union=%t internalize=%t allowdup=%t closure=%t target=%s",
		o.Union, o.Internalize, o.allowsDuplicates(), o.Closure, o.TargetKind)
}
