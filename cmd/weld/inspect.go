package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"weld/internal/diagfmt"
	"weld/internal/image"
	"weld/internal/metadata"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [flags] <file.wmod>",
	Short: "Summarize a module image",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().String("format", "text", "output format (text|yaml)")
	inspectCmd.Flags().Bool("members", false, "list members of every type")
}

type imageSummary struct {
	Assembly   string            `yaml:"assembly"`
	MVID       string            `yaml:"mvid,omitempty"`
	Kind       string            `yaml:"kind"`
	PEKind     []string          `yaml:"pekind,flow"`
	EntryPoint string            `yaml:"entry_point,omitempty"`
	Signing    string            `yaml:"signing,omitempty"`
	References []string          `yaml:"references,omitempty"`
	Attributes []string          `yaml:"attributes,omitempty"`
	Resources  []resourceSummary `yaml:"resources,omitempty"`
	Types      []typeSummary     `yaml:"types"`
}

type resourceSummary struct {
	Name   string `yaml:"name"`
	Size   int    `yaml:"size"`
	Public bool   `yaml:"public"`
}

type typeSummary struct {
	Name    string   `yaml:"name"`
	Flags   []string `yaml:"flags,flow,omitempty"`
	Base    string   `yaml:"base,omitempty"`
	Members []string `yaml:"members,omitempty"`
	count   int
}

func runInspect(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	withMembers, err := cmd.Flags().GetBool("members")
	if err != nil {
		return fmt.Errorf("failed to get members flag: %w", err)
	}
	img, err := image.ReadFile(args[0])
	if err != nil {
		return err
	}
	a := metadata.NewArena(metadata.Hints{Modules: 1})
	mid, links := img.Register(a)
	sum := summarize(a, mid, links, withMembers)

	switch strings.ToLower(format) {
	case "yaml":
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(sum); err != nil {
			return err
		}
		return enc.Close()
	case "text":
		return renderSummaryText(cmd.OutOrStdout(), sum, withMembers)
	default:
		return fmt.Errorf("unsupported format %q (must be text or yaml)", format)
	}
}

// summarize describes a registered image. Links into other assemblies are
// not resolved; their names come from the pending links.
func summarize(a *metadata.Arena, mid metadata.ModuleID, links []image.Link, withMembers bool) imageSummary {
	mod := a.Module(mid)
	external := make(map[metadata.TypeID]string)
	for _, l := range links {
		if l.Kind == image.LinkBaseType {
			external[l.Type] = "[" + l.Assembly + "]" + l.Target
		}
	}
	sum := imageSummary{
		Assembly: mod.Identity.String(),
		MVID:     mod.MVID,
		Kind:     mod.Kind.String(),
		PEKind:   mod.PEKind.Strings(),
	}
	if ep := a.Member(mod.EntryPoint); ep != nil {
		sum.EntryPoint = a.Type(ep.DeclaringType).FullName() + "::" + ep.Name
	}
	switch mod.Signing.Source {
	case metadata.SignKeyFile:
		sum.Signing = "keyfile " + mod.Signing.KeyFile
	case metadata.SignKeyContainer:
		sum.Signing = "container " + mod.Signing.Container
	}
	if sum.Signing != "" && mod.Signing.Delay {
		sum.Signing += " (delay)"
	}
	for _, ref := range mod.References {
		sum.References = append(sum.References, ref.Identity.String())
	}
	for _, at := range mod.Attributes {
		sum.Attributes = append(sum.Attributes, formatAttribute(at))
	}
	for _, r := range mod.Resources {
		sum.Resources = append(sum.Resources, resourceSummary{Name: r.Name, Size: len(r.Data), Public: r.Public})
	}

	var walk func(tid metadata.TypeID, prefix string)
	walk = func(tid metadata.TypeID, prefix string) {
		t := a.Type(tid)
		ts := typeSummary{Name: prefix + t.FullName(), Flags: t.Flags.Strings(), count: len(t.Members)}
		if base := a.Type(t.BaseType); base != nil {
			ts.Base = base.FullName()
		} else if ext, ok := external[tid]; ok {
			ts.Base = ext
		}
		if withMembers {
			for _, m := range t.Members {
				ts.Members = append(ts.Members, formatMember(a.Member(m)))
			}
		}
		sum.Types = append(sum.Types, ts)
		for _, nt := range a.NestedTypes(tid) {
			walk(nt, ts.Name+"/")
		}
	}
	for _, tid := range mod.Types {
		walk(tid, "")
	}
	return sum
}

func renderSummaryText(w io.Writer, sum imageSummary, withMembers bool) error {
	rows := [][]string{
		{"assembly", sum.Assembly},
		{"kind", sum.Kind},
		{"pekind", strings.Join(sum.PEKind, ",")},
	}
	if sum.MVID != "" {
		rows = append(rows, []string{"mvid", sum.MVID})
	}
	if sum.EntryPoint != "" {
		rows = append(rows, []string{"entry", sum.EntryPoint})
	}
	if sum.Signing != "" {
		rows = append(rows, []string{"signing", sum.Signing})
	}
	for _, r := range sum.References {
		rows = append(rows, []string{"reference", r})
	}
	for _, at := range sum.Attributes {
		rows = append(rows, []string{"attribute", at})
	}
	for _, r := range sum.Resources {
		rows = append(rows, []string{"resource", r.Name + " (" + strconv.Itoa(r.Size) + " bytes)"})
	}
	if err := diagfmt.Table(w, nil, rows); err != nil {
		return err
	}
	fmt.Fprintln(w)

	typeRows := make([][]string, 0, len(sum.Types))
	for _, t := range sum.Types {
		typeRows = append(typeRows, []string{
			diagfmt.Truncate(t.Name, 60),
			strings.Join(t.Flags, ","),
			strconv.Itoa(t.count),
			t.Base,
		})
	}
	if err := diagfmt.Table(w, []string{"TYPE", "FLAGS", "MEMBERS", "BASE"}, typeRows); err != nil {
		return err
	}
	if !withMembers {
		return nil
	}
	for _, t := range sum.Types {
		if len(t.Members) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s:\n", t.Name)
		for _, m := range t.Members {
			fmt.Fprintf(w, "  %s\n", m)
		}
	}
	return nil
}

func formatAttribute(at metadata.Attribute) string {
	if len(at.Args) == 0 {
		return at.Type.String()
	}
	return at.Type.String() + "(" + strings.Join(at.Args, ", ") + ")"
}

func formatMember(m *metadata.Member) string {
	switch b := m.Body.(type) {
	case *metadata.Method:
		return fmt.Sprintf("%s %s", b.Access, metadata.SignatureID(m))
	case *metadata.Field:
		static := ""
		if b.Static {
			static = " static"
		}
		return fmt.Sprintf("%s%s field %s %s", b.Access, static, b.Type, m.Name)
	case *metadata.Property:
		return fmt.Sprintf("property %s %s", b.Type, m.Name)
	case *metadata.Event:
		return fmt.Sprintf("event %s %s", b.Handler, m.Name)
	default:
		return fmt.Sprintf("%s %s", m.Kind(), m.Name)
	}
}
