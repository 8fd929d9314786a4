package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"weld/internal/config"
	"weld/internal/conflict"
	"weld/internal/image"
	"weld/internal/merge"
)

// allowAllMarker is the value --allow-dup takes when given without a name.
const allowAllMarker = "*"

// mergeSettings is everything runMerge needs, after weld.toml and the
// command line have been combined. Flags win over the file.
type mergeSettings struct {
	inputs      []string
	output      string
	search      []string
	excludeFile string
	attrFile    string
	jobs        int
	format      string
	ui          string
	traceOutput string
	traceLevel  string
	configPath  string
	opts        merge.Options
}

func registerMergeFlags(fs *pflag.FlagSet) {
	fs.StringP("output", "o", "", "output image path")
	fs.String("config", "", "weld.toml to read (default: search upwards from the current directory)")
	fs.Bool("no-config", false, "ignore weld.toml")
	fs.StringArray("search", nil, "directory searched for referenced assemblies (repeatable)")
	fs.String("name", "", "assembly name of the output (default: output file name)")
	fs.String("ver", "", "version of the output assembly")
	fs.String("target", "", "output kind (library|exe|winexe|same)")
	fs.Bool("lib", false, "shortcut for --target library")
	fs.Bool("union", false, "unify types with the same full name")
	fs.Bool("internalize", false, "make types of secondary assemblies non-public")
	fs.String("exclude-file", "", "patterns of types kept public when internalizing")
	fs.StringArray("allow-dup", nil, "rename duplicate types; with a name only that type (repeatable)")
	fs.Lookup("allow-dup").NoOptDefVal = allowAllMarker
	fs.Bool("allow-zero-pekind", false, "accept inputs that are not marked IL-only")
	fs.Bool("copy-attrs", false, "merge assembly attributes of every input")
	fs.Bool("allow-multiple", false, "keep repeated attributes when the attribute type permits it")
	fs.Bool("keep-first", false, "first attribute wins instead of the last")
	fs.String("attr-policy", "", "attribute policy (overwrite|union|allow-multiple)")
	fs.String("attr-file", "", "image whose assembly attributes the output takes")
	fs.Bool("closure", false, "also merge referenced assemblies found on the search path")
	fs.String("keyfile", "", "strong-name key file")
	fs.String("keycontainer", "", "strong-name key container")
	fs.Bool("delaysign", false, "delay-sign the output")
	fs.Int("jobs", 0, "max parallel image decoders (0=auto)")
	fs.String("format", "pretty", "diagnostics format (pretty|json)")
	fs.String("ui", "auto", "progress screen (auto|on|off)")
}

// resolveMergeSettings combines the optional weld.toml with flags and
// positional inputs.
func resolveMergeSettings(fs *pflag.FlagSet, args []string) (*mergeSettings, error) {
	file, err := loadConfig(fs)
	if err != nil {
		return nil, err
	}
	s := &mergeSettings{}
	if file != nil {
		s.fromConfig(file)
	}

	if len(args) > 0 {
		s.inputs = nil
		for _, arg := range args {
			s.inputs = append(s.inputs, inputPath(arg))
		}
	}
	if len(s.inputs) == 0 {
		return nil, fmt.Errorf("no input assemblies (pass them as arguments or list them in %s)", config.FileName)
	}

	str := func(name string, dst *string) {
		if fs.Changed(name) {
			*dst, _ = fs.GetString(name)
		}
	}
	flag := func(name string, dst *bool) {
		if fs.Changed(name) {
			*dst, _ = fs.GetBool(name)
		}
	}
	o := &s.opts
	str("output", &s.output)
	str("exclude-file", &s.excludeFile)
	str("attr-file", &s.attrFile)
	str("format", &s.format)
	str("ui", &s.ui)
	str("name", &o.OutputName)
	str("ver", &o.Version)
	str("keyfile", &o.KeyFile)
	str("keycontainer", &o.KeyContainer)
	str("attr-policy", &o.AttributePolicy)
	flag("union", &o.Union)
	flag("internalize", &o.Internalize)
	flag("allow-zero-pekind", &o.AllowZeroPEKind)
	flag("copy-attrs", &o.CopyAttributes)
	flag("allow-multiple", &o.AllowMultiple)
	flag("keep-first", &o.KeepFirst)
	flag("closure", &o.Closure)
	flag("delaysign", &o.DelaySign)
	if fs.Changed("search") {
		extra, _ := fs.GetStringArray("search")
		s.search = append(extra, s.search...)
	}
	if fs.Changed("jobs") {
		s.jobs, _ = fs.GetInt("jobs")
	}
	if fs.Changed("allow-dup") {
		names, _ := fs.GetStringArray("allow-dup")
		o.AllowAllDuplicates, o.AllowDuplicateNames = splitAllowDup(names)
	}

	target := o.TargetKind.String()
	if file != nil && file.Defined("merge", "target") {
		target = file.Config.Merge.Target
	}
	str("target", &target)
	if lib, _ := fs.GetBool("lib"); lib {
		if fs.Changed("target") && !strings.EqualFold(target, "library") {
			return nil, fmt.Errorf("--lib conflicts with --target %s", target)
		}
		target = "library"
	}
	if o.TargetKind, err = merge.ParseTargetKind(target); err != nil {
		return nil, err
	}

	if s.output == "" {
		return nil, fmt.Errorf("no output path (use -o or [merge].output)")
	}
	if filepath.Ext(s.output) == "" {
		s.output += image.Ext
	}
	if o.OutputName == "" {
		o.OutputName = strings.TrimSuffix(filepath.Base(s.output), filepath.Ext(s.output))
	}
	if s.format == "" {
		s.format = "pretty"
	}
	if s.format != "pretty" && s.format != "json" {
		return nil, fmt.Errorf("unknown format %q (must be pretty or json)", s.format)
	}
	if s.jobs < 0 {
		return nil, fmt.Errorf("--jobs must not be negative")
	}
	// каталоги входов ищутся после явно заданных
	for _, in := range s.inputs {
		s.search = appendUnique(s.search, filepath.Dir(in))
	}

	if o.Internalize && s.excludeFile != "" {
		if o.Exemptions, err = conflict.LoadExemptions(s.excludeFile); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func loadConfig(fs *pflag.FlagSet) (*config.File, error) {
	if skip, _ := fs.GetBool("no-config"); skip {
		return nil, nil
	}
	path, _ := fs.GetString("config")
	if path == "" {
		found, ok, err := config.Find(".")
		if err != nil || !ok {
			return nil, err
		}
		path = found
	}
	return config.Load(path)
}

func (s *mergeSettings) fromConfig(f *config.File) {
	m, at, sg := f.Config.Merge, f.Config.Attributes, f.Config.Signing
	s.configPath = f.Path
	for _, in := range m.Inputs {
		s.inputs = append(s.inputs, inputPath(in))
	}
	s.output = m.Output
	s.search = append(s.search, m.Search...)
	s.excludeFile = m.ExcludeFile
	s.attrFile = at.File
	s.jobs = m.Jobs
	s.traceOutput = f.Config.Trace.Output
	s.traceLevel = f.Config.Trace.Level
	s.opts = merge.Options{
		Union:               m.Union,
		Internalize:         m.Internalize,
		AllowAllDuplicates:  m.AllowAll,
		AllowDuplicateNames: m.AllowDuplicates,
		AllowZeroPEKind:     m.AllowZeroPEKind,
		CopyAttributes:      at.Copy,
		AllowMultiple:       at.AllowMultiple,
		KeepFirst:           at.KeepFirst,
		AttributePolicy:     at.Policy,
		Closure:             m.Closure,
		OutputName:          m.Name,
		Version:             m.Version,
		KeyFile:             sg.KeyFile,
		KeyContainer:        sg.KeyContainer,
		DelaySign:           sg.DelaySign,
	}
}

func splitAllowDup(values []string) (all bool, names []string) {
	for _, v := range values {
		for _, name := range strings.Split(v, ",") {
			name = strings.TrimSpace(name)
			switch name {
			case "":
			case allowAllMarker:
				all = true
			default:
				names = append(names, name)
			}
		}
	}
	return all, names
}

// inputPath accepts "Lib" for "Lib.wmod" when only the latter exists.
func inputPath(p string) string {
	if filepath.Ext(p) != "" {
		return p
	}
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return p + image.Ext
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}
