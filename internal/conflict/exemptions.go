package conflict

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"

	"weld/internal/diag"
)

// ExemptionList is an ordered list of patterns naming types that keep
// their public visibility when internalizing. A pattern matches either the
// full name "Ns.Type" or the assembly-qualified form "[Asm]Ns.Type".
type ExemptionList struct {
	patterns []*regexp.Regexp
}

// ParseExemptions compiles one pattern per line; blank lines and lines
// starting with '#' are skipped.
func ParseExemptions(lines []string) (*ExemptionList, error) {
	l := &ExemptionList{}
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		re, err := regexp.Compile(line)
		if err != nil {
			return nil, diag.Fatalf(diag.CfgBadExemptionPattern, fmt.Sprintf("line %d", i+1), "%v", err)
		}
		l.patterns = append(l.patterns, re)
	}
	return l, nil
}

// LoadExemptions reads an exclude file.
func LoadExemptions(path string) (*ExemptionList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open exclude file: %w", err)
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read exclude file %s: %w", path, err)
	}
	l, err := ParseExemptions(lines)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

// Len reports the number of patterns.
func (l *ExemptionList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.patterns)
}

// Exempt reports whether a type escapes internalization.
func (l *ExemptionList) Exempt(assembly, fullName string) bool {
	if l == nil {
		return false
	}
	qualified := "[" + assembly + "]" + fullName
	for _, re := range l.patterns {
		if re.MatchString(fullName) || re.MatchString(qualified) {
			return true
		}
	}
	return false
}
