package compiler

import (
	"fmt"
	"os"
	"slices"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

// LoadDir builds the CUE package in dir and compiles it.
func LoadDir(dir string) (*Ruleset, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("rules directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances in %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}

	ctx := cuecontext.New()
	return CompileRuleset(ctx.BuildInstance(inst))
}

// LoadFiles compiles each file on its own and merges the results in
// argument order.
func LoadFiles(paths ...string) (*Ruleset, error) {
	sets := make([]*Ruleset, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read rules: %w", err)
		}
		rs, err := CompileSource(p, string(data))
		if err != nil {
			return nil, err
		}
		sets = append(sets, rs)
	}
	return Merge(sets...)
}

// Merge concatenates rulesets. All of them must use the same schema.
// Duplicate rule names are left for Validate to report.
func Merge(sets ...*Ruleset) (*Ruleset, error) {
	if len(sets) == 0 {
		return nil, fmt.Errorf("no rulesets to merge")
	}

	out := &Ruleset{Schema: sets[0].Schema}
	for _, rs := range sets {
		if !slices.Equal(rs.Schema, out.Schema) {
			return nil, &CompileError{
				Field:   "schema",
				Message: fmt.Sprintf("schema %v differs from %v", rs.Schema, out.Schema),
			}
		}
		out.Rules = append(out.Rules, rs.Rules...)
	}
	return out, nil
}
