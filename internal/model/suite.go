// This file defines the Suite structure, the root container for all
// configuration loaded from a user's .hcl files.
//
// Why have a Suite?
//
// A research run rarely involves a single experiment. Users split their
// sweeps across many files and directories, and the loading functions here
// discover every `experiment` block and consolidate them into one unified
// view. Aggregating first enables suite-wide analysis: duplicate detection,
// dependency resolution across files, and a single defaults block applying
// to everything.
package model

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/macaw-rl/macawlab/internal/ctxlog"
	"github.com/macaw-rl/macawlab/internal/fsutil"
)

// Suite represents the user's full set of experiment definitions.
type Suite struct {
	Defaults    Defaults
	Experiments []*Experiment

	// byName indexes experiments for dependency lookups.
	byName map[string]*Experiment
}

// Lookup returns the experiment with the given name, if present.
func (s *Suite) Lookup(name string) (*Experiment, bool) {
	e, ok := s.byName[name]
	return e, ok
}

// ApplyOverride replaces every experiment's override path with the given
// one, verbatim. This implements the launcher's single optional argument:
// a caller-supplied override supersedes whatever the suite declared.
func (s *Suite) ApplyOverride(path string) {
	for _, e := range s.Experiments {
		e.Override = path
		e.OverrideExplicit = true
	}
}

// hclSuiteFile represents the top-level structure of a suite file for decoding.
type hclSuiteFile struct {
	Defaults    []*hclDefaults   `hcl:"defaults,block"`
	Experiments []*hclExperiment `hcl:"experiment,block"`
}

// hclDefaults represents a `defaults` block.
type hclDefaults struct {
	Runner     []string `hcl:"runner,optional"`
	LogRoot    *string  `hcl:"log_root,optional"`
	NoOverride *string  `hcl:"no_override,optional"`
	RunnerType *string  `hcl:"runner_type,optional"`
}

// hclExperiment represents a single `experiment` block before its body is
// decoded. The body is kept raw so it can be evaluated against a context
// that already knows the suite defaults (enabling "${log_root}/..." style
// interpolation).
type hclExperiment struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

// hclExperimentBody holds the decodable attributes of an experiment block.
type hclExperimentBody struct {
	LogDir     *string           `hcl:"log_dir,optional"`
	TaskConfig string            `hcl:"task_config"`
	AlgoParams string            `hcl:"algo_params"`
	Override   *string           `hcl:"override,optional"`
	DependsOn  []string          `hcl:"depends_on,optional"`
	Env        map[string]string `hcl:"env,optional"`
	Timeout    *string           `hcl:"timeout,optional"`
	RunnerType *string           `hcl:"runner_type,optional"`
}

// parsedFile pairs a decoded file with its path for later path resolution.
type parsedFile struct {
	path string
	file *hclSuiteFile
}

// LoadSuite finds and parses all HCL files under suitePath (a file or a
// directory) into a resolved Suite model.
func LoadSuite(ctx context.Context, suitePath string) (*Suite, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading suite from path", "path", suitePath)

	files, err := fsutil.FindFilesByExtension(suitePath, ".hcl")
	if err != nil {
		return nil, fmt.Errorf("failed to find suite files in %s: %w", suitePath, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl suite files found in %s", suitePath)
	}

	// First pass: decode the file skeletons and collect the defaults block.
	parser := hclparse.NewParser()
	var parsed []parsedFile
	var defaults *hclDefaults
	var defaultsDir string
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse suite file %s: %w", file, diags)
		}

		var pf hclSuiteFile
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &pf); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode suite file %s: %w", file, diags)
		}

		for _, d := range pf.Defaults {
			if defaults != nil {
				return nil, fmt.Errorf("duplicate defaults block in %s: a suite may declare at most one", file)
			}
			defaults = d
			defaultsDir = filepath.Dir(file)
		}
		parsed = append(parsed, parsedFile{path: file, file: &pf})
	}

	suite := &Suite{
		Defaults: resolveDefaults(defaults, defaultsDir),
		byName:   make(map[string]*Experiment),
	}

	// Second pass: decode experiment bodies with the defaults in scope.
	for _, pf := range parsed {
		for _, raw := range pf.file.Experiments {
			exp, err := suite.resolveExperiment(raw, pf.path)
			if err != nil {
				return nil, err
			}
			if _, exists := suite.byName[exp.Name]; exists {
				return nil, fmt.Errorf("duplicate experiment %q declared in %s", exp.Name, pf.path)
			}
			suite.byName[exp.Name] = exp
			suite.Experiments = append(suite.Experiments, exp)
		}
	}

	if err := suite.validateDependencies(); err != nil {
		return nil, err
	}

	logger.Info("Suite loaded successfully.", "experiments_found", len(suite.Experiments))
	return suite, nil
}

// resolveDefaults fills a Defaults struct from the optional defaults block,
// falling back to built-in values. Relative paths resolve against the
// declaring file's directory.
func resolveDefaults(d *hclDefaults, dir string) Defaults {
	out := Defaults{
		Runner:     defaultRunner,
		LogRoot:    defaultLogRoot,
		RunnerType: defaultRunnerType,
	}
	if d == nil {
		return out
	}
	if len(d.Runner) > 0 {
		out.Runner = d.Runner
	}
	if d.LogRoot != nil {
		out.LogRoot = resolvePath(*d.LogRoot, dir)
	}
	if d.NoOverride != nil {
		out.NoOverride = resolvePath(*d.NoOverride, dir)
	}
	if d.RunnerType != nil {
		out.RunnerType = *d.RunnerType
	}
	return out
}

// resolveExperiment decodes a raw experiment body and applies defaulting and
// path resolution rules.
func (s *Suite) resolveExperiment(raw *hclExperiment, filePath string) (*Experiment, error) {
	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"name":     cty.StringVal(raw.Name),
			"log_root": cty.StringVal(s.Defaults.LogRoot),
		},
	}

	var body hclExperimentBody
	if diags := gohcl.DecodeBody(raw.Body, evalCtx, &body); diags.HasErrors() {
		return nil, fmt.Errorf("error decoding experiment %q in %s: %w", raw.Name, filePath, diags)
	}

	dir := filepath.Dir(filePath)
	exp := &Experiment{
		Name:       raw.Name,
		TaskConfig: resolvePath(body.TaskConfig, dir),
		AlgoParams: resolvePath(body.AlgoParams, dir),
		DependsOn:  body.DependsOn,
		Env:        body.Env,
		RunnerType: s.Defaults.RunnerType,
		SourceFile: filePath,
	}

	if body.LogDir != nil {
		exp.LogDir = resolvePath(*body.LogDir, dir)
	} else {
		exp.LogDir = filepath.Join(s.Defaults.LogRoot, raw.Name)
	}

	switch {
	case body.Override != nil:
		exp.Override = resolvePath(*body.Override, dir)
		exp.OverrideExplicit = true
	case s.Defaults.NoOverride != "":
		exp.Override = s.Defaults.NoOverride
	default:
		return nil, fmt.Errorf("experiment %q declares no override and the suite has no defaults.no_override file", raw.Name)
	}

	if body.RunnerType != nil {
		exp.RunnerType = *body.RunnerType
	}

	if body.Timeout != nil {
		timeout, err := time.ParseDuration(*body.Timeout)
		if err != nil {
			return nil, fmt.Errorf("experiment %q has invalid timeout: %w", raw.Name, err)
		}
		exp.Timeout = timeout
	}

	return exp, nil
}

// validateDependencies checks that every depends_on target names a known
// experiment. Cycle detection is the graph builder's job.
func (s *Suite) validateDependencies() error {
	for _, e := range s.Experiments {
		for _, dep := range e.DependsOn {
			if dep == e.Name {
				return fmt.Errorf("experiment %q depends on itself", e.Name)
			}
			if _, ok := s.byName[dep]; !ok {
				return fmt.Errorf("experiment %q depends on unknown experiment %q", e.Name, dep)
			}
		}
	}
	return nil
}

// resolvePath makes a relative path absolute against the given base
// directory. Already-absolute paths are returned unchanged.
func resolvePath(path, dir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
