package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// Config holds all configuration
type Config struct {
	Variables []Variable
	Models    []Model
	Executor  *ExecutorConfig
	Prompts   []Prompt
	Solvers   []SolverConfig
	Plugins   []Plugin
	MCP       []MCPConfig
	Storage   *StorageConfig
	Bridge    *BridgeConfig
	Server    *ServerConfig

	// PromptLibrary is an optional YAML file of prompt templates.
	PromptLibrary string

	// ResolvedVars holds the resolved variable values for runtime use
	ResolvedVars map[string]cty.Value
}

func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if info.IsDir() {
		return LoadDir(path)
	}
	return LoadFile(path)
}

// LoadAndValidate loads the config and validates all components
func LoadAndValidate(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all config components are valid
func (c *Config) Validate() error {
	seenModels := map[string]bool{}
	for _, m := range c.Models {
		if seenModels[m.Name] {
			return fmt.Errorf("model '%s' is declared more than once", m.Name)
		}
		seenModels[m.Name] = true
		if err := m.Validate(); err != nil {
			return fmt.Errorf("model '%s': %w", m.Name, err)
		}
	}

	for _, v := range c.Variables {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("variable '%s': %w", v.Name, err)
		}
	}

	if c.Executor == nil {
		return fmt.Errorf("executor block is required")
	}
	if err := c.Executor.Validate(); err != nil {
		return fmt.Errorf("executor: %w", err)
	}
	if _, err := c.ModelFor(c.Executor.Model); err != nil {
		return fmt.Errorf("executor: %w", err)
	}

	for _, p := range c.Prompts {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("prompt '%s': %w", p.Name, err)
		}
	}

	seenSolvers := map[string]bool{}
	for _, s := range c.Solvers {
		if seenSolvers[s.Name] {
			return fmt.Errorf("solver '%s' is declared more than once", s.Name)
		}
		seenSolvers[s.Name] = true
		if err := s.Validate(); err != nil {
			return fmt.Errorf("solver '%s': %w", s.Name, err)
		}
		if s.Model != "" {
			if _, err := c.ModelFor(s.Model); err != nil {
				return fmt.Errorf("solver '%s': %w", s.Name, err)
			}
		}
	}

	seenPlugins := map[string]bool{}
	for _, p := range c.Plugins {
		if seenPlugins[p.Name] {
			return fmt.Errorf("plugin '%s' is declared more than once", p.Name)
		}
		seenPlugins[p.Name] = true
		if err := p.Validate(); err != nil {
			return fmt.Errorf("plugin '%s': %w", p.Name, err)
		}
	}

	seenMCP := map[string]bool{}
	for _, m := range c.MCP {
		if seenMCP[m.Name] {
			return fmt.Errorf("mcp '%s' is declared more than once", m.Name)
		}
		seenMCP[m.Name] = true
		if err := m.Validate(); err != nil {
			return fmt.Errorf("mcp '%s': %w", m.Name, err)
		}
	}

	if c.Storage != nil {
		if err := c.Storage.Validate(); err != nil {
			return fmt.Errorf("storage: %w", err)
		}
	}

	if c.Bridge != nil {
		if err := c.Bridge.Validate(); err != nil {
			return fmt.Errorf("bridge: %w", err)
		}
	}

	return nil
}

// ModelFor returns the model block that allows key.
func (c *Config) ModelFor(key string) (*Model, error) {
	for i := range c.Models {
		if c.Models[i].Allows(key) {
			return &c.Models[i], nil
		}
	}
	return nil, fmt.Errorf("model '%s' is not allowed by any model block", key)
}

// StorageOrDefault returns the storage block with defaults applied.
func (c *Config) StorageOrDefault() *StorageConfig {
	s := StorageConfig{}
	if c.Storage != nil {
		s = *c.Storage
	}
	s.Defaults()
	return &s
}

// ServerOrDefault returns the server block with defaults applied.
func (c *Config) ServerOrDefault() *ServerConfig {
	s := ServerConfig{}
	if c.Server != nil {
		s = *c.Server
	}
	s.Defaults()
	return &s
}

func LoadFile(filename string) (*Config, error) {
	return loadFromFiles([]string{filename})
}

func LoadDir(dir string) (*Config, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.hcl"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl files in %s", dir)
	}
	return loadFromFiles(files)
}

var fileSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "prompt_library"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "variable", LabelNames: []string{"name"}},
		{Type: "model", LabelNames: []string{"name"}},
		{Type: "executor"},
		{Type: "prompt", LabelNames: []string{"name"}},
		{Type: "solver", LabelNames: []string{"name"}},
		{Type: "plugin", LabelNames: []string{"name"}},
		{Type: "mcp", LabelNames: []string{"name"}},
		{Type: "storage"},
		{Type: "bridge"},
		{Type: "server"},
	},
}

// parsedFile holds everything extracted from a file in one pass
type parsedFile struct {
	attrs  hcl.Attributes
	blocks map[string][]*hcl.Block
}

// loadFromFiles implements staged loading: variables, then models, then
// everything that may reference vars or models.
func loadFromFiles(files []string) (*Config, error) {
	parser := hclparse.NewParser()
	var parsed []parsedFile

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("parse %s: %w", file, diags)
		}

		content, diags := hclFile.Body.Content(fileSchema)
		if diags.HasErrors() {
			return nil, fmt.Errorf("content %s: %w", file, diags)
		}

		pf := parsedFile{attrs: content.Attributes, blocks: map[string][]*hcl.Block{}}
		for _, block := range content.Blocks {
			pf.blocks[block.Type] = append(pf.blocks[block.Type], block)
		}
		parsed = append(parsed, pf)
	}

	blocksOf := func(kind string) []*hcl.Block {
		var out []*hcl.Block
		for _, pf := range parsed {
			out = append(out, pf.blocks[kind]...)
		}
		return out
	}

	// Stage 1: variables (no context needed)
	var allVars []Variable
	for _, block := range blocksOf("variable") {
		var v Variable
		v.Name = block.Labels[0]
		if diags := gohcl.DecodeBody(block.Body, nil, &v); diags.HasErrors() {
			return nil, fmt.Errorf("decode variable %s: %w", v.Name, diags)
		}
		allVars = append(allVars, v)
	}
	varsCtx, resolvedVars := buildVarsContext(allVars)

	// Stage 2: models (with vars)
	var allModels []Model
	for _, block := range blocksOf("model") {
		var m Model
		m.Name = block.Labels[0]
		if diags := gohcl.DecodeBody(block.Body, varsCtx, &m); diags.HasErrors() {
			return nil, fmt.Errorf("decode model %s: %w", m.Name, diags)
		}
		allModels = append(allModels, m)
	}
	ctx := buildModelsContext(varsCtx, allModels)

	cfg := &Config{
		Variables:    allVars,
		Models:       allModels,
		ResolvedVars: resolvedVars,
	}

	// Stage 3: everything else (with vars + models)
	for _, pf := range parsed {
		if attr, ok := pf.attrs["prompt_library"]; ok {
			if cfg.PromptLibrary != "" {
				return nil, fmt.Errorf("prompt_library is set more than once")
			}
			if diags := gohcl.DecodeExpression(attr.Expr, ctx, &cfg.PromptLibrary); diags.HasErrors() {
				return nil, fmt.Errorf("decode prompt_library: %w", diags)
			}
		}
	}

	if err := decodeSingleton(blocksOf("executor"), ctx, &cfg.Executor); err != nil {
		return nil, err
	}
	if err := decodeSingleton(blocksOf("storage"), ctx, &cfg.Storage); err != nil {
		return nil, err
	}
	if err := decodeSingleton(blocksOf("bridge"), ctx, &cfg.Bridge); err != nil {
		return nil, err
	}
	if err := decodeSingleton(blocksOf("server"), ctx, &cfg.Server); err != nil {
		return nil, err
	}
	if cfg.Executor != nil {
		cfg.Executor.Defaults()
	}
	if cfg.Bridge != nil {
		cfg.Bridge.Defaults()
	}

	for _, block := range blocksOf("prompt") {
		var p Prompt
		p.Name = block.Labels[0]
		if diags := gohcl.DecodeBody(block.Body, ctx, &p); diags.HasErrors() {
			return nil, fmt.Errorf("decode prompt %s: %w", p.Name, diags)
		}
		cfg.Prompts = append(cfg.Prompts, p)
	}

	for _, block := range blocksOf("solver") {
		var s SolverConfig
		s.Name = block.Labels[0]
		if diags := gohcl.DecodeBody(block.Body, ctx, &s); diags.HasErrors() {
			return nil, fmt.Errorf("decode solver %s: %w", s.Name, diags)
		}
		cfg.Solvers = append(cfg.Solvers, s)
	}

	for _, block := range blocksOf("plugin") {
		var p Plugin
		p.Name = block.Labels[0]
		if diags := gohcl.DecodeBody(block.Body, ctx, &p); diags.HasErrors() {
			return nil, fmt.Errorf("decode plugin %s: %w", p.Name, diags)
		}
		cfg.Plugins = append(cfg.Plugins, p)
	}

	for _, block := range blocksOf("mcp") {
		var m MCPConfig
		m.Name = block.Labels[0]
		if diags := gohcl.DecodeBody(block.Body, ctx, &m); diags.HasErrors() {
			return nil, fmt.Errorf("decode mcp %s: %w", m.Name, diags)
		}
		cfg.MCP = append(cfg.MCP, m)
	}

	return cfg, nil
}

// decodeSingleton decodes an unlabeled block that may appear at most once.
func decodeSingleton[T any](blocks []*hcl.Block, ctx *hcl.EvalContext, dst **T) error {
	if len(blocks) == 0 {
		return nil
	}
	kind := blocks[0].Type
	if len(blocks) > 1 {
		return fmt.Errorf("%s block is declared more than once (%s)", kind, blocks[1].DefRange)
	}
	var v T
	if diags := gohcl.DecodeBody(blocks[0].Body, ctx, &v); diags.HasErrors() {
		return fmt.Errorf("decode %s: %w", kind, diags)
	}
	*dst = &v
	return nil
}

func buildVarsContext(vars []Variable) (*hcl.EvalContext, map[string]cty.Value) {
	varsMap := make(map[string]cty.Value)
	fileVars, _ := LoadVarsFromFile()
	for _, v := range vars {
		if val, ok := fileVars[v.Name]; ok {
			varsMap[v.Name] = cty.StringVal(val)
		} else {
			varsMap[v.Name] = cty.StringVal(v.Default)
		}
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"vars": cty.ObjectVal(varsMap),
		},
	}, varsMap
}

// buildModelsContext adds models.<name>.<key> to ctx. Each reference
// evaluates to the model key itself.
func buildModelsContext(ctx *hcl.EvalContext, models []Model) *hcl.EvalContext {
	modelsMap := make(map[string]cty.Value)
	for _, m := range models {
		providerModels := make(map[string]cty.Value)
		for _, modelKey := range m.AllowedModels {
			providerModels[modelKey] = cty.StringVal(modelKey)
		}
		modelsMap[m.Name] = cty.ObjectVal(providerModels)
	}

	newVars := make(map[string]cty.Value, len(ctx.Variables)+1)
	for k, v := range ctx.Variables {
		newVars[k] = v
	}
	newVars["models"] = cty.ObjectVal(modelsMap)

	return &hcl.EvalContext{Variables: newVars}
}
