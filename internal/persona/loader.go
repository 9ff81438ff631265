package persona

import (
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/ponderhq/ponder/pkg/models"
)

// fileSpec is the YAML structure of a persona file.
type fileSpec struct {
	Name       string            `yaml:"name"`
	DomainHint string            `yaml:"domain_hint"`
	Templates  map[string]string `yaml:"templates"`
}

// phase names accepted under templates: in a persona file.
const (
	phaseDivergence    = "divergence"
	phaseCritique      = "critique"
	phaseSynthesis     = "synthesis"
	phaseDecomposition = "decomposition"
	phaseAggregation   = "aggregation"
	phaseFinal         = "final"
)

var knownPhases = []string{
	phaseDivergence, phaseCritique, phaseSynthesis,
	phaseDecomposition, phaseAggregation, phaseFinal,
}

// LoadFile loads one persona from a YAML file. Phases without a template
// fall back to the built-in persona's wording, so a file may override only
// the phases it cares about.
func LoadFile(path string) (*Prompts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona file: %w", err)
	}

	var spec fileSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse persona file %s: %w", path, err)
	}
	if spec.Name == "" {
		return nil, fmt.Errorf("persona file %s: missing name", path)
	}

	for phase := range spec.Templates {
		if !isKnownPhase(phase) {
			return nil, fmt.Errorf("persona file %s: unknown phase %q", path, phase)
		}
	}

	tmpls := make(map[string]*template.Template, len(spec.Templates))
	for phase, text := range spec.Templates {
		tmpl, err := template.New(phase).Option("missingkey=zero").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("persona file %s: parse %s template: %w", path, phase, err)
		}
		tmpls[phase] = tmpl
	}

	return build(spec, tmpls), nil
}

func isKnownPhase(phase string) bool {
	for _, p := range knownPhases {
		if p == phase {
			return true
		}
	}
	return false
}

// build assembles a Prompts record from parsed templates, deferring to the
// built-in persona for any phase without a template. Render errors also fall
// back to the built-in wording: prompt functions are pure and must not fail.
func build(spec fileSpec, tmpls map[string]*template.Template) *Prompts {
	base := Builtin()
	p := &Prompts{
		Name:       spec.Name,
		DomainHint: spec.DomainHint,
	}
	if p.DomainHint == "" {
		p.DomainHint = base.DomainHint
	}

	p.Divergence = base.Divergence
	if tmpl, ok := tmpls[phaseDivergence]; ok {
		p.Divergence = func(query, context string) string {
			return render(tmpl, map[string]any{
				"Query":   query,
				"Context": context,
			}, func() string { return base.Divergence(query, context) })
		}
	}

	p.Critique = base.Critique
	if tmpl, ok := tmpls[phaseCritique]; ok {
		p.Critique = func(query string, strategy models.Strategy) string {
			return render(tmpl, map[string]any{
				"Query":          query,
				"Title":          strategy.Title,
				"Approach":       strategy.Approach,
				"CoreAssumption": strategy.CoreAssumption,
			}, func() string { return base.Critique(query, strategy) })
		}
	}

	p.Synthesis = base.Synthesis
	if tmpl, ok := tmpls[phaseSynthesis]; ok {
		p.Synthesis = func(query string, strategies []models.Strategy) string {
			return render(tmpl, map[string]any{
				"Query":      query,
				"Strategies": FormatStrategies(strategies),
			}, func() string { return base.Synthesis(query, strategies) })
		}
	}

	p.Decomposition = base.Decomposition
	if tmpl, ok := tmpls[phaseDecomposition]; ok {
		p.Decomposition = func(query string, depth, maxDepth int, force bool) string {
			return render(tmpl, map[string]any{
				"Query":    query,
				"Depth":    depth,
				"MaxDepth": maxDepth,
				"Force":    force,
			}, func() string { return base.Decomposition(query, depth, maxDepth, force) })
		}
	}

	p.Aggregation = base.Aggregation
	if tmpl, ok := tmpls[phaseAggregation]; ok {
		p.Aggregation = func(query string, children []models.ChildSolution) string {
			return render(tmpl, map[string]any{
				"Query":    query,
				"Children": FormatChildSolutions(children),
			}, func() string { return base.Aggregation(query, children) })
		}
	}

	p.Final = base.Final
	if tmpl, ok := tmpls[phaseFinal]; ok {
		p.Final = func(query string, blueprint *models.Blueprint) string {
			data := map[string]any{
				"Query": query,
			}
			if blueprint != nil {
				data["Blueprint"] = blueprint.Blueprint
				data["Objective"] = blueprint.Objective
				data["Tone"] = blueprint.Tone
				data["Safeguards"] = strings.Join(blueprint.Safeguards, "; ")
			}
			return render(tmpl, data, func() string { return base.Final(query, blueprint) })
		}
	}

	return p
}

// render executes a template, falling back on any error.
func render(tmpl *template.Template, data map[string]any, fallback func() string) string {
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return fallback()
	}
	return b.String()
}
