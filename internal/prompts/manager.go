package prompts

import (
	"embed"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"interviewprep/ai/internal/models"
)

// embeds all .yaml files in the templates folder into Go program at compile time
//
//go:embed templates/*.yaml
var templateFS embed.FS

// one stage prompt as stored on disk
type PromptTemplate struct {
	Description  string   `yaml:"description"`
	RequiredVars []string `yaml:"required_vars"`
	BasePrompt   string   `yaml:"base_prompt"`
	Template     string   `yaml:"template"`
}

type stagePrompt struct {
	required []string
	tmpl     *template.Template
}

type PromptManager struct {
	prompts map[models.Stage]stagePrompt
}

// creates a new prompt manager and loads templates. Every pipeline stage must have one.
func NewPromptManager() (*PromptManager, error) {
	pm := &PromptManager{
		prompts: make(map[models.Stage]stagePrompt),
	}

	if err := pm.loadPrompts(); err != nil {
		return nil, fmt.Errorf("failed to load prompt templates: %w", err)
	}

	for _, stage := range models.AllStages() {
		if _, ok := pm.prompts[stage]; !ok {
			return nil, fmt.Errorf("no prompt template for stage %s", stage)
		}
	}

	return pm, nil
}

// renders the prompt for stage. Every required variable must be present in vars; an empty
// value is allowed. Values are inserted verbatim.
func (pm *PromptManager) BuildPrompt(stage models.Stage, vars map[string]string) (string, error) {
	prompt, exists := pm.prompts[stage]
	if !exists {
		return "", fmt.Errorf("template not found for stage: %s", stage)
	}

	for _, name := range prompt.required {
		if _, ok := vars[name]; !ok {
			return "", fmt.Errorf("missing variable %q for stage %s", name, stage)
		}
	}

	var out strings.Builder
	if err := prompt.tmpl.Execute(&out, vars); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", stage, err)
	}
	return out.String(), nil
}

// lists the loaded stage names
func (pm *PromptManager) GetTemplates() []string {
	names := make([]string, 0, len(pm.prompts))
	for stage := range pm.prompts {
		names = append(names, string(stage))
	}
	sort.Strings(names)
	return names
}

// loadPrompts loads all YAML prompt files from the embedded filesystem
func (pm *PromptManager) loadPrompts() error {
	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		return fmt.Errorf("failed to read templates directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		data, err := templateFS.ReadFile("templates/" + entry.Name())
		if err != nil {
			return fmt.Errorf("failed to read template file %s: %w", entry.Name(), err)
		}

		var promptTemplate PromptTemplate
		if err := yaml.Unmarshal(data, &promptTemplate); err != nil {
			return fmt.Errorf("failed to parse template file %s: %w", entry.Name(), err)
		}
		if strings.TrimSpace(promptTemplate.Template) == "" {
			return fmt.Errorf("template file %s has no template", entry.Name())
		}

		var fullPrompt strings.Builder
		if promptTemplate.BasePrompt != "" {
			fullPrompt.WriteString(strings.TrimSpace(promptTemplate.BasePrompt))
			fullPrompt.WriteString("\n\n")
		}
		fullPrompt.WriteString(promptTemplate.Template)

		name := strings.TrimSuffix(entry.Name(), ".yaml")
		tmpl, err := template.New(name).Option("missingkey=error").Parse(fullPrompt.String())
		if err != nil {
			return fmt.Errorf("failed to compile template %s: %w", entry.Name(), err)
		}

		pm.prompts[models.Stage(name)] = stagePrompt{
			required: promptTemplate.RequiredVars,
			tmpl:     tmpl,
		}
	}

	return nil
}
