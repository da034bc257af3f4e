// Package persona holds the "about me" facts that feed both the portfolio
// page and the chatbot system prompt.
package persona

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v2"
)

//go:embed default.yaml
var defaultPersona []byte

type SkillGroup struct {
	Name  string   `yaml:"name"`
	Items []string `yaml:"items"`
}

type Project struct {
	Name    string   `yaml:"name"`
	Summary string   `yaml:"summary"`
	Tech    []string `yaml:"tech"`
	URL     string   `yaml:"url"`
}

type Link struct {
	Label string `yaml:"label"`
	URL   string `yaml:"url"`
}

type TipGuide struct {
	Rules   []string `yaml:"rules"`
	Domains []string `yaml:"domains"`
}

type Persona struct {
	Name       string       `yaml:"name"`
	Role       string       `yaml:"role"`
	Experience string       `yaml:"experience"`
	Location   string       `yaml:"location"`
	Email      string       `yaml:"email"`
	Tagline    string       `yaml:"tagline"`
	Summary    string       `yaml:"summary"`
	Expertise  []SkillGroup `yaml:"expertise"`
	Projects   []Project    `yaml:"projects"`
	Links      []Link       `yaml:"links"`
	Rules      []string     `yaml:"rules"`
	Tips       TipGuide     `yaml:"tips"`
}

// Load reads a persona file, or the embedded default when path is empty.
func Load(path string) (*Persona, error) {
	if path == "" {
		return Parse(defaultPersona)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Persona, error) {
	var p Persona
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse persona: %w", err)
	}
	if strings.TrimSpace(p.Name) == "" {
		return nil, errors.New("persona: name is required")
	}
	return &p, nil
}

var systemPromptTmpl = template.Must(template.New("system").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(`You are an AI assistant for {{.Name}}'s portfolio website.

You help visitors understand {{.Name}}'s skills, experience, and projects as a {{.Role}}.
Be professional, concise, accurate, and portfolio-focused.
Never guess, assume, or invent information.

FACTS (SINGLE SOURCE OF TRUTH):
- Name: {{.Name}}
- Role: {{.Role}}
- Experience: {{.Experience}}
- Location: {{.Location}}
{{- if .Email}}
- Email: {{.Email}}
{{- end}}

ABOUT:
{{.Summary}}

CORE EXPERTISE:
{{- range .Expertise}}
- {{.Name}}: {{join .Items ", "}}
{{- end}}

PROJECTS:
{{- range .Projects}}
- {{.Name}}: {{.Summary}} Technologies: {{join .Tech ", "}}.{{if .URL}} Live URL: {{.URL}}{{end}}
{{- end}}
{{- if .Links}}

CONTACT LINKS:
{{- range .Links}}
- {{.Label}}: {{.URL}}
{{- end}}
{{- end}}

RULES:
{{- range .Rules}}
- {{.}}
{{- end}}
`))

var tipPromptTmpl = template.Must(template.New("tip").Parse(`You are generating short coding tips for {{.Name}}'s portfolio website.

The tips must reflect {{.Name}}'s real-world work as a {{.Role}}.

STRICT RULES:
{{- range .Tips.Rules}}
- {{.}}
{{- end}}

Return JSON ONLY in this format:
{
  "title": "Very short title (max 40 chars)",
  "code": "2-3 lines of clean, practical code"
}
{{- if .Tips.Domains}}

Allowed domains:
{{- range .Tips.Domains}}
- {{.}}
{{- end}}
{{- end}}
`))

// SystemPrompt renders the chat persona prompt.
func (p *Persona) SystemPrompt() (string, error) {
	var buf bytes.Buffer
	if err := systemPromptTmpl.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("render system prompt: %w", err)
	}
	return buf.String(), nil
}

// TipPrompt renders the instruction used for idle-state code tips.
func (p *Persona) TipPrompt() (string, error) {
	var buf bytes.Buffer
	if err := tipPromptTmpl.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("render tip prompt: %w", err)
	}
	return buf.String(), nil
}

// FirstName is used by the page greeting.
func (p *Persona) FirstName() string {
	if i := strings.IndexByte(p.Name, ' '); i > 0 {
		return p.Name[:i]
	}
	return p.Name
}
