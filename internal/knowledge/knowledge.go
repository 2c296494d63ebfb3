// Package knowledge holds the read-only material every counseling session
// draws on: the concept of 仁 with its sub-concepts, the worry catalog offered
// on the console, and the Analects passage corpus.
package knowledge

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed knowledge.yaml
var defaultKnowledge []byte

// SubConcept is one named facet of the core concept.
type SubConcept struct {
	Name        string `yaml:"name"`
	Hanja       string `yaml:"hanja"`
	Description string `yaml:"description"`
}

// Label renders the sub-concept the way prompts and the console show it, e.g. "충서(忠恕)".
func (s SubConcept) Label() string {
	if s.Hanja == "" {
		return s.Name
	}
	return s.Name + "(" + s.Hanja + ")"
}

// Concept is the central idea a worry is analysed against.
type Concept struct {
	Name        string       `yaml:"name"`
	Hanja       string       `yaml:"hanja"`
	Description string       `yaml:"description"`
	Relation    string       `yaml:"relation"`
	IdealPerson string       `yaml:"ideal_person"`
	SubConcepts []SubConcept `yaml:"sub_concepts"`
}

// Category groups predefined worries for console selection.
type Category struct {
	Name    string   `yaml:"name"`
	Worries []string `yaml:"worries"`
}

// Base is the knowledge base. It is built once and shared read-only.
type Base struct {
	Concept Concept    `yaml:"concept"`
	Catalog []Category `yaml:"catalog"`
}

// Default returns the knowledge base compiled into the binary.
func Default() (*Base, error) {
	return Parse(defaultKnowledge)
}

// Load reads a knowledge base from a YAML file.
func Load(path string) (*Base, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge base: %w", err)
	}
	return Parse(data)
}

// Parse decodes and checks a YAML knowledge base.
func Parse(data []byte) (*Base, error) {
	var b Base
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse knowledge base: %w", err)
	}
	if b.Concept.Name == "" {
		return nil, fmt.Errorf("knowledge base: concept name is empty")
	}
	if len(b.Concept.SubConcepts) == 0 {
		return nil, fmt.Errorf("knowledge base: concept %q has no sub-concepts", b.Concept.Name)
	}
	for i, sc := range b.Concept.SubConcepts {
		if strings.TrimSpace(sc.Name) == "" {
			return nil, fmt.Errorf("knowledge base: sub-concept %d has no name", i)
		}
	}
	for i, c := range b.Catalog {
		if len(c.Worries) == 0 {
			return nil, fmt.Errorf("knowledge base: catalog category %d (%q) is empty", i, c.Name)
		}
	}
	return &b, nil
}

// SubConceptLabels lists the sub-concepts in knowledge-base order.
func (b *Base) SubConceptLabels() []string {
	out := make([]string, len(b.Concept.SubConcepts))
	for i, sc := range b.Concept.SubConcepts {
		out[i] = sc.Label()
	}
	return out
}

// MatchSubConcept resolves a model-written sub-concept name against the
// knowledge base. Exact matches on name, hanja or label win; otherwise the
// first sub-concept whose name or hanja appears inside s is returned.
func (b *Base) MatchSubConcept(s string) (SubConcept, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return SubConcept{}, false
	}
	for _, sc := range b.Concept.SubConcepts {
		if s == sc.Name || s == sc.Hanja || s == sc.Label() {
			return sc, true
		}
	}
	for _, sc := range b.Concept.SubConcepts {
		if strings.Contains(s, sc.Name) || (sc.Hanja != "" && strings.Contains(s, sc.Hanja)) {
			return sc, true
		}
	}
	return SubConcept{}, false
}
