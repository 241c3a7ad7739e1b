package curriculum

import (
	"errors"
	"fmt"
	"slices"
)

// ErrSubtopicNotFound is returned when a subtopic ID is not in the catalog.
var ErrSubtopicNotFound = errors.New("subtopic not found")

// Module is a top-level grouping of subtopics, e.g. "String Manipulation".
type Module struct {
	ID        string     `yaml:"id"`
	Name      string     `yaml:"name"`
	Subtopics []Subtopic `yaml:"subtopics"`
}

// Subtopic is a single practice target inside a module.
type Subtopic struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`

	// Archetypes are canonical problem patterns for this subtopic,
	// e.g. "reverse-string" or "count-vowels". Order is significant:
	// it is the tie-break order for least-used selection.
	Archetypes []string `yaml:"archetypes"`
}

// Node identifies one subtopic together with its module. Nodes are the
// entries placed in practice queues and are immutable reference data.
type Node struct {
	ModuleID     string `json:"moduleId"`
	SubtopicID   string `json:"subtopicId"`
	ModuleName   string `json:"moduleName"`
	SubtopicName string `json:"subtopicName"`
}

// DefaultNode is served when the catalog has no subtopics at all.
var DefaultNode = Node{
	ModuleID:     "fundamentals",
	ModuleName:   "Fundamentals",
	SubtopicID:   "fundamentals-basics",
	SubtopicName: "Basics",
}

// Catalog is a read-only module → subtopic → archetype tree with
// precomputed lookup indices.
type Catalog struct {
	modules    []Module
	nodes      []Node
	byModule   map[string][]Node
	bySubtopic map[string]int
	archetypes map[string][]string
}

// New validates modules and builds a catalog from them. An empty module
// list is allowed; consumers fall back to DefaultNode.
func New(modules []Module) (*Catalog, error) {
	if err := validateModules(modules); err != nil {
		return nil, err
	}
	return build(modules), nil
}

func build(modules []Module) *Catalog {
	c := &Catalog{
		modules:    slices.Clone(modules),
		byModule:   make(map[string][]Node, len(modules)),
		bySubtopic: make(map[string]int),
		archetypes: make(map[string][]string),
	}
	for _, m := range modules {
		for _, st := range m.Subtopics {
			n := Node{
				ModuleID:     m.ID,
				ModuleName:   m.Name,
				SubtopicID:   st.ID,
				SubtopicName: st.Name,
			}
			c.bySubtopic[st.ID] = len(c.nodes)
			c.nodes = append(c.nodes, n)
			c.byModule[m.ID] = append(c.byModule[m.ID], n)
			c.archetypes[st.ID] = slices.Clone(st.Archetypes)
		}
	}
	return c
}

// Len returns the number of subtopics across all modules.
func (c *Catalog) Len() int {
	return len(c.nodes)
}

// Modules returns all modules in catalog order.
func (c *Catalog) Modules() []Module {
	return slices.Clone(c.modules)
}

// Module returns the module with the given ID.
func (c *Catalog) Module(id string) (Module, bool) {
	for _, m := range c.modules {
		if m.ID == id {
			return m, true
		}
	}
	return Module{}, false
}

// Nodes returns every subtopic node in catalog order.
func (c *Catalog) Nodes() []Node {
	return slices.Clone(c.nodes)
}

// ModuleNodes returns the nodes of one module in catalog order.
func (c *Catalog) ModuleNodes(moduleID string) []Node {
	return slices.Clone(c.byModule[moduleID])
}

// Lookup resolves a subtopic ID to its node.
func (c *Catalog) Lookup(subtopicID string) (Node, error) {
	i, ok := c.bySubtopic[subtopicID]
	if !ok {
		return Node{}, fmt.Errorf("%w: %q", ErrSubtopicNotFound, subtopicID)
	}
	return c.nodes[i], nil
}

// Contains reports whether the subtopic exists in the catalog.
func (c *Catalog) Contains(subtopicID string) bool {
	_, ok := c.bySubtopic[subtopicID]
	return ok
}

// Position returns the catalog index of a subtopic, or -1.
func (c *Catalog) Position(subtopicID string) int {
	if i, ok := c.bySubtopic[subtopicID]; ok {
		return i
	}
	return -1
}

// Archetypes returns the archetype IDs of a subtopic in catalog order.
func (c *Catalog) Archetypes(subtopicID string) []string {
	return slices.Clone(c.archetypes[subtopicID])
}

// Fallback returns the node used when a referenced subtopic no longer
// exists: the first catalog node, or DefaultNode for an empty catalog.
func (c *Catalog) Fallback() Node {
	if len(c.nodes) == 0 {
		return DefaultNode
	}
	return c.nodes[0]
}
