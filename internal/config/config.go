// Package config loads and validates the index-definition document:
// the global options and the list of index types the Index Manager,
// Document Builder and Delta Processor operate on.
package config

import (
	"encoding/json"
	"fmt"

	"github.com/musearch/bridge/internal/authctx"
	"github.com/musearch/bridge/internal/pathexpr"
)

// MuUUID is the predicate every regular and composite sub-index
// property set is extended with, so a document always carries the
// resource's stable identifier alongside its projected properties.
const MuUUID = "http://mu.semte.ch/vocabularies/core/uuid"

// PropertyType names the projection rule applied to a property's
// matched values.
type PropertyType string

const (
	TypeSimple         PropertyType = "simple"
	TypeNested         PropertyType = "nested"
	TypeAttachment     PropertyType = "attachment"
	TypeLanguageString PropertyType = "language-string"
	TypeLambert72      PropertyType = "lambert-72"
)

// PropertyDefinition declares how one document field is derived from
// a property path rooted at the indexed resource.
type PropertyDefinition struct {
	Name         string               `json:"name"`
	RawPath      []string             `json:"path"`
	Path         pathexpr.Path        `json:"-"`
	Type         PropertyType         `json:"type,omitempty"`
	RDFType      string               `json:"rdf_type,omitempty"`
	SubProps     []PropertyDefinition `json:"properties,omitempty"`
	Mappings     map[string]string    `json:"mappings,omitempty"` // composite only: type -> source property name
}

func (p *PropertyDefinition) parsePath() error {
	if len(p.RawPath) == 0 {
		return nil
	}
	path, err := pathexpr.Parse(p.RawPath)
	if err != nil {
		return fmt.Errorf("property %q: %w", p.Name, err)
	}
	p.Path = path
	return nil
}

// EffectiveType returns the property's projection type, defaulting to
// TypeSimple when unset.
func (p PropertyDefinition) EffectiveType() PropertyType {
	if p.Type == "" {
		return TypeSimple
	}
	return p.Type
}

// IndexDefinition is a named document projection: either a regular
// index (declares RDFTypes) or a composite one (declares
// CompositeTypes, referencing other index definitions by name).
type IndexDefinition struct {
	Name           string               `json:"name"`
	OnPath         string               `json:"on_path"`
	RDFTypes       []string             `json:"rdf_types,omitempty"`
	CompositeTypes []string             `json:"composite_types,omitempty"`
	Properties     []PropertyDefinition `json:"properties"`
	Mappings       json.RawMessage      `json:"mappings,omitempty"`
	Settings       json.RawMessage      `json:"settings,omitempty"`

	// SubIndexes is populated for composite definitions during
	// Expand: one synthesized IndexDefinition per referenced type.
	SubIndexes []IndexDefinition `json:"-"`
}

func (d IndexDefinition) IsComposite() bool { return len(d.CompositeTypes) > 0 }

// RelatedRDFTypes returns the RDF classes this index's documents are
// drawn from: the index's own types for a regular index, or the
// union of its sub-indexes' types for a composite one.
func (d IndexDefinition) RelatedRDFTypes() []string {
	if !d.IsComposite() {
		return d.RDFTypes
	}
	seen := make(map[string]bool)
	var out []string
	for _, sub := range d.SubIndexes {
		for _, t := range sub.RDFTypes {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}

// Config is the parsed, validated configuration document.
type Config struct {
	BatchSize                  int             `json:"batch_size"`
	MaxBatches                 int             `json:"max_batches"`
	NumberOfThreads            int             `json:"number_of_threads"`
	PersistIndexes             bool            `json:"persist_indexes"`
	AutomaticIndexUpdates      bool            `json:"automatic_index_updates"`
	EnableRawDSLEndpoint       bool            `json:"enable_raw_dsl_endpoint"`
	AttachmentPathBase         string          `json:"attachment_path_base"`
	CommonTermsCutoffFrequency float64         `json:"common_terms_cutoff_frequency"`
	UpdateWaitIntervalMinutes  int             `json:"update_wait_interval_minutes"`
	EagerIndexingGroups        []authctx.Context `json:"eager_indexing_groups"`
	IgnoredAllowedGroups       []authctx.Group `json:"ignored_allowed_groups"`
	DefaultSettings            json.RawMessage `json:"default_settings,omitempty"`
	Types                      []IndexDefinition `json:"types"`
}

const (
	defaultBatchSize       = 100
	defaultNumberOfThreads = 1
)

// ValidationErrors aggregates every configuration problem found so a
// caller sees the full report instead of the first failure.
type ValidationErrors []error

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "no validation errors"
	}
	s := fmt.Sprintf("%d configuration error(s):", len(v))
	for _, e := range v {
		s += "\n  - " + e.Error()
	}
	return s
}

// Load decodes and validates a configuration document, applying
// defaults and expanding composite index definitions.
func Load(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: invalid JSON: %w", err)
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.NumberOfThreads == 0 {
		cfg.NumberOfThreads = defaultNumberOfThreads
	}

	for i := range cfg.Types {
		injectUUID(&cfg.Types[i])
	}

	if errs := cfg.expand(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	if errs := cfg.validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &cfg, nil
}

func injectUUID(d *IndexDefinition) {
	if d.IsComposite() {
		return
	}
	for _, p := range d.Properties {
		if p.Name == "uuid" {
			return
		}
	}
	d.Properties = append(d.Properties, PropertyDefinition{
		Name:    "uuid",
		RawPath: []string{MuUUID},
		Type:    TypeSimple,
	})
}

// expand resolves composite index definitions into their per-type
// sub-indexes and parses every property path.
func (c *Config) expand() []error {
	var errs []error
	byName := make(map[string]*IndexDefinition, len(c.Types))
	for i := range c.Types {
		byName[c.Types[i].Name] = &c.Types[i]
	}

	for i := range c.Types {
		d := &c.Types[i]
		for pi := range d.Properties {
			if err := d.Properties[pi].parsePath(); err != nil {
				errs = append(errs, fmt.Errorf("type %q: %w", d.Name, err))
			}
			for spi := range d.Properties[pi].SubProps {
				if err := d.Properties[pi].SubProps[spi].parsePath(); err != nil {
					errs = append(errs, fmt.Errorf("type %q: %w", d.Name, err))
				}
			}
		}
		if !d.IsComposite() {
			continue
		}
		for _, refName := range d.CompositeTypes {
			ref, ok := byName[refName]
			if !ok {
				errs = append(errs, fmt.Errorf("composite type %q references unknown type %q", d.Name, refName))
				continue
			}
			sub := IndexDefinition{
				Name:     refName,
				RDFTypes: ref.RDFTypes,
			}
			for _, prop := range d.Properties {
				source := prop.Name
				if mapped, ok := prop.Mappings[refName]; ok {
					source = mapped
				}
				resolved, ok := findProperty(ref.Properties, source)
				if !ok {
					errs = append(errs, fmt.Errorf("composite type %q: property %q has no source %q in %q", d.Name, prop.Name, source, refName))
					continue
				}
				resolved.Name = prop.Name
				sub.Properties = append(sub.Properties, resolved)
			}
			injectUUID(&sub)
			d.SubIndexes = append(d.SubIndexes, sub)
		}
	}
	return errs
}

func findProperty(props []PropertyDefinition, name string) (PropertyDefinition, bool) {
	for _, p := range props {
		if p.Name == name {
			return p, true
		}
	}
	return PropertyDefinition{}, false
}

func (c *Config) validate() []error {
	var errs []error
	seenName := make(map[string]bool)
	seenOnPath := make(map[string]bool)

	for _, d := range c.Types {
		if d.Name == "" {
			errs = append(errs, fmt.Errorf("type definition missing name"))
			continue
		}
		if seenName[d.Name] {
			errs = append(errs, fmt.Errorf("duplicate type name %q", d.Name))
		}
		seenName[d.Name] = true

		if d.OnPath != "" {
			if seenOnPath[d.OnPath] {
				errs = append(errs, fmt.Errorf("duplicate on_path %q", d.OnPath))
			}
			seenOnPath[d.OnPath] = true
		}

		if d.IsComposite() == (len(d.RDFTypes) > 0) {
			errs = append(errs, fmt.Errorf("type %q must declare exactly one of rdf_types or composite_types", d.Name))
		}

		if d.IsComposite() {
			for _, p := range d.Properties {
				if len(p.RawPath) > 0 || p.Type != "" || p.RDFType != "" || len(p.SubProps) > 0 {
					errs = append(errs, fmt.Errorf("composite type %q: property %q must be a {name, mappings} object, not a regular property", d.Name, p.Name))
				}
			}
		}
	}

	for _, group := range c.EagerIndexingGroups {
		hasWildcard, hasOther := false, false
		for _, g := range group {
			if g.Name == "*" {
				hasWildcard = true
			} else {
				hasOther = true
			}
		}
		if hasWildcard && hasOther {
			errs = append(errs, fmt.Errorf("eager indexing group mixes wildcard \"*\" with named groups"))
		}
	}

	return errs
}

// PathIndex builds the reverse predicate index (§4.1) used by the
// Delta Processor: for every configured property path, which index
// type and property it feeds. A nested sub-property is registered
// under its full path from the indexed resource (the parent's path
// followed by its own).
func (c *Config) PathIndex() *pathexpr.Index {
	var refs []pathexpr.Ref
	var collect func(typeName string, prefix pathexpr.Path, props []PropertyDefinition)
	collect = func(typeName string, prefix pathexpr.Path, props []PropertyDefinition) {
		for _, p := range props {
			full := append(append(pathexpr.Path(nil), prefix...), p.Path...)
			if len(p.Path) > 0 {
				refs = append(refs, pathexpr.Ref{TypeName: typeName, PropertyName: p.Name, Path: full})
			}
			if len(p.SubProps) > 0 {
				collect(typeName, full, p.SubProps)
			}
		}
	}
	for _, d := range c.Types {
		if d.IsComposite() {
			for _, sub := range d.SubIndexes {
				collect(d.Name, nil, sub.Properties)
			}
			continue
		}
		collect(d.Name, nil, d.Properties)
	}
	return pathexpr.NewIndex(refs)
}

// TypeByName returns the index definition with the given name.
func (c *Config) TypeByName(name string) (IndexDefinition, bool) {
	for _, d := range c.Types {
		if d.Name == name {
			return d, true
		}
	}
	return IndexDefinition{}, false
}
