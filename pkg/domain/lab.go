package domain

import "slices"

// CompoundStatus tracks a compound through screening.
type CompoundStatus string

// Compound statuses.
const (
	CompoundSynthesized CompoundStatus = "synthesized"
	CompoundTesting     CompoundStatus = "testing"
	CompoundApproved    CompoundStatus = "approved"
	CompoundRejected    CompoundStatus = "rejected"
)

// ExperimentStatus tracks an experiment run.
type ExperimentStatus string

// Experiment statuses.
const (
	ExperimentPlanned   ExperimentStatus = "planned"
	ExperimentRunning   ExperimentStatus = "running"
	ExperimentCompleted ExperimentStatus = "completed"
	ExperimentFailed    ExperimentStatus = "failed"
)

var (
	CompoundStatuses   = []string{string(CompoundSynthesized), string(CompoundTesting), string(CompoundApproved), string(CompoundRejected)}
	ExperimentStatuses = []string{string(ExperimentPlanned), string(ExperimentRunning), string(ExperimentCompleted), string(ExperimentFailed)}
)

// Compound is a substance tracked by the lab.
type Compound struct {
	Base            `yaml:",inline"`
	Name            string         `json:"name" yaml:"name"`
	Formula         string         `json:"formula" yaml:"formula"`
	MolecularWeight float64        `json:"molecular_weight" yaml:"molecular_weight"`
	Status          CompoundStatus `json:"status" yaml:"status"`
	Images          []string       `json:"images" yaml:"images"`
}

// EntityType implements Record.
func (Compound) EntityType() EntityType { return EntityCompound }

// Clone implements Record.
func (c *Compound) Clone() Record {
	cp := *c
	cp.Images = slices.Clone(c.Images)
	return &cp
}

// AddImage appends an image reference.
func (c *Compound) AddImage(ref string) { c.Images = append(c.Images, ref) }

// RemoveImage drops every occurrence of ref and reports whether any matched.
func (c *Compound) RemoveImage(ref string) bool {
	n := len(c.Images)
	c.Images = slices.DeleteFunc(c.Images, func(img string) bool { return img == ref })
	return len(c.Images) != n
}

// ImageRefs returns the stored image references.
func (c *Compound) ImageRefs() []string { return slices.Clone(c.Images) }

// Experiment is a run performed against a compound.
type Experiment struct {
	Base       `yaml:",inline"`
	Title      string           `json:"title" yaml:"title"`
	CompoundID string           `json:"compound_id" yaml:"compound_id"`
	Researcher string           `json:"researcher" yaml:"researcher"`
	Status     ExperimentStatus `json:"status" yaml:"status"`
	Result     float64          `json:"result" yaml:"result"`
	Date       string           `json:"date" yaml:"date"`
}

// EntityType implements Record.
func (Experiment) EntityType() EntityType { return EntityExperiment }

// Clone implements Record.
func (e *Experiment) Clone() Record {
	cp := *e
	return &cp
}

// CompoundSchema describes the compounds collection.
var CompoundSchema = NewSchema(EntityCompound, "compounds", func() *Compound { return &Compound{} },
	TextField("name", func(c *Compound) string { return c.Name }, func(c *Compound, v string) { c.Name = v }).Require(),
	TextField("formula", func(c *Compound) string { return c.Formula }, func(c *Compound, v string) { c.Formula = v }),
	NumberField("molecular_weight", func(c *Compound) float64 { return c.MolecularWeight }, func(c *Compound, v float64) { c.MolecularWeight = v }),
	EnumField("status", CompoundStatuses, func(c *Compound) string { return string(c.Status) }, func(c *Compound, v string) { c.Status = CompoundStatus(v) }).Require(),
).WithSearch("name", "formula")

// ExperimentSchema describes the experiments collection.
var ExperimentSchema = NewSchema(EntityExperiment, "experiments", func() *Experiment { return &Experiment{} },
	TextField("title", func(e *Experiment) string { return e.Title }, func(e *Experiment, v string) { e.Title = v }).Require(),
	RefField("compound_id", EntityCompound, func(e *Experiment) string { return e.CompoundID }, func(e *Experiment, v string) { e.CompoundID = v }).Require(),
	TextField("researcher", func(e *Experiment) string { return e.Researcher }, func(e *Experiment, v string) { e.Researcher = v }),
	EnumField("status", ExperimentStatuses, func(e *Experiment) string { return string(e.Status) }, func(e *Experiment, v string) { e.Status = ExperimentStatus(v) }).Require(),
	NumberField("result", func(e *Experiment) float64 { return e.Result }, func(e *Experiment, v float64) { e.Result = v }),
	DateField("date", func(e *Experiment) string { return e.Date }, func(e *Experiment, v string) { e.Date = v }),
).WithSearch("title", "researcher")
