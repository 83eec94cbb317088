package domain

import (
	"fmt"
	"slices"
	"sort"
)

// App identifiers.
const (
	AppRealEstate = "realestate"
	AppSuite      = "suite"
	AppCFO        = "cfo"
	AppPEFund     = "pefund"
	AppLab        = "lab"
)

// Catalog groups the schemas and cascade rules of one application.
type Catalog struct {
	app         string
	descriptors []Descriptor
	byEntity    map[EntityType]Descriptor
	byKey       map[string]Descriptor
	rules       []CascadeRule
	cascades    map[EntityType][]BoundCascade
}

// NewCatalog validates the cascade rules against the descriptors.
func NewCatalog(app string, rules []CascadeRule, descriptors ...Descriptor) (*Catalog, error) {
	c := &Catalog{
		app:      app,
		byEntity: make(map[EntityType]Descriptor, len(descriptors)),
		byKey:    make(map[string]Descriptor, len(descriptors)),
		rules:    slices.Clone(rules),
		cascades: make(map[EntityType][]BoundCascade),
	}
	for _, d := range descriptors {
		if _, dup := c.byEntity[d.Entity()]; dup {
			return nil, fmt.Errorf("catalog %s: duplicate entity %s", app, d.Entity())
		}
		if _, dup := c.byKey[d.Key()]; dup {
			return nil, fmt.Errorf("catalog %s: duplicate key %s", app, d.Key())
		}
		c.byEntity[d.Entity()] = d
		c.byKey[d.Key()] = d
		c.descriptors = append(c.descriptors, d)
	}
	for _, rule := range rules {
		on, ok := c.byEntity[rule.On]
		if !ok {
			return nil, fmt.Errorf("catalog %s: cascade %s: %w", app, rule, ErrUnknownEntity)
		}
		holder, ok := c.byEntity[rule.Holder]
		if !ok {
			return nil, fmt.Errorf("catalog %s: cascade %s: %w", app, rule, ErrUnknownEntity)
		}
		bound, err := bindCascade(rule, on, holder)
		if err != nil {
			return nil, fmt.Errorf("catalog %s: %w", app, err)
		}
		c.cascades[rule.On] = append(c.cascades[rule.On], bound)
	}
	return c, nil
}

// App returns the application identifier.
func (c *Catalog) App() string { return c.app }

// Descriptors returns the schemas in declaration order.
func (c *Catalog) Descriptors() []Descriptor { return slices.Clone(c.descriptors) }

// Entities returns the entity types in declaration order.
func (c *Catalog) Entities() []EntityType {
	out := make([]EntityType, len(c.descriptors))
	for i, d := range c.descriptors {
		out[i] = d.Entity()
	}
	return out
}

// Descriptor looks up a schema by entity type.
func (c *Catalog) Descriptor(entity EntityType) (Descriptor, bool) {
	d, ok := c.byEntity[entity]
	return d, ok
}

// ByKey looks up a schema by its persistence key.
func (c *Catalog) ByKey(key string) (Descriptor, bool) {
	d, ok := c.byKey[key]
	return d, ok
}

// Resolve accepts either an entity type or a collection key.
func (c *Catalog) Resolve(name string) (Descriptor, error) {
	if d, ok := c.byEntity[EntityType(name)]; ok {
		return d, nil
	}
	if d, ok := c.byKey[name]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("%w: %q in %s", ErrUnknownEntity, name, c.app)
}

// Rules returns the declared cascade rules.
func (c *Catalog) Rules() []CascadeRule { return slices.Clone(c.rules) }

// CascadesFor returns the rules triggered by deleting a record of entity.
func (c *Catalog) CascadesFor(entity EntityType) []BoundCascade {
	return slices.Clone(c.cascades[entity])
}

// References lists every reference field across the catalog.
func (c *Catalog) References() []Reference {
	var out []Reference
	for _, d := range c.descriptors {
		out = append(out, d.References()...)
	}
	return out
}

var catalogs = map[string]func() (*Catalog, error){
	AppRealEstate: func() (*Catalog, error) {
		return NewCatalog(AppRealEstate, []CascadeRule{
			{On: EntityProperty, Holder: EntityAppointment, Field: "property_id", Mode: CascadeDelete},
		}, PropertySchema, AppointmentSchema)
	},
	AppSuite: func() (*Catalog, error) {
		return NewCatalog(AppSuite, []CascadeRule{
			{On: EntityContact, Holder: EntityTicket, Field: "contact_id", Mode: CascadeDelete},
			{On: EntityContact, Holder: EntityInvoice, Field: "contact_id", Mode: CascadeNullify},
		}, ContactSchema, TicketSchema, InvoiceSchema)
	},
	AppCFO: func() (*Catalog, error) {
		return NewCatalog(AppCFO, nil, TransactionSchema, InsightSchema)
	},
	AppPEFund: func() (*Catalog, error) {
		return NewCatalog(AppPEFund, []CascadeRule{
			{On: EntityFund, Holder: EntityCompany, Field: "fund_id", Mode: CascadeDelete},
			{On: EntityFund, Holder: EntityCompany, Field: "company_ids", Mode: CascadeOwned},
			{On: EntityCompany, Holder: EntityFund, Field: "company_ids", Mode: CascadeUnlink},
		}, FundSchema, CompanySchema)
	},
	AppLab: func() (*Catalog, error) {
		return NewCatalog(AppLab, []CascadeRule{
			{On: EntityCompound, Holder: EntityExperiment, Field: "compound_id", Mode: CascadeDelete},
		}, CompoundSchema, ExperimentSchema)
	},
}

// CatalogFor builds the catalog of a registered application.
func CatalogFor(app string) (*Catalog, error) {
	build, ok := catalogs[app]
	if !ok {
		return nil, fmt.Errorf("unknown app %q (known: %v)", app, AppNames())
	}
	return build()
}

// AppNames lists registered applications in sorted order.
func AppNames() []string {
	names := make([]string, 0, len(catalogs))
	for name := range catalogs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
