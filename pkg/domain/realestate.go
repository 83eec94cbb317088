package domain

import "slices"

// PropertyType classifies a listing.
type PropertyType string

// Listing types shown in the property type distribution.
const (
	PropertyHouse     PropertyType = "house"
	PropertyApartment PropertyType = "apartment"
	PropertyCondo     PropertyType = "condo"
	PropertyTownhouse PropertyType = "townhouse"
	PropertyLand      PropertyType = "land"
)

// ListingStatus tracks where a listing is in the sales cycle.
type ListingStatus string

// Listing statuses.
const (
	ListingAvailable ListingStatus = "available"
	ListingPending   ListingStatus = "pending"
	ListingSold      ListingStatus = "sold"
	ListingRented    ListingStatus = "rented"
)

// AppointmentStatus tracks a viewing appointment.
type AppointmentStatus string

// Appointment statuses.
const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// Enumerations in display order.
var (
	PropertyTypes       = []string{string(PropertyHouse), string(PropertyApartment), string(PropertyCondo), string(PropertyTownhouse), string(PropertyLand)}
	ListingStatuses     = []string{string(ListingAvailable), string(ListingPending), string(ListingSold), string(ListingRented)}
	AppointmentStatuses = []string{string(AppointmentScheduled), string(AppointmentCompleted), string(AppointmentCancelled)}
)

// Property is a real estate listing.
type Property struct {
	Base        `yaml:",inline"`
	Title       string        `json:"title" yaml:"title"`
	Address     string        `json:"address" yaml:"address"`
	City        string        `json:"city" yaml:"city"`
	Type        PropertyType  `json:"type" yaml:"type"`
	Status      ListingStatus `json:"status" yaml:"status"`
	Price       float64       `json:"price" yaml:"price"`
	Bedrooms    int           `json:"bedrooms" yaml:"bedrooms"`
	Bathrooms   int           `json:"bathrooms" yaml:"bathrooms"`
	Area        float64       `json:"area" yaml:"area"`
	Description string        `json:"description" yaml:"description"`
	Images      []string      `json:"images" yaml:"images"`
}

// EntityType implements Record.
func (Property) EntityType() EntityType { return EntityProperty }

// Clone implements Record.
func (p *Property) Clone() Record {
	cp := *p
	cp.Images = slices.Clone(p.Images)
	return &cp
}

// AddImage appends an image reference.
func (p *Property) AddImage(ref string) { p.Images = append(p.Images, ref) }

// RemoveImage drops every occurrence of ref and reports whether any matched.
func (p *Property) RemoveImage(ref string) bool {
	n := len(p.Images)
	p.Images = slices.DeleteFunc(p.Images, func(img string) bool { return img == ref })
	return len(p.Images) != n
}

// ImageRefs returns the stored image references.
func (p *Property) ImageRefs() []string { return slices.Clone(p.Images) }

// Appointment is a viewing booked against a property.
type Appointment struct {
	Base        `yaml:",inline"`
	PropertyID  string            `json:"property_id" yaml:"property_id"`
	ClientName  string            `json:"client_name" yaml:"client_name"`
	ClientEmail string            `json:"client_email" yaml:"client_email"`
	Date        string            `json:"date" yaml:"date"`
	Time        string            `json:"time" yaml:"time"`
	Status      AppointmentStatus `json:"status" yaml:"status"`
	Notes       string            `json:"notes" yaml:"notes"`
}

// EntityType implements Record.
func (Appointment) EntityType() EntityType { return EntityAppointment }

// Clone implements Record.
func (a *Appointment) Clone() Record {
	cp := *a
	return &cp
}

// PropertySchema describes the properties collection.
var PropertySchema = NewSchema(EntityProperty, "properties", func() *Property { return &Property{} },
	TextField("title", func(p *Property) string { return p.Title }, func(p *Property, v string) { p.Title = v }).Require(),
	TextField("address", func(p *Property) string { return p.Address }, func(p *Property, v string) { p.Address = v }),
	TextField("city", func(p *Property) string { return p.City }, func(p *Property, v string) { p.City = v }),
	EnumField("type", PropertyTypes, func(p *Property) string { return string(p.Type) }, func(p *Property, v string) { p.Type = PropertyType(v) }).Require(),
	EnumField("status", ListingStatuses, func(p *Property) string { return string(p.Status) }, func(p *Property, v string) { p.Status = ListingStatus(v) }).Require(),
	NumberField("price", func(p *Property) float64 { return p.Price }, func(p *Property, v float64) { p.Price = v }),
	IntField("bedrooms", func(p *Property) int { return p.Bedrooms }, func(p *Property, v int) { p.Bedrooms = v }),
	IntField("bathrooms", func(p *Property) int { return p.Bathrooms }, func(p *Property, v int) { p.Bathrooms = v }),
	NumberField("area", func(p *Property) float64 { return p.Area }, func(p *Property, v float64) { p.Area = v }),
	TextField("description", func(p *Property) string { return p.Description }, func(p *Property, v string) { p.Description = v }),
).WithSearch("title", "address", "city").WithZeroMaxUnbounded()

// AppointmentSchema describes the appointments collection.
var AppointmentSchema = NewSchema(EntityAppointment, "appointments", func() *Appointment { return &Appointment{} },
	RefField("property_id", EntityProperty, func(a *Appointment) string { return a.PropertyID }, func(a *Appointment, v string) { a.PropertyID = v }).Require(),
	TextField("client_name", func(a *Appointment) string { return a.ClientName }, func(a *Appointment, v string) { a.ClientName = v }).Require(),
	TextField("client_email", func(a *Appointment) string { return a.ClientEmail }, func(a *Appointment, v string) { a.ClientEmail = v }),
	DateField("date", func(a *Appointment) string { return a.Date }, func(a *Appointment, v string) { a.Date = v }).Require(),
	TextField("time", func(a *Appointment) string { return a.Time }, func(a *Appointment, v string) { a.Time = v }),
	EnumField("status", AppointmentStatuses, func(a *Appointment) string { return string(a.Status) }, func(a *Appointment, v string) { a.Status = AppointmentStatus(v) }).Require(),
	TextField("notes", func(a *Appointment) string { return a.Notes }, func(a *Appointment, v string) { a.Notes = v }),
).WithSearch("client_name", "client_email", "notes")
