package domain

import "github.com/shopspring/decimal"

// ContactStatus is the CRM lifecycle stage of a contact.
type ContactStatus string

// Contact lifecycle stages.
const (
	ContactLead     ContactStatus = "lead"
	ContactProspect ContactStatus = "prospect"
	ContactCustomer ContactStatus = "customer"
	ContactInactive ContactStatus = "inactive"
)

// TicketPriority ranks a support ticket.
type TicketPriority string

// Ticket priorities.
const (
	PriorityLow    TicketPriority = "low"
	PriorityMedium TicketPriority = "medium"
	PriorityHigh   TicketPriority = "high"
	PriorityUrgent TicketPriority = "urgent"
)

// TicketStatus tracks ticket resolution.
type TicketStatus string

// Ticket statuses.
const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketResolved   TicketStatus = "resolved"
	TicketClosed     TicketStatus = "closed"
)

// InvoiceStatus tracks billing progress.
type InvoiceStatus string

// Invoice statuses.
const (
	InvoiceDraft   InvoiceStatus = "draft"
	InvoiceSent    InvoiceStatus = "sent"
	InvoicePaid    InvoiceStatus = "paid"
	InvoiceOverdue InvoiceStatus = "overdue"
)

var (
	ContactStatuses  = []string{string(ContactLead), string(ContactProspect), string(ContactCustomer), string(ContactInactive)}
	TicketPriorities = []string{string(PriorityLow), string(PriorityMedium), string(PriorityHigh), string(PriorityUrgent)}
	TicketStatuses   = []string{string(TicketOpen), string(TicketInProgress), string(TicketResolved), string(TicketClosed)}
	InvoiceStatuses  = []string{string(InvoiceDraft), string(InvoiceSent), string(InvoicePaid), string(InvoiceOverdue)}
)

// Contact is a CRM contact.
type Contact struct {
	Base    `yaml:",inline"`
	Name    string        `json:"name" yaml:"name"`
	Email   string        `json:"email" yaml:"email"`
	Phone   string        `json:"phone" yaml:"phone"`
	Company string        `json:"company" yaml:"company"`
	Status  ContactStatus `json:"status" yaml:"status"`
}

// EntityType implements Record.
func (Contact) EntityType() EntityType { return EntityContact }

// Clone implements Record.
func (c *Contact) Clone() Record {
	cp := *c
	return &cp
}

// Ticket is a support request raised by a contact.
type Ticket struct {
	Base        `yaml:",inline"`
	Subject     string         `json:"subject" yaml:"subject"`
	Description string         `json:"description" yaml:"description"`
	ContactID   string         `json:"contact_id" yaml:"contact_id"`
	Priority    TicketPriority `json:"priority" yaml:"priority"`
	Status      TicketStatus   `json:"status" yaml:"status"`
}

// EntityType implements Record.
func (Ticket) EntityType() EntityType { return EntityTicket }

// Clone implements Record.
func (t *Ticket) Clone() Record {
	cp := *t
	return &cp
}

// Invoice is a bill issued to a contact. Numbers are not unique.
type Invoice struct {
	Base      `yaml:",inline"`
	Number    string          `json:"number" yaml:"number"`
	ContactID string          `json:"contact_id" yaml:"contact_id"`
	Amount    decimal.Decimal `json:"amount" yaml:"amount"`
	Status    InvoiceStatus   `json:"status" yaml:"status"`
	DueDate   string          `json:"due_date" yaml:"due_date"`
}

// EntityType implements Record.
func (Invoice) EntityType() EntityType { return EntityInvoice }

// Clone implements Record.
func (i *Invoice) Clone() Record {
	cp := *i
	return &cp
}

// ContactSchema describes the contacts collection.
var ContactSchema = NewSchema(EntityContact, "contacts", func() *Contact { return &Contact{} },
	TextField("name", func(c *Contact) string { return c.Name }, func(c *Contact, v string) { c.Name = v }).Require(),
	TextField("email", func(c *Contact) string { return c.Email }, func(c *Contact, v string) { c.Email = v }),
	TextField("phone", func(c *Contact) string { return c.Phone }, func(c *Contact, v string) { c.Phone = v }),
	TextField("company", func(c *Contact) string { return c.Company }, func(c *Contact, v string) { c.Company = v }),
	EnumField("status", ContactStatuses, func(c *Contact) string { return string(c.Status) }, func(c *Contact, v string) { c.Status = ContactStatus(v) }).Require(),
).WithSearch("name", "email", "company")

// TicketSchema describes the tickets collection.
var TicketSchema = NewSchema(EntityTicket, "tickets", func() *Ticket { return &Ticket{} },
	TextField("subject", func(t *Ticket) string { return t.Subject }, func(t *Ticket, v string) { t.Subject = v }).Require(),
	TextField("description", func(t *Ticket) string { return t.Description }, func(t *Ticket, v string) { t.Description = v }),
	RefField("contact_id", EntityContact, func(t *Ticket) string { return t.ContactID }, func(t *Ticket, v string) { t.ContactID = v }),
	EnumField("priority", TicketPriorities, func(t *Ticket) string { return string(t.Priority) }, func(t *Ticket, v string) { t.Priority = TicketPriority(v) }).Require(),
	EnumField("status", TicketStatuses, func(t *Ticket) string { return string(t.Status) }, func(t *Ticket, v string) { t.Status = TicketStatus(v) }).Require(),
).WithSearch("subject", "description")

// InvoiceSchema describes the invoices collection.
var InvoiceSchema = NewSchema(EntityInvoice, "invoices", func() *Invoice { return &Invoice{} },
	TextField("number", func(i *Invoice) string { return i.Number }, func(i *Invoice, v string) { i.Number = v }).Require(),
	RefField("contact_id", EntityContact, func(i *Invoice) string { return i.ContactID }, func(i *Invoice, v string) { i.ContactID = v }),
	MoneyField("amount", func(i *Invoice) decimal.Decimal { return i.Amount }, func(i *Invoice, v decimal.Decimal) { i.Amount = v }),
	EnumField("status", InvoiceStatuses, func(i *Invoice) string { return string(i.Status) }, func(i *Invoice, v string) { i.Status = InvoiceStatus(v) }).Require(),
	DateField("due_date", func(i *Invoice) string { return i.DueDate }, func(i *Invoice, v string) { i.DueDate = v }),
).WithSearch("number")
