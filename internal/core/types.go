package core

import "deskcore/pkg/domain"

type (
	EntityType         = domain.EntityType
	Severity           = domain.Severity
	Base               = domain.Base
	Record             = domain.Record
	Snapshot           = domain.Snapshot
	Change             = domain.Change
	Violation          = domain.Violation
	Result             = domain.Result
	RuleViolationError = domain.RuleViolationError
	Rule               = domain.Rule
	RulesEngine        = domain.RulesEngine
	Catalog            = domain.Catalog
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ChangeCreate = domain.ActionCreate
	ChangeUpdate = domain.ActionUpdate
	ChangeDelete = domain.ActionDelete
)
