package core

import "deskcore/pkg/domain"

// NewDefaultRulesEngine builds a rules engine with the built-in policy set for catalog.
func NewDefaultRulesEngine(catalog *domain.Catalog) *RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewReferenceIntegrityRule(catalog))
	if _, ok := catalog.Descriptor(domain.EntityFund); ok {
		engine.Register(NewFundCapitalRule())
	}
	return engine
}
