package service

import (
	"time"

	"passindexer/internal/domain"
)

// Outcome lists the entities an event left behind, in their saved state
type Outcome struct {
	EventID       string
	Type          domain.EventType
	BlockNumber   uint64
	Protocol      *domain.Protocol
	Accounts      []*domain.Account
	Holding       *domain.Holding
	Trade         *domain.Trade
	Tip           *domain.Tip
	AccountDaily  *domain.AccountDaily
	ProtocolDaily *domain.ProtocolDaily
}

// Patches turns the outcome into broadcast updates, topics are relative to the broadcast prefix
func (o *Outcome) Patches(now time.Time) []domain.EntityPatch {
	if o == nil {
		return nil
	}

	patches := make([]domain.EntityPatch, 0, 8)
	add := func(topic, kind string, entity any) {
		patches = append(patches, domain.EntityPatch{
			Topic:       topic,
			Kind:        kind,
			EventID:     o.EventID,
			GeneratedAt: now,
			Entity:      entity,
		})
	}

	if o.Protocol != nil {
		add("protocol", "protocol", o.Protocol)
	}
	if o.ProtocolDaily != nil {
		add("protocol.daily", "protocol_daily", o.ProtocolDaily)
	}
	for _, a := range o.Accounts {
		add("account."+a.ID, "account", a)
	}
	if o.Holding != nil {
		add("holding."+o.Holding.Holder, "holding", o.Holding)
	}
	if o.AccountDaily != nil {
		add("account."+o.AccountDaily.Account+".daily", "account_daily", o.AccountDaily)
	}
	if o.Trade != nil {
		add("trades", "trade", o.Trade)
	}
	if o.Tip != nil {
		add("tips", "tip", o.Tip)
	}

	return patches
}
