package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrInvalidEvent = errors.New("invalid event")

type EventType string

const (
	EventTrade EventType = "trade" // Trade(trader, streamer, referrer, ...) on the passes contract
	EventMint  EventType = "mint"  // Minted(gifter, streamer, ...) on the gifts contract
)

// Log position and block context, filled in by the feed
type EventMeta struct {
	ChainID        uint32 `json:"chain_id"`
	BlockNumber    uint64 `json:"block_number"`
	BlockTimestamp uint64 `json:"block_timestamp"` // unix seconds
	TxHash         string `json:"tx_hash"`         // 0x-prefixed 66 chars
	LogIndex       uint32 `json:"log_index"`
}

func (m EventMeta) EventID() string {
	return MakeEventID(m.ChainID, m.TxHash, m.LogIndex)
}

type TradeParams struct {
	Trader            string          `json:"trader"`
	Streamer          string          `json:"streamer"` // the subject
	Referrer          string          `json:"referrer"`
	ReferralEthAmount decimal.Decimal `json:"referral_eth_amount"`
	IsBuy             bool            `json:"is_buy"`
	PassAmount        decimal.Decimal `json:"pass_amount"`
	EthAmount         decimal.Decimal `json:"eth_amount"`
	ProtocolEthAmount decimal.Decimal `json:"protocol_eth_amount"`
	StreamerEthAmount decimal.Decimal `json:"streamer_eth_amount"`
	Supply            decimal.Decimal `json:"supply"` // post-trade supply as reported by the contract
}

type MintParams struct {
	Gifter      string          `json:"gifter"`
	Streamer    string          `json:"streamer"`
	Amount      decimal.Decimal `json:"amount"`
	GiftID      decimal.Decimal `json:"gift_id"`
	ProtocolFee decimal.Decimal `json:"protocol_fee"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

type TradeEvent struct {
	EventMeta
	TradeParams
}

type MintEvent struct {
	EventMeta
	MintParams
}

// Envelope is the wire form of one decoded log on the feed.
// Messages are keyed by chain id; a chain's events share one partition.
type Envelope struct {
	Type EventType `json:"type"`
	EventMeta
	Trade *TradeParams `json:"trade,omitempty"`
	Mint  *MintParams  `json:"mint,omitempty"`
}

// Validate checks the fields every handler relies on; amounts must be non-negative integers
func (e *Envelope) Validate() error {
	if e.TxHash == "" {
		return fmt.Errorf("%w: tx_hash is required", ErrInvalidEvent)
	}

	switch e.Type {
	case EventTrade:
		if e.Trade == nil {
			return fmt.Errorf("%w: trade payload is required", ErrInvalidEvent)
		}
		if e.Trade.Trader == "" || e.Trade.Streamer == "" {
			return fmt.Errorf("%w: trader and streamer are required", ErrInvalidEvent)
		}
		return checkAmounts(map[string]decimal.Decimal{
			"referral_eth_amount": e.Trade.ReferralEthAmount,
			"pass_amount":         e.Trade.PassAmount,
			"eth_amount":          e.Trade.EthAmount,
			"protocol_eth_amount": e.Trade.ProtocolEthAmount,
			"streamer_eth_amount": e.Trade.StreamerEthAmount,
			"supply":              e.Trade.Supply,
		})
	case EventMint:
		if e.Mint == nil {
			return fmt.Errorf("%w: mint payload is required", ErrInvalidEvent)
		}
		if e.Mint.Gifter == "" || e.Mint.Streamer == "" {
			return fmt.Errorf("%w: gifter and streamer are required", ErrInvalidEvent)
		}
		return checkAmounts(map[string]decimal.Decimal{
			"amount":       e.Mint.Amount,
			"gift_id":      e.Mint.GiftID,
			"protocol_fee": e.Mint.ProtocolFee,
			"total_price":  e.Mint.TotalPrice,
		})
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Type)
	}
}

func checkAmounts(fields map[string]decimal.Decimal) error {
	for name, v := range fields {
		if v.IsNegative() || !v.IsInteger() {
			return fmt.Errorf("%w: %s=%s must be a non-negative integer", ErrInvalidEvent, name, v.String())
		}
	}
	return nil
}

// TradeEvent returns the typed trade with addresses normalized
func (e *Envelope) TradeEvent() (*TradeEvent, error) {
	if e.Type != EventTrade || e.Trade == nil {
		return nil, fmt.Errorf("%w: not a trade", ErrInvalidEvent)
	}

	p := *e.Trade
	p.Trader = NormalizeHex(p.Trader)
	p.Streamer = NormalizeHex(p.Streamer)
	if p.Referrer != "" {
		p.Referrer = NormalizeHex(p.Referrer)
	}

	return &TradeEvent{EventMeta: e.normalizedMeta(), TradeParams: p}, nil
}

// MintEvent returns the typed mint with addresses normalized
func (e *Envelope) MintEvent() (*MintEvent, error) {
	if e.Type != EventMint || e.Mint == nil {
		return nil, fmt.Errorf("%w: not a mint", ErrInvalidEvent)
	}

	p := *e.Mint
	p.Gifter = NormalizeHex(p.Gifter)
	p.Streamer = NormalizeHex(p.Streamer)

	return &MintEvent{EventMeta: e.normalizedMeta(), MintParams: p}, nil
}

func (e *Envelope) normalizedMeta() EventMeta {
	m := e.EventMeta
	m.TxHash = NormalizeHex(m.TxHash)
	return m
}
