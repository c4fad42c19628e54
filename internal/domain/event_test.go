package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tradeJSON = `{
	"type": "trade",
	"chain_id": 1996,
	"block_number": 100,
	"block_timestamp": 1704067200,
	"tx_hash": "0xAA",
	"log_index": 3,
	"trade": {
		"trader": "0xT",
		"streamer": "0xS",
		"referrer": "0xR",
		"referral_eth_amount": "1",
		"is_buy": true,
		"pass_amount": "2",
		"eth_amount": "1000",
		"protocol_eth_amount": "50",
		"streamer_eth_amount": "50",
		"supply": "2"
	}
}`

func TestEnvelope_DecodeTrade(t *testing.T) {
	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(tradeJSON), &env))
	require.NoError(t, env.Validate())

	ev, err := env.TradeEvent()
	require.NoError(t, err)

	assert.Equal(t, "0xaa", ev.TxHash)
	assert.Equal(t, uint32(3), ev.LogIndex)
	assert.Equal(t, uint64(1704067200), ev.BlockTimestamp)
	assert.Equal(t, "0xt", ev.Trader)
	assert.Equal(t, "0xs", ev.Streamer)
	assert.True(t, ev.IsBuy)
	assert.Equal(t, "1000", ev.EthAmount.String())
	assert.Equal(t, "1996:0xaa:3", ev.EventID())

	_, err = env.MintEvent()
	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func TestEnvelope_Validate(t *testing.T) {
	tests := []struct {
		name string
		env  Envelope
	}{
		{"missing hash", Envelope{Type: EventMint, Mint: &MintParams{Gifter: "0x1", Streamer: "0x2"}}},
		{"unknown type", Envelope{Type: "burn", EventMeta: EventMeta{TxHash: "0x1"}}},
		{"trade without payload", Envelope{Type: EventTrade, EventMeta: EventMeta{TxHash: "0x1"}}},
		{"mint without streamer", Envelope{Type: EventMint, EventMeta: EventMeta{TxHash: "0x1"}, Mint: &MintParams{Gifter: "0x1"}}},
		{"negative amount", Envelope{Type: EventMint, EventMeta: EventMeta{TxHash: "0x1"}, Mint: &MintParams{
			Gifter: "0x1", Streamer: "0x2", TotalPrice: MustAmount("1").Neg(),
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.env.Validate(), ErrInvalidEvent)
		})
	}
}
