package clickhouse

import (
	"context"
	"fmt"
)

// Daily rows are rewritten on every event of the day; ReplacingMergeTree keeps the latest by timestamp
var ddl = []string{
	`CREATE TABLE IF NOT EXISTS trades (
		id String,
		trader String,
		subject String,
		referrer String,
		referral_eth_amount UInt256,
		is_buy UInt8,
		pass_amount UInt256,
		eth_amount UInt256,
		protocol_eth_amount UInt256,
		subject_eth_amount UInt256,
		supply UInt256,
		block_number UInt64,
		block_timestamp DateTime,
		transaction_hash String
	) ENGINE = ReplacingMergeTree
	ORDER BY id`,
	`CREATE TABLE IF NOT EXISTS tips (
		id String,
		gifter String,
		streamer String,
		amount UInt256,
		gift_id UInt256,
		protocol_fee UInt256,
		total_price UInt256
	) ENGINE = ReplacingMergeTree
	ORDER BY id`,
	`CREATE TABLE IF NOT EXISTS account_daily (
		id String,
		account String,
		day UInt32,
		day_buy_volume UInt256,
		day_sell_volume UInt256,
		day_price_change Int256,
		timestamp UInt64
	) ENGINE = ReplacingMergeTree(timestamp)
	ORDER BY (account, day)`,
	`CREATE TABLE IF NOT EXISTS protocol_daily (
		id String,
		protocol String,
		day UInt32,
		user_count UInt256,
		total_trade_volume UInt256,
		total_trades UInt256,
		total_protocol_revenue UInt256,
		total_account_revenue UInt256,
		day_trades UInt256,
		day_buy_volume UInt256,
		day_sell_volume UInt256,
		day_trade_volume UInt256,
		day_protocol_revenue UInt256,
		day_account_revenue UInt256,
		timestamp UInt64
	) ENGINE = ReplacingMergeTree(timestamp)
	ORDER BY (protocol, day)`,
}

func (c *Conn) EnsureSchema(ctx context.Context) error {
	for _, q := range ddl {
		if err := c.Native.Exec(ctx, q); err != nil {
			return fmt.Errorf("clickhouse ddl: %w", err)
		}
	}
	return nil
}
