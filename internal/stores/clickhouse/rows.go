package clickhouse

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"passindexer/internal/domain"
)

// Row is one insert into a mirror table; Values follow Columns
type Row interface {
	Table() string
	Columns() []string
	Values() []any
}

func u256(d decimal.Decimal) *big.Int {
	return d.BigInt()
}

type TradeRow struct{ *domain.Trade }

func (TradeRow) Table() string { return "trades" }

func (TradeRow) Columns() []string {
	return []string{
		"id", "trader", "subject", "referrer", "referral_eth_amount", "is_buy", "pass_amount",
		"eth_amount", "protocol_eth_amount", "subject_eth_amount", "supply", "block_number",
		"block_timestamp", "transaction_hash",
	}
}

func (r TradeRow) Values() []any {
	var isBuy uint8
	if r.IsBuy {
		isBuy = 1
	}
	return []any{
		r.ID, r.Trader, r.Subject, r.Referrer, u256(r.ReferralEthAmount), isBuy, u256(r.PassAmount),
		u256(r.EthAmount), u256(r.ProtocolEthAmount), u256(r.SubjectEthAmount), u256(r.Supply), r.BlockNumber,
		time.Unix(int64(r.BlockTimestamp), 0).UTC(), r.TransactionHash,
	}
}

type TipRow struct{ *domain.Tip }

func (TipRow) Table() string { return "tips" }

func (TipRow) Columns() []string {
	return []string{"id", "gifter", "streamer", "amount", "gift_id", "protocol_fee", "total_price"}
}

func (r TipRow) Values() []any {
	return []any{
		r.ID, r.Gifter, r.Streamer, u256(r.Amount), u256(r.GiftID), u256(r.ProtocolFee), u256(r.TotalPrice),
	}
}

type AccountDailyRow struct{ *domain.AccountDaily }

func (AccountDailyRow) Table() string { return "account_daily" }

func (AccountDailyRow) Columns() []string {
	return []string{"id", "account", "day", "day_buy_volume", "day_sell_volume", "day_price_change", "timestamp"}
}

func (r AccountDailyRow) Values() []any {
	return []any{
		r.ID, r.Account, uint32(r.Day), u256(r.DayBuyVolume), u256(r.DaySellVolume),
		u256(r.DayPriceChange), r.Timestamp,
	}
}

type ProtocolDailyRow struct{ *domain.ProtocolDaily }

func (ProtocolDailyRow) Table() string { return "protocol_daily" }

func (ProtocolDailyRow) Columns() []string {
	return []string{
		"id", "protocol", "day", "user_count", "total_trade_volume", "total_trades",
		"total_protocol_revenue", "total_account_revenue", "day_trades", "day_buy_volume",
		"day_sell_volume", "day_trade_volume", "day_protocol_revenue", "day_account_revenue", "timestamp",
	}
}

func (r ProtocolDailyRow) Values() []any {
	return []any{
		r.ID, r.Protocol, uint32(r.Day), u256(r.UserCount), u256(r.TotalTradeVolume), u256(r.TotalTrades),
		u256(r.TotalProtocolRevenue), u256(r.TotalAccountRevenue), u256(r.DayTrades), u256(r.DayBuyVolume),
		u256(r.DaySellVolume), u256(r.DayTradeVolume), u256(r.DayProtocolRevenue), u256(r.DayAccountRevenue),
		r.Timestamp,
	}
}
