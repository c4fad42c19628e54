package postgres

import (
	"github.com/shopspring/decimal"

	"passindexer/internal/domain"
)

// Row types mirror the domain structs field for field so they convert directly;
// a field added to a domain entity must be added here in the same position.
// Amounts are uint256 on chain, numeric(78,0) holds any of them exactly.

type accountRow struct {
	ID             string          `gorm:"primaryKey;type:varchar(42)"`
	AccountRevenue decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	AccountGifts   decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	KeySupply      decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	HoldersCount   decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	TradesCount    decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	Timestamp      uint64          `gorm:"type:bigint;not null"`
}

func (accountRow) TableName() string { return "accounts" }

func toAccountRow(a *domain.Account) *accountRow {
	r := accountRow(*a)
	return &r
}

func (r *accountRow) toDomain() *domain.Account {
	a := domain.Account(*r)
	return &a
}

type holdingRow struct {
	ID        string          `gorm:"primaryKey;type:varchar(82)"`
	Holder    string          `gorm:"type:varchar(42);not null;index"`
	Subject   string          `gorm:"type:varchar(42);not null;index"`
	KeysOwned decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	Timestamp uint64          `gorm:"type:bigint;not null"`
}

func (holdingRow) TableName() string { return "holdings" }

func toHoldingRow(h *domain.Holding) *holdingRow {
	r := holdingRow(*h)
	return &r
}

func (r *holdingRow) toDomain() *domain.Holding {
	h := domain.Holding(*r)
	return &h
}

type protocolRow struct {
	ID              string          `gorm:"primaryKey;type:varchar(66)"`
	UserCount       decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	ProtocolRevenue decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	AccountRevenue  decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	TradeVolume     decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	TotalTrades     decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	Timestamp       uint64          `gorm:"type:bigint;not null"`
}

func (protocolRow) TableName() string { return "protocols" }

func toProtocolRow(p *domain.Protocol) *protocolRow {
	r := protocolRow(*p)
	return &r
}

func (r *protocolRow) toDomain() *domain.Protocol {
	p := domain.Protocol(*r)
	return &p
}

type tradeRow struct {
	ID                string          `gorm:"primaryKey;type:varchar(74)"`
	Trader            string          `gorm:"type:varchar(42);not null;index"`
	Subject           string          `gorm:"type:varchar(42);not null;index"`
	Referrer          string          `gorm:"type:varchar(42)"`
	ReferralEthAmount decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	IsBuy             bool            `gorm:"not null"`
	PassAmount        decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	EthAmount         decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	ProtocolEthAmount decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	SubjectEthAmount  decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	Supply            decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	BlockNumber       uint64          `gorm:"type:bigint;not null;index"`
	BlockTimestamp    uint64          `gorm:"type:bigint;not null"`
	TransactionHash   string          `gorm:"type:varchar(66);not null"`
}

func (tradeRow) TableName() string { return "trades" }

func toTradeRow(t *domain.Trade) *tradeRow {
	r := tradeRow(*t)
	return &r
}

func (r *tradeRow) toDomain() *domain.Trade {
	t := domain.Trade(*r)
	return &t
}

type tipRow struct {
	ID          string          `gorm:"primaryKey;type:varchar(74)"`
	Gifter      string          `gorm:"type:varchar(42);not null;index"`
	Streamer    string          `gorm:"type:varchar(42);not null;index"`
	Amount      decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	GiftID      decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	ProtocolFee decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	TotalPrice  decimal.Decimal `gorm:"type:numeric(78,0);not null"`
}

func (tipRow) TableName() string { return "tips" }

func toTipRow(t *domain.Tip) *tipRow {
	r := tipRow(*t)
	return &r
}

func (r *tipRow) toDomain() *domain.Tip {
	t := domain.Tip(*r)
	return &t
}

type accountDailyRow struct {
	ID             string          `gorm:"primaryKey;type:varchar(64)"`
	Account        string          `gorm:"type:varchar(42);not null;index"`
	Day            uint64          `gorm:"type:bigint;not null;index"`
	DayBuyVolume   decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	DaySellVolume  decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	DayPriceChange decimal.Decimal `gorm:"type:numeric(78,0);not null"` // signed
	Timestamp      uint64          `gorm:"type:bigint;not null"`
}

func (accountDailyRow) TableName() string { return "account_daily" }

func toAccountDailyRow(d *domain.AccountDaily) *accountDailyRow {
	r := accountDailyRow(*d)
	return &r
}

func (r *accountDailyRow) toDomain() *domain.AccountDaily {
	d := domain.AccountDaily(*r)
	return &d
}

type protocolDailyRow struct {
	ID                   string          `gorm:"primaryKey;type:varchar(90)"`
	Protocol             string          `gorm:"type:varchar(66);not null"`
	Day                  uint64          `gorm:"type:bigint;not null;index"`
	UserCount            decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	TotalTradeVolume     decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	TotalTrades          decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	TotalProtocolRevenue decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	TotalAccountRevenue  decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	DayTrades            decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	DayBuyVolume         decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	DaySellVolume        decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	DayTradeVolume       decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	DayProtocolRevenue   decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	DayAccountRevenue    decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	Timestamp            uint64          `gorm:"type:bigint;not null"`
}

func (protocolDailyRow) TableName() string { return "protocol_daily" }

func toProtocolDailyRow(d *domain.ProtocolDaily) *protocolDailyRow {
	r := protocolDailyRow(*d)
	return &r
}

func (r *protocolDailyRow) toDomain() *domain.ProtocolDaily {
	d := domain.ProtocolDaily(*r)
	return &d
}
