package domain

import "github.com/shopspring/decimal"

// Entities below are the durable schema read by dashboards; json names must not change.
// All amounts are integers in the smallest unit, kept as decimals with exponent 0.

// One per participant address
type Account struct {
	ID             string          `json:"id"`
	AccountRevenue decimal.Decimal `json:"accountRevenue"` // earned as subject/streamer
	AccountGifts   decimal.Decimal `json:"accountGifts"`   // sent as gifter
	KeySupply      decimal.Decimal `json:"keySupply"`
	HoldersCount   decimal.Decimal `json:"holdersCount"`
	TradesCount    decimal.Decimal `json:"tradesCount"`
	Timestamp      uint64          `json:"timestamp"`
}

func NewAccount(id string) *Account {
	return &Account{
		ID:             id,
		AccountRevenue: Zero,
		AccountGifts:   Zero,
		KeySupply:      Zero,
		HoldersCount:   Zero,
		TradesCount:    Zero,
	}
}

// One per (holder, subject) ordered pair
type Holding struct {
	ID        string          `json:"id"`
	Holder    string          `json:"holder"`
	Subject   string          `json:"subject"`
	KeysOwned decimal.Decimal `json:"keysOwned"`
	Timestamp uint64          `json:"timestamp"`
}

func NewHolding(holder, subject string) *Holding {
	return &Holding{
		ID:        HoldingID(holder, subject),
		Holder:    holder,
		Subject:   subject,
		KeysOwned: Zero,
	}
}

// Protocol is the singleton aggregate row
type Protocol struct {
	ID              string          `json:"id"`
	UserCount       decimal.Decimal `json:"userCount"`
	ProtocolRevenue decimal.Decimal `json:"protocolRevenue"`
	AccountRevenue  decimal.Decimal `json:"accountRevenue"`
	TradeVolume     decimal.Decimal `json:"tradeVolume"`
	TotalTrades     decimal.Decimal `json:"totalTrades"`
	Timestamp       uint64          `json:"timestamp"`
}

func NewProtocol(id string) *Protocol {
	return &Protocol{
		ID:              id,
		UserCount:       Zero,
		ProtocolRevenue: Zero,
		AccountRevenue:  Zero,
		TradeVolume:     Zero,
		TotalTrades:     Zero,
	}
}

// Trade is an append-only fact, one per Trade log
type Trade struct {
	ID                string          `json:"id"`
	Trader            string          `json:"trader"`
	Subject           string          `json:"subject"`
	Referrer          string          `json:"referrer"`
	ReferralEthAmount decimal.Decimal `json:"referralEthAmount"`
	IsBuy             bool            `json:"isBuy"`
	PassAmount        decimal.Decimal `json:"passAmount"`
	EthAmount         decimal.Decimal `json:"ethAmount"`
	ProtocolEthAmount decimal.Decimal `json:"protocolEthAmount"`
	SubjectEthAmount  decimal.Decimal `json:"subjectEthAmount"`
	Supply            decimal.Decimal `json:"supply"`
	BlockNumber       uint64          `json:"blockNumber"`
	BlockTimestamp    uint64          `json:"blockTimestamp"`
	TransactionHash   string          `json:"transactionHash"`
}

// Tip is an append-only fact, one per Mint log
type Tip struct {
	ID          string          `json:"id"`
	Gifter      string          `json:"gifter"`
	Streamer    string          `json:"streamer"`
	Amount      decimal.Decimal `json:"amount"`
	GiftID      decimal.Decimal `json:"giftId"`
	ProtocolFee decimal.Decimal `json:"protocolFee"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
}

// One per (subject account, day)
type AccountDaily struct {
	ID             string          `json:"id"`
	Account        string          `json:"account"`
	Day            uint64          `json:"day"`
	DayBuyVolume   decimal.Decimal `json:"dayBuyVolume"`
	DaySellVolume  decimal.Decimal `json:"daySellVolume"`
	DayPriceChange decimal.Decimal `json:"dayPriceChange"` // negative after a sell back to low supply
	Timestamp      uint64          `json:"timestamp"`
}

func NewAccountDaily(accountID string, day uint64) *AccountDaily {
	return &AccountDaily{
		ID:             DailyID(accountID, day),
		Account:        accountID,
		Day:            day,
		DayBuyVolume:   Zero,
		DaySellVolume:  Zero,
		DayPriceChange: Zero,
	}
}

// One per day for the whole protocol. total* and UserCount are copies of the Protocol
// row as of the last event written to this bucket, day* accumulate within the day.
type ProtocolDaily struct {
	ID                   string          `json:"id"`
	Protocol             string          `json:"protocol"`
	Day                  uint64          `json:"day"`
	UserCount            decimal.Decimal `json:"userCount"`
	TotalTradeVolume     decimal.Decimal `json:"totalTradeVolume"`
	TotalTrades          decimal.Decimal `json:"totalTrades"`
	TotalProtocolRevenue decimal.Decimal `json:"totalProtocolRevenue"`
	TotalAccountRevenue  decimal.Decimal `json:"totalAccountRevenue"`
	DayTrades            decimal.Decimal `json:"dayTrades"`
	DayBuyVolume         decimal.Decimal `json:"dayBuyVolume"`
	DaySellVolume        decimal.Decimal `json:"daySellVolume"`
	DayTradeVolume       decimal.Decimal `json:"dayTradeVolume"`
	DayProtocolRevenue   decimal.Decimal `json:"dayProtocolRevenue"`
	DayAccountRevenue    decimal.Decimal `json:"dayAccountRevenue"`
	Timestamp            uint64          `json:"timestamp"`
}

func NewProtocolDaily(protocolID string, day uint64) *ProtocolDaily {
	return &ProtocolDaily{
		ID:                   DailyID(protocolID, day),
		Protocol:             protocolID,
		Day:                  day,
		UserCount:            Zero,
		TotalTradeVolume:     Zero,
		TotalTrades:          Zero,
		TotalProtocolRevenue: Zero,
		TotalAccountRevenue:  Zero,
		DayTrades:            Zero,
		DayBuyVolume:         Zero,
		DaySellVolume:        Zero,
		DayTradeVolume:       Zero,
		DayProtocolRevenue:   Zero,
		DayAccountRevenue:    Zero,
	}
}

// Snapshot copies the protocol totals into the bucket
func (d *ProtocolDaily) Snapshot(p *Protocol) {
	d.UserCount = p.UserCount
	d.TotalProtocolRevenue = p.ProtocolRevenue
	d.TotalAccountRevenue = p.AccountRevenue
	d.TotalTradeVolume = p.TradeVolume
	d.TotalTrades = p.TotalTrades
}
