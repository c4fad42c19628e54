//go:build ignore

// Run: go run ./build-tools/loadgen.go -brokers localhost:9092 -topic pass-events -rps 200 -duration 60s

package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	mrand "math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"passindexer/internal/curve"
	"passindexer/internal/domain"
)

// sim keeps enough chain state to emit only trades the contract would accept
type sim struct {
	chainID  uint32
	block    uint64
	logIndex uint32
	pricer   curve.Pricer
	users    []string
	supply   map[string]int64            // subject -> passes
	owned    map[string]map[string]int64 // holder -> subject -> passes
}

func main() {
	var (
		brokers  = flag.String("brokers", "localhost:9092", "comma-separated list of brokers")
		topic    = flag.String("topic", "pass-events", "topic name")
		rps      = flag.Int("rps", 200, "events per second target")
		duration = flag.Duration("duration", 30*time.Second, "how long to run")
		users    = flag.Int("users", 50, "number of distinct addresses")
		mintPct  = flag.Int("mint-pct", 10, "share of gift mints, percent")
		chainID  = flag.Uint("chain", 1996, "chain id")
	)
	flag.Parse()

	if *users < 2 {
		fmt.Println("need at least 2 users")
		os.Exit(1)
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(splitTrim(*brokers)...),
		Topic:        *topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		BatchTimeout: 20 * time.Millisecond,
		BatchSize:    1000,
	}
	defer func() { _ = w.Close() }()

	s := &sim{
		chainID: uint32(*chainID),
		block:   uint64(1_000_000),
		pricer:  curve.Default(),
		supply:  map[string]int64{},
		owned:   map[string]map[string]int64{},
	}
	for i := 0; i < *users; i++ {
		s.users = append(s.users, "0x"+randHex(40))
	}

	fmt.Printf("loadgen → brokers=%s topic=%s rps=%d duration=%s\n", *brokers, *topic, *rps, duration.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	end := time.Now().Add(*duration)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()

	perTick := float64(*rps) / 10.0
	accum := 0.0
	sent := 0

loop:
	for {
		select {
		case <-ctx.Done():
			fmt.Println("signal received, stopping…")
			break loop
		case now := <-tick.C:
			if now.After(end) {
				break loop
			}

			accum += perTick
			batch := int(math.Floor(accum))
			if batch <= 0 {
				continue
			}
			accum -= float64(batch)

			// one block per tick, ordered log indexes inside it
			s.block++
			s.logIndex = 0

			msgs := make([]kafka.Message, 0, batch)
			for i := 0; i < batch; i++ {
				var env *domain.Envelope
				if mrand.Intn(100) < *mintPct {
					env = s.mint(now)
				} else {
					env = s.trade(now)
				}
				val, _ := json.Marshal(env)
				// keyed by chain so a chain stays on one partition
				msgs = append(msgs, kafka.Message{Key: []byte(fmt.Sprint(env.ChainID)), Value: val})
			}

			if err := w.WriteMessages(ctx, msgs...); err != nil {
				fmt.Printf("produce error: %v\n", err)
				continue
			}
			sent += len(msgs)
		}
	}

	fmt.Printf("done, sent=%d\n", sent)
}

func (s *sim) meta(now time.Time) domain.EventMeta {
	m := domain.EventMeta{
		ChainID:        s.chainID,
		BlockNumber:    s.block,
		BlockTimestamp: uint64(now.Unix()),
		TxHash:         "0x" + randHex(64),
		LogIndex:       s.logIndex,
	}
	s.logIndex++
	return m
}

// trade buys, or sells part of an existing position
func (s *sim) trade(now time.Time) *domain.Envelope {
	trader := s.users[mrand.Intn(len(s.users))]
	subject := s.users[mrand.Intn(len(s.users))]

	held := s.owned[trader][subject]
	isBuy := held == 0 || mrand.Intn(3) > 0

	var amount int64
	if isBuy {
		amount = 1 + mrand.Int63n(5)
	} else {
		amount = 1 + mrand.Int63n(held)
	}

	supply := s.supply[subject]
	var cost decimal.Decimal
	if isBuy {
		cost = s.pricer.Price(decimal.NewFromInt(supply), decimal.NewFromInt(amount))
		supply += amount
		s.hold(trader, subject, amount)
	} else {
		supply -= amount
		cost = s.pricer.Price(decimal.NewFromInt(supply), decimal.NewFromInt(amount))
		s.hold(trader, subject, -amount)
	}
	s.supply[subject] = supply

	// 5% protocol, 5% subject
	fee := domain.Quo(cost, decimal.NewFromInt(20))

	return &domain.Envelope{
		Type:      domain.EventTrade,
		EventMeta: s.meta(now),
		Trade: &domain.TradeParams{
			Trader:            trader,
			Streamer:          subject,
			Referrer:          "0x0000000000000000000000000000000000000000",
			ReferralEthAmount: domain.Zero,
			IsBuy:             isBuy,
			PassAmount:        decimal.NewFromInt(amount),
			EthAmount:         cost,
			ProtocolEthAmount: fee,
			StreamerEthAmount: fee,
			Supply:            decimal.NewFromInt(supply),
		},
	}
}

func (s *sim) hold(holder, subject string, delta int64) {
	if s.owned[holder] == nil {
		s.owned[holder] = map[string]int64{}
	}
	s.owned[holder][subject] += delta
}

func (s *sim) mint(now time.Time) *domain.Envelope {
	gifter := s.users[mrand.Intn(len(s.users))]
	streamer := s.users[mrand.Intn(len(s.users))]

	total := decimal.New(1+mrand.Int63n(100), 15) // 0.001 .. 0.1 ether
	fee := domain.Quo(total, decimal.NewFromInt(10))

	return &domain.Envelope{
		Type:      domain.EventMint,
		EventMeta: s.meta(now),
		Mint: &domain.MintParams{
			Gifter:      gifter,
			Streamer:    streamer,
			Amount:      domain.One,
			GiftID:      decimal.NewFromInt(1 + mrand.Int63n(8)),
			ProtocolFee: fee,
			TotalPrice:  total,
		},
	}
}

func splitTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func randHex(n int) string {
	b := make([]byte, n/2)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
