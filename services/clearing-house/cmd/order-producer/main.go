// Command order-producer writes generated or file-based order requests to the
// clearing house intake topic.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/pkg/logger"
	orderbookv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/orderbook/v1"
	orderreaderv1 "github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/internal/domain/order-reader/v1"
	"github.com/Kapambwe/Minerals-Trading-As-A-Service-sub000/services/clearing-house/pkg/config"
	"github.com/oklog/ulid/v2"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

type generator struct {
	instruments []string
	members     []string
	basePrice   decimal.Decimal
	spread      decimal.Decimal
	cancelRate  float64
	placed      map[string][]string
}

// next returns a random order request. Roughly 70% are limit orders, a share
// of cancelRate cancels an order placed earlier on the same instrument.
func (g *generator) next() orderreaderv1.OrderRequest {
	instrument := g.instruments[rand.IntN(len(g.instruments))]

	if ids := g.placed[instrument]; len(ids) > 0 && rand.Float64() < g.cancelRate {
		i := rand.IntN(len(ids))
		id := ids[i]
		g.placed[instrument] = append(ids[:i], ids[i+1:]...)
		return orderreaderv1.OrderRequest{Action: orderreaderv1.ActionCancel, OrderID: id, Instrument: instrument}
	}

	req := orderreaderv1.OrderRequest{
		Action:      orderreaderv1.ActionPlace,
		OrderID:     ulid.Make().String(),
		MemberID:    g.members[rand.IntN(len(g.members))],
		Instrument:  instrument,
		Side:        orderbookv1.SideSell,
		Type:        orderbookv1.OrderTypeLimit,
		TimeInForce: orderbookv1.GTC,
		// 1 to 50 tonnes in steps of 0.5.
		Quantity: decimal.NewFromInt(int64(rand.IntN(99) + 2)).Div(decimal.NewFromInt(2)),
	}
	if rand.Float64() < 0.5 {
		req.Side = orderbookv1.SideBuy
	}

	if rand.Float64() < 0.3 {
		req.Type = orderbookv1.OrderTypeMarket
		req.TimeInForce = orderbookv1.IOC
		return req
	}

	// Bids below the base price, asks above it.
	offset := g.spread.Mul(decimal.NewFromFloat(rand.Float64() * 0.8)).Round(1)
	if req.Side == orderbookv1.SideBuy {
		req.Price = g.basePrice.Sub(offset)
	} else {
		req.Price = g.basePrice.Add(offset)
	}
	if !req.Price.IsPositive() {
		req.Price = g.basePrice
	}
	if rand.Float64() < 0.2 {
		req.TimeInForce = orderbookv1.DAY
	}
	g.placed[instrument] = append(g.placed[instrument], req.OrderID)
	return req
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func main() {
	var (
		file        = flag.String("file", "", "JSON file with order requests (optional, generates requests if not provided)")
		delay       = flag.Duration("delay", 100*time.Millisecond, "Delay between sending requests")
		count       = flag.Int("count", 1000, "Number of requests to generate")
		members     = flag.String("members", "M1,M2,M3,M4", "Member ids to trade as (comma-separated)")
		instruments = flag.String("instruments", "", "Instruments to trade (comma-separated, defaults to MATCHING_INSTRUMENTS)")
		basePrice   = flag.String("base-price", "8500", "Base price for orders")
		spread      = flag.String("price-spread", "200", "Price spread range")
		cancelRate  = flag.Float64("cancel-rate", 0.1, "Share of requests that cancel a resting order")
	)
	flag.Parse()

	log, err := logger.NewLogger()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	cfg := &config.Config{}
	if err := config.Load(cfg); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "load_config"})
		return
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        cfg.Kafka.OrderTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
	defer writer.Close()

	var requests []orderreaderv1.OrderRequest
	if *file != "" {
		data, err := os.ReadFile(*file)
		if err != nil {
			log.Error(err, logger.Field{Key: "action", Value: "read_file"}, logger.Field{Key: "file", Value: *file})
			return
		}
		if err := json.Unmarshal(data, &requests); err != nil {
			log.Error(err, logger.Field{Key: "action", Value: "parse_file"}, logger.Field{Key: "file", Value: *file})
			return
		}
	} else {
		symbols := splitList(*instruments)
		if len(symbols) == 0 {
			for _, i := range cfg.Matching.Instruments {
				symbols = append(symbols, i.Symbol)
			}
		}
		g := &generator{
			instruments: symbols,
			members:     splitList(*members),
			basePrice:   decimal.RequireFromString(*basePrice),
			spread:      decimal.RequireFromString(*spread),
			cancelRate:  *cancelRate,
			placed:      make(map[string][]string),
		}
		if len(g.instruments) == 0 || len(g.members) == 0 {
			log.Warn("Need at least one instrument and one member")
			return
		}
		for i := 0; i < *count; i++ {
			requests = append(requests, g.next())
		}
	}

	log.Info("Sending order requests",
		logger.Field{Key: "requests", Value: len(requests)},
		logger.Field{Key: "brokers", Value: cfg.Kafka.Brokers},
		logger.Field{Key: "topic", Value: cfg.Kafka.OrderTopic},
	)

	ctx := context.Background()
	sent, places, cancels := 0, 0, 0
	for i, req := range requests {
		value, err := json.Marshal(req)
		if err != nil {
			log.Error(err, logger.Field{Key: "orderID", Value: req.OrderID})
			continue
		}

		// Keyed by instrument so one instrument's requests stay in order.
		msg := kafka.Message{Key: []byte(req.Instrument), Value: value, Time: time.Now()}
		if err := writer.WriteMessages(ctx, msg); err != nil {
			log.Error(err, logger.Field{Key: "orderID", Value: req.OrderID})
			continue
		}

		sent++
		if req.Action == orderreaderv1.ActionCancel {
			cancels++
		} else {
			places++
		}
		if sent%100 == 0 {
			log.Info("Progress", logger.Field{Key: "sent", Value: sent})
		}
		if i < len(requests)-1 {
			time.Sleep(*delay)
		}
	}

	log.Info("Order requests sent",
		logger.Field{Key: "sent", Value: sent},
		logger.Field{Key: "places", Value: places},
		logger.Field{Key: "cancels", Value: cancels},
	)
}
