package buywatch

import (
	"context"
	"fmt"
	"time"
)

const (
	defaultCheckInterval   = 60 * time.Second
	defaultErrorBackoff    = 60 * time.Second
	defaultSummaryInterval = 24 * time.Hour
	defaultMaxTxPerCheck   = 20
)

var watcherLogger = NewLogger("watcher")

// TransferFunc performs (or simulates) the token transfer for a purchase.
type TransferFunc func(ctx context.Context, buyer string, amount int64) error

// Watcher runs the polling loop: fetch recent signatures, classify the newest
// unseen one, compute the distribution, and dispatch notifications. It owns
// the seen-signature and airdrop-recipient sets; both live in memory only and
// reset on restart.
type Watcher struct {
	Chain      ChainClient
	Price      PriceSource
	Notifier   Notifier
	Calc       Calculator
	Classifier Classifier
	Stats      *RunningStats
	Builder    *MessageBuilder
	Transfer   TransferFunc
	Logger     Logger

	TokenMint               string
	CheckInterval           time.Duration
	MaxTransactionsPerCheck int
	ErrorBackoff            time.Duration
	SummaryInterval         time.Duration
	AirdropAmount           int64
	OneAirdropPerUser       bool

	now func() time.Time

	seen         map[string]struct{}
	airdropUsers map[string]struct{}
	lastSummary  time.Time
}

// NewWatcher wires a watcher from the configuration and its collaborators.
func NewWatcher(cfg *Config, chain ChainClient, price PriceSource, notifier Notifier, logger Logger) (*Watcher, error) {
	presaleEnd, err := cfg.PresaleEnd()
	if err != nil {
		return nil, fmt.Errorf("presale config: %w", err)
	}

	return &Watcher{
		Chain:    chain,
		Price:    price,
		Notifier: notifier,
		Calc: Calculator{
			TokensPerSOL:    cfg.TokensPerSOL,
			MinimumBuySOL:   cfg.MinimumBuySOL,
			Ratio:           cfg.DistributionRatio,
			MinDistribution: cfg.MinDistribution,
			MaxDistribution: cfg.MaxDistribution,
		},
		Classifier: Classifier{
			Mint:         cfg.TokenMint,
			TokensPerSOL: cfg.TokensPerSOL,
		},
		Stats: NewRunningStats(nil),
		Builder: &MessageBuilder{
			TokenMint:         cfg.TokenMint,
			TokenSymbol:       cfg.TokenSymbol,
			TokensPerSOL:      cfg.TokensPerSOL,
			MinimumBuySOL:     cfg.MinimumBuySOL,
			AirdropAmount:     cfg.AirdropAmount,
			DistributionRatio: cfg.DistributionRatio,
			BuyButtonLink:     cfg.BuyButtonLink,
			ImageURL:          cfg.AlertImageURL,
			PresaleEnd:        presaleEnd,
		},
		Logger:                  logger,
		TokenMint:               cfg.TokenMint,
		CheckInterval:           cfg.CheckInterval(),
		MaxTransactionsPerCheck: cfg.MaxTransactionsPerCheck,
		AirdropAmount:           cfg.AirdropAmount,
		OneAirdropPerUser:       cfg.OneAirdropPerUser,
	}, nil
}

// Run executes the polling loop until the context is cancelled. A failed
// cycle is logged and followed by a longer backoff; it never stops the loop.
func (w *Watcher) Run(ctx context.Context) {
	w.init()

	w.logger().Printf("monitoring started mint=%s interval=%s", w.TokenMint, w.checkInterval())
	w.notify(ctx, w.Builder.StartupMessage(w.clock()))
	w.notify(ctx, w.Builder.BuyGuide())
	w.lastSummary = w.clock()

	for {
		if ctx.Err() != nil {
			w.logger().Printf("monitoring stopped")
			return
		}

		delay := w.checkInterval()
		if err := w.cycle(ctx); err != nil {
			w.logger().Printf("poll cycle failed: %v", err)
			delay = w.errorBackoff()
		}

		if !sleepCtx(ctx, delay) {
			w.logger().Printf("monitoring stopped")
			return
		}
	}
}

// cycle performs one poll iteration. Only the single most recent signature is
// considered per cycle; older unseen signatures in the same window are
// dropped. A panic inside the cycle is converted to an error so the loop can
// back off and continue.
func (w *Watcher) cycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panic: %v", r)
		}
	}()

	w.init()

	sigs := w.Chain.GetSignaturesForAddress(ctx, w.TokenMint, w.maxTxPerCheck())
	if len(sigs) > 0 {
		latest := sigs[0].Signature
		if latest != "" {
			if _, ok := w.seen[latest]; !ok {
				// Mark seen before any further I/O: a crash mid-processing
				// means a silent miss, never a duplicate notification.
				w.seen[latest] = struct{}{}
				w.processSignature(ctx, latest)
			}
		}
	}

	if w.clock().Sub(w.lastSummary) >= w.summaryInterval() {
		w.sendDailySummary(ctx)
		w.lastSummary = w.clock()
	}
	return nil
}

func (w *Watcher) processSignature(ctx context.Context, signature string) {
	detail := w.Chain.GetTransaction(ctx, signature)
	if detail == nil {
		return
	}

	price, err := w.Price.PriceUSD(ctx)
	if err != nil {
		w.logger().Printf("price lookup failed, using fallback: %v", err)
		price = 0
	}

	event := w.Classifier.Classify(detail, signature, price)
	if event == nil {
		return
	}

	w.logger().Printf("buy detected: %.4f SOL from %s, received %.2f tokens",
		event.SolSpent, FormatAddress(event.Buyer), event.TokenAmount)

	distributed := w.Calc.Calculate(event.SolSpent)
	airdrop := w.airdropFor(event.Buyer)

	w.transfer(ctx, event.Buyer, int64(event.TokenAmount))

	w.Stats.RecordBuy(event.SolSpent, distributed, airdrop > 0)
	w.notify(ctx, w.Builder.BuyAlert(*event, distributed, airdrop, w.clock()))
}

// airdropFor resolves the bonus for a buyer: granted once per address when
// the once-per-user mode is enabled, on every purchase otherwise.
func (w *Watcher) airdropFor(buyer string) int64 {
	if w.AirdropAmount <= 0 {
		return 0
	}
	if !w.OneAirdropPerUser {
		return w.AirdropAmount
	}
	if _, ok := w.airdropUsers[buyer]; ok {
		return 0
	}
	w.airdropUsers[buyer] = struct{}{}
	return w.AirdropAmount
}

func (w *Watcher) sendDailySummary(ctx context.Context) {
	snap := w.Stats.Snapshot()
	if snap.DailyBuys > 0 {
		w.notify(ctx, w.Builder.DailySummary(snap, w.clock()))
	}
	w.Stats.ResetDaily()
}

// notify dispatches a message; delivery failures are logged and swallowed.
func (w *Watcher) notify(ctx context.Context, msg Message) {
	if w.Notifier == nil {
		return
	}
	if err := w.Notifier.Send(ctx, msg); err != nil {
		w.logger().Printf("notification failed: %v", err)
	}
}

func (w *Watcher) transfer(ctx context.Context, buyer string, amount int64) {
	fn := w.Transfer
	if fn == nil {
		fn = w.simulateTransfer
	}
	if err := fn(ctx, buyer, amount); err != nil {
		w.logger().Printf("token transfer failed: %v", err)
	}
}

// simulateTransfer stands in for the on-chain transfer, which is out of scope
// for this process.
func (w *Watcher) simulateTransfer(_ context.Context, buyer string, amount int64) error {
	w.logger().Printf("simulating token transfer: %d tokens to %s", amount, FormatAddress(buyer))
	return nil
}

func (w *Watcher) init() {
	if w.seen == nil {
		w.seen = make(map[string]struct{})
	}
	if w.airdropUsers == nil {
		w.airdropUsers = make(map[string]struct{})
	}
	if w.Stats == nil {
		w.Stats = NewRunningStats(w.now)
	}
	if w.Builder == nil {
		w.Builder = &MessageBuilder{}
	}
	if w.lastSummary.IsZero() {
		w.lastSummary = w.clock()
	}
}

func (w *Watcher) logger() Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return watcherLogger
}

func (w *Watcher) clock() time.Time {
	if w.now != nil {
		return w.now()
	}
	return time.Now()
}

func (w *Watcher) checkInterval() time.Duration {
	if w.CheckInterval > 0 {
		return w.CheckInterval
	}
	return defaultCheckInterval
}

func (w *Watcher) errorBackoff() time.Duration {
	if w.ErrorBackoff > 0 {
		return w.ErrorBackoff
	}
	return defaultErrorBackoff
}

func (w *Watcher) summaryInterval() time.Duration {
	if w.SummaryInterval > 0 {
		return w.SummaryInterval
	}
	return defaultSummaryInterval
}

func (w *Watcher) maxTxPerCheck() int {
	if w.MaxTransactionsPerCheck > 0 {
		return w.MaxTransactionsPerCheck
	}
	return defaultMaxTxPerCheck
}

// sleepCtx sleeps for the duration, returning false if the context was
// cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
