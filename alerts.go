package buywatch

import (
	"fmt"
	"strings"
	"time"
)

// MessageBuilder renders the Telegram notification texts. All methods are
// pure formatting; the watcher decides when to dispatch.
type MessageBuilder struct {
	TokenMint         string
	TokenSymbol       string
	TokensPerSOL      float64
	MinimumBuySOL     float64
	AirdropAmount     int64
	DistributionRatio float64
	BuyButtonLink     string
	ImageURL          string
	PresaleEnd        time.Time
}

// PresaleCountdown is the remaining time until the configured presale end.
type PresaleCountdown struct {
	Days    int
	Hours   int
	Minutes int
	Seconds int
	Ended   bool
}

// Countdown computes the presale countdown at the given instant. ok is false
// when no presale deadline is configured.
func (b *MessageBuilder) Countdown(now time.Time) (PresaleCountdown, bool) {
	if b.PresaleEnd.IsZero() {
		return PresaleCountdown{}, false
	}
	remaining := b.PresaleEnd.Sub(now)
	if remaining <= 0 {
		return PresaleCountdown{Ended: true}, true
	}
	return PresaleCountdown{
		Days:    int(remaining.Hours()) / 24,
		Hours:   int(remaining.Hours()) % 24,
		Minutes: int(remaining.Minutes()) % 60,
		Seconds: int(remaining.Seconds()) % 60,
	}, true
}

// FormatAddress shortens a wallet address for display.
func FormatAddress(address string) string {
	if len(address) > 8 {
		return address[:4] + "..." + address[len(address)-4:]
	}
	return address
}

// BuyRank labels a purchase by its SOL size.
func BuyRank(amountSOL float64) string {
	switch {
	case amountSOL >= 10:
		return "🐋 WHALE"
	case amountSOL >= 5:
		return "🦈 SHARK"
	case amountSOL >= 1:
		return "🐟 FISH"
	default:
		return "🦐 SHRIMP"
	}
}

// BuyAlert renders the real-time purchase notification.
func (b *MessageBuilder) BuyAlert(event PurchaseEvent, distributed, airdrop int64, now time.Time) Message {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🎉 <b>New <a href='https://solscan.io/token/%s'>$%s</a> Buy</b> %s\n\n", b.TokenMint, b.TokenSymbol, BuyRank(event.SolSpent))
	fmt.Fprintf(&sb, "💰 <b>Spent:</b> %.8f SOL ($%.2f)\n", event.SolSpent, event.USDValue)
	fmt.Fprintf(&sb, "🎁 <b>Bought:</b> %s %s\n", formatTokens(int64(event.TokenAmount)), b.TokenSymbol)
	fmt.Fprintf(&sb, "🔗 <a href='https://solscan.io/tx/%s'>Signature</a> | 👛 <a href='https://solscan.io/account/%s'>Wallet</a>\n\n", event.Signature, event.Buyer)

	sb.WriteString("🎁 <b>AUTOMATIC TOKEN DISTRIBUTION:</b>\n")
	fmt.Fprintf(&sb, "• Tokens Sent: %s $%s\n", formatTokens(distributed), b.TokenSymbol)
	sb.WriteString("• Status: ✅ <b>AUTOMATICALLY SENT</b>\n\n")

	if airdrop > 0 {
		sb.WriteString("🎉 <b>AIRDROP SENT:</b>\n")
		fmt.Fprintf(&sb, "• Amount: %s $%s\n", formatTokens(airdrop), b.TokenSymbol)
		sb.WriteString("• Status: ✅ <b>AIRDROP SENT</b>\n\n")
	}

	b.writeCountdown(&sb, now)

	return Message{
		Text:     sb.String(),
		ImageURL: b.ImageURL,
		Buttons:  b.buyButtons(),
	}
}

// StartupMessage renders the one-time notification dispatched when
// monitoring begins.
func (b *MessageBuilder) StartupMessage(now time.Time) Message {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🎉 <b>New <a href='https://solscan.io/token/%s'>$%s</a> Presale Started!</b>\n\n", b.TokenMint, b.TokenSymbol)
	fmt.Fprintf(&sb, "🪙 <b>Token:</b> <code>%s</code>\n", b.TokenMint)
	fmt.Fprintf(&sb, "💰 <b>Symbol:</b> $%s\n", b.TokenSymbol)
	sb.WriteString("🔄 <b>Monitoring:</b> <b>ACTIVE</b>\n\n")

	b.writeCountdown(&sb, now)

	sb.WriteString("🚨 <b>REAL-TIME FEATURES:</b>\n")
	sb.WriteString("• Live buy detection\n")
	sb.WriteString("• Automatic token distribution\n")
	sb.WriteString("• Real-time alerts\n")
	sb.WriteString("• Daily summaries\n\n")
	b.writeBonusSection(&sb)

	return Message{
		Text:     sb.String(),
		ImageURL: b.ImageURL,
		Buttons:  b.buyButtons(),
	}
}

// BuyGuide renders the how-to-buy message posted after startup.
func (b *MessageBuilder) BuyGuide() Message {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🛒 <b>HOW TO BUY <a href='https://solscan.io/token/%s'>%s</a> TOKEN</b>\n\n", b.TokenMint, b.TokenSymbol)
	sb.WriteString("🪙 <b>Token Information:</b>\n")
	fmt.Fprintf(&sb, "• Symbol: $%s\n", b.TokenSymbol)
	fmt.Fprintf(&sb, "• Contract: <code>%s</code>\n", b.TokenMint)
	sb.WriteString("• Network: Solana\n\n")

	sb.WriteString("📱 <b>Step-by-Step Guide:</b>\n")
	sb.WriteString("1️⃣ Install Phantom, Solflare, or Backpack and fund it with SOL\n")
	sb.WriteString("2️⃣ Open <a href='https://raydium.io/swap/'>Raydium</a>, <a href='https://jup.ag/'>Jupiter</a>, or <a href='https://www.orca.so/'>Orca</a>\n")
	fmt.Fprintf(&sb, "3️⃣ Paste the token address: <code>%s</code>\n", b.TokenMint)
	sb.WriteString("4️⃣ Enter the amount and confirm the swap\n\n")
	b.writeBonusSection(&sb)

	sb.WriteString("⚠️ <b>IMPORTANT:</b>\n")
	sb.WriteString("• Always verify the token address\n")
	sb.WriteString("• Keep some SOL for transaction fees\n")
	sb.WriteString("• Never share your private keys\n")

	return Message{
		Text:     sb.String(),
		ImageURL: b.ImageURL,
		Buttons:  b.buyButtons(),
	}
}

// DailySummary renders the 24h activity report from a stats snapshot.
func (b *MessageBuilder) DailySummary(snap StatsSnapshot, now time.Time) Message {
	var sb strings.Builder
	sb.WriteString("📊 <b>DAILY SUMMARY</b>\n\n")
	fmt.Fprintf(&sb, "🪙 Token: $%s\n", b.TokenSymbol)
	fmt.Fprintf(&sb, "📅 Date: %s\n\n", now.Format("2006-01-02"))

	sb.WriteString("📈 <b>Today's Activity:</b>\n")
	fmt.Fprintf(&sb, "• Total Buys: %d\n", snap.DailyBuys)
	fmt.Fprintf(&sb, "• Total Volume: %.2f SOL\n", snap.DailyVolume)
	fmt.Fprintf(&sb, "• Total Distributed: %s tokens\n", formatTokens(int64(snap.DailyDistributed)))
	fmt.Fprintf(&sb, "• Total Airdrops: %d\n", snap.DailyAirdrops)
	if snap.DailyBuys > 0 {
		fmt.Fprintf(&sb, "• Average Buy: %.2f SOL\n", snap.DailyVolume/float64(snap.DailyBuys))
		fmt.Fprintf(&sb, "• Average Distribution: %.0f tokens\n", snap.DailyDistributed/float64(snap.DailyBuys))
		fmt.Fprintf(&sb, "• Airdrop Rate: %.1f%%\n", float64(snap.DailyAirdrops)/float64(snap.DailyBuys)*100)
	}
	sb.WriteString("\n🏆 <b>All-Time Stats:</b>\n")
	fmt.Fprintf(&sb, "• Total Buys: %d\n", snap.TotalBuys)
	fmt.Fprintf(&sb, "• Total Volume: %.2f SOL\n", snap.TotalVolume)
	fmt.Fprintf(&sb, "• Total Distributed: %s tokens\n", formatTokens(int64(snap.TotalDistributed)))
	fmt.Fprintf(&sb, "• Total Airdrops: %d\n\n", snap.TotalAirdrops)

	b.writeCountdown(&sb, now)

	return Message{
		Text:     sb.String(),
		ImageURL: b.ImageURL,
		Buttons:  b.buyButtons(),
	}
}

func (b *MessageBuilder) writeCountdown(sb *strings.Builder, now time.Time) {
	countdown, ok := b.Countdown(now)
	if !ok {
		return
	}
	if countdown.Ended {
		sb.WriteString("⏰ <b>Presale Status:</b>\n🔴 <b>PRESALE ENDED</b>\n\n")
		return
	}
	sb.WriteString("⏰ <b>Presale Ends In:</b>\n")
	fmt.Fprintf(sb, "📅 <b>%d days</b>\n", countdown.Days)
	fmt.Fprintf(sb, "🕐 <b>%d hours</b>\n", countdown.Hours)
	fmt.Fprintf(sb, "⏱️ <b>%d minutes</b>\n\n", countdown.Minutes)
}

func (b *MessageBuilder) writeBonusSection(sb *strings.Builder) {
	sb.WriteString("🎁 <b>BONUS FEATURES:</b>\n")
	fmt.Fprintf(sb, "• Token Rate: 1 SOL = %s %s tokens\n", formatTokens(int64(b.TokensPerSOL)), b.TokenSymbol)
	fmt.Fprintf(sb, "• Minimum Buy: %g SOL\n", b.MinimumBuySOL)
	fmt.Fprintf(sb, "• First-time buyers get a %s token airdrop\n", formatTokens(b.AirdropAmount))
	fmt.Fprintf(sb, "• Automatic %g%% token distribution\n", b.DistributionRatio*100)
	sb.WriteString("• Real-time buy alerts in this group\n\n")
}

func (b *MessageBuilder) buyButtons() []Button {
	if b.BuyButtonLink == "" {
		return nil
	}
	return []Button{{
		Label: fmt.Sprintf("🛒 BUY $%s", b.TokenSymbol),
		URL:   b.BuyButtonLink,
	}}
}

// formatTokens renders an integer token amount with thousands separators.
func formatTokens(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := fmt.Sprintf("%d", amount)
	if len(digits) <= 3 {
		return sign + digits
	}
	var groups []string
	for len(digits) > 3 {
		groups = append([]string{digits[len(digits)-3:]}, groups...)
		digits = digits[:len(digits)-3]
	}
	groups = append([]string{digits}, groups...)
	return sign + strings.Join(groups, ",")
}
