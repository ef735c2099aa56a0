package bot

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/flexbot/internal/pager"
)

var hundred = decimal.NewFromInt(100)

func (b *Bot) help(ctx context.Context, msg Message, _ []string) error {
	b.reply(ctx, msg, helpText)
	return nil
}

func (b *Bot) ping(ctx context.Context, msg Message, _ []string) error {
	b.reply(ctx, msg, "```Pong!```")
	return nil
}

// price replies with a table of the quotes found for args, BTC by default
func (b *Bot) price(ctx context.Context, msg Message, args []string) error {
	if len(args) == 0 {
		args = []string{"BTC"}
	}
	res, err := b.prices.Lookup(ctx, args)
	if err != nil {
		return err
	}

	if len(res.Found) > 0 {
		tickers := make([]string, 0, len(res.Found))
		for t := range res.Found {
			tickers = append(tickers, t)
		}
		sort.Strings(tickers)

		var sb strings.Builder
		sb.WriteString("```diff\n")
		sb.WriteString("   ticker | price        | 24hr % chg\n")
		for _, t := range tickers {
			q := res.Found[t]
			sign := "+"
			if q.USD24hChange.IsNegative() {
				sign = "-"
			}
			change := q.USD24hChange.Mul(hundred).Ceil().Div(hundred)
			sb.WriteString(sign + " " + pager.PadLeft(t, 7) + " | $" + pager.PadRight(pager.Price(q.USD), 11) + " | " + change.StringFixed(2) + "\n")
		}
		sb.WriteString("```")
		b.reply(ctx, msg, sb.String())
	}
	if len(res.Unfound) > 0 {
		b.reply(ctx, msg, unfoundReply(res.Unfound))
	}
	return nil
}
