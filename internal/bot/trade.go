package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/trogers1052/flexbot/internal/ledger"
	"github.com/trogers1052/flexbot/internal/models"
	"github.com/trogers1052/flexbot/internal/pager"
)

func (b *Bot) trade(ctx context.Context, msg Message, args []string) error {
	if len(args) == 0 {
		b.reply(ctx, msg, tradeHelpText)
		return nil
	}

	sub, rest := strings.ToLower(args[0]), args[1:]
	switch sub {
	case "l", "long", "s", "short":
		side, _ := models.ParseSide(sub)
		return b.openPosition(ctx, msg, side, rest)
	case "p", "pos", "position", "positions":
		return b.listPositions(ctx, msg, rest)
	case "c", "close":
		return b.closePosition(ctx, msg, rest)
	default:
		b.reply(ctx, msg, tradeHelpText)
		return nil
	}
}

func (b *Bot) openPosition(ctx context.Context, msg Message, side models.Side, args []string) error {
	if len(args) == 0 {
		verb, short := "long", "l"
		if side == models.SideShort {
			verb, short = "short", "s"
		}
		b.reply(ctx, msg, fmt.Sprintf("Requires a <ticker> to %s. e.g.: `!t %s eth`", verb, short))
		return nil
	}

	term := args[0]
	p, err := b.ledger.Open(ctx, msg.AuthorID, side, term)
	if errors.Is(err, models.ErrTermNotFound) {
		b.reply(ctx, msg, unfoundReply([]string{term}))
		return nil
	}
	if err != nil {
		return err
	}

	b.reply(ctx, msg, fmt.Sprintf("```Opened %s on %s at $%s!```", p.Side, p.Ticker, pager.Price(p.OpenPrice)))
	return nil
}

// listPositions shows a user's positions, the author's unless a mention
// names someone else, and keeps the listing pageable by reactions.
func (b *Bot) listPositions(ctx context.Context, msg Message, args []string) error {
	ownerID, page := msg.AuthorID, 1
	for _, arg := range args {
		if id, ok := ParseMention(arg); ok {
			ownerID = id
			continue
		}
		if n, err := strconv.Atoi(arg); err == nil {
			page = n
		}
	}

	// only the owner's own listing numbers positions for closing
	var (
		l   *ledger.Ledger
		err error
	)
	if ownerID == msg.AuthorID {
		l, err = b.ledger.Build(ctx, ownerID)
	} else {
		l, err = b.ledger.Peek(ctx, ownerID)
	}
	if err != nil {
		return err
	}

	p := pager.New(l, b.title(ctx, ownerID))
	p.GoTo(page)
	text := p.Render()

	messageID := b.reply(ctx, msg, text)
	var ledgerErr *models.LedgerError
	if errors.As(l.Err(), &ledgerErr) {
		b.reply(ctx, msg, unpricedReply(ledgerErr))
	}
	if messageID == "" || len(p.Affordances()) == 0 {
		return nil
	}
	b.startSession(msg, messageID, text, p)
	return nil
}

func (b *Bot) title(ctx context.Context, ownerID string) string {
	name, err := b.chat.DisplayName(ctx, ownerID)
	if err != nil || name == "" {
		b.logger.DebugContext(ctx, "no display name for owner",
			slog.String("owner_id", ownerID),
			slog.Any("error", err),
		)
		name = ownerID
	}
	return name + "'s Portfolio"
}

func (b *Bot) closePosition(ctx context.Context, msg Message, args []string) error {
	var handle int
	if len(args) > 0 {
		handle, _ = strconv.Atoi(strings.TrimPrefix(args[0], "#"))
	}
	if handle < 1 {
		b.reply(ctx, msg, "Requires a position number to close. e.g.: `!t c 1`")
		return nil
	}

	res, err := b.ledger.CloseByHandle(ctx, msg.AuthorID, handle)
	if err != nil {
		return err
	}
	b.reply(ctx, msg, closedReply(res))
	return nil
}

func closedReply(res *ledger.CloseResult) string {
	p := res.Position
	closePrice := p.ClosePrice.Decimal

	var sb strings.Builder
	sb.WriteString("```diff\n")
	fmt.Fprintf(&sb, "%s Closed %s on %s (#%d)\n", res.Direction(), p.Side, p.Ticker, res.Handle)
	fmt.Fprintf(&sb, "  open:  $%s on %s\n", pager.Price(p.OpenPrice), pager.Date(p.OpenedAt))
	fmt.Fprintf(&sb, "  close: $%s\n", pager.Price(closePrice))
	fmt.Fprintf(&sb, "%s PnL: %s (%s)\n", res.Direction(), pager.SignedUSD(res.PnL), pager.Percent(res.PnLPercent()))
	sb.WriteString("```")
	return sb.String()
}
