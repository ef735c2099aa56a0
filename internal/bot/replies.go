package bot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/trogers1052/flexbot/internal/models"
)

const (
	replyDatabaseError = "```Sorry hun, there was a database error :(```"
	replyServiceError  = "```Something bad done happened :(```"
	replyUnknownHandle = "```I don't know that position number. List your positions with !t p and use a number from that list.```"
	replyAlreadyClosed = "```That position is already closed. List your positions with !t p to get fresh numbers.```"
)

const helpText = "**FlexBot Help**\n" +
	"**Check Prices**\n" +
	"Use `!price <ticker1 ticker2 ...>` or `!p <ticker1 ticker2 ...>` to show a table of token prices.\n" +
	"e.g.: `!p eth btc \"enjin coin\" xmr`\n" +
	"**Trading**\n" +
	"Use `!trade` or `!t` to see the options for logging and viewing trades."

const tradeHelpText = "**Trading Commands**\n" +
	"**Open Long**: `!trade long <ticker>` or `!t l <ticker>`\n" +
	"**Open Short**: `!trade short <ticker>` or `!t s <ticker>`\n" +
	"**Get Positions**: `!trade positions [@user] [page]` or `!t p`\n" +
	"**Close Position**: `!trade close <number>` or `!t c <number>`, using a number from your latest `!t p`"

// errorReply maps a failed command to the text shown to the user
func errorReply(err error) string {
	var (
		storeErr  *models.StoreError
		priceErr  *models.PriceServiceError
		ledgerErr *models.LedgerError
	)
	switch {
	case errors.Is(err, models.ErrAlreadyClosed):
		return replyAlreadyClosed
	case errors.Is(err, models.ErrUnknownHandle):
		return replyUnknownHandle
	case errors.As(err, &storeErr):
		return replyDatabaseError
	case errors.As(err, &priceErr):
		return replyServiceError
	case errors.As(err, &ledgerErr):
		return unpricedReply(ledgerErr)
	default:
		return replyServiceError
	}
}

func unpricedReply(err *models.LedgerError) string {
	return fmt.Sprintf("```Could not get a price for: %s```", strings.Join(err.Tickers, ", "))
}

func unfoundReply(terms []string) string {
	return "```Could not find search term(s): \"" + strings.Join(terms, ", ") + "\"```"
}
