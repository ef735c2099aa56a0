// Package pager pages through a ledger one view at a time. A Pager is a small
// state machine over (view, page); a Session feeds it navigation signals and
// redraws the page until it goes idle.
package pager

import (
	"github.com/trogers1052/flexbot/internal/ledger"
)

// PageSize is the number of positions on one page
const PageSize = 5

// Signal is a navigation input
type Signal int

const (
	SignalFirst Signal = iota
	SignalPrev
	SignalNext
	SignalLast
	SignalOpenView
	SignalClosedView
)

func (s Signal) String() string {
	switch s {
	case SignalFirst:
		return "first"
	case SignalPrev:
		return "prev"
	case SignalNext:
		return "next"
	case SignalLast:
		return "last"
	case SignalOpenView:
		return "open_view"
	case SignalClosedView:
		return "closed_view"
	default:
		return "unknown"
	}
}

// State is the current view and 1-based page
type State struct {
	View ledger.View
	Page int
}

// MaxPage is the number of pages needed for count rows, at least 1
func MaxPage(count int) int {
	if count <= 0 {
		return 1
	}
	return (count + PageSize - 1) / PageSize
}

// Pager holds the paging state of one listing
type Pager struct {
	ledger *ledger.Ledger
	title  string
	state  State
}

// New starts on page 1 of the open view
func New(l *ledger.Ledger, title string) *Pager {
	return &Pager{
		ledger: l,
		title:  title,
		state:  State{View: ledger.ViewOpen, Page: 1},
	}
}

func (p *Pager) State() State {
	return p.state
}

// Ledger returns the ledger being paged
func (p *Pager) Ledger() *ledger.Ledger {
	return p.ledger
}

// MaxPage returns the page count of the current view
func (p *Pager) MaxPage() int {
	return MaxPage(len(p.ledger.Partition(p.state.View)))
}

// GoTo jumps to page, clamped to [1, MaxPage]
func (p *Pager) GoTo(page int) {
	switch last := p.MaxPage(); {
	case page < 1:
		p.state.Page = 1
	case page > last:
		p.state.Page = last
	default:
		p.state.Page = page
	}
}

// Apply performs the transition for sig and reports whether the state
// changed. Signals whose precondition does not hold are ignored.
func (p *Pager) Apply(sig Signal) bool {
	last := p.MaxPage()
	switch sig {
	case SignalNext:
		if p.state.Page < last {
			p.state.Page++
			return true
		}
	case SignalLast:
		if p.state.Page < last {
			p.state.Page = last
			return true
		}
	case SignalPrev:
		if p.state.Page > 1 {
			p.state.Page--
			return true
		}
	case SignalFirst:
		if p.state.Page > 1 {
			p.state.Page = 1
			return true
		}
	case SignalOpenView:
		return p.switchTo(ledger.ViewOpen)
	case SignalClosedView:
		return p.switchTo(ledger.ViewClosed)
	}
	return false
}

func (p *Pager) switchTo(v ledger.View) bool {
	if p.state.View == v {
		return false
	}
	p.state = State{View: v, Page: 1}
	return true
}

// Affordances lists the signals that would change the state right now. The
// view switch is only offered when the other partition has positions.
func (p *Pager) Affordances() []Signal {
	var out []Signal
	last := p.MaxPage()
	if p.state.Page > 1 {
		out = append(out, SignalFirst, SignalPrev)
	}
	if p.state.Page < last {
		out = append(out, SignalNext, SignalLast)
	}
	other := p.state.View.Other()
	if len(p.ledger.Partition(other)) > 0 {
		if other == ledger.ViewOpen {
			out = append(out, SignalOpenView)
		} else {
			out = append(out, SignalClosedView)
		}
	}
	return out
}

// Rows returns the positions on the current page
func (p *Pager) Rows() []*ledger.EnrichedPosition {
	rows := p.ledger.Partition(p.state.View)
	start := (p.state.Page - 1) * PageSize
	if start >= len(rows) {
		return nil
	}
	end := start + PageSize
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

// Render formats the current page
func (p *Pager) Render() string {
	return renderPage(p.title, p.ledger, p.state, p.MaxPage(), p.Rows())
}
