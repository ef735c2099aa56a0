package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownHandle = errors.New("unknown position handle")
	ErrAlreadyClosed = errors.New("position already closed")
	ErrTermNotFound  = errors.New("search term not found")
)

// PriceServiceError means the price service call failed as a whole.
// No part of the response is trusted.
type PriceServiceError struct {
	Err error
}

func (e *PriceServiceError) Error() string {
	return fmt.Sprintf("price service: %v", e.Err)
}

func (e *PriceServiceError) Unwrap() error {
	return e.Err
}

// StoreError means a persistence call failed
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// LedgerError names the tickers that could not be priced while building a ledger
type LedgerError struct {
	Tickers []string
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("could not price ticker(s): %s", strings.Join(e.Tickers, ", "))
}
