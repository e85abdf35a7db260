// Package model defines the domain types shared across the analytics engine.
package model

import "time"

// Transaction represents a single till receipt: one customer visit to one
// store on one date, with the ordered list of product codes purchased.
type Transaction struct {
	Date     time.Time
	Customer string
	Products []string
	Store    int
}

// Year returns the calendar year of the transaction date.
func (t *Transaction) Year() int {
	return t.Date.Year()
}

// ISOWeek returns the ISO 8601 week number of the transaction date.
func (t *Transaction) ISOWeek() int {
	_, week := t.Date.ISOWeek()
	return week
}

// Weekday returns the day of week of the transaction date.
func (t *Transaction) Weekday() time.Weekday {
	return t.Date.Weekday()
}

// ItemCount returns the number of product lines in the basket, repeats
// included.
func (t *Transaction) ItemCount() int {
	return len(t.Products)
}

// Basket returns the deduplicated set of product codes in the transaction.
// Repeated purchases of the same item within one visit count once.
func (t *Transaction) Basket() map[string]struct{} {
	basket := make(map[string]struct{}, len(t.Products))
	for _, code := range t.Products {
		basket[code] = struct{}{}
	}
	return basket
}

// ExplodedLine is one product occurrence within a transaction: the unit of
// product and category frequency counting.
type ExplodedLine struct {
	Date        time.Time
	Customer    string
	ProductCode string
	CategoryID  string
	Store       int
}
