package model

import "time"

// Contact is where notifications for a user are delivered.
type Contact struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Ledger is the per-user document holding contact info and the ordered
// transaction list. Version is the optimistic concurrency token of the
// backing document and is not part of the stored body.
type Ledger struct {
	UserID       string        `json:"user_id"`
	Contact      Contact       `json:"contact"`
	Transactions []Transaction `json:"transactions"`
	UpdatedAt    time.Time     `json:"updated_at"`

	Version int64 `json:"-"`
}

func NewLedger(userID string) *Ledger {
	return &Ledger{UserID: userID, Transactions: []Transaction{}}
}

// Find returns the index of the transaction with the given order id.
func (l *Ledger) Find(orderID string) (int, bool) {
	for i := range l.Transactions {
		if l.Transactions[i].OrderID == orderID {
			return i, true
		}
	}
	return -1, false
}

// Get returns a copy of the transaction with the given order id.
func (l *Ledger) Get(orderID string) (*Transaction, bool) {
	i, ok := l.Find(orderID)
	if !ok {
		return nil, false
	}
	cp := l.Transactions[i]
	return &cp, true
}

// Append adds tx at the end of the list unless its order id is already present.
func (l *Ledger) Append(tx Transaction) bool {
	if _, ok := l.Find(tx.OrderID); ok {
		return false
	}
	l.Transactions = append(l.Transactions, tx)
	return true
}

// Pending returns copies of pending transactions last touched before cutoff.
func (l *Ledger) Pending(cutoff time.Time) []Transaction {
	var out []Transaction
	for _, tx := range l.Transactions {
		if tx.Status == TransactionStatusPending && tx.UpdatedAt.Before(cutoff) {
			out = append(out, tx)
		}
	}
	return out
}
