// Package ledger records incoming bank transactions and answers
// reconciliation queries: has a transfer with this content token and amount
// been observed yet?
package ledger

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrBadAmount = errors.New("invalid transaction amount")

// Transaction is one observed incoming transfer.
type Transaction struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	Amount     string    `json:"amount"`
	ObservedAt time.Time `json:"observed_at"`
}

// Store defines the ledger storage operations the payment service needs.
type Store interface {
	// Append records an observed incoming transfer.
	Append(content, amount string) (*Transaction, error)

	// Match reports whether an unconsumed transaction with this content and
	// amount exists, consuming it on success so a token matches at most once.
	Match(content, amount string) bool
}

// MemoryStore implements Store with in-memory storage. The ledger mirror is
// volatile by design; the bank holds the authoritative record.
type MemoryStore struct {
	mu  sync.Mutex
	txs []Transaction
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Append(content, amount string) (*Transaction, error) {
	amt, err := decimal.NewFromString(amount)
	if err != nil || !amt.IsPositive() {
		return nil, ErrBadAmount
	}
	tx := Transaction{
		ID:         uuid.NewString(),
		Content:    content,
		Amount:     amt.String(),
		ObservedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.txs = append(s.txs, tx)
	s.mu.Unlock()
	return &tx, nil
}

func (s *MemoryStore) Match(content, amount string) bool {
	want, err := decimal.NewFromString(amount)
	if err != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, tx := range s.txs {
		got, err := decimal.NewFromString(tx.Amount)
		if err != nil || tx.Content != content || !got.Equal(want) {
			continue
		}
		s.txs = append(s.txs[:i], s.txs[i+1:]...)
		return true
	}
	return false
}
