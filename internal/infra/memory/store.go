// Package memory provides a mutex-guarded in-memory implementation of
// port.Store. It backs local development when no database is configured and
// the test suites.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/prestabook/prestabook/internal/domain"
)

// Store is an in-memory lending book store.
type Store struct {
	mu           sync.RWMutex
	clients      map[string]domain.Client
	loans        map[string]domain.Loan
	installments map[string]domain.Installment
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		clients:      make(map[string]domain.Client),
		loans:        make(map[string]domain.Loan),
		installments: make(map[string]domain.Installment),
	}
}

// ============================================================
// Clients
// ============================================================

func (s *Store) CreateClient(ctx context.Context, c *domain.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.clients {
		if existing.DocumentID == c.DocumentID {
			return &domain.ErrConflict{Message: "client with document " + c.DocumentID + " already exists"}
		}
	}
	s.clients[c.ID] = *c
	return nil
}

func (s *Store) ListClients(ctx context.Context) ([]domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Client, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) GetClient(ctx context.Context, id string) (*domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.clients[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "client", ID: id}
	}
	return &c, nil
}

func (s *Store) GetClientByDocument(ctx context.Context, documentID string) (*domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.clients {
		if c.DocumentID == documentID {
			out := c
			return &out, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "client", ID: documentID}
}

func (s *Store) UpdateClient(ctx context.Context, c *domain.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[c.ID]; !ok {
		return &domain.ErrNotFound{Resource: "client", ID: c.ID}
	}
	s.clients[c.ID] = *c
	return nil
}

// DeleteClient removes the client together with their remaining loans and
// installments, matching the Postgres store's ON DELETE CASCADE chain.
func (s *Store) DeleteClient(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[id]; !ok {
		return &domain.ErrNotFound{Resource: "client", ID: id}
	}
	delete(s.clients, id)
	for loanID, loan := range s.loans {
		if loan.ClientID != id {
			continue
		}
		delete(s.loans, loanID)
		for instID, inst := range s.installments {
			if inst.LoanID == loanID {
				delete(s.installments, instID)
			}
		}
	}
	return nil
}

// ============================================================
// Loans
// ============================================================

func (s *Store) CreateLoan(ctx context.Context, l *domain.Loan, schedule []domain.Installment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[l.ClientID]; !ok {
		return &domain.ErrNotFound{Resource: "client", ID: l.ClientID}
	}

	loan := *l
	loan.Client = nil
	loan.Schedule = nil
	s.loans[loan.ID] = loan
	for _, inst := range schedule {
		s.installments[inst.ID] = inst
	}
	return nil
}

func (s *Store) ListLoans(ctx context.Context) ([]domain.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Loan, 0, len(s.loans))
	for _, l := range s.loans {
		out = append(out, s.hydrateLoan(l))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) GetLoan(ctx context.Context, id string) (*domain.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.loans[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "loan", ID: id}
	}
	out := s.hydrateLoan(l)
	return &out, nil
}

func (s *Store) ListLoansByClient(ctx context.Context, clientID string) ([]domain.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Loan{}
	for _, l := range s.loans {
		if l.ClientID == clientID {
			out = append(out, s.hydrateLoan(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) DeleteLoan(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.loans[id]; !ok {
		return &domain.ErrNotFound{Resource: "loan", ID: id}
	}
	delete(s.loans, id)
	for instID, inst := range s.installments {
		if inst.LoanID == id {
			delete(s.installments, instID)
		}
	}
	return nil
}

func (s *Store) SettleLoanIfPaid(ctx context.Context, loanID string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loan, ok := s.loans[loanID]
	if !ok {
		return false, &domain.ErrNotFound{Resource: "loan", ID: loanID}
	}
	if !loan.Status.CanTransition(domain.LoanPaid) {
		return false, nil
	}

	// Scan-and-set under the write lock: equivalent to the conditional
	// UPDATE the Postgres store issues.
	for _, inst := range s.installments {
		if inst.LoanID == loanID && inst.Status != domain.InstallmentPaid {
			return false, nil
		}
	}

	loan.Status = domain.LoanPaid
	loan.UpdatedAt = now
	s.loans[loanID] = loan
	return true, nil
}

// ============================================================
// Installments
// ============================================================

func (s *Store) GetInstallment(ctx context.Context, id string) (*domain.Installment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, ok := s.installments[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "installment", ID: id}
	}
	return &inst, nil
}

func (s *Store) ListInstallmentsByLoan(ctx context.Context, loanID string) ([]domain.Installment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.installmentsOf(loanID), nil
}

func (s *Store) ListInstallments(ctx context.Context) ([]domain.Installment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Installment, 0, len(s.installments))
	for _, inst := range s.installments {
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LoanID != out[j].LoanID {
			return out[i].LoanID < out[j].LoanID
		}
		return out[i].Number < out[j].Number
	})
	return out, nil
}

func (s *Store) UpdateInstallment(ctx context.Context, inst *domain.Installment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.installments[inst.ID]; !ok {
		return &domain.ErrNotFound{Resource: "installment", ID: inst.ID}
	}
	s.installments[inst.ID] = *inst
	return nil
}

func (s *Store) ListAccruable(ctx context.Context, before time.Time) ([]domain.Installment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Installment{}
	for _, inst := range s.installments {
		if inst.Status != domain.InstallmentPending && inst.Status != domain.InstallmentOverdue {
			continue
		}
		loan, ok := s.loans[inst.LoanID]
		if !ok || loan.Status != domain.LoanActive {
			continue
		}
		if inst.DueDate.Before(before) {
			out = append(out, inst)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error { return nil }

// hydrateLoan attaches copies of the client and the ordered schedule.
// Caller must hold at least the read lock.
func (s *Store) hydrateLoan(l domain.Loan) domain.Loan {
	if c, ok := s.clients[l.ClientID]; ok {
		client := c
		l.Client = &client
	}
	l.Schedule = s.installmentsOf(l.ID)
	return l
}

func (s *Store) installmentsOf(loanID string) []domain.Installment {
	out := []domain.Installment{}
	for _, inst := range s.installments {
		if inst.LoanID == loanID {
			out = append(out, inst)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}
