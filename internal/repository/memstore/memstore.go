// internal/repository/memstore/memstore.go
package memstore

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/javajoker/insurance-backend/internal/models"
	"github.com/javajoker/insurance-backend/internal/repository"
	"github.com/javajoker/insurance-backend/internal/utils"
)

// Store is an in-process repository.Store. It enforces the same uniqueness
// and optimistic-lock rules as the database-backed store and is used by
// tests and by DB_DRIVER=memory.
type Store struct {
	*state
	// journal is set on the Store handed to a WithinTransaction callback.
	journal *journal
}

type state struct {
	mu   sync.Mutex
	txMu sync.Mutex

	users            *table[models.User]
	policies         *table[models.Policy]
	customerPolicies *table[models.CustomerPolicy]
	premiums         *table[models.PremiumTransaction]
	claims           *table[models.Claim]
	transactions     *table[models.Transaction]
}

func New() *Store {
	return &Store{state: &state{
		users:            newTable[models.User](),
		policies:         newTable[models.Policy](),
		customerPolicies: newTable[models.CustomerPolicy](),
		premiums:         newTable[models.PremiumTransaction](),
		claims:           newTable[models.Claim](),
		transactions:     newTable[models.Transaction](),
	}}
}

var _ repository.Store = (*Store)(nil)

func (s *Store) Users() repository.UserRepository                      { return &userRepo{s} }
func (s *Store) Policies() repository.PolicyRepository                 { return &policyRepo{s} }
func (s *Store) CustomerPolicies() repository.CustomerPolicyRepository { return &customerPolicyRepo{s} }
func (s *Store) Premiums() repository.PremiumRepository                { return &premiumRepo{s} }
func (s *Store) Claims() repository.ClaimRepository                    { return &claimRepo{s} }
func (s *Store) Transactions() repository.TransactionRepository        { return &transactionRepo{s} }

// journal holds the before-images of the rows a transaction wrote.
type journal struct {
	undo []func()
}

// put and remove write a row under s.mu, journaling its previous state
// when s belongs to a transaction.
func put[T any](s *Store, t *table[T], id uuid.UUID, value T) {
	if s.journal != nil {
		s.journal.undo = append(s.journal.undo, t.restorer(id))
	}
	t.put(id, value)
}

func remove[T any](s *Store, t *table[T], id uuid.UUID) bool {
	if s.journal != nil {
		s.journal.undo = append(s.journal.undo, t.restorer(id))
	}
	return t.remove(id)
}

func (s *Store) rollback(j *journal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
}

// WithinTransaction serializes transactional callers. When fn fails or
// panics, the rows fn wrote are put back; writes committed by other callers
// in the meantime are kept. Nested calls join the outer transaction.
func (s *Store) WithinTransaction(ctx context.Context, fn func(repository.Store) error) error {
	if s.journal != nil {
		return fn(s)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &Store{state: s.state, journal: &journal{}}
	defer func() {
		if r := recover(); r != nil {
			s.rollback(tx.journal)
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		s.rollback(tx.journal)
		return err
	}
	return nil
}

func stampCreate(base *models.BaseModel) {
	if base.ID == uuid.Nil {
		base.ID = uuid.New()
	}
	now := time.Now()
	if base.CreatedAt.IsZero() {
		base.CreatedAt = now
	}
	base.UpdatedAt = now
}

// checkVersion implements the optimistic lock: stored must still carry the
// version that was read, after which the caller's copy is bumped.
func checkVersion(stored, incoming *models.Versioned) error {
	if stored.Version != incoming.Version {
		return repository.ErrStaleObject
	}
	incoming.Version++
	return nil
}

// Users

type userRepo struct{ s *Store }

func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	for _, u := range r.s.users.scan(nil) {
		if u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	stampCreate(&user.BaseModel)
	put(r.s, r.s.users, user.ID, *user)
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users.get(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.s.users.scan(nil) {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) CountByRole(ctx context.Context, role models.Role) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rows := r.s.users.scan(func(u models.User) bool { return u.Role == role })
	return int64(len(rows)), nil
}

func (r *userRepo) TouchLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users.get(id)
	if !ok {
		return repository.ErrNotFound
	}
	u.LastLoginAt = &at
	put(r.s, r.s.users, id, u)
	return nil
}

func (r *userRepo) List(ctx context.Context, filter repository.UserFilter) ([]models.User, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	rows := r.s.users.scan(func(u models.User) bool {
		if filter.Role != nil && u.Role != *filter.Role {
			return false
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(u.Name), search) &&
			!strings.Contains(u.Email, search) {
			return false
		}
		return true
	})

	total := int64(len(rows))
	return page(rows, func(u models.User) time.Time { return u.CreatedAt }, filter.PaginationParams), total, nil
}

func (r *userRepo) Update(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.users.get(user.ID)
	if !ok {
		return repository.ErrNotFound
	}
	stored.Name = user.Name
	stored.Phone = user.Phone
	stored.Gender = user.Gender
	stored.Role = user.Role
	stored.PasswordHash = user.PasswordHash
	stored.UpdatedAt = time.Now()
	user.UpdatedAt = stored.UpdatedAt
	put(r.s, r.s.users, user.ID, stored)
	return nil
}

// Policies

type policyRepo struct{ s *Store }

func (r *policyRepo) Create(ctx context.Context, policy *models.Policy) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, p := range r.s.policies.scan(nil) {
		if p.PolicyCode == policy.PolicyCode || p.Title == policy.Title {
			return repository.ErrDuplicate
		}
	}
	stampCreate(&policy.BaseModel)
	put(r.s, r.s.policies, policy.ID, *policy)
	return nil
}

func (r *policyRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Policy, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.policies.get(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *policyRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rows := r.s.policies.scan(func(p models.Policy) bool { return p.PolicyCode == code })
	return len(rows) > 0, nil
}

func (r *policyRepo) List(ctx context.Context, filter repository.PolicyFilter) ([]models.Policy, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rows := r.s.policies.scan(func(p models.Policy) bool {
		if filter.PolicyType != nil && p.PolicyType != *filter.PolicyType {
			return false
		}
		if filter.Status != nil && p.Status != *filter.Status {
			return false
		}
		if filter.MinPremium != nil && p.PremiumAmount.LessThan(*filter.MinPremium) {
			return false
		}
		if filter.MaxPremium != nil && p.PremiumAmount.GreaterThan(*filter.MaxPremium) {
			return false
		}
		return true
	})

	total := int64(len(rows))
	return page(rows, func(p models.Policy) time.Time { return p.CreatedAt }, filter.PaginationParams), total, nil
}

func (r *policyRepo) Update(ctx context.Context, policy *models.Policy) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.policies.get(policy.ID); !ok {
		return repository.ErrNotFound
	}
	for _, p := range r.s.policies.scan(nil) {
		if p.ID != policy.ID && (p.PolicyCode == policy.PolicyCode || p.Title == policy.Title) {
			return repository.ErrDuplicate
		}
	}
	policy.UpdatedAt = time.Now()
	put(r.s, r.s.policies, policy.ID, *policy)
	return nil
}

func (r *policyRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.policies.get(id); !ok {
		return repository.ErrNotFound
	}
	if refs := r.s.customerPolicies.scan(func(cp models.CustomerPolicy) bool { return cp.PolicyID == id }); len(refs) > 0 {
		return repository.ErrReferenced
	}
	remove(r.s, r.s.policies, id)
	return nil
}

// Customer policies

type customerPolicyRepo struct{ s *Store }

func storedCustomerPolicy(cp models.CustomerPolicy) models.CustomerPolicy {
	cp.StatusHistory = cp.StatusHistory.Clone()
	cp.Customer = nil
	cp.Policy = nil
	return cp
}

// withPolicy must be called with s.mu held.
func (s *Store) withPolicy(cp models.CustomerPolicy) models.CustomerPolicy {
	cp.StatusHistory = cp.StatusHistory.Clone()
	if p, ok := s.policies.get(cp.PolicyID); ok {
		cp.Policy = &p
	}
	return cp
}

func (r *customerPolicyRepo) Create(ctx context.Context, cp *models.CustomerPolicy) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.customerPolicies.scan(nil) {
		if existing.PolicyNumber == cp.PolicyNumber ||
			(existing.CustomerID == cp.CustomerID && existing.PolicyID == cp.PolicyID) {
			return repository.ErrDuplicate
		}
	}
	stampCreate(&cp.BaseModel)
	if cp.Version == 0 {
		cp.Version = 1
	}
	put(r.s, r.s.customerPolicies, cp.ID, storedCustomerPolicy(*cp))
	return nil
}

func (r *customerPolicyRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.CustomerPolicy, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cp, ok := r.s.customerPolicies.get(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp = r.s.withPolicy(cp)
	return &cp, nil
}

func (r *customerPolicyRepo) FindByCustomerAndPolicy(ctx context.Context, customerID, policyID uuid.UUID) (*models.CustomerPolicy, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rows := r.s.customerPolicies.scan(func(cp models.CustomerPolicy) bool {
		return cp.CustomerID == customerID && cp.PolicyID == policyID
	})
	if len(rows) == 0 {
		return nil, repository.ErrNotFound
	}
	cp := storedCustomerPolicy(rows[0])
	return &cp, nil
}

func (r *customerPolicyRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.CustomerPolicy, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rows := r.s.customerPolicies.scan(func(cp models.CustomerPolicy) bool { return cp.CustomerID == customerID })
	out := make([]models.CustomerPolicy, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		out = append(out, r.s.withPolicy(rows[i]))
	}
	return out, nil
}

func (r *customerPolicyRepo) CountLiveByPolicy(ctx context.Context, policyID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rows := r.s.customerPolicies.scan(func(cp models.CustomerPolicy) bool {
		return cp.PolicyID == policyID &&
			(cp.Status == models.CustomerPolicyPendingPayment || cp.Status == models.CustomerPolicyActive)
	})
	return int64(len(rows)), nil
}

func (r *customerPolicyRepo) CountByStatus(ctx context.Context, status models.CustomerPolicyStatus) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rows := r.s.customerPolicies.scan(func(cp models.CustomerPolicy) bool { return cp.Status == status })
	return int64(len(rows)), nil
}

func (r *customerPolicyRepo) LastPolicyNumber(ctx context.Context, prefix string) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	last := ""
	for _, cp := range r.s.customerPolicies.scan(nil) {
		n := cp.PolicyNumber
		if !strings.HasPrefix(n, prefix) {
			continue
		}
		if len(n) > len(last) || (len(n) == len(last) && n > last) {
			last = n
		}
	}
	return last, nil
}

func (r *customerPolicyRepo) ListLapsed(ctx context.Context, asOf time.Time, limit int) ([]models.CustomerPolicy, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rows := r.s.customerPolicies.scan(func(cp models.CustomerPolicy) bool {
		return cp.Status == models.CustomerPolicyActive && cp.EndDate.Before(asOf)
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	for i := range rows {
		rows[i] = storedCustomerPolicy(rows[i])
	}
	return rows, nil
}

func (r *customerPolicyRepo) Update(ctx context.Context, cp *models.CustomerPolicy) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.customerPolicies.get(cp.ID)
	if !ok {
		return repository.ErrNotFound
	}
	if err := checkVersion(&stored.Versioned, &cp.Versioned); err != nil {
		return err
	}
	cp.UpdatedAt = time.Now()
	put(r.s, r.s.customerPolicies, cp.ID, storedCustomerPolicy(*cp))
	return nil
}

// Premium transactions

type premiumRepo struct{ s *Store }

func storedPremium(tx models.PremiumTransaction) models.PremiumTransaction {
	if tx.ProviderResponse != nil {
		tx.ProviderResponse = append([]byte(nil), tx.ProviderResponse...)
	}
	tx.CustomerPolicy = nil
	return tx
}

// premiumConflicts must be called with s.mu held.
func (s *Store) premiumConflicts(tx *models.PremiumTransaction) bool {
	for _, existing := range s.premiums.scan(nil) {
		if existing.ID == tx.ID {
			continue
		}
		if existing.ReferenceID == tx.ReferenceID || existing.InvoiceNo == tx.InvoiceNo {
			return true
		}
		if tx.Status == models.PremiumSuccess && existing.Status == models.PremiumSuccess &&
			existing.CustomerPolicyID == tx.CustomerPolicyID &&
			existing.InstallmentNumber == tx.InstallmentNumber {
			return true
		}
	}
	return false
}

func (r *premiumRepo) Create(ctx context.Context, tx *models.PremiumTransaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.premiumConflicts(tx) {
		return repository.ErrDuplicate
	}
	stampCreate(&tx.BaseModel)
	if tx.Version == 0 {
		tx.Version = 1
	}
	put(r.s, r.s.premiums, tx.ID, storedPremium(*tx))
	return nil
}

func (r *premiumRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.PremiumTransaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tx, ok := r.s.premiums.get(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	tx = storedPremium(tx)
	if cp, ok := r.s.customerPolicies.get(tx.CustomerPolicyID); ok {
		cp = r.s.withPolicy(cp)
		tx.CustomerPolicy = &cp
	}
	return &tx, nil
}

func (r *premiumRepo) HasSuccessfulInstallment(ctx context.Context, customerPolicyID uuid.UUID, installment int) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rows := r.s.premiums.scan(func(tx models.PremiumTransaction) bool {
		return tx.CustomerPolicyID == customerPolicyID &&
			tx.InstallmentNumber == installment &&
			tx.Status == models.PremiumSuccess
	})
	return len(rows) > 0, nil
}

func (r *premiumRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID, params utils.PaginationParams) ([]models.PremiumTransaction, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rows := r.s.premiums.scan(func(tx models.PremiumTransaction) bool { return tx.CustomerID == customerID })
	total := int64(len(rows))
	return page(rows, func(tx models.PremiumTransaction) time.Time { return tx.CreatedAt }, params), total, nil
}

func (r *premiumRepo) Update(ctx context.Context, tx *models.PremiumTransaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.premiums.get(tx.ID)
	if !ok {
		return repository.ErrNotFound
	}
	if r.s.premiumConflicts(tx) {
		return repository.ErrDuplicate
	}
	if err := checkVersion(&stored.Versioned, &tx.Versioned); err != nil {
		return err
	}
	tx.UpdatedAt = time.Now()
	put(r.s, r.s.premiums, tx.ID, storedPremium(*tx))
	return nil
}

// Claims

type claimRepo struct{ s *Store }

func storedClaim(c models.Claim) models.Claim {
	c.StatusHistory = c.StatusHistory.Clone()
	if c.Documents != nil {
		c.Documents = append([]string(nil), c.Documents...)
	}
	if c.OpenPolicyKey != nil {
		key := *c.OpenPolicyKey
		c.OpenPolicyKey = &key
	}
	c.Customer = nil
	c.CustomerPolicy = nil
	c.AssignedAgent = nil
	return c
}

// withCustomerPolicy must be called with s.mu held.
func (s *Store) withCustomerPolicy(c models.Claim) models.Claim {
	c = storedClaim(c)
	if cp, ok := s.customerPolicies.get(c.CustomerPolicyID); ok {
		cp = s.withPolicy(cp)
		c.CustomerPolicy = &cp
	}
	return c
}

// openKeyTaken must be called with s.mu held.
func (s *Store) openKeyTaken(c *models.Claim) bool {
	if c.OpenPolicyKey == nil {
		return false
	}
	for _, existing := range s.claims.scan(nil) {
		if existing.ID != c.ID && existing.OpenPolicyKey != nil && *existing.OpenPolicyKey == *c.OpenPolicyKey {
			return true
		}
	}
	return false
}

func (r *claimRepo) Create(ctx context.Context, claim *models.Claim) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.openKeyTaken(claim) {
		return repository.ErrDuplicate
	}
	stampCreate(&claim.BaseModel)
	if claim.Version == 0 {
		claim.Version = 1
	}
	put(r.s, r.s.claims, claim.ID, storedClaim(*claim))
	return nil
}

func (r *claimRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Claim, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.claims.get(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	c = r.s.withCustomerPolicy(c)
	return &c, nil
}

// GetForUpdate relies on WithinTransaction serializing callers.
func (r *claimRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Claim, error) {
	return r.GetByID(ctx, id)
}

func (r *claimRepo) HasOpenClaim(ctx context.Context, customerPolicyID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rows := r.s.claims.scan(func(c models.Claim) bool {
		return c.OpenPolicyKey != nil && *c.OpenPolicyKey == customerPolicyID
	})
	return len(rows) > 0, nil
}

func (r *claimRepo) List(ctx context.Context, filter repository.ClaimFilter) ([]models.Claim, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rows := r.s.claims.scan(func(c models.Claim) bool {
		if filter.CustomerID != nil && c.CustomerID != *filter.CustomerID {
			return false
		}
		if filter.AssignedAgentID != nil && (c.AssignedAgentID == nil || *c.AssignedAgentID != *filter.AssignedAgentID) {
			return false
		}
		if filter.Status != nil && c.CurrentStatus() != *filter.Status {
			return false
		}
		if filter.ClaimType != nil && c.ClaimType != *filter.ClaimType {
			return false
		}
		if filter.DateFrom != nil && c.CreatedAt.Before(*filter.DateFrom) {
			return false
		}
		if filter.DateTo != nil && c.CreatedAt.After(*filter.DateTo) {
			return false
		}
		return true
	})

	total := int64(len(rows))
	rows = page(rows, func(c models.Claim) time.Time { return c.CreatedAt }, filter.PaginationParams)
	for i := range rows {
		rows[i] = r.s.withCustomerPolicy(rows[i])
	}
	return rows, total, nil
}

func (r *claimRepo) ListOverdue(ctx context.Context, asOf time.Time, limit int) ([]models.Claim, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rows := r.s.claims.scan(func(c models.Claim) bool {
		return c.OpenPolicyKey != nil && !c.IsFlagged && c.Deadline != nil && c.Deadline.Before(asOf)
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	for i := range rows {
		rows[i] = storedClaim(rows[i])
	}
	return rows, nil
}

func (r *claimRepo) Update(ctx context.Context, claim *models.Claim) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.claims.get(claim.ID)
	if !ok {
		return repository.ErrNotFound
	}
	if r.s.openKeyTaken(claim) {
		return repository.ErrDuplicate
	}
	if err := checkVersion(&stored.Versioned, &claim.Versioned); err != nil {
		return err
	}
	claim.UpdatedAt = time.Now()
	put(r.s, r.s.claims, claim.ID, storedClaim(*claim))
	return nil
}

func (r *claimRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if !remove(r.s, r.s.claims, id) {
		return repository.ErrNotFound
	}
	return nil
}

// Ledger transactions

type transactionRepo struct{ s *Store }

func (r *transactionRepo) Create(ctx context.Context, tx *models.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.transactions.scan(nil) {
		if existing.ReferenceID == tx.ReferenceID {
			return repository.ErrDuplicate
		}
	}
	stampCreate(&tx.BaseModel)
	stored := *tx
	stored.Customer = nil
	put(r.s, r.s.transactions, tx.ID, stored)
	return nil
}

func (r *transactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tx, ok := r.s.transactions.get(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &tx, nil
}

func (r *transactionRepo) List(ctx context.Context, filter repository.TransactionFilter) ([]models.Transaction, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rows := r.s.transactions.scan(transactionMatcher(filter))

	total := int64(len(rows))
	return page(rows, func(tx models.Transaction) time.Time { return tx.CreatedAt }, filter.PaginationParams), total, nil
}

func (r *transactionRepo) Sum(ctx context.Context, filter repository.TransactionFilter) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	total := decimal.Zero
	for _, tx := range r.s.transactions.scan(transactionMatcher(filter)) {
		total = total.Add(tx.Amount)
	}
	return total, nil
}

func transactionMatcher(filter repository.TransactionFilter) func(models.Transaction) bool {
	return func(tx models.Transaction) bool {
		if filter.CustomerID != nil && tx.CustomerID != *filter.CustomerID {
			return false
		}
		if filter.TransactionType != nil && tx.TransactionType != *filter.TransactionType {
			return false
		}
		if filter.Status != nil && tx.Status != *filter.Status {
			return false
		}
		if filter.CreatedFrom != nil && tx.CreatedAt.Before(*filter.CreatedFrom) {
			return false
		}
		return true
	}
}

func (r *transactionRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.TransactionStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tx, ok := r.s.transactions.get(id)
	if !ok {
		return repository.ErrNotFound
	}
	tx.Status = status
	tx.UpdatedAt = time.Now()
	put(r.s, r.s.transactions, id, tx)
	return nil
}
