// Package settlement runs vault operations end to end: it loads records,
// applies the vault and swap components under a per-vault lock, persists the
// new balance and appends the settlement ledger.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"solana-swap-vault/internal/domain"
	"solana-swap-vault/internal/idhash"
	"solana-swap-vault/internal/observability"
	"solana-swap-vault/internal/solana"
	"solana-swap-vault/internal/storage"
	"solana-swap-vault/internal/swap"
	"solana-swap-vault/internal/transfer"
	"solana-swap-vault/internal/vault"
)

// PDA seed prefixes.
const (
	VaultSeed        = "vault"
	TokenBindingSeed = "token_vault"
)

// ErrPersistFailed wraps a store failure after the external transfer
// completed. The transfer has been reversed unless ErrCompensationFailed is
// also present.
var ErrPersistFailed = errors.New("settlement: persist balance failed")

// ErrCompensationFailed marks a settlement whose external movement could not
// be reversed after a later step failed.
var ErrCompensationFailed = errors.New("settlement: compensation failed")

// ErrAnalyticsDisabled is returned by analytics reads when no event store is
// configured.
var ErrAnalyticsDisabled = errors.New("settlement: analytics store not configured")

// Deps are the collaborators of a Service.
type Deps struct {
	ProgramID domain.Identity
	Vaults    storage.VaultStore
	Ledger    storage.LedgerStore
	Events    storage.SettlementEventStore // optional analytics copy
	Native    transfer.NativeTransferer
	Engine    *swap.Engine
	Logger    *logrus.Entry
	Now       func() time.Time
}

// Service executes settlement operations.
type Service struct {
	programID domain.Identity
	vaults    storage.VaultStore
	ledger    storage.LedgerStore
	events    storage.SettlementEventStore
	native    transfer.NativeTransferer
	nv        *vault.NativeVault
	engine    *swap.Engine
	locks     *keyedMutex
	log       *logrus.Entry
	now       func() time.Time
}

// NewService creates a settlement service.
func NewService(d Deps) *Service {
	log := d.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		programID: d.ProgramID,
		vaults:    d.Vaults,
		ledger:    d.Ledger,
		events:    d.Events,
		native:    d.Native,
		nv:        vault.NewNativeVault(d.Native),
		engine:    d.Engine,
		locks:     newKeyedMutex(),
		log:       log.WithField("component", "settlement"),
		now:       now,
	}
}

// DeriveAddresses returns the vault and binding addresses for authority.
func (s *Service) DeriveAddresses(authority domain.Identity) (vaultAddr, bindingAddr domain.Identity, err error) {
	va, _, err := solana.FindProgramAddress([][]byte{[]byte(VaultSeed), authority.Bytes()}, s.programID)
	if err != nil {
		return domain.Identity{}, domain.Identity{}, fmt.Errorf("derive vault address: %w", err)
	}
	ba, _, err := solana.FindProgramAddress([][]byte{[]byte(TokenBindingSeed), va[:]}, s.programID)
	if err != nil {
		return domain.Identity{}, domain.Identity{}, fmt.Errorf("derive binding address: %w", err)
	}
	return domain.Identity(va), domain.Identity(ba), nil
}

// Initialize creates the vault and token binding for admin.
// Returns storage.ErrDuplicateKey if admin already has a vault.
func (s *Service) Initialize(ctx context.Context, admin, mint domain.Identity) (*domain.Vault, *domain.TokenVaultBinding, error) {
	if admin.IsZero() || mint.IsZero() {
		return nil, nil, fmt.Errorf("%w: admin and mint are required", storage.ErrInvalidInput)
	}

	vaultAddr, bindingAddr, err := s.DeriveAddresses(admin)
	if err != nil {
		return nil, nil, err
	}

	v := vault.Initialize(admin, vaultAddr)
	b := vault.InitializeBinding(admin, mint, bindingAddr)
	if err := s.vaults.Create(ctx, v, b); err != nil {
		return nil, nil, fmt.Errorf("create vault %s: %w", vaultAddr, err)
	}

	s.log.WithFields(logrus.Fields{
		"vault":     vaultAddr.String(),
		"binding":   bindingAddr.String(),
		"authority": admin.String(),
		"mint":      mint.String(),
	}).Info("vault initialized")
	return v, b, nil
}

// GetVault returns the vault stored at address together with its token binding.
func (s *Service) GetVault(ctx context.Context, address domain.Identity) (*domain.Vault, *domain.TokenVaultBinding, error) {
	return s.load(ctx, address)
}

// Deposit moves amount from caller into the vault.
func (s *Service) Deposit(ctx context.Context, vaultAddr, caller domain.Identity, amount uint64) (entry *domain.LedgerEntry, err error) {
	defer s.observe(domain.LedgerKindDeposit, time.Now(), &err)

	unlock := s.locks.Lock(vaultAddr)
	defer unlock()

	v, err := s.vaults.GetVault(ctx, vaultAddr)
	if err != nil {
		return nil, fmt.Errorf("load vault %s: %w", vaultAddr, err)
	}
	before := v.NativeBalance

	if err := s.nv.Deposit(ctx, v, caller, amount); err != nil {
		return nil, err
	}

	if err := s.persist(ctx, v, before); err != nil {
		cerr := s.compensateNative(ctx, "deposit_reversal", v.Address, caller, amount)
		return nil, errors.Join(err, cerr)
	}

	observability.RecordNativeMoved("deposit", amount)
	return s.record(ctx, &domain.LedgerEntry{
		VaultAddress: v.Address.String(),
		Kind:         domain.LedgerKindDeposit,
		Caller:       caller.String(),
		AmountNative: amount,
		BalanceAfter: v.NativeBalance,
	}), nil
}

// Withdraw moves amount from the vault to caller.
func (s *Service) Withdraw(ctx context.Context, vaultAddr, caller domain.Identity, amount uint64) (entry *domain.LedgerEntry, err error) {
	defer s.observe(domain.LedgerKindWithdraw, time.Now(), &err)

	unlock := s.locks.Lock(vaultAddr)
	defer unlock()

	v, err := s.vaults.GetVault(ctx, vaultAddr)
	if err != nil {
		return nil, fmt.Errorf("load vault %s: %w", vaultAddr, err)
	}
	before := v.NativeBalance

	if err := s.nv.Withdraw(ctx, v, caller, amount); err != nil {
		return nil, err
	}

	if err := s.persist(ctx, v, before); err != nil {
		cerr := s.compensateNative(ctx, "withdraw_reversal", caller, v.Address, amount)
		return nil, errors.Join(err, cerr)
	}

	observability.RecordNativeMoved("withdraw", amount)
	return s.record(ctx, &domain.LedgerEntry{
		VaultAddress: v.Address.String(),
		Kind:         domain.LedgerKindWithdraw,
		Caller:       caller.String(),
		AmountNative: amount,
		BalanceAfter: v.NativeBalance,
	}), nil
}

// BuyNative exchanges amountToken of the bound token for native units from the vault.
func (s *Service) BuyNative(ctx context.Context, vaultAddr, caller domain.Identity, amountToken uint64) (entry *domain.LedgerEntry, err error) {
	defer s.observe(domain.LedgerKindSwap, time.Now(), &err)

	unlock := s.locks.Lock(vaultAddr)
	defer unlock()

	v, b, err := s.load(ctx, vaultAddr)
	if err != nil {
		return nil, err
	}
	before := v.NativeBalance

	st, err := s.engine.BuyNative(ctx, v, b, caller, amountToken)
	if err != nil {
		return nil, err
	}

	if err := s.persist(ctx, v, before); err != nil {
		cerr := s.compensateNative(ctx, "payout_reversal", caller, v.Address, st.AmountNative)
		if cerr == nil {
			if rerr := s.engine.Refund(ctx, b, caller, amountToken); rerr != nil {
				cerr = fmt.Errorf("%w: %w", ErrCompensationFailed, rerr)
			}
		}
		return nil, errors.Join(err, cerr)
	}

	observability.RecordNativeMoved("swap", st.AmountNative)
	if st.Dust > 0 {
		s.log.WithFields(logrus.Fields{
			"vault":        v.Address.String(),
			"amount_token": amountToken,
			"rate":         st.Rate,
			"dust":         st.Dust,
		}).Debug("swap remainder truncated")
	}
	return s.record(ctx, &domain.LedgerEntry{
		VaultAddress: v.Address.String(),
		Kind:         domain.LedgerKindSwap,
		Caller:       caller.String(),
		AmountNative: st.AmountNative,
		AmountToken:  st.AmountToken,
		Rate:         st.Rate,
		Dust:         st.Dust,
		BalanceAfter: st.BalanceAfter,
	}), nil
}

// Quote previews a swap of amountToken at the current rate.
func (s *Service) Quote(ctx context.Context, amountToken uint64) (swap.Settlement, error) {
	return s.engine.Preview(ctx, amountToken)
}

// Ledger returns ledger entries of a vault after afterSeq.
func (s *Service) Ledger(ctx context.Context, vaultAddr domain.Identity, afterSeq int64, limit int) ([]*domain.LedgerEntry, error) {
	return s.ledger.GetByVault(ctx, vaultAddr.String(), afterSeq, limit)
}

// Activity returns the analytics copies of the vault's settlements with
// timestamps in [from, to] (unix ms).
func (s *Service) Activity(ctx context.Context, vaultAddr domain.Identity, from, to int64) ([]*domain.LedgerEntry, error) {
	if s.events == nil {
		return nil, ErrAnalyticsDisabled
	}
	if from > to {
		return nil, fmt.Errorf("%w: from %d is after to %d", storage.ErrInvalidInput, from, to)
	}
	return s.events.GetByTimeRange(ctx, vaultAddr.String(), from, to)
}

// DustTotals returns per-vault swap remainder totals from the analytics store.
func (s *Service) DustTotals(ctx context.Context) ([]domain.DustTotal, error) {
	if s.events == nil {
		return nil, ErrAnalyticsDisabled
	}
	return s.events.DustTotals(ctx)
}

// PricingDescription describes the active pricing strategy.
func (s *Service) PricingDescription() string {
	return s.engine.Strategy().Describe()
}

// load reads the vault and its binding.
func (s *Service) load(ctx context.Context, vaultAddr domain.Identity) (*domain.Vault, *domain.TokenVaultBinding, error) {
	v, err := s.vaults.GetVault(ctx, vaultAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("load vault %s: %w", vaultAddr, err)
	}
	ba, _, err := solana.FindProgramAddress([][]byte{[]byte(TokenBindingSeed), vaultAddr.Bytes()}, s.programID)
	if err != nil {
		return nil, nil, fmt.Errorf("derive binding address: %w", err)
	}
	b, err := s.vaults.GetBinding(ctx, domain.Identity(ba))
	if err != nil {
		return nil, nil, fmt.Errorf("load binding for vault %s: %w", vaultAddr, err)
	}
	return v, b, nil
}

// persist writes the new balance with compare-and-set against before.
func (s *Service) persist(ctx context.Context, v *domain.Vault, before uint64) error {
	// The transfer already happened; do not let caller cancellation skip the write.
	if err := s.vaults.UpdateBalance(context.WithoutCancel(ctx), v.Address, before, v.NativeBalance); err != nil {
		s.log.WithError(err).WithField("vault", v.Address.String()).Error("persist balance failed")
		return fmt.Errorf("%w: vault %s: %w", ErrPersistFailed, v.Address, err)
	}
	return nil
}

// compensateNative moves amount back after a failed persist.
func (s *Service) compensateNative(ctx context.Context, step string, from, to domain.Identity, amount uint64) error {
	err := s.native.TransferNative(context.WithoutCancel(ctx), from, to, amount)
	observability.RecordCompensation(step, err)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"step":   step,
			"from":   from.String(),
			"to":     to.String(),
			"amount": amount,
		}).Error("compensating transfer failed")
		return fmt.Errorf("%w: %s: %w", ErrCompensationFailed, step, err)
	}
	return nil
}

// record appends the ledger entry and its analytics copy. Failures are
// logged; the settlement is already committed.
func (s *Service) record(ctx context.Context, e *domain.LedgerEntry) *domain.LedgerEntry {
	ctx = context.WithoutCancel(ctx)
	log := s.log.WithFields(logrus.Fields{"vault": e.VaultAddress, "kind": e.Kind.String()})

	e.Timestamp = s.now().UnixMilli()
	last, err := s.ledger.LastSeq(ctx, e.VaultAddress)
	if err != nil {
		observability.RecordLedgerError("ledger")
		log.WithError(err).Warn("read ledger sequence failed, entry not recorded")
		return e
	}
	e.Seq = last + 1
	e.EntryID = idhash.EntryIDFor(e)

	var g errgroup.Group
	g.Go(func() error {
		if err := s.ledger.Append(ctx, e); err != nil {
			observability.RecordLedgerError("ledger")
			log.WithError(err).Warn("append ledger entry failed")
		}
		return nil
	})
	if s.events != nil {
		g.Go(func() error {
			if err := s.events.InsertBulk(ctx, []*domain.LedgerEntry{e}); err != nil {
				observability.RecordLedgerError("analytics")
				log.WithError(err).Warn("append settlement event failed")
			}
			return nil
		})
	}
	_ = g.Wait()

	observability.UpdateLastSettlement(e.Timestamp / 1000)
	log.WithFields(logrus.Fields{
		"seq":           e.Seq,
		"amount_native": e.AmountNative,
		"balance_after": e.BalanceAfter,
	}).Info("settlement committed")
	return e
}

// observe records outcome metrics for one operation.
func (s *Service) observe(kind domain.LedgerKind, start time.Time, errp *error) {
	observability.RecordSettlement(string(kind), Outcome(*errp), time.Since(start).Seconds())
}

// Outcome classifies an operation error into a short metric label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrCompensationFailed), errors.Is(err, swap.ErrCompensationFailed):
		return "compensation_failed"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, domain.ErrInvalidPriceFeed):
		return "invalid_price_feed"
	case errors.Is(err, domain.ErrStalePrice):
		return "stale_price"
	case errors.Is(err, domain.ErrTransferFailed):
		return "transfer_failed"
	case errors.Is(err, storage.ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrPersistFailed):
		return "persist_failed"
	default:
		return "error"
	}
}
