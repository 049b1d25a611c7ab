// File: internal/usecase/settlement_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloudshare/internal/domain"
	"cloudshare/internal/domain/model"
	"cloudshare/internal/domain/ports/adapter"
	"cloudshare/internal/domain/ports/repository"
	"cloudshare/internal/infra/logging"
	"cloudshare/internal/infra/metrics"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ SettlementUseCase = (*settlementUC)(nil)

const (
	MsgOrderCreated       = "Order created successfully"
	MsgOrderFailed        = "Error while creating order: "
	MsgSignatureMismatch  = "Payment signature verification failed"
	MsgInvalidPlan        = "Invalid Plan Selected"
	MsgPaymentVerified    = "Payment verified and credits added successfully"
	MsgVerificationFailed = "Error Verifying Payment: "
	MsgAlreadySettled     = "Payment already settled"

	defaultCurrency = "INR"
)

type CreateOrderInput struct {
	PlanID   string
	Amount   int64
	Currency string
}

// OrderResult is a soft result: failures are reported through Success and Message.
type OrderResult struct {
	OrderID string
	Success bool
	Message string
}

type VerifyPaymentInput struct {
	OrderID   string
	PaymentID string
	Signature string
	PlanID    string
}

type PaymentResult struct {
	Success        bool
	AlreadySettled bool
	Message        string
	Credits        int // balance after a successful grant
}

// SignatureVerifier checks the gateway's HMAC over an order and payment id.
type SignatureVerifier interface {
	Verify(orderID, paymentID, signature string) bool
}

type SettlementUseCase interface {
	CreateOrder(ctx context.Context, clerkID string, in CreateOrderInput) OrderResult
	// VerifyPayment settles a PENDING order. Only domain.ErrOrderNotFound,
	// lock failures and a failed ERROR write are returned as errors.
	VerifyPayment(ctx context.Context, clerkID string, in VerifyPaymentInput) (PaymentResult, error)
	ListTransactions(ctx context.Context, clerkID string) ([]*model.PaymentOrder, error)
}

type SettlementOptions struct {
	OrderRateLimit  int // orders per user per window, 0 disables
	OrderRateWindow time.Duration
	LockTTL         time.Duration
}

type settlementUC struct {
	orders   repository.PaymentOrderRepository
	ledger   repository.CreditLedger
	profiles repository.ProfileRepository
	tm       repository.TransactionManager
	gateway  adapter.PaymentGateway
	signer   SignatureVerifier
	locker   adapter.Locker
	limiter  adapter.RateLimiter
	opts     SettlementOptions
	log      *zerolog.Logger
}

func NewSettlementUseCase(
	orders repository.PaymentOrderRepository,
	ledger repository.CreditLedger,
	profiles repository.ProfileRepository,
	tm repository.TransactionManager,
	gateway adapter.PaymentGateway,
	signer SignatureVerifier,
	locker adapter.Locker,
	limiter adapter.RateLimiter,
	opts SettlementOptions,
	logger *zerolog.Logger,
) *settlementUC {
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Second
	}
	if opts.OrderRateWindow <= 0 {
		opts.OrderRateWindow = time.Minute
	}
	return &settlementUC{
		orders:   orders,
		ledger:   ledger,
		profiles: profiles,
		tm:       tm,
		gateway:  gateway,
		signer:   signer,
		locker:   locker,
		limiter:  limiter,
		opts:     opts,
		log:      logger,
	}
}

func (u *settlementUC) CreateOrder(ctx context.Context, clerkID string, in CreateOrderInput) OrderResult {
	defer logging.TraceDuration(u.log, "SettlementUC.CreateOrder")()
	defer metrics.ObserveSettlement("create_order", time.Now())
	log := logging.With(ctx, u.log)

	if in.Currency == "" {
		in.Currency = defaultCurrency
	}
	if in.Amount <= 0 {
		return u.orderFailed(log, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidArgument))
	}

	if u.limiter != nil && u.opts.OrderRateLimit > 0 {
		ok, err := u.limiter.Allow(ctx, adapter.RateLimitKey(clerkID, "create_order"), u.opts.OrderRateLimit, u.opts.OrderRateWindow)
		switch {
		case err != nil:
			// fail open, the gateway is the real gate on order creation
			log.Warn().Err(err).Msg("order rate limiter unavailable")
		case !ok:
			metrics.IncOrderCreated("rate_limited")
			return OrderResult{Success: false, Message: MsgOrderFailed + domain.ErrRateLimited.Error()}
		}
	}

	profile, err := u.profiles.FindByClerkID(ctx, nil, clerkID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.Warn().Err(err).Msg("profile lookup failed, creating order without contact details")
		}
		profile = nil
	}

	receipt := "order_" + ulid.Make().String()
	orderID, err := u.gateway.CreateOrder(ctx, in.Amount, in.Currency, receipt)
	if err != nil {
		return u.orderFailed(log, err)
	}

	order, err := model.NewPendingOrder(orderID, clerkID, in.PlanID, in.Amount, in.Currency, profile)
	if err != nil {
		return u.orderFailed(log, err)
	}
	if err := u.orders.Save(ctx, nil, order); err != nil {
		return u.orderFailed(log, err)
	}

	metrics.IncOrderCreated("ok")
	log.Info().Str("order_id", orderID).Str("plan_id", in.PlanID).Int64("amount", in.Amount).
		Str("gateway", u.gateway.Name()).Msg("payment order created")
	return OrderResult{OrderID: orderID, Success: true, Message: MsgOrderCreated}
}

func (u *settlementUC) orderFailed(log *zerolog.Logger, err error) OrderResult {
	metrics.IncOrderCreated("error")
	log.Error().Err(err).Msg("create order failed")
	return OrderResult{Success: false, Message: MsgOrderFailed + err.Error()}
}

func (u *settlementUC) VerifyPayment(ctx context.Context, clerkID string, in VerifyPaymentInput) (PaymentResult, error) {
	defer logging.TraceDuration(u.log, "SettlementUC.VerifyPayment")()
	defer metrics.ObserveSettlement("verify_payment", time.Now())
	ctx = logging.WithOrderID(ctx, in.OrderID)
	log := logging.With(ctx, u.log)

	lockKey := adapter.OrderLockKey(in.OrderID)
	token, err := u.locker.TryLock(ctx, lockKey, u.opts.LockTTL)
	if err != nil {
		return PaymentResult{}, fmt.Errorf("lock order %s: %w", in.OrderID, err)
	}
	defer func() {
		if err := u.locker.Unlock(context.WithoutCancel(ctx), lockKey, token); err != nil {
			log.Warn().Err(err).Msg("release order lock")
		}
	}()

	order, err := u.orders.FindByOrderID(ctx, nil, in.OrderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			metrics.IncSettlement("not_found")
		}
		return PaymentResult{}, err
	}
	if order.ClerkID != clerkID {
		metrics.IncSettlement("not_found")
		return PaymentResult{}, domain.ErrOrderNotFound
	}
	if order.Status.Terminal() {
		return u.alreadySettled(log), nil
	}

	paymentID := in.PaymentID
	if !u.signer.Verify(in.OrderID, in.PaymentID, in.Signature) {
		log.Warn().Msg("payment signature mismatch")
		return u.reject(ctx, order.OrderID, paymentID, MsgSignatureMismatch)
	}

	grant, ok := model.GrantForPlan(in.PlanID)
	if !ok {
		log.Warn().Str("plan_id", in.PlanID).Msg("unrecognized plan")
		return u.reject(ctx, order.OrderID, paymentID, MsgInvalidPlan)
	}

	var (
		balance *model.CreditBalance
		lost    bool
	)
	err = u.tm.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		credits := grant.Credits
		moved, err := u.orders.TransitionIfPending(ctx, tx, order.OrderID, model.Transition{
			Status:       model.PaymentStatusSuccess,
			PaymentID:    &paymentID,
			CreditsAdded: &credits,
		})
		if err != nil {
			return err
		}
		if !moved {
			lost = true
			return nil
		}
		balance, err = u.ledger.AddCredits(ctx, tx, order.ClerkID, grant.Credits, grant.Plan)
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrLedgerWrite, err)
		}
		return nil
	})
	if err != nil {
		return u.settlementError(ctx, order.OrderID, paymentID, err)
	}
	if lost {
		return u.alreadySettled(log), nil
	}

	metrics.IncSettlement("success")
	metrics.AddCreditsGranted(in.PlanID, grant.Credits)
	log.Info().Str("plan", grant.Plan).Int("credits_added", grant.Credits).Int("balance", balance.Credits).
		Msg("payment settled")
	return PaymentResult{Success: true, Message: MsgPaymentVerified, Credits: balance.Credits}, nil
}

// reject moves the order to FAILED. A lost CAS means another request settled it first.
func (u *settlementUC) reject(ctx context.Context, orderID, paymentID, msg string) (PaymentResult, error) {
	moved, err := u.orders.TransitionIfPending(ctx, nil, orderID, model.Transition{
		Status:    model.PaymentStatusFailed,
		PaymentID: &paymentID,
	})
	if err != nil {
		return PaymentResult{}, fmt.Errorf("mark order %s failed: %w", orderID, err)
	}
	if !moved {
		return u.alreadySettled(logging.With(ctx, u.log)), nil
	}
	metrics.IncSettlement("failed")
	return PaymentResult{Success: false, Message: msg}, nil
}

// settlementError records ERROR after the grant transaction rolled back.
// Failing to record it leaves the order PENDING and is returned to the caller.
func (u *settlementUC) settlementError(ctx context.Context, orderID, paymentID string, cause error) (PaymentResult, error) {
	log := logging.With(ctx, u.log)
	log.Error().Err(cause).Msg("settlement transaction failed")

	moved, err := u.orders.TransitionIfPending(ctx, nil, orderID, model.Transition{
		Status:    model.PaymentStatusError,
		PaymentID: &paymentID,
	})
	if err != nil {
		metrics.IncSettlement("fatal")
		log.Error().Err(err).Msg("recording settlement error failed")
		return PaymentResult{}, fmt.Errorf("record settlement error for order %s: %w (cause: %v)", orderID, err, cause)
	}
	if !moved {
		return u.alreadySettled(log), nil
	}
	metrics.IncSettlement("error")
	return PaymentResult{Success: false, Message: MsgVerificationFailed + cause.Error()}, nil
}

func (u *settlementUC) alreadySettled(log *zerolog.Logger) PaymentResult {
	metrics.IncSettlement("already_settled")
	log.Info().Msg("order already settled")
	return PaymentResult{Success: false, AlreadySettled: true, Message: MsgAlreadySettled}
}

func (u *settlementUC) ListTransactions(ctx context.Context, clerkID string) ([]*model.PaymentOrder, error) {
	return u.orders.ListByClerkAndStatus(ctx, nil, clerkID, model.PaymentStatusSuccess)
}
