// File: internal/usecase/payment_uc.go
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"masterclass-reconciler/internal/domain"
	"masterclass-reconciler/internal/domain/model"
	"masterclass-reconciler/internal/domain/ports/adapter"
	"masterclass-reconciler/internal/domain/ports/repository"
	"masterclass-reconciler/internal/infra/logging"
	"masterclass-reconciler/internal/infra/metrics"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

const (
	defaultFailureReason = "Payment cancelled or failed"
	invalidSignatureText = "invalid signature"
	startingSoonLead     = 2 * time.Hour
	verifyRateWindow     = time.Minute
)

type VerifyMode string

const (
	VerifyModeGateway VerifyMode = "gateway"
	VerifyModeTest    VerifyMode = "test"
)

// VerifyInput is a payment confirmation as received from the browser.
// Operator is set by the transport layer after checking an operator token;
// it is never taken from the request body.
type VerifyInput struct {
	OrderID       string
	PaymentID     string
	Signature     string
	ResourceID    string
	SubResourceID string
	UserID        string
	Amount        decimal.Decimal
	Mode          VerifyMode
	Email         string
	Name          string
	Operator      bool
}

type VerifyResult struct {
	OrderID        string              `json:"order_id"`
	PaymentID      string              `json:"payment_id"`
	ResourceID     string              `json:"resource_id"`
	SubResourceID  string              `json:"sub_resource_id,omitempty"`
	Method         model.PaymentMethod `json:"method"`
	AlreadyGranted bool                `json:"already_granted"`
}

type PaymentOptions struct {
	Currency        string
	TestModeEnabled bool
	VerifyRateLimit int // per user per minute, 0 disables
}

type PaymentUseCase interface {
	// Reconcile verifies a confirmation, grants access and settles the ledger entry.
	Reconcile(ctx context.Context, in VerifyInput) (*VerifyResult, error)
	// MarkFailed records a cancelled or failed payment. It never downgrades a success.
	MarkFailed(ctx context.Context, userID, orderID, reason, code string) error
}

type paymentUC struct {
	ledger    LedgerUseCase
	access    AccessUseCase
	resources repository.ResourceRepository
	notify    NotificationUseCase
	verifier  adapter.SignatureVerifier
	limiter   adapter.RateLimiter
	opts      PaymentOptions
	log       *zerolog.Logger
}

func NewPaymentUseCase(
	ledger LedgerUseCase,
	access AccessUseCase,
	resources repository.ResourceRepository,
	notify NotificationUseCase,
	verifier adapter.SignatureVerifier,
	limiter adapter.RateLimiter,
	opts PaymentOptions,
	logger *zerolog.Logger,
) *paymentUC {
	l := logger.With().Str("component", "PaymentUC").Logger()
	return &paymentUC{
		ledger:    ledger,
		access:    access,
		resources: resources,
		notify:    notify,
		verifier:  verifier,
		limiter:   limiter,
		opts:      opts,
		log:       &l,
	}
}

func (u *paymentUC) Reconcile(ctx context.Context, in VerifyInput) (*VerifyResult, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.Reconcile")()
	ctx = logging.WithOrderID(logging.WithUserID(ctx, in.UserID), in.OrderID)
	log := logging.With(ctx, u.log)

	// 1. shape
	if in.Mode == "" {
		in.Mode = VerifyModeGateway
	}
	if err := validateVerify(in); err != nil {
		return nil, err
	}
	if err := u.allow(ctx, in.UserID); err != nil {
		return nil, err
	}

	// 2. authenticity
	method, err := u.authenticate(ctx, in)
	if err != nil {
		if isInvalidSignature(err) {
			u.markInvalidSignature(ctx, in)
			log.Warn().Str("payment_id", in.PaymentID).Msg("signature mismatch")
		}
		return nil, err
	}

	// 3. resource and item
	res, err := u.resources.Get(ctx, in.ResourceID)
	if err != nil {
		return nil, persistErr(err)
	}
	var item *model.Item
	if in.SubResourceID != "" {
		it, ok := res.Item(in.SubResourceID)
		if !ok {
			return nil, fmt.Errorf("%w: item %s is not part of resource %s", domain.ErrNotFound, in.SubResourceID, in.ResourceID)
		}
		item = it
	}
	if method == model.PaymentMethodFree && in.Mode == VerifyModeGateway {
		price, _ := res.PriceFor(in.SubResourceID)
		if !price.IsZero() {
			return nil, fmt.Errorf("%w: zero amount for a priced resource", domain.ErrInvalidArgument)
		}
	}

	// 4. the order must pay for what is granted
	target := OrderTarget{ResourceID: res.ID, SubResourceID: in.SubResourceID}
	if err := u.checkTarget(ctx, in, target); err != nil {
		log.Warn().Err(err).Str("resource_id", res.ID).Msg("order does not match the confirmed resource")
		return nil, err
	}

	// 5. idempotent grant
	already := res.HasAccess(in.UserID)
	if item != nil {
		already = res.HasItem(in.UserID, item.ID)
	}
	if !already {
		var granted bool
		if item != nil {
			granted, err = u.access.GrantItem(ctx, res.ID, item.ID, in.UserID)
		} else {
			granted, err = u.access.Grant(ctx, res.ID, in.UserID)
		}
		if err != nil {
			return nil, err
		}
		already = !granted
	}
	if already {
		log.Info().Str("resource_id", res.ID).Msg("access already granted; skipping grant")
	}

	// 6. settle ledger
	tx, settled, err := u.settle(ctx, in, res, item, method, target)
	if err != nil {
		metrics.IncGrantedButPending()
		log.Error().Err(err).Str("resource_id", res.ID).Msg("access granted but ledger not settled")
		return nil, err
	}
	if settled {
		metrics.IncPayment(string(model.TransactionStatusSuccess), string(tx.Method))
		if tx.Method == model.PaymentMethodGateway {
			metrics.AddPaymentRevenue(u.opts.Currency, tx.Amount)
		}
	}

	if in.Email != "" || in.Name != "" {
		if err := u.ledger.SetContact(ctx, in.UserID, model.Contact{Email: in.Email, Name: in.Name}); err != nil {
			log.Warn().Err(err).Msg("contact not stored")
		}
	}

	// 7. notifications follow the ledger transition, so a retry after a
	// failed settle still confirms
	if settled {
		u.notify.NotifyEnrollment(ctx, enrollmentNotice(in, res, item, tx, u.opts.Currency))
	}

	// 8.
	log.Info().Str("method", string(tx.Method)).Bool("already_granted", already).Msg("payment reconciled")
	return &VerifyResult{
		OrderID:        in.OrderID,
		PaymentID:      tx.PaymentID,
		ResourceID:     res.ID,
		SubResourceID:  in.SubResourceID,
		Method:         tx.Method,
		AlreadyGranted: already,
	}, nil
}

func validateVerify(in VerifyInput) error {
	switch {
	case in.UserID == "" || in.OrderID == "" || in.ResourceID == "":
		return fmt.Errorf("%w: user_id, order_id and resource_id are required", domain.ErrInvalidArgument)
	case in.Amount.IsNegative():
		return fmt.Errorf("%w: amount must not be negative", domain.ErrInvalidArgument)
	case in.Mode != VerifyModeGateway && in.Mode != VerifyModeTest:
		return fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidArgument, in.Mode)
	case in.Mode == VerifyModeGateway && in.Amount.IsPositive() && (in.PaymentID == "" || in.Signature == ""):
		return fmt.Errorf("%w: payment_id and signature are required", domain.ErrInvalidArgument)
	}
	return nil
}

func (u *paymentUC) allow(ctx context.Context, userID string) error {
	if u.limiter == nil || u.opts.VerifyRateLimit <= 0 {
		return nil
	}
	ok, err := u.limiter.Allow(ctx, fmt.Sprintf("rate_limit:%s:verify", userID), u.opts.VerifyRateLimit, verifyRateWindow)
	if err != nil {
		// fail open; the limiter only blunts replay floods
		logging.With(ctx, u.log).Warn().Err(err).Msg("rate limiter unavailable")
		return nil
	}
	if !ok {
		metrics.IncRateLimited("verify")
		return domain.ErrRateLimited
	}
	return nil
}

// authenticate decides the payment method, or why the confirmation is refused.
func (u *paymentUC) authenticate(ctx context.Context, in VerifyInput) (model.PaymentMethod, error) {
	if in.Mode == VerifyModeTest {
		if !u.opts.TestModeEnabled {
			return "", domain.ErrTestModeDisabled
		}
		if !in.Operator {
			return "", fmt.Errorf("%w: test mode requires an operator token", domain.ErrUnauthorized)
		}
		logging.With(ctx, u.log).Warn().Msg("test-mode confirmation accepted")
		if in.Amount.IsZero() {
			return model.PaymentMethodFree, nil
		}
		return model.PaymentMethodTestMode, nil
	}
	if in.Amount.IsZero() {
		return model.PaymentMethodFree, nil
	}
	if !u.verifier.Verify(in.OrderID, in.PaymentID, in.Signature) {
		return "", domain.ErrInvalidSignature
	}
	return model.PaymentMethodGateway, nil
}

func (u *paymentUC) markInvalidSignature(ctx context.Context, in VerifyInput) {
	reason := invalidSignatureText
	_, err := u.ledger.UpdateStatus(ctx, in.UserID, in.OrderID, model.TransactionStatusFailed, TransactionPatch{
		PaymentID:     &in.PaymentID,
		FailureReason: &reason,
		UnlessStatus:  model.TransactionStatusSuccess,
	})
	switch {
	case err == nil:
		metrics.IncPayment(string(model.TransactionStatusFailed), string(model.PaymentMethodGateway))
	case isNotFound(err), isConflict(err):
		logging.With(ctx, u.log).Debug().Err(err).Msg("invalid signature not recorded")
	default:
		logging.With(ctx, u.log).Error().Err(err).Msg("failed to record invalid signature")
	}
}

// checkTarget refuses an order that was created for another resource or item.
// Orders not yet in the ledger pass.
func (u *paymentUC) checkTarget(ctx context.Context, in VerifyInput, target OrderTarget) error {
	l, err := u.ledger.Get(ctx, in.UserID)
	if isNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	tx, ok := l.Get(in.OrderID)
	if !ok || target.Matches(*tx) {
		return nil
	}
	return fmt.Errorf("%w: order %s was created for %s", domain.ErrConflict, in.OrderID, tx.ResourceID)
}

// settle moves the entry to success, or records it as success when order
// creation never wrote one. settled is true only for the call that made the
// transition. The stored amount of an existing order is kept.
func (u *paymentUC) settle(ctx context.Context, in VerifyInput, res *model.Resource, item *model.Item, method model.PaymentMethod, target OrderTarget) (*model.Transaction, bool, error) {
	patch := TransactionPatch{
		ResourceTitle: &res.Title,
		Method:        &method,
		UnlessStatus:  model.TransactionStatusSuccess,
		Target:        &target,
	}
	if in.PaymentID != "" {
		patch.PaymentID = &in.PaymentID
	}
	if item != nil {
		patch.SubResourceTitle = &item.Title
	}

	for attempt := 0; attempt < 2; attempt++ {
		tx, err := u.ledger.UpdateStatus(ctx, in.UserID, in.OrderID, model.TransactionStatusSuccess, patch)
		switch {
		case err == nil:
			return tx, true, nil
		case isConflict(err):
			return u.settledEntry(ctx, in, target, err)
		case !isNotFound(err):
			return nil, false, err
		}

		fresh := model.Transaction{
			OrderID:       in.OrderID,
			PaymentID:     in.PaymentID,
			ResourceID:    res.ID,
			ResourceTitle: res.Title,
			Kind:          transactionKind(res, item),
			Amount:        in.Amount,
			Currency:      u.opts.Currency,
			Status:        model.TransactionStatusSuccess,
			Method:        method,
		}
		if item != nil {
			fresh.SubResourceID = item.ID
			fresh.SubResourceTitle = item.Title
		}
		recorded, err := u.ledger.Record(ctx, in.UserID, fresh)
		if err != nil {
			return nil, false, err
		}
		if recorded {
			return &fresh, true, nil
		}
		// an order appeared between the two calls; merge into it
	}
	return nil, false, fmt.Errorf("%w: ledger entry for %s kept changing", domain.ErrOperationFailed, in.OrderID)
}

// settledEntry returns the entry an earlier call already settled, or
// conflict when the entry is for something else.
func (u *paymentUC) settledEntry(ctx context.Context, in VerifyInput, target OrderTarget, conflict error) (*model.Transaction, bool, error) {
	l, err := u.ledger.Get(ctx, in.UserID)
	if err != nil {
		return nil, false, err
	}
	tx, ok := l.Get(in.OrderID)
	if ok && tx.Status == model.TransactionStatusSuccess && target.Matches(*tx) {
		return tx, false, nil
	}
	return nil, false, conflict
}

func transactionKind(res *model.Resource, item *model.Item) model.TransactionKind {
	switch {
	case item != nil:
		return model.TransactionKindItemPurchase
	case res.Type == model.ResourceTypeUpcoming:
		return model.TransactionKindRegistration
	default:
		return model.TransactionKindPurchase
	}
}

func enrollmentNotice(in VerifyInput, res *model.Resource, item *model.Item, tx *model.Transaction, currency string) EnrollmentNotice {
	n := EnrollmentNotice{
		UserID:        in.UserID,
		OrderID:       in.OrderID,
		ResourceID:    res.ID,
		ResourceTitle: res.Title,
		ResourceType:  res.Type,
		Amount:        tx.Amount,
		Currency:      currency,
	}
	if item != nil {
		n.ItemTitle = item.Title
	}
	if res.Scheduled() {
		n.StartsAt = res.Schedule.StartsAt
		n.StartingSoon = model.StartingSoon(res.Schedule.StartsAt, time.Now(), startingSoonLead)
	}
	return n
}

func (u *paymentUC) MarkFailed(ctx context.Context, userID, orderID, reason, code string) error {
	defer logging.TraceDuration(u.log, "PaymentUC.MarkFailed")()
	if userID == "" || orderID == "" {
		return fmt.Errorf("%w: user_id and order_id are required", domain.ErrInvalidArgument)
	}
	ctx = logging.WithOrderID(logging.WithUserID(ctx, userID), orderID)
	log := logging.With(ctx, u.log)
	if reason == "" {
		reason = defaultFailureReason
	}
	patch := TransactionPatch{FailureReason: &reason, UnlessStatus: model.TransactionStatusSuccess}
	if code != "" {
		patch.ErrorCode = &code
	}

	tx, err := u.ledger.UpdateStatus(ctx, userID, orderID, model.TransactionStatusFailed, patch)
	switch {
	case err == nil:
		metrics.PaymentMarkFailedTotal.WithLabelValues("failed").Inc()
		metrics.IncPayment(string(model.TransactionStatusFailed), string(tx.Method))
		log.Info().Str("reason", reason).Msg("payment marked failed")
		return nil
	case isConflict(err):
		metrics.PaymentMarkFailedTotal.WithLabelValues("kept_success").Inc()
		log.Warn().Msg("mark-failed ignored for a successful payment")
		return nil
	case isNotFound(err):
		metrics.PaymentMarkFailedTotal.WithLabelValues("not_found").Inc()
		log.Info().Msg("mark-failed for unknown order ignored")
		return nil
	default:
		metrics.PaymentMarkFailedTotal.WithLabelValues("error").Inc()
		return err
	}
}
