package checkout

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"checkout/internal/domain"
	"checkout/internal/gateway"
	"checkout/internal/repository/customers_repo"
	"checkout/internal/repository/permissions_repo"
)

// statementDescriptorLimit is the payment-network hard limit on the text
// shown on the cardholder's statement.
const statementDescriptorLimit = 22

const chargeCurrency = "usd"

// ProgressFunc reports pipeline progress as a percentage in [0, 100].
type ProgressFunc func(percent int)

// CheckoutService turns one purchase request into the ordered sequence of
// side effects: identity check, gateway customer, charge, permission grant.
// Every failure is converted into a terminal Outcome with a short user-safe
// feedback string; ProcessPurchase never returns an error to the caller.
type CheckoutService interface {
	ProcessPurchase(ctx context.Context, req domain.PurchaseRequest, progress ProgressFunc) domain.Outcome
}

type checkoutService struct {
	db                domain.Querier
	customersRepo     customers_repo.CustomerRepository
	permissionsRepo   permissions_repo.PermissionRepository
	paymentGateway    gateway.PaymentGateway
	descriptionPrefix string
	descriptorPrefix  string
	remoteCallTimeout time.Duration
	logger            *zap.Logger
}

func NewCheckoutService(
	db domain.Querier,
	customersRepo customers_repo.CustomerRepository,
	permissionsRepo permissions_repo.PermissionRepository,
	paymentGateway gateway.PaymentGateway,
	descriptionPrefix string,
	descriptorPrefix string,
	remoteCallTimeout time.Duration,
	logger *zap.Logger,
) CheckoutService {
	return &checkoutService{
		db:                db,
		customersRepo:     customersRepo,
		permissionsRepo:   permissionsRepo,
		paymentGateway:    paymentGateway,
		descriptionPrefix: descriptionPrefix,
		descriptorPrefix:  descriptorPrefix,
		remoteCallTimeout: remoteCallTimeout,
		logger:            logger,
	}
}

// ProcessPurchase runs the stages strictly in order and short-circuits on
// the first failure. The service is stateless and safe for concurrent use.
func (s *checkoutService) ProcessPurchase(ctx context.Context, req domain.PurchaseRequest, progress ProgressFunc) domain.Outcome {
	if progress == nil {
		progress = func(int) {}
	}

	if err := req.Validate(); err != nil {
		s.logger.Warn("Rejecting malformed purchase request", zap.String("uid", req.UID), zap.Error(err))
		return domain.Failed(domain.FeedbackInvalidRequest)
	}

	if outcome, ok := s.verifyIdentity(ctx, req); !ok {
		return outcome
	}

	customerID, outcome, ok := s.ensureGatewayCustomer(ctx, req)
	if !ok {
		return outcome
	}
	progress(33)

	if outcome, ok := s.chargeCustomer(ctx, req, customerID); !ok {
		return outcome
	}
	progress(66)

	if outcome, ok := s.grantPermission(ctx, req); !ok {
		return outcome
	}
	progress(100)

	s.logger.Info("Purchase processed",
		zap.String("uid", req.UID),
		zap.String("slug", req.Slug),
		zap.Float64("price", float64(req.Price)),
	)
	return domain.Succeeded()
}

// verifyIdentity guards the payment stages against a forged uid/email pair:
// the email on file must match the request exactly, case-sensitive.
func (s *checkoutService) verifyIdentity(ctx context.Context, req domain.PurchaseRequest) (domain.Outcome, bool) {
	callCtx, cancel := s.boundedCtx(ctx)
	defer cancel()

	email, err := s.customersRepo.GetEmailTx(callCtx, s.db, req.UID)
	if err != nil {
		if errors.Is(err, domain.ErrCustomerNotFound) {
			s.logger.Warn("No directory entry for purchase uid", zap.String("uid", req.UID))
		} else {
			// The identity cannot be established; reported the same way as
			// an absent entry so no internal detail leaks.
			s.logger.Error("Directory lookup failed", zap.String("uid", req.UID), zap.Error(err))
		}
		return domain.Failed(domain.FeedbackEmailMismatch), false
	}
	if email != req.Email {
		s.logger.Warn("Purchase email does not match directory", zap.String("uid", req.UID))
		return domain.Failed(domain.FeedbackEmailMismatch), false
	}
	return domain.Outcome{}, true
}

// ensureGatewayCustomer reuses a previously stored gateway customer id when
// one exists, so reprocessing the same uid does not create a duplicate
// customer at the gateway.
func (s *checkoutService) ensureGatewayCustomer(ctx context.Context, req domain.PurchaseRequest) (string, domain.Outcome, bool) {
	lookupCtx, cancelLookup := s.boundedCtx(ctx)
	stored, err := s.customersRepo.GetStripeIDTx(lookupCtx, s.db, req.UID)
	cancelLookup()
	if err == nil && stored != "" {
		s.logger.Info("Reusing stored gateway customer", zap.String("uid", req.UID))
		return stored, domain.Outcome{}, true
	}
	if err != nil {
		s.logger.Warn("Stored gateway customer lookup failed, creating a new one", zap.String("uid", req.UID), zap.Error(err))
	}

	createCtx, cancelCreate := s.boundedCtx(ctx)
	customerID, err := s.paymentGateway.CreateCustomer(createCtx, req.TokenOrCustomer, req.Email, req.UID)
	cancelCreate()
	if err != nil {
		var decline *gateway.DeclineError
		if errors.As(err, &decline) {
			s.logger.Warn("Card declined at customer creation", zap.String("uid", req.UID), zap.String("code", decline.Code))
			return "", domain.Failed(declineFeedback(decline)), false
		}
		s.logger.Error("Gateway customer creation failed", zap.String("uid", req.UID), zap.Error(err))
		return "", domain.Failed(domain.FeedbackCustomerCreation), false
	}

	persistCtx, cancelPersist := s.boundedCtx(ctx)
	defer cancelPersist()
	if err := s.customersRepo.SetStripeIDTx(persistCtx, s.db, req.UID, customerID); err != nil {
		s.logger.Error("Failed to persist gateway customer id", zap.String("uid", req.UID), zap.Error(err))
		return "", domain.Failed(domain.FeedbackDirectoryWrite), false
	}

	return customerID, domain.Outcome{}, true
}

func (s *checkoutService) chargeCustomer(ctx context.Context, req domain.PurchaseRequest, customerID string) (domain.Outcome, bool) {
	callCtx, cancel := s.boundedCtx(ctx)
	defer cancel()

	params := gateway.ChargeParams{
		CustomerID:          customerID,
		AmountUSD:           float64(req.Price),
		Currency:            chargeCurrency,
		Description:         s.descriptionPrefix + req.Title,
		StatementDescriptor: truncateDescriptor(s.descriptorPrefix + req.Slug),
	}

	chargeID, err := s.paymentGateway.CreateCharge(callCtx, params)
	if err != nil {
		var decline *gateway.DeclineError
		if errors.As(err, &decline) {
			s.logger.Warn("Card declined at charge", zap.String("uid", req.UID), zap.String("code", decline.Code))
			return domain.Failed(declineFeedback(decline)), false
		}
		s.logger.Error("Gateway charge failed", zap.String("uid", req.UID), zap.Error(err))
		return domain.Failed(domain.FeedbackCharge), false
	}

	s.logger.Info("Charge succeeded",
		zap.String("uid", req.UID),
		zap.String("charge_id", chargeID),
		zap.Float64("amount_usd", params.AmountUSD),
	)
	return domain.Outcome{}, true
}

func (s *checkoutService) grantPermission(ctx context.Context, req domain.PurchaseRequest) (domain.Outcome, bool) {
	callCtx, cancel := s.boundedCtx(ctx)
	defer cancel()

	if err := s.permissionsRepo.GrantTx(callCtx, s.db, req.UID, req.Slug); err != nil {
		s.logger.Error("Permission write failed", zap.String("uid", req.UID), zap.String("slug", req.Slug), zap.Error(err))
		return domain.Failed(domain.FeedbackPermissionWrite), false
	}
	return domain.Outcome{}, true
}

func (s *checkoutService) boundedCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.remoteCallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.remoteCallTimeout)
}

func declineFeedback(decline *gateway.DeclineError) string {
	if decline.Message == "" {
		return domain.FeedbackCardDeclined
	}
	return decline.Message
}

// truncateDescriptor cuts on rune boundaries so a multi-byte prefix or
// slug never produces invalid UTF-8 on the wire.
func truncateDescriptor(descriptor string) string {
	runes := []rune(descriptor)
	if len(runes) > statementDescriptorLimit {
		return string(runes[:statementDescriptorLimit])
	}
	return descriptor
}
