// Package apiv1 serves the payment, credit and webhook endpoints.
package apiv1

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"cloudshare/internal/domain"
	"cloudshare/internal/domain/model"
	"cloudshare/internal/infra/auth"
	"cloudshare/internal/infra/logging"
	"cloudshare/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

const maxBody = 1 << 20

// WebhookVerifier authenticates an identity-provider delivery.
type WebhookVerifier interface {
	Verify(id, timestamp, signatures string, body []byte) error
}

type Server struct {
	settlement usecase.SettlementUseCase
	ledger     usecase.LedgerUseCase
	profiles   usecase.ProfileUseCase
	webhook    WebhookVerifier
	validate   *validator.Validate
	log        *zerolog.Logger

	// subjects whose default balance exists
	known sync.Map
}

func NewServer(settlement usecase.SettlementUseCase, ledger usecase.LedgerUseCase, profiles usecase.ProfileUseCase, webhook WebhookVerifier, logger *zerolog.Logger) *Server {
	return &Server{
		settlement: settlement,
		ledger:     ledger,
		profiles:   profiles,
		webhook:    webhook,
		validate:   validator.New(),
		log:        logger,
	}
}

// Register mounts the routes on r. Authentication is applied by the caller.
func (s *Server) Register(r chi.Router) {
	r.Post("/webhooks/clerk", s.clerkWebhook)
	r.Group(func(r chi.Router) {
		r.Use(s.ensureBalance)
		r.Route("/payments", func(r chi.Router) {
			r.Post("/create-order", s.createOrder)
			r.Post("/verify-payment", s.verifyPayment)
		})
		r.Get("/users/credits", s.credits)
		r.Get("/transactions", s.transactions)
	})
}

// ensureBalance creates the default balance on an identity's first
// authenticated request. A failure is logged and retried on the next request.
func (s *Server) ensureBalance(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := auth.IdentityFrom(r.Context()); ok && id.Subject != "" {
			if _, seen := s.known.Load(id.Subject); !seen {
				if _, err := s.ledger.GetBalance(r.Context(), id.Subject); err != nil {
					log := logging.With(r.Context(), s.log)
					log.Warn().Err(err).Msg("initialize default balance")
				} else {
					s.known.Store(id.Subject, struct{}{})
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

type errorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

type createOrderRequest struct {
	PlanID   string `json:"planId" validate:"required"`
	Amount   int64  `json:"amount" validate:"required,gt=0"`
	Currency string `json:"currency" validate:"omitempty,len=3,alpha"`
}

type orderResponse struct {
	OrderID string `json:"orderId,omitempty"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type verifyPaymentRequest struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
	PlanID    string `json:"planId" validate:"required"`
}

type paymentResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Credits int    `json:"credits,omitempty"`
}

type creditsResponse struct {
	Credits int    `json:"credits"`
	Plan    string `json:"plan"`
}

type transactionResponse struct {
	OrderID         string    `json:"orderId"`
	PaymentID       string    `json:"paymentId,omitempty"`
	PlanID          string    `json:"planId"`
	Amount          int64     `json:"amount"`
	Currency        string    `json:"currency"`
	CreditsAdded    int       `json:"creditsAdded"`
	Status          string    `json:"status"`
	TransactionDate time.Time `json:"transactionDate"`
	UserEmail       string    `json:"userEmail,omitempty"`
	UserName        string    `json:"userName,omitempty"`
}

type conflictResponse struct {
	Status  int    `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	clerkID, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req createOrderRequest
	if !s.decode(w, r, &req) {
		return
	}
	res := s.settlement.CreateOrder(r.Context(), clerkID, usecase.CreateOrderInput{
		PlanID:   req.PlanID,
		Amount:   req.Amount,
		Currency: strings.ToUpper(req.Currency),
	})
	if !res.Success {
		render.Status(r, http.StatusBadRequest)
	}
	render.JSON(w, r, orderResponse{OrderID: res.OrderID, Success: res.Success, Message: res.Message})
}

func (s *Server) verifyPayment(w http.ResponseWriter, r *http.Request) {
	clerkID, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req verifyPaymentRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.settlement.VerifyPayment(r.Context(), clerkID, usecase.VerifyPaymentInput{
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
		PlanID:    req.PlanID,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	switch {
	case res.Success:
	case res.AlreadySettled:
		render.Status(r, http.StatusConflict)
	default:
		render.Status(r, http.StatusBadRequest)
	}
	render.JSON(w, r, paymentResponse{Success: res.Success, Message: res.Message, Credits: res.Credits})
}

func (s *Server) credits(w http.ResponseWriter, r *http.Request) {
	clerkID, ok := s.caller(w, r)
	if !ok {
		return
	}
	b, err := s.ledger.GetBalance(r.Context(), clerkID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, creditsResponse{Credits: b.Credits, Plan: b.Plan})
}

func (s *Server) transactions(w http.ResponseWriter, r *http.Request) {
	clerkID, ok := s.caller(w, r)
	if !ok {
		return
	}
	orders, err := s.settlement.ListTransactions(r.Context(), clerkID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]transactionResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toTransaction(o))
	}
	render.JSON(w, r, out)
}

func toTransaction(o *model.PaymentOrder) transactionResponse {
	t := transactionResponse{
		OrderID:         o.OrderID,
		PlanID:          o.PlanID,
		Amount:          o.Amount,
		Currency:        o.Currency,
		Status:          string(o.Status),
		TransactionDate: o.TransactionDate,
		UserEmail:       o.UserEmail,
		UserName:        o.UserName,
	}
	if o.PaymentID != nil {
		t.PaymentID = *o.PaymentID
	}
	if o.CreditsAdded != nil {
		t.CreditsAdded = *o.CreditsAdded
	}
	return t
}

func (s *Server) clerkWebhook(w http.ResponseWriter, r *http.Request) {
	log := logging.With(r.Context(), s.log)
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		s.errorJSON(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	err = s.webhook.Verify(r.Header.Get("svix-id"), r.Header.Get("svix-timestamp"), r.Header.Get("svix-signature"), body)
	if err != nil {
		log.Warn().Err(err).Msg("webhook rejected")
		http.Error(w, "Invalid webhook signature", http.StatusUnauthorized)
		return
	}

	var evt usecase.UserEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		s.errorJSON(w, r, http.StatusBadRequest, "invalid webhook payload")
		return
	}
	if _, err := s.profiles.HandleEvent(r.Context(), evt); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, conflictResponse{Status: http.StatusConflict, Error: "Duplicate key", Message: err.Error()})
			return
		}
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// caller returns the authenticated subject. The gate guarantees one on
// protected routes, so a missing identity is a wiring error.
func (s *Server) caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := auth.IdentityFrom(r.Context())
	if !ok || id.Subject == "" {
		s.errorJSON(w, r, http.StatusForbidden, "no authenticated identity")
		return "", false
	}
	return id.Subject, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(dst); err != nil {
		s.errorJSON(w, r, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			s.errorJSON(w, r, http.StatusUnprocessableEntity, validationMessage(verrs))
			return false
		}
		s.errorJSON(w, r, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func validationMessage(errs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		switch e.Tag() {
		case "required":
			msgs = append(msgs, "field "+e.Field()+" is required")
		default:
			msgs = append(msgs, "field "+e.Field()+" is not valid")
		}
	}
	return strings.Join(msgs, ", ")
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrNotFound):
		s.errorJSON(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrLockNotAcquired):
		s.errorJSON(w, r, http.StatusConflict, "settlement in progress, retry later")
	case errors.Is(err, domain.ErrInvalidArgument):
		s.errorJSON(w, r, http.StatusBadRequest, err.Error())
	default:
		log := logging.With(r.Context(), s.log)
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		s.errorJSON(w, r, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) errorJSON(w http.ResponseWriter, r *http.Request, code int, msg string) {
	render.Status(r, code)
	render.JSON(w, r, errorResponse{Status: "Error", Error: msg})
}
