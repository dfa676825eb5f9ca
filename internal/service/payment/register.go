package payment

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/oggyb/amica/internal/app"
	"github.com/oggyb/amica/internal/httperr"
)

// SignatureHeader carries the provider's HMAC over the raw webhook body.
const SignatureHeader = "X-Signature"

// maxWebhookBody bounds how much of a webhook body is read.
const maxWebhookBody = 64 * 1024

// Registrar ties the payment endpoints into the HTTP server.
type Registrar struct {
	appCtx  *app.AppContext
	service *Service
}

// NewRegistrar creates a Registrar for the payment service.
func NewRegistrar(appCtx *app.AppContext, service *Service) *Registrar {
	return &Registrar{appCtx: appCtx, service: service}
}

// Register attaches the payment endpoints to the router.
func (reg *Registrar) Register(r *mux.Router) {
	r.HandleFunc("/payments/create", reg.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/payments/webhook", reg.handleWebhook).Methods(http.MethodPost)
}

type createPayload struct {
	MatchID uint64 `json:"match_id"`
}

func (reg *Registrar) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload createPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.MatchID == 0 {
		httperr.BadRequest(w, "match_id required")
		return
	}

	url, err := reg.service.CreateInvoice(r.Context(), payload.MatchID)
	if err != nil {
		reg.appCtx.Logger.Error("invoice creation failed", "match_id", payload.MatchID, "err", err)
		httperr.WriteErr(w, err)
		return
	}

	httperr.JSON(w, http.StatusOK, map[string]string{"invoice_url": url})
}

func (reg *Registrar) handleWebhook(w http.ResponseWriter, r *http.Request) {
	rawBody, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		httperr.BadRequest(w, "unreadable body")
		return
	}

	err = reg.service.ConfirmWebhook(r.Context(), rawBody, r.Header.Get(SignatureHeader))
	switch {
	case errors.Is(err, ErrBadSignature):
		httperr.Forbidden(w, "invalid signature")
	case errors.Is(err, ErrInvalidPayload):
		httperr.BadRequest(w, "invalid payload")
	case err != nil:
		reg.appCtx.Logger.Error("payment webhook failed", "err", err)
		httperr.WriteErr(w, err)
	default:
		httperr.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
