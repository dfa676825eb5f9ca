package match

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/oggyb/amica/internal/app"
	"github.com/oggyb/amica/internal/httperr"
)

// Registrar ties the sympathy webhook into the HTTP server.
type Registrar struct {
	appCtx    *app.AppContext
	service   *Service
	authToken string
}

// NewRegistrar creates a Registrar for the match service. authToken is the
// bearer secret shared with the main bot.
func NewRegistrar(appCtx *app.AppContext, service *Service, authToken string) *Registrar {
	return &Registrar{appCtx: appCtx, service: service, authToken: authToken}
}

// Register attaches the sympathy webhook to the router.
func (reg *Registrar) Register(r *mux.Router) {
	r.HandleFunc("/webhook/sympathy", reg.handleSympathy).Methods(http.MethodPost)
}

type sympathyPayload struct {
	MaleID         string `json:"male_id"`
	FemaleID       string `json:"female_id"`
	Mutual         bool   `json:"mutual"`
	MaleUsername   string `json:"male_username"`
	FemaleUsername string `json:"female_username"`
}

// handleSympathy records a match notification from the main bot.
// Authentication happens strictly before any mutation.
func (reg *Registrar) handleSympathy(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r.Header.Get("Authorization"))
	if reg.authToken == "" || token != reg.authToken {
		httperr.Unauthorized(w)
		return
	}

	var payload sympathyPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httperr.BadRequest(w, "payload required")
		return
	}

	maleID := strings.TrimSpace(payload.MaleID)
	femaleID := strings.TrimSpace(payload.FemaleID)
	if maleID == "" || femaleID == "" {
		httperr.BadRequest(w, "male_id and female_id required")
		return
	}

	matchID, err := reg.service.CreateMatch(r.Context(), CreateMatchInput{
		MaleID:         maleID,
		FemaleID:       femaleID,
		Mutual:         payload.Mutual,
		MaleUsername:   payload.MaleUsername,
		FemaleUsername: payload.FemaleUsername,
	})
	if err != nil {
		reg.appCtx.Logger.Error("sympathy webhook failed", "err", err)
		httperr.WriteErr(w, err)
		return
	}

	httperr.JSON(w, http.StatusOK, map[string]string{
		"status":   "received",
		"match_id": strconv.FormatUint(matchID, 10),
	})
}

// bearerToken extracts the token from an Authorization header.
func bearerToken(header string) string {
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
