package profile

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"gorm.io/datatypes"

	"github.com/oggyb/amica/internal/app"
	"github.com/oggyb/amica/internal/db"
	"github.com/oggyb/amica/internal/httperr"
)

// Registrar ties the profile endpoints into the HTTP server.
type Registrar struct {
	appCtx    *app.AppContext
	service   *Service
	authToken string
}

// NewRegistrar creates a Registrar for the profile service. authToken is
// the bearer secret shared with the main bot.
func NewRegistrar(appCtx *app.AppContext, service *Service, authToken string) *Registrar {
	return &Registrar{appCtx: appCtx, service: service, authToken: authToken}
}

// Register attaches the profile endpoints to the router.
func (reg *Registrar) Register(r *mux.Router) {
	r.HandleFunc("/profiles/webhook/profile_upsert", reg.handleUpsert).Methods(http.MethodPost)
	r.HandleFunc("/profiles/by_number/{number}", reg.handleGetByNumber).Methods(http.MethodGet)
	r.HandleFunc("/profiles/{user_id}", reg.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/profiles", reg.handleList).Methods(http.MethodGet)
}

func (reg *Registrar) handleGet(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]
	p, err := reg.service.Get(r.Context(), userID)
	if err != nil {
		httperr.WriteErr(w, err)
		return
	}
	httperr.JSON(w, http.StatusOK, p)
}

func (reg *Registrar) handleGetByNumber(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(mux.Vars(r)["number"])
	if err != nil {
		httperr.BadRequest(w, "number must be an integer")
		return
	}
	p, err := reg.service.FindByNumber(r.Context(), number)
	if err != nil {
		httperr.WriteErr(w, err)
		return
	}
	httperr.JSON(w, http.StatusOK, p)
}

func (reg *Registrar) handleList(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	profiles, err := reg.service.List(r.Context(), limit, offset)
	if err != nil {
		httperr.WriteErr(w, err)
		return
	}
	httperr.JSON(w, http.StatusOK, profiles)
}

type upsertPayload struct {
	UserID        string         `json:"user_id"`
	Username      string         `json:"username"`
	Gender        string         `json:"gender"`
	Bio           string         `json:"bio"`
	Attributes    map[string]any `json:"attributes"`
	ProfileNumber *int           `json:"profile_number"`
}

// handleUpsert stores a profile snapshot from the main bot.
// Authentication happens strictly before any mutation.
func (reg *Registrar) handleUpsert(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r.Header.Get("Authorization"))
	if reg.authToken == "" || token != reg.authToken {
		httperr.Unauthorized(w)
		return
	}

	var payload upsertPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httperr.BadRequest(w, "payload required")
		return
	}
	userID := strings.TrimSpace(payload.UserID)
	if userID == "" {
		httperr.BadRequest(w, "user_id required")
		return
	}

	err := reg.service.Upsert(r.Context(), &db.Profile{
		UserID:        userID,
		Username:      payload.Username,
		Gender:        payload.Gender,
		Bio:           payload.Bio,
		Attributes:    datatypes.JSONMap(payload.Attributes),
		ProfileNumber: payload.ProfileNumber,
	})
	if err != nil {
		reg.appCtx.Logger.Error("profile upsert failed", "user_id", userID, "err", err)
		httperr.WriteErr(w, err)
		return
	}

	httperr.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// bearerToken extracts the token from an Authorization header.
func bearerToken(header string) string {
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
