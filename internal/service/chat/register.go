package chat

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/oggyb/amica/internal/app"
	"github.com/oggyb/amica/internal/genai"
	"github.com/oggyb/amica/internal/httperr"
	"github.com/oggyb/amica/internal/telegram"
)

// Registrar ties the chat webhook into the HTTP server.
type Registrar struct {
	appCtx        *app.AppContext
	service       *Service
	queue         *Queue
	webhookSecret string
}

// NewRegistrar creates a Registrar for the chat service. webhookSecret is
// the value registered with the platform at setWebhook time; empty
// disables the check.
func NewRegistrar(appCtx *app.AppContext, service *Service, queue *Queue, webhookSecret string) *Registrar {
	return &Registrar{
		appCtx:        appCtx,
		service:       service,
		queue:         queue,
		webhookSecret: webhookSecret,
	}
}

// Register attaches the chat endpoints to the router.
func (reg *Registrar) Register(r *mux.Router) {
	r.HandleFunc("/telegram/webhook", reg.handleWebhook).Methods(http.MethodPost)
	r.HandleFunc("/test/ai", reg.handleTestAI).Methods(http.MethodGet)
}

// handleWebhook acknowledges the platform immediately and defers the
// actual processing to the worker pool. The platform retries on slow
// responses, so nothing here may wait on the generation backend.
func (reg *Registrar) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if reg.webhookSecret != "" && r.Header.Get(telegram.SecretTokenHeader) != reg.webhookSecret {
		httperr.Forbidden(w, "invalid secret")
		return
	}

	var update telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		httperr.BadRequest(w, "invalid update")
		return
	}

	// Non-message updates and non-private chats are acknowledged and ignored.
	if update.Message != nil && update.Message.IsPrivate() && update.Message.Text != "" {
		reg.queue.Enqueue(Inbound{
			UserID:  update.Message.SenderID(),
			Text:    update.Message.Text,
			Private: true,
		})
	}

	w.WriteHeader(http.StatusOK)
}

// handleTestAI runs one generation with a single-turn history. Manual
// smoke check for the backend wiring; it bypasses the dialogue log.
func (reg *Registrar) handleTestAI(w http.ResponseWriter, r *http.Request) {
	message := r.URL.Query().Get("message")
	if message == "" {
		message = "Привет! Давай познакомимся?"
	}

	systemPrompt := reg.service.prompts.Build(nil, nil)
	reply := reg.service.generator.GenerateReply(r.Context(), systemPrompt, []genai.Message{
		{Role: "user", Content: message},
	})

	httperr.JSON(w, http.StatusOK, map[string]string{"reply": reply})
}
