package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"taskmaster/internal/config"
	"taskmaster/internal/db"
	"taskmaster/internal/inbox"
	"taskmaster/internal/logger"
)

type Handlers struct {
	db       *db.DB
	inbox    *inbox.Inbox
	bot      config.BotConfig
	validate *validator.Validate
	log      *logger.Logger
}

func New(database *db.DB, in *inbox.Inbox, bot config.BotConfig, log *logger.Logger) *Handlers {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &Handlers{
		db:       database,
		inbox:    in,
		bot:      bot,
		validate: v,
		log:      log.WithComponent("http"),
	}
}

func (h *Handlers) respond(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func (h *Handlers) error(w http.ResponseWriter, message string, status int) {
	h.respond(w, map[string]string{"error": message}, status)
}

func (h *Handlers) message(w http.ResponseWriter, message string) {
	h.respond(w, map[string]string{"message": message}, http.StatusOK)
}

// fail maps a store error onto a response. notFound is the message used for
// a missing row.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		h.error(w, notFound, http.StatusNotFound)
	case errors.Is(err, db.ErrFolderNotFound):
		h.error(w, "Folder not found", http.StatusNotFound)
	case errors.Is(err, db.ErrInvalidStatus):
		h.error(w, "Invalid status. Must be todo, doing, or done", http.StatusBadRequest)
	case errors.Is(err, db.ErrEmptyIDs):
		h.error(w, "IDs must be a non-empty list", http.StatusBadRequest)
	case errors.Is(err, db.ErrTitleRequired):
		h.error(w, "Title is required", http.StatusBadRequest)
	case errors.Is(err, db.ErrContentRequired):
		h.error(w, "Content is required", http.StatusBadRequest)
	case errors.Is(err, db.ErrNameRequired):
		h.error(w, "Folder name is required", http.StatusBadRequest)
	default:
		requestLogger(r, h.log).WithError(err).Errorw("Request failed", "path", r.URL.Path)
		h.error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// decode reads a JSON body into v and validates it. On failure the response
// has been written and false is returned.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		h.error(w, validationMessage(err), http.StatusBadRequest)
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request body"
	}

	fe := verrs[0]
	field := fe.Field()
	switch {
	case field == "ids" && (fe.Tag() == "required" || fe.Tag() == "min"):
		return "IDs must be a non-empty list"
	case fe.Tag() == "oneof":
		return fmt.Sprintf("Invalid %s. Must be todo, doing, or done", field)
	case fe.Tag() == "required":
		return fmt.Sprintf("%s is required", capitalize(strings.ReplaceAll(field, "_", " ")))
	}
	return fmt.Sprintf("Invalid %s", field)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// pathID parses the {id} wildcard. On failure the response has been written.
func (h *Handlers) pathID(w http.ResponseWriter, r *http.Request, what string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.error(w, fmt.Sprintf("Invalid %s ID", what), http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
