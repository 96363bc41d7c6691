// Package httpapi serves the ValutX REST API under /api/v1.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/valutx/internal/logging"
	"github.com/dmitrijs2005/valutx/internal/server/api"
	"github.com/dmitrijs2005/valutx/internal/server/models"
	"github.com/dmitrijs2005/valutx/internal/server/requestctx"
	"github.com/dmitrijs2005/valutx/internal/server/services"
)

const prefix = "/api/v1"

type Services struct {
	Auth   *services.AuthService
	Items  *services.ItemService
	Audit  *services.AuditLogService
	Export *services.ExportService
}

type Handler struct {
	auth    *services.AuthService
	items   *services.ItemService
	audits  *services.AuditLogService
	exports *services.ExportService
	logger  logging.Logger
}

// NewHandler returns the full middleware chain around the API routes.
func NewHandler(svc Services, corsOrigins []string, trusted requestctx.TrustedProxies, logger logging.Logger) http.Handler {
	h := &Handler{
		auth:    svc.Auth,
		items:   svc.Items,
		audits:  svc.Audit,
		exports: svc.Export,
		logger:  logger.With("module", "http_api"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.root)

	mux.HandleFunc("POST "+prefix+"/auth/signup", h.signup)
	mux.HandleFunc("POST "+prefix+"/auth/login", h.login)
	mux.HandleFunc("GET "+prefix+"/auth/salt/{email}", h.salt)
	mux.HandleFunc("POST "+prefix+"/auth/rotate-key", h.requireAuth(h.rotateKey))

	mux.HandleFunc("GET "+prefix+"/vault", h.requireAuth(h.listItems))
	mux.HandleFunc("GET "+prefix+"/vault/{$}", h.requireAuth(h.listItems))
	mux.HandleFunc("POST "+prefix+"/vault", h.requireAuth(h.createItem))
	mux.HandleFunc("POST "+prefix+"/vault/{$}", h.requireAuth(h.createItem))
	mux.HandleFunc("POST "+prefix+"/vault/export", h.requireAuth(h.export))
	mux.HandleFunc("GET "+prefix+"/vault/{id}", h.requireAuth(h.getItem))
	mux.HandleFunc("PUT "+prefix+"/vault/{id}", h.requireAuth(h.updateItem))
	mux.HandleFunc("DELETE "+prefix+"/vault/{id}", h.requireAuth(h.deleteItem))

	mux.HandleFunc("GET "+prefix+"/audit", h.requireAuth(h.listAudit))
	mux.HandleFunc("GET "+prefix+"/audit/{$}", h.requireAuth(h.listAudit))

	return recoverer(h.logger, cors(corsOrigins, logRequests(h.logger, withClient(trusted, mux))))
}

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.Message{Message: "ValutX Secure Backend is Running"})
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var req api.SignupRequest
	if !decode(w, r, &req) {
		return
	}
	user, err := h.auth.Signup(r.Context(), services.SignupInput{
		Email:      req.Email,
		AuthKey:    req.AuthHashDerived,
		KDFSalt:    req.KDFSalt,
		WrappedDEK: req.EncryptedDEK,
	})
	if err != nil {
		writeError(w, err, detailUserNotFound)
		return
	}
	writeJSON(w, http.StatusOK, api.FromUser(user))
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	sess, err := h.auth.Login(r.Context(), req.Email, req.AuthHashDerived)
	if err != nil {
		writeError(w, err, detailUserNotFound)
		return
	}
	writeJSON(w, http.StatusOK, api.Token{
		AccessToken: sess.AccessToken,
		TokenType:   "bearer",
		ExpiresAt:   sess.ExpiresAt,
		User:        api.FromUser(sess.User),
	})
}

func (h *Handler) salt(w http.ResponseWriter, r *http.Request) {
	salt, err := h.auth.GetSalt(r.Context(), r.PathValue("email"))
	if err != nil {
		writeError(w, err, detailUserNotFound)
		return
	}
	writeJSON(w, http.StatusOK, api.SaltResponse{KDFSalt: salt})
}

func (h *Handler) rotateKey(w http.ResponseWriter, r *http.Request) {
	var req api.RotateKeyRequest
	if !decode(w, r, &req) {
		return
	}
	user, err := h.auth.RotateKey(r.Context(), requestctx.UserIDFromContext(r.Context()), services.RotateKeyInput{
		AuthKey:    req.NewAuthHashDerived,
		KDFSalt:    req.NewKDFSalt,
		WrappedDEK: req.NewEncryptedDEK,
	})
	if err != nil {
		writeError(w, err, detailUserNotFound)
		return
	}
	writeJSON(w, http.StatusOK, api.FromUser(user))
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	page, ok := pageParams(w, r)
	if !ok {
		return
	}
	list, err := h.items.List(r.Context(), requestctx.UserIDFromContext(r.Context()), page)
	if err != nil {
		writeError(w, err, detailItemNotFound)
		return
	}
	writeJSON(w, http.StatusOK, api.FromItems(list))
}

func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	var req api.ItemCreateRequest
	if !decode(w, r, &req) {
		return
	}
	item, err := h.items.Create(r.Context(), requestctx.UserIDFromContext(r.Context()), services.CreateItemInput{
		Type:       req.Type,
		Ciphertext: req.EncData,
		IV:         req.IV,
		AuthTag:    req.AuthTag,
	})
	if err != nil {
		writeError(w, err, detailItemNotFound)
		return
	}
	writeJSON(w, http.StatusOK, api.FromItem(item))
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.items.Get(r.Context(), requestctx.UserIDFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, err, detailItemNotFound)
		return
	}
	writeJSON(w, http.StatusOK, api.FromItem(item))
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	var req api.ItemUpdateRequest
	if !decode(w, r, &req) {
		return
	}
	item, err := h.items.Update(r.Context(), requestctx.UserIDFromContext(r.Context()), r.PathValue("id"), services.UpdateItemInput{
		Patch:       req.Patch(),
		BaseVersion: req.Version,
	})
	if err != nil {
		writeError(w, err, detailItemNotFound)
		return
	}
	writeJSON(w, http.StatusOK, api.FromItem(item))
}

func (h *Handler) deleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.items.Delete(r.Context(), requestctx.UserIDFromContext(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, err, detailItemNotFound)
		return
	}
	writeJSON(w, http.StatusOK, api.Status{Status: "success"})
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	exp, err := h.exports.Export(r.Context(), requestctx.UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err, detailUserNotFound)
		return
	}
	writeJSON(w, http.StatusOK, api.Export{Key: exp.Key, URL: exp.URL, ExpiresAt: exp.ExpiresAt})
}

func (h *Handler) listAudit(w http.ResponseWriter, r *http.Request) {
	page, ok := pageParams(w, r)
	if !ok {
		return
	}
	events, err := h.audits.List(r.Context(), requestctx.UserIDFromContext(r.Context()), page)
	if err != nil {
		writeError(w, err, detailUserNotFound)
		return
	}
	writeJSON(w, http.StatusOK, api.FromAuditEvents(events))
}

// decode reads a JSON body into v, answering 413 or 422 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDetail(w, http.StatusRequestEntityTooLarge, detailTooLarge)
			return false
		}
		writeDetail(w, http.StatusUnprocessableEntity, detailValidation)
		return false
	}
	return true
}

// pageParams reads skip and limit; zero values leave the service default.
func pageParams(w http.ResponseWriter, r *http.Request) (models.Page, bool) {
	var page models.Page
	for name, dst := range map[string]*int{"skip": &page.Offset, "limit": &page.Limit} {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeDetail(w, http.StatusUnprocessableEntity, detailValidation)
			return page, false
		}
		*dst = n
	}
	return page, true
}
