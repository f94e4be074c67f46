// ABOUTME: JSON API over the host record store
// ABOUTME: Contacts, groups, labels and message history, mounted only when a database is configured

package bridge

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/2389/junebug-bridge/internal/backend"
	"github.com/2389/junebug-bridge/internal/store"
)

type contactDetail struct {
	*backend.Contact
	Groups []*backend.Group `json:"groups"`
}

type messageDetail struct {
	*backend.Message
	Labels []*backend.Label `json:"labels"`
}

type namedRecord struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

// recordRoutes mounts the record store API on r.
func (b *Bridge) recordRoutes(r chi.Router) {
	r.Get("/contacts", b.handleListContacts)
	r.Get("/contacts/{uuid}", b.handleGetContact)
	r.Put("/contacts/{uuid}", b.handlePutContact)
	r.Get("/contacts/{uuid}/messages", b.handleContactMessages)

	r.Post("/groups", b.handleCreateGroup)
	r.Put("/groups/{uuid}/members/{contact}", b.handleAddToGroup)

	r.Post("/labels", b.handleCreateLabel)

	r.Get("/messages/{id}", b.handleGetMessage)
	r.Put("/messages/{id}/labels/{label}", b.handleLabelMessage)
}

func (b *Bridge) handleListContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := b.store.ListContacts(r.Context())
	if err != nil {
		b.writeStoreError(w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, contacts)
}

func (b *Bridge) handleGetContact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	contact, err := b.store.GetContact(ctx, chi.URLParam(r, "uuid"))
	if err != nil {
		b.writeStoreError(w, err)
		return
	}
	groups, err := b.store.ListContactGroups(ctx, contact.UUID)
	if err != nil {
		b.writeStoreError(w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, contactDetail{Contact: contact, Groups: groups})
}

func (b *Bridge) handlePutContact(w http.ResponseWriter, r *http.Request) {
	var body namedRecord
	if !decodeBody(w, r, &body) {
		return
	}
	contact := &backend.Contact{UUID: chi.URLParam(r, "uuid"), Name: body.Name}
	if err := b.store.UpsertContact(r.Context(), contact); err != nil {
		b.writeStoreError(w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, contact)
}

func (b *Bridge) handleContactMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeAPIError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	contact, err := b.store.GetContact(ctx, chi.URLParam(r, "uuid"))
	if err != nil {
		b.writeStoreError(w, err)
		return
	}
	msgs, err := b.store.ListContactMessages(ctx, contact.UUID, limit)
	if err != nil {
		b.writeStoreError(w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, msgs)
}

func (b *Bridge) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var body namedRecord
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Name == "" {
		writeAPIError(w, http.StatusBadRequest, "name is required")
		return
	}
	if body.UUID == "" {
		body.UUID = uuid.NewString()
	}
	group := &backend.Group{UUID: body.UUID, Name: body.Name}
	if err := b.store.CreateGroup(r.Context(), group); err != nil {
		b.writeStoreError(w, err)
		return
	}
	writeAPIJSON(w, http.StatusCreated, group)
}

func (b *Bridge) handleAddToGroup(w http.ResponseWriter, r *http.Request) {
	err := b.store.AddToGroup(r.Context(), chi.URLParam(r, "contact"), chi.URLParam(r, "uuid"))
	if err != nil {
		b.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (b *Bridge) handleCreateLabel(w http.ResponseWriter, r *http.Request) {
	var body namedRecord
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Name == "" {
		writeAPIError(w, http.StatusBadRequest, "name is required")
		return
	}
	if body.UUID == "" {
		body.UUID = uuid.NewString()
	}
	label := &backend.Label{UUID: body.UUID, Name: body.Name}
	if err := b.store.CreateLabel(r.Context(), label); err != nil {
		b.writeStoreError(w, err)
		return
	}
	writeAPIJSON(w, http.StatusCreated, label)
}

func (b *Bridge) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := messageID(w, r)
	if !ok {
		return
	}
	msg, err := b.store.GetMessage(ctx, id)
	if err != nil {
		b.writeStoreError(w, err)
		return
	}
	labels, err := b.store.ListMessageLabels(ctx, id)
	if err != nil {
		b.writeStoreError(w, err)
		return
	}
	writeAPIJSON(w, http.StatusOK, messageDetail{Message: msg, Labels: labels})
}

func (b *Bridge) handleLabelMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := messageID(w, r)
	if !ok {
		return
	}
	if err := b.store.LabelMessage(r.Context(), id, chi.URLParam(r, "label")); err != nil {
		b.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func messageID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "message id must be an integer")
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAPIBody)).Decode(v); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

// writeStoreError maps store sentinels to statuses and hides everything else.
func (b *Bridge) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeAPIError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrDuplicate):
		writeAPIError(w, http.StatusConflict, err.Error())
	default:
		b.logger.Error("record store request failed", "error", err)
		writeAPIError(w, http.StatusInternalServerError, "internal error")
	}
}
