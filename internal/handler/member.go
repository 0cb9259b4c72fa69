package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/gymdash/internal/model"
	"github.com/dukerupert/gymdash/internal/store"
	"github.com/dukerupert/gymdash/internal/subscription"
	ws "github.com/dukerupert/gymdash/internal/websocket"
)

type MemberHandler struct {
	store  *store.MemberStore
	hub    *ws.Hub
	now    func() time.Time
	logger *slog.Logger
}

func NewMemberHandler(s *store.MemberStore, hub *ws.Hub, now func() time.Time, logger *slog.Logger) *MemberHandler {
	return &MemberHandler{store: s, hub: hub, now: now, logger: logger}
}

// statusView is the classifier result as sent to clients.
type statusView struct {
	Status subscription.Status `json:"status"`
	Days   int                 `json:"days"`
	Text   string              `json:"text"`
	Badge  string              `json:"badge"`
}

type memberResponse struct {
	model.Member
	Subscription *statusView `json:"subscription"`
}

func newStatusView(m model.Member, now time.Time) *statusView {
	r, err := subscription.ClassifyMember(m, now)
	if err != nil {
		return nil
	}
	return &statusView{Status: r.Status, Days: r.Days, Text: r.Text, Badge: r.Badge()}
}

func (h *MemberHandler) respond(m model.Member, now time.Time) memberResponse {
	return memberResponse{Member: m, Subscription: newStatusView(m, now)}
}

func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := subscription.ParseFilter(r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "status must be one of all, active, expired")
		return
	}

	members, err := h.store.List()
	if err != nil {
		h.logger.Error("list members", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list members")
		return
	}

	now := h.now()
	members = subscription.FilterMembers(members, r.URL.Query().Get("q"), filter, now)

	resp := make([]memberResponse, 0, len(members))
	for _, m := range members {
		resp = append(resp, h.respond(m, now))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *MemberHandler) Get(w http.ResponseWriter, r *http.Request) {
	m, err := h.store.GetByID(r.PathValue("id"))
	if err != nil {
		h.logger.Error("get member", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get member")
		return
	}
	if m == nil {
		writeError(w, http.StatusNotFound, "member not found")
		return
	}
	writeJSON(w, http.StatusOK, h.respond(*m, h.now()))
}

func (h *MemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in model.MemberInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, decodeError(err))
		return
	}

	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)

	if err := validateMember(in.Member()); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	exists, err := h.store.EmailExists(in.Email, "")
	if err != nil {
		h.logger.Error("check member email", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to check email")
		return
	}
	if exists {
		writeError(w, http.StatusConflict, "a member with that email already exists")
		return
	}

	m, err := h.store.Create(in)
	if err != nil {
		h.logger.Error("create member", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create member")
		return
	}

	h.logger.Info("member created", "id", m.ID)
	h.hub.Broadcast(ws.NewMessage("member", "created", m.ID, nil))
	writeJSON(w, http.StatusCreated, h.respond(*m, h.now()))
}

func (h *MemberHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	existing, err := h.store.GetByID(id)
	if err != nil {
		h.logger.Error("get member", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get member")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "member not found")
		return
	}

	var patch model.MemberPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, decodeError(err))
		return
	}

	patch.FirstName = trimPtr(patch.FirstName)
	patch.LastName = trimPtr(patch.LastName)
	patch.Email = trimPtr(patch.Email)

	candidate := patch.Apply(*existing)
	if err := validateMember(candidate); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !strings.EqualFold(candidate.Email, existing.Email) {
		exists, err := h.store.EmailExists(candidate.Email, id)
		if err != nil {
			h.logger.Error("check member email", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to check email")
			return
		}
		if exists {
			writeError(w, http.StatusConflict, "a member with that email already exists")
			return
		}
	}

	m, err := h.store.Update(candidate)
	if err != nil {
		h.logger.Error("update member", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update member")
		return
	}
	if m == nil {
		writeError(w, http.StatusNotFound, "member not found")
		return
	}

	h.hub.Broadcast(ws.NewMessage("member", "updated", m.ID, nil))
	writeJSON(w, http.StatusOK, h.respond(*m, h.now()))
}

func (h *MemberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	existing, err := h.store.GetByID(id)
	if err != nil {
		h.logger.Error("get member", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get member")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "member not found")
		return
	}

	if err := h.store.Delete(id); err != nil {
		h.logger.Error("delete member", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete member")
		return
	}

	h.logger.Info("member deleted", "id", id)
	h.hub.Broadcast(ws.NewMessage("member", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}
