package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/menu-planner/internal/model"
	"github.com/sakif/menu-planner/internal/service"
)

// GroupHandler exposes group membership, invites and the active group.
// Every route requires a session.
type GroupHandler struct {
	groups *service.GroupService
	logger *slog.Logger
}

// NewGroupHandler creates a GroupHandler.
func NewGroupHandler(groups *service.GroupService, logger *slog.Logger) *GroupHandler {
	return &GroupHandler{groups: groups, logger: logger}
}

type createGroupRequest struct {
	Name string `json:"name"`
}

type switchGroupRequest struct {
	GroupID string `json:"groupId"`
}

type inviteCodeResponse struct {
	InviteCode string `json:"invite_code"`
}

type joinGroupResponse struct {
	Message string       `json:"message"`
	Group   *model.Group `json:"group"`
}

// HandleCreate creates a group owned by the caller.
//
// HTTP: POST /api/groups
// REQUEST BODY: {"name": "The Smiths"}
func (h *GroupHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req createGroupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	group, err := h.groups.CreateGroup(r.Context(), userID, req.Name)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, group)
}

// HandleList returns the caller's groups with role and member count.
//
// HTTP: GET /api/groups
func (h *GroupHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	groups, err := h.groups.ListGroups(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

// HandleGetActive returns the active group, or JSON null when there is none.
//
// HTTP: GET /api/groups/active
func (h *GroupHandler) HandleGetActive(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	group, err := h.groups.GetActiveGroup(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

// HandleSwitchActive points the caller at another group they belong to.
//
// HTTP: PUT /api/groups/active
// REQUEST BODY: {"groupId": "..."}
func (h *GroupHandler) HandleSwitchActive(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req switchGroupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.groups.SwitchActiveGroup(r.Context(), userID, req.GroupID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, "Active group updated")
}

// HandleListMembers lists a group's members, owners first.
//
// HTTP: GET /api/groups/{id}/members
func (h *GroupHandler) HandleListMembers(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	members, err := h.groups.ListMembers(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

// HandleRegenerateInvite replaces the invite code. Owners only.
//
// HTTP: POST /api/groups/{id}/invite
func (h *GroupHandler) HandleRegenerateInvite(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	code, err := h.groups.RegenerateInviteCode(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, inviteCodeResponse{InviteCode: code})
}

// HandleJoin adds the caller to the group behind an invite code. Joining
// twice is not an error.
//
// HTTP: POST /api/groups/join/{code}
func (h *GroupHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	group, joined, err := h.groups.JoinGroup(r.Context(), userID, chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	msg := "Already a member"
	if joined {
		msg = "Joined group"
	}
	writeJSON(w, http.StatusOK, joinGroupResponse{Message: msg, Group: group})
}

// HandleRemoveMember removes a member. Members may remove themselves;
// owners may remove anyone.
//
// HTTP: DELETE /api/groups/{id}/members/{memberId}
func (h *GroupHandler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUserID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	err = h.groups.RemoveMember(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "memberId"), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, "Member removed")
}
