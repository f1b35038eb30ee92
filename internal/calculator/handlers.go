package calculator

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fdg312/sourdough-hub/internal/clientctx"
	"github.com/fdg312/sourdough-hub/internal/recipe"
	"github.com/fdg312/sourdough-hub/internal/recipecard"
	"github.com/fdg312/sourdough-hub/internal/saves"
)

var (
	errSaveNotFound  = errors.New("save not found")
	errRenameRefused = errors.New("rename refused")
)

type Handlers struct {
	saves  *saves.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewHandlers(store *saves.Store, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{saves: store, logger: logger, now: time.Now}
}

// HandleState handles GET /api/calculator/state
func (h *Handlers) HandleState(w http.ResponseWriter, r *http.Request) {
	s := recipe.NewState()
	writeJSON(w, http.StatusOK, StateResponse{State: s, Salt: recipe.DisplaySalt(s)})
}

// HandleApply handles POST /api/calculator/apply
func (h *Handlers) HandleApply(w http.ResponseWriter, r *http.Request) {
	var req ApplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	state := recipe.NewState()
	if req.State != nil {
		state = *req.State
	}

	next, err := recipe.Apply(state, req.Action)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StateResponse{State: next, Salt: recipe.DisplaySalt(next)})
}

// HandleListSaves handles GET /api/calculator/saves
func (h *Handlers) HandleListSaves(w http.ResponseWriter, r *http.Request) {
	res, err := h.saves.ListWithStatus(r.Context(), clientctx.ClientID(r.Context()))
	if err != nil {
		h.handleError(w, err)
		return
	}
	if res.RecoveredFromCorruption {
		h.logger.Warn("saved calculations were corrupted and have been reset",
			zap.String("client_id", clientctx.ClientID(r.Context())))
	}

	resp := ListSavesResponse{
		Saves:                   make([]SaveDTO, 0, len(res.Entries)),
		RecoveredFromCorruption: res.RecoveredFromCorruption,
	}
	for _, e := range res.Entries {
		resp.Saves = append(resp.Saves, toDTO(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleCreateSave handles POST /api/calculator/saves
func (h *Handlers) HandleCreateSave(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if err := recipe.CheckFinite(req.State); err != nil {
		h.handleError(w, err)
		return
	}

	entry, err := h.saves.Save(r.Context(), clientctx.ClientID(r.Context()), req.Name, req.State, saves.SaveOptions{Overwrite: req.Overwrite})
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDTO(entry))
}

// HandleClearSaves handles DELETE /api/calculator/saves
func (h *Handlers) HandleClearSaves(w http.ResponseWriter, r *http.Request) {
	if err := h.saves.Clear(r.Context(), clientctx.ClientID(r.Context())); err != nil {
		h.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetSave handles GET /api/calculator/saves/{id}
func (h *Handlers) HandleGetSave(w http.ResponseWriter, r *http.Request) {
	entry, res, err := h.load(r)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, LoadedSaveResponse{
		SaveDTO: toDTO(entry),
		State:   res.State,
		Salt:    recipe.DisplaySalt(res.State),
		Loaded:  res.OK,
		Reason:  res.Reason,
	})
}

// HandleOverwriteSave handles PUT /api/calculator/saves/{id}
func (h *Handlers) HandleOverwriteSave(w http.ResponseWriter, r *http.Request) {
	var req OverwriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if err := recipe.CheckFinite(req.State); err != nil {
		h.handleError(w, err)
		return
	}

	entry, ok, err := h.saves.Overwrite(r.Context(), clientctx.ClientID(r.Context()), strings.TrimSpace(r.PathValue("id")), req.State)
	if err != nil {
		h.handleError(w, err)
		return
	}
	if !ok {
		h.handleError(w, errSaveNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toDTO(entry))
}

// HandleRenameSave handles PATCH /api/calculator/saves/{id}
func (h *Handlers) HandleRenameSave(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	ctx := r.Context()
	clientID := clientctx.ClientID(ctx)
	id := strings.TrimSpace(r.PathValue("id"))

	ok, err := h.saves.Rename(ctx, clientID, id, req.Name)
	if err != nil {
		h.handleError(w, err)
		return
	}
	if !ok {
		if _, found, err := h.saves.Get(ctx, clientID, id); err == nil && !found {
			h.handleError(w, errSaveNotFound)
			return
		}
		h.handleError(w, errRenameRefused)
		return
	}

	entry, _, err := h.saves.Get(ctx, clientID, id)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDTO(entry))
}

// HandleDeleteSave handles DELETE /api/calculator/saves/{id}
func (h *Handlers) HandleDeleteSave(w http.ResponseWriter, r *http.Request) {
	ok, err := h.saves.Delete(r.Context(), clientctx.ClientID(r.Context()), strings.TrimSpace(r.PathValue("id")))
	if err != nil {
		h.handleError(w, err)
		return
	}
	if !ok {
		h.handleError(w, errSaveNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleActions handles GET /api/calculator/saves/actions?saveName=&renameName=&selectedId=
func (h *Handlers) HandleActions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, saves.ActionAvailability(q.Get("saveName"), q.Get("renameName"), q.Get("selectedId")))
}

// HandleCard handles GET /api/calculator/saves/{id}/card.pdf
func (h *Handlers) HandleCard(w http.ResponseWriter, r *http.Request) {
	entry, res, err := h.load(r)
	if err != nil {
		h.handleError(w, err)
		return
	}

	data, err := recipecard.Render(entry.Name, res.State, h.now())
	if err != nil {
		h.handleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename*=UTF-8''%s.pdf", url.PathEscape(entry.Name)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handlers) load(r *http.Request) (saves.SavedCalculation, recipe.LoadResult, error) {
	entry, found, err := h.saves.Get(r.Context(), clientctx.ClientID(r.Context()), strings.TrimSpace(r.PathValue("id")))
	if err != nil {
		return saves.SavedCalculation{}, recipe.LoadResult{}, err
	}
	if !found {
		return saves.SavedCalculation{}, recipe.LoadResult{}, errSaveNotFound
	}
	return entry, recipe.DecodeSnapshot(entry.Snapshot), nil
}

func (h *Handlers) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, recipe.ErrNonFinite):
		writeError(w, http.StatusUnprocessableEntity, "non_finite", err.Error())
	case errors.Is(err, recipe.ErrUnknownAction), errors.Is(err, recipe.ErrUnknownField):
		writeError(w, http.StatusBadRequest, "invalid_action", err.Error())
	case errors.Is(err, saves.ErrNameRequired):
		writeError(w, http.StatusBadRequest, "name_required", "Name is required")
	case errors.Is(err, errSaveNotFound):
		writeError(w, http.StatusNotFound, "save_not_found", "Saved calculation not found")
	case errors.Is(err, errRenameRefused):
		writeError(w, http.StatusConflict, "rename_refused", "Name is empty or already used by another saved calculation")
	default:
		h.logger.Error("calculator request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

func toDTO(e saves.SavedCalculation) SaveDTO {
	return SaveDTO{ID: e.ID, Name: e.Name, CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{Code: code, Message: message},
	})
}
