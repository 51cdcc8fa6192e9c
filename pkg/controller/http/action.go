package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/feedbackloop/actionflow/pkg/domain/model"
	"github.com/feedbackloop/actionflow/pkg/domain/types"
	"github.com/feedbackloop/actionflow/pkg/usecase"
	"github.com/go-chi/chi/v5"
)

type bulkAssignRequest struct {
	IDs []model.ActionID `json:"actionIds"`
	usecase.AssignInput
}

type bulkUpdateRequest struct {
	IDs     []model.ActionID          `json:"actionIds"`
	Changes usecase.UpdateActionInput `json:"changes"`
}

type bulkResponse struct {
	Results []usecase.BulkResult `json:"results"`
}

type generateRequest struct {
	FeedbackIDs []string `json:"feedbackIds"`
}

func createActionHandler(uc *usecase.ActionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorOf(r)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}

		var input usecase.CreateActionInput
		if err := decodeJSON(w, r, &input); err != nil {
			writeError(r.Context(), w, err)
			return
		}

		action, err := uc.CreateAction(r.Context(), actor, &input)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusCreated, action)
	}
}

func listActionsHandler(uc *usecase.ActionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorOf(r)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}

		filter, err := parseActionFilter(r.URL.Query())
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}

		page, err := uc.ListActions(r.Context(), actor, filter)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusOK, page)
	}
}

func analyticsHandler(uc *usecase.ActionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorOf(r)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}

		filter, err := parseActionFilter(r.URL.Query())
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}

		report, err := uc.Analytics(r.Context(), actor, filter)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusOK, report)
	}
}

func getActionHandler(uc *usecase.ActionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorOf(r)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}

		action, err := uc.GetAction(r.Context(), actor, actionID(r))
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusOK, action)
	}
}

func updateActionHandler(uc *usecase.ActionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorOf(r)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}

		var changes usecase.UpdateActionInput
		if err := decodeJSON(w, r, &changes); err != nil {
			writeError(r.Context(), w, err)
			return
		}

		action, err := uc.UpdateAction(r.Context(), actor, actionID(r), &changes)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusOK, action)
	}
}

func deleteActionHandler(uc *usecase.ActionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorOf(r)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}

		if err := uc.DeleteAction(r.Context(), actor, actionID(r)); err != nil {
			writeError(r.Context(), w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func assignActionHandler(uc *usecase.ActionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorOf(r)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}

		var input usecase.AssignInput
		if err := decodeJSON(w, r, &input); err != nil {
			writeError(r.Context(), w, err)
			return
		}

		action, err := uc.AssignAction(r.Context(), actor, actionID(r), &input)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusOK, action)
	}
}

func bulkAssignHandler(uc *usecase.ActionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorOf(r)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}

		var req bulkAssignRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(r.Context(), w, err)
			return
		}

		results, err := uc.BulkAssign(r.Context(), actor, req.IDs, &req.AssignInput)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusOK, bulkResponse{Results: results})
	}
}

func bulkUpdateHandler(uc *usecase.ActionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorOf(r)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}

		var req bulkUpdateRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(r.Context(), w, err)
			return
		}

		results, err := uc.BulkUpdate(r.Context(), actor, req.IDs, &req.Changes)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusOK, bulkResponse{Results: results})
	}
}

func generateActionsHandler(uc *usecase.ActionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorOf(r)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}

		var req generateRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(r.Context(), w, err)
			return
		}

		result, err := uc.GenerateFromFeedback(r.Context(), actor, req.FeedbackIDs)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusOK, result)
	}
}

func actionID(r *http.Request) model.ActionID {
	return model.ActionID(chi.URLParam(r, "actionID"))
}

// parseActionFilter reads the listing query. List parameters accept repeated keys
// and comma separated values.
func parseActionFilter(q url.Values) (*model.ActionFilter, error) {
	ve := &usecase.ValidationError{}
	filter := &model.ActionFilter{
		Category: strings.TrimSpace(q.Get("category")),
		Search:   strings.TrimSpace(q.Get("search")),
		SortBy:   model.ActionSortKey(q.Get("sort")),
	}

	for _, p := range splitList(q["priority"]) {
		filter.Priorities = append(filter.Priorities, types.Priority(p))
	}
	for _, s := range splitList(q["status"]) {
		filter.Statuses = append(filter.Statuses, types.ActionStatus(s))
	}
	if v := q.Get("assignedTo"); v != "" {
		filter.AssignedTo = &v
	}
	if v := q.Get("team"); v != "" {
		filter.Team = &v
	}

	switch order := model.SortOrder(q.Get("order")); order {
	case "", model.OrderAsc, model.OrderDesc:
		filter.Order = order
	default:
		ve.Add("order", "order must be asc or desc")
	}

	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			ve.Add("from", "from must be an RFC 3339 timestamp")
		} else {
			filter.CreatedFrom = &t
		}
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			ve.Add("to", "to must be an RFC 3339 timestamp")
		} else {
			filter.CreatedTo = &t
		}
	}

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			ve.Add("page", "page must be an integer")
		}
		filter.Page = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			ve.Add("limit", "limit must be an integer")
		}
		filter.Limit = n
	}

	if err := ve.OrNil(); err != nil {
		return nil, err
	}
	return filter, nil
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}
