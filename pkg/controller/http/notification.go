package http

import (
	"net/http"
	"strconv"

	"github.com/feedbackloop/actionflow/pkg/domain/model"
	"github.com/feedbackloop/actionflow/pkg/domain/types"
	"github.com/feedbackloop/actionflow/pkg/usecase"
	"github.com/go-chi/chi/v5"
)

type notificationsResponse struct {
	Notifications []*model.Notification `json:"notifications"`
}

type unreadCountResponse struct {
	Count int `json:"count"`
}

func listNotificationsHandler(uc *usecase.NotificationUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorOf(r)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}

		q := r.URL.Query()
		var statuses []types.NotificationStatus
		for _, s := range splitList(q["status"]) {
			statuses = append(statuses, types.NotificationStatus(s))
		}

		limit := 0
		if v := q.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeError(r.Context(), w, invalid("limit", "limit must be an integer"))
				return
			}
			limit = n
		}

		list, err := uc.List(r.Context(), actor, statuses, limit)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusOK, notificationsResponse{Notifications: list})
	}
}

func unreadCountHandler(uc *usecase.NotificationUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorOf(r)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}

		n, err := uc.CountUnread(r.Context(), actor)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusOK, unreadCountResponse{Count: n})
	}
}

func markReadHandler(uc *usecase.NotificationUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorOf(r)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}

		n, err := uc.MarkRead(r.Context(), actor, notificationID(r))
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusOK, n)
	}
}

func archiveHandler(uc *usecase.NotificationUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorOf(r)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}

		n, err := uc.Archive(r.Context(), actor, notificationID(r))
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusOK, n)
	}
}

func notificationID(r *http.Request) model.NotificationID {
	return model.NotificationID(chi.URLParam(r, "notificationID"))
}
