package http

import (
	"net/http"

	"github.com/feedbackloop/actionflow/pkg/domain/model"
	"github.com/feedbackloop/actionflow/pkg/usecase"
	"github.com/go-chi/chi/v5"
)

type rulesResponse struct {
	Rules []*model.EscalationRule `json:"rules"`
}

func listRulesHandler(uc *usecase.EscalationRuleUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorOf(r)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}

		rules, err := uc.List(r.Context(), actor)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusOK, rulesResponse{Rules: rules})
	}
}

func getRuleHandler(uc *usecase.EscalationRuleUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorOf(r)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}

		rule, err := uc.Get(r.Context(), actor, ruleID(r))
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusOK, rule)
	}
}

func createRuleHandler(uc *usecase.EscalationRuleUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorOf(r)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}

		var input usecase.RuleInput
		if err := decodeJSON(w, r, &input); err != nil {
			writeError(r.Context(), w, err)
			return
		}

		rule, err := uc.Create(r.Context(), actor, &input)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusCreated, rule)
	}
}

func updateRuleHandler(uc *usecase.EscalationRuleUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorOf(r)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}

		var input usecase.RuleInput
		if err := decodeJSON(w, r, &input); err != nil {
			writeError(r.Context(), w, err)
			return
		}

		rule, err := uc.Update(r.Context(), actor, ruleID(r), &input)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusOK, rule)
	}
}

func deleteRuleHandler(uc *usecase.EscalationRuleUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorOf(r)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}

		if err := uc.Delete(r.Context(), actor, ruleID(r)); err != nil {
			writeError(r.Context(), w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func ruleID(r *http.Request) model.EscalationRuleID {
	return model.EscalationRuleID(chi.URLParam(r, "ruleID"))
}
