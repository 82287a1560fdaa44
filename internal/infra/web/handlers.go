package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/model"
	"subscription-billing/internal/domain/ports/repository"
)

type planCreateRequest struct {
	Name             string `json:"name"`
	PriceMinor       int64  `json:"price_minor"`
	BillingCycleDays int    `json:"billing_cycle_days"`
	Prorate          bool   `json:"prorate"`
}

func (s *Server) handlePlanCreate(w http.ResponseWriter, r *http.Request) {
	var req planCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	plan, err := model.NewSubscriptionPlan(uuid.NewString(), req.Name, req.PriceMinor, req.BillingCycleDays, req.Prorate)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.plans.Save(r.Context(), repository.NoTX, plan); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			http.Error(w, "plan already exists", http.StatusConflict)
			return
		}
		s.log.Error().Err(err).Msg("plan create failed")
		http.Error(w, "failed to create plan", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

func (s *Server) handlePlansList(w http.ResponseWriter, r *http.Request) {
	status := model.PlanStatusActive
	if q := r.URL.Query().Get("status"); q != "" {
		status = model.PlanStatus(q)
	}
	plans, err := s.plans.ListByStatus(r.Context(), repository.NoTX, status)
	if err != nil {
		s.log.Error().Err(err).Msg("plan list failed")
		http.Error(w, "failed to list plans", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

func (s *Server) handlePlanArchive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	plan, err := s.plans.FindByID(r.Context(), repository.NoTX, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "plan not found", http.StatusNotFound)
			return
		}
		s.log.Error().Err(err).Str("plan_id", id).Msg("plan lookup failed")
		http.Error(w, "failed to archive plan", http.StatusInternalServerError)
		return
	}
	plan.Archive()
	if err := s.plans.Save(r.Context(), repository.NoTX, plan); err != nil {
		s.log.Error().Err(err).Str("plan_id", id).Msg("plan archive failed")
		http.Error(w, "failed to archive plan", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleSubscriptionGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sub, err := s.subs.FindByID(r.Context(), repository.NoTX, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "subscription not found", http.StatusNotFound)
			return
		}
		s.log.Error().Err(err).Str("subscription_id", id).Msg("subscription lookup failed")
		http.Error(w, "failed to load subscription", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

type planChangeRequest struct {
	PlanID string `json:"plan_id"`
}

// handlePlanChange is the synchronous plan-change path: proration is applied
// inside the use case transaction and the updated subscription comes back in
// the response.
func (s *Server) handlePlanChange(w http.ResponseWriter, r *http.Request) {
	subID := chi.URLParam(r, "id")

	var req planChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlanID == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sub, err := s.planChange.ChangePlan(r.Context(), subID, req.PlanID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			http.Error(w, "not found", http.StatusNotFound)
		case errors.Is(err, domain.ErrInvalidArgument):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			s.log.Error().Err(err).Str("subscription_id", subID).Msg("plan change failed")
			http.Error(w, "plan change failed", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, sub)
}
