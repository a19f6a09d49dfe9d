package main

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/FloCheru/crm-ABC-cours-sub003/internal/store"
	"github.com/FloCheru/crm-ABC-cours-sub003/internal/wizard"
)

func (s *server) handleSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := s.store.ListSubjects(r.Context())
	if err != nil {
		s.logger.Error("failed to list subjects", zap.String("request_id", requestID(r)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, wizard.GenericFailureMessage)
		return
	}
	if subjects == nil {
		subjects = []wizard.Subject{}
	}
	writeJSON(w, http.StatusOK, subjects)
}

func (s *server) handleSettlementsList(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListSettlements(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.logger.Error("failed to list settlements", zap.String("request_id", requestID(r)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, wizard.GenericFailureMessage)
		return
	}
	if items == nil {
		items = []store.SettlementSummary{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *server) handleSettlementDetail(w http.ResponseWriter, r *http.Request) {
	settlement, err := s.store.GetSettlement(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "settlement not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to load settlement", zap.String("request_id", requestID(r)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, wizard.GenericFailureMessage)
		return
	}
	writeJSON(w, http.StatusOK, settlement)
}
