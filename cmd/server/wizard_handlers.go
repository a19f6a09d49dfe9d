package main

import (
	"errors"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/FloCheru/crm-ABC-cours-sub003/internal/installments"
	"github.com/FloCheru/crm-ABC-cours-sub003/internal/prefill"
	"github.com/FloCheru/crm-ABC-cours-sub003/internal/pricing"
	"github.com/FloCheru/crm-ABC-cours-sub003/internal/store"
	"github.com/FloCheru/crm-ABC-cours-sub003/internal/wizard"
)

const startDateLayout = "2006-01-02"

type wizardResponse struct {
	ID     string                  `json:"id"`
	State  wizard.State            `json:"state"`
	Errors wizard.ValidationErrors `json:"errors"`
}

type createWizardRequest struct {
	ClientID      string `json:"client_id"`
	Step          int    `json:"step"`
	ReturnContext string `json:"return_context"`
}

// detailPatch edits the course details of one beneficiary.
type detailPatch struct {
	Kind         wizard.Field[wizard.LocationKind] `json:"kind"`
	Address      wizard.Field[wizard.Address]      `json:"address"`
	OtherDetails wizard.Field[string]              `json:"other_details"`
	Availability wizard.Field[string]              `json:"availability"`
}

func (p detailPatch) updates() []wizard.CourseLocationUpdate {
	var out []wizard.CourseLocationUpdate
	if p.Kind.Set {
		out = append(out, wizard.SetLocationKind{Kind: p.Kind.Value})
	}
	if p.Address.Set {
		out = append(out, wizard.SetLocationAddress{Address: p.Address.Value})
	}
	if p.OtherDetails.Set {
		out = append(out, wizard.SetOtherDetails{Details: p.OtherDetails.Value})
	}
	if p.Availability.Set {
		out = append(out, wizard.SetAvailability{Availability: p.Availability.Value})
	}
	return out
}

// ratePatch edits one pricing row. null clears a value.
type ratePatch struct {
	HourlyRate    wizard.Field[*float64] `json:"hourly_rate"`
	Quantity      wizard.Field[*float64] `json:"quantity"`
	InstructorPay wizard.Field[*float64] `json:"instructor_pay"`
}

func (p ratePatch) updates() []wizard.RateUpdate {
	var out []wizard.RateUpdate
	if p.HourlyRate.Set {
		out = append(out, wizard.SetHourlyRate{Value: p.HourlyRate.Value})
	}
	if p.Quantity.Set {
		out = append(out, wizard.SetQuantity{Value: p.Quantity.Value})
	}
	if p.InstructorPay.Set {
		out = append(out, wizard.SetInstructorPay{Value: p.InstructorPay.Value})
	}
	return out
}

type transitionResponse struct {
	wizardResponse
	Moved bool `json:"moved"`
}

type prefillResponse struct {
	wizardResponse
	Recommendation      prefill.Recommendation `json:"recommendation"`
	Applied             bool                   `json:"applied"`
	SuggestedHourlyRate *float64               `json:"suggested_hourly_rate,omitempty"`
}

type pricingResponse struct {
	Totals pricing.Result `json:"totals"`
	Hours  float64        `json:"hours"`
}

type installmentsResponse struct {
	Installments []installments.Installment `json:"installments"`
	Total        float64                    `json:"total"`
}

func (s *server) withSession(w http.ResponseWriter, r *http.Request, fn func(*session)) {
	sess, ok := s.sessions.get(chi.URLParam(r, "id"), operatorFrom(r.Context()))
	if !ok {
		writeError(w, http.StatusNotFound, "wizard session not found")
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	fn(sess)
}

func snapshot(sess *session) wizardResponse {
	return wizardResponse{
		ID:     sess.id,
		State:  sess.machine.Snapshot(),
		Errors: sess.machine.Errors(),
	}
}

func (s *server) writeCollaboratorError(w http.ResponseWriter, r *http.Request, err error) {
	var cerr *wizard.CollaboratorError
	if errors.As(err, &cerr) {
		s.logger.Error("collaborator call failed",
			zap.String("request_id", requestID(r)),
			zap.String("op", cerr.Op),
			zap.Error(cerr.Err))
		writeError(w, http.StatusBadGateway, cerr.UserMessage())
		return
	}
	s.logger.Error("unexpected error", zap.String("request_id", requestID(r)), zap.Error(err))
	writeError(w, http.StatusInternalServerError, wizard.GenericFailureMessage)
}

func (s *server) handleWizardCreate(w http.ResponseWriter, r *http.Request) {
	var req createWizardRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	m := wizard.New(wizard.Options{
		PermissiveNext: s.permissiveNext,
		Now:            s.now,
		Recommender:    s.recommender,
	})
	if _, err := m.LoadSubjects(r.Context(), s.store); err != nil {
		s.writeCollaboratorError(w, r, err)
		return
	}

	if req.ClientID != "" {
		client, err := s.store.GetClient(r.Context(), req.ClientID)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "client not found")
			return
		}
		if err != nil {
			s.writeCollaboratorError(w, r, err)
			return
		}
		m.UpdateStep1(clientPatch(client))
	}
	m.SetReturnContext(req.ReturnContext)
	if req.Step != 0 {
		m.GoToStep(wizard.Step(req.Step))
	}

	sess := s.sessions.create(operatorFrom(r.Context()), m)
	writeJSON(w, http.StatusCreated, snapshot(sess))
}

func clientPatch(c store.Client) wizard.Step1Patch {
	return wizard.Step1Patch{
		ClientID:             wizard.Some(c.ID),
		DisplayName:          wizard.Some(c.DisplayName),
		RegionCode:           wizard.Some(c.RegionCode),
		ClientKind:           wizard.Some(c.Kind),
		PrimaryContact:       wizard.Some(wizard.Contact{Email: c.Email, Phone: c.Phone}),
		Address:              wizard.Some(c.Address),
		BillingSameAsPrimary: wizard.Some(true),
	}
}

func (s *server) handleWizardGet(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session) {
		writeJSON(w, http.StatusOK, snapshot(sess))
	})
}

func (s *server) handleWizardDelete(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.remove(chi.URLParam(r, "id"), operatorFrom(r.Context())) {
		writeError(w, http.StatusNotFound, "wizard session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleGoTo(w http.ResponseWriter, r *http.Request) {
	step, err := parseStep(chi.URLParam(r, "step"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.withSession(w, r, func(sess *session) {
		sess.machine.GoToStep(wizard.Step(step))
		writeJSON(w, http.StatusOK, snapshot(sess))
	})
}

func (s *server) handleNext(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session) {
		moved := sess.machine.NextStep()
		writeJSON(w, http.StatusOK, transitionResponse{wizardResponse: snapshot(sess), Moved: moved})
	})
}

func (s *server) handlePrevious(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session) {
		moved := sess.machine.PreviousStep()
		writeJSON(w, http.StatusOK, transitionResponse{wizardResponse: snapshot(sess), Moved: moved})
	})
}

func (s *server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session) {
		sess.machine.ResetWizard()
		writeJSON(w, http.StatusOK, snapshot(sess))
	})
}

func (s *server) handleStepUpdate(w http.ResponseWriter, r *http.Request) {
	step, err := parseStep(chi.URLParam(r, "n"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.withSession(w, r, func(sess *session) {
		m := sess.machine
		switch wizard.Step(step) {
		case wizard.Step1:
			var p wizard.Step1Patch
			if !decodeJSON(w, r, &p) {
				return
			}
			m.UpdateStep1(p)
		case wizard.Step2:
			var p wizard.Step2Patch
			if !decodeJSON(w, r, &p) {
				return
			}
			m.UpdateStep2(p)
		case wizard.Step3:
			var p wizard.Step3Patch
			if !decodeJSON(w, r, &p) {
				return
			}
			m.UpdateStep3(p)
		default:
			writeError(w, http.StatusNotFound, "unknown step")
			return
		}
		writeJSON(w, http.StatusOK, snapshot(sess))
	})
}

func (s *server) handleStepValidate(w http.ResponseWriter, r *http.Request) {
	step, err := parseStep(chi.URLParam(r, "n"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if wizard.Step(step) < wizard.FirstStep || wizard.Step(step) > wizard.LastStep {
		writeError(w, http.StatusNotFound, "unknown step")
		return
	}

	s.withSession(w, r, func(sess *session) {
		writeJSON(w, http.StatusOK, sess.machine.ValidateStep(wizard.Step(step)))
	})
}

func (s *server) handleStudents(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session) {
		students, err := sess.machine.LoadStudents(r.Context(), s.store)
		if err != nil {
			s.writeCollaboratorError(w, r, err)
			return
		}
		if students == nil {
			students = []wizard.Student{}
		}
		writeJSON(w, http.StatusOK, students)
	})
}

func (s *server) handleStudentDetail(w http.ResponseWriter, r *http.Request) {
	var p detailPatch
	if !decodeJSON(w, r, &p) {
		return
	}
	studentID := chi.URLParam(r, "studentID")

	s.withSession(w, r, func(sess *session) {
		for _, u := range p.updates() {
			sess.machine.UpdateStudentDetail(studentID, u)
		}
		writeJSON(w, http.StatusOK, snapshot(sess))
	})
}

func (s *server) handleFamilyDetail(w http.ResponseWriter, r *http.Request) {
	var p detailPatch
	if !decodeJSON(w, r, &p) {
		return
	}

	s.withSession(w, r, func(sess *session) {
		for _, u := range p.updates() {
			sess.machine.UpdateFamilyDetail(u)
		}
		writeJSON(w, http.StatusOK, snapshot(sess))
	})
}

func (s *server) handleRateUpdate(w http.ResponseWriter, r *http.Request) {
	var p ratePatch
	if !decodeJSON(w, r, &p) {
		return
	}
	updates := p.updates()
	if len(updates) == 0 {
		writeError(w, http.StatusBadRequest, "nothing to update")
		return
	}
	subjectID := chi.URLParam(r, "subjectID")

	s.withSession(w, r, func(sess *session) {
		for _, u := range updates {
			if !sess.machine.SetRate(subjectID, u) {
				writeError(w, http.StatusNotFound, "subject is not selected")
				return
			}
		}
		writeJSON(w, http.StatusOK, snapshot(sess))
	})
}

func (s *server) handlePrefill(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	apply, _ := strconv.ParseBool(q.Get("apply"))

	var target *float64
	if raw := q.Get("target_margin"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "target_margin must be a number")
			return
		}
		target = &v
	}

	s.withSession(w, r, func(sess *session) {
		m := sess.machine
		resp := prefillResponse{Recommendation: m.Recommend()}
		if target != nil {
			rate := m.SuggestOptimalRate(*target)
			resp.SuggestedHourlyRate = &rate
		}
		if apply {
			m.ApplyPrefill(resp.Recommendation)
			resp.Applied = true
		}
		resp.wizardResponse = snapshot(sess)
		writeJSON(w, http.StatusOK, resp)
	})
}

func (s *server) handlePricing(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session) {
		writeJSON(w, http.StatusOK, pricingResponse{
			Totals: sess.machine.Preview(),
			Hours:  sess.machine.Hours(),
		})
	})
}

func (s *server) handleInstallments(w http.ResponseWriter, r *http.Request) {
	start := s.now()
	if raw := r.URL.Query().Get("start"); raw != "" {
		parsed, err := time.Parse(startDateLayout, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "start must use the YYYY-MM-DD format")
			return
		}
		start = parsed
	}

	s.withSession(w, r, func(sess *session) {
		seq := sess.machine.Schedule(start)
		items := slices.Collect(seq)
		if items == nil {
			items = []installments.Installment{}
		}
		writeJSON(w, http.StatusOK, installmentsResponse{
			Installments: items,
			Total:        installments.Total(seq),
		})
	})
}

func (s *server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session) {
		out, err := sess.machine.Submit(r.Context(), s.store)
		if err != nil {
			s.writeCollaboratorError(w, r, err)
			return
		}
		if !out.Accepted {
			writeJSON(w, http.StatusUnprocessableEntity, out)
			return
		}

		s.logger.Info("settlement submitted",
			zap.String("request_id", requestID(r)),
			zap.String("settlement_id", out.ID),
			zap.String("session_id", sess.id))
		writeJSON(w, http.StatusCreated, out)
	})
}
