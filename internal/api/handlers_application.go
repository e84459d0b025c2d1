package api

import (
	"net/http"
	"strings"

	"github.com/pawhaven/adoption-service/internal/domain"
)

const maxApplicationMessageLength = 5000

type createApplicationPayload struct {
	Message string `json:"message"`
}

type updateStatusPayload struct {
	Status     string  `json:"status"`
	AdminNotes *string `json:"admin_notes,omitempty"`
}

type eligibilityFormPayload struct {
	Answers map[string]interface{} `json:"answers"`
}

// CreateApplicationHandler submits an application for the authenticated adopter.
func (h *Handlers) CreateApplicationHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	listingID, ok := uuidParam(w, r, "listingID")
	if !ok {
		return
	}
	var payload createApplicationPayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	if len(payload.Message) > maxApplicationMessageLength {
		writeError(w, http.StatusBadRequest, "Message is too long")
		return
	}

	application, err := h.service.CreateApplication(r.Context(), listingID, userID, payload.Message)
	if err != nil {
		writeServiceError(w, "create_application", err)
		return
	}
	writeJSON(w, http.StatusCreated, application)
}

func (h *Handlers) GetApplicationHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	applicationID, ok := uuidParam(w, r, "applicationID")
	if !ok {
		return
	}

	application, err := h.service.GetApplication(r.Context(), applicationID, userID)
	if err != nil {
		writeServiceError(w, "get_application", err)
		return
	}
	writeJSON(w, http.StatusOK, application)
}

func (h *Handlers) ListMyApplicationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	applications, err := h.service.ListMyApplications(r.Context(), userID)
	if err != nil {
		writeServiceError(w, "list_my_applications", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"applications": nonNil(applications)})
}

// ListReceivedApplicationsHandler lists applications on the caller's listings, optionally
// filtered with ?status=.
func (h *Handlers) ListReceivedApplicationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var statusFilter *domain.ApplicationStatus
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, valid := domain.ParseApplicationStatus(raw)
		if !valid {
			writeError(w, http.StatusBadRequest, "Invalid status filter")
			return
		}
		statusFilter = &status
	}

	applications, err := h.service.ListReceivedApplications(r.Context(), userID, statusFilter)
	if err != nil {
		writeServiceError(w, "list_received_applications", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"applications": nonNil(applications)})
}

// UpdateApplicationStatusHandler moves an application through its lifecycle.
func (h *Handlers) UpdateApplicationStatusHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	applicationID, ok := uuidParam(w, r, "applicationID")
	if !ok {
		return
	}
	var payload updateStatusPayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	status, valid := domain.ParseApplicationStatus(payload.Status)
	if !valid {
		writeError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	application, err := h.service.UpdateApplicationStatus(r.Context(), applicationID, status, userID, payload.AdminNotes)
	if err != nil {
		writeServiceError(w, "update_application_status", err)
		return
	}
	writeJSON(w, http.StatusOK, application)
}

func (h *Handlers) CancelApplicationHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	applicationID, ok := uuidParam(w, r, "applicationID")
	if !ok {
		return
	}

	application, err := h.service.CancelApplication(r.Context(), applicationID, userID)
	if err != nil {
		writeServiceError(w, "cancel_application", err)
		return
	}
	writeJSON(w, http.StatusOK, application)
}

func (h *Handlers) SaveEligibilityFormHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var payload eligibilityFormPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	form, err := h.service.SaveEligibilityForm(r.Context(), userID, payload.Answers)
	if err != nil {
		writeServiceError(w, "save_eligibility_form", err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

func (h *Handlers) GetEligibilityFormHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	form, err := h.service.GetEligibilityForm(r.Context(), userID)
	if err != nil {
		writeServiceError(w, "get_eligibility_form", err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

// nonNil keeps empty lists as [] rather than null in responses.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
