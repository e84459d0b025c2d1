package api

import (
	"net/http"
	"unicode/utf8"

	"github.com/pawhaven/adoption-service/internal/domain"
)

const maxDonationMessageChars = 500

// CreateDonationHandler charges the caller and records the donation.
func (h *Handlers) CreateDonationHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req domain.CreateDonationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Message != nil && utf8.RuneCountInString(*req.Message) > maxDonationMessageChars {
		writeError(w, http.StatusBadRequest, "Message is too long")
		return
	}

	donation, err := h.service.CreateDonation(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, "create_donation", err)
		return
	}
	writeJSON(w, http.StatusCreated, donation)
}

func (h *Handlers) ListMyDonationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	donations, err := h.service.ListMyDonations(r.Context(), userID)
	if err != nil {
		writeServiceError(w, "list_my_donations", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"donations": nonNil(donations)})
}

// ListListingDonationsHandler returns the public donation list of a listing.
func (h *Handlers) ListListingDonationsHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	listingID, ok := uuidParam(w, r, "listingID")
	if !ok {
		return
	}
	views, err := h.service.ListDonationsForListing(r.Context(), listingID)
	if err != nil {
		writeServiceError(w, "list_listing_donations", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"donations": nonNil(views)})
}
