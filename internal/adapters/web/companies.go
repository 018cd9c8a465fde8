package web

import (
	"net/http"

	"stockdesk/internal/app"
)

func (h *Handler) createCompany(w http.ResponseWriter, r *http.Request) {
	var req app.CreateCompanyRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	company, err := h.svc.CreateCompany(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, company)
}

func (h *Handler) getCompany(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	company, err := h.svc.GetCompany(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, company)
}

func (h *Handler) listCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.svc.ListCompanies(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, companies)
}

func (h *Handler) recalculateStockValues(w http.ResponseWriter, r *http.Request) {
	companyID, err := urlParamInt(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	company, err := h.svc.RecalculateStockValues(r.Context(), companyID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, company)
}

func (h *Handler) createLocation(w http.ResponseWriter, r *http.Request) {
	companyID, err := urlParamInt(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req app.CreateLocationRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	location, err := h.svc.CreateLocation(r.Context(), companyID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, location)
}

func (h *Handler) listLocations(w http.ResponseWriter, r *http.Request) {
	companyID, err := urlParamInt(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	locations, err := h.svc.ListLocations(r.Context(), companyID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, locations)
}
