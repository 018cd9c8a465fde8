package web

import (
	"net/http"

	"stockdesk/internal/app"
)

// inventoryAction dispatches POST /api/inventory/actions to the sell, remove,
// or add flow based on the "action" field.
func (h *Handler) inventoryAction(w http.ResponseWriter, r *http.Request) {
	var req app.InventoryActionRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	var (
		result *app.ActionResult
		err    error
	)
	switch req.Action {
	case app.ActionSell:
		result, err = h.svc.SellItem(r.Context(), req)
	case app.ActionRemove:
		result, err = h.svc.RemoveStock(r.Context(), req)
	case app.ActionAdd:
		result, err = h.svc.AddStock(r.Context(), req)
	default:
		writeBadRequest(w, r, "unknown action "+req.Action)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	var req app.CreateItemRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.svc.CreateItem(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	// A merge still answers 201: the request produced the item it describes,
	// whether as a new row or folded into an existing one (Merged tells which).
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	item, err := h.svc.GetItem(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	companyID, err := queryInt(r, "companyId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := h.svc.ListItems(r.Context(), companyID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) listBatches(w http.ResponseWriter, r *http.Request) {
	itemID, err := urlParamInt(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	batches, err := h.svc.ListBatches(r.Context(), itemID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, batches)
}

func (h *Handler) createBatch(w http.ResponseWriter, r *http.Request) {
	itemID, err := urlParamInt(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req app.BatchRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	batch, err := h.svc.CreateBatch(r.Context(), itemID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, batch)
}

func (h *Handler) updateBatch(w http.ResponseWriter, r *http.Request) {
	batchID, err := urlParamInt(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req app.BatchRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	batch, err := h.svc.UpdateBatch(r.Context(), batchID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

func (h *Handler) deleteBatch(w http.ResponseWriter, r *http.Request) {
	batchID, err := urlParamInt(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.DeleteBatch(r.Context(), batchID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Batch deleted"})
}

func (h *Handler) listExpenses(w http.ResponseWriter, r *http.Request) {
	companyID, err := queryInt(r, "companyId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	expenses, err := h.svc.ListExpenses(r.Context(), companyID, r.URL.Query().Get("category"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (h *Handler) batchConsistency(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.CheckBatchConsistency(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
