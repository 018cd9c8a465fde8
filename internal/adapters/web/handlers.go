package web

import (
	"encoding/json"
	"io"
	"net/http"
	"reflect"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"stockdesk/internal/app"
)

// Handler holds the ApplicationService, the validator, and the chi router.
type Handler struct {
	svc      app.ApplicationService
	validate *validator.Validate
	router   chi.Router
}

// newValidator builds the request validator. decimal.Decimal fields are
// presented to the numeric rules as float64 so tags like gte=0 apply to
// money amounts.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, log *logrus.Logger, allowedOrigins string) http.Handler {
	h := &Handler{
		svc:      svc,
		validate: newValidator(),
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(log))
	r.Use(Recoverer(log))
	r.Use(CORS(allowedOrigins))

	r.Get("/api/health", h.health)

	// Inventory actions (sell / remove / add).
	r.Post("/api/inventory/actions", h.inventoryAction)

	// Items.
	r.Get("/api/items", h.listItems)
	r.Post("/api/items", h.createItem)
	r.Get("/api/items/{id}", h.getItem)

	// Stock batches.
	r.Get("/api/items/{id}/batches", h.listBatches)
	r.Post("/api/items/{id}/batches", h.createBatch)
	r.Put("/api/batches/{id}", h.updateBatch)
	r.Delete("/api/batches/{id}", h.deleteBatch)

	// Companies and locations.
	r.Get("/api/companies", h.listCompanies)
	r.Post("/api/companies", h.createCompany)
	r.Get("/api/companies/{id}", h.getCompany)
	r.Get("/api/companies/{id}/locations", h.listLocations)
	r.Post("/api/companies/{id}/locations", h.createLocation)
	r.Post("/api/companies/{id}/recalculate", h.recalculateStockValues)

	// Expense ledger.
	r.Get("/api/expenses", h.listExpenses)

	// Diagnostics.
	r.Get("/api/admin/batch-consistency", h.batchConsistency)

	h.router = r
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decode reads the JSON body into v and runs struct validation.
func (h *Handler) decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequestError{msg: "invalid JSON body"}
	}
	return h.validate.Struct(v)
}

// urlParamInt parses a positive integer chi URL parameter.
func urlParamInt(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		return 0, badRequestError{msg: "invalid " + name + " parameter"}
	}
	return id, nil
}

// queryInt parses an optional integer query parameter, returning 0 when absent.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, badRequestError{msg: "invalid " + name + " parameter"}
	}
	return v, nil
}
