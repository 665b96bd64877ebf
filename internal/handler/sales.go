package handler

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"

	"github.com/busops/ticket-counter/internal/domain"
)

// SaleResponse is one journal entry on the wire.
type SaleResponse struct {
	ID         uuid.UUID            `json:"id"`
	SessionID  uuid.UUID            `json:"session_id"`
	StaffID    int64                `json:"staff_id"`
	CompanyID  int64                `json:"company_id"`
	Kind       domain.ItineraryKind `json:"kind"`
	TripIDs    []int64              `json:"trip_ids"`
	SeatCount  int                  `json:"seat_count"`
	TotalPrice int64                `json:"total_price"`
	Success    bool                 `json:"success"`
	Message    string               `json:"message"`
	CreatedAt  time.Time            `json:"created_at"`
}

// Pagination is the paging envelope of list responses.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// SaleListResponse is the body of GET /sales.
type SaleListResponse struct {
	Data       []SaleResponse `json:"data"`
	Pagination Pagination     `json:"pagination"`
}

// csvHeaders is the first row of every CSV export.
var csvHeaders = []string{
	"id", "session_id", "created_at", "staff_id", "company_id", "kind",
	"trip_ids", "seat_count", "total_price", "success", "message",
}

// ListSales handles GET /sales?page&limit&company_id.
func (s *Server) ListSales(w http.ResponseWriter, r *http.Request) {
	u, ok := actor(w, r)
	if !ok {
		return
	}
	var (
		page, limit *int
		companyID   *int64
		q           = r.URL.Query()
	)
	for name, dest := range map[string]any{"page": &page, "limit": &limit, "company_id": &companyID} {
		if err := runtime.BindQueryParameter("form", true, false, name, q, dest); err != nil {
			writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
			return
		}
	}
	p := domain.NewPaginationParams(page, limit)

	sales, total, err := s.sales.ListPaged(r.Context(), u, deref(companyID), p)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	out := SaleListResponse{
		Data:       make([]SaleResponse, 0, len(sales)),
		Pagination: Pagination{Page: p.Page, Limit: p.Limit, Total: total},
	}
	for _, sale := range sales {
		out.Data = append(out.Data, toSaleResponse(sale))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetSale handles GET /sales/{id}.
func (s *Server) GetSale(w http.ResponseWriter, r *http.Request) {
	u, ok := actor(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "sale not found")
		return
	}
	sale, err := s.sales.GetByID(r.Context(), u, id)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSaleResponse(sale))
}

// ExportSales handles GET /sales/export?format=csv|json&company_id.
// JSON is the default.
func (s *Server) ExportSales(w http.ResponseWriter, r *http.Request) {
	u, ok := actor(w, r)
	if !ok {
		return
	}
	var (
		format    *string
		companyID *int64
		q         = r.URL.Query()
	)
	if err := runtime.BindQueryParameter("form", true, false, "format", q, &format); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "company_id", q, &companyID); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}
	switch deref(format) {
	case "", "csv", "json":
	default:
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "format must be csv or json")
		return
	}

	sales, err := s.sales.Export(r.Context(), u, deref(companyID))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	if deref(format) == "csv" {
		body := buildCSV(sales)
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="sales-`+time.Now().UTC().Format("20060102")+`.csv"`)
		w.Header().Set("Content-Length", strconv.Itoa(body.Len()))
		w.WriteHeader(http.StatusOK)
		_, _ = body.WriteTo(w)
		return
	}

	out := make([]SaleResponse, 0, len(sales))
	for _, sale := range sales {
		out = append(out, toSaleResponse(sale))
	}
	writeJSON(w, http.StatusOK, out)
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func toSaleResponse(sale domain.Sale) SaleResponse {
	tripIDs := sale.TripIDs
	if tripIDs == nil {
		tripIDs = []int64{}
	}
	return SaleResponse{
		ID:         sale.ID,
		SessionID:  sale.SessionID,
		StaffID:    sale.StaffID,
		CompanyID:  sale.CompanyID,
		Kind:       sale.Kind,
		TripIDs:    tripIDs,
		SeatCount:  sale.SeatCount,
		TotalPrice: sale.TotalPrice,
		Success:    sale.Success,
		Message:    sale.Message,
		CreatedAt:  sale.CreatedAt,
	}
}

// buildCSV encodes sales as CSV with a header row. Trip ids within a row are
// pipe-separated ("|") to keep each sale on one line.
func buildCSV(sales []domain.Sale) *bytes.Buffer {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	//nolint:errcheck // bytes.Buffer.Write never returns an error.
	w.Write(csvHeaders)
	for _, sale := range sales {
		//nolint:errcheck
		w.Write(saleToCSVRecord(sale))
	}
	w.Flush()
	return &buf
}

func saleToCSVRecord(sale domain.Sale) []string {
	ids := make([]string, 0, len(sale.TripIDs))
	for _, id := range sale.TripIDs {
		ids = append(ids, strconv.FormatInt(id, 10))
	}
	return []string{
		sale.ID.String(),
		sale.SessionID.String(),
		sale.CreatedAt.UTC().Format(time.RFC3339),
		strconv.FormatInt(sale.StaffID, 10),
		strconv.FormatInt(sale.CompanyID, 10),
		string(sale.Kind),
		strings.Join(ids, "|"),
		strconv.Itoa(sale.SeatCount),
		strconv.FormatInt(sale.TotalPrice, 10),
		strconv.FormatBool(sale.Success),
		sale.Message,
	}
}
