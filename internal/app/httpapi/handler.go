// Package httpapi exposes the storefront and dashboard REST API.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	app "github.com/mohammeioi/Market-Management-sub000/internal/app"
	"github.com/mohammeioi/Market-Management-sub000/internal/app/domain/catalog"
	"github.com/mohammeioi/Market-Management-sub000/internal/app/domain/order"
	"github.com/mohammeioi/Market-Management-sub000/internal/app/services/cart"
	catalogsvc "github.com/mohammeioi/Market-Management-sub000/internal/app/services/catalog"
	orderssvc "github.com/mohammeioi/Market-Management-sub000/internal/app/services/orders"
	"github.com/mohammeioi/Market-Management-sub000/internal/app/storage"
	"github.com/mohammeioi/Market-Management-sub000/internal/middleware"
)

// maxImportSize bounds an uploaded workbook at 10 MiB.
const maxImportSize = 10 << 20

// maxImageSize bounds an uploaded product image at 5 MiB.
const maxImageSize = 5 << 20

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app   *app.Application
	audit *auditLog
}

// NewHandler returns a router exposing the core REST API.
func NewHandler(application *app.Application) http.Handler {
	return NewHandlerWithAudit(application, "")
}

// NewHandlerWithAudit additionally persists dashboard mutations as JSONL at
// auditPath. An empty path keeps the audit trail in memory only.
func NewHandlerWithAudit(application *app.Application, auditPath string) http.Handler {
	sink, err := newFileAuditSink(auditPath)
	if err != nil {
		// Fall back to the in-memory ring; the API stays usable.
		sink = nil
	}
	var s auditSink
	if sink != nil {
		s = sink
	}
	h := &handler{app: application, audit: newAuditLog(200, s)}

	r := mux.NewRouter()
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/products", h.listProducts).Methods(http.MethodGet)
	api.HandleFunc("/products", h.createProduct).Methods(http.MethodPost)
	api.HandleFunc("/products/search", h.searchProducts).Methods(http.MethodGet)
	api.HandleFunc("/products/import", h.importProducts).Methods(http.MethodPost)
	api.HandleFunc("/products/{id}", h.getProduct).Methods(http.MethodGet)
	api.HandleFunc("/products/{id}", h.updateProduct).Methods(http.MethodPut)
	api.HandleFunc("/products/{id}", h.deleteProduct).Methods(http.MethodDelete)
	api.HandleFunc("/products/{id}/availability", h.setAvailability).Methods(http.MethodPatch)
	api.HandleFunc("/products/{id}/variants", h.listVariants).Methods(http.MethodGet)
	api.HandleFunc("/products/{id}/image", h.uploadProductImage).Methods(http.MethodPost)
	api.HandleFunc("/products/{id}/image", h.getProductImage).Methods(http.MethodGet)

	api.HandleFunc("/categories", h.listCategories).Methods(http.MethodGet)
	api.HandleFunc("/categories", h.createCategory).Methods(http.MethodPost)
	api.HandleFunc("/categories/{id}", h.renameCategory).Methods(http.MethodPut)
	api.HandleFunc("/categories/{id}", h.deleteCategory).Methods(http.MethodDelete)

	api.HandleFunc("/cart", h.getCart).Methods(http.MethodGet)
	api.HandleFunc("/cart", h.clearCart).Methods(http.MethodDelete)
	api.HandleFunc("/cart/lines", h.addCartLine).Methods(http.MethodPost)
	api.HandleFunc("/cart/lines/{productID}", h.setCartQuantity).Methods(http.MethodPut)
	api.HandleFunc("/cart/lines/{productID}", h.removeCartLine).Methods(http.MethodDelete)
	api.HandleFunc("/cart/checkout", h.checkout).Methods(http.MethodPost)

	orders := api.PathPrefix("/orders").Subrouter()
	orders.Use(h.requireClockedIn)
	orders.HandleFunc("", h.listOrders).Methods(http.MethodGet)
	orders.HandleFunc("/{id}", h.getOrder).Methods(http.MethodGet)
	orders.HandleFunc("/{id}", h.deleteOrder).Methods(http.MethodDelete)
	orders.HandleFunc("/{id}/status", h.updateOrderStatus).Methods(http.MethodPatch)
	orders.HandleFunc("/{id}/approve", h.approveOrder).Methods(http.MethodPost)
	orders.HandleFunc("/{id}/whatsapp", h.whatsappLink).Methods(http.MethodGet)

	api.HandleFunc("/attendance/status", h.attendanceStatus).Methods(http.MethodGet)
	api.HandleFunc("/attendance/pin", h.setPIN).Methods(http.MethodPost)
	api.HandleFunc("/attendance/clock-in", h.clockIn).Methods(http.MethodPost)
	api.HandleFunc("/attendance/clock-out", h.clockOut).Methods(http.MethodPost)
	api.HandleFunc("/attendance/history", h.attendanceHistory).Methods(http.MethodGet)

	api.HandleFunc("/audit", h.listAuditEntries).Methods(http.MethodGet)

	return r
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requireClockedIn gates the dashboard routes. This is a usability gate, not
// a security boundary; real access control belongs to the gateway's row
// policies.
func (h *handler) requireClockedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.GetUserID(r.Context())
		if userID == "" || !h.app.Attendance.CheckStatus(userID) {
			writeError(w, http.StatusForbidden, fmt.Errorf("clock in to access the dashboard"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- catalog -----------------------------------------------------------------

func (h *handler) listProducts(w http.ResponseWriter, r *http.Request) {
	page := 0
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid page %q", raw))
			return
		}
		page = n
	}
	result, err := h.app.Catalog.FetchPage(r.Context(), r.URL.Query().Get("category"), page)
	if err != nil {
		if errors.Is(err, catalogsvc.ErrSuperseded) {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, toPageJSON(result))
}

func (h *handler) searchProducts(w http.ResponseWriter, r *http.Request) {
	result, err := h.app.Catalog.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, toPageJSON(result))
}

type productPayload struct {
	Name       string          `json:"name"`
	Price      json.Number     `json:"price"`
	CategoryID string          `json:"category_id"`
	Stock      int             `json:"stock"`
	Image      string          `json:"image"`
	Barcode    string          `json:"barcode"`
	ParentID   string          `json:"parent_id"`
	Available  *bool           `json:"is_available"`
}

func (p productPayload) toDomain() (catalog.Product, error) {
	price, err := decimalFromNumber(p.Price)
	if err != nil {
		return catalog.Product{}, fmt.Errorf("invalid price: %w", err)
	}
	out := catalog.Product{
		Name:       p.Name,
		Price:      price,
		CategoryID: p.CategoryID,
		Stock:      p.Stock,
		Image:      p.Image,
		Barcode:    p.Barcode,
		ParentID:   p.ParentID,
		Available:  true,
	}
	if p.Available != nil {
		out.Available = *p.Available
	}
	return out, nil
}

func (h *handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var payload productPayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	p, err := payload.toDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	created, err := h.app.Catalog.CreateProduct(r.Context(), p)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductJSON(created))
}

func (h *handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.app.Catalog.GetProduct(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, toProductJSON(p))
}

func (h *handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var payload productPayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	p, err := payload.toDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	p.ID = mux.Vars(r)["id"]
	updated, err := h.app.Catalog.UpdateProduct(r.Context(), p)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, toProductJSON(updated))
}

func (h *handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Catalog.DeleteProduct(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) setAvailability(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Available *bool `json:"is_available"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if payload.Available == nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("is_available is required"))
		return
	}
	if err := h.app.Catalog.SetAvailability(r.Context(), mux.Vars(r)["id"], *payload.Available); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listVariants(w http.ResponseWriter, r *http.Request) {
	variants, err := h.app.Catalog.ListVariants(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductsJSON(variants))
}

func (h *handler) uploadProductImage(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImageSize))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("image exceeds %d bytes", maxImageSize))
		return
	}
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	url, err := h.app.Catalog.UploadProductImage(r.Context(), mux.Vars(r)["id"], data, contentType)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (h *handler) getProductImage(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := h.app.Catalog.ProductImage(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(data)
}

func (h *handler) importProducts(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)
	defer r.Body.Close()

	// Accept either a multipart upload under "file" or a raw workbook body.
	var src io.Reader = r.Body
	if f, _, err := r.FormFile("file"); err == nil {
		defer f.Close()
		src = f
	}

	result, err := h.app.Catalog.ImportProducts(r.Context(), src)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// --- categories --------------------------------------------------------------

func (h *handler) listCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.app.Catalog.ListCategories(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	out := make([]categoryJSON, 0, len(cats))
	for _, c := range cats {
		out = append(out, toCategoryJSON(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	c, err := h.app.Catalog.CreateCategory(r.Context(), payload.Name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryJSON(c))
}

func (h *handler) renameCategory(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	c, err := h.app.Catalog.RenameCategory(r.Context(), mux.Vars(r)["id"], payload.Name)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryJSON(c))
}

func (h *handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Catalog.DeleteCategory(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- cart --------------------------------------------------------------------

func (h *handler) getCart(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toCartJSON(h.app.Cart))
}

func (h *handler) clearCart(w http.ResponseWriter, _ *http.Request) {
	h.app.Cart.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) addCartLine(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ProductID string `json:"product_id"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	p, err := h.app.Catalog.GetProduct(r.Context(), payload.ProductID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if !p.Available {
		writeError(w, http.StatusConflict, fmt.Errorf("product %s is unavailable", p.ID))
		return
	}
	h.app.Cart.AddLine(p)
	writeJSON(w, http.StatusOK, toCartJSON(h.app.Cart))
}

func (h *handler) setCartQuantity(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Quantity int `json:"quantity"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.app.Cart.SetQuantity(mux.Vars(r)["productID"], payload.Quantity)
	writeJSON(w, http.StatusOK, toCartJSON(h.app.Cart))
}

func (h *handler) removeCartLine(w http.ResponseWriter, r *http.Request) {
	h.app.Cart.RemoveLine(mux.Vars(r)["productID"])
	writeJSON(w, http.StatusOK, toCartJSON(h.app.Cart))
}

func (h *handler) checkout(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name   string `json:"customer_name"`
		Phone  string `json:"customer_phone"`
		Email  string `json:"customer_email"`
		Notes  string `json:"notes"`
		Source string `json:"source"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	created, err := h.app.Checkout.Checkout(r.Context(), h.app.Cart, order.CustomerInfo{
		UserID: middleware.GetUserID(r.Context()),
		Name:   payload.Name,
		Phone:  payload.Phone,
		Email:  payload.Email,
		Notes:  payload.Notes,
		Source: payload.Source,
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderJSON(created))
}

// --- orders ------------------------------------------------------------------

func (h *handler) listOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.app.Orders.List(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	out := make([]orderJSON, 0, len(list))
	for _, o := range list {
		out = append(out, toOrderJSON(o))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.app.Orders.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderJSON(o))
}

func (h *handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id := mux.Vars(r)["id"]
	o, err := h.app.Orders.UpdateStatus(r.Context(), id, order.Status(payload.Status))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	h.audit.add(auditEntry{
		Time:    time.Now().UTC(),
		User:    middleware.GetUserID(r.Context()),
		Action:  "status",
		OrderID: id,
		Detail:  payload.Status,
	})
	writeJSON(w, http.StatusOK, toOrderJSON(o))
}

func (h *handler) approveOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	approver := middleware.GetUserID(r.Context())
	o, err := h.app.Orders.Approve(r.Context(), id, approver)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	h.audit.add(auditEntry{
		Time:    time.Now().UTC(),
		User:    approver,
		Action:  "approve",
		OrderID: id,
		Detail:  o.ApprovedBy,
	})
	writeJSON(w, http.StatusOK, toOrderJSON(o))
}

func (h *handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.app.Orders.Delete(r.Context(), id); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	h.audit.add(auditEntry{
		Time:    time.Now().UTC(),
		User:    middleware.GetUserID(r.Context()),
		Action:  "delete",
		OrderID: id,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) whatsappLink(w http.ResponseWriter, r *http.Request) {
	o, err := h.app.Orders.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	link := orderssvc.WhatsAppLink(o)
	if link == "" {
		writeError(w, http.StatusUnprocessableEntity, fmt.Errorf("order has no customer phone"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": link})
}

func (h *handler) listAuditEntries(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}
	writeJSON(w, http.StatusOK, h.audit.listLimit(limit))
}

// --- attendance --------------------------------------------------------------

func (h *handler) attendanceStatus(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"clocked_in": h.app.Attendance.CheckStatus(userID),
		"has_pin":    h.app.Attendance.HasPIN(userID),
	})
}

func (h *handler) setPIN(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PIN string `json:"pin"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.app.Attendance.SetPIN(middleware.GetUserID(r.Context()), payload.PIN); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) clockIn(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PIN string `json:"pin"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	err := h.app.Attendance.ClockIn(middleware.GetUserID(r.Context()), payload.PIN)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) clockOut(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Attendance.ClockOut(middleware.GetUserID(r.Context())); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) attendanceHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Attendance.History(middleware.GetUserID(r.Context())))
}

// --- helpers -----------------------------------------------------------------

func statusFor(err error) int {
	var vErr *cart.ValidationError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &vErr), errors.Is(err, cart.ErrEmptyCart):
		return http.StatusBadRequest
	case errors.Is(err, cart.ErrPartialFailure):
		return http.StatusBadGateway
	case errors.Is(err, catalogsvc.ErrImagesUnsupported):
		return http.StatusNotImplemented
	default:
		return http.StatusBadRequest
	}
}

func decodeJSON(body io.ReadCloser, dst any) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
