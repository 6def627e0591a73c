package handler

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rl1809/voice-inventory/internal/core/service"
)

type HTTPHandler struct {
	svc *service.CommandService
	log *zap.Logger
}

type VoiceCommandHTTPRequest struct {
	RequestID string `json:"request_id"`
	Text      string `json:"text"`
	Language  string `json:"language"`
}

type ProductHTTPRequest struct {
	Name        string  `json:"name"`
	Quantity    float64 `json:"quantity"`
	PricePerKg  float64 `json:"price_per_kg"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Language    string  `json:"language"`
}

type ProductUpdateHTTPRequest struct {
	Quantity    *float64 `json:"quantity"`
	PricePerKg  *float64 `json:"price_per_kg"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
}

type ErrorHTTPResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func NewHTTPHandler(svc *service.CommandService, log *zap.Logger) *HTTPHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPHandler{svc: svc, log: log}
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(h *HTTPHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), AccessLog(h.log))
	h.Register(r)
	return r
}

func (h *HTTPHandler) Register(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)

	api := r.Group("/api")
	api.POST("/voice-command", h.VoiceCommand)
	api.GET("/products", h.ListProducts)
	api.POST("/products", h.CreateProduct)
	api.GET("/products/export", h.ExportProducts)
	api.GET("/products/:name", h.GetProduct)
	api.PUT("/products/:name", h.UpdateProduct)
	api.DELETE("/products/:name", h.DeleteProduct)
	api.GET("/transactions", h.ListTransactions)
}

func (h *HTTPHandler) VoiceCommand(c *gin.Context) {
	var req VoiceCommandHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		h.fail(c, http.StatusBadRequest, "missing required fields")
		return
	}

	resp, err := h.svc.Execute(c.Request.Context(), service.CommandRequest{
		RequestID: req.RequestID,
		Text:      req.Text,
		Language:  req.Language,
	})
	if err != nil {
		status := httpStatus(err)
		if status >= http.StatusInternalServerError {
			h.log.Error("voice command failed", zap.String("request_id", requestIDFrom(c)), zap.Error(err))
		}
		c.JSON(status, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *HTTPHandler) CreateProduct(c *gin.Context) {
	var req ProductHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.svc.CreateProduct(c.Request.Context(), service.ProductInput{
		Name:        req.Name,
		QuantityKg:  req.Quantity,
		PricePerKg:  req.PricePerKg,
		Description: req.Description,
		Category:    req.Category,
		Language:    req.Language,
	})
	if err != nil {
		h.failErr(c, err)
		return
	}

	status := http.StatusOK
	if res.Outcome == service.OutcomeCreated {
		status = http.StatusCreated
	}
	c.JSON(status, res)
}

func (h *HTTPHandler) ListProducts(c *gin.Context) {
	inv, err := h.svc.ListProducts(c.Request.Context())
	if err != nil {
		h.failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (h *HTTPHandler) GetProduct(c *gin.Context) {
	item, err := h.svc.GetProduct(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *HTTPHandler) UpdateProduct(c *gin.Context) {
	var req ProductUpdateHTTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.svc.UpdateProduct(c.Request.Context(), c.Param("name"), service.ProductUpdate{
		QuantityKg:  req.Quantity,
		PricePerKg:  req.PricePerKg,
		Description: req.Description,
		Category:    req.Category,
	})
	if err != nil {
		h.failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *HTTPHandler) DeleteProduct(c *gin.Context) {
	res, err := h.svc.DeleteProduct(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *HTTPHandler) ExportProducts(c *gin.Context) {
	inv, err := h.svc.ListProducts(c.Request.Context())
	if err != nil {
		h.failErr(c, err)
		return
	}

	var buf bytes.Buffer
	if err := WriteInventoryWorkbook(&buf, inv); err != nil {
		h.failErr(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="inventory.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (h *HTTPHandler) ListTransactions(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.fail(c, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	txs, err := h.svc.Transactions(c.Request.Context(), limit)
	if err != nil {
		h.failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs, "count": len(txs)})
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HTTPHandler) fail(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorHTTPResponse{Success: false, Message: message, RequestID: requestIDFrom(c)})
}

func (h *HTTPHandler) failErr(c *gin.Context, err error) {
	status := httpStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("request_id", requestIDFrom(c)), zap.Error(err))
	}
	_ = c.Error(err)
	h.fail(c, status, publicMessage(err))
}
