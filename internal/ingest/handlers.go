package ingest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ticktrace/ticktrace/internal/logging"
	"github.com/ticktrace/ticktrace/internal/risk"
	"github.com/ticktrace/ticktrace/internal/txlog"
)

// Handler provides the HTTP endpoints over the ingestion service.
type Handler struct {
	service *Service
}

// NewHandler creates an ingest handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up the /api routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/transactions", h.IngestTransaction)
	r.GET("/transactions", h.ListTransactions)
	r.GET("/transactions/latest", h.LatestTransaction)
	r.GET("/summary", h.GetSummary)
	r.GET("/wallet/:id", h.GetWallet)
}

// IngestTransaction handles POST /api/transactions
func (h *Handler) IngestTransaction(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	tx, err := h.service.Ingest(c.Request.Context(), body)
	if err != nil {
		logging.L(c.Request.Context()).Error("ingest failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to process transaction",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "transaction": tx})
}

// ListTransactions handles GET /api/transactions
func (h *Handler) ListTransactions(c *gin.Context) {
	var f txlog.Filter

	if levelParam := c.Query("level"); levelParam != "" {
		level, ok := risk.ParseLevel(levelParam)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_level",
				"message": "level must be one of LOW, MEDIUM, HIGH, CRITICAL",
			})
			return
		}
		f.Level = level
	}

	if limitParam := c.Query("limit"); limitParam != "" {
		limit, err := strconv.Atoi(limitParam)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_limit",
				"message": "limit must be a non-negative integer",
			})
			return
		}
		f.Limit = limit
	}

	var ok bool
	if f.MinAmount, ok = amountQuery(c, "minAmount"); !ok {
		return
	}
	if f.MaxAmount, ok = amountQuery(c, "maxAmount"); !ok {
		return
	}

	txs, err := h.service.List(c.Request.Context(), f)
	if err != nil {
		logging.L(c.Request.Context()).Error("list transactions failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}
	if txs == nil {
		txs = []*txlog.Transaction{}
	}

	c.JSON(http.StatusOK, gin.H{"transactions": txs, "count": len(txs)})
}

// LatestTransaction handles GET /api/transactions/latest
func (h *Handler) LatestTransaction(c *gin.Context) {
	tx, err := h.service.Latest(c.Request.Context())
	if err != nil {
		logging.L(c.Request.Context()).Error("latest transaction failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}
	if tx == nil {
		// Empty log: the dashboard expects an empty object, not a 404.
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, tx)
}

// GetSummary handles GET /api/summary
func (h *Handler) GetSummary(c *gin.Context) {
	summary, err := h.service.Summarize(c.Request.Context())
	if err != nil {
		logging.L(c.Request.Context()).Error("summary failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetWallet handles GET /api/wallet/:id
func (h *Handler) GetWallet(c *gin.Context) {
	profile, err := h.service.WalletProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrWalletNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "Wallet not found"})
			return
		}
		logging.L(c.Request.Context()).Error("wallet profile failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, profile)
}

// amountQuery parses an optional float query parameter. On a malformed value
// it writes a 400 response and reports !ok.
func amountQuery(c *gin.Context, name string) (*float64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_amount",
			"message": name + " must be numeric",
		})
		return nil, false
	}
	return &v, true
}
