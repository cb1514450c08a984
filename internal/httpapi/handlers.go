package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"deepcheck/internal/fingerprint"
	"deepcheck/internal/pipeline"
	"deepcheck/internal/services"
)

type handlers struct {
	analyzer    Analyzer
	serviceName string
	maxBody     int64
	logger      *slog.Logger
}

type analyzeBody struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

type imageBody struct {
	URL string `json:"url" binding:"required"`
}

func (h handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "active", "service": h.serviceName})
}

func (h handlers) analyze(c *gin.Context) {
	var body analyzeBody
	if !h.bind(c, &body) {
		return
	}
	url, text := strings.TrimSpace(body.URL), strings.TrimSpace(body.Text)
	switch {
	case url != "" && text != "":
		badRequest(c, "provide either url or text, not both")
	case url != "":
		h.run(c, pipeline.Request{Kind: fingerprint.KindVideo, Input: url})
	case text != "":
		h.run(c, pipeline.Request{Kind: fingerprint.KindText, Input: body.Text})
	default:
		badRequest(c, "url or text is required")
	}
}

func (h handlers) analyzeImage(c *gin.Context) {
	var body imageBody
	if !h.bind(c, &body) {
		return
	}
	h.run(c, pipeline.Request{Kind: fingerprint.KindImage, Input: strings.TrimSpace(body.URL)})
}

func (h handlers) bind(c *gin.Context, target any) bool {
	if h.maxBody > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody)
	}
	if err := c.ShouldBindJSON(target); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return false
		}
		badRequest(c, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func (h handlers) run(c *gin.Context, req pipeline.Request) {
	res, err := h.analyzer.Analyze(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrValidation):
			badRequest(c, err.Error())
		case errors.Is(err, context.DeadlineExceeded):
			c.AbortWithStatusJSON(http.StatusGatewayTimeout, gin.H{"error": "analysis timed out"})
		case errors.Is(err, context.Canceled):
			c.Abort()
		default:
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.Header(headerCache, cacheLabel(res))
	c.Header(headerFingerprint, res.Key)
	c.Data(http.StatusOK, "application/json", res.Record)
}

func cacheLabel(res pipeline.Result) string {
	switch {
	case res.Outcome.Hit:
		return "HIT"
	case res.Outcome.Shared:
		return "SHARED"
	default:
		return "MISS"
	}
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}
