package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"stock-screener/internal/jobs"
	"stock-screener/internal/logger"
	"stock-screener/internal/provider"
	"stock-screener/internal/screener"
)

// tickerList accepts either "AAPL, msft" or ["AAPL", "msft"].
type tickerList []string

func (t *tickerList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = provider.ParseTickers(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return errors.New("tickers must be a string or an array of strings")
	}
	*t = list
	return nil
}

type analyzeRequest struct {
	Tickers   tickerList `json:"tickers" binding:"required"`
	Benchmark float64    `json:"benchmark_forward_pe" binding:"required,gt=0"`
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) analyze(c *gin.Context) {
	req, err := bindAnalyze(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	job, err := s.jobs.Submit(c.Request.Context(), req.Tickers, req.Benchmark)
	if err != nil {
		if errors.Is(err, screener.ErrInvalidInput) {
			badRequest(c, err)
			return
		}
		logger.ErrorWithErr(c.Request.Context(), "Failed to submit job", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start analysis"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id":     job.ID,
		"status":     job.Status,
		"total":      job.Total,
		"status_url": "/api/v1/status/" + job.ID,
	})
}

// bindAnalyze reads a JSON body or a form post. The form field name
// benchmark_forward_PE is accepted as well.
func bindAnalyze(c *gin.Context) (*analyzeRequest, error) {
	var req analyzeRequest
	if strings.HasPrefix(c.ContentType(), "application/json") {
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, fmt.Errorf("%w: %v", screener.ErrInvalidInput, err)
		}
		return &req, nil
	}

	req.Tickers = provider.ParseTickers(c.PostForm("tickers"))
	raw := strings.TrimSpace(c.PostForm("benchmark_forward_pe"))
	if raw == "" {
		raw = strings.TrimSpace(c.PostForm("benchmark_forward_PE"))
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: benchmark forward PE must be a number, got %q", screener.ErrInvalidInput, raw)
	}
	req.Benchmark = v
	return &req, nil
}

func (s *Server) status(c *gin.Context) {
	st, err := s.jobs.Status(c.Request.Context(), c.Param("id"))
	if errors.Is(err, jobs.ErrJobNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"status": "not_found"})
		return
	}
	if err != nil {
		logger.ErrorWithErr(c.Request.Context(), "Failed to read job status", err, "job_id", c.Param("id"))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read job status"})
		return
	}

	body := gin.H{
		"job_id":    st.ID,
		"status":    st.Status,
		"completed": st.Completed,
		"total":     st.Total,
		"progress":  st.Progress,
	}
	if st.Error != "" {
		body["error"] = st.Error
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) results(c *gin.Context) {
	res, err := s.jobs.Result(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, jobs.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"status": "not_found"})
	case errors.Is(err, jobs.ErrJobNotReady):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		logger.ErrorWithErr(c.Request.Context(), "Failed to read job result", err, "job_id", c.Param("id"))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read job result"})
	default:
		c.JSON(http.StatusOK, res)
	}
}

func (s *Server) download(c *gin.Context) {
	res, err := s.jobs.Result(c.Request.Context(), c.Param("id"))
	if errors.Is(err, jobs.ErrJobNotFound) || errors.Is(err, jobs.ErrJobNotReady) {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not available"})
		return
	}
	if err != nil {
		logger.ErrorWithErr(c.Request.Context(), "Failed to read job result", err, "job_id", c.Param("id"))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read job result"})
		return
	}

	data, contentType, filename, err := s.reports.Build(res, c.DefaultQuery("format", s.format))
	if err != nil {
		badRequest(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}

func (s *Server) sp500(c *gin.Context) {
	if s.universe == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "universe source not configured"})
		return
	}
	tickers, err := s.universe.SP500(c.Request.Context())
	if err != nil {
		logger.ErrorWithErr(c.Request.Context(), "Failed to load S&P 500 constituents", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load S&P 500 constituents"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"index": "sp500", "count": len(tickers), "tickers": tickers})
}
