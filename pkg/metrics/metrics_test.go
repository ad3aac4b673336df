package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, req)
	return w.Body.String()
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New("api")

	router := gin.New()
	router.Use(m.Middleware("api"))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	body := scrape(t, m)
	if !strings.Contains(body, "resumeparser_http_requests_total") {
		t.Error("Expected request counter in scrape output")
	}
	if !strings.Contains(body, `path="/health"`) {
		t.Error("Expected /health path label in scrape output")
	}
}

func TestRecordRun(t *testing.T) {
	m := New("api")

	m.RecordRun("api", "completed", 2*time.Second)
	m.RecordRun("api", "failed", time.Second)
	m.RecordRun("api", "", time.Second)

	body := scrape(t, m)
	if !strings.Contains(body, `status="completed"`) {
		t.Error("Expected completed run in scrape output")
	}
	if !strings.Contains(body, `status="failed"`) {
		t.Error("Expected failed run in scrape output")
	}
	if !strings.Contains(body, `status="unknown"`) {
		t.Error("Expected empty status to map to unknown")
	}
}

func TestRecordPollAttempts(t *testing.T) {
	m := New("api")

	m.RecordPollAttempts(3)
	m.RecordPollAttempts(0) // ignored

	body := scrape(t, m)
	if !strings.Contains(body, "resumeparser_pipeline_poll_attempts_count 1") {
		t.Error("Expected exactly one poll attempt observation")
	}
}

func TestRecordCollaboratorError(t *testing.T) {
	m := New("api")

	m.RecordCollaboratorError("api", "ner")
	m.RecordCollaboratorError("api", "")

	body := scrape(t, m)
	if !strings.Contains(body, `collaborator="ner"`) {
		t.Error("Expected ner collaborator label")
	}
	if !strings.Contains(body, `collaborator="unknown"`) {
		t.Error("Expected empty collaborator to map to unknown")
	}
}
