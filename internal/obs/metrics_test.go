package obs

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func scrape(t *testing.T) string {
	t.Helper()
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestInstrument_LabelsByRoute(t *testing.T) {
	Init()
	Init()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Instrument())
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, id := range []string{"1", "2"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/items/"+id, nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
	}

	body := scrape(t)
	assert.Contains(t, body, `http_requests_total{method="GET",route="/items/:id",status="204"} 2`)
	assert.Contains(t, body, "http_in_flight_requests 0")
}

func TestHandler_ExposesDomainMetrics(t *testing.T) {
	Init()
	DevicesRegistered.Inc()

	assert.Contains(t, scrape(t), "smarthome_devices_registered_total")
}
