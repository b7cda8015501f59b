package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"homefront-backend/internal/config"
	"homefront-backend/internal/geocode"
	"homefront-backend/internal/model"
	"homefront-backend/internal/notify"
	"homefront-backend/internal/service"
	"homefront-backend/internal/storage"
)

func newFormsRouter(t *testing.T, geocoder *geocode.Client) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := storage.NewMemoryStorage()
	require.NoError(t, store.Init())

	// The notifier posts nowhere; every channel is unconfigured.
	notifier := notify.NewNotifier(config.NotifyConfig{Timeout: time.Second})
	leadService := service.NewLeadService(store, stubIngestor{}, notifier)
	h := NewFormsHandler(leadService, geocoder)

	router := gin.New()
	router.POST("/api/leads/submit", h.SubmitLead)
	router.POST("/api/forms/contact", h.SubmitContactForm)
	router.GET("/api/address/suggest", h.SuggestAddress)
	return router
}

func TestSubmitLeadEndpoint(t *testing.T) {
	router := newFormsRouter(t, geocode.NewClient(config.GeocodeConfig{Timeout: time.Second}))

	w := postJSON(router, "/api/leads/submit", model.SubmitLeadRequest{
		SessionID: "sess-1",
		Contact: model.ContactDraft{
			Address:  "12 Oak St",
			FullName: "Pat Doe",
			Phone:    "(415) 555-2671",
			Email:    "pat@example.com",
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "req-1", resp["request_id"])
}

func TestSubmitLeadEndpoint_InvalidContact(t *testing.T) {
	router := newFormsRouter(t, geocode.NewClient(config.GeocodeConfig{Timeout: time.Second}))

	w := postJSON(router, "/api/leads/submit", model.SubmitLeadRequest{
		SessionID: "sess-1",
		Contact:   model.ContactDraft{FullName: "Pat Doe"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestSubmitContactFormEndpoint(t *testing.T) {
	router := newFormsRouter(t, geocode.NewClient(config.GeocodeConfig{Timeout: time.Second}))

	w := postJSON(router, "/api/forms/contact", model.ContactFormRequest{
		FullName: "Sam Lee",
		Phone:    "415-555-0100",
		Email:    "sam@example.com",
		Message:  "Quote please",
	})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestSuggestAddressEndpoint_DegradesToNull(t *testing.T) {
	// Unconfigured geocoder; the endpoint still answers.
	router := newFormsRouter(t, geocode.NewClient(config.GeocodeConfig{Timeout: time.Second}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/address/suggest?q=12+oak", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"address":null}`, w.Body.String())
}

func TestSuggestAddressEndpoint_MissingQuery(t *testing.T) {
	router := newFormsRouter(t, geocode.NewClient(config.GeocodeConfig{Timeout: time.Second}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/address/suggest", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
