package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"homefront-backend/internal/geocode"
	"homefront-backend/internal/model"
	"homefront-backend/internal/service"
)

type FormsHandler struct {
	leadService *service.LeadService
	geocoder    *geocode.Client
}

func NewFormsHandler(leadService *service.LeadService, geocoder *geocode.Client) *FormsHandler {
	return &FormsHandler{
		leadService: leadService,
		geocoder:    geocoder,
	}
}

func (h *FormsHandler) SubmitLead(c *gin.Context) {
	var req model.SubmitLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	requestID, err := h.leadService.SubmitLead(c.Request.Context(), req.SessionID, req.Contact)
	if err != nil {
		if errors.Is(err, service.ErrInvalidLead) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Request submitted successfully",
		"request_id": requestID,
	})
}

func (h *FormsHandler) SubmitContactForm(c *gin.Context) {
	var req model.ContactFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.leadService.SubmitContactForm(c.Request.Context(), req); err != nil {
		if errors.Is(err, service.ErrInvalidLead) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Thanks! We'll be in touch soon."})
}

func (h *FormsHandler) SubmitBookingForm(c *gin.Context) {
	var req model.BookingFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.leadService.SubmitBookingForm(c.Request.Context(), req); err != nil {
		if errors.Is(err, service.ErrInvalidLead) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Booking received. We'll confirm your slot shortly."})
}

// SuggestAddress proxies the autocomplete collaborator. Failure degrades to
// no suggestion; the forms keep working with plain text.
func (h *FormsHandler) SuggestAddress(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}

	address, err := h.geocoder.Suggest(c.Request.Context(), query)
	if err != nil || address == nil {
		c.JSON(http.StatusOK, gin.H{"address": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{"address": address})
}
