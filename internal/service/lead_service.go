package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"homefront-backend/internal/model"
	"homefront-backend/internal/notify"
	"homefront-backend/internal/storage"
	"homefront-backend/pkg/logger"
)

// ErrInvalidLead marks validation failures on the final submission. It
// blocks only that action; chat keeps working with an incomplete draft.
var ErrInvalidLead = errors.New("invalid lead")

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Notifier fans a submitted request out to the side-channels.
type Notifier interface {
	SendSMS(ctx context.Context, to, body string) error
	SendMessenger(ctx context.Context, text string) error
	ExportDocument(ctx context.Context, doc notify.LeadDocument) error
}

// LeadService handles final request submission and the stateless page forms.
type LeadService struct {
	storage  storage.Storage
	ingestor Ingestor
	notifier Notifier
}

func NewLeadService(store storage.Storage, ingestor Ingestor, notifier Notifier) *LeadService {
	return &LeadService{
		storage:  store,
		ingestor: ingestor,
		notifier: notifier,
	}
}

// SubmitLead validates the contact draft, registers the request with backend
// storage, and fans out notifications. The backend call is the one failure
// that surfaces; notifications are fire-and-forget.
func (s *LeadService) SubmitLead(ctx context.Context, sessionID string, contact model.ContactDraft) (string, error) {
	if err := validateContact(contact); err != nil {
		return "", err
	}

	e164, err := NormalizePhone(contact.Phone)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidLead, err)
	}
	contact.PhoneE164 = e164

	var jobItems []model.JobLineItem
	if session, err := s.storage.GetSession(sessionID); err == nil {
		jobItems = session.JobItems
		session.Contact = contact
		if err := s.storage.UpdateSession(session); err != nil {
			logger.Warnf("Failed to persist contact for session %s: %v", sessionID, err)
		}
	}

	requestID, err := s.ingestor.EnsureRequest(ctx, sessionID, sourceTag)
	if err != nil {
		return "", fmt.Errorf("failed to register request: %w", err)
	}

	summary := leadSummary(contact, jobItems)
	if err := s.ingestor.IngestMessage(ctx, sessionID, model.SenderUser, summary, 0, nil); err != nil {
		logger.Warnf("Failed to mirror lead summary for session %s: %v", sessionID, err)
	}

	doc := notify.LeadDocument{
		SessionID: sessionID,
		Contact:   contact,
		JobItems:  jobItems,
		JobsTotal: model.JobsTotal(jobItems),
		Source:    sourceTag,
	}
	s.fanOut(contact, summary, doc)

	return requestID, nil
}

// SubmitContactForm handles the stateless contact page: validate, forward,
// acknowledge.
func (s *LeadService) SubmitContactForm(ctx context.Context, req model.ContactFormRequest) error {
	contact := model.ContactDraft{
		FullName: req.FullName,
		Phone:    req.Phone,
		Email:    req.Email,
	}
	if err := validateFormContact(contact); err != nil {
		return err
	}

	formID := "contact-form-" + uuid.NewString()
	if _, err := s.ingestor.EnsureRequest(ctx, formID, sourceTag); err != nil {
		return fmt.Errorf("failed to register contact form: %w", err)
	}

	content := fmt.Sprintf("Contact form from %s (%s, %s): %s",
		req.FullName, req.Phone, req.Email, req.Message)
	if err := s.ingestor.IngestMessage(ctx, formID, model.SenderUser, content, 0, nil); err != nil {
		logger.Warnf("Failed to mirror contact form %s: %v", formID, err)
	}

	s.fanOut(contact, content, notify.LeadDocument{
		SessionID: formID,
		Contact:   contact,
		Source:    sourceTag,
	})
	return nil
}

// SubmitBookingForm handles the stateless booking page.
func (s *LeadService) SubmitBookingForm(ctx context.Context, req model.BookingFormRequest) error {
	contact := model.ContactDraft{
		FullName: req.FullName,
		Phone:    req.Phone,
		Email:    req.Email,
		Address:  req.Address,
	}
	if err := validateFormContact(contact); err != nil {
		return err
	}

	formID := "booking-form-" + uuid.NewString()
	if _, err := s.ingestor.EnsureRequest(ctx, formID, sourceTag); err != nil {
		return fmt.Errorf("failed to register booking form: %w", err)
	}

	content := fmt.Sprintf("Booking request from %s (%s, %s) for %s on %s at %s: %s",
		req.FullName, req.Phone, req.Email, req.Service, req.PreferredDate, req.Address, req.Notes)
	if err := s.ingestor.IngestMessage(ctx, formID, model.SenderUser, content, 0, nil); err != nil {
		logger.Warnf("Failed to mirror booking form %s: %v", formID, err)
	}

	s.fanOut(contact, content, notify.LeadDocument{
		SessionID: formID,
		Contact:   contact,
		Source:    sourceTag,
	})
	return nil
}

// fanOut fires the side-channels; nothing here blocks or surfaces.
func (s *LeadService) fanOut(contact model.ContactDraft, summary string, doc notify.LeadDocument) {
	go func() {
		ctx := context.Background()

		if contact.SMSConsent && contact.PhoneE164 != "" {
			notify.BestEffort("sms", func() error {
				return s.notifier.SendSMS(ctx, contact.PhoneE164,
					"Thanks for your request! Our team will reach out shortly.")
			})
		}
		notify.BestEffort("messenger", func() error {
			return s.notifier.SendMessenger(ctx, summary)
		})
		notify.BestEffort("doc-export", func() error {
			return s.notifier.ExportDocument(ctx, doc)
		})
	}()
}

func validateContact(contact model.ContactDraft) error {
	if !contact.Complete() {
		return fmt.Errorf("%w: missing required contact fields", ErrInvalidLead)
	}
	if !emailPattern.MatchString(strings.TrimSpace(contact.Email)) {
		return fmt.Errorf("%w: malformed email", ErrInvalidLead)
	}
	return nil
}

func validateFormContact(contact model.ContactDraft) error {
	if strings.TrimSpace(contact.FullName) == "" ||
		strings.TrimSpace(contact.Phone) == "" {
		return fmt.Errorf("%w: missing required contact fields", ErrInvalidLead)
	}
	if !emailPattern.MatchString(strings.TrimSpace(contact.Email)) {
		return fmt.Errorf("%w: malformed email", ErrInvalidLead)
	}
	return nil
}

func leadSummary(contact model.ContactDraft, jobItems []model.JobLineItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Request submitted by %s, %s, %s, %s.",
		contact.FullName, contact.PhoneE164, contact.Email, contact.Address)
	if len(jobItems) > 0 {
		fmt.Fprintf(&b, " Jobs:")
		for _, item := range jobItems {
			fmt.Fprintf(&b, " %s ($%s);", item.Name, item.Price.StringFixed(2))
		}
		fmt.Fprintf(&b, " total $%s.", model.JobsTotal(jobItems).StringFixed(2))
	}
	return b.String()
}
