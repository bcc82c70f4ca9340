// Package dispatch implements the notification dispatch pipeline:
// recipient checks, tenant/template resolution, placeholder
// validation and resolution, per-recipient delivery persistence,
// and retry of failed deliveries.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"notification-service/internal/common/errors"
	"notification-service/internal/common/logger"
	"notification-service/internal/common/metrics"
	"notification-service/internal/models"
	"notification-service/internal/tagging"
)

// TenantStore resolves the calling tenant.
type TenantStore interface {
	FindByAPIKey(ctx context.Context, apiKey string) (*models.Tenant, error)
}

// TemplateStore resolves the template being dispatched.
type TemplateStore interface {
	FindByID(ctx context.Context, id int64) (*models.Template, error)
}

// TagStore resolves a template's declared tag set.
type TagStore interface {
	FindByTemplateID(ctx context.Context, templateID int64) ([]models.TemplateTag, error)
}

// NotificationStore persists delivery records.
type NotificationStore interface {
	Create(ctx context.Context, record *models.DeliveryRecord) (*models.DeliveryRecord, error)
	UpdateOutcome(ctx context.Context, record *models.DeliveryRecord) (*models.DeliveryRecord, error)
	FindByID(ctx context.Context, id int64) (*models.DeliveryRecord, error)
}

type Service struct {
	tenants       TenantStore
	templates     TemplateStore
	tags          TagStore
	notifications NotificationStore
	sender        Sender
	log           logger.Logger
	maxBulk       int
}

func NewService(
	tenants TenantStore,
	templates TemplateStore,
	tags TagStore,
	notifications NotificationStore,
	sender Sender,
	log logger.Logger,
	maxBulk int,
) *Service {
	if sender == nil {
		sender = NewSimulatedSender()
	}
	return &Service{
		tenants:       tenants,
		templates:     templates,
		tags:          tags,
		notifications: notifications,
		sender:        sender,
		log:           log,
		maxBulk:       maxBulk,
	}
}

// ==========================
// 1. Single Send
// ==========================

// Send dispatches one template to one or more recipients sharing a
// single placeholder map. Precondition failures abort the whole call;
// failures inside the recipient loop only mark that recipient FAILED.
func (s *Service) Send(ctx context.Context, req SendRequest, actor string) (*DispatchSummary, error) {
	start := time.Now()
	defer func() {
		metrics.DispatchDuration.WithLabelValues("single").Observe(time.Since(start).Seconds())
	}()

	recipients, err := mergeRecipients(req.Recipient, req.Recipients)
	if err != nil {
		metrics.DispatchRequests.WithLabelValues("single", "rejected").Inc()
		return nil, err
	}

	tenant, template, declaredTags, err := s.resolveAndCheck(ctx, req.APIKey, req.TemplateID)
	if err != nil {
		metrics.DispatchRequests.WithLabelValues("single", "rejected").Inc()
		return nil, err
	}

	// Placeholders are shared across all recipients here, so a tag
	// failure aborts before any record is written.
	if err := tagging.Validate(declaredTags, req.Placeholders); err != nil {
		metrics.DispatchRequests.WithLabelValues("single", "rejected").Inc()
		return nil, err
	}

	summary := s.deliverAll(ctx, tenant, template, actor, recipients, nil, func(string) map[string]interface{} {
		return req.Placeholders
	})

	metrics.DispatchRequests.WithLabelValues("single", summary.Status).Inc()
	s.log.Info("dispatch completed", map[string]interface{}{
		"tenant_id":   tenant.ID,
		"template_id": template.ID,
		"mode":        "single",
		"status":      summary.Status,
		"success":     summary.SuccessCount,
		"failure":     summary.FailureCount,
	})
	return summary, nil
}

// ==========================
// 2. Bulk Send
// ==========================

// SendBulk dispatches one template to many recipients, each with its
// own placeholder map merged over the global one. The whole batch is
// validated before any record is persisted; one bad recipient fails
// the entire call.
func (s *Service) SendBulk(ctx context.Context, req BulkSendRequest, actor string) (*DispatchSummary, error) {
	start := time.Now()
	defer func() {
		metrics.DispatchDuration.WithLabelValues("bulk").Observe(time.Since(start).Seconds())
	}()

	if len(req.Recipients) == 0 {
		metrics.DispatchRequests.WithLabelValues("bulk", "rejected").Inc()
		return nil, errors.NewNoRecipientsError()
	}
	if s.maxBulk > 0 && len(req.Recipients) > s.maxBulk {
		metrics.DispatchRequests.WithLabelValues("bulk", "rejected").Inc()
		return nil, errors.NewInvalidRequestError(
			fmt.Sprintf("Bulk request exceeds the maximum of %d recipients", s.maxBulk))
	}

	emails := make([]string, 0, len(req.Recipients))
	for _, r := range req.Recipients {
		emails = append(emails, r.Email)
	}
	recipients, err := checkRecipients(emails)
	if err != nil {
		metrics.DispatchRequests.WithLabelValues("bulk", "rejected").Inc()
		return nil, err
	}

	tenant, template, declaredTags, err := s.resolveAndCheck(ctx, req.APIKey, req.TemplateID)
	if err != nil {
		metrics.DispatchRequests.WithLabelValues("bulk", "rejected").Inc()
		return nil, err
	}

	// Pre-validation pass: a tag failure for any recipient is a
	// precondition failure for the whole batch.
	merged := make(map[string]map[string]interface{}, len(req.Recipients))
	for i, r := range req.Recipients {
		placeholders := mergePlaceholders(req.GlobalPlaceholders, r.Placeholders)
		if err := tagging.Validate(declaredTags, placeholders); err != nil {
			metrics.DispatchRequests.WithLabelValues("bulk", "rejected").Inc()
			appErr := errors.AsAppError(err)
			appErr.Details = fmt.Sprintf("Recipient '%s': %s", r.Email, appErr.Details)
			return nil, appErr
		}
		merged[recipients[i]] = placeholders
	}

	// The dispatch pass re-checks each recipient's tags defensively;
	// a failure at this point downgrades to a FAILED record instead
	// of aborting the batch.
	revalidate := func(placeholders map[string]interface{}) error {
		return tagging.Validate(declaredTags, placeholders)
	}
	summary := s.deliverAll(ctx, tenant, template, actor, recipients, revalidate, func(recipient string) map[string]interface{} {
		return merged[recipient]
	})

	metrics.DispatchRequests.WithLabelValues("bulk", summary.Status).Inc()
	s.log.Info("dispatch completed", map[string]interface{}{
		"tenant_id":   tenant.ID,
		"template_id": template.ID,
		"mode":        "bulk",
		"status":      summary.Status,
		"success":     summary.SuccessCount,
		"failure":     summary.FailureCount,
	})
	return summary, nil
}

// ==========================
// 3. Retry
// ==========================

// Retry re-attempts a FAILED delivery. The retry counter always
// advances; success moves the record to SENT and clears the error,
// failure keeps it FAILED with the new error message.
func (s *Service) Retry(ctx context.Context, notificationID int64, actor string) (*RetryResult, error) {
	record, err := s.notifications.FindByID(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, errors.NewNotificationNotFoundError(notificationID)
	}
	if record.Status != models.DeliveryFailed {
		return nil, errors.NewRetryNotPermittedError()
	}

	record.RetryCount++
	record.UpdatedBy = normalizeActor(actor)

	message := "Notification sent successfully on retry"
	if sendErr := s.sender.Send(ctx, record.Recipient, record.Subject, record.Body); sendErr != nil {
		record.Status = models.DeliveryFailed
		record.ErrorMessage = "Retry failed: " + sendErr.Error()
		message = "Notification retry failed"
		metrics.RetryAttempts.WithLabelValues("failed").Inc()
	} else {
		record.Status = models.DeliverySent
		record.ErrorMessage = ""
		metrics.RetryAttempts.WithLabelValues("sent").Inc()
	}

	updated, err := s.notifications.UpdateOutcome(ctx, record)
	if err != nil {
		return nil, err
	}

	s.log.Info("delivery retried", map[string]interface{}{
		"notification_id": updated.ID,
		"status":          updated.Status,
		"retry_count":     updated.RetryCount,
	})
	return &RetryResult{
		NotificationID: updated.ID,
		Status:         updated.Status,
		RetryCount:     updated.RetryCount,
		Message:        message,
	}, nil
}

// ==========================
// 4. Shared Pipeline Steps
// ==========================

func (s *Service) resolveAndCheck(ctx context.Context, apiKey string, templateID int64) (*models.Tenant, *models.Template, []models.TemplateTag, error) {
	tenant, err := s.tenants.FindByAPIKey(ctx, apiKey)
	if err != nil {
		return nil, nil, nil, err
	}
	if tenant == nil {
		return nil, nil, nil, errors.NewInvalidAPIKeyError()
	}

	template, err := s.templates.FindByID(ctx, templateID)
	if err != nil {
		return nil, nil, nil, err
	}
	if template == nil {
		return nil, nil, nil, errors.NewTemplateNotFoundError(templateID)
	}
	if template.TenantID != tenant.ID {
		return nil, nil, nil, errors.NewTemplateNotOwnedError(templateID)
	}

	if tenant.Status != models.TenantActive {
		return nil, nil, nil, errors.NewTenantInactiveError(tenant.Status)
	}
	if template.Status != models.TemplateActive {
		return nil, nil, nil, errors.NewTemplateInactiveError(template.Status)
	}

	declaredTags, err := s.tags.FindByTemplateID(ctx, template.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	return tenant, template, declaredTags, nil
}

// deliverAll runs the per-recipient loop. Each recipient resolves and
// persists independently; a failure becomes a FAILED record and the
// loop continues.
func (s *Service) deliverAll(
	ctx context.Context,
	tenant *models.Tenant,
	template *models.Template,
	actor string,
	recipients []string,
	revalidate func(placeholders map[string]interface{}) error,
	placeholdersFor func(recipient string) map[string]interface{},
) *DispatchSummary {
	actor = normalizeActor(actor)
	summary := &DispatchSummary{
		TotalRecipients:      len(recipients),
		SuccessfulRecipients: []string{},
		FailedRecipients:     []string{},
	}

	for _, recipient := range recipients {
		placeholders := placeholdersFor(recipient)
		subject := tagging.Resolve(template.Subject, placeholders)
		body := tagging.Resolve(template.Body, placeholders)

		record := &models.DeliveryRecord{
			TenantID:   tenant.ID,
			TemplateID: template.ID,
			Recipient:  recipient,
			Subject:    subject,
			Body:       body,
			Status:     models.DeliverySent,
			CreatedBy:  actor,
			UpdatedBy:  actor,
		}

		if revalidate != nil {
			if err := revalidate(placeholders); err != nil {
				s.persistFailure(ctx, record, err)
				summary.FailedRecipients = append(summary.FailedRecipients, recipient)
				continue
			}
		}

		if err := s.sender.Send(ctx, recipient, subject, body); err != nil {
			s.persistFailure(ctx, record, err)
			summary.FailedRecipients = append(summary.FailedRecipients, recipient)
			continue
		}

		if _, err := s.notifications.Create(ctx, record); err != nil {
			s.persistFailure(ctx, record, err)
			summary.FailedRecipients = append(summary.FailedRecipients, recipient)
			continue
		}

		metrics.DeliveriesPersisted.WithLabelValues(models.DeliverySent).Inc()
		summary.SuccessfulRecipients = append(summary.SuccessfulRecipients, recipient)
	}

	summary.SuccessCount = len(summary.SuccessfulRecipients)
	summary.FailureCount = len(summary.FailedRecipients)
	if summary.FailureCount == 0 {
		summary.Status = StatusSuccess
		summary.Message = "All notifications sent successfully"
	} else {
		summary.Status = StatusPartialSuccess
		summary.Message = fmt.Sprintf("%d of %d notifications sent", summary.SuccessCount, summary.TotalRecipients)
	}
	return summary
}

// persistFailure records a FAILED delivery, keeping whatever subject
// and body were resolved before the failure.
func (s *Service) persistFailure(ctx context.Context, record *models.DeliveryRecord, cause error) {
	record.Status = models.DeliveryFailed
	record.ErrorMessage = cause.Error()

	if _, err := s.notifications.Create(ctx, record); err != nil {
		s.log.Error("failed to persist FAILED delivery record", map[string]interface{}{
			"tenant_id":   record.TenantID,
			"template_id": record.TemplateID,
			"recipient":   record.Recipient,
			"error":       err.Error(),
		})
		return
	}
	metrics.DeliveriesPersisted.WithLabelValues(models.DeliveryFailed).Inc()
}

// ==========================
// 5. Recipient Handling
// ==========================

// mergeRecipients combines the single recipient field with the
// recipient list, preserving order, then applies syntax and
// duplicate checks. A blank recipient field decodes the same as an
// omitted one, so it is treated as absent rather than rejected; a
// blank entry inside the list still fails the syntax check.
func mergeRecipients(recipient string, recipients []string) ([]string, error) {
	var combined []string
	if strings.TrimSpace(recipient) != "" {
		combined = append(combined, recipient)
	}
	combined = append(combined, recipients...)
	return checkRecipients(combined)
}

func checkRecipients(emails []string) ([]string, error) {
	if len(emails) == 0 {
		return nil, errors.NewNoRecipientsError()
	}

	seen := make(map[string]struct{}, len(emails))
	normalized := make([]string, 0, len(emails))
	for _, email := range emails {
		addr := normalizeEmail(email)
		if !isValidEmail(addr) {
			return nil, errors.NewInvalidRecipientError(email)
		}
		if _, dup := seen[addr]; dup {
			return nil, errors.NewDuplicateRecipientError()
		}
		seen[addr] = struct{}{}
		normalized = append(normalized, addr)
	}
	return normalized, nil
}

// mergePlaceholders overlays personal values on global ones.
func mergePlaceholders(global, personal map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(global)+len(personal))
	for k, v := range global {
		merged[k] = v
	}
	for k, v := range personal {
		merged[k] = v
	}
	return merged
}

func normalizeActor(actor string) string {
	if strings.TrimSpace(actor) == "" {
		return "SYSTEM"
	}
	return actor
}
