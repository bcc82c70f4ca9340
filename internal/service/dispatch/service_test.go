package dispatch

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notification-service/internal/common/errors"
	"notification-service/internal/common/logger"
	"notification-service/internal/models"
)

// ==========================
// 1. Mocks
// ==========================

type MockTenantStore struct {
	FindByAPIKeyFunc func(ctx context.Context, apiKey string) (*models.Tenant, error)
}

func (m *MockTenantStore) FindByAPIKey(ctx context.Context, apiKey string) (*models.Tenant, error) {
	return m.FindByAPIKeyFunc(ctx, apiKey)
}

type MockTemplateStore struct {
	FindByIDFunc func(ctx context.Context, id int64) (*models.Template, error)
}

func (m *MockTemplateStore) FindByID(ctx context.Context, id int64) (*models.Template, error) {
	return m.FindByIDFunc(ctx, id)
}

type MockTagStore struct {
	FindByTemplateIDFunc func(ctx context.Context, templateID int64) ([]models.TemplateTag, error)
}

func (m *MockTagStore) FindByTemplateID(ctx context.Context, templateID int64) ([]models.TemplateTag, error) {
	return m.FindByTemplateIDFunc(ctx, templateID)
}

type MockNotificationStore struct {
	CreateFunc        func(ctx context.Context, record *models.DeliveryRecord) (*models.DeliveryRecord, error)
	UpdateOutcomeFunc func(ctx context.Context, record *models.DeliveryRecord) (*models.DeliveryRecord, error)
	FindByIDFunc      func(ctx context.Context, id int64) (*models.DeliveryRecord, error)

	created []models.DeliveryRecord
}

func (m *MockNotificationStore) Create(ctx context.Context, record *models.DeliveryRecord) (*models.DeliveryRecord, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, record)
	}
	m.created = append(m.created, *record)
	saved := *record
	saved.ID = int64(len(m.created))
	return &saved, nil
}

func (m *MockNotificationStore) UpdateOutcome(ctx context.Context, record *models.DeliveryRecord) (*models.DeliveryRecord, error) {
	if m.UpdateOutcomeFunc != nil {
		return m.UpdateOutcomeFunc(ctx, record)
	}
	saved := *record
	return &saved, nil
}

func (m *MockNotificationStore) FindByID(ctx context.Context, id int64) (*models.DeliveryRecord, error) {
	return m.FindByIDFunc(ctx, id)
}

// ==========================
// 2. Fixtures
// ==========================

func activeTenant() *models.Tenant {
	return &models.Tenant{ID: 7, Name: "acme", APIKey: "key-123", Status: models.TenantActive}
}

func activeTemplate() *models.Template {
	return &models.Template{
		ID:       3,
		TenantID: 7,
		Name:     "welcome",
		Subject:  "Hello {{name}}",
		Body:     "Hi {{name}}, total {{price}}",
		Status:   models.TemplateActive,
	}
}

func welcomeTags() []models.TemplateTag {
	return []models.TemplateTag{
		{Name: "name", Datatype: models.DatatypeString},
		{Name: "price", Datatype: models.DatatypeNumber},
	}
}

func newTestService(notifications *MockNotificationStore, sender Sender) *Service {
	tenants := &MockTenantStore{
		FindByAPIKeyFunc: func(ctx context.Context, apiKey string) (*models.Tenant, error) {
			if apiKey == "key-123" {
				return activeTenant(), nil
			}
			return nil, nil
		},
	}
	templates := &MockTemplateStore{
		FindByIDFunc: func(ctx context.Context, id int64) (*models.Template, error) {
			if id == 3 {
				return activeTemplate(), nil
			}
			return nil, nil
		},
	}
	tags := &MockTagStore{
		FindByTemplateIDFunc: func(ctx context.Context, templateID int64) ([]models.TemplateTag, error) {
			return welcomeTags(), nil
		},
	}
	return NewService(tenants, templates, tags, notifications, sender, logger.NewNoOpLogger(), 500)
}

func validPlaceholders() map[string]interface{} {
	return map[string]interface{}{"name": "Ann", "price": float64(5)}
}

// ==========================
// 3. Single Send Tests
// ==========================

func TestSend_AllRecipientsSucceed(t *testing.T) {
	store := &MockNotificationStore{}
	svc := newTestService(store, nil)

	summary, err := svc.Send(context.Background(), SendRequest{
		APIKey:       "key-123",
		TemplateID:   3,
		Recipients:   []string{"a@example.com", "b@example.com"},
		Placeholders: validPlaceholders(),
	}, "tester")
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, summary.Status)
	assert.Equal(t, 2, summary.TotalRecipients)
	assert.Equal(t, 2, summary.SuccessCount)
	assert.Equal(t, 0, summary.FailureCount)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, summary.SuccessfulRecipients)

	require.Len(t, store.created, 2)
	assert.Equal(t, "Hello Ann", store.created[0].Subject)
	assert.Equal(t, "Hi Ann, total 5", store.created[0].Body)
	assert.Equal(t, models.DeliverySent, store.created[0].Status)
	assert.Equal(t, "tester", store.created[0].CreatedBy)
}

func TestSend_PartialFailurePersistsEveryRecord(t *testing.T) {
	store := &MockNotificationStore{}
	sender := SenderFunc(func(ctx context.Context, recipient, subject, body string) error {
		if recipient == "b@example.com" {
			return fmt.Errorf("smtp timeout")
		}
		return nil
	})
	svc := newTestService(store, sender)

	summary, err := svc.Send(context.Background(), SendRequest{
		APIKey:       "key-123",
		TemplateID:   3,
		Recipients:   []string{"a@example.com", "b@example.com", "c@example.com"},
		Placeholders: validPlaceholders(),
	}, "")
	require.NoError(t, err)

	assert.Equal(t, StatusPartialSuccess, summary.Status)
	assert.Equal(t, 3, summary.TotalRecipients)
	assert.Equal(t, 2, summary.SuccessCount)
	assert.Equal(t, 1, summary.FailureCount)
	assert.Equal(t, []string{"b@example.com"}, summary.FailedRecipients)

	require.Len(t, store.created, 3)
	var failed *models.DeliveryRecord
	for i := range store.created {
		if store.created[i].Status == models.DeliveryFailed {
			failed = &store.created[i]
		}
	}
	require.NotNil(t, failed)
	assert.Equal(t, "b@example.com", failed.Recipient)
	assert.Equal(t, "smtp timeout", failed.ErrorMessage)
	// Resolved content survives into the FAILED record.
	assert.Equal(t, "Hi Ann, total 5", failed.Body)
	// Blank actor falls back to the system identity.
	assert.Equal(t, "SYSTEM", failed.CreatedBy)
}

func TestSend_SingleRecipientFieldMergedWithList(t *testing.T) {
	store := &MockNotificationStore{}
	svc := newTestService(store, nil)

	summary, err := svc.Send(context.Background(), SendRequest{
		APIKey:       "key-123",
		TemplateID:   3,
		Recipient:    "first@example.com",
		Recipients:   []string{"second@example.com"},
		Placeholders: validPlaceholders(),
	}, "tester")
	require.NoError(t, err)
	assert.Equal(t, []string{"first@example.com", "second@example.com"}, summary.SuccessfulRecipients)
}

func TestSend_BlankRecipientFieldTreatedAsAbsent(t *testing.T) {
	// A blank recipient field is indistinguishable from an omitted one
	// after JSON decoding, so the list alone drives the send.
	store := &MockNotificationStore{}
	svc := newTestService(store, nil)

	summary, err := svc.Send(context.Background(), SendRequest{
		APIKey:       "key-123",
		TemplateID:   3,
		Recipient:    "   ",
		Recipients:   []string{"only@example.com"},
		Placeholders: validPlaceholders(),
	}, "tester")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalRecipients)
	assert.Equal(t, []string{"only@example.com"}, summary.SuccessfulRecipients)
}

func TestSend_PreconditionFailures(t *testing.T) {
	tests := []struct {
		name         string
		req          SendRequest
		expectedCode errors.ErrorCode
		expectedKind errors.Kind
	}{
		{
			name: "empty recipient list",
			req: SendRequest{
				APIKey: "key-123", TemplateID: 3,
				Placeholders: validPlaceholders(),
			},
			expectedCode: errors.ErrCodeNoRecipients,
			expectedKind: errors.KindValidation,
		},
		{
			name: "malformed email",
			req: SendRequest{
				APIKey: "key-123", TemplateID: 3,
				Recipients:   []string{"not-an-email"},
				Placeholders: validPlaceholders(),
			},
			expectedCode: errors.ErrCodeInvalidRecipient,
			expectedKind: errors.KindValidation,
		},
		{
			name: "duplicate after normalization",
			req: SendRequest{
				APIKey: "key-123", TemplateID: 3,
				Recipients:   []string{"a@example.com", "A@Example.COM"},
				Placeholders: validPlaceholders(),
			},
			expectedCode: errors.ErrCodeDuplicateRecipient,
			expectedKind: errors.KindValidation,
		},
		{
			name: "unknown api key",
			req: SendRequest{
				APIKey: "wrong", TemplateID: 3,
				Recipients:   []string{"a@example.com"},
				Placeholders: validPlaceholders(),
			},
			expectedCode: errors.ErrCodeInvalidAPIKey,
			expectedKind: errors.KindAuthentication,
		},
		{
			name: "template not found",
			req: SendRequest{
				APIKey: "key-123", TemplateID: 99,
				Recipients:   []string{"a@example.com"},
				Placeholders: validPlaceholders(),
			},
			expectedCode: errors.ErrCodeTemplateNotFound,
			expectedKind: errors.KindNotFound,
		},
		{
			name: "missing tag aborts before any record",
			req: SendRequest{
				APIKey: "key-123", TemplateID: 3,
				Recipients:   []string{"a@example.com"},
				Placeholders: map[string]interface{}{"name": "Ann"},
			},
			expectedCode: errors.ErrCodeTagValidationFailed,
			expectedKind: errors.KindValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &MockNotificationStore{}
			svc := newTestService(store, nil)

			summary, err := svc.Send(context.Background(), tt.req, "tester")
			require.Error(t, err)
			assert.Nil(t, summary)

			appErr := errors.AsAppError(err)
			assert.Equal(t, tt.expectedCode, appErr.Code)
			assert.Equal(t, tt.expectedKind, appErr.Kind)
			assert.Empty(t, store.created, "precondition failures must not persist records")
		})
	}
}

func TestSend_CrossTenantTemplateRejected(t *testing.T) {
	store := &MockNotificationStore{}
	svc := newTestService(store, nil)
	svc.templates = &MockTemplateStore{
		FindByIDFunc: func(ctx context.Context, id int64) (*models.Template, error) {
			tmpl := activeTemplate()
			tmpl.TenantID = 99
			return tmpl, nil
		},
	}

	_, err := svc.Send(context.Background(), SendRequest{
		APIKey: "key-123", TemplateID: 3,
		Recipients:   []string{"a@example.com"},
		Placeholders: validPlaceholders(),
	}, "tester")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeTemplateNotOwned, errors.AsAppError(err).Code)
	assert.Equal(t, errors.KindAuthentication, errors.KindOf(err))
}

func TestSend_InactiveTemplateRejected(t *testing.T) {
	store := &MockNotificationStore{}
	svc := newTestService(store, nil)
	svc.templates = &MockTemplateStore{
		FindByIDFunc: func(ctx context.Context, id int64) (*models.Template, error) {
			tmpl := activeTemplate()
			tmpl.Status = models.TemplateDraft
			return tmpl, nil
		},
	}

	_, err := svc.Send(context.Background(), SendRequest{
		APIKey: "key-123", TemplateID: 3,
		Recipients:   []string{"a@example.com"},
		Placeholders: validPlaceholders(),
	}, "tester")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeTemplateInactive, errors.AsAppError(err).Code)
	assert.Equal(t, errors.KindState, errors.KindOf(err))
	assert.Empty(t, store.created)
}

// ==========================
// 4. Bulk Send Tests
// ==========================

func TestSendBulk_PersonalOverridesGlobal(t *testing.T) {
	store := &MockNotificationStore{}
	svc := newTestService(store, nil)

	summary, err := svc.SendBulk(context.Background(), BulkSendRequest{
		APIKey:     "key-123",
		TemplateID: 3,
		Recipients: []BulkRecipient{
			{Email: "a@example.com", Placeholders: map[string]interface{}{"name": "Ann"}},
			{Email: "b@example.com", Placeholders: map[string]interface{}{"name": "Bob", "price": float64(9)}},
		},
		GlobalPlaceholders: map[string]interface{}{"name": "Default", "price": float64(5)},
	}, "tester")
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, summary.Status)
	require.Len(t, store.created, 2)
	assert.Equal(t, "Hi Ann, total 5", store.created[0].Body)
	assert.Equal(t, "Hi Bob, total 9", store.created[1].Body)
}

func TestSendBulk_PreValidationFailureAbortsWholeBatch(t *testing.T) {
	store := &MockNotificationStore{}
	svc := newTestService(store, nil)

	summary, err := svc.SendBulk(context.Background(), BulkSendRequest{
		APIKey:     "key-123",
		TemplateID: 3,
		Recipients: []BulkRecipient{
			{Email: "a@example.com", Placeholders: validPlaceholders()},
			{Email: "b@example.com", Placeholders: map[string]interface{}{"name": "Bob"}},
		},
	}, "tester")
	require.Error(t, err)
	assert.Nil(t, summary)

	appErr := errors.AsAppError(err)
	assert.Equal(t, errors.ErrCodeTagValidationFailed, appErr.Code)
	assert.Contains(t, appErr.Details, "b@example.com")
	assert.Empty(t, store.created, "no record may be written when pre-validation fails")
}

func TestSendBulk_EmptyRecipientList(t *testing.T) {
	svc := newTestService(&MockNotificationStore{}, nil)

	_, err := svc.SendBulk(context.Background(), BulkSendRequest{
		APIKey:     "key-123",
		TemplateID: 3,
	}, "tester")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNoRecipients, errors.AsAppError(err).Code)
}

func TestSendBulk_ExceedsRecipientLimit(t *testing.T) {
	svc := newTestService(&MockNotificationStore{}, nil)
	svc.maxBulk = 2

	_, err := svc.SendBulk(context.Background(), BulkSendRequest{
		APIKey:     "key-123",
		TemplateID: 3,
		Recipients: []BulkRecipient{
			{Email: "a@example.com", Placeholders: validPlaceholders()},
			{Email: "b@example.com", Placeholders: validPlaceholders()},
			{Email: "c@example.com", Placeholders: validPlaceholders()},
		},
	}, "tester")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidRequest, errors.AsAppError(err).Code)
}

func TestSendBulk_DuplicateEmailsAcrossBatch(t *testing.T) {
	store := &MockNotificationStore{}
	svc := newTestService(store, nil)

	_, err := svc.SendBulk(context.Background(), BulkSendRequest{
		APIKey:     "key-123",
		TemplateID: 3,
		Recipients: []BulkRecipient{
			{Email: "a@example.com", Placeholders: validPlaceholders()},
			{Email: "a@example.com", Placeholders: validPlaceholders()},
		},
	}, "tester")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDuplicateRecipient, errors.AsAppError(err).Code)
	assert.Empty(t, store.created)
}

// ==========================
// 5. Retry Tests
// ==========================

func failedRecord() *models.DeliveryRecord {
	return &models.DeliveryRecord{
		ID:           11,
		TenantID:     7,
		TemplateID:   3,
		Recipient:    "a@example.com",
		Subject:      "Hello Ann",
		Body:         "Hi Ann, total 5",
		Status:       models.DeliveryFailed,
		ErrorMessage: "smtp timeout",
		RetryCount:   1,
	}
}

func TestRetry_FailedRecordTransitionsToSent(t *testing.T) {
	var updated *models.DeliveryRecord
	store := &MockNotificationStore{
		FindByIDFunc: func(ctx context.Context, id int64) (*models.DeliveryRecord, error) {
			return failedRecord(), nil
		},
		UpdateOutcomeFunc: func(ctx context.Context, record *models.DeliveryRecord) (*models.DeliveryRecord, error) {
			updated = record
			return record, nil
		},
	}
	svc := newTestService(store, nil)

	result, err := svc.Retry(context.Background(), 11, "operator")
	require.NoError(t, err)

	assert.Equal(t, models.DeliverySent, result.Status)
	assert.Equal(t, 2, result.RetryCount)
	require.NotNil(t, updated)
	assert.Empty(t, updated.ErrorMessage, "success must clear the previous error")
	assert.Equal(t, "operator", updated.UpdatedBy)
}

func TestRetry_FailedRecordStaysFailedOnSendError(t *testing.T) {
	var updated *models.DeliveryRecord
	store := &MockNotificationStore{
		FindByIDFunc: func(ctx context.Context, id int64) (*models.DeliveryRecord, error) {
			return failedRecord(), nil
		},
		UpdateOutcomeFunc: func(ctx context.Context, record *models.DeliveryRecord) (*models.DeliveryRecord, error) {
			updated = record
			return record, nil
		},
	}
	sender := SenderFunc(func(ctx context.Context, recipient, subject, body string) error {
		return fmt.Errorf("still unreachable")
	})
	svc := newTestService(store, sender)

	result, err := svc.Retry(context.Background(), 11, "")
	require.NoError(t, err)

	assert.Equal(t, models.DeliveryFailed, result.Status)
	assert.Equal(t, 2, result.RetryCount, "retry counter advances even on failure")
	require.NotNil(t, updated)
	assert.Equal(t, "Retry failed: still unreachable", updated.ErrorMessage)
}

func TestRetry_SentRecordRejected(t *testing.T) {
	updates := 0
	store := &MockNotificationStore{
		FindByIDFunc: func(ctx context.Context, id int64) (*models.DeliveryRecord, error) {
			record := failedRecord()
			record.Status = models.DeliverySent
			return record, nil
		},
		UpdateOutcomeFunc: func(ctx context.Context, record *models.DeliveryRecord) (*models.DeliveryRecord, error) {
			updates++
			return record, nil
		},
	}
	svc := newTestService(store, nil)

	_, err := svc.Retry(context.Background(), 11, "operator")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeRetryNotPermitted, errors.AsAppError(err).Code)
	assert.Equal(t, errors.KindState, errors.KindOf(err))
	assert.Zero(t, updates, "a rejected retry must not touch the record")
}

func TestRetry_UnknownRecord(t *testing.T) {
	store := &MockNotificationStore{
		FindByIDFunc: func(ctx context.Context, id int64) (*models.DeliveryRecord, error) {
			return nil, nil
		},
	}
	svc := newTestService(store, nil)

	_, err := svc.Retry(context.Background(), 404, "operator")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNotificationMissing, errors.AsAppError(err).Code)
}
