package templates

import (
	"context"
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
	FindByIDFunc func(ctx context.Context, id int64) (*models.Tenant, error)
}

func (m *MockTenantStore) FindByID(ctx context.Context, id int64) (*models.Tenant, error) {
	return m.FindByIDFunc(ctx, id)
}

type MockTemplateStore struct {
	FindByIDFunc              func(ctx context.Context, id int64) (*models.Template, error)
	ExistsByTenantAndNameFunc func(ctx context.Context, tenantID int64, name string) (bool, error)
	CreateFunc                func(ctx context.Context, tmpl *models.Template) (*models.Template, error)
	UpdateFunc                func(ctx context.Context, tmpl *models.Template) (*models.Template, error)
	UpdateStatusFunc          func(ctx context.Context, id int64, status, actor string) error
	ListByTenantFunc          func(ctx context.Context, tenantID int64) ([]models.Template, error)
}

func (m *MockTemplateStore) FindByID(ctx context.Context, id int64) (*models.Template, error) {
	return m.FindByIDFunc(ctx, id)
}

func (m *MockTemplateStore) ExistsByTenantAndName(ctx context.Context, tenantID int64, name string) (bool, error) {
	return m.ExistsByTenantAndNameFunc(ctx, tenantID, name)
}

func (m *MockTemplateStore) Create(ctx context.Context, tmpl *models.Template) (*models.Template, error) {
	return m.CreateFunc(ctx, tmpl)
}

func (m *MockTemplateStore) Update(ctx context.Context, tmpl *models.Template) (*models.Template, error) {
	return m.UpdateFunc(ctx, tmpl)
}

func (m *MockTemplateStore) UpdateStatus(ctx context.Context, id int64, status, actor string) error {
	return m.UpdateStatusFunc(ctx, id, status, actor)
}

func (m *MockTemplateStore) ListByTenant(ctx context.Context, tenantID int64) ([]models.Template, error) {
	return m.ListByTenantFunc(ctx, tenantID)
}

type MockTagStore struct {
	FindByTemplateIDFunc func(ctx context.Context, templateID int64) ([]models.TemplateTag, error)
	ReplaceTagsFunc      func(ctx context.Context, templateID int64, names []string) error
	UpdateDatatypeFunc   func(ctx context.Context, templateID int64, name, datatype string) (bool, error)
}

func (m *MockTagStore) FindByTemplateID(ctx context.Context, templateID int64) ([]models.TemplateTag, error) {
	return m.FindByTemplateIDFunc(ctx, templateID)
}

func (m *MockTagStore) ReplaceTags(ctx context.Context, templateID int64, names []string) error {
	return m.ReplaceTagsFunc(ctx, templateID, names)
}

func (m *MockTagStore) UpdateDatatype(ctx context.Context, templateID int64, name, datatype string) (bool, error) {
	return m.UpdateDatatypeFunc(ctx, templateID, name, datatype)
}

// ==========================
// 2. Fixtures
// ==========================

func activeTenantStore() *MockTenantStore {
	return &MockTenantStore{
		FindByIDFunc: func(ctx context.Context, id int64) (*models.Tenant, error) {
			if id == 7 {
				return &models.Tenant{ID: 7, Name: "acme", Status: models.TenantActive}, nil
			}
			return nil, nil
		},
	}
}

func testLimits() Limits {
	return Limits{MaxSubjectLength: 255, MaxBodyLength: 10000}
}

// ==========================
// 3. Create Tests
// ==========================

func TestCreate_ExtractsTagsFromContent(t *testing.T) {
	var replaced []string
	store := &MockTemplateStore{
		ExistsByTenantAndNameFunc: func(ctx context.Context, tenantID int64, name string) (bool, error) {
			return false, nil
		},
		CreateFunc: func(ctx context.Context, tmpl *models.Template) (*models.Template, error) {
			saved := *tmpl
			saved.ID = 3
			return &saved, nil
		},
	}
	tags := &MockTagStore{
		ReplaceTagsFunc: func(ctx context.Context, templateID int64, names []string) error {
			replaced = names
			return nil
		},
	}
	svc := NewService(activeTenantStore(), store, tags, logger.NewNoOpLogger(), testLimits())

	created, err := svc.Create(context.Background(), 7, CreateRequest{
		Name:    "welcome",
		Subject: "Hello {{name}}",
		Body:    "<p>Hi {{name}}, your total is {{price}}</p>",
	}, "tester")
	require.NoError(t, err)

	assert.Equal(t, models.TemplateDraft, created.Status)
	assert.Equal(t, "tester", created.CreatedBy)
	assert.Equal(t, []string{"name", "price"}, replaced)
}

func TestCreate_WrapsPlainTextBody(t *testing.T) {
	store := &MockTemplateStore{
		ExistsByTenantAndNameFunc: func(ctx context.Context, tenantID int64, name string) (bool, error) {
			return false, nil
		},
		CreateFunc: func(ctx context.Context, tmpl *models.Template) (*models.Template, error) {
			saved := *tmpl
			saved.ID = 3
			return &saved, nil
		},
	}
	tags := &MockTagStore{
		ReplaceTagsFunc: func(ctx context.Context, templateID int64, names []string) error { return nil },
	}
	svc := NewService(activeTenantStore(), store, tags, logger.NewNoOpLogger(), testLimits())

	created, err := svc.Create(context.Background(), 7, CreateRequest{
		Name:    "welcome",
		Subject: "Hi",
		Body:    "Hello {{name}}\nSecond line\n\nNew paragraph",
	}, "tester")
	require.NoError(t, err)
	assert.Equal(t, "<p>Hello {{name}}<br>Second line</p><p>New paragraph</p>", created.Body)
}

func TestCreate_DuplicateNameRejected(t *testing.T) {
	store := &MockTemplateStore{
		ExistsByTenantAndNameFunc: func(ctx context.Context, tenantID int64, name string) (bool, error) {
			return true, nil
		},
	}
	svc := NewService(activeTenantStore(), store, &MockTagStore{}, logger.NewNoOpLogger(), testLimits())

	_, err := svc.Create(context.Background(), 7, CreateRequest{
		Name: "welcome", Subject: "Hi", Body: "Body",
	}, "tester")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDuplicateResource, errors.AsAppError(err).Code)
}

func TestCreate_UnknownTenant(t *testing.T) {
	svc := NewService(activeTenantStore(), &MockTemplateStore{}, &MockTagStore{}, logger.NewNoOpLogger(), testLimits())

	_, err := svc.Create(context.Background(), 99, CreateRequest{
		Name: "welcome", Subject: "Hi", Body: "Body",
	}, "tester")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeTenantNotFound, errors.AsAppError(err).Code)
}

func TestCreate_ContentLimitViolations(t *testing.T) {
	svc := NewService(activeTenantStore(), &MockTemplateStore{
		ExistsByTenantAndNameFunc: func(ctx context.Context, tenantID int64, name string) (bool, error) {
			return false, nil
		},
	}, &MockTagStore{}, logger.NewNoOpLogger(), Limits{MaxSubjectLength: 10, MaxBodyLength: 20})

	longSubject := "this subject is definitely too long"
	_, err := svc.Create(context.Background(), 7, CreateRequest{
		Name: "welcome", Subject: longSubject, Body: "ok",
	}, "tester")
	require.Error(t, err)

	appErr := errors.AsAppError(err)
	assert.Equal(t, errors.ErrCodeInvalidRequest, appErr.Code)
	assert.Contains(t, appErr.Details, "subject exceeds 10 characters")
}

// ==========================
// 4. Update Tests
// ==========================

func existingTemplate(status string) *models.Template {
	return &models.Template{
		ID: 3, TenantID: 7, Name: "welcome",
		Subject: "Hello {{name}}", Body: "<p>Hi {{name}}</p>", Status: status,
	}
}

func TestUpdate_ContentChangeRefreshesTags(t *testing.T) {
	var replaced []string
	store := &MockTemplateStore{
		FindByIDFunc: func(ctx context.Context, id int64) (*models.Template, error) {
			return existingTemplate(models.TemplateActive), nil
		},
		UpdateFunc: func(ctx context.Context, tmpl *models.Template) (*models.Template, error) {
			saved := *tmpl
			return &saved, nil
		},
	}
	tags := &MockTagStore{
		ReplaceTagsFunc: func(ctx context.Context, templateID int64, names []string) error {
			replaced = names
			return nil
		},
	}
	svc := NewService(activeTenantStore(), store, tags, logger.NewNoOpLogger(), testLimits())

	_, err := svc.Update(context.Background(), 7, 3, UpdateRequest{
		Body: "<p>Hi {{name}}, order {{orderId}} shipped</p>",
	}, "tester")
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "orderId"}, replaced)
}

func TestUpdate_NoContentChangeKeepsTags(t *testing.T) {
	replaceCalls := 0
	store := &MockTemplateStore{
		FindByIDFunc: func(ctx context.Context, id int64) (*models.Template, error) {
			return existingTemplate(models.TemplateActive), nil
		},
		ExistsByTenantAndNameFunc: func(ctx context.Context, tenantID int64, name string) (bool, error) {
			return false, nil
		},
		UpdateFunc: func(ctx context.Context, tmpl *models.Template) (*models.Template, error) {
			saved := *tmpl
			return &saved, nil
		},
	}
	tags := &MockTagStore{
		ReplaceTagsFunc: func(ctx context.Context, templateID int64, names []string) error {
			replaceCalls++
			return nil
		},
	}
	svc := NewService(activeTenantStore(), store, tags, logger.NewNoOpLogger(), testLimits())

	_, err := svc.Update(context.Background(), 7, 3, UpdateRequest{Name: "welcome-v2"}, "tester")
	require.NoError(t, err)
	assert.Zero(t, replaceCalls, "a rename must not rebuild the tag set")
}

func TestUpdate_ArchivedTemplateRejected(t *testing.T) {
	store := &MockTemplateStore{
		FindByIDFunc: func(ctx context.Context, id int64) (*models.Template, error) {
			return existingTemplate(models.TemplateArchived), nil
		},
	}
	svc := NewService(activeTenantStore(), store, &MockTagStore{}, logger.NewNoOpLogger(), testLimits())

	_, err := svc.Update(context.Background(), 7, 3, UpdateRequest{Subject: "New"}, "tester")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidOperation, errors.AsAppError(err).Code)
}

func TestUpdate_DeletedTemplateNotFound(t *testing.T) {
	store := &MockTemplateStore{
		FindByIDFunc: func(ctx context.Context, id int64) (*models.Template, error) {
			return existingTemplate(models.TemplateDeleted), nil
		},
	}
	svc := NewService(activeTenantStore(), store, &MockTagStore{}, logger.NewNoOpLogger(), testLimits())

	_, err := svc.Update(context.Background(), 7, 3, UpdateRequest{Subject: "New"}, "tester")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeTemplateNotFound, errors.AsAppError(err).Code)
}

// ==========================
// 5. Tag Datatype Tests
// ==========================

func TestUpdateTagDatatype(t *testing.T) {
	store := &MockTemplateStore{
		FindByIDFunc: func(ctx context.Context, id int64) (*models.Template, error) {
			return existingTemplate(models.TemplateActive), nil
		},
	}

	t.Run("valid datatype", func(t *testing.T) {
		tags := &MockTagStore{
			UpdateDatatypeFunc: func(ctx context.Context, templateID int64, name, datatype string) (bool, error) {
				assert.Equal(t, models.DatatypeNumber, datatype)
				return true, nil
			},
		}
		svc := NewService(activeTenantStore(), store, tags, logger.NewNoOpLogger(), testLimits())
		err := svc.UpdateTagDatatype(context.Background(), 7, 3, "price", models.DatatypeNumber, "tester")
		assert.NoError(t, err)
	})

	t.Run("unknown datatype", func(t *testing.T) {
		svc := NewService(activeTenantStore(), store, &MockTagStore{}, logger.NewNoOpLogger(), testLimits())
		err := svc.UpdateTagDatatype(context.Background(), 7, 3, "price", "DECIMAL", "tester")
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeInvalidRequest, errors.AsAppError(err).Code)
	})

	t.Run("unknown tag", func(t *testing.T) {
		tags := &MockTagStore{
			UpdateDatatypeFunc: func(ctx context.Context, templateID int64, name, datatype string) (bool, error) {
				return false, nil
			},
		}
		svc := NewService(activeTenantStore(), store, tags, logger.NewNoOpLogger(), testLimits())
		err := svc.UpdateTagDatatype(context.Background(), 7, 3, "ghost", models.DatatypeNumber, "tester")
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeTagNotFound, errors.AsAppError(err).Code)
	})
}

// ==========================
// 6. HTML Wrapping Tests
// ==========================

func TestEnsureHTML(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{
			name:     "html passes through",
			body:     "<p>Hello {{name}}</p>",
			expected: "<p>Hello {{name}}</p>",
		},
		{
			name:     "single line wrapped",
			body:     "Hello {{name}}",
			expected: "<p>Hello {{name}}</p>",
		},
		{
			name:     "line breaks become br",
			body:     "line one\nline two",
			expected: "<p>line one<br>line two</p>",
		},
		{
			name:     "blank line splits paragraphs",
			body:     "first\n\nsecond",
			expected: "<p>first</p><p>second</p>",
		},
		{
			name:     "windows line endings normalized",
			body:     "first\r\n\r\nsecond",
			expected: "<p>first</p><p>second</p>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EnsureHTML(tt.body))
		})
	}
}
