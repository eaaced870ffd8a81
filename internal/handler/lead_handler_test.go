package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carehero-care/portal-api/internal/middleware"
	"github.com/carehero-care/portal-api/internal/models"
	"github.com/carehero-care/portal-api/internal/service"
)

type leadRepoMock struct {
	listResp   []models.ClientLead
	listTotal  int
	listErr    error
	lastFilter models.LeadFilter
	created    []*models.ClientLead
}

func (m *leadRepoMock) List(ctx context.Context, filter models.LeadFilter) ([]models.ClientLead, int, error) {
	m.lastFilter = filter
	return m.listResp, m.listTotal, m.listErr
}

func (m *leadRepoMock) FindByID(ctx context.Context, id string) (*models.ClientLead, error) {
	for i := range m.listResp {
		if m.listResp[i].ID == id {
			return &m.listResp[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *leadRepoMock) Create(ctx context.Context, lead *models.ClientLead) error {
	m.created = append(m.created, lead)
	return nil
}

func (m *leadRepoMock) Update(ctx context.Context, lead *models.ClientLead) error { return nil }
func (m *leadRepoMock) Delete(ctx context.Context, id string) error               { return nil }

func (m *leadRepoMock) StatusesByIDs(ctx context.Context, ids []string) (map[string]models.LeadStatus, error) {
	out := make(map[string]models.LeadStatus, len(ids))
	for _, lead := range m.listResp {
		out[lead.ID] = lead.LeadStatus
	}
	return out, nil
}

func (m *leadRepoMock) BulkUpdateStatus(ctx context.Context, ids []string, status models.LeadStatus) (int64, error) {
	return int64(len(ids)), nil
}

func (m *leadRepoMock) BulkDelete(ctx context.Context, ids []string) (int64, error) {
	return int64(len(ids)), nil
}

type auditRecorderMock struct{ actions []string }

func (m *auditRecorderMock) Record(ctx context.Context, actor service.Actor, action, tableName string, recordID string, oldValue, newValue interface{}) {
	m.actions = append(m.actions, action)
}

func newLeadHandler(repo *leadRepoMock) (*LeadHandler, *auditRecorderMock) {
	audits := &auditRecorderMock{}
	leads := service.NewLeadService(repo, audits, nil, nil, true)
	return NewLeadHandler(leads, nil), audits
}

func testContext(t *testing.T, method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var req *http.Request
	if body != nil {
		req, _ = http.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, target, nil)
	}
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "staff-1", Email: "staff@carehero.test"})
	return c, w
}

func TestLeadHandlerListPassesFilters(t *testing.T) {
	repo := &leadRepoMock{
		listResp:  []models.ClientLead{{ID: "lead-1", FirstName: "June", LeadStatus: models.LeadStatusNewInquiry}},
		listTotal: 1,
	}
	handler, _ := newLeadHandler(repo)

	c, w := testContext(t, http.MethodGet, "/leads?status=new_inquiry&county=Marion&page=2&limit=10", nil)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.LeadStatusNewInquiry, repo.lastFilter.Status)
	assert.Equal(t, "Marion", repo.lastFilter.County)
	assert.Equal(t, 2, repo.lastFilter.Page)
	assert.Equal(t, 10, repo.lastFilter.PageSize)

	var envelope struct {
		Pagination *models.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 2, envelope.Pagination.Page)
	assert.Equal(t, 1, envelope.Pagination.TotalCount)
}

func TestLeadHandlerCreate(t *testing.T) {
	repo := &leadRepoMock{}
	handler, audits := newLeadHandler(repo)

	payload, _ := json.Marshal(service.CreateLeadRequest{
		FirstName:       "June",
		LastName:        "Park",
		Phone:           "317-555-0101",
		County:          "Marion",
		ContactType:     "family_member",
		InsuranceStatus: "medicaid",
		InitialNeed:     "attendant_care",
		ReferralSource:  "cicoa",
	})
	c, w := testContext(t, http.MethodPost, "/leads", payload)
	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, repo.created, 1)
	assert.Equal(t, models.LeadStatusNewInquiry, repo.created[0].LeadStatus)
	assert.NotEmpty(t, audits.actions)
}

func TestLeadHandlerCreateInvalidBody(t *testing.T) {
	handler, _ := newLeadHandler(&leadRepoMock{})

	c, w := testContext(t, http.MethodPost, "/leads", []byte(`{"first_name":"June"`))
	handler.Create(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
}

func TestLeadHandlerGetNotFound(t *testing.T) {
	handler, _ := newLeadHandler(&leadRepoMock{})

	c, w := testContext(t, http.MethodGet, "/leads/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	handler.Get(c)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestLeadHandlerBulkStatus(t *testing.T) {
	repo := &leadRepoMock{
		listResp: []models.ClientLead{
			{ID: "lead-1", LeadStatus: models.LeadStatusNewInquiry},
			{ID: "lead-2", LeadStatus: models.LeadStatusNewInquiry},
		},
	}
	handler, _ := newLeadHandler(repo)

	payload, _ := json.Marshal(service.BulkLeadStatusRequest{
		IDs:    []string{"lead-1", "lead-2"},
		Status: string(models.LeadStatusContacted),
	})
	c, w := testContext(t, http.MethodPost, "/leads/bulk/status", payload)
	handler.BulkUpdateStatus(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data service.BulkResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, int64(2), envelope.Data.Affected)
}
