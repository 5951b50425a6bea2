package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"backupmon/pkg/models"

	"github.com/stretchr/testify/suite"
)

// ClientTestSuite tests the backend API client against a mock backend
type ClientTestSuite struct {
	suite.Suite
	mockServer *httptest.Server
	client     *Client
	lastQuery  chan string
}

func (s *ClientTestSuite) SetupSuite() {
	s.lastQuery = make(chan string, 16)
	s.mockServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "admin" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/health":
			json.NewEncoder(w).Encode(map[string]string{"status": "healthy", "timestamp": "2024-01-05T14:03:09"})
		case "/api/backups":
			s.lastQuery <- r.URL.RawQuery
			json.NewEncoder(w).Encode(models.BackupPage{
				Items: []models.BackupRecord{
					{Name: "backup_20240105.sql.gz", Size: 2048, CreatedAt: "2024-01-05T03:00:00"},
				},
				Total:      11,
				Page:       2,
				PageSize:   10,
				TotalPages: 2,
			})
		case "/api/logs":
			w.Write([]byte(`{"logs": ["line one\n", {"level": "info"}]}`))
		case "/api/broken":
			w.Write([]byte("not json"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	s.client = NewClient(s.mockServer.URL+"/", "admin", "secret", 5*time.Second)
}

func (s *ClientTestSuite) TearDownSuite() {
	if s.mockServer != nil {
		s.mockServer.Close()
	}
}

func (s *ClientTestSuite) TestHealth() {
	health, err := s.client.Health(context.Background())
	s.Require().NoError(err)
	s.Equal("healthy", health.Status)
	s.Equal("2024-01-05T14:03:09", health.Timestamp)
}

func (s *ClientTestSuite) TestBackupsSendsPagination() {
	page, err := s.client.Backups(context.Background(), 2, 10)
	s.Require().NoError(err)

	s.Equal("page=2&page_size=10", <-s.lastQuery)
	s.Equal(2, page.Page)
	s.Equal(2, page.TotalPages)
	s.Equal(11, page.Total)
	s.Require().Len(page.Items, 1)
	s.Equal("backup_20240105.sql.gz", page.Items[0].Name)
	s.Equal(int64(2048), page.Items[0].Size)
}

func (s *ClientTestSuite) TestLogsUnwrapsEntries() {
	logs, err := s.client.Logs(context.Background())
	s.Require().NoError(err)
	s.Require().Len(logs, 2)
	s.Equal("line one\n", logs[0].Text())
	s.JSONEq(`{"level": "info"}`, logs[1].Text())
}

func (s *ClientTestSuite) TestUnauthorized() {
	client := NewClient(s.mockServer.URL, "admin", "wrong", time.Second)

	_, err := client.Health(context.Background())
	s.Require().Error(err)

	var statusErr *StatusError
	s.Require().ErrorAs(err, &statusErr)
	s.Equal(http.StatusUnauthorized, statusErr.StatusCode)
	s.Equal("/api/health", statusErr.Endpoint)
}

func (s *ClientTestSuite) TestInvalidJSON() {
	var out map[string]interface{}
	err := s.client.getJSON(context.Background(), "/api/broken", nil, &out)
	s.Error(err)
	s.Contains(err.Error(), "decode /api/broken")
}

func (s *ClientTestSuite) TestUnreachableBackend() {
	client := NewClient("http://127.0.0.1:1", "", "", time.Second)
	_, err := client.Health(context.Background())
	s.Error(err)
}

func (s *ClientTestSuite) TestCancelledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.client.Health(ctx)
	s.ErrorIs(err, context.Canceled)
}

func (s *ClientTestSuite) TestStatusErrorMessage() {
	err := &StatusError{Endpoint: "/api/logs", StatusCode: http.StatusServiceUnavailable}
	s.Equal("backend /api/logs returned 503 Service Unavailable", err.Error())
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}
