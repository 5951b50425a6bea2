package server

import (
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"backupmon/pkg/dashboard"
	"backupmon/pkg/store/dir"

	"github.com/stretchr/testify/suite"
)

// DashboardIntegrationTestSuite runs the dashboard against a real monitor server
type DashboardIntegrationTestSuite struct {
	suite.Suite
	root       string
	httpServer *httptest.Server
}

func (s *DashboardIntegrationTestSuite) SetupTest() {
	s.root = s.T().TempDir()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		path := filepath.Join(s.root, fmt.Sprintf("backup_2024010%d.sql.gz", i+1))
		s.Require().NoError(os.WriteFile(path, make([]byte, 1536*(i+1)), 0o600))
		modTime := base.Add(time.Duration(i) * time.Minute)
		s.Require().NoError(os.Chtimes(path, modTime, modTime))
	}
	s.Require().NoError(os.MkdirAll(filepath.Join(s.root, "logs"), 0o750))
	s.Require().NoError(os.WriteFile(filepath.Join(s.root, "logs", "backup_20240105.log"),
		[]byte("backup started\ndump written\nbackup finished\n"), 0o600))

	mon, err := NewMonitorServer(dir.New(s.root), "admin", "secret", 100)
	s.Require().NoError(err)
	s.httpServer = httptest.NewServer(mon)
}

func (s *DashboardIntegrationTestSuite) TearDownTest() {
	s.httpServer.Close()
}

func (s *DashboardIntegrationTestSuite) newDashboard(password string, pageSize int) *dashboard.Dashboard {
	client := dashboard.NewClient(s.httpServer.URL, "admin", password, 5*time.Second)
	return dashboard.New(client, time.Hour, pageSize, nil)
}

func (s *DashboardIntegrationTestSuite) TestFirstRefresh() {
	d := s.newDashboard("secret", 10)

	s.Require().NoError(d.FetchData(context.Background()))

	st := d.Snapshot()
	s.Equal("healthy", st.Health.Status)
	s.Equal(5, st.Backups.Total)
	s.Equal(1, st.Backups.Page)
	s.Equal(10, st.Backups.PageSize)
	s.Equal(1, st.Backups.TotalPages)
	s.Require().Len(st.Backups.Items, 5)
	s.Equal("backup_20240105.sql.gz", st.Backups.Items[0].Name)
	s.Require().Len(st.Logs, 3)
	s.Equal("backup finished", st.Logs[2].Text())

	// A single page offers nothing to move to.
	updatedAt := st.UpdatedAt
	s.NoError(d.ChangePage(context.Background(), 2))
	s.Equal(updatedAt, d.Snapshot().UpdatedAt)
}

func (s *DashboardIntegrationTestSuite) TestPaging() {
	d := s.newDashboard("secret", 2)
	s.Require().NoError(d.FetchData(context.Background()))
	s.Equal(3, d.Snapshot().Backups.TotalPages)

	s.Require().NoError(d.ChangePage(context.Background(), 3))

	st := d.Snapshot()
	s.Equal(3, st.Backups.Page)
	s.Require().Len(st.Backups.Items, 1)
	s.Equal("backup_20240101.sql.gz", st.Backups.Items[0].Name)
}

func (s *DashboardIntegrationTestSuite) TestWrongPasswordKeepsDefaults() {
	d := s.newDashboard("wrong", 10)

	s.Error(d.FetchData(context.Background()))
	s.Equal(dashboard.DefaultState().Health, d.Snapshot().Health)
}

func (s *DashboardIntegrationTestSuite) TestBackendGoneKeepsLastState() {
	d := s.newDashboard("secret", 10)
	s.Require().NoError(d.FetchData(context.Background()))
	before := d.Snapshot()

	s.httpServer.Close()

	s.Error(d.FetchData(context.Background()))
	s.Equal(before, d.Snapshot())
}

func TestDashboardIntegrationSuite(t *testing.T) {
	suite.Run(t, new(DashboardIntegrationTestSuite))
}
