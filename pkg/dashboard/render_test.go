package dashboard

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"backupmon/pkg/models"

	"github.com/stretchr/testify/suite"
)

// RendererTestSuite tests the text view
type RendererTestSuite struct {
	suite.Suite
	out      *bytes.Buffer
	renderer *Renderer
	now      time.Time
}

func (s *RendererTestSuite) SetupTest() {
	s.out = &bytes.Buffer{}
	s.renderer = NewRenderer(s.out, 2, false)
	s.renderer.loc = time.FixedZone("CST", 8*60*60)
	s.now = time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
	s.renderer.now = func() time.Time { return s.now }
}

func (s *RendererTestSuite) TestDefaultState() {
	s.renderer.Render(DefaultState())

	output := s.out.String()
	s.Contains(output, "Health: unknown")
	s.Contains(output, "Updated: never")
	s.Contains(output, "Backups (0 total)")
	s.Contains(output, "(no backups)")
	s.Contains(output, "Pages: [1]\n")
	s.Contains(output, "(no log entries)")
}

func (s *RendererTestSuite) TestSinglePageHasNoFurtherControls() {
	st := DefaultState()
	st.Health.Status = "ok"
	st.UpdatedAt = s.now.Add(-3 * time.Second)
	st.Backups = models.BackupPage{Total: 5, Page: 1, PageSize: 10, TotalPages: 1}
	for i := 0; i < 5; i++ {
		st.Backups.Items = append(st.Backups.Items, models.BackupRecord{
			Name:      "backup_2024010" + string(rune('1'+i)) + ".sql.gz",
			Size:      1536,
			CreatedAt: "2024-01-05T03:00:00Z",
		})
	}
	st.Logs = []models.LogEntry{
		models.TextLogEntry("first\n"),
		models.TextLogEntry("second\n"),
		models.TextLogEntry("third\n"),
	}

	s.renderer.Render(st)
	output := s.out.String()

	s.Contains(output, "Health: ok")
	s.Contains(output, "Updated: 3 seconds ago")
	s.Contains(output, "Backups (5 total)")
	s.Contains(output, "backup_20240101.sql.gz")
	s.Contains(output, "backup_20240105.sql.gz")
	s.Contains(output, "1.50 KB")
	s.Contains(output, "2024/1/5 11:00:00")
	s.Contains(output, "Pages: [1]\n")
	s.NotContains(output, "[2]")

	// Only the newest two log lines are shown.
	s.NotContains(output, "first")
	s.Contains(output, "  second\n")
	s.Contains(output, "  third\n")
}

func (s *RendererTestSuite) TestPaginationMarksCurrentPage() {
	s.Equal("Pages: 1 [2] 3", paginationLine(models.BackupPage{Page: 2, TotalPages: 3}))
	s.Equal("Pages: -", paginationLine(models.BackupPage{Page: 1, TotalPages: 0}))
	s.Equal("Pages: 1 2 3 [4] 5 6 7", paginationLine(models.BackupPage{Page: 4, TotalPages: 7}))
	s.Equal("Pages: [1] 2 3 4 ... 20", paginationLine(models.BackupPage{Page: 1, TotalPages: 20}))
	s.Equal("Pages: 1 ... 7 8 9 [10] 11 12 13 ... 20", paginationLine(models.BackupPage{Page: 10, TotalPages: 20}))
	s.Equal("Pages: 1 ... 17 18 19 [20]", paginationLine(models.BackupPage{Page: 20, TotalPages: 20}))
}

func (s *RendererTestSuite) TestPaginationLineWithHugePageCount() {
	line := paginationLine(models.BackupPage{Page: 500, TotalPages: 1_000_000_000})

	s.Equal("Pages: 1 ... 497 498 499 [500] 501 502 503 ... 1000000000", line)
}

func (s *RendererTestSuite) TestPaginationLineWithPageBeyondTotal() {
	s.Equal("Pages: 1 ... 7 8 9 10", paginationLine(models.BackupPage{Page: 50, TotalPages: 10}))
}

func (s *RendererTestSuite) TestClearScreen() {
	renderer := NewRenderer(s.out, 0, true)
	renderer.Render(DefaultState())

	s.True(strings.HasPrefix(s.out.String(), clearScreen))
	s.Equal(DefaultLogLines, renderer.logLines)
}

func TestRendererSuite(t *testing.T) {
	suite.Run(t, new(RendererTestSuite))
}
