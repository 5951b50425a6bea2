package dashboard

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"backupmon/pkg/format"
	"backupmon/pkg/models"

	"github.com/dustin/go-humanize"
)

const (
	// DefaultLogLines is how many of the newest log entries are shown.
	DefaultLogLines = 20

	clearScreen = "\033[H\033[2J"

	// Pages shown on each side of the current one before eliding.
	pageWindow = 3
)

// Renderer writes a text view of the dashboard state. Its Render method is a
// Listener.
type Renderer struct {
	mu       sync.Mutex
	out      io.Writer
	logLines int
	clear    bool
	loc      *time.Location
	now      func() time.Time
}

// NewRenderer creates a renderer writing to out. With clear set, every frame
// starts by clearing the terminal.
func NewRenderer(out io.Writer, logLines int, clear bool) *Renderer {
	if logLines <= 0 {
		logLines = DefaultLogLines
	}
	return &Renderer{
		out:      out,
		logLines: logLines,
		clear:    clear,
		loc:      time.Local,
		now:      time.Now,
	}
}

// Render draws one frame. Write errors are dropped; the next frame retries.
func (r *Renderer) Render(st State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	if r.clear {
		b.WriteString(clearScreen)
	}

	b.WriteString("Backup Monitor\n")
	fmt.Fprintf(&b, "Health: %s    Updated: %s\n\n", st.Health.Status, r.updated(st.UpdatedAt))

	fmt.Fprintf(&b, "Backups (%d total)\n", st.Backups.Total)
	r.writeBackups(&b, st.Backups)
	b.WriteString(paginationLine(st.Backups))
	b.WriteString("\n\n")

	b.WriteString("Recent logs\n")
	logs := st.Logs
	if len(logs) > r.logLines {
		logs = logs[len(logs)-r.logLines:]
	}
	if len(logs) == 0 {
		b.WriteString("  (no log entries)\n")
	}
	for _, entry := range logs {
		b.WriteString("  ")
		b.WriteString(strings.TrimRight(entry.Text(), "\r\n"))
		b.WriteString("\n")
	}

	_, _ = io.WriteString(r.out, b.String())
}

func (r *Renderer) updated(at time.Time) string {
	if at.IsZero() {
		return "never"
	}
	return humanize.RelTime(at, r.now(), "ago", "from now")
}

func (r *Renderer) writeBackups(b *strings.Builder, page models.BackupPage) {
	if len(page.Items) == 0 {
		b.WriteString("  (no backups)\n")
		return
	}

	tw := tabwriter.NewWriter(b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  NAME\tSIZE\tCREATED")
	for _, item := range page.Items {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", item.Name, format.Size(float64(item.Size)), format.DateIn(item.CreatedAt, r.loc))
	}
	_ = tw.Flush()
}

// paginationLine lists page numbers with the current one bracketed. Long
// ranges keep the first and last page and a window around the current one.
func paginationLine(page models.BackupPage) string {
	total := page.TotalPages
	if total < 1 {
		return "Pages: -"
	}

	from := max(1, page.Page-pageWindow)
	to := min(total, page.Page+pageWindow)
	if from > to {
		// The current page lies outside [1, total].
		from, to = max(1, total-pageWindow), total
	}

	parts := make([]string, 0, 2*pageWindow+5)
	if from > 1 {
		parts = append(parts, "1")
		if from > 2 {
			parts = append(parts, "...")
		}
	}
	for i := from; i <= to; i++ {
		label := strconv.Itoa(i)
		if i == page.Page {
			label = "[" + label + "]"
		}
		parts = append(parts, label)
	}
	if to < total {
		if to < total-1 {
			parts = append(parts, "...")
		}
		parts = append(parts, strconv.Itoa(total))
	}
	return "Pages: " + strings.Join(parts, " ")
}
