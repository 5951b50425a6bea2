package models

const (
	// DefaultPageSize is the number of backup records requested per page.
	DefaultPageSize = 10
	// MaxPageSize is the largest page the backend accepts.
	MaxPageSize = 100
)

// BackupRecord describes a single backup file.
type BackupRecord struct {
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	CreatedAt string `json:"created_at"`
}

// BackupPage is one page of backup records with its pagination metadata.
// Page is 1-based.
type BackupPage struct {
	Items      []BackupRecord `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
}

// DefaultBackupPage returns the empty first page shown before the first refresh.
func DefaultBackupPage() BackupPage {
	return BackupPage{
		Items:      []BackupRecord{},
		Total:      0,
		Page:       1,
		PageSize:   DefaultPageSize,
		TotalPages: 1,
	}
}

// TotalPages returns the number of pages needed for total items, zero when empty.
func TotalPages(total, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
