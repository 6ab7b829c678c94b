package models

// Upload is an entry in the upload history log.
type Upload struct {
	ID            string    `json:"id"`
	Filename      string    `json:"filename"`
	FileType      string    `json:"file_type"`
	SourceURL     *string   `json:"source_url"`
	Status        string    `json:"status"`
	ErrorMessage  *string   `json:"error_message"`
	ObjectKey     *string   `json:"object_key,omitempty"`
	ProcessedRows int       `json:"processed_rows"`
	TotalRows     int       `json:"total_rows"`
	CreatedAt     Timestamp `json:"created_at"`
	UpdatedAt     Timestamp `json:"updated_at"`
}

// CreateUploadRequest is the body of POST /api/uploads.
type CreateUploadRequest struct {
	Filename  string  `json:"filename"`
	FileType  string  `json:"file_type"`
	SourceURL *string `json:"source_url,omitempty"`
}

// ImportResult is the outcome of a CSV import.
type ImportResult struct {
	Message       string   `json:"message"`
	UploadID      string   `json:"upload_id"`
	ProcessedRows int      `json:"processedRows"`
	TotalRows     int      `json:"totalRows"`
	Errors        []string `json:"errors,omitempty"`
}

// Image is a stored media object.
type Image struct {
	Name        string     `json:"name"`
	URL         string     `json:"url"`
	Size        int64      `json:"size"`
	ContentType string     `json:"content_type"`
	UpdatedAt   *Timestamp `json:"updated_at,omitempty"`
}

// Settings is the admin settings map keyed by setting name.
type Settings map[string]any
