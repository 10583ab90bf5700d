package handlers

import (
	"fmt"
	"io"
	"mime/multipart"

	"github.com/gin-gonic/gin"
)

// multipartFile is one uploaded file with its metadata.
type multipartFile struct {
	filename    string
	contentType string
	size        int64
	reader      io.Reader
	file        multipart.File
}

func (f *multipartFile) Close() error {
	return f.file.Close()
}

// openMultipartFile pulls the named field out of a multipart form and
// enforces the size cap.
func openMultipartFile(c *gin.Context, field string, maxBytes int64) (*multipartFile, error) {
	file, header, err := c.Request.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("a %q file field is required", field)
	}
	if header.Size > maxBytes {
		file.Close()
		return nil, fmt.Errorf("file exceeds the %d byte limit", maxBytes)
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &multipartFile{
		filename:    header.Filename,
		contentType: contentType,
		size:        header.Size,
		reader:      io.LimitReader(file, maxBytes),
		file:        file,
	}, nil
}
