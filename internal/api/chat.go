package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/tidwall/gjson"

	apierrors "github.com/diogo/manualqa/internal/errors"
	"github.com/diogo/manualqa/internal/models"
)

// MaxImageSize is the largest image accepted for model search
const MaxImageSize = 20 * 1024 * 1024

type chatRequest struct {
	Query   string                `json:"query"`
	History []models.HistoryEntry `json:"history"`
}

// Chat sends an anonymous query with its prior history. found is false when
// the server answered without a usable response field.
func (c *Client) Chat(ctx context.Context, query string, history []models.HistoryEntry) (string, bool, error) {
	if history == nil {
		history = []models.HistoryEntry{}
	}

	payload, err := json.Marshal(chatRequest{Query: query, History: history})
	if err != nil {
		return "", false, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	body, err := c.do(ctx, "POST", models.PathChat, payload, "application/json")
	if err != nil {
		return "", false, err
	}

	reply := gjson.GetBytes(body, "response").String()
	return reply, reply != "", nil
}

// SearchModel uploads an image and returns the matching product model.
// Older servers answer with model_code instead of model.
func (c *Client) SearchModel(ctx context.Context, fileName string, data []byte) (string, bool, error) {
	if len(data) == 0 {
		return "", false, fmt.Errorf("image is empty")
	}
	if len(data) > MaxImageSize {
		return "", false, fmt.Errorf("image size exceeds maximum %d bytes", MaxImageSize)
	}

	mimeType := mimetype.Detect(data).String()
	if !IsSupportedImageType(mimeType) {
		return "", false, fmt.Errorf("unsupported image type: %s", mimeType)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="image"; filename="%s"`, escapeQuotes(filepath.Base(fileName))))
	header.Set("Content-Type", mimeType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return "", false, fmt.Errorf("failed to create form part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", false, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", false, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	body, err := c.do(ctx, "POST", models.PathModelSearch, buf.Bytes(), writer.FormDataContentType())
	if err != nil {
		return "", false, err
	}
	if !gjson.ValidBytes(body) {
		return "", false, apierrors.NewParseError("model search response is not JSON", models.PathModelSearch)
	}

	for _, key := range []string{"model", "model_code"} {
		if v := gjson.GetBytes(body, key).String(); v != "" {
			return v, true, nil
		}
	}
	return "", false, nil
}

// SupportedImageTypes returns the MIME types accepted for model search
func SupportedImageTypes() []string {
	return []string{
		"image/jpeg",
		"image/png",
		"image/gif",
		"image/webp",
		"image/bmp",
	}
}

// IsSupportedImageType reports whether mimeType can be uploaded
func IsSupportedImageType(mimeType string) bool {
	for _, t := range SupportedImageTypes() {
		if strings.EqualFold(t, mimeType) {
			return true
		}
	}
	return false
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
