package controllers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"checkout-service/models"

	"github.com/gin-gonic/gin"
)

const (
	MaxPageSize       = 100
	DefaultProofLimit = 5 * 1024 * 1024
	proofFormField    = "proof"
	multipartOverhead = 64 * 1024
)

var allowedProofTypes = map[string]bool{
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/png":       true,
	"image/webp":      true,
	"image/gif":       true,
	"application/pdf": true,
}

var proofTypesByExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
	".pdf":  "application/pdf",
}

// readProofFile reads the "proof" multipart field into memory after checking
// its size and type.
func readProofFile(c *gin.Context, maxSize int64) (models.ProofFile, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize+multipartOverhead)

	header, err := c.FormFile(proofFormField)
	if err != nil {
		return models.ProofFile{}, fmt.Errorf("payment proof file is required")
	}
	if header.Size > maxSize {
		return models.ProofFile{}, fmt.Errorf("payment proof must be at most %d MB", maxSize/(1024*1024))
	}

	contentType, ok := proofContentType(header)
	if !ok {
		return models.ProofFile{}, fmt.Errorf("invalid file type for %s. Allowed: jpeg, png, webp, gif, pdf", header.Filename)
	}

	f, err := header.Open()
	if err != nil {
		return models.ProofFile{}, fmt.Errorf("failed to read payment proof")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return models.ProofFile{}, fmt.Errorf("failed to read payment proof")
	}
	if int64(len(data)) > maxSize {
		return models.ProofFile{}, fmt.Errorf("payment proof must be at most %d MB", maxSize/(1024*1024))
	}

	return models.ProofFile{
		Name:        filepath.Base(header.Filename),
		ContentType: contentType,
		Data:        data,
	}, nil
}

// proofContentType checks the declared type first and falls back to the
// file extension.
func proofContentType(file *multipart.FileHeader) (string, bool) {
	declared := strings.ToLower(strings.TrimSpace(strings.SplitN(file.Header.Get("Content-Type"), ";", 2)[0]))
	if allowedProofTypes[declared] {
		if declared == "image/jpg" {
			declared = "image/jpeg"
		}
		return declared, true
	}
	ct, ok := proofTypesByExt[strings.ToLower(filepath.Ext(file.Filename))]
	return ct, ok
}

func parsePaginationParams(ctx *gin.Context) (int, int) {
	pageInt, limitInt := 1, 20
	if p, err := strconv.Atoi(ctx.DefaultQuery("page", "1")); err == nil && p > 0 {
		pageInt = p
	}
	if l, err := strconv.Atoi(ctx.DefaultQuery("limit", "20")); err == nil && l > 0 {
		if l > MaxPageSize {
			l = MaxPageSize
		}
		limitInt = l
	}
	return pageInt, limitInt
}
