package routing

import (
	"context"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// DocumentValidator checks the document reference of a new case. The
// default validator applies CheckDocumentURL only; services.DocumentChecker
// also confirms objects in the configured bucket exist.
type DocumentValidator interface {
	ValidateDocumentURL(ctx context.Context, raw string) error
}

var googleFilePath = regexp.MustCompile(`^/(file|document|spreadsheets|presentation|forms)/(u/\d+/)?d/[A-Za-z0-9_-]{10,}`)

// CheckDocumentURL enforces the "file, not folder" rule: an absolute
// http(s) URL whose path names a single file. Drive/Docs file links are
// recognized by shape; any other URL must end in a segment with an
// extension.
func CheckDocumentURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return validationError("documentoUrl is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return validationError("documentoUrl must be an absolute http(s) URL")
	}

	p := u.EscapedPath()
	if strings.Contains(p, "/folders/") || strings.HasSuffix(p, "/folders") {
		return validationError("documentoUrl points to a folder, not a file")
	}

	host := strings.ToLower(u.Hostname())
	if host == "drive.google.com" || host == "docs.google.com" {
		if googleFilePath.MatchString(p) {
			return nil
		}
		if (p == "/open" || p == "/uc") && u.Query().Get("id") != "" {
			return nil
		}
		return validationError("documentoUrl must link to a single Drive file")
	}

	if p == "" || p == "/" || strings.HasSuffix(p, "/") {
		return validationError("documentoUrl points to a folder, not a file")
	}
	if path.Ext(path.Base(p)) == "" {
		return validationError("documentoUrl must name a file")
	}
	return nil
}

type syntacticDocumentValidator struct{}

func (syntacticDocumentValidator) ValidateDocumentURL(_ context.Context, raw string) error {
	return CheckDocumentURL(raw)
}
