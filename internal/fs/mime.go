package fs

import (
	"mime"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"biji-go/internal/biji"
)

// MIMEResolver guesses content types from the file name, then from the
// leading bytes of the file when the extension is unknown.
type MIMEResolver struct {
	fsmgr *OSFilesystemManager
}

func NewMIMEResolver(fsmgr *OSFilesystemManager) *MIMEResolver {
	return &MIMEResolver{fsmgr: fsmgr}
}

// Resolve returns the bare media type (no parameters) or nil.
func (r *MIMEResolver) Resolve(rel string) *string {
	if t := typeByName(rel); t != "" {
		return &t
	}

	p, err := r.fsmgr.Absolute(rel)
	if err != nil {
		return nil
	}
	detected, err := mimetype.DetectFile(p)
	if err != nil || detected.Is("application/octet-stream") {
		return nil
	}
	t := stripParams(detected.String())
	return &t
}

func typeByName(rel string) string {
	ext := path.Ext(rel)
	if ext == "" {
		return ""
	}
	t := mime.TypeByExtension(strings.ToLower(ext))
	if t == "" {
		return ""
	}
	return stripParams(t)
}

func stripParams(t string) string {
	media, _, _ := strings.Cut(t, ";")
	return strings.TrimSpace(media)
}

var _ biji.MIMEResolver = (*MIMEResolver)(nil)
