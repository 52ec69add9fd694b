// internal/app/features/complaints/create.go
package complaints

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	complaintengine "github.com/dalemusser/campusdesk/internal/app/core/complaints"
	uierrors "github.com/dalemusser/campusdesk/internal/app/features/errors"
	"github.com/dalemusser/campusdesk/internal/app/system/attachments"
	"github.com/dalemusser/campusdesk/internal/app/system/timeouts"
	"go.uber.org/zap"
)

type createRequest struct {
	Department  string `json:"department"`
	Description string `json:"description"`
}

// HandleCreate handles POST /api/complaints. The body is either JSON
// {department, description} or multipart/form-data with the same fields
// plus an optional "image" file.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var in complaintengine.CreateInput
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt == "multipart/form-data" {
		if !h.readMultipart(w, r, &in) {
			return
		}
	} else {
		var req createRequest
		if !decode(w, r, &req) {
			return
		}
		in.DepartmentID, in.Description = req.Department, req.Description
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	view, err := h.Engine.Create(ctx, actor, in)
	if err != nil {
		h.ErrLog.Render(w, r, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusCreated, view)
}

// readMultipart parses the form and stores the image, if any, setting
// in.Image to its reference. It writes the error response itself.
func (h *Handler) readMultipart(w http.ResponseWriter, r *http.Request, in *complaintengine.CreateInput) bool {
	r.Body = http.MaxBytesReader(w, r.Body, attachments.MaxImageSize+(1<<20))
	if err := r.ParseMultipartForm(attachments.MaxImageSize); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			uierrors.WriteMessage(w, http.StatusRequestEntityTooLarge, "Image must be 5 MB or smaller")
			return false
		}
		uierrors.WriteMessage(w, http.StatusBadRequest, "Invalid form data")
		return false
	}
	in.DepartmentID = r.FormValue("department")
	in.Description = r.FormValue("description")

	file, fh, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return true
	}
	if err != nil {
		uierrors.WriteMessage(w, http.StatusBadRequest, "Invalid image upload")
		return false
	}
	defer file.Close()

	if h.Attachments == nil {
		uierrors.WriteMessage(w, http.StatusBadRequest, "Image uploads are not enabled")
		return false
	}
	contentType, err := sniff(file)
	if err != nil || !attachments.IsAllowedImageType(contentType) {
		uierrors.WriteMessage(w, http.StatusBadRequest, "Image must be a JPEG, PNG, GIF or WebP file")
		return false
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()
	ref, err := h.Attachments.Put(ctx, fh.Filename, file, contentType)
	if err != nil {
		h.Log.Error("store complaint image", zap.Error(err), zap.String("filename", fh.Filename))
		uierrors.WriteMessage(w, http.StatusInternalServerError, "Unable to store image")
		return false
	}
	in.Image = ref
	return true
}

// sniff detects the content type from the file's leading bytes and rewinds it.
func sniff(f multipart.File) (string, error) {
	buf := make([]byte, 512)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(buf[:n]), nil
}
