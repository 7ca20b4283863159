package http

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"

	"github.com/rs/zerolog/log"

	"github.com/brianly1003/lanterm/internal/domain"
	"github.com/brianly1003/lanterm/internal/domain/events"
	"github.com/brianly1003/lanterm/internal/files"
)

// multipartOverhead is the slack allowed on top of the upload limit for
// multipart boundaries and form fields.
const multipartOverhead = 1 << 20

// handleListFiles handles GET /api/files?path=
//
//	@Summary		List directory
//	@Description	Lists a directory under the root, directories first
//	@Tags			files
//	@Produce		json
//	@Param			path	query		string	false	"Directory relative to the root"
//	@Success		200		{object}	FileListResponse
//	@Failure		403		{object}	ErrorResponse	"Path outside root"
//	@Failure		404		{object}	ErrorResponse	"Not found"
//	@Router			/api/files [get]
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	dir := r.URL.Query().Get("path")
	entries, err := s.deps.Files.List(dir)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, FileListResponse{Path: dir, Entries: entries})
}

// handleDeleteFile handles DELETE /api/files?path=&confirm=true
//
//	@Summary		Delete file or directory
//	@Description	Recursively deletes an entry. Requires confirm=true.
//	@Tags			files
//	@Produce		json
//	@Param			path	query		string	true	"Entry relative to the root"
//	@Param			confirm	query		bool	true	"Must be true"
//	@Success		200		{object}	PathResponse
//	@Failure		403		{object}	ErrorResponse	"Root or out-of-root path"
//	@Failure		428		{object}	ErrorResponse	"Confirmation required"
//	@Router			/api/files [delete]
func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Query().Get("path")
	if !queryBool(r, "confirm") {
		writeError(w, r, fmt.Errorf("delete %s: %w", p, domain.ErrConfirmationRequired))
		return
	}
	t, err := s.deps.Files.Delete(p)
	s.publishFileOp(events.FileOperationPayload{Op: events.FileOpDelete, Path: pathOr(t.Rel, p)}, err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PathResponse{Path: t.Rel})
}

// handleReadFile handles GET /api/files/content?path=
//
//	@Summary		Read text file
//	@Description	Returns the content and modification time of a UTF-8 text file
//	@Tags			files
//	@Produce		json
//	@Param			path	query		string	true	"File relative to the root"
//	@Success		200		{object}	files.TextFile
//	@Failure		413		{object}	ErrorResponse	"File too large"
//	@Failure		415		{object}	ErrorResponse	"Binary file"
//	@Router			/api/files/content [get]
func (s *Server) handleReadFile(w http.ResponseWriter, r *http.Request) {
	f, err := s.deps.Files.ReadText(r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// handleWriteFile handles PUT /api/files/content
//
//	@Summary		Write text file
//	@Description	Atomically replaces a text file. With expectedMtime the write fails with 409 if the file changed.
//	@Tags			files
//	@Accept			json
//	@Produce		json
//	@Param			request	body		WriteFileRequest	true	"File content"
//	@Success		200		{object}	files.TextFile
//	@Failure		409		{object}	ErrorResponse	"Modified since read"
//	@Router			/api/files/content [put]
func (s *Server) handleWriteFile(w http.ResponseWriter, r *http.Request) {
	var req WriteFileRequest
	if err := decodeJSON(w, r, &req, maxContentBody); err != nil {
		writeError(w, r, err)
		return
	}
	f, err := s.deps.Files.WriteText(req.Path, req.Content, req.ExpectedMtime)
	payload := events.FileOperationPayload{Op: events.FileOpWrite, Path: req.Path}
	if f != nil {
		payload.Path, payload.Size = f.Path, f.Size
	}
	s.publishFileOp(payload, err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// handleUpload handles POST /api/files/upload
//
//	@Summary		Upload file (multipart)
//	@Description	Streams the "file" part into "dir" (form field before the file, or query parameter). The file is renamed into place only when complete.
//	@Tags			files
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			dir		formData	string	false	"Destination directory"
//	@Param			file	formData	file	true	"File to upload"
//	@Success		201		{object}	files.UploadResult
//	@Failure		413		{object}	ErrorResponse	"Upload limit exceeded"
//	@Router			/api/files/upload [post]
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	limit := s.UploadLimit()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err))
		return
	}

	dir := r.URL.Query().Get("dir")
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			writeError(w, r, fmt.Errorf("%w: missing file part", domain.ErrInvalidPayload))
			return
		}
		if err != nil {
			writeError(w, r, multipartError(err))
			return
		}

		switch part.FormName() {
		case "dir":
			value, err := io.ReadAll(io.LimitReader(part, 4096))
			part.Close()
			if err != nil {
				writeError(w, r, multipartError(err))
				return
			}
			dir = string(value)
		case "file":
			s.storeUpload(w, r, part, dir, limit)
			part.Close()
			return
		default:
			part.Close()
		}
	}
}

func (s *Server) storeUpload(w http.ResponseWriter, r *http.Request, part *multipart.Part, dir string, limit int64) {
	name := path.Base(part.FileName())
	if err := files.ValidateName(name); err != nil {
		writeError(w, r, err)
		return
	}
	dest := name
	if dir != "" {
		dest = path.Join(dir, name)
	}

	res, err := s.deps.Files.Upload(dest, part, limit)
	if err != nil {
		err = uploadError(err)
	}
	payload := events.FileOperationPayload{Op: events.FileOpUpload, Path: dest}
	if res != nil {
		payload.Path, payload.Size = res.Path, res.Size
	}
	s.publishFileOp(payload, err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.Info().Str("path", res.Path).Int64("size", res.Size).Msg("file uploaded")
	writeJSON(w, http.StatusCreated, res)
}

// handleStreamUpload handles PUT /api/files/stream?path=
//
//	@Summary		Upload file (raw stream)
//	@Description	Streams the request body into path. The file is renamed into place only when complete. Unbounded unless files.max_stream_upload_size is set.
//	@Tags			files
//	@Accept			octet-stream
//	@Produce		json
//	@Param			path	query		string	true	"Destination file"
//	@Success		201		{object}	files.UploadResult
//	@Failure		413		{object}	ErrorResponse	"Upload limit exceeded"
//	@Router			/api/files/stream [put]
func (s *Server) handleStreamUpload(w http.ResponseWriter, r *http.Request) {
	limit := s.StreamUploadLimit()
	dest := r.URL.Query().Get("path")
	if limit > 0 && r.ContentLength > limit {
		err := fmt.Errorf("%s declares %d bytes, limit %d: %w", dest, r.ContentLength, limit, domain.ErrPayloadTooLarge)
		s.publishFileOp(events.FileOperationPayload{Op: events.FileOpUpload, Path: dest}, err)
		writeError(w, r, err)
		return
	}

	res, err := s.deps.Files.Upload(dest, r.Body, limit)
	payload := events.FileOperationPayload{Op: events.FileOpUpload, Path: dest}
	if res != nil {
		payload.Path, payload.Size = res.Path, res.Size
	}
	s.publishFileOp(payload, err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// handleMkdir handles POST /api/files/mkdir
//
//	@Summary		Create directory
//	@Tags			files
//	@Accept			json
//	@Produce		json
//	@Param			request	body		MkdirRequest	true	"Parent and name"
//	@Success		201		{object}	PathResponse
//	@Failure		400		{object}	ErrorResponse	"Invalid name"
//	@Failure		409		{object}	ErrorResponse	"Already exists"
//	@Router			/api/files/mkdir [post]
func (s *Server) handleMkdir(w http.ResponseWriter, r *http.Request) {
	var req MkdirRequest
	if err := decodeJSON(w, r, &req, maxJSONBody); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.deps.Files.Mkdir(req.Dir, req.Name)
	s.publishFileOp(events.FileOperationPayload{Op: events.FileOpMkdir, Path: pathOr(t.Rel, path.Join(req.Dir, req.Name))}, err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, PathResponse{Path: t.Rel})
}

// handleRename handles POST /api/files/rename
//
//	@Summary		Rename entry
//	@Tags			files
//	@Accept			json
//	@Produce		json
//	@Param			request	body		RenameRequest	true	"Entry and new name"
//	@Success		200		{object}	PathResponse
//	@Failure		409		{object}	ErrorResponse	"Target exists"
//	@Router			/api/files/rename [post]
func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if err := decodeJSON(w, r, &req, maxJSONBody); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.deps.Files.Rename(req.Path, req.NewName)
	s.publishFileOp(events.FileOperationPayload{Op: events.FileOpRename, Path: req.Path, Dest: t.Rel}, err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PathResponse{Path: t.Rel})
}

// handleCopy handles POST /api/files/copy
//
//	@Summary		Copy entry
//	@Description	Copies a file or tree into destDir, merging directories. policy is overwrite, skip or error (default).
//	@Tags			files
//	@Accept			json
//	@Produce		json
//	@Param			request	body		files.TransferRequest	true	"Transfer"
//	@Success		200		{object}	files.TransferResult
//	@Failure		400		{object}	ErrorResponse	"Copy into itself"
//	@Failure		409		{object}	ErrorResponse	"Destination exists"
//	@Router			/api/files/copy [post]
func (s *Server) handleCopy(w http.ResponseWriter, r *http.Request) {
	s.handleTransfer(w, r, events.FileOpCopy, s.deps.Files.Copy)
}

// handleMove handles POST /api/files/move
//
//	@Summary		Move entry
//	@Description	Moves a file or tree into destDir, merging directories. policy is overwrite, skip or error (default).
//	@Tags			files
//	@Accept			json
//	@Produce		json
//	@Param			request	body		files.TransferRequest	true	"Transfer"
//	@Success		200		{object}	files.TransferResult
//	@Failure		400		{object}	ErrorResponse	"Move into itself"
//	@Failure		409		{object}	ErrorResponse	"Destination exists"
//	@Router			/api/files/move [post]
func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	s.handleTransfer(w, r, events.FileOpMove, s.deps.Files.Move)
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request, op events.FileOp, fn func(files.TransferRequest) (*files.TransferResult, error)) {
	var req files.TransferRequest
	if err := decodeJSON(w, r, &req, maxJSONBody); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := fn(req)
	payload := events.FileOperationPayload{Op: op, Path: req.Src}
	if res != nil {
		payload.Dest = res.Dest
		payload.Copied = res.Copied
		payload.Skipped = res.Skipped
		payload.Overwritten = res.Overwritten
	}
	s.publishFileOp(payload, err)
	if err != nil {
		if res != nil {
			writeErrorResult(w, r, err, res)
		} else {
			writeError(w, r, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// publishFileOp emits a file_operation event with the outcome of err.
func (s *Server) publishFileOp(p events.FileOperationPayload, err error) {
	if s.deps.Publisher == nil {
		return
	}
	p.Outcome = events.OutcomeOK
	if err != nil {
		p.Outcome = events.OutcomeFailed
		p.Error = err.Error()
	}
	s.deps.Publisher.Publish(events.NewFileOperationEvent(p))
}

// uploadError maps a body read past the request limit to PayloadTooLarge.
func uploadError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return fmt.Errorf("request body over %d bytes: %w", maxErr.Limit, domain.ErrPayloadTooLarge)
	}
	return err
}

// multipartError classifies a failure to read the multipart stream itself.
func multipartError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return uploadError(err)
	}
	return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
}

func pathOr(p, fallback string) string {
	if p != "" {
		return p
	}
	return fallback
}
