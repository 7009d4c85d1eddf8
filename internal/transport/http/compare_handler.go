package http

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apierrors "csvcompare/internal/errors"

	"csvcompare/internal/files"
	"csvcompare/internal/middleware"
	"csvcompare/internal/services"
	"csvcompare/internal/validation"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// maxMultipartMemory bounds how much of an upload is buffered in
// memory before spilling to disk.
const maxMultipartMemory = 10 << 20

// CompareHandler exposes the comparison pipeline over HTTP.
type CompareHandler struct {
	service       CompareServiceInterface
	files         *files.Manager
	fileValidator *validation.FileValidator
	maxUploadSize int64
	gatherer      prometheus.Gatherer
	logger        *slog.Logger
	errorHandler  *apierrors.ErrorHandler
}

// NewCompareHandler creates the HTTP handler for uploads, processing
// and report downloads.
func NewCompareHandler(
	service CompareServiceInterface,
	fm *files.Manager,
	fileValidator *validation.FileValidator,
	maxUploadSize int64,
	gatherer prometheus.Gatherer,
	logger *slog.Logger,
	errorHandler *apierrors.ErrorHandler,
) *CompareHandler {
	return &CompareHandler{
		service:       service,
		files:         fm,
		fileValidator: fileValidator,
		maxUploadSize: maxUploadSize,
		gatherer:      gatherer,
		logger:        logger.With(slog.String("component", "compare_handler")),
		errorHandler:  errorHandler,
	}
}

// Routes returns the comparison routes.
func (h *CompareHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/upload", h.UploadFiles)
	r.Post("/process", h.ProcessFiles)
	r.Get("/download/{filename}", h.DownloadReport)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))

	return r
}

type uploadRejection struct {
	FileName string `json:"filename"`
	Error    string `json:"error"`
}

type uploadResponse struct {
	Status   string            `json:"status"`
	Message  string            `json:"message"`
	Uploaded []string          `json:"uploaded_files"`
	Rejected []uploadRejection `json:"rejected_files,omitempty"`
}

// UploadFiles handles POST /upload. Each part of the multipart form is
// accepted or rejected independently; one bad file never fails the
// whole request.
func (h *CompareHandler) UploadFiles(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.errorHandler.HandleError(w, r, apierrors.ErrPayloadTooLarge)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	parts := r.MultipartForm.File["files"]
	if len(parts) == 0 {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("files", "no files provided"))
		return
	}

	resp := &uploadResponse{Uploaded: []string{}}
	for _, part := range parts {
		name := filepath.Base(part.Filename)
		if err := h.fileValidator.ValidateUploadName(name); err != nil {
			resp.Rejected = append(resp.Rejected, uploadRejection{FileName: part.Filename, Error: err.Error()})
			continue
		}

		data, err := readPart(part)
		if err != nil {
			resp.Rejected = append(resp.Rejected, uploadRejection{FileName: name, Error: "could not read uploaded file"})
			h.logger.ErrorContext(r.Context(), "failed to read upload part",
				slog.String("request_id", reqID),
				slog.String("filename", name),
				slog.String("error", err.Error()))
			continue
		}

		if err := h.files.SaveUpload(name, data); err != nil {
			resp.Rejected = append(resp.Rejected, uploadRejection{FileName: name, Error: "could not store uploaded file"})
			h.logger.ErrorContext(r.Context(), "failed to store upload",
				slog.String("request_id", reqID),
				slog.String("filename", name),
				slog.String("error", err.Error()))
			continue
		}
		resp.Uploaded = append(resp.Uploaded, name)
	}

	switch {
	case len(resp.Uploaded) == 0:
		resp.Status = services.StatusFailed
		resp.Message = "no files were uploaded"
		render.Status(r, http.StatusBadRequest)
	case len(resp.Rejected) > 0:
		resp.Status = services.StatusPartialSuccess
		resp.Message = fmt.Sprintf("%d of %d files uploaded", len(resp.Uploaded), len(parts))
	default:
		resp.Status = services.StatusSuccess
		resp.Message = fmt.Sprintf("%d files uploaded", len(resp.Uploaded))
	}

	h.logger.InfoContext(r.Context(), "upload handled",
		slog.String("request_id", reqID),
		slog.Int("accepted", len(resp.Uploaded)),
		slog.Int("rejected", len(resp.Rejected)))
	render.JSON(w, r, resp)
}

func readPart(part *multipart.FileHeader) ([]byte, error) {
	f, err := part.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

type processRequest struct {
	Files           []string `json:"files"`
	OperationColumn string   `json:"operation_column"`
	ThresholdValue  string   `json:"threshold_value"`
}

// ProcessFiles handles POST /process. The threshold arrives as a
// string and must parse as a number before the pipeline runs; that
// failure is a request error, not a per-file diagnostic.
func (h *CompareHandler) ProcessFiles(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	var req processRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	threshold, err := strconv.ParseFloat(strings.TrimSpace(req.ThresholdValue), 64)
	if err != nil {
		h.errorHandler.HandleError(w, r,
			apierrors.ErrValidation("threshold_value", fmt.Sprintf("'%s' is not a valid number", req.ThresholdValue)))
		return
	}

	resp, err := h.service.Process(r.Context(), services.Request{
		FileNames:       req.Files,
		OperationColumn: req.OperationColumn,
		Threshold:       threshold,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if resp.Status == services.StatusFailed {
		render.Status(r, http.StatusUnprocessableEntity)
	}

	h.logger.InfoContext(r.Context(), "process handled",
		slog.String("request_id", reqID),
		slog.String("status", resp.Status))
	render.JSON(w, r, resp)
}

// DownloadReport handles GET /download/{filename}. Only generated
// xlsx reports can be fetched; traversal attempts are rejected before
// the filesystem is touched.
func (h *CompareHandler) DownloadReport(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	if err := h.fileValidator.ValidateReportName(filename); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("filename", err.Error()))
		return
	}
	if !h.files.ReportExists(filename) {
		h.errorHandler.HandleError(w, r, apierrors.NotFoundError(fmt.Sprintf("report '%s'", filename)))
		return
	}

	f, err := h.files.OpenReport(filename)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.FileSystemError("open report", err))
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.FileSystemError("stat report", err))
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	http.ServeContent(w, r, filename, info.ModTime(), f)
}
