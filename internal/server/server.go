// Package server exposes the narration pipeline over HTTP: document
// upload, job status and listing, artifact download, and cleanup.
package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/book-expert/logger"
	"github.com/gin-gonic/gin"

	"github.com/book-expert/narration-service/internal/core"
	"github.com/book-expert/narration-service/internal/pipeline"
)

// Form fields and content types.
const (
	uploadFieldName      = "file"
	contentTypeWAV       = "audio/wav"
	contentTypeOctet     = "application/octet-stream"
	statusUnknownMessage = "unknown"
)

// ErrUploadTooLarge indicates an upload above the configured size cap.
var ErrUploadTooLarge = errors.New("uploaded file exceeds size limit")

// Server wires the pipeline and the artifact stores to HTTP routes.
type Server struct {
	pipeline       *pipeline.Pipeline
	sources        core.ArtifactStore
	outputs        core.ArtifactStore
	maxUploadBytes int64
	log            *logger.Logger
}

// New creates a server. maxUploadBytes caps the accepted document size;
// zero means no cap.
func New(
	jobPipeline *pipeline.Pipeline,
	sources core.ArtifactStore,
	outputs core.ArtifactStore,
	maxUploadBytes int64,
	log *logger.Logger,
) *Server {
	return &Server{
		pipeline:       jobPipeline,
		sources:        sources,
		outputs:        outputs,
		maxUploadBytes: maxUploadBytes,
		log:            log,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", s.handleHealth)
	router.GET("/", s.handleList)
	router.POST("/upload", s.handleUpload)
	router.GET("/status/:id", s.handleStatus)
	router.POST("/clear", s.handleClear)
	router.GET("/audio/:key", s.handleAudio)
	router.GET("/uploads/:key", s.handleUploadedSource)

	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "narration-service",
	})
}

// jobView is the JSON shape of a job in listings.
type jobView struct {
	ID           string `json:"id"`
	OriginalName string `json:"original_name"`
	Status       string `json:"status"`
	OutputRef    string `json:"output_ref,omitempty"`
	CreatedAt    string `json:"created_at"`
}

func (s *Server) handleList(c *gin.Context) {
	jobs, err := s.pipeline.List(c.Request.Context())
	if err != nil {
		s.log.Error("Failed to list jobs: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list jobs"})

		return
	}

	views := make([]jobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, jobView{
			ID:           job.ID,
			OriginalName: job.OriginalName,
			Status:       string(job.Status),
			OutputRef:    job.OutputRef,
			CreatedAt:    job.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, gin.H{"jobs": views})
}

func (s *Server) handleUpload(c *gin.Context) {
	fileHeader, err := c.FormFile(uploadFieldName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "multipart field 'file' is required",
		})

		return
	}

	if s.maxUploadBytes > 0 && fileHeader.Size > s.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("file exceeds %d byte limit", s.maxUploadBytes),
		})

		return
	}

	data, err := readUpload(fileHeader, s.maxUploadBytes)
	if err != nil {
		if errors.Is(err, ErrUploadTooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})

			return
		}

		s.log.Error("Failed to read upload %s: %v", fileHeader.Filename, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read uploaded file"})

		return
	}

	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "uploaded file is empty"})

		return
	}

	jobID, err := s.pipeline.Submit(c.Request.Context(), data, fileHeader.Filename)
	if err != nil {
		s.log.Error("Failed to accept upload %s: %v", fileHeader.Filename, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to accept document"})

		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID})
}

func (s *Server) handleStatus(c *gin.Context) {
	jobID := c.Param("id")

	status, outputRef, err := s.pipeline.Status(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, core.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": statusUnknownMessage})

			return
		}

		s.log.Error("Failed to query job %s: %v", jobID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query job"})

		return
	}

	response := gin.H{"status": string(status)}
	if outputRef != "" {
		response["output_ref"] = outputRef
	}

	c.JSON(http.StatusOK, response)
}

func (s *Server) handleClear(c *gin.Context) {
	err := s.pipeline.ClearAll(c.Request.Context())
	if err != nil {
		s.log.Error("Failed to clear jobs: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear jobs"})

		return
	}

	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

func (s *Server) handleAudio(c *gin.Context) {
	s.serveArtifact(c, s.outputs, contentTypeWAV)
}

func (s *Server) handleUploadedSource(c *gin.Context) {
	s.serveArtifact(c, s.sources, contentTypeOctet)
}

func (s *Server) serveArtifact(c *gin.Context, store core.ArtifactStore, contentType string) {
	key := c.Param("key")

	data, err := store.Load(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "artifact not found"})

		return
	}

	c.Data(http.StatusOK, contentType, data)
}

// readUpload reads the multipart part, enforcing the cap even when the
// advertised header size was smaller than the actual body.
func readUpload(fileHeader *multipart.FileHeader, maxBytes int64) ([]byte, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}

	defer func() { _ = file.Close() }()

	var reader io.Reader = file
	if maxBytes > 0 {
		reader = io.LimitReader(file, maxBytes+1)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, ErrUploadTooLarge
	}

	return data, nil
}
