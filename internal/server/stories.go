package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/alkime/storytime/internal/generate"
	"github.com/alkime/storytime/internal/story"
	"github.com/gin-gonic/gin"
)

const (
	audioPrefix     = "/audio"
	defaultFilename = "story.mp3"
)

func (s *Server) handleListStories(c *gin.Context) {
	summaries, err := s.deps.Store.List(c.Request.Context())
	if err != nil {
		s.logger.Error("Failed to list stories", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Could not list stories"})
		return
	}

	c.JSON(http.StatusOK, summaries)
}

func (s *Server) handleGetStory(c *gin.Context) {
	st, err := s.deps.Store.Get(c.Request.Context(), story.ID(c.Param("id")))
	if errors.Is(err, story.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Story not found"})
		return
	}
	if err != nil {
		s.logger.Error("Failed to get story", "id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Could not load story"})
		return
	}

	c.JSON(http.StatusOK, st)
}

func (s *Server) handleCreateStory(c *gin.Context) {
	header, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "audio file is required"})
		return
	}

	data, err := readUpload(header)
	if err != nil {
		s.logger.Error("Failed to read upload", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"detail": "could not read audio"})
		return
	}

	id := s.deps.NewID()
	createdAt := s.deps.Now().UTC()
	name := id + "_" + uploadName(header.Filename)
	path := filepath.Join(s.deps.AudioDir, name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logger.Error("Failed to save audio", "path", path, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not save audio"})
		return
	}

	audio := generate.Audio{
		Data:        data,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	}

	res, err := s.deps.Generator.Generate(c.Request.Context(), audio, c.PostForm("title"))
	if err != nil {
		s.logger.Error("Failed to generate story", "id", id, "error", err)
		_ = os.Remove(path)
		c.JSON(http.StatusBadGateway, gin.H{"detail": "story generation failed"})
		return
	}

	st := story.Story{
		ID:         story.ID(id),
		Title:      res.Title,
		CreatedAt:  story.Timestamp{Time: createdAt},
		AudioURL:   audioPrefix + "/" + name,
		Transcript: res.Transcript,
		Panels:     res.Panels,
	}

	if err := s.deps.Store.Insert(c.Request.Context(), st); err != nil {
		s.logger.Error("Failed to save story", "id", id, "error", err)
		_ = os.Remove(path)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "could not save story"})
		return
	}

	s.logger.Info("Created story", "id", id, "title", st.Title, "panels", len(st.Panels), "bytes", len(data))
	c.JSON(http.StatusOK, st)
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	return data, nil
}

// uploadName keeps only the base name of a client supplied filename.
func uploadName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return defaultFilename
	}

	return name
}
