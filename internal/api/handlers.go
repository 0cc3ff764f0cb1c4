package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"voxclip/internal/fetch"
	"voxclip/internal/pipeline"
)

func (s *Server) handleHealth(c *gin.Context) {
	resp := HealthResponse{Status: "ok"}
	if s.health != nil {
		if err := s.health(c.Request.Context()); err != nil {
			resp.Status = "degraded"
			resp.Checks = map[string]string{s.healthName: err.Error()}
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}
		resp.Checks = map[string]string{s.healthName: "ok"}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleSplit(c *gin.Context) {
	var req pipeline.SplitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, bindError(err))
		return
	}
	result, err := s.svc.Split(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleTranscribe(c *gin.Context) {
	var req pipeline.TranscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, bindError(err))
		return
	}
	result, err := s.svc.Transcribe(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleSave(c *gin.Context) {
	var req pipeline.SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, bindError(err))
		return
	}
	result, err := s.svc.Save(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleExtractVideoID(c *gin.Context) {
	var req VideoIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, bindError(err))
		return
	}
	id, err := fetch.ExtractVideoID(req.VideoURL)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, VideoIDResponse{VideoID: id, URL: fetch.CanonicalURL(id)})
}

func (s *Server) handleStatus(c *gin.Context) {
	result, err := s.svc.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleClip(c *gin.Context) {
	name := c.Param("name")
	data, err := s.svc.ClipBytes(c.Request.Context(), c.Param("id"), name)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", name))
	c.Data(http.StatusOK, "audio/wav", data)
}

func (s *Server) handlePlaylist(c *gin.Context) {
	var req pipeline.PlaylistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, bindError(err))
		return
	}
	result, err := s.svc.Playlist(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleListChannels(c *gin.Context) {
	channels, err := s.svc.Channels(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, channels)
}

func (s *Server) handleAddChannel(c *gin.Context) {
	var req pipeline.ChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, bindError(err))
		return
	}
	channel, err := s.svc.AddChannel(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, channel)
}

func (s *Server) handleDeleteChannel(c *gin.Context) {
	if err := s.svc.DeleteChannel(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
