// Package httpapi exposes the engine and projections over HTTP.
//
// The API is a thin translation layer: handlers parse the request, call
// one engine operation or projection, and map typed errors onto status
// codes. All consistency logic lives below.
package httpapi

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/rowsync/rowsync/internal/config"
	"github.com/rowsync/rowsync/internal/engine"
	"github.com/rowsync/rowsync/internal/model"
	"github.com/rowsync/rowsync/internal/query"
	"github.com/rowsync/rowsync/internal/schema"
)

// Server wires the engine and projector into a gin router.
type Server struct {
	engine    *engine.Engine
	projector *query.Projector
	cfg       *config.Config
}

// New creates a Server.
func New(e *engine.Engine, cfg *config.Config) *Server {
	return &Server{
		engine:    e,
		projector: query.New(e.Store()),
		cfg:       cfg,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	if !s.cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: s.cfg.CORS.AllowedOrigins,
		AllowMethods: s.cfg.CORS.AllowedMethods,
		AllowHeaders: s.cfg.CORS.AllowedHeaders,
	}))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": s.cfg.App.Name})
	})

	api := router.Group("/api")
	{
		api.POST("/ingest", s.ingest)
		api.GET("/collections/:collection", s.listCollection)
		api.PATCH("/collections/:collection/:id", s.editCell)
		api.DELETE("/collections/:collection", s.clearCollection)
		api.GET("/invoices/:id/products", s.invoiceProducts)
		api.GET("/changelog", s.changelog)
		api.GET("/counts", s.counts)
		api.GET("/flagged", s.flagged)
	}
	return router
}

func (s *Server) ingest(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	rep, err := s.engine.IngestJSON(c.Request.Context(), body)
	if err != nil {
		if schema.IsMalformedBatchError(err) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		s.internalError(c, "ingest", err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (s *Server) listCollection(c *gin.Context) {
	collection, ok := s.collectionParam(c)
	if !ok {
		return
	}
	rows, err := s.projector.Rows(collection)
	if err != nil {
		s.internalError(c, "list", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows, "count": len(rows)})
}

// editRequest is one cell edit. Value carries the raw cell text; the
// engine decides whether it parses as a number.
type editRequest struct {
	Field string `json:"field" binding:"required"`
	Value string `json:"value"`
}

func (s *Server) editCell(c *gin.Context) {
	collection, ok := s.collectionParam(c)
	if !ok {
		return
	}
	var req editRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	rep, err := s.engine.EditCell(c.Request.Context(), collection, c.Param("id"), req.Field, req.Value)
	if err != nil {
		if engine.IsDivergenceError(err) {
			s.internalError(c, "edit", err)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !rep.Applied {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (s *Server) clearCollection(c *gin.Context) {
	collection, ok := s.collectionParam(c)
	if !ok {
		return
	}
	if err := s.engine.ClearCollection(c.Request.Context(), collection); err != nil {
		s.internalError(c, "clear", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) invoiceProducts(c *gin.Context) {
	prods, err := s.projector.LinkedProducts(c.Param("id"))
	if err != nil {
		if query.IsNotFoundError(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		s.internalError(c, "invoice products", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": prods, "count": len(prods)})
}

func (s *Server) changelog(c *gin.Context) {
	var after int64
	if v := c.Query("after"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "after must be an integer"})
			return
		}
		after = n
	}
	entries, err := s.engine.Log().EntriesSince(c.Request.Context(), after)
	if err != nil {
		s.internalError(c, "changelog", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

func (s *Server) counts(c *gin.Context) {
	c.JSON(http.StatusOK, s.projector.Counts())
}

func (s *Server) flagged(c *gin.Context) {
	rows := s.projector.Flagged()
	c.JSON(http.StatusOK, gin.H{"rows": rows, "count": len(rows)})
}

func (s *Server) collectionParam(c *gin.Context) (model.Collection, bool) {
	collection, err := model.ParseCollection(c.Param("collection"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return "", false
	}
	return collection, true
}

func (s *Server) internalError(c *gin.Context, op string, err error) {
	slog.Error("request failed", "op", op, "err", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
