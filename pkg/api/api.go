// Package api serves the album catalog and photo layouts over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/tstromberg/galleri/pkg/galleri"
	"github.com/tstromberg/galleri/pkg/layout"
	"k8s.io/klog/v2"
)

// Server is the JSON and photo server for a catalog.
type Server struct {
	c   *galleri.Config
	cat *galleri.Catalog
	e   *echo.Echo
}

// New creates a new server.
func New(c *galleri.Config, cat *galleri.Catalog) *Server {
	s := &Server{c: c, cat: cat, e: echo.New()}
	s.e.HideBanner = true
	s.e.HidePort = true

	s.e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			klog.V(1).Infof("%s %s -> %d (%s)", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))
	s.e.Use(middleware.Recover())

	s.e.GET("/api/albums", s.handleAlbums)
	s.e.GET("/api/albums/:id", s.handleAlbum)
	s.e.GET("/api/albums/:id/layout", s.handleLayout)
	s.e.GET("/photos/:id/:size/:file", s.handlePhoto)
	return s
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.e
}

// Start listens on addr until the server fails or ctx is done.
func (s *Server) Start(ctx context.Context, addr string) error {
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.e.Shutdown(sctx); err != nil {
			klog.Errorf("shutdown: %v", err)
		}
	}()

	klog.Infof("listening on %s ...", addr)
	if err := s.e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleAlbums(c echo.Context) error {
	return c.JSON(http.StatusOK, s.cat.Albums())
}

func (s *Server) handleAlbum(c echo.Context) error {
	pa, err := s.album(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pa)
}

// handleLayout computes the grid for an album at ?width=, with optional
// ?widow= (left, center, justify) and ?rows= limits.
func (s *Server) handleLayout(c echo.Context) error {
	pa, err := s.album(c)
	if err != nil {
		return err
	}

	width, err := strconv.ParseFloat(c.QueryParam("width"), 64)
	if err != nil || width <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "width must be a positive number")
	}

	lc := s.layoutConfig(width)
	switch w := c.QueryParam("widow"); w {
	case "", "left":
	case "center":
		lc.WidowStyle = layout.WidowCenter
	case "justify":
		lc.WidowStyle = layout.WidowJustify
	default:
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown widow style %q", w))
	}
	if r := c.QueryParam("rows"); r != "" {
		if lc.MaxRows, err = strconv.Atoi(r); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "rows must be an integer")
		}
	}

	res, err := layout.Compute(lc, galleri.AspectRatios(pa.Photos))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}

// handlePhoto serves a derivative. Only files the album lists are served.
func (s *Server) handlePhoto(c echo.Context) error {
	pa, err := s.album(c)
	if err != nil {
		return err
	}

	size := c.Param("size")
	if size != galleri.LargeDir && size != galleri.ThumbDir {
		return echo.ErrNotFound
	}

	name := c.Param("file")
	for _, p := range pa.Photos {
		if p.Filename == name {
			return c.File(filepath.Join(s.c.AlbumDir(pa.Album), size, p.Filename))
		}
	}
	return echo.ErrNotFound
}

func (s *Server) album(c echo.Context) (*galleri.PopulatedAlbum, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "album id must be an integer")
	}
	pa, ok := s.cat.Album(id)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("no album %d", id))
	}
	return pa, nil
}

func (s *Server) layoutConfig(width float64) layout.Config {
	p := s.c.Padding
	return layout.Config{
		ContainerWidth:  width,
		Padding:         layout.Padding{Top: p, Left: p, Bottom: p, Right: p},
		Spacing:         layout.Spacing{Horizontal: s.c.BoxSpacing, Vertical: s.c.BoxSpacing},
		TargetRowHeight: s.c.RowHeight,
		Tolerance:       s.c.RowTolerance,
	}
}
