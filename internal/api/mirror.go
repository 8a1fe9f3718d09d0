package api

import (
	"net/http"
	"os"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/intervene/internal/hub"
)

// handleMirror serves <mirrorDir>/<org>/<repo>/<file> for hub resolve URLs so
// an HTTPFetcher can be pointed at this server. Every revision maps to the
// same directory.
func (s *Server) handleMirror(c *echo.Context) error {
	const route = "mirror"
	name := c.Param("org") + "/" + c.Param("repo")
	file := c.Param("*")

	p, err := hub.DirFetcher{Root: s.mirrorDir}.Fetch(c.Request().Context(), name, file, "")
	if err != nil {
		return writeFailure(c, route, err)
	}
	f, err := os.Open(p)
	if err != nil {
		return writeFailure(c, route, err)
	}
	defer func() { _ = f.Close() }()
	st, err := f.Stat()
	if err != nil {
		return writeFailure(c, route, err)
	}
	s.log.Debug("mirror", "model", name, "file", file, "revision", c.Param("revision"), "bytes", st.Size())
	http.ServeContent(c.Response(), c.Request(), st.Name(), st.ModTime(), f)
	return nil
}
