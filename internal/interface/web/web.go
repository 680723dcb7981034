// Package web serves the embedded review browser.
package web

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed static
var content embed.FS

var (
	assets    fs.FS
	indexHTML []byte
)

func init() {
	sub, err := fs.Sub(content, "static")
	if err != nil {
		panic(err)
	}
	assets = sub
	indexHTML, err = fs.ReadFile(sub, "index.html")
	if err != nil {
		panic(err)
	}
}

// Register mounts the page at / and its assets under /static.
func Register(r gin.IRoutes) {
	r.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
	})
	r.StaticFS("/static", http.FS(assets))
}
