package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var embeddedStatic embed.FS

var (
	staticFS  = mustSub(embeddedStatic, "static")
	indexHTML = mustRead(staticFS, "index.html")
)

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

func mustRead(fsys fs.FS, name string) string {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		panic(err)
	}
	return string(data)
}
