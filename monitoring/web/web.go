// Package web holds the dashboard page served by the monitor.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
)

//go:embed dist/*
var staticAssets embed.FS

// DevModeEnv names the environment variable that makes GetAssets read the
// dashboard from the source tree, so that it can be edited without
// rebuilding.
const DevModeEnv = "SCRATCHSIM_MONITOR_DEV"

// GetAssets returns the dashboard files.
func GetAssets() http.FileSystem {
	if devMode, _ := strconv.ParseBool(os.Getenv(DevModeEnv)); devMode {
		_, file, _, ok := runtime.Caller(0)
		if !ok {
			panic("cannot locate the dashboard sources")
		}

		return http.Dir(filepath.Join(filepath.Dir(file), "dist"))
	}

	dist, err := fs.Sub(staticAssets, "dist")
	if err != nil {
		panic(err)
	}

	return http.FS(dist)
}
