package main

import (
	"embed"
	"log"
	"net/http"
	"os"
	rt "runtime"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/logger"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/mac"
	"github.com/wailsapp/wails/v2/pkg/options/windows"
)

//go:embed all:frontend/dist
var assets embed.FS

const AppVersion = "0.1.0"

func main() {
	if rt.GOOS == "windows" {
		nullFile, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
		if err != nil {
			log.Println("cannot open null device:", err)
		} else {
			os.Stdout = nullFile
			os.Stderr = nullFile
		}
	}

	app := NewApp()

	appOptions := createAppOptions(app)

	if err := wails.Run(appOptions); err != nil {
		log.Fatalf("application failed to start: %v", err)
	}
}

func createAppOptions(app *App) *options.App {
	return &options.App{
		Title:            "AVN Launcher",
		Width:            1280,
		Height:           800,
		MinWidth:         800,
		MinHeight:        600,
		BackgroundColour: &options.RGBA{R: 27, G: 38, B: 54, A: 1},
		AssetServer: &assetserver.Options{
			Assets:  assets,
			Handler: http.FileServer(http.FS(assets)),
		},
		LogLevel:   logger.INFO,
		OnStartup:  app.OnStartup,
		OnShutdown: app.OnShutdown,
		Bind:       []interface{}{app},
		WindowStartState: options.Normal,
		CSSDragProperty:  "--wails-draggable",
		CSSDragValue:     "drag",
		Windows: &windows.Options{
			ZoomFactor: 1.0,
		},
		Mac: &mac.Options{
			TitleBar: &mac.TitleBar{
				TitlebarAppearsTransparent: true,
			},
			Appearance:           mac.NSAppearanceNameDarkAqua,
			WebviewIsTransparent: true,
			WindowIsTranslucent:  true,
			About: &mac.AboutInfo{
				Title:   "AVN Launcher",
				Message: "AVN Launcher " + AppVersion,
			},
		},
	}
}
