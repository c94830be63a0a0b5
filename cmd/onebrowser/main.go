// Command onebrowser は1browserのAPIサーバーを起動する。
//
//	onebrowser [serve|migrate|healthcheck]
package main

import (
	"log/slog"
	"os"

	"github.com/1Browser/backend/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		slog.Error("application exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
