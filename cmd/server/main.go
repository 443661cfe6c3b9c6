package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"realtime-blog/internal/bootstrap"
)

func main() {
	host := flag.String("host", "127.0.0.1", "host to listen on")
	port := flag.Int("port", 8000, "port to listen on")
	reload := flag.Bool("reload", false, "development mode with debug logging")
	prod := flag.Bool("prod", false, "production mode (workers=4, reload off)")
	flag.Parse()

	opts := bootstrap.Options{
		Host:   *host,
		Port:   *port,
		Reload: *reload && !*prod, // --prod 强制关闭 reload
		Prod:   *prod,
	}

	app, err := bootstrap.NewApp(opts)
	if err != nil {
		logrus.Fatalf("Failed to initialize application: %v", err)
	}

	app.Start()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutdown signal received...")

	app.Shutdown()
}
