// Command render generates one image through the same prompt and
// compression path the poster uses and writes it to disk, without
// touching Bluesky. Handy for checking a prompt or compression settings.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikequentel/ukiyobot/internal/config"
	"github.com/mikequentel/ukiyobot/internal/imageproc"
	"github.com/mikequentel/ukiyobot/internal/logger"
	"github.com/mikequentel/ukiyobot/internal/poster"
	"github.com/mikequentel/ukiyobot/internal/stability"
)

// Flags
var (
	outFile = flag.String("out", "ukiyoe.jpg", "output JPEG file")
	prompt  = flag.String("prompt", poster.Prompt, "text prompt sent to the image API")
	envFile = flag.String("env", "", "dotenv file to load (default .env)")
	maxSide = flag.Int("max", imageproc.DefaultOptions.MaxWidth, "bounding box side in pixels")
	quality = flag.Int("quality", imageproc.DefaultOptions.Quality, "JPEG quality 1-100")
)

var errNoImage = errors.New("no image generated")

func main() {
	log.SetFlags(0)
	flag.Parse()

	var files []string
	if *envFile != "" {
		files = append(files, *envFile)
	}
	cfg, err := config.Read(files...)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Stability.APIKey == "" {
		log.Fatal("missing required env var: STABILITY_API_KEY")
	}
	lg := logger.Init(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := stability.NewClient(&http.Client{Timeout: cfg.HTTPTimeout}, cfg.Stability.BaseURL, cfg.Stability.APIKey)
	gen := poster.NewGenerator(client, imageproc.Options{
		MaxWidth:  *maxSide,
		MaxHeight: *maxSide,
		Quality:   *quality,
	}, lg)

	n, err := render(ctx, gen, *prompt, *outFile)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Wrote %s (%d bytes)\n", *outFile, n)
}

// render generates one image for prompt and writes it to path.
func render(ctx context.Context, gen *poster.Generator, prompt, path string) (int, error) {
	img, ok := gen.Generate(ctx, prompt).Get()
	if !ok {
		return 0, errNoImage
	}
	if err := os.WriteFile(path, img, 0o644); err != nil {
		return 0, fmt.Errorf("write %s: %w", path, err)
	}
	return len(img), nil
}
