package poster

import (
	"context"
	"log/slog"
	"time"

	"github.com/mikequentel/ukiyobot/internal/imageproc"
	"github.com/mikequentel/ukiyobot/internal/logger"
	"github.com/mikequentel/ukiyobot/internal/metrics"
	"github.com/mikequentel/ukiyobot/internal/model"
	"github.com/mikequentel/ukiyobot/internal/option"
	"github.com/mikequentel/ukiyobot/internal/stability"
	"github.com/mikequentel/ukiyobot/internal/tracer"
)

// ImageSource renders an image for a text-to-image request.
type ImageSource interface {
	TextToImage(ctx context.Context, req model.TextToImageRequest) ([]byte, error)
}

// Generator turns a prompt into an upload-ready JPEG.
type Generator struct {
	source ImageSource
	opts   imageproc.Options
	log    *slog.Logger
}

func NewGenerator(source ImageSource, opts imageproc.Options, log *slog.Logger) *Generator {
	if log == nil {
		log = logger.Default()
	}
	return &Generator{source: source, opts: opts, log: log}
}

// Generate requests one image for prompt and compresses it. Failures are
// logged and reported as None.
func (g *Generator) Generate(ctx context.Context, prompt string) option.Option[[]byte] {
	ctx, span := tracer.Start(ctx, "poster.generate")
	defer span.End()
	log := logger.FromContext(ctx, g.log)

	start := time.Now()
	raw, err := g.source.TextToImage(ctx, stability.NewRequest(prompt))
	metrics.ObserveStep("generate", start, err)
	if err != nil {
		span.RecordError(err)
		log.Error("Error generating image", "error", err)
		return option.None[[]byte]()
	}

	start = time.Now()
	img, err := imageproc.Compress(raw, g.opts)
	metrics.ObserveStep("compress", start, err)
	if err != nil {
		span.RecordError(err)
		log.Error("Error compressing image", "error", err, "raw_bytes", len(raw))
		return option.None[[]byte]()
	}

	metrics.ImageBytes.Observe(float64(len(img)))
	log.Info("image generated", "raw_bytes", len(raw), "jpeg_bytes", len(img))
	return option.Some(img)
}
