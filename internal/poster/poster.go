// Package poster runs one posting cycle: log in, generate an image, upload
// it as a blob and publish a post embedding it.
package poster

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mikequentel/ukiyobot/internal/bluesky"
	"github.com/mikequentel/ukiyobot/internal/imageproc"
	"github.com/mikequentel/ukiyobot/internal/logger"
	"github.com/mikequentel/ukiyobot/internal/metrics"
	"github.com/mikequentel/ukiyobot/internal/model"
	"github.com/mikequentel/ukiyobot/internal/option"
	"github.com/mikequentel/ukiyobot/internal/tracer"
)

const (
	Haiku        = "Old pond — frogs jumped in — sound of water."
	PromptPrefix = "Generate a picture in the ukiyo-e style about the following haiku:"
	Prompt       = PromptPrefix + Haiku

	Caption = "Old pond — \nfrogs jumped in — \nsound of water."
	AltText = "Ai generated Ukiyo-e"
)

// AspectRatio is declared on the embed regardless of the real image size.
var AspectRatio = model.AspectRatio{Width: 1000, Height: 500}

type SessionCreator interface {
	CreateSession(ctx context.Context, identifier, password string) (*bluesky.Session, error)
}

type BlobUploader interface {
	UploadBlob(ctx context.Context, data []byte, mimeType, accessJwt string) (model.Blob, error)
}

type PostCreator interface {
	CreatePost(ctx context.Context, sess *bluesky.Session, post model.PostRecord) (string, error)
}

// Bluesky is what the poster needs from the PDS. *bluesky.Client
// satisfies it.
type Bluesky interface {
	SessionCreator
	BlobUploader
	PostCreator
}

type Credentials struct {
	Identifier string
	Password   string
}

// Outcome says how far a run got.
type Outcome string

const (
	OutcomePosted  Outcome = "posted"
	OutcomeNoImage Outcome = "no_image"
	OutcomeNoBlob  Outcome = "no_blob"
	OutcomeDryRun  Outcome = "dry_run"
	OutcomeFailed  Outcome = "error"
)

type Poster struct {
	bsky   Bluesky
	gen    *Generator
	creds  Credentials
	clock  clockwork.Clock
	log    *slog.Logger
	dryRun bool
}

type Option func(*Poster)

func WithClock(c clockwork.Clock) Option {
	return func(p *Poster) { p.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Poster) { p.log = l }
}

// WithDryRun makes Run log what it would post without any network calls.
func WithDryRun(dry bool) Option {
	return func(p *Poster) { p.dryRun = dry }
}

func New(bsky Bluesky, images ImageSource, creds Credentials, opts ...Option) *Poster {
	p := &Poster{
		bsky:  bsky,
		creds: creds,
		clock: clockwork.NewRealClock(),
		log:   logger.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.gen = NewGenerator(images, imageproc.DefaultOptions, p.log)
	return p
}

// Run is the scheduled task. A failed login or post is returned; a missing
// image or blob ends the run quietly.
func (p *Poster) Run(ctx context.Context) error {
	_, err := p.RunOnce(ctx)
	return err
}

func (p *Poster) RunOnce(ctx context.Context) (out Outcome, err error) {
	ctx, span := tracer.Start(ctx, "poster.run")
	defer span.End()
	defer func() {
		if err != nil {
			out = OutcomeFailed
			span.RecordError(err)
		}
		metrics.RunsTotal.WithLabelValues(string(out)).Inc()
	}()
	log := logger.FromContext(ctx, p.log)
	if id := tracer.TraceID(ctx); id != "" {
		log = log.With("trace_id", id)
		ctx = logger.WithLogger(ctx, log)
	}

	if p.dryRun {
		log.Info("DRY RUN (no network calls)",
			"prompt", Prompt,
			"caption", Caption,
			"alt", AltText,
			"aspect_ratio", fmt.Sprintf("%dx%d", AspectRatio.Width, AspectRatio.Height))
		return OutcomeDryRun, nil
	}

	sess, err := p.login(ctx)
	if err != nil {
		return OutcomeFailed, err
	}

	img, ok := p.GenerateImage(ctx, Prompt).Get()
	if !ok {
		return OutcomeNoImage, nil
	}

	blob, ok := p.UploadImageBlob(ctx, img, sess.AccessJwt).Get()
	if !ok {
		return OutcomeNoBlob, nil
	}

	uri, err := p.publish(ctx, sess, NewPostRecord(blob, p.clock.Now()))
	if err != nil {
		return OutcomeFailed, err
	}
	log.Info("Just posted!", "uri", uri, "handle", sess.Handle)
	return OutcomePosted, nil
}

// GenerateImage requests an image for prompt and returns the compressed
// JPEG, or None if anything failed.
func (p *Poster) GenerateImage(ctx context.Context, prompt string) option.Option[[]byte] {
	return p.gen.Generate(ctx, prompt)
}

// UploadImageBlob stores img on the PDS, or returns None and logs why not.
func (p *Poster) UploadImageBlob(ctx context.Context, img []byte, accessJwt string) option.Option[model.Blob] {
	ctx, span := tracer.Start(ctx, "poster.upload")
	defer span.End()
	log := logger.FromContext(ctx, p.log)

	start := time.Now()
	blob, err := p.bsky.UploadBlob(ctx, img, imageproc.MimeJPEG, accessJwt)
	metrics.ObserveStep("upload", start, err)
	if err != nil {
		span.RecordError(err)
		log.Error("Error uploading image blob", "error", err, "bytes", len(img))
		return option.None[model.Blob]()
	}
	log.Info("blob uploaded", "cid", blob.Ref.Link, "size", blob.Size)
	return option.Some(blob)
}

func (p *Poster) login(ctx context.Context) (*bluesky.Session, error) {
	ctx, span := tracer.Start(ctx, "poster.login")
	defer span.End()

	start := time.Now()
	sess, err := p.bsky.CreateSession(ctx, p.creds.Identifier, p.creds.Password)
	metrics.ObserveStep("login", start, err)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("login as %s: %w", p.creds.Identifier, err)
	}
	logger.FromContext(ctx, p.log).Debug("logged in",
		"did", sess.DID,
		"access_jwt", logger.Mask(sess.AccessJwt))
	return sess, nil
}

func (p *Poster) publish(ctx context.Context, sess *bluesky.Session, post model.PostRecord) (string, error) {
	ctx, span := tracer.Start(ctx, "poster.post")
	defer span.End()

	start := time.Now()
	uri, err := p.bsky.CreatePost(ctx, sess, post)
	metrics.ObserveStep("post", start, err)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("create post: %w", err)
	}
	return uri, nil
}

// NewPostRecord builds the fixed post around blob.
func NewPostRecord(blob model.Blob, createdAt time.Time) model.PostRecord {
	ar := AspectRatio
	return model.PostRecord{
		Type:      model.PostCollection,
		Text:      Caption,
		CreatedAt: bluesky.FormatTime(createdAt),
		Embed: &model.EmbedImages{
			Type: model.EmbedImagesType,
			Images: []model.EmbedImage{
				{Alt: AltText, Image: blob, AspectRatio: &ar},
			},
		},
	}
}
