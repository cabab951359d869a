package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/describer/internal/credentials"
	"github.com/example/describer/internal/imageprocessor"
	"github.com/example/describer/internal/logging"
	"github.com/example/describer/internal/prompt"
	"github.com/example/describer/internal/wordlimit"
)

// ErrNoImage is the UserInputError for a describe request without an image.
var ErrNoImage = errors.New("no image uploaded")

// ModelClient exposes the subset of the model client used by the describe flow.
type ModelClient interface {
	Describe(ctx context.Context, img imageprocessor.NormalizedImage, instructions string) (string, error)
}

// Kind tags the outcome of a describe request.
type Kind int

const (
	KindNone Kind = iota
	KindUserInput
	KindConfiguration
	KindDecode
	KindService
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "ok"
	case KindUserInput:
		return "user_input"
	case KindConfiguration:
		return "configuration"
	case KindDecode:
		return "decode"
	case KindService:
		return "service"
	default:
		return "unknown"
	}
}

// Result is either a description or a tagged error.
type Result struct {
	Description string
	Kind        Kind
	Err         error
}

// OK reports whether the request produced a description.
func (r Result) OK() bool { return r.Kind == KindNone && r.Err == nil }

// DescriptionUseCase runs normalize -> prompt -> model -> word limit.
type DescriptionUseCase struct {
	client ModelClient
	stats  *Stats
	logger *zap.Logger
	now    func() time.Time
}

// NewDescriptionUseCase constructs a new use case instance. stats may be nil.
func NewDescriptionUseCase(client ModelClient, stats *Stats, logger *zap.Logger) *DescriptionUseCase {
	if stats == nil {
		stats = NewStats()
	}
	return &DescriptionUseCase{
		client: client,
		stats:  stats,
		logger: logger.Named("description_usecase"),
		now:    time.Now,
	}
}

// Describe turns raw image bytes into a description of at most
// min(requestedWords, wordlimit.Ceiling) words. It never panics on bad input
// and never retries; every failure comes back as a tagged Result.
func (uc *DescriptionUseCase) Describe(ctx context.Context, sessionID string, raw []byte, requestedWords int) Result {
	requestID := uuid.NewString()
	opLogger := logging.WithOperation(uc.logger, "usecase.describe", requestID).With(zap.String("session_id", sessionID))
	started := uc.now()

	result, opErr := uc.describe(ctx, requestID, raw, requestedWords)
	uc.stats.Record(result.Kind, uc.now().Sub(started))

	if result.OK() {
		opLogger.Info("description generated",
			zap.Int("requested_words", requestedWords),
			zap.Int("words", wordlimit.Count(result.Description)),
		)
	} else {
		opLogger.Warn("describe failed", zap.Stringer("kind", result.Kind), zap.Error(opErr))
	}
	return result
}

// describe returns the classified Result together with the error as it left
// the pipeline, still wrapped with the failing step for the log.
func (uc *DescriptionUseCase) describe(ctx context.Context, requestID string, raw []byte, requestedWords int) (Result, error) {
	if len(raw) == 0 {
		return Result{Kind: KindUserInput, Err: ErrNoImage}, ErrNoImage
	}

	limit := wordlimit.Clamp(requestedWords)

	img, err := imageprocessor.Normalize(raw)
	if err != nil {
		opErr := logging.NewOperationError("usecase.normalize", requestID, err)
		return failure(opErr), opErr
	}

	text, err := uc.client.Describe(ctx, img, prompt.Build(limit))
	if err != nil {
		opErr := logging.NewOperationError("usecase.model_request", requestID, err)
		return failure(opErr), opErr
	}

	description := strings.TrimSpace(wordlimit.Enforce(text, limit))
	return Result{Description: description}, nil
}

// failure classifies err into its Kind. The OperationError wrapper is only
// kept for logs; Err carries the classified cause.
func failure(err error) Result {
	var (
		cfgErr    *credentials.ConfigurationError
		decodeErr *imageprocessor.DecodeError
	)
	switch {
	case errors.As(err, &cfgErr):
		return Result{Kind: KindConfiguration, Err: cfgErr}
	case errors.As(err, &decodeErr):
		return Result{Kind: KindDecode, Err: decodeErr}
	default:
		var opErr *logging.OperationError
		if errors.As(err, &opErr) {
			err = opErr.Err
		}
		return Result{Kind: KindService, Err: err}
	}
}
