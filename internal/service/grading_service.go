package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/anime-shed/comicvault-grader/internal/errors"
	"github.com/anime-shed/comicvault-grader/internal/grading"
	"github.com/anime-shed/comicvault-grader/internal/observer"
	"github.com/anime-shed/comicvault-grader/internal/preprocess"
	"github.com/anime-shed/comicvault-grader/internal/report"
	"github.com/anime-shed/comicvault-grader/internal/repository"
	"github.com/anime-shed/comicvault-grader/internal/storage"
	"github.com/anime-shed/comicvault-grader/pkg/models"
)

// GradingService runs the full grading workflow for one comic
type GradingService interface {
	// GradeUpload grades photographs sent by the client
	GradeUpload(ctx context.Context, req UploadRequest) (*models.GradeResponse, error)

	// GradeURLs downloads both photographs and grades them
	GradeURLs(ctx context.Context, req models.GradeURLRequest) (*models.GradeResponse, error)

	// GetResult returns the stored analysis document
	GetResult(ctx context.Context, userID, comicID string) (*models.GradingRecord, error)

	// ListResults returns a user's grading history, newest first
	ListResults(ctx context.Context, userID string, limit int) ([]models.GradingSummary, error)

	// GetReport returns the rendered PDF
	GetReport(ctx context.Context, userID, comicID string) ([]byte, error)
}

// Upload is one photograph as received from the client
type Upload struct {
	Filename string
	Data     []byte
}

// UploadRequest carries both faces of the comic
type UploadRequest struct {
	UserID string
	Front  Upload
	Back   Upload
}

// URLValidator checks remote photograph URLs before they are fetched
type URLValidator interface {
	ValidateImageURL(imageURL string) error
}

// Dependencies wires a GradingService. Preprocessor, Index, Fetcher,
// URLValidator and Events are optional.
type Dependencies struct {
	Aggregator   *grading.Aggregator
	Provider     grading.OpinionProvider
	Store        storage.BlobStore
	Results      repository.ResultRepository
	Index        repository.GradingIndex
	Renderer     report.Renderer
	Preprocessor preprocess.Preprocessor
	Fetcher      storage.ImageFetcher
	URLValidator URLValidator
	Events       observer.Subject
	Logger       *logrus.Logger

	Now   func() time.Time
	NewID func() string
}

type gradingService struct {
	deps Dependencies
}

// NewGradingService creates a new grading service
func NewGradingService(deps Dependencies) (GradingService, error) {
	switch {
	case deps.Aggregator == nil:
		return nil, errors.New("grading service requires an aggregator")
	case deps.Provider == nil:
		return nil, errors.New("grading service requires an opinion provider")
	case deps.Store == nil:
		return nil, errors.New("grading service requires a blob store")
	case deps.Results == nil:
		return nil, errors.New("grading service requires a result repository")
	case deps.Renderer == nil:
		return nil, errors.New("grading service requires a report renderer")
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	return &gradingService{deps: deps}, nil
}

func (s *gradingService) GradeUpload(ctx context.Context, req UploadRequest) (*models.GradeResponse, error) {
	if len(req.Front.Data) == 0 || len(req.Back.Data) == 0 {
		return nil, apperrors.NewValidationError("front and back images are required", nil)
	}
	return s.grade(ctx, req)
}

func (s *gradingService) GradeURLs(ctx context.Context, req models.GradeURLRequest) (*models.GradeResponse, error) {
	if s.deps.Fetcher == nil {
		return nil, apperrors.NewInternalError("remote images are not supported", nil)
	}
	if err := storage.ValidateSegment(req.UserID); err != nil {
		return nil, apperrors.NewValidationError("invalid user id", err)
	}
	if s.deps.URLValidator != nil {
		for _, u := range []string{req.FrontURL, req.BackURL} {
			if err := s.deps.URLValidator.ValidateImageURL(u); err != nil {
				return nil, err
			}
		}
	}

	var front, back []byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		front, err = s.deps.Fetcher.Fetch(gctx, req.FrontURL)
		return err
	})
	g.Go(func() (err error) {
		back, err = s.deps.Fetcher.Fetch(gctx, req.BackURL)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperrors.NewNetworkError("failed to fetch image", err)
	}

	return s.grade(ctx, UploadRequest{
		UserID: req.UserID,
		Front:  Upload{Filename: urlFilename(req.FrontURL), Data: front},
		Back:   Upload{Filename: urlFilename(req.BackURL), Data: back},
	})
}

func (s *gradingService) grade(ctx context.Context, req UploadRequest) (*models.GradeResponse, error) {
	comicID := s.deps.NewID()
	loc, err := storage.NewLocation(req.UserID, comicID)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid user id", err)
	}

	start := s.deps.Now()
	ctx = withRun(ctx, req.UserID, comicID)
	s.publish(ctx, observer.GradingEvent{EventType: observer.GradingStarted, Success: true})

	resp, err := s.run(ctx, loc, req, start)
	if err != nil {
		s.publish(ctx, observer.GradingEvent{
			EventType:      observer.GradingFailed,
			ProcessingTime: s.deps.Now().Sub(start),
			ErrorMessage:   err.Error(),
		})
		return nil, err
	}

	s.publish(ctx, observer.GradingEvent{
		EventType:      observer.GradingCompleted,
		Final:          resp.Result.Final,
		Confidence:     resp.Result.Confidence,
		ProcessingTime: s.deps.Now().Sub(start),
		Success:        true,
	})
	return resp, nil
}

func (s *gradingService) run(ctx context.Context, loc storage.Location, req UploadRequest, start time.Time) (*models.GradeResponse, error) {
	for _, side := range []struct {
		side   storage.Side
		upload Upload
	}{{storage.Front, req.Front}, {storage.Back, req.Back}} {
		key := loc.Original(side.side, side.upload.Filename)
		if _, err := s.deps.Store.Put(ctx, key, side.upload.Data, ""); err != nil {
			return nil, apperrors.NewInternalError("failed to store original image", err)
		}
	}

	images, err := s.prepare(ctx, loc, req)
	if err != nil {
		return nil, err
	}

	result, err := s.deps.Aggregator.Grade(ctx, images, s.deps.Provider)
	if err != nil {
		return nil, mapGradingError(err)
	}

	pdf, err := s.deps.Renderer.Render(report.Meta{UserID: loc.UserID, ComicID: loc.ComicID, GeneratedAt: start}, result)
	if err != nil {
		return nil, apperrors.NewProcessingError("failed to render report", err)
	}
	reportPath, err := s.deps.Store.Put(ctx, loc.Report(), pdf, "application/pdf")
	if err != nil {
		return nil, apperrors.NewInternalError("failed to store report", err)
	}

	record := &models.GradingRecord{
		UserID:     loc.UserID,
		ComicID:    loc.ComicID,
		Provider:   s.deps.Provider.Name(),
		CreatedAt:  start.UTC(),
		Result:     *result,
		ReportPath: reportPath,
	}
	analysisPath, err := s.deps.Results.Save(ctx, record)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to store grading", err)
	}
	record.AnalysisPath = analysisPath

	if s.deps.Index != nil {
		if err := s.deps.Index.Record(ctx, record.Summary()); err != nil {
			// the analysis document is already stored; history is best effort
			s.deps.Logger.WithError(err).WithField("comic_id", loc.ComicID).Warn("Failed to index grading")
		}
	}

	return &models.GradeResponse{
		UserID:       loc.UserID,
		ComicID:      loc.ComicID,
		Result:       result,
		AnalysisPath: analysisPath,
		ReportPath:   reportPath,
	}, nil
}

// prepare normalises both photographs and stores the copies that are graded
func (s *gradingService) prepare(ctx context.Context, loc storage.Location, req UploadRequest) (models.ImagePair, error) {
	if s.deps.Preprocessor == nil {
		return models.ImagePair{Front: req.Front.Data, Back: req.Back.Data}, nil
	}

	front, err := s.deps.Preprocessor.Process(req.Front.Data)
	if err != nil {
		return models.ImagePair{}, apperrors.NewValidationError("front image could not be decoded", err)
	}
	back, err := s.deps.Preprocessor.Process(req.Back.Data)
	if err != nil {
		return models.ImagePair{}, apperrors.NewValidationError("back image could not be decoded", err)
	}

	if _, err := s.deps.Store.Put(ctx, loc.Processed(storage.Front), front, "image/jpeg"); err != nil {
		return models.ImagePair{}, apperrors.NewInternalError("failed to store processed image", err)
	}
	if _, err := s.deps.Store.Put(ctx, loc.Processed(storage.Back), back, "image/jpeg"); err != nil {
		return models.ImagePair{}, apperrors.NewInternalError("failed to store processed image", err)
	}
	return models.ImagePair{Front: front, Back: back}, nil
}

func (s *gradingService) GetResult(ctx context.Context, userID, comicID string) (*models.GradingRecord, error) {
	record, err := s.deps.Results.Get(ctx, userID, comicID)
	if errors.Is(err, repository.ErrGradingNotFound) {
		return nil, apperrors.NewNotFoundError("grading not found", err)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load grading", err)
	}
	return record, nil
}

func (s *gradingService) ListResults(ctx context.Context, userID string, limit int) ([]models.GradingSummary, error) {
	if err := storage.ValidateSegment(userID); err != nil {
		return nil, apperrors.NewValidationError("invalid user id", err)
	}
	if s.deps.Index == nil {
		return nil, apperrors.NewInternalError("grading history is not enabled", nil)
	}
	list, err := s.deps.Index.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list gradings", err)
	}
	return list, nil
}

func (s *gradingService) GetReport(ctx context.Context, userID, comicID string) ([]byte, error) {
	loc, err := storage.NewLocation(userID, comicID)
	if err != nil {
		return nil, apperrors.NewNotFoundError("report not found", err)
	}
	pdf, err := s.deps.Store.Get(ctx, loc.Report())
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperrors.NewNotFoundError("report not found", err)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load report", err)
	}
	return pdf, nil
}

func (s *gradingService) publish(ctx context.Context, event observer.GradingEvent) {
	if s.deps.Events == nil {
		return
	}
	if r, ok := runFrom(ctx); ok {
		event.UserID, event.ComicID = r.userID, r.comicID
	}
	if event.Provider == "" {
		event.Provider = s.deps.Provider.Name()
	}
	s.deps.Events.NotifyObservers(ctx, event)
}

// mapGradingError turns aggregator failures into API errors
func mapGradingError(err error) error {
	switch {
	case errors.Is(err, grading.ErrProviderTimeout):
		return apperrors.NewProviderTimeoutError("opinion provider timed out", err)
	case errors.Is(err, grading.ErrMalformedOpinion):
		return apperrors.NewMalformedOpinionError("opinion provider returned an unusable opinion", err)
	case errors.Is(err, context.Canceled):
		return apperrors.NewTimeoutError("grading canceled", err)
	default:
		return apperrors.NewProcessingError(fmt.Sprintf("grading failed: %v", err), err)
	}
}
