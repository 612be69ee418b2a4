package upload

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/gestaozabele/videorelay/internal/media"
	"github.com/gestaozabele/videorelay/internal/metrics"
	"github.com/gestaozabele/videorelay/internal/notify"
	"github.com/gestaozabele/videorelay/internal/progress"
)

// Service encaminha o arquivo temporário ao host de mídia, publicando progresso.
type Service struct {
	host     media.Host
	broker   progress.Broker
	recorder Recorder
	notifier notify.Notifier
	metrics  *metrics.Metrics
	timeout  time.Duration
	logger   zerolog.Logger
}

// Options agrupa dependências opcionais do serviço.
type Options struct {
	Recorder Recorder
	Notifier notify.Notifier
	Metrics  *metrics.Metrics
	Timeout  time.Duration
	Logger   zerolog.Logger
}

func NewService(host media.Host, broker progress.Broker, opts Options) *Service {
	recorder := opts.Recorder
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Service{
		host:     host,
		broker:   broker,
		recorder: recorder,
		notifier: opts.Notifier,
		metrics:  opts.Metrics,
		timeout:  opts.Timeout,
		logger:   opts.Logger,
	}
}

// Relay valida o arquivo, executa o upload grande e remove o temporário.
func (s *Service) Relay(ctx context.Context, uploadID string, file File) (*media.UploadResult, error) {
	if file.Path == "" {
		return nil, ErrNoFile
	}
	defer s.cleanup(uploadID, file.Path)

	info, err := os.Stat(file.Path)
	if err != nil {
		return nil, s.fail(ctx, uploadID, file, &TransferError{Op: "stat", Err: err}, 0)
	}
	if !info.Mode().IsRegular() || info.Size() == 0 {
		return nil, ErrEmptyFile
	}

	log := s.logger.With().Str("upload_id", uploadID).Str("provider", s.host.Name()).Str("subject", file.Subject).Logger()
	bg := context.WithoutCancel(ctx)

	if err := s.recorder.Create(bg, Record{
		ID:          uploadID,
		Filename:    file.Filename,
		ContentType: file.ContentType,
		SizeBytes:   info.Size(),
		Provider:    s.host.Name(),
		Subject:     file.Subject,
	}); err != nil {
		log.Warn().Err(err).Msg("upload: falha ao registrar upload")
	}

	// substitui o snapshot de um upload anterior com o mesmo id
	s.publish(ctx, progress.Event{UploadID: uploadID, Status: progress.StatusProgress, Percent: 0})

	tracker := progress.NewTracker(func(percent int) {
		s.publish(ctx, progress.Event{UploadID: uploadID, Status: progress.StatusProgress, Percent: percent})
	})

	uctx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		uctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := s.host.UploadLarge(uctx, media.UploadInput{
		Path:        file.Path,
		Size:        info.Size(),
		ContentType: file.ContentType,
		Filename:    file.Filename,
		UploadID:    uploadID,
	}, tracker.Observe)
	if err != nil {
		s.metrics.ObserveUpload(s.host.Name(), false, 0, time.Since(start))
		return nil, s.fail(ctx, uploadID, file, &TransferError{Op: "upload", Err: err}, tracker.Last())
	}
	s.metrics.ObserveUpload(s.host.Name(), true, info.Size(), time.Since(start))

	tracker.Offer(100)
	if err := s.recorder.MarkCompleted(bg, uploadID, res.SecureURL, res.PublicID); err != nil {
		log.Warn().Err(err).Msg("upload: falha ao concluir registro")
	}
	s.publish(bg, progress.Event{UploadID: uploadID, Status: progress.StatusCompleted, Percent: 100, URL: res.SecureURL})

	log.Info().Int64("bytes", info.Size()).Dur("duration", time.Since(start)).Msg("upload concluído")
	return res, nil
}

func (s *Service) fail(ctx context.Context, uploadID string, file File, terr *TransferError, percent int) error {
	bg := context.WithoutCancel(ctx)
	s.logger.Error().Err(terr.Err).Str("upload_id", uploadID).Str("provider", s.host.Name()).
		Str("op", terr.Op).Int("percent", percent).Str("subject", file.Subject).Msg("falha ao enviar vídeo")

	if err := s.recorder.MarkFailed(bg, uploadID, terr.Error()); err != nil && !errors.Is(err, ErrNotFound) {
		s.logger.Warn().Err(err).Str("upload_id", uploadID).Msg("upload: falha ao marcar erro")
	}
	s.publish(bg, progress.Event{UploadID: uploadID, Status: progress.StatusFailed, Error: terr.Error()})

	if s.notifier != nil {
		alert := notify.UploadFailed(uploadID, s.host.Name(), file.Filename, terr.Err)
		go func() {
			nctx, cancel := context.WithTimeout(bg, 10*time.Second)
			defer cancel()
			if err := s.notifier.Notify(nctx, alert); err != nil {
				s.logger.Warn().Err(err).Msg("upload: falha ao notificar")
			}
		}()
	}
	return terr
}

func (s *Service) publish(ctx context.Context, event progress.Event) {
	if s.broker == nil {
		return
	}
	event.At = time.Now().UTC()
	if err := s.broker.Publish(ctx, event); err != nil {
		s.logger.Debug().Err(err).Str("upload_id", event.UploadID).Msg("progress: publicação falhou")
	}
}

func (s *Service) cleanup(uploadID, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn().Err(err).Str("upload_id", uploadID).Str("path", path).Msg("upload: falha ao remover temporário")
	}
}
