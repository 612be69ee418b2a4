package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/gestaozabele/videorelay/internal/auth"
	"github.com/gestaozabele/videorelay/internal/progress"
	"github.com/gestaozabele/videorelay/internal/util"
)

func uploadCmd(opts *globalOptions) *cobra.Command {
	var uploadID string
	var quiet bool

	cmd := &cobra.Command{
		Use:   "upload <arquivo>",
		Short: "Envia um vídeo e mostra o progresso",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			if uploadID == "" {
				uploadID = util.NewUploadID()
			}
			if !util.ValidUploadID(uploadID) {
				return fmt.Errorf("upload id inválido: %q", uploadID)
			}

			client := opts.client()
			out := cmd.OutOrStdout()

			watchDone := make(chan struct{})
			posted := make(chan struct{})
			watchCtx, cancelWatch := context.WithCancel(ctx)
			defer cancelWatch()
			if !quiet {
				go func() {
					defer close(watchDone)
					_ = client.WatchUpload(watchCtx, uploadID, posted, func(ev progress.Event) {
						if ev.Status == progress.StatusProgress {
							fmt.Fprintf(out, "\r%3d%%", ev.Percent)
						}
					})
				}()
			} else {
				close(watchDone)
			}

			res, err := client.Upload(ctx, uploadID, args[0])
			close(posted)

			// dá tempo ao stream de entregar o evento final antes de encerrar
			select {
			case <-watchDone:
			case <-time.After(2 * time.Second):
				cancelWatch()
				<-watchDone
			}
			if !quiet {
				fmt.Fprintln(out)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "upload %s concluído: %s\n", res.UploadID, res.URL)
			return nil
		},
	}

	cmd.Flags().StringVar(&uploadID, "id", "", "upload id (gerado quando vazio)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "não acompanhar o progresso")
	return cmd
}

func watchCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <upload-id>",
		Short: "Acompanha os eventos de progresso de um upload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			out := cmd.OutOrStdout()
			err := opts.client().Watch(ctx, args[0], func(ev progress.Event) {
				switch ev.Status {
				case progress.StatusProgress:
					fmt.Fprintf(out, "%s %3d%%\n", ev.Status, ev.Percent)
				case progress.StatusCompleted:
					fmt.Fprintf(out, "%s %s\n", ev.Status, ev.URL)
				default:
					fmt.Fprintf(out, "%s %s\n", ev.Status, ev.Error)
				}
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

func statusCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <upload-id>",
		Short: "Consulta o registro de um upload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := opts.client().Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		},
	}
}

func tokenCmd() *cobra.Command {
	var subject string
	var scopes []string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Gera um token de upload assinado com UPLOAD_JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			secret := strings.TrimSpace(os.Getenv("UPLOAD_JWT_SECRET"))
			if len(secret) < 32 {
				return errors.New("UPLOAD_JWT_SECRET ausente ou menor que 32 caracteres")
			}
			token, err := auth.NewJWTManager(secret, ttl).GenerateToken(subject, scopes)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "uploadctl", "subject do token")
	cmd.Flags().StringSliceVar(&scopes, "scope", []string{auth.ScopeUpload}, "escopos concedidos")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "validade do token")
	return cmd
}
