package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "uploadctl",
		Short: "Envia vídeos ao relay e acompanha o progresso",
		Long: `uploadctl conversa com a API do relay de vídeos.

Envia arquivos para POST /upload, acompanha GET /progress/{id} via SSE
e consulta o histórico em GET /uploads/{id}.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.server, "server", envOr("VIDEORELAY_URL", "http://localhost:5000"), "URL base da API")
	rootCmd.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("VIDEORELAY_TOKEN"), "token Bearer para POST /upload")

	rootCmd.AddCommand(
		uploadCmd(opts),
		watchCmd(opts),
		statusCmd(opts),
		tokenCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "erro: %s\n", err)
		os.Exit(1)
	}
}

type globalOptions struct {
	server string
	token  string
}

func (o *globalOptions) client() *Client {
	return NewClient(o.server, o.token)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
