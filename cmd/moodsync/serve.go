package main

import (
	"fmt"
	"io/fs"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/justestif/go-spotify-moodsync/internal/auth"
	"github.com/justestif/go-spotify-moodsync/internal/web"
	webfs "github.com/justestif/go-spotify-moodsync/web"
)

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web application",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			oauth, err := auth.NewOAuth(auth.Credentials{
				ClientID:     a.cfg.SpotifyID,
				ClientSecret: a.cfg.SpotifySecret,
				RedirectURL:  a.cfg.RedirectURL,
			})
			if err != nil {
				return err
			}

			store, err := openStorage(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return fmt.Errorf("opening preference store: %w", err)
			}
			defer store.close()

			// Create sub-filesystems for templates and static files
			templates, err := fs.Sub(webfs.TemplatesFS, "templates")
			if err != nil {
				return fmt.Errorf("creating templates filesystem: %w", err)
			}
			static, err := fs.Sub(webfs.StaticFS, "static")
			if err != nil {
				return fmt.Errorf("creating static filesystem: %w", err)
			}

			server, err := web.NewServer(web.ServerConfig{
				Addr:        a.cfg.Addr,
				Auth:        oauth,
				TemplatesFS: templates,
				StaticFS:    static,
				Preferences: store.backends,
				Classifier:  newClassifier(a.cfg, a.logger),
				Engine:      engineOptions(a.cfg, a.logger, newMetrics(prometheus.DefaultRegisterer)),
				Users:       store.users,
				Logger:      a.logger.Named("web"),
			})
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}

			return server.Run()
		},
	}
}
