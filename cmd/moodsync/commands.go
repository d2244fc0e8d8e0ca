package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/justestif/go-spotify-moodsync/internal/auth"
	"github.com/justestif/go-spotify-moodsync/internal/clustering"
	"github.com/justestif/go-spotify-moodsync/internal/mood"
	"github.com/justestif/go-spotify-moodsync/internal/preferences"
	"github.com/justestif/go-spotify-moodsync/internal/recommend"
	"github.com/justestif/go-spotify-moodsync/internal/spotify"
	"github.com/justestif/go-spotify-moodsync/internal/web"
)

// connect runs the cached-token OAuth flow and returns a catalog client.
func (a *app) connect(ctx context.Context) (*spotify.Client, error) {
	authenticator, err := auth.New(auth.Credentials{
		ClientID:     a.cfg.SpotifyID,
		ClientSecret: a.cfg.SpotifySecret,
		RedirectURL:  a.cfg.RedirectURL,
	}, auth.WithLogger(a.logger.Named("auth")))
	if err != nil {
		return nil, err
	}

	api, userID, err := authenticator.Authenticate(ctx)
	if err != nil {
		return nil, fmt.Errorf("authenticating: %w", err)
	}
	a.logger.Info("authenticated", zap.String("user_id", userID))
	return spotify.New(api, spotify.WithLogger(a.logger.Named("spotify"))), nil
}

func (a *app) detectCmd() *cobra.Command {
	var text string
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Classify the mood of a piece of text",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(text) == "" {
				return errors.New("--text is required")
			}
			d := mood.Describe(newClassifier(a.cfg, a.logger).Detect(cmd.Context(), text))
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", d.Label, d.Description)
			return nil
		},
	}
	cmd.Flags().StringVarP(&text, "text", "t", "", "text describing how you feel")
	return cmd
}

func (a *app) recommendCmd() *cobra.Command {
	var (
		moodName    string
		text        string
		interactive bool
	)
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Print tracks for a mood",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			var m mood.Mood
			switch {
			case moodName != "":
				parsed, err := mood.Parse(moodName)
				if err != nil {
					return err
				}
				m = parsed
			case text != "":
				m = newClassifier(a.cfg, a.logger).Detect(ctx, text)
			default:
				return errors.New("one of --mood or --text is required")
			}

			catalog, err := a.connect(ctx)
			if err != nil {
				return err
			}
			store, err := openStorage(ctx, a.cfg, a.logger)
			if err != nil {
				return fmt.Errorf("opening preference store: %w", err)
			}
			defer store.close()

			prefs := preferences.New(store.backends(preferences.DefaultOwner), preferences.WithLogger(a.logger))
			engine := recommend.NewEngine(catalog, prefs,
				engineOptions(a.cfg, a.logger, newMetrics(prometheus.NewRegistry()))...)

			s := &cliSession{
				engine:  engine,
				catalog: catalog,
				sess:    recommend.NewSession(nil),
				out:     cmd.OutOrStdout(),
			}
			s.start(ctx, m)
			if !interactive {
				return nil
			}
			return s.loop(ctx, cmd.InOrStdin())
		},
	}
	cmd.Flags().StringVarP(&moodName, "mood", "m", "", "mood to recommend for ("+moodList()+")")
	cmd.Flags().StringVarP(&text, "text", "t", "", "text to detect the mood from")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "read like/dislike/skip commands after printing")
	cmd.MarkFlagsMutuallyExclusive("mood", "text")
	return cmd
}

func (a *app) profileCmd() *cobra.Command {
	var cfg clustering.Config
	var limit int
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Cluster your saved library into vibes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			tracks, err := clustering.FetchLibrary(cmd.Context(), catalog, limit)
			if err != nil {
				return err
			}
			clusters, outliers, err := clustering.Profile(tracks, cfg)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), clustering.FormatProfile(clusters, outliers))
			return nil
		},
	}
	defaults := clustering.DefaultConfig()
	cmd.Flags().IntVarP(&cfg.NumClusters, "clusters", "k", defaults.NumClusters, "number of clusters")
	cmd.Flags().IntVar(&cfg.MinClusterSize, "min-size", defaults.MinClusterSize, "smallest cluster reported")
	cmd.Flags().IntVar(&limit, "limit", clustering.DefaultLibraryLimit, "saved tracks to analyze")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the cached Spotify token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cache, err := auth.DefaultTokenCache()
			if err != nil {
				return err
			}
			if err := cache.Delete(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func moodList() string {
	names := make([]string, 0, len(mood.All()))
	for _, m := range mood.All() {
		names = append(names, strings.ToLower(m.String()))
	}
	return strings.Join(names, ", ")
}

// cliSession drives one terminal recommendation session.
type cliSession struct {
	engine  *recommend.Engine
	catalog web.Catalog
	sess    *recommend.Session
	out     io.Writer
}

func (s *cliSession) start(ctx context.Context, m mood.Mood) {
	s.engine.Start(ctx, s.sess, m)
	s.print()
}

func (s *cliSession) print() {
	d := mood.Describe(s.sess.Mood)
	fmt.Fprintf(s.out, "\n%s\n%s\n\n", d.Label, d.Description)
	if len(s.sess.Displayed) == 0 {
		fmt.Fprintln(s.out, "No tracks found. Try another mood.")
		return
	}
	for i, t := range s.sess.Displayed {
		fmt.Fprintf(s.out, "%d. %s - %s\n", i+1, t.Name, t.Artist)
	}
}

const loopHelp = "commands: like N | dislike N | skip N | features N | refresh | mood NAME | save | quit"

// loop reads feedback commands until quit or EOF.
func (s *cliSession) loop(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(s.out, "\n"+loopHelp)
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" || fields[0] == "q" {
			return nil
		}
		if err := s.run(ctx, fields); err != nil {
			fmt.Fprintf(s.out, "%v\n", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (s *cliSession) run(ctx context.Context, fields []string) error {
	switch fields[0] {
	case "refresh", "r":
		s.start(ctx, s.sess.Mood)
		return nil
	case "mood":
		if len(fields) < 2 {
			return errors.New("usage: mood NAME")
		}
		m, err := mood.Parse(fields[1])
		if err != nil {
			return err
		}
		s.start(ctx, m)
		return nil
	case "save":
		ids := make([]string, len(s.sess.Displayed))
		for i, t := range s.sess.Displayed {
			ids[i] = t.ID
		}
		name, desc := web.PlaylistName(s.sess.Mood)
		id, err := s.catalog.SavePlaylist(ctx, name, desc, ids)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Saved playlist %q (%s)\n", name, id)
		return nil
	}

	if len(fields) < 2 {
		return errors.New(loopHelp)
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return fmt.Errorf("track number must be a number: %q", fields[1])
	}
	idx := n - 1

	switch fields[0] {
	case "like":
		t, err := s.engine.Like(ctx, s.sess, idx)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Saved %q as a %s track.\n", t.Name, s.sess.Mood)
	case "dislike", "skip":
		var err error
		if fields[0] == "dislike" {
			_, err = s.engine.Dislike(ctx, s.sess, idx)
		} else {
			_, err = s.engine.Skip(ctx, s.sess, idx)
		}
		if errors.Is(err, recommend.ErrNoReplacement) {
			fmt.Fprintln(s.out, "No more tracks available to recommend.")
			return nil
		}
		if err != nil {
			return err
		}
		s.print()
	case "features":
		t, err := s.sess.Track(idx)
		if err != nil {
			return err
		}
		f, err := s.engine.TrackFeatures(ctx, t.ID)
		if err != nil {
			return err
		}
		if f == nil {
			fmt.Fprintln(s.out, "No audio features available.")
			return nil
		}
		fmt.Fprintf(s.out, "%s: energy=%.2f valence=%.2f danceability=%.2f acousticness=%.2f tempo=%.0f\n",
			t.Name, f.Energy, f.Valence, f.Danceability, f.Acousticness, f.Tempo)
	default:
		return errors.New(loopHelp)
	}
	return nil
}
