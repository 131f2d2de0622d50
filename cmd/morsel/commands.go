package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"morsel/internal/model"
	"morsel/internal/poller"
	"morsel/internal/publisher"
	web "morsel/internal/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	pollWatch    bool
	pollInterval time.Duration
	noPublish    bool
	servePoll    bool
	serveAddr    string
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Scrape links from new inbox messages into today's queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateMailbox(); err != nil {
			return err
		}
		ctx := cmd.Context()

		var cl closers
		defer func() { cl.Close() }()
		q, err := newQueue()
		if err != nil {
			return err
		}
		cl = append(cl, q)

		p := poller.New(newMailbox(), newScraper(ctx, &cl), q, newExtractor(), poller.Options{
			Limit:    cfg.Mailbox.Limit,
			Location: cfg.Location(),
			Notifier: newNotifier(),
		}, logger)

		if pollWatch {
			interval := pollInterval
			if interval <= 0 {
				interval = cfg.Poll.Interval
			}
			p.Run(ctx, interval)
			return nil
		}

		n, err := p.PollOnce(ctx)
		if err != nil {
			reportFailure(ctx, "poll", err)
			return err
		}
		logger.Info("Poll complete", zap.Int("queued", n))
		return nil
	},
}

var digestCmd = &cobra.Command{
	Use:   "digest [YYYY-MM-DD]",
	Short: "Compose and publish the episode for a day (default yesterday)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		day, err := digestDay(args, time.Now())
		if err != nil {
			return err
		}
		if err := cfg.ValidateDigest(!noPublish); err != nil {
			return err
		}
		ctx := cmd.Context()

		q, err := newQueue()
		if err != nil {
			return err
		}
		defer q.Close()

		d, err := newComposer(q).Compose(ctx, day)
		if err != nil {
			reportFailure(ctx, "digest "+day, err)
			return err
		}
		if d == nil {
			logger.Warn("No articles queued", zap.String("day", day))
			return fmt.Errorf("no articles queued for %s: %w", day, errNothingToDo)
		}
		if noPublish {
			logger.Info("Digest written, not publishing", zap.String("day", day), zap.Int("articles", d.ArticleCount))
			return nil
		}

		pub, err := newPublisher(true)
		if err != nil {
			return err
		}
		ep, err := pub.Publish(ctx, d)
		if err != nil {
			reportFailure(ctx, "publish "+day, err)
			return err
		}
		logger.Info("Episode published", zap.String("title", ep.Title), zap.String("url", ep.AudioURL))

		if _, err := pub.Prune(ctx); err != nil {
			logger.Warn("Prune failed", zap.Error(err))
		}
		return nil
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete stored episode audio older than storage.retention_days",
	RunE: func(cmd *cobra.Command, args []string) error {
		pub, err := newPublisher(false)
		if err != nil {
			return err
		}
		deleted, err := pub.Prune(cmd.Context())
		logger.Info("Prune complete", zap.Int("deleted", len(deleted)))
		return err
	},
}

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Re-render and upload the feed from the episode index",
	RunE: func(cmd *cobra.Command, args []string) error {
		pub, err := newPublisher(false)
		if err != nil {
			return err
		}
		return pub.RefreshFeed(cmd.Context())
	},
}

var queueCmd = &cobra.Command{
	Use:   "queue [YYYY-MM-DD]",
	Short: "List queued days, or the articles queued for one day",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		q, err := newQueue()
		if err != nil {
			return err
		}
		defer q.Close()

		if len(args) == 0 {
			days, err := q.Days(ctx)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(days))
			for _, day := range days {
				articles, err := q.Load(ctx, day)
				if err != nil {
					return err
				}
				rows = append(rows, []string{day, strconv.Itoa(len(articles))})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Day", "Articles"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		}

		day, err := parseDay(args[0])
		if err != nil {
			return err
		}
		articles, err := q.Load(ctx, day)
		if err != nil {
			return err
		}
		if len(articles) == 0 {
			return fmt.Errorf("no articles queued for %s: %w", day, errNothingToDo)
		}
		rows := make([][]string, 0, len(articles))
		for i, a := range articles {
			rows = append(rows, []string{strconv.Itoa(i + 1), a.Title, a.URL, a.QueuedAt.In(cfg.Location()).Format("15:04")})
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"#", "Title", "URL", "Queued"}, rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft}))
		return nil
	},
}

var episodesCmd = &cobra.Command{
	Use:   "episodes",
	Short: "List published episodes",
	RunE: func(cmd *cobra.Command, args []string) error {
		episodes, err := publisher.NewIndex(cfg.DataDir).Load()
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(episodes))
		for _, ep := range publisher.NewestFirst(episodes) {
			rows = append(rows, []string{
				ep.Date,
				ep.Duration,
				fmt.Sprintf("%.1f MB", float64(ep.AudioSize)/(1024*1024)),
				ep.AudioURL,
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Date", "Duration", "Size", "Audio"}, rows,
			[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft}))
		return nil
	},
}

var inboxesCmd = &cobra.Command{
	Use:   "inboxes",
	Short: "List the inboxes visible to the mailbox API key",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Mailbox.APIKey == "" {
			return errors.New("config: missing mailbox.api_key (AGENTMAIL_API_KEY)")
		}
		inboxes, err := newMailbox().Inboxes(cmd.Context())
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(inboxes))
		for _, in := range inboxes {
			created := ""
			if !in.CreatedAt.IsZero() {
				created = in.CreatedAt.In(cfg.Location()).Format(model.DateLayout)
			}
			rows = append(rows, []string{in.ID, in.DisplayName, created})
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Inbox", "Name", "Created"}, rows, nil))
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the episode list, queue API and locally stored feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var cl closers
		defer func() { cl.Close() }()
		q, err := newQueue()
		if err != nil {
			return err
		}
		cl = append(cl, q)

		if servePoll {
			if err := cfg.ValidateMailbox(); err != nil {
				return err
			}
			p := poller.New(newMailbox(), newScraper(ctx, &cl), q, newExtractor(), poller.Options{
				Limit:    cfg.Mailbox.Limit,
				Location: cfg.Location(),
				Notifier: newNotifier(),
			}, logger)
			go p.Run(ctx, cfg.Poll.Interval)
		}

		public := ""
		if !cfg.RemoteStorage() {
			public = cfg.Storage.LocalDir
		}
		addr := serveAddr
		if addr == "" {
			addr = cfg.Server.Addr
		}
		index := publisher.NewIndex(cfg.DataDir)
		srv := web.NewServer(cfg.Podcast.Title, web.EpisodesFunc(index.Load), q, public, logger)

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start(addr) }()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
		}

		logger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			return err
		}
		logger.Info("Goodbye!")
		return nil
	},
}

func init() {
	pollCmd.Flags().BoolVarP(&pollWatch, "watch", "w", false, "Keep polling on an interval")
	pollCmd.Flags().DurationVar(&pollInterval, "interval", 0, "Polling interval for --watch (default poll.interval)")
	digestCmd.Flags().BoolVar(&noPublish, "no-publish", false, "Write the script and show notes only")
	serveCmd.Flags().BoolVar(&servePoll, "poll", false, "Also run the inbox poller")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default server.addr)")
}

// digestDay is the requested date, or yesterday in the configured timezone.
func digestDay(args []string, now time.Time) (string, error) {
	if len(args) > 0 {
		return parseDay(args[0])
	}
	return now.In(cfg.Location()).AddDate(0, 0, -1).Format(model.DateLayout), nil
}

func parseDay(value string) (string, error) {
	t, err := time.Parse(model.DateLayout, value)
	if err != nil {
		return "", fmt.Errorf("invalid date %q, want YYYY-MM-DD", value)
	}
	return t.Format(model.DateLayout), nil
}

func reportFailure(ctx context.Context, stage string, err error) {
	if nerr := newNotifier().Failure(ctx, stage, err); nerr != nil {
		logger.Warn("Notification failed", zap.Error(nerr))
	}
}
