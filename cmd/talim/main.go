// Command talim is a terminal front-end for the Uzbek Ta'lim learning
// platform. It drives the same client library the web application uses:
// sessions persist between invocations, so a login survives until it is
// revoked or expires, and a timed test attempt started in one run can be
// resumed in the next.
//
// Configuration comes from flags, the environment, and an optional .env
// file in the working directory:
//
//	TALIM_API_URL     backend API root (or --api)
//	TALIM_REDIS_ADDR  persist state in Redis instead of local files
//	TALIM_STATE_DIR   local state directory (default ~/.talim)
//	TALIM_PASSWORD    password for the login command
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	talim "github.com/uzbek-talim/talim"
	"github.com/uzbek-talim/talim/api"
	"github.com/uzbek-talim/talim/attempt"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "talim:", err)
		}
		os.Exit(1)
	}
}

type app struct {
	apiURL    string
	redisAddr string
	stateDir  string
	locale    string
	verbose   bool
	auditPath string

	logger *slog.Logger
	client *talim.Client
	rdb    redis.UniversalClient
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "talim",
		Short:         "Uzbek Ta'lim command line client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.teardown()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.apiURL, "api", "", "backend API root (env TALIM_API_URL)")
	flags.StringVar(&a.redisAddr, "redis-addr", "", "persist state in Redis at this address (env TALIM_REDIS_ADDR)")
	flags.StringVar(&a.stateDir, "state-dir", "", "local state directory (env TALIM_STATE_DIR, default ~/.talim)")
	flags.StringVar(&a.locale, "locale", "uz", "Accept-Language sent with every request")
	flags.StringVar(&a.auditPath, "audit-log", "", "append JSON audit events to this file")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		a.loginCommand(),
		a.logoutCommand(),
		a.meCommand(),
		a.coursesCommand(),
		a.testsCommand(),
		a.attemptCommand(),
	)

	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	// A .env in the working directory is a convenience, not a requirement.
	_ = godotenv.Load()

	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if a.apiURL == "" {
		a.apiURL = os.Getenv("TALIM_API_URL")
	}
	if a.apiURL == "" {
		return errors.New("no API root: set --api or TALIM_API_URL")
	}
	if a.redisAddr == "" {
		a.redisAddr = os.Getenv("TALIM_REDIS_ADDR")
	}
	if a.stateDir == "" {
		a.stateDir = os.Getenv("TALIM_STATE_DIR")
	}

	builder := talim.New().
		WithBaseURL(a.apiURL).
		WithLocale(a.locale).
		WithNavigator(func(path string) {
			a.logger.Info("session expired, sign in again", "redirect", path)
		})

	if a.redisAddr != "" {
		a.rdb = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{a.redisAddr},
		})
		builder = builder.WithRedis(a.rdb)
		a.logger.Debug("state backend", "redis", a.redisAddr)
	} else {
		dir, err := a.resolveStateDir()
		if err != nil {
			return err
		}
		builder = builder.WithStorageDir(dir)
		a.logger.Debug("state backend", "dir", dir)
	}

	if a.auditPath != "" {
		f, err := os.OpenFile(a.auditPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("open audit log: %w", err)
		}
		builder = builder.WithAuditSink(talim.NewJSONWriterSink(f))
	}

	client, err := builder.Build()
	if err != nil {
		return err
	}
	a.client = client

	if err := a.client.Bootstrap(cmd.Context()); err != nil {
		a.logger.Warn("session bootstrap failed", "err", err)
	}
	return nil
}

func (a *app) teardown() {
	if a.client != nil {
		a.client.Close()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
}

func (a *app) resolveStateDir() (string, error) {
	if a.stateDir != "" {
		return a.stateDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve state dir: %w", err)
	}
	return filepath.Join(home, ".talim"), nil
}

func (a *app) loginCommand() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login <phone>",
		Short: "Sign in with phone and password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			phone := args[0]
			if password == "" {
				password = os.Getenv("TALIM_PASSWORD")
			}
			if password == "" {
				return errors.New("no password: set --password or TALIM_PASSWORD")
			}

			result, err := a.client.Login(cmd.Context(), phone, password)
			if err != nil {
				return err
			}
			if err := a.client.RememberPhone(cmd.Context(), phone); err != nil {
				a.logger.Debug("remember phone failed", "err", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s %s (%s)\n",
				result.Identity.FirstName, result.Identity.LastName, result.Identity.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "password (env TALIM_PASSWORD)")
	return cmd
}

func (a *app) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the local session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.client.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
}

func (a *app) meCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the signed-in profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap := a.client.Session().Snapshot()
			if !snap.IsAuthenticated {
				fmt.Fprintln(cmd.OutOrStdout(), "not signed in")
				return nil
			}

			identity, err := a.client.Me(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", identity.FirstName, identity.LastName)
			fmt.Fprintf(out, "  phone: %s\n", identity.Phone)
			fmt.Fprintf(out, "  role:  %s\n", identity.Role)
			return nil
		},
	}
}

func (a *app) coursesCommand() *cobra.Command {
	var (
		search string
		page   int
		mine   bool
	)

	cmd := &cobra.Command{
		Use:   "courses",
		Short: "List the course catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			var (
				listing api.Page[talim.Course]
				err     error
			)
			if mine {
				listing, err = a.client.MyCourses(ctx)
			} else {
				listing, err = a.client.Courses(ctx, talim.CourseQuery{Search: search, Page: page})
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, course := range listing.Items {
				fmt.Fprintf(out, "%4d  %-30s %s\n", course.ID, course.Title, course.Slug)
			}
			fmt.Fprintf(out, "%d of %d courses\n", len(listing.Items), listing.Total)
			return nil
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "filter by title")
	cmd.Flags().IntVar(&page, "page", 0, "page number")
	cmd.Flags().BoolVar(&mine, "mine", false, "only enrolled courses")
	return cmd
}

func (a *app) testsCommand() *cobra.Command {
	var courseID int

	cmd := &cobra.Command{
		Use:   "tests",
		Short: "List available tests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			listing, err := a.client.Tests(cmd.Context(), courseID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, test := range listing.Items {
				fmt.Fprintf(out, "%4d  %-30s %d min\n", test.ID, test.Title, test.DurationMinutes)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&courseID, "course", 0, "filter by course id")
	return cmd
}

// attemptCommand starts or resumes a timed attempt and watches its
// countdown. Interrupting the watch leaves the attempt running; the next
// invocation picks up the same deadline.
func (a *app) attemptCommand() *cobra.Command {
	var (
		accessKey string
		submit    bool
	)

	cmd := &cobra.Command{
		Use:   "attempt <test-id>",
		Short: "Start or resume a timed test attempt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			testID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("test id must be a number: %q", args[0])
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			test, err := a.client.Test(ctx, testID, accessKey)
			if err != nil {
				return err
			}
			sess, err := a.client.StartAttempt(ctx, test)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if sess.State().Terminal() {
				fmt.Fprintf(out, "attempt already finished: %s\n", sess.State())
				return nil
			}

			if submit {
				if n := sess.Unanswered(len(test.Questions)); n > 0 {
					fmt.Fprintf(out, "warning: %d questions unanswered\n", n)
				}
				if err := sess.Submit(ctx); err != nil {
					return err
				}
				fmt.Fprintln(out, "submitted")
				return nil
			}

			fmt.Fprintf(out, "%s — %s remaining (Ctrl+C detaches, the timer keeps running)\n",
				test.Title, sess.Remaining().Round(time.Second))

			err = sess.Countdown(ctx, func(remaining time.Duration) {
				fmt.Fprintf(out, "\r%-20s", remaining.Round(time.Second))
			})
			fmt.Fprintln(out)
			if errors.Is(err, context.Canceled) {
				fmt.Fprintln(out, "detached; resume with the same command")
				return nil
			}
			if sess.State() == attempt.Expired {
				fmt.Fprintln(out, "time is up, answers were submitted")
			}
			return err
		},
	}

	cmd.Flags().StringVar(&accessKey, "key", "", "access key for gated tests")
	cmd.Flags().BoolVar(&submit, "submit", false, "submit the attempt now")
	return cmd
}
