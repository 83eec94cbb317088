package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"deskcore/internal/analysis"
	"deskcore/internal/async"
	"deskcore/internal/attachment"
	"deskcore/internal/blob"
	"deskcore/internal/core"
	"deskcore/internal/dashboard"
	"deskcore/internal/export"
	"deskcore/pkg/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (c *cli) statsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the dashboard of the configured application",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, done, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer done()
			summary, err := dashboard.Build(c.cfg.App, svc.GetState())
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderPanels(summary))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	return cmd
}

func (c *cli) exportCmd() *cobra.Command {
	var (
		qf      queryFlags
		formats []string
		outDir  string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "export <collection>",
		Short: "Export a filtered collection as JSON and CSV artifacts",
		Long: `export renders the filtered collection on the export worker. With a blob
store configured the artifacts are uploaded and their keys printed; otherwise
they are written to --out.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, done, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer done()
			d, err := svc.Catalog().Resolve(args[0])
			if err != nil {
				return err
			}
			q, err := qf.build(d)
			if err != nil {
				return err
			}
			fs := make([]export.Format, 0, len(formats))
			for _, name := range formats {
				f, err := export.ParseFormat(name)
				if err != nil {
					return err
				}
				fs = append(fs, f)
			}
			store, err := blob.Open(ctx, c.cfg.Blob)
			if err != nil {
				return err
			}

			opts := []export.Option{export.WithLogger(c.logger.Named("export")), export.WithQueueSize(c.cfg.Export.Queue)}
			if store != nil {
				opts = append(opts, export.WithBlobStore(store))
			}
			worker := export.NewWorker(svc, opts...)
			worker.Start()
			defer func() {
				stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := worker.Stop(stopCtx); err != nil {
					c.logger.Warn("stop export worker", zap.Error(err))
				}
			}()

			job, err := worker.Enqueue(ctx, export.Input{Entity: d.Key(), Query: q, Formats: fs, RequestedBy: "deskctl"})
			if err != nil {
				return err
			}
			awaitCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			job, err = worker.Await(awaitCtx, job.ID)
			if err != nil {
				return err
			}
			if job.Status != export.StatusSucceeded {
				return fmt.Errorf("export %s %s: %s", job.ID, job.Status, job.Error)
			}
			return writeArtifacts(cmd, job, outDir)
		},
	}
	qf.bind(cmd)
	cmd.Flags().StringSliceVar(&formats, "format", []string{"json", "csv"}, "artifact formats")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory for artifacts when no blob store is configured")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "maximum time to wait for the export")
	return cmd
}

func writeArtifacts(cmd *cobra.Command, job export.Job, outDir string) error {
	w := cmd.OutOrStdout()
	for _, art := range job.Artifacts {
		if art.Payload == nil {
			fmt.Fprintf(w, "%s\t%d bytes\t%s\n", art.Key, art.SizeBytes, art.URL)
			continue
		}
		path := filepath.Join(outDir, job.Entity+"."+string(art.Format))
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, art.Payload, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Fprintf(w, "%s\t%d bytes\n", path, art.SizeBytes)
	}
	fmt.Fprintf(w, "%d rows exported\n", job.Rows)
	return nil
}

func (c *cli) attachCmd() *cobra.Command {
	var (
		contentType string
		remove      string
	)
	cmd := &cobra.Command{
		Use:   "attach <collection> <id> [image-file]",
		Short: "Attach an image to a record, or remove one with --remove",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, done, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer done()
			d, err := svc.Catalog().Resolve(args[0])
			if err != nil {
				return err
			}
			tracker := async.NewTracker()
			up, err := c.uploader(ctx, svc, tracker)
			if err != nil {
				return err
			}

			if remove != "" {
				if err := up.Remove(ctx, d.Entity(), args[1], remove); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", remove)
				return nil
			}
			if len(args) != 3 {
				return errors.New("an image file is required unless --remove is set")
			}
			f, err := os.Open(args[2])
			if err != nil {
				return err
			}
			defer f.Close()
			if contentType == "" {
				contentType, err = sniff(f)
				if err != nil {
					return err
				}
			}
			ref, err := up.Upload(ctx, tracker.Begin("attach:"+args[1]), attachment.Upload{
				Entity:      d.Entity(),
				ID:          args[1],
				Name:        filepath.Base(args[2]),
				ContentType: contentType,
				Body:        f,
			})
			if err != nil {
				return err
			}
			if strings.HasPrefix(ref, "data:") {
				fmt.Fprintf(cmd.OutOrStdout(), "attached inline image (%d chars)\n", len(ref))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "attached %s\n", ref)
			return nil
		},
	}
	cmd.Flags().StringVar(&contentType, "type", "", "image content type (detected from the file when empty)")
	cmd.Flags().StringVar(&remove, "remove", "", "image reference to remove instead of uploading")
	return cmd
}

// sniff detects the content type from the first 512 bytes and rewinds f.
func sniff(f *os.File) (string, error) {
	head := make([]byte, 512)
	n, err := f.Read(head)
	if err != nil && n == 0 {
		return "", fmt.Errorf("read %s: %w", f.Name(), err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(head[:n]), nil
}

func (c *cli) analyzeCmd() *cobra.Command {
	var (
		attach  string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "analyze <prompt>",
		Short: "Ask the model about the ledger and store the answer as an insight",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, done, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer done()
			if _, ok := svc.Catalog().Descriptor(domain.EntityInsight); !ok {
				return fmt.Errorf("analysis needs the %s app, not %s", domain.AppCFO, c.cfg.App)
			}
			req := analysis.Request{
				Prompt:  strings.Join(args, " "),
				Context: analysis.LedgerContext(svc.GetState()),
			}
			if attach != "" {
				data, err := os.ReadFile(attach)
				if err != nil {
					return err
				}
				req.Attachment = &analysis.Attachment{
					Name:        filepath.Base(attach),
					ContentType: http.DetectContentType(data),
					Data:        data,
				}
			}
			analyzer, err := analysis.NewGenAI(ctx, c.cfg.Analysis)
			if err != nil {
				return err
			}
			tracker := async.NewTracker()
			files, err := c.uploader(ctx, svc, tracker)
			if err != nil {
				return err
			}
			runner := analysis.NewRunner(svc, tracker, analyzer,
				analysis.WithAttachments(files),
				analysis.WithLogger(c.logger.Named("analysis")),
				analysis.WithTimeout(timeout),
			)
			res := <-runner.Submit(ctx, "analysis", req)
			runner.Wait()
			if res.Err != nil {
				return res.Err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Insight.Result)
			return nil
		},
	}
	cmd.Flags().StringVar(&attach, "attach", "", "file sent along with the prompt")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "model call timeout")
	return cmd
}

func (c *cli) watchCmd() *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reload collections changed by other processes and print the changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			var opts []core.Option
			var srv *http.Server
			if metricsAddr != "" {
				reg := prometheus.NewRegistry()
				recorder, err := core.NewPrometheusMetricsRecorder(reg)
				if err != nil {
					return err
				}
				opts = append(opts, core.WithMetricsRecorder(recorder))
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
				srv = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
			}
			svc, done, err := c.open(ctx, opts...)
			if err != nil {
				return err
			}
			defer done()

			if srv != nil {
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						c.logger.Error("metrics server", zap.Error(err))
					}
				}()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
				c.logger.Info("serving metrics", zap.String("addr", metricsAddr))
			}

			w := cmd.OutOrStdout()
			unsubscribe := svc.Subscribe(func(ev core.Event) {
				for _, entity := range ev.Reloaded {
					fmt.Fprintf(w, "reloaded %s (%d records)\n", entity, len(svc.Store().List(entity)))
				}
				writeChanges(w, ev.Changes)
			})
			defer unsubscribe()
			c.logger.Info("watching storage", zap.String("driver", c.cfg.Storage.Driver))
			return svc.Watch(ctx)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

func (c *cli) seedCmd() *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write the demo dataset to storage",
		Long: `seed persists every collection. Collections that are not stored yet take
the embedded demo dataset; --reset discards stored collections first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, done, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer done()
			adapter := svc.Adapter()
			if reset {
				if err := adapter.Reset(ctx); err != nil {
					return err
				}
				if err := svc.Load(ctx); err != nil {
					return err
				}
			}
			if err := adapter.Persist(ctx, svc.GetState()); err != nil {
				return err
			}
			for _, d := range svc.Catalog().Descriptors() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", d.Key(), len(svc.Store().List(d.Entity())))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "discard stored collections and restore the demo dataset")
	return cmd
}

// uploader opens the configured blob store, if any, behind an attachment
// uploader.
func (c *cli) uploader(ctx context.Context, svc *core.Service, tracker *async.Tracker) (*attachment.Uploader, error) {
	store, err := blob.Open(ctx, c.cfg.Blob)
	if err != nil {
		return nil, err
	}
	opts := []attachment.Option{attachment.WithLogger(c.logger.Named("attachment")), attachment.WithMaxBytes(c.cfg.Blob.MaxBytes)}
	if store != nil {
		opts = append(opts, attachment.WithBlobStore(store))
	}
	return attachment.NewUploader(svc, tracker, opts...), nil
}
