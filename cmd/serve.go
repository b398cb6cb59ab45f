package cmd

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/foomo/keel"
	"github.com/foomo/keel/healthz"
	"github.com/foomo/keel/net/http/middleware"
	"github.com/foomo/keel/service"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/storewise/snapvault/pkg/handler"
	"github.com/storewise/snapvault/pkg/snapshot"
	"github.com/storewise/snapvault/pkg/store"
	"go.uber.org/zap"
)

func NewServeCommand() *cobra.Command {
	v := newViper()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the snapshot node server",
		RunE: func(cmd *cobra.Command, args []string) error {
			svr := keel.NewServer(
				keel.WithHTTPPrometheusService(servicePrometheusEnabledFlag(v)),
				keel.WithHTTPHealthzService(serviceHealthzEnabledFlag(v)),
				keel.WithPrometheusMeter(servicePrometheusEnabledFlag(v)),
				keel.WithGracefulPeriod(gracefulPeriodFlag(v)),
				keel.WithOTLPGRPCTracer(otelEnabledFlag(v)),
				keel.WithHTTPPProfService(servicePProfEnabledFlag(v)),
			)

			l := svr.Logger()

			kv := store.NewKV(l.Named("inst.kv"), "kv")
			stores := []snapshot.Store{kv}

			if bucketURL := blobBucketFlag(v); bucketURL != "" {
				l.Info("adding blob backend store", zap.String("bucket", bucketURL))
				blob, err := store.NewBlob(cmd.Context(), "blob", bucketURL)
				if err != nil {
					return fmt.Errorf("failed to open blob bucket: %w", err)
				}
				stores = append(stores, blob)
				svr.AddClosers(func(ctx context.Context) error {
					return blob.Close()
				})
			}

			coordinator, err := snapshot.NewCoordinator(l.Named("inst.coordinator"), stores)
			if err != nil {
				return fmt.Errorf("failed to create coordinator: %w", err)
			}

			executor := snapshot.NewPoolExecutor(l.Named("inst.executor"), executorSizeFlag(v))
			svr.AddClosers(func(ctx context.Context) error {
				return executor.Close()
			})

			manager, err := snapshot.NewManager(l.Named("inst.manager"),
				snapshotDirFlag(v),
				coordinator,
				executor,
				snapshot.ManagerWithLimit(snapshotLimitFlag(v)),
			)
			if err != nil {
				return fmt.Errorf("failed to create manager: %w", err)
			}

			var restored atomic.Bool
			isRestoredHealtherFn := healthz.NewHealthzerFn(func(ctx context.Context) error {
				if !restored.Load() {
					return errors.New("node state not restored yet")
				}
				return nil
			})
			svr.AddStartupHealthzers(isRestoredHealtherFn)
			svr.AddReadinessHealthzers(isRestoredHealtherFn)

			svr.AddServices(
				service.NewGoRoutine(l.Named("go.restore"), "restore", func(ctx context.Context, l *zap.Logger) error {
					if restoreOnStartFlag(v) {
						if err := manager.Load(ctx); errors.Is(err, os.ErrNotExist) {
							l.Info("no previous snapshot to restore")
						} else if err != nil {
							return fmt.Errorf("failed to restore node state: %w", err)
						} else {
							l.Info("restored node state from current snapshot")
						}
					}
					restored.Store(true)
					return nil
				}),
				service.NewHTTP(l.Named("svc.http"), "http", addressFlag(v),
					handler.NewHTTP(l.Named("inst.handler"), manager,
						handler.WithPath(basePathFlag(v)),
						handler.WithKV(kv),
					),
					middleware.Telemetry(),
					middleware.Logger(),
					middleware.Recover(),
				),
			)

			svr.Run()
			return nil
		},
	}

	flags := cmd.Flags()
	addAddressFlag(flags, v)
	addBasePathFlag(flags, v)
	addSnapshotDirFlag(flags, v)
	addSnapshotLimitFlag(flags, v)
	addExecutorSizeFlag(flags, v)
	addBlobBucketFlag(flags, v)
	addRestoreOnStartFlag(flags, v)
	addGracefulPeriodFlag(flags, v)
	addOtelEnabledFlag(flags, v)
	addServiceHealthzEnabledFlag(flags, v)
	addServicePrometheusEnabledFlag(flags, v)
	addServicePProfEnabledFlag(flags, v)

	return cmd
}
