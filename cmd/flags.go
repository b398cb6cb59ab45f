package cmd

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func logLevelFlag(v *viper.Viper) string {
	return v.GetString("log.level")
}

func addLogLevelFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("log-level", "info", "log level")
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = v.BindEnv("log.level", "LOG_LEVEL")
}

func logFormatFlag(v *viper.Viper) string {
	return v.GetString("log.format")
}

func addLogFormatFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("log-format", "json", "log format")
	_ = v.BindPFlag("log.format", flags.Lookup("log-format"))
	_ = v.BindEnv("log.format", "LOG_FORMAT")
}

func addressFlag(v *viper.Viper) string {
	return v.GetString("address")
}

func addAddressFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("address", ":8080", "Address to bind to (host:port)")
	_ = v.BindPFlag("address", flags.Lookup("address"))
	_ = v.BindEnv("address", "SNAPVAULT_ADDRESS")
}

func basePathFlag(v *viper.Viper) string {
	return v.GetString("base_path")
}

func addBasePathFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("base-path", "/snapvault", "Base path to export the webserver on")
	_ = v.BindPFlag("base_path", flags.Lookup("base-path"))
	_ = v.BindEnv("base_path", "SNAPVAULT_BASE_PATH")
}

func snapshotDirFlag(v *viper.Viper) string {
	return v.GetString("snapshot.dir")
}

func addSnapshotDirFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("snapshot-dir", "/var/lib/snapvault", "Where to put my snapshots")
	_ = v.BindPFlag("snapshot.dir", flags.Lookup("snapshot-dir"))
	_ = v.BindEnv("snapshot.dir", "SNAPVAULT_SNAPSHOT_DIR")
}

func snapshotLimitFlag(v *viper.Viper) int {
	return v.GetInt("snapshot.limit")
}

func addSnapshotLimitFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Int("snapshot-limit", 2, "Number of snapshots to keep")
	_ = v.BindPFlag("snapshot.limit", flags.Lookup("snapshot-limit"))
	_ = v.BindEnv("snapshot.limit", "SNAPVAULT_SNAPSHOT_LIMIT")
}

func executorSizeFlag(v *viper.Viper) int {
	return v.GetInt("executor.size")
}

func addExecutorSizeFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Int("executor-size", 1, "Number of workers compressing snapshots")
	_ = v.BindPFlag("executor.size", flags.Lookup("executor-size"))
	_ = v.BindEnv("executor.size", "SNAPVAULT_EXECUTOR_SIZE")
}

func blobBucketFlag(v *viper.Viper) string {
	return v.GetString("store.blob.bucket")
}

func addBlobBucketFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("blob-bucket", "", "Bucket URL of an additional blob backend store (gs://, s3://, azblob://)")
	_ = v.BindPFlag("store.blob.bucket", flags.Lookup("blob-bucket"))
	_ = v.BindEnv("store.blob.bucket", "SNAPVAULT_BLOB_BUCKET")
}

func restoreOnStartFlag(v *viper.Viper) bool {
	return v.GetBool("restore_on_start")
}

func addRestoreOnStartFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Bool("restore-on-start", true, "Restore the current snapshot on startup")
	_ = v.BindPFlag("restore_on_start", flags.Lookup("restore-on-start"))
	_ = v.BindEnv("restore_on_start", "SNAPVAULT_RESTORE_ON_START")
}

func gracefulPeriodFlag(v *viper.Viper) time.Duration {
	return v.GetDuration("graceful_period")
}

func addGracefulPeriodFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Duration("graceful-period", 30*time.Second, "Timeout duration for graceful shutdown")
	_ = v.BindPFlag("graceful_period", flags.Lookup("graceful-period"))
	_ = v.BindEnv("graceful_period", "SNAPVAULT_GRACEFUL_PERIOD")
}

func serviceHealthzEnabledFlag(v *viper.Viper) bool {
	return v.GetBool("service.healthz.enabled")
}

func addServiceHealthzEnabledFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Bool("service-healthz-enabled", false, "Enable healthz service")
	_ = v.BindPFlag("service.healthz.enabled", flags.Lookup("service-healthz-enabled"))
}

func servicePrometheusEnabledFlag(v *viper.Viper) bool {
	return v.GetBool("service.prometheus.enabled")
}

func addServicePrometheusEnabledFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Bool("service-prometheus-enabled", false, "Enable prometheus service")
	_ = v.BindPFlag("service.prometheus.enabled", flags.Lookup("service-prometheus-enabled"))
}

func servicePProfEnabledFlag(v *viper.Viper) bool {
	return v.GetBool("service.pprof.enabled")
}

func addServicePProfEnabledFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Bool("service-pprof-enabled", false, "Enable pprof service")
	_ = v.BindPFlag("service.pprof.enabled", flags.Lookup("service-pprof-enabled"))
}

func otelEnabledFlag(v *viper.Viper) bool {
	return v.GetBool("otel.enabled")
}

func addOtelEnabledFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Bool("otel-enabled", false, "Enable otel service")
	_ = v.BindPFlag("otel.enabled", flags.Lookup("otel-enabled"))
	_ = v.BindEnv("otel.enabled", "OTEL_ENABLED")
}
