package config_test

import (
	"runtime"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"
	"github.com/srvwb/core/internal/config"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":8000")
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 100_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*2)
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 50_000)
			convey.So(cfg.MaxBatchSize, convey.ShouldEqual, 1_000)
			convey.So(cfg.DBMaxOpenConns, convey.ShouldEqual, 16)
			convey.So(cfg.DatabaseURL, convey.ShouldBeEmpty)
		})

		convey.Convey("Then duration helpers should convert units", func() {
			convey.So(cfg.DBConnMaxLifetime(), convey.ShouldEqual, 30*time.Minute)
			convey.So(cfg.DBPingTimeout(), convey.ShouldEqual, 5*time.Second)
		})
	})
}
