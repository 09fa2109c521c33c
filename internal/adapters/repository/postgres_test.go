package repository

import (
	"io/fs"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNormalizeDSN(t *testing.T) {
	Convey("Given SQLAlchemy-style connection strings", t, func() {
		Convey("When the asyncpg dialect marker is present", func() {
			dsn := NormalizeDSN("postgresql+asyncpg://user:pass@db:5432/srvwb")

			Convey("Then it should be stripped", func() {
				So(dsn, ShouldEqual, "postgres://user:pass@db:5432/srvwb")
			})
		})

		Convey("When a psycopg dialect marker is present", func() {
			So(NormalizeDSN("postgresql+psycopg://u:p@h:5432/d"), ShouldEqual, "postgres://u:p@h:5432/d")
			So(NormalizeDSN("postgresql+psycopg2://u:p@h:5432/d"), ShouldEqual, "postgres://u:p@h:5432/d")
		})

		Convey("When the DSN is already native", func() {
			So(NormalizeDSN("postgres://u:p@h:5432/d"), ShouldEqual, "postgres://u:p@h:5432/d")
			So(NormalizeDSN("postgresql://u:p@h:5432/d"), ShouldEqual, "postgresql://u:p@h:5432/d")
		})

		Convey("When the DSN has surrounding whitespace", func() {
			So(NormalizeDSN("  postgres://u:p@h:5432/d\n"), ShouldEqual, "postgres://u:p@h:5432/d")
		})
	})
}

func TestSplitSQLStatements(t *testing.T) {
	Convey("Given migration SQL text", t, func() {
		Convey("When it contains multiple statements", func() {
			stmts := splitSQLStatements("CREATE TABLE a (id INT);\n\nCREATE INDEX b ON a (id);\n")

			Convey("Then each statement should be returned trimmed", func() {
				So(stmts, ShouldHaveLength, 2)
				So(stmts[0], ShouldEqual, "CREATE TABLE a (id INT)")
				So(stmts[1], ShouldEqual, "CREATE INDEX b ON a (id)")
			})
		})

		Convey("When it is empty or whitespace", func() {
			So(splitSQLStatements(""), ShouldBeEmpty)
			So(splitSQLStatements(" \n ; ; \n"), ShouldBeEmpty)
		})
	})
}

func TestEmbeddedMigrations(t *testing.T) {
	Convey("Given the embedded migration filesystem", t, func() {
		Convey("When reading the initial migration", func() {
			contents, err := fs.ReadFile(migrationsFS(), "migrations/0001_init.up.sql")

			Convey("Then it should create both ingestion tables", func() {
				So(err, ShouldBeNil)
				So(string(contents), ShouldContainSubstring, "raw_ingest")
				So(string(contents), ShouldContainSubstring, "ad_change_events")
				So(string(contents), ShouldContainSubstring, "idx_raw_ingest_source_kind_time")
				So(string(contents), ShouldContainSubstring, "idx_ad_change_campaign_time")
			})
		})
	})
}

func TestPayloadOrEmpty(t *testing.T) {
	Convey("Given payload normalization", t, func() {
		Convey("When the payload is empty", func() {
			So(string(payloadOrEmpty(nil)), ShouldEqual, "{}")
			So(string(payloadOrEmpty([]byte{})), ShouldEqual, "{}")
		})

		Convey("When the payload is present", func() {
			So(string(payloadOrEmpty([]byte(`{"a":1}`))), ShouldEqual, `{"a":1}`)
		})
	})
}

func TestStoreOptions(t *testing.T) {
	Convey("Given store options", t, func() {
		s := &PostgresStore{
			maxOpenConns:    defaultMaxOpenConns,
			maxIdleConns:    defaultMaxIdleConns,
			connMaxLifetime: defaultConnMaxLifetime,
			pingTimeout:     defaultPingTimeout,
		}

		Convey("When applying valid options", func() {
			WithMaxOpenConns(32)(s)
			WithMaxIdleConns(4)(s)
			WithPingTimeout(defaultPingTimeout / 2)(s)

			Convey("Then the configuration should change", func() {
				So(s.maxOpenConns, ShouldEqual, 32)
				So(s.maxIdleConns, ShouldEqual, 4)
				So(s.pingTimeout, ShouldEqual, defaultPingTimeout/2)
			})
		})

		Convey("When applying out-of-range options", func() {
			WithMaxOpenConns(0)(s)
			WithMaxIdleConns(-1)(s)
			WithConnMaxLifetime(0)(s)

			Convey("Then defaults should be preserved", func() {
				So(s.maxOpenConns, ShouldEqual, defaultMaxOpenConns)
				So(s.maxIdleConns, ShouldEqual, defaultMaxIdleConns)
				So(s.connMaxLifetime, ShouldEqual, defaultConnMaxLifetime)
			})
		})
	})
}
