package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultTestDBConfig(t *testing.T) {
	t.Run("defaults to the local compose database", func(t *testing.T) {
		for _, k := range []string{"TEST_DB_HOST", "TEST_DB_PORT", "TEST_DB_USER", "TEST_DB_PASSWORD", "TEST_DB_NAME", "DB_SSL_MODE"} {
			t.Setenv(k, "")
		}
		cfg := DefaultTestDBConfig()
		assert.Equal(t, TestDBConfig{
			Host: "localhost", Port: "55432", User: "mmkauth", Password: "mmkauth", DBName: "mmkauth", SSLMode: "disable",
		}, cfg)
	})

	t.Run("respects CI overrides", func(t *testing.T) {
		t.Setenv("TEST_DB_HOST", "postgres")
		t.Setenv("TEST_DB_PORT", "5432")
		cfg := DefaultTestDBConfig()
		assert.Equal(t, "postgres", cfg.Host)
		assert.Equal(t, "5432", cfg.Port)
	})
}

func TestTestDBConfigDSN(t *testing.T) {
	cfg := TestDBConfig{Host: "db", Port: "5432", User: "u", Password: "p@ss", DBName: "auth", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p%40ss@db:5432/auth?sslmode=disable", cfg.DSN(""))
	assert.Equal(t, "postgres://u:p%40ss@db:5432/auth?search_path=t_ab%2Cpublic&sslmode=disable", cfg.DSN("t_ab"))
}

func TestEnvBool(t *testing.T) {
	for v, want := range map[string]bool{"1": true, "TRUE": true, " yes ": true, "y": true, "0": false, "": false, "no": false} {
		t.Setenv("TESTUTIL_FLAG", v)
		assert.Equal(t, want, envBool("TESTUTIL_FLAG"), v)
	}
}

func TestTestTimeProvider(t *testing.T) {
	clock := NewTestTimeProvider(TestTime())
	clock.AddTime(time.Minute)
	assert.Equal(t, TestTime().Add(time.Minute), clock.Now())

	clock.SetTime(TestTime())
	assert.Equal(t, TestTime(), clock.Now())
}
