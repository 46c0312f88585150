package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(viper.New(), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "https://www.rewe.de/", cfg.Rewe.BaseURL)
	assert.Equal(t, "8534540", cfg.Rewe.StoreID)
	assert.Equal(t, time.Second, cfg.Rewe.SleepInterval())
	assert.Equal(t, []string{"discounted"}, cfg.Crawler.Attributes)
	assert.Equal(t, 2, cfg.Crawler.MaxPage)
	assert.Equal(t, 128, cfg.Rewe.CacheSize)
	assert.Equal(t, 1800, cfg.Rewe.QuotaCooldown)
	assert.Equal(t, "rewe_consumer", cfg.Redis.ConsumerGroup)
}

func TestLoadFileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
rewe:
  store_id: "1940419"
  sleep_request: 0.25
  proxies:
    - http://10.0.0.1:8080
crawler:
  attributes: [vegan, organic]
  max_page: 5
`), 0o644))
	t.Setenv("DATABASE_HOST", "db")

	cfg, err := load(viper.New(), dir)
	require.NoError(t, err)

	assert.Equal(t, "1940419", cfg.Rewe.StoreID)
	assert.Equal(t, 250*time.Millisecond, cfg.Rewe.SleepInterval())
	assert.Equal(t, []string{"http://10.0.0.1:8080"}, cfg.Rewe.Proxies)
	assert.Equal(t, []string{"vegan", "organic"}, cfg.Crawler.Attributes)
	assert.Equal(t, 5, cfg.Crawler.MaxPage)
	assert.Equal(t, "db", cfg.Database.Host)
	assert.Equal(t, "host=db port=5432 user=rewe_user password=rewe_pass dbname=rewe sslmode=disable", cfg.Database.DSN())
}

func TestLoadRejectsEmptyStoreID(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("rewe:\n  store_id: \"\"\n"), 0o644))

	_, err := load(viper.New(), dir)
	assert.Error(t, err)
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("rewe: [\n"), 0o644))

	_, err := load(viper.New(), dir)
	assert.Error(t, err)
}
