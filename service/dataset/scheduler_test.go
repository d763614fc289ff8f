package dataset

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techintel-service/service/loader"
	"techintel-service/testutil"
)

func TestReloadScheduler_CheckAndReload(t *testing.T) {
	path := testutil.WriteTempFile(t, "companies.csv", testutil.BaseCSV)
	store := NewStore(loader.NewCSVLoader(path, "", ""))
	s := NewReloadScheduler(store, "")

	reloaded, err := s.CheckAndReload(context.Background())
	require.NoError(t, err)
	assert.True(t, reloaded, "没有快照时应加载")
	version := store.Current().Version

	reloaded, err = s.CheckAndReload(context.Background())
	require.NoError(t, err)
	assert.False(t, reloaded, "文件未变化时不重载")
	assert.Equal(t, version, store.Current().Version)

	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	reloaded, err = s.CheckAndReload(context.Background())
	require.NoError(t, err)
	assert.True(t, reloaded)
	assert.NotEqual(t, version, store.Current().Version)
	assert.Equal(t, TriggerSchedule, store.Status().LastTrigger)
}

func TestReloadScheduler_SourcesWithoutModTime(t *testing.T) {
	store := NewStore(&loader.StaticLoader{Records: sampleRecords()})
	s := NewReloadScheduler(store, "")

	for i := 0; i < 2; i++ {
		reloaded, err := s.CheckAndReload(context.Background())
		require.NoError(t, err)
		assert.True(t, reloaded, "无法探测修改时间的来源每次都重载")
	}
	assert.Equal(t, int64(2), store.Status().Reloads)
}

func TestReloadScheduler_StartStop(t *testing.T) {
	store := NewStore(&loader.StaticLoader{Records: sampleRecords()})

	bad := NewReloadScheduler(store, "not a cron spec")
	assert.Error(t, bad.Start())

	s := NewReloadScheduler(store, "* * * * * *")
	require.NoError(t, s.Start())
	require.NoError(t, s.Start())

	assert.Eventually(t, store.Ready, 3*time.Second, 50*time.Millisecond)
	s.Stop()
	s.Stop()
}
